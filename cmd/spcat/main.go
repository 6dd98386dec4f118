// Command spcat sends and receives messages over scalability-protocol sockets.
//
//	spcat pull --bind tcp://127.0.0.1:5555 --format ascii
//	spcat push --connect tcp://127.0.0.1:5555 --data hello --interval 1s
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
