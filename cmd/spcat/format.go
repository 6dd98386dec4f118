package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
)

type formatFunc func(w io.Writer, b []byte) error

func formatter(name string) (formatFunc, error) {
	switch name {
	case "raw":
		return func(w io.Writer, b []byte) error {
			_, err := w.Write(b)
			return err
		}, nil
	case "ascii":
		return func(w io.Writer, b []byte) error {
			out := make([]byte, len(b)+1)
			for i, c := range b {
				if c < 0x20 || c > 0x7e {
					c = '.'
				}
				out[i] = c
			}
			out[len(b)] = '\n'
			_, err := w.Write(out)
			return err
		}, nil
	case "quoted":
		return func(w io.Writer, b []byte) error {
			_, err := fmt.Fprintln(w, strconv.Quote(string(b)))
			return err
		}, nil
	case "hex":
		return func(w io.Writer, b []byte) error {
			_, err := fmt.Fprintln(w, hex.EncodeToString(b))
			return err
		}, nil
	}
	return nil, fmt.Errorf("unknown format %q", name)
}
