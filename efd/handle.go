package efd

type handle interface {
	signal()
	unsignal()
	fd() int
	close() error
}

type nopHandle struct{}

func (nopHandle) signal()      {}
func (nopHandle) unsignal()    {}
func (nopHandle) fd() int      { return -1 }
func (nopHandle) close() error { return nil }
