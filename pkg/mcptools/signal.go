package mcptools

import "sync"

// signal is a one-shot, monotonic flag. Set may be called any number of times
// from any goroutine; Done is closed after the first call and stays closed.
type signal struct {
	once sync.Once
	ch   chan struct{}
}

func newSignal() *signal {
	return &signal{ch: make(chan struct{})}
}

func (s *signal) Set() {
	s.once.Do(func() { close(s.ch) })
}

func (s *signal) Done() <-chan struct{} {
	return s.ch
}

func (s *signal) IsSet() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}
