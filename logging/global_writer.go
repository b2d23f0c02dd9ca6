package logging

import (
	"io"
	"os"
	"sync"
)

// swapWriter forwards to a writer that can be replaced while loggers hold it.
type swapWriter struct {
	mu sync.RWMutex
	w  io.Writer
}

func (s *swapWriter) Write(p []byte) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.w.Write(p)
}

func (s *swapWriter) swap(w io.Writer) io.Writer {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.w
	s.w = w
	return prev
}

var stderrSink = &swapWriter{w: os.Stderr}

// GetGlobalOutput returns the terminal sink every logger writes to instead
// of os.Stderr directly.
func GetGlobalOutput() io.Writer {
	return stderrSink
}

// RedirectOutput sends terminal log output to w until the returned func is
// called. The dashboard uses it to keep log lines off the alternate screen.
func RedirectOutput(w io.Writer) (restore func()) {
	prev := stderrSink.swap(w)
	return func() { stderrSink.swap(prev) }
}
