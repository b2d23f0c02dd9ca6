package profiling

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Span is one timed operation. Spans started while another is open nest
// under it. Start returns nil while timing is off, and Stop on a nil Span
// does nothing, so callers can always write defer profiling.Start(x).Stop().
type Span struct {
	name     string
	parent   *Span
	start    time.Time
	elapsed  time.Duration
	stopped  bool
	children []*Span
}

var timings struct {
	mu sync.Mutex
	// root is nil while timing is disabled.
	root *Span
	// open is the innermost span that has not been stopped.
	open *Span
}

// Enable starts collecting spans. Calling it again keeps the spans collected
// so far.
func Enable() {
	timings.mu.Lock()
	defer timings.mu.Unlock()
	if timings.root != nil {
		return
	}
	timings.root = &Span{start: time.Now()}
	timings.open = timings.root
}

// Reset disables timing and drops every recorded span.
func Reset() {
	timings.mu.Lock()
	defer timings.mu.Unlock()
	timings.root = nil
	timings.open = nil
}

// Start opens a span under the innermost open one.
func Start(name string) *Span {
	timings.mu.Lock()
	defer timings.mu.Unlock()
	if timings.root == nil {
		return nil
	}
	s := &Span{name: name, parent: timings.open, start: time.Now()}
	timings.open.children = append(timings.open.children, s)
	timings.open = s
	return s
}

// Stop records the span's duration. A span stopped before its children stays
// in place; new spans keep nesting under the innermost span still open.
func (s *Span) Stop() {
	if s == nil {
		return
	}
	timings.mu.Lock()
	defer timings.mu.Unlock()
	if s.stopped {
		return
	}
	s.stopped = true
	s.elapsed = time.Since(s.start)

	if timings.open != s {
		return
	}
	for timings.open.parent != nil && timings.open.stopped {
		timings.open = timings.open.parent
	}
}

// Summarize writes the span tree with each span's share of the total run.
func Summarize(w io.Writer) {
	timings.mu.Lock()
	defer timings.mu.Unlock()
	if timings.root == nil {
		return
	}

	total := time.Since(timings.root.start)
	fmt.Fprintln(w, "\nTiming:")
	for _, child := range timings.root.children {
		child.write(w, 1, total)
	}
}

func (s *Span) write(w io.Writer, depth int, total time.Duration) {
	elapsed := s.elapsed
	if !s.stopped {
		elapsed = time.Since(s.start)
	}
	share := 0.0
	if total > 0 {
		share = float64(elapsed) / float64(total) * 100
	}
	fmt.Fprintf(w, "%s%-24s %10v %5.1f%%\n",
		strings.Repeat("  ", depth), s.name, elapsed.Round(100*time.Microsecond), share)
	for _, child := range s.children {
		child.write(w, depth+1, total)
	}
}
