package gpio

import "sync"

// MemLine is an in-memory Line for host runs and tests. It records every
// level transition so tests can assert on the drive sequence.
type MemLine struct {
	mu         sync.Mutex
	configured bool
	level      bool
	history    []bool
}

// NewMemLine returns an unconfigured in-memory line.
func NewMemLine() *MemLine {
	return &MemLine{}
}

func (l *MemLine) ConfigureOutput() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.configured = true
	return nil
}

func (l *MemLine) Set(high bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = high
	l.history = append(l.history, high)
	return nil
}

// Level returns the current line level.
func (l *MemLine) Level() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.level
}

// History returns every level ever driven, in order.
func (l *MemLine) History() []bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]bool, len(l.history))
	copy(out, l.history)
	return out
}
