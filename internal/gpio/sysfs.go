package gpio

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// SysfsLine drives a GPIO pin through the Linux sysfs interface
// (/sys/class/gpio). Export is idempotent: an already-exported pin is
// reused.
type SysfsLine struct {
	pin  int
	base string // overridable for tests
}

// NewSysfsLine returns a line for the given kernel GPIO number.
func NewSysfsLine(pin int) *SysfsLine {
	return &SysfsLine{pin: pin, base: "/sys/class/gpio"}
}

func (l *SysfsLine) dir() string {
	return filepath.Join(l.base, fmt.Sprintf("gpio%d", l.pin))
}

func (l *SysfsLine) ConfigureOutput() error {
	if _, err := os.Stat(l.dir()); os.IsNotExist(err) {
		if err := os.WriteFile(filepath.Join(l.base, "export"), []byte(strconv.Itoa(l.pin)), 0o644); err != nil {
			return fmt.Errorf("export gpio%d: %w", l.pin, err)
		}
		// The kernel needs a moment to create the attribute files.
		time.Sleep(50 * time.Millisecond)
	}
	if err := os.WriteFile(filepath.Join(l.dir(), "direction"), []byte("out"), 0o644); err != nil {
		return fmt.Errorf("set gpio%d direction: %w", l.pin, err)
	}
	return nil
}

func (l *SysfsLine) Set(high bool) error {
	v := []byte("0")
	if high {
		v = []byte("1")
	}
	if err := os.WriteFile(filepath.Join(l.dir(), "value"), v, 0o644); err != nil {
		return fmt.Errorf("set gpio%d value: %w", l.pin, err)
	}
	return nil
}
