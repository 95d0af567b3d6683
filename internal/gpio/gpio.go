// Package gpio abstracts the binary output line the relay hangs off.
// Backends: Linux sysfs for real hardware, an in-memory line for host
// runs and tests.
package gpio

// Line is a single digital output line.
type Line interface {
	// ConfigureOutput claims the line and sets its direction to output.
	ConfigureOutput() error
	// Set drives the line high (true) or low (false).
	Set(high bool) error
}
