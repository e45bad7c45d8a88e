package beacon

// A Device is a source of advertisement events. Implementations deliver
// advertisements to the installed handler one at a time; handlers must not
// block and must not retain the advertisement.
type Device interface {
	// SetAdvHandler sets the handler that receives advertisements.
	// A nil handler detaches the current one.
	SetAdvHandler(h AdvHandler) error

	// Scan starts scanning. Duplicated advertisements will be filtered out
	// if allowDup is set to false.
	Scan(allowDup bool) error

	// StopScanning stops scanning.
	StopScanning() error

	// Close releases the device. Any active scan is stopped first.
	Close() error

	// Addr returns the device address.
	Addr() Addr
}
