// Package beacon discovers and decodes Bluetooth Low Energy advertisements,
// with structured decoding of the Apple iBeacon manufacturer format.
package beacon

// AdvHandler handles advertisement.
type AdvHandler func(a Advertisement)

// AdvFilter returns true if the advertisement matches specified condition.
type AdvFilter func(a Advertisement) bool

// Advertisement is a single received broadcast. It is only valid within the
// handler invocation that delivers it and must not be retained.
type Advertisement interface {
	LocalName() string
	ManufacturerData() []ManufacturerData
	ServiceData() []ServiceData
	Services() []UUID
	TxPowerLevel() (int, bool)

	RSSI() int
	Addr() Addr
}

// ManufacturerData is one company-keyed entry of an advertisement payload.
// The data format past the company identifier is vendor-defined.
type ManufacturerData struct {
	CompanyID uint16
	Data      []byte
}

// ServiceData ...
type ServiceData struct {
	UUID UUID
	Data []byte
}
