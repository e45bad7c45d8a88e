package beacon

import "strings"

// Addr identifies the device that sent an advertisement. It's a MAC address
// on Linux; other platforms may assign an opaque identifier instead, so it
// must not be treated as a stable hardware address.
type Addr interface {
	String() string
}

// NewAddr creates an Addr from string.
func NewAddr(s string) Addr {
	return addr(strings.ToLower(s))
}

type addr string

func (a addr) String() string {
	return string(a)
}
