package beacon

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strings"
)

// A UUID is a BLE UUID. It is stored in little-endian byte order, the order
// used on the wire.
type UUID []byte

// UUID16 converts a uint16 (such as 0x180F) to a UUID.
func UUID16(i uint16) UUID {
	return UUID{byte(i), byte(i >> 8)}
}

// Parse parses a standard-format UUID string, such
// as "180F" or "E2C56DB5-DFFB-48D2-B060-D0F5A71096E0".
func Parse(s string) (UUID, error) {
	s = strings.Replace(s, "-", "", -1)
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	if err := lenErr(len(b)); err != nil {
		return nil, err
	}
	return UUID(Reverse(b)), nil
}

// MustParse parses a standard-format UUID string,
// like Parse, but panics in case of error.
func MustParse(s string) UUID {
	u, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return u
}

// lenErr returns an error if n is an invalid UUID length.
func lenErr(n int) error {
	switch n {
	case 2, 4, 16:
		return nil
	}
	return fmt.Errorf("UUIDs must have length 2, 4 or 16, got %d", n)
}

// Len returns the length of the UUID, in bytes.
func (u UUID) Len() int {
	return len(u)
}

// String hex-encodes a UUID.
func (u UUID) String() string {
	return fmt.Sprintf("%x", Reverse(u))
}

// Equal returns a boolean reporting whether v represent the same UUID as u.
func (u UUID) Equal(v UUID) bool {
	return bytes.Equal(u, v)
}

// Reverse returns a reversed copy of u.
func Reverse(u []byte) []byte {
	// Special-case 16 bit UUIDS for speed.
	l := len(u)
	if l == 2 {
		return []byte{u[1], u[0]}
	}
	b := make([]byte, l)
	for i := 0; i < l/2+1; i++ {
		b[i], b[l-i-1] = u[l-i-1], u[i]
	}
	return b
}

// Name returns the name of a known advertised service, or "" otherwise.
func Name(u UUID) string {
	return knownService[u.String()]
}

// A dictionary of known service names (keyed by service uuid).
var knownService = map[string]string{
	"1800": "Generic Access",
	"1801": "Generic Attribute",
	"1802": "Immediate Alert",
	"1803": "Link Loss",
	"1804": "Tx Power",
	"1805": "Current Time Service",
	"1808": "Glucose",
	"1809": "Health Thermometer",
	"180a": "Device Information",
	"180d": "Heart Rate",
	"180f": "Battery Service",
	"1810": "Blood Pressure",
	"1812": "Human Interface Device",
	"1813": "Scan Parameters",
	"1814": "Running Speed and Cadence",
	"1815": "Cycling Speed and Cadence",
	"fe9f": "Google",
	"fd6f": "Exposure Notification",
	"feaa": "Eddystone",
}
