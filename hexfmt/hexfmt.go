// Package hexfmt renders byte buffers for human inspection: a hexadecimal
// view and a best-effort printable ASCII view. Neither view can fail.
package hexfmt

import "strings"

const hextable = "0123456789abcdef"

// Hex returns b as space-separated two-digit lowercase hex values,
// one per byte, in buffer order.
func Hex(b []byte) string {
	if len(b) == 0 {
		return ""
	}
	var s strings.Builder
	s.Grow(3*len(b) - 1)
	for i, c := range b {
		if i > 0 {
			s.WriteByte(' ')
		}
		s.WriteByte(hextable[c>>4])
		s.WriteByte(hextable[c&0x0f])
	}
	return s.String()
}

// ASCII returns a lossy single-byte character rendering of b. Bytes outside
// the printable ASCII range are substituted with '.'.
func ASCII(b []byte) string {
	var s strings.Builder
	s.Grow(len(b))
	for _, c := range b {
		if c >= 0x20 && c <= 0x7e {
			s.WriteByte(c)
		} else {
			s.WriteByte('.')
		}
	}
	return s.String()
}
