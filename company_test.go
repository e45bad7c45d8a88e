package beacon

import (
	"fmt"
	"strings"
	"testing"
)

func TestCompanyNameKnown(t *testing.T) {
	cases := []struct {
		id   uint16
		want string
	}{
		{0x004C, "Apple, Inc."},
		{0x0006, "Microsoft"},
		{0x00E0, "Google"},
	}
	for _, c := range cases {
		if got := CompanyName(c.id); got != c.want {
			t.Errorf("CompanyName(0x%04x) = %q, want %q", c.id, got, c.want)
		}
	}
}

// CompanyName is total: every unknown identifier yields a label that embeds
// the numeric value.
func TestCompanyNameUnknown(t *testing.T) {
	for _, id := range []uint16{0x0000, 0x0001, 0x1234, 0xFFFE, 0xFFFF} {
		if _, known := knownCompany[id]; known {
			continue
		}
		got := CompanyName(id)
		if !strings.Contains(got, fmt.Sprintf("0x%04x", id)) {
			t.Errorf("CompanyName(0x%04x) = %q, does not embed the identifier", id, got)
		}
	}
}
