package scan

import (
	"context"
	"strings"
	"testing"

	"github.com/hirosichen/beacon"
)

type fakeAdv struct {
	name  string
	rssi  int
	tx    int
	hasTx bool
	svcs  []beacon.UUID
	mfr   []beacon.ManufacturerData
	svc   []beacon.ServiceData
	addr  string
}

func (a fakeAdv) LocalName() string                           { return a.name }
func (a fakeAdv) ManufacturerData() []beacon.ManufacturerData { return a.mfr }
func (a fakeAdv) ServiceData() []beacon.ServiceData           { return a.svc }
func (a fakeAdv) Services() []beacon.UUID                     { return a.svcs }
func (a fakeAdv) TxPowerLevel() (int, bool)                   { return a.tx, a.hasTx }
func (a fakeAdv) RSSI() int                                   { return a.rssi }
func (a fakeAdv) Addr() beacon.Addr                           { return beacon.NewAddr(a.addr) }

var ibeaconPayload = []byte{
	0x02, 0x15,
	0xE2, 0xC5, 0x6D, 0xB5, 0xDF, 0xFB, 0x48, 0xD2,
	0xB0, 0x60, 0xD0, 0xF5, 0xA7, 0x10, 0x96, 0xE0,
	0x01, 0x02,
	0x00, 0x03,
	0xC5,
}

// One Apple iBeacon entry plus one unknown-vendor entry yields one
// structured block and one raw block, in delivery order.
func TestReporterMixedEntries(t *testing.T) {
	r := NewReporter(nil)
	r.Handle(fakeAdv{
		addr: "11:22:33:44:55:66",
		name: "Gopher",
		rssi: -42,
		mfr: []beacon.ManufacturerData{
			{CompanyID: beacon.CompanyApple, Data: ibeaconPayload},
			{CompanyID: 0x1234, Data: []byte{0xde, 0xad, 0xbe, 0xef}},
		},
	})

	lines := r.Lines()
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3:\n%s", len(lines), strings.Join(lines, "\n"))
	}
	if !strings.Contains(lines[0], "[11:22:33:44:55:66]") || !strings.Contains(lines[0], "Name: Gopher") || !strings.Contains(lines[0], "RSSI: -42") {
		t.Errorf("identity line = %q", lines[0])
	}
	if !strings.Contains(lines[1], "iBeacon") ||
		!strings.Contains(lines[1], "uuid=e2c56db5-dffb-48d2-b060-d0f5a71096e0") ||
		!strings.Contains(lines[1], "major=258") ||
		!strings.Contains(lines[1], "minor=3") ||
		!strings.Contains(lines[1], "txPower=-59") {
		t.Errorf("iBeacon line = %q", lines[1])
	}
	if strings.Contains(lines[2], "iBeacon") || !strings.Contains(lines[2], "de ad be ef") {
		t.Errorf("raw line = %q", lines[2])
	}
	if !strings.Contains(lines[2], "0x1234") {
		t.Errorf("raw line %q does not label the unknown company", lines[2])
	}
}

// An Apple entry that is not an iBeacon falls back to the raw dump instead
// of being dropped.
func TestReporterAppleFallback(t *testing.T) {
	r := NewReporter(nil)
	r.Handle(fakeAdv{
		addr: "aa:bb:cc:dd:ee:ff",
		rssi: -67,
		mfr: []beacon.ManufacturerData{
			{CompanyID: beacon.CompanyApple, Data: []byte{0x10, 0x05, 0x0b}},
		},
	})

	lines := r.Lines()
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2", len(lines))
	}
	if strings.Contains(lines[1], "iBeacon") {
		t.Errorf("unrecognized Apple payload rendered as iBeacon: %q", lines[1])
	}
	if !strings.Contains(lines[1], "Apple") || !strings.Contains(lines[1], "10 05 0b") {
		t.Errorf("fallback line = %q", lines[1])
	}
}

// Manufacturer entries come before service data entries.
func TestReporterEmissionOrder(t *testing.T) {
	r := NewReporter(nil)
	r.Handle(fakeAdv{
		addr: "aa:bb:cc:dd:ee:ff",
		rssi: -58,
		mfr: []beacon.ManufacturerData{
			{CompanyID: 0x0059, Data: []byte{0x01}},
		},
		svc: []beacon.ServiceData{
			{UUID: beacon.UUID16(0x180F), Data: []byte{0x64}},
		},
	})

	lines := r.Lines()
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3", len(lines))
	}
	if !strings.Contains(lines[1], "Nordic") {
		t.Errorf("manufacturer line = %q", lines[1])
	}
	if !strings.Contains(lines[2], "svc 180f") || !strings.Contains(lines[2], "64 |d|") {
		t.Errorf("service data line = %q", lines[2])
	}
}

func TestReporterIdentityLine(t *testing.T) {
	r := NewReporter(nil)
	tx := 4
	r.Handle(fakeAdv{
		addr:  "aa:bb:cc:dd:ee:ff",
		rssi:  -30,
		tx:    tx,
		hasTx: true,
		svcs:  []beacon.UUID{beacon.UUID16(0x180F)},
	})

	lines := r.Lines()
	if len(lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(lines))
	}
	for _, want := range []string{"TxPower: 4", "180f (Battery Service)"} {
		if !strings.Contains(lines[0], want) {
			t.Errorf("identity line %q missing %q", lines[0], want)
		}
	}
}

func TestReporterStopped(t *testing.T) {
	r := NewReporter(nil)
	r.Stopped(context.DeadlineExceeded)
	r.Stopped(nil)
	lines := r.Lines()
	if len(lines) != 2 || lines[0] != "scan stopped (timeout)" || lines[1] != "scan stopped" {
		t.Errorf("stop lines = %q", lines)
	}
}

func TestReporterTranscript(t *testing.T) {
	r := NewReporter(nil)
	r.Infof("one")
	r.Infof("two")
	if got := r.Transcript(); got != "one\ntwo" {
		t.Errorf("Transcript() = %q", got)
	}
}
