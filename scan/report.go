package scan

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/hirosichen/beacon"
	"github.com/hirosichen/beacon/adv"
	"github.com/hirosichen/beacon/hexfmt"
)

// A Reporter renders advertisements as display lines: an identity line with
// the radio metrics, then one line per manufacturer data entry, then one per
// service data entry, in the order the event source delivered them. Apple
// entries are decoded as iBeacon when recognized; everything else is dumped
// as hex and ASCII.
//
// Lines are written to w as they are emitted and kept for Transcript.
type Reporter struct {
	mu    sync.Mutex
	w     io.Writer
	lines []string
}

// NewReporter ...
func NewReporter(w io.Writer) *Reporter {
	return &Reporter{w: w}
}

// Handle renders one advertisement. It implements beacon.AdvHandler.
func (r *Reporter) Handle(a beacon.Advertisement) {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", a.Addr())
	if n := a.LocalName(); len(n) > 0 {
		fmt.Fprintf(&b, " Name: %s,", n)
	}
	fmt.Fprintf(&b, " RSSI: %d", a.RSSI())
	if p, ok := a.TxPowerLevel(); ok {
		fmt.Fprintf(&b, ", TxPower: %d", p)
	}
	if svcs := a.Services(); len(svcs) > 0 {
		fmt.Fprintf(&b, ", Svcs: [%s]", svcList(svcs))
	}
	r.emit(b.String())

	for _, md := range a.ManufacturerData() {
		name := beacon.CompanyName(md.CompanyID)
		if md.CompanyID == beacon.CompanyApple {
			if ib, ok := adv.ParseIBeacon(md.Data); ok {
				r.emit(fmt.Sprintf("  %s iBeacon: uuid=%s major=%d minor=%d txPower=%d",
					name, ib.UUID, ib.Major, ib.Minor, ib.TxPower))
				continue
			}
			// Not an iBeacon frame; show it raw like any other vendor.
		}
		r.emit(fmt.Sprintf("  %s: %s |%s|", name, hexfmt.Hex(md.Data), hexfmt.ASCII(md.Data)))
	}
	for _, sd := range a.ServiceData() {
		r.emit(fmt.Sprintf("  svc %s: %s |%s|", sd.UUID, hexfmt.Hex(sd.Data), hexfmt.ASCII(sd.Data)))
	}
}

// Stopped emits the stop confirmation line. It matches the
// Options.OnStop signature.
func (r *Reporter) Stopped(reason error) {
	switch reason {
	case nil:
		r.emit("scan stopped")
	case context.DeadlineExceeded:
		r.emit("scan stopped (timeout)")
	default:
		r.emit(fmt.Sprintf("scan stopped (%s)", reason))
	}
}

// Infof emits a free-form informational line.
func (r *Reporter) Infof(format string, args ...interface{}) {
	r.emit(fmt.Sprintf(format, args...))
}

// Lines returns a copy of every line emitted so far.
func (r *Reporter) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.lines...)
}

// Transcript returns every line emitted so far, joined by line breaks.
// This is the export surface.
func (r *Reporter) Transcript() string {
	return strings.Join(r.Lines(), "\n")
}

func (r *Reporter) emit(line string) {
	r.mu.Lock()
	r.lines = append(r.lines, line)
	w := r.w
	r.mu.Unlock()
	if w != nil {
		fmt.Fprintln(w, line)
	}
}

func svcList(svcs []beacon.UUID) string {
	var b strings.Builder
	for i, u := range svcs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(u.String())
		if n := beacon.Name(u); n != "" {
			fmt.Fprintf(&b, " (%s)", n)
		}
	}
	return b.String()
}
