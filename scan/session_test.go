package scan

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"

	"github.com/hirosichen/beacon"
	"github.com/hirosichen/beacon/adv"
	"github.com/hirosichen/beacon/synth"
)

func ibeaconEvent() synth.Event {
	u := beacon.MustParse("E2C56DB5-DFFB-48D2-B060-D0F5A71096E0")
	return synth.Event{
		Addr: "11:22:33:44:55:66",
		RSSI: -42,
		Data: adv.IBeaconPacket(u, 258, 3, -59),
	}
}

func waitDone(t *testing.T, s *Session) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("session did not stop in time")
	}
}

// Starting a new session tears the previous subscription down first: an
// advertisement is never delivered to a stale handler.
func TestManagerRestartNoDuplicateHandler(t *testing.T) {
	dev := synth.NewDevice()
	m := NewManager(dev)

	var a, b int32
	s1, err := m.Start(context.Background(), Options{
		Handler: func(beacon.Advertisement) { atomic.AddInt32(&a, 1) },
	})
	if err != nil {
		t.Fatal(err)
	}
	s2, err := m.Start(context.Background(), Options{
		Handler: func(beacon.Advertisement) { atomic.AddInt32(&b, 1) },
	})
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, s1)

	dev.Deliver(ibeaconEvent())
	if got := atomic.LoadInt32(&a); got != 0 {
		t.Errorf("stale handler fired %d times", got)
	}
	if got := atomic.LoadInt32(&b); got != 1 {
		t.Errorf("active handler fired %d times, want 1", got)
	}
	s2.Stop()
}

// The timeout path emits the stop notification and drops events racing past
// teardown.
func TestSessionTimeout(t *testing.T) {
	dev := synth.NewDevice()
	m := NewManager(dev)

	var handled int32
	stopped := make(chan error, 1)
	s, err := m.Start(context.Background(), Options{
		Handler: func(beacon.Advertisement) { atomic.AddInt32(&handled, 1) },
		Timeout: 50 * time.Millisecond,
		OnStop:  func(reason error) { stopped <- reason },
	})
	if err != nil {
		t.Fatal(err)
	}
	waitDone(t, s)

	select {
	case reason := <-stopped:
		if reason != context.DeadlineExceeded {
			t.Errorf("stop reason = %v, want deadline exceeded", reason)
		}
	case <-time.After(time.Second):
		t.Fatalf("OnStop not invoked")
	}

	dev.Deliver(ibeaconEvent())
	if got := atomic.LoadInt32(&handled); got != 0 {
		t.Errorf("late event processed %d times", got)
	}
}

func TestSessionManualStop(t *testing.T) {
	dev := synth.NewDevice()
	m := NewManager(dev)

	var reasons []error
	s, err := m.Start(context.Background(), Options{
		Handler: func(beacon.Advertisement) {},
		OnStop:  func(reason error) { reasons = append(reasons, reason) },
	})
	if err != nil {
		t.Fatal(err)
	}
	s.Stop()
	s.Stop() // idempotent
	waitDone(t, s)

	if len(reasons) != 1 || reasons[0] != nil {
		t.Errorf("OnStop calls = %v, want one nil", reasons)
	}
}

func TestSessionFilter(t *testing.T) {
	dev := synth.NewDevice()
	m := NewManager(dev)

	var handled int32
	s, err := m.Start(context.Background(), Options{
		Filter:  beacon.FilterName("Gopher"),
		Handler: func(beacon.Advertisement) { atomic.AddInt32(&handled, 1) },
	})
	if err != nil {
		t.Fatal(err)
	}

	dev.Deliver(ibeaconEvent()) // no name, filtered out
	dev.Deliver(synth.Event{
		Addr: "aa:bb:cc:dd:ee:01",
		RSSI: -50,
		Data: adv.Packet(nil).AppendCompleteName("Gopher"),
	})
	if got := atomic.LoadInt32(&handled); got != 1 {
		t.Errorf("handler fired %d times, want 1", got)
	}
	s.Stop()
}

// failingDevice rejects Scan, as a platform does when permission is denied.
type failingDevice struct{}

func (failingDevice) SetAdvHandler(beacon.AdvHandler) error { return nil }
func (failingDevice) Scan(bool) error                       { return errors.New("operation not permitted") }
func (failingDevice) StopScanning() error                   { return nil }
func (failingDevice) Close() error                          { return nil }
func (failingDevice) Addr() beacon.Addr                     { return beacon.NewAddr("fail0") }

func TestManagerStartRejected(t *testing.T) {
	m := NewManager(failingDevice{})
	if _, err := m.Start(context.Background(), Options{
		Handler: func(beacon.Advertisement) {},
	}); err == nil {
		t.Fatalf("Start succeeded against a rejecting device")
	}
	// State reverted to "not scanning"; Stop must be a no-op.
	m.Stop()
}
