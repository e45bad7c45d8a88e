// Package synth provides a scripted advertisement source implementing
// beacon.Device, so the decoding pipeline can be exercised without a radio.
package synth

import (
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/hirosichen/beacon"
	"github.com/hirosichen/beacon/adv"
)

// An Event is one scripted advertisement. Delay is the pause before the
// event fires, relative to the previous one.
type Event struct {
	Delay time.Duration
	Addr  string
	RSSI  int
	Data  adv.Packet
}

// Device replays a script of advertisements to the installed handler.
// It implements beacon.Device.
type Device struct {
	mu       sync.Mutex
	handler  beacon.AdvHandler
	script   []Event
	scanning bool
	allowDup bool
	seen     map[string]bool
	quit     chan struct{}
	wg       sync.WaitGroup
}

// NewDevice creates a Device that will replay the given script once per
// Scan call.
func NewDevice(script ...Event) *Device {
	return &Device{script: script}
}

// SetAdvHandler ...
func (d *Device) SetAdvHandler(h beacon.AdvHandler) error {
	d.mu.Lock()
	d.handler = h
	d.mu.Unlock()
	return nil
}

// Scan starts replaying the script from the beginning.
func (d *Device) Scan(allowDup bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scanning {
		return errors.New("synth: already scanning")
	}
	d.scanning = true
	d.allowDup = allowDup
	d.seen = make(map[string]bool)
	d.quit = make(chan struct{})

	d.wg.Add(1)
	go d.replay(d.quit)
	return nil
}

// StopScanning stops the replay. Events not yet fired are discarded.
func (d *Device) StopScanning() error {
	d.mu.Lock()
	if !d.scanning {
		d.mu.Unlock()
		return nil
	}
	d.scanning = false
	close(d.quit)
	d.mu.Unlock()
	d.wg.Wait()
	return nil
}

// Close ...
func (d *Device) Close() error {
	return d.StopScanning()
}

// Addr ...
func (d *Device) Addr() beacon.Addr {
	return beacon.NewAddr("synth0")
}

// Deliver fires a single event immediately, bypassing the script. Intended
// for tests that need precise control over delivery timing.
func (d *Device) Deliver(e Event) {
	d.dispatch(e)
}

func (d *Device) replay(quit chan struct{}) {
	defer d.wg.Done()
	for _, e := range d.script {
		if e.Delay > 0 {
			select {
			case <-quit:
				return
			case <-time.After(e.Delay):
			}
		} else {
			select {
			case <-quit:
				return
			default:
			}
		}
		d.dispatch(e)
	}
}

func (d *Device) dispatch(e Event) {
	d.mu.Lock()
	h := d.handler
	if d.scanning && !d.allowDup {
		if d.seen[e.Addr] {
			d.mu.Unlock()
			return
		}
		d.seen[e.Addr] = true
	}
	d.mu.Unlock()
	if h != nil {
		h(advertisement{e: e})
	}
}

// advertisement adapts one Event to the beacon.Advertisement interface,
// parsing fields out of the raw advertising data on demand.
type advertisement struct {
	e Event
}

func (a advertisement) LocalName() string                          { return a.e.Data.LocalName() }
func (a advertisement) ManufacturerData() []beacon.ManufacturerData { return a.e.Data.ManufacturerData() }
func (a advertisement) ServiceData() []beacon.ServiceData          { return a.e.Data.ServiceData() }
func (a advertisement) Services() []beacon.UUID                    { return a.e.Data.UUIDs() }
func (a advertisement) TxPowerLevel() (int, bool)                  { return a.e.Data.TxPower() }
func (a advertisement) RSSI() int                                  { return a.e.RSSI }
func (a advertisement) Addr() beacon.Addr                          { return beacon.NewAddr(a.e.Addr) }
