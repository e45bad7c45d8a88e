// Package bluez implements the beacon.Device event source on top of the
// BlueZ D-Bus API (org.bluez.Adapter1 discovery plus org.bluez.Device1
// property signals).
package bluez

import (
	"sort"
	"sync"

	"github.com/godbus/dbus/v5"
	"github.com/mgutz/logxi/v1"
	"github.com/pkg/errors"

	"github.com/hirosichen/beacon"
)

var logger = log.New("bluez")

const (
	bluezBus     = "org.bluez"
	adapterIface = "org.bluez.Adapter1"
	deviceIface  = "org.bluez.Device1"

	// Positions of the fields within the D-Bus signal bodies.
	sigChangedIface = 0
	sigChangedProps = 1
	sigAddedPath    = 0
	sigAddedIfaces  = 1
)

var (
	matchInterfacesAdded = []dbus.MatchOption{
		dbus.WithMatchInterface("org.freedesktop.DBus.ObjectManager"),
		dbus.WithMatchMember("InterfacesAdded"),
	}
	matchPropertiesChanged = []dbus.MatchOption{
		dbus.WithMatchInterface("org.freedesktop.DBus.Properties"),
		dbus.WithMatchMember("PropertiesChanged"),
		dbus.WithMatchArg(sigChangedIface, deviceIface),
	}
)

// Device is a BlueZ-backed advertisement event source.
type Device struct {
	id      string
	conn    *dbus.Conn
	adapter dbus.BusObject
	addr    string

	mu       sync.Mutex
	handler  beacon.AdvHandler
	scanning bool
	sigCh    chan *dbus.Signal
	quit     chan struct{}
	wg       sync.WaitGroup
	cache    map[dbus.ObjectPath]*deviceEntry
}

// NewDevice opens the named BlueZ adapter (e.g. "hci0"). It fails up front
// when the system bus or the adapter is unavailable, so callers can report
// the missing scan facility before offering a scan.
func NewDevice(id string) (*Device, error) {
	if id == "" {
		id = "hci0"
	}
	conn, err := dbus.SystemBus()
	if err != nil {
		return nil, errors.Wrap(err, "can't connect to system bus")
	}
	d := &Device{
		id:      id,
		conn:    conn,
		adapter: conn.Object(bluezBus, dbus.ObjectPath("/org/bluez/"+id)),
		cache:   make(map[dbus.ObjectPath]*deviceEntry),
	}
	v, err := d.adapter.GetProperty(adapterIface + ".Address")
	if err != nil {
		if dberr, ok := err.(dbus.Error); ok && dberr.Name == "org.freedesktop.DBus.Error.UnknownObject" {
			return nil, errors.Errorf("adapter %s does not exist", id)
		}
		return nil, errors.Wrap(err, "can't reach BlueZ adapter")
	}
	if err := v.Store(&d.addr); err != nil {
		return nil, errors.Wrap(err, "unexpected adapter address type")
	}
	logger.Info("adapter opened", "id", id, "addr", d.addr)
	return d, nil
}

// SetAdvHandler ...
func (d *Device) SetAdvHandler(h beacon.AdvHandler) error {
	d.mu.Lock()
	d.handler = h
	d.mu.Unlock()
	return nil
}

// Scan subscribes to device signals and starts BlueZ discovery.
func (d *Device) Scan(allowDup bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.scanning {
		return errors.New("bluez: already scanning")
	}

	if err := d.conn.AddMatchSignal(matchInterfacesAdded...); err != nil {
		return errors.Wrap(err, "can't match InterfacesAdded")
	}
	if err := d.conn.AddMatchSignal(matchPropertiesChanged...); err != nil {
		d.conn.RemoveMatchSignal(matchInterfacesAdded...)
		return errors.Wrap(err, "can't match PropertiesChanged")
	}

	filter := map[string]dbus.Variant{
		"Transport":     dbus.MakeVariant("le"),
		"DuplicateData": dbus.MakeVariant(allowDup),
	}
	if call := d.adapter.Call(adapterIface+".SetDiscoveryFilter", 0, filter); call.Err != nil {
		logger.Warn("can't set discovery filter", "err", call.Err.Error())
	}
	if call := d.adapter.Call(adapterIface+".StartDiscovery", 0); call.Err != nil {
		d.conn.RemoveMatchSignal(matchInterfacesAdded...)
		d.conn.RemoveMatchSignal(matchPropertiesChanged...)
		return errors.Wrap(call.Err, "can't start discovery")
	}

	d.scanning = true
	d.sigCh = make(chan *dbus.Signal, 64)
	d.quit = make(chan struct{})
	d.conn.Signal(d.sigCh)

	d.wg.Add(1)
	go d.loop(d.sigCh, d.quit)
	return nil
}

// StopScanning stops discovery and detaches from the bus signals.
func (d *Device) StopScanning() error {
	d.mu.Lock()
	if !d.scanning {
		d.mu.Unlock()
		return nil
	}
	d.scanning = false
	close(d.quit)
	d.conn.RemoveSignal(d.sigCh)
	d.mu.Unlock()
	d.wg.Wait()

	d.conn.RemoveMatchSignal(matchInterfacesAdded...)
	d.conn.RemoveMatchSignal(matchPropertiesChanged...)
	if call := d.adapter.Call(adapterIface+".StopDiscovery", 0); call.Err != nil {
		return errors.Wrap(call.Err, "can't stop discovery")
	}
	return nil
}

// Close ...
func (d *Device) Close() error {
	d.StopScanning()
	return d.conn.Close()
}

// Addr returns the adapter's own address.
func (d *Device) Addr() beacon.Addr {
	return beacon.NewAddr(d.addr)
}

func (d *Device) loop(sigCh chan *dbus.Signal, quit chan struct{}) {
	defer d.wg.Done()
	for {
		select {
		case <-quit:
			return
		case sig, ok := <-sigCh:
			if !ok {
				return
			}
			d.handleSignal(sig)
		}
	}
}

func (d *Device) handleSignal(sig *dbus.Signal) {
	switch sig.Name {
	case "org.freedesktop.DBus.ObjectManager.InterfacesAdded":
		if len(sig.Body) <= sigAddedIfaces {
			return
		}
		path, ok := sig.Body[sigAddedPath].(dbus.ObjectPath)
		if !ok {
			return
		}
		ifaces, ok := sig.Body[sigAddedIfaces].(map[string]map[string]dbus.Variant)
		if !ok {
			return
		}
		props, ok := ifaces[deviceIface]
		if !ok {
			return
		}
		d.update(path, props)
	case "org.freedesktop.DBus.Properties.PropertiesChanged":
		if len(sig.Body) <= sigChangedProps {
			return
		}
		iface, ok := sig.Body[sigChangedIface].(string)
		if !ok || iface != deviceIface {
			return
		}
		props, ok := sig.Body[sigChangedProps].(map[string]dbus.Variant)
		if !ok {
			return
		}
		d.update(sig.Path, props)
	}
}

// update merges changed properties into the per-device cache and delivers
// the resulting advertisement snapshot.
func (d *Device) update(path dbus.ObjectPath, props map[string]dbus.Variant) {
	d.mu.Lock()
	e, ok := d.cache[path]
	if !ok {
		e = &deviceEntry{}
		d.cache[path] = e
	}
	e.merge(props)
	a := e.snapshot()
	h := d.handler
	d.mu.Unlock()

	if h == nil || a.addr == "" {
		return
	}
	h(a)
}

// deviceEntry accumulates org.bluez.Device1 properties across signals;
// PropertiesChanged only carries the fields that changed.
type deviceEntry struct {
	addr     string
	name     string
	rssi     int
	txPower  int
	hasTx    bool
	services []beacon.UUID
	mfr      []beacon.ManufacturerData
	svc      []beacon.ServiceData
}

func (e *deviceEntry) merge(props map[string]dbus.Variant) {
	for name, v := range props {
		switch name {
		case "Address":
			if s, ok := v.Value().(string); ok {
				e.addr = s
			}
		case "Name":
			if s, ok := v.Value().(string); ok {
				e.name = s
			}
		case "Alias":
			if s, ok := v.Value().(string); ok && e.name == "" {
				e.name = s
			}
		case "RSSI":
			if r, ok := v.Value().(int16); ok {
				e.rssi = int(r)
			}
		case "TxPower":
			if t, ok := v.Value().(int16); ok {
				e.txPower = int(t)
				e.hasTx = true
			}
		case "UUIDs":
			if ss, ok := v.Value().([]string); ok {
				e.services = e.services[:0]
				for _, s := range ss {
					if u, err := beacon.Parse(s); err == nil {
						e.services = append(e.services, u)
					}
				}
			}
		case "ManufacturerData":
			if m, ok := v.Value().(map[uint16]dbus.Variant); ok {
				e.mfr = manufacturerList(m)
			}
		case "ServiceData":
			if m, ok := v.Value().(map[string]dbus.Variant); ok {
				e.svc = serviceList(m)
			}
		}
	}
}

// BlueZ hands the keyed payloads over as D-Bus dictionaries, which have no
// defined order; keys are sorted so the emitted lines are stable.
func manufacturerList(m map[uint16]dbus.Variant) []beacon.ManufacturerData {
	ids := make([]uint16, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]beacon.ManufacturerData, 0, len(ids))
	for _, id := range ids {
		if b, ok := m[id].Value().([]byte); ok {
			out = append(out, beacon.ManufacturerData{CompanyID: id, Data: b})
		}
	}
	return out
}

func serviceList(m map[string]dbus.Variant) []beacon.ServiceData {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]beacon.ServiceData, 0, len(keys))
	for _, k := range keys {
		u, err := beacon.Parse(k)
		if err != nil {
			continue
		}
		if b, ok := m[k].Value().([]byte); ok {
			out = append(out, beacon.ServiceData{UUID: u, Data: b})
		}
	}
	return out
}

func (e *deviceEntry) snapshot() advertisement {
	return advertisement{
		addr:     e.addr,
		name:     e.name,
		rssi:     e.rssi,
		txPower:  e.txPower,
		hasTx:    e.hasTx,
		services: append([]beacon.UUID(nil), e.services...),
		mfr:      append([]beacon.ManufacturerData(nil), e.mfr...),
		svc:      append([]beacon.ServiceData(nil), e.svc...),
	}
}

// advertisement is an immutable snapshot of one Device1 update.
type advertisement struct {
	addr     string
	name     string
	rssi     int
	txPower  int
	hasTx    bool
	services []beacon.UUID
	mfr      []beacon.ManufacturerData
	svc      []beacon.ServiceData
}

func (a advertisement) LocalName() string                           { return a.name }
func (a advertisement) ManufacturerData() []beacon.ManufacturerData { return a.mfr }
func (a advertisement) ServiceData() []beacon.ServiceData           { return a.svc }
func (a advertisement) Services() []beacon.UUID                     { return a.services }
func (a advertisement) TxPowerLevel() (int, bool)                   { return a.txPower, a.hasTx }
func (a advertisement) RSSI() int                                   { return a.rssi }
func (a advertisement) Addr() beacon.Addr                           { return beacon.NewAddr(a.addr) }
