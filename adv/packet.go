// Package adv parses and crafts BLE advertising data, including the Apple
// iBeacon manufacturer format.
package adv

import (
	"encoding/binary"

	"github.com/hirosichen/beacon"
)

// Packet is an utility to craft or parse advertising data.
// Refer to Supplement to Bluetooth Core Specification | CSSv6, Part A.
type Packet []byte

// Field returns the data of the first field of the specified type
// (excluding the initial length and type byte).
// It returns nil, if the specified field is not found.
func (p Packet) Field(typ byte) []byte {
	b := p
	for len(b) > 0 {
		if len(b) < 2 {
			return nil
		}
		l, t := b[0], b[1]
		if l == 0 || len(b) < int(1+l) {
			return nil
		}
		if t == typ {
			return b[2 : 1+l]
		}
		b = b[1+l:]
	}
	return nil
}

// fields returns the data of every field of the specified type, in packet
// order. A packet may legally carry more than one manufacturer data field.
func (p Packet) fields(typ byte) [][]byte {
	var f [][]byte
	b := p
	for len(b) > 0 {
		if len(b) < 2 {
			return f
		}
		l, t := b[0], b[1]
		if l == 0 || len(b) < int(1+l) {
			return f
		}
		if t == typ {
			f = append(f, b[2:1+l])
		}
		b = b[1+l:]
	}
	return f
}

// Flags ...
func (p Packet) Flags() (byte, bool) {
	b := p.Field(Flags)
	if len(b) < 1 {
		return 0, false
	}
	return b[0], true
}

// LocalName returns the complete local name, falling back to the shortened
// one.
func (p Packet) LocalName() string {
	if b := p.Field(CompleteName); b != nil {
		return string(b)
	}
	return string(p.Field(ShortName))
}

// TxPower ...
func (p Packet) TxPower() (int, bool) {
	b := p.Field(TxPower)
	if len(b) < 1 {
		return 0, false
	}
	return int(int8(b[0])), true
}

// UUIDs returns the advertised service UUIDs.
func (p Packet) UUIDs() []beacon.UUID {
	var u []beacon.UUID
	if b := p.Field(SomeUUID16); b != nil {
		u = uuidList(u, b, 2)
	}
	if b := p.Field(AllUUID16); b != nil {
		u = uuidList(u, b, 2)
	}
	if b := p.Field(SomeUUID32); b != nil {
		u = uuidList(u, b, 4)
	}
	if b := p.Field(AllUUID32); b != nil {
		u = uuidList(u, b, 4)
	}
	if b := p.Field(SomeUUID128); b != nil {
		u = uuidList(u, b, 16)
	}
	if b := p.Field(AllUUID128); b != nil {
		u = uuidList(u, b, 16)
	}
	return u
}

// ServiceData returns the service data entries, in packet order.
func (p Packet) ServiceData() []beacon.ServiceData {
	var s []beacon.ServiceData
	for _, b := range p.fields(ServiceData16) {
		s = serviceDataList(s, b, 2)
	}
	for _, b := range p.fields(ServiceData32) {
		s = serviceDataList(s, b, 4)
	}
	for _, b := range p.fields(ServiceData128) {
		s = serviceDataList(s, b, 16)
	}
	return s
}

// ManufacturerData returns the manufacturer data entries, in packet order.
// The leading 2-byte little-endian company identifier of each field becomes
// the entry key.
func (p Packet) ManufacturerData() []beacon.ManufacturerData {
	var m []beacon.ManufacturerData
	for _, b := range p.fields(ManufacturerData) {
		if len(b) < 2 {
			continue
		}
		m = append(m, beacon.ManufacturerData{
			CompanyID: binary.LittleEndian.Uint16(b),
			Data:      b[2:],
		})
	}
	return m
}

// AppendField appends a BLE advertising packet field.
func (p Packet) AppendField(typ byte, b []byte) Packet {
	p = append(p, byte(len(b)+1))
	p = append(p, typ)
	return append(p, b...)
}

// AppendFlags appends a flag field to the packet.
func (p Packet) AppendFlags(f byte) Packet {
	return p.AppendField(Flags, []byte{f})
}

// AppendShortName appends a shortened name field to the packet.
func (p Packet) AppendShortName(n string) Packet {
	return p.AppendField(ShortName, []byte(n))
}

// AppendCompleteName appends a complete name field to the packet.
func (p Packet) AppendCompleteName(n string) Packet {
	return p.AppendField(CompleteName, []byte(n))
}

// AppendTxPower appends a tx power level field to the packet.
func (p Packet) AppendTxPower(pwr int8) Packet {
	return p.AppendField(TxPower, []byte{uint8(pwr)})
}

// AppendManufacturerData appends a manufacturer data field to the packet.
func (p Packet) AppendManufacturerData(id uint16, b []byte) Packet {
	d := append([]byte{uint8(id), uint8(id >> 8)}, b...)
	return p.AppendField(ManufacturerData, d)
}

// AppendServiceData16 appends a 16-bit service data field to the packet.
func (p Packet) AppendServiceData16(id uint16, b []byte) Packet {
	d := append([]byte{uint8(id), uint8(id >> 8)}, b...)
	return p.AppendField(ServiceData16, d)
}

// AppendAllUUID appends an advertised service UUID to the packet.
func (p Packet) AppendAllUUID(u beacon.UUID) Packet {
	if u.Len() == 2 {
		return p.AppendField(AllUUID16, u)
	}
	if u.Len() == 4 {
		return p.AppendField(AllUUID32, u)
	}
	return p.AppendField(AllUUID128, u)
}

// Len ...
func (p Packet) Len() int {
	return len(p)
}

// Utility function for creating a list of uuids.
func uuidList(u []beacon.UUID, d []byte, w int) []beacon.UUID {
	for len(d) >= w {
		u = append(u, beacon.UUID(d[:w]))
		d = d[w:]
	}
	return u
}

func serviceDataList(sd []beacon.ServiceData, d []byte, w int) []beacon.ServiceData {
	if len(d) < w {
		return sd
	}
	data := make([]byte, len(d)-w)
	copy(data, d[w:])
	return append(sd, beacon.ServiceData{UUID: beacon.UUID(d[:w]), Data: data})
}
