package adv

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/hirosichen/beacon"
)

// iBeacon manufacturer payload layout, under Apple's company identifier:
//
//	byte 0      0x02 (type marker)
//	byte 1      0x15 (fixed length marker, 21 bytes follow)
//	bytes 2-17  proximity UUID, big endian
//	bytes 18-19 major, big endian
//	bytes 20-21 minor, big endian
//	byte 22     measured tx power at 1m, signed
const (
	iBeaconType   = 0x02
	iBeaconLength = 0x15
	iBeaconSize   = 23
)

// An IBeacon is a decoded iBeacon manufacturer payload.
type IBeacon struct {
	UUID    string // canonical 8-4-4-4-12 lowercase hex
	Major   uint16
	Minor   uint16
	TxPower int8 // dBm, measured at 1m
}

// ParseIBeacon decodes the iBeacon layout from a manufacturer data payload
// (company identifier already stripped). It reports false for any payload
// that is too short or does not carry the fixed markers; such payloads are
// presumed to be some other Apple format. Malformed input is never an error.
func ParseIBeacon(b []byte) (IBeacon, bool) {
	if len(b) < iBeaconSize {
		return IBeacon{}, false
	}
	if b[0] != iBeaconType || b[1] != iBeaconLength {
		return IBeacon{}, false
	}
	return IBeacon{
		UUID:    uuidString(b[2:18]),
		Major:   binary.BigEndian.Uint16(b[18:20]),
		Minor:   binary.BigEndian.Uint16(b[20:22]),
		TxPower: int8(b[22]),
	}, true
}

// uuidString renders 16 big-endian bytes in the standard hyphenated form.
func uuidString(b []byte) string {
	h := hex.EncodeToString(b)
	return h[:8] + "-" + h[8:12] + "-" + h[12:16] + "-" + h[16:20] + "-" + h[20:]
}

// IBeaconFromData returns an iBeacon advertisement with specified
// manufacturer data.
func IBeaconFromData(md []byte) Packet {
	if len(md) != iBeaconSize {
		return nil
	}
	p := Packet(make([]byte, 0, MaxEIRPacketLength))
	p = p.AppendFlags(FlagGeneralDiscoverable | FlagLEOnly)
	p = p.AppendManufacturerData(beacon.CompanyApple, md)
	return p
}

// IBeaconPacket returns an iBeacon advertisement with specified parameters.
func IBeaconPacket(u beacon.UUID, major, minor uint16, pwr int8) Packet {
	if u.Len() != 16 {
		return nil
	}
	md := make([]byte, iBeaconSize)
	md[0] = iBeaconType
	md[1] = iBeaconLength
	copy(md[2:], beacon.Reverse(u)) // big endian on the wire
	binary.BigEndian.PutUint16(md[18:], major)
	binary.BigEndian.PutUint16(md[20:], minor)
	md[22] = uint8(pwr)
	return IBeaconFromData(md)
}
