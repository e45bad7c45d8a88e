package synth

import (
	"time"

	"github.com/hirosichen/beacon"
	"github.com/hirosichen/beacon/adv"
)

// DemoScript returns a small mixed traffic sample: an iBeacon, a non-iBeacon
// Apple frame, an unknown vendor frame and a service data broadcast.
func DemoScript() []Event {
	ibeacon := adv.IBeaconPacket(
		beacon.MustParse("E2C56DB5-DFFB-48D2-B060-D0F5A71096E0"), 258, 3, -59)

	apple := adv.Packet(nil).
		AppendFlags(adv.FlagGeneralDiscoverable | adv.FlagLEOnly).
		AppendManufacturerData(beacon.CompanyApple, []byte{0x10, 0x05, 0x0b, 0x1c, 0x6e, 0x14, 0x3a})

	vendor := adv.Packet(nil).
		AppendCompleteName("Gopher").
		AppendTxPower(-4).
		AppendManufacturerData(0x1234, []byte{0xde, 0xad, 0xbe, 0xef})

	battery := adv.Packet(nil).
		AppendCompleteName("Gopher").
		AppendAllUUID(beacon.UUID16(0x180F)).
		AppendServiceData16(0x180F, []byte{0x64})

	return []Event{
		{Delay: 100 * time.Millisecond, Addr: "11:22:33:44:55:66", RSSI: -42, Data: ibeacon},
		{Delay: 200 * time.Millisecond, Addr: "aa:bb:cc:dd:ee:01", RSSI: -67, Data: apple},
		{Delay: 200 * time.Millisecond, Addr: "aa:bb:cc:dd:ee:02", RSSI: -71, Data: vendor},
		{Delay: 200 * time.Millisecond, Addr: "aa:bb:cc:dd:ee:03", RSSI: -58, Data: battery},
		{Delay: 500 * time.Millisecond, Addr: "11:22:33:44:55:66", RSSI: -44, Data: ibeacon},
	}
}
