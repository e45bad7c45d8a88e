package beacon

import "fmt"

// CompanyApple is the Bluetooth SIG company identifier assigned to Apple,
// the identifier iBeacon advertisements are keyed under.
const CompanyApple uint16 = 0x004C

// CompanyName returns a human-readable name for a Bluetooth SIG company
// identifier. Unknown identifiers yield a label embedding the numeric value,
// so the function is total over the uint16 domain.
// See: https://www.bluetooth.com/specifications/assigned-numbers/
func CompanyName(id uint16) string {
	if name, ok := knownCompany[id]; ok {
		return name
	}
	return fmt.Sprintf("Unknown Company (0x%04x)", id)
}

var knownCompany = map[uint16]string{
	0x0002: "Intel",
	0x0006: "Microsoft",
	0x000A: "Qualcomm",
	0x000D: "Texas Instruments",
	0x000F: "Broadcom",
	0x0047: "Plantronics",
	0x004C: "Apple, Inc.",
	0x0059: "Nordic Semiconductor",
	0x0060: "Motorola",
	0x0075: "Samsung Electronics",
	0x0078: "Nike",
	0x0087: "Bose",
	0x00AA: "Realtek",
	0x00D2: "LG Electronics",
	0x00E0: "Google",
	0x012D: "Sony",
	0x0131: "JBL",
	0x0154: "Belkin",
	0x0157: "Huawei",
	0x0171: "Amazon.com Services",
	0x01DA: "Jabra",
	0x0246: "Logitech",
	0x0269: "Oura Health",
	0x02A9: "Anker",
	0x02FF: "Tile",
	0x0310: "Xiaomi",
	0x038F: "Garmin",
	0x0397: "TP-Link",
	0x03DA: "Fitbit",
	0x0473: "Withings",
	0x0499: "Ruuvi Innovations",
	0x048F: "Wyze Labs",
	0x015D: "Espressif",
	0x0672: "Shenzhen Goodix",
	0x0822: "Tuya",
	0x0958: "IKEA of Sweden",
	0x0988: "Sonos",
	0x09A7: "Ring",
}
