package nodelist

import "strings"

// maxBaud codes of FDNODE.FDA, database revision 0 (FrontDoor 2.20).
var speedsRev0 = map[uint8]uint32{
	2: 300, 4: 1200, 5: 2400, 6: 4800, 10: 7200, 7: 9600, 11: 12000,
	12: 14400, 13: 16800, 14: 19200, 15: 38400, 16: 57600, 17: 64000,
}

// maxBaud codes for revision 1 and later.
var speedsRev1 = map[uint8]uint32{
	1: 300, 2: 1200, 3: 2400, 4: 4800, 5: 9600, 6: 14400, 7: 16800,
	8: 19200, 9: 21600, 10: 28800, 11: 33600, 12: 38400, 13: 57600,
	14: 64000, 15: 76800, 16: 115200, 17: 128000, 18: 12000, 19: 24000,
	20: 31200, 21: 256000,
}

// SpeedFromFDA maps a maxbaud code to bits per second. Unknown codes give
// 0 under revision 0 and 14400 otherwise.
func SpeedFromFDA(revision int, maxBaud uint8) uint32 {
	if revision == 0 {
		return speedsRev0[maxBaud]
	}
	if s, ok := speedsRev1[maxBaud]; ok {
		return s
	}
	return 14400
}

// MaxBaudFor is the inverse of SpeedFromFDA; speeds without a code map to
// the nearest lower one.
func MaxBaudFor(revision int, speed uint32) uint8 {
	table := speedsRev1
	if revision == 0 {
		table = speedsRev0
	}
	var best uint8
	var bestSpeed uint32
	for code, s := range table {
		if s <= speed && (s > bestSpeed || (s == bestSpeed && code < best)) {
			best, bestSpeed = code, s
		}
	}
	return best
}

// Capability flag names by bit position.
var (
	flagsRev0 = []string{
		"CM", "MO", "LO", "MNP", "V32", "V32B", "V42", "V42B", "V33", "V34",
		"ZYX", "HST", "H96", "H16", "FAX", "XA", "XB", "XC", "XP", "XR", "XW", "XX",
		"UISDNA", "UISDNB", "UISDNC", "PEP", "MAX",
	}
	flagsRev1 = []string{
		"CM", "MO", "LO", "MN", "V32", "V32B", "V42", "V42B", "V34",
		"ZYX", "HST", "FAX", "X2C", "X2S", "XA", "XB", "XC", "XP", "XR", "XW", "XX",
		"X75", "V110L", "V110H", "V120L", "V120H",
	}
)

func flagTable(revision int) []string {
	if revision == 0 {
		return flagsRev0
	}
	return flagsRev1
}

// FlagsFromFDA builds the comma separated flags string of an FDA record.
func FlagsFromFDA(revision int, capability uint32) string {
	var out []string
	for bit, name := range flagTable(revision) {
		if capability&(1<<uint(bit)) != 0 {
			out = append(out, name)
		}
	}
	return strings.Join(out, ",")
}

// CapabilityFor packs nodelist flags into capability bits. Flags without a
// bit are ignored.
func CapabilityFor(revision int, flags string) uint32 {
	var c uint32
	table := flagTable(revision)
	for _, f := range strings.Split(flags, ",") {
		f = strings.ToUpper(strings.TrimSpace(f))
		for bit, name := range table {
			if name == f {
				c |= 1 << uint(bit)
				break
			}
		}
	}
	return c
}
