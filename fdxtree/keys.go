package fdx

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

// Address is a FidoNet zone:net/node.point address.
type Address struct {
	Zone  uint16
	Net   uint16
	Node  uint16
	Point uint16
}

func (a Address) String() string {
	if a.Point == 0 {
		return fmt.Sprintf("%d:%d/%d", a.Zone, a.Net, a.Node)
	}
	return fmt.Sprintf("%d:%d/%d.%d", a.Zone, a.Net, a.Node, a.Point)
}

func (a Address) fields() [4]uint16 {
	return [4]uint16{a.Zone, a.Net, a.Node, a.Point}
}

// Compare orders addresses zone first.
func (a Address) Compare(b Address) int {
	af, bf := a.fields(), b.fields()
	for i := range af {
		if af[i] != bf[i] {
			if af[i] < bf[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func (a Address) IsZoneCoord() bool {
	return a.Net == a.Zone && a.Node == 0 && a.Point == 0
}

// AddressKey is the byte-swapped (big-endian) encoding stored in
// NODELIST.FDX; byte order equals numeric order.
func AddressKey(a Address) [8]byte {
	var k [8]byte
	binary.BigEndian.PutUint16(k[0:], a.Zone)
	binary.BigEndian.PutUint16(k[2:], a.Net)
	binary.BigEndian.PutUint16(k[4:], a.Node)
	binary.BigEndian.PutUint16(k[6:], a.Point)
	return k
}

func AddressFromKey(k []byte) Address {
	return Address{
		Zone:  binary.BigEndian.Uint16(k[0:]),
		Net:   binary.BigEndian.Uint16(k[2:]),
		Node:  binary.BigEndian.Uint16(k[4:]),
		Point: binary.BigEndian.Uint16(k[6:]),
	}
}

// HexKey renders the 16 character comparison key, four hex digits per field.
func HexKey(a Address) string {
	return fmt.Sprintf("%04X%04X%04X%04X", a.Zone, a.Net, a.Node, a.Point)
}

// CompareHexKeys compares two 16 character keys. A '_' in either key
// matches the remainder; ',' positions are ignored.
func CompareHexKeys(k1, k2 string) int {
	for i := 0; i < 16 && i < len(k1) && i < len(k2); i++ {
		if k1[i] == '_' || k2[i] == '_' {
			return 0
		}
		if k1[i] == ',' || k2[i] == ',' {
			continue
		}
		if k1[i] > k2[i] {
			return 1
		}
		if k1[i] < k2[i] {
			return -1
		}
	}
	return 0
}

// ParseAddress accepts "zone:net/node" and "zone:net/node.point".
func ParseAddress(s string) (Address, error) {
	p, err := ParsePattern(s)
	if err != nil {
		return Address{}, err
	}
	if p.Depth < 4 {
		return Address{}, Errorf(InvalidArgument, "parse address", "%q is a pattern, not an address", s)
	}
	return p.Address, nil
}

// AddressPattern matches every address agreeing on the first Depth fields.
type AddressPattern struct {
	Address
	Depth int
}

// ParsePattern accepts an address whose trailing part may be '*':
// "2:*", "2:443/*", "2:443/13.*" or a full address (Depth 4).
func ParsePattern(s string) (AddressPattern, error) {
	var p AddressPattern
	s = strings.TrimSpace(s)
	seps := []byte{':', '/', '.'}
	rest := s
	for i := 0; i < 4; i++ {
		var part string
		if i < 3 {
			if j := strings.IndexByte(rest, seps[i]); j >= 0 {
				part, rest = rest[:j], rest[j+1:]
			} else {
				part, rest = rest, ""
			}
		} else {
			part, rest = rest, ""
		}
		if part == "*" {
			if rest != "" {
				return p, Errorf(InvalidArgument, "parse address", "wildcard must be last in %q", s)
			}
			return p, nil
		}
		if part == "" {
			if i == 3 {
				// no point given
				p.Depth = 4
				return p, nil
			}
			return p, Errorf(InvalidArgument, "parse address", "missing field %d in %q", i, s)
		}
		v, err := strconv.ParseUint(part, 10, 16)
		if err != nil {
			return p, Errorf(InvalidArgument, "parse address", "bad field %q in %q", part, s)
		}
		switch i {
		case 0:
			p.Zone = uint16(v)
		case 1:
			p.Net = uint16(v)
		case 2:
			p.Node = uint16(v)
		case 3:
			p.Point = uint16(v)
		}
		p.Depth = i + 1
	}
	return p, nil
}

// Compare orders the pattern against a by their hex keys; the '_' at the
// first wildcard field matches whatever follows.
func (p AddressPattern) Compare(a Address) int {
	return CompareHexKeys(p.HexKey(), HexKey(a))
}

// HexKey renders the pattern with '_' at the first wildcard position.
func (p AddressPattern) HexKey() string {
	k := HexKey(p.Address)
	if p.Depth >= 4 {
		return k
	}
	return k[:p.Depth*4] + "_" + strings.Repeat("0", 15-p.Depth*4)
}

// NodeStatus is the nodelist keyword class of an entry.
type NodeStatus uint8

const (
	StatusNormal NodeStatus = iota
	StatusZoneCoord
	StatusRegionCoord
	StatusNetCoord
	StatusHub
	StatusPrivate
	StatusHold
	StatusDown
	StatusPoint
)

var statusNames = [...]string{"", "ZONE", "REGION", "HOST", "HUB", "PVT", "HOLD", "DOWN", "POINT"}

func (s NodeStatus) String() string {
	if int(s) < len(statusNames) {
		if s == StatusNormal {
			return "NODE"
		}
		return statusNames[s]
	}
	return fmt.Sprintf("STATUS(%d)", uint8(s))
}

// ParseStatus maps a nodelist keyword to a status; "" and unknown
// keywords are plain nodes.
func ParseStatus(keyword string) NodeStatus {
	keyword = strings.ToUpper(strings.TrimSpace(keyword))
	for i, n := range statusNames {
		if n != "" && n == keyword {
			return NodeStatus(i)
		}
	}
	return StatusNormal
}

const (
	userKeyMarker = 0x18
	UserKeyLen    = 16 // marker + 15 name bytes
	userNameLen   = UserKeyLen - 1

	PhoneKeyLen = 21 // length byte + 20 chars
	phoneMaxLen = PhoneKeyLen - 1
)

// FormUserName builds a USERLIST.FDX key: marker byte, then the last
// name, a space and the remaining names, uppercased, underscores as
// spaces, truncated to 15 bytes and zero padded. A name may end at the
// first comma, as when taken straight from a nodelist line.
func FormUserName(name string) [UserKeyLen]byte {
	var out [UserKeyLen]byte
	if i := strings.IndexByte(name, ','); i >= 0 {
		name = name[:i]
	}
	last := -1
	for i := 0; i < len(name); i++ {
		if name[i] == '_' || name[i] == ' ' {
			last = i
		}
	}

	n := 1
	put := func(c byte) {
		if n < UserKeyLen {
			out[n] = c
			n++
		}
	}
	for i := last + 1; i < len(name); i++ {
		put(toUpper(name[i]))
	}
	if last >= 0 {
		put(' ')
	}
	for i := 0; i < last; i++ {
		if name[i] == '_' {
			put(' ')
		} else {
			put(toUpper(name[i]))
		}
	}
	out[0] = userKeyMarker
	return out
}

// UserKeyString returns the name part of a user key without padding.
func UserKeyString(k [UserKeyLen]byte) string {
	return strings.TrimRight(string(k[1:]), "\x00")
}

// NamePattern is a username search: already last-name-first, uppercase,
// at most 15 bytes. Prefix marks a trailing '_' wildcard.
type NamePattern struct {
	Text   string
	Prefix bool
}

// ParseNamePattern uppercases and truncates the search text. Anything
// from the first '_' on is a wildcard.
func ParseNamePattern(s string) NamePattern {
	var p NamePattern
	if i := strings.IndexByte(s, '_'); i >= 0 {
		s = s[:i]
		p.Prefix = true
	}
	if len(s) > userNameLen {
		s = s[:userNameLen]
	}
	b := []byte(s)
	for i := range b {
		b[i] = toUpper(b[i])
	}
	p.Text = string(b)
	return p
}

// Compare orders the pattern against a stored user key.
func (p NamePattern) Compare(k [UserKeyLen]byte) int {
	name := UserKeyString(k)
	if p.Prefix && len(name) > len(p.Text) {
		name = name[:len(p.Text)]
	}
	return strings.Compare(p.Text, name)
}

// Matches reports whether the stored key satisfies the pattern.
func (p NamePattern) Matches(k [UserKeyLen]byte) bool {
	return p.Compare(k) == 0
}

// PhoneKey packs s into a length-prefixed key, truncating to 20 chars.
// The second result reports truncation.
func PhoneKey(s string) ([PhoneKeyLen]byte, bool) {
	var k [PhoneKeyLen]byte
	truncated := false
	if len(s) > phoneMaxLen {
		s = s[:phoneMaxLen]
		truncated = true
	}
	k[0] = byte(len(s))
	copy(k[1:], s)
	return k, truncated
}

func PhoneKeyString(k [PhoneKeyLen]byte) string {
	n := int(k[0])
	if n > phoneMaxLen {
		n = phoneMaxLen
	}
	return string(k[1 : 1+n])
}

// ComparePascal compares two length-prefixed strings of at most maxLen
// bytes including the length byte; equal prefixes order by length.
func ComparePascal(k1, k2 []byte, maxLen int) int {
	n1, n2 := int(k1[0]), int(k2[0])
	i := 1
	for ; i < maxLen && i <= n1 && i <= n2; i++ {
		if k1[i] > k2[i] {
			return 1
		}
		if k1[i] < k2[i] {
			return -1
		}
	}
	if i == n1+1 || i == n2+1 {
		switch {
		case n1 > n2:
			return 1
		case n1 < n2:
			return -1
		}
	}
	return 0
}

func toUpper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - 32
	}
	return c
}
