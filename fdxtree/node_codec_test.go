package fdx

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageSizes(t *testing.T) {
	assert.Equal(t, 741, PageSizeFor(AddressLayout{}.RecordSize()))
	assert.Equal(t, 1061, PageSizeFor(UserLayout{}.RecordSize()))
	assert.Equal(t, 933, PageSizeFor(PhoneLayout{}.RecordSize()))

	for _, size := range []int{741, 1061, 933} {
		_, ok := KindForPageSize(size)
		assert.True(t, ok)
	}
	_, ok := KindForPageSize(4096)
	assert.False(t, ok)
}

func TestAddressPageRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	var p Page[AddressRecord]
	p.Count = 20
	p.Backref = 9
	for i := 0; i < p.Count; i++ {
		p.Slots[i] = Slot[AddressRecord]{
			Rec: AddressRecord{
				Addr:   randomAddress(r),
				RNet:   uint16(r.Intn(65536)),
				RNode:  uint16(r.Intn(65536)),
				Status: NodeStatus(r.Intn(9)),
				ESMark: uint8(r.Intn(256)),
				Offset: r.Uint32(),
			},
			Link: r.Uint32(),
		}
	}

	data := EncodePage[AddressRecord](AddressLayout{}, &p)
	require.Len(t, data, 741)
	assert.Equal(t, byte(addressMarker), data[pageHeaderSize])

	var got Page[AddressRecord]
	require.NoError(t, DecodePage[AddressRecord](AddressLayout{}, data, &got))
	assert.Equal(t, p, got)
}

func TestUserAndPhonePageRoundTrip(t *testing.T) {
	var up Page[UserRecord]
	up.Count = 2
	up.Slots[0].Rec = UserRecord{Key: FormUserName("John_Smith"), Addr: Address{2, 443, 13, 0}, Status: StatusHub, Offset: 0x01000007}
	up.Slots[1].Rec = UserRecord{Key: FormUserName("Ann_Lee"), Addr: Address{1, 1, 1, 1}, Status: StatusPoint, Offset: 42}
	up.Slots[1].Link = 3
	data := EncodePage[UserRecord](UserLayout{}, &up)
	require.Len(t, data, 1061)
	var gotUser Page[UserRecord]
	require.NoError(t, DecodePage[UserRecord](UserLayout{}, data, &gotUser))
	assert.Equal(t, up, gotUser)

	var pp Page[PhoneRecord]
	pp.Count = 1
	k, _ := PhoneKey("1-800")
	pp.Slots[0].Rec = PhoneRecord{Key: k, Offset: 5}
	data = EncodePage[PhoneRecord](PhoneLayout{}, &pp)
	require.Len(t, data, 933)
	var gotPhone Page[PhoneRecord]
	require.NoError(t, DecodePage[PhoneRecord](PhoneLayout{}, data, &gotPhone))
	assert.Equal(t, pp, gotPhone)
	assert.Equal(t, "1-800", gotPhone.Slots[0].Rec.Match())
}

func TestDecodePageRejectsBadInput(t *testing.T) {
	var p Page[PhoneRecord]
	err := DecodePage[PhoneRecord](PhoneLayout{}, make([]byte, 100), &p)
	assert.True(t, IsKind(err, FormatMismatch))

	data := make([]byte, 933)
	data[0] = 40
	err = DecodePage[PhoneRecord](PhoneLayout{}, data, &p)
	assert.True(t, IsKind(err, StructuralCorruption))
}

func TestStubRoundTrip(t *testing.T) {
	s := Stub{
		Flags:   stubFlags,
		PageLen: 741,
		Root:    12,
		Records: 3456,
		Levels:  3,
		Info: NodelistInfo{
			RevisionMaj: RevisionMajor,
			RevisionMin: RevisionMinor,
			CountryCode: 46,
			Swedish:     true,
			NodeExt:     "123",
			CompileTime: 1700000000,
		},
	}
	data := EncodeStub(&s, 741)
	require.Len(t, data, 741)
	assert.Equal(t, byte(3), data[263])
	assert.Equal(t, "123", string(data[264:267]))

	got, err := DecodeStub(data)
	require.NoError(t, err)
	assert.Equal(t, s, got)
	assert.Equal(t, 1, got.Info.Revision())

	n, err := ReadStubPageLen(data[:8])
	require.NoError(t, err)
	assert.Equal(t, uint32(741), n)

	data[0] = 0
	_, err = DecodeStub(data)
	assert.True(t, IsKind(err, FormatMismatch))
}

func TestNodelistInfoRevision(t *testing.T) {
	assert.Equal(t, 0, NewNodelistInfo(1, "PVT", false, true).Revision())
	h := NewNodelistInfo(44, "PVT", false, false)
	assert.Equal(t, 1, h.Revision())
	assert.Equal(t, uint8(RevisionMajor), h.RevisionMaj)
}
