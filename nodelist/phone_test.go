package nodelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"NodelistDB/config"
	dm "NodelistDB/datafile_manager"
	fdx "NodelistDB/fdxtree"
)

func seedDialTable(t *testing.T, n *Nodelist) {
	t.Helper()
	for _, e := range []struct {
		match, xlt string
		cost       uint16
	}{
		{"DOM", "0", 20},
		{"INTL", "00", 100},
		{"44-161-", "9,0161-", 5},
		{"44-161-2", "=", 3},
		{"44-7", "=", costDomestic},
		{"44-9", "=", costIntl},
		{"000-", "Internet/", 0},
		{"49-", "0049-/#", 60},
	} {
		_, err := n.AddPhone(e.match, e.xlt, e.cost)
		require.NoError(t, err)
	}
}

func TestTranslateNumber(t *testing.T) {
	n := newNodelist(t, nil)
	seedDialTable(t, n)

	for _, tc := range []struct {
		name   string
		number string
		want   string
		cost   uint16
	}{
		{"domestic", "44-20-7946-0000", "020-7946-0000", 20},
		{"international", "1-555-0101", "001-555-0101", 100},
		{"prefix match", "44-161-555-1234", "9,0161-555-1234", 5},
		{"cost only entry keeps its cost", "44-161-222-3333", "9,0161-222-3333", 3},
		{"cost 0x8000 means domestic", "44-7700-900000", "07700-900000", 20},
		{"cost 0xFFFF means international", "44-909-1234", "0909-1234", 100},
		{"suffix", "49-30-1234", "0049-30-1234#", 60},
		{"internet", "000-192-168-1-1", "192.168.1.1", 0},
		{"unpublished", "-Unpublished-", "-Unpublished-", 100},
		{"empty", "", "", 100},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, cost, err := n.TranslateNumber(tc.number)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
			assert.Equal(t, tc.cost, cost)
		})
	}
}

func TestTranslateSurvivesThaw(t *testing.T) {
	n := newNodelist(t, nil)
	seedDialTable(t, n)
	require.NoError(t, n.Freeze())
	require.NoError(t, n.Thaw())

	got, cost, err := n.TranslateNumber("44-20-7946-0000")
	require.NoError(t, err)
	assert.Equal(t, "020-7946-0000", got)
	assert.Equal(t, uint16(20), cost)
}

func TestTranslateWithoutTable(t *testing.T) {
	n := newNodelist(t, func(cfg *config.Cfg) { cfg.CountryCode = 0 })
	got, cost, err := n.TranslateNumber("44-20-7946-0000")
	require.NoError(t, err)
	assert.Equal(t, "44-20-7946-0000", got)
	assert.Equal(t, uint16(costIntl), cost)
}

func TestAddPhoneTruncates(t *testing.T) {
	n := newNodelist(t, nil)
	_, err := n.AddPhone("12345678901234567890123", "0", 1)
	require.NoError(t, err)
	assert.True(t, fdx.IsKind(n.GetError(), fdx.InvalidArgument))

	info, err := n.Info(fdx.PhoneTree)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), info.Records)
}

func TestCursorTranslation(t *testing.T) {
	n := newNodelist(t, nil)
	seedDialTable(t, n)
	require.NoError(t, n.AppendLine(dm.NodelistFile, at(2, 250, 1, 0), 250, 0,
		",1,Manchester_BBS,Manchester,Ann_Lee,44-161-555-1234,9600,CM"))

	for i, cost := range []uint16{9, costNoOwn} {
		off, err := n.Data().AppendNodeRecord(&dm.NodeRecord{
			Zone: 2, Net: 250, Node: uint16(10 + i), Cost: cost, Telephone: "44-20-7946-0000",
		})
		require.NoError(t, err)
		file, pos := dm.SplitOffset(off)
		_, err = n.AddNode(at(2, 250, uint16(10+i), 0), 250, 0, fdx.StatusNormal, file, pos)
		require.NoError(t, err)
	}

	c, err := n.Find(at(2, 250, 1, 0), nil)
	require.NoError(t, err)
	number, cost, err := c.TranslatedNumberAndCost()
	require.NoError(t, err)
	assert.Equal(t, "9,0161-555-1234", number)
	assert.Equal(t, uint16(5), cost)

	c, err = n.Find(at(2, 250, 10, 0), nil)
	require.NoError(t, err)
	number, cost, err = c.TranslatedNumberAndCost()
	require.NoError(t, err)
	assert.Equal(t, "020-7946-0000", number)
	assert.Equal(t, uint16(9), cost, "the entry's own cost wins")

	c, err = n.Find(at(2, 250, 11, 0), nil)
	require.NoError(t, err)
	_, cost, err = c.TranslatedNumberAndCost()
	require.NoError(t, err)
	assert.Equal(t, uint16(20), cost)
}

func TestApplyXlt(t *testing.T) {
	assert.Equal(t, "0-123", applyXlt("0-", "123"))
	assert.Equal(t, "0123#", applyXlt("0/#", "123"))
	assert.Equal(t, "a.b.c", applyXlt("Internet", "a-b-c"))
	assert.Equal(t, "123", applyXlt("", "123"))
	assert.Equal(t, uint16(44), leadingCountry("44-20"))
	assert.Equal(t, uint16(0), leadingCountry("-Unpublished-"))
}
