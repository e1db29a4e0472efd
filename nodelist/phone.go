package nodelist

import (
	"strconv"
	"strings"

	dm "NodelistDB/datafile_manager"
	fdx "NodelistDB/fdxtree"
)

const (
	domKey  = "DOM"
	intlKey = "INTL"

	costOnly     = "="
	internetXlt  = "Internet"
	costDomestic = 0x8000
	costIntl     = 0xFFFF
	costNoOwn    = 0xFFFE
)

// phoneDefaults are the PHONE.FDA record numbers of the DOM and INTL
// translations; 0 when missing.
type phoneDefaults struct {
	dom  uint32
	intl uint32
}

func (n *Nodelist) loadDefaults() (phoneDefaults, error) {
	var d phoneDefaults
	for _, k := range []struct {
		key string
		dst *uint32
	}{{domKey, &d.dom}, {intlKey, &d.intl}} {
		key, _ := fdx.PhoneKey(k.key)
		res, err := n.phones.Locate(func(r *fdx.PhoneRecord) int {
			return fdx.ComparePascal(key[:], r.Key[:], fdx.PhoneKeyLen)
		})
		if err != nil {
			return d, err
		}
		if res.Status == fdx.Found {
			*k.dst = res.Record.Offset
		}
	}
	return d, nil
}

func (n *Nodelist) phoneRecord(recno uint32) (dm.PhoneRecord, bool, error) {
	if recno == 0 {
		return dm.PhoneRecord{}, false, nil
	}
	rec, err := n.data.ReadPhoneRecord(recno)
	if err != nil {
		return rec, false, err
	}
	return rec, true, nil
}

func (n *Nodelist) defaultCost(recno uint32) (uint16, error) {
	rec, ok, err := n.phoneRecord(recno)
	if err != nil || !ok {
		return costIntl, err
	}
	return rec.Cost, nil
}

// longestPrefix finds the longest indexed key that is a prefix of number.
// The greatest key not after number is either that prefix or shares a
// shorter common prefix with number, which bounds the next search.
func (n *Nodelist) longestPrefix(number string) (fdx.Result[fdx.PhoneRecord], error) {
	for {
		key, _ := fdx.PhoneKey(number)
		res, err := n.phones.Floor(func(r *fdx.PhoneRecord) int {
			return fdx.ComparePascal(key[:], r.Key[:], fdx.PhoneKeyLen)
		})
		if err != nil || res.Status == fdx.OffEnd {
			return res, err
		}
		match := res.Record.Match()
		if strings.HasPrefix(number, match) {
			res.Status = fdx.Found
			return res, nil
		}
		common := 0
		for common < len(match) && common < len(number) && match[common] == number[common] {
			common++
		}
		if common == 0 {
			res.Status = fdx.NotFound
			return res, nil
		}
		number = number[:common]
	}
}

// TranslateNumber applies the dial translation table to a raw nodelist
// number and returns the number to dial and the cost of the call.
//
// The longest matching prefix with a real translation wins. Cost-only
// entries on the way there set the cost if nothing more specific did.
// Without a matching translation the number is international unless its
// country code is the local one, in which case the local prefix is
// stripped and the DOM translation applies.
func (n *Nodelist) TranslateNumber(number string) (string, uint16, error) {
	if err := n.check("translate number"); err != nil {
		return "", costIntl, err
	}
	if number == "" || strings.HasPrefix(strings.ToUpper(number), "-U") {
		cost, err := n.defaultCost(n.defaults.intl)
		return number, cost, n.errors.Signal(err)
	}

	var (
		xlt     dm.PhoneRecord
		found   bool
		matched string
		cost    uint16
		setCost bool
	)
	probe := number
	for probe != "" && !found {
		res, err := n.longestPrefix(probe)
		if err != nil {
			return "", costIntl, n.errors.Signal(err)
		}
		if res.Status != fdx.Found {
			break
		}
		rec, _, err := n.phoneRecord(res.Record.Offset)
		if err != nil {
			return "", costIntl, n.errors.Signal(err)
		}
		matched = res.Record.Match()
		if rec.Telephone == costOnly {
			if !setCost {
				cost, setCost = rec.Cost, true
			}
			probe = matched[:len(matched)-1]
			continue
		}
		xlt, found = rec, true
		if !setCost {
			cost, setCost = rec.Cost, true
		}
	}

	strip := matched
	if !found {
		strip = ""
		def := n.defaults.intl
		if n.cfg.CountryCode != 0 && leadingCountry(number) == n.cfg.CountryCode {
			def = n.defaults.dom
			strip = strconv.Itoa(int(n.cfg.CountryCode)) + "-"
		}
		rec, ok, err := n.phoneRecord(def)
		if err != nil {
			return "", costIntl, n.errors.Signal(err)
		}
		if !ok {
			strip = ""
		}
		xlt = rec
		if !setCost {
			cost = costIntl
			if ok {
				cost = rec.Cost
			}
		}
	}

	out := applyXlt(xlt.Telephone, strings.TrimPrefix(number, strip))

	if setCost && cost == costDomestic {
		c, err := n.defaultCost(n.defaults.dom)
		if err != nil {
			return "", costIntl, n.errors.Signal(err)
		}
		cost = c
	}
	if setCost && cost == costIntl {
		c, err := n.defaultCost(n.defaults.intl)
		if err != nil {
			return "", costIntl, n.errors.Signal(err)
		}
		cost = c
	}
	return out, cost, nil
}

// leadingCountry parses the digits before the first '-'.
func leadingCountry(number string) uint16 {
	end := 0
	for end < len(number) && number[end] >= '0' && number[end] <= '9' {
		end++
	}
	cc, err := strconv.ParseUint(number[:end], 10, 16)
	if err != nil {
		return 0
	}
	return uint16(cc)
}

// applyXlt wraps rest in the translation's prefix and suffix, split at
// '/'. An "Internet" translation dials a host name, so '-' becomes '.'.
func applyXlt(xlt, rest string) string {
	internet := strings.HasPrefix(xlt, internetXlt)
	if internet {
		xlt = xlt[len(internetXlt):]
	}
	prefix, suffix := xlt, ""
	if i := strings.IndexByte(xlt, '/'); i >= 0 {
		prefix, suffix = xlt[:i], xlt[i+1:]
	}
	out := prefix + rest + suffix
	if internet {
		out = strings.ReplaceAll(out, "-", ".")
	}
	return out
}

// TranslatedNumberAndCost translates the entry's number. An FDNODE.FDA
// entry's own cost overrides the table from revision 1 on.
func (c *Cursor) TranslatedNumberAndCost() (string, uint16, error) {
	rec, err := c.resolve("translate")
	if err != nil {
		return "", costIntl, err
	}
	number, cost, err := c.nl.TranslateNumber(rec.Phone)
	if err != nil {
		return "", costIntl, err
	}
	if c.nl.Revision() >= 1 && rec.FDA && rec.Cost != costNoOwn {
		cost = rec.Cost
	}
	return number, cost, nil
}
