package discovery

import (
	"fmt"
	"strconv"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeTXT creates the TXT records for a bridge. Regions that do not fit
// in one TXT string are dropped from the end; Info over the bridge always
// carries the full table.
func EncodeTXT(info *BridgeInfo) TXTRecordMap {
	txt := TXTRecordMap{
		TXTKeyID:    info.ID,
		TXTKeyIdent: info.Ident,
		TXTKeyClock: strconv.FormatUint(info.SysClkFreq, 10),
	}
	if regions := encodeRegions(info.Regions); regions != "" {
		txt[TXTKeyRegions] = regions
	}
	return txt
}

// DecodeTXT parses the TXT records of a bridge.
func DecodeTXT(txt TXTRecordMap) (*BridgeInfo, error) {
	info := &BridgeInfo{}

	var ok bool
	if info.ID, ok = txt[TXTKeyID]; !ok || info.ID == "" {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyID)
	}
	if info.Ident, ok = txt[TXTKeyIdent]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyIdent)
	}

	clk, ok := txt[TXTKeyClock]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingRequired, TXTKeyClock)
	}
	freq, err := strconv.ParseUint(clk, 10, 64)
	if err != nil || freq == 0 {
		return nil, fmt.Errorf("%w: clk %q", ErrInvalidTXTRecord, clk)
	}
	info.SysClkFreq = freq

	info.Regions, err = parseRegions(txt[TXTKeyRegions])
	if err != nil {
		return nil, err
	}
	return info, nil
}

// encodeRegions formats regions as name@0xorigin+0xlength, comma separated.
func encodeRegions(regions []RegionEntry) string {
	var b strings.Builder
	for _, r := range regions {
		entry := fmt.Sprintf("%s@0x%x+0x%x", r.Name, r.Origin, r.Length)
		sep := 0
		if b.Len() > 0 {
			sep = 1
		}
		if len(TXTKeyRegions)+1+b.Len()+sep+len(entry) > MaxTXTValueLen {
			break
		}
		if sep == 1 {
			b.WriteByte(',')
		}
		b.WriteString(entry)
	}
	return b.String()
}

func parseRegions(s string) ([]RegionEntry, error) {
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	regions := make([]RegionEntry, 0, len(parts))
	for _, p := range parts {
		name, span, ok := strings.Cut(strings.TrimSpace(p), "@")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: region %q", ErrInvalidTXTRecord, p)
		}
		originStr, lengthStr, ok := strings.Cut(span, "+")
		if !ok {
			return nil, fmt.Errorf("%w: region %q", ErrInvalidTXTRecord, p)
		}
		origin, err := strconv.ParseUint(originStr, 0, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: region %q origin", ErrInvalidTXTRecord, p)
		}
		length, err := strconv.ParseUint(lengthStr, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: region %q length", ErrInvalidTXTRecord, p)
		}
		regions = append(regions, RegionEntry{Name: name, Origin: uint32(origin), Length: length})
	}
	return regions, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value" strings.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		k, v, _ := strings.Cut(s, "=")
		if k != "" {
			txt[k] = v
		}
	}
	return txt
}

// InstanceName builds the DNS-SD instance name for a bridge: the ident with
// spaces replaced, followed by the first eight characters of the ID.
func InstanceName(info *BridgeInfo) string {
	ident := strings.Map(func(r rune) rune {
		switch {
		case r == ' ' || r == '.':
			return '-'
		case r < 0x20 || r > 0x7e:
			return -1
		}
		return r
	}, info.Ident)
	id := info.ID
	if len(id) > 8 {
		id = id[:8]
	}
	name := id
	if ident != "" {
		name = ident + "-" + id
	}
	if len(name) > MaxInstanceNameLen {
		name = name[len(name)-MaxInstanceNameLen:]
	}
	return name
}

// ValidateInstanceName checks if an instance name is valid for mDNS.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInstanceNameTooLong)
	}
	if len(name) > MaxInstanceNameLen {
		return ErrInstanceNameTooLong
	}
	return nil
}
