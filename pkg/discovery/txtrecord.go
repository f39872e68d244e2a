package discovery

import (
	"fmt"
	"sort"
	"strings"
)

// TXTRecordMap is a map of TXT record key-value pairs.
type TXTRecordMap map[string]string

// EncodeProbeTXT creates TXT records for probe discovery.
func EncodeProbeTXT(info *ProbeInfo) TXTRecordMap {
	return TXTRecordMap{
		TXTKeyVariant:  info.Variant,
		TXTKeyProtocol: info.Protocol,
		TXTKeyID:       info.ID,
	}
}

// DecodeProbeTXT parses TXT records from probe discovery.
func DecodeProbeTXT(txt TXTRecordMap) (*ProbeInfo, error) {
	info := &ProbeInfo{}

	for _, field := range []struct {
		key string
		dst *string
	}{
		{TXTKeyVariant, &info.Variant},
		{TXTKeyProtocol, &info.Protocol},
		{TXTKeyID, &info.ID},
	} {
		v, ok := txt[field.key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingRequired, field.key)
		}
		if v == "" {
			return nil, fmt.Errorf("%w: empty %s", ErrInvalidTXTRecord, field.key)
		}
		*field.dst = v
	}

	return info, nil
}

// TXTRecordsToStrings converts a TXTRecordMap to a slice of "key=value" strings,
// sorted by key.
func TXTRecordsToStrings(txt TXTRecordMap) []string {
	result := make([]string, 0, len(txt))
	for k, v := range txt {
		result = append(result, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(result)
	return result
}

// StringsToTXTRecords parses a slice of "key=value" strings into a TXTRecordMap.
func StringsToTXTRecords(strs []string) TXTRecordMap {
	txt := make(TXTRecordMap)
	for _, s := range strs {
		parts := strings.SplitN(s, "=", 2)
		if len(parts) == 2 {
			txt[parts[0]] = parts[1]
		} else if len(parts) == 1 && parts[0] != "" {
			// Key without value (boolean flag)
			txt[parts[0]] = ""
		}
	}
	return txt
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
