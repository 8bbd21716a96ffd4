// Package extract turns raw report lines into keyed records.
//
// Extraction is a pure function of the line and the column configuration:
// malformed lines are rejected, never fatal.
package extract

import (
	"bytes"
	"regexp"
	"strconv"

	"pkg.jsn.cam/keydiff/pkg/keydiff"
)

// metadataKeywords are the schema/header tokens of instance report files.
// A line whose first field is one of these describes the file, not an
// instance, and is never treated as a record.
var metadataKeywords = map[string]struct{}{
	"VERSION": {}, "CREATION": {}, "CREATOR": {}, "PROGRAM": {},
	"DIVIDERCHAR": {}, "DESIGN": {}, "UNITS": {}, "INSTANCE_COUNT": {},
	"NOMINAL_VOLTAGE": {}, "POWER_NET": {}, "GROUND_NET": {}, "WINDOW": {},
	"RP_VALUE": {}, "RP_FORMAT": {}, "RP_INST_LIMIT": {}, "RP_THRESHOLD": {},
	"RP_PIN_NAME": {}, "MICRON_UNITS": {}, "INST_NAME": {},
}

// numericRe accepts a full decimal or scientific-notation token. Anything
// else (units suffixes, Inf, NaN, hex) stays a string.
var numericRe = regexp.MustCompile(`^[-+]?\d*\.?\d+(?:[eE][-+]?\d+)?$`)

// ValidLine reports whether a line can carry a record at all: not blank,
// not a comment, not a metadata keyword line. This is the filter applied
// before sharding, where full field extraction is deferred.
func ValidLine(line []byte) bool {
	line = bytes.TrimSpace(line)
	if len(line) == 0 || line[0] == '#' {
		return false
	}
	first := line
	if i := bytes.IndexAny(line, " \t"); i >= 0 {
		first = line[:i]
	}
	_, meta := metadataKeywords[string(first)]
	return !meta
}

// ParseValue parses a raw value token according to the comparison mode.
// In string mode no numeric parse is attempted.
func ParseValue(raw string, mode keydiff.Mode) keydiff.Value {
	if mode == keydiff.ModeNumeric && numericRe.MatchString(raw) {
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			return keydiff.Value{Raw: raw, Num: n, Numeric: true}
		}
	}
	return keydiff.Value{Raw: raw}
}

// Line extracts a record from one raw line, or rejects it.
func Line(line []byte, cols keydiff.Columns, mode keydiff.Mode) (keydiff.Record, bool) {
	if !ValidLine(line) {
		return keydiff.Record{}, false
	}

	fields := bytes.Fields(line)
	if len(fields) <= cols.Max() {
		return keydiff.Record{}, false
	}

	key := make(keydiff.Key, len(cols.Key))
	for i, c := range cols.Key {
		key[i] = string(fields[c])
	}

	raw := string(fields[cols.Value])
	return keydiff.Record{Key: key, Value: ParseValue(raw, mode)}, true
}
