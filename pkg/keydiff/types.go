package keydiff

import "strings"

// Mode selects how matched values are compared.
type Mode string

const (
	ModeNumeric Mode = "numeric"
	ModeString  Mode = "string"
)

// Valid reports whether m is a known comparison mode.
func (m Mode) Valid() bool {
	return m == ModeNumeric || m == ModeString
}

// Key identifies one instance: an ordered tuple of key-column fields.
type Key []string

// Compare orders keys lexicographically, field by field.
func (k Key) Compare(other Key) int {
	for i := 0; i < len(k) && i < len(other); i++ {
		if c := strings.Compare(k[i], other[i]); c != 0 {
			return c
		}
	}
	return len(k) - len(other)
}

// HashText is the `_`-joined form hashed for shard routing.
func (k Key) HashText() string {
	return strings.Join(k, "_")
}

// String is the ` | `-joined form used in missing-instance reports.
func (k Key) String() string {
	return strings.Join(k, " | ")
}

// Value is the float-or-string value of a record. Numeric is set only when
// the whole raw token parsed as a decimal or scientific-notation number.
type Value struct {
	Raw     string
	Num     float64
	Numeric bool
}

// Record is one accepted line: an instance key and its value field.
type Record struct {
	Key   Key
	Value Value
}

// Columns configures which fields of a file form the key and the value.
// Indices are 0-based into the whitespace-split fields of a line.
type Columns struct {
	Key   []int
	Value int
}

// Max returns the highest index a line must cover to be accepted.
func (c Columns) Max() int {
	maxCol := c.Value
	for _, k := range c.Key {
		if k > maxCol {
			maxCol = k
		}
	}
	return maxCol
}

// Arity is the number of key columns.
func (c Columns) Arity() int {
	return len(c.Key)
}

// Summary holds the per-shard (or merged global) comparison counters.
type Summary struct {
	MissingInFile1  int `json:"missing_in_file1"`
	MissingInFile2  int `json:"missing_in_file2"`
	ComparisonLines int `json:"comparison_lines"`
}

// Add folds another summary into s.
func (s *Summary) Add(other Summary) {
	s.MissingInFile1 += other.MissingInFile1
	s.MissingInFile2 += other.MissingInFile2
	s.ComparisonLines += other.ComparisonLines
}
