package extract

import (
	"reflect"
	"testing"

	"pkg.jsn.cam/keydiff/pkg/keydiff"
)

func TestValidLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
		want bool
	}{
		{"empty", "", false},
		{"whitespace only", "   \t  ", false},
		{"comment", "# comment", false},
		{"comment with leading space", "   # indented comment", false},
		{"metadata version", "VERSION 1.0", false},
		{"metadata units", "UNITS mW", false},
		{"metadata inst name", "INST_NAME top/u_core", false},
		{"plain record", "u_core/reg_1 0.52", true},
		{"keyword as later field", "cell VERSION 1.0", true},
		{"keyword prefix not whole token", "VERSIONED 1.0", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ValidLine([]byte(tt.line)); got != tt.want {
				t.Errorf("ValidLine(%q) = %v, want %v", tt.line, got, tt.want)
			}
		})
	}
}

func TestParseValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw         string
		mode        keydiff.Mode
		wantNumeric bool
		wantNum     float64
	}{
		{"plain decimal", "1.25", keydiff.ModeNumeric, true, 1.25},
		{"integer", "42", keydiff.ModeNumeric, true, 42},
		{"negative", "-0.5", keydiff.ModeNumeric, true, -0.5},
		{"explicit plus", "+3.5", keydiff.ModeNumeric, true, 3.5},
		{"scientific", "1.2e-3", keydiff.ModeNumeric, true, 0.0012},
		{"scientific upper", "5E2", keydiff.ModeNumeric, true, 500},
		{"leading dot", ".5", keydiff.ModeNumeric, true, 0.5},
		{"units suffix stays string", "12ps", keydiff.ModeNumeric, false, 0},
		{"inf stays string", "Inf", keydiff.ModeNumeric, false, 0},
		{"nan stays string", "NaN", keydiff.ModeNumeric, false, 0},
		{"word", "PASS", keydiff.ModeNumeric, false, 0},
		{"string mode never parses", "1.25", keydiff.ModeString, false, 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParseValue(tt.raw, tt.mode)

			if got.Numeric != tt.wantNumeric {
				t.Fatalf("ParseValue(%q, %s).Numeric = %v, want %v", tt.raw, tt.mode, got.Numeric, tt.wantNumeric)
			}
			if got.Numeric && got.Num != tt.wantNum {
				t.Errorf("ParseValue(%q, %s).Num = %v, want %v", tt.raw, tt.mode, got.Num, tt.wantNum)
			}
			if got.Raw != tt.raw {
				t.Errorf("ParseValue(%q, %s).Raw = %q, want %q", tt.raw, tt.mode, got.Raw, tt.raw)
			}
		})
	}
}

func TestLine(t *testing.T) {
	t.Parallel()

	cols := keydiff.Columns{Key: []int{0}, Value: 1}

	tests := []struct {
		name    string
		line    string
		cols    keydiff.Columns
		wantOK  bool
		wantKey keydiff.Key
		wantRaw string
	}{
		{"simple record", "u_core/reg_1 0.52", cols, true, keydiff.Key{"u_core/reg_1"}, "0.52"},
		{"extra whitespace", "  u_core/reg_1\t 0.52  extra", cols, true, keydiff.Key{"u_core/reg_1"}, "0.52"},
		{"too few fields", "lonely", cols, false, nil, ""},
		{"comment rejected", "# u_core/reg_1 0.52", cols, false, nil, ""},
		{"metadata rejected", "VERSION 1.0", cols, false, nil, ""},
		{
			"composite key",
			"top u_core/reg_1 0.52 PASS",
			keydiff.Columns{Key: []int{0, 1}, Value: 3},
			true,
			keydiff.Key{"top", "u_core/reg_1"},
			"PASS",
		},
		{
			"value column out of range",
			"u_core/reg_1 0.52",
			keydiff.Columns{Key: []int{0}, Value: 5},
			false, nil, "",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rec, ok := Line([]byte(tt.line), tt.cols, keydiff.ModeNumeric)

			if ok != tt.wantOK {
				t.Fatalf("Line(%q) ok = %v, want %v", tt.line, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if !reflect.DeepEqual(rec.Key, tt.wantKey) {
				t.Errorf("Line(%q) key = %v, want %v", tt.line, rec.Key, tt.wantKey)
			}
			if rec.Value.Raw != tt.wantRaw {
				t.Errorf("Line(%q) raw value = %q, want %q", tt.line, rec.Value.Raw, tt.wantRaw)
			}
		})
	}
}

func TestLine_Pure(t *testing.T) {
	t.Parallel()
	// Extraction is a pure function: two calls on the same input yield
	// identical records.
	line := []byte("top u_core/reg_1 1.5e-2")
	cols := keydiff.Columns{Key: []int{0, 1}, Value: 2}

	first, ok1 := Line(line, cols, keydiff.ModeNumeric)
	second, ok2 := Line(line, cols, keydiff.ModeNumeric)

	if !ok1 || !ok2 {
		t.Fatalf("Line rejected a valid record: ok1=%v ok2=%v", ok1, ok2)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Line not pure: %+v vs %+v", first, second)
	}
}
