package keydiff

import "testing"

func TestKeyCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b Key
		want int // sign only
	}{
		{"equal", Key{"u1"}, Key{"u1"}, 0},
		{"less", Key{"u1"}, Key{"u2"}, -1},
		{"greater", Key{"u2"}, Key{"u1"}, 1},
		{"tuple tie break", Key{"top", "u1"}, Key{"top", "u2"}, -1},
		{"prefix is less", Key{"top"}, Key{"top", "u1"}, -1},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := tt.a.Compare(tt.b)
			switch {
			case tt.want == 0 && got != 0:
				t.Errorf("Compare(%v, %v) = %d, want 0", tt.a, tt.b, got)
			case tt.want < 0 && got >= 0:
				t.Errorf("Compare(%v, %v) = %d, want negative", tt.a, tt.b, got)
			case tt.want > 0 && got <= 0:
				t.Errorf("Compare(%v, %v) = %d, want positive", tt.a, tt.b, got)
			}
		})
	}
}

func TestKeyForms(t *testing.T) {
	t.Parallel()

	k := Key{"top", "u_core/reg_1"}

	if got, want := k.HashText(), "top_u_core/reg_1"; got != want {
		t.Errorf("HashText = %q, want %q", got, want)
	}
	if got, want := k.String(), "top | u_core/reg_1"; got != want {
		t.Errorf("String = %q, want %q", got, want)
	}
}

func TestSummaryAdd(t *testing.T) {
	t.Parallel()

	s := Summary{MissingInFile1: 1, MissingInFile2: 2, ComparisonLines: 3}
	s.Add(Summary{MissingInFile1: 10, MissingInFile2: 20, ComparisonLines: 30})

	want := Summary{MissingInFile1: 11, MissingInFile2: 22, ComparisonLines: 33}
	if s != want {
		t.Errorf("Add = %+v, want %+v", s, want)
	}
}

func TestColumnsMax(t *testing.T) {
	t.Parallel()

	c := Columns{Key: []int{0, 4}, Value: 2}
	if got := c.Max(); got != 4 {
		t.Errorf("Max = %d, want 4", got)
	}
	if got := c.Arity(); got != 2 {
		t.Errorf("Arity = %d, want 2", got)
	}
}
