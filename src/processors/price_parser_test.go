package processors

import "testing"

func TestParsePrice(t *testing.T) {
	tests := []struct {
		input  string
		want   int64
		wantOK bool
	}{
		{"100", 100, true},
		{"100k", 100_000, true},
		{"100K", 100_000, true},
		{"2.5m", 2_500_000, true},
		{"2.5M", 2_500_000, true},
		{"1,234k", 1_234_000, true},
		{"1,234,567", 1_234_567, true},
		{"  42k  ", 42_000, true},
		{"0.5k", 500, true},
		{"1.2345k", 1234, true}, // floored after multiplying
		{"0", 0, true},
		// Negative values are not specially rejected; they truncate toward zero.
		{"-1.5k", -1500, true},
		{"-1.2345k", -1234, true},
		{"", 0, false},
		{"   ", 0, false},
		{",,,", 0, false},
		{"k", 0, false},
		{"m", 0, false},
		{"abc", 0, false},
		{"12abc", 0, false},
		{"5km", 0, false}, // only one trailing suffix rune is stripped
	}

	for _, tt := range tests {
		got, ok := ParsePrice(tt.input)
		if ok != tt.wantOK {
			t.Errorf("ParsePrice(%q) ok = %v, want %v", tt.input, ok, tt.wantOK)
			continue
		}
		if ok && got != tt.want {
			t.Errorf("ParsePrice(%q) = %d, want %d", tt.input, got, tt.want)
		}
	}
}
