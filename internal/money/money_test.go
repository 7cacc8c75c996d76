package money

import "testing"

func TestParseMinor(t *testing.T) {
	cases := []struct {
		input string
		want  int64
		err   error
	}{
		{"120.00", 12000, nil},
		{"120", 12000, nil},
		{"0.5", 50, nil},
		{"-1.00", -100, nil},
		{"+3.07", 307, nil},
		{"1.999", 0, ErrTooManyDecimals},
		{"abc", 0, ErrInvalidAmount},
		{"", 0, ErrInvalidAmount},
		{"1.2x", 0, ErrInvalidAmount},
	}
	for _, tc := range cases {
		got, err := ParseMinor(tc.input)
		if err != tc.err {
			t.Fatalf("ParseMinor(%q) err = %v, want %v", tc.input, err, tc.err)
		}
		if err == nil && got != tc.want {
			t.Fatalf("ParseMinor(%q) = %d, want %d", tc.input, got, tc.want)
		}
	}
}

func TestFormatMinor(t *testing.T) {
	if got := FormatMinor(12034); got != "120.34" {
		t.Fatalf("FormatMinor(12034) = %q", got)
	}
	if got := FormatMinor(-100); got != "-1.00" {
		t.Fatalf("FormatMinor(-100) = %q", got)
	}
	if got := FormatMinor(5); got != "0.05" {
		t.Fatalf("FormatMinor(5) = %q", got)
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(2500, 10000); got != "25.00" {
		t.Fatalf("Percent(2500, 10000) = %q", got)
	}
	if got := Percent(1, 3); got != "33.33" {
		t.Fatalf("Percent(1, 3) = %q", got)
	}
	if got := Percent(100, 0); got != "0.00" {
		t.Fatalf("Percent(100, 0) = %q", got)
	}
}
