package cli

import "testing"

func TestFormatTokens(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1234, "1.2K"},
		{1_234_567, "1.2M"},
		{1_234_567_890, "1.2B"},
		{-1500, "-1.5K"},
	}
	for _, c := range cases {
		if got := FormatTokens(c.in); got != c.want {
			t.Errorf("FormatTokens(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatMinutes(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "0m"},
		{-3, "0m"},
		{42.5, "42.5m"},
		{42, "42m"},
		{125, "2h 5m"},
		{60, "1h 0m"},
	}
	for _, c := range cases {
		if got := FormatMinutes(c.in); got != c.want {
			t.Errorf("FormatMinutes(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatNumber(t *testing.T) {
	cases := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{1_234_567, "1,234,567"},
		{-1000, "-1,000"},
	}
	for _, c := range cases {
		if got := FormatNumber(c.in); got != c.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("hello", 10); got != "hello" {
		t.Errorf("Truncate short = %q", got)
	}
	if got := Truncate("hello world", 8); got != "hello w…" {
		t.Errorf("Truncate long = %q", got)
	}
	if got := Truncate("héllo wörld", 8); got != "héllo w…" {
		t.Errorf("Truncate unicode = %q", got)
	}
}
