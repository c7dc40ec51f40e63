package money

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormat(t *testing.T) {
	cases := map[int64]string{
		0:     "0.00",
		54700: "547.00",
		4905:  "49.05",
		-150:  "-1.50",
	}
	for minor, want := range cases {
		if got := Format(minor); got != want {
			t.Fatalf("Format(%d) = %q, want %q", minor, got, want)
		}
	}
	if got := FormatWhole(49900); got != "499" {
		t.Fatalf("FormatWhole(49900) = %q", got)
	}
}

func TestPercent(t *testing.T) {
	if got := Percent(100000, decimal.NewFromInt(10)); got != 10000 {
		t.Fatalf("10%% of 100000 = %d", got)
	}
	// 12.5% of 333 = 41.625 -> 42
	if got := Percent(333, decimal.RequireFromString("12.5")); got != 42 {
		t.Fatalf("12.5%% of 333 = %d", got)
	}
	if got := Percent(0, decimal.NewFromInt(10)); got != 0 {
		t.Fatalf("expected zero for zero amount, got %d", got)
	}
	if got := Percent(1000, decimal.Zero); got != 0 {
		t.Fatalf("expected zero for zero pct, got %d", got)
	}
}

func TestFromMajor(t *testing.T) {
	if got := FromMajor(decimal.RequireFromString("249.995")); got != 25000 {
		t.Fatalf("FromMajor rounded to %d", got)
	}
	if got := FromMajor(decimal.NewFromInt(547)); got != 54700 {
		t.Fatalf("FromMajor(547) = %d", got)
	}
}

func TestClamp(t *testing.T) {
	if NonNegative(-5) != 0 || NonNegative(5) != 5 {
		t.Fatalf("NonNegative mismatch")
	}
	if Min(3, 7) != 3 || Min(7, 3) != 3 {
		t.Fatalf("Min mismatch")
	}
}
