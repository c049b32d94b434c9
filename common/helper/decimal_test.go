package helper

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestShareOf(t *testing.T) {
	share := decimal.RequireFromString("0.8")

	cases := []struct {
		amount int64
		want   int64
	}{
		{2000, 1600},
		{3000, 2400},
		{40000, 32000},
		{0, 0},
		{3, 2},   // 2.4 -> 2
		{7, 6},   // 5.6 -> 6
		{125, 100},
	}
	for _, c := range cases {
		if got := ShareOf(c.amount, share); got != c.want {
			t.Fatalf("ShareOf(%d, 0.8) = %d, want %d", c.amount, got, c.want)
		}
	}
}

func TestRoundCents(t *testing.T) {
	if got := RoundCents(decimal.RequireFromString("2.5")); got != 3 {
		t.Fatalf("RoundCents(2.5) = %d", got)
	}
	if got := RoundCents(decimal.RequireFromString("2.4")); got != 2 {
		t.Fatalf("RoundCents(2.4) = %d", got)
	}
	if got := RoundCents(decimal.RequireFromString("-2.5")); got != -3 {
		t.Fatalf("RoundCents(-2.5) = %d", got)
	}
}
