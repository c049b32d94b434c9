package service

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
)

func TestComputePayoutSplitsPool(t *testing.T) {
	share := decimal.RequireFromString("0.8")

	cases := []struct {
		pool   int64
		payout int64
		fee    int64
	}{
		{2000, 1600, 400},    // 两人 1000 档
		{4000, 3200, 800},    // 两人 2000 档
		{40000, 32000, 8000}, // 满员 4000 档
		{120000, 96000, 24000},
		{3, 2, 1}, // 非整除时四舍五入
	}
	for _, c := range cases {
		payout, fee := computePayout(c.pool, share)
		if payout != c.payout || fee != c.fee {
			t.Fatalf("pool=%d: got payout=%d fee=%d, want payout=%d fee=%d",
				c.pool, payout, fee, c.payout, c.fee)
		}
		if payout+fee != c.pool {
			t.Fatalf("pool=%d: payout+fee=%d does not equal pool", c.pool, payout+fee)
		}
	}
}

func TestComputePayoutConservesTotal(t *testing.T) {
	share := decimal.RequireFromString("0.8")
	tiers := []int64{1000, 2000, 4000, 10000, 20000, 40000}
	for _, tier := range tiers {
		for n := 2; n <= 10; n++ {
			pool := tier * int64(n)
			payout, fee := computePayout(pool, share)
			if payout+fee != pool {
				t.Fatalf("tier=%d n=%d: payout=%d fee=%d pool=%d", tier, n, payout, fee, pool)
			}
			if payout <= 0 || fee < 0 {
				t.Fatalf("tier=%d n=%d: non-positive split payout=%d fee=%d", tier, n, payout, fee)
			}
		}
	}
}

func TestComputePresentationLandsOnWinner(t *testing.T) {
	const base = 5
	for n := 2; n <= 10; n++ {
		seg := 360.0 / float64(n)
		for idx := 0; idx < n; idx++ {
			pres := computePresentation(idx, n, base)

			// 角度落在基础整圈之后的最后一圈内
			if pres <= float64(base)*360.0 || pres > float64(base+1)*360.0 {
				t.Fatalf("n=%d idx=%d: presentation %f out of range", n, idx, pres)
			}

			// 从表现角度反解席位：转盘停点应在中奖扇区中心
			landing := 360.0 - (pres - float64(base)*360.0)
			got := int(math.Floor(landing / seg))
			if got != idx {
				t.Fatalf("n=%d idx=%d: landing %f decodes to seat %d", n, idx, landing, got)
			}
		}
	}
}

func TestNoopOutputKeepsWinnerFieldsForCompleted(t *testing.T) {
	// completed 房间的幂等返回必须带上终局信息
	room := roomFixture(4, 8000)
	room.Status = 4
	room.WinnerUserID = 42
	room.WinnerCode = "AB23CD"
	room.WinnerSeat = 1
	room.PayoutAmount = 6400
	room.FeeAmount = 1600
	room.SpinPresentation = 2115

	out := noopOutput(room)
	if !out.Noop {
		t.Fatal("expected noop flag")
	}
	if out.Status != "completed" || out.WinnerCode != "AB23CD" || out.Payout != 6400 {
		t.Fatalf("unexpected output: %+v", out)
	}

	// 未完结房间不得泄露中奖字段
	room.Status = 2
	out = noopOutput(room)
	if out.WinnerCode != "" || out.Payout != 0 {
		t.Fatalf("countdown room should not carry winner fields: %+v", out)
	}
}
