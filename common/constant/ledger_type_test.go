package constant

import "testing"

func TestLedgerTypeValidation(t *testing.T) {
	for _, v := range []int{LedgerTypeEntry, LedgerTypeRefund, LedgerTypePayout, LedgerTypeAdjust} {
		if !IsValidLedgerType(v) {
			t.Fatalf("type %d should be valid", v)
		}
	}
	for _, v := range []int{0, 5, -1} {
		if IsValidLedgerType(v) {
			t.Fatalf("type %d should be invalid", v)
		}
	}
}

func TestLedgerDirection(t *testing.T) {
	if got := GetLedgerDirection(LedgerTypeEntry); got != "debit" {
		t.Fatalf("entry direction = %s, want debit", got)
	}
	for _, v := range []int{LedgerTypeRefund, LedgerTypePayout, LedgerTypeAdjust} {
		if got := GetLedgerDirection(v); got != "credit" {
			t.Fatalf("type %d direction = %s, want credit", v, got)
		}
	}
	if got := GetLedgerDirection(99); got != "unknown" {
		t.Fatalf("unknown type direction = %s", got)
	}
}
