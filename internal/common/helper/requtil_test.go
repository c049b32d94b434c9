package helper

import (
	"strings"
	"testing"
)

func TestValidateJoin(t *testing.T) {
	in := JoinParsed{Tier: 2000, IdempotencyKey: "abc"}
	if ok, msg := ValidateJoin(&in); !ok {
		t.Fatalf("valid join rejected: %s", msg)
	}

	in = JoinParsed{Tier: 0}
	if ok, _ := ValidateJoin(&in); ok {
		t.Fatal("zero tier accepted")
	}

	in = JoinParsed{Tier: 1000, IdempotencyKey: strings.Repeat("x", 65)}
	if ok, _ := ValidateJoin(&in); ok {
		t.Fatal("oversized idempotency key accepted")
	}
}

func TestValidateSpinDefaultsSource(t *testing.T) {
	in := SpinParsed{RoomID: "room-1"}
	if ok, msg := ValidateSpin(&in); !ok {
		t.Fatalf("valid spin rejected: %s", msg)
	}
	if in.Source != "api" {
		t.Fatalf("source defaulted to %q", in.Source)
	}

	in = SpinParsed{}
	if ok, _ := ValidateSpin(&in); ok {
		t.Fatal("missing room_id accepted")
	}
}

func TestValidateLeave(t *testing.T) {
	in := LeaveParsed{RoomID: "room-1"}
	if ok, msg := ValidateLeave(&in); !ok {
		t.Fatalf("valid leave rejected: %s", msg)
	}

	in = LeaveParsed{RoomID: strings.Repeat("x", 65)}
	if ok, _ := ValidateLeave(&in); ok {
		t.Fatal("oversized room_id accepted")
	}
}

func TestIsJSONContentType(t *testing.T) {
	if !IsJSONContentType("application/json; charset=utf-8") {
		t.Fatal("json content type not detected")
	}
	if IsJSONContentType("application/x-www-form-urlencoded") {
		t.Fatal("form content type detected as json")
	}
}
