package service

import (
	"errors"
	"fmt"
	"testing"

	mysqlerr "github.com/go-sql-driver/mysql"

	"pool-server/internal/model"
)

func roomFixture(count int, pool int64) *model.Room {
	return &model.Room{
		RoomID:           "room-1",
		Tier:             2000,
		Status:           2,
		ParticipantCount: count,
		TotalPool:        pool,
	}
}

func TestLedgerReferences(t *testing.T) {
	if got := entryReference("r1", "AB23CD"); got != "GAME_r1_AB23CD" {
		t.Fatalf("entry reference = %s", got)
	}
	if got := refundReference("r1", "AB23CD"); got != "REFUND_r1_AB23CD" {
		t.Fatalf("refund reference = %s", got)
	}
	if got := payoutReference("r1"); got != "WIN_r1" {
		t.Fatalf("payout reference = %s", got)
	}
}

func TestIsMySQLDuplicateKeyError(t *testing.T) {
	dup := &mysqlerr.MySQLError{Number: 1062, Message: "Duplicate entry 'GAME_r1_AB23CD' for key 'uk_reference'"}
	if !isMySQLDuplicateKeyError(dup) {
		t.Fatal("1062 should be treated as duplicate key")
	}
	if !isMySQLDuplicateKeyError(fmt.Errorf("exec: %w", dup)) {
		t.Fatal("wrapped 1062 should be treated as duplicate key")
	}
	if isMySQLDuplicateKeyError(&mysqlerr.MySQLError{Number: 1213}) {
		t.Fatal("deadlock is not a duplicate key")
	}
	if isMySQLDuplicateKeyError(nil) {
		t.Fatal("nil is not a duplicate key")
	}
	if isMySQLDuplicateKeyError(errors.New("connection refused")) {
		t.Fatal("plain error is not a duplicate key")
	}
}
