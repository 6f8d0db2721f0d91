package models

import (
	"errors"
	"testing"
	"time"
)

func TestDaysToExpiry_BasicAndPastExpiration(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		expiration time.Time
		want       int
	}{
		{
			name:       "same calendar day is 0",
			expiration: time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
			want:       0,
		},
		{
			name:       "3 days ahead",
			expiration: time.Date(2025, 3, 13, 0, 0, 0, 0, time.UTC),
			want:       3,
		},
		{
			name:       "time of day is ignored",
			expiration: time.Date(2025, 3, 11, 1, 0, 0, 0, time.UTC),
			want:       1,
		},
		{
			name:       "past expiration clamps to 0",
			expiration: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			want:       0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &Position{Expiry: tt.expiration}
			got, ok := p.DaysToExpiry(now)
			if !ok {
				t.Fatalf("DaysToExpiry() ok = false, want true")
			}
			if got != tt.want {
				t.Fatalf("DaysToExpiry() = %d, want %d (now=%v exp=%v)", got, tt.want, now, tt.expiration)
			}
		})
	}
}

func TestDaysToExpiry_MissingExpiry(t *testing.T) {
	p := &Position{}
	if _, ok := p.DaysToExpiry(time.Now()); ok {
		t.Fatal("expected ok=false for zero expiry")
	}
}

func TestContractCount_DefaultsToOne(t *testing.T) {
	if got := (&Position{}).ContractCount(); got != 1 {
		t.Fatalf("ContractCount() = %d, want 1", got)
	}
	if got := (&Position{Contracts: 4}).ContractCount(); got != 4 {
		t.Fatalf("ContractCount() = %d, want 4", got)
	}
}

func TestSameEntryDay(t *testing.T) {
	a := &Position{EntryDate: time.Date(2025, 1, 6, 9, 31, 0, 0, time.UTC)}
	b := &Position{EntryDate: time.Date(2025, 1, 6, 15, 59, 0, 0, time.UTC)}
	c := &Position{EntryDate: time.Date(2025, 1, 7, 9, 31, 0, 0, time.UTC)}
	if !SameEntryDay(a, b) {
		t.Error("expected same entry day")
	}
	if SameEntryDay(a, c) {
		t.Error("expected different entry days")
	}
	if SameEntryDay(a, &Position{}) {
		t.Error("zero entry date must never match")
	}
}

func TestClose_Transitions(t *testing.T) {
	at := time.Date(2025, 2, 1, 16, 0, 0, 0, time.UTC)

	p := &Position{ID: "t1", Status: StatusOpen, UnrealizedPnL: 40}
	if err := p.Close("", -120.456, at); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if p.Status != StatusLoss {
		t.Errorf("Status = %s, want %s", p.Status, StatusLoss)
	}
	if p.RealizedPnL != -120.46 {
		t.Errorf("RealizedPnL = %v, want -120.46", p.RealizedPnL)
	}
	if p.UnrealizedPnL != 0 {
		t.Errorf("UnrealizedPnL = %v, want 0", p.UnrealizedPnL)
	}
	if !p.ExitDate.Equal(at) {
		t.Errorf("ExitDate = %v, want %v", p.ExitDate, at)
	}

	// Terminal states cannot be left.
	err := p.Close(StatusWin, 10, at)
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusOpen, StatusWin, StatusLoss, StatusExpired} {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if Status("Rolled").Valid() {
		t.Error("unknown status should be invalid")
	}
}
