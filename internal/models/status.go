package models

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Status is the lifecycle state of a trade.
type Status string

const (
	StatusOpen    Status = "Open"
	StatusWin     Status = "Win"
	StatusLoss    Status = "Loss"
	StatusExpired Status = "Expired"
)

// ErrInvalidTransition is returned when a status change is not allowed.
var ErrInvalidTransition = errors.New("invalid status transition")

// StatusTransition defines one allowed lifecycle change.
type StatusTransition struct {
	From        Status
	To          Status
	Description string
}

// ValidTransitions lists every allowed status change. Closed states are terminal.
var ValidTransitions = []StatusTransition{
	{StatusOpen, StatusWin, "Closed for a gain"},
	{StatusOpen, StatusLoss, "Closed for a loss"},
	{StatusOpen, StatusExpired, "Expired worthless or assigned"},
}

// Valid returns true if the status is one of the defined constants.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusWin, StatusLoss, StatusExpired:
		return true
	default:
		return false
	}
}

// ValidateTransition checks that from -> to is defined in ValidTransitions.
func ValidateTransition(from, to Status) error {
	if from == "" {
		from = StatusOpen
	}
	for _, t := range ValidTransitions {
		if t.From == from && t.To == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// Close moves an open position to a terminal status and books the realized P&L.
// Status follows the sign of realized when to is empty.
func (p *Position) Close(to Status, realized float64, at time.Time) error {
	if to == "" {
		to = StatusWin
		if realized < 0 {
			to = StatusLoss
		}
	}
	if err := ValidateTransition(p.Status, to); err != nil {
		return fmt.Errorf("position %s close failed: %w", p.ID, err)
	}
	p.Status = to
	p.RealizedPnL = math.Round(realized*100) / 100
	p.UnrealizedPnL = 0
	if p.ExitDate.IsZero() {
		p.ExitDate = at.UTC()
	}
	return nil
}
