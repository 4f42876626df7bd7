package availability

import (
	"errors"
	"slices"

	"github.com/gosuda/reservo/internal/domain"
)

// Reasons a slot is refused by Check.
var (
	ErrOutsideHours = errors.New("availability: outside working hours")
	ErrBlocked      = errors.New("availability: slot blocked")
	ErrOccupied     = errors.New("availability: slot occupied")
)

// Check decides whether slot t can be booked against snap. It is the single
// predicate behind both the slot listing and the booking write path.
// Occupied slots return ErrOccupied; everything else that makes the slot
// unbookable returns ErrOutsideHours or ErrBlocked.
func Check(snap *domain.DaySnapshot, t domain.Clock, slotMinutes int) error {
	if !slices.Contains(Candidates(snap, slotMinutes), t) {
		if dayBlocked(snap) {
			return ErrBlocked
		}
		return ErrOutsideHours
	}
	return checkCandidate(snap, t)
}

func checkCandidate(snap *domain.DaySnapshot, t domain.Clock) error {
	for _, b := range snap.BlockedSlots {
		if b.Covers(t) {
			return ErrBlocked
		}
	}
	for _, rb := range snap.RecurringBlocks {
		if rb.Matches(snap.Date) && rb.Covers(t) {
			return ErrBlocked
		}
	}
	for _, r := range snap.Reservations {
		if r.Status.IsActive() && r.Time == t {
			return ErrOccupied
		}
	}
	return nil
}
