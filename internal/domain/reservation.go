package domain

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusCheckedIn  Status = "checked-in"
	StatusCheckedOut Status = "checked-out"
	StatusCancelled  Status = "cancelled"
)

// Blocks reports whether a reservation in this status occupies its suite.
// Cancelled reservations never block; checked-out guests have vacated.
// Pending rows hold capacity so two unconfirmed imports cannot claim the
// same suite.
func (s Status) Blocks() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCheckedIn:
		return true
	}
	return false
}

type Reservation struct {
	ID         string
	ExternalID *string // Gingr reservation id, set for imported rows
	SuiteID    *string // nil until a suite has been assigned
	PetID      string
	CustomerID string
	StartAt    time.Time
	EndAt      time.Time
	Status     Status
}

// Overlaps tests the half-open interval predicate: [aStart, aEnd) and
// [bStart, bEnd) share at least one instant. Abutting intervals
// (aEnd == bStart) do not overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// OverlapsWith applies the half-open predicate to two reservations.
func (r Reservation) OverlapsWith(o Reservation) bool {
	return Overlaps(r.StartAt, r.EndAt, o.StartAt, o.EndAt)
}
