package domain

import (
	"errors"
	"sort"
	"time"
)

var (
	// ErrInvalidInterval rejects zero-length or inverted stay windows.
	// A caller fault: surfaced immediately, never retried.
	ErrInvalidInterval = errors.New("invalid interval: start must be before end")

	// ErrConflict is returned by the storage layer when a concurrent
	// booking claimed the suite between resolution and insert.
	ErrConflict = errors.New("reservation conflicts with an existing stay")

	// ErrNotFound mirrors sql.ErrNoRows at the domain boundary.
	ErrNotFound = errors.New("not found")
)

// FindAvailableSuite walks the candidates in their given order and returns
// the first suite with no blocking reservation overlapping [start, end).
// Suites in maintenance are skipped. A false result means every candidate
// is occupied for the window — the expected "fully booked" outcome, not an
// error.
//
// The check is a snapshot: the caller must pair it with the storage layer's
// guarded insert to close the check-then-act race (see storage/mysql).
func FindAvailableSuite(candidates []Suite, start, end time.Time, existing map[string][]Reservation) (string, bool, error) {
	if !start.Before(end) {
		return "", false, ErrInvalidInterval
	}
	for _, s := range candidates {
		if !s.Assignable() {
			continue
		}
		if suiteFree(existing[s.ID], start, end) {
			return s.ID, true, nil
		}
	}
	return "", false, nil
}

func suiteFree(rs []Reservation, start, end time.Time) bool {
	for _, r := range rs {
		if !r.Status.Blocks() {
			continue
		}
		if Overlaps(start, end, r.StartAt, r.EndAt) {
			return false
		}
	}
	return true
}

// ConflictPair is one invariant violation: two blocking reservations on the
// same suite with overlapping stay windows. A sorts before B.
type ConflictPair struct {
	A, B Reservation
}

// ValidateNoOverlaps scans a reservation set and returns every pair of
// blocking reservations that share a suite and overlap. The full conflict
// set is collected in one pass so a single audit after a bulk import shows
// everything needing remediation. Purely diagnostic; no side effects.
//
// Pairs come back in a deterministic order: by suite, then by the earlier
// reservation's start.
func ValidateNoOverlaps(all []Reservation) []ConflictPair {
	bySuite := make(map[string][]Reservation)
	for _, r := range all {
		if r.SuiteID == nil || !r.Status.Blocks() {
			continue
		}
		bySuite[*r.SuiteID] = append(bySuite[*r.SuiteID], r)
	}

	suiteIDs := make([]string, 0, len(bySuite))
	for id := range bySuite {
		suiteIDs = append(suiteIDs, id)
	}
	sort.Strings(suiteIDs)

	var out []ConflictPair
	for _, id := range suiteIDs {
		rs := bySuite[id]
		sort.Slice(rs, func(i, j int) bool {
			if !rs[i].StartAt.Equal(rs[j].StartAt) {
				return rs[i].StartAt.Before(rs[j].StartAt)
			}
			return rs[i].ID < rs[j].ID
		})
		// sorted by start: once a later start clears rs[i].EndAt,
		// nothing after it can overlap rs[i] either
		for i := 0; i < len(rs); i++ {
			for j := i + 1; j < len(rs); j++ {
				if !rs[j].StartAt.Before(rs[i].EndAt) {
					break
				}
				out = append(out, ConflictPair{A: rs[i], B: rs[j]})
			}
		}
	}
	return out
}
