package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"tailtown/internal/adapters/observability"
	"tailtown/internal/domain"
)

// ErrNoCapacity is the logical "fully booked" outcome: every eligible suite
// is occupied for the requested window. Callers branch on it to offer
// alternative dates or a waitlist; it must never surface as a generic
// server error.
var ErrNoCapacity = errors.New("no suites available for the requested dates")

type BookingRequest struct {
	PetID      string
	CustomerID string
	Tier       string
	StartAt    time.Time
	EndAt      time.Time
	ExternalID *string
	Status     domain.Status // defaults to pending
}

type BookingService struct {
	repo  domain.ReservationRepository
	cache domain.Cache
	tiers domain.TierOrder
}

func NewBookingService(r domain.ReservationRepository, c domain.Cache, tiers domain.TierOrder) *BookingService {
	return &BookingService{repo: r, cache: c, tiers: tiers}
}

// Book resolves a suite for the requested window and commits the
// reservation. The resolver's answer is a hint: the repository's guarded
// insert is the authoritative overlap check, so a lost race comes back as
// domain.ErrConflict. We then re-resolve once against a fresh snapshot
// before reporting the window as fully booked.
func (s *BookingService) Book(ctx context.Context, req BookingRequest) (domain.Reservation, error) {
	if !req.StartAt.Before(req.EndAt) {
		observability.ObserveAssignment("invalid")
		return domain.Reservation{}, domain.ErrInvalidInterval
	}
	if req.Status == "" {
		req.Status = domain.StatusPending
	}

	res, err := s.attempt(ctx, req)
	if errors.Is(err, domain.ErrConflict) {
		observability.ObserveAssignment("conflict_retry")
		res, err = s.attempt(ctx, req)
		if errors.Is(err, domain.ErrConflict) {
			err = ErrNoCapacity
		}
	}
	switch {
	case err == nil:
		observability.ObserveAssignment("assigned")
		s.invalidateWindow(ctx, req.Tier, req.StartAt, req.EndAt)
	case errors.Is(err, ErrNoCapacity):
		observability.ObserveAssignment("no_capacity")
	}
	return res, err
}

func (s *BookingService) attempt(ctx context.Context, req BookingRequest) (domain.Reservation, error) {
	suites, err := s.repo.ListSuites(ctx, req.Tier)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("list suites: %w", err)
	}
	s.tiers.SortSuites(suites)

	ids := make([]string, 0, len(suites))
	for _, su := range suites {
		ids = append(ids, su.ID)
	}
	existing, err := s.repo.ListReservationsBySuite(ctx, ids, req.StartAt, req.EndAt)
	if err != nil {
		return domain.Reservation{}, fmt.Errorf("list reservations: %w", err)
	}

	suiteID, ok, err := domain.FindAvailableSuite(suites, req.StartAt, req.EndAt, existing)
	if err != nil {
		return domain.Reservation{}, err
	}
	if !ok {
		return domain.Reservation{}, ErrNoCapacity
	}

	res := domain.Reservation{
		ID:         uuid.NewString(),
		ExternalID: req.ExternalID,
		SuiteID:    &suiteID,
		PetID:      req.PetID,
		CustomerID: req.CustomerID,
		StartAt:    req.StartAt,
		EndAt:      req.EndAt,
		Status:     req.Status,
	}
	if err := s.repo.CreateReservation(ctx, res); err != nil {
		return domain.Reservation{}, err
	}
	return res, nil
}

// invalidateWindow drops the cached availability/conflict answers the new
// reservation could have changed. Best effort: unkeyed window variants age
// out via TTL.
func (s *BookingService) invalidateWindow(ctx context.Context, tier string, start, end time.Time) {
	if s.cache == nil {
		return
	}
	_ = s.cache.Del(ctx, availabilityKey(tier, start, end))
	_ = s.cache.Del(ctx, conflictsKey(start, end))
}

// SyncService drives the Gingr migration: page through the export API, map
// each row, and commit it through the same booking path interactive
// reservations use. Rows that cannot be placed are recorded as import
// misses for the remediation checklist rather than failing the run.
type SyncService struct {
	gingr    domain.GingrClient
	repo     domain.ReservationRepository
	booking  *BookingService
	workers  int
	pageSize int
}

func NewSyncService(g domain.GingrClient, r domain.ReservationRepository, b *BookingService, workers, pageSize int) *SyncService {
	if workers <= 0 {
		workers = 4
	}
	if pageSize <= 0 {
		pageSize = 100
	}
	return &SyncService{gingr: g, repo: r, booking: b, workers: workers, pageSize: pageSize}
}

type SyncStats struct {
	Imported int64
	Skipped  int64
	Missed   int64
	Failed   int64
}

func (s *SyncService) Run(ctx context.Context) (SyncStats, error) {
	var (
		stats SyncStats
		wg    sync.WaitGroup
		sem   = semaphore.NewWeighted(int64(s.workers))

		mu       sync.Mutex
		winStart time.Time
		winEnd   time.Time
	)

	for page := 1; ; page++ {
		rows, total, err := s.gingr.ListReservations(ctx, page, s.pageSize)
		if err != nil {
			wg.Wait()
			return stats, fmt.Errorf("list reservations page %d: %w", page, err)
		}
		if len(rows) == 0 {
			break
		}

		for _, row := range rows {
			row := row
			if err := sem.Acquire(ctx, 1); err != nil {
				wg.Wait()
				return stats, err
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer sem.Release(1)

				imp, err := s.importRow(ctx, row)
				switch {
				case err != nil:
					atomic.AddInt64(&stats.Failed, 1)
					observability.ObserveSync("failed")
					log.Warn().Err(err).Str("external_id", imp.ExternalID).Msg("import failed")
				case imp.Outcome == outcomeSkipped:
					atomic.AddInt64(&stats.Skipped, 1)
					observability.ObserveSync("skipped")
				case imp.Outcome == outcomeMissed:
					atomic.AddInt64(&stats.Missed, 1)
					observability.ObserveSync("missed")
				default:
					atomic.AddInt64(&stats.Imported, 1)
					observability.ObserveSync("imported")
					mu.Lock()
					if winStart.IsZero() || imp.StartAt.Before(winStart) {
						winStart = imp.StartAt
					}
					if imp.EndAt.After(winEnd) {
						winEnd = imp.EndAt
					}
					mu.Unlock()
				}
			}()
		}

		if page*s.pageSize >= total {
			break
		}
	}
	wg.Wait()

	if err := s.auditWindow(ctx, winStart, winEnd); err != nil {
		log.Warn().Err(err).Msg("post-import audit failed")
	}
	return stats, nil
}

type importOutcome int

const (
	outcomeImported importOutcome = iota
	outcomeSkipped
	outcomeMissed
)

type importResult struct {
	ExternalID string
	Outcome    importOutcome
	StartAt    time.Time
	EndAt      time.Time
}

func (s *SyncService) importRow(ctx context.Context, row map[string]any) (importResult, error) {
	gr := mapGingrReservation(row)
	out := importResult{ExternalID: gr.ExternalID, StartAt: gr.StartAt, EndAt: gr.EndAt}

	if gr.ExternalID == "" {
		out.Outcome = outcomeMissed
		return out, s.repo.LogImportMiss(ctx, "", "missing external id")
	}
	seen, err := s.repo.HasExternalID(ctx, gr.ExternalID)
	if err != nil {
		return out, err
	}
	if seen {
		out.Outcome = outcomeSkipped
		return out, nil
	}
	if !gr.StartAt.Before(gr.EndAt) {
		out.Outcome = outcomeMissed
		return out, s.repo.LogImportMiss(ctx, gr.ExternalID, "invalid interval")
	}

	// Non-blocking rows keep their history but never go through suite
	// assignment; they are stored without a suite.
	if !gr.Status.Blocks() {
		res := domain.Reservation{
			ID:         uuid.NewString(),
			ExternalID: &gr.ExternalID,
			PetID:      gr.PetID,
			CustomerID: gr.CustomerID,
			StartAt:    gr.StartAt,
			EndAt:      gr.EndAt,
			Status:     gr.Status,
		}
		return out, s.repo.CreateReservation(ctx, res)
	}

	_, err = s.booking.Book(ctx, BookingRequest{
		PetID:      gr.PetID,
		CustomerID: gr.CustomerID,
		Tier:       gr.Tier,
		StartAt:    gr.StartAt,
		EndAt:      gr.EndAt,
		ExternalID: &gr.ExternalID,
		Status:     gr.Status,
	})
	switch {
	case errors.Is(err, ErrNoCapacity):
		out.Outcome = outcomeMissed
		return out, s.repo.LogImportMiss(ctx, gr.ExternalID, "no suite available")
	case errors.Is(err, domain.ErrInvalidInterval):
		out.Outcome = outcomeMissed
		return out, s.repo.LogImportMiss(ctx, gr.ExternalID, "invalid interval")
	case err != nil:
		return out, err
	}
	return out, nil
}

// auditWindow re-checks the no-overlap invariant over everything the run
// touched, the way the old distribution-check scripts did after a batch.
func (s *SyncService) auditWindow(ctx context.Context, start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return nil
	}
	all, err := s.repo.ListReservationsInWindow(ctx, start, end)
	if err != nil {
		return err
	}
	conflicts := domain.ValidateNoOverlaps(all)
	for _, c := range conflicts {
		log.Warn().
			Str("suite_id", derefStr(c.A.SuiteID)).
			Str("first", c.A.ID).
			Str("second", c.B.ID).
			Time("first_start", c.A.StartAt).
			Time("second_start", c.B.StartAt).
			Msg("overlap detected after import")
	}
	if len(conflicts) == 0 {
		log.Info().Msg("post-import audit clean")
	}
	return nil
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
