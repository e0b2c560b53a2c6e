package app

import (
	"context"
	"fmt"
	"time"

	"tailtown/internal/domain"
)

type QueryService struct {
	repo     domain.ReservationRepository
	cache    domain.Cache
	cacheTTL time.Duration
	tiers    domain.TierOrder
}

func NewQueryService(r domain.ReservationRepository, c domain.Cache, ttl time.Duration, tiers domain.TierOrder) *QueryService {
	return &QueryService{repo: r, cache: c, cacheTTL: ttl, tiers: tiers}
}

func availabilityKey(tier string, start, end time.Time) string {
	return fmt.Sprintf("avail:%s:%d:%d", tier, start.Unix(), end.Unix())
}

func conflictsKey(start, end time.Time) string {
	return fmt.Sprintf("conflicts:%d:%d", start.Unix(), end.Unix())
}

// Availability answers "is any suite of this tier free for the window, and
// which one would we hand out". Cached answers are hints only: the guarded
// insert re-checks at booking time.
func (s *QueryService) Availability(ctx context.Context, tier string, start, end time.Time) (domain.AvailabilityView, error) {
	if !start.Before(end) {
		return domain.AvailabilityView{}, domain.ErrInvalidInterval
	}

	key := availabilityKey(tier, start, end)
	var cached domain.AvailabilityView
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	suites, err := s.repo.ListSuites(ctx, tier)
	if err != nil {
		return domain.AvailabilityView{}, err
	}
	s.tiers.SortSuites(suites)

	ids := make([]string, 0, len(suites))
	for _, su := range suites {
		ids = append(ids, su.ID)
	}
	existing, err := s.repo.ListReservationsBySuite(ctx, ids, start, end)
	if err != nil {
		return domain.AvailabilityView{}, err
	}

	suiteID, ok, err := domain.FindAvailableSuite(suites, start, end, existing)
	if err != nil {
		return domain.AvailabilityView{}, err
	}

	view := domain.AvailabilityView{Tier: tier, StartAt: start, EndAt: end, Available: ok}
	if ok {
		view.SuiteID = &suiteID
		for _, su := range suites {
			if su.ID == suiteID {
				name := su.Name
				view.SuiteName = &name
				break
			}
		}
	}

	_ = s.cache.Set(ctx, key, view, int(s.cacheTTL.Seconds()))
	return view, nil
}

// Conflicts runs the batch audit over a window and reports every violating
// pair, for the post-import remediation view.
func (s *QueryService) Conflicts(ctx context.Context, start, end time.Time) (domain.ConflictReport, error) {
	if !start.Before(end) {
		return domain.ConflictReport{}, domain.ErrInvalidInterval
	}

	key := conflictsKey(start, end)
	var cached domain.ConflictReport
	if ok, _ := s.cache.Get(ctx, key, &cached); ok {
		return cached, nil
	}

	all, err := s.repo.ListReservationsInWindow(ctx, start, end)
	if err != nil {
		return domain.ConflictReport{}, err
	}

	report := domain.ConflictReport{StartAt: start, EndAt: end}
	for _, c := range domain.ValidateNoOverlaps(all) {
		report.Items = append(report.Items, domain.ConflictView{
			SuiteID:    derefStr(c.A.SuiteID),
			FirstID:    c.A.ID,
			SecondID:   c.B.ID,
			FirstSpan:  [2]time.Time{c.A.StartAt, c.A.EndAt},
			SecondSpan: [2]time.Time{c.B.StartAt, c.B.EndAt},
		})
	}

	_ = s.cache.Set(ctx, key, report, int(s.cacheTTL.Seconds()))
	return report, nil
}
