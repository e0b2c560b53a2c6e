package app_test

import (
	"context"
	"testing"
	"time"

	"tailtown/internal/app"
	"tailtown/internal/domain"
)

type fakeCache struct {
	store map[string]any
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *domain.AvailabilityView:
		*d = v.(domain.AvailabilityView)
	case *domain.ConflictReport:
		*d = v.(domain.ConflictReport)
	}
	return true, nil
}
func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string]any{}
	}
	c.store[key] = v
	return nil
}
func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

func TestAvailability_CacheMissThenHit(t *testing.T) {
	repo := &fakeRepo{suites: []domain.Suite{stdSuite("S1", 1)}}
	cache := &fakeCache{}
	q := app.NewQueryService(repo, cache, 10*time.Minute, tiers)

	// Miss (first time, populates cache)
	view, err := q.Availability(context.Background(), "standard", day(1), day(3))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !view.Available || view.SuiteID == nil || *view.SuiteID != "S1" {
		t.Fatalf("unexpected view: %+v", view)
	}

	// Occupy the suite behind the cache; second read must still come from cache
	s1 := "S1"
	repo.mu.Lock()
	repo.reservations = append(repo.reservations, domain.Reservation{
		ID: "r1", SuiteID: &s1, StartAt: day(1), EndAt: day(3), Status: domain.StatusConfirmed,
	})
	repo.mu.Unlock()

	view2, err := q.Availability(context.Background(), "standard", day(1), day(3))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if !view2.Available {
		t.Fatalf("expected cached answer, got %+v", view2)
	}
}

func TestAvailability_InvalidInterval(t *testing.T) {
	q := app.NewQueryService(&fakeRepo{}, &fakeCache{}, time.Minute, tiers)
	if _, err := q.Availability(context.Background(), "standard", day(3), day(3)); err == nil {
		t.Fatalf("expected error for empty window")
	}
}

func TestConflicts_ReportsPairs(t *testing.T) {
	repo := &fakeRepo{}
	s1, s2 := "S1", "S2"
	repo.reservations = []domain.Reservation{
		{ID: "R1", SuiteID: &s1, StartAt: day(1), EndAt: day(4), Status: domain.StatusConfirmed},
		{ID: "R2", SuiteID: &s1, StartAt: day(3), EndAt: day(6), Status: domain.StatusConfirmed},
		{ID: "R3", SuiteID: &s2, StartAt: day(1), EndAt: day(4), Status: domain.StatusConfirmed},
	}
	q := app.NewQueryService(repo, &fakeCache{}, time.Minute, tiers)

	report, err := q.Conflicts(context.Background(), day(1), day(10))
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if len(report.Items) != 1 {
		t.Fatalf("expected 1 conflict, got %+v", report.Items)
	}
	got := report.Items[0]
	if got.SuiteID != "S1" || got.FirstID != "R1" || got.SecondID != "R2" {
		t.Fatalf("unexpected conflict: %+v", got)
	}
}
