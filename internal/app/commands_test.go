package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"tailtown/internal/app"
	"tailtown/internal/domain"
)

// ---- fakes ----

type fakeRepo struct {
	mu            sync.Mutex
	suites        []domain.Suite
	reservations  []domain.Reservation
	misses        map[string]string
	conflictsLeft int // CreateReservation fails with ErrConflict while > 0
}

func (f *fakeRepo) ListSuites(ctx context.Context, tier string) ([]domain.Suite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Suite
	for _, s := range f.suites {
		if tier == "" || s.Tier == tier {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListReservationsBySuite(ctx context.Context, suiteIDs []string, start, end time.Time) (map[string][]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]domain.Reservation)
	want := make(map[string]bool, len(suiteIDs))
	for _, id := range suiteIDs {
		want[id] = true
	}
	for _, r := range f.reservations {
		if r.SuiteID == nil || !want[*r.SuiteID] || !r.Status.Blocks() {
			continue
		}
		if domain.Overlaps(start, end, r.StartAt, r.EndAt) {
			out[*r.SuiteID] = append(out[*r.SuiteID], r)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListReservationsInWindow(ctx context.Context, start, end time.Time) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reservation
	for _, r := range f.reservations {
		if domain.Overlaps(start, end, r.StartAt, r.EndAt) {
			out = append(out, r)
		}
	}
	return out, nil
}

// CreateReservation mirrors the real repository's guarded-insert contract:
// a blocking row landing on an occupied suite comes back as ErrConflict.
func (f *fakeRepo) CreateReservation(ctx context.Context, r domain.Reservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r.SuiteID != nil && r.Status.Blocks() {
		if f.conflictsLeft > 0 {
			f.conflictsLeft--
			return domain.ErrConflict
		}
		for _, have := range f.reservations {
			if have.SuiteID == nil || *have.SuiteID != *r.SuiteID || !have.Status.Blocks() {
				continue
			}
			if domain.Overlaps(r.StartAt, r.EndAt, have.StartAt, have.EndAt) {
				return domain.ErrConflict
			}
		}
	}
	f.reservations = append(f.reservations, r)
	return nil
}

func (f *fakeRepo) HasExternalID(ctx context.Context, externalID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.reservations {
		if r.ExternalID != nil && *r.ExternalID == externalID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) LogImportMiss(ctx context.Context, externalID, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.misses == nil {
		f.misses = map[string]string{}
	}
	f.misses[externalID] = reason
	return nil
}

type fakeGingr struct {
	rows []map[string]any
}

func (g *fakeGingr) ListReservations(ctx context.Context, page, limit int) ([]map[string]any, int, error) {
	if page > 1 {
		return nil, len(g.rows), nil
	}
	return g.rows, len(g.rows), nil
}

// ---- helpers ----

func day(d int) time.Time { return time.Date(2026, 2, d, 0, 0, 0, 0, time.UTC) }

func stdSuite(id string, n int) domain.Suite {
	return domain.Suite{ID: id, Name: id, Tier: "standard", Number: n, Capacity: 1, Maintenance: domain.MaintenanceAvailable}
}

var tiers = domain.ParseTierOrder("vip,standard_plus,standard")

// ---- booking tests ----

func TestBook_AssignsFirstFreeSuite(t *testing.T) {
	repo := &fakeRepo{suites: []domain.Suite{stdSuite("S1", 1), stdSuite("S2", 2)}}
	s1 := "S1"
	repo.reservations = []domain.Reservation{
		{ID: "r0", SuiteID: &s1, StartAt: day(1), EndAt: day(3), Status: domain.StatusConfirmed},
	}
	b := app.NewBookingService(repo, nil, tiers)

	res, err := b.Book(context.Background(), app.BookingRequest{
		PetID: "p1", CustomerID: "c1", Tier: "standard", StartAt: day(2), EndAt: day(4),
	})
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if res.SuiteID == nil || *res.SuiteID != "S2" {
		t.Fatalf("expected S2, got %+v", res.SuiteID)
	}
	if res.Status != domain.StatusPending {
		t.Fatalf("expected pending default, got %s", res.Status)
	}
}

func TestBook_RetriesOnceAfterLostRace(t *testing.T) {
	repo := &fakeRepo{suites: []domain.Suite{stdSuite("S1", 1)}, conflictsLeft: 1}
	b := app.NewBookingService(repo, nil, tiers)

	res, err := b.Book(context.Background(), app.BookingRequest{
		PetID: "p1", CustomerID: "c1", Tier: "standard", StartAt: day(1), EndAt: day(3),
	})
	if err != nil {
		t.Fatalf("expected retry to succeed, got %v", err)
	}
	if res.SuiteID == nil || *res.SuiteID != "S1" {
		t.Fatalf("unexpected suite: %+v", res.SuiteID)
	}
}

func TestBook_SecondConflictReadsAsNoCapacity(t *testing.T) {
	repo := &fakeRepo{suites: []domain.Suite{stdSuite("S1", 1)}, conflictsLeft: 2}
	b := app.NewBookingService(repo, nil, tiers)

	_, err := b.Book(context.Background(), app.BookingRequest{
		PetID: "p1", CustomerID: "c1", Tier: "standard", StartAt: day(1), EndAt: day(3),
	})
	if !errors.Is(err, app.ErrNoCapacity) {
		t.Fatalf("expected ErrNoCapacity, got %v", err)
	}
}

func TestBook_FullyBooked(t *testing.T) {
	repo := &fakeRepo{suites: []domain.Suite{stdSuite("S1", 1)}}
	s1 := "S1"
	repo.reservations = []domain.Reservation{
		{ID: "r0", SuiteID: &s1, StartAt: day(1), EndAt: day(5), Status: domain.StatusCheckedIn},
	}
	b := app.NewBookingService(repo, nil, tiers)

	_, err := b.Book(context.Background(), app.BookingRequest{
		PetID: "p1", CustomerID: "c1", Tier: "standard", StartAt: day(2), EndAt: day(4),
	})
	if !errors.Is(err, app.ErrNoCapacity) {
		t.Fatalf("expected ErrNoCapacity, got %v", err)
	}
}

func TestBook_InvalidInterval(t *testing.T) {
	repo := &fakeRepo{suites: []domain.Suite{stdSuite("S1", 1)}}
	b := app.NewBookingService(repo, nil, tiers)

	_, err := b.Book(context.Background(), app.BookingRequest{
		PetID: "p1", CustomerID: "c1", Tier: "standard", StartAt: day(4), EndAt: day(4),
	})
	if !errors.Is(err, domain.ErrInvalidInterval) {
		t.Fatalf("expected ErrInvalidInterval, got %v", err)
	}
}

// ---- sync tests ----

func TestSyncRun_ImportsSkipsAndMisses(t *testing.T) {
	repo := &fakeRepo{suites: []domain.Suite{stdSuite("S1", 1)}}
	seen := "already-there"
	repo.reservations = []domain.Reservation{
		{ID: "r0", ExternalID: &seen, StartAt: day(1), EndAt: day(2), Status: domain.StatusCheckedOut},
	}
	b := app.NewBookingService(repo, nil, tiers)

	g := &fakeGingr{rows: []map[string]any{
		{"id": "g-1", "start_date": "2026-02-01", "end_date": "2026-02-03", "status": "confirmed", "animal_id": 7.0, "owner_id": 8.0, "type": "standard"},
		{"id": "already-there", "start_date": "2026-02-01", "end_date": "2026-02-02", "status": "confirmed"},
		{"id": "g-bad", "start_date": "2026-02-05", "end_date": "2026-02-05", "status": "confirmed"},
		{"id": "g-cancelled", "start_date": "2026-02-01", "end_date": "2026-02-04", "status": "cancelled"},
	}}
	sync := app.NewSyncService(g, repo, b, 2, 10)

	stats, err := sync.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Imported != 2 { // g-1 assigned, g-cancelled stored without suite
		t.Fatalf("imported = %d, want 2 (stats %+v)", stats.Imported, stats)
	}
	if stats.Skipped != 1 || stats.Missed != 1 || stats.Failed != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if repo.misses["g-bad"] != "invalid interval" {
		t.Fatalf("expected invalid interval miss, got %+v", repo.misses)
	}

	// cancelled history must not hold a suite
	for _, r := range repo.reservations {
		if r.ExternalID != nil && *r.ExternalID == "g-cancelled" {
			if r.SuiteID != nil {
				t.Fatalf("cancelled import should have no suite: %+v", r)
			}
			if r.Status != domain.StatusCancelled {
				t.Fatalf("unexpected status: %s", r.Status)
			}
		}
	}
}

func TestSyncRun_NoCapacityBecomesMiss(t *testing.T) {
	repo := &fakeRepo{suites: []domain.Suite{stdSuite("S1", 1)}}
	s1 := "S1"
	repo.reservations = []domain.Reservation{
		{ID: "r0", SuiteID: &s1, StartAt: day(1), EndAt: day(10), Status: domain.StatusConfirmed},
	}
	b := app.NewBookingService(repo, nil, tiers)

	g := &fakeGingr{rows: []map[string]any{
		{"id": "g-2", "start_date": "2026-02-02", "end_date": "2026-02-04", "status": "confirmed"},
	}}
	sync := app.NewSyncService(g, repo, b, 1, 10)

	stats, err := sync.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if stats.Missed != 1 || stats.Imported != 0 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if repo.misses["g-2"] != "no suite available" {
		t.Fatalf("expected capacity miss, got %+v", repo.misses)
	}
}

func TestSyncRun_IdempotentRerun(t *testing.T) {
	repo := &fakeRepo{suites: []domain.Suite{stdSuite("S1", 1), stdSuite("S2", 2)}}
	b := app.NewBookingService(repo, nil, tiers)
	g := &fakeGingr{rows: []map[string]any{
		{"id": "g-10", "start_date": "2026-02-01", "end_date": "2026-02-03", "status": "confirmed"},
		{"id": "g-11", "start_date": "2026-02-02", "end_date": "2026-02-05", "status": "confirmed"},
	}}
	sync := app.NewSyncService(g, repo, b, 2, 10)

	if _, err := sync.Run(context.Background()); err != nil {
		t.Fatalf("first run: %v", err)
	}
	stats, err := sync.Run(context.Background())
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	if stats.Imported != 0 || stats.Skipped != 2 {
		t.Fatalf("rerun should skip everything: %+v", stats)
	}
	if got := len(repo.reservations); got != 2 {
		t.Fatalf("expected 2 stored rows, got %d", got)
	}
	if conflicts := domain.ValidateNoOverlaps(repo.reservations); len(conflicts) != 0 {
		t.Fatalf("sync produced overlaps: %+v", conflicts)
	}
}
