package domain

import (
	"context"
	"time"
)

type ReservationRepository interface {
	// Write paths
	CreateReservation(ctx context.Context, r Reservation) error
	LogImportMiss(ctx context.Context, externalID, reason string) error

	// Read paths
	ListSuites(ctx context.Context, tier string) ([]Suite, error)
	ListReservationsBySuite(ctx context.Context, suiteIDs []string, start, end time.Time) (map[string][]Reservation, error)
	ListReservationsInWindow(ctx context.Context, start, end time.Time) ([]Reservation, error)
	HasExternalID(ctx context.Context, externalID string) (bool, error)
}

type GingrClient interface {
	ListReservations(ctx context.Context, page, limit int) ([]map[string]any, int, error)
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}

// Read models & queries

type AvailabilityView struct {
	Tier      string
	StartAt   time.Time
	EndAt     time.Time
	Available bool
	SuiteID   *string
	SuiteName *string
}

type ConflictView struct {
	SuiteID    string
	FirstID    string
	SecondID   string
	FirstSpan  [2]time.Time
	SecondSpan [2]time.Time
}

type ConflictReport struct {
	StartAt time.Time
	EndAt   time.Time
	Items   []ConflictView
}
