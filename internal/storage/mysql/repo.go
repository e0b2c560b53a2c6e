package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"tailtown/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) ListSuites(ctx context.Context, tier string) ([]domain.Suite, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if tier == "" {
		rows, err = r.db.QueryContext(ctx, listSuitesSQL)
	} else {
		rows, err = r.db.QueryContext(ctx, listSuitesByTierSQL, tier)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Suite
	for rows.Next() {
		var s domain.Suite
		var maint string
		if err := rows.Scan(&s.ID, &s.Name, &s.Tier, &s.Number, &s.Capacity, &maint); err != nil {
			return nil, err
		}
		s.Maintenance = domain.MaintenanceState(maint)
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repo) ListReservationsBySuite(ctx context.Context, suiteIDs []string, start, end time.Time) (map[string][]domain.Reservation, error) {
	out := make(map[string][]domain.Reservation, len(suiteIDs))
	if len(suiteIDs) == 0 {
		return out, nil
	}

	ph := strings.TrimSuffix(strings.Repeat("?,", len(suiteIDs)), ",")
	args := make([]any, 0, len(suiteIDs)+2)
	for _, id := range suiteIDs {
		args = append(args, id)
	}
	args = append(args, end, start)

	rows, err := r.db.QueryContext(ctx, fmt.Sprintf(listBySuitePrefix, ph), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		if res.SuiteID != nil {
			out[*res.SuiteID] = append(out[*res.SuiteID], res)
		}
	}
	return out, rows.Err()
}

func (r *Repo) ListReservationsInWindow(ctx context.Context, start, end time.Time) ([]domain.Reservation, error) {
	rows, err := r.db.QueryContext(ctx, listWindowSQL, end, start)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// CreateReservation persists a reservation. Blocking rows with a suite go
// through the guarded insert inside a transaction that first locks the
// suite row, so two racing bookings for the same suite serialize and the
// loser gets domain.ErrConflict. Non-blocking rows (cancelled/checked-out
// history from imports) insert plainly.
func (r *Repo) CreateReservation(ctx context.Context, res domain.Reservation) error {
	if res.SuiteID == nil || !res.Status.Blocks() {
		_, err := r.db.ExecContext(ctx, insertPlainSQL,
			res.ID, valStr(res.ExternalID), valStr(res.SuiteID),
			res.PetID, res.CustomerID, res.StartAt, res.EndAt, string(res.Status))
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var suiteID string
	if err := tx.QueryRowContext(ctx, lockSuiteSQL, *res.SuiteID).Scan(&suiteID); err != nil {
		if err == sql.ErrNoRows {
			return domain.ErrNotFound
		}
		return err
	}

	result, err := tx.ExecContext(ctx, insertGuardedSQL,
		res.ID, valStr(res.ExternalID), *res.SuiteID,
		res.PetID, res.CustomerID, res.StartAt, res.EndAt, string(res.Status),
		*res.SuiteID, res.EndAt, res.StartAt)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrConflict
	}
	return tx.Commit()
}

func (r *Repo) HasExternalID(ctx context.Context, externalID string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, hasExternalIDSQL, externalID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (r *Repo) LogImportMiss(ctx context.Context, externalID, reason string) error {
	_, err := r.db.ExecContext(ctx, insertMissSQL, externalID, reason)
	return err
}

func scanReservation(rows *sql.Rows) (domain.Reservation, error) {
	var res domain.Reservation
	var extID, suiteID sql.NullString
	var status string
	if err := rows.Scan(
		&res.ID, &extID, &suiteID,
		&res.PetID, &res.CustomerID,
		&res.StartAt, &res.EndAt, &status,
	); err != nil {
		return domain.Reservation{}, err
	}
	if extID.Valid {
		s := extID.String
		res.ExternalID = &s
	}
	if suiteID.Valid {
		s := suiteID.String
		res.SuiteID = &s
	}
	res.Status = domain.Status(status)
	return res, nil
}
