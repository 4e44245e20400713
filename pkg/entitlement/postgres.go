package entitlement

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// PostgresStore implements Store backed by PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Create inserts an entitlement record for a team
func (s *PostgresStore) Create(ctx context.Context, ent *Entitlement) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO entitlements (team_id, tier_id, status, customer_id, trial_end, current_period_start, renewal_date, cancel_date, extra_users, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()) RETURNING created_at, updated_at`,
		ent.TeamID, ent.TierID, string(ent.Status), ent.CustomerID,
		ent.TrialEnd, ent.CurrentPeriodStart, ent.RenewalDate, ent.CancelDate, ent.ExtraUsers,
	).Scan(&ent.CreatedAt, &ent.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create entitlement for team %d: %w", ent.TeamID, err)
	}
	return nil
}

// Get retrieves the entitlement for a team
func (s *PostgresStore) Get(ctx context.Context, teamID int64) (*Entitlement, error) {
	ent := &Entitlement{}
	var status string
	err := s.db.QueryRowContext(ctx,
		`SELECT team_id, tier_id, status, customer_id, trial_end, current_period_start, renewal_date, cancel_date, extra_users, created_at, updated_at
		 FROM entitlements WHERE team_id = $1`,
		teamID,
	).Scan(&ent.TeamID, &ent.TierID, &status, &ent.CustomerID,
		&ent.TrialEnd, &ent.CurrentPeriodStart, &ent.RenewalDate, &ent.CancelDate,
		&ent.ExtraUsers, &ent.CreatedAt, &ent.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get entitlement for team %d: %w", teamID, err)
	}
	ent.Status = Status(status)
	return ent, nil
}

// Update persists changes to an entitlement
func (s *PostgresStore) Update(ctx context.Context, ent *Entitlement) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE entitlements
		 SET tier_id = $2, status = $3, customer_id = $4, trial_end = $5, current_period_start = $6,
		     renewal_date = $7, cancel_date = $8, extra_users = $9, updated_at = NOW()
		 WHERE team_id = $1`,
		ent.TeamID, ent.TierID, string(ent.Status), ent.CustomerID,
		ent.TrialEnd, ent.CurrentPeriodStart, ent.RenewalDate, ent.CancelDate, ent.ExtraUsers,
	)
	if err != nil {
		return fmt.Errorf("failed to update entitlement for team %d: %w", ent.TeamID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListExpiredTrials returns trialing entitlements past their trial end
func (s *PostgresStore) ListExpiredTrials(ctx context.Context, before time.Time) ([]*Entitlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT team_id, tier_id, status, customer_id, trial_end, current_period_start, renewal_date, cancel_date, extra_users, created_at, updated_at
		 FROM entitlements WHERE status = 'trialing' AND trial_end IS NOT NULL AND trial_end < $1`,
		before,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired trials: %w", err)
	}
	defer rows.Close()

	var ents []*Entitlement
	for rows.Next() {
		ent := &Entitlement{}
		var status string
		if err := rows.Scan(&ent.TeamID, &ent.TierID, &status, &ent.CustomerID,
			&ent.TrialEnd, &ent.CurrentPeriodStart, &ent.RenewalDate, &ent.CancelDate,
			&ent.ExtraUsers, &ent.CreatedAt, &ent.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entitlement: %w", err)
		}
		ent.Status = Status(status)
		ents = append(ents, ent)
	}
	return ents, rows.Err()
}
