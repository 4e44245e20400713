package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schemaStatements are applied in order and are idempotent
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS tokens (
		token_hash TEXT PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_tokens_user_id ON tokens(user_id)`,
	`CREATE TABLE IF NOT EXISTS teams (
		id BIGSERIAL PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS entitlements (
		team_id BIGINT PRIMARY KEY REFERENCES teams(id) ON DELETE CASCADE,
		tier_id BIGINT NOT NULL,
		status TEXT NOT NULL,
		customer_id TEXT NOT NULL DEFAULT '',
		trial_end TIMESTAMPTZ,
		current_period_start TIMESTAMPTZ NOT NULL,
		renewal_date TIMESTAMPTZ,
		cancel_date TIMESTAMPTZ,
		extra_users INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_entitlements_trialing
		ON entitlements(trial_end) WHERE status = 'trialing'`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		email TEXT NOT NULL,
		name TEXT NOT NULL DEFAULT '',
		role TEXT NOT NULL,
		recovery_key TEXT NOT NULL DEFAULT '',
		email_verified_at TIMESTAMPTZ,
		accepted_terms_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_profiles_team_id ON profiles(team_id)`,
	`CREATE TABLE IF NOT EXISTS invites (
		uid TEXT PRIMARY KEY,
		team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		email TEXT NOT NULL,
		role TEXT NOT NULL,
		sent_at TIMESTAMPTZ NOT NULL,
		accepted_at TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS idx_invites_team_pending
		ON invites(team_id) WHERE accepted_at IS NULL`,
	`CREATE TABLE IF NOT EXISTS email_verifications (
		uid TEXT PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at TIMESTAMPTZ NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_email_verifications_expires_at
		ON email_verifications(expires_at)`,
	`CREATE TABLE IF NOT EXISTS projects (
		uid TEXT PRIMARY KEY,
		team_id BIGINT NOT NULL REFERENCES teams(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		size_bytes BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_projects_team_id ON projects(team_id)`,
}

// EnsureSchema creates the tables and indexes if they do not exist
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema statement: %w", err)
		}
	}
	return nil
}
