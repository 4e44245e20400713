package teams

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/vaultgate/vaultgate/pkg/access"
)

// uniqueViolation is the Postgres error code for duplicate keys
const uniqueViolation = "23505"

// PostgresStore implements Store backed by PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed store
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CreateTeam inserts a new team
func (s *PostgresStore) CreateTeam(ctx context.Context, name string) (*Team, error) {
	team := &Team{Name: name}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO teams (name, created_at) VALUES ($1, NOW()) RETURNING id, created_at`,
		name,
	).Scan(&team.ID, &team.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create team: %w", err)
	}
	return team, nil
}

// GetTeam retrieves a team by id
func (s *PostgresStore) GetTeam(ctx context.Context, id int64) (*Team, error) {
	team := &Team{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM teams WHERE id = $1`,
		id,
	).Scan(&team.ID, &team.Name, &team.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team %d: %w", id, err)
	}
	return team, nil
}

// CreateUser inserts a new user account. Returns ErrEmailTaken when the
// email is already registered.
func (s *PostgresStore) CreateUser(ctx context.Context, email string) (*User, error) {
	user := &User{Email: email}
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO users (email, created_at) VALUES ($1, NOW()) RETURNING id, created_at`,
		email,
	).Scan(&user.ID, &user.CreatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
		return nil, ErrEmailTaken
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// GetUser retrieves a user by id
func (s *PostgresStore) GetUser(ctx context.Context, id int64) (*User, error) {
	user := &User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM users WHERE id = $1`,
		id,
	).Scan(&user.ID, &user.Email, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return user, nil
}

// GetUserByEmail retrieves a user by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	user := &User{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.Email, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// CreateProfile inserts a profile binding a user to a team
func (s *PostgresStore) CreateProfile(ctx context.Context, profile *Profile) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO profiles (user_id, team_id, email, name, role, recovery_key, email_verified_at, accepted_terms_at, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW()) RETURNING id, created_at`,
		profile.UserID, profile.TeamID, profile.Email, profile.Name, string(profile.Role),
		profile.RecoveryKey, profile.EmailVerifiedAt, profile.AcceptedTermsAt,
	).Scan(&profile.ID, &profile.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create profile for user %d: %w", profile.UserID, err)
	}
	return nil
}

// GetProfile retrieves the profile for a user
func (s *PostgresStore) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	profile := &Profile{}
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, team_id, email, name, role, recovery_key, email_verified_at, accepted_terms_at, created_at
		 FROM profiles WHERE user_id = $1`,
		userID,
	).Scan(&profile.ID, &profile.UserID, &profile.TeamID, &profile.Email, &profile.Name,
		&role, &profile.RecoveryKey, &profile.EmailVerifiedAt, &profile.AcceptedTermsAt, &profile.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile for user %d: %w", userID, err)
	}
	profile.Role = access.Role(role)
	return profile, nil
}

// ListTeamProfiles retrieves every profile in a team
func (s *PostgresStore) ListTeamProfiles(ctx context.Context, teamID int64) ([]*Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, team_id, email, name, role, recovery_key, email_verified_at, accepted_terms_at, created_at
		 FROM profiles WHERE team_id = $1 ORDER BY created_at`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles for team %d: %w", teamID, err)
	}
	defer rows.Close()

	var profiles []*Profile
	for rows.Next() {
		profile := &Profile{}
		var role string
		if err := rows.Scan(&profile.ID, &profile.UserID, &profile.TeamID, &profile.Email, &profile.Name,
			&role, &profile.RecoveryKey, &profile.EmailVerifiedAt, &profile.AcceptedTermsAt, &profile.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profile.Role = access.Role(role)
		profiles = append(profiles, profile)
	}
	return profiles, rows.Err()
}

// MarkEmailVerified records email confirmation for a user. Safe to call
// again for an already verified profile.
func (s *PostgresStore) MarkEmailVerified(ctx context.Context, userID int64, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE profiles SET email_verified_at = COALESCE(email_verified_at, $2) WHERE user_id = $1`,
		userID, at,
	)
	if err != nil {
		return fmt.Errorf("failed to mark email verified for user %d: %w", userID, err)
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

// CreateInvite inserts a pending invite
func (s *PostgresStore) CreateInvite(ctx context.Context, invite *Invite) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO invites (uid, team_id, email, role, sent_at) VALUES ($1, $2, $3, $4, $5)`,
		invite.UID, invite.TeamID, invite.Email, string(invite.Role), invite.SentAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create invite: %w", err)
	}
	return nil
}

// GetInvite retrieves an invite by uid
func (s *PostgresStore) GetInvite(ctx context.Context, uid string) (*Invite, error) {
	invite := &Invite{}
	var role string
	err := s.db.QueryRowContext(ctx,
		`SELECT uid, team_id, email, role, sent_at, accepted_at FROM invites WHERE uid = $1`,
		uid,
	).Scan(&invite.UID, &invite.TeamID, &invite.Email, &role, &invite.SentAt, &invite.AcceptedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get invite: %w", err)
	}
	invite.Role = access.Role(role)
	return invite, nil
}

// ConsumeInvite marks an invite accepted. The accepted_at guard makes this
// a single-winner operation under concurrent acceptance.
func (s *PostgresStore) ConsumeInvite(ctx context.Context, uid string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE invites SET accepted_at = $2 WHERE uid = $1 AND accepted_at IS NULL`,
		uid, at,
	)
	if err != nil {
		return fmt.Errorf("failed to consume invite: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.GetInvite(ctx, uid); getErr != nil {
			return getErr
		}
		return ErrInviteConsumed
	}
	return nil
}

// ListPendingInvites retrieves the unaccepted invites for a team
func (s *PostgresStore) ListPendingInvites(ctx context.Context, teamID int64) ([]*Invite, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT uid, team_id, email, role, sent_at, accepted_at FROM invites
		 WHERE team_id = $1 AND accepted_at IS NULL ORDER BY sent_at`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list invites for team %d: %w", teamID, err)
	}
	defer rows.Close()

	var invites []*Invite
	for rows.Next() {
		invite := &Invite{}
		var role string
		if err := rows.Scan(&invite.UID, &invite.TeamID, &invite.Email, &role, &invite.SentAt, &invite.AcceptedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invite: %w", err)
		}
		invite.Role = access.Role(role)
		invites = append(invites, invite)
	}
	return invites, rows.Err()
}

// CreateVerification inserts an email verification token
func (s *PostgresStore) CreateVerification(ctx context.Context, verification *EmailVerification) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO email_verifications (uid, user_id, expires_at, created_at) VALUES ($1, $2, $3, NOW())`,
		verification.UID, verification.UserID, verification.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create verification: %w", err)
	}
	return nil
}

// GetVerification retrieves a verification token by uid
func (s *PostgresStore) GetVerification(ctx context.Context, uid string) (*EmailVerification, error) {
	verification := &EmailVerification{}
	err := s.db.QueryRowContext(ctx,
		`SELECT uid, user_id, expires_at, created_at FROM email_verifications WHERE uid = $1`,
		uid,
	).Scan(&verification.UID, &verification.UserID, &verification.ExpiresAt, &verification.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}
	return verification, nil
}

// DeleteVerification removes a verification token
func (s *PostgresStore) DeleteVerification(ctx context.Context, uid string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM email_verifications WHERE uid = $1`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete verification: %w", err)
	}
	return nil
}

// DeleteExpiredVerifications removes tokens past their expiry and returns
// the number of rows swept.
func (s *PostgresStore) DeleteExpiredVerifications(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM email_verifications WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired verifications: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return affected, nil
}

// CreateProject inserts a project
func (s *PostgresStore) CreateProject(ctx context.Context, project *Project) error {
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO projects (uid, team_id, name, size_bytes, created_at) VALUES ($1, $2, $3, $4, NOW()) RETURNING created_at`,
		project.UID, project.TeamID, project.Name, project.SizeBytes,
	).Scan(&project.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}
	return nil
}

// GetProject retrieves a project by uid
func (s *PostgresStore) GetProject(ctx context.Context, uid string) (*Project, error) {
	project := &Project{}
	err := s.db.QueryRowContext(ctx,
		`SELECT uid, team_id, name, size_bytes, created_at FROM projects WHERE uid = $1`,
		uid,
	).Scan(&project.UID, &project.TeamID, &project.Name, &project.SizeBytes, &project.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}
	return project, nil
}

// ListProjects retrieves a team's projects
func (s *PostgresStore) ListProjects(ctx context.Context, teamID int64) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT uid, team_id, name, size_bytes, created_at FROM projects WHERE team_id = $1 ORDER BY created_at`,
		teamID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects for team %d: %w", teamID, err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		project := &Project{}
		if err := rows.Scan(&project.UID, &project.TeamID, &project.Name, &project.SizeBytes, &project.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// ListAllProjects retrieves every project across all teams. Used by the
// storage reconciliation sweep.
func (s *PostgresStore) ListAllProjects(ctx context.Context) ([]*Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT uid, team_id, name, size_bytes, created_at FROM projects ORDER BY created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	var projects []*Project
	for rows.Next() {
		project := &Project{}
		if err := rows.Scan(&project.UID, &project.TeamID, &project.Name, &project.SizeBytes, &project.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// SetProjectSize records the stored size of a project
func (s *PostgresStore) SetProjectSize(ctx context.Context, uid string, sizeBytes int64) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE projects SET size_bytes = $2 WHERE uid = $1`,
		uid, sizeBytes,
	)
	if err != nil {
		return fmt.Errorf("failed to set project size: %w", err)
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

// CreateToken stores an API token digest for a user
func (s *PostgresStore) CreateToken(ctx context.Context, userID int64, tokenHash string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO tokens (user_id, token_hash, created_at) VALUES ($1, $2, NOW())`,
		userID, tokenHash,
	)
	if err != nil {
		return fmt.Errorf("failed to create token: %w", err)
	}
	return nil
}

// CountTeams returns the total number of teams
func (s *PostgresStore) CountTeams(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM teams`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count teams: %w", err)
	}
	return count, nil
}

// CountProjects returns the total number of projects
func (s *PostgresStore) CountProjects(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return count, nil
}

// LookupToken resolves a token digest to a user id
func (s *PostgresStore) LookupToken(ctx context.Context, tokenHash string) (int64, error) {
	var userID int64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id FROM tokens WHERE token_hash = $1`,
		tokenHash,
	).Scan(&userID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to lookup token: %w", err)
	}
	return userID, nil
}
