package teams

import (
	"context"
	"time"
)

// Store is the persistence interface for teams and membership
type Store interface {
	// Teams
	CreateTeam(ctx context.Context, name string) (*Team, error)
	GetTeam(ctx context.Context, id int64) (*Team, error)

	// Users
	CreateUser(ctx context.Context, email string) (*User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)

	// Profiles
	CreateProfile(ctx context.Context, profile *Profile) error
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	ListTeamProfiles(ctx context.Context, teamID int64) ([]*Profile, error)
	MarkEmailVerified(ctx context.Context, userID int64, at time.Time) error

	// Invites
	CreateInvite(ctx context.Context, invite *Invite) error
	GetInvite(ctx context.Context, uid string) (*Invite, error)
	ConsumeInvite(ctx context.Context, uid string, at time.Time) error
	ListPendingInvites(ctx context.Context, teamID int64) ([]*Invite, error)

	// Email verifications
	CreateVerification(ctx context.Context, verification *EmailVerification) error
	GetVerification(ctx context.Context, uid string) (*EmailVerification, error)
	DeleteVerification(ctx context.Context, uid string) error
	DeleteExpiredVerifications(ctx context.Context, now time.Time) (int64, error)

	// Projects
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, uid string) (*Project, error)
	ListProjects(ctx context.Context, teamID int64) ([]*Project, error)
	ListAllProjects(ctx context.Context) ([]*Project, error)
	SetProjectSize(ctx context.Context, uid string, sizeBytes int64) error

	// API tokens, stored as SHA-256 digests of the opaque value
	CreateToken(ctx context.Context, userID int64, tokenHash string) error
	LookupToken(ctx context.Context, tokenHash string) (int64, error)

	// Aggregates for the stats gauges
	CountTeams(ctx context.Context) (int64, error)
	CountProjects(ctx context.Context) (int64, error)
}
