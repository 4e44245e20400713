package teams

import (
	"errors"
	"time"

	"github.com/vaultgate/vaultgate/pkg/access"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrEmailTaken is returned when a signup reuses an existing email
	ErrEmailTaken = errors.New("email already registered")

	// ErrInviteConsumed is returned when an invite has already been accepted
	ErrInviteConsumed = errors.New("invite already accepted")
)

// Team is a tenant. Every user belongs to exactly one team.
type Team struct {
	ID        int64
	Name      string
	CreatedAt time.Time
}

// User is an account identified by email
type User struct {
	ID        int64
	Email     string
	CreatedAt time.Time
}

// Profile binds a user to a team with a role. EmailVerifiedAt is nil until
// the user confirms their address; AcceptedTermsAt is set at signup.
type Profile struct {
	ID              int64
	UserID          int64
	TeamID          int64
	Email           string
	Name            string
	Role            access.Role
	RecoveryKey     string
	EmailVerifiedAt *time.Time
	AcceptedTermsAt *time.Time
	CreatedAt       time.Time
}

// Collaborator reports whether the profile holds the collaborator role
func (p *Profile) Collaborator() bool {
	return p.Role == access.RoleCollaborator
}

// Invite is an outstanding offer to join a team. The role is fixed when the
// invite is sent; accepting it cannot escalate. An unaccepted invite counts
// against the team's seat headroom.
type Invite struct {
	UID        string
	TeamID     int64
	Email      string
	Role       access.Role
	SentAt     time.Time
	AcceptedAt *time.Time
}

// Pending reports whether the invite has not been accepted yet
func (i *Invite) Pending() bool {
	return i.AcceptedAt == nil
}

// EmailVerification is a one-time token mailed to a user to confirm their
// address. Expired rows are swept by a background job.
type EmailVerification struct {
	UID       string
	UserID    int64
	ExpiresAt time.Time
	CreatedAt time.Time
}

// Expired reports whether the verification is past its expiry
func (v *EmailVerification) Expired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// Project is a unit of team work that consumes a project slot and storage
type Project struct {
	UID       string
	TeamID    int64
	Name      string
	SizeBytes int64
	CreatedAt time.Time
}
