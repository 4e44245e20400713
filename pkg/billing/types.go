package billing

import (
	"time"

	"github.com/vaultgate/vaultgate/pkg/teams"
)

// PlanInfo describes a team's current subscription
type PlanInfo struct {
	TierID             int64
	TrialEnd           *time.Time
	CurrentPeriodStart time.Time
}

// LimitsInfo is the full limits-and-usage picture for a team. Limit fields
// are nil for unlimited. UsersLimit includes purchased add-on seats.
type LimitsInfo struct {
	HasBilling         bool
	TierName           string
	TierID             int64
	UsersLimit         *int
	ProjectsLimit      *int
	CollaboratorsLimit *int
	Users              int
	Projects           int
	Collaborators      int
	StorageMB          int64
	StorageIncludedMB  int64
}

// TeamInfo is a team with its membership and outstanding invites
type TeamInfo struct {
	Team           *teams.Team
	Members        []*teams.Profile
	PendingInvites []*teams.Invite
}

// SignupRequest carries a new account registration
type SignupRequest struct {
	Email         string
	Name          string
	TeamName      string
	InviteUID     string
	RecoveryKey   string
	AcceptedTerms bool
}

// SignupResult is the outcome of a successful signup. Token is the opaque
// API token, returned exactly once.
type SignupResult struct {
	UserID          int64
	TeamID          int64
	Token           string
	VerificationUID string
}
