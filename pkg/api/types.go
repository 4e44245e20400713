package api

import (
	"time"

	"github.com/vaultgate/vaultgate/pkg/billing"
	"github.com/vaultgate/vaultgate/pkg/entitlement"
	"github.com/vaultgate/vaultgate/pkg/teams"
	"github.com/vaultgate/vaultgate/pkg/tiers"
)

// signupRequest is the POST /user payload. TeamID is advisory: when an
// invite is consumed the joined team always comes from the invite record.
type signupRequest struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	TeamID        int64  `json:"team_id"`
	TeamName      string `json:"team_name"`
	InviteID      string `json:"invite_id"`
	RecoveryKey   string `json:"recovery_key"`
	AcceptedTerms bool   `json:"accepted_terms_and_conditions"`
}

// signupResponse is returned once on successful registration. The token is
// not retrievable again.
type signupResponse struct {
	UserID          int64  `json:"user_id"`
	TeamID          int64  `json:"team_id"`
	Token           string `json:"token"`
	VerificationUID string `json:"verification_uid"`
}

// planResponse describes the team's current subscription. Dates are unix
// seconds; trial_end is null outside a trial.
type planResponse struct {
	TierID             int64  `json:"tier_id"`
	TrialEnd           *int64 `json:"trial_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
}

func newPlanResponse(plan *billing.PlanInfo) planResponse {
	resp := planResponse{
		TierID:             plan.TierID,
		CurrentPeriodStart: plan.CurrentPeriodStart.Unix(),
	}
	if plan.TrialEnd != nil {
		end := plan.TrialEnd.Unix()
		resp.TrialEnd = &end
	}
	return resp
}

// limitsResponse pairs tier limits with current usage. Null limits mean
// unlimited; users_limit includes purchased add-on seats.
type limitsResponse struct {
	HasBilling         bool   `json:"has_billing"`
	TierName           string `json:"tier_name"`
	TierID             int64  `json:"tier_id"`
	UsersLimit         *int   `json:"users_limit"`
	ProjectsLimit      *int   `json:"projects_limit"`
	CollaboratorsLimit *int   `json:"collaborators_limit"`
	Users              int    `json:"users"`
	Projects           int    `json:"projects"`
	Collaborators      int    `json:"collaborators"`
	StorageMB          int64  `json:"storage"`
	StorageIncludedMB  int64  `json:"storage_included_limit"`
}

func newLimitsResponse(limits *billing.LimitsInfo) limitsResponse {
	return limitsResponse{
		HasBilling:         limits.HasBilling,
		TierName:           limits.TierName,
		TierID:             limits.TierID,
		UsersLimit:         limits.UsersLimit,
		ProjectsLimit:      limits.ProjectsLimit,
		CollaboratorsLimit: limits.CollaboratorsLimit,
		Users:              limits.Users,
		Projects:           limits.Projects,
		Collaborators:      limits.Collaborators,
		StorageMB:          limits.StorageMB,
		StorageIncludedMB:  limits.StorageIncludedMB,
	}
}

// addOnPriceResponse is the per-seat add-on price for the caller's tier
type addOnPriceResponse struct {
	UserPriceCents int64 `json:"user_price_cents"`
}

// switchTierRequest is the POST /billing/plan payload
type switchTierRequest struct {
	TierID int64 `json:"tier_id"`
}

// switchTierResponse confirms the new tier after a plan switch
type switchTierResponse struct {
	TierID int64 `json:"tier_id"`
}

// invoicesResponse wraps the invoice history
type invoicesResponse struct {
	Invoices []entitlement.Invoice `json:"invoices"`
}

// purchaseAddOnRequest is the POST /billing/addon payload
type purchaseAddOnRequest struct {
	Users int `json:"users"`
}

// entitlementResponse reflects the entitlement after an add-on purchase
type entitlementResponse struct {
	TierID     int64  `json:"tier_id"`
	Status     string `json:"status"`
	ExtraUsers int    `json:"extra_users"`
}

// inviteRequest is the payload for both invite endpoints
type inviteRequest struct {
	Email string `json:"email"`
}

// inviteResponse describes a sent invite
type inviteResponse struct {
	ID     string    `json:"id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
	SentAt time.Time `json:"sent_at"`
}

func newInviteResponse(invite *teams.Invite) inviteResponse {
	return inviteResponse{
		ID:     invite.UID,
		Email:  invite.Email,
		Role:   string(invite.Role),
		SentAt: invite.SentAt,
	}
}

// memberResponse describes a team member
type memberResponse struct {
	UserID        int64  `json:"user_id"`
	Email         string `json:"email"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"email_verified"`
}

func newMemberResponse(profile *teams.Profile) memberResponse {
	return memberResponse{
		UserID:        profile.UserID,
		Email:         profile.Email,
		Name:          profile.Name,
		Role:          string(profile.Role),
		EmailVerified: profile.EmailVerifiedAt != nil,
	}
}

// teamResponse is the team with membership and outstanding invites
type teamResponse struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Profiles       []memberResponse `json:"profiles"`
	PendingInvites []inviteResponse `json:"pending_invites"`
}

func newTeamResponse(info *billing.TeamInfo) teamResponse {
	resp := teamResponse{
		ID:             info.Team.ID,
		Name:           info.Team.Name,
		Profiles:       make([]memberResponse, 0, len(info.Members)),
		PendingInvites: make([]inviteResponse, 0, len(info.PendingInvites)),
	}
	for _, m := range info.Members {
		resp.Profiles = append(resp.Profiles, newMemberResponse(m))
	}
	for _, inv := range info.PendingInvites {
		resp.PendingInvites = append(resp.PendingInvites, newInviteResponse(inv))
	}
	return resp
}

// createProjectRequest is the POST /project payload
type createProjectRequest struct {
	Name string `json:"name"`
}

// projectResponse describes a project
type projectResponse struct {
	UID       string    `json:"uid"`
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

func newProjectResponse(project *teams.Project) projectResponse {
	return projectResponse{
		UID:       project.UID,
		Name:      project.Name,
		SizeBytes: project.SizeBytes,
		CreatedAt: project.CreatedAt,
	}
}

// tierResponse is a catalog entry. Null limits mean unlimited.
type tierResponse struct {
	ID                  int64  `json:"id"`
	Name                string `json:"name"`
	UsersLimit          *int   `json:"users_limit"`
	ProjectsLimit       *int   `json:"projects_limit"`
	CollaboratorsLimit  *int   `json:"collaborators_limit"`
	StorageIncludedMB   int64  `json:"storage_included_limit"`
	PriceCents          int64  `json:"price_cents"`
	AddOnUserPriceCents *int64 `json:"addon_user_price_cents,omitempty"`
}

func newTierResponse(tier *tiers.Tier) tierResponse {
	return tierResponse{
		ID:                  tier.ID,
		Name:                tier.Name,
		UsersLimit:          tier.UsersLimit,
		ProjectsLimit:       tier.ProjectsLimit,
		CollaboratorsLimit:  tier.CollaboratorsLimit,
		StorageIncludedMB:   tier.StorageIncludedMB,
		PriceCents:          tier.PriceCents,
		AddOnUserPriceCents: tier.AddOnUserPriceCents,
	}
}
