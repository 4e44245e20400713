package billing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/vaultgate/vaultgate/pkg/access"
	"github.com/vaultgate/vaultgate/pkg/auth"
	"github.com/vaultgate/vaultgate/pkg/blobstore"
	"github.com/vaultgate/vaultgate/pkg/entitlement"
	"github.com/vaultgate/vaultgate/pkg/notify"
	"github.com/vaultgate/vaultgate/pkg/observability"
	"github.com/vaultgate/vaultgate/pkg/quota"
	"github.com/vaultgate/vaultgate/pkg/teams"
	"github.com/vaultgate/vaultgate/pkg/tiers"
	"github.com/vaultgate/vaultgate/pkg/usage"
)

// Config wires the orchestrator's dependencies
type Config struct {
	Teams        teams.Store
	Entitlements entitlement.Store
	Counter      usage.Counter
	Gateway      entitlement.PaymentGateway
	Catalog      *tiers.Catalog
	Notifier     notify.Notifier
	Blobs        blobstore.Store
	Metrics      *observability.Metrics

	// TrialDays is the free trial length for new teams
	TrialDays int
	// VerificationTTL is how long email verification links stay valid
	VerificationTTL time.Duration
	// Now is overridable for tests
	Now func() time.Time
}

// Orchestrator executes every entitlement-changing operation. Mutations for
// a team are serialized by a per-team lock so the snapshot-admit-commit
// sequence is atomic with respect to other mutations of the same team.
type Orchestrator struct {
	teams    teams.Store
	ents     entitlement.Store
	counter  usage.Counter
	gateway  entitlement.PaymentGateway
	catalog  *tiers.Catalog
	enforcer *quota.Enforcer
	notifier notify.Notifier
	blobs    blobstore.Store
	metrics  *observability.Metrics

	locks           *keyedMutex
	trialDays       int
	verificationTTL time.Duration
	now             func() time.Time
}

// New creates an orchestrator
func New(cfg Config) *Orchestrator {
	if cfg.TrialDays <= 0 {
		cfg.TrialDays = 14
	}
	if cfg.VerificationTTL <= 0 {
		cfg.VerificationTTL = 24 * time.Hour
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Notifier == nil {
		cfg.Notifier = notify.NewLogNotifier(nil)
	}
	return &Orchestrator{
		teams:           cfg.Teams,
		ents:            cfg.Entitlements,
		counter:         cfg.Counter,
		gateway:         cfg.Gateway,
		catalog:         cfg.Catalog,
		enforcer:        quota.NewEnforcer(cfg.Catalog),
		notifier:        cfg.Notifier,
		blobs:           cfg.Blobs,
		metrics:         cfg.Metrics,
		locks:           newKeyedMutex(),
		trialDays:       cfg.TrialDays,
		verificationTTL: cfg.VerificationTTL,
		now:             cfg.Now,
	}
}

func (o *Orchestrator) requireAccess(principal *auth.Principal, op access.Operation) error {
	if principal == nil || !principal.HasProfile {
		return NewError(KindForbidden, MsgCollaboratorDenied)
	}
	if !access.Allowed(principal.Role, op) {
		return NewError(KindForbidden, MsgCollaboratorDenied)
	}
	return nil
}

func (o *Orchestrator) getEntitlement(ctx context.Context, teamID int64) (*entitlement.Entitlement, error) {
	ent, err := o.ents.Get(ctx, teamID)
	if errors.Is(err, entitlement.ErrNotFound) {
		return nil, NewError(KindNotFound, "Subscription not found")
	}
	if err != nil {
		return nil, err
	}
	return ent, nil
}

func (o *Orchestrator) observeAdmission(action quota.Action, decision quota.Decision, start time.Time) {
	if o.metrics != nil {
		o.metrics.ObserveAdmission(action.Name(), decision.Approved, string(decision.Reason), time.Since(start))
	}
}

// Plan returns the team's current subscription
func (o *Orchestrator) Plan(ctx context.Context, principal *auth.Principal) (*PlanInfo, error) {
	if err := o.requireAccess(principal, access.OpViewBilling); err != nil {
		return nil, err
	}
	ent, err := o.getEntitlement(ctx, principal.TeamID)
	if err != nil {
		return nil, err
	}
	return &PlanInfo{
		TierID:             ent.TierID,
		TrialEnd:           ent.TrialEnd,
		CurrentPeriodStart: ent.CurrentPeriodStart,
	}, nil
}

// Invoices returns the team's invoices. Teams still on trial without a
// gateway customer get a synthesized zero invoice so clients always see a
// billing history.
func (o *Orchestrator) Invoices(ctx context.Context, principal *auth.Principal) ([]entitlement.Invoice, error) {
	if err := o.requireAccess(principal, access.OpViewBilling); err != nil {
		return nil, err
	}
	ent, err := o.getEntitlement(ctx, principal.TeamID)
	if err != nil {
		return nil, err
	}

	if ent.CustomerID == "" {
		if ent.Trialing() {
			return []entitlement.Invoice{{AmountDue: 0, Paid: true}}, nil
		}
		return []entitlement.Invoice{}, nil
	}

	invoices, err := o.gateway.ListInvoices(ctx, ent.CustomerID)
	if errors.Is(err, entitlement.ErrGatewayUnavailable) {
		return nil, NewError(KindGatewayUnavailable, "Billing is temporarily unavailable")
	}
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

// Limits returns the team's tier limits alongside current usage
func (o *Orchestrator) Limits(ctx context.Context, principal *auth.Principal) (*LimitsInfo, error) {
	if err := o.requireAccess(principal, access.OpViewBilling); err != nil {
		return nil, err
	}
	ent, err := o.getEntitlement(ctx, principal.TeamID)
	if err != nil {
		return nil, err
	}
	tier, err := o.catalog.Get(ent.TierID)
	if err != nil {
		return nil, err
	}
	counts, err := o.counter.Snapshot(ctx, principal.TeamID)
	if err != nil {
		return nil, err
	}

	info := &LimitsInfo{
		HasBilling:         ent.CustomerID != "",
		TierName:           tier.Name,
		TierID:             tier.ID,
		ProjectsLimit:      tier.ProjectsLimit,
		CollaboratorsLimit: tier.CollaboratorsLimit,
		Users:              counts.Users,
		Projects:           counts.Projects,
		Collaborators:      counts.Collaborators,
		StorageMB:          counts.StorageMB(),
		StorageIncludedMB:  tier.StorageIncludedMB,
	}
	if allowance, limited := tier.UsersAllowance(ent.ExtraUsers); limited {
		info.UsersLimit = &allowance
	}
	return info, nil
}

// AddOnPrices returns the per-seat add-on price for the team's tier
func (o *Orchestrator) AddOnPrices(ctx context.Context, principal *auth.Principal) (int64, error) {
	if err := o.requireAccess(principal, access.OpViewBilling); err != nil {
		return 0, err
	}
	ent, err := o.getEntitlement(ctx, principal.TeamID)
	if err != nil {
		return 0, err
	}
	tier, err := o.catalog.Get(ent.TierID)
	if err != nil {
		return 0, err
	}
	if tier.AddOnUserPriceCents == nil {
		return 0, NewError(KindNotEntitled, "Add-ons are not available on this plan")
	}
	return *tier.AddOnUserPriceCents, nil
}

// Team returns the caller's team with members and pending invites
func (o *Orchestrator) Team(ctx context.Context, principal *auth.Principal) (*TeamInfo, error) {
	if err := o.requireAccess(principal, access.OpViewTeam); err != nil {
		return nil, err
	}
	team, err := o.teams.GetTeam(ctx, principal.TeamID)
	if err != nil {
		return nil, err
	}
	members, err := o.teams.ListTeamProfiles(ctx, principal.TeamID)
	if err != nil {
		return nil, err
	}
	invites, err := o.teams.ListPendingInvites(ctx, principal.TeamID)
	if err != nil {
		return nil, err
	}
	return &TeamInfo{Team: team, Members: members, PendingInvites: invites}, nil
}

// Profile returns the caller's own profile. Available to every role.
func (o *Orchestrator) Profile(ctx context.Context, principal *auth.Principal) (*teams.Profile, error) {
	if principal == nil {
		return nil, NewError(KindForbidden, MsgCollaboratorDenied)
	}
	profile, err := o.teams.GetProfile(ctx, principal.UserID)
	if errors.Is(err, teams.ErrNotFound) {
		return nil, NewError(KindNotFound, "Profile not found")
	}
	return profile, err
}

// Projects returns the caller's team projects. Available to every role so
// collaborators can see what they work on.
func (o *Orchestrator) Projects(ctx context.Context, principal *auth.Principal) ([]*teams.Project, error) {
	if principal == nil || !principal.HasProfile {
		return nil, NewError(KindForbidden, MsgCollaboratorDenied)
	}
	return o.teams.ListProjects(ctx, principal.TeamID)
}

func (o *Orchestrator) invite(ctx context.Context, principal *auth.Principal, email string, role access.Role, action quota.Action, limitMsg string) (*teams.Invite, error) {
	unlock := o.locks.lock(principal.TeamID)
	defer unlock()

	start := o.now()
	ent, err := o.getEntitlement(ctx, principal.TeamID)
	if err != nil {
		return nil, err
	}
	counts, err := o.counter.Snapshot(ctx, principal.TeamID)
	if err != nil {
		return nil, err
	}
	decision, err := o.enforcer.Admit(ent, counts, action, false)
	if err != nil {
		return nil, err
	}
	o.observeAdmission(action, decision, start)
	if !decision.Approved {
		return nil, NewError(KindLimitReached, limitMsg)
	}

	invite := &teams.Invite{
		UID:    uuid.NewString(),
		TeamID: principal.TeamID,
		Email:  email,
		Role:   role,
		SentAt: o.now(),
	}
	if err := o.teams.CreateInvite(ctx, invite); err != nil {
		return nil, err
	}

	if err := o.notifier.SendInviteEmail(ctx, email, invite.UID, role); err != nil {
		// The invite stands even when delivery fails; the uid can be resent.
		observability.FromContext(ctx).WithError(err).WithField("invite_uid", invite.UID).
			Warn("invite email delivery failed")
	}
	return invite, nil
}

// InviteUser invites a new member, reserving a seat while the invite is
// outstanding.
func (o *Orchestrator) InviteUser(ctx context.Context, principal *auth.Principal, email string) (*teams.Invite, error) {
	if err := o.requireAccess(principal, access.OpInviteUser); err != nil {
		return nil, err
	}
	return o.invite(ctx, principal, email, access.RoleMember, quota.InviteUser{}, MsgUserLimitReached)
}

// InviteCollaborator invites a new collaborator
func (o *Orchestrator) InviteCollaborator(ctx context.Context, principal *auth.Principal, email string) (*teams.Invite, error) {
	if err := o.requireAccess(principal, access.OpInviteCollaborator); err != nil {
		return nil, err
	}
	return o.invite(ctx, principal, email, access.RoleCollaborator, quota.InviteCollaborator{}, MsgCollabLimitReached)
}

// CreateProject creates a project, optionally with an initial payload. The
// payload is staged to the blob store before the admission check and
// removed again if the project is rejected.
func (o *Orchestrator) CreateProject(ctx context.Context, principal *auth.Principal, name string, payload io.Reader) (*teams.Project, error) {
	if err := o.requireAccess(principal, access.OpCreateProject); err != nil {
		return nil, err
	}

	projectUID := uuid.NewString()
	var size int64
	if payload != nil && o.blobs != nil {
		written, err := o.blobs.Put(ctx, projectUID, payload)
		if err != nil {
			return nil, fmt.Errorf("failed to stage project payload: %w", err)
		}
		size = written
	}

	unlock := o.locks.lock(principal.TeamID)
	start := o.now()
	project, err := func() (*teams.Project, error) {
		defer unlock()
		ent, err := o.getEntitlement(ctx, principal.TeamID)
		if err != nil {
			return nil, err
		}
		counts, err := o.counter.Snapshot(ctx, principal.TeamID)
		if err != nil {
			return nil, err
		}
		decision, err := o.enforcer.Admit(ent, counts, quota.CreateProject{}, false)
		if err != nil {
			return nil, err
		}
		o.observeAdmission(quota.CreateProject{}, decision, start)
		if !decision.Approved {
			return nil, NewError(KindLimitReached, MsgProjectLimitReached)
		}

		project := &teams.Project{
			UID:       projectUID,
			TeamID:    principal.TeamID,
			Name:      name,
			SizeBytes: size,
		}
		if err := o.teams.CreateProject(ctx, project); err != nil {
			return nil, err
		}
		return project, nil
	}()
	if err != nil && size > 0 {
		if delErr := o.blobs.Delete(ctx, projectUID); delErr != nil {
			observability.FromContext(ctx).WithError(delErr).WithField("project_uid", projectUID).
				Warn("failed to remove staged payload after rejected project")
		}
	}
	return project, err
}

// UploadProject replaces a project's payload. Storage is billed, never
// blocked, so no admission check applies.
func (o *Orchestrator) UploadProject(ctx context.Context, principal *auth.Principal, projectUID string, payload io.Reader) (*teams.Project, error) {
	if err := o.requireAccess(principal, access.OpCreateProject); err != nil {
		return nil, err
	}
	project, err := o.teams.GetProject(ctx, projectUID)
	if errors.Is(err, teams.ErrNotFound) {
		return nil, NewError(KindNotFound, "Project not found")
	}
	if err != nil {
		return nil, err
	}
	if project.TeamID != principal.TeamID {
		return nil, NewError(KindNotFound, "Project not found")
	}

	size, err := o.blobs.Put(ctx, projectUID, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to store project payload: %w", err)
	}
	if err := o.teams.SetProjectSize(ctx, projectUID, size); err != nil {
		return nil, err
	}
	project.SizeBytes = size
	return project, nil
}

// hasPaymentMethod asks the gateway whether the team can be charged. Teams
// without a gateway customer cannot.
func (o *Orchestrator) hasPaymentMethod(ctx context.Context, ent *entitlement.Entitlement) (bool, error) {
	if ent.CustomerID == "" {
		return false, nil
	}
	has, err := o.gateway.HasPaymentMethod(ctx, ent.CustomerID)
	if errors.Is(err, entitlement.ErrGatewayUnavailable) {
		return false, NewError(KindGatewayUnavailable, "Billing is temporarily unavailable")
	}
	if err != nil {
		return false, err
	}
	return has, nil
}

// SwitchTier moves the team to another tier. The payment method check runs
// outside the team lock; the admission decision inside it re-reads the
// entitlement and usage so the commit matches what was admitted.
func (o *Orchestrator) SwitchTier(ctx context.Context, principal *auth.Principal, targetTierID int64) (*PlanInfo, error) {
	if err := o.requireAccess(principal, access.OpSwitchTier); err != nil {
		return nil, err
	}
	target, err := o.catalog.Get(targetTierID)
	if err != nil {
		return nil, NewError(KindNotFound, "Tier not found")
	}

	ent, err := o.getEntitlement(ctx, principal.TeamID)
	if err != nil {
		return nil, err
	}
	hasPM := false
	if !target.Free() {
		hasPM, err = o.hasPaymentMethod(ctx, ent)
		if err != nil {
			return nil, err
		}
	}

	unlock := o.locks.lock(principal.TeamID)
	defer unlock()

	start := o.now()
	ent, err = o.getEntitlement(ctx, principal.TeamID)
	if err != nil {
		return nil, err
	}
	counts, err := o.counter.Snapshot(ctx, principal.TeamID)
	if err != nil {
		return nil, err
	}
	action := quota.SwitchTier{TargetTierID: targetTierID}
	decision, err := o.enforcer.Admit(ent, counts, action, hasPM)
	if err != nil {
		return nil, err
	}
	o.observeAdmission(action, decision, start)
	if !decision.Approved {
		switch decision.Reason {
		case quota.ReasonNoPaymentMethod:
			return nil, NewError(KindNoPaymentMethod, MsgNoPaymentMethod)
		case quota.ReasonTooManyUsers:
			return nil, NewError(KindTooManyUsers, MsgTooManyUsers)
		default:
			return nil, NewError(KindLimitReached, MsgTooManyUsers)
		}
	}

	now := o.now()
	ent.TierID = targetTierID
	if target.Free() {
		// Downgrading to the free tier drops paid extras but does not end
		// a running trial.
		ent.ExtraUsers = 0
		ent.RenewalDate = nil
	} else {
		ent.Status = entitlement.StatusActive
		ent.TrialEnd = nil
		ent.CurrentPeriodStart = now
		renewal := now.AddDate(0, 1, 0)
		ent.RenewalDate = &renewal
		ent.CancelDate = nil
	}
	if err := o.ents.Update(ctx, ent); err != nil {
		return nil, err
	}
	return &PlanInfo{TierID: ent.TierID, TrialEnd: ent.TrialEnd, CurrentPeriodStart: ent.CurrentPeriodStart}, nil
}

// PurchaseAddOn buys extra user seats on top of the tier allowance
func (o *Orchestrator) PurchaseAddOn(ctx context.Context, principal *auth.Principal, extraUsers int) (*entitlement.Entitlement, error) {
	if err := o.requireAccess(principal, access.OpPurchaseAddOn); err != nil {
		return nil, err
	}
	if extraUsers <= 0 {
		return nil, NewError(KindConflict, "Extra user count must be positive")
	}

	ent, err := o.getEntitlement(ctx, principal.TeamID)
	if err != nil {
		return nil, err
	}
	tier, err := o.catalog.Get(ent.TierID)
	if err != nil {
		return nil, err
	}
	if tier.AddOnUserPriceCents == nil {
		return nil, NewError(KindNotEntitled, "Add-ons are not available on this plan")
	}

	hasPM, err := o.hasPaymentMethod(ctx, ent)
	if err != nil {
		return nil, err
	}

	unlock := o.locks.lock(principal.TeamID)
	defer unlock()

	start := o.now()
	ent, err = o.getEntitlement(ctx, principal.TeamID)
	if err != nil {
		return nil, err
	}
	counts, err := o.counter.Snapshot(ctx, principal.TeamID)
	if err != nil {
		return nil, err
	}
	action := quota.PurchaseAddOn{ExtraUsers: extraUsers}
	decision, err := o.enforcer.Admit(ent, counts, action, hasPM)
	if err != nil {
		return nil, err
	}
	o.observeAdmission(action, decision, start)
	if !decision.Approved {
		return nil, NewError(KindNoPaymentMethod, MsgNoPaymentMethod)
	}

	amount := *tier.AddOnUserPriceCents * int64(extraUsers)
	if err := o.gateway.Charge(ctx, ent.CustomerID, amount, fmt.Sprintf("%d extra user seats", extraUsers)); err != nil {
		if errors.Is(err, entitlement.ErrGatewayUnavailable) {
			return nil, NewError(KindGatewayUnavailable, "Billing is temporarily unavailable")
		}
		return nil, err
	}

	ent.ExtraUsers += extraUsers
	if err := o.ents.Update(ctx, ent); err != nil {
		return nil, err
	}
	return ent, nil
}

// Cancel ends a paid subscription and lands the team on the free tier. The
// team must fit the free tier's allowances for the cancel to be admitted.
func (o *Orchestrator) Cancel(ctx context.Context, principal *auth.Principal) (*PlanInfo, error) {
	if err := o.requireAccess(principal, access.OpCancelSubscription); err != nil {
		return nil, err
	}

	unlock := o.locks.lock(principal.TeamID)
	defer unlock()

	ent, err := o.getEntitlement(ctx, principal.TeamID)
	if err != nil {
		return nil, err
	}
	tier, err := o.catalog.Get(ent.TierID)
	if err != nil {
		return nil, err
	}
	if !ent.Active() || tier.Free() {
		return nil, NewError(KindNoActiveSubscription, MsgNoSubscription)
	}

	start := o.now()
	counts, err := o.counter.Snapshot(ctx, principal.TeamID)
	if err != nil {
		return nil, err
	}
	action := quota.SwitchTier{TargetTierID: tiers.CommunityTierID}
	decision, err := o.enforcer.Admit(ent, counts, action, false)
	if err != nil {
		return nil, err
	}
	o.observeAdmission(action, decision, start)
	if !decision.Approved {
		return nil, NewError(KindTooManyUsers, MsgTooManyUsers)
	}

	now := o.now()
	ent.TierID = tiers.CommunityTierID
	ent.Status = entitlement.StatusCanceled
	ent.ExtraUsers = 0
	ent.CancelDate = &now
	ent.RenewalDate = nil
	if err := o.ents.Update(ctx, ent); err != nil {
		return nil, err
	}
	return &PlanInfo{TierID: ent.TierID, TrialEnd: ent.TrialEnd, CurrentPeriodStart: ent.CurrentPeriodStart}, nil
}

// Signup registers a new account. Without an invite it creates a team with
// a trial entitlement; with an invite it joins the inviting team in the
// role fixed when the invite was sent.
func (o *Orchestrator) Signup(ctx context.Context, req SignupRequest) (*SignupResult, error) {
	if !req.AcceptedTerms {
		return nil, NewError(KindTermsNotAccepted, MsgTermsNotAccepted)
	}

	now := o.now()
	acceptedAt := now

	var invite *teams.Invite
	if req.InviteUID != "" {
		var err error
		invite, err = o.teams.GetInvite(ctx, req.InviteUID)
		if errors.Is(err, teams.ErrNotFound) {
			return nil, NewError(KindNotFound, "Invite not found")
		}
		if err != nil {
			return nil, err
		}
		if !invite.Pending() {
			return nil, NewError(KindConflict, "Invite already used")
		}
	}

	user, err := o.teams.CreateUser(ctx, req.Email)
	if errors.Is(err, teams.ErrEmailTaken) {
		return nil, NewError(KindConflict, MsgUserExists)
	}
	if err != nil {
		return nil, err
	}

	var teamID int64

	newProfile := func(teamID int64, role access.Role) *teams.Profile {
		return &teams.Profile{
			UserID:          user.ID,
			TeamID:          teamID,
			Email:           req.Email,
			Name:            req.Name,
			Role:            role,
			RecoveryKey:     req.RecoveryKey,
			AcceptedTermsAt: &acceptedAt,
		}
	}

	if invite != nil {
		teamID = invite.TeamID
		unlock := o.locks.lock(invite.TeamID)
		err = func() error {
			defer unlock()
			// Single winner: a second signup racing on the same invite
			// fails here before any profile is created. The profile commit
			// stays under the team lock so a concurrent invite admission
			// cannot snapshot the team with the seat neither reserved by
			// the pending invite nor held by the profile.
			if err := o.teams.ConsumeInvite(ctx, invite.UID, now); err != nil {
				if errors.Is(err, teams.ErrInviteConsumed) {
					return NewError(KindConflict, "Invite already used")
				}
				return err
			}
			return o.teams.CreateProfile(ctx, newProfile(invite.TeamID, invite.Role))
		}()
		if err != nil {
			return nil, err
		}
	} else {
		teamName := req.TeamName
		if teamName == "" {
			teamName = req.Email
		}
		team, err := o.teams.CreateTeam(ctx, teamName)
		if err != nil {
			return nil, err
		}
		teamID = team.ID

		trialEnd := now.AddDate(0, 0, o.trialDays)
		if err := o.ents.Create(ctx, &entitlement.Entitlement{
			TeamID:             teamID,
			TierID:             tiers.TrialTierID,
			Status:             entitlement.StatusTrialing,
			TrialEnd:           &trialEnd,
			CurrentPeriodStart: now,
		}); err != nil {
			return nil, err
		}

		if err := o.teams.CreateProfile(ctx, newProfile(teamID, access.RoleOwner)); err != nil {
			return nil, err
		}
	}

	token, tokenHash, err := auth.GenerateToken()
	if err != nil {
		return nil, err
	}
	if err := o.teams.CreateToken(ctx, user.ID, tokenHash); err != nil {
		return nil, err
	}

	verification := &teams.EmailVerification{
		UID:       uuid.NewString(),
		UserID:    user.ID,
		ExpiresAt: now.Add(o.verificationTTL),
	}
	if err := o.teams.CreateVerification(ctx, verification); err != nil {
		return nil, err
	}
	if err := o.notifier.SendVerificationEmail(ctx, req.Email, verification.UID); err != nil {
		observability.FromContext(ctx).WithError(err).WithField("user_id", user.ID).
			Warn("verification email delivery failed")
	}

	return &SignupResult{
		UserID:          user.ID,
		TeamID:          teamID,
		Token:           token,
		VerificationUID: verification.UID,
	}, nil
}

// VerifyEmail confirms a user's email address. Verifying an already
// verified address succeeds without changing the original timestamp.
func (o *Orchestrator) VerifyEmail(ctx context.Context, uid string) error {
	verification, err := o.teams.GetVerification(ctx, uid)
	if errors.Is(err, teams.ErrNotFound) {
		return NewError(KindNotFound, "Verification not found")
	}
	if err != nil {
		return err
	}
	now := o.now()
	if verification.Expired(now) {
		return NewError(KindNotFound, "Verification not found")
	}
	if err := o.teams.MarkEmailVerified(ctx, verification.UserID, now); err != nil {
		return err
	}
	return nil
}

// HandleCheckoutEvent applies a verified gateway webhook to the matching
// entitlement. A completed checkout attaches the gateway customer and
// activates the subscription; payment method checks stay false until this
// lands. Events for unknown teams are acknowledged so the gateway stops
// retrying them.
func (o *Orchestrator) HandleCheckoutEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := o.gateway.VerifyWebhook(payload, signature)
	if err != nil {
		if errors.Is(err, entitlement.ErrInvalidSignature) {
			return NewError(KindForbidden, "Invalid webhook signature")
		}
		return err
	}
	log := observability.FromContext(ctx).WithFields(map[string]interface{}{
		"event_type":  event.Type,
		"customer_id": event.CustomerID,
		"team_id":     event.TeamID,
	})
	log.Info("checkout event received")

	if event.Type != entitlement.EventCheckoutCompleted || event.TeamID == 0 {
		return nil
	}

	unlock := o.locks.lock(event.TeamID)
	defer unlock()

	ent, err := o.ents.Get(ctx, event.TeamID)
	if errors.Is(err, entitlement.ErrNotFound) {
		log.Warn("checkout event for unknown team dropped")
		return nil
	}
	if err != nil {
		return err
	}

	ent.CustomerID = event.CustomerID
	ent.Status = entitlement.StatusActive
	ent.TrialEnd = nil
	ent.CancelDate = nil
	if event.PeriodStart > 0 {
		ent.CurrentPeriodStart = time.Unix(event.PeriodStart, 0).UTC()
	}
	if event.PeriodEnd > 0 {
		renewal := time.Unix(event.PeriodEnd, 0).UTC()
		ent.RenewalDate = &renewal
	}
	if err := o.ents.Update(ctx, ent); err != nil {
		return err
	}
	log.Info("subscription activated")
	return nil
}
