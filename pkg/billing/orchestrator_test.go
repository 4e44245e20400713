package billing

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultgate/vaultgate/pkg/access"
	"github.com/vaultgate/vaultgate/pkg/auth"
	"github.com/vaultgate/vaultgate/pkg/blobstore"
	"github.com/vaultgate/vaultgate/pkg/entitlement"
	"github.com/vaultgate/vaultgate/pkg/teams"
	"github.com/vaultgate/vaultgate/pkg/tiers"
)

// fakeGateway is a func-field payment gateway double
type fakeGateway struct {
	hasPaymentMethodFunc func(ctx context.Context, customerID string) (bool, error)
	listInvoicesFunc     func(ctx context.Context, customerID string) ([]entitlement.Invoice, error)
	chargeFunc           func(ctx context.Context, customerID string, amountCents int64, description string) error
	verifyWebhookFunc    func(payload []byte, signature string) (*entitlement.CheckoutEvent, error)
}

func (f *fakeGateway) HasPaymentMethod(ctx context.Context, customerID string) (bool, error) {
	if f.hasPaymentMethodFunc != nil {
		return f.hasPaymentMethodFunc(ctx, customerID)
	}
	return true, nil
}

func (f *fakeGateway) ListInvoices(ctx context.Context, customerID string) ([]entitlement.Invoice, error) {
	if f.listInvoicesFunc != nil {
		return f.listInvoicesFunc(ctx, customerID)
	}
	return nil, nil
}

func (f *fakeGateway) Charge(ctx context.Context, customerID string, amountCents int64, description string) error {
	if f.chargeFunc != nil {
		return f.chargeFunc(ctx, customerID, amountCents, description)
	}
	return nil
}

func (f *fakeGateway) VerifyWebhook(payload []byte, signature string) (*entitlement.CheckoutEvent, error) {
	if f.verifyWebhookFunc != nil {
		return f.verifyWebhookFunc(payload, signature)
	}
	return &entitlement.CheckoutEvent{}, nil
}

type fixture struct {
	orch    *Orchestrator
	teams   *teams.MemoryStore
	ents    *entitlement.MemoryStore
	gateway *fakeGateway
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	teamStore := teams.NewMemoryStore()
	entStore := entitlement.NewMemoryStore()
	gateway := &fakeGateway{}

	blobs, err := blobstore.NewFilesystemStore(t.TempDir())
	require.NoError(t, err)

	orch := New(Config{
		Teams:        teamStore,
		Entitlements: entStore,
		Counter:      teamStore,
		Gateway:      gateway,
		Catalog:      tiers.DefaultCatalog(),
		Blobs:        blobs,
	})
	return &fixture{orch: orch, teams: teamStore, ents: entStore, gateway: gateway}
}

// seedTeam creates a team with an owner and an entitlement, returning the
// owner's principal.
func (f *fixture) seedTeam(t *testing.T, email string, tierID int64, status entitlement.Status, customerID string) *auth.Principal {
	t.Helper()
	ctx := context.Background()

	team, err := f.teams.CreateTeam(ctx, email+" team")
	require.NoError(t, err)
	user, err := f.teams.CreateUser(ctx, email)
	require.NoError(t, err)
	require.NoError(t, f.teams.CreateProfile(ctx, &teams.Profile{
		UserID: user.ID, TeamID: team.ID, Email: email, Role: access.RoleOwner,
	}))

	trialEnd := time.Now().Add(14 * 24 * time.Hour)
	ent := &entitlement.Entitlement{
		TeamID:             team.ID,
		TierID:             tierID,
		Status:             status,
		CustomerID:         customerID,
		CurrentPeriodStart: time.Now(),
	}
	if status == entitlement.StatusTrialing {
		ent.TrialEnd = &trialEnd
	}
	require.NoError(t, f.ents.Create(ctx, ent))

	return &auth.Principal{
		UserID: user.ID, Email: email, TeamID: team.ID,
		Role: access.RoleOwner, HasProfile: true,
	}
}

func (f *fixture) addMember(t *testing.T, teamID int64, email string, role access.Role) {
	t.Helper()
	ctx := context.Background()
	user, err := f.teams.CreateUser(ctx, email)
	require.NoError(t, err)
	require.NoError(t, f.teams.CreateProfile(ctx, &teams.Profile{
		UserID: user.ID, TeamID: teamID, Email: email, Role: role,
	}))
}

func TestInviteUserApproved(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@acme.test", tiers.TrialTierID, entitlement.StatusTrialing, "")

	invite, err := f.orch.InviteUser(context.Background(), owner, "new@acme.test")

	require.NoError(t, err)
	assert.Equal(t, access.RoleMember, invite.Role)
	assert.True(t, invite.Pending())

	counts, err := f.teams.Snapshot(context.Background(), owner.TeamID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.PendingUserInvites)
}

func TestInviteUserLimitReached(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@solo.test", tiers.CommunityTierID, entitlement.StatusTrialing, "")

	_, err := f.orch.InviteUser(context.Background(), owner, "second@solo.test")

	require.Error(t, err)
	assert.True(t, IsKind(err, KindLimitReached))
	assert.Equal(t, MsgUserLimitReached, err.Error())
}

func TestInviteCollaboratorLimitReached(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@c.test", tiers.CommunityTierID, entitlement.StatusTrialing, "")
	f.addMember(t, owner.TeamID, "c1@c.test", access.RoleCollaborator)
	f.addMember(t, owner.TeamID, "c2@c.test", access.RoleCollaborator)

	_, err := f.orch.InviteCollaborator(context.Background(), owner, "c3@c.test")

	require.Error(t, err)
	assert.True(t, IsKind(err, KindLimitReached))
	assert.Equal(t, MsgCollabLimitReached, err.Error())
}

func TestCollaboratorDenied(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@d.test", tiers.TrialTierID, entitlement.StatusTrialing, "")

	collab := &auth.Principal{
		UserID: 99, TeamID: owner.TeamID, Role: access.RoleCollaborator, HasProfile: true,
	}

	_, err := f.orch.Plan(context.Background(), collab)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindForbidden))
	assert.Equal(t, MsgCollaboratorDenied, err.Error())

	_, err = f.orch.InviteUser(context.Background(), collab, "x@d.test")
	assert.True(t, IsKind(err, KindForbidden))
}

func TestCreateProjectLimitReachedCleansBlob(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@p.test", tiers.CommunityTierID, entitlement.StatusTrialing, "")
	ctx := context.Background()

	first, err := f.orch.CreateProject(ctx, owner, "first", strings.NewReader("payload-1"))
	require.NoError(t, err)
	assert.Equal(t, int64(9), first.SizeBytes)

	_, err = f.orch.CreateProject(ctx, owner, "second", strings.NewReader("payload-2"))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindLimitReached))
	assert.Equal(t, MsgProjectLimitReached, err.Error())

	// The rejected project's staged payload must not linger.
	projects, err := f.teams.ListProjects(ctx, owner.TeamID)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	_, err = f.orch.blobs.Get(ctx, projects[0].UID)
	assert.NoError(t, err)
}

func TestUploadProjectNeverBlocked(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@u.test", tiers.CommunityTierID, entitlement.StatusTrialing, "")
	ctx := context.Background()

	project, err := f.orch.CreateProject(ctx, owner, "proj", nil)
	require.NoError(t, err)

	// Oversized payload is stored and billed rather than rejected.
	big := strings.Repeat("x", 4096)
	updated, err := f.orch.UploadProject(ctx, owner, project.UID, strings.NewReader(big))
	require.NoError(t, err)
	assert.Equal(t, int64(4096), updated.SizeBytes)

	stranger := f.seedTeam(t, "other@u.test", tiers.CommunityTierID, entitlement.StatusTrialing, "")
	_, err = f.orch.UploadProject(ctx, stranger, project.UID, strings.NewReader("x"))
	assert.True(t, IsKind(err, KindNotFound))
}

func TestSwitchTierNoPaymentMethod(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@s.test", tiers.CommunityTierID, entitlement.StatusTrialing, "")

	_, err := f.orch.SwitchTier(context.Background(), owner, tiers.TrialTierID)

	require.Error(t, err)
	assert.True(t, IsKind(err, KindNoPaymentMethod))
	assert.Equal(t, MsgNoPaymentMethod, err.Error())
}

func TestSwitchTierActivates(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@a.test", tiers.CommunityTierID, entitlement.StatusTrialing, "cus_1")

	plan, err := f.orch.SwitchTier(context.Background(), owner, tiers.TrialTierID)

	require.NoError(t, err)
	assert.Equal(t, tiers.TrialTierID, plan.TierID)
	assert.Nil(t, plan.TrialEnd)

	ent, err := f.ents.Get(context.Background(), owner.TeamID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.StatusActive, ent.Status)
	require.NotNil(t, ent.RenewalDate)
}

func TestSwitchTierTooManyUsers(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@m.test", tiers.TrialTierID, entitlement.StatusActive, "cus_2")
	f.addMember(t, owner.TeamID, "m2@m.test", access.RoleMember)

	_, err := f.orch.SwitchTier(context.Background(), owner, tiers.CommunityTierID)

	require.Error(t, err)
	assert.True(t, IsKind(err, KindTooManyUsers))
	assert.Equal(t, MsgTooManyUsers, err.Error())
}

func TestSwitchTierGatewayDownNoMutation(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@g.test", tiers.CommunityTierID, entitlement.StatusTrialing, "cus_3")
	f.gateway.hasPaymentMethodFunc = func(ctx context.Context, customerID string) (bool, error) {
		return false, entitlement.ErrGatewayUnavailable
	}

	_, err := f.orch.SwitchTier(context.Background(), owner, tiers.TrialTierID)

	require.Error(t, err)
	assert.True(t, IsKind(err, KindGatewayUnavailable))

	ent, err := f.ents.Get(context.Background(), owner.TeamID)
	require.NoError(t, err)
	assert.Equal(t, tiers.CommunityTierID, ent.TierID)
	assert.Equal(t, entitlement.StatusTrialing, ent.Status)
}

func TestSwitchTierUnknownTier(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@t.test", tiers.CommunityTierID, entitlement.StatusTrialing, "")

	_, err := f.orch.SwitchTier(context.Background(), owner, 999)
	assert.True(t, IsKind(err, KindNotFound))
}

func TestPurchaseAddOnNotEntitled(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@free.test", tiers.CommunityTierID, entitlement.StatusTrialing, "cus_4")

	_, err := f.orch.PurchaseAddOn(context.Background(), owner, 2)

	require.Error(t, err)
	assert.True(t, IsKind(err, KindNotEntitled))
}

func TestPurchaseAddOnChargesAndCommits(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@addon.test", tiers.TrialTierID, entitlement.StatusActive, "cus_5")

	var chargedAmount int64
	f.gateway.chargeFunc = func(ctx context.Context, customerID string, amountCents int64, description string) error {
		chargedAmount = amountCents
		return nil
	}

	ent, err := f.orch.PurchaseAddOn(context.Background(), owner, 3)

	require.NoError(t, err)
	assert.Equal(t, 3, ent.ExtraUsers)
	assert.Equal(t, int64(3*900), chargedAmount)
}

func TestPurchaseAddOnGatewayDownNoMutation(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@down.test", tiers.TrialTierID, entitlement.StatusActive, "cus_6")
	f.gateway.chargeFunc = func(ctx context.Context, customerID string, amountCents int64, description string) error {
		return entitlement.ErrGatewayUnavailable
	}

	_, err := f.orch.PurchaseAddOn(context.Background(), owner, 2)

	require.Error(t, err)
	assert.True(t, IsKind(err, KindGatewayUnavailable))

	ent, err := f.ents.Get(context.Background(), owner.TeamID)
	require.NoError(t, err)
	assert.Zero(t, ent.ExtraUsers)
}

func TestCancelWithoutActiveSubscription(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@trial.test", tiers.TrialTierID, entitlement.StatusTrialing, "")

	_, err := f.orch.Cancel(context.Background(), owner)

	require.Error(t, err)
	assert.True(t, IsKind(err, KindNoActiveSubscription))
	assert.Equal(t, MsgNoSubscription, err.Error())
}

func TestCancelLandsOnFreeTier(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@cancel.test", tiers.TrialTierID, entitlement.StatusActive, "cus_7")
	ctx := context.Background()

	ent, err := f.ents.Get(ctx, owner.TeamID)
	require.NoError(t, err)
	ent.ExtraUsers = 5
	require.NoError(t, f.ents.Update(ctx, ent))

	plan, err := f.orch.Cancel(ctx, owner)

	require.NoError(t, err)
	assert.Equal(t, tiers.CommunityTierID, plan.TierID)

	ent, err = f.ents.Get(ctx, owner.TeamID)
	require.NoError(t, err)
	assert.Equal(t, entitlement.StatusCanceled, ent.Status)
	assert.Zero(t, ent.ExtraUsers)
	assert.NotNil(t, ent.CancelDate)
}

func TestCancelRejectedWhenTeamTooBig(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@big.test", tiers.TrialTierID, entitlement.StatusActive, "cus_8")
	f.addMember(t, owner.TeamID, "m2@big.test", access.RoleMember)

	_, err := f.orch.Cancel(context.Background(), owner)

	require.Error(t, err)
	assert.True(t, IsKind(err, KindTooManyUsers))
}

func TestCancelRejectedWhenProjectsExceedFreeTier(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@proj.test", tiers.TrialTierID, entitlement.StatusActive, "cus_11")
	ctx := context.Background()

	require.NoError(t, f.teams.CreateProject(ctx, &teams.Project{UID: "pr-1", TeamID: owner.TeamID, Name: "one"}))
	require.NoError(t, f.teams.CreateProject(ctx, &teams.Project{UID: "pr-2", TeamID: owner.TeamID, Name: "two"}))

	_, err := f.orch.Cancel(ctx, owner)

	require.Error(t, err)
	assert.True(t, IsKind(err, KindTooManyUsers))
	assert.Equal(t, MsgTooManyUsers, err.Error())
}

func TestSignupRequiresTerms(t *testing.T) {
	f := newFixture(t)

	_, err := f.orch.Signup(context.Background(), SignupRequest{Email: "x@y.test"})

	require.Error(t, err)
	assert.True(t, IsKind(err, KindTermsNotAccepted))
	assert.Equal(t, MsgTermsNotAccepted, err.Error())
}

func TestSignupCreatesTrialTeam(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.orch.Signup(ctx, SignupRequest{
		Email: "founder@new.test", Name: "Founder", AcceptedTerms: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)

	ent, err := f.ents.Get(ctx, result.TeamID)
	require.NoError(t, err)
	assert.Equal(t, tiers.TrialTierID, ent.TierID)
	assert.Equal(t, entitlement.StatusTrialing, ent.Status)
	require.NotNil(t, ent.TrialEnd)
	assert.True(t, ent.TrialEnd.After(ent.CurrentPeriodStart))

	// Trial teams without a gateway customer see one settled zero invoice.
	principal := &auth.Principal{
		UserID: result.UserID, TeamID: result.TeamID,
		Role: access.RoleOwner, HasProfile: true,
	}
	invoices, err := f.orch.Invoices(ctx, principal)
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.Zero(t, invoices[0].AmountDue)
	assert.True(t, invoices[0].Paid)
}

func TestSignupDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orch.Signup(ctx, SignupRequest{Email: "dup@x.test", AcceptedTerms: true})
	require.NoError(t, err)

	_, err = f.orch.Signup(ctx, SignupRequest{Email: "dup@x.test", AcceptedTerms: true})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict))
	assert.Equal(t, MsgUserExists, err.Error())
}

func TestSignupWithInviteJoinsTeam(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@join.test", tiers.TrialTierID, entitlement.StatusTrialing, "")
	ctx := context.Background()

	invite, err := f.orch.InviteCollaborator(ctx, owner, "guest@join.test")
	require.NoError(t, err)

	result, err := f.orch.Signup(ctx, SignupRequest{
		Email: "guest@join.test", AcceptedTerms: true, InviteUID: invite.UID,
	})
	require.NoError(t, err)
	assert.Equal(t, owner.TeamID, result.TeamID)

	profile, err := f.teams.GetProfile(ctx, result.UserID)
	require.NoError(t, err)
	assert.Equal(t, access.RoleCollaborator, profile.Role)

	// The invite is spent; a second signup against it must fail.
	_, err = f.orch.Signup(ctx, SignupRequest{
		Email: "second@join.test", AcceptedTerms: true, InviteUID: invite.UID,
	})
	require.Error(t, err)
	assert.True(t, IsKind(err, KindConflict))
}

func TestVerifyEmailIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.orch.Signup(ctx, SignupRequest{Email: "v@x.test", AcceptedTerms: true})
	require.NoError(t, err)

	require.NoError(t, f.orch.VerifyEmail(ctx, result.VerificationUID))
	first, err := f.teams.GetProfile(ctx, result.UserID)
	require.NoError(t, err)
	require.NotNil(t, first.EmailVerifiedAt)

	require.NoError(t, f.orch.VerifyEmail(ctx, result.VerificationUID))
	second, err := f.teams.GetProfile(ctx, result.UserID)
	require.NoError(t, err)
	assert.Equal(t, first.EmailVerifiedAt, second.EmailVerifiedAt)
}

func TestVerifyEmailExpired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.teams.CreateVerification(ctx, &teams.EmailVerification{
		UID: "old", UserID: 1, ExpiresAt: time.Now().Add(-time.Hour),
	}))

	err := f.orch.VerifyEmail(ctx, "old")
	assert.True(t, IsKind(err, KindNotFound))

	err = f.orch.VerifyEmail(ctx, "missing")
	assert.True(t, IsKind(err, KindNotFound))
}

func TestLimitsIncludesAddOnSeats(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@l.test", tiers.TrialTierID, entitlement.StatusActive, "cus_9")
	ctx := context.Background()

	ent, err := f.ents.Get(ctx, owner.TeamID)
	require.NoError(t, err)
	ent.ExtraUsers = 2
	require.NoError(t, f.ents.Update(ctx, ent))

	limits, err := f.orch.Limits(ctx, owner)

	require.NoError(t, err)
	assert.True(t, limits.HasBilling)
	assert.Equal(t, "TEAM", limits.TierName)
	require.NotNil(t, limits.UsersLimit)
	assert.Equal(t, 12, *limits.UsersLimit)
	assert.Equal(t, 1, limits.Users)
	assert.Equal(t, int64(10000), limits.StorageIncludedMB)
}

func TestInvoicesGatewayDown(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@inv.test", tiers.TrialTierID, entitlement.StatusActive, "cus_10")
	f.gateway.listInvoicesFunc = func(ctx context.Context, customerID string) ([]entitlement.Invoice, error) {
		return nil, entitlement.ErrGatewayUnavailable
	}

	_, err := f.orch.Invoices(context.Background(), owner)
	assert.True(t, IsKind(err, KindGatewayUnavailable))
}

func TestHandleCheckoutEventActivatesSubscription(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@wh.test", tiers.TrialTierID, entitlement.StatusTrialing, "")
	ctx := context.Background()

	periodStart := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)
	f.gateway.verifyWebhookFunc = func(payload []byte, signature string) (*entitlement.CheckoutEvent, error) {
		return &entitlement.CheckoutEvent{
			Type:        entitlement.EventCheckoutCompleted,
			CustomerID:  "cus_wh",
			TeamID:      owner.TeamID,
			PeriodStart: periodStart.Unix(),
			PeriodEnd:   periodEnd.Unix(),
		}, nil
	}

	require.NoError(t, f.orch.HandleCheckoutEvent(ctx, []byte("{}"), "sig"))

	ent, err := f.ents.Get(ctx, owner.TeamID)
	require.NoError(t, err)
	assert.Equal(t, "cus_wh", ent.CustomerID)
	assert.Equal(t, entitlement.StatusActive, ent.Status)
	assert.Nil(t, ent.TrialEnd)
	assert.Equal(t, periodStart, ent.CurrentPeriodStart)
	require.NotNil(t, ent.RenewalDate)
	assert.Equal(t, periodEnd, *ent.RenewalDate)

	// With the customer attached, a paid tier switch passes the payment
	// method check.
	plan, err := f.orch.SwitchTier(ctx, owner, tiers.TrialTierID)
	require.NoError(t, err)
	assert.Equal(t, tiers.TrialTierID, plan.TierID)
}

func TestHandleCheckoutEventIgnoresUnmatched(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@skip.test", tiers.TrialTierID, entitlement.StatusTrialing, "")
	ctx := context.Background()

	// Other event types and events for unknown teams are acknowledged
	// without touching any entitlement.
	for _, event := range []*entitlement.CheckoutEvent{
		{Type: "invoice.paid", CustomerID: "cus_x", TeamID: owner.TeamID},
		{Type: entitlement.EventCheckoutCompleted, CustomerID: "cus_x", TeamID: 404},
		{Type: entitlement.EventCheckoutCompleted, CustomerID: "cus_x"},
	} {
		event := event
		f.gateway.verifyWebhookFunc = func(payload []byte, signature string) (*entitlement.CheckoutEvent, error) {
			return event, nil
		}
		require.NoError(t, f.orch.HandleCheckoutEvent(ctx, []byte("{}"), "sig"))
	}

	ent, err := f.ents.Get(ctx, owner.TeamID)
	require.NoError(t, err)
	assert.Empty(t, ent.CustomerID)
	assert.Equal(t, entitlement.StatusTrialing, ent.Status)
}

func TestHandleCheckoutEventBadSignature(t *testing.T) {
	f := newFixture(t)
	f.gateway.verifyWebhookFunc = func(payload []byte, signature string) (*entitlement.CheckoutEvent, error) {
		return nil, entitlement.ErrInvalidSignature
	}

	err := f.orch.HandleCheckoutEvent(context.Background(), []byte("{}"), "bad")
	assert.True(t, IsKind(err, KindForbidden))
}

// Concurrent invites for the last remaining seat: exactly one may win.
func TestConcurrentInvitesSingleWinner(t *testing.T) {
	f := newFixture(t)
	owner := f.seedTeam(t, "owner@race.test", tiers.TrialTierID, entitlement.StatusTrialing, "")

	// Fill the tier to one seat below its limit of ten.
	for i := 0; i < 8; i++ {
		f.addMember(t, owner.TeamID, string(rune('a'+i))+"@race.test", access.RoleMember)
	}

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.orch.InviteUser(context.Background(), owner, "rival@race.test")
		}(i)
	}
	wg.Wait()

	var won, lost int
	for _, err := range errs {
		if err == nil {
			won++
			continue
		}
		if IsKind(err, KindLimitReached) {
			lost++
		} else {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, attempts-1, lost)

	counts, err := f.teams.Snapshot(context.Background(), owner.TeamID)
	require.NoError(t, err)
	assert.Equal(t, 10, counts.CommittedAndPendingUsers())
}

// pausingProfileStore blocks inside CreateProfile for one email so a test
// can observe the window between invite consumption and profile commit.
type pausingProfileStore struct {
	*teams.MemoryStore
	pauseEmail string
	entered    chan struct{}
	release    chan struct{}
}

func (s *pausingProfileStore) CreateProfile(ctx context.Context, profile *teams.Profile) error {
	if profile.Email == s.pauseEmail {
		close(s.entered)
		<-s.release
	}
	return s.MemoryStore.CreateProfile(ctx, profile)
}

// An invite signup consumes the pending invite and commits the profile as
// one unit: an invite issued while the signup is mid-commit must not be
// admitted into the seat the signup already claimed.
func TestSignupCommitsInviteSeatAtomically(t *testing.T) {
	base := teams.NewMemoryStore()
	store := &pausingProfileStore{
		MemoryStore: base,
		pauseEmail:  "joiner@seat.test",
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	f := &fixture{
		teams:   base,
		ents:    entitlement.NewMemoryStore(),
		gateway: &fakeGateway{},
	}
	f.orch = New(Config{
		Teams:        store,
		Entitlements: f.ents,
		Counter:      base,
		Gateway:      f.gateway,
		Catalog:      tiers.DefaultCatalog(),
	})
	ctx := context.Background()

	owner := f.seedTeam(t, "owner@seat.test", tiers.TrialTierID, entitlement.StatusTrialing, "")
	// Fill the tier to one seat below its limit of ten.
	for i := 0; i < 8; i++ {
		f.addMember(t, owner.TeamID, string(rune('a'+i))+"@seat.test", access.RoleMember)
	}
	invite, err := f.orch.InviteUser(ctx, owner, "joiner@seat.test")
	require.NoError(t, err)

	signupDone := make(chan error, 1)
	go func() {
		_, err := f.orch.Signup(ctx, SignupRequest{
			Email: "joiner@seat.test", AcceptedTerms: true, InviteUID: invite.UID,
		})
		signupDone <- err
	}()
	<-store.entered

	// The invite is consumed but the profile is not yet committed. A
	// concurrent invite must wait for the signup rather than admit into
	// the half-transferred seat.
	inviteDone := make(chan error, 1)
	go func() {
		_, err := f.orch.InviteUser(ctx, owner, "overshoot@seat.test")
		inviteDone <- err
	}()

	select {
	case err := <-inviteDone:
		t.Fatalf("invite decided while signup held the team lock: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	require.NoError(t, <-signupDone)

	err = <-inviteDone
	require.Error(t, err)
	assert.True(t, IsKind(err, KindLimitReached))

	counts, err := base.Snapshot(ctx, owner.TeamID)
	require.NoError(t, err)
	assert.Equal(t, 10, counts.CommittedAndPendingUsers())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindLimitReached, KindOf(NewError(KindLimitReached, "x")))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
