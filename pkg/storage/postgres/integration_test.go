//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/vaultgate/vaultgate/pkg/access"
	"github.com/vaultgate/vaultgate/pkg/entitlement"
	"github.com/vaultgate/vaultgate/pkg/teams"
	"github.com/vaultgate/vaultgate/pkg/usage"
)

// setupTestDB creates a PostgreSQL test container and applies the schema
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	ctx := context.Background()

	postgresContainer, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("vaultgate_test"),
		tcpostgres.WithUsername("vaultgate"),
		tcpostgres.WithPassword("vaultgate_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Skipf("Failed to start PostgreSQL container: %v", err)
	}

	connStr, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)

	err = db.Ping()
	require.NoError(t, err)

	err = EnsureSchema(ctx, db)
	require.NoError(t, err, "Failed to apply schema")

	cleanup := func() {
		db.Close()
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := postgresContainer.Terminate(cleanupCtx); err != nil {
			t.Logf("Warning: Failed to terminate container: %v", err)
		}
	}

	return db, cleanup
}

// seedTeam creates a team with an owner profile and returns both
func seedTeam(t *testing.T, db *sql.DB, name, ownerEmail string) (*teams.Team, *teams.User) {
	t.Helper()

	ctx := context.Background()
	store := teams.NewPostgresStore(db)

	team, err := store.CreateTeam(ctx, name)
	require.NoError(t, err)

	user, err := store.CreateUser(ctx, ownerEmail)
	require.NoError(t, err)

	now := time.Now()
	err = store.CreateProfile(ctx, &teams.Profile{
		UserID:          user.ID,
		TeamID:          team.ID,
		Email:           ownerEmail,
		Name:            "Owner",
		Role:            access.RoleOwner,
		AcceptedTermsAt: &now,
	})
	require.NoError(t, err)

	return team, user
}

func TestEnsureSchemaIsIdempotent_Integration(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	// Second application must not fail or disturb existing rows
	seedTeam(t, db, "idempotent", "owner@idempotent.test")
	require.NoError(t, EnsureSchema(context.Background(), db))

	store := teams.NewPostgresStore(db)
	count, err := store.CountTeams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestTeamStoreRoundTrip_Integration(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := teams.NewPostgresStore(db)
	team, user := seedTeam(t, db, "acme", "owner@acme.test")

	t.Run("user lookup by email", func(t *testing.T) {
		found, err := store.GetUserByEmail(ctx, "owner@acme.test")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)

		_, err = store.GetUserByEmail(ctx, "nobody@acme.test")
		assert.ErrorIs(t, err, teams.ErrNotFound)
	})

	t.Run("duplicate email rejected", func(t *testing.T) {
		_, err := store.CreateUser(ctx, "owner@acme.test")
		assert.ErrorIs(t, err, teams.ErrEmailTaken)
	})

	t.Run("profile carries role and terms", func(t *testing.T) {
		profile, err := store.GetProfile(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, access.RoleOwner, profile.Role)
		assert.NotNil(t, profile.AcceptedTermsAt)
		assert.Nil(t, profile.EmailVerifiedAt)
	})

	t.Run("email verification marks profile", func(t *testing.T) {
		err := store.MarkEmailVerified(ctx, user.ID, time.Now())
		require.NoError(t, err)

		profile, err := store.GetProfile(ctx, user.ID)
		require.NoError(t, err)
		assert.NotNil(t, profile.EmailVerifiedAt)
	})

	t.Run("token lookup", func(t *testing.T) {
		err := store.CreateToken(ctx, user.ID, "deadbeefcafe")
		require.NoError(t, err)

		userID, err := store.LookupToken(ctx, "deadbeefcafe")
		require.NoError(t, err)
		assert.Equal(t, user.ID, userID)

		_, err = store.LookupToken(ctx, "unknown")
		assert.ErrorIs(t, err, teams.ErrNotFound)
	})

	t.Run("team profile listing", func(t *testing.T) {
		profiles, err := store.ListTeamProfiles(ctx, team.ID)
		require.NoError(t, err)
		require.Len(t, profiles, 1)
		assert.Equal(t, "owner@acme.test", profiles[0].Email)
	})
}

func TestInviteSingleWinner_Integration(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := teams.NewPostgresStore(db)
	team, _ := seedTeam(t, db, "acme", "owner@acme.test")

	invite := &teams.Invite{
		UID:    "inv-1",
		TeamID: team.ID,
		Email:  "member@acme.test",
		Role:   access.RoleMember,
		SentAt: time.Now(),
	}
	require.NoError(t, store.CreateInvite(ctx, invite))

	pending, err := store.ListPendingInvites(ctx, team.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Pending())

	// First acceptance wins, second observes the consumed row
	require.NoError(t, store.ConsumeInvite(ctx, "inv-1", time.Now()))
	err = store.ConsumeInvite(ctx, "inv-1", time.Now())
	assert.ErrorIs(t, err, teams.ErrInviteConsumed)

	pending, err = store.ListPendingInvites(ctx, team.ID)
	require.NoError(t, err)
	assert.Empty(t, pending)

	err = store.ConsumeInvite(ctx, "inv-missing", time.Now())
	assert.ErrorIs(t, err, teams.ErrNotFound)
}

func TestEntitlementLifecycle_Integration(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := entitlement.NewPostgresStore(db)
	team, _ := seedTeam(t, db, "acme", "owner@acme.test")

	trialEnd := time.Now().Add(14 * 24 * time.Hour).UTC().Truncate(time.Second)
	ent := &entitlement.Entitlement{
		TeamID:             team.ID,
		TierID:             2,
		Status:             entitlement.StatusTrialing,
		TrialEnd:           &trialEnd,
		CurrentPeriodStart: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, store.Create(ctx, ent))

	got, err := store.Get(ctx, team.ID)
	require.NoError(t, err)
	assert.True(t, got.Trialing())
	require.NotNil(t, got.TrialEnd)
	assert.WithinDuration(t, trialEnd, *got.TrialEnd, time.Second)

	// Paid activation clears the trial window and records the customer
	got.Status = entitlement.StatusActive
	got.CustomerID = "cus_123"
	got.TrialEnd = nil
	got.ExtraUsers = 3
	require.NoError(t, store.Update(ctx, got))

	got, err = store.Get(ctx, team.ID)
	require.NoError(t, err)
	assert.True(t, got.Active())
	assert.Equal(t, "cus_123", got.CustomerID)
	assert.Nil(t, got.TrialEnd)
	assert.Equal(t, 3, got.ExtraUsers)

	_, err = store.Get(ctx, team.ID+999)
	assert.ErrorIs(t, err, entitlement.ErrNotFound)
}

func TestListExpiredTrials_Integration(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	entStore := entitlement.NewPostgresStore(db)

	expiredTeam, _ := seedTeam(t, db, "expired", "owner@expired.test")
	activeTeam, _ := seedTeam(t, db, "running", "owner@running.test")

	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)

	require.NoError(t, entStore.Create(ctx, &entitlement.Entitlement{
		TeamID: expiredTeam.ID, TierID: 2,
		Status: entitlement.StatusTrialing, TrialEnd: &past,
		CurrentPeriodStart: time.Now(),
	}))
	require.NoError(t, entStore.Create(ctx, &entitlement.Entitlement{
		TeamID: activeTeam.ID, TierID: 2,
		Status: entitlement.StatusTrialing, TrialEnd: &future,
		CurrentPeriodStart: time.Now(),
	}))

	expired, err := entStore.ListExpiredTrials(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, expiredTeam.ID, expired[0].TeamID)
}

func TestVerificationSweep_Integration(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := teams.NewPostgresStore(db)
	_, user := seedTeam(t, db, "acme", "owner@acme.test")

	require.NoError(t, store.CreateVerification(ctx, &teams.EmailVerification{
		UID:       "ver-expired",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(-time.Hour),
	}))
	require.NoError(t, store.CreateVerification(ctx, &teams.EmailVerification{
		UID:       "ver-fresh",
		UserID:    user.ID,
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	swept, err := store.DeleteExpiredVerifications(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	_, err = store.GetVerification(ctx, "ver-expired")
	assert.ErrorIs(t, err, teams.ErrNotFound)

	fresh, err := store.GetVerification(ctx, "ver-fresh")
	require.NoError(t, err)
	assert.False(t, fresh.Expired(time.Now()))
}

func TestUsageSnapshot_Integration(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	store := teams.NewPostgresStore(db)
	counter := usage.NewPostgresCounter(db)
	team, _ := seedTeam(t, db, "acme", "owner@acme.test")

	// One collaborator profile alongside the owner
	collab, err := store.CreateUser(ctx, "collab@acme.test")
	require.NoError(t, err)
	require.NoError(t, store.CreateProfile(ctx, &teams.Profile{
		UserID: collab.ID,
		TeamID: team.ID,
		Email:  "collab@acme.test",
		Role:   access.RoleCollaborator,
	}))

	// One pending member invite reserving a seat
	require.NoError(t, store.CreateInvite(ctx, &teams.Invite{
		UID: "inv-pending", TeamID: team.ID,
		Email: "pending@acme.test", Role: access.RoleMember,
		SentAt: time.Now(),
	}))

	// Two projects, 1.5 MB total so the MB figure rounds up to 2
	require.NoError(t, store.CreateProject(ctx, &teams.Project{
		UID: "proj-1", TeamID: team.ID, Name: "alpha", SizeBytes: 1 << 20,
	}))
	require.NoError(t, store.CreateProject(ctx, &teams.Project{
		UID: "proj-2", TeamID: team.ID, Name: "beta",
	}))
	require.NoError(t, store.SetProjectSize(ctx, "proj-2", 512*1024))

	counts, err := counter.Snapshot(ctx, team.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, counts.Users)
	assert.Equal(t, 1, counts.Collaborators)
	assert.Equal(t, 1, counts.PendingUserInvites)
	assert.Equal(t, 0, counts.PendingCollaboratorInvites)
	assert.Equal(t, 2, counts.Projects)
	assert.Equal(t, int64(3*512*1024), counts.StorageBytes)
	assert.Equal(t, 2, counts.CommittedAndPendingUsers())
	assert.Equal(t, int64(2), counts.StorageMB())

	// Snapshots are per team
	other, _ := seedTeam(t, db, "other", "owner@other.test")
	counts, err = counter.Snapshot(ctx, other.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Users)
	assert.Equal(t, 0, counts.Projects)
}
