package teams

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultgate/vaultgate/pkg/access"
)

func TestMemoryStoreSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	team, err := store.CreateTeam(ctx, "acme")
	require.NoError(t, err)

	owner, err := store.CreateUser(ctx, "owner@acme.test")
	require.NoError(t, err)
	require.NoError(t, store.CreateProfile(ctx, &Profile{
		UserID: owner.ID, TeamID: team.ID, Email: owner.Email, Role: access.RoleOwner,
	}))

	collab, err := store.CreateUser(ctx, "collab@acme.test")
	require.NoError(t, err)
	require.NoError(t, store.CreateProfile(ctx, &Profile{
		UserID: collab.ID, TeamID: team.ID, Email: collab.Email, Role: access.RoleCollaborator,
	}))

	require.NoError(t, store.CreateInvite(ctx, &Invite{
		UID: "inv-1", TeamID: team.ID, Email: "new@acme.test", Role: access.RoleMember, SentAt: time.Now(),
	}))
	require.NoError(t, store.CreateProject(ctx, &Project{
		UID: "proj-1", TeamID: team.ID, Name: "p1", SizeBytes: 1024,
	}))

	counts, err := store.Snapshot(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.Users)
	assert.Equal(t, 1, counts.Collaborators)
	assert.Equal(t, 1, counts.PendingUserInvites)
	assert.Equal(t, 1, counts.Projects)
	assert.Equal(t, int64(1024), counts.StorageBytes)

	// Accepting the invite moves the seat from pending to committed once a
	// profile exists.
	require.NoError(t, store.ConsumeInvite(ctx, "inv-1", time.Now()))
	counts, err = store.Snapshot(ctx, team.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.PendingUserInvites)
}

func TestMemoryStoreConsumeInviteTwice(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.CreateInvite(ctx, &Invite{UID: "inv-2", TeamID: 1, Role: access.RoleMember}))
	require.NoError(t, store.ConsumeInvite(ctx, "inv-2", time.Now()))
	assert.ErrorIs(t, store.ConsumeInvite(ctx, "inv-2", time.Now()), ErrInviteConsumed)
}

func TestMemoryStoreDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.CreateUser(ctx, "x@y.test")
	require.NoError(t, err)
	_, err = store.CreateUser(ctx, "x@y.test")
	assert.ErrorIs(t, err, ErrEmailTaken)
}
