package teams

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vaultgate/vaultgate/pkg/access"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestCreateTeam(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	mock.ExpectQuery("INSERT INTO teams").
		WithArgs("acme").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), now))

	team, err := store.CreateTeam(context.Background(), "acme")

	require.NoError(t, err)
	assert.Equal(t, int64(1), team.ID)
	assert.Equal(t, "acme", team.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTeamNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT id, name, created_at FROM teams").
		WithArgs(int64(99)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "created_at"}))

	_, err := store.GetTeam(context.Background(), 99)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("INSERT INTO users").
		WithArgs("dup@example.com").
		WillReturnError(&pq.Error{Code: "23505"})

	_, err := store.CreateUser(context.Background(), "dup@example.com")

	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestGetProfile(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "team_id", "email", "name", "role",
		"recovery_key", "email_verified_at", "accepted_terms_at", "created_at",
	}).AddRow(int64(5), int64(10), int64(3), "a@b.com", "Alice", "owner", "rk", nil, now, now)
	mock.ExpectQuery("SELECT (.+) FROM profiles WHERE user_id").
		WithArgs(int64(10)).
		WillReturnRows(rows)

	profile, err := store.GetProfile(context.Background(), 10)

	require.NoError(t, err)
	assert.Equal(t, access.RoleOwner, profile.Role)
	assert.Equal(t, int64(3), profile.TeamID)
	assert.Nil(t, profile.EmailVerifiedAt)
	assert.NotNil(t, profile.AcceptedTermsAt)
}

func TestMarkEmailVerifiedNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE profiles SET email_verified_at").
		WithArgs(int64(404), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.MarkEmailVerified(context.Background(), 404, time.Now())

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConsumeInviteSingleWinner(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	mock.ExpectExec("UPDATE invites SET accepted_at").
		WithArgs("inv-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.ConsumeInvite(context.Background(), "inv-1", now))

	// Second acceptance matches zero rows and resolves to ErrInviteConsumed.
	mock.ExpectExec("UPDATE invites SET accepted_at").
		WithArgs("inv-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("SELECT (.+) FROM invites WHERE uid").
		WithArgs("inv-1").
		WillReturnRows(sqlmock.NewRows([]string{"uid", "team_id", "email", "role", "sent_at", "accepted_at"}).
			AddRow("inv-1", int64(1), "x@y.com", "member", now, now))

	err := store.ConsumeInvite(context.Background(), "inv-1", now)
	assert.ErrorIs(t, err, ErrInviteConsumed)
}

func TestDeleteExpiredVerifications(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("DELETE FROM email_verifications WHERE expires_at").
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	swept, err := store.DeleteExpiredVerifications(context.Background(), time.Now())

	require.NoError(t, err)
	assert.Equal(t, int64(3), swept)
}

func TestLookupToken(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT user_id FROM tokens").
		WithArgs("hash-abc").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(int64(42)))

	userID, err := store.LookupToken(context.Background(), "hash-abc")

	require.NoError(t, err)
	assert.Equal(t, int64(42), userID)

	mock.ExpectQuery("SELECT user_id FROM tokens").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))

	_, err = store.LookupToken(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
