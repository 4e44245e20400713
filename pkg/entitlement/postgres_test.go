package entitlement

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestGetEntitlement(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	trialEnd := now.Add(14 * 24 * time.Hour)
	rows := sqlmock.NewRows([]string{
		"team_id", "tier_id", "status", "customer_id", "trial_end", "current_period_start",
		"renewal_date", "cancel_date", "extra_users", "created_at", "updated_at",
	}).AddRow(int64(7), int64(2), "trialing", "", trialEnd, now, nil, nil, 0, now, now)
	mock.ExpectQuery("SELECT (.+) FROM entitlements").WithArgs(int64(7)).WillReturnRows(rows)

	ent, err := store.Get(context.Background(), 7)

	require.NoError(t, err)
	assert.Equal(t, StatusTrialing, ent.Status)
	assert.Equal(t, int64(2), ent.TierID)
	require.NotNil(t, ent.TrialEnd)
	assert.True(t, ent.TrialEnd.After(ent.CurrentPeriodStart))
}

func TestGetEntitlementNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery("SELECT (.+) FROM entitlements").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"team_id"}))

	_, err := store.Get(context.Background(), 404)

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateEntitlementNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec("UPDATE entitlements").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Update(context.Background(), &Entitlement{TeamID: 404, Status: StatusActive})

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListExpiredTrials(t *testing.T) {
	store, mock := newMockStore(t)

	now := time.Now()
	past := now.Add(-time.Hour)
	rows := sqlmock.NewRows([]string{
		"team_id", "tier_id", "status", "customer_id", "trial_end", "current_period_start",
		"renewal_date", "cancel_date", "extra_users", "created_at", "updated_at",
	}).AddRow(int64(1), int64(2), "trialing", "", past, now.Add(-15*24*time.Hour), nil, nil, 0, now, now)
	mock.ExpectQuery("SELECT (.+) FROM entitlements WHERE status = 'trialing'").
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(rows)

	ents, err := store.ListExpiredTrials(context.Background(), now)

	require.NoError(t, err)
	require.Len(t, ents, 1)
	assert.True(t, ents[0].TrialExpired(now))
}

func TestTrialExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, (&Entitlement{Status: StatusTrialing, TrialEnd: &past}).TrialExpired(now))
	assert.False(t, (&Entitlement{Status: StatusTrialing, TrialEnd: &future}).TrialExpired(now))
	assert.False(t, (&Entitlement{Status: StatusActive, TrialEnd: &past}).TrialExpired(now))
	assert.False(t, (&Entitlement{Status: StatusTrialing}).TrialExpired(now))
}
