package premium

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/PancyStudios/PancyDash/internal/session"
	"github.com/PancyStudios/PancyDash/pkg/database"
	"github.com/PancyStudios/PancyDash/pkg/database/memstore"
	"github.com/PancyStudios/PancyDash/pkg/errors"
	"github.com/PancyStudios/PancyDash/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

var (
	fixedNow = time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)
	admin    = &session.User{ID: "admin-1", Name: "Admin", IsAdmin: true}
)

func setupTest(t *testing.T) (*memstore.Backend, *database.Store, *Service) {
	t.Helper()
	backend := memstore.NewBackend()
	backend.Now = func() time.Time { return fixedNow }
	store := memstore.NewStore(backend)
	svc := NewService(store, nil)
	svc.now = func() time.Time { return fixedNow }
	return backend, store, svc
}

func seedCommand(t *testing.T, store *database.Store, id, owner string, active bool, reason string) {
	t.Helper()
	require.NoError(t, store.CustomCommands.Insert(context.Background(), &models.CustomCommand{
		ID:                 id,
		UserID:             owner,
		CommandName:        id,
		DisplayName:        id,
		Playlist:           []string{"track"},
		IsActive:           active,
		DeactivationReason: reason,
	}))
}

func activeCommands(t *testing.T, store *database.Store, owner string) int64 {
	t.Helper()
	n, err := store.CustomCommands.Count(context.Background(), bson.M{"userId": owner, "isActive": true})
	require.NoError(t, err)
	return n
}

func TestGrantDefaultsAndRecord(t *testing.T) {
	_, store, svc := setupTest(t)

	res, err := svc.Grant(context.Background(), admin, GrantRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, models.SubscriptionPermanent, res.Record.SubscriptionType)
	assert.True(t, res.Record.ExpiresAt.IsZero())

	stored, err := store.PremiumUsers.Get(context.Background(), "u1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.True(t, stored.IsActive)
	assert.Equal(t, Tier, stored.Tier)
	assert.Equal(t, Benefits, stored.Benefits)
	assert.True(t, stored.NeedsWelcomeMessage)
	assert.False(t, stored.WelcomeMessageSent)
	assert.Equal(t, models.RenewalReminders{}, stored.RenewalReminders)
	assert.Equal(t, "admin-1", stored.AddedBy)
	assert.Equal(t, "Admin", stored.AddedByUsername)
}

func TestGrantMonthlyExpiry(t *testing.T) {
	_, _, svc := setupTest(t)

	res, err := svc.Grant(context.Background(), admin, GrantRequest{UserID: "u1", SubscriptionType: models.SubscriptionMonthly})
	require.NoError(t, err)
	assert.True(t, fixedNow.Add(30*24*time.Hour).Equal(res.Record.ExpiresAt.Time))
}

func TestGrantValidation(t *testing.T) {
	backend, _, svc := setupTest(t)

	tests := []struct {
		name string
		req  GrantRequest
		msg  string
	}{
		{"missing user", GrantRequest{}, "User ID is required"},
		{"bad type", GrantRequest{UserID: "u1", SubscriptionType: "yearly"}, "Invalid subscription type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Grant(context.Background(), admin, tt.req)
			status, msg := errors.StatusOf(err)
			assert.Equal(t, http.StatusBadRequest, status)
			assert.Equal(t, tt.msg, msg)
		})
	}
	assert.Zero(t, backend.Len(database.CollPremiumUsers))
}

func TestGrantReactivatesOnlyRevokedCommands(t *testing.T) {
	backend, store, svc := setupTest(t)
	seedCommand(t, store, "revoked-1", "u1", false, ReasonRemoved)
	seedCommand(t, store, "revoked-2", "u1", false, ReasonRemoved)
	seedCommand(t, store, "expired", "u1", false, ReasonExpired)
	seedCommand(t, store, "other-owner", "u2", false, ReasonRemoved)

	res, err := svc.Grant(context.Background(), admin, GrantRequest{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Reactivated)

	for _, id := range []string{"revoked-1", "revoked-2"} {
		raw, _ := backend.Raw(database.CollCustomCommands, id)
		assert.Equal(t, true, raw["isActive"], id)
		assert.NotContains(t, raw, "deactivationReason", id)
		cmd, _ := store.CustomCommands.Get(context.Background(), id)
		assert.True(t, fixedNow.Equal(cmd.ReactivatedAt.Time), id)
	}

	raw, _ := backend.Raw(database.CollCustomCommands, "expired")
	assert.Equal(t, false, raw["isActive"])
	raw, _ = backend.Raw(database.CollCustomCommands, "other-owner")
	assert.Equal(t, false, raw["isActive"])
}

func TestRevokeDeactivatesAllActiveCommands(t *testing.T) {
	backend, store, svc := setupTest(t)
	_, err := svc.Grant(context.Background(), admin, GrantRequest{UserID: "u1"})
	require.NoError(t, err)
	seedCommand(t, store, "a", "u1", true, "")
	seedCommand(t, store, "b", "u1", true, "")
	seedCommand(t, store, "c", "u1", true, "")
	seedCommand(t, store, "keep", "u2", true, "")

	n, err := svc.Revoke(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Zero(t, activeCommands(t, store, "u1"))
	assert.Equal(t, int64(1), activeCommands(t, store, "u2"))

	raw, _ := backend.Raw(database.CollCustomCommands, "a")
	assert.Equal(t, ReasonRemoved, raw["deactivationReason"])

	record, _ := store.PremiumUsers.Get(context.Background(), "u1")
	assert.False(t, record.IsActive)
	assert.True(t, fixedNow.Equal(record.RemovedAt.Time))

	premium, err := svc.IsPremium(context.Background(), "u1")
	require.NoError(t, err)
	assert.False(t, premium)
}

func TestRevokeMissingUser(t *testing.T) {
	_, store, svc := setupTest(t)
	seedCommand(t, store, "a", "ghost", true, "")

	_, err := svc.Revoke(context.Background(), "ghost")
	status, msg := errors.StatusOf(err)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Premium user not found", msg)
	assert.Equal(t, int64(1), activeCommands(t, store, "ghost"))
}

func TestRevokeThenGrantRoundTrip(t *testing.T) {
	_, store, svc := setupTest(t)
	ctx := context.Background()
	_, err := svc.Grant(ctx, admin, GrantRequest{UserID: "u1"})
	require.NoError(t, err)
	seedCommand(t, store, "a", "u1", true, "")
	seedCommand(t, store, "off", "u1", false, "")

	_, err = svc.Revoke(ctx, "u1")
	require.NoError(t, err)
	res, err := svc.Grant(ctx, admin, GrantRequest{UserID: "u1"})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Reactivated)
	assert.Equal(t, int64(1), activeCommands(t, store, "u1"))
}

func TestRenew(t *testing.T) {
	backend, store, svc := setupTest(t)
	ctx := context.Background()
	require.NoError(t, store.PremiumUsers.Insert(ctx, &models.PremiumUser{
		ID: "u1", UserID: "u1", SubscriptionType: models.SubscriptionMonthly, Status: "expired",
		RenewalReminders: models.RenewalReminders{SevenDays: true, ThreeDays: true, OneDay: true},
	}))
	seedCommand(t, store, "expired", "u1", false, ReasonExpired)
	seedCommand(t, store, "revoked", "u1", false, ReasonRemoved)
	seedCommand(t, store, "deleted", "u1", false, "")

	res, err := svc.Renew(ctx, admin, "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Reactivated)
	assert.True(t, fixedNow.Add(MonthlyPeriod).Equal(res.ExpiresAt))

	record, _ := store.PremiumUsers.Get(ctx, "u1")
	assert.True(t, record.IsActive)
	assert.Empty(t, record.Status)
	assert.Equal(t, models.RenewalReminders{}, record.RenewalReminders)
	assert.Equal(t, "admin-1", record.RenewedBy)
	assert.True(t, fixedNow.Equal(record.RenewedAt.Time))

	raw, _ := backend.Raw(database.CollPremiumUsers, "u1")
	assert.NotContains(t, raw, "status")
	assert.Equal(t, int64(2), activeCommands(t, store, "u1"))
}

func TestRenewMissingUser(t *testing.T) {
	_, _, svc := setupTest(t)
	_, err := svc.Renew(context.Background(), admin, "ghost")
	status, _ := errors.StatusOf(err)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestSweepExpired(t *testing.T) {
	_, store, svc := setupTest(t)
	ctx := context.Background()
	insert := func(id string, typ models.SubscriptionType, active bool, expires time.Time) {
		require.NoError(t, store.PremiumUsers.Insert(ctx, &models.PremiumUser{
			ID: id, UserID: id, Username: id, SubscriptionType: typ, IsActive: active, ExpiresAt: models.NewTimestamp(expires),
		}))
	}
	insert("lapsed", models.SubscriptionMonthly, true, fixedNow.Add(-time.Hour))
	insert("current", models.SubscriptionMonthly, true, fixedNow.Add(time.Hour))
	insert("forever", models.SubscriptionPermanent, true, time.Time{})
	insert("already-off", models.SubscriptionMonthly, false, fixedNow.Add(-time.Hour))
	seedCommand(t, store, "lapsed-cmd", "lapsed", true, "")
	seedCommand(t, store, "current-cmd", "current", true, "")

	expired, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, "lapsed", expired[0].UserID)
	assert.Equal(t, 1, expired[0].Deactivated)

	record, _ := store.PremiumUsers.Get(ctx, "lapsed")
	assert.False(t, record.IsActive)
	assert.Equal(t, "expired", record.Status)
	assert.Zero(t, activeCommands(t, store, "lapsed"))
	assert.Equal(t, int64(1), activeCommands(t, store, "current"))

	cmd, _ := store.CustomCommands.Get(ctx, "lapsed-cmd")
	assert.Equal(t, ReasonExpired, cmd.DeactivationReason)

	again, err := svc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestExpiringSoonAndMarkReminder(t *testing.T) {
	_, store, svc := setupTest(t)
	ctx := context.Background()
	insert := func(id string, expires time.Time, reminders models.RenewalReminders) {
		require.NoError(t, store.PremiumUsers.Insert(ctx, &models.PremiumUser{
			ID: id, UserID: id, Username: id, SubscriptionType: models.SubscriptionMonthly, IsActive: true,
			ExpiresAt: models.NewTimestamp(expires), RenewalReminders: reminders,
		}))
	}
	insert("week", fixedNow.AddDate(0, 0, 7).Add(2*time.Hour), models.RenewalReminders{})
	insert("three", fixedNow.AddDate(0, 0, 3), models.RenewalReminders{})
	insert("reminded", fixedNow.AddDate(0, 0, 1), models.RenewalReminders{OneDay: true})
	insert("far", fixedNow.AddDate(0, 0, 20), models.RenewalReminders{})

	due, err := svc.ExpiringSoon(ctx)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "week", due[0].UserID)
	assert.Equal(t, "sevenDays", due[0].WarningType)
	assert.Equal(t, "three", due[1].UserID)
	assert.Equal(t, 3, due[1].DaysRemaining)

	require.NoError(t, svc.MarkReminderSent(ctx, "week", "sevenDays"))
	record, _ := store.PremiumUsers.Get(ctx, "week")
	assert.True(t, record.RenewalReminders.SevenDays)
	require.Len(t, record.WarningsSent, 1)
	assert.Equal(t, "sevenDays", record.WarningsSent[0].Period)

	due, err = svc.ExpiringSoon(ctx)
	require.NoError(t, err)
	assert.Len(t, due, 1)

	err = svc.MarkReminderSent(ctx, "week", "tomorrow")
	status, _ := errors.StatusOf(err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestListActiveNewestFirst(t *testing.T) {
	_, store, svc := setupTest(t)
	ctx := context.Background()
	for i, id := range []string{"old", "new", "mid"} {
		offsets := []time.Duration{-48 * time.Hour, 0, -24 * time.Hour}
		require.NoError(t, store.PremiumUsers.Insert(ctx, &models.PremiumUser{
			ID: id, UserID: id, IsActive: true, AddedAt: models.NewTimestamp(fixedNow.Add(offsets[i])),
		}))
	}
	require.NoError(t, store.PremiumUsers.Insert(ctx, &models.PremiumUser{ID: "gone", IsActive: false}))

	users, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	assert.Equal(t, "new", users[0].ID)
	assert.Equal(t, "mid", users[1].ID)
	assert.Equal(t, "old", users[2].ID)
}
