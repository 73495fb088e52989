package guilds

import (
	"context"
	"fmt"
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
)

var fixedNow = time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC)

func setupTest(t *testing.T) (*database.Store, *Service) {
	t.Helper()
	store := memstore.New()
	svc := NewService(store)
	svc.now = func() time.Time { return fixedNow }
	return store, svc
}

func daysAgo(d int) models.Timestamp {
	return models.NewTimestamp(fixedNow.Add(-time.Duration(d) * 24 * time.Hour))
}

func insertGuild(t *testing.T, store *database.Store, g models.Guild) {
	t.Helper()
	require.NoError(t, store.Guilds.Insert(context.Background(), &g))
}

func ids(guilds []*models.Guild) []string {
	out := make([]string, len(guilds))
	for i, g := range guilds {
		out[i] = g.ID
	}
	return out
}

func TestListings(t *testing.T) {
	store, svc := setupTest(t)
	insertGuild(t, store, models.Guild{ID: "a", OwnerID: "u1", LastActive: daysAgo(3)})
	insertGuild(t, store, models.Guild{ID: "b", OwnerID: "u2", LastActive: daysAgo(1)})
	insertGuild(t, store, models.Guild{ID: "c", OwnerID: "u1", LastActive: daysAgo(2)})

	all, err := svc.All(context.Background())
	require.NoError(t, err)
	assert.True(t, all.Success)
	assert.Equal(t, 3, all.Total)
	assert.Equal(t, []string{"b", "c", "a"}, ids(all.Guilds))

	mine, err := svc.OwnedBy(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 2, mine.Total)
	assert.Equal(t, []string{"c", "a"}, ids(mine.Guilds))

	none, err := svc.OwnedBy(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Zero(t, none.Total)
	assert.NotNil(t, none.Guilds)
}

func TestActivityWindows(t *testing.T) {
	store, svc := setupTest(t)
	insertGuild(t, store, models.Guild{ID: "joined-2d", BotPresent: true, BotJoinedAt: daysAgo(2)})
	insertGuild(t, store, models.Guild{ID: "joined-20d", BotPresent: true, BotJoinedAt: daysAgo(20)})
	insertGuild(t, store, models.Guild{ID: "joined-60d", BotPresent: true, BotJoinedAt: daysAgo(60)})
	insertGuild(t, store, models.Guild{ID: "joined-then-left", BotPresent: false, BotJoinedAt: daysAgo(3), LeftAt: daysAgo(1)})
	insertGuild(t, store, models.Guild{ID: "left-40d", BotPresent: false, LeftAt: daysAgo(40)})

	tests := []struct {
		period     string
		wantAdded  []string
		wantLeft   []string
		wantPeriod string
	}{
		{"", []string{"joined-2d"}, []string{"joined-then-left"}, "7d"},
		{"7d", []string{"joined-2d"}, []string{"joined-then-left"}, "7d"},
		{"30d", []string{"joined-2d", "joined-20d"}, []string{"joined-then-left"}, "30d"},
		{"90d", []string{"joined-2d", "joined-20d", "joined-60d"}, []string{"joined-then-left", "left-40d"}, "90d"},
	}
	for _, tt := range tests {
		t.Run(tt.wantPeriod+"/"+tt.period, func(t *testing.T) {
			got, err := svc.Activity(context.Background(), tt.period)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAdded, ids(got.RecentlyAdded))
			assert.Equal(t, tt.wantLeft, ids(got.RecentlyLeft))
			assert.Equal(t, tt.wantPeriod, got.Period)
		})
	}
}

func TestActivityStartDate(t *testing.T) {
	_, svc := setupTest(t)
	got, err := svc.Activity(context.Background(), "30d")
	require.NoError(t, err)
	assert.Equal(t, fixedNow.Add(-30*24*time.Hour), got.StartDate)
	assert.NotNil(t, got.RecentlyAdded)
	assert.NotNil(t, got.RecentlyLeft)
}

func TestActivityInvalidPeriod(t *testing.T) {
	_, svc := setupTest(t)
	_, err := svc.Activity(context.Background(), "1y")
	status, msg := errors.StatusOf(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid period", msg)
}

func TestActivityLimit(t *testing.T) {
	store, svc := setupTest(t)
	for i := 0; i < ActivityLimit+5; i++ {
		insertGuild(t, store, models.Guild{
			ID:          fmt.Sprintf("g%02d", i),
			BotPresent:  true,
			BotJoinedAt: models.NewTimestamp(fixedNow.Add(-time.Duration(i) * time.Minute)),
		})
	}
	got, err := svc.Activity(context.Background(), "7d")
	require.NoError(t, err)
	assert.Len(t, got.RecentlyAdded, ActivityLimit)
	assert.Equal(t, "g00", got.RecentlyAdded[0].ID)
}

func TestSettingsDefaults(t *testing.T) {
	_, svc := setupTest(t)
	got, err := svc.Settings(context.Background(), "g1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultServerSettings(), got)

	_, err = svc.Settings(context.Background(), "")
	status, _ := errors.StatusOf(err)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSaveSettings(t *testing.T) {
	store, svc := setupTest(t)
	insertGuild(t, store, models.Guild{ID: "g1", OwnerID: "owner"})
	owner := &session.User{ID: "owner"}

	volume := 80
	_, err := svc.SaveSettings(context.Background(), owner, "g1", &models.ServerSettingsDoc{DefaultVolume: &volume})
	require.NoError(t, err)

	deleteCmds := true
	channels := []string{"c1"}
	got, err := svc.SaveSettings(context.Background(), owner, "g1", &models.ServerSettingsDoc{
		DeleteCommands:  &deleteCmds,
		AllowedChannels: &channels,
	})
	require.NoError(t, err)
	assert.Equal(t, 80, got.DefaultVolume)
	assert.True(t, got.DeleteCommands)
	assert.Equal(t, []string{"c1"}, got.AllowedChannels)
	assert.Equal(t, 100, got.MaxQueueSize)
	assert.True(t, got.AutoLeave)
}

func TestSaveSettingsPermissions(t *testing.T) {
	store, svc := setupTest(t)
	insertGuild(t, store, models.Guild{ID: "g1", OwnerID: "owner"})
	volume := 10
	patch := func() *models.ServerSettingsDoc { return &models.ServerSettingsDoc{DefaultVolume: &volume} }

	tests := []struct {
		name     string
		actor    *session.User
		serverID string
		status   int
	}{
		{"owner", &session.User{ID: "owner"}, "g1", http.StatusOK},
		{"admin", &session.User{ID: "x", IsAdmin: true}, "g1", http.StatusOK},
		{"admin unknown guild", &session.User{ID: "x", IsAdmin: true}, "g2", http.StatusOK},
		{"stranger", &session.User{ID: "x"}, "g1", http.StatusForbidden},
		{"unknown guild", &session.User{ID: "owner"}, "g2", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.SaveSettings(context.Background(), tt.actor, tt.serverID, patch())
			if tt.status == http.StatusOK {
				assert.NoError(t, err)
				return
			}
			status, msg := errors.StatusOf(err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, "Only server owners can modify settings", msg)
		})
	}
}

func TestSaveSettingsRequiresChanges(t *testing.T) {
	_, svc := setupTest(t)
	_, err := svc.SaveSettings(context.Background(), &session.User{ID: "x", IsAdmin: true}, "g1", &models.ServerSettingsDoc{})
	status, msg := errors.StatusOf(err)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Settings required", msg)
}
