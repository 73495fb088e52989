package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PancyStudios/PancyDash/internal/auth"
	"github.com/PancyStudios/PancyDash/internal/control"
	"github.com/PancyStudios/PancyDash/internal/customcmd"
	"github.com/PancyStudios/PancyDash/internal/dashboard"
	"github.com/PancyStudios/PancyDash/internal/favorites"
	"github.com/PancyStudios/PancyDash/internal/guilds"
	"github.com/PancyStudios/PancyDash/internal/live"
	"github.com/PancyStudios/PancyDash/internal/premium"
	"github.com/PancyStudios/PancyDash/internal/relay"
	"github.com/PancyStudios/PancyDash/internal/search"
	"github.com/PancyStudios/PancyDash/internal/session"
	"github.com/PancyStudios/PancyDash/pkg/database"
	"github.com/PancyStudios/PancyDash/pkg/database/memstore"
	"github.com/PancyStudios/PancyDash/pkg/models"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func init() {
	gin.SetMode(gin.TestMode)
}

var (
	adminUser  = &session.User{ID: "admin-1", Name: "Pancy"}
	memberUser = &session.User{ID: "u1", Name: "member"}
)

type fixture struct {
	store  *database.Store
	auth   *auth.Authenticator
	engine *gin.Engine
}

func setupTest(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	hub := live.NewHub(nil)

	a := auth.New(auth.Options{Secret: "test-secret", TTL: time.Hour, Admins: []string{adminUser.ID}}, store.Users, nil)
	premiumSvc := premium.NewService(store, hub)
	searchSvc, err := search.NewService(context.Background(), "")
	require.NoError(t, err)

	h := &Handlers{
		Auth:      a,
		Relay:     relay.NewCommandRelay(store, nil, hub),
		Process:   relay.NewProcessControl(store, nil, hub),
		Control:   control.NewService(store, hub),
		Premium:   premiumSvc,
		Commands:  customcmd.NewService(store, premiumSvc),
		Guilds:    guilds.NewService(store),
		Dashboard: dashboard.NewService(store, nil, time.Minute, 15*time.Minute),
		Favorites: favorites.NewService(store),
		Search:    searchSvc,
		Live:      hub,
	}

	r := gin.New()
	Register(r.Group("/api"), h)
	return &fixture{store: store, auth: a, engine: r}
}

func (f *fixture) do(t *testing.T, method, target string, user *session.User, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		buf.Write(raw)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != nil {
		cookie, err := f.auth.CookieFor(user)
		require.NoError(t, err)
		req.AddCookie(cookie)
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestRouteGuards(t *testing.T) {
	f := setupTest(t)

	tests := []struct {
		name   string
		method string
		path   string
		user   *session.User
		status int
	}{
		{"stats is public", http.MethodGet, "/api/stats", nil, http.StatusOK},
		{"custom commands need a session", http.MethodGet, "/api/custom-commands", nil, http.StatusUnauthorized},
		{"bot command needs a session", http.MethodPost, "/api/bot-command", nil, http.StatusUnauthorized},
		{"admin route rejects anonymous", http.MethodGet, "/api/guilds/admin", nil, http.StatusUnauthorized},
		{"admin route rejects members", http.MethodGet, "/api/guilds/admin", memberUser, http.StatusForbidden},
		{"process control rejects members", http.MethodPost, "/api/admin/pm2", memberUser, http.StatusForbidden},
		{"devmode rejects members", http.MethodPost, "/api/admin/devmode", memberUser, http.StatusForbidden},
		{"premium list rejects members", http.MethodGet, "/api/admin/premium/list", memberUser, http.StatusForbidden},
		{"admin route lets admins in", http.MethodGet, "/api/guilds/admin", adminUser, http.StatusOK},
		{"charts are public", http.MethodGet, "/api/charts", nil, http.StatusOK},
		{"favorites need a session", http.MethodGet, "/api/user-favorites", nil, http.StatusUnauthorized},
		{"music stats need a session", http.MethodGet, "/api/server-music-stats?serverId=g1", nil, http.StatusUnauthorized},
		{"admin stats reject members", http.MethodGet, "/api/admin/stats", memberUser, http.StatusForbidden},
		{"admin stats let admins in", http.MethodGet, "/api/admin/stats", adminUser, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, tt.method, tt.path, tt.user, nil)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestStatsFallback(t *testing.T) {
	f := setupTest(t)
	w := f.do(t, http.MethodGet, "/api/stats", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "fallback", body["source"])
	assert.EqualValues(t, dashboard.FallbackServers, body["totalServers"])
}

func TestBotStatusNotFound(t *testing.T) {
	f := setupTest(t)
	w := f.do(t, http.MethodGet, "/api/bot-status", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Bot stats not found"}`, w.Body.String())
}

func TestDevModeToggle(t *testing.T) {
	f := setupTest(t)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"missing value", map[string]any{}, http.StatusBadRequest},
		{"string value", map[string]any{"enabled": "yes"}, http.StatusBadRequest},
		{"enable", map[string]any{"enabled": true}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/admin/devmode", adminUser, tt.body)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusBadRequest {
				assert.JSONEq(t, `{"error":"Invalid enabled value"}`, w.Body.String())
			}
		})
	}

	doc, err := f.store.BotSettings.Get(context.Background(), "devMode")
	require.NoError(t, err)
	require.NotNil(t, doc)
	assert.True(t, doc.Enabled)
	assert.Equal(t, control.SourceWebsite, doc.ToggledFrom)
	assert.Equal(t, adminUser.ID, doc.ToggledByUserID)

	w := f.do(t, http.MethodGet, "/api/admin/devmode-status", adminUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"enabled":true`)
}

func TestMaintenanceDevModeFollowsByDefault(t *testing.T) {
	f := setupTest(t)
	w := f.do(t, http.MethodPost, "/api/admin/maintenance", adminUser, map[string]any{"maintenanceMode": true})
	require.Equal(t, http.StatusOK, w.Code)

	raw, ok := f.store.Status.(*memstore.Backend).Raw(database.CollBotStats, "global")
	require.True(t, ok)
	assert.Equal(t, true, raw["maintenanceMode"])
	assert.Equal(t, true, raw["devMode"])

	w = f.do(t, http.MethodPost, "/api/admin/maintenance", adminUser, map[string]any{"maintenanceMode": true, "devMode": false})
	require.Equal(t, http.StatusOK, w.Code)
	raw, _ = f.store.Status.(*memstore.Backend).Raw(database.CollBotStats, "global")
	assert.Equal(t, false, raw["devMode"])
}

func TestCustomCommandFlow(t *testing.T) {
	f := setupTest(t)

	w := f.do(t, http.MethodPost, "/api/custom-commands", memberUser, map[string]any{
		"commandName": "bad name!",
		"playlist":    []string{"song"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Command name can only contain letters, numbers, and underscores"}`, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/custom-commands", memberUser, map[string]any{"commandName": "chill"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Command name and playlist are required"}`, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/custom-commands", memberUser, map[string]any{
		"commandName": "Chill",
		"playlist":    []string{"lofi", " "},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	id, _ := decode(t, w)["commandId"].(string)
	require.NotEmpty(t, id)

	w = f.do(t, http.MethodPost, "/api/custom-commands", memberUser, map[string]any{
		"commandName": "other",
		"playlist":    []string{"a"},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "standard users get one command")

	w = f.do(t, http.MethodGet, "/api/custom-commands", memberUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["commands"], 1)

	w = f.do(t, http.MethodPut, "/api/custom-commands/"+id, adminUser, map[string]any{
		"commandName": "Chill",
		"playlist":    []string{"x"},
	})
	assert.Equal(t, http.StatusNotFound, w.Code, "only the owner may edit")

	w = f.do(t, http.MethodPut, "/api/custom-commands/"+id, memberUser, map[string]any{
		"commandName": "Chill",
		"playlist":    []string{"x", "y"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodDelete, "/api/custom-commands/"+id, memberUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "deleted successfully")

	w = f.do(t, http.MethodGet, "/api/custom-commands", memberUser, nil)
	assert.Len(t, decode(t, w)["commands"], 0)
}

func TestPremiumEndpoints(t *testing.T) {
	f := setupTest(t)

	w := f.do(t, http.MethodPost, "/api/admin/premium/add", adminUser, map[string]any{"userId": "", "subscriptionType": "monthly"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/admin/premium/add", adminUser, map[string]any{"userId": memberUser.ID, "subscriptionType": "monthly"})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/premium/status", memberUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"isPremium":true}`, w.Body.String())

	w = f.do(t, http.MethodGet, "/api/admin/premium/list", adminUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["data"], 1)

	w = f.do(t, http.MethodPost, "/api/admin/premium/renew", adminUser, map[string]any{"userId": memberUser.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "newExpirationDate")

	w = f.do(t, http.MethodPost, "/api/admin/premium/remove", adminUser, map[string]any{"userId": memberUser.ID})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/premium/status", memberUser, nil)
	assert.JSONEq(t, `{"success":true,"isPremium":false}`, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/admin/premium/remove", adminUser, map[string]any{"userId": "nobody"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodPost, "/api/admin/premium/reminder", adminUser, map[string]any{"userId": memberUser.ID, "warningType": "weekly"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// completePending plays the bot: it finishes every pending request it sees
func completePending(t *testing.T, store *database.Store, fields bson.M) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() {
		tick := time.NewTicker(20 * time.Millisecond)
		defer tick.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-tick.C:
				pending, err := store.CommandQueue.Find(ctx, database.Query{Filter: bson.M{"status": "pending"}})
				if err != nil {
					continue
				}
				for _, p := range pending {
					_ = store.CommandQueue.Update(ctx, p.ID, fields)
				}
			}
		}
	}()
}

func TestBotCommand(t *testing.T) {
	f := setupTest(t)
	ctx := context.Background()
	require.NoError(t, f.store.Guilds.Insert(ctx, &models.Guild{ID: "g1", Name: "Home", BotPresent: true}))
	require.NoError(t, f.store.Guilds.Insert(ctx, &models.Guild{ID: "g2", Name: "Gone", BotPresent: false}))

	w := f.do(t, http.MethodPost, "/api/bot-command", memberUser, map[string]any{"serverId": "g1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Server ID and command required"}`, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/bot-command", memberUser, map[string]any{"serverId": "g2", "command": "skip"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 0, f.store.Status.(*memstore.Backend).Len(database.CollCommandQueue))

	completePending(t, f.store, bson.M{"status": "completed", "response": "Skipped", "completedAt": database.ServerTimestamp})
	w = f.do(t, http.MethodPost, "/api/bot-command", memberUser, map[string]any{"serverId": "g1", "command": "skip"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Skipped", body["message"])
}

func TestCommandStatusVisibility(t *testing.T) {
	f := setupTest(t)
	require.NoError(t, f.store.CommandQueue.Insert(context.Background(), &models.CommandRequest{
		ID:     "c1",
		UserID: memberUser.ID,
		Status: models.StatusPending,
	}))

	tests := []struct {
		name   string
		id     string
		user   *session.User
		status int
	}{
		{"author", "c1", memberUser, http.StatusOK},
		{"admin", "c1", adminUser, http.StatusOK},
		{"someone else", "c1", &session.User{ID: "u2"}, http.StatusForbidden},
		{"unknown", "missing", memberUser, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, "/api/command/"+tt.id, tt.user, nil)
			assert.Equal(t, tt.status, w.Code)
		})
	}
}

func TestProcessInvalidAction(t *testing.T) {
	f := setupTest(t)
	w := f.do(t, http.MethodPost, "/api/admin/pm2", adminUser, map[string]any{"action": "format-disk"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid action"}`, w.Body.String())
	assert.Equal(t, 0, f.store.Status.(*memstore.Backend).Len(database.CollProcessCommands))
}

func TestServerSettings(t *testing.T) {
	f := setupTest(t)
	require.NoError(t, f.store.Guilds.Insert(context.Background(), &models.Guild{ID: "g1", OwnerID: memberUser.ID, BotPresent: true}))

	w := f.do(t, http.MethodGet, "/api/server-settings?serverId=g1", memberUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"defaultVolume":50`)

	w = f.do(t, http.MethodPost, "/api/server-settings", memberUser, map[string]any{
		"serverId": "g1",
		"settings": map[string]any{"defaultVolume": 500},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/server-settings?serverId=g1", memberUser, map[string]any{
		"settings": map[string]any{"defaultVolume": 80},
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"defaultVolume":80`)

	w = f.do(t, http.MethodPost, "/api/server-settings?serverId=g1", &session.User{ID: "u2"}, map[string]any{
		"settings": map[string]any{"defaultVolume": 10},
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestServerActivityPeriod(t *testing.T) {
	f := setupTest(t)

	w := f.do(t, http.MethodGet, "/api/server-activity", adminUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "7d", decode(t, w)["period"])

	w = f.do(t, http.MethodGet, "/api/server-activity?period=1y", adminUser, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMusicSearchWithoutKey(t *testing.T) {
	f := setupTest(t)

	w := f.do(t, http.MethodPost, "/api/music-search", nil, map[string]any{"query": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/music-search", nil, map[string]any{"query": "lofi"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["results"], 3)
}

func TestFavoritesEndpoints(t *testing.T) {
	f := setupTest(t)

	w := f.do(t, http.MethodGet, "/api/user-favorites", memberUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"favorites":[]}`, w.Body.String())

	w = f.do(t, http.MethodPost, "/api/user-favorites", memberUser, map[string]any{"artist": "nobody"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(t, http.MethodPost, "/api/user-favorites", memberUser, map[string]any{
		"title": "Lofi", "artist": "Pancy", "url": "https://youtu.be/lofi",
	})
	require.Equal(t, http.StatusOK, w.Code)
	favorite, ok := decode(t, w)["favorite"].(map[string]any)
	require.True(t, ok)
	songID, _ := favorite["id"].(string)
	assert.Contains(t, songID, "fav_")

	w = f.do(t, http.MethodGet, "/api/user-favorites", adminUser, nil)
	assert.JSONEq(t, `{"favorites":[]}`, w.Body.String(), "favorites are per user")

	w = f.do(t, http.MethodDelete, "/api/user-favorites", memberUser, map[string]any{"songId": songID})
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/user-favorites", memberUser, nil)
	assert.JSONEq(t, `{"favorites":[]}`, w.Body.String())

	w = f.do(t, http.MethodDelete, "/api/user-favorites", memberUser, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServerMusicStats(t *testing.T) {
	f := setupTest(t)
	ctx := context.Background()
	require.NoError(t, f.store.Guilds.Insert(ctx, &models.Guild{ID: "g1", Name: "Alpha", BotPresent: true}))
	require.NoError(t, f.store.CommandLogs.Insert(ctx, &models.CommandLog{
		ID: "l1", GuildID: "g1", UserID: "u1", Username: "member", Command: "play", Timestamp: models.Now(),
	}))

	w := f.do(t, http.MethodGet, "/api/server-music-stats?serverId=g1", memberUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "7d", body["range"])
	assert.EqualValues(t, 1, body["totalSongs"])
	assert.EqualValues(t, 180, body["totalPlaytime"])

	w = f.do(t, http.MethodGet, "/api/server-music-stats?serverId=ghost", memberUser, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(t, http.MethodGet, "/api/server-music-stats", memberUser, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminStatsRoute(t *testing.T) {
	f := setupTest(t)
	require.NoError(t, f.store.Guilds.Insert(context.Background(), &models.Guild{ID: "g1", Name: "Alpha"}))

	w := f.do(t, http.MethodGet, "/api/admin/stats", adminUser, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 1, body["totalServers"])
	sensitive, ok := body["sensitiveData"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, sensitive["guilds"], 1)
}

func TestChartsDays(t *testing.T) {
	f := setupTest(t)

	w := f.do(t, http.MethodGet, "/api/charts", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	usage, ok := decode(t, w)["commandUsage"].(map[string]any)
	require.True(t, ok)
	assert.Len(t, usage["labels"], dashboard.DefaultChartDays)

	w = f.do(t, http.MethodGet, "/api/charts?days=30", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	for _, days := range []string{"abc", "0", "365"} {
		w = f.do(t, http.MethodGet, "/api/charts?days="+days, nil, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, "days=%s", days)
	}
}

func TestRegisterCommandName(t *testing.T) {
	v := validator.New()
	v.SetTagName("binding")
	require.NoError(t, registerCommandName(v))

	tests := []struct {
		name    string
		command string
		wantErr bool
	}{
		{"letters and digits", "my_mix2", false},
		{"spaces", "my mix", true},
		{"punctuation", "mix!", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(customcmd.Input{CommandName: tt.command, Playlist: []string{"song"}})
			if (err != nil) != tt.wantErr {
				t.Errorf("validate %q error = %v, wantErr %v", tt.command, err, tt.wantErr)
			}
		})
	}
}
