// Package dashboard serves the display read models: headline stats, bot
// status and per-guild playback status.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyDash/pkg/cache"
	"github.com/PancyStudios/PancyDash/pkg/database"
	"github.com/PancyStudios/PancyDash/pkg/errors"
	"github.com/PancyStudios/PancyDash/pkg/logger"
	"github.com/PancyStudios/PancyDash/pkg/metrics"
	"github.com/PancyStudios/PancyDash/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

// Where a Stats value came from
const (
	SourceStats    = "stats"
	SourceLive     = "live"
	SourceFallback = "fallback"
)

// Values served when neither the singleton nor the guild documents answer
const (
	FallbackServers = 80
	FallbackUsers   = 4000
)

// MusicStaleAfter is how old a playback snapshot may be before it reads as idle
const MusicStaleAfter = 30 * time.Second

const statsCacheKey = "stats:global"

// Stats is the headline numbers block
type Stats struct {
	TotalServers  int64      `json:"totalServers"`
	TotalUsers    int64      `json:"totalUsers"`
	TotalCommands int64      `json:"totalCommands"`
	TotalSongs    int64      `json:"totalSongs"`
	Uptime        string     `json:"uptime"`
	Status        string     `json:"status"`
	LastUpdated   *time.Time `json:"lastUpdated"`
	Source        string     `json:"source"`
}

// BotStatus is the heartbeat view shown on the admin page
type BotStatus struct {
	Status           string     `json:"status"`
	MaintenanceMode  bool       `json:"maintenanceMode"`
	DevMode          bool       `json:"devMode"`
	LastStatusUpdate *time.Time `json:"lastStatusUpdate"`
	Uptime           string     `json:"uptime"`
	TotalGuilds      int64      `json:"totalGuilds"`
	TotalUsers       int64      `json:"totalUsers"`
	LastHeartbeat    *time.Time `json:"lastHeartbeat"`
}

// MusicStatus is a guild's playback view
type MusicStatus struct {
	CurrentSong *models.Song  `json:"currentSong"`
	Queue       []models.Song `json:"queue"`
	IsPlaying   bool          `json:"isPlaying"`
	Volume      int           `json:"volume"`
	Position    int64         `json:"position"`
	LastUpdated *time.Time    `json:"lastUpdated"`
}

// Service answers the display endpoints
type Service struct {
	store      *database.Store
	cache      *cache.Cache
	cacheTTL   time.Duration
	staleAfter time.Duration
	now        func() time.Time
}

// NewService creates a dashboard service. c may be nil.
func NewService(store *database.Store, c *cache.Cache, cacheTTL, staleAfter time.Duration) *Service {
	return &Service{store: store, cache: c, cacheTTL: cacheTTL, staleAfter: staleAfter, now: time.Now}
}

// Stats returns the headline numbers. It never fails: each tier that cannot
// answer falls through to the next, ending at fixed defaults.
func (s *Service) Stats(ctx context.Context) Stats {
	var cached Stats
	if found, err := s.cache.GetJSON(ctx, statsCacheKey, &cached); err != nil {
		logger.Warn("Cache de estadísticas no disponible: "+err.Error(), "Dashboard")
	} else if found {
		return cached
	}

	stats := s.resolveStats(ctx)
	metrics.StatsSource.WithLabelValues(stats.Source).Inc()
	if stats.Source != SourceFallback {
		if err := s.cache.SetJSON(ctx, statsCacheKey, stats, s.cacheTTL); err != nil {
			logger.Warn("No se pudo guardar estadísticas en cache: "+err.Error(), "Dashboard")
		}
	}
	return stats
}

func (s *Service) resolveStats(ctx context.Context) Stats {
	doc, err := s.store.BotStats.Get(ctx, models.BotStatsID)
	if err != nil {
		logger.Warn("Error leyendo botStats/global: "+err.Error(), "Dashboard")
		doc = nil
	}
	if doc != nil && !s.stale(doc.LastUpdated) {
		return fromSingleton(doc)
	}

	live, err := s.liveStats(ctx)
	if err == nil && live != nil {
		return *live
	}
	if err != nil {
		logger.Warn("Error agregando estadísticas de servidores: "+err.Error(), "Dashboard")
	}

	if doc != nil {
		return fromSingleton(doc)
	}

	logger.Warn("Usando estadísticas de respaldo", "Dashboard")
	return Stats{
		TotalServers: FallbackServers,
		TotalUsers:   FallbackUsers,
		Uptime:       "0",
		Status:       "online",
		Source:       SourceFallback,
	}
}

func (s *Service) stale(lastUpdated models.Timestamp) bool {
	return lastUpdated.IsZero() || s.now().Sub(lastUpdated.Time) > s.staleAfter
}

func fromSingleton(doc *models.BotStats) Stats {
	servers := doc.TotalActiveGuilds
	if servers == 0 {
		servers = doc.TotalGuilds
	}
	status := doc.Status
	if status == "" {
		status = "online"
	}
	return Stats{
		TotalServers:  servers,
		TotalUsers:    doc.TotalUsers,
		TotalCommands: doc.CommandsUsed,
		TotalSongs:    doc.TotalSongs,
		Uptime:        doc.Uptime,
		Status:        status,
		LastUpdated:   doc.LastUpdated.Ptr(),
		Source:        SourceStats,
	}
}

// liveStats aggregates over guilds the bot is in. It returns nil, nil when
// there are none.
func (s *Service) liveStats(ctx context.Context) (*Stats, error) {
	guilds, err := s.store.Guilds.Find(ctx, database.Query{Filter: bson.M{"botPresent": true}})
	if err != nil {
		return nil, fmt.Errorf("aggregating guild stats: %w", err)
	}
	if len(guilds) == 0 {
		return nil, nil
	}

	now := s.now().UTC()
	out := &Stats{
		TotalServers: int64(len(guilds)),
		Uptime:       "0",
		Status:       "online",
		LastUpdated:  &now,
		Source:       SourceLive,
	}
	for _, g := range guilds {
		out.TotalUsers += int64(g.MemberCount)
		out.TotalCommands += g.CommandsUsed
		out.TotalSongs += g.SongsPlayed
	}
	return out, nil
}

// BotStatus reads the heartbeat and the dev-mode flag concurrently
func (s *Service) BotStatus(ctx context.Context) (*BotStatus, error) {
	var (
		stats *models.BotStats
		dev   *models.DevMode
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		stats, err = s.store.BotStats.Get(gctx, models.BotStatsID)
		return err
	})
	g.Go(func() error {
		var err error
		dev, err = s.store.BotSettings.Get(gctx, models.DevModeID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reading bot status: %w", err)
	}

	if stats == nil {
		return nil, errors.NotFound("Bot stats not found")
	}
	devEnabled := dev != nil && dev.Enabled

	status := stats.Status
	if status == "" {
		status = "unknown"
	}
	lastStatus := stats.LastStatusUpdate
	if lastStatus.IsZero() {
		lastStatus = stats.LastUpdated
	}
	return &BotStatus{
		Status:           status,
		MaintenanceMode:  stats.MaintenanceMode || devEnabled,
		DevMode:          stats.DevMode || devEnabled,
		LastStatusUpdate: lastStatus.Ptr(),
		Uptime:           stats.Uptime,
		TotalGuilds:      stats.TotalGuilds,
		TotalUsers:       stats.TotalUsers,
		LastHeartbeat:    stats.LastUpdated.Ptr(),
	}, nil
}

// MusicStatus returns a guild's playback snapshot, or an idle view when the
// bot has not reported recently
func (s *Service) MusicStatus(ctx context.Context, serverID string) (*MusicStatus, error) {
	if serverID == "" {
		return nil, errors.BadRequest("Server ID required")
	}

	doc, err := s.store.MusicStatus.Get(ctx, serverID)
	if err != nil {
		return nil, fmt.Errorf("reading music status of %s: %w", serverID, err)
	}

	idle := &MusicStatus{Queue: []models.Song{}, Volume: 50}
	if doc == nil {
		return idle, nil
	}
	if doc.Volume > 0 {
		idle.Volume = doc.Volume
	}
	idle.LastUpdated = doc.LastUpdated.Ptr()
	if doc.LastUpdated.IsZero() || s.now().Sub(doc.LastUpdated.Time) >= MusicStaleAfter {
		return idle, nil
	}

	out := &MusicStatus{
		CurrentSong: doc.CurrentSong,
		Queue:       doc.Queue,
		IsPlaying:   doc.IsPlaying,
		Volume:      idle.Volume,
		Position:    doc.Position,
		LastUpdated: idle.LastUpdated,
	}
	if out.Queue == nil {
		out.Queue = []models.Song{}
	}
	return out, nil
}
