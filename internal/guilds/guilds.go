// Package guilds serves guild listings, join/leave activity and per-guild
// settings
package guilds

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyDash/internal/session"
	"github.com/PancyStudios/PancyDash/pkg/database"
	"github.com/PancyStudios/PancyDash/pkg/errors"
	"github.com/PancyStudios/PancyDash/pkg/logger"
	"github.com/PancyStudios/PancyDash/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
)

// ActivityLimit caps each side of an activity report
const ActivityLimit = 50

// Periods maps the accepted lookback windows to days
var Periods = map[string]int{
	"7d":  7,
	"30d": 30,
	"90d": 90,
}

// DefaultPeriod is used when the caller does not pick one
const DefaultPeriod = "7d"

// Listing is a guild list response
type Listing struct {
	Success bool            `json:"success"`
	Guilds  []*models.Guild `json:"guilds"`
	Total   int             `json:"total"`
}

// Activity is the joined/left report for one window
type Activity struct {
	RecentlyAdded []*models.Guild `json:"recentlyAdded"`
	RecentlyLeft  []*models.Guild `json:"recentlyLeft"`
	Period        string          `json:"period"`
	StartDate     time.Time       `json:"startDate"`
}

// Service answers guild queries
type Service struct {
	store *database.Store
	now   func() time.Time
}

// NewService creates a guild service
func NewService(store *database.Store) *Service {
	return &Service{store: store, now: time.Now}
}

func (s *Service) list(ctx context.Context, filter bson.M) (*Listing, error) {
	guilds, err := s.store.Guilds.Find(ctx, database.Query{
		Filter: filter,
		Sort:   []database.SortField{database.Desc("lastActive")},
	})
	if err != nil {
		return nil, fmt.Errorf("listing guilds: %w", err)
	}
	if guilds == nil {
		guilds = []*models.Guild{}
	}
	return &Listing{Success: true, Guilds: guilds, Total: len(guilds)}, nil
}

// All lists every known guild, most recently active first
func (s *Service) All(ctx context.Context) (*Listing, error) {
	return s.list(ctx, bson.M{})
}

// OwnedBy lists the guilds userID owns, most recently active first
func (s *Service) OwnedBy(ctx context.Context, userID string) (*Listing, error) {
	return s.list(ctx, bson.M{"ownerId": userID})
}

// Activity reports guilds the bot joined and left within period
func (s *Service) Activity(ctx context.Context, period string) (*Activity, error) {
	if period == "" {
		period = DefaultPeriod
	}
	days, ok := Periods[period]
	if !ok {
		return nil, errors.BadRequest("Invalid period")
	}
	start := s.now().UTC().Add(-time.Duration(days) * 24 * time.Hour)

	added, err := s.store.Guilds.Find(ctx, database.Query{
		Filter: bson.M{"botJoinedAt": bson.M{"$gte": start}, "botPresent": true},
		Sort:   []database.SortField{database.Desc("botJoinedAt")},
		Limit:  ActivityLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing joined guilds: %w", err)
	}
	left, err := s.store.Guilds.Find(ctx, database.Query{
		Filter: bson.M{"leftAt": bson.M{"$gte": start}, "botPresent": false},
		Sort:   []database.SortField{database.Desc("leftAt")},
		Limit:  ActivityLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("listing left guilds: %w", err)
	}

	logger.Debug(fmt.Sprintf("Actividad %s: %d nuevos, %d salidas", period, len(added), len(left)), "Guilds")
	if added == nil {
		added = []*models.Guild{}
	}
	if left == nil {
		left = []*models.Guild{}
	}
	return &Activity{RecentlyAdded: added, RecentlyLeft: left, Period: period, StartDate: start}, nil
}

// Settings returns a guild's settings laid over the defaults
func (s *Service) Settings(ctx context.Context, serverID string) (models.ServerSettings, error) {
	if serverID == "" {
		return models.ServerSettings{}, errors.BadRequest("Server ID required")
	}
	doc, err := s.store.ServerSettings.Get(ctx, serverID)
	if err != nil {
		return models.ServerSettings{}, fmt.Errorf("reading settings of %s: %w", serverID, err)
	}
	return doc.Resolve(), nil
}

// SaveSettings merges patch into a guild's settings. Only the guild owner or
// an admin may write.
func (s *Service) SaveSettings(ctx context.Context, actor *session.User, serverID string, patch *models.ServerSettingsDoc) (models.ServerSettings, error) {
	if serverID == "" {
		return models.ServerSettings{}, errors.BadRequest("Server ID required")
	}
	if patch.Empty() {
		return models.ServerSettings{}, errors.BadRequest("Settings required")
	}

	if !actor.IsAdmin {
		guild, err := s.store.Guilds.Get(ctx, serverID)
		if err != nil {
			return models.ServerSettings{}, fmt.Errorf("reading guild %s: %w", serverID, err)
		}
		if guild == nil || guild.OwnerID != actor.ID {
			return models.ServerSettings{}, errors.Forbidden("Only server owners can modify settings")
		}
	}

	patch.ID = ""
	if err := s.store.ServerSettings.Set(ctx, serverID, patch, true); err != nil {
		return models.ServerSettings{}, fmt.Errorf("saving settings of %s: %w", serverID, err)
	}
	logger.Info(fmt.Sprintf("Ajustes del servidor %s actualizados por %s", serverID, actor.DisplayName()), "Guilds")
	return s.Settings(ctx, serverID)
}
