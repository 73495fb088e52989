// Package control toggles the bot's operational modes. Writes are merges on
// the shared singletons; the bot picks them up on its next read.
package control

import (
	"context"
	"fmt"

	"github.com/PancyStudios/PancyDash/internal/live"
	"github.com/PancyStudios/PancyDash/internal/session"
	"github.com/PancyStudios/PancyDash/pkg/database"
	"github.com/PancyStudios/PancyDash/pkg/logger"
	"github.com/PancyStudios/PancyDash/pkg/models"
	"go.mongodb.org/mongo-driver/bson"
)

// Where a dev-mode toggle came from
const (
	SourceWebsite = "website"
	SourceCLI     = "cli"
)

// Publisher receives mode changes for live clients
type Publisher interface {
	Publish(e live.Event)
}

// Service reads and writes the dev-mode and maintenance flags
type Service struct {
	store  *database.Store
	events Publisher
}

// NewService creates a control service. events may be nil.
func NewService(store *database.Store, events Publisher) *Service {
	return &Service{store: store, events: events}
}

func (s *Service) publish(e live.Event) {
	if s.events != nil {
		s.events.Publish(e)
	}
}

// SetDevMode records a dev-mode toggle with its audit trail and flags it for
// the bot to announce
func (s *Service) SetDevMode(ctx context.Context, actor *session.User, enabled bool, from string) error {
	err := s.store.BotSettings.Set(ctx, models.DevModeID, bson.M{
		"enabled":           enabled,
		"lastToggled":       database.ServerTimestamp,
		"toggledBy":         actor.DisplayName(),
		"toggledByUserId":   actor.ID,
		"toggledFrom":       from,
		"needsNotification": true,
		"notificationSent":  false,
	}, true)
	if err != nil {
		return fmt.Errorf("toggling dev mode: %w", err)
	}

	state := "desactivado"
	if enabled {
		state = "activado"
	}
	logger.Success(fmt.Sprintf("Modo dev %s desde %s por %s", state, from, actor.DisplayName()), "Control")
	s.publish(live.Event{
		Type:      live.EventDevMode,
		AdminOnly: true,
		Data:      map[string]any{"enabled": enabled, "toggledBy": actor.DisplayName(), "toggledFrom": from},
	})
	return nil
}

// DevMode returns the stored dev-mode document, or a disabled one when the
// bot has never written it
func (s *Service) DevMode(ctx context.Context) (*models.DevMode, error) {
	doc, err := s.store.BotSettings.Get(ctx, models.DevModeID)
	if err != nil {
		return nil, fmt.Errorf("reading dev mode: %w", err)
	}
	if doc == nil {
		return &models.DevMode{ID: models.DevModeID, NotificationSent: true}, nil
	}
	return doc, nil
}

// SetMaintenance merges the maintenance and dev flags into the stats singleton
func (s *Service) SetMaintenance(ctx context.Context, actor *session.User, maintenance, devMode bool) error {
	err := s.store.BotStats.Set(ctx, models.BotStatsID, bson.M{
		"maintenanceMode":  maintenance,
		"devMode":          devMode,
		"lastStatusUpdate": database.ServerTimestamp,
		"lastUpdated":      database.ServerTimestamp,
	}, true)
	if err != nil {
		return fmt.Errorf("updating maintenance mode: %w", err)
	}

	logger.Info(fmt.Sprintf("Modo mantenimiento actualizado a %v por %s", maintenance, actor.DisplayName()), "Control")
	s.publish(live.Event{
		Type:      live.EventMaintenance,
		AdminOnly: true,
		Data:      map[string]bool{"maintenanceMode": maintenance, "devMode": devMode},
	})
	return nil
}
