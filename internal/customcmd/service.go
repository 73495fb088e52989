// Package customcmd manages user-defined playlist commands.
// Premium owners are uncapped; standard owners get one active command with
// at most eight tracks. Limits are checked when a command is written and
// never re-checked afterwards.
package customcmd

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PancyStudios/PancyDash/internal/session"
	"github.com/PancyStudios/PancyDash/pkg/database"
	"github.com/PancyStudios/PancyDash/pkg/errors"
	"github.com/PancyStudios/PancyDash/pkg/logger"
	"github.com/PancyStudios/PancyDash/pkg/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// Standard tier allowance
const (
	StandardCommandLimit = 1
	StandardTrackLimit   = 8
)

// ReservedNames are the bot's built-in commands
var ReservedNames = []string{
	"play", "pause", "resume", "stop", "skip", "queue", "volume",
	"nowplaying", "shuffle", "devmode", "help", "stats", "serverinfo", "clear",
}

var namePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

var (
	// ErrCommandLimit matches rejections of a standard owner's extra command
	ErrCommandLimit = errors.Sentinel("standard command limit reached")
	// ErrPlaylistLimit matches rejections of an oversized standard playlist
	ErrPlaylistLimit = errors.Sentinel("standard playlist limit exceeded")
	// ErrNameTaken matches rejections of a name the owner already uses
	ErrNameTaken = errors.Sentinel("command name already used")
)

// PremiumChecker reports whether a user holds active premium
type PremiumChecker interface {
	IsPremium(ctx context.Context, userID string) (bool, error)
}

// Input is the create/update form
type Input struct {
	CommandName string   `json:"commandName" binding:"required,commandname"`
	Description string   `json:"description"`
	Playlist    []string `json:"playlist" binding:"required"`
}

// ValidName reports whether name is an acceptable command name
func ValidName(name string) bool {
	return namePattern.MatchString(name)
}

// IsReserved reports whether name collides with a built-in command
func IsReserved(name string) bool {
	lower := strings.ToLower(name)
	for _, r := range ReservedNames {
		if r == lower {
			return true
		}
	}
	return false
}

// Service implements custom command CRUD
type Service struct {
	store   *database.Store
	premium PremiumChecker
	now     func() time.Time
	newID   func() string
}

// NewService creates a custom command service
func NewService(store *database.Store, premium PremiumChecker) *Service {
	return &Service{store: store, premium: premium, now: time.Now, newID: uuid.NewString}
}

// normalize trims the name and drops blank tracks
func normalize(in Input) (Input, error) {
	in.CommandName = strings.TrimSpace(in.CommandName)
	tracks := make([]string, 0, len(in.Playlist))
	for _, t := range in.Playlist {
		if t = strings.TrimSpace(t); t != "" {
			tracks = append(tracks, t)
		}
	}
	in.Playlist = tracks

	if in.CommandName == "" || len(in.Playlist) == 0 {
		return in, errors.BadRequest("Command name and playlist are required")
	}
	if !ValidName(in.CommandName) {
		return in, errors.BadRequest("Command name can only contain letters, numbers, and underscores")
	}
	if IsReserved(in.CommandName) {
		return in, errors.BadRequest("Command name conflicts with existing bot commands")
	}
	return in, nil
}

func playlistLimitError() error {
	return errors.Wrap(http.StatusBadRequest,
		fmt.Sprintf("Standard users can have a maximum of %d songs in their custom command playlist. Upgrade to premium for unlimited songs.", StandardTrackLimit),
		ErrPlaylistLimit)
}

// nameTaken reports whether the owner has another live command called name
func (s *Service) nameTaken(ctx context.Context, userID, name, exceptID string) (bool, error) {
	existing, err := s.store.CustomCommands.Find(ctx, database.Query{Filter: bson.M{
		"userId":      userID,
		"commandName": strings.ToLower(name),
		"deletedAt":   nil,
	}})
	if err != nil {
		return false, fmt.Errorf("checking command names of %s: %w", userID, err)
	}
	for _, c := range existing {
		if c.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

// Create validates and stores a new command. Rejections write nothing.
func (s *Service) Create(ctx context.Context, owner *session.User, in Input) (*models.CustomCommand, error) {
	in, err := normalize(in)
	if err != nil {
		return nil, err
	}

	premium, err := s.premium.IsPremium(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	if !premium {
		active, err := s.store.CustomCommands.Count(ctx, bson.M{"userId": owner.ID, "isActive": true})
		if err != nil {
			return nil, fmt.Errorf("counting commands of %s: %w", owner.ID, err)
		}
		if active >= StandardCommandLimit {
			return nil, errors.Wrap(http.StatusBadRequest,
				"Standard users can only create 1 custom command. Upgrade to premium for unlimited commands.",
				ErrCommandLimit)
		}
		if len(in.Playlist) > StandardTrackLimit {
			return nil, playlistLimitError()
		}
	}

	taken, err := s.nameTaken(ctx, owner.ID, in.CommandName, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errors.Wrap(http.StatusBadRequest, "Command name already exists. Please choose a different name.", ErrNameTaken)
	}

	cmd := &models.CustomCommand{
		ID:          s.newID(),
		UserID:      owner.ID,
		CommandName: strings.ToLower(in.CommandName),
		DisplayName: in.CommandName,
		Playlist:    in.Playlist,
		Description: in.Description,
		CreatedAt:   models.NewTimestamp(s.now()),
		IsActive:    true,
	}
	if err := s.store.CustomCommands.Insert(ctx, cmd); err != nil {
		return nil, fmt.Errorf("creating custom command %s: %w", cmd.CommandName, err)
	}

	logger.Success(fmt.Sprintf("Comando personalizado '%s' creado para %s", cmd.DisplayName, owner.ID), "CustomCommands")
	return cmd, nil
}

// List returns the owner's active commands, newest first
func (s *Service) List(ctx context.Context, ownerID string) ([]*models.CustomCommand, error) {
	cmds, err := s.store.CustomCommands.Find(ctx, database.Query{
		Filter: bson.M{"userId": ownerID, "isActive": true},
		Sort:   []database.SortField{database.Desc("createdAt")},
	})
	if err != nil {
		return nil, fmt.Errorf("listing custom commands of %s: %w", ownerID, err)
	}
	return cmds, nil
}

// owned loads a live command that belongs to owner
func (s *Service) owned(ctx context.Context, owner *session.User, id string) (*models.CustomCommand, error) {
	if id == "" {
		return nil, errors.BadRequest("Command ID is required")
	}
	cmd, err := s.store.CustomCommands.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("reading custom command %s: %w", id, err)
	}
	if cmd == nil || cmd.UserID != owner.ID || !cmd.DeletedAt.IsZero() {
		return nil, errors.NotFound("Command not found or access denied")
	}
	return cmd, nil
}

// Update rewrites name, description and playlist of an owned command
func (s *Service) Update(ctx context.Context, owner *session.User, id string, in Input) (*models.CustomCommand, error) {
	cmd, err := s.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	in, err = normalize(in)
	if err != nil {
		return nil, err
	}

	premium, err := s.premium.IsPremium(ctx, owner.ID)
	if err != nil {
		return nil, err
	}
	if !premium && len(in.Playlist) > StandardTrackLimit {
		return nil, playlistLimitError()
	}

	taken, err := s.nameTaken(ctx, owner.ID, in.CommandName, cmd.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errors.Wrap(http.StatusBadRequest, "You already have a command with this name", ErrNameTaken)
	}

	err = s.store.CustomCommands.Update(ctx, cmd.ID, bson.M{
		"commandName": strings.ToLower(in.CommandName),
		"displayName": in.CommandName,
		"description": in.Description,
		"playlist":    in.Playlist,
		"lastUpdated": database.ServerTimestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("updating custom command %s: %w", cmd.ID, err)
	}

	cmd.CommandName = strings.ToLower(in.CommandName)
	cmd.DisplayName = in.CommandName
	cmd.Description = in.Description
	cmd.Playlist = in.Playlist
	logger.Info(fmt.Sprintf("Comando personalizado %s actualizado", cmd.ID), "CustomCommands")
	return cmd, nil
}

// Delete soft-deletes an owned command
func (s *Service) Delete(ctx context.Context, owner *session.User, id string) (*models.CustomCommand, error) {
	cmd, err := s.owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}

	err = s.store.CustomCommands.Update(ctx, cmd.ID, bson.M{
		"isActive":  false,
		"deletedAt": database.ServerTimestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("deleting custom command %s: %w", cmd.ID, err)
	}

	logger.Info(fmt.Sprintf("Comando personalizado %s eliminado", cmd.ID), "CustomCommands")
	return cmd, nil
}
