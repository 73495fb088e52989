// Package favorites keeps each user's saved songs
package favorites

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PancyStudios/PancyDash/pkg/database"
	"github.com/PancyStudios/PancyDash/pkg/errors"
	"github.com/PancyStudios/PancyDash/pkg/logger"
	"github.com/PancyStudios/PancyDash/pkg/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
)

// Input is the add-favorite form
type Input struct {
	Title     string `json:"title" binding:"required"`
	Artist    string `json:"artist"`
	Thumbnail string `json:"thumbnail"`
	URL       string `json:"url" binding:"required"`
}

// Service reads and writes userFavorites documents
type Service struct {
	store *database.Store
	now   func() time.Time
	newID func() string
}

// NewService creates a favorites service
func NewService(store *database.Store) *Service {
	return &Service{store: store, now: time.Now, newID: uuid.NewString}
}

// List returns userID's saved songs in the order they were added
func (s *Service) List(ctx context.Context, userID string) ([]models.FavoriteSong, error) {
	if userID == "" {
		return nil, errors.BadRequest("User ID required")
	}
	doc, err := s.store.UserFavorites.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reading favorites of %s: %w", userID, err)
	}
	if doc == nil || doc.Songs == nil {
		return []models.FavoriteSong{}, nil
	}
	return doc.Songs, nil
}

// Add appends a song to userID's favorites, creating the document if needed
func (s *Service) Add(ctx context.Context, userID string, in Input) (*models.FavoriteSong, error) {
	if userID == "" {
		return nil, errors.BadRequest("User ID required")
	}
	in.Title = strings.TrimSpace(in.Title)
	in.URL = strings.TrimSpace(in.URL)
	if in.Title == "" || in.URL == "" {
		return nil, errors.BadRequest("Title and url are required")
	}

	song := &models.FavoriteSong{
		ID:        "fav_" + s.newID(),
		Title:     in.Title,
		Artist:    in.Artist,
		Thumbnail: in.Thumbnail,
		URL:       in.URL,
		AddedAt:   s.now().UTC().Format(time.RFC3339Nano),
	}
	if err := s.store.UserFavorites.Set(ctx, userID, bson.M{"songs": database.ArrayUnion(song)}, true); err != nil {
		return nil, fmt.Errorf("adding favorite for %s: %w", userID, err)
	}
	logger.Debug(fmt.Sprintf("Favorito %s añadido para %s", song.ID, userID), "Favorites")
	return song, nil
}

// Remove drops songID from userID's favorites. Unknown users and songs are
// not an error.
func (s *Service) Remove(ctx context.Context, userID, songID string) error {
	if userID == "" {
		return errors.BadRequest("User ID required")
	}
	if songID == "" {
		return errors.BadRequest("Song ID required")
	}
	err := s.store.UserFavorites.Update(ctx, userID, bson.M{"songs": database.ArrayRemoveWhere(bson.M{"id": songID})})
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return fmt.Errorf("removing favorite %s of %s: %w", songID, userID, err)
	}
	return nil
}
