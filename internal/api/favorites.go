package api

import (
	"net/http"

	"github.com/PancyStudios/PancyDash/internal/favorites"
	"github.com/PancyStudios/PancyDash/internal/session"
	"github.com/gin-gonic/gin"
)

// Favorites always belong to the signed-in user

func (h *Handlers) listFavorites(c *gin.Context) {
	songs, err := h.Favorites.List(c.Request.Context(), session.MustGet(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"favorites": songs})
}

func (h *Handlers) addFavorite(c *gin.Context) {
	var in favorites.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "Title and url are required")
		return
	}
	song, err := h.Favorites.Add(c.Request.Context(), session.MustGet(c).ID, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "favorite": song})
}

type removeFavoriteRequest struct {
	SongID string `json:"songId"`
}

func (h *Handlers) removeFavorite(c *gin.Context) {
	var req removeFavoriteRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Song ID required")
			return
		}
	}
	if req.SongID == "" {
		req.SongID = c.Query("songId")
	}
	if err := h.Favorites.Remove(c.Request.Context(), session.MustGet(c).ID, req.SongID); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
