package api

import (
	"net/http"
	"strconv"

	"github.com/PancyStudios/PancyDash/internal/dashboard"
	"github.com/PancyStudios/PancyDash/internal/session"
	"github.com/PancyStudios/PancyDash/pkg/models"
	"github.com/gin-gonic/gin"
)

func (h *Handlers) stats(c *gin.Context) {
	c.JSON(http.StatusOK, h.Dashboard.Stats(c.Request.Context()))
}

func (h *Handlers) botStatus(c *gin.Context) {
	status, err := h.Dashboard.BotStatus(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (h *Handlers) musicStatus(c *gin.Context) {
	status, err := h.Dashboard.MusicStatus(c.Request.Context(), c.Query("serverId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

type searchRequest struct {
	Query string `json:"query"`
}

func (h *Handlers) musicSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Query required")
		return
	}
	results, err := h.Search.Search(c.Request.Context(), req.Query)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *Handlers) userGuilds(c *gin.Context) {
	listing, err := h.Guilds.OwnedBy(c.Request.Context(), session.MustGet(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handlers) adminGuilds(c *gin.Context) {
	listing, err := h.Guilds.All(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, listing)
}

func (h *Handlers) serverActivity(c *gin.Context) {
	activity, err := h.Guilds.Activity(c.Request.Context(), c.Query("period"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, activity)
}

func (h *Handlers) serverSettings(c *gin.Context) {
	settings, err := h.Guilds.Settings(c.Request.Context(), c.Query("serverId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"settings": settings})
}

type settingsRequest struct {
	ServerID string                    `json:"serverId"`
	Settings *models.ServerSettingsDoc `json:"settings"`
}

func (h *Handlers) saveServerSettings(c *gin.Context) {
	var req settingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid settings")
		return
	}
	serverID := c.Query("serverId")
	if serverID == "" {
		serverID = req.ServerID
	}

	settings, err := h.Guilds.SaveSettings(c.Request.Context(), session.MustGet(c), serverID, req.Settings)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "settings": settings})
}

func (h *Handlers) serverMusicStats(c *gin.Context) {
	stats, err := h.Guilds.MusicStats(c.Request.Context(), c.Query("serverId"), c.DefaultQuery("range", "7d"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handlers) adminStats(c *gin.Context) {
	stats, err := h.Dashboard.AdminStats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handlers) charts(c *gin.Context) {
	days := dashboard.DefaultChartDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			badRequest(c, "Invalid days")
			return
		}
		days = n
	}
	charts, err := h.Dashboard.Charts(c.Request.Context(), days)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, charts)
}
