package api

import (
	"fmt"
	"net/http"

	"github.com/PancyStudios/PancyDash/internal/control"
	"github.com/PancyStudios/PancyDash/internal/premium"
	"github.com/PancyStudios/PancyDash/internal/session"
	"github.com/gin-gonic/gin"
)

func enabledWord(on bool) string {
	if on {
		return "enabled"
	}
	return "disabled"
}

type devModeRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

func (h *Handlers) setDevMode(c *gin.Context) {
	var req devModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid enabled value")
		return
	}
	enabled := *req.Enabled
	if err := h.Control.SetDevMode(c.Request.Context(), session.MustGet(c), enabled, control.SourceWebsite); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"enabled": enabled,
		"message": fmt.Sprintf("Dev mode %s successfully", enabledWord(enabled)),
	})
}

func (h *Handlers) devModeStatus(c *gin.Context) {
	doc, err := h.Control.DevMode(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "devMode": doc})
}

type maintenanceRequest struct {
	MaintenanceMode *bool `json:"maintenanceMode"`
	DevMode         *bool `json:"devMode"`
}

func (h *Handlers) setMaintenance(c *gin.Context) {
	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid maintenance value")
		return
	}
	maintenance := req.MaintenanceMode != nil && *req.MaintenanceMode
	devMode := maintenance
	if req.DevMode != nil {
		devMode = *req.DevMode
	}

	if err := h.Control.SetMaintenance(c.Request.Context(), session.MustGet(c), maintenance, devMode); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"maintenanceMode": maintenance,
		"devMode":         devMode,
		"message":         "Maintenance mode " + enabledWord(maintenance),
	})
}

type processRequest struct {
	Action string `json:"action"`
}

func (h *Handlers) processAction(c *gin.Context) {
	var req processRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid action")
		return
	}
	out, err := h.Process.Execute(c.Request.Context(), session.MustGet(c), req.Action)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(out.Status, out)
}

func (h *Handlers) listPremium(c *gin.Context) {
	users, err := h.Premium.ListActive(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": users})
}

func (h *Handlers) expiringPremium(c *gin.Context) {
	users, err := h.Premium.ExpiringSoon(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": users})
}

func (h *Handlers) premiumStatus(c *gin.Context) {
	ok, err := h.Premium.IsPremium(c.Request.Context(), session.MustGet(c).ID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "isPremium": ok})
}

func (h *Handlers) grantPremium(c *gin.Context) {
	var req premium.GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "User ID is required")
		return
	}
	res, err := h.Premium.Grant(c.Request.Context(), session.MustGet(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"message":             "Premium access granted successfully",
		"data":                res.Record,
		"commandsReactivated": res.Reactivated,
	})
}

type userRequest struct {
	UserID string `json:"userId"`
}

func (h *Handlers) revokePremium(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "User ID is required")
		return
	}
	n, err := h.Premium.Revoke(c.Request.Context(), req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"message":             "Premium access removed successfully",
		"commandsDeactivated": n,
	})
}

func (h *Handlers) renewPremium(c *gin.Context) {
	var req userRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "User ID is required")
		return
	}
	res, err := h.Premium.Renew(c.Request.Context(), session.MustGet(c), req.UserID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":             true,
		"message":             "Premium subscription renewed successfully",
		"newExpirationDate":   res.ExpiresAt,
		"commandsReactivated": res.Reactivated,
	})
}

type reminderRequest struct {
	UserID      string `json:"userId"`
	WarningType string `json:"warningType"`
}

func (h *Handlers) markReminder(c *gin.Context) {
	var req reminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid warning type")
		return
	}
	if err := h.Premium.MarkReminderSent(c.Request.Context(), req.UserID, req.WarningType); err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
