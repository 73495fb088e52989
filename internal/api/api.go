// Package api wires the dashboard services to HTTP routes
package api

import (
	"fmt"
	"net/http"
	"sync"

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
	"github.com/PancyStudios/PancyDash/pkg/errors"
	"github.com/PancyStudios/PancyDash/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// Handlers holds every service the routes call
type Handlers struct {
	Auth      *auth.Authenticator
	Relay     *relay.CommandRelay
	Process   *relay.ProcessControl
	Control   *control.Service
	Premium   *premium.Service
	Commands  *customcmd.Service
	Guilds    *guilds.Service
	Dashboard *dashboard.Service
	Favorites *favorites.Service
	Search    *search.Service
	Live      *live.Hub
}

var registerOnce sync.Once

// registerValidators adds the custom binding tags
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			logger.Warn("El validador de gin no es validator/v10, se omiten reglas personalizadas", "API")
			return
		}
		if err := registerCommandName(v); err != nil {
			logger.Error(fmt.Sprintf("No se pudo registrar la regla commandname: %v", err), "API")
		}
	})
}

// registerCommandName adds the commandname tag used by customcmd.Input
func registerCommandName(v *validator.Validate) error {
	return v.RegisterValidation("commandname", func(fl validator.FieldLevel) bool {
		return customcmd.ValidName(fl.Field().String())
	})
}

// Register mounts every dashboard route on r, usually the /api group
func Register(r *gin.RouterGroup, h *Handlers) {
	registerValidators()
	r.Use(h.Auth.Middleware())

	authRoutes := r.Group("/auth")
	{
		authRoutes.GET("/login", h.Auth.Login)
		authRoutes.GET("/callback", h.Auth.Callback)
		authRoutes.GET("/session", auth.RequireSession, h.Auth.Session)
		authRoutes.POST("/logout", h.Auth.Logout)
	}

	// Public read models
	r.GET("/stats", h.stats)
	r.GET("/bot-status", h.botStatus)
	r.GET("/music-status", h.musicStatus)
	r.POST("/music-search", h.musicSearch)
	r.GET("/charts", h.charts)

	user := r.Group("", auth.RequireSession)
	{
		user.GET("/live", h.Live.Handler())
		user.GET("/guilds/user", h.userGuilds)
		user.GET("/premium/status", h.premiumStatus)
		user.POST("/bot-command", h.botCommand)
		user.GET("/command/:commandId", h.commandStatus)
		user.GET("/server-settings", h.serverSettings)
		user.POST("/server-settings", h.saveServerSettings)
		user.GET("/server-music-stats", h.serverMusicStats)

		user.GET("/user-favorites", h.listFavorites)
		user.POST("/user-favorites", h.addFavorite)
		user.DELETE("/user-favorites", h.removeFavorite)

		user.GET("/custom-commands", h.listCommands)
		user.POST("/custom-commands", h.createCommand)
		user.PUT("/custom-commands/:commandId", h.updateCommand)
		user.DELETE("/custom-commands/:commandId", h.deleteCommand)
	}

	admin := r.Group("", auth.RequireSession, auth.RequireAdmin)
	{
		admin.GET("/guilds/admin", h.adminGuilds)
		admin.GET("/server-activity", h.serverActivity)
		admin.GET("/admin/stats", h.adminStats)

		admin.POST("/admin/devmode", h.setDevMode)
		admin.GET("/admin/devmode-status", h.devModeStatus)
		admin.POST("/admin/maintenance", h.setMaintenance)
		admin.POST("/admin/pm2", h.processAction)

		admin.GET("/admin/premium/list", h.listPremium)
		admin.GET("/admin/premium/expiring", h.expiringPremium)
		admin.POST("/admin/premium/add", h.grantPremium)
		admin.POST("/admin/premium/remove", h.revokePremium)
		admin.POST("/admin/premium/renew", h.renewPremium)
		admin.POST("/admin/premium/reminder", h.markReminder)
	}
}

// fail writes err as {"error": msg}. Internal errors are logged and never
// shown to the client.
func fail(c *gin.Context, err error) {
	status, msg := errors.StatusOf(err)
	if status >= http.StatusInternalServerError {
		logger.Error(c.Request.Method+" "+c.FullPath()+": "+err.Error(), "API")
	}
	c.JSON(status, gin.H{"error": msg})
}

// badRequest answers 400 with msg
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// hasTag reports whether err is a validation failure on the given tag
func hasTag(err error, tag string) bool {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return false
	}
	for _, fe := range verrs {
		if fe.Tag() == tag {
			return true
		}
	}
	return false
}
