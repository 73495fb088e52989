package web

import (
	"net/http"

	"github.com/PancyStudios/PancyDash/pkg/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatusReporter is implemented by the document store
type StatusReporter interface {
	GetStatus() (string, bool)
	Transactional() bool
}

// BrokerStatus is implemented by the MQTT communicator
type BrokerStatus interface {
	IsConnected() bool
}

// Health describes the dependencies the status endpoint reports on. Broker
// may be nil when MQTT is not configured.
type Health struct {
	Store  StatusReporter
	Broker BrokerStatus
}

// SetupHealthRoutes sets up the unauthenticated status, health and metrics routes
func SetupHealthRoutes(s *Server, h Health) {
	api := s.Group("/api")
	{
		api.GET("/status", h.statusHandler)
		api.GET("/health", healthHandler)
	}
	s.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// statusHandler returns the database and broker status
func (h Health) statusHandler(c *gin.Context) {
	dbStatus, dbOnline, transactional := "🔴 | Desconectado", false, false
	if h.Store != nil {
		dbStatus, dbOnline = h.Store.GetStatus()
		transactional = h.Store.Transactional()
	}

	brokerConfigured := h.Broker != nil
	brokerOnline := brokerConfigured && h.Broker.IsConnected()

	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": config.Version,
		"database": gin.H{
			"status":        dbStatus,
			"isOnline":      dbOnline,
			"transactional": transactional,
		},
		"broker": gin.H{
			"configured": brokerConfigured,
			"isOnline":   brokerOnline,
		},
	})
}

// healthHandler returns a simple health check response
func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"message": "PancyDash is running",
	})
}
