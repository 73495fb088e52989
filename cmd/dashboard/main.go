// Package main is the entry point for the PancyDash web dashboard.
// It initializes all systems and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/PancyStudios/PancyDash/internal/api"
	"github.com/PancyStudios/PancyDash/internal/auth"
	"github.com/PancyStudios/PancyDash/internal/bootstrap"
	"github.com/PancyStudios/PancyDash/internal/control"
	"github.com/PancyStudios/PancyDash/internal/customcmd"
	"github.com/PancyStudios/PancyDash/internal/dashboard"
	"github.com/PancyStudios/PancyDash/internal/favorites"
	"github.com/PancyStudios/PancyDash/internal/guilds"
	"github.com/PancyStudios/PancyDash/internal/live"
	"github.com/PancyStudios/PancyDash/internal/premium"
	"github.com/PancyStudios/PancyDash/internal/relay"
	"github.com/PancyStudios/PancyDash/internal/search"
	"github.com/PancyStudios/PancyDash/pkg/cache"
	"github.com/PancyStudios/PancyDash/pkg/config"
	"github.com/PancyStudios/PancyDash/pkg/errors"
	"github.com/PancyStudios/PancyDash/pkg/logger"
	"github.com/PancyStudios/PancyDash/pkg/mqtt"
	"github.com/PancyStudios/PancyDash/pkg/web"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.Init(cfg.ErrorWebhook, cfg.LogsWebhook)
	defer log.Close()

	logger.System(fmt.Sprintf("Iniciando PancyDash %s (%s)...", config.Version, config.BuildTime), "Main")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	// Initialize error handler
	var webServer *web.Server
	errors.Init(cfg.ErrorWebhook, func() {
		stop()
		if webServer != nil {
			shutdownWeb(webServer, 5*time.Second)
		}
	})
	defer errors.Get().Stop()

	// Initialize database
	store, closeStore, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error connecting to database: %v", err), "Main")
		os.Exit(1)
	}
	defer closeStore()

	// Initialize MQTT
	var notifier relay.Notifier
	var broker web.BrokerStatus
	if cfg.MQTTEnabled() {
		mqttClientID := "pancydash"
		if !cfg.IsProd() {
			mqttClientID = "pancydash_canary"
		}
		mqttClient := mqtt.NewMqttCommunicator(cfg.MQTTHost, cfg.MQTTPort, cfg.MQTTUser, cfg.MQTTPassword, mqttClientID)
		defer mqttClient.Destroy()
		notifier, broker = mqttClient, mqttClient
	} else {
		logger.Warn("MQTT_Host no configurado, el relé funcionará solo con sondeo", "Main")
	}

	// Initialize Redis cache
	var statsCache *cache.Cache
	if cfg.RedisAddr != "" {
		statsCache, err = cache.New(cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			logger.Warn(fmt.Sprintf("Redis no disponible, se continúa sin caché: %v", err), "Main")
			statsCache = nil
		}
		defer statsCache.Close()
	}

	searchSvc, err := search.NewService(ctx, cfg.YouTubeAPIKey)
	if err != nil {
		logger.Critical(fmt.Sprintf("Error creating search service: %v", err), "Main")
		os.Exit(1)
	}

	hub := live.NewHub(allowedOrigins(cfg))
	premiumSvc := premium.NewService(store, hub)

	handlers := &api.Handlers{
		Auth: auth.New(auth.Options{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.OAuthRedirectURL,
			AfterLogin:   strings.TrimRight(cfg.PublicURL, "/") + "/dashboard",
			Secret:       cfg.SessionSecret,
			TTL:          cfg.SessionTTL,
			Admins:       cfg.AdminUserIDs,
			Secure:       strings.HasPrefix(cfg.PublicURL, "https://"),
		}, store.Users, nil),
		Relay:     relay.NewCommandRelay(store, notifier, hub),
		Process:   relay.NewProcessControl(store, notifier, hub),
		Control:   control.NewService(store, hub),
		Premium:   premiumSvc,
		Commands:  customcmd.NewService(store, premiumSvc),
		Guilds:    guilds.NewService(store),
		Dashboard: dashboard.NewService(store, statsCache, cfg.StatsCacheTTL, cfg.StatsStaleAfter),
		Favorites: favorites.NewService(store),
		Search:    searchSvc,
		Live:      hub,
	}

	// Initialize web server
	webServer = web.Init(web.Options{
		WebhookURL:         cfg.LogsWebServerHook,
		AllowedHosts:       cfg.AllowedHosts,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	web.SetupHealthRoutes(webServer, web.Health{Store: store.Status, Broker: broker})
	api.Register(webServer.Group("/api"), handlers)
	webServer.StartAsync(cfg.Port)

	go runPremiumSweep(ctx, premiumSvc, cfg.PremiumSweepInterval)

	logger.Success("PancyDash iniciado correctamente!", "Main")

	// Wait for interrupt signal
	<-ctx.Done()

	logger.System("Apagando PancyDash...", "Main")
	shutdownWeb(webServer, 10*time.Second)
}

// shutdownWeb drains in-flight requests for at most timeout
func shutdownWeb(s *web.Server, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		logger.Error(fmt.Sprintf("Error deteniendo el servidor web: %v", err), "Main")
	}
}

// runPremiumSweep expires overdue monthly subscriptions on every tick
func runPremiumSweep(ctx context.Context, svc *premium.Service, interval time.Duration) {
	if interval <= 0 {
		logger.Warn("PREMIUM_SWEEP_INTERVAL desactivado, las suscripciones no expirarán automáticamente", "Premium")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := svc.SweepExpired(ctx); err != nil && ctx.Err() == nil {
			logger.Error(fmt.Sprintf("Error revisando suscripciones expiradas: %v", err), "Premium")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// allowedOrigins limits websocket origins to the public URL in production
func allowedOrigins(cfg *config.Config) []string {
	if !cfg.IsProd() || cfg.PublicURL == "" {
		return nil
	}
	return []string{strings.TrimRight(cfg.PublicURL, "/")}
}
