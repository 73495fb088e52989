// Package bootstrap opens the document store both binaries share
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/PancyStudios/PancyDash/pkg/config"
	"github.com/PancyStudios/PancyDash/pkg/database"
	"github.com/PancyStudios/PancyDash/pkg/database/memstore"
	"github.com/PancyStudios/PancyDash/pkg/logger"
)

// monitorInterval is how often the MongoDB connection is pinged
const monitorInterval = 30 * time.Second

// OpenStore connects the store cfg selects. The returned func closes it.
func OpenStore(ctx context.Context, cfg *config.Config) (*database.Store, func(), error) {
	if cfg.UsesMemoryStore() {
		logger.Warn("Usando almacén en memoria, los datos se perderán al reiniciar", "DB")
		return memstore.New(), func() {}, nil
	}

	db := database.New(cfg.MongoDBURL, cfg.DBName)
	if err := db.Connect(ctx); err != nil {
		return nil, nil, fmt.Errorf("opening store: %w", err)
	}
	db.StartMonitor(monitorInterval)

	closeFn := func() {
		if err := db.Disconnect(); err != nil {
			logger.Error(fmt.Sprintf("Error al desconectar la base de datos: %v", err), "DB")
		}
	}
	return database.NewStore(db), closeFn, nil
}
