// Package database provides the MongoDB-backed document store used by every
// dashboard component: connection lifecycle, typed collections and atomic
// multi-document batches.
package database

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PancyStudios/PancyDash/pkg/logger"
	"github.com/cenkalti/backoff/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ErrNotConnected is returned when an operation runs before Connect succeeded
var ErrNotConnected = errors.New("not connected to database")

// Database manages the MongoDB connection. It is owned by the process entry
// point and handed to the components that need it.
type Database struct {
	url    string
	name   string
	client *mongo.Client
	db     *mongo.Database

	connected   bool
	standalone  atomic.Bool
	stopMonitor chan struct{}
	stopOnce    sync.Once
	mu          sync.RWMutex

	// ConnectTimeout bounds a single dial attempt; MaxConnectTime bounds the
	// whole retry sequence in Connect.
	ConnectTimeout time.Duration
	MaxConnectTime time.Duration
}

// New creates a Database for the given URL and database name; call Connect next
func New(mongoURL, dbName string) *Database {
	return &Database{
		url:            mongoURL,
		name:           dbName,
		stopMonitor:    make(chan struct{}),
		ConnectTimeout: 5 * time.Second,
		MaxConnectTime: 30 * time.Second,
	}
}

// Connect dials MongoDB, retrying with exponential backoff until
// MaxConnectTime elapses or ctx is cancelled.
func (d *Database) Connect(ctx context.Context) error {
	logger.System("Intentando conectar a la base de datos...", "DB")

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = d.MaxConnectTime

	err := backoff.RetryNotify(func() error {
		return d.dial(ctx)
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		logger.Warn(fmt.Sprintf("Fallo al conectar con la base de datos (%v). Reintentando en %v", err, next.Round(time.Millisecond)), "DB")
	})
	if err != nil {
		logger.Critical("Fallo al conectar con la base de datos.", "DB")
		return fmt.Errorf("connect to mongodb: %w", err)
	}

	logger.Success("Conectado exitosamente a la base de datos.", "DB")
	return nil
}

func (d *Database) dial(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.connected {
		return nil
	}

	dialCtx, cancel := context.WithTimeout(ctx, d.ConnectTimeout)
	defer cancel()

	clientOpts := options.Client().
		ApplyURI(d.url).
		SetServerSelectionTimeout(d.ConnectTimeout)

	client, err := mongo.Connect(dialCtx, clientOpts)
	if err != nil {
		return err
	}

	if err := client.Ping(dialCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return err
	}

	d.client = client
	d.db = client.Database(d.name)
	d.connected = true
	return nil
}

// StartMonitor pings the server every interval and logs connection changes.
// The driver reconnects on its own; the monitor keeps Connected() honest.
func (d *Database) StartMonitor(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				_, online := d.GetStatus()
				d.mu.Lock()
				was := d.connected
				d.connected = online
				d.mu.Unlock()

				switch {
				case was && !online:
					logger.Warn("Se perdió la conexión con la base de datos.", "DB")
				case !was && online:
					logger.Success("Conexión con la base de datos restablecida.", "DB")
				}
			case <-d.stopMonitor:
				return
			}
		}
	}()
}

// Connected reports the last known connection state
func (d *Database) Connected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

// Disconnect stops the monitor and closes the connection
func (d *Database) Disconnect() error {
	d.stopOnce.Do(func() { close(d.stopMonitor) })

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := d.client.Disconnect(ctx); err != nil {
		return err
	}
	d.connected = false
	logger.Warn("La base de datos ha sido desconectada", "DB")
	return nil
}

// Ping measures the database response time
func (d *Database) Ping(ctx context.Context) (time.Duration, error) {
	client := d.Client()
	if client == nil {
		return 0, ErrNotConnected
	}

	start := time.Now()
	err := client.Ping(ctx, readpref.Primary())
	return time.Since(start), err
}

// GetStatus returns a display string and whether the server answers a ping
func (d *Database) GetStatus() (string, bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := d.Ping(ctx); err != nil {
		return "🔴 | Desconectado", false
	}
	return "🟢 | En linea", true
}

// Transactional reports whether every batch so far ran in a transaction.
// It turns false after the first fallback to ordered writes.
func (d *Database) Transactional() bool {
	return !d.standalone.Load()
}

// Client returns the underlying MongoDB client
func (d *Database) Client() *mongo.Client {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.client
}

// collection returns a handle or nil before Connect
func (d *Database) collection(name string) *mongo.Collection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.db == nil {
		return nil
	}
	return d.db.Collection(name)
}
