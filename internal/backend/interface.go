// Package backend builds the Remote Data Store selected by configuration,
// wrapped with event publishing when a broker is configured.
package backend

import (
	"context"
	"slices"
	"time"

	"tazzio/internal/store"
)

// CleanupFunc releases the backend's connections.
type CleanupFunc func() error

// BackendResult is an opened backend.
type BackendResult struct {
	Remote  store.Remote
	Cleanup CleanupFunc
	// Ping reports backend health; nil when there is nothing to check.
	Ping func(ctx context.Context) error
}

// Factory opens the backend a Config selects.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config selects and parameterises a backend.
type Config struct {
	Type BackendType

	SQLiteDBPath string
	DatabaseURL  string
	SessionTTL   time.Duration
	// BcryptCost of 0 uses bcrypt.DefaultCost.
	BcryptCost int

	// AMQP is optional for every backend.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

// BackendType names a Remote Data Store implementation.
type BackendType string

const (
	MemoryBackend   BackendType = "memory"
	SQLiteBackend   BackendType = "sqlite"
	PostgresBackend BackendType = "postgres"
)

var backendTypes = []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend}

func (bt BackendType) String() string { return string(bt) }

func (bt BackendType) IsValid() bool { return slices.Contains(backendTypes, bt) }
