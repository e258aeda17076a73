package store

import (
	"context"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// StoreModule owns the database connection lifecycle.
type StoreModule struct {
	store  *Store
	dbPath string
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*StoreModule)(nil)
var _ mono.HealthCheckableModule = (*StoreModule)(nil)

// NewModule creates a new StoreModule around an opened store.
func NewModule(store *Store, dbPath string, logger types.Logger) *StoreModule {
	return &StoreModule{
		store:  store,
		dbPath: dbPath,
		logger: logger,
	}
}

// Name returns the module name.
func (m *StoreModule) Name() string {
	return "store"
}

// Start logs the active database.
func (m *StoreModule) Start(_ context.Context) error {
	m.logger.Info("Store module started", "driver", "sqlite", "path", m.dbPath)
	return nil
}

// Stop closes the database connection.
func (m *StoreModule) Stop(_ context.Context) error {
	sqlDB, err := m.store.DB().DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if err := sqlDB.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	m.logger.Info("Database connection closed")
	return nil
}

// Health pings the database.
func (m *StoreModule) Health(ctx context.Context) mono.HealthStatus {
	sqlDB, err := m.store.DB().DB()
	if err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("failed to get sql.DB: %v", err),
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": "sqlite",
			"path":   m.dbPath,
		},
	}
}
