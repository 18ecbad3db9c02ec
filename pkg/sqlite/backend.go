// Package sqlite exposes the SQLite storage backend while keeping its
// implementation internal.
package sqlite

import (
	"go.uber.org/zap"

	"github.com/mesh-intelligence/proyek/internal/sqlite"
	"github.com/mesh-intelligence/proyek/pkg/types"
)

// Backend is what the SQLite factory returns: a Store that also serves whole
// stage and budget lists for edit sessions.
type Backend interface {
	types.Store
	types.ListStore
}

// NewBackend creates a new SQLite backend instance. The backend is not
// attached; call Attach with a Config to initialize. A nil logger disables
// backend logging.
//
// Example:
//
//	backend := sqlite.NewBackend(nil)
//	err := backend.Attach(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".proyek-db",
//	})
//	defer backend.Detach()
func NewBackend(logger *zap.Logger) Backend {
	return sqlite.NewBackend(sqlite.WithLogger(logger))
}
