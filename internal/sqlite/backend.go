// Package sqlite implements the SQLite storage backend for proyek.
//
// JSONL files in the data directory are the source of truth. Attach rebuilds
// proyek.db from them, every write goes to SQLite first, and the affected
// table is then written back to its JSONL file with a temp-file, fsync,
// rename sequence. When that write back happens depends on the sync strategy.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/proyek/pkg/types"
)

// dbFileName is the query database rebuilt on every Attach.
const dbFileName = "proyek.db"

// Compile-time interface checks.
var (
	_ types.Store     = (*Backend)(nil)
	_ types.ListStore = (*Backend)(nil)
)

// Backend implements types.Store using SQLite as the query engine and JSONL
// files as the source of truth.
type Backend struct {
	mu       sync.RWMutex
	attached bool
	config   types.Config
	db       *sql.DB
	tables   map[string]types.Table
	logger   *zap.Logger

	syncStrategy  string
	batchSize     int
	batchInterval time.Duration
	pendingWrites []pendingWrite
	batchTimer    *time.Timer
	batchMu       sync.Mutex
}

// pendingWrite is a deferred JSONL write for one table. Each table appears
// at most once in the queue since a write dumps the whole table.
type pendingWrite struct {
	tableName string
	persist   func() error
}

// Option configures a Backend.
type Option func(*Backend)

// WithLogger sets the logger used for attach, detach and flush events.
func WithLogger(l *zap.Logger) Option {
	return func(b *Backend) {
		if l != nil {
			b.logger = l
		}
	}
}

// NewBackend creates a new SQLite backend instance.
// The backend is not attached; call Attach with a Config to initialize.
func NewBackend(opts ...Option) *Backend {
	b := &Backend{
		tables: make(map[string]types.Table),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = b.logger.Named("sqlite")
	return b
}

// GetTable returns the Table for the given name.
func (b *Backend) GetTable(name string) (types.Table, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if !b.attached {
		return nil, types.ErrDetached
	}
	table, ok := b.tables[name]
	if !ok {
		return nil, types.ErrTableNotFound
	}
	return table, nil
}

// Attach creates DataDir if needed, rebuilds the SQLite database from the
// JSONL files, and creates the table accessors.
func (b *Backend) Attach(config types.Config) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.attached {
		return types.ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	if config.DataDir == "" {
		config.DataDir = "."
	}
	if err := os.MkdirAll(config.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	// The database is derived state; start from an empty file.
	dbPath := filepath.Join(config.DataDir, dbFileName)
	_ = os.Remove(dbPath)

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("opening %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	for _, ddl := range append(append([]string{}, schemaDDL...), indexDDL...) {
		if _, err := db.Exec(ddl); err != nil {
			db.Close()
			return fmt.Errorf("creating schema: %w", err)
		}
	}

	if err := initJSONLFiles(config.DataDir); err != nil {
		db.Close()
		return err
	}
	if err := loadAllJSONL(db, config.DataDir); err != nil {
		db.Close()
		return fmt.Errorf("load JSONL: %w", err)
	}

	b.db = db
	b.config = config
	b.syncStrategy = config.SQLiteConfig.GetSyncStrategy()
	b.batchSize = config.SQLiteConfig.GetBatchSize()
	b.batchInterval = time.Duration(config.SQLiteConfig.GetBatchInterval()) * time.Second
	b.pendingWrites = nil
	b.attached = true

	b.tables[types.TableProjects] = &projectsTable{backend: b}
	b.tables[types.TableStages] = &stagesTable{backend: b}
	b.tables[types.TableBudget] = &budgetTable{backend: b}

	if b.syncStrategy == types.SyncBatch {
		b.startBatchTimer()
	}

	b.logger.Debug("attached",
		zap.String("data_dir", config.DataDir),
		zap.String("sync_strategy", b.syncStrategy))
	return nil
}

// Detach flushes pending JSONL writes, closes the database, and releases
// the table accessors. Idempotent.
func (b *Backend) Detach() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return nil
	}

	b.stopBatchTimer()
	if err := b.flushPendingWrites(); err != nil {
		return fmt.Errorf("flush pending writes: %w", err)
	}

	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return err
		}
		b.db = nil
	}

	b.attached = false
	b.tables = make(map[string]types.Table)
	b.logger.Debug("detached")
	return nil
}

// newUUID generates a UUID v7 string for entity IDs.
func newUUID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// persist writes tableName back to its JSONL file now or queues the write,
// depending on the sync strategy. The caller must hold b.mu.
func (b *Backend) persist(tableName string) error {
	fn := func() error { return persistTableJSONL(b.db, b.config.DataDir, tableName) }
	if b.syncStrategy == types.SyncImmediate || b.syncStrategy == "" {
		return fn()
	}
	b.queueWrite(tableName, fn)
	return nil
}

// queueWrite records a deferred write. A batch strategy flushes as soon as
// batchSize distinct tables are queued.
func (b *Backend) queueWrite(tableName string, fn func() error) {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	for i := range b.pendingWrites {
		if b.pendingWrites[i].tableName == tableName {
			b.pendingWrites[i].persist = fn
			return
		}
	}
	b.pendingWrites = append(b.pendingWrites, pendingWrite{tableName: tableName, persist: fn})

	if b.syncStrategy == types.SyncBatch && b.batchSize > 0 && len(b.pendingWrites) >= b.batchSize {
		if err := b.flushPendingWritesLocked(); err != nil {
			b.logger.Warn("batch flush failed", zap.Error(err))
		}
	}
}

// flushPendingWrites executes all queued writes.
func (b *Backend) flushPendingWrites() error {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()
	return b.flushPendingWritesLocked()
}

// flushPendingWritesLocked executes all queued writes. The caller must hold
// b.batchMu. Writes that fail stay queued for the next flush.
func (b *Backend) flushPendingWritesLocked() error {
	if len(b.pendingWrites) == 0 {
		return nil
	}
	var failed []pendingWrite
	var firstErr error
	for _, pw := range b.pendingWrites {
		if err := pw.persist(); err != nil {
			failed = append(failed, pw)
			if firstErr == nil {
				firstErr = fmt.Errorf("flush %s: %w", pw.tableName, err)
			}
		}
	}
	b.logger.Debug("flushed pending writes",
		zap.Int("written", len(b.pendingWrites)-len(failed)),
		zap.Int("failed", len(failed)))
	b.pendingWrites = failed
	return firstErr
}

// pendingCount reports the number of queued table writes.
func (b *Backend) pendingCount() int {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()
	return len(b.pendingWrites)
}

// startBatchTimer starts the periodic flush for the batch strategy.
// The caller must hold b.mu.
func (b *Backend) startBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil || b.batchInterval <= 0 {
		return
	}
	b.batchTimer = time.AfterFunc(b.batchInterval, b.onBatchTimer)
}

func (b *Backend) onBatchTimer() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.attached {
		return
	}
	if err := b.flushPendingWrites(); err != nil {
		b.logger.Warn("interval flush failed", zap.Error(err))
	}

	b.batchMu.Lock()
	if b.batchTimer != nil {
		b.batchTimer.Reset(b.batchInterval)
	}
	b.batchMu.Unlock()
}

// stopBatchTimer stops the periodic flush if running.
func (b *Backend) stopBatchTimer() {
	b.batchMu.Lock()
	defer b.batchMu.Unlock()

	if b.batchTimer != nil {
		b.batchTimer.Stop()
		b.batchTimer = nil
	}
}
