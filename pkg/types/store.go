package types

import "errors"

// Store defines backend-agnostic storage access. Callers attach to a backend,
// access tables by name, and detach when done.
type Store interface {
	// GetTable returns the Table for the given name.
	// Returns ErrTableNotFound if the name is not a standard table.
	GetTable(name string) (Table, error)

	// Attach connects the Store to the backend described by config.
	// Creates the DataDir if it does not exist. Returns ErrAlreadyAttached
	// if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls succeed.
	// After Detach, operations return ErrDetached.
	Detach() error
}

// ListStore replaces a project's whole stage or budget list in one step.
// It is the persistence target of the edit session callbacks.
type ListStore interface {
	LoadStages(projectID string) ([]Stage, error)
	ReplaceStages(projectID string, stages []Stage) error
	LoadBudget(projectID string) ([]BudgetItem, error)
	ReplaceBudget(projectID string, items []BudgetItem) error
}

// Store lifecycle errors.
var (
	ErrDetached        = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
	ErrTableNotFound   = errors.New("table not found")
)
