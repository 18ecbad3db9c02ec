// Package types defines the entity types, the Store and Table interfaces, and
// the standard error values shared by the proyek storage backend, the stage
// sequencer, and the budget allocator.
package types
