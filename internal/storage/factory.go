package storage

import (
	"fmt"

	"github.com/fieldpath/planner/internal/storage/memory"
	"github.com/fieldpath/planner/internal/storage/sqlite"
)

// NewBackend creates a storage backend based on configuration.
func NewBackend(cfg Config) (Backend, error) {
	switch cfg.Type {
	case "postgres":
		return nil, fmt.Errorf("postgres backend not yet implemented")
	case "sqlite":
		return sqlite.New(cfg.Sqlite.Path)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown storage type: %s", cfg.Type)
	}
}
