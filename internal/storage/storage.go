// Package storage persists named trajectories. Backends are selected by
// configuration; the memory backend serves tests and ephemeral use, the
// sqlite backend durable local storage.
package storage

import (
	"github.com/fieldpath/planner/internal/session"
)

// Backend is the interface all storage implementations must satisfy.
type Backend interface {
	SaveTrajectory(name string, s *session.Session) error
	LoadTrajectory(name string) (*session.Session, error)
	List() ([]string, error)
	Close() error
}

// Config selects and parameterizes a backend.
type Config struct {
	Type   string
	Sqlite SqliteConfig
}

// SqliteConfig holds sqlite backend settings.
type SqliteConfig struct {
	Path string
}
