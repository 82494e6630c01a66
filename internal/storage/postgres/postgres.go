// Package postgres records wars in PostgreSQL through the gorm backend.
package postgres

import (
	"fmt"

	"github.com/tinywars/warcore/internal/database"
	gormstorage "github.com/tinywars/warcore/internal/storage/gorm"
)

// Backend is the gorm backend on a Postgres connection pool.
type Backend struct {
	*gormstorage.Backend
	deps gormstorage.Dependencies
}

// New creates the backend. With a nil deps.DB, Init connects using the
// db.* config keys.
func New(deps gormstorage.Dependencies) *Backend {
	return &Backend{deps: deps}
}

func (b *Backend) Init() error {
	if b.deps.DB == nil {
		db, err := database.GetPostgresDB()
		if err != nil {
			return fmt.Errorf("failed to connect to postgres: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		if err = sqlDB.Ping(); err != nil {
			return fmt.Errorf("failed to validate connection: %w", err)
		}
		sqlDB.SetMaxOpenConns(10)
		b.deps.DB = db
	}
	if err := database.Setup(b.deps.DB); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	b.Backend = gormstorage.New(b.deps)
	return b.Backend.Init()
}

// Close is safe before a successful Init.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}
