// Package store persists transactions and recurring templates. Two backends
// share the Store interface: plain files under the data root, and SQLite.
package store

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/tally-dev/tally/internal/config"
	"github.com/tally-dev/tally/internal/model"
)

// Store is the persistence port used by import, recurring processing and the API.
type Store interface {
	// AppendTransactions adds transactions. Existing ones are never rewritten.
	AppendTransactions(ctx context.Context, txns []model.Transaction) error
	// Transactions returns every stored transaction ordered by date, then
	// insertion order.
	Transactions(ctx context.Context) ([]model.Transaction, error)
	// SaveTemplates inserts or replaces templates by ID. Templates not in
	// the slice are left alone.
	SaveTemplates(ctx context.Context, templates []model.RecurringTemplate) error
	// Templates returns every stored template ordered by ID.
	Templates(ctx context.Context) ([]model.RecurringTemplate, error)
	Close() error
}

// Open returns the backend selected by cfg.Storage.Driver for the data root.
func Open(cfg *config.Config, root string) (Store, error) {
	switch cfg.Storage.Driver {
	case config.DriverFile, "":
		return NewFileStore(root), nil
	case config.DriverSQLite:
		path := cfg.Storage.Path
		if path == "" {
			path = config.Default("").Storage.Path
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(root, path)
		}
		return OpenSQLite(path)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}
