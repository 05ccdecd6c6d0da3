// Package store defines the conditional-write contract for persisted alert
// state, with a gorm-backed implementation for production and an in-memory
// implementation for tests.
package store

import (
	"context"

	"github.com/pytorch/alerting-infra/internal/database"
)

// Store is the consumed state-store interface. Save is conditional:
//
//   - expectedVersion == nil requests a create, rejected with a conflict
//     error if a record for the fingerprint already exists;
//   - expectedVersion != nil requests an update, rejected with a conflict
//     error if another writer advanced the record past that version.
//
// On success the stored Version is expectedVersion+1 (or 0 for creates)
// and st.Version reflects it.
type Store interface {
	// Load returns the state for a fingerprint, or (nil, nil) when no
	// record exists.
	Load(ctx context.Context, fingerprint string) (*database.AlertState, error)

	// Save persists st under the conditional semantics above.
	Save(ctx context.Context, st *database.AlertState, expectedVersion *uint) error

	// List returns up to limit records, most recently updated first.
	List(ctx context.Context, limit int) ([]database.AlertState, error)
}
