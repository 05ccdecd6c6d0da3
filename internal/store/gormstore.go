package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/pytorch/alerting-infra/internal/alerterr"
	"github.com/pytorch/alerting-infra/internal/database"
)

// GormStore persists alert state through gorm (sqlite or postgres).
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store backed by the given database handle.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Load returns the state for a fingerprint, or (nil, nil) when absent.
func (s *GormStore) Load(ctx context.Context, fingerprint string) (*database.AlertState, error) {
	var st database.AlertState
	err := s.db.WithContext(ctx).First(&st, "fingerprint = ?", fingerprint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, alerterr.Transient("state load failed", err)
	}
	return &st, nil
}

// Save applies the conditional-write contract. Creates rely on the primary
// key to reject racing writers; updates compare the version counter so a
// stale decision can never overwrite a newer one.
func (s *GormStore) Save(ctx context.Context, st *database.AlertState, expectedVersion *uint) error {
	db := s.db.WithContext(ctx)

	if expectedVersion == nil {
		st.Version = 0
		err := db.Create(st).Error
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return alerterr.Conflict("state already exists for fingerprint")
		}
		if err != nil {
			return alerterr.Transient("state create failed", err)
		}
		return nil
	}

	next := *expectedVersion + 1
	res := db.Model(&database.AlertState{}).
		Where("fingerprint = ? AND version = ?", st.Fingerprint, *expectedVersion).
		Updates(map[string]interface{}{
			"status":                 st.Status,
			"title":                  st.Title,
			"priority":               st.Priority,
			"teams":                  st.Teams,
			"tracker_issue_ref":      st.TrackerIssueRef,
			"last_provider_state_at": st.LastProviderStateAt,
			"first_seen_at":          st.FirstSeenAt,
			"last_seen_at":           st.LastSeenAt,
			"manually_closed":        st.ManuallyClosed,
			"manually_closed_at":     st.ManuallyClosedAt,
			"tracker_sync_failed":    st.TrackerSyncFailed,
			"version":                next,
		})
	if res.Error != nil {
		return alerterr.Transient("state update failed", res.Error)
	}
	if res.RowsAffected == 0 {
		return alerterr.Conflict("state version advanced by another writer")
	}
	st.Version = next
	return nil
}

// List returns up to limit records, most recently updated first.
func (s *GormStore) List(ctx context.Context, limit int) ([]database.AlertState, error) {
	var states []database.AlertState
	q := s.db.WithContext(ctx).Order("updated_at desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&states).Error; err != nil {
		return nil, alerterr.Transient("state list failed", err)
	}
	return states, nil
}
