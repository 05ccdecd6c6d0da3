package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// StringList stores a slice of strings as a JSON column, portable across
// postgres and sqlite.
type StringList []string

// Scan implements the sql.Scanner interface.
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	}
	return errors.New("unsupported type for StringList")
}

// Value implements the driver.Valuer interface.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// StateStatus is the persisted lifecycle status of one fingerprint.
type StateStatus string

const (
	StateStatusOpen   StateStatus = "OPEN"
	StateStatusClosed StateStatus = "CLOSED"
)

// AlertState is the per-fingerprint record the lifecycle engine mutates.
// One row per logical alert condition; rows are never deleted here
// (expiry is store policy, not core logic).
type AlertState struct {
	Fingerprint string      `gorm:"primaryKey;size:64" json:"fingerprint"`
	Status      StateStatus `gorm:"type:varchar(16);not null;index" json:"status"`
	Title       string      `gorm:"type:varchar(512);not null" json:"title"`
	Priority    string      `gorm:"type:varchar(4);not null" json:"priority"`
	Teams       StringList  `gorm:"type:text" json:"teams"`

	// TrackerIssueRef is the external issue identifier, e.g. "1234".
	TrackerIssueRef string `gorm:"type:varchar(64)" json:"tracker_issue_ref,omitempty"`

	// LastProviderStateAt is the provider-side state-change time the
	// out-of-order guard compares against.
	LastProviderStateAt time.Time `gorm:"not null" json:"last_provider_state_at"`

	FirstSeenAt time.Time `gorm:"not null" json:"first_seen_at"`
	LastSeenAt  time.Time `gorm:"not null" json:"last_seen_at"`

	// ManuallyClosed suppresses automatic CLOSE, never automatic CREATE.
	ManuallyClosed   bool       `gorm:"not null;default:false" json:"manually_closed"`
	ManuallyClosedAt *time.Time `json:"manually_closed_at,omitempty"`

	// TrackerSyncFailed notes that the last tracker mutation did not go
	// through even though the state write did, for manual reconciliation.
	TrackerSyncFailed bool `gorm:"not null;default:false" json:"tracker_sync_failed"`

	// Version is the optimistic-concurrency counter conditional writes
	// compare against.
	Version uint `gorm:"not null;default:0" json:"version"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AlertState) TableName() string {
	return "alert_states"
}
