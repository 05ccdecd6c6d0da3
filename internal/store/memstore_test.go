package store

import (
	"context"
	"testing"
	"time"

	"github.com/pytorch/alerting-infra/internal/alerterr"
	"github.com/pytorch/alerting-infra/internal/database"
)

func sampleState(fp string) *database.AlertState {
	now := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	return &database.AlertState{
		Fingerprint:         fp,
		Status:              database.StateStatusOpen,
		Title:               "Runners Scale Up Failure",
		Priority:            "P1",
		Teams:               database.StringList{"dev-infra"},
		LastProviderStateAt: now,
		FirstSeenAt:         now,
		LastSeenAt:          now,
	}
}

func TestMemStore_LoadAbsent(t *testing.T) {
	s := NewMemStore()
	st, err := s.Load(context.Background(), "missing")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if st != nil {
		t.Fatal("Expected nil state for missing fingerprint")
	}
}

func TestMemStore_CreateAndLoad(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	st := sampleState("fp1")
	if err := s.Save(ctx, st, nil); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if st.Version != 0 {
		t.Errorf("Expected version 0 after create, got %d", st.Version)
	}

	loaded, err := s.Load(ctx, "fp1")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if loaded == nil || loaded.Title != "Runners Scale Up Failure" {
		t.Fatalf("Unexpected loaded state: %+v", loaded)
	}
}

func TestMemStore_DuplicateCreateConflicts(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	if err := s.Save(ctx, sampleState("fp1"), nil); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	err := s.Save(ctx, sampleState("fp1"), nil)
	if !alerterr.IsConflict(err) {
		t.Fatalf("Expected conflict on duplicate create, got %v", err)
	}
}

func TestMemStore_ConditionalUpdate(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	st := sampleState("fp1")
	s.Save(ctx, st, nil)

	v := st.Version
	st.Status = database.StateStatusClosed
	if err := s.Save(ctx, st, &v); err != nil {
		t.Fatalf("Conditional update returned error: %v", err)
	}
	if st.Version != 1 {
		t.Errorf("Expected version 1, got %d", st.Version)
	}

	// Stale writer with the old version must lose.
	stale := sampleState("fp1")
	err := s.Save(ctx, stale, &v)
	if !alerterr.IsConflict(err) {
		t.Fatalf("Expected conflict for stale version, got %v", err)
	}
}

func TestMemStore_UpdateMissingConflicts(t *testing.T) {
	s := NewMemStore()
	v := uint(0)
	err := s.Save(context.Background(), sampleState("nope"), &v)
	if !alerterr.IsConflict(err) {
		t.Fatalf("Expected conflict updating missing record, got %v", err)
	}
}

func TestMemStore_LoadReturnsCopy(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()
	s.Save(ctx, sampleState("fp1"), nil)

	a, _ := s.Load(ctx, "fp1")
	a.Title = "mutated"

	b, _ := s.Load(ctx, "fp1")
	if b.Title != "Runners Scale Up Failure" {
		t.Error("Expected Load to return independent copies")
	}
}

func TestMemStore_ListOrderedAndLimited(t *testing.T) {
	s := NewMemStore()
	ctx := context.Background()

	s.Save(ctx, sampleState("fp1"), nil)
	time.Sleep(time.Millisecond)
	s.Save(ctx, sampleState("fp2"), nil)

	states, err := s.List(ctx, 10)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("Expected 2 states, got %d", len(states))
	}
	if states[0].Fingerprint != "fp2" {
		t.Errorf("Expected most recently updated first, got %s", states[0].Fingerprint)
	}

	limited, _ := s.List(ctx, 1)
	if len(limited) != 1 {
		t.Errorf("Expected limit to apply, got %d", len(limited))
	}
}
