package intake

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/neighborly/questboard/internal/inference"
	"github.com/neighborly/questboard/internal/moderation"
	"github.com/neighborly/questboard/internal/platform/geo"
	"github.com/neighborly/questboard/internal/platform/telemetry"
	"github.com/neighborly/questboard/internal/quest"
	"github.com/neighborly/questboard/internal/quest/storage"
)

type fakeGate struct {
	flagged bool
	err     error
	calls   atomic.Int64
}

func (f *fakeGate) Check(ctx context.Context, text string) (bool, error) {
	f.calls.Add(1)
	return f.flagged, f.err
}

type fakeInferencer struct {
	title       string
	titleErr    error
	effort      inference.Effort
	effortErr   error
	titleCalls  atomic.Int64
	effortCalls atomic.Int64
}

func (f *fakeInferencer) InferTitle(ctx context.Context, description string) (string, error) {
	f.titleCalls.Add(1)
	return f.title, f.titleErr
}

func (f *fakeInferencer) InferEffort(ctx context.Context, description string) (inference.Effort, error) {
	f.effortCalls.Add(1)
	return f.effort, f.effortErr
}

type fakeStore struct {
	storage.QuestStore

	createErr error
	created   []storage.QuestRecord
}

func (f *fakeStore) CreateQuest(ctx context.Context, record storage.QuestRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, record)
	return nil
}

func location() *geo.Coordinate {
	return &geo.Coordinate{Lat: 43.47, Lng: -80.54}
}

func newTestOrchestrator(t *testing.T, gate *fakeGate, inferencer *fakeInferencer, store *fakeStore, counters *telemetry.Counters) *Orchestrator {
	t.Helper()
	orchestrator, err := New(Config{
		Gate:       gate,
		Inferencer: inferencer,
		Store:      store,
		Counters:   counters,
		Now:        func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC) },
		NewID:      func() (string, error) { return "quest-1", nil },
	})
	if err != nil {
		t.Fatalf("new orchestrator: %v", err)
	}
	return orchestrator
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Fatal("expected missing gate error")
	}
	if _, err := New(Config{Gate: &fakeGate{}}); err == nil {
		t.Fatal("expected missing inferencer error")
	}
	if _, err := New(Config{Gate: &fakeGate{}, Inferencer: &fakeInferencer{}}); err == nil {
		t.Fatal("expected missing store error")
	}
}

func TestSubmitCreatesQuest(t *testing.T) {
	t.Parallel()

	gate := &fakeGate{}
	inferencer := &fakeInferencer{
		title:  "Help Carry Boxes",
		effort: inference.Effort{TimeMinutes: 15, Size: quest.SizeSmall},
	}
	store := &fakeStore{}
	counters := telemetry.NewCounters()
	orchestrator := newTestOrchestrator(t, gate, inferencer, store, counters)

	result, err := orchestrator.Submit(context.Background(), Submission{
		Description: "help carry boxes",
		Requester:   "Alex",
		Location:    location(),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.State != StateCreated {
		t.Fatalf("state = %q, want %q", result.State, StateCreated)
	}
	if len(store.created) != 1 {
		t.Fatalf("create calls = %d, want exactly 1", len(store.created))
	}

	record := store.created[0]
	if record.Completed {
		t.Fatal("expected record to be open")
	}
	if record.Answer != "" {
		t.Fatalf("answer = %q, want empty", record.Answer)
	}
	if record.Title != "Help Carry Boxes" {
		t.Fatalf("title = %q, want inferred title", record.Title)
	}
	if record.TimeEstimateMinutes != 15 {
		t.Fatalf("time estimate = %d, want 15", record.TimeEstimateMinutes)
	}
	if record.SizeEstimate != "small" {
		t.Fatalf("size estimate = %q, want small", record.SizeEstimate)
	}
	if result.Quest.ID != "quest-1" {
		t.Fatalf("quest id = %q, want quest-1", result.Quest.ID)
	}
	if got := counters.Count(telemetry.EventCreated); got != 1 {
		t.Fatalf("created counter = %d, want 1", got)
	}
	if inferencer.titleCalls.Load() != 1 || inferencer.effortCalls.Load() != 1 {
		t.Fatalf("inference calls = (%d,%d), want (1,1)", inferencer.titleCalls.Load(), inferencer.effortCalls.Load())
	}
}

func TestSubmitBlockedWritesNothing(t *testing.T) {
	t.Parallel()

	gate := &fakeGate{flagged: true}
	inferencer := &fakeInferencer{}
	store := &fakeStore{}
	counters := telemetry.NewCounters()
	orchestrator := newTestOrchestrator(t, gate, inferencer, store, counters)

	result, err := orchestrator.Submit(context.Background(), Submission{
		Description: "rude text",
		Requester:   "Mallory",
		Location:    location(),
	})
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("error = %v, want %v", err, ErrBlocked)
	}
	if result.State != StateBlocked {
		t.Fatalf("state = %q, want %q", result.State, StateBlocked)
	}
	if len(store.created) != 0 {
		t.Fatalf("create calls = %d, want 0", len(store.created))
	}
	if inferencer.titleCalls.Load() != 0 || inferencer.effortCalls.Load() != 0 {
		t.Fatal("expected no inference spend for blocked submission")
	}
	if got := counters.Count(telemetry.EventBlocked); got != 1 {
		t.Fatalf("blocked counter = %d, want 1", got)
	}
}

func TestSubmitFailsClosedOnModerationOutage(t *testing.T) {
	t.Parallel()

	gate := &fakeGate{err: moderation.ErrUnavailable}
	inferencer := &fakeInferencer{}
	store := &fakeStore{}
	orchestrator := newTestOrchestrator(t, gate, inferencer, store, nil)

	result, err := orchestrator.Submit(context.Background(), Submission{
		Description: "help carry boxes",
		Requester:   "Alex",
		Location:    location(),
	})
	if !errors.Is(err, ErrBlocked) {
		t.Fatalf("error = %v, want %v", err, ErrBlocked)
	}
	if !errors.Is(err, moderation.ErrUnavailable) {
		t.Fatalf("error = %v, want wrapped %v", err, moderation.ErrUnavailable)
	}
	if result.State != StateBlocked {
		t.Fatalf("state = %q, want %q", result.State, StateBlocked)
	}
	if len(store.created) != 0 {
		t.Fatalf("create calls = %d, want 0", len(store.created))
	}
}

func TestSubmitValidatesBeforeAnyCall(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		submission Submission
	}{
		{
			name:       "missing description",
			submission: Submission{Requester: "Alex", Location: location()},
		},
		{
			name:       "missing requester",
			submission: Submission{Description: "help", Location: location()},
		},
		{
			name:       "missing location",
			submission: Submission{Description: "help", Requester: "Alex"},
		},
		{
			name:       "out of range location",
			submission: Submission{Description: "help", Requester: "Alex", Location: &geo.Coordinate{Lat: 95, Lng: 0}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			gate := &fakeGate{}
			inferencer := &fakeInferencer{}
			store := &fakeStore{}
			orchestrator := newTestOrchestrator(t, gate, inferencer, store, nil)

			result, err := orchestrator.Submit(context.Background(), tt.submission)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("error = %v, want %v", err, ErrValidation)
			}
			if result.State != StateFailed {
				t.Fatalf("state = %q, want %q", result.State, StateFailed)
			}
			if gate.calls.Load() != 0 {
				t.Fatal("expected no moderation call for invalid submission")
			}
			if len(store.created) != 0 {
				t.Fatal("expected no store write for invalid submission")
			}
		})
	}
}

func TestSubmitFailsOnInferenceError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		inferencer *fakeInferencer
	}{
		{
			name:       "title failure",
			inferencer: &fakeInferencer{titleErr: inference.ErrInference, effort: inference.Effort{TimeMinutes: 5, Size: quest.SizeSmall}},
		},
		{
			name:       "effort failure",
			inferencer: &fakeInferencer{title: "A Title", effortErr: inference.ErrInference},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := &fakeStore{}
			counters := telemetry.NewCounters()
			orchestrator := newTestOrchestrator(t, &fakeGate{}, tt.inferencer, store, counters)

			result, err := orchestrator.Submit(context.Background(), Submission{
				Description: "help carry boxes",
				Requester:   "Alex",
				Location:    location(),
			})
			if !errors.Is(err, inference.ErrInference) {
				t.Fatalf("error = %v, want %v", err, inference.ErrInference)
			}
			if result.State != StateFailed {
				t.Fatalf("state = %q, want %q", result.State, StateFailed)
			}
			if len(store.created) != 0 {
				t.Fatalf("create calls = %d, want 0", len(store.created))
			}
			if got := counters.Count(telemetry.EventFailed); got != 1 {
				t.Fatalf("failed counter = %d, want 1", got)
			}
		})
	}
}

func TestSubmitFailsOnStoreError(t *testing.T) {
	t.Parallel()

	storeErr := errors.New("disk full")
	store := &fakeStore{createErr: storeErr}
	inferencer := &fakeInferencer{
		title:  "A Title",
		effort: inference.Effort{TimeMinutes: 5, Size: quest.SizeSmall},
	}
	orchestrator := newTestOrchestrator(t, &fakeGate{}, inferencer, store, nil)

	result, err := orchestrator.Submit(context.Background(), Submission{
		Description: "help carry boxes",
		Requester:   "Alex",
		Location:    location(),
	})
	if !errors.Is(err, storeErr) {
		t.Fatalf("error = %v, want wrapped store error", err)
	}
	if result.State != StateFailed {
		t.Fatalf("state = %q, want %q", result.State, StateFailed)
	}
}

func TestSubmitPersistsDespiteCancellationAfterInference(t *testing.T) {
	t.Parallel()

	store := &fakeStore{}
	inferencer := &fakeInferencer{
		title:  "A Title",
		effort: inference.Effort{TimeMinutes: 5, Size: quest.SizeSmall},
	}
	orchestrator := newTestOrchestrator(t, &fakeGate{}, inferencer, store, nil)

	// The fake collaborators ignore ctx, so cancellation strikes between
	// inference and persistence; the detached write must still land.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := orchestrator.Submit(ctx, Submission{
		Description: "help carry boxes",
		Requester:   "Alex",
		Location:    location(),
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if result.State != StateCreated {
		t.Fatalf("state = %q, want %q", result.State, StateCreated)
	}
	if len(store.created) != 1 {
		t.Fatalf("create calls = %d, want 1", len(store.created))
	}
}
