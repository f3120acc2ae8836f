// Package intake sequences moderation, metadata inference, and persistence
// for new quest submissions.
//
// A submission moves through a fixed state machine:
//
//	Draft -> Moderating -> {Blocked | Inferring} -> Persisting -> Created
//
// with Moderating and Inferring able to reach Failed on upstream error.
// Nothing is written to storage before moderation and both inference calls
// succeed, so Blocked and Failed submissions never leave partial records.
package intake

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/neighborly/questboard/internal/inference"
	"github.com/neighborly/questboard/internal/moderation"
	"github.com/neighborly/questboard/internal/platform/geo"
	"github.com/neighborly/questboard/internal/platform/telemetry"
	"github.com/neighborly/questboard/internal/platform/timeouts"
	"github.com/neighborly/questboard/internal/quest"
	"github.com/neighborly/questboard/internal/quest/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// State identifies a phase of one submission attempt.
type State string

const (
	// StateDraft is the initial state before any processing.
	StateDraft State = "draft"
	// StateModerating covers the content classification call.
	StateModerating State = "moderating"
	// StateBlocked is terminal: moderation rejected the submission.
	StateBlocked State = "blocked"
	// StateInferring covers the concurrent title and effort calls.
	StateInferring State = "inferring"
	// StatePersisting covers the storage write.
	StatePersisting State = "persisting"
	// StateCreated is terminal: the quest was persisted.
	StateCreated State = "created"
	// StateFailed is terminal: an upstream call or the write failed.
	StateFailed State = "failed"
)

var (
	// ErrValidation indicates required submission fields are missing or
	// malformed. No upstream call is made for invalid submissions.
	ErrValidation = errors.New("submission is invalid")
	// ErrBlocked indicates moderation rejected the submission. When the
	// classifier itself was unavailable the error additionally wraps
	// moderation.ErrUnavailable (fail-closed policy).
	ErrBlocked = errors.New("submission rejected by moderation")
)

// Submission carries the viewer-provided fields of a new quest.
type Submission struct {
	Description string
	Requester   string
	// Location is required; submissions without a coordinate fail
	// validation before any network call.
	Location *geo.Coordinate
}

// Result reports the terminal state of a submission attempt and, when
// created, the persisted quest.
type Result struct {
	State State
	Quest quest.Quest
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Gate       moderation.Gate
	Inferencer inference.Inferencer
	Store      storage.QuestStore

	// Counters is optional; a nil set disables event counting.
	Counters *telemetry.Counters
	// Now and NewID are injectable for tests; nil selects the defaults.
	Now   func() time.Time
	NewID func() (string, error)
}

// Orchestrator runs the intake pipeline for new submissions.
type Orchestrator struct {
	gate       moderation.Gate
	inferencer inference.Inferencer
	store      storage.QuestStore
	counters   *telemetry.Counters
	now        func() time.Time
	newID      func() (string, error)
	tracer     trace.Tracer
}

// New builds an orchestrator; all three collaborators are required.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Gate == nil {
		return nil, errors.New("moderation gate is required")
	}
	if cfg.Inferencer == nil {
		return nil, errors.New("inferencer is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("quest store is required")
	}
	return &Orchestrator{
		gate:       cfg.Gate,
		inferencer: cfg.Inferencer,
		store:      cfg.Store,
		counters:   cfg.Counters,
		now:        cfg.Now,
		newID:      cfg.NewID,
		tracer:     otel.Tracer("questboard/intake"),
	}, nil
}

// Submit runs one submission through the pipeline. The returned Result
// always carries the terminal state, including on error. Cancelling ctx
// abandons in-flight moderation or inference calls without side effects;
// once persistence starts the write runs to completion.
func (o *Orchestrator) Submit(ctx context.Context, submission Submission) (Result, error) {
	o.counters.Add(telemetry.EventSubmission)

	ctx, span := o.tracer.Start(ctx, "intake.Submit")
	defer span.End()

	if err := validate(submission); err != nil {
		span.SetAttributes(attribute.String("intake.state", string(StateFailed)))
		return Result{State: StateFailed}, err
	}

	// Moderating.
	flagged, err := o.moderate(ctx, submission)
	if err != nil {
		o.counters.Add(telemetry.EventBlocked)
		span.SetAttributes(attribute.String("intake.state", string(StateBlocked)))
		// Fail closed: an unavailable classifier rejects the submission
		// rather than letting unscreened content through.
		return Result{State: StateBlocked}, fmt.Errorf("%w: %w", ErrBlocked, err)
	}
	if flagged {
		o.counters.Add(telemetry.EventBlocked)
		span.SetAttributes(attribute.String("intake.state", string(StateBlocked)))
		return Result{State: StateBlocked}, ErrBlocked
	}

	// Inferring: title and effort are independent and run concurrently.
	title, effort, err := o.infer(ctx, submission.Description)
	if err != nil {
		o.counters.Add(telemetry.EventFailed)
		span.SetAttributes(attribute.String("intake.state", string(StateFailed)))
		return Result{State: StateFailed}, err
	}

	created, err := quest.Create(quest.CreateInput{
		Title:               title,
		Description:         submission.Description,
		Requester:           submission.Requester,
		Location:            *submission.Location,
		TimeEstimateMinutes: effort.TimeMinutes,
		SizeEstimate:        effort.Size,
	}, o.now, o.newID)
	if err != nil {
		o.counters.Add(telemetry.EventFailed)
		span.SetAttributes(attribute.String("intake.state", string(StateFailed)))
		return Result{State: StateFailed}, fmt.Errorf("build quest: %w", err)
	}

	// Persisting. The write is detached from submission cancellation: a
	// viewer closing the form after this point must not abort the creation.
	persistCtx := context.WithoutCancel(ctx)
	if err := o.store.CreateQuest(persistCtx, storage.QuestRecord{
		ID:                  created.ID,
		Title:               created.Title,
		Description:         created.Description,
		Requester:           created.Requester,
		Lat:                 created.Location.Lat,
		Lng:                 created.Location.Lng,
		TimeEstimateMinutes: created.TimeEstimateMinutes,
		SizeEstimate:        string(created.SizeEstimate),
		CreatedAt:           created.CreatedAt,
	}); err != nil {
		o.counters.Add(telemetry.EventFailed)
		span.SetAttributes(attribute.String("intake.state", string(StateFailed)))
		return Result{State: StateFailed}, fmt.Errorf("persist quest: %w", err)
	}

	o.counters.Add(telemetry.EventCreated)
	span.SetAttributes(
		attribute.String("intake.state", string(StateCreated)),
		attribute.String("quest.id", created.ID),
	)
	return Result{State: StateCreated, Quest: created}, nil
}

func validate(submission Submission) error {
	if submission.Description == "" {
		return fmt.Errorf("%w: %w", ErrValidation, quest.ErrEmptyDescription)
	}
	if submission.Requester == "" {
		return fmt.Errorf("%w: %w", ErrValidation, quest.ErrEmptyRequester)
	}
	if submission.Location == nil {
		return fmt.Errorf("%w: location is required", ErrValidation)
	}
	if err := submission.Location.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}

// moderate runs the gate on description plus requester identity so that
// identity-based abuse is screened as well.
func (o *Orchestrator) moderate(ctx context.Context, submission Submission) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Moderation)
	defer cancel()
	return o.gate.Check(ctx, submission.Description+" By "+submission.Requester)
}

func (o *Orchestrator) infer(ctx context.Context, description string) (string, inference.Effort, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Inference)
	defer cancel()

	var (
		title  string
		effort inference.Effort
	)
	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		value, err := o.inferencer.InferTitle(groupCtx, description)
		if err != nil {
			return err
		}
		title = value
		return nil
	})
	group.Go(func() error {
		value, err := o.inferencer.InferEffort(groupCtx, description)
		if err != nil {
			return err
		}
		effort = value
		return nil
	})
	if err := group.Wait(); err != nil {
		return "", inference.Effort{}, err
	}
	return title, effort, nil
}
