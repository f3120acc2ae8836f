// Package storage defines persistence contracts for quest records.
package storage

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested quest record is missing.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists indicates a quest with the same id already exists.
	ErrAlreadyExists = errors.New("record already exists")
)

// QuestRecord stores one persisted quest.
type QuestRecord struct {
	ID                  string
	Title               string
	Description         string
	Requester           string
	Lat                 float64
	Lng                 float64
	TimeEstimateMinutes int
	SizeEstimate        string
	Completed           bool
	Answer              string
	CreatedAt           time.Time
}

// QuestStore persists quest records through their lifecycle.
//
// MarkCompleted is an idempotent no-op when the quest is already completed.
// SetAnswer overwrites the answer unconditionally so that the two-step
// completion sequence (mark, then answer) always leaves both effects
// applied. CompleteWithAnswer applies both in one statement and is the
// preferred completion path.
type QuestStore interface {
	CreateQuest(ctx context.Context, record QuestRecord) error
	GetQuest(ctx context.Context, id string) (QuestRecord, error)
	ListQuests(ctx context.Context) ([]QuestRecord, error)
	ListCompletedQuests(ctx context.Context) ([]QuestRecord, error)
	MarkCompleted(ctx context.Context, id string) error
	SetAnswer(ctx context.Context, id string, answer string) error
	CompleteWithAnswer(ctx context.Context, id string, answer string) error
	DeleteQuest(ctx context.Context, id string) error
}
