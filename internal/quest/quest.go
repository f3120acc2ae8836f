// Package quest models community help requests and their lifecycle.
//
// A quest is created only through the intake pipeline (moderation then
// metadata inference); its core fields are write-once and the only mutation
// after creation is the open-to-closed completion transition.
package quest

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/neighborly/questboard/internal/platform/geo"
	"github.com/neighborly/questboard/internal/platform/id"
)

// Size categorizes the expected effort of a quest.
type Size string

const (
	// SizeSmall marks quests expected to take minimal effort.
	SizeSmall Size = "small"
	// SizeMedium marks quests of moderate effort.
	SizeMedium Size = "medium"
	// SizeLarge marks quests expected to take substantial effort.
	SizeLarge Size = "large"
)

var (
	// ErrEmptyTitle indicates a title is required.
	ErrEmptyTitle = errors.New("title is required")
	// ErrEmptyDescription indicates a description is required.
	ErrEmptyDescription = errors.New("description is required")
	// ErrEmptyRequester indicates a requester display name is required.
	ErrEmptyRequester = errors.New("requester is required")
	// ErrInvalidSize indicates an unsupported size estimate value.
	ErrInvalidSize = errors.New("size estimate is invalid")
	// ErrNegativeTimeEstimate indicates a time estimate below zero.
	ErrNegativeTimeEstimate = errors.New("time estimate must not be negative")
)

// ParseSize canonicalizes a size estimate string.
func ParseSize(value string) (Size, error) {
	switch Size(strings.ToLower(strings.TrimSpace(value))) {
	case SizeSmall:
		return SizeSmall, nil
	case SizeMedium:
		return SizeMedium, nil
	case SizeLarge:
		return SizeLarge, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSize, value)
}

// Quest is the domain model for a single help request.
type Quest struct {
	ID                  string
	Title               string
	Description         string
	Requester           string
	Location            geo.Coordinate
	TimeEstimateMinutes int
	SizeEstimate        Size
	Completed           bool
	Answer              string
	CreatedAt           time.Time
}

// Open reports whether the quest still awaits completion.
func (q Quest) Open() bool {
	return !q.Completed
}

// CreateInput captures the fields required to create a quest: the
// submitter-provided fields plus the inferred title and effort estimate.
type CreateInput struct {
	Title               string
	Description         string
	Requester           string
	Location            geo.Coordinate
	TimeEstimateMinutes int
	SizeEstimate        Size
}

// NormalizeCreateInput validates and canonicalizes create input.
func NormalizeCreateInput(input CreateInput) (CreateInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return CreateInput{}, ErrEmptyTitle
	}

	input.Description = strings.TrimSpace(input.Description)
	if input.Description == "" {
		return CreateInput{}, ErrEmptyDescription
	}

	input.Requester = strings.TrimSpace(input.Requester)
	if input.Requester == "" {
		return CreateInput{}, ErrEmptyRequester
	}

	if err := input.Location.Validate(); err != nil {
		return CreateInput{}, err
	}

	if input.TimeEstimateMinutes < 0 {
		return CreateInput{}, ErrNegativeTimeEstimate
	}

	size, err := ParseSize(string(input.SizeEstimate))
	if err != nil {
		return CreateInput{}, err
	}
	input.SizeEstimate = size

	return input, nil
}

// Create constructs a normalized open quest with a generated identifier.
func Create(input CreateInput, now func() time.Time, idGenerator func() (string, error)) (Quest, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateInput(input)
	if err != nil {
		return Quest{}, err
	}

	questID, err := idGenerator()
	if err != nil {
		return Quest{}, fmt.Errorf("generate quest id: %w", err)
	}

	return Quest{
		ID:                  questID,
		Title:               normalized.Title,
		Description:         normalized.Description,
		Requester:           normalized.Requester,
		Location:            normalized.Location,
		TimeEstimateMinutes: normalized.TimeEstimateMinutes,
		SizeEstimate:        normalized.SizeEstimate,
		Completed:           false,
		Answer:              "",
		CreatedAt:           now().UTC(),
	}, nil
}
