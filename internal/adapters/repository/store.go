// Package repository defines the ratings store interface and errors.
package repository

import (
	"context"

	"github.com/okian/elotrack/internal/domain/model"
)

// Persisted record names.
const (
	KeyDebaters   = "debaters"
	KeyEloHistory = "eloHistory"
)

// Change is a new rating for one participant.
type Change struct {
	Name string
	Elo  float64
}

// Store provides read/write access to the roster. Returned participants are
// copies; callers mutate only through the store.
type Store interface {
	// Register inserts or replaces a participant seeded with one history entry.
	Register(ctx context.Context, name string, elo float64, graduated bool) (model.Participant, error)

	// Get returns the participant or ErrNotFound.
	Get(ctx context.Context, name string) (model.Participant, error)

	// ListVisible returns participants in roster order, hiding graduated
	// ones unless showGraduated is set.
	ListVisible(ctx context.Context, showGraduated bool) []model.Participant

	// ApplyRatingChange sets a new rating and appends it to the history.
	// Returns ErrNotFound if the participant is absent.
	ApplyRatingChange(ctx context.Context, name string, elo float64) (model.Participant, error)

	// ApplyRatingChanges applies several changes as one mutation. Nothing is
	// applied if any participant is absent.
	ApplyRatingChanges(ctx context.Context, changes ...Change) ([]model.Participant, error)

	// ReplaceAll swaps the whole roster.
	ReplaceAll(ctx context.Context, roster *model.Roster) error

	// Clear removes every participant and the persisted records.
	Clear(ctx context.Context) error

	// All returns a copy of the whole roster.
	All(ctx context.Context) *model.Roster

	// Average returns the mean rating over every participant, graduated
	// included. Returns ErrEmptyRoster when there are none.
	Average(ctx context.Context) (float64, error)

	// Count returns the number of participants.
	Count(ctx context.Context) int
}
