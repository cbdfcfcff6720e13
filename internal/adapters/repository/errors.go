package repository

import (
	"errors"
	"fmt"

	"github.com/okian/elotrack/internal/domain/rating"
)

// Sentinel kinds for roster errors.
var (
	ErrNotFound           = errors.New("participant not found")
	ErrInvalidParticipant = errors.New("invalid participant")
	ErrPersist            = errors.New("persist ratings failed")
	ErrEmptyRoster        = fmt.Errorf("empty roster: %w", rating.ErrDegenerateInput)
)
