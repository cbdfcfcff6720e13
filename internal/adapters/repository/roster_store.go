package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/okian/elotrack/internal/adapters/kv"
	"github.com/okian/elotrack/internal/domain/model"
	"github.com/okian/elotrack/internal/domain/rating"
	"github.com/okian/elotrack/pkg/logger"
	"github.com/okian/elotrack/pkg/metrics"
)

// emptyObject is written for the legacy eloHistory record when nothing was
// loaded. The record is carried for format compatibility and never read.
var emptyObject = json.RawMessage(`{}`)

// RosterStore is the in-memory roster backed by a kv.Backend. Every
// mutation rewrites both persisted records in one backend write. When that
// write fails the in-memory roster keeps the new state and the error wraps
// ErrPersist.
type RosterStore struct {
	roster     *model.Roster
	eloHistory json.RawMessage
	backend    kv.Backend
	now        func() time.Time
	logger     logger.Logger
}

var _ Store = (*RosterStore)(nil)

// Open loads the roster from backend. A missing debaters record yields an
// empty roster.
func Open(ctx context.Context, backend kv.Backend, opts ...Option) (*RosterStore, error) {
	s := &RosterStore{
		roster:     model.NewRoster(),
		eloHistory: emptyObject,
		backend:    backend,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	raw, ok, err := backend.Get(ctx, KeyDebaters)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", KeyDebaters, err)
	}
	if ok {
		if err := json.Unmarshal(raw, s.roster); err != nil {
			return nil, fmt.Errorf("load %s: %w", KeyDebaters, err)
		}
	}

	hist, ok, err := backend.Get(ctx, KeyEloHistory)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", KeyEloHistory, err)
	}
	if ok && json.Valid(hist) && string(hist) != "null" {
		s.eloHistory = hist
	}

	metrics.UpdateParticipants(s.roster.Len())
	return s, nil
}

func (s *RosterStore) today() model.Date {
	return model.DateOf(s.now())
}

// persist writes the whole roster and the legacy record as one blob pair.
func (s *RosterStore) persist(ctx context.Context) error {
	start := time.Now()
	metrics.UpdateParticipants(s.roster.Len())

	err := s.write(ctx)
	took := time.Since(start)
	metrics.RecordPersistLatency(float64(took.Microseconds()) / 1000)

	if s.logger != nil {
		fields := []logger.Field{
			logger.Int("participants", s.roster.Len()),
			logger.Duration("took", took),
		}
		if err != nil {
			s.logger.Error(ctx, "persisting roster failed", append(fields, logger.Error(err))...)
		} else {
			s.logger.Debug(ctx, "roster persisted", fields...)
		}
	}
	return err
}

func (s *RosterStore) write(ctx context.Context) error {
	data, err := json.Marshal(s.roster)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "encode")
		return fmt.Errorf("%w: encode roster: %v", ErrPersist, err)
	}
	err = s.backend.PutAll(ctx, map[string][]byte{
		KeyDebaters:   data,
		KeyEloHistory: s.eloHistory,
	})
	if err != nil {
		metrics.RecordErrorByComponent("repository", "write")
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// Register inserts or replaces a participant. Overwriting an existing name
// is not an error.
func (s *RosterStore) Register(ctx context.Context, name string, elo float64, graduated bool) (model.Participant, error) {
	if strings.TrimSpace(name) == "" {
		return model.Participant{}, fmt.Errorf("%w: name must not be empty", ErrInvalidParticipant)
	}
	if math.IsNaN(elo) || math.IsInf(elo, 0) {
		return model.Participant{}, fmt.Errorf("%w: initial elo must be finite", ErrInvalidParticipant)
	}

	p := model.NewParticipant(name, elo, graduated, s.today())
	s.roster.Put(p)
	return p.Clone(), s.persist(ctx)
}

// Get returns a copy of the named participant.
func (s *RosterStore) Get(_ context.Context, name string) (model.Participant, error) {
	p, ok := s.roster.Lookup(name)
	if !ok {
		return model.Participant{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p.Clone(), nil
}

// ListVisible returns participants in roster order.
func (s *RosterStore) ListVisible(_ context.Context, showGraduated bool) []model.Participant {
	all := s.roster.Participants()
	out := make([]model.Participant, 0, len(all))
	for _, p := range all {
		if p.Graduated && !showGraduated {
			continue
		}
		out = append(out, p)
	}
	return out
}

// ApplyRatingChange records a new rating for one participant.
func (s *RosterStore) ApplyRatingChange(ctx context.Context, name string, elo float64) (model.Participant, error) {
	ps, err := s.ApplyRatingChanges(ctx, Change{Name: name, Elo: elo})
	if len(ps) == 0 {
		return model.Participant{}, err
	}
	return ps[0], err
}

// ApplyRatingChanges checks every participant exists before touching any.
// All ratings are set before any history is appended, so a name repeated
// in one batch logs its final rating once per change.
func (s *RosterStore) ApplyRatingChanges(ctx context.Context, changes ...Change) ([]model.Participant, error) {
	for _, c := range changes {
		if !s.roster.Has(c.Name) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, c.Name)
		}
	}

	for _, c := range changes {
		p, _ := s.roster.Lookup(c.Name)
		p.Elo = c.Elo
	}
	today := s.today()
	for _, c := range changes {
		p, _ := s.roster.Lookup(c.Name)
		p.Snapshot(today)
	}

	out := make([]model.Participant, 0, len(changes))
	for _, c := range changes {
		p, _ := s.roster.Lookup(c.Name)
		out = append(out, p.Clone())
	}
	return out, s.persist(ctx)
}

// ReplaceAll swaps in a copy of roster. Shape is not validated beyond what
// decoding already enforced.
func (s *RosterStore) ReplaceAll(ctx context.Context, roster *model.Roster) error {
	if roster == nil {
		roster = model.NewRoster()
	}
	s.roster = roster.Clone()
	return s.persist(ctx)
}

// Clear drops every participant and erases the persisted records.
func (s *RosterStore) Clear(ctx context.Context) error {
	s.roster = model.NewRoster()
	s.eloHistory = emptyObject
	metrics.UpdateParticipants(0)
	if err := s.backend.Clear(ctx); err != nil {
		metrics.RecordErrorByComponent("repository", "clear")
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}

// All returns a copy of the roster.
func (s *RosterStore) All(_ context.Context) *model.Roster {
	return s.roster.Clone()
}

// Average returns the mean rating over every participant.
func (s *RosterStore) Average(_ context.Context) (float64, error) {
	if s.roster.Len() == 0 {
		return 0, ErrEmptyRoster
	}
	ratings := make([]float64, 0, s.roster.Len())
	for _, name := range s.roster.Names() {
		p, _ := s.roster.Lookup(name)
		ratings = append(ratings, p.Elo)
	}
	avg, err := rating.Average(ratings)
	if err != nil {
		return 0, err
	}
	metrics.UpdateAverageRating(avg)
	return avg, nil
}

// Count returns the number of participants.
func (s *RosterStore) Count(_ context.Context) int {
	return s.roster.Len()
}
