// Package service provides the command handlers behind the elotrack CLI.
// Each handler takes a request struct, validates it at the boundary, runs
// the rating engine against the store, and returns a result or an error.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/elotrack/internal/adapters/render"
	"github.com/okian/elotrack/internal/adapters/repository"
	"github.com/okian/elotrack/internal/domain/model"
	"github.com/okian/elotrack/internal/domain/rating"
	"github.com/okian/elotrack/internal/domain/types"
	"github.com/okian/elotrack/pkg/logger"
	"github.com/okian/elotrack/pkg/metrics"
)

// DefaultExportFileName is the suggested name for exported documents.
const DefaultExportFileName = "debate-elo.json"

// Service runs commands against a ratings store.
type Service struct {
	mu sync.Mutex

	store    repository.Store
	renderer *render.Renderer

	// Configuration
	exportFileName string
	newOpID        func() string

	// Current chart marker; a new mark replaces it.
	mark *types.Annotation

	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithRenderer sets the renderer used for charts and leaderboards.
func WithRenderer(r *render.Renderer) Option {
	return func(s *Service) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithExportFileName sets the file name reported by ExportStore.
func WithExportFileName(name string) Option {
	return func(s *Service) {
		if strings.TrimSpace(name) != "" {
			s.exportFileName = name
		}
	}
}

// WithOperationIDs sets the generator for per-command operation ids.
func WithOperationIDs(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newOpID = gen
		}
	}
}

// New constructs a Service over store.
func New(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:          store,
		renderer:       render.New(),
		exportFileName: DefaultExportFileName,
		newOpID:        uuid.NewString,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	return s
}

// op starts a command: it takes the lock and returns the log fields that
// tag every line the command writes.
func (s *Service) op(name string) ([]logger.Field, func()) {
	s.mu.Lock()
	fields := []logger.Field{
		logger.String("op", name),
		logger.String("op_id", s.newOpID()),
	}
	return fields, s.mu.Unlock
}

func with(base []logger.Field, extra ...logger.Field) []logger.Field {
	out := make([]logger.Field, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// reason maps an error to a short metrics label.
func reason(err error) string {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return "not_found"
	case errors.Is(err, rating.ErrDegenerateInput):
		return "degenerate"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, repository.ErrPersist):
		return "persist"
	default:
		return "other"
	}
}

// RegisterParticipant adds a participant, or overwrites one with the same
// name, seeded with a single history entry.
func (s *Service) RegisterParticipant(ctx context.Context, req RegisterRequest) (model.Participant, error) {
	fields, done := s.op("register")
	defer done()

	p, err := s.store.Register(ctx, req.Name, req.Elo, req.Graduated)
	if err != nil && !errors.Is(err, repository.ErrPersist) {
		s.logger.Warn(ctx, "registration rejected", with(fields, logger.String("name", req.Name), logger.Error(err))...)
		return model.Participant{}, err
	}
	metrics.RecordRegistration()
	if err != nil {
		s.logger.Error(ctx, "registration not persisted", with(fields, logger.String("name", req.Name), logger.Error(err))...)
		return p, err
	}

	s.logger.Info(ctx, "participant registered", with(fields,
		logger.String("name", p.Name),
		logger.Float64("elo", p.Elo),
		logger.Bool("graduated", p.Graduated),
	)...)
	return p, nil
}

// SettlePractice settles a practice round between two rostered
// participants. Both must exist; nothing changes otherwise.
func (s *Service) SettlePractice(ctx context.Context, req PracticeRequest) (PracticeResult, error) {
	fields, done := s.op("practice")
	defer done()

	res, err := s.settlePractice(ctx, req)
	if err != nil && !errors.Is(err, repository.ErrPersist) {
		metrics.RecordSettlementError(metrics.KindPractice, reason(err))
		s.logger.Warn(ctx, "practice rejected", with(fields,
			logger.String("a", req.A), logger.String("b", req.B), logger.Error(err))...)
		return PracticeResult{}, err
	}

	metrics.RecordSettlement(metrics.KindPractice)
	o := res.Outcome
	if err != nil {
		s.logger.Error(ctx, "practice not persisted", with(fields, logger.Error(err))...)
		return res, err
	}
	s.logger.Info(ctx, "practice settled", with(fields,
		logger.String("a", res.A.Name),
		logger.String("b", res.B.Name),
		logger.Float64("expected", o.Expected),
		logger.Float64("new_a", o.NewA),
		logger.Float64("new_b", o.NewB),
	)...)
	return res, nil
}

func (s *Service) settlePractice(ctx context.Context, req PracticeRequest) (PracticeResult, error) {
	if !finite(req.Result) {
		return PracticeResult{}, fmt.Errorf("%w: result must be a finite number", ErrInvalidRequest)
	}
	a, err := s.store.Get(ctx, req.A)
	if err != nil {
		return PracticeResult{}, err
	}
	b, err := s.store.Get(ctx, req.B)
	if err != nil {
		return PracticeResult{}, err
	}

	o, err := rating.SettlePractice(a.Elo, b.Elo, req.Result)
	if err != nil {
		return PracticeResult{}, err
	}

	ps, err := s.store.ApplyRatingChanges(ctx,
		repository.Change{Name: a.Name, Elo: o.NewA},
		repository.Change{Name: b.Name, Elo: o.NewB},
	)
	if err != nil && !errors.Is(err, repository.ErrPersist) {
		return PracticeResult{}, err
	}
	metrics.RecordRatingDelta(metrics.KindPractice, o.NewA-a.Elo)
	metrics.RecordRatingDelta(metrics.KindPractice, o.NewB-b.Elo)
	return PracticeResult{A: ps[0], B: ps[1], Outcome: o}, err
}

// SettleTournament settles one participant's tournament result against
// the roster average.
func (s *Service) SettleTournament(ctx context.Context, req TournamentRequest) (TournamentResult, error) {
	fields, done := s.op("tournament")
	defer done()

	res, err := s.settleTournament(ctx, req)
	if err != nil && !errors.Is(err, repository.ErrPersist) {
		metrics.RecordSettlementError(metrics.KindTournament, reason(err))
		s.logger.Warn(ctx, "tournament rejected", with(fields, logger.String("name", req.Name), logger.Error(err))...)
		return TournamentResult{}, err
	}

	metrics.RecordSettlement(metrics.KindTournament)
	o := res.Outcome
	if err != nil {
		s.logger.Error(ctx, "tournament not persisted", with(fields, logger.Error(err))...)
		return res, err
	}
	s.logger.Info(ctx, "tournament settled", with(fields,
		logger.String("name", res.Participant.Name),
		logger.String("level", string(o.Level)),
		logger.Float64("wadj", o.WinAdj),
		logger.Float64("change", o.Change),
		logger.Float64("new_elo", o.NewElo),
	)...)
	return res, nil
}

func (s *Service) settleTournament(ctx context.Context, req TournamentRequest) (TournamentResult, error) {
	if !finite(req.Bonus) {
		return TournamentResult{}, fmt.Errorf("%w: bonus must be a finite number", ErrInvalidRequest)
	}
	if req.StrengthElo != nil && !finite(*req.StrengthElo) {
		return TournamentResult{}, fmt.Errorf("%w: strength elo must be a finite number", ErrInvalidRequest)
	}

	p, err := s.store.Get(ctx, req.Name)
	if err != nil {
		return TournamentResult{}, err
	}
	avg, err := s.store.Average(ctx)
	if err != nil {
		return TournamentResult{}, err
	}

	o, err := rating.SettleTournament(rating.TournamentInput{
		Elo:         p.Elo,
		Rounds:      req.Rounds,
		Wins:        req.Wins,
		Novice:      req.Novice,
		JV:          req.JV,
		Varsity:     req.Varsity,
		Teams:       req.Teams,
		Bonus:       req.Bonus,
		StrengthElo: req.StrengthElo,
	}, avg)
	if err != nil {
		return TournamentResult{}, err
	}

	updated, err := s.store.ApplyRatingChange(ctx, p.Name, o.NewElo)
	if err != nil && !errors.Is(err, repository.ErrPersist) {
		return TournamentResult{}, err
	}
	metrics.RecordRatingDelta(metrics.KindTournament, o.NewElo-p.Elo)
	return TournamentResult{Participant: updated, Outcome: o}, err
}

// ImportStore replaces the whole roster with a previously exported
// document. A document that is not an object of participants each carrying
// elo and history is rejected and the roster is left unchanged.
func (s *Service) ImportStore(ctx context.Context, req ImportRequest) (ImportResult, error) {
	fields, done := s.op("import")
	defer done()

	if req.Reader == nil {
		return ImportResult{}, fmt.Errorf("%w: no document to import", ErrInvalidRequest)
	}
	roster, err := model.DecodeRoster(req.Reader)
	if err != nil {
		metrics.RecordErrorByComponent("service", "import_decode")
		s.logger.Warn(ctx, "import rejected", with(fields, logger.Error(err))...)
		return ImportResult{}, err
	}

	err = s.store.ReplaceAll(ctx, roster)
	metrics.RecordImport()
	res := ImportResult{Count: roster.Len()}
	if err != nil {
		s.logger.Error(ctx, "import not persisted", with(fields, logger.Error(err))...)
		return res, err
	}
	s.logger.Info(ctx, "roster imported", with(fields, logger.Int("count", res.Count))...)
	return res, nil
}

// ExportStore writes the whole roster as a JSON document keyed by name.
func (s *Service) ExportStore(ctx context.Context, req ExportRequest) (ExportResult, error) {
	fields, done := s.op("export")
	defer done()

	if req.Writer == nil {
		return ExportResult{}, fmt.Errorf("%w: no export destination", ErrInvalidRequest)
	}
	roster := s.store.All(ctx)
	data, err := json.Marshal(roster)
	if err != nil {
		return ExportResult{}, fmt.Errorf("encode roster: %w", err)
	}
	if _, err := req.Writer.Write(data); err != nil {
		metrics.RecordErrorByComponent("service", "export_write")
		s.logger.Error(ctx, "export failed", with(fields, logger.Error(err))...)
		return ExportResult{}, fmt.Errorf("write export: %w", err)
	}

	metrics.RecordExport()
	res := ExportResult{Count: roster.Len(), FileName: s.exportFileName}
	s.logger.Info(ctx, "roster exported", with(fields,
		logger.Int("count", res.Count),
		logger.String("file", res.FileName),
	)...)
	return res, nil
}

// ClearStore removes every participant and the persisted records. It
// refuses to run unless the request is confirmed.
func (s *Service) ClearStore(ctx context.Context, req ClearRequest) error {
	fields, done := s.op("clear")
	defer done()

	if !req.Confirm {
		return ErrNotConfirmed
	}
	s.mark = nil
	err := s.store.Clear(ctx)
	metrics.RecordClear()
	if err != nil {
		s.logger.Error(ctx, "clear not persisted", with(fields, logger.Error(err))...)
		return err
	}
	s.logger.Info(ctx, "roster cleared", fields...)
	return nil
}

// ListParticipants returns participants in roster order, graduated ones
// only when requested.
func (s *Service) ListParticipants(ctx context.Context, req ListRequest) []model.Participant {
	fields, done := s.op("list")
	defer done()

	ps := s.store.ListVisible(ctx, req.ShowGraduated)
	metrics.UpdateVisibleParticipants(len(ps))
	s.logger.Debug(ctx, "participants listed", with(fields,
		logger.Int("visible", len(ps)),
		logger.Bool("show_graduated", req.ShowGraduated),
	)...)
	return ps
}

// Leaderboard ranks the visible participants by rating.
func (s *Service) Leaderboard(ctx context.Context, req LeaderboardRequest) []types.Entry {
	fields, done := s.op("leaderboard")
	defer done()

	ps := s.store.ListVisible(ctx, req.ShowGraduated)
	entries := s.renderer.Leaderboard(ps, req.Limit)
	s.logger.Debug(ctx, "leaderboard built", with(fields, logger.Int("entries", len(entries)))...)
	return entries
}

// Chart returns one series per participant plus the current date marker.
func (s *Service) Chart(ctx context.Context) types.Chart {
	fields, done := s.op("chart")
	defer done()

	var marks []types.Annotation
	if s.mark != nil {
		marks = append(marks, *s.mark)
	}
	chart := s.renderer.Chart(s.store.All(ctx), marks...)
	s.logger.Debug(ctx, "chart built", with(fields,
		logger.Int("series", len(chart.Series)),
		logger.Int("points", chart.Len()),
	)...)
	return chart
}

// MarkDate sets the chart's labelled date marker, replacing any previous
// one. The date is YYYY-MM-DD.
func (s *Service) MarkDate(ctx context.Context, req MarkRequest) (types.Annotation, error) {
	fields, done := s.op("mark")
	defer done()

	d, err := model.ParseDate(strings.TrimSpace(req.Date))
	if err != nil {
		return types.Annotation{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	mark := s.renderer.Mark(d, req.Label)
	s.mark = &mark
	s.logger.Debug(ctx, "date marked", with(fields,
		logger.String("date", d.String()),
		logger.String("label", req.Label),
	)...)
	return mark, nil
}

// Stats returns roster figures for monitoring.
func (s *Service) Stats(ctx context.Context) map[string]interface{} {
	_, done := s.op("stats")
	defer done()

	stats := map[string]interface{}{
		"participants": s.store.Count(ctx),
		"visible":      len(s.store.ListVisible(ctx, false)),
		"marked":       s.mark != nil,
	}
	if avg, err := s.store.Average(ctx); err == nil {
		stats["average_elo"] = avg
	}
	return stats
}
