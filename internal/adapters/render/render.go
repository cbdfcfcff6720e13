// Package render turns roster state into display lines, chart data and
// leaderboards.
package render

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/okian/elotrack/internal/domain/model"
	"github.com/okian/elotrack/internal/domain/types"
)

// DefaultMarkerColor is the color of date annotations.
const DefaultMarkerColor = "red"

// Renderer builds read shapes from participants. It holds no roster state.
type Renderer struct {
	lang        language.Tag
	markerColor string
}

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithLanguage sets the collation used to order leaderboard ties.
func WithLanguage(tag language.Tag) Option {
	return func(r *Renderer) {
		r.lang = tag
	}
}

// WithMarkerColor sets the color of date annotations.
func WithMarkerColor(color string) Option {
	return func(r *Renderer) {
		if color != "" {
			r.markerColor = color
		}
	}
}

// New creates a Renderer.
func New(opts ...Option) *Renderer {
	r := &Renderer{lang: language.English, markerColor: DefaultMarkerColor}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FormatElo prints a rating the shortest way that round-trips, so whole
// ratings carry no decimals.
func FormatElo(elo float64) string {
	return strconv.FormatFloat(elo, 'f', -1, 64)
}

// DisplayLine formats one participant as "<name> - Elo: <elo>", suffixed
// with " (Graduated)" when graduated.
func DisplayLine(p model.Participant) string {
	var b strings.Builder
	b.WriteString(p.Name)
	b.WriteString(" - Elo: ")
	b.WriteString(FormatElo(p.Elo))
	if p.Graduated {
		b.WriteString(" (Graduated)")
	}
	return b.String()
}

// DisplayLines formats participants in the order given.
func DisplayLines(ps []model.Participant) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, DisplayLine(p))
	}
	return out
}

// SeriesColor derives a stable hex color from a participant name.
func SeriesColor(name string) string {
	return fmt.Sprintf("#%06x", xxhash.Sum64String(name)&0xffffff)
}

// Chart builds one series per participant, graduated included, in roster
// order, with one point per history entry.
func (r *Renderer) Chart(roster *model.Roster, marks ...types.Annotation) types.Chart {
	ps := roster.Participants()
	chart := types.Chart{Series: make([]types.Series, 0, len(ps))}
	for _, p := range ps {
		s := types.Series{
			Label:  p.Name,
			Color:  SeriesColor(p.Name),
			Points: make([]types.Point, 0, len(p.History)),
		}
		for _, h := range p.History {
			s.Points = append(s.Points, types.Point{Date: h.Date, Elo: h.Elo})
		}
		chart.Series = append(chart.Series, s)
	}
	if len(marks) > 0 {
		chart.Annotations = append([]types.Annotation(nil), marks...)
	}
	return chart
}

// Mark builds a date annotation.
func (r *Renderer) Mark(date model.Date, label string) types.Annotation {
	return types.Annotation{Date: date, Label: label, Color: r.markerColor}
}

// Leaderboard ranks participants by rating, highest first. Equal ratings
// share a rank and are ordered by collated name. limit <= 0 means no limit.
func (r *Renderer) Leaderboard(ps []model.Participant, limit int) []types.Entry {
	sorted := append([]model.Participant(nil), ps...)
	col := collate.New(r.lang, collate.IgnoreCase)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Elo != sorted[j].Elo {
			return sorted[i].Elo > sorted[j].Elo
		}
		return col.CompareString(sorted[i].Name, sorted[j].Name) < 0
	})

	if limit > 0 && limit < len(sorted) {
		sorted = sorted[:limit]
	}

	out := make([]types.Entry, 0, len(sorted))
	for i, p := range sorted {
		rank := i + 1
		if i > 0 && p.Elo == sorted[i-1].Elo {
			rank = out[i-1].Rank
		}
		out = append(out, types.Entry{Rank: rank, Name: p.Name, Elo: p.Elo, Graduated: p.Graduated})
	}
	return out
}
