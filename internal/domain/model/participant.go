// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used in history entries.
const DateLayout = "2006-01-02"

// Date is a calendar date without time of day, always in UTC.
type Date struct {
	t time.Time
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) Date {
	y, m, d := t.UTC().Date()
	return Date{t: time.Date(y, m, d, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return Date{t: t}, nil
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string { return d.t.Format(DateLayout) }

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time { return d.t }

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool { return d.t.IsZero() }

// Before reports whether d is strictly earlier than o.
func (d Date) Before(o Date) bool { return d.t.Before(o.t) }

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: date must be a string", ErrMalformedDocument)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	*d = parsed
	return nil
}

// HistoryEntry is one rating snapshot.
type HistoryEntry struct {
	Date Date    `json:"date"`
	Elo  float64 `json:"elo"`
}

// Participant is a rostered debater (or team) with a rating history.
// History is append-only and never empty for a stored participant.
type Participant struct {
	Name      string         `json:"-"`
	Elo       float64        `json:"elo"`
	Graduated bool           `json:"graduated"`
	History   []HistoryEntry `json:"history"`
}

// NewParticipant seeds a participant with a single history entry.
func NewParticipant(name string, elo float64, graduated bool, today Date) Participant {
	return Participant{
		Name:      name,
		Elo:       elo,
		Graduated: graduated,
		History:   []HistoryEntry{{Date: today, Elo: elo}},
	}
}

// Clone returns a deep copy so callers cannot alias stored history.
func (p Participant) Clone() Participant {
	c := p
	c.History = append([]HistoryEntry(nil), p.History...)
	return c
}

// Snapshot appends the current rating to the history.
func (p *Participant) Snapshot(on Date) {
	p.History = append(p.History, HistoryEntry{Date: on, Elo: p.Elo})
}

// record is the persisted shape of a participant. Pointers detect missing
// fields in imported documents.
type record struct {
	Elo       *float64        `json:"elo"`
	Graduated bool            `json:"graduated"`
	History   *[]HistoryEntry `json:"history"`
}

func (r record) participant(name string) (Participant, error) {
	if r.Elo == nil {
		return Participant{}, fmt.Errorf("%w: %q has no elo", ErrMalformedDocument, name)
	}
	if r.History == nil {
		return Participant{}, fmt.Errorf("%w: %q has no history", ErrMalformedDocument, name)
	}
	return Participant{
		Name:      name,
		Elo:       *r.Elo,
		Graduated: r.Graduated,
		History:   *r.History,
	}, nil
}
