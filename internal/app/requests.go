package service

import (
	"io"

	"github.com/okian/elotrack/internal/domain/model"
	"github.com/okian/elotrack/internal/domain/rating"
)

// RegisterRequest adds or overwrites a participant.
type RegisterRequest struct {
	Name      string
	Elo       float64
	Graduated bool
}

// PracticeRequest settles one practice round between A and B. Result is
// A's score: 1 for a win, 0 for a loss, fractions allowed.
type PracticeRequest struct {
	A      string
	B      string
	Result float64
}

// PracticeResult carries both updated participants and the computation.
type PracticeResult struct {
	A       model.Participant
	B       model.Participant
	Outcome rating.PracticeOutcome
}

// TournamentRequest settles one tournament for a single participant.
// StrengthElo, when set, replaces the participant's rating in the strength
// ratio.
type TournamentRequest struct {
	Name        string
	StrengthElo *float64
	Rounds      int
	Wins        int
	Novice      int
	JV          int
	Varsity     int
	Teams       int
	Bonus       float64
}

// TournamentResult carries the updated participant and the computation.
type TournamentResult struct {
	Participant model.Participant
	Outcome     rating.TournamentOutcome
}

// ImportRequest replaces the roster with the document read from Reader.
type ImportRequest struct {
	Reader io.Reader
}

// ImportResult reports how many participants were loaded.
type ImportResult struct {
	Count int
}

// ExportRequest writes the roster document to Writer.
type ExportRequest struct {
	Writer io.Writer
}

// ExportResult reports what was written and the suggested file name.
type ExportResult struct {
	Count    int
	FileName string
}

// ClearRequest wipes the roster. Confirm must be set.
type ClearRequest struct {
	Confirm bool
}

// ListRequest lists participants in roster order.
type ListRequest struct {
	ShowGraduated bool
}

// LeaderboardRequest ranks participants. Limit <= 0 means all.
type LeaderboardRequest struct {
	ShowGraduated bool
	Limit         int
}

// MarkRequest places a labelled marker on the chart's date axis.
type MarkRequest struct {
	Date  string
	Label string
}
