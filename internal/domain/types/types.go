// Package types contains read shapes shared by the renderer and the CLI
package types

import "github.com/okian/elotrack/internal/domain/model"

// Entry represents a leaderboard entry
type Entry struct {
	Rank      int     `json:"rank"`
	Name      string  `json:"name"`
	Elo       float64 `json:"elo"`
	Graduated bool    `json:"graduated"`
}

// Point is one history entry plotted on a time axis.
type Point struct {
	Date model.Date `json:"x"`
	Elo  float64    `json:"y"`
}

// Series is the rating line of one participant.
type Series struct {
	Label  string  `json:"label"`
	Color  string  `json:"borderColor"`
	Points []Point `json:"data"`
}

// Annotation is a vertical marker on the date axis.
type Annotation struct {
	Date  model.Date `json:"value"`
	Label string     `json:"label"`
	Color string     `json:"borderColor"`
}

// Chart is everything a line-chart renderer needs.
type Chart struct {
	Series      []Series     `json:"datasets"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// Len returns the number of plotted points across all series.
func (c Chart) Len() int {
	n := 0
	for _, s := range c.Series {
		n += len(s.Points)
	}
	return n
}
