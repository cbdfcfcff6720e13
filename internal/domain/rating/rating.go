// Package rating computes rating changes for practice rounds and tournament
// results. Every function is pure: callers look ratings up, call in, and
// write the returned ratings back.
package rating

import (
	"fmt"
	"math"
)

// Practice formula constants.
const (
	eloSpread          = 400
	participationBonus = 15
	practiceSwing      = 100
)

// Tournament formula constants.
const (
	noviceOffset   = 6.7
	noviceBase     = 30
	advancedOffset = 9
	advancedBase   = 50
	winRateScale   = -200
	levelPools     = 3
	tournamentK    = 30
)

// Level classifies a tournament entry by experience.
type Level string

// Experience levels in precedence order.
const (
	LevelNovice  Level = "novice"
	LevelJV      Level = "jv"
	LevelVarsity Level = "varsity"
)

// ClassifyLevel picks the level by precedence novice > jv > varsity.
func ClassifyLevel(novice, jv, varsity int) Level {
	switch {
	case novice > 0:
		return LevelNovice
	case jv > 0:
		return LevelJV
	default:
		return LevelVarsity
	}
}

// RoundHalfUp rounds to the nearest integer with halves going toward
// positive infinity, so -2.5 becomes -2.
func RoundHalfUp(x float64) float64 {
	f := math.Floor(x)
	if x-f >= 0.5 {
		f++
	}
	return f
}

// Expected returns the logistic expectation that a player rated ra beats
// one rated rb.
func Expected(ra, rb float64) float64 {
	return 1 / (1 + math.Pow(10, (rb-ra)/eloSpread))
}

// PracticeOutcome holds every term of a practice settlement.
type PracticeOutcome struct {
	Expected float64 // E, expectation for A
	BonusA   float64
	BonusB   float64
	CorrA    float64
	CorrB    float64
	NewA     float64
	NewB     float64
}

// SettlePractice applies a head-to-head result. result is 1 when A won and
// 0 when B won; fractional values are used as given. Ratings are not
// clamped and the update is not zero-sum.
func SettlePractice(ra, rb, result float64) (PracticeOutcome, error) {
	e := Expected(ra, rb)
	o := PracticeOutcome{
		Expected: e,
		BonusA:   participationBonus * e,
		BonusB:   participationBonus * (1 - e),
		CorrA:    -practiceSwing * (result - e),
		CorrB:    -practiceSwing * ((1 - result) - (1 - e)),
	}
	o.NewA = RoundHalfUp(ra + o.CorrA + o.BonusA)
	o.NewB = RoundHalfUp(rb + o.CorrB + o.BonusB)

	if !finite(o.NewA, o.NewB) {
		return PracticeOutcome{}, fmt.Errorf("%w: practice %v vs %v result %v", ErrDegenerateInput, ra, rb, result)
	}
	return o, nil
}

// TournamentInput describes one participant's tournament performance.
type TournamentInput struct {
	Elo     float64 // current rating, the base of the update
	Rounds  int
	Wins    int
	Novice  int
	JV      int
	Varsity int
	Teams   int     // total teams at the tournament
	Bonus   float64 // manual adjustment added to the change

	// StrengthElo, when set, replaces Elo in the field-strength ratio.
	StrengthElo *float64
}

// TournamentOutcome holds every term of a tournament settlement.
type TournamentOutcome struct {
	Level      Level
	PoolSize   float64 // n
	WinAdj     float64 // wadj
	Strength   float64 // p
	Expected   float64 // E
	Change     float64 // C
	AverageElo float64
	NewElo     float64
}

// WinAdjustment returns wadj for the level. The denominator is not guarded:
// wins far above rounds can zero or invert it.
func WinAdjustment(level Level, rounds, wins int) float64 {
	lost := float64(rounds - wins)
	if level == LevelNovice {
		return winRateScale/(lost+noviceOffset) + noviceBase
	}
	return winRateScale/(lost+advancedOffset) + advancedBase
}

// SettleTournament applies a tournament result against the roster average.
// averageElo is the mean rating over every rostered participant.
func SettleTournament(in TournamentInput, averageElo float64) (TournamentOutcome, error) {
	strengthElo := in.Elo
	if in.StrengthElo != nil {
		strengthElo = *in.StrengthElo
	}

	o := TournamentOutcome{
		Level:      ClassifyLevel(in.Novice, in.JV, in.Varsity),
		PoolSize:   float64(in.Novice+in.JV+in.Varsity) / levelPools,
		AverageElo: averageElo,
	}
	o.WinAdj = WinAdjustment(o.Level, in.Rounds, in.Wins)
	o.Strength = math.Pow(strengthElo/averageElo, 2)
	o.Expected = (o.WinAdj + o.PoolSize/2) / float64(in.Teams+1)
	o.Change = tournamentK*(o.WinAdj/o.Strength-o.Expected) + in.Bonus
	o.NewElo = RoundHalfUp(in.Elo + o.Change)

	if !finite(o.WinAdj, o.Strength, o.Expected, o.Change, o.NewElo) {
		return TournamentOutcome{}, fmt.Errorf("%w: tournament rounds=%d wins=%d teams=%d average=%v",
			ErrDegenerateInput, in.Rounds, in.Wins, in.Teams, averageElo)
	}
	return o, nil
}

// Average returns the mean of ratings. It fails on an empty slice.
func Average(ratings []float64) (float64, error) {
	if len(ratings) == 0 {
		return 0, fmt.Errorf("%w: average of no ratings", ErrDegenerateInput)
	}
	var sum float64
	for _, r := range ratings {
		sum += r
	}
	return sum / float64(len(ratings)), nil
}

func finite(xs ...float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}
