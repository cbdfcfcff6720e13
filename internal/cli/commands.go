package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/okian/elotrack/internal/adapters/render"
	"github.com/okian/elotrack/internal/adapters/repository"
	service "github.com/okian/elotrack/internal/app"
	"github.com/okian/elotrack/internal/config"
)

// File permission constants.
const (
	exportFilePermission = 0o644
)

type runner struct {
	cfg *config.Config
	svc *service.Service
	env Env
}

type command func(ctx context.Context, r *runner, args []string) error

var commands = map[string]command{ //nolint:gochecknoglobals // static dispatch table
	"register":    runRegister,
	"practice":    runPractice,
	"tournament":  runTournament,
	"list":        runList,
	"leaderboard": runLeaderboard,
	"chart":       runChart,
	"export":      runExport,
	"import":      runImport,
	"clear":       runClear,
	"stats":       runStats,
}

// parse parses a subcommand's flags strictly: unknown flags, positional
// arguments and missing required flags are usage errors.
func (r *runner) parse(fs *flag.FlagSet, args []string, required ...string) error {
	fs.SetOutput(r.env.Stderr)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrUsage, fs.Name(), err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: %s: unexpected argument %q", ErrUsage, fs.Name(), fs.Arg(0))
	}
	set := visited(fs)
	for _, name := range required {
		if !set[name] {
			return fmt.Errorf("%w: %s: -%s is required", ErrUsage, fs.Name(), name)
		}
	}
	return nil
}

// rejected reports whether err stopped the command before any change. A
// persistence failure still leaves the change in effect for this run.
func rejected(err error) bool {
	return err != nil && !errors.Is(err, repository.ErrPersist)
}

func visited(fs *flag.FlagSet) map[string]bool {
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return set
}

func (r *runner) println(lines ...string) {
	for _, l := range lines {
		_, _ = fmt.Fprintln(r.env.Stdout, l)
	}
}

func runRegister(ctx context.Context, r *runner, args []string) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "Participant name")
	elo := fs.Float64("elo", 0, "Initial rating")
	graduated := fs.Bool("graduated", false, "Mark as graduated")
	if err := r.parse(fs, args, "name", "elo"); err != nil {
		return err
	}

	p, err := r.svc.RegisterParticipant(ctx, service.RegisterRequest{Name: *name, Elo: *elo, Graduated: *graduated})
	if rejected(err) {
		return err
	}
	r.println(render.DisplayLine(p))
	return err
}

func runPractice(ctx context.Context, r *runner, args []string) error {
	fs := flag.NewFlagSet("practice", flag.ContinueOnError)
	a := fs.String("a", "", "Team A")
	b := fs.String("b", "", "Team B")
	result := fs.Float64("result", 0, "Score for A: 1 win, 0 loss")
	if err := r.parse(fs, args, "a", "b", "result"); err != nil {
		return err
	}

	res, err := r.svc.SettlePractice(ctx, service.PracticeRequest{A: *a, B: *b, Result: *result})
	if rejected(err) {
		return err
	}
	r.println(render.DisplayLine(res.A), render.DisplayLine(res.B))
	return err
}

func runTournament(ctx context.Context, r *runner, args []string) error {
	fs := flag.NewFlagSet("tournament", flag.ContinueOnError)
	name := fs.String("name", "", "Participant name")
	rounds := fs.Int("rounds", 0, "Rounds debated")
	wins := fs.Int("wins", 0, "Rounds won")
	novice := fs.Int("novice", 0, "Novice entries")
	jv := fs.Int("jv", 0, "JV entries")
	varsity := fs.Int("varsity", 0, "Varsity entries")
	teams := fs.Int("teams", 0, "Total teams")
	bonus := fs.Float64("bonus", 0, "Manual adjustment")
	strength := fs.Float64("strength", 0, "Rating used for the field-strength ratio")
	if err := r.parse(fs, args, "name", "rounds", "wins", "teams"); err != nil {
		return err
	}

	req := service.TournamentRequest{
		Name:    *name,
		Rounds:  *rounds,
		Wins:    *wins,
		Novice:  *novice,
		JV:      *jv,
		Varsity: *varsity,
		Teams:   *teams,
		Bonus:   *bonus,
	}
	if visited(fs)["strength"] {
		req.StrengthElo = strength
	}

	res, err := r.svc.SettleTournament(ctx, req)
	if rejected(err) {
		return err
	}
	r.println(render.DisplayLine(res.Participant))
	return err
}

func runList(ctx context.Context, r *runner, args []string) error {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	all := fs.Bool("all", r.cfg.ShowGraduated, "Include graduated participants")
	if err := r.parse(fs, args); err != nil {
		return err
	}

	ps := r.svc.ListParticipants(ctx, service.ListRequest{ShowGraduated: *all})
	r.println(render.DisplayLines(ps)...)
	return nil
}

func runLeaderboard(ctx context.Context, r *runner, args []string) error {
	fs := flag.NewFlagSet("leaderboard", flag.ContinueOnError)
	all := fs.Bool("all", r.cfg.ShowGraduated, "Include graduated participants")
	limit := fs.Int("limit", 0, "Maximum entries (0 for all)")
	if err := r.parse(fs, args); err != nil {
		return err
	}

	for _, e := range r.svc.Leaderboard(ctx, service.LeaderboardRequest{ShowGraduated: *all, Limit: *limit}) {
		line := fmt.Sprintf("%d. %s - Elo: %s", e.Rank, e.Name, render.FormatElo(e.Elo))
		if e.Graduated {
			line += " (Graduated)"
		}
		r.println(line)
	}
	return nil
}

func runChart(ctx context.Context, r *runner, args []string) error {
	fs := flag.NewFlagSet("chart", flag.ContinueOnError)
	markDate := fs.String("mark-date", "", "Date to mark (YYYY-MM-DD)")
	markLabel := fs.String("mark-label", "", "Label for the marked date")
	if err := r.parse(fs, args); err != nil {
		return err
	}

	if *markDate != "" {
		if _, err := r.svc.MarkDate(ctx, service.MarkRequest{Date: *markDate, Label: *markLabel}); err != nil {
			return err
		}
	}

	enc := json.NewEncoder(r.env.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(r.svc.Chart(ctx))
}

func runStats(ctx context.Context, r *runner, args []string) error {
	fs := flag.NewFlagSet("stats", flag.ContinueOnError)
	if err := r.parse(fs, args); err != nil {
		return err
	}

	enc := json.NewEncoder(r.env.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(r.svc.Stats(ctx))
}

func runExport(ctx context.Context, r *runner, args []string) (err error) {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	out := fs.String("out", r.cfg.ExportFile, `Destination file ("-" for stdout)`)
	if err := r.parse(fs, args); err != nil {
		return err
	}

	var w io.Writer = r.env.Stdout
	if *out != "-" {
		f, err := os.OpenFile(*out, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, exportFilePermission)
		if err != nil {
			return fmt.Errorf("create export file: %w", err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("close export file: %w", cerr)
			}
		}()
		w = f
	}

	res, err := r.svc.ExportStore(ctx, service.ExportRequest{Writer: w})
	if err != nil {
		return err
	}
	if *out != "-" {
		r.println(fmt.Sprintf("exported %d participants to %s", res.Count, *out))
	}
	return nil
}

func runImport(ctx context.Context, r *runner, args []string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	in := fs.String("in", "", `Source file ("-" for stdin)`)
	if err := r.parse(fs, args, "in"); err != nil {
		return err
	}

	var rd io.Reader = r.env.Stdin
	if *in != "-" {
		f, err := os.Open(*in)
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer func() { _ = f.Close() }()
		rd = f
	}

	res, err := r.svc.ImportStore(ctx, service.ImportRequest{Reader: rd})
	if rejected(err) {
		return err
	}
	r.println(fmt.Sprintf("imported %d participants", res.Count))
	return err
}

func runClear(ctx context.Context, r *runner, args []string) error {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	yes := fs.Bool("yes", false, "Confirm removing every participant")
	if err := r.parse(fs, args); err != nil {
		return err
	}

	err := r.svc.ClearStore(ctx, service.ClearRequest{Confirm: *yes})
	if errors.Is(err, service.ErrNotConfirmed) {
		return fmt.Errorf("%w: pass -yes to remove every participant", err)
	}
	if err != nil {
		return err
	}
	r.println("all data cleared")
	return nil
}

// ExitCode maps an error to a process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, ErrUsage):
		return 2
	default:
		return 1
	}
}
