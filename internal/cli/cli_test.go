package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	service "github.com/okian/elotrack/internal/app"
	"github.com/okian/elotrack/internal/cli"
	"github.com/okian/elotrack/internal/config"
	"github.com/okian/elotrack/internal/domain/types"
	"github.com/okian/elotrack/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(logger.WithWriter(io.Discard)); err != nil {
		panic(err)
	}
}

type harness struct {
	cfg    *config.Config
	stdin  *bytes.Buffer
	stdout *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	cfg := config.New()
	cfg.Backend = "file"
	cfg.DataPath = filepath.Join(t.TempDir(), "ratings.json")
	cfg.ExportFile = filepath.Join(t.TempDir(), "debate-elo.json")
	return &harness{cfg: cfg, stdin: &bytes.Buffer{}, stdout: &bytes.Buffer{}}
}

func (h *harness) run(args ...string) (string, error) {
	h.stdout.Reset()
	err := cli.Run(context.Background(), h.cfg, args, cli.Env{
		Stdin:  h.stdin,
		Stdout: h.stdout,
		Stderr: io.Discard,
	})
	return h.stdout.String(), err
}

func TestCLI_RosterCommands(t *testing.T) {
	convey.Convey("Given an empty file-backed store", t, func() {
		h := newHarness(t)

		convey.Convey("When registering participants across runs", func() {
			out, err := h.run("register", "-name", "Alice", "-elo", "1500")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldEqual, "Alice - Elo: 1500\n")

			_, err = h.run("register", "-name", "Bob", "-elo", "1500")
			convey.So(err, convey.ShouldBeNil)
			_, err = h.run("register", "-name", "Gus", "-elo", "1700", "-graduated")
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then list should hide graduates by default", func() {
				out, err := h.run("list")
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldEqual, "Alice - Elo: 1500\nBob - Elo: 1500\n")
			})

			convey.Convey("And list -all should show them with a suffix", func() {
				out, _ := h.run("list", "-all")
				convey.So(out, convey.ShouldContainSubstring, "Gus - Elo: 1700 (Graduated)")
			})

			convey.Convey("And a practice round should update both sides", func() {
				out, err := h.run("practice", "-a", "Alice", "-b", "Bob", "-result", "1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldEqual, "Alice - Elo: 1458\nBob - Elo: 1558\n")

				lb, _ := h.run("leaderboard", "-limit", "1")
				convey.So(lb, convey.ShouldEqual, "1. Bob - Elo: 1558\n")
			})

			convey.Convey("And an unknown participant should fail without output", func() {
				out, err := h.run("practice", "-a", "Alice", "-b", "Nobody", "-result", "0")
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(out, convey.ShouldBeEmpty)
				convey.So(cli.ExitCode(err), convey.ShouldEqual, 1)
			})

			convey.Convey("And a tournament should print the new rating", func() {
				out, err := h.run("tournament", "-name", "Alice", "-rounds", "5", "-wins", "3", "-novice", "1", "-teams", "20", "-strength", "1566.6666666666667")
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldStartWith, "Alice - Elo: ")
			})
		})
	})
}

func TestCLI_DocumentCommands(t *testing.T) {
	convey.Convey("Given a store with two participants", t, func() {
		h := newHarness(t)
		_, _ = h.run("register", "-name", "Zed", "-elo", "1500")
		_, _ = h.run("register", "-name", "Amy", "-elo", "1600")

		convey.Convey("When exporting to stdout", func() {
			out, err := h.run("export", "-out", "-")

			convey.Convey("Then the roster document should be printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldStartWith, `{"Zed":{"elo":1500,"graduated":false,"history":[`)
			})

			convey.Convey("And importing it after a clear should restore the roster", func() {
				_, err := h.run("clear", "-yes")
				convey.So(err, convey.ShouldBeNil)
				empty, _ := h.run("list", "-all")
				convey.So(empty, convey.ShouldBeEmpty)

				h.stdin.WriteString(out)
				msg, err := h.run("import", "-in", "-")
				convey.So(err, convey.ShouldBeNil)
				convey.So(msg, convey.ShouldEqual, "imported 2 participants\n")

				list, _ := h.run("list", "-all")
				convey.So(list, convey.ShouldEqual, "Zed - Elo: 1500\nAmy - Elo: 1600\n")
			})
		})

		convey.Convey("When exporting to the configured file", func() {
			out, err := h.run("export")

			convey.Convey("Then the file should hold the document", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "exported 2 participants")
				data, readErr := os.ReadFile(h.cfg.ExportFile)
				convey.So(readErr, convey.ShouldBeNil)
				convey.So(json.Valid(data), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When clearing without confirmation", func() {
			_, err := h.run("clear")

			convey.Convey("Then it should refuse", func() {
				convey.So(errors.Is(err, service.ErrNotConfirmed), convey.ShouldBeTrue)
				list, _ := h.run("list")
				convey.So(strings.Count(list, "\n"), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When printing a chart with a marked date", func() {
			out, err := h.run("chart", "-mark-date", "2024-05-01", "-mark-label", "States")

			convey.Convey("Then the JSON should carry series and the marker", func() {
				convey.So(err, convey.ShouldBeNil)
				var chart types.Chart
				convey.So(json.Unmarshal([]byte(out), &chart), convey.ShouldBeNil)
				convey.So(len(chart.Series), convey.ShouldEqual, 2)
				convey.So(len(chart.Annotations), convey.ShouldEqual, 1)
				convey.So(chart.Annotations[0].Label, convey.ShouldEqual, "States")
			})
		})

		convey.Convey("When printing stats", func() {
			out, err := h.run("stats")

			convey.Convey("Then the counts and average should be reported", func() {
				convey.So(err, convey.ShouldBeNil)
				var stats map[string]interface{}
				convey.So(json.Unmarshal([]byte(out), &stats), convey.ShouldBeNil)
				convey.So(stats["participants"], convey.ShouldEqual, float64(2))
				convey.So(stats["average_elo"], convey.ShouldEqual, float64(1550))
				convey.So(stats["marked"], convey.ShouldEqual, false)
			})
		})
	})
}

func TestCLI_Usage(t *testing.T) {
	convey.Convey("Given the command line", t, func() {
		h := newHarness(t)

		convey.Convey("When no command is given", func() {
			out, err := h.run()

			convey.Convey("Then help should be printed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldContainSubstring, "Usage:")
			})
		})

		convey.Convey("When the command is unknown", func() {
			_, err := h.run("rate")

			convey.Convey("Then it should be a usage error", func() {
				convey.So(errors.Is(err, cli.ErrUsage), convey.ShouldBeTrue)
				convey.So(cli.ExitCode(err), convey.ShouldEqual, 2)
			})
		})

		convey.Convey("When a required flag is missing", func() {
			_, err := h.run("register", "-name", "Alice")

			convey.Convey("Then it should be a usage error", func() {
				convey.So(errors.Is(err, cli.ErrUsage), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "-elo is required")
			})
		})

		convey.Convey("When a number does not parse", func() {
			_, err := h.run("register", "-name", "Alice", "-elo", "fifteen")
			convey.So(errors.Is(err, cli.ErrUsage), convey.ShouldBeTrue)
		})

		convey.Convey("When a stray argument is given", func() {
			_, err := h.run("list", "extra")
			convey.So(errors.Is(err, cli.ErrUsage), convey.ShouldBeTrue)
		})

		convey.Convey("When the metrics flag is set", func() {
			out, err := h.run("-metrics", "register", "-name", "Alice", "-elo", "1500")

			convey.Convey("Then the exposition should follow the command output", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldStartWith, "Alice - Elo: 1500\n")
				convey.So(out, convey.ShouldContainSubstring, "elotrack_ratings_registrations_total")
			})
		})

		convey.Convey("When the memory backend is selected", func() {
			out, err := h.run("-backend", "memory", "list")
			convey.So(err, convey.ShouldBeNil)
			convey.So(out, convey.ShouldBeEmpty)
		})
	})
}

func TestCLI_ConfiguredRendering(t *testing.T) {
	convey.Convey("Given a config with Swedish collation and a green marker", t, func() {
		h := newHarness(t)
		h.cfg.Language = "sv"
		h.cfg.MarkerColor = "green"
		_, _ = h.run("register", "-name", "Åsa", "-elo", "1500")
		_, _ = h.run("register", "-name", "Zed", "-elo", "1500")

		convey.Convey("When printing the leaderboard", func() {
			out, err := h.run("leaderboard")

			convey.Convey("Then ties should follow Swedish order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldEqual, "1. Zed - Elo: 1500\n1. Åsa - Elo: 1500\n")
			})
		})

		convey.Convey("When marking a date on the chart", func() {
			out, err := h.run("chart", "-mark-date", "2024-05-01")

			convey.Convey("Then the marker should use the configured color", func() {
				convey.So(err, convey.ShouldBeNil)
				var chart types.Chart
				convey.So(json.Unmarshal([]byte(out), &chart), convey.ShouldBeNil)
				convey.So(chart.Annotations[0].Color, convey.ShouldEqual, "green")
			})
		})
	})
}

func TestCLI_ConfiguredStorage(t *testing.T) {
	convey.Convey("Given a bolt store shared by two buckets", t, func() {
		h := newHarness(t)
		h.cfg.Backend = "bolt"
		h.cfg.DataPath = filepath.Join(t.TempDir(), "ratings.db")
		h.cfg.Bucket = "varsity"
		_, err := h.run("register", "-name", "Alice", "-elo", "1500")
		convey.So(err, convey.ShouldBeNil)

		convey.Convey("When listing from another bucket", func() {
			h.cfg.Bucket = "novice"
			out, err := h.run("list")

			convey.Convey("Then its roster should be empty", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When listing from the same bucket", func() {
			out, err := h.run("list")

			convey.Convey("Then the participant should be there", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(out, convey.ShouldEqual, "Alice - Elo: 1500\n")
			})
		})
	})
}
