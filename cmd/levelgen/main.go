// Command levelgen works with generator presets offline. It prints levels
// as text, checks preset files and measures how often a preset needs its
// retry budget.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"

	"github.com/wricardo/crate-pusher/game/config"
	"github.com/wricardo/crate-pusher/game/engine"
)

func main() {
	if err := newApp(os.Stdout).Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp(w io.Writer) *cli.Command {
	return &cli.Command{
		Name:   "levelgen",
		Usage:  "generate and inspect crate pusher levels",
		Writer: w,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config-dir",
				Value:   "configs",
				Usage:   "directory containing generator presets",
				Sources: cli.EnvVars("CONFIG_DIR"),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "enable debug logging",
			},
		},
		Before: func(ctx context.Context, cmd *cli.Command) (context.Context, error) {
			if cmd.Bool("debug") {
				log.SetLevel(log.DebugLevel)
			}
			return ctx, nil
		},
		Commands: []*cli.Command{
			generateCommand(),
			validateCommand(),
			statsCommand(),
		},
	}
}

func presetFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "preset", Aliases: []string{"p"}, Usage: "preset name (default preset when empty)"},
		&cli.Int64Flag{Name: "seed", Usage: "random seed; 0 keeps the preset's seed"},
		&cli.IntFlag{Name: "width", Usage: "override grid width"},
		&cli.IntFlag{Name: "height", Usage: "override grid height"},
	}
}

// loadOptions resolves the preset named by the command's flags and applies
// its overrides. The returned options are a private copy.
func loadOptions(cmd *cli.Command) (engine.Options, error) {
	manager, err := config.NewManager(cmd.Root().String("config-dir"))
	if err != nil {
		return engine.Options{}, err
	}

	var base *engine.Options
	if name := cmd.String("preset"); name != "" {
		if base, err = manager.LoadConfig(name); err != nil {
			return engine.Options{}, err
		}
	} else {
		base = manager.GetDefault()
	}

	opts := *base
	opts.Tags = append([]string(nil), base.Tags...)
	if seed := cmd.Int64("seed"); seed != 0 {
		opts.Seed = seed
	}
	if width := cmd.Int("width"); width > 0 {
		opts.GridWidth = width
		opts.Start = nil
	}
	if height := cmd.Int("height"); height > 0 {
		opts.GridHeight = height
		opts.Start = nil
	}
	if err := engine.ValidateOptions(&opts); err != nil {
		return engine.Options{}, err
	}
	return opts, nil
}

func generateCommand() *cli.Command {
	return &cli.Command{
		Name:  "generate",
		Usage: "print freshly generated levels",
		Flags: append(presetFlags(),
			&cli.IntFlag{Name: "count", Aliases: []string{"n"}, Value: 1, Usage: "number of levels"},
			&cli.BoolFlag{Name: "json", Usage: "emit levels as JSON"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := loadOptions(cmd)
			if err != nil {
				return err
			}
			gen, err := engine.NewGenerator(opts)
			if err != nil {
				return err
			}

			w := cmd.Root().Writer
			start := opts.StartPosition()
			for i := 0; i < cmd.Int("count"); i++ {
				level, err := gen.Generate(start)
				if err != nil {
					return fmt.Errorf("level %d: %w", i+1, err)
				}
				if cmd.Bool("json") {
					data, err := json.Marshal(level)
					if err != nil {
						return err
					}
					fmt.Fprintln(w, string(data))
					continue
				}
				printLevel(w, i+1, level, start)
			}
			return nil
		},
	}
}

// printLevel writes a level as text followed by its quotas and stats
func printLevel(w io.Writer, n int, level *engine.Level, start engine.Position) {
	fmt.Fprintf(w, "Level %d (%dx%d, %d targets)\n", n, level.Width, level.Height, level.TargetsLeft)
	for _, row := range levelRows(level, start) {
		fmt.Fprintln(w, row)
	}
	quotas := make([]string, 0, len(level.Quotas))
	for _, tag := range level.SortedTags() {
		quotas = append(quotas, fmt.Sprintf("%s=%d", tag, level.Quotas[tag]))
	}
	fmt.Fprintf(w, "quotas: %s\n", strings.Join(quotas, " "))
	fmt.Fprintf(w, "attempts: %d crate passes: %d target passes: %d relaxations: %d\n\n",
		level.Stats.Attempts, level.Stats.CratePasses, level.Stats.TargetPasses, level.Stats.Relaxations)
}

func levelRows(level *engine.Level, start engine.Position) []string {
	gs := &engine.GameState{
		Width:       level.Width,
		Height:      level.Height,
		Floor:       level.Floor,
		Special:     level.Special,
		Player:      engine.Player{Position: start, Facing: engine.South},
		TargetsLeft: level.TargetsLeft,
	}
	return gs.Rows()
}

func validateCommand() *cli.Command {
	return &cli.Command{
		Name:      "validate",
		Usage:     "check preset files and generate one level from each",
		ArgsUsage: "[FILE...]",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			files := cmd.Args().Slice()
			if len(files) == 0 {
				var err error
				if files, err = presetFiles(cmd.Root().String("config-dir")); err != nil {
					return err
				}
			}
			if len(files) == 0 {
				return errors.New("no preset files found")
			}

			w := cmd.Root().Writer
			failed := 0
			for _, file := range files {
				if err := validateFile(file); err != nil {
					failed++
					fmt.Fprintf(w, "FAIL %s: %v\n", filepath.Base(file), err)
					continue
				}
				fmt.Fprintf(w, "ok   %s\n", filepath.Base(file))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d presets failed", failed, len(files))
			}
			return nil
		},
	}
}

func validateFile(path string) error {
	opts, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	gen, err := engine.NewGenerator(*opts)
	if err != nil {
		return err
	}
	level, err := gen.Generate(opts.StartPosition())
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"preset":   opts.Name,
		"targets":  level.TargetsLeft,
		"attempts": level.Stats.Attempts,
	}).Debug("preset generated a level")
	return nil
}

// presetFiles lists the JSON and YAML files in dir
func presetFiles(dir string) ([]string, error) {
	var files []string
	for _, pattern := range []string{"*.json", "*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		files = append(files, matches...)
	}
	sort.Strings(files)
	return files, nil
}

// levelStats aggregates generation work over many levels
type levelStats struct {
	Levels       int            `json:"levels"`
	Failures     int            `json:"failures"`
	Retried      int            `json:"retried"`
	Relaxed      int            `json:"relaxed"`
	Attempts     int            `json:"attempts"`
	CratePasses  int            `json:"crate_passes"`
	TargetPasses int            `json:"target_passes"`
	Crates       map[string]int `json:"crates"`
}

func (s *levelStats) add(level *engine.Level) {
	if level.Stats.Attempts > 1 {
		s.Retried++
	}
	if level.Stats.Relaxations > 0 {
		s.Relaxed++
	}
	s.Attempts += level.Stats.Attempts
	s.CratePasses += level.Stats.CratePasses
	s.TargetPasses += level.Stats.TargetPasses
	for tag, n := range level.Quotas {
		s.Crates[tag] += n
	}
}

func (s *levelStats) print(w io.Writer, name string) {
	ok := s.Levels - s.Failures
	fmt.Fprintf(w, "preset: %s\n", name)
	fmt.Fprintf(w, "levels: %d generated: %d failed: %d (%.1f%%)\n", s.Levels, ok, s.Failures, percent(s.Failures, s.Levels))
	fmt.Fprintf(w, "needed retries: %d needed relaxation: %d\n", s.Retried, s.Relaxed)
	if ok == 0 {
		return
	}
	fmt.Fprintf(w, "mean attempts: %.2f crate passes: %.2f target passes: %.2f\n",
		float64(s.Attempts)/float64(ok), float64(s.CratePasses)/float64(ok), float64(s.TargetPasses)/float64(ok))

	tags := make([]string, 0, len(s.Crates))
	for tag := range s.Crates {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	for _, tag := range tags {
		fmt.Fprintf(w, "  %-8s %.2f crates/level\n", tag, float64(s.Crates[tag])/float64(ok))
	}
}

func percent(n, of int) float64 {
	if of == 0 {
		return 0
	}
	return 100 * float64(n) / float64(of)
}

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "generate many levels and report retry and relaxation usage",
		Flags: append(presetFlags(),
			&cli.IntFlag{Name: "levels", Aliases: []string{"k"}, Value: 100, Usage: "number of levels to generate"},
			&cli.BoolFlag{Name: "json", Usage: "emit the report as JSON"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			opts, err := loadOptions(cmd)
			if err != nil {
				return err
			}
			gen, err := engine.NewGenerator(opts)
			if err != nil {
				return err
			}

			stats := &levelStats{Crates: make(map[string]int)}
			start := opts.StartPosition()
			for i := 0; i < cmd.Int("levels"); i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				stats.Levels++
				level, err := gen.Generate(start)
				if err != nil {
					if !errors.Is(err, engine.ErrGenerationFailed) {
						return err
					}
					stats.Failures++
					log.WithError(err).Debugf("level %d failed", i+1)
					continue
				}
				stats.add(level)
			}

			w := cmd.Root().Writer
			if cmd.Bool("json") {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}
			stats.print(w, opts.Name)
			return nil
		},
	}
}
