// Package config holds the server settings and the experiment constants.
// Every flag can also be set from a SHAPES_* environment variable.
package config

import (
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"

	"github.com/DoyleJ11/shapes-interaction/internal/pairing"
	"github.com/DoyleJ11/shapes-interaction/internal/trials"
)

const EnvPrefix = "SHAPES"

type Config struct {
	Bind    string
	Port    int
	Verbose bool

	Shapes        []string
	Colours       []string
	Objects       []string
	Emotions      []string
	Foils         int
	ShapesPerPair int
	FixedColours  int
	Repeats       int
	BreakTrials   []int

	Timeout        time.Duration
	SweepInterval  time.Duration
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	OriginPatterns []string

	DatabaseURL  string
	SQLitePath   string
	ResultsQueue int
}

// Flags declares every setting on fs, with defaults, writing into c.
func (c *Config) Flags(fs *pflag.FlagSet) {
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&c.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: SHAPES_BIND)")
	fs.IntVarP(&c.Port, "port", "p", 8080, "port to listen on (env: SHAPES_PORT)")
	fs.BoolVarP(&c.Verbose, "verbose", "v", false, "development logging (env: SHAPES_VERBOSE)")

	fs.StringSliceVar(&c.Shapes, "shapes", []string{"square", "circle", "diamond", "star", "cross", "pentagon", "hexagon"}, "shape palette (env: SHAPES_SHAPES)")
	fs.StringSliceVar(&c.Colours, "colours", []string{"red", "yellow", "grey", "pink"}, "colour palette (env: SHAPES_COLOURS)")
	fs.StringSliceVar(&c.Objects, "objects", []string{"volcano", "banana", "city", "pig"}, "object items (env: SHAPES_OBJECTS)")
	fs.StringSliceVar(&c.Emotions, "emotions", []string{"angry", "happy", "sad", "inlove"}, "emotion items (env: SHAPES_EMOTIONS)")
	fs.IntVar(&c.Foils, "foils", 2, "distractors per trial (env: SHAPES_FOILS)")
	fs.IntVar(&c.ShapesPerPair, "shapes-per-pair", 4, "shapes drawn for each pair (env: SHAPES_SHAPES_PER_PAIR)")
	fs.IntVar(&c.FixedColours, "fixed-colours", 4, "shapes bound to one colour in the fixed condition (env: SHAPES_FIXED_COLOURS)")
	fs.IntVar(&c.Repeats, "repeats", 4, "subblocks per block (env: SHAPES_REPEATS)")
	fs.IntSliceVar(&c.BreakTrials, "break-trials", []int{72, 136}, "1-based trials after which a break is offered (env: SHAPES_BREAK_TRIALS)")

	fs.DurationVar(&c.Timeout, "liveness-timeout", 1600*time.Second, "silence before a client counts as gone (env: SHAPES_LIVENESS_TIMEOUT)")
	fs.DurationVar(&c.SweepInterval, "liveness-sweep", 0, "interval of the periodic liveness check, 0 disables (env: SHAPES_LIVENESS_SWEEP)")
	fs.DurationVar(&c.ReadTimeout, "read-timeout", 60*time.Second, "websocket idle read timeout (env: SHAPES_READ_TIMEOUT)")
	fs.DurationVar(&c.WriteTimeout, "write-timeout", 3*time.Second, "websocket write timeout (env: SHAPES_WRITE_TIMEOUT)")
	fs.StringSliceVar(&c.OriginPatterns, "origin", nil, "extra allowed websocket origins (env: SHAPES_ORIGIN)")

	fs.StringVar(&c.DatabaseURL, "database-url", "", "postgres DSN for trial outcomes (env: SHAPES_DATABASE_URL)")
	fs.StringVar(&c.SQLitePath, "sqlite-path", "", "sqlite file for trial outcomes (env: SHAPES_SQLITE_PATH)")
	fs.IntVar(&c.ResultsQueue, "results-queue", 1024, "outcomes buffered ahead of storage (env: SHAPES_RESULTS_QUEUE)")
}

// ApplyEnv fills every flag not given on the command line from its
// environment variable. Call it after fs is parsed: a slice flag set from
// the environment first would have command-line values appended to it.
func ApplyEnv(fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	var err error
	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			if setErr := fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); setErr != nil {
				err = multierr.Append(err, fmt.Errorf("env for --%s: %w", f.Name, setErr))
			}
		}
	})
	return err
}

// Validate reports every inconsistent setting at once.
func (c *Config) Validate() error {
	var err error
	fail := func(format string, args ...any) {
		err = multierr.Append(err, fmt.Errorf(format, args...))
	}

	if c.Port < 1 || c.Port > 65535 {
		fail("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	for name, items := range map[string][]string{
		"shapes": c.Shapes, "colours": c.Colours, "objects": c.Objects, "emotions": c.Emotions,
	} {
		if dup := duplicate(items); dup != "" {
			fail("--%s lists %q twice", name, dup)
		}
		if slices.Contains(items, "") {
			fail("--%s has an empty entry", name)
		}
		if len(items) <= c.Foils {
			fail("--%s needs more than %d entries for %d foils", name, c.Foils, c.Foils)
		}
	}
	if c.Foils < 0 {
		fail("--foils must not be negative: %d", c.Foils)
	}
	if c.ShapesPerPair < 2 || c.ShapesPerPair > len(c.Shapes) {
		fail("--shapes-per-pair must be between 2 and %d: %d", len(c.Shapes), c.ShapesPerPair)
	}
	if c.ShapesPerPair <= c.Foils {
		fail("--shapes-per-pair must exceed --foils: %d <= %d", c.ShapesPerPair, c.Foils)
	}
	if c.FixedColours < 0 || c.FixedColours > min(c.ShapesPerPair, len(c.Colours)) {
		fail("--fixed-colours must be between 0 and %d: %d", min(c.ShapesPerPair, len(c.Colours)), c.FixedColours)
	}
	if c.Repeats < 0 {
		fail("--repeats must not be negative: %d", c.Repeats)
	}
	for _, b := range c.BreakTrials {
		if b < 1 {
			fail("--break-trials are 1-based: %d", b)
		}
	}
	if c.Timeout <= 0 {
		fail("--liveness-timeout must be positive")
	}
	if c.SweepInterval < 0 {
		fail("--liveness-sweep must not be negative")
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		fail("--read-timeout and --write-timeout must be positive")
	}
	if c.DatabaseURL != "" && c.SQLitePath != "" {
		fail("--database-url and --sqlite-path are mutually exclusive")
	}
	if c.ResultsQueue < 1 {
		fail("--results-queue must be at least 1: %d", c.ResultsQueue)
	}
	return err
}

func duplicate(items []string) string {
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it] {
			return it
		}
		seen[it] = true
	}
	return ""
}

func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

func (c *Config) Vocabulary() trials.Vocabulary {
	return trials.Vocabulary{
		Shapes:   c.Shapes,
		Colours:  c.Colours,
		Objects:  c.Objects,
		Emotions: c.Emotions,
	}
}

func (c *Config) Params() trials.Params {
	return trials.Params{Foils: c.Foils, Repeats: c.Repeats}
}

func (c *Config) Pairing() pairing.Config {
	return pairing.Config{ShapesPerPair: c.ShapesPerPair, FixedColours: c.FixedColours}
}
