package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"github.com/crocodileps/Mon-ps-sub009/internal/app"
	"github.com/crocodileps/Mon-ps-sub009/internal/backtest"
	"github.com/crocodileps/Mon-ps-sub009/internal/engine"
	"github.com/crocodileps/Mon-ps-sub009/internal/presenter"
	"github.com/crocodileps/Mon-ps-sub009/internal/services"
	"github.com/crocodileps/Mon-ps-sub009/internal/shorting"
	"github.com/crocodileps/Mon-ps-sub009/internal/tracker"
	"github.com/crocodileps/Mon-ps-sub009/pkg/config"
	"github.com/crocodileps/Mon-ps-sub009/pkg/logger"
	"github.com/crocodileps/Mon-ps-sub009/pkg/utils"
)

// globals are the flags every command accepts.
type globals struct {
	JSON    bool
	Verbose bool
}

type output struct {
	w    io.Writer
	json bool
}

func (o output) emit(v interface{}, text func(io.Writer) error) error {
	if o.json {
		enc := json.NewEncoder(o.w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return text(o.w)
}

// action runs a parsed command against a built App.
type action func(ctx context.Context, a *app.App, out output) error

type command struct {
	name    string
	usage   string
	summary string
	parse   func(fs *pflag.FlagSet, args []string) (action, error)
}

// opener builds the App once arguments have been validated.
type opener func(ctx context.Context, g globals, stderr io.Writer) (*app.App, error)

func openApp(ctx context.Context, g globals, stderr io.Writer) (*app.App, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrInvalidInput, err)
	}
	level := cfg.LogLevel
	if level == "" && !g.Verbose {
		level = "warn"
	}
	log := logger.InitLogger(level, cfg.IsDevelopment())
	log.SetOutput(stderr)
	return app.New(ctx, cfg, log)
}

var commands = []command{
	{"analyze", "analyze <home> <away> [flags]", "analyse one fixture and print the decision", parseAnalyze},
	{"scan-shorts", "scan-shorts [--min-prob N]", "list defender lines likely to collapse", parseScanShorts},
	{"backtest", "backtest --from YYYY-MM-DD --to YYYY-MM-DD [flags]", "replay the engine over finished fixtures", parseBacktest},
	{"resolve", "resolve", "settle unresolved picks against finished fixtures", noArgs(resolveAction)},
	{"audit", "audit", "re-settle resolved picks and list conflicts", noArgs(auditAction)},
	{"opportunities", "opportunities [--record]", "analyse the external opportunity feed", parseOpportunities},
	{"closing-odds", "closing-odds", "capture closing odds for picks about to kick off", noArgs(closingOddsAction)},
	{"clv", "clv [--by source|market|bookmaker]", "closing-line value rollup", parseCLV},
	{"drift", "drift", "model calibration drift per market", noArgs(driftAction)},
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: engine <command> [flags] [--json] [--verbose]")
	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
	for _, c := range commands {
		fmt.Fprintf(tw, "  %s\t%s\n", c.name, c.summary)
	}
	tw.Flush()
}

// run parses args, opens the App and executes one command. It returns the process
// exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, open opener) int {
	if len(args) == 0 {
		usage(stderr)
		return utils.ExitInvalidArgs
	}
	if args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		usage(stdout)
		return utils.ExitOK
	}
	cmd, ok := lookup(args[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", args[0])
		usage(stderr)
		return utils.ExitInvalidArgs
	}

	var g globals
	fs := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&g.JSON, "json", false, "print JSON instead of text")
	fs.BoolVarP(&g.Verbose, "verbose", "v", false, "log at info level and above")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: engine %s\n", cmd.usage)
		fs.PrintDefaults()
	}

	act, err := cmd.parse(fs, args[1:])
	if errors.Is(err, pflag.ErrHelp) {
		return utils.ExitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "engine %s: %v\n", cmd.name, err)
		return utils.ExitInvalidArgs
	}

	a, err := open(ctx, g, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "engine: %v\n", err)
		return utils.ExitCode(err)
	}
	defer a.Close()

	err = act(ctx, a, output{w: stdout, json: g.JSON})
	if err != nil {
		a.Logger.WithError(err).WithField("command", cmd.name).Debug("Command failed")
		fmt.Fprintf(stderr, "engine %s: %v\n", cmd.name, err)
	}
	return utils.ExitCode(err)
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", utils.ErrInvalidInput, fmt.Sprintf(format, args...))
}

func noArgs(act action) func(*pflag.FlagSet, []string) (action, error) {
	return func(fs *pflag.FlagSet, args []string) (action, error) {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		if fs.NArg() > 0 {
			return nil, invalid("unexpected arguments: %s", strings.Join(fs.Args(), " "))
		}
		return act, nil
	}
}

func parseAnalyze(fs *pflag.FlagSet, args []string) (action, error) {
	var (
		req  engine.Request
		date string
	)
	fs.StringVar(&req.Referee, "referee", "", "referee name")
	fs.StringVar(&req.OpponentStyle, "opponent-style", "", "override the opponent style used for shorting")
	fs.StringVar(&req.League, "league", "", "league, defaults to the home team's")
	fs.StringVar(&date, "date", "", "kickoff date (YYYY-MM-DD)")
	fs.Float64Var(&req.MatchImportance, "importance", 0, "match importance bonus for cards")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 2 {
		return nil, invalid("analyze needs exactly <home> <away>, got %d arguments", fs.NArg())
	}
	req.Home, req.Away = fs.Arg(0), fs.Arg(1)
	if strings.TrimSpace(req.Home) == "" || strings.TrimSpace(req.Away) == "" {
		return nil, invalid("team names must not be empty")
	}
	if req.MatchImportance < 0 {
		return nil, invalid("--importance must be non-negative")
	}
	if date != "" {
		t, err := time.Parse(backtest.DateLayout, date)
		if err != nil {
			return nil, invalid("--date %q is not YYYY-MM-DD", date)
		}
		req.CommenceTime = t
	}

	return func(ctx context.Context, a *app.App, out output) error {
		res, err := a.Matchday.Analyze(ctx, req)
		if res != nil {
			if perr := out.emit(res, func(w io.Writer) error { return presenter.Analysis(w, res) }); perr != nil {
				return errors.Join(err, perr)
			}
		}
		return err
	}, nil
}

func parseScanShorts(fs *pflag.FlagSet, args []string) (action, error) {
	minProb := fs.Float64("min-prob", shorting.DefaultMinProbability, "minimum collapse probability (0-100)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, invalid("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if *minProb < 0 || *minProb > 100 {
		return nil, invalid("--min-prob must be within 0-100, got %v", *minProb)
	}

	return func(ctx context.Context, a *app.App, out output) error {
		list := a.Matchday.ScanShorts(ctx, *minProb)
		if list == nil {
			list = []shorting.Assessment{}
		}
		return out.emit(list, func(w io.Writer) error { return presenter.Shorts(w, list) })
	}, nil
}

func parseBacktest(fs *pflag.FlagSet, args []string) (action, error) {
	var (
		from, to string
		cfg      backtest.Config
		outcomes bool
	)
	fs.StringVar(&from, "from", "", "first fixture date (YYYY-MM-DD)")
	fs.StringVar(&to, "to", "", "last fixture date, inclusive (YYYY-MM-DD)")
	fs.StringVar(&cfg.League, "league", "", "only fixtures in this league")
	fs.StringVar(&cfg.Team, "team", "", "only fixtures involving this team")
	fs.Float64Var(&cfg.BaseStake, "stake", 0, "base stake in units (defaults to BASE_STAKE)")
	fs.BoolVar(&outcomes, "outcomes", false, "include per-bet outcomes in JSON output")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, invalid("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	if from == "" || to == "" {
		return nil, invalid("--from and --to are required")
	}
	if cfg.BaseStake < 0 {
		return nil, invalid("--stake must be non-negative")
	}
	var err error
	if cfg.From, cfg.To, err = backtest.ParseRange(from, to); err != nil {
		return nil, err
	}

	return func(ctx context.Context, a *app.App, out output) error {
		if cfg.BaseStake == 0 {
			cfg.BaseStake = a.Config.BaseStake
		}
		report, err := a.Matchday.Backtest(ctx, cfg)
		if report == nil {
			return err
		}
		if !outcomes {
			report.Outcomes = nil
		}
		if perr := out.emit(report, func(w io.Writer) error { return presenter.Backtest(w, report) }); perr != nil {
			return errors.Join(err, perr)
		}
		return err
	}, nil
}

func parseOpportunities(fs *pflag.FlagSet, args []string) (action, error) {
	record := fs.Bool("record", false, "store the resulting picks")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, invalid("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}

	return func(ctx context.Context, a *app.App, out output) error {
		report, err := a.Matchday.RunOpportunities(ctx, *record)
		if report == nil {
			return err
		}
		if perr := out.emit(report, func(w io.Writer) error { return presenter.Opportunities(w, report) }); perr != nil {
			return errors.Join(err, perr)
		}
		return err
	}, nil
}

func parseCLV(fs *pflag.FlagSet, args []string) (action, error) {
	by := fs.String("by", string(tracker.BySource), "rollup dimension: source, market or bookmaker")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, invalid("unexpected arguments: %s", strings.Join(fs.Args(), " "))
	}
	dim, err := tracker.ParseDimension(*by)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, a *app.App, out output) error {
		if a.Tracker == nil {
			return services.ErrNoStore
		}
		rollups, err := a.Tracker.CLVRollups(ctx, dim)
		if err != nil {
			return err
		}
		if rollups == nil {
			rollups = []tracker.CLVRollup{}
		}
		return out.emit(rollups, func(w io.Writer) error { return presenter.CLVRollups(w, rollups) })
	}, nil
}

func resolveAction(ctx context.Context, a *app.App, out output) error {
	summary, err := a.Matchday.Resolve(ctx)
	if err != nil {
		return err
	}
	return out.emit(summary, func(w io.Writer) error { return presenter.Resolution(w, summary) })
}

func auditAction(ctx context.Context, a *app.App, out output) error {
	conflicts, err := a.Matchday.Audit(ctx)
	if err != nil && !errors.Is(err, utils.ErrResolutionConflict) {
		return err
	}
	if conflicts == nil {
		conflicts = []tracker.Conflict{}
	}
	// conflicts are printed, then reported through the exit code
	if perr := out.emit(conflicts, func(w io.Writer) error { return presenter.Conflicts(w, conflicts) }); perr != nil {
		return errors.Join(err, perr)
	}
	return err
}

func closingOddsAction(ctx context.Context, a *app.App, out output) error {
	n, err := a.Matchday.CaptureClosingOdds(ctx)
	if err != nil {
		return err
	}
	return out.emit(map[string]int{"captured": n}, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "captured closing odds for %d picks\n", n)
		return err
	})
}

func driftAction(ctx context.Context, a *app.App, out output) error {
	if a.Tracker == nil {
		return services.ErrNoStore
	}
	drift, err := a.Tracker.DriftReport(ctx)
	if err != nil {
		return err
	}
	if drift == nil {
		drift = []tracker.Drift{}
	}
	return out.emit(drift, func(w io.Writer) error { return presenter.Drift(w, drift) })
}
