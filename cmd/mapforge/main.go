// Package main is the entry point for mapforge.
//
// mapforge opens an editing session, runs Lua scripts against it and prints
// the resulting undo and redo history.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/rivo/uniseg"
	"golang.org/x/term"

	"github.com/dshills/mapforge/internal/config"
	"github.com/dshills/mapforge/internal/editor"
	"github.com/dshills/mapforge/internal/logging"
	"github.com/dshills/mapforge/internal/script"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// options holds the parsed command line.
type options struct {
	configPath  string
	scripts     stringList
	maxUndo     int
	logLevel    string
	name        string
	loadPath    string
	exportPath  string
	watch       bool
	showVersion bool
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options
	fs := flag.NewFlagSet("mapforge", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&opts.configPath, "config", "", "Path to configuration file (.toml, .yaml)")
	fs.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	fs.Var(&opts.scripts, "script", "Lua script to run (repeatable)")
	fs.Var(&opts.scripts, "s", "Lua script to run (shorthand)")
	fs.IntVar(&opts.maxUndo, "max-undo", 0, "Override history.max_items")
	fs.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	fs.StringVar(&opts.name, "name", "untitled", "Name of the level")
	fs.StringVar(&opts.loadPath, "load", "", "Level JSON file to open instead of an empty level")
	fs.StringVar(&opts.exportPath, "export", "", "Write the level as JSON to this file after the scripts ran")
	fs.BoolVar(&opts.watch, "watch", false, "Keep running and apply config file changes")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")
	fs.BoolVar(&opts.showVersion, "v", false, "Show version information (shorthand)")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "mapforge - scriptable level editor with undo history\n\n")
		fmt.Fprintf(stderr, "Usage: mapforge [options] [scripts...]\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  mapforge build.lua                 Run a script\n")
		fmt.Fprintf(stderr, "  mapforge -load in.json -export out.json fix.lua\n")
		fmt.Fprintf(stderr, "  mapforge -c mapforge.toml -watch   Run and follow config changes\n")
	}

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.logLevel != "" {
		switch strings.ToLower(opts.logLevel) {
		case "debug", "info", "warn", "warning", "error":
		default:
			return options{}, fmt.Errorf("invalid log level %q (must be debug, info, warn, or error)", opts.logLevel)
		}
	}
	if opts.maxUndo < 0 {
		return options{}, fmt.Errorf("invalid -max-undo %d", opts.maxUndo)
	}
	if opts.watch && opts.configPath == "" {
		return options{}, errors.New("-watch requires -config")
	}

	opts.scripts = append(opts.scripts, fs.Args()...)
	return opts, nil
}

// applyOverrides lets command line flags win over every config source.
func (o options) applyOverrides(cfg config.Config) config.Config {
	if o.maxUndo > 0 {
		cfg.History.MaxItems = o.maxUndo
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "mapforge %s\n", version)
		fmt.Fprintf(stdout, "Commit: %s\n", commit)
		fmt.Fprintf(stdout, "Built: %s\n", date)
		return 0
	}

	loadOpts := config.Options{Path: opts.configPath}
	cfg, err := config.Load(loadOpts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to load config: %v\n", err)
		return 1
	}
	cfg = opts.applyOverrides(cfg)

	logCfg := logging.DefaultLoggerConfig()
	logCfg.Output = stderr
	logCfg.Level = cfg.LogLevel()
	logCfg.Format = logging.Format(cfg.Logging.Format)
	logCfg.Color = isTerminal(stderr)
	log := logging.NewLogger(logCfg)
	defer func() { _ = log.Sync() }()

	sessions := editor.NewManager(cfg, log)
	session, err := openSession(sessions, opts)
	if err != nil {
		fmt.Fprintf(stderr, "Error: failed to open session: %v\n", err)
		return 1
	}
	defer func() { _ = sessions.Close(session.ID) }()

	engine := script.New(session, script.WithConfig(cfg.Script), script.WithLogger(log))
	defer engine.Close()

	for _, path := range slices.Concat(cfg.Script.Paths, opts.scripts) {
		if err := engine.RunFile(ctx, path); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return 1
		}
	}

	if opts.exportPath != "" {
		data, err := session.Export()
		if err == nil {
			err = os.WriteFile(opts.exportPath, data, 0o644)
		}
		if err != nil {
			fmt.Fprintf(stderr, "Error: failed to export level: %v\n", err)
			return 1
		}
	}

	printSnapshot(stdout, session.Snapshot())

	if !opts.watch {
		return 0
	}

	reloader := config.NewReloader(loadOpts, cfg, log)
	reloader.OnChange(reloadHandler(opts, cfg, sessions, log))
	if err := reloader.Start(); err != nil {
		fmt.Fprintf(stderr, "Error: failed to watch config: %v\n", err)
		return 1
	}
	defer func() { _ = reloader.Stop() }()

	log.Info("watching %s", opts.configPath)
	<-ctx.Done()
	return 0
}

// reloadHandler applies a reloaded config to the running process. The log
// level and history capacity change live; the log format is fixed at
// startup.
func reloadHandler(opts options, running config.Config, sessions *editor.Manager, log *logging.Logger) func(config.Config) {
	return func(c config.Config) {
		c = opts.applyOverrides(c)
		if c.Logging.Format != running.Logging.Format {
			log.Warn("logging.format changed from %q to %q; restart to apply", running.Logging.Format, c.Logging.Format)
		}
		log.SetLevel(c.LogLevel())
		if err := sessions.ApplyConfig(c); err != nil {
			log.Error("applying config: %v", err)
		}
	}
}

func openSession(sessions *editor.Manager, opts options) (*editor.Session, error) {
	if opts.loadPath == "" {
		return sessions.Open(opts.name)
	}
	data, err := os.ReadFile(opts.loadPath)
	if err != nil {
		return nil, err
	}
	return sessions.Import(data)
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func printSnapshot(w io.Writer, snap editor.Snapshot) {
	fmt.Fprintf(w, "level %q: %d item(s)\n", snap.Name, snap.ItemCount)

	width := 0
	for _, it := range snap.Items {
		width = max(width, uniseg.StringWidth(it.Name))
	}
	for _, it := range snap.Items {
		fmt.Fprintf(w, "  %s %s at (%g, %g) size %gx%g rot %g",
			it.ID, padRight(it.Name, width), it.Position.X, it.Position.Y, it.Size.X, it.Size.Y, it.Rotation)
		if it.Tint != "" {
			fmt.Fprintf(w, " tint %s", it.Tint)
		}
		fmt.Fprintln(w)
	}
	fmt.Fprintf(w, "undo (%d/%d):\n", len(snap.Undo), snap.MaxItems)
	for _, d := range snap.Undo {
		fmt.Fprintf(w, "  %s\n", d)
	}
	fmt.Fprintf(w, "redo (%d):\n", len(snap.Redo))
	for _, d := range snap.Redo {
		fmt.Fprintf(w, "  %s\n", d)
	}
}

// padRight pads s with spaces to width terminal cells.
func padRight(s string, width int) string {
	if n := uniseg.StringWidth(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
