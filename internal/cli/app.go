// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/jeranaias/cola-tui/internal/backend"
	"github.com/jeranaias/cola-tui/internal/config"
	"github.com/jeranaias/cola-tui/internal/logging"
	"github.com/jeranaias/cola-tui/internal/render"
	"github.com/jeranaias/cola-tui/internal/session"
	"github.com/jeranaias/cola-tui/internal/util"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// =============================================================================
// ENVIRONMENT
// =============================================================================

// env is what every command shares: streams, the loaded config and a logger.
// It is filled by the app's Before hook.
type env struct {
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	cfg     *config.Config
	cfgPath string
	json    bool
	log     zerolog.Logger
	closer  io.Closer
}

// client builds a backend client from the loaded config.
func (e *env) client() *backend.Client {
	s := e.cfg.Server
	c := backend.New(s.BaseURL).WithCookie(s.Cookie).WithTimeout(s.RequestTimeout)
	if len(s.UploadPaths) > 0 {
		c = c.WithUploadPaths(s.UploadPaths...)
	}
	return c
}

// sessionConfig translates the chat/ui sections for the session core.
func (e *env) sessionConfig(renderer func(string) string) session.Config {
	cfg := session.DefaultConfig()
	cfg.PlaceholderPrefix = e.cfg.Chat.PlaceholderPrefix
	cfg.HistoryReloadDelay = e.cfg.Chat.HistoryReloadDelay
	cfg.GenerateTitles = e.cfg.Chat.GenerateTitles
	cfg.TimezoneOffset = e.cfg.UI.TimezoneOffset
	cfg.Render = renderer
	if cfg.Render == nil {
		cfg.Render = render.Plain
	}
	return cfg
}

// interactive reports whether the input stream is a terminal.
func (e *env) interactive() bool {
	return isTerminal(e.in)
}

// =============================================================================
// APP
// =============================================================================

// NewApp builds the cola application reading from in and writing to out and
// errOut.
func NewApp(in io.Reader, out, errOut io.Writer) *cli.App {
	e := &env{in: in, out: out, errOut: errOut, log: zerolog.Nop()}

	return &cli.App{
		Name:        "cola",
		Usage:       "terminal client for the cola knowledge assistant",
		Version:     Version,
		HideVersion: true,
		Reader:      in,
		Writer:      out,
		ErrWriter:   errOut,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "config file (TOML, or JSON by extension)",
				EnvVars: []string{"COLA_CONFIG"},
			},
			&cli.StringFlag{
				Name:  "server",
				Usage: "backend base URL, overrides server.base_url",
			},
			&cli.StringFlag{
				Name:  "cookie",
				Usage: "session cookie sent with every request",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "print machine-readable JSON",
			},
		},
		Before: func(c *cli.Context) error { return e.setup(c) },
		After: func(c *cli.Context) error {
			if e.closer != nil {
				return e.closer.Close()
			}
			return nil
		},
		Action: func(c *cli.Context) error {
			if c.NArg() > 0 {
				return usageErr("", "unknown command %q", c.Args().First())
			}
			return runTUI(c, e)
		},
		Commands: []*cli.Command{
			tuiCommand(e),
			askCommand(e),
			chatCommand(e),
			threadsCommand(e),
			docsCommand(e),
			uploadCommand(e),
			exportCommand(e),
			mockServerCommand(e),
			configCommand(e),
			versionCommand(e),
		},
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

// setup loads the config and applies flag overrides. CLI commands log to
// stderr; the TUI replaces the logger with a file sink.
func (e *env) setup(c *cli.Context) error {
	e.cfgPath = c.String("config")
	e.json = c.Bool("json")

	cfg, err := config.Load(e.cfgPath)
	if err != nil {
		// `config init --config new.toml` creates the file it names.
		if !errors.Is(err, fs.ErrNotExist) || c.Args().First() != "config" {
			return err
		}
		cfg = config.Default()
	}
	if v := c.String("server"); v != "" {
		cfg.Server.BaseURL = v
	}
	if v := c.String("cookie"); v != "" {
		cfg.Server.Cookie = v
	}
	if v := c.String("log-level"); v != "" {
		cfg.Log.Level = v
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	e.cfg = cfg
	config.SetGlobal(cfg)

	level := c.String("log-level")
	if level == "" {
		level = "warn"
	}
	e.log, e.closer, err = logging.New(logging.Options{Level: level, Console: true, Stderr: e.errOut})
	return err
}

// Run executes the application and returns the process exit code.
func Run(ctx context.Context, args []string) int {
	app := NewApp(os.Stdin, os.Stdout, os.Stderr)
	err := app.RunContext(ctx, args)
	if err == nil {
		return ExitSuccess
	}
	if !errors.Is(err, ErrNotConfirmed) {
		fmt.Fprintln(os.Stderr, ErrorStyle.Render("Error:"), util.StripControl(err.Error()))
	}
	return ExitCode(err)
}

// =============================================================================
// VERSION
// =============================================================================

func versionCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "print version information",
		Action: func(c *cli.Context) error {
			info := map[string]string{
				"version": Version,
				"commit":  GitCommit,
				"built":   BuildDate,
			}
			if e.json {
				return NewJSONResponse("version", info).Write(e.out)
			}
			fmt.Fprintf(e.out, "cola %s (%s, built %s)\n", Version, GitCommit, BuildDate)
			return nil
		},
	}
}
