// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v2"

	"github.com/jeranaias/cola-tui/internal/logging"
	"github.com/jeranaias/cola-tui/internal/session"
	"github.com/jeranaias/cola-tui/internal/ui"
	"github.com/jeranaias/cola-tui/internal/uploads"
	"github.com/jeranaias/cola-tui/internal/util"
)

func tuiCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "tui",
		Usage: "start the full-screen client (default)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "watch", Usage: "upload files dropped into this folder (overrides upload.watch_dir)"},
			&cli.StringFlag{Name: "export-format", Value: "md", Usage: "md, html or json"},
			&cli.StringFlag{Name: "export-dir", Usage: "where ctrl+e writes transcripts (default: current directory)"},
			&cli.BoolFlag{Name: "plain", Usage: "show answers as plain text", EnvVars: []string{"NO_COLOR"}},
		},
		Action: func(c *cli.Context) error { return runTUI(c, e) },
	}
}

// runTUI owns the terminal until the user quits. Logs go to the rotated file
// because stderr is covered by the alternate screen.
func runTUI(c *cli.Context, e *env) error {
	if !isTerminal(e.in) || !isTerminal(e.out) {
		return &TTYRequiredError{Operation: "run the TUI (use `cola chat` or `cola ask`)"}
	}

	logPath, err := e.cfg.LogPath()
	if err != nil {
		return err
	}
	logger, closer, err := logging.New(logging.Options{
		Level:      e.cfg.Log.Level,
		File:       logPath,
		MaxSizeMB:  e.cfg.Log.MaxSizeMB,
		MaxBackups: e.cfg.Log.MaxBackups,
		MaxAgeDays: e.cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	defer closer.Close()

	client := e.client()
	uploader, ledger := newUploader(e, client, logger)
	if ledger != nil {
		defer ledger.Close()
	}

	model := ui.New(ui.Options{
		Session:      e.sessionConfig(nil),
		Backend:      session.FromClient(client),
		Export:       client,
		ExportFormat: c.String("export-format"),
		ExportDir:    c.String("export-dir"),
		Uploader:     uploader,
		Theme:        e.cfg.UI.Theme,
		WordWrap:     e.cfg.UI.WordWrap,
		ShowSegments: e.cfg.UI.ShowSegments,
		Plain:        c.Bool("plain"),
		Logger:       logger,
	})

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(c.Context),
	)

	dir := c.String("watch")
	if dir == "" {
		dir = e.cfg.Upload.WatchDir
	}
	if dir != "" {
		w, err := uploads.NewWatcher(util.ExpandHome(dir), e.cfg.Upload.Debounce, func(path string) {
			p.Send(ui.FileDroppedMsg{Path: path})
		}, logger)
		if err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		if err := w.Start(); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		defer w.Close()
	}

	logger.Info().Str("server", client.BaseURL()).Int("pid", os.Getpid()).Msg("tui started")
	_, err = p.Run()
	return err
}
