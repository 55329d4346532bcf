// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"github.com/jeranaias/cola-tui/internal/backend"
	"github.com/jeranaias/cola-tui/internal/uploads"
	"github.com/jeranaias/cola-tui/internal/util"
)

// newUploader wires the rate-limited uploader and the dedupe ledger. An
// unusable ledger only disables dedupe. The caller closes the ledger.
func newUploader(e *env, target uploads.Target, logger zerolog.Logger) (*uploads.Uploader, *uploads.Ledger) {
	var ledger *uploads.Ledger
	path, err := e.cfg.LedgerPath()
	if err == nil {
		ledger, err = uploads.OpenLedger(path)
	}
	if err != nil {
		logger.Warn().Err(err).Msg("upload ledger unavailable, duplicates will not be skipped")
		ledger = nil
	}
	return uploads.New(target, ledger, uploaderOptions(e), logger), ledger
}

func uploaderOptions(e *env) uploads.Options {
	return uploads.Options{
		RatePerSecond: e.cfg.Upload.RatePerSecond,
		Burst:         e.cfg.Upload.Burst,
		MaxBytes:      int64(e.cfg.Upload.MaxFileSizeMB) << 20,
	}
}

type uploadOutcome struct {
	File     string     `json:"file"`
	Path     string     `json:"endpoint,omitempty"`
	ThreadID backend.ID `json:"thread_id,omitempty"`
	Message  string     `json:"message,omitempty"`
	Skipped  bool       `json:"skipped,omitempty"`
	Error    string     `json:"error,omitempty"`
}

func uploadCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "upload",
		Usage:     "upload documents into a thread",
		ArgsUsage: "[FILE...]",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "thread", Aliases: []string{"t"}, Usage: "target thread id (the server picks one when empty)"},
			&cli.StringFlag{Name: "watch", Aliases: []string{"w"}, Usage: "keep running and upload files dropped into this folder"},
			&cli.BoolFlag{Name: "force", Usage: "upload even if the ledger has seen the file"},
		},
		Action: func(c *cli.Context) error {
			watch := c.String("watch")
			if c.NArg() == 0 && watch == "" {
				return usageErr("upload", "give at least one file or --watch DIR")
			}

			client := e.client()
			var u *uploads.Uploader
			if c.Bool("force") {
				u = uploads.New(client, nil, uploaderOptions(e), e.log)
			} else {
				var ledger *uploads.Ledger
				u, ledger = newUploader(e, client, e.log)
				if ledger != nil {
					defer ledger.Close()
				}
			}

			thread := backend.ID(c.String("thread"))
			var outcomes []uploadOutcome
			var failed int
			send := func(path string) {
				o := uploadOutcome{File: path}
				res, err := u.UploadFile(c.Context, path, thread)
				switch {
				case errors.Is(err, uploads.ErrAlreadyUploaded):
					o.Skipped = true
				case err != nil:
					o.Error = util.StripControl(err.Error())
					failed++
				default:
					o.Path, o.ThreadID, o.Message = res.Path, res.ThreadID, res.Message
					if thread.IsZero() && !res.ThreadID.IsZero() {
						// later files follow the first into the new thread
						thread = res.ThreadID
					}
				}
				if !e.json {
					printUploadOutcome(e, o)
				}
				outcomes = append(outcomes, o)
			}

			for _, path := range c.Args().Slice() {
				send(util.ExpandHome(path))
			}

			if watch != "" {
				if err := watchAndUpload(c, e, util.ExpandHome(watch), send); err != nil {
					return err
				}
			}

			if e.json {
				if err := NewJSONResponse("upload", outcomes).Write(e.out); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d uploads failed", failed, len(outcomes))
			}
			return nil
		},
	}
}

// watchAndUpload blocks until interrupted, uploading settled files.
// Uploads run on the watcher goroutine one at a time.
func watchAndUpload(c *cli.Context, e *env, dir string, send func(string)) error {
	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := uploads.NewWatcher(dir, e.cfg.Upload.Debounce, send, e.log)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	defer w.Close()

	if !e.json {
		fmt.Fprintf(e.out, "%s %s %s\n", TitleStyle.Render("Watching"), dir, DimStyle.Render("(ctrl+c to stop)"))
	}
	<-ctx.Done()
	return nil
}

func printUploadOutcome(e *env, o uploadOutcome) {
	switch {
	case o.Skipped:
		fmt.Fprintf(e.out, "%s %s %s\n", WarningStyle.Render("skip"), o.File, DimStyle.Render("already uploaded to this thread"))
	case o.Error != "":
		fmt.Fprintf(e.out, "%s %s: %s\n", ErrorStyle.Render("fail"), o.File, o.Error)
	default:
		line := fmt.Sprintf("%s %s", SuccessStyle.Render("ok"), o.File)
		if !o.ThreadID.IsZero() {
			line += DimStyle.Render(" → thread " + o.ThreadID.String())
		}
		if o.Message != "" {
			line += " " + o.Message
		}
		fmt.Fprintln(e.out, line)
	}
}
