// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jeranaias/cola-tui/internal/mockserver"
)

func mockServerCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "mock-server",
		Usage: "run a local fake backend for demos and testing",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "127.0.0.1:5000", Usage: "listen address"},
			&cli.DurationFlag{Name: "word-delay", Value: 40 * time.Millisecond, Usage: "pause between streamed words"},
			&cli.StringFlag{Name: "require-cookie", Usage: "answer 401 unless this Cookie header is sent"},
			&cli.BoolFlag{Name: "no-upload", Usage: "refuse /upload so clients fall back to /api/upload"},
			&cli.BoolFlag{Name: "seed", Usage: "start with a sample thread and document"},
		},
		Action: func(c *cli.Context) error {
			srv := mockserver.New(mockserver.Options{
				WordDelay:         c.Duration("word-delay"),
				Cookie:            c.String("require-cookie"),
				DisableUploadPath: c.Bool("no-upload"),
				Logger:            e.log,
			})
			if c.Bool("seed") {
				id := srv.SeedThread("Welcome", "What is cola?", "A threaded knowledge assistant. Upload documents and ask about them.")
				srv.SeedDocument(id, "handbook.md", "Threads keep conversations apart.\n\nDocuments are scoped to a thread.")
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(c.String("addr")) }()
			fmt.Fprintf(e.out, "%s http://%s %s\n", TitleStyle.Render("mock backend on"), c.String("addr"), DimStyle.Render("(ctrl+c to stop)"))

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
