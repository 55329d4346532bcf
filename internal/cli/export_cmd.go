// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/jeranaias/cola-tui/internal/export"
	"github.com/jeranaias/cola-tui/internal/util"
)

func exportCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "write a thread transcript to a file",
		ArgsUsage: "THREAD_ID",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Value: "md", Usage: "md, html or json"},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: ".", Usage: "output directory"},
			&cli.BoolFlag{Name: "stdout", Usage: "print instead of writing a file"},
			&cli.BoolFlag{Name: "open", Usage: "open the file afterwards"},
			&cli.BoolFlag{Name: "no-metadata", Usage: "omit the header block"},
		},
		Action: func(c *cli.Context) error {
			id, err := threadArg(c)
			if err != nil {
				return err
			}

			opts := export.DefaultOptions()
			opts.OutputDir = util.ExpandHome(c.String("out"))
			opts.OpenAfterExport = c.Bool("open")
			opts.IncludeMetadata = !c.Bool("no-metadata")
			opts.TimezoneOffset = e.cfg.UI.TimezoneOffset
			if e.cfg.UI.Theme == "light" {
				opts.Theme = "light"
			}

			exporter, err := export.ForFormat(c.String("format"), opts)
			if err != nil {
				return usageErr("export", "%v", err)
			}
			t, err := export.Fetch(c.Context, e.client(), id)
			if err != nil {
				return err
			}

			if c.Bool("stdout") {
				data, err := exporter.Export(t)
				if err != nil {
					return err
				}
				_, err = e.out.Write(data)
				return err
			}

			path, err := export.ToFile(t, exporter, opts)
			if err != nil {
				return err
			}
			if e.json {
				return NewJSONResponse("export", map[string]any{"thread_id": id, "path": path}).Write(e.out)
			}
			fmt.Fprintf(e.out, "%s %s\n", SuccessStyle.Render("Exported to"), path)
			return nil
		},
	}
}
