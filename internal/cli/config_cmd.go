// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/jeranaias/cola-tui/internal/config"
)

func configCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "inspect or create the configuration file",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "print the effective configuration (cookie redacted)",
				Action: func(c *cli.Context) error {
					if e.json {
						redacted := *e.cfg
						if redacted.Server.Cookie != "" {
							redacted.Server.Cookie = "<redacted>"
						}
						return NewJSONResponse("config show", redacted).Write(e.out)
					}
					fmt.Fprint(e.out, e.cfg.String())
					return nil
				},
			},
			{
				Name:  "path",
				Usage: "print the configuration file location",
				Action: func(c *cli.Context) error {
					path, err := e.configPath()
					if err != nil {
						return err
					}
					fmt.Fprintln(e.out, path)
					return nil
				},
			},
			{
				Name:  "init",
				Usage: "write a configuration file with the defaults",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "force", Usage: "overwrite an existing file"},
				},
				Action: func(c *cli.Context) error {
					path, err := e.configPath()
					if err != nil {
						return err
					}
					if _, err := os.Stat(path); err == nil && !c.Bool("force") {
						return usageErr("config init", "%s already exists (use --force to overwrite)", path)
					} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
						return err
					}
					if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
						return fmt.Errorf("create config directory: %w", err)
					}
					if err := config.Save(config.Default(), path); err != nil {
						return err
					}
					fmt.Fprintf(e.out, "%s %s\n", SuccessStyle.Render("Wrote"), path)
					return nil
				},
			},
		},
	}
}

// configPath is --config when given, otherwise the default TOML location.
func (e *env) configPath() (string, error) {
	if e.cfgPath != "" {
		return e.cfgPath, nil
	}
	return config.ConfigPathTOML()
}
