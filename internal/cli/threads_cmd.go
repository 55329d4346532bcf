// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/jeranaias/cola-tui/internal/backend"
	"github.com/jeranaias/cola-tui/internal/util"
)

func threadsCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:    "threads",
		Aliases: []string{"thread"},
		Usage:   "list or delete threads",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list threads, newest first",
				Action: func(c *cli.Context) error { return listThreads(c, e) },
			},
			{
				Name:      "show",
				Usage:     "print a thread's messages",
				ArgsUsage: "THREAD_ID",
				Action:    func(c *cli.Context) error { return showThread(c, e) },
			},
			{
				Name:      "delete",
				Usage:     "delete a thread and its documents",
				ArgsUsage: "THREAD_ID",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
				},
				Action: func(c *cli.Context) error { return deleteThread(c, e) },
			},
		},
		Action: func(c *cli.Context) error { return listThreads(c, e) },
	}
}

// threadArg returns the single id argument of a subcommand.
func threadArg(c *cli.Context) (backend.ID, error) {
	if c.NArg() != 1 {
		return "", usageErr(c.Command.FullName(), "expected exactly one id")
	}
	return backend.ID(c.Args().First()), nil
}

func listThreads(c *cli.Context, e *env) error {
	threads, err := e.client().ListThreads(c.Context)
	if err != nil {
		return err
	}
	if e.json {
		return NewJSONResponse("threads list", threads).Write(e.out)
	}
	if len(threads) == 0 {
		fmt.Fprintln(e.out, DimStyle.Render("No threads yet."))
		return nil
	}

	rows := make([][]string, 0, len(threads))
	for _, t := range threads {
		title := util.StripControl(t.Title)
		if title == "" {
			title = e.cfg.Chat.PlaceholderPrefix + t.ID.String()
		}
		rows = append(rows, []string{t.ID.String(), stampOrDash(t.CreatedAt, e.cfg.UI.TimezoneOffset), title})
	}
	table(e.out, []string{"ID", "CREATED", "TITLE"}, rows)
	return nil
}

func showThread(c *cli.Context, e *env) error {
	id, err := threadArg(c)
	if err != nil {
		return err
	}
	messages, err := e.client().ListMessages(c.Context, id)
	if err != nil {
		return err
	}
	if e.json {
		return NewJSONResponse("threads show", messages).Write(e.out)
	}
	for i, m := range messages {
		if i > 0 {
			fmt.Fprintln(e.out)
		}
		fmt.Fprintf(e.out, "%s %s\n", PromptStyle.Render(m.Role), DimStyle.Render(stampOrDash(m.CreatedAt, e.cfg.UI.TimezoneOffset)))
		fmt.Fprintln(e.out, util.StripControl(m.Content))
	}
	return nil
}

func deleteThread(c *cli.Context, e *env) error {
	id, err := threadArg(c)
	if err != nil {
		return err
	}
	if err := confirm(e.in, e.out, "Delete thread "+id.String()+" and its documents", ConfirmationOptions{
		Yes:         c.Bool("yes"),
		JSONMode:    e.json,
		Interactive: e.interactive(),
	}); err != nil {
		return err
	}
	if err := e.client().DeleteThread(c.Context, id); err != nil {
		return err
	}
	if e.json {
		return NewJSONResponse("threads delete", map[string]any{"thread_id": id, "deleted": true}).Write(e.out)
	}
	fmt.Fprintln(e.out, SuccessStyle.Render("Deleted thread "+id.String()))
	return nil
}

// stampOrDash renders a server timestamp in the display zone.
func stampOrDash(raw string, offset int) string {
	if raw == "" {
		return "-"
	}
	t, err := util.ParseTimestamp(raw, offset)
	if err != nil || t.IsZero() {
		return raw
	}
	return util.FormatTimestamp(t, offset)
}
