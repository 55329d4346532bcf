// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"strconv"

	"github.com/urfave/cli/v2"

	"github.com/jeranaias/cola-tui/internal/backend"
	"github.com/jeranaias/cola-tui/internal/util"
)

func docsCommand(e *env) *cli.Command {
	threadFlag := func() cli.Flag {
		return &cli.StringFlag{Name: "thread", Aliases: []string{"t"}, Usage: "scope to this thread"}
	}
	return &cli.Command{
		Name:    "docs",
		Aliases: []string{"documents"},
		Usage:   "list, inspect or delete uploaded documents",
		Subcommands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list documents",
				Flags:  []cli.Flag{threadFlag()},
				Action: func(c *cli.Context) error { return listDocs(c, e) },
			},
			{
				Name:      "segments",
				Usage:     "preview a document's indexed segments",
				ArgsUsage: "DOC_ID",
				Action:    func(c *cli.Context) error { return listSegments(c, e) },
			},
			{
				Name:      "delete",
				Usage:     "delete a document",
				ArgsUsage: "DOC_ID",
				Flags: []cli.Flag{
					threadFlag(),
					&cli.BoolFlag{Name: "yes", Aliases: []string{"y"}, Usage: "do not ask for confirmation"},
				},
				Action: func(c *cli.Context) error { return deleteDoc(c, e) },
			},
		},
	}
}

func listDocs(c *cli.Context, e *env) error {
	docs, err := e.client().ListDocuments(c.Context, backend.ID(c.String("thread")))
	if err != nil {
		return err
	}
	if e.json {
		return NewJSONResponse("docs list", docs).Write(e.out)
	}
	if len(docs) == 0 {
		fmt.Fprintln(e.out, DimStyle.Render("No documents."))
		return nil
	}
	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []string{
			d.ID.String(),
			strconv.Itoa(d.SegmentCount),
			stampOrDash(d.StoredAt, e.cfg.UI.TimezoneOffset),
			util.StripControl(d.Filename),
		})
	}
	table(e.out, []string{"ID", "SEGMENTS", "STORED", "FILE"}, rows)
	return nil
}

func listSegments(c *cli.Context, e *env) error {
	id, err := threadArg(c)
	if err != nil {
		return err
	}
	segments, err := e.client().ListSegments(c.Context, id)
	if err != nil {
		return err
	}
	if e.json {
		return NewJSONResponse("docs segments", segments).Write(e.out)
	}
	if len(segments) == 0 {
		fmt.Fprintln(e.out, DimStyle.Render("No segments."))
		return nil
	}
	for _, s := range segments {
		fmt.Fprintf(e.out, "%s %s\n", TitleStyle.Render(fmt.Sprintf("#%d", s.Index)), DimStyle.Render(s.VectorID))
		fmt.Fprintln(e.out, util.StripControl(s.Preview))
	}
	return nil
}

func deleteDoc(c *cli.Context, e *env) error {
	id, err := threadArg(c)
	if err != nil {
		return err
	}
	if err := confirm(e.in, e.out, "Delete document "+id.String(), ConfirmationOptions{
		Yes:         c.Bool("yes"),
		JSONMode:    e.json,
		Interactive: e.interactive(),
	}); err != nil {
		return err
	}
	if err := e.client().DeleteDocument(c.Context, id, backend.ID(c.String("thread"))); err != nil {
		return err
	}
	if e.json {
		return NewJSONResponse("docs delete", map[string]any{"doc_id": id, "deleted": true}).Write(e.out)
	}
	fmt.Fprintln(e.out, SuccessStyle.Render("Deleted document "+id.String()))
	return nil
}
