// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/jeranaias/cola-tui/internal/backend"
	"github.com/jeranaias/cola-tui/internal/session"
	"github.com/jeranaias/cola-tui/internal/util"
)

type askResult struct {
	ThreadID  backend.ID `json:"thread_id,omitempty"`
	Title     string     `json:"title,omitempty"`
	Answer    string     `json:"answer"`
	Malformed int        `json:"malformed_frames,omitempty"`
}

func askCommand(e *env) *cli.Command {
	return &cli.Command{
		Name:      "ask",
		Usage:     "ask one question and stream the answer",
		ArgsUsage: "QUESTION... (or - to read stdin)",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "thread", Aliases: []string{"t"}, Usage: "thread id (the server creates one when empty)"},
		},
		Action: func(c *cli.Context) error {
			question, err := questionFromArgs(c, e.in)
			if err != nil {
				return err
			}

			stream, err := e.client().Ask(c.Context, question, backend.ID(c.String("thread")))
			if err != nil {
				return err
			}
			defer stream.Close()

			res, err := readAnswer(stream, func(piece string) {
				if !e.json {
					fmt.Fprint(e.out, util.StripControl(piece))
				}
			})
			if res.Malformed > 0 {
				e.log.Warn().Int("frames", res.Malformed).Msg("skipped malformed frames")
			}

			if e.json {
				if err != nil {
					return NewJSONErrorResponse("ask", err).Write(e.out)
				}
				return NewJSONResponse("ask", res).Write(e.out)
			}
			if res.Answer != "" && !strings.HasSuffix(res.Answer, "\n") {
				fmt.Fprintln(e.out)
			}
			if err != nil {
				return err
			}
			if !res.ThreadID.IsZero() {
				fmt.Fprintln(e.errOut, DimStyle.Render(fmt.Sprintf("thread %s %s", res.ThreadID, util.StripControl(res.Title))))
			}
			return nil
		},
	}
}

// questionFromArgs joins the arguments, or reads all of in for "-".
func questionFromArgs(c *cli.Context, in io.Reader) (string, error) {
	raw := strings.Join(c.Args().Slice(), " ")
	if raw == "-" {
		data, err := io.ReadAll(in)
		if err != nil {
			return "", fmt.Errorf("read question: %w", err)
		}
		raw = string(data)
	}
	q := session.NormalizeQuestion(raw)
	if q == "" {
		return "", usageErr(c.Command.Name, "question is empty")
	}
	return q, nil
}

// readAnswer drains a stream. Malformed frames are counted and skipped; a
// backend error frame or early close returns the partial answer with a
// *backend.StreamError.
func readAnswer(stream *backend.Stream, onContent func(string)) (askResult, error) {
	var res askResult
	var text strings.Builder
	for {
		frame, err := stream.Next()
		if err != nil {
			res.Answer = text.String()
			if errors.Is(err, io.EOF) {
				return res, nil
			}
			return res, &backend.StreamError{Partial: res.Answer, Err: err}
		}
		switch frame.Kind {
		case backend.FrameContent:
			text.WriteString(frame.Content)
			onContent(frame.Content)
		case backend.FrameMeta:
			if !frame.Meta.ThreadID.IsZero() {
				res.ThreadID = frame.Meta.ThreadID
			}
			if frame.Meta.Title != "" {
				res.Title = frame.Meta.Title
			}
		case backend.FrameMalformed:
			res.Malformed++
		case backend.FrameError:
			res.Answer = text.String()
			return res, &backend.StreamError{Partial: res.Answer, Err: errors.New(frame.Error)}
		case backend.FrameDone:
			res.Answer = text.String()
			return res, nil
		}
	}
}
