// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
)

// Fault markers recognised in questions.
const (
	MarkerFail      = "[[fail]]"
	MarkerDrop      = "[[drop]]"
	MarkerMalformed = "[[malformed]]"
	MarkerHTTP500   = "[[http500]]"
	MarkerSlow      = "[[slow]]"
)

// Answer returns the text the server streams for question in a thread
// holding docs documents.
func Answer(question string, docs int) string {
	q := strings.TrimSpace(stripMarkers(question))
	return fmt.Sprintf("You asked: **%s**\n\nThis answer draws on %d document(s) in this thread.", q, docs)
}

func stripMarkers(q string) string {
	for _, m := range []string{MarkerFail, MarkerDrop, MarkerMalformed, MarkerHTTP500, MarkerSlow} {
		q = strings.ReplaceAll(q, m, "")
	}
	return q
}

func (s *Server) handleAsk(c echo.Context) error {
	question := strings.TrimSpace(c.QueryParam("question"))
	if question == "" {
		return c.JSON(http.StatusBadRequest, errorBody("question must not be empty"))
	}
	if strings.Contains(question, MarkerHTTP500) {
		return c.JSON(http.StatusInternalServerError, errorBody("internal server error, please retry later"))
	}

	var (
		threadID int64
		title    string
	)
	if id, ok := parseID(c.QueryParam("thread_id")); ok {
		if _, exists := s.store.getThread(id); !exists {
			return c.JSON(http.StatusNotFound, errorBody("thread not found"))
		}
		threadID = id
	} else {
		// A question without a thread opens one and names it.
		title = titleFor(stripMarkers(question))
		threadID = s.store.createThread(title).ID
	}
	s.store.addMessage(threadID, "user", question)

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	delay := s.opts.WordDelay
	if strings.Contains(question, MarkerSlow) {
		delay *= 10
	}

	send := func(v any) error {
		payload, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return s.writeEvent(c, string(payload))
	}

	answer := Answer(question, len(s.store.listDocuments(threadID)))
	words := strings.SplitAfter(answer, " ")
	var sent strings.Builder
	ctx := c.Request().Context()

	for i, word := range words {
		if i == 2 && strings.Contains(question, MarkerFail) {
			if err := send(map[string]string{"error": "model backend unavailable"}); err != nil {
				return nil
			}
			s.writeEvent(c, "[DONE]")
			return nil
		}
		if i == 2 && strings.Contains(question, MarkerDrop) {
			return nil
		}
		if i == 1 && strings.Contains(question, MarkerMalformed) {
			if err := s.writeEvent(c, "{not json"); err != nil {
				return nil
			}
		}

		if delay > 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(delay):
			}
		}
		if err := send(map[string]string{"content": word}); err != nil {
			return nil
		}
		sent.WriteString(word)
	}

	s.store.addMessage(threadID, "assistant", sent.String())

	meta := map[string]any{"thread_id": threadID}
	if title != "" {
		meta["title"] = title
	}
	if err := send(map[string]any{"meta": meta}); err != nil {
		return nil
	}
	s.writeEvent(c, "[DONE]")
	return nil
}

func (s *Server) writeEvent(c echo.Context, data string) error {
	w := c.Response()
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	w.Flush()
	return c.Request().Context().Err()
}
