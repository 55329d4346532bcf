// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
)

// Options configures a Server.
type Options struct {
	// WordDelay is the pause between streamed words.
	WordDelay time.Duration
	// Cookie, when set, must be sent verbatim in the Cookie header.
	Cookie string
	// DisableUploadPath makes /upload answer 404 so clients fall back to
	// /api/upload.
	DisableUploadPath bool
	Now               func() time.Time
	Logger            zerolog.Logger
}

// Server is the mock backend.
type Server struct {
	echo  *echo.Echo
	store *store
	opts  Options
}

// New builds a server with its routes registered.
func New(opts Options) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	s := &Server{echo: e, store: newStore(opts.Now), opts: opts}
	e.Use(s.requestLogger)
	if opts.Cookie != "" {
		e.Use(s.requireCookie)
	}

	e.GET("/threads", s.handleListThreads)
	e.POST("/threads", s.handleCreateThread)
	e.DELETE("/threads/:id", s.handleDeleteThread)
	e.GET("/threads/:id/messages", s.handleListMessages)

	e.GET("/ask", s.handleAsk)
	e.POST("/generate_title", s.handleGenerateTitle)

	e.GET("/my_documents", s.handleListDocuments)
	e.GET("/my_documents/:id/segments", s.handleListSegments)
	e.DELETE("/my_documents/:id", s.handleDeleteDocument)

	if !opts.DisableUploadPath {
		e.POST("/upload", s.handleUpload)
	}
	e.POST("/api/upload", s.handleUpload)
	return s
}

// ServeHTTP makes the server usable with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown stops the listener and waits for open streams.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// SeedThread adds a thread with history and returns its id.
func (s *Server) SeedThread(title string, turns ...string) string {
	t := s.store.createThread(title)
	for i, content := range turns {
		role := "user"
		if i%2 == 1 {
			role = "assistant"
		}
		s.store.addMessage(t.ID, role, content)
	}
	return itoa(t.ID)
}

// SeedDocument adds a document to thread ("" for unscoped) and returns its id.
func (s *Server) SeedDocument(thread, filename, text string) string {
	id, _ := parseID(thread)
	return itoa(s.store.addDocument(filename, id, text).ID)
}

// =============================================================================
// MIDDLEWARE
// =============================================================================

func (s *Server) requestLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		s.opts.Logger.Debug().
			Str("method", c.Request().Method).
			Str("path", c.Request().URL.Path).
			Int("status", c.Response().Status).
			Dur("took", time.Since(start)).
			Msg("request")
		return err
	}
}

func (s *Server) requireCookie(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Request().Header.Get("Cookie") != s.opts.Cookie {
			return c.JSON(http.StatusUnauthorized, errorBody("not logged in"))
		}
		return next(c)
	}
}

// =============================================================================
// THREADS
// =============================================================================

func (s *Server) handleListThreads(c echo.Context) error {
	items := make([]threadJSON, 0)
	for _, t := range s.store.listThreads() {
		items = append(items, toThreadJSON(t))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleCreateThread(c echo.Context) error {
	var req struct {
		Title string `json:"title"`
	}
	if c.Request().ContentLength != 0 {
		if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			return c.JSON(http.StatusBadRequest, errorBody("invalid body"))
		}
	}
	t := s.store.createThread(strings.TrimSpace(req.Title))
	return c.JSON(http.StatusOK, map[string]any{"thread_id": t.ID})
}

func (s *Server) handleDeleteThread(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok || !s.store.deleteThread(id) {
		return c.JSON(http.StatusNotFound, errorBody("thread not found"))
	}
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleListMessages(c echo.Context) error {
	id, ok := parseID(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, errorBody("thread not found"))
	}
	msgs, ok := s.store.listMessages(id)
	if !ok {
		return c.JSON(http.StatusNotFound, errorBody("thread not found"))
	}
	out := make([]messageJSON, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, messageJSON{Role: m.Role, Content: m.Content, CreatedAt: stamp(m.CreatedAt)})
	}
	return c.JSON(http.StatusOK, map[string]any{"messages": out})
}

func (s *Server) handleGenerateTitle(c echo.Context) error {
	var req struct {
		Question string          `json:"question"`
		ThreadID json.RawMessage `json:"thread_id"`
	}
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody("invalid body"))
	}
	if strings.TrimSpace(req.Question) == "" {
		return c.JSON(http.StatusBadRequest, errorBody("question is required"))
	}
	title := titleFor(req.Question)
	if id, ok := parseID(strings.Trim(string(req.ThreadID), `"`)); ok {
		if !s.store.setTitle(id, title) {
			return c.JSON(http.StatusNotFound, errorBody("thread not found"))
		}
	}
	return c.JSON(http.StatusOK, map[string]any{"title": title})
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func (s *Server) handleListDocuments(c echo.Context) error {
	threadID, _ := parseID(c.QueryParam("thread_id"))
	items := make([]documentJSON, 0)
	for _, d := range s.store.listDocuments(threadID) {
		items = append(items, toDocumentJSON(d))
	}
	return c.JSON(http.StatusOK, map[string]any{"items": items})
}

func (s *Server) handleListSegments(c echo.Context) error {
	id, _ := parseID(c.Param("id"))
	d, ok := s.store.getDocument(id)
	if !ok {
		return c.JSON(http.StatusNotFound, errorBody("document not found"))
	}
	segs := make([]segmentJSON, 0, len(d.Segments))
	for i, text := range d.Segments {
		segs = append(segs, segmentJSON{Index: i, VectorID: d.VectorIDs[i], Preview: preview(text)})
	}
	return c.JSON(http.StatusOK, map[string]any{"segments": segs})
}

func (s *Server) handleDeleteDocument(c echo.Context) error {
	id, _ := parseID(c.Param("id"))
	d, ok := s.store.getDocument(id)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]any{"success": false, "error": "document not found"})
	}
	if q, ok := parseID(c.QueryParam("thread_id")); ok && d.ThreadID != 0 && q != d.ThreadID {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "error": "document belongs to another thread"})
	}
	s.store.deleteDocument(id)
	return c.JSON(http.StatusOK, map[string]any{"success": true})
}

func (s *Server) handleUpload(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "error": "no file"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]any{"success": false, "error": err.Error()})
	}

	threadID, scoped := parseID(c.FormValue("thread_id"))
	if scoped {
		if _, ok := s.store.getThread(threadID); !ok {
			return c.JSON(http.StatusNotFound, map[string]any{"success": false, "error": "thread not found"})
		}
	} else {
		threadID = s.store.createThread("").ID
	}

	d := s.store.addDocument(fh.Filename, threadID, string(data))
	return c.JSON(http.StatusOK, map[string]any{
		"success":   true,
		"message":   fmt.Sprintf("stored %d segments", len(d.Segments)),
		"thread_id": threadID,
	})
}

// =============================================================================
// HELPERS
// =============================================================================

func errorBody(msg string) map[string]string {
	return map[string]string{"error": msg}
}

func parseID(raw string) (int64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return 0, false
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func stamp(t time.Time) string { return t.UTC().Format(time.RFC3339) }

func preview(text string) string {
	const max = 200
	r := []rune(text)
	if len(r) > max {
		return string(r[:max]) + "…"
	}
	return text
}
