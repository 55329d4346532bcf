// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL).WithHTTPClient(server.Client()).WithCookie("session=abc")
}

func TestID_UnmarshalJSON(t *testing.T) {
	var v struct {
		A ID `json:"a"`
		B ID `json:"b"`
		C ID `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a":12,"b":"t-9","c":null}`), &v))
	require.Equal(t, ID("12"), v.A)
	require.Equal(t, ID("t-9"), v.B)
	require.True(t, v.C.IsZero())

	out, err := json.Marshal(struct {
		A ID `json:"a"`
		B ID `json:"b"`
	}{"12", "t-9"})
	require.NoError(t, err)
	require.JSONEq(t, `{"a":12,"b":"t-9"}`, string(out))
}

func TestListThreads(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/threads", r.URL.Path)
		require.Equal(t, "session=abc", r.Header.Get("Cookie"))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"items":[{"id":1,"title":"first","created_at":"2024-01-01 10:00:00"},{"id":"2","title":"对话#2"}]}`)
	})

	threads, err := client.ListThreads(context.Background())
	require.NoError(t, err)
	require.Len(t, threads, 2)
	require.Equal(t, ID("1"), threads[0].ID)
	require.Equal(t, "对话#2", threads[1].Title)
}

func TestCreateThread(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "", body["title"])
		fmt.Fprint(w, `{"thread_id":42}`)
	})

	id, err := client.CreateThread(context.Background(), "")
	require.NoError(t, err)
	require.Equal(t, ID("42"), id)
}

func TestCreateThread_MissingID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{}`)
	})
	_, err := client.CreateThread(context.Background(), "")
	require.ErrorIs(t, err, ErrNoThreadCreated)
}

func TestAPIErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/threads":
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"未登录"}`)
		case "/threads/9/messages":
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error":"未找到线程或无权限"}`)
		default:
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "plain failure")
		}
	})

	_, err := client.ListThreads(context.Background())
	require.ErrorIs(t, err, ErrUnauthorized)

	_, err = client.ListMessages(context.Background(), "9")
	require.ErrorIs(t, err, ErrNotFound)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, "未找到线程或无权限", apiErr.Message)

	_, err = client.ListSegments(context.Background(), "3")
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusInternalServerError, apiErr.Status)
	require.Equal(t, "plain failure", apiErr.Message)
}

func TestDeleteDocument_SendsThread(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/my_documents/5", r.URL.Path)
		require.Equal(t, "7", r.URL.Query().Get("thread_id"))
		fmt.Fprint(w, `{"success":false,"error":"请求的会话与文档所属会话不匹配"}`)
	})

	err := client.DeleteDocument(context.Background(), "5", "7")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Contains(t, apiErr.Message, "不匹配")
}

func TestListDocuments_Scoped(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("thread_id") == "3" {
			fmt.Fprint(w, `{"items":[{"id":1,"filename":"a.txt","segment_count":2}]}`)
			return
		}
		fmt.Fprint(w, `{"items":[]}`)
	})

	docs, err := client.ListDocuments(context.Background(), "3")
	require.NoError(t, err)
	require.Len(t, docs, 1)
	require.Equal(t, 2, docs[0].SegmentCount)

	docs, err = client.ListDocuments(context.Background(), "")
	require.NoError(t, err)
	require.Empty(t, docs)
}

func TestGenerateTitle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body titleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if body.Question == "blank" {
			fmt.Fprint(w, `{"title":"  "}`)
			return
		}
		fmt.Fprint(w, `{"title":"Widgets explained"}`)
	})

	title, err := client.GenerateTitle(context.Background(), "What is X?", "1")
	require.NoError(t, err)
	require.Equal(t, "Widgets explained", title)

	_, err = client.GenerateTitle(context.Background(), "blank", "1")
	require.ErrorIs(t, err, ErrNoTitle)
}

func TestAsk_Streams(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/ask", r.URL.Path)
		require.Equal(t, "What is X?", r.URL.Query().Get("question"))
		require.Equal(t, "4", r.URL.Query().Get("thread_id"))
		require.Equal(t, "text/event-stream", r.Header.Get("Accept"))

		w.Header().Set("Content-Type", "text/event-stream")
		flusher := w.(http.Flusher)
		for _, payload := range []string{`{"content":"X is"}`, `{"content":" a widget."}`, `{"meta":{"thread_id":4,"title":"X"}}`, "[DONE]"} {
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	})

	stream, err := client.Ask(context.Background(), "What is X?", "4")
	require.NoError(t, err)
	defer stream.Close()

	var kinds []FrameKind
	for {
		f, err := stream.Next()
		require.NoError(t, err)
		kinds = append(kinds, f.Kind)
		if f.Terminal() {
			break
		}
	}
	require.Equal(t, []FrameKind{FrameContent, FrameContent, FrameMeta, FrameDone}, kinds)
}

func TestAsk_RejectsEmptyAndHTTPErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"问题不能为空"}`)
	})

	_, err := client.Ask(context.Background(), "   ", "")
	require.ErrorIs(t, err, ErrEmptyQuestion)

	_, err = client.Ask(context.Background(), "hi", "")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, http.StatusBadRequest, apiErr.Status)
}

func TestAsk_CloseUnblocksNext(t *testing.T) {
	release := make(chan struct{})
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: {\"content\":\"slow\"}\n\n")
		w.(http.Flusher).Flush()
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)

	stream, err := client.Ask(context.Background(), "hi", "1")
	require.NoError(t, err)

	f, err := stream.Next()
	require.NoError(t, err)
	require.Equal(t, "slow", f.Content)

	require.NoError(t, stream.Close())
	_, err = stream.Next()
	require.Error(t, err)
}

func TestUpload_FallsBackAcrossPaths(t *testing.T) {
	var tried []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		tried = append(tried, r.URL.Path)
		if r.URL.Path == "/upload" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		require.NoError(t, r.ParseMultipartForm(1<<20))
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		data, _ := io.ReadAll(file)
		require.Equal(t, "notes.md", header.Filename)
		require.Equal(t, "# notes", string(data))
		require.Equal(t, "8", r.FormValue("thread_id"))
		fmt.Fprint(w, "stored ok")
	})
	client.WithUploadPaths("/upload_file")

	res, err := client.Upload(context.Background(), "/tmp/notes.md", strings.NewReader("# notes"), "8")
	require.NoError(t, err)
	require.Equal(t, []string{"/upload", "/upload_file"}, tried)
	require.Equal(t, "/upload_file", res.Path)
	require.Equal(t, "stored ok", res.Text)
	require.True(t, res.Success)
}

func TestUpload_JSONResponse(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"success":true,"thread_id":11,"message":"3 segments"}`)
	})
	res, err := client.Upload(context.Background(), "a.txt", strings.NewReader("x"), "")
	require.NoError(t, err)
	require.Equal(t, ID("11"), res.ThreadID)
	require.Equal(t, "3 segments", res.Message)
}

func TestUpload_UnauthorizedStops(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})
	client.WithUploadPaths("/upload_file")

	_, err := client.Upload(context.Background(), "a.txt", strings.NewReader("x"), "")
	require.ErrorIs(t, err, ErrUnauthorized)
	require.Equal(t, 1, calls)
}
