// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend is the HTTP client for the knowledge-assistant server.
//
// It wraps the JSON list/create/delete endpoints and the /ask server-sent
// event stream. The stream is exposed as a pull-based sequence of Frames so
// callers decide where each frame is applied.
//
// # Key Types
//
//   - Client: REST and SSE client with shared connection pools
//   - Stream: an open /ask response; call Next until a terminal frame
//   - Frame: tagged union of content, error, meta, done and malformed frames
//   - ID: thread/document identifier that accepts JSON strings or numbers
//   - APIError: non-2xx response with the server's error text
//
// # Usage
//
//	client := backend.New(cfg.Server.BaseURL).WithCookie(cfg.Server.Cookie)
//	stream, err := client.Ask(ctx, "What is X?", threadID)
//	if err != nil {
//	    return err
//	}
//	defer stream.Close()
//	for {
//	    frame, err := stream.Next()
//	    if err != nil || frame.Terminal() {
//	        break
//	    }
//	    fmt.Print(frame.Content)
//	}
package backend
