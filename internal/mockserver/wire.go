// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mockserver

type threadJSON struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	CreatedAt string `json:"created_at"`
}

type messageJSON struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
}

type documentJSON struct {
	ID           int64  `json:"id"`
	Filename     string `json:"filename"`
	SegmentCount int    `json:"segment_count"`
	StoredAt     string `json:"stored_at"`
	ThreadID     *int64 `json:"thread_id"`
}

type segmentJSON struct {
	Index    int    `json:"index"`
	VectorID string `json:"vector_id"`
	Preview  string `json:"preview"`
}

func toThreadJSON(t thread) threadJSON {
	return threadJSON{ID: t.ID, Title: t.Title, CreatedAt: stamp(t.CreatedAt)}
}

func toDocumentJSON(d document) documentJSON {
	out := documentJSON{ID: d.ID, Filename: d.Filename, SegmentCount: len(d.Segments), StoredAt: stamp(d.StoredAt)}
	if d.ThreadID != 0 {
		id := d.ThreadID
		out.ThreadID = &id
	}
	return out
}
