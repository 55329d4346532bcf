// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package view

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cola-tui/internal/backend"
	"github.com/jeranaias/cola-tui/internal/session"
)

func TestContainer_AppendReparents(t *testing.T) {
	tree := NewTree()
	n := tree.NewNode(KindAssistant)

	tree.Messages.Append(n)
	require.True(t, tree.Messages.Contains(n))
	require.Same(t, tree.Messages, n.Parent())

	tree.Background.Append(n)
	require.False(t, tree.Messages.Contains(n))
	require.True(t, tree.Background.Contains(n))
	require.Equal(t, 0, tree.Messages.Len())
	require.Equal(t, 1, tree.Background.Len())

	tree.Background.Append(n)
	require.Equal(t, 1, tree.Background.Len(), "re-appending never duplicates")
}

func TestContainer_ClearAndRemoveKind(t *testing.T) {
	tree := NewTree()
	a := tree.NewNode(KindPlaceholder)
	b := tree.NewNode(KindUser)
	c := tree.NewNode(KindPlaceholder)
	for _, n := range []*Node{a, b, c} {
		tree.Messages.Append(n)
	}

	tree.Messages.RemoveKind(KindPlaceholder)
	require.Equal(t, []*Node{b}, tree.Messages.Children())
	require.Nil(t, a.Parent())

	tree.Messages.Clear()
	require.Nil(t, b.Parent())
	require.Equal(t, 0, tree.Messages.Len())
}

func TestTree_RevisionTracksNodeChanges(t *testing.T) {
	tree := NewTree()
	n := tree.NewNode(KindAssistant)
	rev := tree.Revision()
	n.SetBody("x")
	require.Greater(t, tree.Revision(), rev)
}

func newTestScreen() *Screen {
	return NewScreen(&LineInput{}, Options{
		TimezoneOffset: 8,
		Now:            func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
}

func TestScreen_ShowHistory(t *testing.T) {
	s := newTestScreen()
	s.ShowHistory([]backend.Message{
		{Role: "user", Content: "hi", CreatedAt: "2024-01-01T02:00:00Z"},
		{Role: "assistant", Content: "hello", CreatedAt: "2024-01-01 10:00:01"},
	})

	nodes := s.Tree.Messages.Children()
	require.Len(t, nodes, 2)
	require.Equal(t, KindUser, nodes[0].Kind)
	require.Equal(t, "user · 2024-01-01 10:00:00", nodes[0].Status)
	require.Equal(t, KindAssistant, nodes[1].Kind)
	require.Equal(t, "assistant · 2024-01-01 10:00:01", nodes[1].Status)
}

func TestScreen_EmptyHistoryThenUserMessage(t *testing.T) {
	s := newTestScreen()
	s.ShowHistory(nil)
	require.Equal(t, KindPlaceholder, s.Tree.Messages.Children()[0].Kind)

	s.AppendUserMessage("What is X?")
	nodes := s.Tree.Messages.Children()
	require.Len(t, nodes, 1)
	require.Equal(t, "What is X?", nodes[0].Body)
	require.Equal(t, "user · 2024-01-01 08:00:00", nodes[0].Status)
}

func TestScreen_MountAndPark(t *testing.T) {
	s := newTestScreen()
	answer := s.NewAnswer()
	node := answer.(*Node)
	require.Nil(t, node.Parent())

	s.Mount(answer)
	require.True(t, s.Tree.Messages.Contains(node))
	s.Park(answer)
	require.True(t, s.Tree.Background.Contains(node))

	s.ShowHistory(nil)
	require.True(t, s.Tree.Background.Contains(node), "history redraw leaves parked answers alone")
}

func TestScreen_ReleaseDropsOnlyParkedAnswers(t *testing.T) {
	s := newTestScreen()
	parked := s.NewAnswer()
	shown := s.NewAnswer()
	s.Park(parked)
	s.Mount(shown)

	s.Release(parked)
	s.Release(shown)
	require.Equal(t, 0, s.Tree.Background.Len())
	require.Nil(t, parked.(*Node).Parent())
	require.True(t, s.Tree.Messages.Contains(shown.(*Node)))
}

func TestScreen_ServerErrorsAreStripped(t *testing.T) {
	s := newTestScreen()
	answer := s.NewAnswer()
	answer.SetError("Error: boom \x1b]0;PWNED\x07\x1b[2J")
	require.Equal(t, "Error: boom ", answer.(*Node).Err)

	s.Notify(session.NoticeError, "Delete failed: \x1b[31mred\x1b[0m")
	n, ok := s.LastNotice()
	require.True(t, ok)
	require.Equal(t, "Delete failed: red", n.Text)

	s.ShowHistoryError(errors.New("bad \x1b[2Jgateway"))
	require.Equal(t, "Error: bad gateway", s.Tree.Messages.Children()[0].Body)
}

func TestScreen_InputAndNotices(t *testing.T) {
	s := newTestScreen()
	s.SetInputText("draft")
	require.Equal(t, "draft", s.InputText())

	for i := 0; i < maxNotices+5; i++ {
		s.Notify(session.NoticeInfo, "n")
	}
	require.Len(t, s.Notices, maxNotices)

	s.Notify(session.NoticeError, "last")
	n, ok := s.LastNotice()
	require.True(t, ok)
	require.Equal(t, "last", n.Text)
}

func TestScreen_ListErrors(t *testing.T) {
	s := newTestScreen()
	s.ShowDocuments([]backend.Document{{ID: "1"}})
	s.ShowDocumentsError(errors.New("boom"))
	require.Nil(t, s.Documents)
	require.EqualError(t, s.DocumentsErr, "boom")

	s.ShowSegments("1", []backend.Segment{{Index: 1}})
	s.ResetSegmentPreview()
	require.Nil(t, s.Segments)
	require.True(t, s.SegmentDoc.IsZero())
}
