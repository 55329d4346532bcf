// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package view

import (
	"github.com/google/uuid"

	"github.com/jeranaias/cola-tui/internal/util"
)

// =============================================================================
// NODE
// =============================================================================

// Kind classifies a message node.
type Kind int

const (
	KindUser Kind = iota
	KindAssistant
	// KindPlaceholder is informational text such as "loading" or "empty".
	KindPlaceholder
)

// Node is one message block.
type Node struct {
	ID     string
	Kind   Kind
	Status string
	Body   string
	Err    string

	parent  *Container
	changed func()
}

func newNode(kind Kind, changed func()) *Node {
	return &Node{ID: uuid.NewString(), Kind: kind, changed: changed}
}

func (n *Node) touch() {
	if n.changed != nil {
		n.changed()
	}
}

// Parent returns the container holding n, or nil.
func (n *Node) Parent() *Container { return n.parent }

// SetStatus sets the header line.
func (n *Node) SetStatus(status string) {
	n.Status = status
	n.touch()
}

// SetBody replaces the rendered body.
func (n *Node) SetBody(rendered string) {
	n.Body = rendered
	n.touch()
}

// SetError sets the failure line shown under the body. The message may
// carry server text, so control sequences are removed.
func (n *Node) SetError(message string) {
	n.Err = util.StripControl(message)
	n.touch()
}

// =============================================================================
// CONTAINER
// =============================================================================

// Container is an ordered list of nodes.
type Container struct {
	Name     string
	children []*Node
	changed  func()
}

// Append moves n to the end of c, detaching it from its current parent.
func (c *Container) Append(n *Node) {
	if n.parent != nil {
		n.parent.Remove(n)
	}
	n.parent = c
	c.children = append(c.children, n)
	c.touch()
}

// Remove detaches n if c holds it.
func (c *Container) Remove(n *Node) bool {
	for i, child := range c.children {
		if child == n {
			c.children = append(c.children[:i], c.children[i+1:]...)
			n.parent = nil
			c.touch()
			return true
		}
	}
	return false
}

// Contains reports whether n is a direct child of c.
func (c *Container) Contains(n *Node) bool {
	return n != nil && n.parent == c
}

// Children returns a copy of the child list.
func (c *Container) Children() []*Node {
	return append([]*Node(nil), c.children...)
}

// Len returns the number of children.
func (c *Container) Len() int { return len(c.children) }

// Clear detaches every child.
func (c *Container) Clear() {
	for _, child := range c.children {
		child.parent = nil
	}
	c.children = nil
	c.touch()
}

// RemoveKind detaches every child of the given kind.
func (c *Container) RemoveKind(kind Kind) {
	kept := c.children[:0]
	for _, child := range c.children {
		if child.Kind == kind {
			child.parent = nil
			continue
		}
		kept = append(kept, child)
	}
	for i := len(kept); i < len(c.children); i++ {
		c.children[i] = nil
	}
	c.children = kept
	c.touch()
}

func (c *Container) touch() {
	if c.changed != nil {
		c.changed()
	}
}

// =============================================================================
// TREE
// =============================================================================

// Tree is the visible message area plus the background holder.
type Tree struct {
	Messages   *Container
	Background *Container
	revision   uint64
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	t := &Tree{}
	t.Messages = &Container{Name: "messages", changed: t.bump}
	t.Background = &Container{Name: "background", changed: t.bump}
	return t
}

func (t *Tree) bump() { t.revision++ }

// Revision increases on every change to the tree or any node in it.
func (t *Tree) Revision() uint64 { return t.revision }

// NewNode creates a detached node whose changes bump the tree revision.
func (t *Tree) NewNode(kind Kind) *Node {
	return newNode(kind, t.bump)
}
