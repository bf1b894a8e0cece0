// Copyright 2024 sorl authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package skiplist implements the ordered lock-free list (LFL): a single
// intrusive singly-linked list of nodes sorted ascending by a 32-bit
// sort key, with lock-free Find/Insert/Delete and Harris/Michael-style
// logical-then-physical deletion.
package skiplist

import "sync/atomic"

// Node is an element of the list. SortKey is write-once before the node
// is published by a successful Insert and must never change afterward.
type Node struct {
	SortKey uint32
	next    Cell
}

// NewNode allocates a node for the given sort key. The node is not part
// of any list until it wins an Insert.
func NewNode(sortKey uint32) *Node {
	return &Node{SortKey: sortKey}
}

// link is the immutable payload of a Cell: a node reference paired with
// the one-bit deletion mark. A Cell is updated by replacing which *link
// it points to, never by mutating a link in place, so that comparing
// the link pointer is equivalent to comparing the (node, deleted) pair
// it denotes.
type link struct {
	node    *Node
	deleted bool
}

// Cell is an atomically updatable marked pointer: a Node reference plus
// a one-bit deletion mark, read and updated as a single atomic word. A
// Node's outgoing edge and a directory slot are both Cells, so
// Find/Insert/Delete operate uniformly over either one as "head".
//
// Go's garbage collector forbids stealing the low alignment bit of a
// real pointer (a tagged value is not a valid pointer and the collector
// may not observe it correctly), so the mark rides alongside the
// pointer in a small immutable struct instead of inside it - the same
// indirection Java's AtomicMarkableReference uses for the same reason.
type Cell struct {
	v atomic.Pointer[link]
}

// MarkedPointer is a point-in-time read of a Cell, carrying an opaque
// witness so the exact same observation can be compared-and-swapped
// back without a second load.
type MarkedPointer struct {
	Node    *Node
	Deleted bool
	witness *link
}

// Load atomically reads the cell.
func (c *Cell) Load() MarkedPointer {
	l := c.v.Load()
	if l == nil {
		return MarkedPointer{}
	}
	return MarkedPointer{Node: l.node, Deleted: l.deleted, witness: l}
}

// Store unconditionally publishes (node, deleted) into the cell. Used
// only before the cell is reachable from any other goroutine (a new
// node's own next field) or for idempotent directory publication.
func (c *Cell) Store(node *Node, deleted bool) {
	c.v.Store(&link{node: node, deleted: deleted})
}

// CompareAndSwap atomically replaces the cell's contents with
// (node, deleted), but only if the cell still holds the exact
// observation captured in expect.
func (c *Cell) CompareAndSwap(expect MarkedPointer, node *Node, deleted bool) bool {
	return c.v.CompareAndSwap(expect.witness, &link{node: node, deleted: deleted})
}
