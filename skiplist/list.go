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

package skiplist

// Cursor is the (prev, curr) pair produced by Find: prev is the cell
// that was found to hold curr (a directory slot, or some node's next
// field), made available to the caller for immediate reuse by Insert
// or Delete without a second traversal. No cursor is ever shared across
// goroutines or stored between calls, unlike the source C's global
// cur/next/prev statics.
type Cursor struct {
	Prev     *Cell
	prevMark MarkedPointer
	Curr     *Node
}

// Find walks the list starting at head, looking for the first node
// whose SortKey is >= key. found reports whether that node's SortKey
// equals key exactly. Nodes observed as logically deleted along the
// way are helped: Find physically unlinks them before continuing.
func Find(head *Cell, key uint32) (found bool, cur Cursor) {
retry:
	prev := head
	prevMark := prev.Load()
	curr := prevMark.Node
	for {
		if curr == nil {
			return false, Cursor{Prev: prev, prevMark: prevMark, Curr: nil}
		}

		currNext := curr.next.Load()

		// Re-validate: prev must still point, unmarked, at curr. If it
		// doesn't, some other goroutine changed the edge we're
		// standing on and we must restart from head.
		recheck := prev.Load()
		if recheck.Node != curr || recheck.Deleted {
			goto retry
		}

		if currNext.Deleted {
			// curr is logically deleted; physically unlink it and
			// keep going from its successor.
			if !prev.CompareAndSwap(recheck, currNext.Node, false) {
				goto retry
			}
			curr = currNext.Node
			prevMark = prev.Load()
			continue
		}

		if curr.SortKey >= key {
			return curr.SortKey == key, Cursor{Prev: prev, prevMark: recheck, Curr: curr}
		}
		prev = &curr.next
		prevMark = currNext
		curr = currNext.Node
	}
}

// Next returns n's successor and whether n is currently marked
// logically deleted. It lets callers walk the list directly for
// diagnostics or tests without going through Find.
func Next(n *Node) (succ *Node, deleted bool) {
	mp := n.next.Load()
	return mp.Node, mp.Deleted
}

// Insert publishes node into the list rooted at head. node.SortKey must
// already be set. Returns false without modifying the list if a node
// with the same sort key is already present.
func Insert(head *Cell, node *Node) bool {
	for {
		found, cur := Find(head, node.SortKey)
		if found {
			return false
		}
		node.next.Store(cur.Curr, false)
		if cur.Prev.CompareAndSwap(cur.prevMark, node, false) {
			return true
		}
	}
}

// Delete logically then physically removes the node with the given
// sort key from the list rooted at head. Returns false if no such node
// is present.
func Delete(head *Cell, key uint32) bool {
	for {
		found, cur := Find(head, key)
		if !found {
			return false
		}

		succ := cur.Curr.next.Load()
		if succ.Deleted || !cur.Curr.next.CompareAndSwap(succ, succ.Node, true) {
			// Lost a race with a concurrent delete of the same node
			// (or a concurrent insert just behind it); re-find.
			continue
		}

		if !cur.Prev.CompareAndSwap(cur.prevMark, succ.Node, false) {
			// Physical unlink lost the race; some other traverser
			// will finish it. Help it along once, per spec, and
			// report success regardless - the logical delete above
			// already linearized.
			Find(head, key)
		}
		return true
	}
}
