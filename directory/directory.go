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

// Package directory implements the split-ordered bucket directory: a
// dynamically-sized array of skiplist.Cell entry points into a single
// shared skiplist.Cell-rooted list, with lazy per-bucket initialization
// and wholesale, racy-but-safe growth.
package directory

import (
	"sync/atomic"

	"github.com/sorl/sparseset/bits"
	"github.com/sorl/sparseset/skiplist"
)

// table is the directory's backing array at one point in time. Growth
// replaces the whole table; it never mutates slots in place.
type table struct {
	slots []skiplist.Cell
}

// Directory is the bucket directory described in spec.md §4.4: slot 0
// is eagerly initialized at construction with the head dummy node
// (sort key 0); every other slot starts uninitialized and is filled in
// on first use by Head.
type Directory struct {
	tbl atomic.Pointer[table]
}

// New creates a directory with the given initial size, which must be a
// power of two >= 2. Slot 0 is initialized eagerly; all others are
// left uninitialized for lazy Head calls to fill in.
func New(initialSize uint32) *Directory {
	slots := make([]skiplist.Cell, initialSize)
	slots[0].Store(skiplist.NewNode(bits.DummySortKey(0)), false)

	d := &Directory{}
	d.tbl.Store(&table{slots: slots})
	return d
}

// Size returns the directory's current length. It is a plain read of
// whichever table is currently published; a concurrent Grow may race
// with it, which is fine per spec.md §4.5 - callers only ever use the
// size to pick a bucket on the table they already have in hand.
func (d *Directory) Size() uint32 {
	return uint32(len(d.tbl.Load().slots))
}

// Head returns the directory-slot cell to use as the list head for key
// k's bucket, initializing that bucket (and, recursively, any
// uninitialized ancestor bucket) if this is the first touch.
func (d *Directory) Head(k uint32) *skiplist.Cell {
	tbl := d.tbl.Load()
	b := k % uint32(len(tbl.slots))
	ensureBucket(tbl, b)
	return &tbl.slots[b]
}

// ensureBucket implements spec.md §4.4's initialize_bucket: recurse to
// the parent first, splice a dummy node in front of the parent's list,
// and idempotently publish it (or the dummy a racing goroutine already
// published) into slots[b].
func ensureBucket(tbl *table, b uint32) {
	if tbl.slots[b].Load().Node != nil {
		return
	}

	parent := bits.Parent(b)
	if parent != b {
		ensureBucket(tbl, parent)
	}

	dummy := skiplist.NewNode(bits.DummySortKey(b))
	parentHead := &tbl.slots[parent]
	if !skiplist.Insert(parentHead, dummy) {
		// Another goroutine already spliced this bucket's dummy in;
		// reuse the one it installed instead of our discarded copy.
		_, cur := skiplist.Find(parentHead, bits.DummySortKey(b))
		dummy = cur.Curr
	}

	// Idempotent publish: if we lose this CAS, whoever won installed
	// the same dummy we would have (skiplist.Insert never allows two
	// distinct dummies for the same bucket to coexist).
	tbl.slots[b].CompareAndSwap(skiplist.MarkedPointer{}, dummy, false)
}

// Grow doubles the directory by publishing a new, twice-as-large table
// whose first half is copied by reference from the current one. No LFL
// node is touched or rehashed; only the indirection widens. At most one
// growth started from a given table succeeds - later callers racing
// against an already-grown directory simply lose the CAS and discard
// their allocation. Grow reports whether this call was the one that
// committed the doubling.
func (d *Directory) Grow() bool {
	old := d.tbl.Load()
	oldLen := uint32(len(old.slots))
	newSlots := make([]skiplist.Cell, oldLen*2)
	for i := uint32(0); i < oldLen; i++ {
		mp := old.slots[i].Load()
		newSlots[i].Store(mp.Node, false)
	}
	return d.tbl.CompareAndSwap(old, &table{slots: newSlots})
}
