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

// Package sparseset is a lock-free, concurrent, extensible hash set
// keyed by uint32, built on the split-ordered-list technique of Shalev
// and Shavit: a single lock-free ordered list (package skiplist) holds
// every key, and a growable bucket directory (package directory) gives
// O(1) expected entry points into it. Growing the set never rehashes
// existing keys - growth only splices new dummy delimiters into the
// already-ordered list.
package sparseset

import (
	"errors"
	"sync/atomic"

	"github.com/sorl/sparseset/bits"
	"github.com/sorl/sparseset/directory"
	"github.com/sorl/sparseset/skiplist"
)

// ErrClosed is the value panicked when a Set is used after Close. Using
// a closed set is a reclamation-contract violation (spec.md §7): a
// program bug, not a recoverable runtime condition.
var ErrClosed = errors.New("sparseset: use of set after Close")

const (
	defaultInitialSize = 16

	// loadFactor is the count/size ratio above which the directory
	// doubles. Fixed at 0.75 per spec.md §4.5; expressed as a pair of
	// integers so the hot path never touches floating point.
	loadFactorNumerator   = 3
	loadFactorDenominator = 4
)

type (
	// Set is the hash-set facade: insert(k), contains(k), remove(k),
	// plus Len and Close. All methods are safe for concurrent use by
	// any number of goroutines.
	Set interface {
		// Insert adds k to the set. Reports true if k was not already
		// present.
		Insert(k uint32) bool

		// Contains reports whether k is currently a member of the set.
		Contains(k uint32) bool

		// Remove deletes k from the set. Reports true if k was
		// present.
		Remove(k uint32) bool

		// Len returns an approximate count of live keys, accurate at
		// any instant with no concurrent mutation in flight.
		Len() int

		// Close marks the set closed; any later Insert, Contains or
		// Remove panics with ErrClosed. Must be called only once no
		// other goroutine holds a reference to the set.
		Close()
	}

	set struct {
		dir     *directory.Directory
		count   atomic.Uint64
		growing atomic.Bool
		closed  atomic.Bool
		growths atomic.Uint64
	}

	// Option configures a Set at construction, mirroring the teacher
	// hashmap package's functional-option style.
	Option func(*config)

	config struct {
		initialSize uint32
	}
)

// WithInitialSize sets the directory's initial size, which must be a
// power of two >= 2. Without this option the size is 16; a value below
// 2, including 0, is raised to 2.
func WithInitialSize(n uint32) Option {
	return func(c *config) {
		c.initialSize = n
	}
}

// New creates an empty Set.
func New(opts ...Option) Set {
	c := config{initialSize: defaultInitialSize}
	for _, opt := range opts {
		opt(&c)
	}
	if c.initialSize < 2 {
		c.initialSize = 2
	}

	return &set{dir: directory.New(c.initialSize)}
}

func (s *set) Insert(k uint32) bool {
	if s.closed.Load() {
		panic(ErrClosed)
	}
	head := s.dir.Head(k)
	node := skiplist.NewNode(bits.RegularSortKey(k))
	if !skiplist.Insert(head, node) {
		return false
	}

	size := s.dir.Size()
	newCount := s.count.Add(1)
	if newCount*loadFactorDenominator > uint64(size)*loadFactorNumerator {
		s.maybeGrow()
	}
	return true
}

func (s *set) Contains(k uint32) bool {
	if s.closed.Load() {
		panic(ErrClosed)
	}
	head := s.dir.Head(k)
	found, _ := skiplist.Find(head, bits.RegularSortKey(k))
	return found
}

func (s *set) Remove(k uint32) bool {
	if s.closed.Load() {
		panic(ErrClosed)
	}
	head := s.dir.Head(k)
	if !skiplist.Delete(head, bits.RegularSortKey(k)) {
		return false
	}
	s.count.Add(^uint64(0))
	return true
}

func (s *set) Len() int {
	return int(s.count.Load())
}

// DirectorySize returns the bucket directory's current slot count.
func (s *set) DirectorySize() uint32 {
	return s.dir.Size()
}

// Growths returns the number of times the bucket directory has
// doubled. Exposed for the metrics package; not part of the Set
// interface itself.
func (s *set) Growths() uint64 {
	return s.growths.Load()
}

func (s *set) Close() {
	s.closed.Store(true)
}

// maybeGrow requests directory growth, gated so that at most one
// goroutine actually reallocates for a given starting size (the
// open-question resolution in DESIGN.md: sampling count/size right
// after an increment can otherwise re-trigger growth repeatedly right
// after a successful doubling). Losing the gate, or losing the
// underlying directory.Grow race, is invisible to the caller - growth
// is always advisory, never a correctness precondition per spec.md §9.
func (s *set) maybeGrow() {
	if !s.growing.CompareAndSwap(false, true) {
		return
	}
	defer s.growing.Store(false)
	if s.dir.Grow() {
		s.growths.Add(1)
	}
}
