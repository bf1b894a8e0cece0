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

package directory

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sorl/sparseset/bits"
	"github.com/sorl/sparseset/skiplist"
)

func TestNewSeedsBucketZero(t *testing.T) {
	req := require.New(t)

	d := New(16)
	req.EqualValues(16, d.Size())

	head := d.Head(0)
	mp := head.Load()
	req.NotNil(mp.Node)
	req.Equal(bits.DummySortKey(0), mp.Node.SortKey)
}

func TestHeadInitializesParentBeforeChild(t *testing.T) {
	req := require.New(t)

	d := New(16)
	head := d.Head(5)
	req.NotNil(head.Load().Node)

	// Read the parent slot directly: going through Head would initialize
	// it on its own and prove nothing about Head(5).
	parent := d.tbl.Load().slots[bits.Parent(5)].Load().Node
	req.NotNil(parent)
}

func TestHeadIsIdempotent(t *testing.T) {
	req := require.New(t)

	d := New(16)
	a := d.Head(9)
	b := d.Head(9)
	req.Same(a.Load().Node, b.Load().Node)
}

func TestConcurrentHeadInitializesExactlyOneDummy(t *testing.T) {
	d := New(16)

	const workers = 32
	nodes := make([]*skiplist.Node, workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(idx int) {
			defer wg.Done()
			nodes[idx] = d.Head(11).Load().Node
		}(i)
	}
	wg.Wait()

	first := nodes[0]
	require.NotNil(t, first)
	for _, n := range nodes {
		require.Same(t, first, n)
	}
}

func TestGrowDoublesAndPreservesBuckets(t *testing.T) {
	req := require.New(t)

	d := New(4)
	h1 := d.Head(1)
	dummy1 := h1.Load().Node

	d.Grow()
	req.EqualValues(8, d.Size())

	// Bucket 1's dummy must still be reachable at the same position in
	// the grown table (copied by reference, not recreated).
	h1Again := d.Head(1)
	req.Same(dummy1, h1Again.Load().Node)
}

func TestGrowLoserDiscardsItsAllocation(t *testing.T) {
	d := New(4)

	const workers = 8
	var wins atomic.Int32
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			if d.Grow() {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	// Each Grow that reports true doubled the table it started from
	// exactly once; a Grow that lost the CAS left no trace. A call that
	// starts after another has committed grows the new table again, so
	// the number of winners depends on scheduling.
	require.GreaterOrEqual(t, wins.Load(), int32(1))
	require.EqualValues(t, uint32(4)<<wins.Load(), d.Size())
}
