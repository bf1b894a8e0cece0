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

package sparseset

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sorl/sparseset/bits"
	"github.com/sorl/sparseset/skiplist"
)

// TestScenarioEndToEnd is spec.md §8's literal end-to-end walkthrough
// (scenarios 1-4), the same sequence original_source/hash.c's main()
// prints.
func TestScenarioEndToEnd(t *testing.T) {
	req := require.New(t)

	s := New(WithInitialSize(16))

	// 1. create(16); contains(0) -> false; contains(10) -> false.
	req.False(s.Contains(0))
	req.False(s.Contains(10))

	// 2. insert(0) -> true; insert(26) -> true;
	//    contains(0) -> true; contains(10) -> false.
	req.True(s.Insert(0))
	req.True(s.Insert(26))
	req.True(s.Contains(0))
	req.False(s.Contains(10))

	// 3. remove(0) -> true; contains(0) -> false; contains(26) -> true.
	req.True(s.Remove(0))
	req.False(s.Contains(0))
	req.True(s.Contains(26))

	// 4. insert(5) -> true; insert(5) -> false; insert(5) -> false;
	//    starting fresh + three insert(5), len() == 1.
	fresh := New(WithInitialSize(16))
	req.True(fresh.Insert(5))
	req.False(fresh.Insert(5))
	req.False(fresh.Insert(5))
	req.Equal(1, fresh.Len())
}

// TestScenarioGrowthTransparentMembership is spec.md §8 scenario 5:
// inserting keys 0..49 must grow the directory (16 -> 32 at count 13,
// 32 -> 64 at count 25) while every inserted key remains findable.
func TestScenarioGrowthTransparentMembership(t *testing.T) {
	req := require.New(t)

	s := New(WithInitialSize(16)).(*set)
	for i := uint32(0); i < 50; i++ {
		req.True(s.Insert(i))
	}

	req.GreaterOrEqual(s.dir.Size(), uint32(64))
	for i := uint32(0); i < 50; i++ {
		req.True(s.Contains(i))
	}
	req.Equal(50, s.Len())
}

// TestScenarioListOrderInterleavesDummiesAndRegulars is spec.md §8
// scenario 6: after inserting 1, 3, 5, 7, 9 the LFL, walked in sort-key
// order from the bucket-0 dummy, must be strictly ascending with no two
// regular keys sharing a sort key.
func TestScenarioListOrderInterleavesDummiesAndRegulars(t *testing.T) {
	req := require.New(t)

	s := New(WithInitialSize(16)).(*set)
	for _, k := range []uint32{1, 3, 5, 7, 9} {
		req.True(s.Insert(k))
	}

	head := s.dir.Head(0)
	node := head.Load().Node
	req.NotNil(node)

	var sortKeys []uint32
	var regularSortKeys []uint32
	seen := map[uint32]bool{}
	for n := node; n != nil; {
		req.False(seen[n.SortKey], "duplicate sort key %d", n.SortKey)
		seen[n.SortKey] = true
		sortKeys = append(sortKeys, n.SortKey)
		if bits.IsRegular(n.SortKey) {
			regularSortKeys = append(regularSortKeys, n.SortKey)
		}
		succ, _ := skiplist.Next(n)
		n = succ
	}

	for i := 1; i < len(sortKeys); i++ {
		req.Less(sortKeys[i-1], sortKeys[i])
	}
	req.ElementsMatch([]uint32{
		bits.RegularSortKey(1),
		bits.RegularSortKey(3),
		bits.RegularSortKey(5),
		bits.RegularSortKey(7),
		bits.RegularSortKey(9),
	}, regularSortKeys)
}
