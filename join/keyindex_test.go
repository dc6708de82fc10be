// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package join

import (
	"encoding/binary"
	"fmt"
	"testing"
)

func TestShardedIndexOverwriteWins(t *testing.T) {
	idx := NewShardedIndex(4)
	if err := idx.Reopen(); err != nil {
		t.Fatal(err)
	}
	row := &testRow{key: "A"}
	ks := testKeySerializer{}

	h := idx.WithKey(row, ks)
	slot := h.CreateValue()
	binary.LittleEndian.PutUint64(slot, 1)

	h = idx.WithKey(row, ks)
	slot = h.CreateValue()
	binary.LittleEndian.PutUint64(slot, 2)

	h = idx.WithKey(row, ks)
	got := h.FindValue()
	if got == nil {
		t.Fatal("expected value present")
	}
	if v := binary.LittleEndian.Uint64(got); v != 2 {
		t.Fatalf("expected overwritten value 2, got %d", v)
	}
}

func TestShardedIndexClearRemovesEntries(t *testing.T) {
	idx := NewShardedIndex(4)
	idx.Reopen()
	row := &testRow{key: "A"}
	ks := testKeySerializer{}
	h := idx.WithKey(row, ks)
	binary.LittleEndian.PutUint64(h.CreateValue(), 1)

	idx.Clear()

	h = idx.WithKey(row, ks)
	if v := h.FindValue(); v != nil {
		t.Fatalf("expected no value after Clear, got %v", v)
	}
}

func TestShardedIndexFindMissingIsNil(t *testing.T) {
	idx := NewShardedIndex(4)
	idx.Reopen()
	h := idx.WithKey(&testRow{key: "nope"}, testKeySerializer{})
	if v := h.FindValue(); v != nil {
		t.Fatalf("expected nil for missing key, got %v", v)
	}
}

func TestShardedIndexCloseReopen(t *testing.T) {
	idx := NewShardedIndex(2)
	if err := idx.Reopen(); err != nil {
		t.Fatal(err)
	}
	row := &testRow{key: "A"}
	ks := testKeySerializer{}
	binary.LittleEndian.PutUint64(idx.WithKey(row, ks).CreateValue(), 7)

	if err := idx.Close(); err != nil {
		t.Fatal(err)
	}
	if err := idx.Reopen(); err != nil {
		t.Fatal(err)
	}
	// Reopen after Close starts from an empty index.
	if v := idx.WithKey(row, ks).FindValue(); v != nil {
		t.Fatalf("expected empty index after close/reopen, got %v", v)
	}
}

func TestShardedIndexDistributesAcrossShards(t *testing.T) {
	si := NewShardedIndex(8).(*shardedIndex)
	si.Reopen()
	ks := testKeySerializer{}
	for i := 0; i < 200; i++ {
		row := &testRow{key: fmt.Sprintf("key-%d", i)}
		binary.LittleEndian.PutUint64(si.WithKey(row, ks).CreateValue(), uint64(i))
	}
	sizes := si.shardSizes()
	nonEmpty := 0
	for _, n := range sizes {
		if n > 0 {
			nonEmpty++
		}
	}
	if nonEmpty < 2 {
		t.Fatalf("expected keys spread across multiple shards, got sizes %v", sizes)
	}
}
