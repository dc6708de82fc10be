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
	"github.com/dchest/siphash"
	"golang.org/x/exp/slices"
)

// KeyHandle begins construction of a key for a single lookup or
// insertion. It is returned by KeyIndex.WithKey, which projects a row
// into key bytes via a KeySerializer; the two value accessors below
// complete either a write or a read against that key.
// A KeyHandle is valid only until the next call to WithKey, Clear,
// Close, or Reopen on the index that produced it.
type KeyHandle struct {
	idx KeyIndex
	key []byte
}

// CreateValue returns the mutable 8-byte value slot associated with
// the handle's key, creating the entry if absent or overwriting it in
// place if present. The caller writes the row id into slot[0:8].
//
// Overwrite is required: the newest insertion for a key wins.
func (h KeyHandle) CreateValue() []byte {
	return h.idx.createValue(h.key)
}

// FindValue performs a read-only lookup of the handle's key, returning
// nil if absent.
func (h KeyHandle) FindValue() []byte {
	return h.idx.findValue(h.key)
}

// KeyIndex is the mapping from join key bytes to the row id of the
// most recently qualifying slave row seen for that key. It is consumed
// via four operations; the data structure backing it (a hash table, in
// this package's reference implementation) is an external collaborator.
// Because createValue and findValue are unexported, only types declared
// in this package can satisfy the interface; shardedIndex is the one
// provided.
type KeyIndex interface {
	// Clear removes every entry but keeps any backing capacity.
	Clear()

	// WithKey begins key construction for row, using serializer to
	// project it into key bytes.
	WithKey(row Row, serializer KeySerializer) KeyHandle

	// Close releases backing storage.
	Close() error

	// Reopen reacquires backing storage after Close.
	Reopen() error

	// createValue and findValue are the fixed-width value accessors
	// backing KeyHandle; unexported because a KeyHandle is only ever
	// produced by and fed back into the KeyIndex that created it,
	// within this package.
	createValue(key []byte) []byte
	findValue(key []byte) []byte
}

// shardKeyA, shardKeyB are the fixed siphash key halves used to route
// KeyIndex entries to shards. They need not be secret — the sharding is
// for distribution, not security — so fixed constants (mirroring
// plan.Input.HashSplit's k0/k1) keep shard assignment deterministic
// across Clear/Reopen cycles.
const (
	shardKeyA = 0x5d1ec810febed702
	shardKeyB = 0x40fd7fee17262f71
)

// shardedIndex is the package's reference KeyIndex implementation: a
// fixed number of independently-clearable shards, each a plain Go map
// from string(key) to an 8-byte value slice. Keys are routed to shards
// by siphashing the key bytes, the same deterministic-bucketing
// technique plan.Input.HashSplit uses to assign blocks to workers.
//
// Sharding exists only to keep Clear (called on every rewind) from
// having to walk one enormous map; a single shard is a valid and
// simpler choice for small key spaces.
type shardedIndex struct {
	shards  []map[string][]byte
	keybuf  []byte
	nshards uint64
}

// NewShardedIndex constructs the package's reference KeyIndex with n
// shards (rounded up to at least 1). It is allocated pre-closed — call
// Reopen (or Bind, which calls it) before first use.
func NewShardedIndex(n int) KeyIndex {
	if n < 1 {
		n = 1
	}
	idx := &shardedIndex{nshards: uint64(n)}
	return idx
}

func (idx *shardedIndex) shardFor(key []byte) map[string][]byte {
	h := siphash.Hash(shardKeyA, shardKeyB, key)
	return idx.shards[h%idx.nshards]
}

func (idx *shardedIndex) Clear() {
	for i := range idx.shards {
		shard := idx.shards[i]
		for k := range shard {
			delete(shard, k)
		}
	}
}

func (idx *shardedIndex) WithKey(row Row, serializer KeySerializer) KeyHandle {
	idx.keybuf = serializer.WriteKey(idx.keybuf[:0], row)
	return KeyHandle{idx: idx, key: idx.keybuf}
}

func (idx *shardedIndex) createValue(key []byte) []byte {
	shard := idx.shardFor(key)
	if v, ok := shard[string(key)]; ok {
		return v
	}
	v := make([]byte, 8)
	shard[string(key)] = v
	return v
}

func (idx *shardedIndex) findValue(key []byte) []byte {
	return idx.shardFor(key)[string(key)]
}

func (idx *shardedIndex) Close() error {
	idx.shards = nil
	return nil
}

func (idx *shardedIndex) Reopen() error {
	if idx.shards != nil {
		return nil
	}
	idx.shards = make([]map[string][]byte, idx.nshards)
	for i := range idx.shards {
		idx.shards[i] = make(map[string][]byte)
	}
	return nil
}

// shardSizes returns the number of live entries per shard; used by
// tests and diagnostics only.
func (idx *shardedIndex) shardSizes() []int {
	out := make([]int, len(idx.shards))
	for i := range idx.shards {
		out[i] = len(idx.shards[i])
	}
	return slices.Clone(out)
}
