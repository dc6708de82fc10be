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

import "context"

// NullRowID is the sentinel row identifier meaning "no slave row seen
// for this key (or no dangling row held) yet." It must lie outside the
// domain of every real row id produced by a Source.
const NullRowID int64 = -1

// NegInfTimestamp is the sentinel timestamp used to initialize
// JoinCursor.slaveTimestamp before any slave row has been observed. It
// must compare less than or equal to every real timestamp a Source can
// produce.
const NegInfTimestamp int64 = -1 << 63

// Row is the capability set the join operator needs out of a single
// record, whether produced by the master or the slave source.
type Row interface {
	// Timestamp reads the designated timestamp column as an int64 in
	// the engine's time unit.
	Timestamp(columnIndex int) int64

	// RowID returns the stable row identifier of this record within
	// its owning Source. Only meaningful for slave rows.
	RowID() int64
}

// KeySerializer projects a Row into the stable byte shape used as a
// KeyIndex key. It must be deterministic and side-effect-free: the
// master and slave serializers must produce byte-equal output for rows
// that should join.
type KeySerializer interface {
	// WriteKey appends the key bytes for row to dst and returns the
	// extended slice.
	WriteKey(dst []byte, row Row) []byte
}

// Source is the capability set the join operator needs out of a
// forward-only row cursor (the master or the slave). Source is
// satisfied by the table-scan/filter cursors that are external
// collaborators of this package.
type Source interface {
	// Advance moves the cursor to the next row and reports whether one
	// was available. CurrentRow is valid only after Advance returns
	// true.
	Advance(ctx context.Context) (bool, error)

	// CurrentRow returns the row the cursor currently sits on. It is
	// only valid to call after a call to Advance that returned true.
	CurrentRow() Row

	// ProbeSlot returns a second, independent row handle associated
	// with this Source, used for random access via RandomRead without
	// disturbing the main iteration position.
	ProbeSlot() Row

	// RandomRead reads the row identified by rowID into the row handle
	// previously returned by ProbeSlot.
	RandomRead(ctx context.Context, slot Row, rowID int64) error

	// Rewind resets the cursor to its first row.
	Rewind() error

	// Release releases any resources held by the cursor. Idempotent.
	Release() error

	// Size reports the number of rows the cursor will yield.
	Size() int64

	// PreComputedStateSize reports the size, in bytes, of any
	// pre-computed state the cursor carries (pass-through accounting
	// only).
	PreComputedStateSize() int64

	// CalculateSize forces (re)computation of Size, polling cancel and
	// reporting progress through counter as it scans. JoinCursor does
	// not call it on either source: JoinCursor.Size reads the master's
	// Size, and no cancel handle is forwarded to the master.
	CalculateSize(ctx context.Context, cancel <-chan struct{}, counter func(int64)) (int64, error)
}

// NullRecordSchema describes the column shape of a slave Source for
// the purpose of constructing a stateless null-shaped record used when
// a master row has no match. It is a pure function of the slave's
// metadata and is safe to query once at Factory construction time.
type NullRecordSchema interface {
	// ColumnCount returns the number of columns in the slave schema.
	ColumnCount() int
}
