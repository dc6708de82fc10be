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

// testRow is the Row fixture used throughout this package's tests. Its
// rowID always equals its position within the slice that created it,
// so a fakeSource can implement RandomRead as a plain index.
type testRow struct {
	ts  int64
	id  int64
	key string
}

func (r *testRow) Timestamp(int) int64 { return r.ts }
func (r *testRow) RowID() int64        { return r.id }
func (r *testRow) Key() string         { return r.key }

// keyed is implemented by testRow so that testKeySerializer can pull a
// logical key out of the narrow Row interface without the join package
// itself ever needing to know about it.
type keyed interface {
	Key() string
}

// testKeySerializer projects the row's Key() string as the key bytes.
type testKeySerializer struct{}

func (testKeySerializer) WriteKey(dst []byte, row Row) []byte {
	return append(dst, row.(keyed).Key()...)
}

// testNullSchema is a fixed-width null record schema fixture.
type testNullSchema struct{ cols int }

func (s testNullSchema) ColumnCount() int { return s.cols }

// fakeSource is a forward-only, in-memory Source over a slice of
// testRow, used in place of the table-scan cursors this package treats
// as external collaborators.
type fakeSource struct {
	rows  []*testRow
	pos   int
	probe testRow
	open  bool
}

func newFakeSource(rows []*testRow) *fakeSource {
	return &fakeSource{rows: rows, pos: -1, open: true}
}

func (s *fakeSource) Advance(ctx context.Context) (bool, error) {
	if s.pos+1 >= len(s.rows) {
		s.pos = len(s.rows)
		return false, nil
	}
	s.pos++
	return true, nil
}

func (s *fakeSource) CurrentRow() Row { return s.rows[s.pos] }

func (s *fakeSource) ProbeSlot() Row { return &s.probe }

func (s *fakeSource) RandomRead(ctx context.Context, slot Row, rowID int64) error {
	tr := slot.(*testRow)
	*tr = *s.rows[rowID]
	return nil
}

func (s *fakeSource) Rewind() error {
	s.pos = -1
	return nil
}

func (s *fakeSource) Release() error {
	s.open = false
	return nil
}

func (s *fakeSource) Size() int64 { return int64(len(s.rows)) }

func (s *fakeSource) PreComputedStateSize() int64 { return int64(len(s.rows)) * 8 }

func (s *fakeSource) CalculateSize(ctx context.Context, cancel <-chan struct{}, counter func(int64)) (int64, error) {
	if counter != nil {
		counter(int64(len(s.rows)))
	}
	return int64(len(s.rows)), nil
}

// fakeSourceFactory hands out a single fakeSource (Open may only be
// called once, mirroring a per-execution acquisition).
type fakeSourceFactory struct {
	rows     []*testRow
	opened   *fakeSource
	released bool
	failOpen bool
}

func (f *fakeSourceFactory) Open(ctx context.Context) (Source, error) {
	if f.failOpen {
		return nil, errOpenFailed
	}
	f.opened = newFakeSource(f.rows)
	return f.opened, nil
}

func (f *fakeSourceFactory) Release() error {
	f.released = true
	return nil
}

func rowsOf(pairs ...[2]interface{}) []*testRow {
	out := make([]*testRow, len(pairs))
	for i, p := range pairs {
		out[i] = &testRow{ts: int64(p[0].(int)), id: int64(i), key: p[1].(string)}
	}
	return out
}
