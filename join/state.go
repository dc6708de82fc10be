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

// cursorState holds the transient fields of JoinCursor's state machine
// (the source cursors, probe slot, output record and isOpen flag live on
// JoinCursor itself). It exists as a single struct, rather than loose
// fields scattered across JoinCursor, so that resetting it (rewind,
// bind) is one call and its invariants are documented in one place.
// Only JoinCursor.Advance, JoinCursor.Rewind, and JoinCursor.Bind
// mutate it.
type cursorState struct {
	// slaveTimestamp is the timestamp of the dangling slave row: the
	// last slave row pulled during catch-up, which is the row that
	// overshot the master timestamp, or the final slave row if the
	// slave was exhausted first. NegInfTimestamp before any slave row
	// has been observed.
	slaveTimestamp int64

	// lastSlaveRowID is the row id of the dangling slave row.
	// NullRowID when there is none.
	//
	// Invariant: lastSlaveRowID != NullRowID implies slaveTimestamp
	// equals the timestamp of that row.
	lastSlaveRowID int64

	// masterHasNext is the cached result of the most recent master
	// Advance call. Valid only while masterHasNextPending is false.
	masterHasNext bool

	// masterHasNextPending is true iff the master must be advanced
	// before the next row can be emitted.
	masterHasNextPending bool
}

// reset restores the state to its just-bound/just-rewound values.
func (s *cursorState) reset() {
	s.slaveTimestamp = NegInfTimestamp
	s.lastSlaveRowID = NullRowID
	s.masterHasNext = false
	s.masterHasNextPending = true
}
