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
	"context"
	"encoding/binary"
	"fmt"
)

// ToleranceUnbounded disables the tolerance window: every slave row
// with a timestamp at or before the master timestamp is a candidate
// match, regardless of how far below it lies.
const ToleranceUnbounded int64 = -1

// Config carries the parameters a JoinCursor needs beyond its source
// cursors: the timestamp columns to compare and the tolerance window.
// There is no file- or environment-based configuration for this
// operator; Config is passed explicitly by the Factory.
type Config struct {
	// MasterTsIdx, SlaveTsIdx are the fixed column indices yielding
	// each side's timestamp.
	MasterTsIdx, SlaveTsIdx int

	// ColumnSplit is the number of master columns; output columns at
	// or above this index route to the slave side.
	ColumnSplit int

	// Tolerance is the maximum allowed masterTs - slaveTs, or
	// ToleranceUnbounded to disable the bound.
	Tolerance int64
}

// JoinCursor is the ASOF JOIN "light" operator: it holds the two
// source cursors, a KeyIndex, a single slave probe slot, and the small
// transient state machine in state.go. It exposes a pull-based
// iterator (Advance/CurrentRow/Rewind/Release) and is not safe for
// concurrent use: Advance must not be called concurrently with itself,
// Rewind, or Release on the same JoinCursor.
type JoinCursor struct {
	cfg Config

	masterKS, slaveKS KeySerializer
	index             KeyIndex
	nullSchema        NullRecordSchema

	master, slave Source
	probe         Row

	state cursorState
	out   OutputRecord

	isOpen bool
}

// NewJoinCursor constructs a JoinCursor with its KeyIndex pre-allocated
// but closed. The returned cursor must be bound with Bind before
// Advance is called.
func NewJoinCursor(cfg Config, masterKS, slaveKS KeySerializer, index KeyIndex, nullSchema NullRecordSchema) *JoinCursor {
	return &JoinCursor{
		cfg:        cfg,
		masterKS:   masterKS,
		slaveKS:    slaveKS,
		index:      index,
		nullSchema: nullSchema,
		out:        OutputRecord{columnSplit: cfg.ColumnSplit, null: newNullRow(nullSchema)},
	}
}

// Bind reopens the KeyIndex, resets transient state, and captures the
// source cursors for one execution. If reopening the index fails, Bind
// does not release the source cursors it was given; Factory.Execute
// releases both of them in that case.
func (j *JoinCursor) Bind(master, slave Source) error {
	if err := j.index.Reopen(); err != nil {
		return fmt.Errorf("join: reopening key index: %w", err)
	}
	j.master = master
	j.slave = slave
	j.probe = slave.ProbeSlot()
	j.state.reset()
	j.isOpen = true
	return nil
}

// Advance is the only interesting algorithm in this package. It
// returns true while rows remain; each successful call leaves
// CurrentRow referring to a joined row ready for projection.
//
// Entries are never evicted from the KeyIndex. A stored row that has
// fallen below the tolerance floor stays in the index and is rejected
// by the tolerance check made when the master row probes it.
func (j *JoinCursor) Advance(ctx context.Context) (bool, error) {
	if !j.isOpen {
		return false, ErrClosed
	}

	// 1. Advance the master if the previous call left it pending.
	if j.state.masterHasNextPending {
		ok, err := j.master.Advance(ctx)
		if err != nil {
			return false, err
		}
		j.state.masterHasNext = ok
		j.state.masterHasNextPending = false
	}

	// 2. Exhausted.
	if !j.state.masterHasNext {
		return false, nil
	}

	masterRow := j.master.CurrentRow()
	masterTs := masterRow.Timestamp(j.cfg.MasterTsIdx)
	minSlaveTs := NegInfTimestamp
	if j.cfg.Tolerance != ToleranceUnbounded {
		minSlaveTs = masterTs - j.cfg.Tolerance
	}

	// 4. Catch-up phase: only while the dangling slave row (if any)
	// has not yet overshot the current master timestamp.
	if j.state.slaveTimestamp <= masterTs {
		if err := j.catchUp(ctx, masterTs, minSlaveTs); err != nil {
			return false, err
		}
	}

	// 5. Probe phase.
	if err := j.probeMaster(ctx, masterRow, masterTs); err != nil {
		return false, err
	}

	// 6.
	j.state.masterHasNextPending = true
	return true, nil
}

// catchUp replays the dangling row (if any) against the tolerance
// floor, then pulls the slave cursor forward until a row overshoots
// masterTs or the slave is exhausted.
func (j *JoinCursor) catchUp(ctx context.Context, masterTs, minSlaveTs int64) error {
	// (a) replay the dangling row.
	if j.state.lastSlaveRowID != NullRowID {
		if err := j.slave.RandomRead(ctx, j.probe, j.state.lastSlaveRowID); err != nil {
			return err
		}
		if j.probe.Timestamp(j.cfg.SlaveTsIdx) >= minSlaveTs {
			j.insert(j.slaveKS, j.probe, j.state.lastSlaveRowID)
		}
	}

	// (b) pull the main slave cursor forward.
	for {
		ok, err := j.slave.Advance(ctx)
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		row := j.slave.CurrentRow()
		ts := row.Timestamp(j.cfg.SlaveTsIdx)
		rowID := row.RowID()

		// The dangling-row fields are updated unconditionally for
		// every pulled row so that, if the slave is exhausted before
		// ever overshooting masterTs, they retain the final slave
		// row's values: that final row then replays through catch-up
		// (a) once on each later master step whose timestamp is >= ts.
		j.state.slaveTimestamp = ts
		j.state.lastSlaveRowID = rowID

		if ts <= masterTs {
			if ts >= minSlaveTs {
				j.insert(j.slaveKS, row, rowID)
			}
			continue
		}
		// Overshoot: this row becomes the new dangling row. Stop
		// pulling; it is reconsidered on a future master row.
		break
	}
	return nil
}

// probeMaster looks up the matching slave row for masterRow by key and
// decides, from the tolerance window, whether it still counts as a match.
func (j *JoinCursor) probeMaster(ctx context.Context, masterRow Row, masterTs int64) error {
	handle := j.index.WithKey(masterRow, j.masterKS)
	val := handle.FindValue()
	if val == nil {
		j.out.set(masterRow, nil, false)
		return nil
	}
	rowID := int64(binary.LittleEndian.Uint64(val))
	if err := j.slave.RandomRead(ctx, j.probe, rowID); err != nil {
		return err
	}
	slaveTs := j.probe.Timestamp(j.cfg.SlaveTsIdx)
	hasSlave := j.cfg.Tolerance == ToleranceUnbounded || slaveTs >= masterTs-j.cfg.Tolerance
	j.out.set(masterRow, j.probe, hasSlave)
	return nil
}

// insert writes key -> rowID into the KeyIndex, overwriting any prior
// entry for that key: the newest insertion for a key always wins.
func (j *JoinCursor) insert(ks KeySerializer, row Row, rowID int64) {
	handle := j.index.WithKey(row, ks)
	slot := handle.CreateValue()
	binary.LittleEndian.PutUint64(slot, uint64(rowID))
}

// CurrentRow returns the joined row produced by the most recent
// successful call to Advance.
func (j *JoinCursor) CurrentRow() *OutputRecord { return &j.out }

// ReadAt always fails: the join output is produced by a one-shot
// forward state machine and does not support random access.
func (j *JoinCursor) ReadAt(*OutputRecord, int64) error {
	return ErrRandomAccessUnsupported
}

// Rewind clears the KeyIndex, resets transient state, and rewinds both
// source cursors. After Rewind, replaying Advance produces an output
// sequence identical to the first run.
func (j *JoinCursor) Rewind() error {
	if !j.isOpen {
		return ErrClosed
	}
	j.index.Clear()
	j.state.reset()
	if err := j.master.Rewind(); err != nil {
		return err
	}
	return j.slave.Rewind()
}

// Size equals the master's size: the outer join on master guarantees
// exactly one output row per master row.
func (j *JoinCursor) Size() int64 {
	if j.master == nil {
		return 0
	}
	return j.master.Size()
}

// PreComputedStateSize is the sum of both sources' pre-computed state
// sizes, passed straight through.
func (j *JoinCursor) PreComputedStateSize() int64 {
	if j.master == nil || j.slave == nil {
		return 0
	}
	return j.master.PreComputedStateSize() + j.slave.PreComputedStateSize()
}

// Release closes the KeyIndex and releases both source cursors. It is
// idempotent: calling Release more than once has the same observable
// effect as calling it once.
func (j *JoinCursor) Release() error {
	if !j.isOpen {
		return nil
	}
	j.isOpen = false
	err := j.index.Close()
	if j.master != nil {
		if e := j.master.Release(); e != nil && err == nil {
			err = e
		}
	}
	if j.slave != nil {
		if e := j.slave.Release(); e != nil && err == nil {
			err = e
		}
	}
	j.master, j.slave, j.probe = nil, nil, nil
	return err
}
