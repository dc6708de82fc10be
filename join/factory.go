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
	"fmt"
	"log"

	"github.com/google/uuid"
)

// SourceFactory acquires a fresh Source on each execution. It is the
// external collaborator that owns table-scan/filter construction.
type SourceFactory interface {
	Open(ctx context.Context) (Source, error)
	Release() error
}

// FactoryConfig carries everything a Factory needs beyond the two
// child source factories: the join condition's column wiring and an
// optional diagnostic logger. There is no environment- or file-based
// configuration specific to this operator.
type FactoryConfig struct {
	Config

	// Shards sizes the reference KeyIndex implementation. Most callers
	// can leave this zero (NewShardedIndex rounds it up to 1); a larger
	// value only matters for very large key spaces.
	Shards int

	// Logger receives construction/acquisition diagnostics. A nil
	// Logger discards output, matching the optional-logger pattern in
	// tenant/manager.go.
	Logger *log.Logger
}

func (c FactoryConfig) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.New(nowhere{}, "", 0)
}

type nowhere struct{}

func (nowhere) Write(p []byte) (int, error) { return len(p), nil }

// Factory constructs JoinCursor instances, owning the KeyIndex
// allocation across executions. Its plan-sink label is Label, "AsOf
// Join Light".
type Factory struct {
	cfg FactoryConfig

	masterKS, slaveKS KeySerializer
	nullSchema        NullRecordSchema
	index             KeyIndex

	masterFactory, slaveFactory SourceFactory

	cursor *JoinCursor
}

// NewFactory constructs the KeyIndex once and allocates the JoinCursor
// that will be reused across executions. It always builds the
// reference KeyIndex (NewShardedIndex), whose construction cannot
// fail, so the error return is always nil.
func NewFactory(cfg FactoryConfig, masterKS, slaveKS KeySerializer, nullSchema NullRecordSchema, masterFactory, slaveFactory SourceFactory) (*Factory, error) {
	index := NewShardedIndex(cfg.Shards)
	cursor := NewJoinCursor(cfg.Config, masterKS, slaveKS, index, nullSchema)
	f := &Factory{
		cfg:           cfg,
		masterKS:      masterKS,
		slaveKS:       slaveKS,
		nullSchema:    nullSchema,
		index:         index,
		masterFactory: masterFactory,
		slaveFactory:  slaveFactory,
		cursor:        cursor,
	}
	return f, nil
}

// Execute acquires fresh source cursors from both child factories,
// binds them to the shared JoinCursor, and returns it ready for
// Advance. On any failure acquiring a source cursor, both sources are
// released before the error is propagated, wrapped in ErrAcquire.
//
// The enclosing executor may poll a cancellation handle between master
// rows; this operator does not poll per row itself.
func (f *Factory) Execute(ctx context.Context) (*JoinCursor, error) {
	execID := uuid.New()
	master, err := f.masterFactory.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: execution %s: opening master: %v", ErrAcquire, execID, err)
	}
	slave, err := f.slaveFactory.Open(ctx)
	if err != nil {
		if rerr := master.Release(); rerr != nil {
			f.cfg.logger().Printf("execution %s: releasing master after failed slave open: %v", execID, rerr)
		}
		return nil, fmt.Errorf("%w: execution %s: opening slave: %v", ErrAcquire, execID, err)
	}
	if err := f.cursor.Bind(master, slave); err != nil {
		if rerr := master.Release(); rerr != nil {
			f.cfg.logger().Printf("execution %s: releasing master after failed bind: %v", execID, rerr)
		}
		if rerr := slave.Release(); rerr != nil {
			f.cfg.logger().Printf("execution %s: releasing slave after failed bind: %v", execID, rerr)
		}
		return nil, fmt.Errorf("%w: execution %s: %v", ErrAcquire, execID, err)
	}
	f.cfg.logger().Printf("execution %s: bound asof join cursor", execID)
	return f.cursor, nil
}

// Release releases the JoinCursor, which in turn closes the KeyIndex,
// and both source factories. The JoinCursor part is idempotent; the
// source factories' Release is called again on every call.
func (f *Factory) Release() error {
	err := f.cursor.Release()
	if e := f.masterFactory.Release(); e != nil && err == nil {
		err = e
	}
	if e := f.slaveFactory.Release(); e != nil && err == nil {
		err = e
	}
	return err
}

// Label is the plan-sink label for this operator.
const Label = "AsOf Join Light"
