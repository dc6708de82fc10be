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

// nullRow is a stateless, schema-shaped source of typed zero values,
// used in place of a real slave row when no match was found. It is a
// pure function of the slave's column count and is constructed once at
// Factory build time.
type nullRow struct {
	columns int
}

func newNullRow(schema NullRecordSchema) nullRow {
	return nullRow{columns: schema.ColumnCount()}
}

// Timestamp always returns NegInfTimestamp: a null row never
// participates in a tolerance comparison (hasSlave is false whenever
// nullRow is exposed).
func (nullRow) Timestamp(int) int64 { return NegInfTimestamp }

// RowID always returns NullRowID.
func (nullRow) RowID() int64 { return NullRowID }

// OutputRecord is the polymorphic record produced by JoinCursor.Advance:
// master columns in [0, columnSplit), and either the real slave probe
// row or a null-shaped row in [columnSplit, total), depending on
// HasSlave.
type OutputRecord struct {
	master      Row
	slave       Row
	null        nullRow
	columnSplit int
	hasSlave    bool
}

// HasSlave reports whether the slave-side columns of this record come
// from a real matched slave row (true) or the null-shaped facade
// (false).
func (r *OutputRecord) HasSlave() bool { return r.hasSlave }

// Timestamp routes to the master row below columnSplit and to whichever
// slave facade is active at or above it.
func (r *OutputRecord) Timestamp(columnIndex int) int64 {
	if columnIndex < r.columnSplit {
		return r.master.Timestamp(columnIndex)
	}
	if r.hasSlave {
		return r.slave.Timestamp(columnIndex - r.columnSplit)
	}
	return r.null.Timestamp(columnIndex - r.columnSplit)
}

// RowID returns the master row's identifier; the slave identifier is
// reachable only through the slave Source's own random access and is
// not part of this record's public surface (output row projection is
// an external collaborator).
func (r *OutputRecord) RowID() int64 { return r.master.RowID() }

// Master returns the live master row underlying this output record.
func (r *OutputRecord) Master() Row { return r.master }

// Slave returns the active slave-side facade: the real probe row if
// HasSlave is true, otherwise the null-shaped row.
func (r *OutputRecord) Slave() Row {
	if r.hasSlave {
		return r.slave
	}
	return r.null
}

// set reconfigures the record in place for the current advance call;
// no allocation on the steady-state path.
func (r *OutputRecord) set(master, slave Row, hasSlave bool) {
	r.master = master
	r.slave = slave
	r.hasSlave = hasSlave
}
