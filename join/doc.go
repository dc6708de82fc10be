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

// Package join implements the "light" ASOF JOIN physical operator: a
// streaming temporal join between a master (driving) row source and a
// slave (probe) row source, both ordered by a timestamp column.
//
// For every master row, the operator emits that row joined with the
// slave row whose join key matches and whose timestamp is the greatest
// slave timestamp not exceeding the master timestamp, optionally bounded
// below by a tolerance interval. When no such slave row exists the
// master row is still emitted with the slave side logically null.
//
// "Light" means the per-key index ([KeyIndex]) stores only a row
// identifier, not a copy of the matching row; [JoinCursor] re-reads the
// slave row by identifier through [Source.RandomRead] when it needs to
// produce output. This trades memory (no eviction of stale keys, see
// [JoinCursor.Advance]) for avoiding a random-access dereference on
// every row inserted into the index.
//
// The package depends only on the narrow capability sets declared in
// cursor.go ([Source], [Row], [KeySerializer]) — it does not parse SQL,
// plan queries, implement a general-purpose map, or serialize rows.
// Those are external collaborators.
package join
