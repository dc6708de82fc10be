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

import "errors"

// ErrAcquire is wrapped around a failure to acquire either source
// cursor at bind time. Any source cursor already acquired is released
// before this error is returned.
var ErrAcquire = errors.New("join: failed to acquire source cursor")

// ErrClosed is returned by JoinCursor.Advance and JoinCursor.Rewind
// after the cursor's Release has completed. Factory methods do not
// return it.
var ErrClosed = errors.New("join: cursor is closed")

// ErrRandomAccessUnsupported is returned by JoinCursor.ReadAt; the
// result of a JoinCursor is produced by a one-shot forward state
// machine and does not support random access.
var ErrRandomAccessUnsupported = errors.New("join: random access is not supported on join output")
