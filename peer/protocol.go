// This file is part of gnunet-go, a GNUnet-implementation in Golang.
// Copyright (C) 2019-2022 Bernd Fix  >Y<
//
// gnunet-go is free software: you can redistribute it and/or modify it
// under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License,
// or (at your option) any later version.
//
// gnunet-go is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.
//
// SPDX-License-Identifier: AGPL3.0-or-later

package peer

// ProtocolName is the label used to key substreams for a protocol. The
// upstream design carries this as either a borrowed static string or a
// shared allocated one so hot paths can avoid copies; in Go a plain string
// already has that property (strings are immutable views over their
// backing bytes, so a "static" protocol name costs nothing to share), so
// ProtocolName is just a named string type. Equality and map-key hashing
// fall out of Go's native string semantics.
type ProtocolName string

// String satisfies fmt.Stringer for log lines.
func (p ProtocolName) String() string {
	return string(p)
}
