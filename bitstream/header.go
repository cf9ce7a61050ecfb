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

package bitstream

// HeaderSize is the size, in bytes, of the fixed magic prefix every
// bitstream begins with.
const HeaderSize = 4

// Magic is the fixed 4-byte prefix ("BC" 0xC0 0xDE) that every
// bitstream file begins with. The cursor verifies this prefix before
// any bit reads.
var Magic = [HeaderSize]byte{'B', 'C', 0xC0, 0xDE}
