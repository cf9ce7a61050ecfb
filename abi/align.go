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

package abi

import "github.com/libpbc/pbc/bcmodule"

// legalAlign reports whether align (already decoded to a byte count)
// is one this dialect permits for a LOAD/STORE of ty. Alignment 0 is
// never allowed: every LOAD/STORE must carry an explicit alignment, so
// an unspecified (0) alignment is itself a violation rather than a
// pass-through to the type's natural alignment. Integers must declare
// alignment 1 (byte alignment; no larger alignment is accepted for
// any integer width), a 32-bit float may additionally be word-aligned,
// and a 64-bit double may additionally be aligned to its full width.
func legalAlign(ty bcmodule.Type, align int) bool {
	switch ty.Kind {
	case bcmodule.TypeInteger:
		return align == 1
	case bcmodule.TypeFloat32:
		return align == 1 || align == 4
	case bcmodule.TypeFloat64:
		return align == 1 || align == 8
	default:
		return false
	}
}
