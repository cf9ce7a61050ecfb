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

import (
	"testing"

	"github.com/libpbc/pbc/bcmodule"
)

func TestLegalAlign(t *testing.T) {
	cases := []struct {
		ty    bcmodule.Type
		align int
		want  bool
	}{
		{bcmodule.Type{Kind: bcmodule.TypeInteger, IntWidth: 32}, 0, false},
		{bcmodule.Type{Kind: bcmodule.TypeInteger, IntWidth: 32}, 1, true},
		{bcmodule.Type{Kind: bcmodule.TypeInteger, IntWidth: 32}, 4, false},
		{bcmodule.Type{Kind: bcmodule.TypeFloat32}, 1, true},
		{bcmodule.Type{Kind: bcmodule.TypeFloat32}, 4, true},
		{bcmodule.Type{Kind: bcmodule.TypeFloat32}, 8, false},
		{bcmodule.Type{Kind: bcmodule.TypeFloat64}, 8, true},
		{bcmodule.Type{Kind: bcmodule.TypeFloat64}, 4, false},
		{bcmodule.Type{Kind: bcmodule.TypeVoid}, 1, false},
	}
	for _, c := range cases {
		if got := legalAlign(c.ty, c.align); got != c.want {
			t.Errorf("legalAlign(%+v, %d) = %v, want %v", c.ty, c.align, got, c.want)
		}
	}
}
