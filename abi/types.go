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

// Package abi statically verifies that a decoded bcmodule.Module stays
// within the portable dialect's stable ABI: valid types, legal
// instruction shapes, alignment rules, atomic-intrinsic legality, and
// pointer-provenance discipline (§4.3). It never mutates the module;
// every finding is appended to a diag.Reporter.
package abi

import (
	"github.com/libpbc/pbc/bcmodule"
	"github.com/libpbc/pbc/diag"
)

// checkTypeTable rejects any type table entry outside the dialect's
// closed shape: integer widths must be one of 1/8/16/32/64, and a
// function type's return and parameter types must themselves be valid
// scalars or void (never another function type, and never the
// struct placeholder kind the decoder uses for a type it can't
// represent).
func checkTypeTable(m *bcmodule.Module, rep *diag.Reporter) {
	for i := 0; i < m.Types.Len(); i++ {
		ty, err := m.Types.At(bcmodule.TypeID(i))
		if err != nil {
			rep.AddError(err)
			continue
		}
		switch ty.Kind {
		case bcmodule.TypeStructPlaceholder:
			rep.AddError(diag.Abi("", "invalid type", "type %d is an unrepresentable aggregate type", i))
		case bcmodule.TypeInteger:
			switch ty.IntWidth {
			case 1, 8, 16, 32, 64:
			default:
				rep.AddError(diag.Abi("", "invalid type", "integer type %d has unsupported width %d", i, ty.IntWidth))
			}
		case bcmodule.TypeFunction:
			checkFunctionTypeShape(m, i, ty, rep)
		}
	}
}

// isI1 reports whether ty is the single-bit boolean integer type.
func isI1(ty bcmodule.Type) bool {
	return ty.Kind == bcmodule.TypeInteger && ty.IntWidth == 1
}

func checkFunctionTypeShape(m *bcmodule.Module, id int, ty bcmodule.Type, rep *diag.Reporter) {
	if ty.Returns != -1 {
		if rty, err := m.Types.At(ty.Returns); err == nil {
			if rty.Kind == bcmodule.TypeFunction || rty.Kind == bcmodule.TypeStructPlaceholder {
				rep.AddError(diag.Abi("", "invalid type", "function type %d returns a non-scalar type", id))
			}
		}
	}
	for _, p := range ty.Params {
		pty, err := m.Types.At(p)
		if err != nil {
			continue
		}
		if pty.Kind == bcmodule.TypeVoid || pty.Kind == bcmodule.TypeFunction || pty.Kind == bcmodule.TypeStructPlaceholder {
			rep.AddError(diag.Abi("", "invalid type", "function type %d has an invalid parameter type", id))
		}
	}
}
