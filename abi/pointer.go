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
	"github.com/libpbc/pbc/bcmodule"
	"github.com/libpbc/pbc/diag"
)

func functionIndex(m *bcmodule.Module, fn *bcmodule.Function) int {
	for i := range m.Functions {
		if &m.Functions[i] == fn {
			return i
		}
	}
	return -1
}

// checkPointerShape enforces that an inherent pointer value is never
// stored, returned, passed as a call argument, or used as a PHI
// incoming value without first passing through an explicit bitcast
// (which reclassifies it as a normalized pointer) — §4.3.2.
func checkPointerShape(m *bcmodule.Module, cache *bcmodule.ProvenanceCache, fn *bcmodule.Function, fnName string, in bcmodule.Instruction, rep *diag.Reporter) {
	idx := functionIndex(m, fn)
	flag := func(id bcmodule.ValueID, where string) {
		if bcmodule.ClassifyProvenance(m, idx, id, cache) == bcmodule.ProvenanceInherentPointer {
			rep.AddError(diag.Abi(fnName, "pointer provenance", "%s carries an un-normalized inherent pointer", where))
		}
	}
	switch in.Op {
	case bcmodule.OpStore:
		flag(in.ValueOperand, "store operand")
	case bcmodule.OpRet:
		if in.RetVal >= 0 {
			flag(in.RetVal, "return value")
		}
	case bcmodule.OpCall:
		for _, a := range in.Args {
			flag(a, "call argument")
		}
	case bcmodule.OpPhi:
		for _, inc := range in.PhiIncoming {
			flag(inc.Val, "phi incoming value")
		}
	}
}
