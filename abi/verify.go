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

// Verifier checks one Module against the portable dialect's stable
// ABI. It holds a provenance cache shared across every function it
// visits so VerifyModule's function-by-function walk doesn't redo
// pointer-provenance classification work.
type Verifier struct {
	m     *bcmodule.Module
	cache *bcmodule.ProvenanceCache
}

// NewVerifier prepares a Verifier for m.
func NewVerifier(m *bcmodule.Module) *Verifier {
	return &Verifier{m: m, cache: bcmodule.NewProvenanceCache(len(m.Functions) * 8)}
}

// VerifyModule runs every module-scope and function-scope check,
// appending findings to rep. It does not stop at the first violation;
// callers that want fail-fast behavior should set rep.FatalErrors.
func (v *Verifier) VerifyModule(rep *diag.Reporter) {
	checkTypeTable(v.m, rep)
	checkGlobals(v.m, rep)
	for i := range v.m.Functions {
		fn := &v.m.Functions[i]
		if fn.IsDeclOnly || !fn.Materialized() {
			continue
		}
		v.VerifyFunction(fn, rep)
	}
}

// VerifyFunction runs the function-scope checks for fn: instruction
// shape, alignment, atomic-intrinsic legality, call legality, and
// pointer-provenance discipline. fn must already be materialized (see
// bcmodule.Materialize).
func (v *Verifier) VerifyFunction(fn *bcmodule.Function, rep *diag.Reporter) {
	name := fn.Name
	if fn.Calling != bcmodule.CallingConvC {
		rep.AddError(diag.Abi(name, "calling convention", "only the C calling convention is supported"))
	}
	for _, in := range fn.Instructions {
		v.checkInstruction(fn, name, in, rep)
	}
}

func (v *Verifier) checkInstruction(fn *bcmodule.Function, name string, in bcmodule.Instruction, rep *diag.Reporter) {
	switch in.Op {
	case bcmodule.OpLoad:
		ty, err := v.m.Types.At(in.Type)
		if err == nil && !legalAlign(ty, in.Align) {
			rep.AddError(diag.Abi(name, "bad alignment", "load of alignment %d is not legal for this type", in.Align))
		}
	case bcmodule.OpStore:
		stored, err := fn.Values.At(in.ValueOperand)
		if err == nil {
			if ty, terr := v.m.Types.At(stored.Type); terr == nil && !legalAlign(ty, in.Align) {
				rep.AddError(diag.Abi(name, "bad alignment", "store of alignment %d is not legal for this type", in.Align))
			}
		}
	case bcmodule.OpBinop:
		if ty, err := v.m.Types.At(in.Type); err == nil && isI1(ty) {
			rep.AddError(diag.Abi(name, "invalid instruction", "arithmetic on i1 is not allowed"))
		}
	case bcmodule.OpCmp2:
		if operand, err := fn.Values.At(in.LHS); err == nil {
			if ty, terr := v.m.Types.At(operand.Type); terr == nil && isI1(ty) {
				rep.AddError(diag.Abi(name, "invalid instruction", "comparison on i1 is not allowed"))
			}
		}
	case bcmodule.OpSwitch:
		if cond, err := fn.Values.At(in.SwitchCond); err == nil {
			if ty, terr := v.m.Types.At(cond.Type); terr == nil && isI1(ty) {
				rep.AddError(diag.Abi(name, "invalid instruction", "switch condition must not be i1"))
			}
		}
	case bcmodule.OpCall:
		checkCall(v.m, v.cache, fn, name, in, rep)
	}
	checkPointerShape(v.m, v.cache, fn, name, in, rep)
}

// checkGlobals verifies every global's declared alignment is a power
// of two, and that every relocation initializer's target ultimately
// resolves to a global.
func checkGlobals(m *bcmodule.Module, rep *diag.Reporter) {
	for i, g := range m.Globals {
		if g.Align != 0 && g.Align&(g.Align-1) != 0 {
			rep.AddError(diag.Abi("", "bad alignment", "global %d (%q) has non-power-of-two alignment %d", i, g.Name, g.Align))
		}
		for _, frag := range g.Fragments {
			reloc, ok := frag.(bcmodule.RelocInit)
			if !ok {
				continue
			}
			target, err := m.GlobalValues.At(reloc.Target)
			if err != nil || target.Kind != bcmodule.ValueGlobal {
				rep.AddError(diag.Abi("", "bad relocation", "global %d (%q) relocates to a non-global value", i, g.Name))
			}
		}
	}
}
