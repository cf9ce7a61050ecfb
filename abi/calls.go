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

// checkCall verifies one CALL instruction's legality: a direct call's
// callee must resolve to a declared function (never a non-function
// global), and if its name falls in the reserved "llvm." namespace it
// must be one this dialect recognizes, with at least its minimum
// argument count supplied.
func checkCall(m *bcmodule.Module, cache *bcmodule.ProvenanceCache, fn *bcmodule.Function, fnName string, in bcmodule.Instruction, rep *diag.Reporter) {
	if in.IsIndirect {
		checkIndirectCallTarget(m, cache, fn, fnName, in, rep)
		return
	}
	gv, err := m.GlobalValues.At(in.Callee)
	if err != nil || gv.Kind != bcmodule.ValueFunction {
		rep.AddError(diag.Abi(fnName, "call target", "direct call does not reference a declared function"))
		return
	}
	if gv.Ref < 0 || gv.Ref >= len(m.Functions) {
		return
	}
	callee := m.Functions[gv.Ref]
	if !bcmodule.IsIntrinsicName(callee.Name) {
		return
	}
	if isAtomicIntrinsicName(callee.Name) {
		checkAtomicCall(m, fn, fnName, in, callee.Name, rep)
		return
	}
	sig, ok := bcmodule.LookupIntrinsic(callee.Name)
	if !ok {
		rep.AddError(diag.Abi(fnName, "call target", "call to unrecognized intrinsic %q", callee.Name))
		return
	}
	if len(in.Args) < sig.MinArgs {
		rep.AddError(diag.Abi(fnName, "call arity", "%s requires at least %d arguments, got %d", callee.Name, sig.MinArgs, len(in.Args)))
	}
	checkIntrinsicPointerArgs(m, cache, fn, fnName, in, sig, rep)
}

// checkIntrinsicPointerArgs requires every argument position that
// rewriteIntrinsicSignatures marked as pointer-shaped to carry
// normalized (not raw inherent) pointer provenance, the same rule
// applied to an ordinary call argument or indirect call target.
func checkIntrinsicPointerArgs(m *bcmodule.Module, cache *bcmodule.ProvenanceCache, fn *bcmodule.Function, fnName string, in bcmodule.Instruction, sig bcmodule.IntrinsicSignature, rep *diag.Reporter) {
	for _, idx := range sig.PointerParams {
		if idx < 0 || idx >= len(in.Args) {
			continue
		}
		p := bcmodule.ClassifyProvenance(m, functionIndex(m, fn), in.Args[idx], cache)
		if p == bcmodule.ProvenanceInherentPointer {
			rep.AddError(diag.Abi(fnName, "pointer provenance", "%s argument %d is an un-normalized inherent pointer", sig.Name, idx))
		}
	}
}

// checkIndirectCallTarget requires an indirect call's callee operand
// to carry normalized pointer provenance: an inherent pointer used
// directly as a call target (skipping the explicit bitcast that
// marks it safe to cross a call boundary) is the same ABI violation
// as passing one as an ordinary argument.
func checkIndirectCallTarget(m *bcmodule.Module, cache *bcmodule.ProvenanceCache, fn *bcmodule.Function, fnName string, in bcmodule.Instruction, rep *diag.Reporter) {
	p := bcmodule.ClassifyProvenance(m, functionIndex(m, fn), in.Callee, cache)
	if p == bcmodule.ProvenanceInherentPointer {
		rep.AddError(diag.Abi(fnName, "pointer provenance", "indirect call target is an un-normalized inherent pointer"))
	}
}
