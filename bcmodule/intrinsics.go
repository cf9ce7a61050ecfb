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

package bcmodule

import "strings"

// IntrinsicSignature describes the fixed shape of one stable-ABI
// intrinsic (§4.2.6), recovered by name since this dialect's function
// type table doesn't distinguish an intrinsic declaration from an
// ordinary external one.
type IntrinsicSignature struct {
	Name           string
	MinArgs        int
	Variadic       bool
	ReturnsPointer bool
	// IsAtomic marks the llvm.nacl.atomic.* family, whose legality
	// additionally depends on a memory-order operand (and, for the
	// RMW form, an operation selector) carried as one of its constant
	// arguments rather than encoded in the call shape itself.
	IsAtomic bool
	// PointerParams are the zero-based argument positions whose
	// declared scalar type actually elides a pointer (§4.2.6): this
	// dialect's type table can't represent a pointer type directly, so
	// these positions are recovered by name match instead and rewritten
	// onto the callee's TypeFunction entry by rewriteIntrinsicSignatures.
	PointerParams []int
}

var intrinsicTable = map[string]IntrinsicSignature{
	"llvm.memcpy.p0i8.p0i8.i32":  {MinArgs: 5, PointerParams: []int{0, 1}},
	"llvm.memmove.p0i8.p0i8.i32": {MinArgs: 5, PointerParams: []int{0, 1}},
	"llvm.memset.p0i8.i32":       {MinArgs: 5, PointerParams: []int{0}},
	"llvm.trap":                  {MinArgs: 0},
	"llvm.bswap.i16":             {MinArgs: 1},
	"llvm.bswap.i32":             {MinArgs: 1},
	"llvm.bswap.i64":             {MinArgs: 1},
	"llvm.ctlz.i32":              {MinArgs: 2},
	"llvm.cttz.i32":              {MinArgs: 2},
	"llvm.nacl.read.tp":          {MinArgs: 0, ReturnsPointer: true},
	"llvm.nacl.setjmp":           {MinArgs: 1, PointerParams: []int{0}},
	"llvm.nacl.longjmp":          {MinArgs: 2, PointerParams: []int{0}},
	"llvm.nacl.atomic.load.i32":  {MinArgs: 2, IsAtomic: true, PointerParams: []int{0}},
	"llvm.nacl.atomic.store.i32": {MinArgs: 3, IsAtomic: true, PointerParams: []int{0}},
	"llvm.nacl.atomic.rmw.i32":   {MinArgs: 4, IsAtomic: true, PointerParams: []int{1}},
	"llvm.nacl.atomic.cmpxchg.i32": {MinArgs: 4, IsAtomic: true, PointerParams: []int{0}},
	"llvm.nacl.atomic.fence":     {MinArgs: 1, IsAtomic: true},
	"llvm.nacl.atomic.is.lock.free": {MinArgs: 2},
}

// LookupIntrinsic reports the recovered signature for an
// "llvm."-prefixed function name, if known.
func LookupIntrinsic(name string) (IntrinsicSignature, bool) {
	sig, ok := intrinsicTable[name]
	if ok {
		sig.Name = name
	}
	return sig, ok
}

// IsIntrinsicName reports whether name falls in the reserved "llvm."
// namespace, regardless of whether this dialect recognizes it.
func IsIntrinsicName(name string) bool {
	return strings.HasPrefix(name, "llvm.")
}

// IsPointerReturningIntrinsic reports whether calling the named
// intrinsic yields an inherent-pointer-provenanced i32 result.
func IsPointerReturningIntrinsic(name string) bool {
	sig, ok := intrinsicTable[name]
	return ok && sig.ReturnsPointer
}

// rewriteIntrinsicSignatures matches every declared function against
// the intrinsic table by name and rewrites its TypeFunction entry's
// ParamIsPointer/ReturnIsPointer (§4.2.6), mirroring
// NaClBitcodeReader's post-VST intrinsic type fixup. It must run after
// resolveValueNames, since matching is name-based and Function.Name is
// only populated by that earlier pass.
//
// Two declarations that happen to share an identical underlying
// TypeFunction entry (plausible here, since pointers are elided from
// the type table) would corrupt each other's metadata if this mutated
// a shared entry in place for two different names; Append a private
// copy whenever the match requires changing anything, so only this
// function's own callers observe the rewritten shape.
func rewriteIntrinsicSignatures(m *Module) {
	for i := range m.Functions {
		f := &m.Functions[i]
		if !IsIntrinsicName(f.Name) {
			continue
		}
		sig, ok := LookupIntrinsic(f.Name)
		if !ok {
			continue
		}
		if len(sig.PointerParams) == 0 && !sig.ReturnsPointer {
			continue
		}
		ty, err := m.Types.At(f.Type)
		if err != nil || ty.Kind != TypeFunction {
			continue
		}
		ty.ParamIsPointer = make([]bool, len(ty.Params))
		for _, idx := range sig.PointerParams {
			if idx >= 0 && idx < len(ty.ParamIsPointer) {
				ty.ParamIsPointer[idx] = true
			}
		}
		ty.ReturnIsPointer = sig.ReturnsPointer
		f.Type = m.Types.Append(ty)
	}
}
