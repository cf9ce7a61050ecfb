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

import "testing"

func TestLookupIntrinsicKnown(t *testing.T) {
	sig, ok := LookupIntrinsic("llvm.memcpy.p0i8.p0i8.i32")
	if !ok {
		t.Fatalf("expected llvm.memcpy.p0i8.p0i8.i32 to be recognized")
	}
	if sig.MinArgs != 5 || sig.Name != "llvm.memcpy.p0i8.p0i8.i32" {
		t.Fatalf("LookupIntrinsic() = %+v, want MinArgs=5 Name set", sig)
	}
}

func TestLookupIntrinsicUnknown(t *testing.T) {
	if _, ok := LookupIntrinsic("llvm.not.a.real.intrinsic"); ok {
		t.Fatalf("expected unknown intrinsic name to be rejected")
	}
}

func TestIsIntrinsicName(t *testing.T) {
	if !IsIntrinsicName("llvm.trap") {
		t.Fatalf("llvm.trap should be in the reserved namespace")
	}
	if IsIntrinsicName("memcpy") {
		t.Fatalf("memcpy (no llvm. prefix) should not be in the reserved namespace")
	}
}

func TestIsPointerReturningIntrinsic(t *testing.T) {
	if !IsPointerReturningIntrinsic("llvm.nacl.read.tp") {
		t.Fatalf("llvm.nacl.read.tp should return an inherent pointer")
	}
	if IsPointerReturningIntrinsic("llvm.trap") {
		t.Fatalf("llvm.trap should not return a pointer")
	}
	if IsPointerReturningIntrinsic("llvm.unknown") {
		t.Fatalf("an unrecognized name should never report ReturnsPointer")
	}
}

func TestRewriteIntrinsicSignaturesMarksPointerParams(t *testing.T) {
	m := &Module{}
	// memcpy's declared type: (i32, i32, i32, i32, i32) -> void, with
	// the first two parameters actually elided byte pointers.
	fnType := m.Types.Append(Type{Kind: TypeVoid})
	i32 := m.Types.Append(Type{Kind: TypeInteger, IntWidth: 32})
	memcpyType := m.Types.Append(Type{
		Kind:    TypeFunction,
		Returns: fnType,
		Params:  []TypeID{i32, i32, i32, i32, i32},
	})
	m.Functions = []Function{{Name: "llvm.memcpy.p0i8.p0i8.i32", Type: memcpyType, IsDeclOnly: true}}

	rewriteIntrinsicSignatures(m)

	rewrittenID := m.Functions[0].Type
	if rewrittenID == memcpyType {
		t.Fatalf("rewriteIntrinsicSignatures should append a new type entry, not mutate the shared one")
	}
	rewritten, err := m.Types.At(rewrittenID)
	if err != nil {
		t.Fatalf("m.Types.At(%d): %v", rewrittenID, err)
	}
	want := []bool{true, true, false, false, false}
	if len(rewritten.ParamIsPointer) != len(want) {
		t.Fatalf("ParamIsPointer = %v, want length %d", rewritten.ParamIsPointer, len(want))
	}
	for i, w := range want {
		if rewritten.ParamIsPointer[i] != w {
			t.Fatalf("ParamIsPointer[%d] = %v, want %v", i, rewritten.ParamIsPointer[i], w)
		}
	}

	original, err := m.Types.At(memcpyType)
	if err != nil {
		t.Fatalf("m.Types.At(%d): %v", memcpyType, err)
	}
	if original.ParamIsPointer != nil {
		t.Fatalf("original type entry should be left untouched, got ParamIsPointer = %v", original.ParamIsPointer)
	}
}

func TestRewriteIntrinsicSignaturesSkipsNonIntrinsics(t *testing.T) {
	m := &Module{}
	i32 := m.Types.Append(Type{Kind: TypeInteger, IntWidth: 32})
	ordinary := m.Types.Append(Type{Kind: TypeFunction, Returns: i32})
	m.Functions = []Function{{Name: "compute", Type: ordinary, IsDeclOnly: true}}

	rewriteIntrinsicSignatures(m)

	if m.Functions[0].Type != ordinary {
		t.Fatalf("an ordinary function's type should never be rewritten")
	}
}
