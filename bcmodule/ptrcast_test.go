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

// buildProvenanceModule constructs a one-function module whose body is:
//
//	%0 = alloca i32            ; inherent pointer
//	%1 = bitcast %0 to i32     ; normalized pointer
//	%2 = load i32, i32 %0      ; plain integer
//	%3 = add i32 %0, %2        ; pointer + int -> inherent pointer
func buildProvenanceModule(t *testing.T) (*Module, *Function) {
	t.Helper()
	m := &Module{}
	f := Function{Name: "f"}
	f.Instructions = []Instruction{
		{Op: OpAlloca},
		{Op: OpCast, CastOp: CastBitCast, LHS: 0},
		{Op: OpLoad, PointerOperand: 0},
		{Op: OpBinop, BinOp: BinopAdd, LHS: 0, RHS: 2},
	}
	f.Values.Append(Value{Kind: ValueInstruction, Ref: 0})
	f.Values.Append(Value{Kind: ValueInstruction, Ref: 1})
	f.Values.Append(Value{Kind: ValueInstruction, Ref: 2})
	f.Values.Append(Value{Kind: ValueInstruction, Ref: 3})

	m.Functions = []Function{f}
	return m, &m.Functions[0]
}

func TestClassifyProvenanceInstructionChain(t *testing.T) {
	m, _ := buildProvenanceModule(t)
	cache := NewProvenanceCache(8)

	cases := []struct {
		id   ValueID
		want Provenance
	}{
		{0, ProvenanceInherentPointer},
		{1, ProvenanceNormalizedPointer},
		{2, ProvenancePlainInteger},
		{3, ProvenanceInherentPointer},
	}
	for _, c := range cases {
		if got := ClassifyProvenance(m, 0, c.id, cache); got != c.want {
			t.Fatalf("ClassifyProvenance(id=%d) = %v, want %v", c.id, got, c.want)
		}
	}
}

func TestClassifyProvenanceGlobalIsInherentPointer(t *testing.T) {
	m := &Module{Globals: []Global{{Name: "g"}}}
	m.GlobalValues.Append(Value{Kind: ValueGlobal, Ref: 0})
	m.Functions = []Function{{Name: "f"}}
	cache := NewProvenanceCache(4)
	if got := ClassifyProvenance(m, 0, 0, cache); got != ProvenanceInherentPointer {
		t.Fatalf("global provenance = %v, want ProvenanceInherentPointer", got)
	}
}

func TestClassifyPhiDisagreementIsUnknown(t *testing.T) {
	m := &Module{}
	f := Function{Name: "f"}
	f.Instructions = []Instruction{
		{Op: OpAlloca},                    // id 0: inherent pointer
		{Op: OpLoad, PointerOperand: 0},    // id 1: plain integer
		{Op: OpPhi, PhiIncoming: []PhiIncoming{{Val: 0}, {Val: 1}}}, // id 2
	}
	f.Values.Append(Value{Kind: ValueInstruction, Ref: 0})
	f.Values.Append(Value{Kind: ValueInstruction, Ref: 1})
	f.Values.Append(Value{Kind: ValueInstruction, Ref: 2})
	m.Functions = []Function{f}

	cache := NewProvenanceCache(4)
	if got := ClassifyProvenance(m, 0, 2, cache); got != ProvenanceUnknown {
		t.Fatalf("disagreeing phi provenance = %v, want ProvenanceUnknown", got)
	}
}

func TestProvenanceCacheHitAvoidsRecompute(t *testing.T) {
	m, _ := buildProvenanceModule(t)
	cache := NewProvenanceCache(4)
	first := ClassifyProvenance(m, 0, 0, cache)
	// Mutate the underlying instruction after the first classification;
	// a cache hit on the second call must still return the memoized
	// result rather than reclassifying against the mutated instruction.
	m.Functions[0].Instructions[0] = Instruction{Op: OpLoad}
	second := ClassifyProvenance(m, 0, 0, cache)
	if first != second {
		t.Fatalf("cache hit returned %v, want memoized %v", second, first)
	}
}
