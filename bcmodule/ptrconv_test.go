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

// TestInsertPointerConversionsRewritesBinopOperand builds:
//
//	%0 = alloca i32            ; inherent pointer
//	%1 = add i32 %0, %0        ; both operands raw
//
// and checks that insertPointerConversions inserts exactly one
// normalizing bitcast (memoized across the two identical operand
// uses) and rewrites both of %1's operands to reference it.
func TestInsertPointerConversionsRewritesBinopOperand(t *testing.T) {
	m := &Module{}
	m.Functions = []Function{{Name: "f"}}
	f := &m.Functions[0]
	f.Instructions = []Instruction{
		{Op: OpAlloca, Type: 0},
		{Op: OpBinop, BinOp: BinopAdd, Type: 0, LHS: 0, RHS: 0},
	}
	f.BasicBlockBounds = []int{2}
	f.Values.Append(Value{Kind: ValueInstruction, Type: 0, Ref: 0})
	f.Values.Append(Value{Kind: ValueInstruction, Type: 0, Ref: 1})

	insertPointerConversions(m, f)

	if len(f.Instructions) != 3 {
		t.Fatalf("len(Instructions) = %d, want 3 (one synthesized cast)", len(f.Instructions))
	}
	cast := f.Instructions[2]
	if cast.Op != OpCast || cast.CastOp != CastBitCast || cast.LHS != 0 {
		t.Fatalf("synthesized instruction = %+v, want a bitcast of value 0", cast)
	}
	binop := f.Instructions[1]
	if binop.LHS != 2 || binop.RHS != 2 {
		t.Fatalf("binop operands = (%d,%d), want both rewritten to the synthesized cast's id 2", binop.LHS, binop.RHS)
	}
	if f.Values.Len() != 3 {
		t.Fatalf("Values.Len() = %d, want 3", f.Values.Len())
	}
	if ClassifyProvenance(m, 0, 2, NewProvenanceCache(4)) != ProvenanceNormalizedPointer {
		t.Fatalf("synthesized cast's result should classify as a normalized pointer")
	}
}

// TestInsertPointerConversionsLeavesPlainValuesAlone checks that a
// Binop over two already-plain-integer operands (e.g. a Load result)
// is left untouched.
func TestInsertPointerConversionsLeavesPlainValuesAlone(t *testing.T) {
	m := &Module{}
	m.Functions = []Function{{Name: "f"}}
	f := &m.Functions[0]
	f.Instructions = []Instruction{
		{Op: OpLoad, Type: 0},
		{Op: OpBinop, BinOp: BinopAdd, Type: 0, LHS: 0, RHS: 0},
	}
	f.BasicBlockBounds = []int{2}
	f.Values.Append(Value{Kind: ValueInstruction, Type: 0, Ref: 0})
	f.Values.Append(Value{Kind: ValueInstruction, Type: 0, Ref: 1})

	insertPointerConversions(m, f)

	if len(f.Instructions) != 2 {
		t.Fatalf("len(Instructions) = %d, want 2 (no synthesized cast)", len(f.Instructions))
	}
	if f.Instructions[1].LHS != 0 || f.Instructions[1].RHS != 0 {
		t.Fatalf("binop operands should be unchanged when already plain integers")
	}
}
