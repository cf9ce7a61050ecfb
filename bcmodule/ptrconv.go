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

// castKey memoizes a synthesized pointer-normalizing cast within one
// basic block, keyed exactly as §4.2.5 specifies: the cast opcode,
// the destination type, and the source value.
type castKey struct {
	op   CastOp
	dest TypeID
	src  ValueID
}

// insertPointerConversions re-inserts the bitcast the original encoder
// elided whenever a value still carrying raw, un-normalized
// ProvenanceInherentPointer reaches a scalar-required operand position
// (§4.2.5): an arithmetic or comparison operand, a branch or switch
// condition, a return value, or a PHI incoming value. A
// ProvenanceNormalizedPointer needs no further conversion - it is
// already legal in all of these positions - so only inherent pointers
// trigger an insertion.
//
// Casts are memoized per basic block via blockCaches, keyed by
// (opcode, destination type, source value), so a value consumed twice
// in the same block (e.g. by two arithmetic instructions) gets one
// shared cast rather than a duplicate per use. A PHI incoming value's
// cast is attributed to its predecessor block rather than the PHI's
// own block, mirroring NaClBitcodeReader's PhiCasts placement
// (inserted immediately before the predecessor's terminator, so the
// value dominates the incoming edge).
//
// New cast instructions are appended after the function's existing
// instruction stream rather than spliced in at their logical position.
// That's sound here because a value's id and its defining
// Instruction's position already diverge in this decoder (an
// instruction with no result, like Store, advances Instructions
// without advancing the value list), so nothing relies on
// dominance-ordered physical placement - only each instruction's own
// operand ids and BasicBlockBounds' block partition matter, and both
// stay correct when new instructions are appended at the end.
func insertPointerConversions(m *Module, f *Function) {
	if len(f.Instructions) == 0 {
		return
	}
	fnIdx := -1
	for i := range m.Functions {
		if &m.Functions[i] == f {
			fnIdx = i
			break
		}
	}
	if fnIdx < 0 {
		return
	}

	cache := NewProvenanceCache(f.Values.Len())
	blockCaches := make([]map[castKey]ValueID, len(f.BasicBlockBounds))
	for i := range blockCaches {
		blockCaches[i] = make(map[castKey]ValueID)
	}

	blockOf := func(instrIdx int) int {
		for b, end := range f.BasicBlockBounds {
			if instrIdx < end {
				return b
			}
		}
		if len(f.BasicBlockBounds) == 0 {
			return 0
		}
		return len(f.BasicBlockBounds) - 1
	}

	ensureScalar := func(ownerBlock int, id ValueID) ValueID {
		if id < 0 || ownerBlock < 0 || ownerBlock >= len(blockCaches) {
			return id
		}
		if ClassifyProvenance(m, fnIdx, id, cache) != ProvenanceInherentPointer {
			return id
		}
		v, err := f.Values.At(id)
		if err != nil {
			return id
		}
		key := castKey{op: CastBitCast, dest: v.Type, src: id}
		if cached, ok := blockCaches[ownerBlock][key]; ok {
			return cached
		}
		newID := emitSynthesizedCast(f, v.Type, id)
		blockCaches[ownerBlock][key] = newID
		return newID
	}

	n := len(f.Instructions)
	for idx := 0; idx < n; idx++ {
		in := &f.Instructions[idx]
		b := blockOf(idx)
		switch in.Op {
		case OpBinop:
			in.LHS = ensureScalar(b, in.LHS)
			in.RHS = ensureScalar(b, in.RHS)
		case OpCmp2:
			in.LHS = ensureScalar(b, in.LHS)
			in.RHS = ensureScalar(b, in.RHS)
		case OpRet:
			in.RetVal = ensureScalar(b, in.RetVal)
		case OpBr:
			in.Cond = ensureScalar(b, in.Cond)
		case OpSwitch:
			in.SwitchCond = ensureScalar(b, in.SwitchCond)
		case OpPhi:
			for i, inc := range in.PhiIncoming {
				if inc.BlockID < 0 || inc.BlockID >= len(f.BasicBlockBounds) {
					continue
				}
				in.PhiIncoming[i].Val = ensureScalar(inc.BlockID, inc.Val)
			}
		}
	}
}

// emitSynthesizedCast appends a new bitcast instruction normalizing
// src to destTy and its corresponding value-list entry, returning the
// new value's id.
func emitSynthesizedCast(f *Function, destTy TypeID, src ValueID) ValueID {
	idx := len(f.Instructions)
	f.Instructions = append(f.Instructions, Instruction{Op: OpCast, Type: destTy, CastOp: CastBitCast, LHS: src})
	return f.Values.Append(Value{Kind: ValueInstruction, Type: destTy, Ref: idx})
}
