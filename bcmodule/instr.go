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

// Op is the closed set of instruction opcodes this dialect accepts
// (§4.2.4). Anything else decodes to an UnknownCode diagnostic.
type Op uint8

const (
	OpBinop Op = iota
	OpCast
	OpRet
	OpBr
	OpSwitch
	OpUnreachable
	OpPhi
	OpAlloca
	OpLoad
	OpStore
	OpCall
	OpVSelect
	OpCmp2
)

// PhiIncoming is one (value, predecessor-block) pair of a PHI
// instruction. Val may be a forward reference resolved via the sign
// rotated relative encoding; BlockID always refers to an
// already-declared basic block index (basic blocks are declared
// up front by DECLAREBLOCKS, so no forward reference is needed there).
type PhiIncoming struct {
	Val     ValueID
	BlockID int
}

// Instruction is one decoded instruction within a function body. Not
// every field is meaningful for every Op; see the apply* method in
// decode_function.go that decodes each Op for the record shape it was
// decoded from.
type Instruction struct {
	Op   Op
	Type TypeID // result type, or -1 if the instruction has no result (Ret/Br/Switch/Unreachable/Store)

	// Binop / Cast / Cmp2
	BinOp     BinOp
	CastOp    CastOp
	Predicate Predicate
	Flags     uint32
	LHS, RHS  ValueID

	// Alloca
	AllocaElemType TypeID
	AllocaSize     ValueID // -1 if not present (single-element alloca)
	AllocaAlign    int     // log2(align)+1 encoding already decoded to a byte count, or 0

	// Load / Store
	PointerOperand ValueID
	ValueOperand   ValueID // Store's stored value
	Align          int     // byte alignment, already decoded from the log2+1 field

	// Ret
	RetVal ValueID // -1 for a void return

	// Br
	Cond       ValueID // -1 for an unconditional branch
	TrueBlock  int
	FalseBlock int // only meaningful when Cond != -1

	// Switch
	SwitchCond    ValueID
	SwitchDefault int
	SwitchCases   []SwitchCase

	// Phi
	PhiIncoming []PhiIncoming

	// Call
	CalleeType TypeID
	Callee     ValueID
	Args       []ValueID
	IsIndirect bool

	// VSelect
	SelectCond, SelectTrue, SelectFalse ValueID
}

// SwitchCase is one value/destination pair of a SWITCH instruction.
type SwitchCase struct {
	Value uint64
	Block int
}
