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

// Package bcmodule consumes a bitstream.Cursor and materializes a
// typed module: type table, global variables with structured
// initializers, function declarations and bodies, and a value symbol
// table. It owns a forward-reference-tolerant value list and supports
// lazy per-function body parsing.
package bcmodule

import "github.com/libpbc/pbc/bitstream"

// Block ids. Ids below bitstream.FirstApplicationBlockID are
// reserved; BlockInfo lives at id 0.
const (
	BlockInfo     = bitstream.BlockInfoBlockID
	BlockModule   uint64 = 8
	BlockConstants uint64 = 11
	BlockFunction  uint64 = 12
	BlockValueSymtab uint64 = 14
	BlockType      uint64 = 17
	BlockGlobalVar uint64 = 19
)

// MODULE block record codes.
const (
	moduleCodeVersion  uint64 = 1
	moduleCodeFunction uint64 = 8
)

// TYPE block record codes.
const (
	typeCodeNumEntry uint64 = 1
	typeCodeVoid     uint64 = 2
	typeCodeFloat    uint64 = 3
	typeCodeDouble   uint64 = 4
	typeCodeInteger  uint64 = 7
	typeCodeFunction uint64 = 21
)

// GLOBALVAR block record codes.
const (
	globalVarVar      uint64 = 0
	globalVarCompound uint64 = 1
	globalVarZeroFill uint64 = 2
	globalVarData     uint64 = 3
	globalVarReloc    uint64 = 4
	globalVarCount    uint64 = 5
)

// CONSTANTS block record codes.
const (
	constCodeUndef   uint64 = 0
	constCodeSetType uint64 = 1
	constCodeInteger uint64 = 2
	constCodeFloat   uint64 = 3
)

// VALUE_SYMTAB block record codes.
const (
	vstCodeEntry   uint64 = 1
	vstCodeBBEntry uint64 = 2
)

// FUNCTION block record codes (the closed instruction set, §4.2.4).
const (
	funcCodeDeclareBlocks uint64 = 1
	funcCodeInstBinop     uint64 = 2
	funcCodeInstCast      uint64 = 3
	funcCodeInstRet       uint64 = 10
	funcCodeInstBr        uint64 = 11
	funcCodeInstSwitch    uint64 = 12
	funcCodeInstUnreachable uint64 = 15
	funcCodeInstPhi       uint64 = 16
	funcCodeInstAlloca    uint64 = 19
	funcCodeInstLoad      uint64 = 20
	funcCodeInstStore     uint64 = 24
	// funcCodeInstCall covers both direct and indirect calls with one
	// record layout, [callee-type-id, callee, return-type-id, args...].
	// applyCall marks a call indirect when the callee-type id does not
	// name a function type; the return-type operand is present in both
	// forms and does not tell them apart. There is no separate
	// indirect-call record code.
	funcCodeInstCall      uint64 = 34
	funcCodeInstVSelect   uint64 = 37
	funcCodeInstCmp2      uint64 = 44
	funcCodeInstFwdTypeRef uint64 = 49
)

// CallingConv is the calling convention attached to a function
// prototype. The dialect only permits C.
type CallingConv uint8

const (
	CallingConvC CallingConv = 0
)

// BinOp is the closed set of binary-arithmetic opcodes.
type BinOp uint8

const (
	BinopAdd BinOp = iota
	BinopSub
	BinopMul
	BinopUDiv
	BinopSDiv
	BinopURem
	BinopSRem
	BinopShl
	BinopLShr
	BinopAShr
	BinopAnd
	BinopOr
	BinopXor
)

var binopNames = [...]string{
	BinopAdd: "add", BinopSub: "sub", BinopMul: "mul",
	BinopUDiv: "udiv", BinopSDiv: "sdiv",
	BinopURem: "urem", BinopSRem: "srem",
	BinopShl: "shl", BinopLShr: "lshr", BinopAShr: "ashr",
	BinopAnd: "and", BinopOr: "or", BinopXor: "xor",
}

func (b BinOp) String() string {
	if int(b) < len(binopNames) {
		return binopNames[b]
	}
	return "binop?"
}

// CastOp is the closed set of cast opcodes.
type CastOp uint8

const (
	CastTrunc CastOp = iota
	CastZExt
	CastSExt
	CastFPToUI
	CastFPToSI
	CastUIToFP
	CastSIToFP
	CastFPTrunc
	CastFPExt
	CastBitCast
)

var castNames = [...]string{
	CastTrunc: "trunc", CastZExt: "zext", CastSExt: "sext",
	CastFPToUI: "fptoui", CastFPToSI: "fptosi",
	CastUIToFP: "uitofp", CastSIToFP: "sitofp",
	CastFPTrunc: "fptrunc", CastFPExt: "fpext", CastBitCast: "bitcast",
}

func (c CastOp) String() string {
	if int(c) < len(castNames) {
		return castNames[c]
	}
	return "cast?"
}

// Predicate is the closed set of integer/floating comparison
// predicates carried by a CMP2 record.
type Predicate uint8

const (
	ICmpEQ Predicate = iota
	ICmpNE
	ICmpUGT
	ICmpUGE
	ICmpULT
	ICmpULE
	ICmpSGT
	ICmpSGE
	ICmpSLT
	ICmpSLE
	FCmpFalse
	FCmpOEQ
	FCmpOGT
	FCmpOGE
	FCmpOLT
	FCmpOLE
	FCmpONE
	FCmpORD
	FCmpUNO
	FCmpUEQ
	FCmpUGT
	FCmpUGE
	FCmpULT
	FCmpULE
	FCmpUNE
	FCmpTrue
)

// Binary-op flag bits, carried optionally after the opcode operand.
const (
	FlagNoSignedWrap   uint32 = 1 << 0
	FlagNoUnsignedWrap uint32 = 1 << 1
	FlagExact          uint32 = 1 << 2
	// Floating-point IEEE-relaxation bits.
	FlagUnsafeAlgebra    uint32 = 1 << 3
	FlagNoNaNs           uint32 = 1 << 4
	FlagNoInfs           uint32 = 1 << 5
	FlagNoSignedZeros    uint32 = 1 << 6
	FlagAllowReciprocal  uint32 = 1 << 7
)

// Atomic memory orders. Only MemoryOrderSequentiallyConsistent is
// ever accepted by the verifier; the rest name the other order values
// and are not accepted. The verifier reports a rejected order by its
// number.
type MemoryOrder uint8

const (
	MemoryOrderInvalid MemoryOrder = iota
	MemoryOrderRelaxed
	MemoryOrderConsume
	MemoryOrderAcquire
	MemoryOrderRelease
	MemoryOrderAcquireRelease
	MemoryOrderSequentiallyConsistent
	memoryOrderNum
)

// AtomicRMWOp is the set of legal atomic.rmw operation selectors.
type AtomicRMWOp uint8

const (
	AtomicRMWInvalid AtomicRMWOp = iota
	AtomicRMWAdd
	AtomicRMWSub
	AtomicRMWOr
	AtomicRMWAnd
	AtomicRMWXor
	AtomicRMWExchange
	atomicRMWNum
)
