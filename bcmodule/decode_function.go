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

import (
	"github.com/libpbc/pbc/bitstream"
	"github.com/libpbc/pbc/diag"
)

// funcBodyDecoder holds the state threaded through one FUNCTION
// block's records. Every instruction that produces a result appends
// to f.Values and bumps the running next-value-id count, mirroring
// NaClBitcodeReader's ValueList.size()-based numbering.
type funcBodyDecoder struct {
	cur  *bitstream.Cursor
	m    *Module
	f    *Function
	rep  *diag.Reporter
	curBlock int
}

// decodeFunctionBody parses one FUNCTION block's body into f,
// assuming the cursor is already positioned inside it (immediately
// after EnterSubBlock) and f.Values has already been seeded with the
// module-scope entries plus this function's Params.
func decodeFunctionBody(cur *bitstream.Cursor, m *Module, f *Function, rep *diag.Reporter) error {
	d := &funcBodyDecoder{cur: cur, m: m, f: f, rep: rep}
	for {
		e, err := cur.Advance()
		if err != nil {
			return err
		}
		switch e.Kind {
		case bitstream.EntryEndBlock:
			if err := f.Values.CheckResolved(); err != nil {
				rep.AddError(err)
			}
			insertPointerConversions(m, f)
			return cur.ExitBlock()
		case bitstream.EntrySubBlock:
			switch e.ID {
			case BlockValueSymtab:
				if err := cur.EnterSubBlock(e.ID); err != nil {
					return err
				}
				if err := decodeFunctionVST(cur, f, rep); err != nil {
					return err
				}
			case BlockConstants:
				if err := cur.EnterSubBlock(e.ID); err != nil {
					return err
				}
				if err := decodeFunctionConstants(cur, f, rep); err != nil {
					return err
				}
			default:
				if err := cur.EnterSubBlock(e.ID); err != nil {
					return err
				}
				if err := cur.SkipBlock(); err != nil {
					return err
				}
			}
		case bitstream.EntryRecord:
			rec, err := cur.ReadRecord(e.ID)
			if err != nil {
				return err
			}
			if err := d.apply(rec); err != nil {
				rep.AddError(err)
			}
		}
	}
}

// decodeFunctionConstants parses a function-scope CONSTANTS block the
// same way as the module-scope one, appending directly to the
// function's value list instead of the module's.
func decodeFunctionConstants(cur *bitstream.Cursor, f *Function, rep *diag.Reporter) error {
	var setType TypeID = -1
	for {
		e, err := cur.Advance()
		if err != nil {
			return err
		}
		switch e.Kind {
		case bitstream.EntryEndBlock:
			return cur.ExitBlock()
		case bitstream.EntrySubBlock:
			if err := cur.SkipBlock(); err != nil {
				return err
			}
		case bitstream.EntryRecord:
			rec, err := cur.ReadRecord(e.ID)
			if err != nil {
				return err
			}
			switch rec.Code {
			case constCodeSetType:
				if len(rec.Values) < 1 {
					rep.AddError(diag.Invalid(-1, "CST_CODE_SETTYPE missing operand"))
					continue
				}
				setType = TypeID(rec.Values[0])
			case constCodeUndef:
				f.Values.Append(Value{Kind: ValueConstant, Type: setType})
			case constCodeInteger, constCodeFloat:
				var raw uint64
				if len(rec.Values) > 0 {
					raw = rec.Values[0]
				}
				f.Values.Append(Value{Kind: ValueConstant, Type: setType, Ref: int(decodeSignedVBR(raw))})
			default:
				rep.AddError(diag.Unknown(-1, "unknown CONSTANTS record code %d", rec.Code))
			}
		}
	}
}

// relBase returns the "current value number" relative decoding is
// based on: the value list's length at the point the instruction
// producing the *next* id is being decoded.
func (d *funcBodyDecoder) relBase() ValueID {
	return ValueID(d.f.Values.Len())
}

// emit appends an instruction to the flattened stream and, if it
// yields a result (Type >= 0), appends a corresponding value-list
// entry, returning that value's id.
func (d *funcBodyDecoder) emit(in Instruction) ValueID {
	idx := len(d.f.Instructions)
	d.f.Instructions = append(d.f.Instructions, in)
	if in.Type < 0 {
		return -1
	}
	return d.f.Values.Append(Value{Kind: ValueInstruction, Type: in.Type, Ref: idx})
}

func (d *funcBodyDecoder) endBlock() {
	d.f.BasicBlockBounds = append(d.f.BasicBlockBounds, len(d.f.Instructions))
	d.curBlock++
}

func (d *funcBodyDecoder) apply(rec bitstream.Record) error {
	switch rec.Code {
	case funcCodeDeclareBlocks:
		// operand 0 is the total basic block count; the decoder
		// doesn't need to pre-size anything since BasicBlockBounds
		// grows one entry per terminator encountered.
		return nil
	case funcCodeInstBinop:
		return d.applyBinop(rec)
	case funcCodeInstCast:
		return d.applyCast(rec)
	case funcCodeInstRet:
		return d.applyRet(rec)
	case funcCodeInstBr:
		return d.applyBr(rec)
	case funcCodeInstSwitch:
		return d.applySwitch(rec)
	case funcCodeInstUnreachable:
		d.emit(Instruction{Op: OpUnreachable, Type: -1})
		d.endBlock()
		return nil
	case funcCodeInstPhi:
		return d.applyPhi(rec)
	case funcCodeInstAlloca:
		return d.applyAlloca(rec)
	case funcCodeInstLoad:
		return d.applyLoad(rec)
	case funcCodeInstStore:
		return d.applyStore(rec)
	case funcCodeInstCall:
		return d.applyCall(rec)
	case funcCodeInstVSelect:
		return d.applyVSelect(rec)
	case funcCodeInstCmp2:
		return d.applyCmp2(rec)
	case funcCodeInstFwdTypeRef:
		return d.applyForwardTypeRef(rec)
	default:
		return diag.Unknown(-1, "unknown FUNCTION record code %d", rec.Code)
	}
}

func (d *funcBodyDecoder) applyBinop(rec bitstream.Record) error {
	if len(rec.Values) < 3 {
		return diag.Invalid(-1, "INST_BINOP missing operands")
	}
	base := d.relBase()
	lhs := decodeRelativeValueID(base, rec.Values[0])
	rhs := decodeRelativeValueID(base, rec.Values[1])
	op := BinOp(rec.Values[2])
	var flags uint32
	if len(rec.Values) > 3 {
		flags = uint32(rec.Values[3])
	}
	lv, err := d.f.Values.At(lhs)
	if err != nil {
		return err
	}
	d.emit(Instruction{Op: OpBinop, Type: lv.Type, BinOp: op, Flags: flags, LHS: lhs, RHS: rhs})
	return nil
}

func (d *funcBodyDecoder) applyCast(rec bitstream.Record) error {
	if len(rec.Values) < 3 {
		return diag.Invalid(-1, "INST_CAST missing operands")
	}
	base := d.relBase()
	val := decodeRelativeValueID(base, rec.Values[0])
	destTy := TypeID(rec.Values[1])
	op := CastOp(rec.Values[2])
	d.emit(Instruction{Op: OpCast, Type: destTy, CastOp: op, LHS: val})
	return nil
}

func (d *funcBodyDecoder) applyRet(rec bitstream.Record) error {
	base := d.relBase()
	in := Instruction{Op: OpRet, Type: -1, RetVal: -1}
	if len(rec.Values) > 0 {
		in.RetVal = decodeRelativeValueID(base, rec.Values[0])
	}
	d.emit(in)
	d.endBlock()
	return nil
}

func (d *funcBodyDecoder) applyBr(rec bitstream.Record) error {
	if len(rec.Values) < 1 {
		return diag.Invalid(-1, "INST_BR missing target block")
	}
	in := Instruction{Op: OpBr, Type: -1, Cond: -1}
	in.TrueBlock = int(rec.Values[0])
	if len(rec.Values) >= 3 {
		in.FalseBlock = int(rec.Values[1])
		base := d.relBase()
		in.Cond = decodeRelativeValueID(base, rec.Values[2])
	}
	d.emit(in)
	d.endBlock()
	return nil
}

func (d *funcBodyDecoder) applySwitch(rec bitstream.Record) error {
	if len(rec.Values) < 3 {
		return diag.Invalid(-1, "INST_SWITCH missing operands")
	}
	base := d.relBase()
	in := Instruction{Op: OpSwitch, Type: -1}
	in.SwitchCond = decodeRelativeValueID(base, rec.Values[1])
	in.SwitchDefault = int(rec.Values[2])
	rest := rec.Values[3:]
	for i := 0; i+1 < len(rest); i += 2 {
		in.SwitchCases = append(in.SwitchCases, SwitchCase{Value: rest[i], Block: int(rest[i+1])})
	}
	d.emit(in)
	d.endBlock()
	return nil
}

func (d *funcBodyDecoder) applyPhi(rec bitstream.Record) error {
	if len(rec.Values) < 1 {
		return diag.Invalid(-1, "INST_PHI missing type operand")
	}
	ty := TypeID(rec.Values[0])
	base := d.relBase()
	in := Instruction{Op: OpPhi, Type: ty}
	rest := rec.Values[1:]
	for i := 0; i+1 < len(rest); i += 2 {
		val := decodeSignRotatedValueID(base, rest[i])
		if int(val) >= int(base) {
			// forward reference past anything defined so far: reserve
			// a typed placeholder so later instructions/PHIs resolving
			// it find a slot, per the Value List's typed-placeholder
			// form of forward reference.
			d.f.Values.ReserveAt(val, ty)
		}
		in.PhiIncoming = append(in.PhiIncoming, PhiIncoming{Val: val, BlockID: int(rest[i+1])})
	}
	d.emit(in)
	return nil
}

func (d *funcBodyDecoder) applyAlloca(rec bitstream.Record) error {
	if len(rec.Values) < 4 {
		return diag.Invalid(-1, "INST_ALLOCA missing operands")
	}
	in := Instruction{
		Op:             OpAlloca,
		Type:           TypeID(rec.Values[0]),
		AllocaElemType: TypeID(rec.Values[1]),
		AllocaAlign:    decodeAlign(rec.Values[3]),
		AllocaSize:     -1,
	}
	base := d.relBase()
	if rec.Values[2] != 0 {
		in.AllocaSize = decodeRelativeValueID(base, rec.Values[2])
	}
	d.emit(in)
	return nil
}

// applyLoad decodes an INST_LOAD record: [pointer, align, ty]. There
// is no volatile operand in this dialect.
func (d *funcBodyDecoder) applyLoad(rec bitstream.Record) error {
	if len(rec.Values) < 3 {
		return diag.Invalid(-1, "INST_LOAD missing operands")
	}
	base := d.relBase()
	in := Instruction{
		Op:             OpLoad,
		PointerOperand: decodeRelativeValueID(base, rec.Values[0]),
		Align:          decodeAlign(rec.Values[1]),
		Type:           TypeID(rec.Values[2]),
	}
	d.emit(in)
	return nil
}

// applyStore decodes an INST_STORE record: [pointer, value, align].
// There is no volatile operand in this dialect.
func (d *funcBodyDecoder) applyStore(rec bitstream.Record) error {
	if len(rec.Values) < 3 {
		return diag.Invalid(-1, "INST_STORE missing operands")
	}
	base := d.relBase()
	in := Instruction{
		Op:             OpStore,
		Type:           -1,
		PointerOperand: decodeRelativeValueID(base, rec.Values[0]),
		ValueOperand:   decodeRelativeValueID(base, rec.Values[1]),
		Align:          decodeAlign(rec.Values[2]),
	}
	d.emit(in)
	return nil
}

// decodeAlign converts the bitstream's "log2(byte align)+1, or 0 for
// unspecified" alignment encoding to a byte count. 0 stays 0: whether
// an unspecified alignment is acceptable is an ABI question, not a
// decode question.
func decodeAlign(raw uint64) int {
	if raw == 0 {
		return 0
	}
	return 1 << (raw - 1)
}

func (d *funcBodyDecoder) applyCall(rec bitstream.Record) error {
	if len(rec.Values) < 3 {
		return diag.Invalid(-1, "INST_CALL missing operands")
	}
	base := d.relBase()
	in := Instruction{Op: OpCall}
	in.CalleeType = TypeID(rec.Values[0])
	in.Callee = decodeRelativeValueID(base, rec.Values[1])
	in.Type = TypeID(rec.Values[2])
	if ty, err := d.m.Types.At(in.CalleeType); err == nil {
		in.IsIndirect = ty.Kind != TypeFunction
	}
	for _, v := range rec.Values[3:] {
		in.Args = append(in.Args, decodeRelativeValueID(base, v))
	}
	d.emit(in)
	return nil
}

func (d *funcBodyDecoder) applyVSelect(rec bitstream.Record) error {
	if len(rec.Values) < 3 {
		return diag.Invalid(-1, "INST_VSELECT missing operands")
	}
	base := d.relBase()
	trueV := decodeRelativeValueID(base, rec.Values[0])
	falseV := decodeRelativeValueID(base, rec.Values[1])
	cond := decodeRelativeValueID(base, rec.Values[2])
	tv, err := d.f.Values.At(trueV)
	if err != nil {
		return err
	}
	d.emit(Instruction{Op: OpVSelect, Type: tv.Type, SelectCond: cond, SelectTrue: trueV, SelectFalse: falseV})
	return nil
}

func (d *funcBodyDecoder) applyCmp2(rec bitstream.Record) error {
	if len(rec.Values) < 3 {
		return diag.Invalid(-1, "INST_CMP2 missing operands")
	}
	base := d.relBase()
	lhs := decodeRelativeValueID(base, rec.Values[0])
	rhs := decodeRelativeValueID(base, rec.Values[1])
	pred := Predicate(rec.Values[2])
	d.emit(Instruction{
		Op:        OpCmp2,
		Type:      d.boolType(),
		Predicate: pred,
		LHS:       lhs,
		RHS:       rhs,
	})
	return nil
}

// boolType finds (or, if absent, reports) the i1 type used as every
// comparison's result type; the portable dialect always has one,
// since booleans are represented as i1 throughout.
func (d *funcBodyDecoder) boolType() TypeID {
	for i := 0; i < d.m.Types.Len(); i++ {
		ty, _ := d.m.Types.At(TypeID(i))
		if ty.Kind == TypeInteger && ty.IntWidth == 1 {
			return TypeID(i)
		}
	}
	d.rep.AddError(diag.Invalid(-1, "no i1 type in the type table for a comparison result"))
	return -1
}

func (d *funcBodyDecoder) applyForwardTypeRef(rec bitstream.Record) error {
	if len(rec.Values) < 2 {
		return diag.Invalid(-1, "FORWARDTYPEREF missing operands")
	}
	id := ValueID(rec.Values[0])
	ty := TypeID(rec.Values[1])
	d.f.Values.ReserveAt(id, ty)
	return nil
}
