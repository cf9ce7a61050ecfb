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

// DecodeOptions configures Decode. Streaming, when true, defers every
// function body's materialization until Materialize is called
// explicitly (§6). ReduceMemoryFootprint is recorded for the caller
// but not consulted by Decode or Materialize; no body is dropped
// unless the caller calls Discard(f) itself.
type DecodeOptions struct {
	Streaming             bool
	ReduceMemoryFootprint bool
}

// Decode parses src's top-level MODULE block into a Module, appending
// any recoverable diagnostics to rep and returning the first
// unrecoverable (structural) error encountered, if any.
func Decode(src bitstream.Source, opts DecodeOptions, rep *diag.Reporter) (*Module, error) {
	cur, err := bitstream.NewCursor(src)
	if err != nil {
		return nil, err
	}

	preBit := cur.GetCurrentBit()
	e, err := cur.Advance()
	if err != nil {
		return nil, err
	}
	if e.Kind != bitstream.EntrySubBlock || e.ID != BlockModule {
		return nil, diag.Malformed(preBit, "expected top-level MODULE block, found entry kind %d", e.Kind)
	}
	if err := cur.EnterSubBlock(e.ID); err != nil {
		return nil, err
	}

	m := &Module{
		ValueNames: make(map[string]ValueID),
		streaming:  opts.Streaming,
		src:        src,
	}

	var bodyQueue []int // indices into m.Functions awaiting a body, in declaration order

	for {
		preBit = cur.GetCurrentBit()
		e, err := cur.Advance()
		if err != nil {
			return nil, err
		}
		switch e.Kind {
		case bitstream.EntryEndBlock:
			if err := cur.ExitBlock(); err != nil {
				return nil, err
			}
			if len(bodyQueue) != 0 {
				rep.AddError(diag.Malformed(preBit, "%d function prototype(s) never received a body", len(bodyQueue)))
			}
			if err := m.GlobalValues.CheckResolved(); err != nil {
				rep.AddError(err)
			}
			resolveValueNames(m)
			rewriteIntrinsicSignatures(m)
			return m, nil

		case bitstream.EntrySubBlock:
			switch e.ID {
			case bitstream.BlockInfoBlockID:
				if err := cur.EnterSubBlock(e.ID); err != nil {
					return nil, err
				}
				if err := cur.ReadBlockInfoBlock(); err != nil {
					return nil, err
				}
			case BlockType:
				if err := cur.EnterSubBlock(e.ID); err != nil {
					return nil, err
				}
				if err := decodeTypeBlock(cur, &m.Types, rep); err != nil {
					return nil, err
				}
			case BlockGlobalVar:
				if err := cur.EnterSubBlock(e.ID); err != nil {
					return nil, err
				}
				if err := decodeGlobalVarBlock(cur, m, rep); err != nil {
					return nil, err
				}
			case BlockConstants:
				if err := cur.EnterSubBlock(e.ID); err != nil {
					return nil, err
				}
				if err := decodeModuleConstants(cur, m, rep); err != nil {
					return nil, err
				}
			case BlockValueSymtab:
				if err := cur.EnterSubBlock(e.ID); err != nil {
					return nil, err
				}
				if err := decodeModuleVST(cur, m, rep); err != nil {
					return nil, err
				}
			case BlockFunction:
				if len(bodyQueue) == 0 {
					return nil, diag.Malformed(preBit, "FUNCTION body block with no matching undefined prototype")
				}
				fnIdx := bodyQueue[0]
				bodyQueue = bodyQueue[1:]
				f := &m.Functions[fnIdx]
				f.bodyBitOffset = preBit
				if err := cur.EnterSubBlock(e.ID); err != nil {
					return nil, err
				}
				if m.streaming {
					if err := cur.SkipBlock(); err != nil {
						return nil, err
					}
				} else {
					seedFunctionValues(m, f)
					if err := decodeFunctionBody(cur, m, f, rep); err != nil {
						return nil, err
					}
					f.materialized = true
				}
			default:
				if err := cur.EnterSubBlock(e.ID); err != nil {
					return nil, err
				}
				if err := cur.SkipBlock(); err != nil {
					return nil, err
				}
			}

		case bitstream.EntryRecord:
			rec, err := cur.ReadRecord(e.ID)
			if err != nil {
				return nil, err
			}
			switch rec.Code {
			case moduleCodeVersion:
				if len(rec.Values) < 1 {
					rep.AddError(diag.Invalid(preBit, "MODULE_CODE_VERSION missing operand"))
					continue
				}
				m.Version = rec.Values[0]
				if m.Version != 1 {
					return nil, diag.Version(int(m.Version))
				}
			case moduleCodeFunction:
				fn, isDecl, ferr := parseFunctionProto(rec)
				if ferr != nil {
					rep.AddError(ferr)
					continue
				}
				fn.IsDeclOnly = isDecl
				idx := len(m.Functions)
				m.Functions = append(m.Functions, fn)
				m.GlobalValues.Append(Value{Kind: ValueFunction, Ref: idx})
				if !isDecl {
					bodyQueue = append(bodyQueue, idx)
				}
			default:
				rep.AddError(diag.Unknown(preBit, "unknown MODULE record code %d", rec.Code))
			}
		}
	}
}

// parseFunctionProto decodes a MODULE_CODE_FUNCTION record:
// [type, callingconv, isproto, align].
func parseFunctionProto(rec bitstream.Record) (Function, bool, error) {
	if len(rec.Values) < 3 {
		return Function{}, false, diag.Invalid(-1, "MODULE_CODE_FUNCTION missing operands")
	}
	f := Function{Type: TypeID(rec.Values[0]), Calling: CallingConv(rec.Values[1])}
	isDecl := rec.Values[2] != 0
	if len(rec.Values) > 3 {
		f.Align = decodeAlign(rec.Values[3])
	}
	return f, isDecl, nil
}

// seedFunctionValues pre-populates f.Values with the module's
// global-scope entries (so a function body can reference any global
// or function, forward or not, without renumbering) and then the
// function's own parameters, whose types come from its TypeFunction
// prototype.
func seedFunctionValues(m *Module, f *Function) {
	for i := 0; i < m.GlobalValues.Len(); i++ {
		v, _ := m.GlobalValues.At(ValueID(i))
		f.Values.Append(v)
	}
	ty, err := m.Types.At(f.Type)
	if err != nil || ty.Kind != TypeFunction {
		return
	}
	f.Params = make([]ValueID, len(ty.Params))
	for i, pty := range ty.Params {
		f.Params[i] = f.Values.Append(Value{Kind: ValueArgument, Type: pty, Ref: i})
	}
}

// decodeModuleConstants parses a module-scope CONSTANTS block,
// appending entries to the module's global value list (§3's
// supplement restoring first-class constant entries to the value
// list rather than re-deriving them on demand).
func decodeModuleConstants(cur *bitstream.Cursor, m *Module, rep *diag.Reporter) error {
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
				m.GlobalValues.Append(Value{Kind: ValueConstant, Type: setType})
			case constCodeInteger, constCodeFloat:
				var raw uint64
				if len(rec.Values) > 0 {
					raw = rec.Values[0]
				}
				m.GlobalValues.Append(Value{Kind: ValueConstant, Type: setType, Ref: int(decodeSignedVBR(raw))})
			default:
				rep.AddError(diag.Unknown(-1, "unknown CONSTANTS record code %d", rec.Code))
			}
		}
	}
}
