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

// decodeGlobalVarBlock consumes the GLOBALVAR block, appending entries
// to m.Globals and seeding a module-scope ValueID for each one up
// front (globals are visible to every function body regardless of
// declaration order, so their ids must exist before any function
// block is parsed).
func decodeGlobalVarBlock(cur *bitstream.Cursor, m *Module, rep *diag.Reporter) error {
	var open *Global // the global currently being assembled, if any
	var openID ValueID
	var wantFragments int // declared by GLOBALVAR_COMPOUND, 0 if not seen

	finishCurrent := func() {
		if open != nil {
			if len(open.Fragments) == 0 {
				open.Fragments = []Initializer{ZeroFillInit{}}
			} else if wantFragments != 0 && len(open.Fragments) != wantFragments {
				rep.AddError(diag.Invalid(-1, "global %q declared %d initializer fragment(s) but got %d", open.Name, wantFragments, len(open.Fragments)))
			}
			m.Globals = append(m.Globals, *open)
			m.GlobalValues.Install(openID, Value{Kind: ValueGlobal, Ref: len(m.Globals) - 1})
			open = nil
		}
		wantFragments = 0
	}

	for {
		e, err := cur.Advance()
		if err != nil {
			return err
		}
		switch e.Kind {
		case bitstream.EntryEndBlock:
			finishCurrent()
			if err := cur.ExitBlock(); err != nil {
				return err
			}
			return nil
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
			case globalVarCount:
				// purely advisory; the decoder doesn't pre-size Globals
				// because relocations may reference ids past it.
			case globalVarVar:
				finishCurrent()
				if len(rec.Values) < 2 {
					rep.AddError(diag.Invalid(-1, "GLOBALVAR_VAR missing operands"))
					continue
				}
				isConstant := rec.Values[0] != 0
				align := 0
				if len(rec.Values) > 1 {
					align = decodeAlign(rec.Values[1])
				}
				open = &Global{IsConstant: isConstant, Align: align}
				// Take the lowest slot an earlier GLOBALVAR_RELOC reserved
				// as a forward reference, if any, so ids follow
				// declaration order.
				openID = ValueID(m.GlobalValues.Len())
				for id := range m.GlobalValues.pending {
					if id < openID {
						openID = id
					}
				}
				m.GlobalValues.ReserveAt(openID, -1)
			case globalVarCompound:
				if open == nil {
					rep.AddError(diag.Invalid(-1, "GLOBALVAR_COMPOUND with no open global"))
					continue
				}
				if len(rec.Values) < 1 {
					rep.AddError(diag.Invalid(-1, "GLOBALVAR_COMPOUND missing fragment-count operand"))
					continue
				}
				// Declares how many ZEROFILL/DATA/RELOC fragment records
				// follow for the current global; the record itself
				// carries no initializer data of its own.
				wantFragments = int(rec.Values[0])
			case globalVarZeroFill:
				if open == nil {
					rep.AddError(diag.Invalid(-1, "GLOBALVAR_ZEROFILL with no open global"))
					continue
				}
				size := uint64(0)
				if len(rec.Values) > 0 {
					size = rec.Values[0]
				}
				open.Fragments = append(open.Fragments, ZeroFillInit{Size: size})
			case globalVarData:
				if open == nil {
					rep.AddError(diag.Invalid(-1, "GLOBALVAR_DATA with no open global"))
					continue
				}
				data := make([]byte, len(rec.Values))
				for i, v := range rec.Values {
					data[i] = byte(v)
				}
				open.Fragments = append(open.Fragments, DataInit{Bytes: data})
			case globalVarReloc:
				if open == nil {
					rep.AddError(diag.Invalid(-1, "GLOBALVAR_RELOC with no open global"))
					continue
				}
				if len(rec.Values) < 1 {
					rep.AddError(diag.Invalid(-1, "GLOBALVAR_RELOC missing target operand"))
					continue
				}
				target := ValueID(rec.Values[0])
				addend := int64(0)
				if len(rec.Values) > 1 {
					addend = int64(rec.Values[1])
				}
				// The referenced global may not exist yet: reserve an
				// untyped placeholder slot for it if it doesn't, which
				// decodeGlobalVarBlock's own later GLOBALVAR_VAR+Install
				// sequence (or a forward one already processed) will fill.
				m.GlobalValues.ReserveAt(target, -1)
				open.Fragments = append(open.Fragments, RelocInit{Target: target, Addend: addend})
			default:
				rep.AddError(diag.Unknown(-1, "unknown GLOBALVAR record code %d", rec.Code))
			}
		}
	}
}
