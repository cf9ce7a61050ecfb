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

// decodeTypeBlock consumes records until the block's END_BLOCK,
// filling in types. Must be called with the cursor already inside the
// TYPE block.
func decodeTypeBlock(cur *bitstream.Cursor, types *TypeTable, rep *diag.Reporter) error {
	for {
		e, err := cur.Advance()
		if err != nil {
			return err
		}
		switch e.Kind {
		case bitstream.EntryEndBlock:
			if err := cur.ExitBlock(); err != nil {
				return err
			}
			return types.Finish()
		case bitstream.EntrySubBlock:
			if err := cur.SkipBlock(); err != nil {
				return err
			}
		case bitstream.EntryRecord:
			rec, err := cur.ReadRecord(e.ID)
			if err != nil {
				return err
			}
			if err := applyTypeRecord(rec, types); err != nil {
				rep.AddError(err)
			}
		}
	}
}

func applyTypeRecord(rec bitstream.Record, types *TypeTable) error {
	switch rec.Code {
	case typeCodeNumEntry:
		if len(rec.Values) < 1 {
			return diag.Malformed(-1, "TYPE_CODE_NUMENTRY missing operand")
		}
		return types.Reserve(int(rec.Values[0]))
	case typeCodeVoid:
		types.Append(Type{Kind: TypeVoid})
	case typeCodeFloat:
		types.Append(Type{Kind: TypeFloat32})
	case typeCodeDouble:
		types.Append(Type{Kind: TypeFloat64})
	case typeCodeInteger:
		if len(rec.Values) < 1 {
			return diag.Malformed(-1, "TYPE_CODE_INTEGER missing width operand")
		}
		types.Append(Type{Kind: TypeInteger, IntWidth: int(rec.Values[0])})
	case typeCodeFunction:
		// [vararg, retty, paramty...]
		if len(rec.Values) < 2 {
			return diag.Malformed(-1, "TYPE_CODE_FUNCTION missing operands")
		}
		params := make([]TypeID, 0, len(rec.Values)-2)
		for _, v := range rec.Values[2:] {
			params = append(params, TypeID(v))
		}
		types.Append(Type{
			Kind:    TypeFunction,
			Vararg:  rec.Values[0] != 0,
			Returns: TypeID(rec.Values[1]),
			Params:  params,
		})
	default:
		return diag.Unknown(-1, "unknown type record code %d", rec.Code)
	}
	return nil
}
