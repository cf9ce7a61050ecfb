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
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/libpbc/pbc/bitstream"
	"github.com/libpbc/pbc/diag"
)

// decodeModuleVST consumes a module-scope VALUE_SYMTAB block (names
// for globals and functions) into m.ValueNames.
func decodeModuleVST(cur *bitstream.Cursor, m *Module, rep *diag.Reporter) error {
	return decodeVST(cur, rep, func(rec bitstream.Record) error {
		switch rec.Code {
		case vstCodeEntry:
			if len(rec.Values) < 1 {
				return diag.Invalid(-1, "VST_CODE_ENTRY missing value id")
			}
			m.ValueNames[rec.Text] = ValueID(rec.Values[0])
			return nil
		case vstCodeBBEntry:
			return diag.Invalid(-1, "VST_CODE_BBENTRY is only valid inside a function-scope value symbol table")
		default:
			return diag.Unknown(-1, "unknown VALUE_SYMTAB record code %d", rec.Code)
		}
	})
}

// decodeFunctionVST consumes a function-scope VALUE_SYMTAB block,
// naming both instruction-level values (VST_CODE_ENTRY) and basic
// blocks (VST_CODE_BBENTRY).
func decodeFunctionVST(cur *bitstream.Cursor, f *Function, rep *diag.Reporter) error {
	if f.VST == nil {
		f.VST = make(map[string]ValueID)
	}
	if f.BlockNames == nil {
		f.BlockNames = make(map[int]string)
	}
	return decodeVST(cur, rep, func(rec bitstream.Record) error {
		switch rec.Code {
		case vstCodeEntry:
			if len(rec.Values) < 1 {
				return diag.Invalid(-1, "VST_CODE_ENTRY missing value id")
			}
			f.VST[rec.Text] = ValueID(rec.Values[0])
			return nil
		case vstCodeBBEntry:
			if len(rec.Values) < 1 {
				return diag.Invalid(-1, "VST_CODE_BBENTRY missing block id")
			}
			f.BlockNames[int(rec.Values[0])] = rec.Text
			return nil
		default:
			return diag.Unknown(-1, "unknown VALUE_SYMTAB record code %d", rec.Code)
		}
	})
}

// SortedVSTNames returns f's value-symbol-table names in a stable,
// sorted order, for diagnostics and dumps where map iteration order
// would otherwise make output nondeterministic between runs.
func (f *Function) SortedVSTNames() []string {
	names := maps.Keys(f.VST)
	slices.Sort(names)
	return names
}

// resolveValueNames copies each module-scope VALUE_SYMTAB entry onto
// the Function or Global it names. decodeModuleVST only fills
// m.ValueNames (name -> ValueID); without this pass Function.Name and
// Global.Name stay "" for every decoded module, which silently
// disables every name-keyed check downstream (calleeName,
// IsIntrinsicName, and therefore checkCall's intrinsic branch and the
// whole atomic-intrinsic verifier). Called once, after the MODULE
// block has been fully parsed, since the VST may name a function or
// global declared earlier or later in the same block.
func resolveValueNames(m *Module) {
	for name, id := range m.ValueNames {
		v, err := m.GlobalValues.At(id)
		if err != nil {
			continue
		}
		switch v.Kind {
		case ValueFunction:
			if v.Ref >= 0 && v.Ref < len(m.Functions) {
				m.Functions[v.Ref].Name = name
			}
		case ValueGlobal:
			if v.Ref >= 0 && v.Ref < len(m.Globals) {
				m.Globals[v.Ref].Name = name
			}
		}
	}
}

func decodeVST(cur *bitstream.Cursor, rep *diag.Reporter, apply func(bitstream.Record) error) error {
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
			if err := apply(rec); err != nil {
				rep.AddError(err)
			}
		}
	}
}
