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

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/libpbc/pbc/bcmodule"
)

// dump writes a human-readable summary of m to w, tagged with runID so
// output from concurrent bcdump invocations over the same file can be
// told apart in a shared log.
func dump(w io.Writer, m *bcmodule.Module, runID string) error {
	if _, err := fmt.Fprintf(w, "; run %s\n; module version %d\n", runID, m.Version); err != nil {
		return err
	}
	if err := dumpTypes(w, m); err != nil {
		return err
	}
	if err := dumpGlobals(w, m); err != nil {
		return err
	}
	return dumpFunctions(w, m)
}

func dumpTypes(w io.Writer, m *bcmodule.Module) error {
	if _, err := fmt.Fprintf(w, "; %d type(s)\n", m.Types.Len()); err != nil {
		return err
	}
	for i := 0; i < m.Types.Len(); i++ {
		ty, err := m.Types.At(bcmodule.TypeID(i))
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%%t%d = %s\n", i, typeString(ty)); err != nil {
			return err
		}
	}
	return nil
}

func typeString(ty bcmodule.Type) string {
	switch ty.Kind {
	case bcmodule.TypeVoid:
		return "void"
	case bcmodule.TypeFloat32:
		return "float"
	case bcmodule.TypeFloat64:
		return "double"
	case bcmodule.TypeInteger:
		return fmt.Sprintf("i%d", ty.IntWidth)
	case bcmodule.TypeFunction:
		s := fmt.Sprintf("%%t%d (", ty.Returns)
		for i, p := range ty.Params {
			if i > 0 {
				s += ", "
			}
			s += fmt.Sprintf("%%t%d", p)
		}
		if ty.Vararg {
			if len(ty.Params) > 0 {
				s += ", "
			}
			s += "..."
		}
		return s + ")"
	case bcmodule.TypeStructPlaceholder:
		return "%struct.opaque"
	default:
		return "?"
	}
}

func dumpGlobals(w io.Writer, m *bcmodule.Module) error {
	if _, err := fmt.Fprintf(w, "; %d global(s)\n", len(m.Globals)); err != nil {
		return err
	}
	for i, g := range m.Globals {
		kind := "var"
		if g.IsConstant {
			kind = "const"
		}
		if _, err := fmt.Fprintf(w, "@%d %s %q align %d init=%s\n", i, kind, g.Name, g.Align, fragmentsString(g.Fragments)); err != nil {
			return err
		}
	}
	return nil
}

func fragmentsString(frags []bcmodule.Initializer) string {
	if len(frags) == 0 {
		return "none"
	}
	if len(frags) == 1 {
		return initString(frags[0])
	}
	parts := make([]string, len(frags))
	for i, f := range frags {
		parts[i] = initString(f)
	}
	return fmt.Sprintf("compound(%s)", strings.Join(parts, ", "))
}

func initString(init bcmodule.Initializer) string {
	switch v := init.(type) {
	case bcmodule.ZeroFillInit:
		return fmt.Sprintf("zerofill(%d)", v.Size)
	case bcmodule.DataInit:
		return fmt.Sprintf("data(%d bytes)", len(v.Bytes))
	case bcmodule.RelocInit:
		return fmt.Sprintf("reloc(target=%d, addend=%d)", v.Target, v.Addend)
	default:
		return "none"
	}
}

func dumpFunctions(w io.Writer, m *bcmodule.Module) error {
	if _, err := fmt.Fprintf(w, "; %d function(s)\n", len(m.Functions)); err != nil {
		return err
	}
	for i, f := range m.Functions {
		status := "declare"
		if !f.IsDeclOnly {
			status = "define"
			if !f.Materialized() {
				status = "define (deferred)"
			}
		}
		if _, err := fmt.Fprintf(w, "func %d %s %q type=%%t%d align=%d blocks=%d insts=%d\n",
			i, status, f.Name, f.Type, f.Align, len(f.BasicBlockBounds), len(f.Instructions)); err != nil {
			return err
		}
		for _, name := range f.SortedVSTNames() {
			if _, err := fmt.Fprintf(w, "  %%%s = %%%d\n", name, f.VST[name]); err != nil {
				return err
			}
		}
	}
	return nil
}
