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
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// Fingerprint is a content hash over a module's structural shape:
// version, type table, each global's name, constant flag and
// alignment, and each function's name, type and (for a defined
// function) instruction count. Global initializers and the contents
// of instructions are not hashed. Two bitstreams that differ only in
// encoding choices (e.g. BLOCKINFO abbreviations) decode to the same
// Fingerprint.
func Fingerprint(m *Module) [32]byte {
	h, _ := blake2b.New256(nil)

	var buf [8]byte
	writeU64 := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}

	writeU64(m.Version)
	writeU64(uint64(m.Types.Len()))
	for i := 0; i < m.Types.Len(); i++ {
		ty, _ := m.Types.At(TypeID(i))
		h.Write([]byte{byte(ty.Kind)})
		writeU64(uint64(ty.IntWidth))
		writeU64(uint64(ty.Returns))
		for _, p := range ty.Params {
			writeU64(uint64(p))
		}
	}

	writeU64(uint64(len(m.Globals)))
	for _, g := range m.Globals {
		h.Write([]byte(g.Name))
		if g.IsConstant {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
		writeU64(uint64(g.Align))
	}

	writeU64(uint64(len(m.Functions)))
	for _, f := range m.Functions {
		h.Write([]byte(f.Name))
		writeU64(uint64(f.Type))
		if f.IsDeclOnly {
			h.Write([]byte{1})
		} else {
			writeU64(uint64(len(f.Instructions)))
		}
	}

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}
