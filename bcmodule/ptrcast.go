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

	"github.com/dchest/siphash"
)

// Provenance classifies where an i32 value "came from" for the
// purposes of the pointer-shape discipline (§4.3.2): this dialect's
// type table has no pointer kind, so a freshly allocated stack slot
// or a global's address is indistinguishable from a plain integer at
// the type level. The verifier instead tracks provenance by walking
// each value's defining instruction.
type Provenance uint8

const (
	ProvenanceUnknown Provenance = iota
	// ProvenancePlainInteger never held a pointer value: an argument,
	// a load result, an arithmetic result over two plain integers.
	ProvenancePlainInteger
	// ProvenanceInherentPointer is a freshly produced address (an
	// Alloca result, a Global's address, or pointer arithmetic over an
	// inherent pointer and a plain-integer offset) that has not yet
	// been explicitly normalized. The ABI forbids storing, returning,
	// or passing a value with this provenance directly.
	ProvenanceInherentPointer
	// ProvenanceNormalizedPointer is an inherent pointer that has
	// passed through an explicit bitcast, making it legal to store,
	// return, or pass as a call argument or PHI incoming value.
	ProvenanceNormalizedPointer
)

// ProvenanceCache memoizes ClassifyProvenance results keyed by
// (function index, value id), hashed with siphash so a single cache
// instance can be shared, lock-free, across every function a verifier
// pass visits without the key space ballooning into one map entry per
// value for every repeated pass over the same module.
type ProvenanceCache struct {
	key0, key1 uint64
	buckets    []provenanceEntry
}

type provenanceEntry struct {
	key   uint64
	valid bool
	prov  Provenance
}

// NewProvenanceCache allocates a cache sized for roughly n expected
// entries.
func NewProvenanceCache(n int) *ProvenanceCache {
	size := 64
	for size < n*2 {
		size *= 2
	}
	return &ProvenanceCache{buckets: make([]provenanceEntry, size)}
}

func (c *ProvenanceCache) hash(fnIdx int, id ValueID) uint64 {
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(fnIdx))
	binary.LittleEndian.PutUint64(buf[4:12], uint64(id))
	return siphash.Hash(c.key0, c.key1, buf[:])
}

func (c *ProvenanceCache) get(fnIdx int, id ValueID) (Provenance, bool) {
	h := c.hash(fnIdx, id)
	e := &c.buckets[h&uint64(len(c.buckets)-1)]
	if e.valid && e.key == h {
		return e.prov, true
	}
	return ProvenanceUnknown, false
}

func (c *ProvenanceCache) put(fnIdx int, id ValueID, p Provenance) {
	h := c.hash(fnIdx, id)
	c.buckets[h&uint64(len(c.buckets)-1)] = provenanceEntry{key: h, valid: true, prov: p}
}

// ClassifyProvenance determines id's provenance within fnIdx, caching
// the result in cache. visiting guards against infinite recursion
// through a loop-carried PHI: a PHI that (transitively) depends on its
// own result is conservatively classified Unknown, the same deferred
// treatment the original reader gives a forward-referenced phi
// incoming value it hasn't resolved yet.
func ClassifyProvenance(m *Module, fnIdx int, id ValueID, cache *ProvenanceCache) Provenance {
	return classify(m, fnIdx, id, cache, make(map[ValueID]bool))
}

func classify(m *Module, fnIdx int, id ValueID, cache *ProvenanceCache, visiting map[ValueID]bool) Provenance {
	if p, ok := cache.get(fnIdx, id); ok {
		return p
	}
	if visiting[id] {
		return ProvenanceUnknown
	}
	visiting[id] = true
	defer delete(visiting, id)

	f := &m.Functions[fnIdx]
	v, err := f.Values.At(id)
	if err != nil {
		return ProvenanceUnknown
	}

	var p Provenance
	switch v.Kind {
	case ValueGlobal:
		p = ProvenanceInherentPointer
	case ValueArgument, ValueConstant:
		p = ProvenancePlainInteger
	case ValueInstruction:
		p = classifyInstruction(m, fnIdx, f, v.Ref, cache, visiting)
	default:
		p = ProvenanceUnknown
	}
	cache.put(fnIdx, id, p)
	return p
}

func classifyInstruction(m *Module, fnIdx int, f *Function, instrIdx int, cache *ProvenanceCache, visiting map[ValueID]bool) Provenance {
	in := f.Instructions[instrIdx]
	switch in.Op {
	case OpAlloca:
		return ProvenanceInherentPointer
	case OpLoad:
		return ProvenancePlainInteger
	case OpCast:
		if in.CastOp == CastBitCast {
			switch classify(m, fnIdx, in.LHS, cache, visiting) {
			case ProvenanceInherentPointer:
				return ProvenanceNormalizedPointer
			}
		}
		return ProvenancePlainInteger
	case OpBinop:
		if in.BinOp == BinopAdd || in.BinOp == BinopSub {
			lp := classify(m, fnIdx, in.LHS, cache, visiting)
			rp := classify(m, fnIdx, in.RHS, cache, visiting)
			if lp == ProvenanceInherentPointer && rp == ProvenancePlainInteger {
				return ProvenanceInherentPointer
			}
			if in.BinOp == BinopAdd && rp == ProvenanceInherentPointer && lp == ProvenancePlainInteger {
				return ProvenanceInherentPointer
			}
		}
		return ProvenancePlainInteger
	case OpPhi:
		return classifyPhi(m, fnIdx, in, cache, visiting)
	case OpCall:
		if IsPointerReturningIntrinsic(calleeName(m, in)) {
			return ProvenanceInherentPointer
		}
		return ProvenancePlainInteger
	default:
		return ProvenancePlainInteger
	}
}

func classifyPhi(m *Module, fnIdx int, in Instruction, cache *ProvenanceCache, visiting map[ValueID]bool) Provenance {
	var result Provenance
	first := true
	for _, inc := range in.PhiIncoming {
		p := classify(m, fnIdx, inc.Val, cache, visiting)
		if first {
			result = p
			first = false
			continue
		}
		if p != result {
			return ProvenanceUnknown
		}
	}
	return result
}

// calleeName resolves a CALL instruction's direct callee to a
// function name, or "" if the call is indirect or unresolved.
func calleeName(m *Module, in Instruction) string {
	if in.IsIndirect {
		return ""
	}
	v, err := m.GlobalValues.At(in.Callee)
	if err != nil || v.Kind != ValueFunction || v.Ref >= len(m.Functions) {
		return ""
	}
	return m.Functions[v.Ref].Name
}
