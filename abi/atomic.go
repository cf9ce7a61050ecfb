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

package abi

import (
	"strings"

	"github.com/libpbc/pbc/bcmodule"
	"github.com/libpbc/pbc/diag"
)

// atomicOrderArgIndex locates the call-argument position carrying the
// memory-order selector for each supported llvm.nacl.atomic.* name.
var atomicOrderArgIndex = map[string]int{
	"llvm.nacl.atomic.load.i32":    1,
	"llvm.nacl.atomic.store.i32":   2,
	"llvm.nacl.atomic.rmw.i32":     3,
	"llvm.nacl.atomic.cmpxchg.i32": 3,
	"llvm.nacl.atomic.fence":       0,
}

// checkAtomicCall verifies a call to a recognized llvm.nacl.atomic.*
// intrinsic: its memory-order argument must be a literal constant
// equal to sequentially-consistent (the only order this dialect's
// runtime supports; every other order is a legal bitcode value with
// no legal lowering here), its RMW operation selector (if any) must
// be one of the known AtomicRMWOp values, and llvm.nacl.atomic.is.lock.free's
// size argument must be a power-of-two byte count the target natively
// supports.
func checkAtomicCall(m *bcmodule.Module, fn *bcmodule.Function, fnName string, in bcmodule.Instruction, name string, rep *diag.Reporter) {
	if name == "llvm.nacl.atomic.is.lock.free" {
		checkLockFreeSize(fn, fnName, in, rep)
		return
	}
	idx, ok := atomicOrderArgIndex[name]
	if !ok || idx >= len(in.Args) {
		rep.AddError(diag.Abi(fnName, "atomic intrinsic", "%s is missing its memory-order argument", name))
		return
	}
	order, ok := literalConstant(fn, in.Args[idx])
	if !ok {
		rep.AddError(diag.Abi(fnName, "atomic intrinsic", "%s's memory-order argument must be a literal constant", name))
		return
	}
	if bcmodule.MemoryOrder(order) != bcmodule.MemoryOrderSequentiallyConsistent {
		rep.AddError(diag.Abi(fnName, "atomic memory order", "%s requested memory order %d, only sequentially-consistent is supported", name, order))
	}
	if name == "llvm.nacl.atomic.rmw.i32" {
		if len(in.Args) == 0 {
			return
		}
		op, ok := literalConstant(fn, in.Args[0])
		if !ok {
			rep.AddError(diag.Abi(fnName, "atomic rmw operation", "rmw operation selector must be a literal constant"))
			return
		}
		rmw := bcmodule.AtomicRMWOp(op)
		if rmw == bcmodule.AtomicRMWInvalid || rmw >= atomicRMWBound {
			rep.AddError(diag.Abi(fnName, "atomic rmw operation", "rmw operation selector %d is not a legal AtomicRMWOp", op))
		}
	}
}

// atomicRMWBound mirrors bcmodule's internal sentinel bound; kept
// here since that constant is unexported.
const atomicRMWBound = bcmodule.AtomicRMWExchange + 1

func checkLockFreeSize(fn *bcmodule.Function, fnName string, in bcmodule.Instruction, rep *diag.Reporter) {
	if len(in.Args) == 0 {
		rep.AddError(diag.Abi(fnName, "atomic lock-free size", "is.lock.free is missing its size argument"))
		return
	}
	size, ok := literalConstant(fn, in.Args[0])
	if !ok {
		rep.AddError(diag.Abi(fnName, "atomic lock-free size", "is.lock.free's size argument must be a literal constant"))
		return
	}
	switch size {
	case 1, 2, 4, 8:
	default:
		rep.AddError(diag.Abi(fnName, "atomic lock-free size", "size %d is not a supported lock-free width", size))
	}
}

func literalConstant(fn *bcmodule.Function, id bcmodule.ValueID) (int64, bool) {
	v, err := fn.Values.At(id)
	if err != nil || v.Kind != bcmodule.ValueConstant {
		return 0, false
	}
	return int64(v.Ref), true
}

func isAtomicIntrinsicName(name string) bool {
	return strings.HasPrefix(name, "llvm.nacl.atomic.")
}
