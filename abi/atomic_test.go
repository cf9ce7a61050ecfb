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
	"testing"

	"github.com/libpbc/pbc/bcmodule"
	"github.com/libpbc/pbc/diag"
)

func constFunc(literals ...int64) *bcmodule.Function {
	f := &bcmodule.Function{Name: "f"}
	for _, v := range literals {
		f.Values.Append(bcmodule.Value{Kind: bcmodule.ValueConstant, Ref: int(v)})
	}
	return f
}

func TestCheckAtomicCallAcceptsSequentiallyConsistentOrder(t *testing.T) {
	f := constFunc(0 /*ptr placeholder*/, int64(bcmodule.MemoryOrderSequentiallyConsistent))
	in := bcmodule.Instruction{Args: []bcmodule.ValueID{0, 1}}
	var rep diag.Reporter
	checkAtomicCall(&bcmodule.Module{}, f, "f", in, "llvm.nacl.atomic.load.i32", &rep)
	if rep.ErrorCount() != 0 {
		t.Fatalf("expected no errors, got %v", rep.Errors())
	}
}

func TestCheckAtomicCallRejectsOtherOrders(t *testing.T) {
	f := constFunc(0, int64(bcmodule.MemoryOrderRelaxed))
	in := bcmodule.Instruction{Args: []bcmodule.ValueID{0, 1}}
	var rep diag.Reporter
	checkAtomicCall(&bcmodule.Module{}, f, "f", in, "llvm.nacl.atomic.load.i32", &rep)
	if rep.ErrorCount() != 1 {
		t.Fatalf("expected exactly one error for a non-seq-cst order, got %d", rep.ErrorCount())
	}
}

func TestCheckAtomicCallRejectsNonLiteralOrder(t *testing.T) {
	f := &bcmodule.Function{Name: "f"}
	f.Values.Append(bcmodule.Value{Kind: bcmodule.ValueArgument}) // not a constant
	f.Values.Append(bcmodule.Value{Kind: bcmodule.ValueArgument})
	in := bcmodule.Instruction{Args: []bcmodule.ValueID{0, 1}}
	var rep diag.Reporter
	checkAtomicCall(&bcmodule.Module{}, f, "f", in, "llvm.nacl.atomic.load.i32", &rep)
	if rep.ErrorCount() != 1 {
		t.Fatalf("expected exactly one error for a non-literal order argument, got %d", rep.ErrorCount())
	}
}

func TestCheckAtomicCallRMWValidatesSelector(t *testing.T) {
	f := constFunc(int64(bcmodule.AtomicRMWAdd), 0, 0, int64(bcmodule.MemoryOrderSequentiallyConsistent))
	in := bcmodule.Instruction{Args: []bcmodule.ValueID{0, 1, 2, 3}}
	var rep diag.Reporter
	checkAtomicCall(&bcmodule.Module{}, f, "f", in, "llvm.nacl.atomic.rmw.i32", &rep)
	if rep.ErrorCount() != 0 {
		t.Fatalf("expected a legal rmw selector to pass, got %v", rep.Errors())
	}

	f2 := constFunc(99, 0, 0, int64(bcmodule.MemoryOrderSequentiallyConsistent))
	var rep2 diag.Reporter
	checkAtomicCall(&bcmodule.Module{}, f2, "f", in, "llvm.nacl.atomic.rmw.i32", &rep2)
	if rep2.ErrorCount() != 1 {
		t.Fatalf("expected an out-of-range rmw selector to be flagged, got %d errors", rep2.ErrorCount())
	}
}

func TestCheckLockFreeSize(t *testing.T) {
	for _, size := range []int64{1, 2, 4, 8} {
		f := constFunc(size)
		in := bcmodule.Instruction{Args: []bcmodule.ValueID{0}}
		var rep diag.Reporter
		checkAtomicCall(&bcmodule.Module{}, f, "f", in, "llvm.nacl.atomic.is.lock.free", &rep)
		if rep.ErrorCount() != 0 {
			t.Errorf("size %d should be accepted, got %v", size, rep.Errors())
		}
	}

	f := constFunc(3)
	in := bcmodule.Instruction{Args: []bcmodule.ValueID{0}}
	var rep diag.Reporter
	checkAtomicCall(&bcmodule.Module{}, f, "f", in, "llvm.nacl.atomic.is.lock.free", &rep)
	if rep.ErrorCount() != 1 {
		t.Fatalf("size 3 should be rejected, got %d errors", rep.ErrorCount())
	}
}
