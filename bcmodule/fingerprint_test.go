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

import "testing"

func sampleModule(fnName string) *Module {
	m := &Module{Version: 1}
	m.Types.Reserve(1)
	m.Types.Append(Type{Kind: TypeInteger, IntWidth: 32})
	m.Globals = []Global{{Name: "g", Align: 4}}
	m.Functions = []Function{{Name: fnName, IsDeclOnly: true}}
	return m
}

func TestFingerprintDeterministic(t *testing.T) {
	a := Fingerprint(sampleModule("f"))
	b := Fingerprint(sampleModule("f"))
	if a != b {
		t.Fatalf("Fingerprint() not deterministic: %x != %x", a, b)
	}
}

func TestFingerprintDiffersOnFunctionName(t *testing.T) {
	a := Fingerprint(sampleModule("f"))
	b := Fingerprint(sampleModule("g"))
	if a == b {
		t.Fatalf("Fingerprint() should differ when a function name differs")
	}
}

func TestFingerprintDiffersOnInstructionCount(t *testing.T) {
	m1 := sampleModule("f")
	m1.Functions[0].IsDeclOnly = false
	m1.Functions[0].Instructions = []Instruction{{Op: OpRet, RetVal: -1}}

	m2 := sampleModule("f")
	m2.Functions[0].IsDeclOnly = false
	m2.Functions[0].Instructions = []Instruction{{Op: OpRet, RetVal: -1}, {Op: OpUnreachable}}

	if Fingerprint(m1) == Fingerprint(m2) {
		t.Fatalf("Fingerprint() should differ when instruction counts differ")
	}
}
