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
	"strings"
	"testing"
)

func TestValueListReserveAndInstall(t *testing.T) {
	var vl ValueList
	id := vl.Reserve(TypeID(3))
	if !vl.IsPending(id) {
		t.Fatalf("Reserve()'d id should be pending")
	}
	if err := vl.CheckResolved(); err == nil {
		t.Fatalf("CheckResolved() should fail while id %d is pending", id)
	}
	vl.Install(id, Value{Kind: ValueInstruction, Type: TypeID(3), Ref: 7})
	if vl.IsPending(id) {
		t.Fatalf("Install() should clear pending status")
	}
	if err := vl.CheckResolved(); err != nil {
		t.Fatalf("CheckResolved() = %s, want nil", err)
	}
	got, err := vl.At(id)
	if err != nil {
		t.Fatalf("At: %s", err)
	}
	if got.Kind != ValueInstruction || got.Ref != 7 {
		t.Fatalf("At(%d) = %+v, want Kind=ValueInstruction Ref=7", id, got)
	}
}

func TestValueListReserveAtGrowsSparsely(t *testing.T) {
	var vl ValueList
	vl.ReserveAt(5, -1)
	if vl.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", vl.Len())
	}
	for i := ValueID(0); i <= 5; i++ {
		if !vl.IsPending(i) {
			t.Fatalf("id %d should be pending after ReserveAt(5)", i)
		}
	}
	vl.Install(5, Value{Kind: ValueGlobal, Ref: 0})
	if vl.IsPending(5) {
		t.Fatalf("Install(5) should resolve id 5")
	}
	if err := vl.CheckResolved(); err == nil {
		t.Fatalf("ids 0-4 are still pending, CheckResolved() should fail")
	}
}

func TestValueListCheckResolvedReportsSmallestPending(t *testing.T) {
	var vl ValueList
	vl.ReserveAt(2, -1)
	vl.Install(2, Value{Kind: ValueConstant})
	err := vl.CheckResolved()
	if err == nil {
		t.Fatalf("expected an error naming id 0")
	}
	if !strings.Contains(err.Error(), "value id 0 referenced") {
		t.Fatalf("CheckResolved() = %q, want it to name id 0", err)
	}
}

func TestDecodeRelativeValueID(t *testing.T) {
	if got, want := decodeRelativeValueID(10, 3), ValueID(7); got != want {
		t.Fatalf("decodeRelativeValueID(10, 3) = %d, want %d", got, want)
	}
}

func TestDecodeSignRotatedValueID(t *testing.T) {
	cases := []struct {
		base    ValueID
		encoded uint64
		want    ValueID
	}{
		{10, 0, 10},        // encoded 0 -> delta 0, even (positive) sign
		{10, 2, 9},          // even encoded -> base - (encoded>>1)
		{10, 3, 11},         // odd, not 1 -> base + (encoded>>1)
		{10, 1, 10 - (1 << 31)}, // the maximal-negative-delta marker
	}
	for _, c := range cases {
		if got := decodeSignRotatedValueID(c.base, c.encoded); got != c.want {
			t.Fatalf("decodeSignRotatedValueID(%d, %d) = %d, want %d", c.base, c.encoded, got, c.want)
		}
	}
}

func TestDecodeSignedVBR(t *testing.T) {
	cases := []struct {
		raw  uint64
		want int64
	}{
		{0, 0},
		{2, 1},
		{1, 0},
		{3, -1},
		{4, 2},
		{5, -2},
	}
	for _, c := range cases {
		if got := decodeSignedVBR(c.raw); got != c.want {
			t.Fatalf("decodeSignedVBR(%d) = %d, want %d", c.raw, got, c.want)
		}
	}
}
