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

func TestResolveValueNamesAssignsFunctionAndGlobalNames(t *testing.T) {
	m := &Module{ValueNames: map[string]ValueID{
		"main": 0,
		"g":    1,
	}}
	m.Functions = []Function{{}}
	m.Globals = []Global{{}}
	m.GlobalValues.Append(Value{Kind: ValueFunction, Ref: 0})
	m.GlobalValues.Append(Value{Kind: ValueGlobal, Ref: 0})

	resolveValueNames(m)

	if m.Functions[0].Name != "main" {
		t.Fatalf("Functions[0].Name = %q, want %q", m.Functions[0].Name, "main")
	}
	if m.Globals[0].Name != "g" {
		t.Fatalf("Globals[0].Name = %q, want %q", m.Globals[0].Name, "g")
	}
}

func TestResolveValueNamesIgnoresUnresolvableIds(t *testing.T) {
	m := &Module{ValueNames: map[string]ValueID{"ghost": 5}}
	// Should not panic even though id 5 was never defined.
	resolveValueNames(m)
}
