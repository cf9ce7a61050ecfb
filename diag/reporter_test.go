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

package diag

import (
	"bytes"
	"strings"
	"testing"
)

func TestReporterAccumulates(t *testing.T) {
	var r Reporter
	if r.ErrorCount() != 0 {
		t.Fatalf("fresh reporter has ErrorCount() = %d, want 0", r.ErrorCount())
	}
	r.AddError(Abi("add", "bad alignment", "load of i32 declares alignment 4"))
	r.AddError(Abi("add", "bad instruction opcode", "getelementptr is not allowed"))
	if n := r.ErrorCount(); n != 2 {
		t.Fatalf("ErrorCount() = %d, want 2", n)
	}

	var buf bytes.Buffer
	if err := r.PrintErrors(&buf); err != nil {
		t.Fatalf("PrintErrors: %s", err)
	}
	out := buf.String()
	if !strings.Contains(out, "bad alignment") || !strings.Contains(out, "bad instruction opcode") {
		t.Fatalf("PrintErrors output missing rule names: %q", out)
	}

	r.Reset()
	if r.ErrorCount() != 0 {
		t.Fatalf("after Reset, ErrorCount() = %d, want 0", r.ErrorCount())
	}
}

func TestReporterFatalErrorsPanics(t *testing.T) {
	r := Reporter{FatalErrors: true}
	defer func() {
		if recover() == nil {
			t.Fatalf("expected AddError to panic when FatalErrors is set")
		}
	}()
	r.AddError(Version(0))
}
