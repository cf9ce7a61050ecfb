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
	"fmt"
	"io"
)

// Reporter accumulates diagnostics produced by a verify pass. A
// single Reporter is typically shared across every function in a
// module so that error_count reflects the whole run.
//
// Fatal-on-error is a policy of the Reporter, not the verifier: the
// verifier itself never stops early, but with FatalErrors set the
// first AddError panics, which ends the walk at that violation.
type Reporter struct {
	// FatalErrors, when true, makes AddError panic with the first
	// error instead of accumulating it. The CLI driver sets this from
	// --verify-fatal-errors.
	FatalErrors bool

	errs []error
}

// AddError appends a diagnostic to the reporter. e is typically one
// constructed by Malformed/Unknown/Invalid/Unresolved/Version/Abi, but
// any error is accepted so callers don't need to unwrap a wrapped one
// before reporting it.
func (r *Reporter) AddError(e error) {
	if r.FatalErrors {
		panic(e)
	}
	r.errs = append(r.errs, e)
}

// ErrorCount returns the number of diagnostics accumulated so far.
func (r *Reporter) ErrorCount() int { return len(r.errs) }

// Errors returns the accumulated diagnostics in report order. The
// returned slice must not be mutated by the caller.
func (r *Reporter) Errors() []error { return r.errs }

// PrintErrors writes every accumulated diagnostic to w, one per line.
func (r *Reporter) PrintErrors(w io.Writer) error {
	for _, e := range r.errs {
		if _, err := fmt.Fprintln(w, e.Error()); err != nil {
			return err
		}
	}
	return nil
}

// Reset discards all accumulated diagnostics so the Reporter can be
// reused for another verify pass.
func (r *Reporter) Reset() {
	r.errs = r.errs[:0]
}
