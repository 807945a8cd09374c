/*
Copyright © 2023 the FieldCarb authors.
This file is part of FieldCarb.

FieldCarb is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

FieldCarb is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with FieldCarb.  If not, see <http://www.gnu.org/licenses/>.
*/

package fieldcarb

import (
	"errors"
	"fmt"
)

// ShapeMismatchError is returned when the dimensions of the SOC state,
// the land-cover list or the driver record do not agree.
type ShapeMismatchError struct {
	// What names the array or dimension that was checked.
	What string
	// Want and Have are the expected and actual sizes.
	Want, Have int
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("fieldcarb: shape mismatch in %s: want %d, have %d", e.What, e.Want, e.Have)
}

// UnknownLandCoverError is returned when a site references a land-cover
// code that has no entry in the BPLUT.
type UnknownLandCoverError struct {
	Code int
}

func (e *UnknownLandCoverError) Error() string {
	return fmt.Sprintf("fieldcarb: no BPLUT entry for land-cover code %d", e.Code)
}

// ConvergenceWarning is returned by SpinUp when the maximum number of
// cycles is reached before the annual NEE sum stabilizes at every site.
// It is not fatal: the SOC state reached so far is kept and the
// tolerance trace is returned alongside it.
type ConvergenceWarning struct {
	// Cycles is the number of full replays of the driver record.
	Cycles int
	// Threshold is the convergence threshold [g C m⁻² yr⁻¹].
	Threshold float64
	// Residual holds the last recorded change in the annual NEE sum
	// for each site.
	Residual []float64
}

func (w *ConvergenceWarning) Error() string {
	var worst float64
	site := -1
	for i, r := range w.Residual {
		if r < 0 {
			r = -r
		}
		if site < 0 || r > worst {
			worst, site = r, i
		}
	}
	return fmt.Sprintf("fieldcarb: spin-up did not converge after %d cycles; largest residual %g at site %d (threshold %g)",
		w.Cycles, worst, site, w.Threshold)
}

// IsWarning returns whether err is (or wraps) a *ConvergenceWarning,
// meaning the results it accompanies are usable.
func IsWarning(err error) bool {
	var w *ConvergenceWarning
	return errors.As(err, &w)
}
