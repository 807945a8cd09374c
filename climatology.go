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
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Climatology holds the mean value of a daily series for each day of a
// 365-day year.
type Climatology [daysPerYear]float64

// NewClimatology calculates the day-of-year climatology of series, where
// dates holds the date of each value. The last day of leap years is
// counted as the 365th day. Missing (NaN) values are skipped, but every
// day of the year must have at least one value.
func NewClimatology(dates []time.Time, series []float64) (*Climatology, error) {
	if len(dates) != len(series) {
		return nil, &ShapeMismatchError{What: "climatology dates", Want: len(series), Have: len(dates)}
	}
	var c Climatology
	var n [daysPerYear]int
	for i, v := range series {
		if math.IsNaN(v) {
			continue
		}
		doy := dates[i].YearDay() - 1
		if doy >= daysPerYear {
			doy = daysPerYear - 1
		}
		c[doy] += v
		n[doy]++
	}
	for doy := range c {
		if n[doy] == 0 {
			return nil, fmt.Errorf("fieldcarb: climatology has no values for day of year %d", doy+1)
		}
		c[doy] /= float64(n[doy])
	}
	return &c, nil
}

// Mean returns the mean daily value of the climatology.
func (c *Climatology) Mean() float64 {
	return floats.Sum(c[:]) / daysPerYear
}
