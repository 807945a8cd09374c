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
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"
)

const testTolerance = 1.e-9

// Calibrated parameters for the two cropland classes.
func cerealParams() SiteParameters {
	p := SiteParameters{
		LUE:   1.61,
		TMin0: 257.3, TMin1: 285.9,
		VPD0: 150, VPD1: 4000,
		SMRZ0: 0.1, SMRZ1: 0.3,
		FT0:   0.78,
		CUE:   0.708,
		TSoil: 242.47,
		SMSF0: 0, SMSF1: 0.25,
		DecayRates: [NumPools]float64{0.018, 0.0072, 0.000167},
	}
	p.Allocation, p.Transfer = Partitioning(0.78, 0.5)
	return p
}

func broadleafParams() SiteParameters {
	p := SiteParameters{
		LUE:   2.09,
		TMin0: 262.5, TMin1: 297.6,
		VPD0: 1500, VPD1: 7000,
		SMRZ0: 0, SMRZ1: 0.3,
		FT0:   1,
		CUE:   0.705,
		TSoil: 265.06,
		SMSF0: 0, SMSF1: 0.25,
		DecayRates: [NumPools]float64{0.031, 0.0124, 0.00029},
	}
	p.Allocation, p.Transfer = Partitioning(0.78, 0.8)
	return p
}

func testBPLUT(t testing.TB) *BPLUT {
	b, err := NewBPLUT(map[int]SiteParameters{
		7: cerealParams(),
		8: broadleafParams(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

// seasonalDrivers returns a driver record with a smooth annual cycle that is
// the same at every site, along with the date of each step.
func seasonalDrivers(sites, days int) (Drivers, []time.Time) {
	start := time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	d := NewDrivers(sites, days)
	dates := make([]time.Time, days)
	for t := 0; t < days; t++ {
		dates[t] = start.AddDate(0, 0, t)
		s := math.Sin(2 * math.Pi * float64(dates[t].YearDay()-105) / 365)
		c := math.Cos(2 * math.Pi * float64(dates[t].YearDay()-15) / 365)
		for i := 0; i < sites; i++ {
			d[FPAR].Set(i, t, 0.35+0.25*s)
			d[PAR].Set(i, t, 7+4*s)
			d[Tmin].Set(i, t, 278+11*s)
			d[VPD].Set(i, t, 900+700*s)
			d[SMRZ].Set(i, t, 0.22+0.06*c)
			d[Tsoil].Set(i, t, 284+9*s)
			d[SMSF].Set(i, t, 0.18+0.06*c)
		}
	}
	return d, dates
}

// constantDrivers returns a driver record where every variable is
// unchanging and no environmental stress is present for the cereal class.
func constantDrivers(sites, days int) (Drivers, []time.Time) {
	start := time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
	d := NewDrivers(sites, days)
	dates := make([]time.Time, days)
	values := [NumVariables]float64{0.5, 8, 290, 100, 0.3, 1, 288, 0.25}
	for t := range dates {
		dates[t] = start.AddDate(0, 0, t)
	}
	for v := range d {
		for i := 0; i < sites; i++ {
			for t := 0; t < days; t++ {
				d[v].Set(i, t, values[v])
			}
		}
	}
	return d, dates
}

func socState(sites int, pools ...float64) *mat.Dense {
	soc := mat.NewDense(NumPools, sites, nil)
	for i := 0; i < sites; i++ {
		for j, v := range pools {
			soc.Set(j, i, v)
		}
	}
	return soc
}

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func compareMatrices(t *testing.T, name string, a, b mat.Matrix, tolerance float64) {
	ar, ac := a.Dims()
	br, bc := b.Dims()
	if ar != br || ac != bc {
		t.Fatalf("%s: dimensions (%d, %d) != (%d, %d)", name, ar, ac, br, bc)
	}
	for i := 0; i < ar; i++ {
		for j := 0; j < ac; j++ {
			if x, y := a.At(i, j), b.At(i, j); x != y && different(x, y, tolerance) {
				t.Errorf("%s[%d, %d]: %g != %g", name, i, j, x, y)
			}
		}
	}
}
