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

	"gonum.org/v1/gonum/mat"
)

// Variable identifies one of the driver variables.
type Variable int

// Driver variables, in the order they are stored in a Drivers record.
const (
	FPAR  Variable = iota // fraction of PAR absorbed [0-1]
	PAR                   // photosynthetically active radiation [MJ m⁻² day⁻¹]
	Tmin                  // minimum air temperature [K]
	VPD                   // vapor pressure deficit [Pa]
	SMRZ                  // root-zone soil wetness, rescaled [0-1]
	FT                    // freeze-thaw state [0 frozen, 1 thawed]; NaN is derived from Tmin
	Tsoil                 // surface soil temperature [K]
	SMSF                  // surface soil wetness [0-1]

	// NumVariables is the number of driver variables.
	NumVariables
)

var variableNames = [NumVariables]string{"fPAR", "PAR", "Tmin", "VPD", "SMRZ", "FT", "Tsoil", "SMSF"}

func (v Variable) String() string {
	if v < 0 || v >= NumVariables {
		return fmt.Sprintf("Variable(%d)", int(v))
	}
	return variableNames[v]
}

// Drivers is a record of daily meteorological drivers. Each variable is a
// matrix with one row per site and one column per daily time step.
type Drivers [NumVariables]*mat.Dense

// NewDrivers allocates a driver record for the given number of sites and
// steps. All variables are zero except FT, which is NaN so the
// freeze-thaw state is derived from Tmin unless it is set.
func NewDrivers(sites, steps int) Drivers {
	var d Drivers
	for v := range d {
		d[v] = mat.NewDense(sites, steps, nil)
	}
	ft := d[FT].RawMatrix()
	for i := 0; i < sites; i++ {
		row := ft.Data[i*ft.Stride : i*ft.Stride+steps]
		for j := range row {
			row[j] = math.NaN()
		}
	}
	return d
}

// SetSite sets the time series of variable v at the given site.
func (d Drivers) SetSite(v Variable, site int, values []float64) error {
	_, steps := d[v].Dims()
	if len(values) != steps {
		return &ShapeMismatchError{What: fmt.Sprintf("%v time steps", v), Want: steps, Have: len(values)}
	}
	d[v].SetRow(site, values)
	return nil
}

// Dims returns the number of sites and time steps in the record.
// It assumes the record is valid.
func (d Drivers) Dims() (sites, steps int) {
	return d[FPAR].Dims()
}

// Validate checks that all variables are present and share the same
// dimensions, and that there are the given number of sites.
func (d Drivers) Validate(sites int) error {
	for v := range d {
		if d[v] == nil {
			return fmt.Errorf("fieldcarb: missing driver variable %v", Variable(v))
		}
	}
	r, c := d[FPAR].Dims()
	if r != sites {
		return &ShapeMismatchError{What: "driver sites", Want: sites, Have: r}
	}
	for v := range d {
		rr, cc := d[v].Dims()
		if rr != r {
			return &ShapeMismatchError{What: fmt.Sprintf("%v sites", Variable(v)), Want: r, Have: rr}
		}
		if cc != c {
			return &ShapeMismatchError{What: fmt.Sprintf("%v time steps", Variable(v)), Want: c, Have: cc}
		}
	}
	return nil
}

// Slice returns a view of the time steps [t0, t1) of the record.
// The view shares storage with d.
func (d Drivers) Slice(t0, t1 int) (Drivers, error) {
	sites, steps := d.Dims()
	if t0 < 0 || t1 > steps || t1 <= t0 {
		return Drivers{}, fmt.Errorf("fieldcarb: invalid time window [%d, %d) for %d steps", t0, t1, steps)
	}
	var o Drivers
	for v := range d {
		o[v] = d[v].Slice(0, sites, t0, t1).(*mat.Dense)
	}
	return o, nil
}

// ConcatDrivers joins driver records in time.
func ConcatDrivers(records ...Drivers) (Drivers, error) {
	if len(records) == 0 {
		return Drivers{}, fmt.Errorf("fieldcarb: no driver records to concatenate")
	}
	sites, _ := records[0].Dims()
	for _, r := range records {
		if err := r.Validate(sites); err != nil {
			return Drivers{}, err
		}
	}
	o := records[0]
	for _, r := range records[1:] {
		var next Drivers
		for v := range o {
			next[v] = new(mat.Dense)
			next[v].Augment(o[v], r[v])
		}
		o = next
	}
	if len(records) == 1 {
		var c Drivers
		for v := range o {
			c[v] = mat.DenseCopyOf(o[v])
		}
		o = c
	}
	return o, nil
}

// siteDrivers holds the time series of each driver variable at one site.
type siteDrivers [NumVariables][]float64

func (d Drivers) site(i int) siteDrivers {
	var s siteDrivers
	for v := range d {
		s[v] = d[v].RawRowView(i)
	}
	return s
}
