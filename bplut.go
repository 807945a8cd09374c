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
	"sort"
)

// LandCoverNames are the plant functional types of the SMAP Level 4
// Carbon product, indexed by land-cover code.
var LandCoverNames = map[int]string{
	1: "Evergreen Needleleaf",
	2: "Evergreen Broadleaf",
	3: "Deciduous Needleleaf",
	4: "Deciduous Broadleaf",
	5: "Shrubland",
	6: "Grassland",
	7: "Cereal Croplands",
	8: "Broadleaf Croplands",
}

// SiteParameters holds the biophysical constants for one land-cover class.
type SiteParameters struct {
	// LUE is the maximum light-use efficiency [g C MJ⁻¹].
	LUE float64

	// TMin0 and TMin1 bound the minimum-temperature ramp [K]. The
	// multiplier is 0 below TMin0 and 1 at or above TMin1.
	TMin0, TMin1 float64

	// VPD0 and VPD1 bound the (reversed) vapor pressure deficit ramp [Pa].
	// The multiplier is 1 below VPD0 and 0 at or above VPD1.
	VPD0, VPD1 float64

	// SMRZ0 and SMRZ1 bound the root-zone soil wetness ramp.
	SMRZ0, SMRZ1 float64

	// FT0 is the GPP multiplier applied when the soil is frozen.
	FT0 float64

	// CUE is the carbon use efficiency, the fraction of GPP that
	// remains as NPP after autotrophic respiration.
	CUE float64

	// TSoil is the Arrhenius activation parameter [K] of the soil
	// temperature response of decomposition.
	TSoil float64

	// SMSF0 and SMSF1 bound the surface soil wetness ramp.
	SMSF0, SMSF1 float64

	// DecayRates are the optimal decomposition rates of each pool [day⁻¹].
	DecayRates [NumPools]float64

	// Allocation is the fraction of litterfall entering each pool.
	Allocation [NumPools]float64

	// Transfer[i] is the fraction of the carbon decomposed from pool i
	// that is humified into pool i+1 instead of being respired.
	Transfer [NumPools - 1]float64
}

// Partitioning returns litterfall allocation and inter-pool transfer
// fractions for the TCF partitioning scheme, where fMetabolic of
// litterfall enters the metabolic pool, the rest enters the structural
// pool, and fStructural of the carbon decomposed from the structural
// pool is humified into the recalcitrant pool.
func Partitioning(fMetabolic, fStructural float64) (allocation [NumPools]float64, transfer [NumPools - 1]float64) {
	allocation[Metabolic] = fMetabolic
	allocation[Structural] = 1 - fMetabolic
	transfer[Structural] = fStructural
	return
}

// Validate checks that the parameters are physically meaningful.
func (p *SiteParameters) Validate() error {
	for _, v := range []struct {
		name   string
		lo, hi float64
	}{
		{"TMin", p.TMin0, p.TMin1},
		{"VPD", p.VPD0, p.VPD1},
		{"SMRZ", p.SMRZ0, p.SMRZ1},
		{"SMSF", p.SMSF0, p.SMSF1},
	} {
		if math.IsNaN(v.lo) || math.IsNaN(v.hi) || v.hi < v.lo {
			return fmt.Errorf("fieldcarb: invalid %s ramp bounds [%g, %g]", v.name, v.lo, v.hi)
		}
	}
	if !(p.LUE >= 0) {
		return fmt.Errorf("fieldcarb: LUE must be non-negative but is %g", p.LUE)
	}
	if !unitInterval(p.CUE) {
		return fmt.Errorf("fieldcarb: CUE must be within [0, 1] but is %g", p.CUE)
	}
	if !unitInterval(p.FT0) {
		return fmt.Errorf("fieldcarb: FT0 must be within [0, 1] but is %g", p.FT0)
	}
	if math.IsNaN(p.TSoil) || math.IsInf(p.TSoil, 0) {
		return fmt.Errorf("fieldcarb: invalid TSoil %g", p.TSoil)
	}
	var total float64
	for i := 0; i < NumPools; i++ {
		if !unitInterval(p.DecayRates[i]) {
			return fmt.Errorf("fieldcarb: decay rate of the %s pool must be within [0, 1] but is %g",
				PoolNames[i], p.DecayRates[i])
		}
		if !unitInterval(p.Allocation[i]) {
			return fmt.Errorf("fieldcarb: allocation to the %s pool must be within [0, 1] but is %g",
				PoolNames[i], p.Allocation[i])
		}
		total += p.Allocation[i]
	}
	if math.Abs(total-1) > 1.e-6 {
		return fmt.Errorf("fieldcarb: litterfall allocation fractions sum to %g instead of 1", total)
	}
	for i, f := range p.Transfer {
		if !unitInterval(f) {
			return fmt.Errorf("fieldcarb: transfer from the %s pool must be within [0, 1] but is %g",
				PoolNames[i], f)
		}
	}
	return nil
}

func unitInterval(v float64) bool { return v >= 0 && v <= 1 }

// BPLUT is a biome parameter lookup table, relating land-cover codes
// to SiteParameters. It cannot be changed after it is created, so a
// single table can be shared by any number of models.
type BPLUT struct {
	params map[int]SiteParameters
}

// NewBPLUT creates a lookup table from a copy of params, returning an
// error if any of the entries are invalid.
func NewBPLUT(params map[int]SiteParameters) (*BPLUT, error) {
	b := &BPLUT{params: make(map[int]SiteParameters, len(params))}
	for code, p := range params {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("%v (land-cover code %d)", err, code)
		}
		b.params[code] = p
	}
	return b, nil
}

// ParametersFor returns the parameters for the given land-cover code,
// or an *UnknownLandCoverError if the code is not in the table.
func (b *BPLUT) ParametersFor(code int) (SiteParameters, error) {
	p, ok := b.params[code]
	if !ok {
		return SiteParameters{}, &UnknownLandCoverError{Code: code}
	}
	return p, nil
}

// Codes returns the land-cover codes in the table in ascending order.
func (b *BPLUT) Codes() []int {
	codes := make([]int, 0, len(b.params))
	for c := range b.params {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return codes
}
