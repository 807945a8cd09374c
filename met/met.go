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

// Package met prepares FieldCarb driver records from daily surface
// meteorology, such as that in the MERRA-2 reanalysis.
package met

import (
	"fmt"
	"math"

	"github.com/ctessum/unit"
	"github.com/spatialmodel/fieldcarb"
	"gonum.org/v1/gonum/floats"
)

const (
	// parFraction is the fraction of downwelling short-wave radiation
	// that is photosynthetically active.
	parFraction = 0.45

	secondsPerDay = 86400.

	freezingPoint = 273.15 // [K]
)

// WattPerMeter2 is the dimension of a radiative flux [kg s⁻³].
var WattPerMeter2 = unit.Dimensions{unit.MassDim: 1, unit.TimeDim: -3}

// PAR returns the daily photosynthetically active radiation
// [MJ m⁻² day⁻¹] given the daily mean downwelling short-wave radiation
// [W m⁻²].
func PAR(swrad *unit.Unit) (float64, error) {
	if err := swrad.Check(WattPerMeter2); err != nil {
		return math.NaN(), fmt.Errorf("met: short-wave radiation: %v", err)
	}
	return parFraction * swrad.Value() * secondsPerDay / 1.e6, nil
}

// VPD returns the vapor pressure deficit given the water vapor mixing
// ratio at 2-m height [kg kg⁻¹], the surface pressure [Pa] and the
// air temperature [K]. Supersaturated air has a VPD of zero.
func VPD(qv2m, ps, temp *unit.Unit) (*unit.Unit, error) {
	if err := qv2m.Check(unit.Dimless); err != nil {
		return nil, fmt.Errorf("met: mixing ratio: %v", err)
	}
	if err := ps.Check(unit.Pascal); err != nil {
		return nil, fmt.Errorf("met: surface pressure: %v", err)
	}
	if err := temp.Check(unit.Kelvin); err != nil {
		return nil, fmt.Errorf("met: temperature: %v", err)
	}
	q := qv2m.Value()
	tc := temp.Value() - freezingPoint
	avp := q * ps.Value() / (0.622 + 0.378*q)
	esat := 610.7 * math.Exp(17.38*tc/(239+tc))
	return unit.New(math.Max(0, esat-avp), unit.Pascal), nil
}

// FreezeThaw returns 0 (frozen) if the minimum temperature [K] is below
// freezing, and 1 (thawed) otherwise.
func FreezeThaw(tmin float64) float64 {
	if math.IsNaN(tmin) {
		return math.NaN()
	}
	if tmin < freezingPoint {
		return 0
	}
	return 1
}

// RescaleSMRZ rescales root-zone soil wetness logarithmically so that the
// range [min, max] maps onto [0.05, 1]. Values outside the range are
// clamped. If min is NaN, the smallest value in smrz is used.
func RescaleSMRZ(smrz []float64, min, max float64) []float64 {
	if math.IsNaN(min) {
		min = nanMin(smrz)
	}
	o := make([]float64, len(smrz))
	for i, v := range smrz {
		if math.IsNaN(v) {
			o[i] = math.NaN()
			continue
		}
		v = math.Min(math.Max(v, min), max)
		norm := 0.01
		if max > min {
			norm += (v - min) / (max - min)
		}
		o[i] = 0.95*math.Log(norm*100)/math.Log(101) + 0.05
	}
	return o
}

func nanMin(s []float64) float64 {
	valid := make([]float64, 0, len(s))
	for _, v := range s {
		if !math.IsNaN(v) {
			valid = append(valid, v)
		}
	}
	if len(valid) == 0 {
		return math.NaN()
	}
	return floats.Min(valid)
}

// Record holds one day of meteorology at one site. Temperatures are in
// K, radiation in W m⁻², pressure in Pa and soil wetness as a
// proportion of saturation.
type Record struct {
	FPAR  float64
	SWRad float64 // daily mean downwelling short-wave radiation
	TMean float64 // mean 2-m air temperature
	QV2M  float64 // 2-m water vapor mixing ratio [kg kg⁻¹]
	PS    float64 // surface pressure
	TMin  float64 // minimum 2-m air temperature
	SMRZ  float64 // root-zone soil wetness
	TSoil float64 // surface soil temperature
	SMSF  float64 // surface soil wetness

	// PAR [MJ m⁻² day⁻¹], VPD [Pa] and FT, if not NaN, are used directly
	// instead of being derived from the variables above.
	PAR, VPD, FT float64
}

// NewRecord returns a record with all values missing.
func NewRecord() Record {
	n := math.NaN()
	return Record{n, n, n, n, n, n, n, n, n, n, n, n}
}

// Prepare calculates the driver time series for one site from its daily
// records. smrzMin and smrzMax bound root-zone soil wetness for
// rescaling; a NaN smrzMin uses the driest day in the record.
func Prepare(records []Record, smrzMin, smrzMax float64) ([fieldcarb.NumVariables][]float64, error) {
	var o [fieldcarb.NumVariables][]float64
	for v := range o {
		o[v] = make([]float64, len(records))
	}
	smrz := make([]float64, len(records))
	for t, r := range records {
		par := r.PAR
		if math.IsNaN(par) && !math.IsNaN(r.SWRad) {
			var err error
			if par, err = PAR(unit.New(r.SWRad, WattPerMeter2)); err != nil {
				return o, err
			}
		}
		vpd := r.VPD
		if math.IsNaN(vpd) && !math.IsNaN(r.QV2M) && !math.IsNaN(r.PS) && !math.IsNaN(r.TMean) {
			u, err := VPD(unit.New(r.QV2M, unit.Dimless), unit.New(r.PS, unit.Pascal), unit.New(r.TMean, unit.Kelvin))
			if err != nil {
				return o, err
			}
			vpd = u.Value()
		}
		ft := r.FT
		if math.IsNaN(ft) {
			ft = FreezeThaw(r.TMin)
		}
		o[fieldcarb.FPAR][t] = r.FPAR
		o[fieldcarb.PAR][t] = par
		o[fieldcarb.Tmin][t] = r.TMin
		o[fieldcarb.VPD][t] = vpd
		o[fieldcarb.FT][t] = ft
		o[fieldcarb.Tsoil][t] = r.TSoil
		o[fieldcarb.SMSF][t] = r.SMSF
		smrz[t] = r.SMRZ
	}
	o[fieldcarb.SMRZ] = RescaleSMRZ(smrz, smrzMin, smrzMax)
	return o, nil
}

// Drivers builds a driver record from the prepared time series of each
// site. All sites must have the same number of steps.
func Drivers(sites [][fieldcarb.NumVariables][]float64) (fieldcarb.Drivers, error) {
	if len(sites) == 0 {
		return fieldcarb.Drivers{}, fmt.Errorf("met: no sites")
	}
	steps := len(sites[0][0])
	if steps == 0 {
		return fieldcarb.Drivers{}, fmt.Errorf("met: no time steps")
	}
	d := fieldcarb.NewDrivers(len(sites), steps)
	for i, s := range sites {
		for v, series := range s {
			if err := d.SetSite(fieldcarb.Variable(v), i, series); err != nil {
				return fieldcarb.Drivers{}, fmt.Errorf("met: site %d: %v", i, err)
			}
		}
	}
	return d, nil
}
