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

import "math"

// Constants of the Lloyd and Taylor (1994) soil temperature response.
const (
	arrheniusRef  = 66.02  // [K]
	arrheniusBase = 227.13 // [K]
)

// clip limits v to [0, 1]. NaN values pass through.
func clip(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// ramp is 0 below lo, 1 at or above hi and linear in between.
func ramp(x, lo, hi float64) float64 {
	switch {
	case math.IsNaN(x):
		return math.NaN()
	case x >= hi:
		return 1
	case x < lo:
		return 0
	}
	return clip((x - lo) / (hi - lo))
}

// reversedRamp is 1 below lo, 0 at or above hi and linear in between.
func reversedRamp(x, lo, hi float64) float64 {
	switch {
	case math.IsNaN(x):
		return math.NaN()
	case x >= hi:
		return 0
	case x < lo:
		return 1
	}
	return clip(1 - (x-lo)/(hi-lo))
}

// arrhenius is the soil temperature response of decomposition, where t is
// the soil temperature [K] and beta0 is the activation parameter.
// Temperatures at or below the reference base are treated as inactive.
func arrhenius(t, beta0 float64) float64 {
	if math.IsNaN(t) {
		return math.NaN()
	}
	if t <= arrheniusBase {
		return 0
	}
	return clip(math.Exp(beta0 * (1/arrheniusRef - 1/(t-arrheniusBase))))
}

// thawed returns whether the freeze-thaw flag ft indicates unfrozen soil.
// A NaN flag is derived from the minimum temperature.
func thawed(ft, tmin float64) bool {
	if math.IsNaN(ft) {
		return tmin >= freezingPoint
	}
	return ft >= 0.5
}

// emult is the environmental scalar for GPP: the product of the
// freeze-thaw, minimum temperature, VPD and root-zone soil moisture
// multipliers.
func (p *SiteParameters) emult(tmin, vpd, smrz, ft float64) float64 {
	if math.IsNaN(tmin) {
		return math.NaN()
	}
	f := p.FT0
	if thawed(ft, tmin) {
		f = 1
	}
	return clip(f * ramp(tmin, p.TMin0, p.TMin1) *
		reversedRamp(vpd, p.VPD0, p.VPD1) *
		ramp(smrz, p.SMRZ0, p.SMRZ1))
}

// kmult is the environmental scalar for decomposition: the product of
// the soil temperature and surface soil moisture multipliers.
func (p *SiteParameters) kmult(tsoil, smsf float64) float64 {
	return clip(arrhenius(tsoil, p.TSoil) * ramp(smsf, p.SMSF0, p.SMSF1))
}
