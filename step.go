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

// stepFlux holds the fluxes of one site over one day [g C m⁻² day⁻¹].
type stepFlux struct {
	gpp, npp, rh, nee float64
	rhPools           [NumPools]float64
}

// gpp calculates gross primary production at time step t.
// Negative fPAR and PAR values are treated as zero.
func (p *SiteParameters) gpp(d *siteDrivers, t int) float64 {
	fpar := math.Max(0, d[FPAR][t])
	par := math.Max(0, d[PAR][t])
	return p.LUE * fpar * par * p.emult(d[Tmin][t], d[VPD][t], d[SMRZ][t], d[FT][t])
}

// step advances the SOC pools of one site by one day using the drivers at
// time step t. litter is the day's litterfall; if it is NaN, the day's NPP
// is used. If the soil drivers or the litterfall are missing (NaN), the
// pools are left unchanged and the respiration fluxes are NaN. A missing
// GPP driver with a fixed litterfall only makes GPP, NPP and NEE missing.
//
// Each pool decomposes at its decay rate times the environmental scalar.
// A fraction of the carbon decomposed from each pool but the slowest is
// humified into the next slower pool and the remainder is respired.
func (p *SiteParameters) step(soc *[NumPools]float64, d *siteDrivers, t int, litter float64) stepFlux {
	var f stepFlux
	f.gpp = p.gpp(d, t)
	f.npp = p.CUE * f.gpp
	if math.IsNaN(litter) {
		litter = f.npp
	}
	k := p.kmult(d[Tsoil][t], d[SMSF][t])
	if math.IsNaN(k) || math.IsNaN(litter) {
		f.rh, f.nee = math.NaN(), math.NaN()
		for i := range f.rhPools {
			f.rhPools[i] = math.NaN()
		}
		return f
	}

	var decomposed [NumPools]float64
	for i := range decomposed {
		decomposed[i] = p.DecayRates[i] * k * soc[i]
	}
	for i := 0; i < NumPools; i++ {
		in := litter * p.Allocation[i]
		if i > 0 {
			in += p.Transfer[i-1] * decomposed[i-1]
		}
		rh := decomposed[i]
		if i < NumPools-1 {
			rh *= 1 - p.Transfer[i]
		}
		f.rhPools[i] = rh
		f.rh += rh
		soc[i] = soc[i] - decomposed[i] + in
	}
	f.nee = f.rh - f.npp
	return f
}
