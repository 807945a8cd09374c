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

// Package fieldcarb is a field-scale version of the Terrestrial Carbon Flux
// (TCF) model. It estimates daily gross primary production (GPP),
// heterotrophic respiration (Rh) and net ecosystem exchange (NEE) for a
// set of sites from surface meteorology and land-cover specific
// biophysical parameters, tracking soil organic carbon (SOC) in three
// pools.
//
// All carbon quantities are in g C m⁻², and fluxes are per day.
package fieldcarb

// Version gives the version number.
const Version = "0.3.0"

// Indices of the SOC pools, ordered from fastest to slowest turnover.
const (
	Metabolic = iota
	Structural
	Recalcitrant

	// NumPools is the number of SOC pools tracked for each site.
	NumPools
)

// PoolNames are the names of the SOC pools, in pool order.
var PoolNames = [NumPools]string{"metabolic", "structural", "recalcitrant"}

// daysPerYear is the length of the representative annual cycle
// used when summarizing fluxes.
const daysPerYear = 365

// freezingPoint is the temperature [K] below which the soil is
// considered frozen when the freeze-thaw state is not supplied.
const freezingPoint = 273.15
