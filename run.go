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

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Fluxes holds the carbon fluxes calculated by a model run
// [g C m⁻² day⁻¹]. Each matrix has one row per site and one column per
// time step.
type Fluxes struct {
	GPP, NPP, Rh, NEE *mat.Dense

	// RhPools holds the heterotrophic respiration from each SOC pool.
	RhPools [NumPools]*mat.Dense
}

func newFluxes(sites, steps int) *Fluxes {
	f := &Fluxes{
		GPP: mat.NewDense(sites, steps, nil),
		NPP: mat.NewDense(sites, steps, nil),
		Rh:  mat.NewDense(sites, steps, nil),
		NEE: mat.NewDense(sites, steps, nil),
	}
	for i := range f.RhPools {
		f.RhPools[i] = mat.NewDense(sites, steps, nil)
	}
	return f
}

func (f *Fluxes) set(site, t int, s stepFlux) {
	f.GPP.Set(site, t, s.gpp)
	f.NPP.Set(site, t, s.npp)
	f.Rh.Set(site, t, s.rh)
	f.NEE.Set(site, t, s.nee)
	for i, rh := range s.rhPools {
		f.RhPools[i].Set(site, t, rh)
	}
}

// Variables returns the flux matrices keyed by variable name:
// GPP, NPP, RH, NEE and RH0, RH1 and RH2 for the individual pools.
func (f *Fluxes) Variables() map[string]*mat.Dense {
	o := map[string]*mat.Dense{
		"GPP": f.GPP,
		"NPP": f.NPP,
		"RH":  f.Rh,
		"NEE": f.NEE,
	}
	for i, rh := range f.RhPools {
		o[fmt.Sprintf("RH%d", i)] = rh
	}
	return o
}

// ToleranceTrace records the progress of a spin-up. Each row corresponds
// to one spin-up cycle after the first and holds, for each site, the
// previous cycle's NEE sum minus the current cycle's NEE sum
// [g C m⁻² yr⁻¹].
type ToleranceTrace [][]float64

// Last returns the last row of the trace, or nil if it is empty.
func (tr ToleranceTrace) Last() []float64 {
	if len(tr) == 0 {
		return nil
	}
	return tr[len(tr)-1]
}

// CycleStatus holds information about the progress of a spin-up.
type CycleStatus struct {
	// Cycle is the number of replays of the driver record so far.
	Cycle int
	// MaxResidual is the largest absolute change in the NEE sum
	// among all sites, and Site is the site where it occurred.
	MaxResidual float64
	Site        int
	Converged   bool
}

func (s CycleStatus) String() string {
	return fmt.Sprintf("Cycle %-5d  max |ΔNEE|=%-10.4g site=%d  converged=%v",
		s.Cycle, s.MaxResidual, s.Site, s.Converged)
}

// siteSOC returns a copy of the SOC pools at site i.
func (m *Model) siteSOC(i int) [NumPools]float64 {
	var soc [NumPools]float64
	for j := range soc {
		soc[j] = m.soc.At(j, i)
	}
	return soc
}

func (m *Model) setSiteSOC(i int, soc [NumPools]float64) {
	for j, v := range soc {
		m.soc.Set(j, i, v)
	}
}

// siteLitter returns the fixed litterfall at site i, or NaN if
// litterfall is dynamic.
func (m *Model) siteLitter(i int) float64 {
	if m.litterMode == DynamicLitter || m.litterfall == nil {
		return math.NaN()
	}
	return m.litterfall[i]
}

// prepareLitter determines the constant litterfall from the driver record
// if it is needed and has not been set.
func (m *Model) prepareLitter(dates []time.Time, d Drivers) error {
	if m.litterMode != ClimatologyLitter || m.litterfall != nil {
		return nil
	}
	if dates == nil {
		return fmt.Errorf("fieldcarb: dates are required to calculate climatological litterfall")
	}
	gpp, err := m.GPP(d)
	if err != nil {
		return err
	}
	litter := make([]float64, m.Sites())
	for i := range litter {
		clim, err := NewClimatology(dates, gpp.RawRowView(i))
		if err != nil {
			return fmt.Errorf("fieldcarb: litterfall at site %d: %v", i, err)
		}
		litter[i] = m.params[i].CUE * clim.Mean()
	}
	m.litterfall = litter
	m.log.WithField("litterfall", litter).Debug("calculated climatological litterfall")
	return nil
}

// Emult returns the environmental scalar for GPP for each site and time step.
func (m *Model) Emult(d Drivers) (*mat.Dense, error) {
	if err := d.Validate(m.Sites()); err != nil {
		return nil, err
	}
	sites, steps := d.Dims()
	o := mat.NewDense(sites, steps, nil)
	m.eachSite(func(i int) {
		sd := d.site(i)
		p := &m.params[i]
		row := o.RawRowView(i)
		for t := range row {
			row[t] = p.emult(sd[Tmin][t], sd[VPD][t], sd[SMRZ][t], sd[FT][t])
		}
	})
	return o, nil
}

// Kmult returns the environmental scalar for decomposition for each site
// and time step.
func (m *Model) Kmult(d Drivers) (*mat.Dense, error) {
	if err := d.Validate(m.Sites()); err != nil {
		return nil, err
	}
	sites, steps := d.Dims()
	o := mat.NewDense(sites, steps, nil)
	m.eachSite(func(i int) {
		sd := d.site(i)
		p := &m.params[i]
		row := o.RawRowView(i)
		for t := range row {
			row[t] = p.kmult(sd[Tsoil][t], sd[SMSF][t])
		}
	})
	return o, nil
}

// GPP calculates gross primary production [g C m⁻² day⁻¹] for each site and
// time step. It does not change the state of the model.
func (m *Model) GPP(d Drivers) (*mat.Dense, error) {
	if err := d.Validate(m.Sites()); err != nil {
		return nil, err
	}
	sites, steps := d.Dims()
	o := mat.NewDense(sites, steps, nil)
	m.eachSite(func(i int) {
		sd := d.site(i)
		p := &m.params[i]
		row := o.RawRowView(i)
		for t := range row {
			row[t] = p.gpp(&sd, t)
		}
	})
	return o, nil
}

// ForwardRun steps the model through the driver record once, starting from
// the current SOC state, and returns the resulting fluxes. The SOC state
// is updated, so consecutive calls continue in time.
func (m *Model) ForwardRun(d Drivers) (*Fluxes, error) {
	return m.ForwardRunDates(nil, d)
}

// ForwardRunDates is the same as ForwardRun, but also accepts the date of
// each time step, which is needed when the model uses climatological
// litterfall that has not been calculated yet.
func (m *Model) ForwardRunDates(dates []time.Time, d Drivers) (*Fluxes, error) {
	if err := d.Validate(m.Sites()); err != nil {
		return nil, err
	}
	sites, steps := d.Dims()
	if dates != nil && len(dates) != steps {
		return nil, &ShapeMismatchError{What: "dates", Want: steps, Have: len(dates)}
	}
	if err := m.prepareLitter(dates, d); err != nil {
		return nil, err
	}
	f := newFluxes(sites, steps)
	m.eachSite(func(i int) {
		soc := m.siteSOC(i)
		sd := d.site(i)
		p := &m.params[i]
		litter := m.siteLitter(i)
		for t := 0; t < steps; t++ {
			f.set(i, t, p.step(&soc, &sd, t, litter))
		}
		m.setSiteSOC(i, soc)
	})
	return f, nil
}

// cycle steps every site through the driver record once and returns the
// sum of NEE over the record at each site. Missing values are skipped.
func (m *Model) cycle(d Drivers) []float64 {
	sums := make([]float64, m.Sites())
	_, steps := d.Dims()
	m.eachSite(func(i int) {
		soc := m.siteSOC(i)
		sd := d.site(i)
		p := &m.params[i]
		litter := m.siteLitter(i)
		var sum float64
		for t := 0; t < steps; t++ {
			s := p.step(&soc, &sd, t, litter)
			if !math.IsNaN(s.nee) {
				sum += s.nee
			}
		}
		m.setSiteSOC(i, soc)
		sums[i] = sum
	})
	return sums
}

// SpinUp brings the SOC pools toward equilibrium with the driver record,
// which is treated as a representative year and replayed repeatedly.
// dates holds the date of each time step.
//
// The first replay sets a baseline NEE sum for each site. After each
// further replay, the change in the NEE sum is appended to the returned
// trace, and spin-up stops when the change is smaller than the threshold
// at all sites. If that doesn't happen within the maximum number of
// cycles, the trace is returned with a *ConvergenceWarning and the model
// keeps the state it reached.
func (m *Model) SpinUp(dates []time.Time, d Drivers) (ToleranceTrace, error) {
	if err := d.Validate(m.Sites()); err != nil {
		return nil, err
	}
	_, steps := d.Dims()
	if len(dates) != steps {
		return nil, &ShapeMismatchError{What: "spin-up dates", Want: steps, Have: len(dates)}
	}
	if err := m.prepareLitter(dates, d); err != nil {
		return nil, err
	}

	prev := m.cycle(d)
	trace := make(ToleranceTrace, 0, 16)
	for cycle := 2; cycle <= m.maxCycles; cycle++ {
		sums := m.cycle(d)
		row := make([]float64, len(sums))
		status := CycleStatus{Cycle: cycle, Converged: true}
		for i, s := range sums {
			row[i] = prev[i] - s
			r := math.Abs(row[i])
			if !(r < m.threshold) {
				status.Converged = false
			}
			if r > status.MaxResidual {
				status.MaxResidual, status.Site = r, i
			}
		}
		trace = append(trace, row)
		prev = sums

		m.log.WithFields(logrus.Fields{
			"cycle":        status.Cycle,
			"max_residual": status.MaxResidual,
			"site":         status.Site,
		}).Debug("spin-up cycle")
		if m.progress != nil {
			m.progress <- status
		}
		if status.Converged {
			m.log.WithField("cycles", cycle).Info("spin-up converged")
			return trace, nil
		}
	}
	w := &ConvergenceWarning{
		Cycles:    m.maxCycles,
		Threshold: m.threshold,
		Residual:  append([]float64(nil), trace.Last()...),
	}
	m.log.WithField("cycles", m.maxCycles).Warn(w.Error())
	return trace, w
}
