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

package fieldcarbutil

import (
	"context"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/ctessum/requestcache"
	"github.com/spatialmodel/fieldcarb"
	"github.com/spatialmodel/fieldcarb/internal/hash"
	"gonum.org/v1/gonum/mat"
)

func init() {
	gob.Register(&SpinUpResult{})
}

// SpinUpResult holds the outcome of a spin-up.
type SpinUpResult struct {
	State

	Trace fieldcarb.ToleranceTrace

	// Warning is non-nil if spin-up did not converge.
	Warning *fieldcarb.ConvergenceWarning
}

type spinUpRequest struct {
	m       *fieldcarb.Model
	dates   []time.Time
	drivers fieldcarb.Drivers
}

// SpinUpCache runs model spin-ups, reusing the results of earlier
// spin-ups with the same sites, parameters, initial state and drivers.
type SpinUpCache struct {
	c *requestcache.Cache
}

// NewSpinUpCache creates a cache that keeps up to memEntries results in
// memory. If dir is not empty, results are also stored in that
// directory. At most workers spin-ups run at once.
func NewSpinUpCache(workers, memEntries int, dir string) *SpinUpCache {
	funcs := []requestcache.CacheFunc{requestcache.Deduplicate(), requestcache.Memory(memEntries)}
	if dir != "" {
		funcs = append(funcs, requestcache.Disk(dir, requestcache.MarshalGob, requestcache.UnmarshalGob))
	}
	return &SpinUpCache{c: requestcache.NewCache(spinUp, workers, funcs...)}
}

func spinUp(ctx context.Context, payload interface{}) (interface{}, error) {
	r := payload.(*spinUpRequest)
	trace, err := r.m.SpinUp(r.dates, r.drivers)
	res := &SpinUpResult{
		State: State{
			LandCover:  r.m.LandCover(),
			SOC:        r.m.SOC(),
			Litterfall: r.m.Litterfall(),
		},
		Trace: trace,
	}
	if err != nil {
		w, ok := err.(*fieldcarb.ConvergenceWarning)
		if !ok {
			return nil, err
		}
		res.Warning = w
	}
	return res, nil
}

// spinUpKey identifies a spin-up by everything that affects its outcome.
func spinUpKey(m *fieldcarb.Model, dates []time.Time, d fieldcarb.Drivers) string {
	params := make([]fieldcarb.SiteParameters, m.Sites())
	for i := range params {
		params[i] = m.Parameters(i)
	}
	drivers := make([][]float64, len(d))
	for i, v := range d {
		if v != nil {
			drivers[i] = mat.DenseCopyOf(v).RawMatrix().Data
		}
	}
	return hash.Hash(m.LandCover(), params, m.SOC().RawMatrix().Data, m.Litterfall(),
		m.Settings(), dates, drivers)
}

// SpinUp spins up m as with m.SpinUp, returning a cached result where
// one is available. The state of m is set to the spun-up state in
// either case.
func (s *SpinUpCache) SpinUp(ctx context.Context, m *fieldcarb.Model, dates []time.Time, d fieldcarb.Drivers) (fieldcarb.ToleranceTrace, error) {
	key := spinUpKey(m, dates, d)
	r := s.c.NewRequest(ctx, &spinUpRequest{m: m, dates: dates, drivers: d}, key)
	ri, err := r.Result()
	if err != nil {
		return nil, err
	}
	res, ok := ri.(*SpinUpResult)
	if !ok {
		return nil, fmt.Errorf("fieldcarbutil: invalid cached spin-up result type %T", ri)
	}
	if err := m.SetState(res.SOC, res.Litterfall); err != nil {
		return nil, err
	}
	trace := make(fieldcarb.ToleranceTrace, len(res.Trace))
	for i, row := range res.Trace {
		trace[i] = append([]float64(nil), row...)
	}
	if res.Warning != nil {
		w := *res.Warning
		w.Residual = append([]float64(nil), w.Residual...)
		return trace, &w
	}
	return trace, nil
}
