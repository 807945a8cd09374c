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
	"sync"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/mat"
)

// Default spin-up policy.
const (
	// DefaultThreshold is the default spin-up convergence threshold on the
	// change in the annual NEE sum between cycles [g C m⁻² yr⁻¹].
	DefaultThreshold = 1.0

	// DefaultMaxCycles is the default maximum number of replays of the
	// driver record during spin-up.
	DefaultMaxCycles = 1000
)

// LitterMode specifies how daily litterfall into the SOC pools is
// determined.
type LitterMode int

const (
	// DynamicLitter uses each day's NPP as that day's litterfall.
	DynamicLitter LitterMode = iota

	// ClimatologyLitter uses a constant daily litterfall equal to the
	// mean annual NPP divided by the number of days in the year,
	// computed from a day-of-year climatology of the first driver record
	// the model sees, unless it was set with MeanLitterfall.
	ClimatologyLitter
)

func (l LitterMode) String() string {
	switch l {
	case DynamicLitter:
		return "dynamic"
	case ClimatologyLitter:
		return "climatology"
	default:
		return fmt.Sprintf("LitterMode(%d)", int(l))
	}
}

// Model is a field-scale carbon flux model for a set of sites. It owns the
// SOC state of its sites; the state is updated by SpinUp and ForwardRun.
// A Model must not be used by more than one goroutine at a time.
type Model struct {
	landCover []int
	params    []SiteParameters

	// soc holds the SOC state [g C m⁻²], one row per pool and one
	// column per site.
	soc *mat.Dense

	threshold  float64
	maxCycles  int
	workers    int
	litterMode LitterMode
	litterfall []float64

	log      logrus.FieldLogger
	progress chan<- CycleStatus
}

// Option configures a Model.
type Option func(*Model) error

// Threshold sets the spin-up convergence threshold [g C m⁻² yr⁻¹].
func Threshold(t float64) Option {
	return func(m *Model) error {
		if !(t > 0) {
			return fmt.Errorf("fieldcarb: spin-up threshold must be > 0 but is %g", t)
		}
		m.threshold = t
		return nil
	}
}

// MaxCycles sets the maximum number of replays of the driver record
// during spin-up, including the first replay that sets the baseline.
func MaxCycles(n int) Option {
	return func(m *Model) error {
		if n < 2 {
			return fmt.Errorf("fieldcarb: maximum spin-up cycles must be >= 2 but is %d", n)
		}
		m.maxCycles = n
		return nil
	}
}

// Workers sets the number of goroutines that sites are divided among.
// With n <= 1, sites are processed sequentially.
func Workers(n int) Option {
	return func(m *Model) error {
		if n < 1 {
			n = 1
		}
		m.workers = n
		return nil
	}
}

// Litterfall sets how litterfall is determined.
func Litterfall(mode LitterMode) Option {
	return func(m *Model) error {
		if mode != DynamicLitter && mode != ClimatologyLitter {
			return fmt.Errorf("fieldcarb: invalid litterfall mode %v", mode)
		}
		m.litterMode = mode
		return nil
	}
}

// MeanLitterfall sets a constant daily litterfall [g C m⁻² day⁻¹] for each
// site and selects ClimatologyLitter.
func MeanLitterfall(litter []float64) Option {
	return func(m *Model) error {
		if len(litter) != len(m.landCover) {
			return &ShapeMismatchError{What: "litterfall sites", Want: len(m.landCover), Have: len(litter)}
		}
		for i, l := range litter {
			if !(l >= 0) {
				return fmt.Errorf("fieldcarb: litterfall at site %d must be >= 0 but is %g", i, l)
			}
		}
		m.litterMode = ClimatologyLitter
		m.litterfall = append([]float64(nil), litter...)
		return nil
	}
}

// Logger sets the destination for log messages. The default is the
// logrus standard logger.
func Logger(l logrus.FieldLogger) Option {
	return func(m *Model) error {
		m.log = l
		return nil
	}
}

// Progress sets a channel that receives the status of the model after
// each spin-up cycle. The channel is not closed by the model.
func Progress(c chan<- CycleStatus) Option {
	return func(m *Model) error {
		m.progress = c
		return nil
	}
}

// NewModel creates a new model for the sites with the given land-cover
// codes, using the parameters in table. initialSOC holds the initial
// guess of the SOC state, with NumPools rows and one column per site;
// it is copied, so later changes to it do not affect the model.
func NewModel(table *BPLUT, landCover []int, initialSOC mat.Matrix, opts ...Option) (*Model, error) {
	if table == nil {
		return nil, fmt.Errorf("fieldcarb: nil BPLUT")
	}
	if len(landCover) == 0 {
		return nil, fmt.Errorf("fieldcarb: no sites")
	}
	if initialSOC == nil {
		return nil, fmt.Errorf("fieldcarb: nil initial SOC state")
	}
	pools, sites := initialSOC.Dims()
	if pools != NumPools {
		return nil, &ShapeMismatchError{What: "SOC pools", Want: NumPools, Have: pools}
	}
	if sites != len(landCover) {
		return nil, &ShapeMismatchError{What: "SOC sites", Want: len(landCover), Have: sites}
	}
	m := &Model{
		landCover: append([]int(nil), landCover...),
		params:    make([]SiteParameters, len(landCover)),
		soc:       mat.DenseCopyOf(initialSOC),
		threshold: DefaultThreshold,
		maxCycles: DefaultMaxCycles,
		workers:   1,
		log:       logrus.StandardLogger(),
	}
	for i, code := range landCover {
		p, err := table.ParametersFor(code)
		if err != nil {
			return nil, err
		}
		m.params[i] = p
	}
	if err := checkSOC(m.soc); err != nil {
		return nil, err
	}
	for _, o := range opts {
		if err := o(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func checkSOC(soc mat.Matrix) error {
	pools, sites := soc.Dims()
	for i := 0; i < sites; i++ {
		for j := 0; j < pools; j++ {
			if v := soc.At(j, i); !(v >= 0) || math.IsInf(v, 0) {
				return fmt.Errorf("fieldcarb: SOC in the %s pool at site %d must be finite and >= 0 but is %g",
					PoolNames[j], i, v)
			}
		}
	}
	return nil
}

// SetState replaces the SOC state of the model, for example with one
// saved after an earlier spin-up. soc has one row per pool and one
// column per site. If litterfall is not nil, it replaces the constant
// daily litterfall at each site as with MeanLitterfall.
func (m *Model) SetState(soc mat.Matrix, litterfall []float64) error {
	if soc == nil {
		return fmt.Errorf("fieldcarb: nil SOC state")
	}
	pools, sites := soc.Dims()
	if pools != NumPools {
		return &ShapeMismatchError{What: "SOC pools", Want: NumPools, Have: pools}
	}
	if sites != m.Sites() {
		return &ShapeMismatchError{What: "SOC sites", Want: m.Sites(), Have: sites}
	}
	if err := checkSOC(soc); err != nil {
		return err
	}
	if litterfall != nil {
		if err := MeanLitterfall(litterfall)(m); err != nil {
			return err
		}
	}
	m.soc = mat.DenseCopyOf(soc)
	return nil
}

// Settings holds the settings that control spin-up.
type Settings struct {
	Threshold float64
	MaxCycles int
	Litter    LitterMode
}

// Settings returns the spin-up settings of the model.
func (m *Model) Settings() Settings {
	return Settings{Threshold: m.threshold, MaxCycles: m.maxCycles, Litter: m.litterMode}
}

// Sites returns the number of sites in the model.
func (m *Model) Sites() int { return len(m.landCover) }

// LandCover returns the land-cover code of each site.
func (m *Model) LandCover() []int { return append([]int(nil), m.landCover...) }

// Parameters returns the parameters used for the given site.
func (m *Model) Parameters(site int) SiteParameters { return m.params[site] }

// SOC returns a copy of the current SOC state, with one row per pool and
// one column per site.
func (m *Model) SOC() *mat.Dense { return mat.DenseCopyOf(m.soc) }

// TotalSOC returns the total SOC [g C m⁻²] at each site.
func (m *Model) TotalSOC() []float64 {
	o := make([]float64, m.Sites())
	for i := range o {
		o[i] = mat.Sum(m.soc.ColView(i))
	}
	return o
}

// Litterfall returns the constant daily litterfall at each site, or nil
// if litterfall is dynamic or has not been determined yet.
func (m *Model) Litterfall() []float64 {
	if m.litterfall == nil {
		return nil
	}
	return append([]float64(nil), m.litterfall...)
}

// eachSite runs f for every site. Sites are divided among m.workers
// goroutines, with each goroutine handling every m.workers-th site.
// f must only modify state belonging to its own site.
func (m *Model) eachSite(f func(site int)) {
	n := m.Sites()
	nprocs := m.workers
	if nprocs > n {
		nprocs = n
	}
	if nprocs <= 1 {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}
	var wg sync.WaitGroup
	wg.Add(nprocs)
	for pp := 0; pp < nprocs; pp++ {
		go func(pp int) {
			for ii := pp; ii < n; ii += nprocs {
				f(ii)
			}
			wg.Done()
		}(pp)
	}
	wg.Wait()
}
