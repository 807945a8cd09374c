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
	"errors"
	"reflect"
	"testing"

	"github.com/kr/pretty"
)

func TestBPLUT(t *testing.T) {
	params := map[int]SiteParameters{7: cerealParams()}
	b, err := NewBPLUT(params)
	if err != nil {
		t.Fatal(err)
	}

	t.Run("lookup", func(t *testing.T) {
		p, err := b.ParametersFor(7)
		if err != nil {
			t.Fatal(err)
		}
		if diff := pretty.Diff(p, cerealParams()); len(diff) != 0 {
			t.Error(diff)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := b.ParametersFor(3)
		var lcErr *UnknownLandCoverError
		if !errors.As(err, &lcErr) {
			t.Fatalf("want *UnknownLandCoverError, have %v", err)
		}
		if lcErr.Code != 3 {
			t.Errorf("code: %d != 3", lcErr.Code)
		}
	})

	t.Run("immutable", func(t *testing.T) {
		p := params[7]
		p.LUE = 100
		params[7] = p
		params[8] = broadleafParams()
		q, _ := b.ParametersFor(7)
		if q.LUE != 1.61 {
			t.Errorf("table changed with its source map: LUE=%g", q.LUE)
		}
		if codes := b.Codes(); !reflect.DeepEqual(codes, []int{7}) {
			t.Errorf("codes: %v", codes)
		}
	})
}

func TestPartitioning(t *testing.T) {
	alloc, transfer := Partitioning(0.78, 0.5)
	want := [NumPools]float64{0.78, 0.22, 0}
	for i := range want {
		if different(alloc[i], want[i], testTolerance) {
			t.Errorf("allocation[%d]: %g != %g", i, alloc[i], want[i])
		}
	}
	if transfer != [NumPools - 1]float64{0, 0.5} {
		t.Errorf("transfer: %v", transfer)
	}
}

func TestSiteParametersValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*SiteParameters)
	}{
		{name: "ramp", modify: func(p *SiteParameters) { p.TMin0, p.TMin1 = p.TMin1, p.TMin0 }},
		{name: "cue", modify: func(p *SiteParameters) { p.CUE = 1.2 }},
		{name: "ft0", modify: func(p *SiteParameters) { p.FT0 = -0.1 }},
		{name: "decay", modify: func(p *SiteParameters) { p.DecayRates[Recalcitrant] = 2 }},
		{name: "allocation", modify: func(p *SiteParameters) { p.Allocation[Metabolic] = 0.5 }},
		{name: "transfer", modify: func(p *SiteParameters) { p.Transfer[Structural] = 1.5 }},
	}
	p := cerealParams()
	if err := p.Validate(); err != nil {
		t.Fatalf("valid parameters: %v", err)
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			p := cerealParams()
			test.modify(&p)
			if err := p.Validate(); err == nil {
				t.Error("expected an error")
			}
			if _, err := NewBPLUT(map[int]SiteParameters{1: p}); err == nil {
				t.Error("NewBPLUT should reject invalid parameters")
			}
		})
	}
}
