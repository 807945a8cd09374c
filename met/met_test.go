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

package met

import (
	"math"
	"testing"

	"github.com/ctessum/unit"
	"github.com/spatialmodel/fieldcarb"
)

func different(a, b, tolerance float64) bool {
	if 2*math.Abs(a-b)/math.Abs(a+b) > tolerance || math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return false
}

func TestPAR(t *testing.T) {
	par, err := PAR(unit.New(200, WattPerMeter2))
	if err != nil {
		t.Fatal(err)
	}
	if want := 0.45 * 200 / 11.5741; different(par, want, 1.e-5) {
		t.Errorf("%g != %g", par, want)
	}
	if _, err := PAR(unit.New(200, unit.Kelvin)); err == nil {
		t.Error("wrong units should be an error")
	}
}

func TestVPD(t *testing.T) {
	tests := []struct {
		name           string
		qv2m, ps, temp float64
		want           float64
	}{
		{
			name: "dry", qv2m: 0, ps: 101325, temp: 298.15,
			want: 610.7 * math.Exp(17.38*25/(239+25)),
		},
		{
			name: "humid", qv2m: 0.01, ps: 100000, temp: 293.15,
			want: 610.7*math.Exp(17.38*20/(239+20)) - 0.01*100000/(0.622+0.00378),
		},
		{name: "saturated", qv2m: 0.05, ps: 100000, temp: 283.15, want: 0},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			v, err := VPD(unit.New(test.qv2m, unit.Dimless), unit.New(test.ps, unit.Pascal),
				unit.New(test.temp, unit.Kelvin))
			if err != nil {
				t.Fatal(err)
			}
			if err := v.Check(unit.Pascal); err != nil {
				t.Error(err)
			}
			if v.Value() != test.want && different(v.Value(), test.want, 1.e-9) {
				t.Errorf("%g != %g", v.Value(), test.want)
			}
		})
	}
	if _, err := VPD(unit.New(0, unit.Dimless), unit.New(1, unit.Kelvin), unit.New(1, unit.Kelvin)); err == nil {
		t.Error("wrong units should be an error")
	}
}

func TestRescaleSMRZ(t *testing.T) {
	r := RescaleSMRZ([]float64{0.1, 0.2, 0.5, 1.2, math.NaN()}, math.NaN(), 1)
	if different(r[0], 0.05, 1.e-12) {
		t.Errorf("driest day: %g != 0.05", r[0])
	}
	if r[2] <= r[1] || r[1] <= r[0] {
		t.Errorf("not increasing: %v", r)
	}
	if r[3] != 1 && different(r[3], 1, 1.e-12) {
		t.Errorf("wettest day: %g != 1", r[3])
	}
	if !math.IsNaN(r[4]) {
		t.Errorf("missing value: %g", r[4])
	}
}

func TestPrepare(t *testing.T) {
	records := make([]Record, 3)
	for i := range records {
		records[i] = NewRecord()
		records[i].FPAR = 0.4
		records[i].SWRad = 150
		records[i].TMean = 285
		records[i].QV2M = 0.005
		records[i].PS = 98000
		records[i].TMin = 270 + 4*float64(i)
		records[i].SMRZ = 0.2 + 0.1*float64(i)
		records[i].TSoil = 280
		records[i].SMSF = 0.2
	}
	records[2].PAR = 9
	records[2].VPD = 300
	s, err := Prepare(records, math.NaN(), 1)
	if err != nil {
		t.Fatal(err)
	}
	if ft := s[fieldcarb.FT]; ft[0] != 0 || ft[1] != 1 || ft[2] != 1 {
		t.Errorf("freeze-thaw: %v", ft)
	}
	if s[fieldcarb.PAR][2] != 9 || s[fieldcarb.VPD][2] != 300 {
		t.Error("supplied PAR and VPD should be used directly")
	}
	if different(s[fieldcarb.PAR][0], 0.45*150*86400/1.e6, 1.e-12) {
		t.Errorf("PAR: %g", s[fieldcarb.PAR][0])
	}
	if !(s[fieldcarb.VPD][0] > 0) {
		t.Errorf("VPD: %g", s[fieldcarb.VPD][0])
	}

	d, err := Drivers([][fieldcarb.NumVariables][]float64{s, s})
	if err != nil {
		t.Fatal(err)
	}
	if err := d.Validate(2); err != nil {
		t.Fatal(err)
	}
	if v := d[fieldcarb.Tmin].At(1, 2); v != 278 {
		t.Errorf("Tmin: %g", v)
	}
}
