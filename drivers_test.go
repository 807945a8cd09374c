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
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/mat"
)

func TestDrivers(t *testing.T) {
	d := NewDrivers(2, 4)
	if !math.IsNaN(d[FT].At(1, 3)) {
		t.Error("freeze-thaw state should default to NaN")
	}
	if err := d.Validate(2); err != nil {
		t.Fatal(err)
	}
	if err := d.SetSite(Tmin, 1, []float64{270, 271, 272, 273}); err != nil {
		t.Fatal(err)
	}
	var shapeErr *ShapeMismatchError
	if err := d.SetSite(Tmin, 1, []float64{270}); !errors.As(err, &shapeErr) {
		t.Errorf("want *ShapeMismatchError, have %v", err)
	}

	t.Run("slice", func(t *testing.T) {
		s, err := d.Slice(1, 3)
		if err != nil {
			t.Fatal(err)
		}
		if sites, steps := s.Dims(); sites != 2 || steps != 2 {
			t.Errorf("dims: %d, %d", sites, steps)
		}
		if v := s[Tmin].At(1, 0); v != 271 {
			t.Errorf("%g != 271", v)
		}
		if v := s.site(1)[Tmin]; len(v) != 2 || v[1] != 272 {
			t.Errorf("site view: %v", v)
		}
		for _, w := range [][2]int{{-1, 2}, {2, 2}, {3, 5}} {
			if _, err := d.Slice(w[0], w[1]); err == nil {
				t.Errorf("window %v should be invalid", w)
			}
		}
	})

	t.Run("concat", func(t *testing.T) {
		a, _ := d.Slice(0, 2)
		b, _ := d.Slice(2, 4)
		c, err := ConcatDrivers(a, b)
		if err != nil {
			t.Fatal(err)
		}
		for v := range c {
			if !mat.EqualApprox(c[v], d[v], 0) && v != int(FT) {
				t.Errorf("%v differs after concatenation", Variable(v))
			}
		}
		if _, err := ConcatDrivers(a, NewDrivers(3, 2)); !errors.As(err, &shapeErr) {
			t.Errorf("want *ShapeMismatchError, have %v", err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		var e Drivers
		if err := e.Validate(1); err == nil {
			t.Error("expected an error")
		}
	})
}

func TestVariableString(t *testing.T) {
	if s := Tsoil.String(); s != "Tsoil" {
		t.Errorf("%q", s)
	}
	if s := Variable(12).String(); s != "Variable(12)" {
		t.Errorf("%q", s)
	}
}

func TestClimatology(t *testing.T) {
	start := time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
	const days = 366 * 2
	dates := make([]time.Time, days)
	series := make([]float64, days)
	for i := range dates {
		dates[i] = start.AddDate(0, 0, i)
		series[i] = float64(dates[i].Year() - 2019)
	}
	series[10] = math.NaN()
	c, err := NewClimatology(dates, series)
	if err != nil {
		t.Fatal(err)
	}
	if c[10] != 2 {
		t.Errorf("missing value should be skipped: %g", c[10])
	}
	if c[100] != 1.5 {
		t.Errorf("day 101: %g != 1.5", c[100])
	}
	if m := c.Mean(); m <= 1.5 || m > 1.51 {
		t.Errorf("mean: %g", m)
	}

	if _, err := NewClimatology(dates[:300], series[:300]); err == nil {
		t.Error("a partial year should be an error")
	}
}
