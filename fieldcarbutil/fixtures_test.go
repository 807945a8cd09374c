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
	"math"
	"os"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/spatialmodel/fieldcarb"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func testSiteConfig() *SiteConfig {
	return &SiteConfig{
		Drivers:    []string{"testdata/cereal.csv", "testdata/wheat.csv"},
		LandCover:  []int{7, 7},
		InitialSOC: []float64{100, 100, 1000},
		SMRZMin:    math.NaN(),
		SMRZMax:    1,
	}
}

// testModel returns a model and its inputs for the test sites.
func testModel(t *testing.T, opts ...fieldcarb.Option) (*fieldcarb.Model, *Inputs) {
	c := testSiteConfig()
	in, err := ReadInputs(c)
	require.NoError(t, err)
	table, err := ReadBPLUT("testdata/bplut.toml")
	require.NoError(t, err)
	soc := mat.NewDense(fieldcarb.NumPools, 2, []float64{100, 100, 100, 100, 1000, 1000})
	log, _ := test.NewNullLogger()
	m, err := fieldcarb.NewModel(table, c.LandCover, soc, append(opts, fieldcarb.Logger(log))...)
	require.NoError(t, err)
	return m, in
}

func removeAll(files ...string) {
	for _, f := range files {
		os.Remove(f)
	}
}
