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
	"path/filepath"
	"testing"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/fieldcarb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSiteConfigFromViper(t *testing.T) {
	cfg := viper.New()
	cfg.Set("Drivers", []string{"$FIELDCARB_TESTDIR/a.csv", "b.csv"})
	cfg.Set("LandCover", []interface{}{int64(7)})
	cfg.Set("InitialSOC", "[1, 2, 3]")
	cfg.Set("SOCFile", "soc.gob")
	cfg.Set("SMRZMin", -1.0)
	cfg.Set("SMRZMax", 0.9)
	os.Setenv("FIELDCARB_TESTDIR", "sites")
	defer os.Unsetenv("FIELDCARB_TESTDIR")

	c, err := SiteConfigFromViper(cfg)
	require.NoError(t, err)
	assert.Equal(t, []string{"sites/a.csv", "b.csv"}, c.Drivers)
	assert.Equal(t, []int{7, 7}, c.LandCover)
	assert.Equal(t, []float64{1, 2, 3}, c.InitialSOC)
	assert.True(t, math.IsNaN(c.SMRZMin))
	assert.Equal(t, 0.9, c.SMRZMax)

	cfg.Set("LandCover", "[7, 8, 8]")
	_, err = SiteConfigFromViper(cfg)
	var shape *fieldcarb.ShapeMismatchError
	require.ErrorAs(t, err, &shape)
	assert.Equal(t, "LandCover", shape.What)

	cfg.Set("LandCover", "[7, 8]")
	cfg.Set("InitialSOC", []interface{}{1.0, 2.0})
	_, err = SiteConfigFromViper(cfg)
	require.ErrorAs(t, err, &shape)
	assert.Equal(t, "InitialSOC", shape.What)
}

func TestModelOptions(t *testing.T) {
	cfg := viper.New()
	cfg.Set("Threshold", 0.5)
	cfg.Set("MaxCycles", 20)
	cfg.Set("Workers", 3)
	cfg.Set("Litterfall", "Climatology")
	opts, err := ModelOptions(cfg, nil)
	require.NoError(t, err)
	m, _ := testModel(t, opts...)
	assert.Equal(t, fieldcarb.Settings{Threshold: 0.5, MaxCycles: 20, Litter: fieldcarb.ClimatologyLitter}, m.Settings())

	cfg.Set("Litterfall", "monthly")
	_, err = ModelOptions(cfg, nil)
	assert.Error(t, err)
}

func TestGetStringMapString(t *testing.T) {
	cfg := viper.New()
	cfg.Set("a", map[string]interface{}{"NEP": "-NEE"})
	cfg.Set("b", `{"GPP": "GPP"}`)
	cfg.Set("c", "{")
	a, err := GetStringMapString("a", cfg)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"NEP": "-NEE"}, a)
	b, err := GetStringMapString("b", cfg)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"GPP": "GPP"}, b)
	_, err = GetStringMapString("c", cfg)
	assert.Error(t, err)
}

func TestCheckOutput(t *testing.T) {
	dir := t.TempDir()
	_, err := checkOutputFile("")
	assert.Error(t, err)
	_, err = checkOutputFile(filepath.Join(dir, "fluxes.shp"))
	assert.Error(t, err)
	_, err = checkOutputFile(filepath.Join(dir, "missing", "fluxes.csv"))
	assert.Error(t, err)
	f, err := checkOutputFile(filepath.Join(dir, "fluxes.xlsx"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "fluxes.log"), checkLogFile("", f))
	assert.Equal(t, "run.log", checkLogFile("run.log", f))

	vars, err := checkOutputVars(map[string]string{"NEP": "-NEE\n"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"NEP": "-NEE "}, vars)
	_, err = checkOutputVars(nil)
	assert.Error(t, err)
}
