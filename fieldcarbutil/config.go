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
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/fieldcarb"
	"github.com/spf13/cast"
)

// checkOutputVars removes end lines and expands environment
// variables in the output variables.
func checkOutputVars(vars map[string]string) (map[string]string, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("there are no variables specified for output. Please fill in " +
			"the OutputVariables configuration and try again.")
	}
	o := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		o[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return o, nil
}

// expandStringSlice expands the environment variables in a slice of strings.
func expandStringSlice(s []string) []string {
	for i := 0; i < len(s); i++ {
		s[i] = os.ExpandEnv(s[i])
	}
	return s
}

// checkOutputFile makes sure that the output file is specified, that it
// is a CSV or XLSX file and that its directory exists, and expands any
// environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: OutputFile="fluxes.csv")`)
	}
	f = os.ExpandEnv(f)
	switch strings.ToLower(filepath.Ext(f)) {
	case ".csv", ".xlsx":
	default:
		return f, fmt.Errorf("fieldcarb: the OutputFile '%s' must end in .csv or .xlsx", f)
	}
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("fieldcarb: the OutputFile directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one isn't
// specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return os.ExpandEnv(logFile)
}

// checkLitterfall converts the name of a litterfall mode.
func checkLitterfall(s string) (fieldcarb.LitterMode, error) {
	switch strings.ToLower(os.ExpandEnv(s)) {
	case "dynamic", "":
		return fieldcarb.DynamicLitter, nil
	case "climatology":
		return fieldcarb.ClimatologyLitter, nil
	default:
		return 0, fmt.Errorf("the Litterfall configuration variable needs to be set to either "+
			"'dynamic' or 'climatology', but is currently set to `%s`", s)
	}
}

// SiteConfig holds the site-level inputs of a simulation.
type SiteConfig struct {
	// Drivers are the paths to the daily meteorology CSV file of each site.
	Drivers []string

	// LandCover is the land-cover code of each site.
	LandCover []int

	// InitialSOC is the starting soil organic carbon [g C m⁻²] in each
	// pool, shared by all sites. It is ignored if SOCFile is set
	// and exists.
	InitialSOC []float64

	// SOCFile is where spun-up SOC is saved and loaded from.
	SOCFile string

	// SMRZMin and SMRZMax bound root-zone soil wetness for rescaling.
	// A negative SMRZMin uses the driest day of each site's record.
	SMRZMin, SMRZMax float64
}

// SiteConfigFromViper unmarshals the site inputs from a viper
// configuration.
func SiteConfigFromViper(cfg *viper.Viper) (*SiteConfig, error) {
	landCover, err := toIntSliceE(cfg.Get("LandCover"))
	if err != nil {
		return nil, fmt.Errorf("fieldcarb: reading 'LandCover': %v", err)
	}
	soc, err := toFloat64SliceE(cfg.Get("InitialSOC"))
	if err != nil {
		return nil, fmt.Errorf("fieldcarb: reading 'InitialSOC': %v", err)
	}
	c := &SiteConfig{
		Drivers:    expandStringSlice(cfg.GetStringSlice("Drivers")),
		LandCover:  landCover,
		InitialSOC: soc,
		SOCFile:    os.ExpandEnv(cfg.GetString("SOCFile")),
		SMRZMin:    cfg.GetFloat64("SMRZMin"),
		SMRZMax:    cfg.GetFloat64("SMRZMax"),
	}
	if len(c.Drivers) == 0 {
		return nil, fmt.Errorf("fieldcarb: the 'Drivers' configuration variable is not specified")
	}
	if len(c.LandCover) == 1 && len(c.Drivers) > 1 {
		for len(c.LandCover) < len(c.Drivers) {
			c.LandCover = append(c.LandCover, c.LandCover[0])
		}
	}
	if len(c.LandCover) != len(c.Drivers) {
		return nil, &fieldcarb.ShapeMismatchError{What: "LandCover", Want: len(c.Drivers), Have: len(c.LandCover)}
	}
	if len(c.InitialSOC) != fieldcarb.NumPools {
		return nil, &fieldcarb.ShapeMismatchError{What: "InitialSOC", Want: fieldcarb.NumPools, Have: len(c.InitialSOC)}
	}
	if c.SMRZMin < 0 {
		c.SMRZMin = math.NaN()
	}
	if !(c.SMRZMax > 0) {
		return nil, fmt.Errorf("fieldcarb: SMRZMax=%g but should be >0", c.SMRZMax)
	}
	return c, nil
}

// ModelOptions returns the model options specified in a viper
// configuration.
func ModelOptions(cfg *viper.Viper, log logrus.FieldLogger) ([]fieldcarb.Option, error) {
	mode, err := checkLitterfall(cfg.GetString("Litterfall"))
	if err != nil {
		return nil, err
	}
	opts := []fieldcarb.Option{
		fieldcarb.Threshold(cfg.GetFloat64("Threshold")),
		fieldcarb.MaxCycles(cfg.GetInt("MaxCycles")),
		fieldcarb.Workers(cfg.GetInt("Workers")),
		fieldcarb.Litterfall(mode),
	}
	if log != nil {
		opts = append(opts, fieldcarb.Logger(log))
	}
	return opts, nil
}

func toIntSliceE(s interface{}) ([]int, error) {
	switch v := s.(type) {
	case []int:
		return v, nil
	case []interface{}:
		o := make([]int, len(v))
		for i, val := range v {
			n, err := cast.ToIntE(val)
			if err != nil {
				return nil, err
			}
			o[i] = n
		}
		return o, nil
	case string:
		var o []int
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, fmt.Errorf("invalid type %T", s)
	}
}

func toFloat64SliceE(s interface{}) ([]float64, error) {
	switch v := s.(type) {
	case []float64:
		return v, nil
	case []interface{}:
		o := make([]float64, len(v))
		for i, val := range v {
			f, err := cast.ToFloat64E(val)
			if err != nil {
				return nil, err
			}
			o[i] = f
		}
		return o, nil
	case string:
		var o []float64
		if err := json.Unmarshal([]byte(v), &o); err != nil {
			return nil, err
		}
		return o, nil
	default:
		return nil, fmt.Errorf("invalid type %T", s)
	}
}

// GetStringMapString returns a map[string]string from a viper configuration,
// accounting for the fact that it might be a json object if it was set
// from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) (map[string]string, error) {
	i := cfg.Get(varName)
	switch v := i.(type) {
	case map[string]string:
		return v, nil
	case map[string]interface{}:
		return cast.ToStringMapStringE(v)
	case string:
		o := make(map[string]string)
		if v == "" {
			return o, nil
		}
		d := json.NewDecoder(bytes.NewBufferString(v))
		if err := d.Decode(&o); err != nil {
			return nil, fmt.Errorf("fieldcarb: parsing %s: %v", varName, err)
		}
		return o, nil
	default:
		return nil, fmt.Errorf("invalid type for GetStringMapString variable %s: %#v", varName, i)
	}
}
