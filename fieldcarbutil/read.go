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
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spatialmodel/fieldcarb"
	"github.com/spatialmodel/fieldcarb/met"
	"github.com/spf13/cast"
)

var dateFormats = []string{"2006-01-02T15:04:05", "2006-01-02", "2006-01-02 15:04:05"}

func parseDate(s string) (time.Time, error) {
	for _, f := range dateFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("fieldcarbutil: unrecognized date format '%s'", s)
}

// ReadDriversCSV reads the daily meteorology of a single site from a CSV
// file. The file must have a 'date' column and may have any of the
// columns fpar, swrad, tmean, qv2m, ps, tmin, smrz, tsoil, smsf, par,
// vpd and ft; missing columns and empty cells are treated as missing
// values. Other columns, including an unnamed index column, are ignored.
func ReadDriversCSV(r io.Reader) ([]time.Time, []met.Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("fieldcarbutil: reading driver header: %v", err)
	}
	cols := make(map[string]int)
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	dateCol, ok := cols["date"]
	if !ok {
		return nil, nil, fmt.Errorf("fieldcarbutil: driver file has no 'date' column")
	}

	var dates []time.Time
	var records []met.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		} else if err != nil {
			return nil, nil, fmt.Errorf("fieldcarbutil: reading drivers: %v", err)
		}
		d, err := parseDate(strings.TrimSpace(row[dateCol]))
		if err != nil {
			return nil, nil, fmt.Errorf("%v (line %d)", err, line)
		}
		rec := met.NewRecord()
		for name, dst := range map[string]*float64{
			"fpar": &rec.FPAR, "swrad": &rec.SWRad, "tmean": &rec.TMean,
			"qv2m": &rec.QV2M, "ps": &rec.PS, "tmin": &rec.TMin,
			"smrz": &rec.SMRZ, "tsoil": &rec.TSoil, "smsf": &rec.SMSF,
			"par": &rec.PAR, "vpd": &rec.VPD, "ft": &rec.FT,
		} {
			i, ok := cols[name]
			if !ok {
				continue
			}
			s := strings.TrimSpace(row[i])
			if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "na") {
				continue
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, nil, fmt.Errorf("fieldcarbutil: parsing %s on line %d: %v", name, line, err)
			}
			*dst = v
		}
		dates = append(dates, d)
		records = append(records, rec)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("fieldcarbutil: driver file has no data")
	}
	return dates, records, nil
}

// tcfParameters holds the parameters of one land-cover class in the flat
// form used by the TCF model.
type tcfParameters struct {
	LUE         float64   `toml:"LUE"`
	TMin0       float64   `toml:"tmin0"`
	TMin1       float64   `toml:"tmin1"`
	VPD0        float64   `toml:"vpd0"`
	VPD1        float64   `toml:"vpd1"`
	SMRZ0       float64   `toml:"smrz0"`
	SMRZ1       float64   `toml:"smrz1"`
	FT0         float64   `toml:"ft0"`
	CUE         float64   `toml:"CUE"`
	TSoil       float64   `toml:"tsoil"`
	SMSF0       float64   `toml:"smsf0"`
	SMSF1       float64   `toml:"smsf1"`
	DecayRates  []float64 `toml:"decay_rates"`
	FMetabolic  float64   `toml:"f_metabolic"`
	FStructural float64   `toml:"f_structural"`
	Allocation  []float64 `toml:"allocation"`
	Transfer    []float64 `toml:"transfer"`
}

func (p tcfParameters) siteParameters() (fieldcarb.SiteParameters, error) {
	s := fieldcarb.SiteParameters{
		LUE:   p.LUE,
		TMin0: p.TMin0, TMin1: p.TMin1,
		VPD0: p.VPD0, VPD1: p.VPD1,
		SMRZ0: p.SMRZ0, SMRZ1: p.SMRZ1,
		FT0:   p.FT0,
		CUE:   p.CUE,
		TSoil: p.TSoil,
		SMSF0: p.SMSF0, SMSF1: p.SMSF1,
	}
	if len(p.DecayRates) != fieldcarb.NumPools {
		return s, fmt.Errorf("fieldcarbutil: decay_rates needs %d values but has %d", fieldcarb.NumPools, len(p.DecayRates))
	}
	copy(s.DecayRates[:], p.DecayRates)
	s.Allocation, s.Transfer = fieldcarb.Partitioning(p.FMetabolic, p.FStructural)
	if p.Allocation != nil {
		if len(p.Allocation) != fieldcarb.NumPools {
			return s, fmt.Errorf("fieldcarbutil: allocation needs %d values but has %d", fieldcarb.NumPools, len(p.Allocation))
		}
		copy(s.Allocation[:], p.Allocation)
	}
	if p.Transfer != nil {
		if len(p.Transfer) != fieldcarb.NumPools-1 {
			return s, fmt.Errorf("fieldcarbutil: transfer needs %d values but has %d", fieldcarb.NumPools-1, len(p.Transfer))
		}
		copy(s.Transfer[:], p.Transfer)
	}
	return s, nil
}

// ReadBPLUTTOML reads a BPLUT from TOML, where each land-cover class is a
// table named by its code, for example:
//
//	[7]
//	LUE = 1.61
//	tmin0 = 257.3
//	...
//	decay_rates = [0.018, 0.0072, 0.000167]
//	f_metabolic = 0.78
//	f_structural = 0.5
//
// Instead of f_metabolic and f_structural, the litterfall fraction for
// each pool and the transfer fraction between pools can be given
// directly as 'allocation' and 'transfer' arrays.
func ReadBPLUTTOML(r io.Reader) (*fieldcarb.BPLUT, error) {
	var raw map[string]tcfParameters
	if _, err := toml.DecodeReader(r, &raw); err != nil {
		return nil, fmt.Errorf("fieldcarbutil: decoding BPLUT: %v", err)
	}
	params := make(map[int]fieldcarb.SiteParameters, len(raw))
	for key, p := range raw {
		code, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("fieldcarbutil: BPLUT table name '%s' is not a land-cover code", key)
		}
		if params[code], err = p.siteParameters(); err != nil {
			return nil, fmt.Errorf("%v (land-cover code %d)", err, code)
		}
	}
	return fieldcarb.NewBPLUT(params)
}

// ReadBPLUTJSON reads a BPLUT from the flat JSON format, where each
// parameter is an array indexed by land-cover code and null marks
// classes that are not defined. decay_rates is an array with one such
// array per pool.
func ReadBPLUTJSON(r io.Reader) (*fieldcarb.BPLUT, error) {
	var raw map[string]interface{}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("fieldcarbutil: decoding BPLUT: %v", err)
	}
	scalar := func(name string) ([]float64, error) {
		v, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("fieldcarbutil: BPLUT is missing '%s'", name)
		}
		return toFloatSlice(v)
	}
	var (
		fields = []string{"LUE", "tmin0", "tmin1", "vpd0", "vpd1", "smrz0", "smrz1",
			"ft0", "CUE", "tsoil", "smsf0", "smsf1", "f_metabolic", "f_structural"}
		values = make(map[string][]float64, len(fields))
		n      int
	)
	for _, f := range fields {
		v, err := scalar(f)
		if err != nil {
			return nil, err
		}
		values[f] = v
		if len(v) > n {
			n = len(v)
		}
	}
	decayRaw, ok := raw["decay_rates"].([]interface{})
	if !ok || len(decayRaw) != fieldcarb.NumPools {
		return nil, fmt.Errorf("fieldcarbutil: BPLUT 'decay_rates' must have one array per pool")
	}
	var decay [fieldcarb.NumPools][]float64
	for i, d := range decayRaw {
		v, err := toFloatSlice(d)
		if err != nil {
			return nil, fmt.Errorf("fieldcarbutil: BPLUT 'decay_rates': %v", err)
		}
		decay[i] = v
	}

	at := func(s []float64, i int) float64 {
		if i < len(s) {
			return s[i]
		}
		return math.NaN()
	}
	params := make(map[int]fieldcarb.SiteParameters)
	for code := 0; code < n; code++ {
		if math.IsNaN(at(values["LUE"], code)) {
			continue
		}
		p := tcfParameters{
			LUE:   at(values["LUE"], code),
			TMin0: at(values["tmin0"], code), TMin1: at(values["tmin1"], code),
			VPD0: at(values["vpd0"], code), VPD1: at(values["vpd1"], code),
			SMRZ0: at(values["smrz0"], code), SMRZ1: at(values["smrz1"], code),
			FT0:   at(values["ft0"], code),
			CUE:   at(values["CUE"], code),
			TSoil: at(values["tsoil"], code),
			SMSF0: at(values["smsf0"], code), SMSF1: at(values["smsf1"], code),
			FMetabolic:  at(values["f_metabolic"], code),
			FStructural: at(values["f_structural"], code),
		}
		for i := range decay {
			p.DecayRates = append(p.DecayRates, at(decay[i], code))
		}
		sp, err := p.siteParameters()
		if err != nil {
			return nil, fmt.Errorf("%v (land-cover code %d)", err, code)
		}
		params[code] = sp
	}
	return fieldcarb.NewBPLUT(params)
}

// toFloatSlice converts a decoded JSON array to floats, with nulls
// becoming NaN.
func toFloatSlice(v interface{}) ([]float64, error) {
	s, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("expected an array but got %T", v)
	}
	o := make([]float64, len(s))
	for i, x := range s {
		if x == nil {
			o[i] = math.NaN()
			continue
		}
		f, err := cast.ToFloat64E(x)
		if err != nil {
			return nil, err
		}
		o[i] = f
	}
	return o, nil
}

// ReadBPLUT reads a BPLUT from a TOML or JSON file, depending on the
// file extension.
func ReadBPLUT(path string) (*fieldcarb.BPLUT, error) {
	f, err := os.Open(os.ExpandEnv(path))
	if err != nil {
		return nil, fmt.Errorf("fieldcarbutil: opening BPLUT: %v", err)
	}
	defer f.Close()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return ReadBPLUTJSON(f)
	case ".toml":
		return ReadBPLUTTOML(f)
	default:
		return nil, fmt.Errorf("fieldcarbutil: BPLUT file '%s' must have a .json or .toml extension", path)
	}
}
