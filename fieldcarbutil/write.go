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
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/GaryBoone/GoStats/stats"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/fieldcarb"
	"github.com/tealeg/xlsx"
	"gonum.org/v1/gonum/mat"
)

const dateFormat = "2006-01-02"

// table arranges model results with one row per site and time step.
type table struct {
	sites   []string
	dates   []time.Time
	names   []string
	results map[string]*mat.Dense
}

func newTable(sites []string, dates []time.Time, results map[string]*mat.Dense) (*table, error) {
	t := &table{sites: sites, dates: dates, results: results}
	for name, r := range results {
		rows, cols := r.Dims()
		if rows != len(sites) {
			return nil, &fieldcarb.ShapeMismatchError{What: name + " sites", Want: len(sites), Have: rows}
		}
		if cols != len(dates) {
			return nil, &fieldcarb.ShapeMismatchError{What: name + " dates", Want: len(dates), Have: cols}
		}
		t.names = append(t.names, name)
	}
	sort.Strings(t.names)
	return t, nil
}

func (t *table) header() []string {
	return append([]string{"site", "date"}, t.names...)
}

// each calls f for each site and date.
func (t *table) each(f func(site, date string, values []float64) error) error {
	values := make([]float64, len(t.names))
	for i, site := range t.sites {
		for j, d := range t.dates {
			for k, n := range t.names {
				values[k] = t.results[n].At(i, j)
			}
			if err := f(site, d.Format(dateFormat), values); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// WriteCSV writes model results to w in CSV format, with one row for
// each site and date and one column for each variable. Missing values
// are left empty.
func WriteCSV(w io.Writer, sites []string, dates []time.Time, results map[string]*mat.Dense) error {
	t, err := newTable(sites, dates, results)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.header()); err != nil {
		return err
	}
	err = t.each(func(site, date string, values []float64) error {
		row := make([]string, 0, len(values)+2)
		row = append(row, site, date)
		for _, v := range values {
			row = append(row, formatFloat(v))
		}
		return cw.Write(row)
	})
	if err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes model results to an Excel file, in the same layout
// as WriteCSV.
func WriteXLSX(path string, sites []string, dates []time.Time, results map[string]*mat.Dense) error {
	t, err := newTable(sites, dates, results)
	if err != nil {
		return err
	}
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("fluxes")
	if err != nil {
		return fmt.Errorf("fieldcarbutil: creating xlsx sheet: %v", err)
	}
	row := sheet.AddRow()
	for _, h := range t.header() {
		row.AddCell().SetString(h)
	}
	err = t.each(func(site, date string, values []float64) error {
		row := sheet.AddRow()
		row.AddCell().SetString(site)
		row.AddCell().SetString(date)
		for _, v := range values {
			cell := row.AddCell()
			if !math.IsNaN(v) {
				cell.SetFloat(v)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	if err := f.Save(path); err != nil {
		return fmt.Errorf("fieldcarbutil: saving xlsx file: %v", err)
	}
	return nil
}

// WriteResults writes model results to path, as an Excel file if it
// ends in .xlsx and as a CSV file otherwise.
func WriteResults(path string, sites []string, dates []time.Time, results map[string]*mat.Dense) error {
	if strings.ToLower(filepath.Ext(path)) == ".xlsx" {
		return WriteXLSX(path, sites, dates, results)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("fieldcarbutil: creating output file: %v", err)
	}
	if err := WriteCSV(f, sites, dates, results); err != nil {
		f.Close()
		return fmt.Errorf("fieldcarbutil: writing output file: %v", err)
	}
	return f.Close()
}

// WriteTrace writes a spin-up tolerance trace in CSV format, with one row
// per cycle and one column per site.
func WriteTrace(w io.Writer, sites []string, trace fieldcarb.ToleranceTrace) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"cycle"}, sites...)); err != nil {
		return err
	}
	for i, r := range trace {
		if len(r) != len(sites) {
			return &fieldcarb.ShapeMismatchError{What: "trace sites", Want: len(sites), Have: len(r)}
		}
		row := []string{strconv.Itoa(i + 2)}
		for _, v := range r {
			row = append(row, formatFloat(v))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Summary holds summary statistics for one result variable, ignoring
// missing values.
type Summary struct {
	Min, Max, Mean, Sum float64

	// Missing is the number of missing values.
	Missing int
}

// Summarize calculates summary statistics for each result variable.
func Summarize(results map[string]*mat.Dense) map[string]Summary {
	o := make(map[string]Summary, len(results))
	for name, r := range results {
		rows, cols := r.Dims()
		valid := make([]float64, 0, rows*cols)
		var s Summary
		for i := 0; i < rows; i++ {
			for j := 0; j < cols; j++ {
				if v := r.At(i, j); math.IsNaN(v) {
					s.Missing++
				} else {
					valid = append(valid, v)
				}
			}
		}
		if len(valid) == 0 {
			s.Min, s.Max, s.Mean = math.NaN(), math.NaN(), math.NaN()
		} else {
			s.Min = stats.StatsMin(valid)
			s.Max = stats.StatsMax(valid)
			s.Mean = stats.StatsMean(valid)
			s.Sum = stats.StatsSum(valid)
		}
		o[name] = s
	}
	return o
}

// logSummary logs summary statistics for each result variable.
func logSummary(log logrus.FieldLogger, results map[string]*mat.Dense) {
	s := Summarize(results)
	names := make([]string, 0, len(s))
	for n := range s {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		log.WithFields(logrus.Fields{
			"min":     s[n].Min,
			"max":     s[n].Max,
			"mean":    s[n].Mean,
			"sum":     s[n].Sum,
			"missing": s[n].Missing,
		}).Info(n)
	}
}
