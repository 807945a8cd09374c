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
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/fieldcarb"
	"github.com/spatialmodel/fieldcarb/met"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"
)

// Inputs holds the driver data for a set of sites.
type Inputs struct {
	Sites   []string
	Dates   []time.Time
	Drivers fieldcarb.Drivers
}

// ReadInputs reads and prepares the drivers of each site in c. All sites
// must cover the same dates. Sites are named after their driver files.
func ReadInputs(c *SiteConfig) (*Inputs, error) {
	in := new(Inputs)
	series := make([][fieldcarb.NumVariables][]float64, len(c.Drivers))
	for i, path := range c.Drivers {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("fieldcarbutil: opening drivers: %v", err)
		}
		dates, records, err := ReadDriversCSV(f)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%v (file %s)", err, path)
		}
		if i == 0 {
			in.Dates = dates
		} else if err := sameDates(in.Dates, dates); err != nil {
			return nil, fmt.Errorf("fieldcarbutil: %s: %v", path, err)
		}
		if series[i], err = met.Prepare(records, c.SMRZMin, c.SMRZMax); err != nil {
			return nil, fmt.Errorf("%v (file %s)", err, path)
		}
		in.Sites = append(in.Sites, strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	}
	var err error
	if in.Drivers, err = met.Drivers(series); err != nil {
		return nil, err
	}
	return in, nil
}

func sameDates(a, b []time.Time) error {
	if len(a) != len(b) {
		return &fieldcarb.ShapeMismatchError{What: "dates", Want: len(a), Have: len(b)}
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return fmt.Errorf("date %d is %s but should be %s", i, b[i].Format(dateFormat), a[i].Format(dateFormat))
		}
	}
	return nil
}

// newLogger returns a logger writing to both the command output and
// LogFile. The returned function closes the log file.
func newLogger(cmd *cobra.Command, LogFile string, level logrus.Level) (*logrus.Logger, func() error, error) {
	logfile, err := os.Create(LogFile)
	if err != nil {
		return nil, nil, fmt.Errorf("fieldcarb: problem creating log file: %v", err)
	}
	log := logrus.New()
	log.Out = io.MultiWriter(cmd.OutOrStdout(), logfile)
	log.Formatter = &logrus.TextFormatter{DisableColors: true, FullTimestamp: true}
	log.Level = level
	return log, logfile.Close, nil
}

// newModel creates a model for the sites in c, loading the SOC state
// from c.SOCFile if it exists.
func newModel(log logrus.FieldLogger, BPLUTFile string, c *SiteConfig, opts []fieldcarb.Option) (*fieldcarb.Model, error) {
	table, err := ReadBPLUT(BPLUTFile)
	if err != nil {
		return nil, err
	}
	soc := mat.NewDense(fieldcarb.NumPools, len(c.LandCover), nil)
	for j, v := range c.InitialSOC {
		for i := range c.LandCover {
			soc.Set(j, i, v)
		}
	}
	m, err := fieldcarb.NewModel(table, c.LandCover, soc, append(opts, fieldcarb.Logger(log))...)
	if err != nil {
		return nil, err
	}
	if c.SOCFile == "" {
		return m, nil
	}
	f, err := os.Open(c.SOCFile)
	if os.IsNotExist(err) {
		log.WithField("file", c.SOCFile).Info("SOC file doesn't exist; using InitialSOC")
		return m, nil
	} else if err != nil {
		return nil, fmt.Errorf("fieldcarb: opening SOC file: %v", err)
	}
	defer f.Close()
	if err := Load(f, m); err != nil {
		return nil, err
	}
	log.WithField("file", c.SOCFile).Info("loaded SOC state")
	return m, nil
}

// SpinUp spins up the sites in c and saves the spun-up state to
// c.SOCFile. cmd is the command SpinUp is called from, whose output
// receives the log messages along with LogFile.
//
// If TraceFile is not empty, the tolerance trace is written to it in CSV
// format. CacheDir, if not empty, is a directory where spin-up results
// are stored for reuse by later runs with identical inputs.
//
// Failure to converge is logged as a warning and is not an error.
func SpinUp(cmd *cobra.Command, LogFile, BPLUTFile string, c *SiteConfig, TraceFile, CacheDir string,
	level logrus.Level, opts []fieldcarb.Option) error {
	if c.SOCFile == "" {
		return fmt.Errorf("fieldcarb: the SOCFile configuration variable is needed to save the spun-up state")
	}
	startTime := time.Now()
	log, closeLog, err := newLogger(cmd, LogFile, level)
	if err != nil {
		return err
	}
	defer closeLog()

	in, err := ReadInputs(c)
	if err != nil {
		return err
	}
	log.WithField("sites", len(in.Sites)).WithField("days", len(in.Dates)).Info("read drivers")
	m, err := newModel(log, BPLUTFile, c, opts)
	if err != nil {
		return err
	}

	cache := NewSpinUpCache(1, 1, CacheDir)
	trace, err := cache.SpinUp(context.Background(), m, in.Dates, in.Drivers)
	if err != nil && !fieldcarb.IsWarning(err) {
		return err
	}
	if err != nil {
		log.WithError(err).Warn("using the state at the end of the last cycle")
	}

	for i, s := range m.TotalSOC() {
		log.WithFields(logrus.Fields{"site": in.Sites[i], "soc": s}).Info("total SOC")
	}

	f, err := os.Create(c.SOCFile)
	if err != nil {
		return fmt.Errorf("fieldcarb: creating SOC file: %v", err)
	}
	if err := Save(f, m); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	if TraceFile != "" {
		tf, err := os.Create(TraceFile)
		if err != nil {
			return fmt.Errorf("fieldcarb: creating trace file: %v", err)
		}
		if err := WriteTrace(tf, in.Sites, trace); err != nil {
			tf.Close()
			return err
		}
		if err := tf.Close(); err != nil {
			return err
		}
	}
	log.WithField("duration", time.Since(startTime)).Info("spin-up finished")
	return nil
}

// Run runs the model forward over the drivers of the sites in c,
// starting from the state in c.SOCFile or c.InitialSOC, and writes the
// variables in OutputVariables to OutputFile.
//
// OutputVariables maps output names to expressions of the model flux
// variables (GPP, NPP, RH, NEE, RH0, RH1 and RH2).
func Run(cmd *cobra.Command, LogFile, OutputFile string, OutputVariables map[string]string, BPLUTFile string,
	c *SiteConfig, level logrus.Level, opts []fieldcarb.Option) error {
	startTime := time.Now()
	log, closeLog, err := newLogger(cmd, LogFile, level)
	if err != nil {
		return err
	}
	defer closeLog()

	o, err := fieldcarb.NewOutputter(OutputVariables, nil)
	if err != nil {
		return err
	}
	in, err := ReadInputs(c)
	if err != nil {
		return err
	}
	log.WithField("sites", len(in.Sites)).WithField("days", len(in.Dates)).Info("read drivers")
	m, err := newModel(log, BPLUTFile, c, opts)
	if err != nil {
		return err
	}
	fluxes, err := m.ForwardRunDates(in.Dates, in.Drivers)
	if err != nil {
		return err
	}
	results, err := o.Results(fluxes)
	if err != nil {
		return err
	}
	logSummary(log, results)
	if err := WriteResults(OutputFile, in.Sites, in.Dates, results); err != nil {
		return err
	}
	log.WithField("duration", time.Since(startTime)).Info("run finished")
	return nil
}

// GPP calculates gross primary productivity and the environmental
// scalars for the sites in c and writes them to OutputFile. No SOC state
// is needed.
func GPP(cmd *cobra.Command, LogFile, OutputFile, BPLUTFile string, c *SiteConfig, level logrus.Level) error {
	log, closeLog, err := newLogger(cmd, LogFile, level)
	if err != nil {
		return err
	}
	defer closeLog()

	in, err := ReadInputs(c)
	if err != nil {
		return err
	}
	table, err := ReadBPLUT(BPLUTFile)
	if err != nil {
		return err
	}
	m, err := fieldcarb.NewModel(table, c.LandCover, mat.NewDense(fieldcarb.NumPools, len(c.LandCover), nil),
		fieldcarb.Logger(log))
	if err != nil {
		return err
	}
	results := make(map[string]*mat.Dense)
	if results["GPP"], err = m.GPP(in.Drivers); err != nil {
		return err
	}
	if results["Emult"], err = m.Emult(in.Drivers); err != nil {
		return err
	}
	if results["Kmult"], err = m.Kmult(in.Drivers); err != nil {
		return err
	}
	logSummary(log, results)
	return WriteResults(OutputFile, in.Sites, in.Dates, results)
}

// parseLevel converts a log level name, defaulting to Info.
func parseLevel(s string) (logrus.Level, error) {
	if s == "" {
		return logrus.InfoLevel, nil
	}
	l, err := logrus.ParseLevel(s)
	if err != nil {
		return l, fmt.Errorf("fieldcarb: LogLevel: %v", err)
	}
	return l, nil
}
