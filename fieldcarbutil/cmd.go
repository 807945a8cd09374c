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

// Package fieldcarbutil contains the command-line interface and file
// handling for the FieldCarb model.
package fieldcarbutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/lnashier/viper"
	"github.com/spatialmodel/fieldcarb"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to FieldCarb.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "BPLUT",
			usage: `
              BPLUT is the path to the table of model parameters for each
              land-cover class, in TOML or JSON format.`,
			shorthand:  "b",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{spinupCmd.Flags(), runCmd.Flags(), gppCmd.Flags()},
		},
		{
			name: "Drivers",
			usage: `
              Drivers are the paths to the CSV files holding the daily
              meteorology of each site. The files need a 'date' column and
              columns fpar, swrad, tmean, qv2m, ps, tmin, smrz, tsoil and smsf.
              All files must cover the same dates.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{spinupCmd.Flags(), runCmd.Flags(), gppCmd.Flags()},
		},
		{
			name: "LandCover",
			usage: `
              LandCover is the land-cover code of each site, in the same
              order as Drivers. A single code applies to all sites.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{spinupCmd.Flags(), runCmd.Flags(), gppCmd.Flags()},
		},
		{
			name: "InitialSOC",
			usage: `
              InitialSOC is the starting soil organic carbon in the
              metabolic, structural and recalcitrant pools [g C m⁻²],
              used at all sites when SOCFile doesn't exist yet.`,
			defaultVal: "[0, 0, 0]",
			flagsets:   []*pflag.FlagSet{spinupCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "SOCFile",
			usage: `
              SOCFile is the path where spinup saves the spun-up SOC state
              and where run loads it from.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{spinupCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "SMRZMin",
			usage: `
              SMRZMin is the root-zone soil wetness that is rescaled to the
              lower bound of the soil moisture response. A negative value
              uses the driest day of each site's record.`,
			defaultVal: -1.0,
			flagsets:   []*pflag.FlagSet{spinupCmd.Flags(), runCmd.Flags(), gppCmd.Flags()},
		},
		{
			name: "SMRZMax",
			usage: `
              SMRZMax is the root-zone soil wetness that is rescaled to the
              upper bound of the soil moisture response.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{spinupCmd.Flags(), runCmd.Flags(), gppCmd.Flags()},
		},
		{
			name: "Threshold",
			usage: `
              Threshold is the change in the annual NEE sum
              [g C m⁻² yr⁻¹] between spin-up cycles below which a site is
              considered to be at equilibrium.`,
			defaultVal: fieldcarb.DefaultThreshold,
			flagsets:   []*pflag.FlagSet{spinupCmd.Flags()},
		},
		{
			name: "MaxCycles",
			usage: `
              MaxCycles is the maximum number of times the driver record is
              replayed during spin-up.`,
			defaultVal: fieldcarb.DefaultMaxCycles,
			flagsets:   []*pflag.FlagSet{spinupCmd.Flags()},
		},
		{
			name: "Workers",
			usage: `
              Workers is the number of processors that sites are divided among.`,
			shorthand:  "w",
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{spinupCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "Litterfall",
			usage: `
              Litterfall is either 'dynamic', where each day's net primary
              productivity enters the soil the same day, or 'climatology',
              where a constant daily litterfall is calculated from the
              mean annual productivity.`,
			defaultVal: "dynamic",
			flagsets:   []*pflag.FlagSet{spinupCmd.Flags(), runCmd.Flags()},
		},
		{
			name: "TraceFile",
			usage: `
              TraceFile is the path where the spin-up tolerance trace
              is written in CSV format. It is not written if empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{spinupCmd.Flags()},
		},
		{
			name: "CacheDir",
			usage: `
              CacheDir is a directory where spin-up results are stored and
              reused by later spin-ups with identical inputs. Results are
              not stored if it is empty.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{spinupCmd.Flags()},
		},
		{
			name: "OutputFile",
			usage: `
              OutputFile is the path to the desired output file location,
              in CSV or XLSX format. It can include environment variables.`,
			shorthand:  "o",
			defaultVal: "fluxes.csv",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), gppCmd.Flags()},
		},
		{
			name: "OutputVariables",
			usage: `
              OutputVariables specifies which model variables should be
              included in the output file. It can include environment
              variables. Variables are expressions of the model fluxes GPP,
              NPP, RH, NEE and the heterotrophic respiration from each SOC
              pool RH0, RH1 and RH2 [g C m⁻² day⁻¹].`,
			defaultVal: map[string]string{
				"GPP": "GPP",
				"NPP": "NPP",
				"RH":  "RH",
				"NEE": "NEE",
			},
			flagsets: []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "LogFile",
			usage: `
              LogFile is the path to the desired logfile location. It can
              include environment variables. If LogFile is left blank, the
              logfile will be saved next to the output file.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{spinupCmd.Flags(), runCmd.Flags(), gppCmd.Flags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum level of log messages to record: one
              of debug, info, warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{spinupCmd.Flags(), runCmd.Flags(), gppCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("FIELDCARB")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				if option.shorthand == "" {
					set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
				} else {
					set.StringSliceP(option.name, option.shorthand, option.defaultVal.([]string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case []int:
				if option.shorthand == "" {
					set.IntSlice(option.name, option.defaultVal.([]int), option.usage)
				} else {
					set.IntSliceP(option.name, option.shorthand, option.defaultVal.([]int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(spinupCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(gppCmd)
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(os.ExpandEnv(cfgpath))
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("fieldcarb: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "fieldcarb",
	Short: "A field-scale terrestrial carbon flux model.",
	Long: `FieldCarb calculates daily gross primary productivity, ecosystem
respiration and net ecosystem exchange of CO₂ at individual sites from
daily surface meteorology and land-cover-specific parameters.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'FIELDCARB_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of FieldCarb.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("FieldCarb v%s\n", fieldcarb.Version)
	},
	DisableAutoGenTag: true,
}

// spinupCmd brings the soil carbon pools to equilibrium.
var spinupCmd = &cobra.Command{
	Use:   "spinup",
	Short: "Spin up the soil carbon pools.",
	Long: `spinup replays the driver record until the soil organic carbon
pools at each site are in equilibrium with it, and saves the resulting
state to SOCFile for use by 'run'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := SiteConfigFromViper(Cfg)
		if err != nil {
			return err
		}
		opts, err := ModelOptions(Cfg, nil)
		if err != nil {
			return err
		}
		level, err := parseLevel(Cfg.GetString("LogLevel"))
		if err != nil {
			return err
		}
		return SpinUp(
			cmd,
			checkLogFile(Cfg.GetString("LogFile"), c.SOCFile),
			os.ExpandEnv(Cfg.GetString("BPLUT")),
			c,
			os.ExpandEnv(Cfg.GetString("TraceFile")),
			os.ExpandEnv(Cfg.GetString("CacheDir")),
			level,
			opts,
		)
	},
	DisableAutoGenTag: true,
}

// runCmd runs the model forward from a spun-up state.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the model.",
	Long: `run runs the model forward over the driver record, starting from the
SOC state in SOCFile (or InitialSOC if SOCFile doesn't exist), and
writes daily fluxes for each site to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := SiteConfigFromViper(Cfg)
		if err != nil {
			return err
		}
		opts, err := ModelOptions(Cfg, nil)
		if err != nil {
			return err
		}
		level, err := parseLevel(Cfg.GetString("LogLevel"))
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		vars, err := GetStringMapString("OutputVariables", Cfg)
		if err != nil {
			return err
		}
		outputVars, err := checkOutputVars(vars)
		if err != nil {
			return err
		}
		return Run(
			cmd,
			checkLogFile(Cfg.GetString("LogFile"), outputFile),
			outputFile,
			outputVars,
			os.ExpandEnv(Cfg.GetString("BPLUT")),
			c,
			level,
			opts,
		)
	},
	DisableAutoGenTag: true,
}

// gppCmd calculates productivity only.
var gppCmd = &cobra.Command{
	Use:   "gpp",
	Short: "Calculate gross primary productivity.",
	Long: `gpp calculates daily gross primary productivity [g C m⁻² day⁻¹] and
the environmental scalars for productivity (Emult) and decomposition
(Kmult) at each site and writes them to OutputFile.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := SiteConfigFromViper(Cfg)
		if err != nil {
			return err
		}
		level, err := parseLevel(Cfg.GetString("LogLevel"))
		if err != nil {
			return err
		}
		outputFile, err := checkOutputFile(Cfg.GetString("OutputFile"))
		if err != nil {
			return err
		}
		return GPP(
			cmd,
			checkLogFile(Cfg.GetString("LogFile"), outputFile),
			outputFile,
			os.ExpandEnv(Cfg.GetString("BPLUT")),
			c,
			level,
		)
	},
	DisableAutoGenTag: true,
}
