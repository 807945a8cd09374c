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
	"fmt"
	"math"
	"regexp"
	"sort"

	"github.com/Knetic/govaluate"
	"gonum.org/v1/gonum/mat"
)

// Outputter calculates user-requested output variables from model fluxes.
//
// outputVariables maps the names of the variables for which data
// should be returned to expressions that define how the
// requested data should be calculated. These expressions can use the
// flux variables (GPP, NPP, RH, NEE, RH0, RH1 and RH2), other output
// variables and functions.
//
// modelVariables holds the flux variables that are required to calculate
// the requested output variables.
type Outputter struct {
	outputVariables map[string]string
	modelVariables  []string
	outputFunctions map[string]govaluate.ExpressionFunction
	expressions     map[string]*govaluate.EvaluableExpression
}

func floatArgs(name string, n int, args []interface{}) ([]float64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("fieldcarb: got %d arguments for function '%s', but needs %d", len(args), name, n)
	}
	o := make([]float64, n)
	for i, a := range args {
		v, ok := a.(float64)
		if !ok {
			return nil, fmt.Errorf("fieldcarb: argument %d of '%s' is %T, not a number", i, name, a)
		}
		o[i] = v
	}
	return o, nil
}

// NewOutputter initializes a new Outputter and adds a set of default
// output functions: 'exp(x)', 'abs(x)', 'max(x, y)' and 'min(x, y)'.
// Functions in outputFunctions replace defaults with the same name.
func NewOutputter(outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp": func(arg ...interface{}) (interface{}, error) {
			v, err := floatArgs("exp", 1, arg)
			if err != nil {
				return nil, err
			}
			return math.Exp(v[0]), nil
		},
		"abs": func(arg ...interface{}) (interface{}, error) {
			v, err := floatArgs("abs", 1, arg)
			if err != nil {
				return nil, err
			}
			return math.Abs(v[0]), nil
		},
		"max": func(arg ...interface{}) (interface{}, error) {
			v, err := floatArgs("max", 2, arg)
			if err != nil {
				return nil, err
			}
			return math.Max(v[0], v[1]), nil
		},
		"min": func(arg ...interface{}) (interface{}, error) {
			v, err := floatArgs("min", 2, arg)
			if err != nil {
				return nil, err
			}
			return math.Min(v[0], v[1]), nil
		},
	}
	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}

	if len(outputVariables) == 0 {
		return nil, fmt.Errorf("fieldcarb: no output variables specified")
	}
	o := &Outputter{
		outputVariables: make(map[string]string, len(outputVariables)),
		outputFunctions: defaultOutputFuncs,
	}
	for k, v := range outputVariables {
		o.outputVariables[k] = v
	}
	if err := checkOutputNames(o.outputVariables); err != nil {
		return nil, err
	}
	if err := o.checkForDerivatives(); err != nil {
		return nil, err
	}
	if err := o.checkModelVars(); err != nil {
		return nil, err
	}
	o.expressions = make(map[string]*govaluate.EvaluableExpression, len(o.outputVariables))
	for k, v := range o.outputVariables {
		expr, err := govaluate.NewEvaluableExpressionWithFunctions(v, o.outputFunctions)
		if err != nil {
			return nil, fmt.Errorf("fieldcarb: output variable %s: %v", k, err)
		}
		o.expressions[k] = expr
	}
	return o, nil
}

// removeDuplicates removes all duplicated strings from a slice, returning a
// slice that contains only unique strings.
func removeDuplicates(s []string) []string {
	result := make([]string, 0, len(s))
	seen := make(map[string]struct{})
	for _, val := range s {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = struct{}{}
		}
	}
	return result
}

// checkForDerivatives replaces any output variable that is used in the
// expression of another output variable with its own expression, and
// identifies the unique model variables required to calculate the
// requested output variables.
func (o *Outputter) checkForDerivatives() error {
	// Each pass substitutes one level of references, so more passes than
	// there are variables means the references are circular.
	for pass := 0; pass <= len(o.outputVariables); pass++ {
		changed := false
		o.modelVariables = o.modelVariables[:0]
		for key, val := range o.outputVariables {
			expression, err := govaluate.NewEvaluableExpressionWithFunctions(val, o.outputFunctions)
			if err != nil {
				return fmt.Errorf("fieldcarb: output variable %s: %v", key, err)
			}
			for _, v := range removeDuplicates(expression.Vars()) {
				// A name used in its own expression, or mapped to
				// itself, refers to the model variable.
				sub, ok := o.outputVariables[v]
				if !ok || v == key || sub == v {
					o.modelVariables = append(o.modelVariables, v)
					continue
				}
				re := regexp.MustCompile(`\b` + regexp.QuoteMeta(v) + `\b`)
				o.outputVariables[key] = re.ReplaceAllLiteralString(o.outputVariables[key], "("+sub+")")
				changed = true
			}
		}
		if !changed {
			o.modelVariables = removeDuplicates(o.modelVariables)
			sort.Strings(o.modelVariables)
			return nil
		}
	}
	return fmt.Errorf("fieldcarb: output variables have circular references")
}

// checkModelVars checks whether the model variables required to calculate
// the output variables are available.
func (o *Outputter) checkModelVars() error {
	available := (&Fluxes{}).Variables()
	for _, v := range o.modelVariables {
		if _, ok := available[v]; !ok {
			return fmt.Errorf("fieldcarb: undefined variable name '%s'", v)
		}
	}
	return nil
}

var outputNameRegexp = regexp.MustCompile(`^[A-Za-z]\w*$`)

// checkOutputNames checks that output variable names can be used as
// column names.
func checkOutputNames(o map[string]string) error {
	for key := range o {
		if !outputNameRegexp.MatchString(key) {
			return fmt.Errorf("fieldcarb: output variable name '%s' includes unsupported characters", key)
		}
	}
	return nil
}

// Names returns the names of the output variables in alphabetical order.
func (o *Outputter) Names() []string {
	names := make([]string, 0, len(o.outputVariables))
	for k := range o.outputVariables {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// ModelVariables returns the flux variables the output depends on.
func (o *Outputter) ModelVariables() []string {
	return append([]string(nil), o.modelVariables...)
}

// Results evaluates the output variables for each site and time step of f.
func (o *Outputter) Results(f *Fluxes) (map[string]*mat.Dense, error) {
	vars := f.Variables()
	sites, steps := f.GPP.Dims()
	out := make(map[string]*mat.Dense, len(o.expressions))
	for name := range o.expressions {
		out[name] = mat.NewDense(sites, steps, nil)
	}
	params := make(map[string]interface{}, len(o.modelVariables))
	for i := 0; i < sites; i++ {
		for t := 0; t < steps; t++ {
			for _, v := range o.modelVariables {
				params[v] = vars[v].At(i, t)
			}
			for name, expr := range o.expressions {
				r, err := expr.Evaluate(params)
				if err != nil {
					return nil, fmt.Errorf("fieldcarb: evaluating output variable %s: %v", name, err)
				}
				v, ok := r.(float64)
				if !ok {
					return nil, fmt.Errorf("fieldcarb: output variable %s evaluates to %T, not a number", name, r)
				}
				out[name].Set(i, t, v)
			}
		}
	}
	return out, nil
}
