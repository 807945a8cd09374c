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
	"encoding/gob"
	"fmt"
	"io"
	"reflect"

	"github.com/spatialmodel/fieldcarb"
	"gonum.org/v1/gonum/mat"
)

// State is the saved state of a model after spin-up.
type State struct {
	LandCover  []int
	SOC        *mat.Dense
	Litterfall []float64
}

// Save saves the SOC state of m to a gob file
// (format description at https://golang.org/pkg/encoding/gob/).
func Save(w io.Writer, m *fieldcarb.Model) error {
	s := State{
		LandCover:  m.LandCover(),
		SOC:        m.SOC(),
		Litterfall: m.Litterfall(),
	}
	if err := gob.NewEncoder(w).Encode(s); err != nil {
		return fmt.Errorf("fieldcarbutil.Save: %v", err)
	}
	return nil
}

// Load loads a previously Saved state into m. The land cover of the
// saved sites must match the land cover of m.
func Load(r io.Reader, m *fieldcarb.Model) error {
	var s State
	if err := gob.NewDecoder(r).Decode(&s); err != nil {
		return fmt.Errorf("fieldcarbutil.Load: %v", err)
	}
	if !reflect.DeepEqual(s.LandCover, m.LandCover()) {
		return fmt.Errorf("fieldcarbutil.Load: saved land cover %v doesn't match model land cover %v",
			s.LandCover, m.LandCover())
	}
	if s.SOC == nil {
		return fmt.Errorf("fieldcarbutil.Load: saved state has no SOC")
	}
	return m.SetState(s.SOC, s.Litterfall)
}
