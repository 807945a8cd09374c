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

// Command fieldcarb is a command-line interface for the FieldCarb
// terrestrial carbon flux model.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spatialmodel/fieldcarb/fieldcarbutil"
)

func main() {
	// Environment variables in .env supplement the configuration;
	// a missing file is not an error.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Println(err)
		os.Exit(-1)
	}

	if err := fieldcarbutil.Root.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(-1)
	}
}
