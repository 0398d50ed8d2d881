// Copyright (C) 2025 Amorce Project
//
// This file is part of amorce-go.
//
// amorce-go is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// amorce-go is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with amorce-go.  If not, see <https://www.gnu.org/licenses/>.

package main

import (
	"os"

	"github.com/amorce/amorce-go/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
