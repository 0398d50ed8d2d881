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

// Package canonical produces the byte sequence that is signed and hashed
// throughout the SDK.
//
// Two independent implementations (the sending agent and the orchestrator)
// must derive identical bytes from the same logical record, otherwise every
// signature fails silently. The rules are:
//
//   - object keys sorted ascending by Unicode code point, at every level
//   - array order preserved verbatim
//   - no whitespace between tokens
//   - strings escaped as encoding/json does, without HTML escaping
//   - numbers written in the form the producer serialized them
//
// # Example
//
//	b, err := canonical.Marshal(map[string]any{"b": 1, "a": []int{2, 1}})
//	// b == []byte(`{"a":[2,1],"b":1}`)
package canonical
