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

// Package version provides version information for amorce-go and the
// protocols it speaks.
package version

const (
	// Version is the current version of amorce-go
	Version = "0.3.0"

	// EnvelopeProtocolVersion is the protocol_version written into signed envelopes
	EnvelopeProtocolVersion = "0.1.0"

	// A2AProtocolVersion is the A2A Protocol version of the agent cards and
	// messages accepted by the client
	A2AProtocolVersion = "0.4.0"

	// SAGEVersion is the SAGE core version whose key pair interface is implemented
	SAGEVersion = "1.3.1"
)

// Info contains detailed version information
type Info struct {
	Version                 string
	EnvelopeProtocolVersion string
	A2AProtocolVersion      string
	SAGEVersion             string
}

// Get returns detailed version information
func Get() Info {
	return Info{
		Version:                 Version,
		EnvelopeProtocolVersion: EnvelopeProtocolVersion,
		A2AProtocolVersion:      A2AProtocolVersion,
		SAGEVersion:             SAGEVersion,
	}
}

// UserAgent is the User-Agent sent by the client
func UserAgent() string {
	return "amorce-go/" + Version
}
