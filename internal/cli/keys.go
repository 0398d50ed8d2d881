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

package cli

import (
	"github.com/amorce/amorce-go/pkg/identity"
	"github.com/spf13/cobra"
)

type identityOutput struct {
	AgentID   string `json:"agent_id"`
	PublicKey string `json:"public_key"`
	KeyFile   string `json:"key_file,omitempty"`
}

func newKeygenCmd(a *app) *cobra.Command {
	var out string
	var force bool

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate a new agent key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				out = a.cfg.KeyFile
			}
			id, err := identity.Generate()
			if err != nil {
				return err
			}
			if err := identity.WriteSeedFile(out, id, force); err != nil {
				return err
			}
			a.logger.Info().Str("key_file", out).Str("agent_id", id.AgentID()).Msg("Generated agent key")
			return writeJSON(cmd.OutOrStdout(), identityOutput{
				AgentID:   id.AgentID(),
				PublicKey: id.PublicKeyPEM(),
				KeyFile:   out,
			})
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (defaults to --key-file)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key file")
	return cmd
}

func newIDCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "id",
		Short: "Print the agent id and public key",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.identity(cmd.Context())
			if err != nil {
				return err
			}
			agentID := id.AgentID()
			if a.cfg.AgentID != "" {
				agentID = a.cfg.AgentID
			}
			return writeJSON(cmd.OutOrStdout(), identityOutput{
				AgentID:   agentID,
				PublicKey: id.PublicKeyPEM(),
			})
		},
	}
}
