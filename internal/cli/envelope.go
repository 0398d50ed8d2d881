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
	"fmt"

	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/amorce/amorce-go/pkg/signer"
	"github.com/amorce/amorce-go/pkg/verifier"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newSignCmd(a *app) *cobra.Command {
	var payload string
	var priority string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print a signed envelope carrying payload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := protocol.ParsePriority(priority)
			if err != nil {
				return err
			}
			body, err := parsePayload(payload)
			if err != nil {
				return err
			}
			id, err := a.identity(cmd.Context())
			if err != nil {
				return err
			}

			b := signer.NewBuilder()
			env, err := b.Build(signer.SenderFor(id), body, p)
			if err != nil {
				return err
			}
			if err := b.SignEnvelope(cmd.Context(), env, id); err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), env)
		},
	}

	cmd.Flags().StringVar(&payload, "payload", "{}", "JSON object payload")
	cmd.Flags().StringVar(&priority, "priority", string(protocol.PriorityNormal), "normal, high or critical")
	return cmd
}

func newVerifyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "verify FILE|-",
		Short: "Verify a signed envelope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}
			env, err := verifier.DecodeEnvelope(data)
			if err != nil {
				return err
			}
			ok, err := signer.VerifyEnvelope(env)
			if err != nil {
				return err
			}
			if !ok {
				return errors.Errorf("envelope %s: signature is invalid", env.ID)
			}
			a.logger.Debug().Str("envelope_id", env.ID).Msg("Envelope verified")
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "valid: envelope %s signed by %s\n", env.ID, env.Sender.AgentID)
			return err
		},
	}
}
