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
	"github.com/amorce/amorce-go/pkg/client"
	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/spf13/cobra"
)

func newDiscoverCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "discover SERVICE_TYPE",
		Short: "Search the Trust Directory for services",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}
			services, err := c.Discover(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), services)
		},
	}
}

func newTransactCmd(a *app) *cobra.Command {
	var (
		serviceID      string
		payload        string
		priority       string
		idempotencyKey string
	)

	cmd := &cobra.Command{
		Use:   "transact",
		Short: "Submit a signed transaction to the Orchestrator",
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
			c, err := a.client(cmd.Context())
			if err != nil {
				return err
			}

			opts := []client.TransactOption{client.WithPriority(p)}
			if idempotencyKey != "" {
				opts = append(opts, client.WithIdempotencyKey(idempotencyKey))
			}
			resp, err := c.Transact(cmd.Context(), protocol.ServiceContract{ServiceID: serviceID}, body, opts...)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), resp)
		},
	}

	cmd.Flags().StringVar(&serviceID, "service", "", "service id")
	cmd.Flags().StringVar(&payload, "payload", "{}", "JSON object payload")
	cmd.Flags().StringVar(&priority, "priority", string(protocol.PriorityNormal), "normal, high or critical")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "idempotency key (generated when empty)")
	_ = cmd.MarkFlagRequired("service")
	return cmd
}
