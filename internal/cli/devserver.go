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
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/amorce/amorce-go/internal/devserver"
	"github.com/amorce/amorce-go/pkg/cache"
	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func newDevserverCmd(a *app) *cobra.Command {
	var (
		addr        string
		failFirst   int
		failStatus  int
		services    []string
		registerOwn bool
	)

	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local Trust Directory and Orchestrator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []devserver.Option{
				devserver.WithLogger(a.logger),
				devserver.WithGeneration(a.cfg.Generation),
			}
			if failFirst > 0 {
				opts = append(opts, devserver.WithFailFirst(failFirst, failStatus))
			}
			if a.cfg.RedisAddr != "" {
				store, err := cache.DialRedis(cmd.Context(), a.cfg.RedisAddr)
				if err != nil {
					return err
				}
				defer store.Close()
				opts = append(opts, devserver.WithIdempotencyStore(store))
			}
			srv := devserver.New(opts...)

			for _, entry := range services {
				id, serviceType, _ := strings.Cut(entry, ":")
				if err := srv.PublishService(protocol.ServiceContract{ServiceID: id, ServiceType: serviceType}); err != nil {
					return errors.Wrapf(err, "invalid --service %q", entry)
				}
			}
			if registerOwn {
				id, err := a.identity(cmd.Context())
				if err != nil {
					return err
				}
				agentID, err := srv.RegisterAgent(id.PublicKeyPEM())
				if err != nil {
					return err
				}
				a.logger.Info().Str("agent_id", agentID).Msg("Registered local agent")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(addr)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			a.logger.Info().Msg("Shutting down devserver")
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().IntVar(&failFirst, "fail-first", 0, "fail the first N transact requests")
	cmd.Flags().IntVar(&failStatus, "fail-status", 503, "status used by --fail-first")
	cmd.Flags().StringArrayVar(&services, "service", nil, "publish a service as ID:TYPE (repeatable)")
	cmd.Flags().BoolVar(&registerOwn, "register-self", false, "register the local agent key")
	return cmd
}
