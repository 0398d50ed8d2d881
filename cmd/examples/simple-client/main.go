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
	"context"
	"fmt"
	"log"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/amorce/amorce-go/internal/devserver"
	"github.com/amorce/amorce-go/pkg/client"
	"github.com/amorce/amorce-go/pkg/identity"
	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/amorce/amorce-go/pkg/transport"
	"github.com/rs/zerolog"
)

func main() {
	fmt.Println("Amorce Go - Simple Client Example")
	fmt.Println("=================================")

	ctx := context.Background()
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	// Generate the agent identity
	fmt.Println("\n1. Generating agent identity...")
	id, err := identity.Generate()
	if err != nil {
		log.Fatalf("Failed to generate identity: %v", err)
	}
	fmt.Printf("   Agent ID: %s\n", id.AgentID())

	// Use a local devserver unless an orchestrator is configured
	baseURL := os.Getenv("AMORCE_ORCHESTRATOR_URL")
	if baseURL == "" {
		fmt.Println("\n2. Starting in-process devserver (first two transactions fail with 503)...")
		srv := devserver.New(
			devserver.WithLogger(logger),
			devserver.WithFailFirst(2, http.StatusServiceUnavailable),
		)
		if _, err := srv.RegisterAgent(id.PublicKeyPEM()); err != nil {
			log.Fatalf("Failed to register agent: %v", err)
		}
		if err := srv.PublishService(protocol.ServiceContract{
			ServiceID:   "restaurant-booker",
			ServiceType: "booking",
		}); err != nil {
			log.Fatalf("Failed to publish service: %v", err)
		}
		ts := httptest.NewServer(srv.Handler())
		defer ts.Close()
		baseURL = ts.URL
	}
	fmt.Printf("   Orchestrator: %s\n", baseURL)

	// Create the client
	fmt.Println("\n3. Creating client...")
	policy := transport.DefaultPolicy()
	policy.BaseDelay /= 10
	c, err := client.NewClient(id, client.Config{
		DirectoryURL:    baseURL,
		OrchestratorURL: baseURL,
		APIKey:          os.Getenv("AMORCE_API_KEY"),
	}, client.WithLogger(logger), client.WithPolicy(policy))
	if err != nil {
		log.Fatalf("Failed to create client: %v", err)
	}

	// Discover a booking service
	fmt.Println("\n4. Discovering booking services...")
	services, err := c.Discover(ctx, "booking")
	if err != nil {
		log.Fatalf("Discovery failed: %v", err)
	}
	if len(services) == 0 {
		log.Fatal("No booking service found")
	}
	fmt.Printf("   Found %d service(s), using %s\n", len(services), services[0].ServiceID)

	// Submit an A2A message as a transaction
	fmt.Println("\n5. Submitting transaction...")
	message := a2a.NewMessage(
		a2a.MessageRoleUser,
		&a2a.TextPart{Text: "Table for two at 8pm"},
	)
	resp, err := c.TransactMessage(ctx, services[0], message, client.WithPriority(protocol.PriorityHigh))
	if err != nil {
		log.Fatalf("Transaction failed: %v", err)
	}

	fmt.Printf("   Transaction ID: %s\n", resp.TransactionID)
	if resp.Result != nil {
		fmt.Printf("   Status: %d %s\n", resp.StatusCode, resp.Result.Status)
	}
	fmt.Println("\nExample completed!")
}
