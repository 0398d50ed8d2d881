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

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/amorce/amorce-go/pkg/cache"
	"github.com/amorce/amorce-go/pkg/protocol"
	"github.com/amorce/amorce-go/pkg/transport"
)

// Discover searches the Trust Directory for services of serviceType.
// Any failure is returned as an error; an empty slice means the directory
// found nothing.
func (c *Client) Discover(ctx context.Context, serviceType string) ([]protocol.ServiceContract, error) {
	if serviceType == "" {
		return nil, protocol.NewConfigurationError("discover", "service type is required")
	}

	key := cache.DiscoveryKey(c.cfg.DirectoryURL, serviceType)
	if c.cache != nil {
		if cached, ok, err := c.cache.Get(ctx, key); err != nil {
			c.logger.Warn().Err(err).Str("service_type", serviceType).Msg("Discovery cache read failed")
		} else if ok {
			if contracts, err := decodeContracts(cached); err == nil {
				c.logger.Debug().Str("service_type", serviceType).Int("count", len(contracts)).Msg("Discovery cache hit")
				return contracts, nil
			}
		}
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	c.applyAPIKey(header)

	resp, err := c.transport.Do(ctx, &transport.Request{
		Op:     "discover",
		Method: http.MethodGet,
		URL:    c.cfg.DirectoryURL + protocol.SearchPath + "?service_type=" + url.QueryEscape(serviceType),
		Header: header,
	})
	if err != nil {
		return nil, err
	}

	contracts, err := decodeContracts(resp.Body)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, resp.Body, c.cacheTTL); err != nil {
			c.logger.Warn().Err(err).Str("service_type", serviceType).Msg("Discovery cache write failed")
		}
	}
	return contracts, nil
}

func decodeContracts(data []byte) ([]protocol.ServiceContract, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []protocol.ServiceContract{}, nil
	}
	var contracts []protocol.ServiceContract
	if err := json.Unmarshal(data, &contracts); err != nil {
		return nil, protocol.NewValidationError("discover", "malformed directory response: %v", err)
	}
	if contracts == nil {
		contracts = []protocol.ServiceContract{}
	}
	return contracts, nil
}
