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

// Package cache stores short-lived discovery results.
//
// Two implementations share the Cache interface: MemoryCache keeps entries
// in process, RedisCache shares them between processes through Redis.
// Both are last-write-wins and expire entries after their TTL.
package cache

import (
	"context"
	"net/url"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry expiry.
type Cache interface {
	// Get returns the stored value and true, or false on a miss or expiry.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value under key. A ttl <= 0 keeps the entry until overwritten.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// DiscoveryKey is the cache key for a service type search against the
// directory at directoryURL. Clients pointed at different directories never
// share an entry.
func DiscoveryKey(directoryURL, serviceType string) string {
	return "amorce:discover:" + directoryURL + "|" + url.QueryEscape(serviceType)
}
