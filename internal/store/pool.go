// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 RentNest Contributors

// Package store provides database plumbing: pool construction and schema
// migrations.
package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Connection bounds. The pool must be reachable within ConnectTimeout or
// startup fails; it never hangs.
const (
	ConnectTimeout  = 30 * time.Second
	pingRetryBase   = 250 * time.Millisecond
	pingRetryMaxDur = ConnectTimeout
)

// Connect creates a pgx pool and verifies connectivity with bounded
// fibonacci backoff. The returned pool is ready for use.
func Connect(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, oops.Code("DB_CONFIG_INVALID").Errorf("database URL is required")
	}

	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "create pool").
			Wrap(err)
	}

	backoff := retry.WithMaxDuration(pingRetryMaxDur, retry.NewFibonacci(pingRetryBase))
	if err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if pingErr := pool.Ping(ctx); pingErr != nil {
			return retry.RetryableError(pingErr)
		}
		return nil
	}); err != nil {
		pool.Close()
		return nil, oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			Wrap(err)
	}

	return pool, nil
}
