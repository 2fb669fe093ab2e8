// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

// Package redis provides a Redis-backed token denylist shared between
// server instances.
package redis

import (
	"context"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/staffdesk/staffdesk/internal/auth"
	"github.com/staffdesk/staffdesk/pkg/errutil"
)

// DefaultKeyPrefix namespaces denylist keys.
const DefaultKeyPrefix = "staffdesk:revoked:"

// commands is the subset of the go-redis client the denylist uses.
type commands interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) *goredis.StatusCmd
	Exists(ctx context.Context, keys ...string) *goredis.IntCmd
}

// Denylist stores revoked token IDs as expiring keys.
type Denylist struct {
	rdb    commands
	prefix string
	now    func() time.Time
}

var _ auth.Denylist = (*Denylist)(nil)

// Option configures a Denylist.
type Option func(*Denylist)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) Option {
	return func(d *Denylist) { d.prefix = prefix }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Denylist) { d.now = now }
}

// NewDenylist wraps a go-redis client.
func NewDenylist(rdb goredis.Cmdable, opts ...Option) *Denylist {
	return newDenylist(rdb, opts...)
}

func newDenylist(rdb commands, opts ...Option) *Denylist {
	d := &Denylist{rdb: rdb, prefix: DefaultKeyPrefix, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Denylist) key(tokenID string) string {
	return d.prefix + tokenID
}

// Revoke implements auth.Denylist. Keys expire when the token would have.
func (d *Denylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	// Redis rounds sub-second TTLs down to nothing.
	if ttl < time.Second {
		ttl = time.Second
	}
	if err := d.rdb.Set(ctx, d.key(tokenID), "1", ttl).Err(); err != nil {
		return oops.Code("DENYLIST_WRITE_FAILED").With("token_id", tokenID).Wrap(err)
	}
	return nil
}

// IsRevoked implements auth.Denylist.
func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.rdb.Exists(ctx, d.key(tokenID)).Result()
	if err != nil {
		return false, oops.Code("DENYLIST_READ_FAILED").With("token_id", tokenID).Wrap(err)
	}
	return n > 0, nil
}

// NewClient parses url and returns a client that has answered PING.
func NewClient(ctx context.Context, url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, oops.Code("REDIS_INVALID_URL").
			Public("Server misconfigured").
			Wrapf(errutil.ErrConfiguration, "parse redis url: %v", err)
	}

	rdb := goredis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", opts.Addr).Wrap(err)
	}
	return rdb, nil
}
