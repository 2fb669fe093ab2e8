// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/staffdesk/staffdesk/internal/auth"
)

func TestMemoryDenylist(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	d := auth.NewMemoryDenylist(time.Hour)
	d.SetClock(func() time.Time { return now })

	require.NoError(t, d.Revoke(ctx, "a", now.Add(time.Minute)))
	require.NoError(t, d.Revoke(ctx, "stale", now.Add(-time.Minute)))

	revoked, err := d.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, err = d.IsRevoked(ctx, "stale")
	require.NoError(t, err)
	assert.False(t, revoked)
	assert.Equal(t, 1, d.Len())

	now = now.Add(2 * time.Minute)
	revoked, err = d.IsRevoked(ctx, "a")
	require.NoError(t, err)
	assert.False(t, revoked)

	d.Prune()
	assert.Zero(t, d.Len())

	require.NoError(t, d.Close())
	require.NoError(t, d.Close())
}
