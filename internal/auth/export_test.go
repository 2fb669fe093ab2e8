// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package auth

import "time"

// SetClock replaces the denylist time source.
func (d *MemoryDenylist) SetClock(now func() time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.now = now
}

// DummyPasswordHash exposes the timing-equalization hash.
const DummyPasswordHash = dummyPasswordHash
