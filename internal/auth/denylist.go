// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffDesk Contributors

package auth

import (
	"context"
	"sync"
	"time"
)

// MemoryDenylist is a process-local Denylist. Entries are pruned once the
// token they describe has expired.
type MemoryDenylist struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewMemoryDenylist creates a MemoryDenylist that prunes every interval.
// Call Close to stop the pruning goroutine.
func NewMemoryDenylist(interval time.Duration) *MemoryDenylist {
	d := &MemoryDenylist{
		entries: make(map[string]time.Time),
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go d.run(interval)
	return d
}

func (d *MemoryDenylist) run(interval time.Duration) {
	defer close(d.done)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.Prune()
		}
	}
}

// Revoke implements Denylist.
func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, until time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !until.After(d.now()) {
		return nil
	}
	d.entries[tokenID] = until
	return nil
}

// IsRevoked implements Denylist.
func (d *MemoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	until, ok := d.entries[tokenID]
	return ok && until.After(d.now()), nil
}

// Prune drops expired entries.
func (d *MemoryDenylist) Prune() {
	d.mu.Lock()
	defer d.mu.Unlock()
	now := d.now()
	for id, until := range d.entries {
		if !until.After(now) {
			delete(d.entries, id)
		}
	}
}

// Len returns the number of tracked entries.
func (d *MemoryDenylist) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.entries)
}

// Close stops the pruning goroutine. It is safe to call more than once.
func (d *MemoryDenylist) Close() error {
	d.once.Do(func() { close(d.stop) })
	<-d.done
	return nil
}
