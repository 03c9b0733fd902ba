// Package invite issues registration invites and reconciles member joins back to
// the invite they consumed.
package invite

import (
	"context"
	"sync"

	"regbot/cmd/internal/keylock"
	"regbot/cmd/internal/metrics"
	"regbot/cmd/internal/platform"
)

// UsageCache tracks the last observed use count of every invite, per guild.
//
// Writers to one guild (Put, Warm, Diff) are serialized by a per-guild lock held
// across the platform listing, so an invite recorded while a listing is in
// flight is never overwritten by that listing's Replace.
type UsageCache struct {
	guildLocks keylock.Map

	mu      sync.Mutex
	guilds  map[string]map[string]int
	metrics *metrics.Metrics
}

// NewUsageCache constructs an empty cache. m may be nil.
func NewUsageCache(m *metrics.Metrics) *UsageCache {
	return &UsageCache{guilds: make(map[string]map[string]int), metrics: m}
}

// Snapshot returns a copy of the guild's counts; empty on cold start.
func (c *UsageCache) Snapshot(guildID string) map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	src := c.guilds[guildID]
	out := make(map[string]int, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Put records a single invite, e.g. from an invite-create event.
func (c *UsageCache) Put(guildID, code string, uses int) {
	if guildID == "" || code == "" {
		return
	}
	if uses < 0 {
		uses = 0
	}
	unlock := c.guildLocks.Lock(guildID)
	defer unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	g := c.guilds[guildID]
	if g == nil {
		g = make(map[string]int)
		c.guilds[guildID] = g
	}
	g[code] = uses
	c.metrics.SetCachedInvites(guildID, len(g))
}

// Replace swaps the guild's counts for the given live listing. Callers outside
// this package go through Warm or Diff, which hold the guild lock.
func (c *UsageCache) Replace(guildID string, live []platform.Invite) {
	g := make(map[string]int, len(live))
	for _, inv := range live {
		g[inv.Code] = inv.Uses
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.guilds[guildID] = g
	c.metrics.SetCachedInvites(guildID, len(g))
}

// Warm replaces the guild's counts with the platform's current listing.
func (c *UsageCache) Warm(ctx context.Context, client platform.Client, guildID string) error {
	unlock := c.guildLocks.Lock(guildID)
	defer unlock()

	live, err := client.ListInvites(ctx, guildID)
	if err != nil {
		return err
	}
	c.Replace(guildID, live)
	return nil
}

// Diff lists the guild's invites, resolves the one whose use count grew since
// the last observation and replaces the cached counts with the listing, all
// under the guild lock. A failed listing leaves the cache untouched.
func (c *UsageCache) Diff(ctx context.Context, client platform.Client, guildID string) (platform.Invite, bool, error) {
	unlock := c.guildLocks.Lock(guildID)
	defer unlock()

	live, err := client.ListInvites(ctx, guildID)
	if err != nil {
		return platform.Invite{}, false, err
	}
	inv, ok := Resolve(c.Snapshot(guildID), live)
	c.Replace(guildID, live)
	return inv, ok, nil
}
