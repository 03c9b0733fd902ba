package invite

import (
	"context"
	"log/slog"

	"regbot/cmd/internal/metrics"
	"regbot/cmd/internal/platform"
)

// MaxUses caps every registration invite: one use for the expected join plus
// one unit of slack. The janitor removes invites once they exceed one use.
const MaxUses = 2

// Issuer creates unique capped-use invites and registers them in the cache.
type Issuer struct {
	client  platform.Client
	cache   *UsageCache
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewIssuer constructs an Issuer.
func NewIssuer(client platform.Client, cache *UsageCache, log *slog.Logger, m *metrics.Metrics) (*Issuer, error) {
	if client == nil || cache == nil {
		return nil, ErrInvalidInput
	}
	if log == nil {
		log = slog.Default()
	}
	return &Issuer{client: client, cache: cache, log: log, metrics: m}, nil
}

// Issue creates an invite on channelID and caches it with zero uses.
// Platform errors are returned as-is so the registration fails visibly.
func (i *Issuer) Issue(ctx context.Context, channelID string) (platform.Invite, error) {
	inv, err := i.client.CreateInvite(ctx, channelID, MaxUses)
	if err != nil {
		return platform.Invite{}, err
	}
	i.cache.Put(inv.GuildID, inv.Code, 0)
	i.metrics.IncInvitesIssued()
	i.log.Info("invite.issue", "guild_id", inv.GuildID, "channel_id", channelID, "invite_code", inv.Code)
	return inv, nil
}

// Revoke deletes an invite that will never be handed out.
func (i *Issuer) Revoke(ctx context.Context, code string) error {
	return i.client.DeleteInvite(ctx, code)
}
