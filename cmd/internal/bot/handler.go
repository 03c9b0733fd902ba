// Package bot routes gateway events to the registration and reconciliation flows.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"regbot/cmd/internal/invite"
	"regbot/cmd/internal/platform"
	"regbot/cmd/internal/ratelimit"
	"regbot/cmd/internal/registration"
)

// RateLimitedReply is sent when a member issues register commands too quickly.
const RateLimitedReply = "Too many registrations, please slow down."

// Registrar runs the registration flow.
type Registrar interface {
	Register(ctx context.Context, in registration.Input) (registration.Result, error)
}

// Reconciler handles a member join.
type Reconciler interface {
	Reconcile(ctx context.Context, guildID, memberID string) (invite.Result, error)
}

// Config holds the channels the bot listens on.
type Config struct {
	// RegisterChannelID accepts the register command from members.
	RegisterChannelID string
	// WebhookChannelID accepts the register command from webhooks only.
	WebhookChannelID string
	// HandlerTimeout bounds one event handler (default 30s).
	HandlerTimeout time.Duration
	// RateLimit caps register commands per member within RateWindow. Webhook
	// messages are exempt. Zero disables limiting.
	RateLimit  int
	RateWindow time.Duration
}

// Handler implements platform.EventHandler.
type Handler struct {
	client platform.Client
	cache  *invite.UsageCache
	rec    Reconciler
	reg    Registrar
	cfg    Config
	log    *slog.Logger
	limit  *ratelimit.Limiter
	now    func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(client platform.Client, cache *invite.UsageCache, rec Reconciler, reg Registrar, cfg Config, log *slog.Logger) (*Handler, error) {
	if client == nil || cache == nil || rec == nil || reg == nil {
		return nil, errors.New("bot: missing dependency")
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		client: client,
		cache:  cache,
		rec:    rec,
		reg:    reg,
		cfg:    cfg,
		log:    log,
		limit:  ratelimit.New(cfg.RateLimit, cfg.RateWindow),
		now:    time.Now,
	}, nil
}

// OnReady warms the usage cache for every guild.
func (h *Handler) OnReady(ctx context.Context, guildIDs []string) {
	for _, guildID := range guildIDs {
		if err := h.warm(ctx, guildID); err != nil {
			h.log.Error("bot.cache.warm.fail", "guild_id", guildID, "err", err)
			continue
		}
		h.log.Info("bot.cache.warm", "guild_id", guildID, "invites", len(h.cache.Snapshot(guildID)))
	}
	h.log.Info("bot.ready", "guilds", len(guildIDs), "bot_id", h.client.BotUserID())
}

func (h *Handler) warm(parent context.Context, guildID string) error {
	ctx, cancel := context.WithTimeout(parent, h.cfg.HandlerTimeout)
	defer cancel()
	return h.cache.Warm(ctx, h.client, guildID)
}

// OnInviteCreate records a new invite in the usage cache.
func (h *Handler) OnInviteCreate(_ context.Context, inv platform.Invite) {
	h.cache.Put(inv.GuildID, inv.Code, inv.Uses)
	h.log.Debug("bot.invite.created", "guild_id", inv.GuildID, "invite_code", inv.Code, "inviter_id", inv.InviterID)
}

// OnMemberJoin reconciles the join. Outcomes are logged by the reconciler.
func (h *Handler) OnMemberJoin(parent context.Context, guildID, memberID string) {
	ctx, cancel := context.WithTimeout(parent, h.cfg.HandlerTimeout)
	defer cancel()
	if _, err := h.rec.Reconcile(ctx, guildID, memberID); err != nil && !invite.IsSilent(err) {
		h.log.Warn("bot.join.unreconciled", "guild_id", guildID, "member_id", memberID, "err", err)
	}
}

// OnMessage dispatches the register command from the register channel (members)
// or the webhook channel (webhooks). Moderation commands are accepted from
// members in any channel.
func (h *Handler) OnMessage(parent context.Context, msg platform.Message) {
	if msg.AuthorID != "" && msg.AuthorID == h.client.BotUserID() {
		return
	}

	ctx, cancel := context.WithTimeout(parent, h.cfg.HandlerTimeout)
	defer cancel()
	if msg.WebhookID == "" && h.moderate(ctx, msg) {
		return
	}
	if !IsRegisterCommand(msg.Content) || !h.accepts(msg) {
		return
	}
	if msg.WebhookID == "" && !h.limit.Allow(msg.AuthorID, h.now()) {
		h.log.Info("bot.register.rate_limited", "channel_id", msg.ChannelID, "author_id", msg.AuthorID)
		h.reply(ctx, msg.ChannelID, RateLimitedReply)
		return
	}
	h.reply(ctx, msg.ChannelID, h.register(ctx, msg))
}

func (h *Handler) accepts(msg platform.Message) bool {
	switch {
	case h.cfg.WebhookChannelID != "" && msg.ChannelID == h.cfg.WebhookChannelID:
		return msg.WebhookID != ""
	case h.cfg.RegisterChannelID != "" && msg.ChannelID == h.cfg.RegisterChannelID:
		return msg.WebhookID == ""
	default:
		return false
	}
}

// register returns the reply for one register command.
func (h *Handler) register(ctx context.Context, msg platform.Message) string {
	in, ok := ParseRegister(msg.Content)
	if !ok {
		return Usage
	}

	res, err := h.reg.Register(ctx, in)
	if err != nil {
		var ve registration.ValidationError
		if errors.As(err, &ve) {
			return invalidReply(ve.Field)
		}
		h.log.Error("bot.register.fail", "channel_id", msg.ChannelID, "err", err)
		return "Registration failed, please try again later."
	}

	go h.awaitDelivery(res)

	r := res.Registration
	return fmt.Sprintf("%s - %s - `%s`.", r.DisplayName, r.TeamID, r.InviteKey)
}

func (h *Handler) awaitDelivery(res registration.Result) {
	if res.Delivery == nil {
		return
	}
	if err := <-res.Delivery; err != nil {
		h.log.Warn("bot.register.delivery.fail",
			"request_id", res.RequestID,
			"team_id", res.Registration.TeamID,
			"email_fp", registration.EmailFingerprint(res.Registration.Email),
			"err", err)
	}
}

func (h *Handler) reply(ctx context.Context, channelID, content string) {
	if err := h.client.SendMessage(ctx, channelID, content); err != nil {
		h.log.Warn("bot.reply.fail", "channel_id", channelID, "err", err)
	}
}

func invalidReply(field string) string {
	switch field {
	case "email":
		return "Invalid email."
	case "team_id":
		return "Invalid team id."
	default:
		return Usage
	}
}

var _ platform.EventHandler = (*Handler)(nil)
