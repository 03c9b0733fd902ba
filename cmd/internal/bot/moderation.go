package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"regbot/cmd/internal/platform"
)

// Moderation commands.
const (
	PingCommand    = "!ping"
	PurgeCommand   = "!purge"
	VerboseCommand = "!verbose"
)

const (
	defaultPurge = 20
	maxPurge     = 100

	// transientTTL is how long error and status replies stay visible.
	transientTTL = 5 * time.Second
)

const (
	noPermissionReply = "You do not have permission to use this command."
	botChannelReply   = "You can only use this command in the bot channel."
	verboseUsage      = "Usage: `!verbose <message>`"
	purgeUsage        = "Usage: `!purge [amount]`"
)

// splitCommand returns the leading command token and the raw remainder.
func splitCommand(content string) (cmd, rest string) {
	content = strings.TrimSpace(content)
	i := strings.IndexFunc(content, func(r rune) bool { return r == ' ' || r == '\t' || r == '\n' })
	if i < 0 {
		return content, ""
	}
	return content[:i], strings.TrimSpace(content[i+1:])
}

// ParsePurgeAmount parses the optional purge count. Range checks are left to
// the caller so each bound gets its own reply.
func ParsePurgeAmount(arg string) (int, bool) {
	if arg == "" {
		return defaultPurge, true
	}
	f := strings.Fields(arg)
	n, err := strconv.Atoi(f[0])
	if err != nil {
		return 0, false
	}
	return n, true
}

// moderate runs a moderation command. It reports false when content is not one.
func (h *Handler) moderate(ctx context.Context, msg platform.Message) bool {
	cmd, rest := splitCommand(msg.Content)
	switch cmd {
	case PingCommand:
		h.ping(ctx, msg)
	case PurgeCommand:
		h.purge(ctx, msg, rest)
	case VerboseCommand:
		h.verbose(ctx, msg, rest)
	default:
		return false
	}
	return true
}

func (h *Handler) ping(ctx context.Context, msg platform.Message) {
	if h.cfg.RegisterChannelID == "" || msg.ChannelID != h.cfg.RegisterChannelID {
		h.transient(ctx, msg.ChannelID, botChannelReply)
		return
	}
	ms := h.client.Latency().Round(time.Millisecond).Milliseconds()
	h.reply(ctx, msg.ChannelID, fmt.Sprintf("Pong! 🏓 `%dms`", ms))
}

func (h *Handler) purge(ctx context.Context, msg platform.Message, arg string) {
	if !h.permitted(ctx, msg, platform.PermManageMessages) {
		h.transient(ctx, msg.ChannelID, noPermissionReply)
		return
	}
	n, ok := ParsePurgeAmount(arg)
	switch {
	case !ok:
		h.transient(ctx, msg.ChannelID, purgeUsage)
		return
	case n < 1:
		h.transient(ctx, msg.ChannelID, "Please specify a positive number of messages to delete.")
		return
	case n > maxPurge:
		h.transient(ctx, msg.ChannelID, fmt.Sprintf("You can delete a maximum of %d messages at once.", maxPurge))
		return
	}

	deleted, err := h.client.PurgeMessages(ctx, msg.ChannelID, n)
	if err != nil {
		h.log.Warn("bot.purge.fail", "channel_id", msg.ChannelID, "author_id", msg.AuthorID, "deleted", deleted, "err", err)
		h.transient(ctx, msg.ChannelID, "❌ Failed to delete messages: "+err.Error())
		return
	}
	h.log.Info("bot.purge", "channel_id", msg.ChannelID, "author_id", msg.AuthorID, "deleted", deleted)
	h.transient(ctx, msg.ChannelID, fmt.Sprintf("✅ Successfully deleted %d messages.", deleted))
}

func (h *Handler) verbose(ctx context.Context, msg platform.Message, text string) {
	if !h.permitted(ctx, msg, platform.PermAdministrator) {
		h.transient(ctx, msg.ChannelID, noPermissionReply)
		return
	}
	if text == "" {
		h.transient(ctx, msg.ChannelID, verboseUsage)
		return
	}
	if msg.ID != "" {
		if err := h.client.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
			h.log.Debug("bot.verbose.delete_failed", "channel_id", msg.ChannelID, "err", err)
		}
	}
	h.reply(ctx, msg.ChannelID, text)
}

// permitted is false outside guilds and when the lookup fails.
func (h *Handler) permitted(ctx context.Context, msg platform.Message, perm platform.Permission) bool {
	if msg.GuildID == "" || msg.AuthorID == "" {
		return false
	}
	ok, err := h.client.HasPermission(ctx, msg.ChannelID, msg.AuthorID, perm)
	if err != nil {
		h.log.Warn("bot.permission.fail", "channel_id", msg.ChannelID, "author_id", msg.AuthorID, "err", err)
		return false
	}
	return ok
}

func (h *Handler) transient(ctx context.Context, channelID, content string) {
	if err := h.client.SendTransient(ctx, channelID, content, transientTTL); err != nil {
		h.log.Warn("bot.reply.fail", "channel_id", channelID, "err", err)
	}
}
