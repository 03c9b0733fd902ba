// Package discord adapts github.com/bwmarrin/discordgo to platform.Client and
// translates gateway events into platform.EventHandler calls.
package discord

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"regbot/cmd/internal/platform"

	"github.com/bwmarrin/discordgo"
)

const (
	permView    = int64(discordgo.PermissionViewChannel)
	permConnect = int64(discordgo.PermissionVoiceConnect)
)

// Bulk delete rejects messages older than two weeks.
const bulkDeleteMaxAge = 14 * 24 * time.Hour

var permissionBits = map[platform.Permission]int64{
	platform.PermManageMessages: discordgo.PermissionManageMessages,
	platform.PermAdministrator:  discordgo.PermissionAdministrator,
}

// Intents required by the bot: guild metadata, member joins, invite events and
// message content for the register command.
const Intents = discordgo.IntentsGuilds |
	discordgo.IntentsGuildMembers |
	discordgo.IntentsGuildInvites |
	discordgo.IntentsGuildMessages |
	discordgo.IntentsMessageContent

// Client implements platform.Client over a discordgo session.
type Client struct {
	s   *discordgo.Session
	log *slog.Logger
}

// New builds a session for a bot token. The session is not opened.
func New(token string, log *slog.Logger) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, errors.New("discord: empty bot token")
	}
	if log == nil {
		log = slog.Default()
	}
	s, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	s.Identify.Intents = Intents
	return &Client{s: s, log: log}, nil
}

// Open connects to the gateway.
func (c *Client) Open() error { return platform.Wrap("discord.Open", c.s.Open()) }

// Close disconnects from the gateway.
func (c *Client) Close() error { return platform.Wrap("discord.Close", c.s.Close()) }

func (c *Client) BotUserID() string {
	if c.s.State == nil || c.s.State.User == nil {
		return ""
	}
	return c.s.State.User.ID
}

func (c *Client) GuildIDs() []string {
	if c.s.State == nil {
		return nil
	}
	c.s.State.RLock()
	defer c.s.State.RUnlock()
	out := make([]string, 0, len(c.s.State.Guilds))
	for _, g := range c.s.State.Guilds {
		out = append(out, g.ID)
	}
	return out
}

func (c *Client) ListInvites(ctx context.Context, guildID string) ([]platform.Invite, error) {
	invs, err := c.s.GuildInvites(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, platform.Wrap("discord.ListInvites", err)
	}
	out := make([]platform.Invite, 0, len(invs))
	for _, inv := range invs {
		out = append(out, toInvite(inv, guildID, ""))
	}
	return out, nil
}

func (c *Client) CreateInvite(ctx context.Context, channelID string, maxUses int) (platform.Invite, error) {
	inv, err := c.s.ChannelInviteCreate(channelID, discordgo.Invite{
		MaxUses: maxUses,
		Unique:  true,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return platform.Invite{}, platform.Wrap("discord.CreateInvite", err)
	}
	guildID := ""
	if ch, err := c.s.State.Channel(channelID); err == nil {
		guildID = ch.GuildID
	}
	out := toInvite(inv, guildID, channelID)
	if out.InviterID == "" {
		out.InviterID = c.BotUserID()
	}
	return out, nil
}

func (c *Client) DeleteInvite(ctx context.Context, code string) error {
	_, err := c.s.InviteDelete(code, discordgo.WithContext(ctx))
	return platform.Wrap("discord.DeleteInvite", err)
}

func (c *Client) CategoryChannels(ctx context.Context, guildID, categoryID string) ([]platform.Channel, error) {
	chans, err := c.s.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, platform.Wrap("discord.CategoryChannels", err)
	}
	var out []platform.Channel
	for _, ch := range chans {
		if ch.ParentID != categoryID {
			continue
		}
		out = append(out, platform.Channel{ID: ch.ID, Name: ch.Name, ParentID: ch.ParentID})
	}
	return out, nil
}

func (c *Client) CreateVoiceChannel(ctx context.Context, spec platform.VoiceChannelSpec) (platform.Channel, error) {
	// @everyone shares the guild id.
	overwrites := []*discordgo.PermissionOverwrite{{
		ID:   spec.GuildID,
		Type: discordgo.PermissionOverwriteTypeRole,
		Deny: permView | permConnect,
	}}
	for _, roleID := range spec.AllowRoleIDs {
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    roleID,
			Type:  discordgo.PermissionOverwriteTypeRole,
			Allow: permView | permConnect,
		})
	}
	ch, err := c.s.GuildChannelCreateComplex(spec.GuildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildVoice,
		ParentID:             spec.CategoryID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return platform.Channel{}, platform.Wrap("discord.CreateVoiceChannel", err)
	}
	return platform.Channel{ID: ch.ID, Name: ch.Name, ParentID: ch.ParentID}, nil
}

func (c *Client) AllowMember(ctx context.Context, channelID, memberID string) error {
	err := c.s.ChannelPermissionSet(channelID, memberID, discordgo.PermissionOverwriteTypeMember,
		permView|permConnect, 0, discordgo.WithContext(ctx))
	return platform.Wrap("discord.AllowMember", err)
}

func (c *Client) SetNickname(ctx context.Context, guildID, memberID, nick string) error {
	err := c.s.GuildMemberNickname(guildID, memberID, nick, discordgo.WithContext(ctx))
	return platform.Wrap("discord.SetNickname", err)
}

func (c *Client) RoleIDByName(ctx context.Context, guildID, name string) (string, error) {
	roles, err := c.s.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", platform.Wrap("discord.RoleIDByName", err)
	}
	for _, r := range roles {
		if r.Name == name {
			return r.ID, nil
		}
	}
	return "", platform.Wrap("discord.RoleIDByName", platform.ErrNotFound)
}

func (c *Client) AddRole(ctx context.Context, guildID, memberID, roleID string) error {
	err := c.s.GuildMemberRoleAdd(guildID, memberID, roleID, discordgo.WithContext(ctx))
	return platform.Wrap("discord.AddRole", err)
}

func (c *Client) SendMessage(ctx context.Context, channelID, content string) error {
	_, err := c.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	return platform.Wrap("discord.SendMessage", err)
}

func (c *Client) SendTransient(ctx context.Context, channelID, content string, ttl time.Duration) error {
	m, err := c.s.ChannelMessageSend(channelID, content, discordgo.WithContext(ctx))
	if err != nil {
		return platform.Wrap("discord.SendTransient", err)
	}
	time.AfterFunc(ttl, func() {
		if err := c.s.ChannelMessageDelete(channelID, m.ID); err != nil {
			c.log.Debug("discord.transient.delete_failed", "channel_id", channelID, "message_id", m.ID, "err", err)
		}
	})
	return nil
}

func (c *Client) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	err := c.s.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx))
	return platform.Wrap("discord.DeleteMessage", err)
}

func (c *Client) PurgeMessages(ctx context.Context, channelID string, limit int) (int, error) {
	msgs, err := c.s.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return 0, platform.Wrap("discord.PurgeMessages", err)
	}
	cutoff := time.Now().Add(-bulkDeleteMaxAge)
	var bulk, single []string
	for _, m := range msgs {
		if m.Timestamp.After(cutoff) {
			bulk = append(bulk, m.ID)
		} else {
			single = append(single, m.ID)
		}
	}
	// Bulk delete needs at least two ids.
	if len(bulk) == 1 {
		single, bulk = append(single, bulk[0]), nil
	}
	deleted := 0
	if len(bulk) > 0 {
		if err := c.s.ChannelMessagesBulkDelete(channelID, bulk, discordgo.WithContext(ctx)); err != nil {
			return 0, platform.Wrap("discord.PurgeMessages", err)
		}
		deleted = len(bulk)
	}
	for _, id := range single {
		if err := c.s.ChannelMessageDelete(channelID, id, discordgo.WithContext(ctx)); err != nil {
			return deleted, platform.Wrap("discord.PurgeMessages", err)
		}
		deleted++
	}
	return deleted, nil
}

func (c *Client) HasPermission(ctx context.Context, channelID, memberID string, perm platform.Permission) (bool, error) {
	bit, ok := permissionBits[perm]
	if !ok {
		return false, nil
	}
	// Administrators resolve to every permission bit.
	perms, err := c.s.UserChannelPermissions(memberID, channelID, discordgo.WithContext(ctx))
	if err != nil {
		return false, platform.Wrap("discord.HasPermission", err)
	}
	return perms&bit == bit, nil
}

func (c *Client) Latency() time.Duration { return c.s.HeartbeatLatency() }

func toInvite(inv *discordgo.Invite, guildID, channelID string) platform.Invite {
	out := platform.Invite{
		Code:      inv.Code,
		GuildID:   guildID,
		ChannelID: channelID,
		Uses:      inv.Uses,
		MaxUses:   inv.MaxUses,
	}
	if inv.Guild != nil && inv.Guild.ID != "" {
		out.GuildID = inv.Guild.ID
	}
	if inv.Channel != nil && inv.Channel.ID != "" {
		out.ChannelID = inv.Channel.ID
	}
	if inv.Inviter != nil {
		out.InviterID = inv.Inviter.ID
	}
	return out
}

var _ platform.Client = (*Client)(nil)
