package discord

import (
	"context"
	"runtime/debug"

	"regbot/cmd/internal/platform"

	"github.com/bwmarrin/discordgo"
)

// Bind routes gateway events to h. Each event runs with ctx as its parent and a
// recovered panic is logged instead of taking the session down.
func (c *Client) Bind(ctx context.Context, h platform.EventHandler) {
	c.s.AddHandler(func(_ *discordgo.Session, r *discordgo.Ready) {
		ids := make([]string, 0, len(r.Guilds))
		for _, g := range r.Guilds {
			ids = append(ids, g.ID)
		}
		c.guard("ready", func() { h.OnReady(ctx, ids) })
	})

	c.s.AddHandler(func(_ *discordgo.Session, e *discordgo.InviteCreate) {
		if e.Invite == nil {
			return
		}
		inv := toInvite(e.Invite, e.GuildID, e.ChannelID)
		c.guard("invite_create", func() { h.OnInviteCreate(ctx, inv) })
	})

	c.s.AddHandler(func(_ *discordgo.Session, e *discordgo.GuildMemberAdd) {
		if e.Member == nil || e.User == nil {
			return
		}
		guildID, memberID := e.GuildID, e.User.ID
		c.guard("member_join", func() { h.OnMemberJoin(ctx, guildID, memberID) })
	})

	c.s.AddHandler(func(_ *discordgo.Session, m *discordgo.MessageCreate) {
		if m.Message == nil {
			return
		}
		msg := platform.Message{
			ID:        m.ID,
			GuildID:   m.GuildID,
			ChannelID: m.ChannelID,
			WebhookID: m.WebhookID,
			Content:   m.Content,
		}
		if m.Author != nil {
			msg.AuthorID = m.Author.ID
		}
		c.guard("message", func() { h.OnMessage(ctx, msg) })
	})
}

func (c *Client) guard(event string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("discord.handler.panic", "event", event, "panic", r, "stack", string(debug.Stack()))
		}
	}()
	fn()
}
