// Package platform describes the chat-platform boundary used by the registration bot.
//
// Types here are platform-neutral; the Discord adapter lives in platform/discord.
package platform

import (
	"context"
	"time"
)

// InviteBaseURL prefixes invite codes to form shareable links.
const InviteBaseURL = "https://discord.gg/"

// Invite is a live platform invite. The platform owns it; the bot only observes it.
type Invite struct {
	Code      string
	GuildID   string
	ChannelID string
	InviterID string
	Uses      int
	MaxUses   int
}

// URL returns the shareable invite link.
func (i Invite) URL() string { return InviteBaseURL + i.Code }

// Channel is a guild channel.
type Channel struct {
	ID       string
	Name     string
	ParentID string
}

// Message is an inbound chat message.
type Message struct {
	ID        string
	GuildID   string
	ChannelID string
	AuthorID  string
	WebhookID string
	Content   string
}

// VoiceChannelSpec describes a category-scoped private voice channel.
type VoiceChannelSpec struct {
	GuildID    string
	CategoryID string
	Name       string
	// AllowRoleIDs get view+connect; everyone else is denied both.
	AllowRoleIDs []string
}

// Permission is a platform-neutral member capability.
type Permission uint8

const (
	PermManageMessages Permission = iota + 1
	PermAdministrator
)

// Client is the set of platform operations the bot consumes.
type Client interface {
	BotUserID() string
	GuildIDs() []string

	ListInvites(ctx context.Context, guildID string) ([]Invite, error)
	CreateInvite(ctx context.Context, channelID string, maxUses int) (Invite, error)
	DeleteInvite(ctx context.Context, code string) error

	CategoryChannels(ctx context.Context, guildID, categoryID string) ([]Channel, error)
	CreateVoiceChannel(ctx context.Context, spec VoiceChannelSpec) (Channel, error)
	AllowMember(ctx context.Context, channelID, memberID string) error

	SetNickname(ctx context.Context, guildID, memberID, nick string) error
	RoleIDByName(ctx context.Context, guildID, name string) (string, error)
	AddRole(ctx context.Context, guildID, memberID, roleID string) error

	SendMessage(ctx context.Context, channelID, content string) error
	// SendTransient posts content and removes it again after ttl.
	SendTransient(ctx context.Context, channelID, content string, ttl time.Duration) error
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	// PurgeMessages deletes up to limit of the most recent messages in a
	// channel and reports how many were removed.
	PurgeMessages(ctx context.Context, channelID string, limit int) (int, error)
	HasPermission(ctx context.Context, channelID, memberID string, perm Permission) (bool, error)
	// Latency is the last measured gateway heartbeat round trip.
	Latency() time.Duration
}

// EventHandler receives gateway events translated by an adapter.
type EventHandler interface {
	OnReady(ctx context.Context, guildIDs []string)
	OnInviteCreate(ctx context.Context, inv Invite)
	OnMemberJoin(ctx context.Context, guildID, memberID string)
	OnMessage(ctx context.Context, msg Message)
}
