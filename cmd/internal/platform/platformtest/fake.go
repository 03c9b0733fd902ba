// Package platformtest provides an in-memory platform.Client for tests.
package platformtest

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"regbot/cmd/internal/platform"
)

// Fake is a deterministic, concurrency-safe platform.Client.
// Invite listings are returned in creation order.
type Fake struct {
	mu sync.Mutex

	BotID  string
	Guilds []string

	invites  []platform.Invite
	channels map[string][]platform.Channel // categoryID -> channels
	guildOf  map[string]string             // channelID -> guildID

	Nicknames map[string]string   // memberID -> nick
	Roles     map[string][]string // memberID -> role ids
	RoleNames map[string]string   // role name -> id
	Allowed   map[string][]string // channelID -> member ids
	Sent      []platform.Message
	Transient []platform.Message
	Deleted   []string
	Created   []platform.VoiceChannelSpec

	Perms          map[string][]platform.Permission // memberID -> granted
	Ping           time.Duration
	history        map[string][]platform.Message // channelID -> messages, oldest first
	RemovedMessage []string

	seq    int
	msgSeq int

	// Hooks to inject failures.
	ListErr   error
	CreateErr error
	DeleteErr error
	ChanErr   error
	PurgeErr  error
}

// NewFake returns a Fake whose bot identity is botID.
func NewFake(botID string, guilds ...string) *Fake {
	return &Fake{
		BotID:     botID,
		Guilds:    guilds,
		channels:  make(map[string][]platform.Channel),
		guildOf:   make(map[string]string),
		Nicknames: make(map[string]string),
		Roles:     make(map[string][]string),
		RoleNames: make(map[string]string),
		Allowed:   make(map[string][]string),
		Perms:     make(map[string][]platform.Permission),
		history:   make(map[string][]platform.Message),
	}
}

// Post records msg in its channel history, assigning an id when empty.
func (f *Fake) Post(msg platform.Message) platform.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.postLocked(msg)
}

func (f *Fake) postLocked(msg platform.Message) platform.Message {
	if msg.ID == "" {
		f.msgSeq++
		msg.ID = fmt.Sprintf("msg%04d", f.msgSeq)
	}
	f.history[msg.ChannelID] = append(f.history[msg.ChannelID], msg)
	return msg
}

// History returns a copy of the messages still present in a channel.
func (f *Fake) History(channelID string) []platform.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Message(nil), f.history[channelID]...)
}

// Grant gives memberID a permission in every channel.
func (f *Fake) Grant(memberID string, perm platform.Permission) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Perms[memberID] = append(f.Perms[memberID], perm)
}

// MapChannel records that channelID belongs to guildID.
func (f *Fake) MapChannel(channelID, guildID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.guildOf[channelID] = guildID
}

// SeedInvite appends a live invite as if created outside the bot.
func (f *Fake) SeedInvite(inv platform.Invite) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.invites = append(f.invites, inv)
}

// Use bumps the use count of code, simulating a join through it.
func (f *Fake) Use(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.invites {
		if f.invites[i].Code == code {
			f.invites[i].Uses++
			return
		}
	}
}

// Invites returns a copy of the live invite list.
func (f *Fake) Invites() []platform.Invite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Invite(nil), f.invites...)
}

// ChannelCount returns the number of channels in a category.
func (f *Fake) ChannelCount(categoryID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.channels[categoryID])
}

func (f *Fake) BotUserID() string { return f.BotID }

func (f *Fake) GuildIDs() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Guilds...)
}

func (f *Fake) ListInvites(_ context.Context, guildID string) ([]platform.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ListErr != nil {
		return nil, platform.Wrap("fake.ListInvites", f.ListErr)
	}
	var out []platform.Invite
	for _, inv := range f.invites {
		if inv.GuildID == guildID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (f *Fake) CreateInvite(_ context.Context, channelID string, maxUses int) (platform.Invite, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CreateErr != nil {
		return platform.Invite{}, platform.Wrap("fake.CreateInvite", f.CreateErr)
	}
	f.seq++
	inv := platform.Invite{
		Code:      fmt.Sprintf("inv%04d", f.seq),
		GuildID:   f.guildOf[channelID],
		ChannelID: channelID,
		InviterID: f.BotID,
		MaxUses:   maxUses,
	}
	f.invites = append(f.invites, inv)
	return inv, nil
}

func (f *Fake) DeleteInvite(_ context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.DeleteErr != nil {
		return platform.Wrap("fake.DeleteInvite", f.DeleteErr)
	}
	for i := range f.invites {
		if f.invites[i].Code == code {
			f.invites = append(f.invites[:i], f.invites[i+1:]...)
			f.Deleted = append(f.Deleted, code)
			return nil
		}
	}
	return platform.Wrap("fake.DeleteInvite", platform.ErrNotFound)
}

func (f *Fake) CategoryChannels(_ context.Context, _ string, categoryID string) ([]platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]platform.Channel(nil), f.channels[categoryID]...), nil
}

func (f *Fake) CreateVoiceChannel(_ context.Context, spec platform.VoiceChannelSpec) (platform.Channel, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ChanErr != nil {
		return platform.Channel{}, platform.Wrap("fake.CreateVoiceChannel", f.ChanErr)
	}
	f.seq++
	ch := platform.Channel{
		ID:       fmt.Sprintf("ch%04d", f.seq),
		Name:     spec.Name,
		ParentID: spec.CategoryID,
	}
	f.channels[spec.CategoryID] = append(f.channels[spec.CategoryID], ch)
	f.guildOf[ch.ID] = spec.GuildID
	f.Created = append(f.Created, spec)
	return ch, nil
}

func (f *Fake) AllowMember(_ context.Context, channelID, memberID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Allowed[channelID] = append(f.Allowed[channelID], memberID)
	return nil
}

func (f *Fake) SetNickname(_ context.Context, _ string, memberID, nick string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Nicknames[memberID] = nick
	return nil
}

func (f *Fake) RoleIDByName(_ context.Context, _ string, name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.RoleNames[name]
	if !ok {
		return "", platform.Wrap("fake.RoleIDByName", platform.ErrNotFound)
	}
	return id, nil
}

func (f *Fake) AddRole(_ context.Context, _ string, memberID, roleID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Roles[memberID] = append(f.Roles[memberID], roleID)
	return nil
}

func (f *Fake) SendMessage(_ context.Context, channelID, content string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msg := f.postLocked(platform.Message{ChannelID: channelID, AuthorID: f.BotID, Content: content})
	f.Sent = append(f.Sent, msg)
	return nil
}

// SendTransient records the message in Transient; it never expires.
func (f *Fake) SendTransient(_ context.Context, channelID, content string, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Transient = append(f.Transient, platform.Message{ChannelID: channelID, AuthorID: f.BotID, Content: content})
	return nil
}

func (f *Fake) DeleteMessage(_ context.Context, channelID, messageID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.history[channelID]
	i := slices.IndexFunc(msgs, func(m platform.Message) bool { return m.ID == messageID })
	if i < 0 {
		return platform.Wrap("fake.DeleteMessage", platform.ErrNotFound)
	}
	f.history[channelID] = slices.Delete(msgs, i, i+1)
	f.RemovedMessage = append(f.RemovedMessage, messageID)
	return nil
}

func (f *Fake) PurgeMessages(_ context.Context, channelID string, limit int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.PurgeErr != nil {
		return 0, platform.Wrap("fake.PurgeMessages", f.PurgeErr)
	}
	msgs := f.history[channelID]
	n := min(limit, len(msgs))
	for _, m := range msgs[len(msgs)-n:] {
		f.RemovedMessage = append(f.RemovedMessage, m.ID)
	}
	f.history[channelID] = msgs[:len(msgs)-n]
	return n, nil
}

func (f *Fake) HasPermission(_ context.Context, _ string, memberID string, perm platform.Permission) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	granted := f.Perms[memberID]
	return slices.Contains(granted, perm) || slices.Contains(granted, platform.PermAdministrator), nil
}

func (f *Fake) Latency() time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.Ping
}

var _ platform.Client = (*Fake)(nil)
