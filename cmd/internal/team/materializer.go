package team

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"regbot/cmd/internal/keylock"
	"regbot/cmd/internal/platform"
)

// Discord rejects nicknames longer than this many runes.
const maxNicknameRunes = 32

// Config holds guild-specific materialization settings.
type Config struct {
	HelperRoleID        string
	ParticipantRoleName string
	NicknameMarker      string
}

// Materializer applies a resolved registration to a joining member.
type Materializer struct {
	client platform.Client
	table  *Table
	cfg    Config
	log    *slog.Logger
	locks  keylock.Map
}

// NewMaterializer constructs a Materializer.
func NewMaterializer(client platform.Client, table *Table, cfg Config, log *slog.Logger) (*Materializer, error) {
	if client == nil || table == nil {
		return nil, ErrInvalidInput
	}
	if log == nil {
		log = slog.Default()
	}
	return &Materializer{client: client, table: table, cfg: cfg, log: log}, nil
}

// Apply resolves the team's channel, creating it on first use, and grants the
// member view+connect on it. Concurrent calls for one team converge on a single
// channel.
func (m *Materializer) Apply(ctx context.Context, guildID, memberID, teamID string) (platform.Channel, error) {
	id, categoryID, err := m.resolve(teamID)
	if err != nil {
		return platform.Channel{}, err
	}
	ch, err := m.channel(ctx, guildID, categoryID, id.ChannelName())
	if err != nil {
		return platform.Channel{}, err
	}
	if err := m.client.AllowMember(ctx, ch.ID, memberID); err != nil {
		return platform.Channel{}, err
	}
	return ch, nil
}

// Onboard performs the full materialization: participant role, nickname
// "<marker> <team> - <name>" and Apply. An unknown team fails before any mutation.
func (m *Materializer) Onboard(ctx context.Context, guildID, memberID, name, teamID string) (platform.Channel, error) {
	id, _, err := m.resolve(teamID)
	if err != nil {
		return platform.Channel{}, err
	}

	if m.cfg.ParticipantRoleName != "" {
		roleID, err := m.client.RoleIDByName(ctx, guildID, m.cfg.ParticipantRoleName)
		switch {
		case errors.Is(err, platform.ErrNotFound):
			m.log.Warn("team.role.missing", "guild_id", guildID, "role", m.cfg.ParticipantRoleName)
		case err != nil:
			return platform.Channel{}, err
		default:
			if err := m.client.AddRole(ctx, guildID, memberID, roleID); err != nil {
				return platform.Channel{}, err
			}
		}
	}

	if err := m.client.SetNickname(ctx, guildID, memberID, Nickname(m.cfg.NicknameMarker, id.String(), name)); err != nil {
		return platform.Channel{}, err
	}

	return m.Apply(ctx, guildID, memberID, id.String())
}

// Nickname formats the member display name, truncated to the platform limit.
func Nickname(marker, teamID, name string) string {
	nick := fmt.Sprintf("%s - %s", teamID, name)
	if marker != "" {
		nick = marker + " " + nick
	}
	r := []rune(nick)
	if len(r) > maxNicknameRunes {
		r = r[:maxNicknameRunes]
	}
	return string(r)
}

func (m *Materializer) resolve(teamID string) (ID, string, error) {
	id, err := ParseID(teamID)
	if err != nil {
		return ID{}, "", err
	}
	categoryID, err := m.table.Category(id)
	if err != nil {
		return ID{}, "", err
	}
	return id, categoryID, nil
}

func (m *Materializer) channel(ctx context.Context, guildID, categoryID, name string) (platform.Channel, error) {
	unlock := m.locks.Lock(categoryID + "/" + name)
	defer unlock()

	chans, err := m.client.CategoryChannels(ctx, guildID, categoryID)
	if err != nil {
		return platform.Channel{}, err
	}
	for _, ch := range chans {
		if ch.Name == name {
			return ch, nil
		}
	}

	var allow []string
	if m.cfg.HelperRoleID != "" {
		allow = append(allow, m.cfg.HelperRoleID)
	}
	ch, err := m.client.CreateVoiceChannel(ctx, platform.VoiceChannelSpec{
		GuildID:      guildID,
		CategoryID:   categoryID,
		Name:         name,
		AllowRoleIDs: allow,
	})
	if err != nil {
		return platform.Channel{}, err
	}
	m.log.Info("team.channel.created", "guild_id", guildID, "category_id", categoryID, "channel", name)
	return ch, nil
}
