package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"regbot/cmd/internal/metrics"
	"regbot/cmd/internal/platform"

	"github.com/robfig/cron"
)

// DefaultJanitorInterval is the sweep period.
const DefaultJanitorInterval = 30 * time.Second

// Janitor deletes bot-issued invites that have served more than one join.
type Janitor struct {
	client   platform.Client
	interval time.Duration
	log      *slog.Logger
	metrics  *metrics.Metrics

	running sync.Mutex
}

// NewJanitor constructs a Janitor sweeping every interval (DefaultJanitorInterval if <= 0).
func NewJanitor(client platform.Client, interval time.Duration, log *slog.Logger, m *metrics.Metrics) (*Janitor, error) {
	if client == nil {
		return nil, ErrInvalidInput
	}
	if interval <= 0 {
		interval = DefaultJanitorInterval
	}
	if log == nil {
		log = slog.Default()
	}
	return &Janitor{client: client, interval: interval, log: log, metrics: m}, nil
}

// Surplus reports whether inv was issued by botID and is past its one legitimate use.
func Surplus(inv platform.Invite, botID string) bool {
	return botID != "" && inv.InviterID == botID && inv.Uses > 1
}

// Sweep runs one pass over every guild. A failing guild or invite does not stop
// the rest; errors are joined.
func (j *Janitor) Sweep(ctx context.Context) (int, error) {
	botID := j.client.BotUserID()
	if botID == "" {
		return 0, nil
	}
	var (
		deleted int
		errs    []error
	)
	for _, guildID := range j.client.GuildIDs() {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		live, err := j.client.ListInvites(ctx, guildID)
		if err != nil {
			errs = append(errs, fmt.Errorf("guild %s: %w", guildID, err))
			continue
		}
		for _, inv := range live {
			if !Surplus(inv, botID) {
				continue
			}
			if err := j.client.DeleteInvite(ctx, inv.Code); err != nil {
				errs = append(errs, fmt.Errorf("invite %s: %w", inv.Code, err))
				continue
			}
			deleted++
			j.log.Info("janitor.invite.deleted", "guild_id", guildID, "invite_code", inv.Code, "uses", inv.Uses)
		}
	}
	j.metrics.AddJanitorDeleted(deleted)
	return deleted, errors.Join(errs...)
}

// Run sweeps on a schedule until ctx is done.
func (j *Janitor) Run(ctx context.Context) error {
	c := cron.New()
	if err := c.AddFunc("@every "+j.interval.String(), func() { j.tick(ctx) }); err != nil {
		return fmt.Errorf("schedule janitor: %w", err)
	}
	c.Start()
	j.log.Info("janitor.start", "interval", j.interval.String())

	<-ctx.Done()
	c.Stop()
	j.log.Info("janitor.stop")
	return nil
}

func (j *Janitor) tick(ctx context.Context) {
	// Skip when the previous sweep is still listing a large guild.
	if !j.running.TryLock() {
		return
	}
	defer j.running.Unlock()

	if _, err := j.Sweep(ctx); err != nil {
		j.metrics.IncJanitorErrors()
		j.log.Warn("janitor.sweep.fail", "err", err)
	}
}
