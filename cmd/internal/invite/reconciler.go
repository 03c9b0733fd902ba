package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"regbot/cmd/internal/ids"
	"regbot/cmd/internal/keylock"
	"regbot/cmd/internal/metrics"
	"regbot/cmd/internal/platform"
	"regbot/cmd/internal/registration"
)

// Materializer applies a registration to the member that joined with it.
type Materializer interface {
	Onboard(ctx context.Context, guildID, memberID, name, teamID string) (platform.Channel, error)
}

// Result describes a materialized join.
type Result struct {
	PassID       string
	Invite       platform.Invite
	Registration registration.PendingRegistration
	Channel      platform.Channel
}

// Reconciler attributes member joins to registration invites.
//
// Per guild, listing + diff + cache replace run under the cache's guild lock so
// two joins never diff against the same snapshot and issuance never races a
// listing. Per invite key, lookup + materialize + record delete run under one
// lock so a duplicate pass sees the record gone.
type Reconciler struct {
	client  platform.Client
	cache   *UsageCache
	store   registration.Store
	mat     Materializer
	log     *slog.Logger
	metrics *metrics.Metrics

	inviteLocks keylock.Map
}

// NewReconciler constructs a Reconciler.
func NewReconciler(client platform.Client, cache *UsageCache, store registration.Store, mat Materializer, log *slog.Logger, m *metrics.Metrics) (*Reconciler, error) {
	if client == nil || cache == nil || store == nil || mat == nil {
		return nil, ErrInvalidInput
	}
	if log == nil {
		log = slog.Default()
	}
	return &Reconciler{client: client, cache: cache, store: store, mat: mat, log: log, metrics: m}, nil
}

// Reconcile handles one join signal. It returns ErrUnattributedJoin or
// ErrStaleInvite for joins that are expected no-ops; any other error leaves the
// pending registration intact.
func (r *Reconciler) Reconcile(ctx context.Context, guildID, memberID string) (Result, error) {
	passID := ids.New()
	log := r.log.With("pass_id", passID, "guild_id", guildID, "member_id", memberID)

	inv, ok, err := r.cache.Diff(ctx, r.client, guildID)
	if err != nil {
		r.metrics.IncJoin(metrics.JoinFailed)
		log.Error("join.reconcile.list.fail", "err", err)
		return Result{PassID: passID}, fmt.Errorf("list invites: %w", err)
	}
	if !ok {
		r.metrics.IncJoin(metrics.JoinUnattributed)
		log.Info("join.reconcile.unattributed")
		return Result{PassID: passID}, ErrUnattributedJoin
	}

	res, err := r.consume(ctx, log, guildID, memberID, inv)
	res.PassID = passID
	return res, err
}

func (r *Reconciler) consume(ctx context.Context, log *slog.Logger, guildID, memberID string, inv platform.Invite) (Result, error) {
	key := inv.URL()
	log = log.With("invite_code", inv.Code)

	unlock := r.inviteLocks.Lock(key)
	defer unlock()

	rec, err := r.store.Get(ctx, key)
	if err != nil {
		if errors.Is(err, registration.ErrNotFound) {
			r.metrics.IncJoin(metrics.JoinStale)
			log.Info("join.reconcile.stale")
			return Result{Invite: inv}, ErrStaleInvite
		}
		r.metrics.IncJoin(metrics.JoinFailed)
		log.Error("join.reconcile.lookup.fail", "err", err)
		return Result{Invite: inv}, fmt.Errorf("lookup registration: %w", err)
	}

	// The platform may already have expired it.
	if err := r.client.DeleteInvite(ctx, inv.Code); err != nil {
		log.Debug("join.reconcile.invite_delete.skip", "err", err)
	}

	res := Result{Invite: inv, Registration: rec}
	ch, err := r.mat.Onboard(ctx, guildID, memberID, rec.DisplayName, rec.TeamID)
	if err != nil {
		r.metrics.IncJoin(metrics.JoinFailed)
		log.Error("join.reconcile.materialize.fail", "team_id", rec.TeamID, "err", err)
		return res, fmt.Errorf("materialize %s: %w", rec.TeamID, err)
	}
	res.Channel = ch

	if err := r.store.Delete(ctx, key); err != nil {
		r.metrics.IncJoin(metrics.JoinFailed)
		log.Error("join.reconcile.cleanup.fail", "err", err)
		return res, fmt.Errorf("delete registration: %w", err)
	}

	r.metrics.IncJoin(metrics.JoinMaterialized)
	log.Info("join.reconcile.materialized", "team_id", rec.TeamID, "channel_id", ch.ID)
	return res, nil
}
