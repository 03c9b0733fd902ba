// Package app wires the bot runtime: config, logging, storage, the Discord
// gateway, the janitor and the side HTTP server for health checks and metrics.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"regbot/cmd/internal/bot"
	"regbot/cmd/internal/invite"
	"regbot/cmd/internal/mail"
	"regbot/cmd/internal/metrics"
	"regbot/cmd/internal/platform"
	"regbot/cmd/internal/platform/discord"
	"regbot/cmd/internal/registration"
	"regbot/cmd/internal/team"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"
)

// Gateway is a platform client with a gateway session.
type Gateway interface {
	platform.Client
	Bind(ctx context.Context, h platform.EventHandler)
	Open() error
	Close() error
}

// App is the bot runtime. It owns the store, the mail queue and the gateway session.
type App struct {
	cfg Config
	log Logger

	gw      Gateway
	store   registration.Store
	dbPool  *pgxpool.Pool
	mailer  *mail.Dispatcher
	handler *bot.Handler
	janitor *invite.Janitor

	registry *prometheus.Registry
}

// New constructs a fully wired App backed by a Discord session.
func New(ctx context.Context, cfg Config, log Logger) (*App, error) {
	if log == nil {
		log = NewLogger(cfg.LogLevel, cfg.LogFormat)
	}
	gw, err := discord.New(cfg.DiscordToken, log)
	if err != nil {
		return nil, err
	}
	return newApp(ctx, cfg, log, gw)
}

func newApp(ctx context.Context, cfg Config, log Logger, gw Gateway) (*App, error) {
	table, err := team.LoadTable(cfg.BucketsFile)
	if err != nil {
		return nil, err
	}
	log.Info("team.buckets.loaded", "path", cfg.BucketsFile, "buckets", len(table.Buckets()))

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	store, pool, err := newStore(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, log: log, gw: gw, store: store, dbPool: pool, registry: registry}
	if err := a.wire(table, m); err != nil {
		a.closeResources()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(table *team.Table, m *metrics.Metrics) error {
	cfg, log := a.cfg, a.log

	sender, err := newSender(cfg)
	if err != nil {
		return err
	}
	a.mailer = mail.NewDispatcher(sender, log, cfg.MailWorkers, cfg.MailQueue, mail.WithMetrics(m))

	cache := invite.NewUsageCache(m)
	issuer, err := invite.NewIssuer(a.gw, cache, log, m)
	if err != nil {
		return err
	}
	mat, err := team.NewMaterializer(a.gw, table, team.Config{
		HelperRoleID:        cfg.HelperRoleID,
		ParticipantRoleName: cfg.ParticipantRoleName,
		NicknameMarker:      cfg.NicknameMarker,
	}, log)
	if err != nil {
		return err
	}
	rec, err := invite.NewReconciler(a.gw, cache, a.store, mat, log, m)
	if err != nil {
		return err
	}
	svc, err := registration.NewService(a.store, issuer, cfg.InviteChannelID,
		registration.WithMailer(a.mailer),
		registration.WithLogger(log),
		registration.WithMetrics(m),
	)
	if err != nil {
		return err
	}
	a.handler, err = bot.NewHandler(a.gw, cache, rec, svc, bot.Config{
		RegisterChannelID: cfg.RegisterChannelID,
		WebhookChannelID:  cfg.WebhookChannelID,
		HandlerTimeout:    cfg.HandlerTimeout,
		RateLimit:         cfg.RegisterRateLimit,
		RateWindow:        cfg.RegisterRateWindow,
	}, log)
	if err != nil {
		return err
	}
	a.janitor, err = invite.NewJanitor(a.gw, cfg.JanitorInterval, log, m)
	return err
}

// Run opens the gateway, starts the janitor and the HTTP server, and blocks until
// ctx is cancelled or one of them fails.
func (a *App) Run(ctx context.Context) error {
	mux := http.NewServeMux()
	registerHTTP(mux, a.log, a.store, func() bool { return a.gw.BotUserID() != "" }, a.registry)

	srv := &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           WithRequestLogging(mux, a.log),
		ReadHeaderTimeout: nonZeroDuration(a.cfg.ReadHeaderTimeout, 5*time.Second),
		ReadTimeout:       nonZeroDuration(a.cfg.ReadTimeout, 15*time.Second),
		WriteTimeout:      nonZeroDuration(a.cfg.WriteTimeout, 15*time.Second),
		IdleTimeout:       nonZeroDuration(a.cfg.IdleTimeout, 60*time.Second),
		MaxHeaderBytes:    1 << 20,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.log.Info("server.start", "addr", a.cfg.HTTPAddr, "store", a.cfg.StoreDriver())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error("server.shutdown.fail", "err", err)
		}
		return nil
	})

	g.Go(func() error {
		a.gw.Bind(gctx, a.handler)
		if err := a.gw.Open(); err != nil {
			return fmt.Errorf("open gateway: %w", err)
		}
		a.log.Info("gateway.open")
		<-gctx.Done()
		if err := a.gw.Close(); err != nil {
			a.log.Warn("gateway.close.fail", "err", err)
		}
		return nil
	})

	g.Go(func() error { return a.janitor.Run(gctx) })

	err := g.Wait()
	a.closeResources()
	if err != nil {
		a.log.Error("app.fail", "err", err)
		return err
	}
	a.log.Info("app.stopped")
	return nil
}

// closeResources drains the mail queue before releasing storage.
func (a *App) closeResources() {
	if a.mailer != nil {
		a.mailer.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Error("store.close.fail", "err", err)
		}
	}
	if a.dbPool != nil {
		a.dbPool.Close()
	}
}

// newStore picks the registration store: Postgres, SQLite or in-memory.
func newStore(ctx context.Context, cfg Config, log Logger) (registration.Store, *pgxpool.Pool, error) {
	switch driver := cfg.StoreDriver(); driver {
	case StorePostgres:
		// The pool is owned here; PostgresStore.Close is a no-op.
		st, pool, err := openPostgres(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		log.Info("store.enabled", "driver", driver, "schema", cfg.DBSchema)
		return st, pool, nil
	case StoreSQLite:
		st, err := registration.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("store.enabled", "driver", driver, "path", cfg.SQLitePath)
		return st, nil, nil
	case StoreMemory:
		log.Warn("store.enabled", "driver", driver, "durable", false)
		return registration.NewMemoryStore(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func newSender(cfg Config) (mail.Sender, error) {
	r, err := mail.NewRenderer(cfg.MailTemplate)
	if err != nil {
		return nil, err
	}
	if cfg.SMTPHost == "" {
		return mail.LogSender{Renderer: r}, nil
	}
	return mail.NewSMTPSender(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
		Subject:  cfg.MailSubject,
	}, r)
}

func nonZeroDuration(v, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return v
}
