package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultDelay spaces posts to stay under the webhook rate limit.
const DefaultDelay = 10 * time.Second

// Poster sends register commands to a Discord webhook.
type Poster struct {
	url    string
	client *resty.Client
	delay  time.Duration
	dryRun bool
	log    *slog.Logger
}

type Option func(*Poster) error

// WithDelay sets the pause between rows. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(p *Poster) error {
		if d < 0 {
			return fmt.Errorf("%w: negative delay", ErrInvalidInput)
		}
		p.delay = d
		return nil
	}
}

// WithDryRun logs commands instead of posting them.
func WithDryRun(on bool) Option {
	return func(p *Poster) error {
		p.dryRun = on
		return nil
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Poster) error {
		if l == nil {
			return fmt.Errorf("%w: nil logger", ErrInvalidInput)
		}
		p.log = l
		return nil
	}
}

// WithTimeout bounds a single webhook request.
func WithTimeout(d time.Duration) Option {
	return func(p *Poster) error {
		if d <= 0 {
			return fmt.Errorf("%w: timeout must be positive", ErrInvalidInput)
		}
		p.client.SetTimeout(d)
		return nil
	}
}

// NewPoster builds a Poster for webhookURL.
func NewPoster(webhookURL string, opts ...Option) (*Poster, error) {
	webhookURL = strings.TrimSpace(webhookURL)
	if webhookURL == "" {
		return nil, fmt.Errorf("%w: webhook url is required", ErrInvalidInput)
	}
	p := &Poster{
		url:    webhookURL,
		client: resty.New().SetTimeout(15 * time.Second),
		delay:  DefaultDelay,
		log:    slog.Default(),
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// Post sends one message. Discord answers 204 on success.
func (p *Poster) Post(ctx context.Context, content string) error {
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"content": content}).
		Post(p.url)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	if resp.StatusCode() == http.StatusNoContent {
		return nil
	}

	var body struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(resp.Body(), &body) == nil && body.Message != "" {
		return fmt.Errorf("%w: status %d: %s", ErrRejected, resp.StatusCode(), body.Message)
	}
	return fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode())
}

// Report summarizes an import run.
type Report struct {
	Sent    int
	Failed  int
	Dropped int
}

// Run posts every row, waiting the configured delay after each one. A failed
// row is logged and counted; the run continues. Cancellation stops the run.
func (p *Poster) Run(ctx context.Context, rows []Row) (Report, error) {
	var rep Report
	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return rep, err
		}

		cmd := row.Command()
		switch {
		case p.dryRun:
			p.log.Info("importer.row.dry_run", "line", row.Line, "content", cmd)
			rep.Sent++
		default:
			if err := p.Post(ctx, cmd); err != nil {
				rep.Failed++
				p.log.Warn("importer.row.fail", "line", row.Line, "team_id", row.TeamID, "err", err)
			} else {
				rep.Sent++
				p.log.Info("importer.row.sent", "line", row.Line, "team_id", row.TeamID)
			}
		}

		if i == len(rows)-1 || p.delay == 0 || p.dryRun {
			continue
		}
		t := time.NewTimer(p.delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return rep, ctx.Err()
		case <-t.C:
		}
	}
	return rep, nil
}
