package registration

import (
	"context"
	"fmt"
	"log/slog"

	"regbot/cmd/internal/ids"
	"regbot/cmd/internal/mail"
	"regbot/cmd/internal/metrics"
	"regbot/cmd/internal/platform"
)

// Issuer creates and revokes registration invites.
type Issuer interface {
	Issue(ctx context.Context, channelID string) (platform.Invite, error)
	Revoke(ctx context.Context, code string) error
}

// Mailer queues invitation emails; the channel yields the delivery result.
type Mailer interface {
	Submit(ctx context.Context, inv mail.Invitation) <-chan error
}

// Result is a successful registration.
type Result struct {
	RequestID    string
	Registration PendingRegistration
	Invite       platform.Invite
	// Delivery yields exactly one email result. Failures do not undo the registration.
	Delivery <-chan error
}

// Service runs the registration flow: validate, issue invite, persist, email.
type Service struct {
	store           Store
	issuer          Issuer
	mailer          Mailer
	log             *slog.Logger
	metrics         *metrics.Metrics
	inviteChannelID string
}

// Option configures the Service.
type Option func(*Service) error

// WithMailer enables invitation emails.
func WithMailer(m Mailer) Option {
	return func(s *Service) error {
		s.mailer = m
		return nil
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) error {
		if l == nil {
			return ErrInvalidInput
		}
		s.log = l
		return nil
	}
}

// WithMetrics records registration results.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) error {
		s.metrics = m
		return nil
	}
}

// NewService constructs a Service that issues invites on inviteChannelID.
func NewService(store Store, issuer Issuer, inviteChannelID string, opts ...Option) (*Service, error) {
	if store == nil || issuer == nil || inviteChannelID == "" {
		return nil, ErrInvalidInput
	}
	s := &Service{
		store:           store,
		issuer:          issuer,
		log:             slog.Default(),
		inviteChannelID: inviteChannelID,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Register validates in, issues a fresh invite and persists the pending record
// plus its audit entry. Validation happens before any invite exists. If
// persistence fails the invite is revoked best-effort and the error returned.
func (s *Service) Register(ctx context.Context, in Input) (Result, error) {
	if s == nil {
		return Result{}, ErrInvalidInput
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	norm, err := Normalize(in)
	if err != nil {
		s.metrics.IncRegistration(metrics.RegistrationInvalid)
		return Result{}, err
	}

	reqID := ids.New()
	log := s.log.With("request_id", reqID, "team_id", norm.TeamID, "email_fp", EmailFingerprint(norm.Email))

	inv, err := s.issuer.Issue(ctx, s.inviteChannelID)
	if err != nil {
		s.metrics.IncRegistration(metrics.RegistrationFailed)
		log.Error("registration.issue.fail", "err", err)
		return Result{}, fmt.Errorf("issue invite: %w", err)
	}

	rec := PendingRegistration{
		InviteKey:   inv.URL(),
		DisplayName: norm.Name,
		TeamID:      norm.TeamID,
		Email:       norm.Email,
	}
	if err := s.store.Save(ctx, rec); err != nil {
		s.metrics.IncRegistration(metrics.RegistrationFailed)
		if rerr := s.issuer.Revoke(context.WithoutCancel(ctx), inv.Code); rerr != nil {
			log.Warn("registration.revoke.fail", "invite_code", inv.Code, "err", rerr)
		}
		log.Error("registration.save.fail", "invite_code", inv.Code, "err", err)
		return Result{}, fmt.Errorf("save registration: %w", err)
	}

	s.metrics.IncRegistration(metrics.RegistrationOK)
	log.Info("registration.created", "invite_code", inv.Code)

	return Result{
		RequestID:    reqID,
		Registration: rec,
		Invite:       inv,
		Delivery:     s.deliver(ctx, rec),
	}, nil
}

func (s *Service) deliver(ctx context.Context, rec PendingRegistration) <-chan error {
	if s.mailer == nil {
		done := make(chan error, 1)
		done <- nil
		return done
	}
	return s.mailer.Submit(ctx, mail.Invitation{
		To:         rec.Email,
		Name:       rec.DisplayName,
		TeamID:     rec.TeamID,
		InviteLink: rec.InviteKey,
	})
}
