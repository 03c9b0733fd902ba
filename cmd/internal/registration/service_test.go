package registration

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"regbot/cmd/internal/mail"
	"regbot/cmd/internal/platform"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubIssuer struct {
	n       int
	err     error
	revoked []string
}

func (s *stubIssuer) Issue(_ context.Context, channelID string) (platform.Invite, error) {
	if s.err != nil {
		return platform.Invite{}, s.err
	}
	s.n++
	return platform.Invite{Code: fmt.Sprintf("code%d", s.n), ChannelID: channelID, MaxUses: 2}, nil
}

func (s *stubIssuer) Revoke(_ context.Context, code string) error {
	s.revoked = append(s.revoked, code)
	return nil
}

type stubMailer struct {
	got []mail.Invitation
	err error
}

func (m *stubMailer) Submit(_ context.Context, inv mail.Invitation) <-chan error {
	m.got = append(m.got, inv)
	ch := make(chan error, 1)
	ch <- m.err
	return ch
}

type failingStore struct{ *MemoryStore }

func (failingStore) Save(context.Context, PendingRegistration) error { return errors.New("disk full") }

func TestService_Register(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	issuer := &stubIssuer{}
	mailer := &stubMailer{}
	svc, err := NewService(store, issuer, "rules", WithMailer(mailer))
	require.NoError(t, err)

	ctx := context.Background()
	seen := map[string]bool{}
	for i, in := range []Input{
		{Name: "ada", Email: "a@b.co", TeamID: "A7"},
		{Name: "bob", Email: "bob@b.co", TeamID: "B120"},
		{Name: "cy", Email: "cy@b.co", TeamID: "A7"},
	} {
		res, err := svc.Register(ctx, in)
		require.NoError(t, err, "input %d", i)
		assert.False(t, seen[res.Registration.InviteKey], "invite key reused")
		seen[res.Registration.InviteKey] = true
		assert.Equal(t, platform.InviteBaseURL+res.Invite.Code, res.Registration.InviteKey)
		assert.NotEmpty(t, res.RequestID)
		require.NoError(t, <-res.Delivery)
	}

	assert.Equal(t, 3, store.Len())
	log, err := store.AuditLog(ctx)
	require.NoError(t, err)
	assert.Len(t, log, 3)

	require.Len(t, mailer.got, 3)
	assert.Equal(t, "Ada", mailer.got[0].Name)
	assert.Equal(t, "A007", mailer.got[0].TeamID)
}

func TestService_Register_ValidationBeforeInvite(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	issuer := &stubIssuer{}
	svc, err := NewService(store, issuer, "rules")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), Input{Name: "ada", Email: "not-an-email", TeamID: "A1"})
	require.ErrorIs(t, err, ErrValidation)
	assert.Zero(t, issuer.n, "no invite may be created for invalid input")
	assert.Zero(t, store.Len())
}

func TestService_Register_IssueFailure(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	issuer := &stubIssuer{err: platform.Wrap("CreateInvite", errors.New("rate limited"))}
	svc, err := NewService(store, issuer, "rules")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), Input{Name: "ada", Email: "a@b.co", TeamID: "A1"})
	require.ErrorIs(t, err, platform.ErrPlatform)
	assert.Zero(t, store.Len())
}

func TestService_Register_SaveFailureRevokes(t *testing.T) {
	t.Parallel()

	issuer := &stubIssuer{}
	svc, err := NewService(failingStore{NewMemoryStore()}, issuer, "rules")
	require.NoError(t, err)

	_, err = svc.Register(context.Background(), Input{Name: "ada", Email: "a@b.co", TeamID: "A1"})
	require.Error(t, err)
	assert.Equal(t, []string{"code1"}, issuer.revoked)
}

func TestService_Register_DeliveryFailureKeepsRegistration(t *testing.T) {
	t.Parallel()

	store := NewMemoryStore()
	svc, err := NewService(store, &stubIssuer{}, "rules", WithMailer(&stubMailer{err: mail.ErrDelivery}))
	require.NoError(t, err)

	res, err := svc.Register(context.Background(), Input{Name: "ada", Email: "a@b.co", TeamID: "A1"})
	require.NoError(t, err)
	require.ErrorIs(t, <-res.Delivery, mail.ErrDelivery)
	assert.Equal(t, 1, store.Len())
}

func TestNewService_InvalidInput(t *testing.T) {
	t.Parallel()

	_, err := NewService(nil, &stubIssuer{}, "c")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = NewService(NewMemoryStore(), nil, "c")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = NewService(NewMemoryStore(), &stubIssuer{}, "")
	require.ErrorIs(t, err, ErrInvalidInput)
	_, err = NewService(NewMemoryStore(), &stubIssuer{}, "c", WithLogger(nil))
	require.ErrorIs(t, err, ErrInvalidInput)
}
