package registration

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps registrations in process memory. Used in tests and when
// REGBOT_STORE=memory.
type MemoryStore struct {
	mu      sync.Mutex
	pending map[string]PendingRegistration
	audit   []AuditEntry
	now     func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pending: make(map[string]PendingRegistration),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) Save(ctx context.Context, rec PendingRegistration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !validRecord(rec) {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[rec.InviteKey] = rec
	s.audit = append(s.audit, AuditEntry{
		ID:          int64(len(s.audit) + 1),
		InviteKey:   rec.InviteKey,
		DisplayName: rec.DisplayName,
		TeamID:      rec.TeamID,
		Email:       rec.Email,
		CreatedAt:   s.now(),
	})
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, inviteKey string) (PendingRegistration, error) {
	if err := ctx.Err(); err != nil {
		return PendingRegistration{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.pending[inviteKey]
	if !ok {
		return PendingRegistration{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Delete(ctx context.Context, inviteKey string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.pending[inviteKey]; !ok {
		return ErrNotFound
	}
	delete(s.pending, inviteKey)
	return nil
}

func (s *MemoryStore) AuditLog(ctx context.Context) ([]AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]AuditEntry(nil), s.audit...), nil
}

// Len returns the number of pending registrations.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

func (s *MemoryStore) Ping(ctx context.Context) error { return ctx.Err() }

func (s *MemoryStore) Close() error { return nil }
