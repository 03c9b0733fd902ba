package registration

import (
	"context"
)

// Store is the persistence boundary for pending registrations and the invite audit log.
type Store interface {
	// Save upserts rec by invite key and appends an audit entry in one unit.
	Save(ctx context.Context, rec PendingRegistration) error
	// Get returns ErrNotFound when no record exists for inviteKey.
	Get(ctx context.Context, inviteKey string) (PendingRegistration, error)
	// Delete returns ErrNotFound when no record exists for inviteKey.
	Delete(ctx context.Context, inviteKey string) error
	// AuditLog returns audit entries oldest first.
	AuditLog(ctx context.Context) ([]AuditEntry, error)
	Ping(ctx context.Context) error
	Close() error
}

func validRecord(rec PendingRegistration) bool {
	return rec.InviteKey != "" && rec.DisplayName != "" && rec.TeamID != "" && rec.Email != ""
}
