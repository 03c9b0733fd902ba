package invite

import "errors"

var (
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnattributedJoin: no cached invite's use count increased for the join.
	ErrUnattributedJoin = errors.New("join not attributable to a tracked invite")
	// ErrStaleInvite: the consumed invite has no pending registration.
	ErrStaleInvite = errors.New("invite has no pending registration")
)

// IsSilent reports whether err is an expected reconciliation no-op that should
// not be surfaced as a failure.
func IsSilent(err error) bool {
	return errors.Is(err, ErrUnattributedJoin) || errors.Is(err, ErrStaleInvite)
}
