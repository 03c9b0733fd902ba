package invite

import "regbot/cmd/internal/platform"

// Resolve picks the invite a join consumed: the first invite in after, in
// platform order, that is known in before and whose use count grew. Invites
// absent from before are never matched.
func Resolve(before map[string]int, after []platform.Invite) (platform.Invite, bool) {
	for _, inv := range after {
		prev, ok := before[inv.Code]
		if ok && inv.Uses > prev {
			return inv, true
		}
	}
	return platform.Invite{}, false
}
