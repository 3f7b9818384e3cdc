package server

import (
	"time"

	"github.com/jdnichols/parley/internal/types"
)

// checkPresence recomputes every account's presence tier. Connected
// accounts flip between online and idle around the configured threshold;
// accounts without a live connection are forced offline. Transitions are
// edge-triggered: a broadcast fires only when the tier actually changes,
// and only to rooms the account is a member of. The monitor never brings an
// offline account back online; only a login does that.
func (cs *ChatServer) checkPresence(now time.Time) {
	for username, acct := range cs.users {
		if acct.client == nil {
			// disconnect cleanup already notified the rooms
			acct.status = types.StatusOffline
			continue
		}

		next := types.StatusOnline
		if now.Sub(acct.lastActive) > cs.cfg.IdleTimeout {
			next = types.StatusIdle
		}

		if acct.status == next {
			continue
		}
		acct.status = next

		for _, rm := range cs.rooms {
			if rm.isMember(username) {
				cs.broadcastRoom(rm, presenceUpdate(username, next))
			}
		}
	}
}
