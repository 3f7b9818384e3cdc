package server

import (
	"time"

	"github.com/jdnichols/parley/internal/store"
	"github.com/jdnichols/parley/internal/types"
)

// account is a user directory record: durable identity plus the runtime
// attributes of the current session, if any.
type account struct {
	username     string
	passwordHash string
	client       *Client // nil when offline
	lastActive   time.Time
	status       types.Status
	activity     string
}

// room holds the registry record for one messaging scope. members and
// pending are disjoint at all times: addMember clears any pending request
// and markPending refuses existing members.
type room struct {
	name     string
	admin    string // empty for implicitly created rooms
	openJoin bool
	visible  bool
	shutdown bool
	members  map[string]struct{}
	pending  map[string]struct{}
}

func (r *room) isMember(username string) bool {
	_, ok := r.members[username]
	return ok
}

func (r *room) isPending(username string) bool {
	_, ok := r.pending[username]
	return ok
}

func (r *room) addMember(username string) {
	delete(r.pending, username)
	r.members[username] = struct{}{}
}

func (r *room) markPending(username string) {
	if r.isMember(username) {
		return
	}
	r.pending[username] = struct{}{}
}

// ensureRoom resolves a room by name, creating it with the default policy
// (no admin, open join, visible) when absent. This is the lazy-creation
// path behind the default room and, when enabled, publishing to unknown
// rooms.
func (cs *ChatServer) ensureRoom(name string) *room {
	if rm, ok := cs.rooms[name]; ok {
		return rm
	}

	rm := &room{
		name:     name,
		openJoin: true,
		visible:  true,
		members:  make(map[string]struct{}),
		pending:  make(map[string]struct{}),
	}
	cs.rooms[name] = rm
	cs.history[name] = nil

	return rm
}

// restore rebuilds the in-memory state from a snapshot. Runtime fields
// reset to their defaults: no connection, offline, zero activity. Persisted
// history longer than the configured bound keeps only the most recent
// entries.
func (cs *ChatServer) restore(st *store.State) {
	for username, acct := range st.Accounts {
		cs.users[username] = &account{
			username:     username,
			passwordHash: acct.Password,
			status:       types.StatusOffline,
		}
	}

	for name, stored := range st.Rooms {
		rm := &room{
			name:     name,
			admin:    stored.Admin,
			openJoin: stored.OpenJoin,
			visible:  stored.Visible,
			shutdown: stored.Shutdown,
			members:  make(map[string]struct{}, len(stored.Members)),
			pending:  make(map[string]struct{}, len(stored.Pending)),
		}
		for _, m := range stored.Members {
			rm.members[m] = struct{}{}
		}
		for _, p := range stored.Pending {
			// membership wins if a snapshot ever recorded both
			if !rm.isMember(p) {
				rm.pending[p] = struct{}{}
			}
		}
		cs.rooms[name] = rm
	}

	for name, msgs := range st.History {
		if len(msgs) > cs.cfg.HistoryLimit {
			msgs = msgs[len(msgs)-cs.cfg.HistoryLimit:]
		}
		cs.history[name] = msgs
	}
}
