package server

import (
	"slices"

	"github.com/jdnichols/parley/internal/store"
	"github.com/samber/lo"
)

// The snapshot functions project loop-owned state into the durable
// representation and hand it to the store. A failed write is logged and
// swallowed; the server keeps running on in-memory state.

func (cs *ChatServer) snapshot() {
	cs.snapshotAccounts()
	cs.snapshotRooms()
	cs.snapshotHistory()
}

func (cs *ChatServer) snapshotAccounts() {
	dump := make(map[string]store.Account, len(cs.users))
	for username, acct := range cs.users {
		dump[username] = store.Account{Password: acct.passwordHash}
	}

	if err := cs.store.SaveAccounts(dump); err != nil {
		cs.log.Printf("save accounts: %v", err)
	}
}

func (cs *ChatServer) snapshotRooms() {
	dump := make(map[string]store.Room, len(cs.rooms))
	for name, rm := range cs.rooms {
		dump[name] = store.Room{
			Admin:    rm.admin,
			OpenJoin: rm.openJoin,
			Visible:  rm.visible,
			Members:  sortedSet(rm.members),
			Pending:  sortedSet(rm.pending),
			Shutdown: rm.shutdown,
		}
	}

	if err := cs.store.SaveRooms(dump); err != nil {
		cs.log.Printf("save rooms: %v", err)
	}
}

func (cs *ChatServer) snapshotHistory() {
	if err := cs.store.SaveHistory(cs.history); err != nil {
		cs.log.Printf("save history: %v", err)
	}
}

// sortedSet flattens a username set into a deterministic list so snapshot
// files diff cleanly between rewrites.
func sortedSet(set map[string]struct{}) []string {
	usernames := lo.Keys(set)
	slices.Sort(usernames)
	return usernames
}
