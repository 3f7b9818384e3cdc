package server

import "github.com/jdnichols/parley/internal/types"

// appendHistory records a message in the room's bounded log, evicting the
// oldest entry once the configured limit is reached.
func (cs *ChatServer) appendHistory(name string, msg types.Message) {
	entries := append(cs.history[name], msg)
	if len(entries) > cs.cfg.HistoryLimit {
		entries = entries[len(entries)-cs.cfg.HistoryLimit:]
	}
	cs.history[name] = entries
}

// roomHistory returns the room's current log; an unknown room yields an
// empty list.
func (cs *ChatServer) roomHistory(name string) []types.Message {
	msgs := cs.history[name]
	if msgs == nil {
		return []types.Message{}
	}
	return msgs
}
