// Package server implements the chat engine: the per-connection session
// dispatcher, the room/membership state machine, presence and typing
// bookkeeping, bounded room history and the durable snapshot hooks.
//
// All shared state (users, rooms, history, typing) is owned by the single
// goroutine running ChatServer.Run. Client pumps only parse frames and
// queue outbound bytes; every mutation happens inside the loop, one request
// to completion at a time, which is what makes the maps safe without locks.
package server

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/jdnichols/parley/internal/config"
	"github.com/jdnichols/parley/internal/stats"
	"github.com/jdnichols/parley/internal/store"
	"github.com/jdnichols/parley/internal/types"
)

// Store is the persistence seam for the three snapshot sections.
type Store interface {
	Load() *store.State
	SaveAccounts(map[string]store.Account) error
	SaveRooms(map[string]store.Room) error
	SaveHistory(map[string][]types.Message) error
}

// envelope pairs a parsed request with the connection it arrived on.
type envelope struct {
	client *Client
	req    request
}

type ChatServer struct {
	log   *log.Logger
	cfg   *config.Config
	store Store
	stats stats.StatsProvider

	// Loop-owned state. Never touch outside Run.
	clients map[*Client]struct{}
	users   map[string]*account
	rooms   map[string]*room
	history map[string][]types.Message
	typing  map[string]map[string]struct{}

	register   chan *Client
	deregister chan *Client
	inbound    chan *envelope

	now  func() time.Time
	stop chan struct{}
	done chan struct{}
}

func NewChatServer(logger *log.Logger, cfg *config.Config, st Store, sp stats.StatsProvider) (*ChatServer, error) {
	cs := &ChatServer{
		log:        logger,
		cfg:        cfg,
		store:      st,
		stats:      sp,
		clients:    make(map[*Client]struct{}),
		users:      make(map[string]*account),
		rooms:      make(map[string]*room),
		history:    make(map[string][]types.Message),
		typing:     make(map[string]map[string]struct{}),
		register:   make(chan *Client),
		deregister: make(chan *Client),
		inbound:    make(chan *envelope),
		now:        time.Now,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}

	cs.restore(st.Load())
	cs.ensureRoom(cfg.DefaultRoom)

	return cs, nil
}

// Run is the cooperative scheduler: it multiplexes session requests,
// connection lifecycle events and presence ticks, executing exactly one
// unit of work at a time against the shared state.
func (cs *ChatServer) Run() {
	ticker := time.NewTicker(cs.cfg.PresenceInterval)
	defer ticker.Stop()

	for {
		select {
		case c := <-cs.register:
			cs.clients[c] = struct{}{}
			cs.stats.Incr(stats.ActiveConnections)
			cs.log.Printf("sid=%s connected", c.sid)
			c.queueReply(info("Connected. Please /login or /register."))
		case c := <-cs.deregister:
			cs.disconnect(c)
		case env := <-cs.inbound:
			cs.dispatch(env.client, env.req)
		case <-ticker.C:
			cs.checkPresence(cs.now())
		case <-cs.stop:
			cs.log.Println("stopping chat server")
			for c := range cs.clients {
				c.stopClient()
			}
			cs.snapshot()
			close(cs.done)
			return
		}
	}
}

// Register hands a new connection to the server loop.
func (cs *ChatServer) Register(c *Client) {
	select {
	case cs.register <- c:
	case <-cs.done:
	}
}

// Shutdown stops the loop after a final snapshot. It returns early with the
// context's error if the loop does not finish in time.
func (cs *ChatServer) Shutdown(ctx context.Context) error {
	close(cs.stop)

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// disconnect finalizes a terminated session: the account's connection
// handle is released, status forced offline and every room the account
// belongs to is notified. Unauthenticated sessions need no cleanup beyond
// dropping the client.
func (cs *ChatServer) disconnect(c *Client) {
	if _, ok := cs.clients[c]; !ok {
		return
	}
	delete(cs.clients, c)
	cs.stats.Decr(stats.ActiveConnections)
	cs.log.Printf("sid=%s disconnected", c.sid)

	if !c.authed {
		return
	}

	acct, ok := cs.users[c.username]
	if !ok || acct.client != c {
		// the account was rebound to a newer session by a later login
		return
	}

	acct.client = nil
	acct.status = types.StatusOffline

	for _, rm := range cs.rooms {
		if rm.isMember(acct.username) {
			cs.broadcastRoom(rm, info(acct.username+" disconnected"))
		}
	}

	cs.snapshot()
}

// broadcastRoom serializes the message once and fans it out to every
// currently connected member. Delivery failure to one peer never affects
// the rest.
func (cs *ChatServer) broadcastRoom(rm *room, v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		cs.log.Printf("marshal broadcast for room %q: %v", rm.name, err)
		return
	}

	for username := range rm.members {
		if acct, ok := cs.users[username]; ok && acct.client != nil {
			acct.client.queueMessage(msg)
		}
	}
}

// sendToUser delivers a unicast message to the user's live connection, if
// any. It reports whether the user was reachable.
func (cs *ChatServer) sendToUser(username string, v any) bool {
	acct, ok := cs.users[username]
	if !ok || acct.client == nil {
		return false
	}

	return acct.client.queueReply(v)
}
