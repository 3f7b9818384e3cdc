package server

import (
	"slices"
	"strings"

	"github.com/jdnichols/parley/internal/types"
	"github.com/samber/lo"
)

const helpText = "/help\n" +
	"/login <user> <pwd>\n" +
	"/register <user> <pwd> <pwd>\n" +
	"/rooms\n" +
	"/who\n" +
	"/join <room>\n" +
	"/createroom <room> <open_join:true|false> <visible:true|false>\n" +
	"/editroom <room> <open_join:true|false> <visible:true|false>\n" +
	"/dm <user> <msg>\n" +
	"/approve <room> <user>\n" +
	"/deny <room> <user>\n"

// dispatch executes one request to completion, including every resulting
// reply and broadcast, before the loop picks up the next one. Only auth
// requests are reachable before the session authenticates.
func (cs *ChatServer) dispatch(c *Client, req request) {
	if auth, ok := req.(*authRequest); ok {
		cs.handleAuth(c, auth)
		return
	}

	if !c.authed {
		c.queueReply(errMsg("Please authenticate first (/login or /register)"))
		return
	}

	if acct, ok := cs.users[c.username]; ok {
		acct.lastActive = cs.now()
	}

	switch r := req.(type) {
	case *publishRequest:
		cs.handlePublish(c, r)
	case *directMessageRequest:
		cs.handleDirectMessage(c, r)
	case *createRoomRequest:
		cs.handleCreateRoom(c, r)
	case *editRoomRequest:
		cs.handleEditRoom(c, r)
	case *joinRequest:
		cs.handleJoin(c, r)
	case *approveRequest:
		cs.handleApprove(c, r)
	case *denyRequest:
		cs.handleDeny(c, r)
	case *listRoomsRequest:
		cs.handleListRooms(c)
	case *whoRequest:
		cs.handleWho(c, r)
	case *typingRequest:
		cs.handleTyping(c, r)
	case *historyRequest:
		cs.handleHistory(c, r)
	case *shutdownRoomRequest:
		cs.handleShutdownRoom(c, r)
	}
}

func (cs *ChatServer) handleAuth(c *Client, r *authRequest) {
	cs.log.Printf("sid=%s auth action=%s user=%q", c.sid, r.Action, r.Username)

	if r.Username == "" || r.Password == "" {
		c.queueReply(errMsg("username/password required"))
		return
	}

	switch r.Action {
	case "register":
		if _, exists := cs.users[r.Username]; exists {
			c.queueReply(errMsg("username exists"))
			return
		}

		passwordHash, err := hashPassword(r.Password)
		if err != nil {
			cs.log.Printf("sid=%s hash password: %v", c.sid, err)
			c.queueReply(errMsg("registration failed"))
			return
		}

		cs.users[r.Username] = &account{
			username:     r.Username,
			passwordHash: passwordHash,
			client:       c,
			lastActive:   cs.now(),
			status:       types.StatusOnline,
		}
		cs.attach(c, r.Username)
	case "login":
		acct, ok := cs.users[r.Username]
		if !ok || !verifyPassword(acct.passwordHash, r.Password) {
			c.queueReply(authFail("invalid credentials"))
			return
		}

		// a later login wins the connection handle; the older session's
		// cleanup will see it no longer owns the account
		acct.client = c
		acct.lastActive = cs.now()
		acct.status = types.StatusOnline
		cs.attach(c, r.Username)
	}
}

// attach completes a successful registration or login: the session becomes
// authenticated, the user auto-joins the default room and the join is
// announced there.
func (cs *ChatServer) attach(c *Client, username string) {
	c.username = username
	c.authed = true

	defaultRoom := cs.ensureRoom(cs.cfg.DefaultRoom)
	defaultRoom.addMember(username)

	c.queueReply(authOk("Logged in as " + username))
	cs.broadcastRoom(defaultRoom, roomJoin(defaultRoom.name, username))

	cs.snapshot()
}

func (cs *ChatServer) handlePublish(c *Client, r *publishRequest) {
	name := cs.resolveRoomName(r.Room)

	if r.Text == "/help" {
		c.queueReply(info(helpText))
		return
	}

	rm, ok := cs.rooms[name]
	if !ok {
		if !cs.cfg.CreateRoomOnPublish {
			c.queueReply(errMsg("room not found"))
			return
		}
		rm = cs.ensureRoom(name)
	}

	msg := types.Message{
		Type:     "message",
		Room:     name,
		Username: c.username,
		Text:     r.Text,
		Ts:       cs.now().Unix(),
	}
	cs.appendHistory(name, msg)
	cs.broadcastRoom(rm, msg)

	cs.snapshotRooms()
	cs.snapshotHistory()
}

func (cs *ChatServer) handleDirectMessage(c *Client, r *directMessageRequest) {
	if !cs.sendToUser(r.To, directMessage(c.username, r.Text)) {
		c.queueReply(errMsg("user not found or offline"))
		return
	}

	c.queueReply(directMessageSent(r.To, r.Text))
}

func (cs *ChatServer) handleCreateRoom(c *Client, r *createRoomRequest) {
	if _, exists := cs.rooms[r.Room]; exists {
		c.queueReply(errMsg("room exists"))
		return
	}

	rm := &room{
		name:     r.Room,
		admin:    c.username,
		openJoin: lo.FromPtrOr(r.OpenJoin, true),
		visible:  lo.FromPtrOr(r.Visible, true),
		members:  map[string]struct{}{c.username: {}},
		pending:  make(map[string]struct{}),
	}
	cs.rooms[r.Room] = rm
	cs.history[r.Room] = nil

	c.queueReply(roomCreated(r.Room))
	cs.snapshot()
}

func (cs *ChatServer) handleEditRoom(c *Client, r *editRoomRequest) {
	rm, ok := cs.rooms[r.Room]
	if !ok {
		c.queueReply(errMsg("room not found"))
		return
	}

	if rm.admin != c.username {
		c.queueReply(errMsg("only admin can edit"))
		return
	}

	rm.openJoin = lo.FromPtrOr(r.OpenJoin, rm.openJoin)
	rm.visible = lo.FromPtrOr(r.Visible, rm.visible)

	c.queueReply(roomUpdated(r.Room))
	cs.snapshotRooms()
}

func (cs *ChatServer) handleJoin(c *Client, r *joinRequest) {
	rm, ok := cs.rooms[r.Room]
	if !ok {
		c.queueReply(errMsg("room not found"))
		return
	}

	if rm.shutdown {
		c.queueReply(errMsg("room is shutdown"))
		return
	}

	if rm.openJoin || rm.isMember(c.username) {
		rm.addMember(c.username)
		c.queueReply(joined(r.Room))
		cs.broadcastRoom(rm, roomJoin(r.Room, c.username))
		cs.snapshotRooms()
		return
	}

	rm.markPending(c.username)
	cs.sendToUser(rm.admin, joinRequestNotice(r.Room, c.username))
	c.queueReply(requestAck(r.Room))
	cs.snapshotRooms()
}

func (cs *ChatServer) handleApprove(c *Client, r *approveRequest) {
	rm, ok := cs.rooms[r.Room]
	if !ok {
		c.queueReply(errMsg("room not found"))
		return
	}

	if rm.admin != c.username {
		c.queueReply(errMsg("only admin can approve"))
		return
	}

	if !rm.isPending(r.User) {
		c.queueReply(errMsg("user is not pending"))
		return
	}

	rm.addMember(r.User)
	cs.sendToUser(r.User, joined(r.Room))
	cs.snapshotRooms()
}

func (cs *ChatServer) handleDeny(c *Client, r *denyRequest) {
	rm, ok := cs.rooms[r.Room]
	if !ok {
		c.queueReply(errMsg("room not found"))
		return
	}

	if rm.admin != c.username {
		c.queueReply(errMsg("only admin can deny"))
		return
	}

	delete(rm.pending, r.User)
	cs.snapshotRooms()
}

func (cs *ChatServer) handleListRooms(c *Client) {
	visible := lo.Filter(lo.Values(cs.rooms), func(rm *room, _ int) bool {
		return rm.visible
	})

	infos := lo.Map(visible, func(rm *room, _ int) types.RoomInfo {
		return types.RoomInfo{
			Room:     rm.name,
			Admin:    rm.admin,
			OpenJoin: rm.openJoin,
			Visible:  rm.visible,
		}
	})
	sortRoomInfos(infos)

	c.queueReply(roomsList(infos))
}

func (cs *ChatServer) handleWho(c *Client, r *whoRequest) {
	name := cs.resolveRoomName(r.Room)

	rm, ok := cs.rooms[name]
	if !ok {
		c.queueReply(errMsg("room not found"))
		return
	}

	users := make([]types.MemberPresence, 0, len(rm.members))
	for _, username := range sortedSet(rm.members) {
		mp := types.MemberPresence{Username: username, Status: types.StatusOffline}
		if acct, ok := cs.users[username]; ok {
			mp.Status = acct.status
			mp.Activity = acct.activity
		}
		users = append(users, mp)
	}

	c.queueReply(presenceList(name, users))
}

func (cs *ChatServer) handleTyping(c *Client, r *typingRequest) {
	name := cs.resolveRoomName(r.Room)

	typists, ok := cs.typing[name]
	if !ok {
		typists = make(map[string]struct{})
		cs.typing[name] = typists
	}

	if lo.FromPtrOr(r.State, true) {
		typists[c.username] = struct{}{}
	} else {
		delete(typists, c.username)
	}

	if rm, ok := cs.rooms[name]; ok {
		cs.broadcastRoom(rm, typingUpdate(name, sortedSet(typists)))
	}
}

func (cs *ChatServer) handleHistory(c *Client, r *historyRequest) {
	name := cs.resolveRoomName(r.Room)
	c.queueReply(historyList(name, cs.roomHistory(name)))
}

func (cs *ChatServer) handleShutdownRoom(c *Client, r *shutdownRoomRequest) {
	rm, ok := cs.rooms[r.Room]
	if !ok {
		c.queueReply(errMsg("room not found"))
		return
	}

	if rm.admin != c.username {
		c.queueReply(errMsg("only admin can shutdown"))
		return
	}

	rm.shutdown = true
	cs.broadcastRoom(rm, info("Room "+r.Room+" shutdown by admin"))
	cs.snapshotRooms()
}

func sortRoomInfos(infos []types.RoomInfo) {
	slices.SortFunc(infos, func(a, b types.RoomInfo) int {
		return strings.Compare(a.Room, b.Room)
	})
}

// resolveRoomName applies the default-room fallback for requests that omit
// the room field.
func (cs *ChatServer) resolveRoomName(name string) string {
	if name == "" {
		return cs.cfg.DefaultRoom
	}
	return name
}
