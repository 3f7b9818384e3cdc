package server

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/jdnichols/parley/internal/types"
)

var (
	errMalformedRequest   = errors.New("malformed request")
	errUnknownRequestType = errors.New("unknown request type")

	validate = validator.New()
)

// request is a parsed, validated inbound protocol message. The wire shape
// is a flat JSON object with a "type" discriminator; parseRequest turns it
// into exactly one of the closed set of variants below.
type request interface {
	reqType() string
}

type authRequest struct {
	Action   string `json:"action" validate:"required,oneof=login register"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type publishRequest struct {
	Room string `json:"room"`
	Text string `json:"text"`
}

type directMessageRequest struct {
	To   string `json:"to" validate:"required"`
	Text string `json:"text"`
}

type createRoomRequest struct {
	Room     string `json:"room" validate:"required"`
	OpenJoin *bool  `json:"open_join"`
	Visible  *bool  `json:"visible"`
}

type editRoomRequest struct {
	Room     string `json:"room" validate:"required"`
	OpenJoin *bool  `json:"open_join"`
	Visible  *bool  `json:"visible"`
}

type joinRequest struct {
	Room string `json:"room" validate:"required"`
}

type approveRequest struct {
	Room string `json:"room" validate:"required"`
	User string `json:"user" validate:"required"`
}

type denyRequest struct {
	Room string `json:"room" validate:"required"`
	User string `json:"user" validate:"required"`
}

type listRoomsRequest struct{}

type whoRequest struct {
	Room string `json:"room"`
}

type typingRequest struct {
	Room  string `json:"room"`
	State *bool  `json:"state"`
}

type historyRequest struct {
	Room string `json:"room"`
}

type shutdownRoomRequest struct {
	Room string `json:"room" validate:"required"`
}

func (*authRequest) reqType() string          { return "auth" }
func (*publishRequest) reqType() string       { return "message" }
func (*directMessageRequest) reqType() string { return "dm" }
func (*createRoomRequest) reqType() string    { return "createroom" }
func (*editRoomRequest) reqType() string      { return "editroom" }
func (*joinRequest) reqType() string          { return "join" }
func (*approveRequest) reqType() string       { return "approve" }
func (*denyRequest) reqType() string          { return "deny" }
func (*listRoomsRequest) reqType() string     { return "rooms" }
func (*whoRequest) reqType() string           { return "who" }
func (*typingRequest) reqType() string        { return "typing" }
func (*historyRequest) reqType() string       { return "history" }
func (*shutdownRoomRequest) reqType() string  { return "shutdown" }

// parseRequest decodes and validates a raw inbound frame. It returns
// errMalformedRequest for payloads that are not well-formed JSON objects,
// errUnknownRequestType for unrecognized discriminators, and a validation
// error when a recognized request is missing required fields.
func parseRequest(raw []byte) (request, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, errMalformedRequest
	}

	var req request
	switch envelope.Type {
	case "auth":
		req = &authRequest{}
	case "message":
		req = &publishRequest{}
	case "dm":
		req = &directMessageRequest{}
	case "createroom":
		req = &createRoomRequest{}
	case "editroom":
		req = &editRoomRequest{}
	case "join":
		req = &joinRequest{}
	case "approve":
		req = &approveRequest{}
	case "deny":
		req = &denyRequest{}
	case "rooms":
		req = &listRoomsRequest{}
	case "who":
		req = &whoRequest{}
	case "typing":
		req = &typingRequest{}
	case "history":
		req = &historyRequest{}
	case "shutdown":
		req = &shutdownRoomRequest{}
	default:
		return nil, errUnknownRequestType
	}

	if err := json.Unmarshal(raw, req); err != nil {
		return nil, errMalformedRequest
	}

	if err := validate.Struct(req); err != nil {
		return nil, fmt.Errorf("invalid %q request: %w", envelope.Type, err)
	}

	return req, nil
}

// Reply types. One struct per outbound message kind; the "type" value is
// fixed by the corresponding constructor so handlers cannot mislabel a
// reply.

type infoReply struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

type errorReply struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

type authOkReply struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

type authFailReply struct {
	Type string `json:"type"`
	Msg  string `json:"msg"`
}

type roomJoinReply struct {
	Type     string `json:"type"`
	Room     string `json:"room"`
	Username string `json:"username"`
}

type dmReply struct {
	Type string `json:"type"`
	From string `json:"from"`
	Text string `json:"text"`
}

type dmSentReply struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Text string `json:"text"`
}

type roomCreatedReply struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

type roomUpdatedReply struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

type joinedReply struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

type requestAckReply struct {
	Type string `json:"type"`
	Room string `json:"room"`
}

type joinRequestReply struct {
	Type string `json:"type"`
	Room string `json:"room"`
	User string `json:"user"`
}

type roomsListReply struct {
	Type  string           `json:"type"`
	Rooms []types.RoomInfo `json:"rooms"`
}

type presenceReply struct {
	Type  string                 `json:"type"`
	Room  string                 `json:"room"`
	Users []types.MemberPresence `json:"users"`
}

type presenceUpdateReply struct {
	Type   string       `json:"type"`
	User   string       `json:"user"`
	Status types.Status `json:"status"`
}

type typingReply struct {
	Type  string   `json:"type"`
	Room  string   `json:"room"`
	Users []string `json:"users"`
}

type historyReply struct {
	Type     string          `json:"type"`
	Room     string          `json:"room"`
	Messages []types.Message `json:"messages"`
}

func info(msg string) infoReply        { return infoReply{Type: "info", Msg: msg} }
func errMsg(msg string) errorReply     { return errorReply{Type: "error", Msg: msg} }
func authOk(msg string) authOkReply    { return authOkReply{Type: "auth_ok", Msg: msg} }
func authFail(msg string) authFailReply { return authFailReply{Type: "auth_fail", Msg: msg} }

func roomJoin(room, username string) roomJoinReply {
	return roomJoinReply{Type: "room_join", Room: room, Username: username}
}

func directMessage(from, text string) dmReply {
	return dmReply{Type: "dm", From: from, Text: text}
}

func directMessageSent(to, text string) dmSentReply {
	return dmSentReply{Type: "dm_sent", To: to, Text: text}
}

func roomCreated(room string) roomCreatedReply {
	return roomCreatedReply{Type: "room_created", Room: room}
}

func roomUpdated(room string) roomUpdatedReply {
	return roomUpdatedReply{Type: "room_updated", Room: room}
}

func joined(room string) joinedReply {
	return joinedReply{Type: "joined", Room: room}
}

func requestAck(room string) requestAckReply {
	return requestAckReply{Type: "request_ack", Room: room}
}

func joinRequestNotice(room, user string) joinRequestReply {
	return joinRequestReply{Type: "join_request", Room: room, User: user}
}

func roomsList(rooms []types.RoomInfo) roomsListReply {
	return roomsListReply{Type: "rooms_list", Rooms: rooms}
}

func presenceList(room string, users []types.MemberPresence) presenceReply {
	return presenceReply{Type: "presence", Room: room, Users: users}
}

func presenceUpdate(user string, status types.Status) presenceUpdateReply {
	return presenceUpdateReply{Type: "presence_update", User: user, Status: status}
}

func typingUpdate(room string, users []string) typingReply {
	return typingReply{Type: "typing", Room: room, Users: users}
}

func historyList(room string, messages []types.Message) historyReply {
	return historyReply{Type: "history", Room: room, Messages: messages}
}
