package server

import (
	"encoding/json"
	"testing"

	"github.com/jdnichols/parley/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest(t *testing.T) {
	t.Run("malformed payload", func(t *testing.T) {
		_, err := parseRequest([]byte("not json"))
		assert.ErrorIs(t, err, errMalformedRequest, "expected malformed payloads to be flagged")
	})

	t.Run("unknown discriminator", func(t *testing.T) {
		_, err := parseRequest([]byte(`{"type":"teleport","room":"general"}`))
		assert.ErrorIs(t, err, errUnknownRequestType, "expected unknown types to be flagged")
	})

	t.Run("message request", func(t *testing.T) {
		req, err := parseRequest([]byte(`{"type":"message","room":"general","text":"hi"}`))
		require.NoError(t, err)

		pub, ok := req.(*publishRequest)
		require.True(t, ok, "expected a publish request")
		assert.Equal(t, "general", pub.Room)
		assert.Equal(t, "hi", pub.Text)
	})

	t.Run("message request without room", func(t *testing.T) {
		req, err := parseRequest([]byte(`{"type":"message","text":"hi"}`))
		require.NoError(t, err, "room is optional on message requests")

		pub := req.(*publishRequest)
		assert.Empty(t, pub.Room, "expected empty room to be left for the default")
	})

	t.Run("join request requires room", func(t *testing.T) {
		_, err := parseRequest([]byte(`{"type":"join"}`))
		assert.Error(t, err, "expected join without room to fail validation")
		assert.NotErrorIs(t, err, errMalformedRequest)
		assert.NotErrorIs(t, err, errUnknownRequestType)
	})

	t.Run("approve request requires room and user", func(t *testing.T) {
		_, err := parseRequest([]byte(`{"type":"approve","room":"vip"}`))
		assert.Error(t, err, "expected approve without user to fail validation")
	})

	t.Run("auth request requires known action", func(t *testing.T) {
		_, err := parseRequest([]byte(`{"type":"auth","action":"impersonate","username":"u","password":"p"}`))
		assert.Error(t, err, "expected unknown auth action to fail validation")
	})

	t.Run("createroom defaults are left unset", func(t *testing.T) {
		req, err := parseRequest([]byte(`{"type":"createroom","room":"vip"}`))
		require.NoError(t, err)

		cr := req.(*createRoomRequest)
		assert.Nil(t, cr.OpenJoin, "expected absent open_join to stay nil")
		assert.Nil(t, cr.Visible, "expected absent visible to stay nil")
	})

	t.Run("editroom keeps absent fields distinguishable", func(t *testing.T) {
		req, err := parseRequest([]byte(`{"type":"editroom","room":"vip","open_join":false}`))
		require.NoError(t, err)

		er := req.(*editRoomRequest)
		require.NotNil(t, er.OpenJoin)
		assert.False(t, *er.OpenJoin)
		assert.Nil(t, er.Visible, "expected absent visible to stay nil")
	})

	t.Run("typing state defaults to nil", func(t *testing.T) {
		req, err := parseRequest([]byte(`{"type":"typing","room":"general"}`))
		require.NoError(t, err)

		tr := req.(*typingRequest)
		assert.Nil(t, tr.State)
	})
}

func TestReplyConstructors(t *testing.T) {
	tests := []struct {
		name     string
		reply    any
		expected string
	}{
		{"info", info("hello"), `{"type":"info","msg":"hello"}`},
		{"error", errMsg("room not found"), `{"type":"error","msg":"room not found"}`},
		{"auth_ok", authOk("Logged in as alice"), `{"type":"auth_ok","msg":"Logged in as alice"}`},
		{"auth_fail", authFail("invalid credentials"), `{"type":"auth_fail","msg":"invalid credentials"}`},
		{"room_join", roomJoin("general", "alice"), `{"type":"room_join","room":"general","username":"alice"}`},
		{"dm", directMessage("alice", "hi"), `{"type":"dm","from":"alice","text":"hi"}`},
		{"dm_sent", directMessageSent("bob", "hi"), `{"type":"dm_sent","to":"bob","text":"hi"}`},
		{"room_created", roomCreated("vip"), `{"type":"room_created","room":"vip"}`},
		{"room_updated", roomUpdated("vip"), `{"type":"room_updated","room":"vip"}`},
		{"joined", joined("vip"), `{"type":"joined","room":"vip"}`},
		{"request_ack", requestAck("vip"), `{"type":"request_ack","room":"vip"}`},
		{"join_request", joinRequestNotice("vip", "bob"), `{"type":"join_request","room":"vip","user":"bob"}`},
		{"presence_update", presenceUpdate("bob", types.StatusIdle), `{"type":"presence_update","user":"bob","status":"idle"}`},
		{"typing", typingUpdate("general", []string{"alice"}), `{"type":"typing","room":"general","users":["alice"]}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			data, err := json.Marshal(tc.reply)
			require.NoError(t, err)
			assert.JSONEq(t, tc.expected, string(data))
		})
	}
}

func TestHistoryListEmpty(t *testing.T) {
	data, err := json.Marshal(historyList("general", []types.Message{}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"history","room":"general","messages":[]}`, string(data),
		"expected an empty history to serialize as an empty list, not null")
}
