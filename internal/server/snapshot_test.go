package server

import (
	"path/filepath"
	"testing"

	"github.com/jdnichols/parley/internal/store"
	"github.com/jdnichols/parley/internal/testutil"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Exercises the whole durability path: state built up through the
// dispatcher, snapshotted by a real file store, then restored by a fresh
// server instance reading the same files.
func TestSnapshotRestartRoundTrip(t *testing.T) {
	dir := t.TempDir()
	newStore := func() *store.FileStore {
		return store.NewFileStore(
			filepath.Join(dir, "users.json"),
			filepath.Join(dir, "rooms.json"),
			filepath.Join(dir, "history.json"),
			testutil.TestLogger(t),
		)
	}

	first := newTestChatServer(t, newStore())
	alice := registerUser(t, first, "alice")
	bob := registerUser(t, first, "bob")
	first.dispatch(alice, &createRoomRequest{Room: "vip", OpenJoin: lo.ToPtr(false)})
	first.dispatch(bob, &joinRequest{Room: "vip"})
	first.dispatch(alice, &publishRequest{Room: "general", Text: "before restart"})

	second := newTestChatServer(t, newStore())

	t.Run("accounts survive with credentials intact", func(t *testing.T) {
		c := newTestClient(t, second)
		second.dispatch(c, &authRequest{Action: "login", Username: "alice", Password: "secret"})

		reply := nextReply(t, c)
		assert.Equal(t, "auth_ok", reply["type"])
	})

	t.Run("room policy, membership and pending requests survive", func(t *testing.T) {
		rm, ok := second.rooms["vip"]
		require.True(t, ok)
		assert.Equal(t, "alice", rm.admin)
		assert.False(t, rm.openJoin)
		assert.True(t, rm.isMember("alice"))
		assert.True(t, rm.isPending("bob"))
		assert.False(t, rm.isMember("bob"))
	})

	t.Run("history survives", func(t *testing.T) {
		require.Len(t, second.history["general"], 1)
		assert.Equal(t, "before restart", second.history["general"][0].Text)
	})

	t.Run("runtime state does not leak across restarts", func(t *testing.T) {
		acct := second.users["bob"]
		require.NotNil(t, acct)
		assert.Nil(t, acct.client)
	})
}
