package server

import (
	"testing"
	"time"

	"github.com/jdnichols/parley/internal/store"
	"github.com/jdnichols/parley/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func TestCheckPresenceIdleTransition(t *testing.T) {
	cs := newTestChatServer(t, &store.Mock{})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cs.now = func() time.Time { return base }

	alice := registerUser(t, cs, "alice")
	bob := registerUser(t, cs, "bob")
	drainReplies(alice)
	drainReplies(bob)

	t.Run("active accounts stay online silently", func(t *testing.T) {
		cs.checkPresence(base.Add(time.Minute))

		assertNoReply(t, alice)
		assertNoReply(t, bob)
		assert.Equal(t, types.StatusOnline, cs.users["alice"].status)
	})

	t.Run("crossing the threshold broadcasts idle once", func(t *testing.T) {
		cs.checkPresence(base.Add(6 * time.Minute))

		for _, c := range []*Client{alice, bob} {
			reply := nextReply(t, c)
			assert.Equal(t, "presence_update", reply["type"])
			assert.Equal(t, "idle", reply["status"])
		}
		assert.Equal(t, types.StatusIdle, cs.users["alice"].status)

		// still idle on the next sweep, so nothing fires again
		cs.checkPresence(base.Add(7 * time.Minute))
		assertNoReply(t, alice)
		assertNoReply(t, bob)
	})

	t.Run("activity flips the account back to online", func(t *testing.T) {
		cs.now = func() time.Time { return base.Add(8 * time.Minute) }
		cs.dispatch(alice, &listRoomsRequest{})
		drainReplies(alice)

		cs.checkPresence(base.Add(8 * time.Minute))

		reply := nextReply(t, alice)
		assert.Equal(t, "presence_update", reply["type"])
		assert.Equal(t, "alice", reply["user"])
		assert.Equal(t, "online", reply["status"])

		assert.Equal(t, types.StatusOnline, cs.users["alice"].status)
		assert.Equal(t, types.StatusIdle, cs.users["bob"].status, "expected bob to stay idle without activity")
		drainReplies(alice)
		drainReplies(bob)
	})
}

func TestCheckPresenceOfflineAccounts(t *testing.T) {
	cs := newTestChatServer(t, &store.Mock{})
	alice := registerUser(t, cs, "alice")
	bob := registerUser(t, cs, "bob")
	cs.disconnect(bob)
	drainReplies(alice)

	cs.checkPresence(cs.now().Add(10 * time.Minute))

	// alice goes idle; bob stays offline and generates no traffic
	reply := nextReply(t, alice)
	assert.Equal(t, "presence_update", reply["type"])
	assert.Equal(t, "alice", reply["user"])

	assert.Equal(t, types.StatusOffline, cs.users["bob"].status)
	assertNoReply(t, alice)
}

func TestCheckPresenceBroadcastsToMemberRoomsOnly(t *testing.T) {
	cs := newTestChatServer(t, &store.Mock{})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cs.now = func() time.Time { return base }

	alice := registerUser(t, cs, "alice")
	bob := registerUser(t, cs, "bob")
	cs.dispatch(alice, &createRoomRequest{Room: "vip", OpenJoin: lo.ToPtr(false)})
	drainReplies(alice)
	drainReplies(bob)

	// only alice is a vip member; bob idling must not leak into vip twice
	cs.checkPresence(base.Add(6 * time.Minute))

	updates := 0
	for {
		select {
		case <-alice.send:
			updates++
			continue
		default:
		}
		break
	}
	// alice hears her own update in both rooms plus bob's in general
	assert.Equal(t, 3, updates)

	bobUpdates := 0
	for {
		select {
		case <-bob.send:
			bobUpdates++
			continue
		default:
		}
		break
	}
	// bob is only in general: one update for himself, one for alice
	assert.Equal(t, 2, bobUpdates)
}
