package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(hub *Hub, userID, role string, buffer int) *Client {
	return &Client{
		UserID:   userID,
		UserRole: role,
		hub:      hub,
		send:     make(chan []byte, buffer),
	}
}

func registerAndWait(t *testing.T, hub *Hub, c *Client) {
	t.Helper()
	hub.register <- c
	require.Eventually(t, func() bool {
		return hub.IsUserConnected(c.UserID)
	}, time.Second, 5*time.Millisecond)
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	worker := newTestClient(hub, "w1", "worker", 4)
	manager := newTestClient(hub, "m1", "manager", 4)
	registerAndWait(t, hub, worker)
	registerAndWait(t, hub, manager)

	assert.Equal(t, 2, hub.GetClientCount())
	assert.True(t, hub.IsUserConnected("w1"))
	assert.False(t, hub.IsUserConnected("w2"))

	hub.unregister <- worker
	require.Eventually(t, func() bool {
		return !hub.IsUserConnected("w1")
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 1, hub.GetClientCount())
}

func TestHub_BroadcastToUserDeliversOnlyToTarget(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	target := newTestClient(hub, "w1", "worker", 4)
	other := newTestClient(hub, "w2", "worker", 4)
	registerAndWait(t, hub, target)
	registerAndWait(t, hub, other)

	hub.BroadcastToUser("w1", map[string]string{"type": "task_assigned"})

	select {
	case raw := <-target.send:
		var msg map[string]string
		require.NoError(t, json.Unmarshal(raw, &msg))
		assert.Equal(t, "task_assigned", msg["type"])
	case <-time.After(time.Second):
		t.Fatal("target never received the message")
	}
	assert.Empty(t, other.send)
}

func TestHub_DisconnectsSlowClientOnBroadcast(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	// Unbuffered send channel with no reader: the hub must drop the
	// client instead of blocking its loop.
	slow := newTestClient(hub, "w1", "worker", 0)
	registerAndWait(t, hub, slow)

	hub.BroadcastToUser("w1", map[string]string{"type": "worker_shift_change"})

	require.Eventually(t, func() bool {
		return !hub.IsUserConnected("w1")
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, hub.GetClientCount())
}

func TestHub_BroadcastToManagersSkipsWorkers(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	worker := newTestClient(hub, "w1", "worker", 4)
	manager := newTestClient(hub, "m1", "manager", 4)
	director := newTestClient(hub, "d1", "director", 4)
	registerAndWait(t, hub, worker)
	registerAndWait(t, hub, manager)
	registerAndWait(t, hub, director)

	hub.BroadcastToManagers(map[string]string{"type": "worker_location_update"})

	assert.Len(t, manager.send, 1)
	assert.Len(t, director.send, 1)
	assert.Empty(t, worker.send)
}

func TestHub_BroadcastToRoleMatchesExactRole(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	admin := newTestClient(hub, "a1", "admin", 4)
	manager := newTestClient(hub, "m1", "manager", 4)
	registerAndWait(t, hub, admin)
	registerAndWait(t, hub, manager)

	hub.BroadcastToRole("admin", map[string]string{"type": "role_change_logged"})

	assert.Len(t, admin.send, 1)
	assert.Empty(t, manager.send)
}
