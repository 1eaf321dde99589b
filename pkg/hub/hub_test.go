package hub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	h := New("test")
	ctx, cancel := context.WithCancel(context.Background())
	go h.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-h.Done()
	})
	return h, cancel
}

func register(h *Hub, buffer int) *Client {
	c := &Client{hub: h, send: make(chan Message, buffer)}
	h.register <- c
	return c
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case m, ok := <-c.send:
		require.True(t, ok, "send channel closed")
		return m
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Message{}
}

func TestHub_BroadcastReachesClients(t *testing.T) {
	h, _ := startHub(t)
	a := register(h, 4)
	b := register(h, 4)

	require.NoError(t, h.BroadcastJSON(map[string]float64{"position": 0.5}))

	for _, c := range []*Client{a, b} {
		m := receive(t, c)
		assert.Equal(t, JSONMessage, m.Type)
		assert.JSONEq(t, `{"position":0.5}`, string(m.Data))
	}
	assert.Equal(t, 2, h.ClientCount())
}

func TestHub_ReplaysLatestOnRegister(t *testing.T) {
	h, _ := startHub(t)
	first := register(h, 4)

	h.BroadcastBinary([]byte{1})
	h.BroadcastBinary([]byte{2})
	receive(t, first)
	receive(t, first)

	late := register(h, 4)
	m := receive(t, late)
	assert.Equal(t, BinaryMessage, m.Type)
	assert.Equal(t, []byte{2}, m.Data)
}

func TestHub_DropsSlowClient(t *testing.T) {
	h, _ := startHub(t)
	slow := register(h, 1)

	h.BroadcastBinary([]byte{1})
	h.BroadcastBinary([]byte{2})

	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)

	<-slow.send
	_, ok := <-slow.send
	assert.False(t, ok)
}

func TestHub_Unregister(t *testing.T) {
	h, _ := startHub(t)
	c := register(h, 4)
	h.unregister <- c

	assert.Eventually(t, func() bool { return h.ClientCount() == 0 }, time.Second, time.Millisecond)
	_, ok := <-c.send
	assert.False(t, ok)
}

func TestHub_RunStopsOnCancel(t *testing.T) {
	h, cancel := startHub(t)
	c := register(h, 4)
	assert.Eventually(t, h.IsRunning, time.Second, time.Millisecond)

	cancel()
	<-h.Done()

	assert.False(t, h.IsRunning())
	_, ok := <-c.send
	assert.False(t, ok)
	assert.Nil(t, NewClient(h, nil))
}
