package feed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/phishsim-monitor/internal/sim"
)

func setupTestFeed(t *testing.T) (*Publisher, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewWithClient(client, "test:events"), client
}

func TestPublishDeliversJSON(t *testing.T) {
	pub, client := setupTestFeed(t)

	ctx := context.Background()
	sub := client.Subscribe(ctx, "test:events")
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	sent := sim.Event{
		ID:               "ev-1",
		Kind:             sim.EventClicked,
		EmailID:          "e1",
		CampaignID:       "c1",
		MinutesSinceSent: 12.5,
	}
	pub.Publish(sent)

	select {
	case msg := <-sub.Channel():
		var got sim.Event
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
		assert.Equal(t, sent.ID, got.ID)
		assert.Equal(t, sim.EventClicked, got.Kind)
		assert.Equal(t, 12.5, got.MinutesSinceSent)
	case <-time.After(2 * time.Second):
		t.Fatal("no feed message received")
	}
}

func TestNilPublisherIsNoOp(t *testing.T) {
	var pub *Publisher
	assert.NotPanics(t, func() {
		pub.Publish(sim.Event{ID: "ev-1"})
	})
	assert.Empty(t, pub.Channel())
	assert.NoError(t, pub.Close())
}

func TestNewEmptyURLDisablesFeed(t *testing.T) {
	pub, err := New("", "ignored")
	require.NoError(t, err)
	assert.Nil(t, pub)
}

func TestNewConnectsByAddr(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	pub, err := New(mr.Addr(), "")
	require.NoError(t, err)
	require.NotNil(t, pub)
	t.Cleanup(func() { pub.Close() })
	assert.Equal(t, defaultChannel, pub.Channel())
}

func TestNewUnreachableRedis(t *testing.T) {
	_, err := New("127.0.0.1:1", "")
	assert.Error(t, err)
}
