package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/opd-desk/pkg/messaging"
)

func TestRedisBroker_PublishSubscribe(t *testing.T) {
	mr := miniredis.RunT(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker, err := NewRedisBroker(ctx, Config{URL: "redis://" + mr.Addr()}, zerolog.Nop())
	require.NoError(t, err)
	defer broker.Close()

	msgs, err := broker.Subscribe(ctx, "opd.options.invalidate")
	require.NoError(t, err)

	msg, err := messaging.NewMessage("invalidate", map[string]string{"category": "symptom"})
	require.NoError(t, err)
	require.NoError(t, broker.Publish(ctx, "opd.options.invalidate", msg))

	select {
	case raw := <-msgs:
		assert.Contains(t, string(raw), `"type":"invalidate"`)
		assert.Contains(t, string(raw), `"category":"symptom"`)
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestNewRedisBroker_BadURL(t *testing.T) {
	_, err := NewRedisBroker(context.Background(), Config{URL: "not-a-url"}, zerolog.Nop())
	assert.Error(t, err)
}
