package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	raw, err := Encode(json.RawMessage(`{"a":1}`))
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(raw))

	encoded, err := Encode(map[string]string{"status": "waiting"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"waiting"}`, string(encoded))
}

func TestMemoryBrokerDelivers(t *testing.T) {
	b := NewMemoryBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs, err := b.Subscribe(ctx, "consultation.booked")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, "consultation.booked", json.RawMessage(`{"order":1}`)))
	require.NoError(t, b.Publish(ctx, "consultation.cancelled", json.RawMessage(`{}`)))

	select {
	case msg := <-msgs:
		assert.JSONEq(t, `{"order":1}`, string(msg))
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	select {
	case msg := <-msgs:
		t.Fatalf("unexpected message %s", msg)
	default:
	}
}

func TestMemoryBrokerClosed(t *testing.T) {
	b := NewMemoryBroker()
	require.NoError(t, b.Close())

	err := b.Publish(context.Background(), "x", "y")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConsumeKeepsGoingAfterHandlerError(t *testing.T) {
	b := NewMemoryBroker()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var handled int32
	done := make(chan error, 1)

	go func() {
		done <- Consume(ctx, b, "events", func(ctx context.Context, payload []byte) error {
			if atomic.AddInt32(&handled, 1) == 2 {
				cancel()
			}
			return errors.New("handler failed")
		})
	}()

	require.Eventually(t, func() bool {
		b.mu.RLock()
		defer b.mu.RUnlock()
		return len(b.subs["events"]) == 1
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, b.Publish(context.Background(), "events", "one"))
	require.NoError(t, b.Publish(context.Background(), "events", "two"))

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("consume did not stop")
	}
	assert.Equal(t, int32(2), atomic.LoadInt32(&handled))
}
