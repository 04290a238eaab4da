package local

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recvOne(t *testing.T, ch <-chan *LocalMessage) *LocalMessage {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(200 * time.Millisecond):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestPublishReachesSubscriber(t *testing.T) {
	ps := NewPubSub(8)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "fight:abc")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "fight:abc", `{"t":1}`))

	msg := recvOne(t, ch)
	assert.Equal(t, "fight:abc", msg.Channel)
	assert.Equal(t, `{"t":1}`, msg.Payload)
}

func TestSubscribeMultipleChannels(t *testing.T) {
	ps := NewPubSub(8)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "fight:abc", "announce")
	require.NoError(t, err)
	defer cancel()

	require.NoError(t, ps.Publish(ctx, "announce", "shutting down"))
	assert.Equal(t, "announce", recvOne(t, ch).Channel)

	require.NoError(t, ps.Publish(ctx, "fight:abc", "frame"))
	assert.Equal(t, "fight:abc", recvOne(t, ch).Channel)
}

func TestFanOut(t *testing.T) {
	ps := NewPubSub(8)
	ctx := context.Background()

	ch1, cancel1, _ := ps.Subscribe(ctx, "fight:x")
	defer cancel1()
	ch2, cancel2, _ := ps.Subscribe(ctx, "fight:x")
	defer cancel2()

	require.NoError(t, ps.Publish(ctx, "fight:x", "hello"))
	assert.Equal(t, "hello", recvOne(t, ch1).Payload)
	assert.Equal(t, "hello", recvOne(t, ch2).Payload)
}

func TestCancelClosesAndDeregisters(t *testing.T) {
	ps := NewPubSub(8)
	ctx := context.Background()

	ch, cancel, err := ps.Subscribe(ctx, "fight:x")
	require.NoError(t, err)

	cancel()
	cancel() // double-cancel must be safe

	_, open := <-ch
	assert.False(t, open, "delivery channel closes on cancel")

	// Publishing afterwards must not panic or block.
	require.NoError(t, ps.Publish(ctx, "fight:x", "late"))

	ps.mu.Lock()
	_, registered := ps.subs["fight:x"]
	ps.mu.Unlock()
	assert.False(t, registered, "empty channel entries are pruned")
}

func TestSlowSubscriberDropsInsteadOfBlocking(t *testing.T) {
	ps := NewPubSub(1)
	ctx := context.Background()

	ch, cancel, _ := ps.Subscribe(ctx, "busy")
	defer cancel()

	done := make(chan struct{})
	go func() {
		// Second publish overflows the buffer of 1 and must not block.
		_ = ps.Publish(ctx, "busy", "first")
		_ = ps.Publish(ctx, "busy", "second")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a slow subscriber")
	}
	assert.Equal(t, "first", recvOne(t, ch).Payload)
}
