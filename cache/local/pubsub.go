package local

import (
	"context"
	"sync"
)

// LocalMessage is an in-process pub/sub message.
type LocalMessage struct {
	Channel string
	Payload string
}

// LocalPubSub is an in-process fan-out pub/sub. Delivery is
// best-effort: a subscriber whose buffer is full misses the message
// rather than blocking the publisher.
type LocalPubSub struct {
	mu     sync.Mutex
	nextID int
	// channel name → subscription id → delivery channel. One Subscribe
	// call registers the same delivery channel under every requested
	// channel name.
	subs map[string]map[int]chan *LocalMessage
	buf  int
}

// NewPubSub creates a LocalPubSub with the given per-subscriber buffer.
func NewPubSub(bufSize int) *LocalPubSub {
	if bufSize <= 0 {
		bufSize = 256
	}
	return &LocalPubSub{
		subs: make(map[string]map[int]chan *LocalMessage),
		buf:  bufSize,
	}
}

// Publish delivers message to every current subscriber of channel.
func (ps *LocalPubSub) Publish(_ context.Context, channel, message string) error {
	msg := &LocalMessage{Channel: channel, Payload: message}
	ps.mu.Lock()
	targets := make([]chan *LocalMessage, 0, len(ps.subs[channel]))
	for _, ch := range ps.subs[channel] {
		targets = append(targets, ch)
	}
	ps.mu.Unlock()
	for _, ch := range targets {
		select {
		case ch <- msg:
		default: // slow subscriber, drop
		}
	}
	return nil
}

// Subscribe registers one delivery channel for all the given channels
// and returns it with an unsubscribe function. Unsubscribing closes
// the delivery channel.
func (ps *LocalPubSub) Subscribe(_ context.Context, channels ...string) (<-chan *LocalMessage, func(), error) {
	ch := make(chan *LocalMessage, ps.buf)

	ps.mu.Lock()
	id := ps.nextID
	ps.nextID++
	for _, name := range channels {
		m, ok := ps.subs[name]
		if !ok {
			m = make(map[int]chan *LocalMessage)
			ps.subs[name] = m
		}
		m[id] = ch
	}
	ps.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			ps.mu.Lock()
			for _, name := range channels {
				delete(ps.subs[name], id)
				if len(ps.subs[name]) == 0 {
					delete(ps.subs, name)
				}
			}
			ps.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel, nil
}
