package local

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"
)

// ErrNotFound is returned when a key does not exist.
var ErrNotFound = errors.New("cache: key not found")

// Config holds LocalCache settings.
type Config struct {
	GCInterval time.Duration
}

type kvEntry struct {
	value    string
	expireAt time.Time // zero means no expiry
}

func (e kvEntry) live(now time.Time) bool {
	return e.expireAt.IsZero() || now.Before(e.expireAt)
}

// LocalCache is the in-process fallback used when no Redis address is
// configured. One mutex guards all stores; the workload here is a
// handful of leaderboard and presence keys, not a hot path.
type LocalCache struct {
	mu    sync.Mutex
	kv    map[string]kvEntry
	sets  map[string]map[string]struct{}
	zsets map[string]map[string]float64

	gcInterval time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

// NewCache creates a LocalCache and starts its expiry sweeper.
func NewCache(cfg Config) (*LocalCache, error) {
	interval := cfg.GCInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	c := &LocalCache{
		kv:         make(map[string]kvEntry),
		sets:       make(map[string]map[string]struct{}),
		zsets:      make(map[string]map[string]float64),
		gcInterval: interval,
		stop:       make(chan struct{}),
	}
	go c.sweep()
	return c, nil
}

// Close stops the expiry sweeper. Safe to call more than once.
func (c *LocalCache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *LocalCache) sweep() {
	ticker := time.NewTicker(c.gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			now := time.Now()
			c.mu.Lock()
			for k, e := range c.kv {
				if !e.live(now) {
					delete(c.kv, k)
				}
			}
			c.mu.Unlock()
		case <-c.stop:
			return
		}
	}
}

// ---- KV ----

func (c *LocalCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.kv[key]
	if !ok || !e.live(time.Now()) {
		delete(c.kv, key)
		return "", ErrNotFound
	}
	return e.value, nil
}

func (c *LocalCache) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := kvEntry{value: value}
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	}
	c.mu.Lock()
	c.kv[key] = e
	c.mu.Unlock()
	return nil
}

func (c *LocalCache) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.kv[key]; ok && e.live(time.Now()) {
		return false, nil
	}
	e := kvEntry{value: value}
	if ttl > 0 {
		e.expireAt = time.Now().Add(ttl)
	}
	c.kv[key] = e
	return true, nil
}

// Del removes each key from every store kind, matching the Redis
// behavior of DEL on a set or sorted-set key.
func (c *LocalCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.kv, k)
		delete(c.sets, k)
		delete(c.zsets, k)
	}
	return nil
}

// ---- Set ----

func (c *LocalCache) SAdd(_ context.Context, key string, members ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sets[key]
	if !ok {
		s = make(map[string]struct{}, len(members))
		c.sets[key] = s
	}
	for _, m := range members {
		s[m] = struct{}{}
	}
	return nil
}

func (c *LocalCache) SRem(_ context.Context, key string, members ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.sets[key]
	if !ok {
		return nil
	}
	for _, m := range members {
		delete(s, m)
	}
	if len(s) == 0 {
		delete(c.sets, key)
	}
	return nil
}

func (c *LocalCache) SIsMember(_ context.Context, key, member string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.sets[key][member]
	return ok, nil
}

// ---- ZSet ----
// Scores live in a plain member→score map; ZRevRange sorts on read.
// The leaderboard holds tens of members, so read-time sorting beats
// keeping an ordered structure coherent on every write.

func (c *LocalCache) ZAdd(_ context.Context, key string, score float64, member string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	z, ok := c.zsets[key]
	if !ok {
		z = make(map[string]float64)
		c.zsets[key] = z
	}
	z[member] = score
	return nil
}

func (c *LocalCache) ZRevRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	z := c.zsets[key]
	if len(z) == 0 {
		return nil, nil
	}
	members := make([]string, 0, len(z))
	for m := range z {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		si, sj := z[members[i]], z[members[j]]
		if si != sj {
			return si > sj
		}
		// Redis orders equal scores lexicographically; ZREVRANGE
		// therefore yields them in reverse lexical order.
		return members[i] > members[j]
	})
	n := int64(len(members))
	if start < 0 || start >= n {
		return nil, nil
	}
	if stop < 0 || stop >= n {
		stop = n - 1
	}
	if stop < start {
		return nil, nil
	}
	out := make([]string, stop-start+1)
	copy(out, members[start:stop+1])
	return out, nil
}

func (c *LocalCache) ZScore(_ context.Context, key, member string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	score, ok := c.zsets[key][member]
	if !ok {
		return 0, ErrNotFound
	}
	return score, nil
}
