package session

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/darshang-108/ai-learning-opponent/game/archetype"
	"github.com/darshang-108/ai-learning-opponent/game/brain"
)

func testBrain(t *testing.T, seed int64) *brain.Brain {
	t.Helper()
	pool, err := archetype.NewPool()
	require.NoError(t, err)
	p, err := pool.Get("Berserker")
	require.NoError(t, err)
	b, err := brain.New(brain.DefaultConfig(), p, brain.BuildBalanced,
		rand.New(rand.NewSource(seed)), zap.NewNop())
	require.NoError(t, err)
	return b
}

func testView(dist float64) brain.View {
	return brain.View{
		Self: brain.FighterView{
			X: 300, Y: 420, HP: 120, MaxHP: 120, Stamina: 100, MaxStamina: 100,
		},
		Opponent: brain.FighterView{
			X: 300 + dist, Y: 420, HP: 120, MaxHP: 120, Stamina: 100, MaxStamina: 100,
		},
	}
}

func newTestSession(t *testing.T, id string) *FightSession {
	t.Helper()
	return New(id, testBrain(t, 7), archetype.StyleAggressive, zap.NewNop())
}

func TestSessionStepReturnsDecision(t *testing.T) {
	s := newTestSession(t, "s1")
	dec := s.Step(testView(200), 1.0/60, nil)
	if dec.State.String() == "unknown" {
		t.Fatalf("unexpected state: %v", dec.State)
	}
	_, _, elapsed := s.State()
	assert.InDelta(t, 1.0/60, elapsed, 1e-9)
}

func TestSessionEventBookkeeping(t *testing.T) {
	s := newTestSession(t, "s1")
	events := []EventReport{
		{Type: EvPlayerAttack, Heavy: true, Distance: 80},
		{Type: EvPlayerMove, Distance: 200},
		{Type: EvPlayerDodge, Distance: 90},
		{Type: EvHitDealt, Amount: 12},
		{Type: EvHitTaken, Amount: 8},
	}
	s.Step(testView(150), 1.0/60, events)

	entry, ok := s.Finalize("opponent")
	require.True(t, ok)
	assert.Equal(t, "s1", entry.SessionID)
	assert.Equal(t, "Berserker", entry.Archetype)
	assert.Equal(t, "aggressive", entry.PlayerStyle)
	assert.Equal(t, "opponent", entry.Winner)
	assert.Equal(t, 1, entry.TotalAttacks)
	assert.Equal(t, 1, entry.MovementCount)
	assert.Equal(t, 1, entry.DodgeCount)
	assert.Equal(t, 12, entry.DamageDealt)
	assert.Equal(t, 8, entry.DamageTaken)
	assert.InDelta(t, 150, entry.AvgDistance, 1e-9)

	require.Len(t, entry.Actions, 3)
	assert.Equal(t, "attack", entry.Actions[0].Category)
	assert.True(t, entry.Actions[0].Heavy)
	assert.InDelta(t, 80, entry.Actions[0].Distance, 1e-9)
	assert.Equal(t, "move", entry.Actions[1].Category)
	assert.Equal(t, "dodge", entry.Actions[2].Category)
}

func TestSessionStunEventForcesStun(t *testing.T) {
	s := newTestSession(t, "s1")
	dec := s.Step(testView(100), 1.0/60, []EventReport{{Type: EvStunned, Duration: 1.2}})
	assert.Equal(t, brain.StateStunned, dec.State)
}

func TestSessionUnknownEventIgnored(t *testing.T) {
	s := newTestSession(t, "s1")
	s.Step(testView(100), 1.0/60, []EventReport{{Type: "teleport"}})
	entry, ok := s.Finalize("draw")
	require.True(t, ok)
	assert.Empty(t, entry.Actions)
}

func TestSessionAggressionSampling(t *testing.T) {
	s := newTestSession(t, "s1")
	// 10s cadence: 25s of ticks yields two samples.
	for i := 0; i < 25*10; i++ {
		s.Step(testView(180), 0.1, nil)
	}
	entry, ok := s.Finalize("player")
	require.True(t, ok)
	samples, isSlice := entry.Aggression.([]float64)
	require.True(t, isSlice)
	assert.Len(t, samples, 2)
	for _, v := range samples {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestSessionFinalizeOnce(t *testing.T) {
	s := newTestSession(t, "s1")
	s.Step(testView(100), 1.0/60, nil)
	_, ok := s.Finalize("player")
	require.True(t, ok)
	_, again := s.Finalize("player")
	assert.False(t, again)
}

func TestSessionSendWithoutConnIsNoop(t *testing.T) {
	s := newTestSession(t, "s1")
	s.Send(&Packet{Seq: 1, Type: "tick"})
	assert.False(t, s.IsClosed())
}

func TestSessionCloseIdempotent(t *testing.T) {
	s := newTestSession(t, "s1")
	s.Close()
	s.Close()
	assert.True(t, s.IsClosed())
	s.Send(&Packet{Seq: 1, Type: "tick"})
}

func TestSessionCloseConcurrent(t *testing.T) {
	// Remove racing CloseAll means Close can land from several
	// goroutines at once; none of them may panic on a double close.
	s := newTestSession(t, "s1")
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Close()
		}()
	}
	wg.Wait()
	assert.True(t, s.IsClosed())
}

func TestManagerRegisterGetRemove(t *testing.T) {
	m := NewManager(nil, zap.NewNop())
	ctx := context.Background()

	s := newTestSession(t, "abc")
	m.Register(ctx, s)
	assert.Equal(t, 1, m.Count())

	got, ok := m.Get("abc")
	require.True(t, ok)
	assert.Same(t, s, got)

	m.Remove(ctx, "abc")
	assert.Equal(t, 0, m.Count())
	_, ok = m.Get("abc")
	assert.False(t, ok)
	assert.True(t, s.IsClosed())
}

func TestManagerRegisterDisplacesDuplicate(t *testing.T) {
	m := NewManager(nil, zap.NewNop())
	ctx := context.Background()

	first := newTestSession(t, "dup")
	second := newTestSession(t, "dup")
	m.Register(ctx, first)
	m.Register(ctx, second)

	assert.Equal(t, 1, m.Count())
	assert.True(t, first.IsClosed())
	assert.False(t, second.IsClosed())

	got, ok := m.Get("dup")
	require.True(t, ok)
	assert.Same(t, second, got)
}

func TestManagerSweepIdle(t *testing.T) {
	m := NewManager(nil, zap.NewNop())
	ctx := context.Background()

	stale := newTestSession(t, "stale")
	fresh := newTestSession(t, "fresh")
	stale.mu.Lock()
	stale.lastSeen = time.Now().Add(-10 * time.Minute)
	stale.mu.Unlock()
	m.Register(ctx, stale)
	m.Register(ctx, fresh)

	swept := m.SweepIdle(ctx, 5*time.Minute)
	require.Len(t, swept, 1)
	assert.Equal(t, "stale", swept[0].ID)
	assert.True(t, swept[0].IsClosed())
	assert.Equal(t, 1, m.Count())
	_, ok := m.Get("fresh")
	assert.True(t, ok)
}

func TestManagerCloseAll(t *testing.T) {
	m := NewManager(nil, zap.NewNop())
	ctx := context.Background()

	a := newTestSession(t, "a")
	b := newTestSession(t, "b")
	m.Register(ctx, a)
	m.Register(ctx, b)

	m.CloseAll(ctx)
	assert.Equal(t, 0, m.Count())
	assert.True(t, a.IsClosed())
	assert.True(t, b.IsClosed())
}
