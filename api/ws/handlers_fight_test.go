package ws

import (
	"context"
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/darshang-108/ai-learning-opponent/game/archetype"
	"github.com/darshang-108/ai-learning-opponent/game/brain"
	"github.com/darshang-108/ai-learning-opponent/game/session"
	"github.com/darshang-108/ai-learning-opponent/metrics"
	"github.com/darshang-108/ai-learning-opponent/testutil"
)

func fightSession(t *testing.T, id string) *session.FightSession {
	t.Helper()
	pool, err := archetype.NewPool()
	require.NoError(t, err)
	p, err := pool.Get("Berserker")
	require.NoError(t, err)
	b, err := brain.New(brain.DefaultConfig(), p, brain.BuildBalanced,
		rand.New(rand.NewSource(3)), zap.NewNop())
	require.NoError(t, err)
	return session.New(id, b, archetype.StyleBalanced, zap.NewNop())
}

func tickPayload(t *testing.T, dt, dist float64) json.RawMessage {
	t.Helper()
	in := session.TickInput{
		Dt: dt,
		Self: session.FighterState{X: 300, Y: 420, HP: 120, MaxHP: 120,
			Stamina: 100, MaxStamina: 100},
		Opponent: session.FighterState{X: 300 + dist, Y: 420, HP: 120, MaxHP: 120,
			Stamina: 100, MaxStamina: 100},
	}
	raw, err := json.Marshal(in)
	require.NoError(t, err)
	return raw
}

func TestHandleTick_AdvancesSession(t *testing.T) {
	mx, err := metrics.New()
	require.NoError(t, err)
	f := NewFightHandlers(mx, nil, zap.NewNop())
	s := fightSession(t, "ws-1")

	err = f.HandleTick(context.Background(), s, tickPayload(t, 1.0/60, 180))
	require.NoError(t, err)

	phase, state, elapsed := s.State()
	assert.InDelta(t, 1.0/60, elapsed, 1e-9)
	assert.NotEmpty(t, phase)
	assert.NotEmpty(t, state)
}

func TestHandleTick_PublishesObserverFrame(t *testing.T) {
	_, ps := testutil.SetupTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, unsub, err := ps.Subscribe(ctx, session.EventChannel("ws-2"))
	require.NoError(t, err)
	defer unsub()

	f := NewFightHandlers(nil, ps, zap.NewNop())
	s := fightSession(t, "ws-2")
	require.NoError(t, f.HandleTick(ctx, s, tickPayload(t, 1.0/60, 140)))

	select {
	case msg := <-ch:
		var frame session.StreamEvent
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &frame))
		assert.InDelta(t, 120, frame.SelfHP, 1e-9)
		assert.InDelta(t, 120, frame.OppHP, 1e-9)
		assert.NotEmpty(t, frame.State)
		assert.NotEmpty(t, frame.Phase)
	case <-time.After(2 * time.Second):
		t.Fatal("no observer frame published")
	}
}

func TestHandleTick_MalformedPayloadSkipped(t *testing.T) {
	f := NewFightHandlers(nil, nil, zap.NewNop())
	s := fightSession(t, "ws-3")

	require.NoError(t, f.HandleTick(context.Background(), s, []byte("{bad")))
	_, _, elapsed := s.State()
	assert.Zero(t, elapsed)
}

func TestHandleTick_DtOutOfRangeSkipped(t *testing.T) {
	f := NewFightHandlers(nil, nil, zap.NewNop())
	s := fightSession(t, "ws-4")

	require.NoError(t, f.HandleTick(context.Background(), s, tickPayload(t, 0.9, 100)))
	require.NoError(t, f.HandleTick(context.Background(), s, tickPayload(t, 0, 100)))
	_, _, elapsed := s.State()
	assert.Zero(t, elapsed)
}

func TestHandleReport_AppliesEvents(t *testing.T) {
	f := NewFightHandlers(nil, nil, zap.NewNop())
	s := fightSession(t, "ws-5")

	raw, err := json.Marshal(map[string]interface{}{
		"events": []session.EventReport{
			{Type: session.EvPlayerAttack, Heavy: true, Distance: 70},
			{Type: session.EvHitDealt, Amount: 10},
		},
	})
	require.NoError(t, err)
	require.NoError(t, f.HandleReport(context.Background(), s, raw))

	entry, ok := s.Finalize("draw")
	require.True(t, ok)
	assert.Equal(t, 1, entry.TotalAttacks)
	assert.Equal(t, 10, entry.DamageDealt)
}

func TestHandleReport_MalformedSkipped(t *testing.T) {
	f := NewFightHandlers(nil, nil, zap.NewNop())
	s := fightSession(t, "ws-6")
	require.NoError(t, f.HandleReport(context.Background(), s, []byte("nope")))
}

func TestHandleStateAndDebug_NoConnIsSafe(t *testing.T) {
	f := NewFightHandlers(nil, nil, zap.NewNop())
	s := fightSession(t, "ws-7")

	// Without an attached connection the reply is dropped, not an error.
	require.NoError(t, f.HandleState(context.Background(), s, nil))
	require.NoError(t, f.HandleDebug(context.Background(), s, nil))
}

func TestRegisterHandlers_RoutesTick(t *testing.T) {
	f := NewFightHandlers(nil, nil, zap.NewNop())
	r := NewRouter(nop())
	f.RegisterHandlers(r)

	s := fightSession(t, "ws-8")
	in := session.TickInput{
		Dt:       1.0 / 60,
		Self:     session.FighterState{X: 300, Y: 420, HP: 120, MaxHP: 120, Stamina: 100, MaxStamina: 100},
		Opponent: session.FighterState{X: 460, Y: 420, HP: 120, MaxHP: 120, Stamina: 100, MaxStamina: 100},
	}
	r.Dispatch(s, makePacket(t, 1, "tick", in))

	_, _, elapsed := s.State()
	assert.InDelta(t, 1.0/60, elapsed, 1e-9)
}
