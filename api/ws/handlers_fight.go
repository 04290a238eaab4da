package ws

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/darshang-108/ai-learning-opponent/cache"
	"github.com/darshang-108/ai-learning-opponent/game/session"
	"github.com/darshang-108/ai-learning-opponent/metrics"
)

// FightHandlers reacts to fight-stream messages: snapshots in,
// decisions out.
type FightHandlers struct {
	metrics *metrics.Metrics
	events  cache.PubSub
	logger  *zap.Logger
}

// NewFightHandlers creates the fight message handlers.
func NewFightHandlers(mx *metrics.Metrics, events cache.PubSub, logger *zap.Logger) *FightHandlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FightHandlers{metrics: mx, events: events, logger: logger}
}

// RegisterHandlers registers the fight message types.
func (f *FightHandlers) RegisterHandlers(r *Router) {
	r.On("tick", f.HandleTick)
	r.On("report", f.HandleReport)
	r.On("state", f.HandleState)
	r.On("debug", f.HandleDebug)
}

// HandleTick feeds one snapshot and replies with the chosen action.
func (f *FightHandlers) HandleTick(ctx context.Context, s *session.FightSession, raw json.RawMessage) error {
	var in session.TickInput
	if err := json.Unmarshal(raw, &in); err != nil {
		f.logger.Warn("malformed tick", zap.String("session_id", s.ID), zap.Error(err))
		return nil
	}
	if in.Dt <= 0 || in.Dt > 0.5 {
		f.logger.Warn("tick dt out of range",
			zap.String("session_id", s.ID), zap.Float64("dt", in.Dt))
		return nil
	}

	phaseBefore, _, _ := s.State()
	start := time.Now()
	dec := s.Step(in.View(), in.Dt, in.Events)
	f.metrics.ObserveStepLatency("ws", time.Since(start).Seconds())

	phase, _, elapsed := s.State()
	f.metrics.RecordDecision(s.Archetype, dec.State.String())
	if phase != phaseBefore {
		f.metrics.RecordPhaseTransition(s.Archetype, phase)
	}

	out := session.EncodeDecision(dec, phase)
	payload, err := json.Marshal(out)
	if err != nil {
		return err
	}
	s.Send(&session.Packet{Type: "action", Payload: payload})

	if f.events != nil {
		frame := session.StreamEvent{
			T:       elapsed,
			State:   out.State,
			Phase:   out.Phase,
			Action:  out.Action,
			SelfHP:  in.Self.HP,
			OppHP:   in.Opponent.HP,
			EventIn: len(in.Events),
		}
		if rawFrame, err := json.Marshal(frame); err == nil {
			if err := f.events.Publish(ctx, session.EventChannel(s.ID), string(rawFrame)); err != nil {
				f.logger.Debug("observer publish failed", zap.Error(err))
			}
		}
	}
	return nil
}

// HandleReport applies combat outcomes delivered out of band, without
// advancing the brain.
func (f *FightHandlers) HandleReport(_ context.Context, s *session.FightSession, raw json.RawMessage) error {
	var req struct {
		Events []session.EventReport `json:"events"`
	}
	if err := json.Unmarshal(raw, &req); err != nil {
		f.logger.Warn("malformed report", zap.String("session_id", s.ID), zap.Error(err))
		return nil
	}
	s.Report(req.Events)
	return nil
}

// HandleState replies with the session's coarse observables.
func (f *FightHandlers) HandleState(_ context.Context, s *session.FightSession, _ json.RawMessage) error {
	phase, state, elapsed := s.State()
	payload, err := json.Marshal(map[string]interface{}{
		"session_id":   s.ID,
		"archetype":    s.Archetype,
		"player_style": string(s.Style),
		"phase":        phase,
		"state":        state,
		"elapsed":      elapsed,
	})
	if err != nil {
		return err
	}
	s.Send(&session.Packet{Type: "state", Payload: payload})
	return nil
}

// HandleDebug replies with the brain's full internals.
func (f *FightHandlers) HandleDebug(_ context.Context, s *session.FightSession, _ json.RawMessage) error {
	payload, err := json.Marshal(s.DebugState())
	if err != nil {
		return err
	}
	s.Send(&session.Packet{Type: "debug", Payload: payload})
	return nil
}
