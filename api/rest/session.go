package rest

import (
	"encoding/json"
	"math/rand"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/darshang-108/ai-learning-opponent/cache"
	"github.com/darshang-108/ai-learning-opponent/config"
	"github.com/darshang-108/ai-learning-opponent/game/archetype"
	"github.com/darshang-108/ai-learning-opponent/game/brain"
	"github.com/darshang-108/ai-learning-opponent/game/session"
	"github.com/darshang-108/ai-learning-opponent/matchlog"
	"github.com/darshang-108/ai-learning-opponent/metrics"
	mw "github.com/darshang-108/ai-learning-opponent/middleware"
)

// SessionDeps bundles what the session endpoints need.
type SessionDeps struct {
	Manager  *session.Manager
	Selector *archetype.Selector
	Pool     *archetype.Pool
	Analyzer *archetype.Analyzer
	Store    *archetype.StatsStore
	MatchLog *matchlog.Service
	Metrics  *metrics.Metrics
	Events   cache.PubSub // optional observer stream
	Security config.SecurityConfig
	Fight    config.FightConfig
	Logger   *zap.Logger
}

// SessionHandler handles the fight-session REST endpoints.
type SessionHandler struct {
	d    SessionDeps
	bcfg brain.Config
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(d SessionDeps) *SessionHandler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &SessionHandler{d: d, bcfg: brain.DefaultConfig()}
}

type createSessionRequest struct {
	// PlayerStyle overrides log-based detection when set.
	PlayerStyle string `json:"player_style" binding:"omitempty,oneof=aggressive defensive balanced evasive"`
	// Archetype pins a personality by name, bypassing selection.
	Archetype string `json:"archetype"`
	// Build hints at the player's loadout (balanced|mage|dexterity|tank).
	Build string `json:"build"`
}

// Create starts a fight session and returns its bearer token.
// POST /api/session
func (h *SessionHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if h.d.Fight.MaxSessions > 0 && h.d.Manager.Count() >= h.d.Fight.MaxSessions {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session limit reached"})
		return
	}

	ctx := c.Request.Context()

	style := archetype.Style(req.PlayerStyle)
	if style == "" {
		detected, err := h.d.Analyzer.DetectStyle(ctx, "")
		if err != nil {
			h.d.Logger.Warn("style detection failed", zap.Error(err))
			detected = archetype.StyleUnknown
		}
		style = detected
	}

	var p brain.Personality
	var err error
	if req.Archetype != "" {
		p, err = h.d.Pool.Get(req.Archetype)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown archetype"})
			return
		}
	} else {
		p, err = h.d.Selector.Select(ctx, style)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "selection failed"})
			return
		}
	}

	b, err := brain.New(h.bcfg, p, brain.ParseBuild(req.Build),
		rand.New(rand.NewSource(time.Now().UnixNano())), h.d.Logger)
	if err != nil {
		h.d.Logger.Error("brain construction failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	id := uuid.New().String()
	sess := session.New(id, b, style, h.d.Logger)
	h.d.Manager.Register(ctx, sess)
	h.d.Metrics.RecordSelectorPick(p.Name, string(style))
	h.d.Metrics.SetActiveSessions(h.d.Manager.Count())

	token, err := mw.GenerateToken(id, h.d.Security.JWTSecret, h.d.Security.JWTTTLH)
	if err != nil {
		h.d.Manager.Remove(ctx, id)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"session_id":   id,
		"token":        token,
		"archetype":    p.Name,
		"player_style": string(style),
		"tick_rate":    h.d.Fight.TickRate,
	})
}

// Tick feeds one snapshot and returns the opponent's action.
// POST /api/session/tick
func (h *SessionHandler) Tick(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var in session.TickInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	phaseBefore, _, _ := sess.State()
	start := time.Now()
	dec := sess.Step(in.View(), in.Dt, in.Events)
	h.d.Metrics.ObserveStepLatency("rest", time.Since(start).Seconds())

	phase, _, elapsed := sess.State()
	h.d.Metrics.RecordDecision(sess.Archetype, dec.State.String())
	if phase != phaseBefore {
		h.d.Metrics.RecordPhaseTransition(sess.Archetype, phase)
	}

	out := session.EncodeDecision(dec, phase)
	h.publishFrame(c, sess.ID, out, in, elapsed)
	c.JSON(http.StatusOK, out)
}

// publishFrame mirrors the tick to the observer stream, best-effort.
func (h *SessionHandler) publishFrame(c *gin.Context, id string, out session.TickOutput, in session.TickInput, elapsed float64) {
	if h.d.Events == nil {
		return
	}
	frame := session.StreamEvent{
		T:       elapsed,
		State:   out.State,
		Phase:   out.Phase,
		Action:  out.Action,
		SelfHP:  in.Self.HP,
		OppHP:   in.Opponent.HP,
		EventIn: len(in.Events),
	}
	raw, err := json.Marshal(frame)
	if err != nil {
		return
	}
	if err := h.d.Events.Publish(c.Request.Context(), session.EventChannel(id), string(raw)); err != nil {
		h.d.Logger.Debug("observer publish failed", zap.Error(err))
	}
}

// State reports the session's coarse observables.
// GET /api/session/state
func (h *SessionHandler) State(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	phase, state, elapsed := sess.State()
	c.JSON(http.StatusOK, gin.H{
		"session_id":   sess.ID,
		"archetype":    sess.Archetype,
		"player_style": string(sess.Style),
		"phase":        phase,
		"state":        state,
		"elapsed":      elapsed,
		"created_at":   sess.CreatedAt,
	})
}

// Debug exposes the brain's full internals.
// GET /api/session/debug
func (h *SessionHandler) Debug(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.DebugState())
}

type finishSessionRequest struct {
	Winner string `json:"winner" binding:"omitempty,oneof=player opponent draw"`
}

// Finish finalizes the session, persists the match, and removes it.
// DELETE /api/session
func (h *SessionHandler) Finish(c *gin.Context) {
	sess, ok := h.session(c)
	if !ok {
		return
	}

	var req finishSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	winner := req.Winner
	if winner == "" {
		winner = "draw"
	}

	entry, fresh := sess.Finalize(winner)
	ctx := c.Request.Context()
	if fresh {
		if h.d.MatchLog != nil {
			h.d.MatchLog.Log(entry)
		}
		// Draws carry no win/loss signal for the stats store.
		if winner != "draw" {
			err := h.d.Store.RecordResult(ctx, sess.Archetype,
				winner == "opponent", entry.DamageDealt, entry.Duration)
			if err != nil {
				h.d.Logger.Warn("stats write-back failed",
					zap.String("archetype", sess.Archetype), zap.Error(err))
			}
		}
		h.d.Metrics.RecordMatch(sess.Archetype, winner)
		h.d.Metrics.ObserveSessionDuration(entry.Duration)

		if h.d.Events != nil {
			final := session.StreamEvent{T: entry.Duration, Winner: winner}
			if raw, err := json.Marshal(final); err == nil {
				if err := h.d.Events.Publish(ctx, session.EventChannel(sess.ID), string(raw)); err != nil {
					h.d.Logger.Debug("observer publish failed", zap.Error(err))
				}
			}
		}
	}

	h.d.Manager.Remove(ctx, sess.ID)
	h.d.Metrics.SetActiveSessions(h.d.Manager.Count())

	c.JSON(http.StatusOK, gin.H{
		"session_id":    sess.ID,
		"winner":        winner,
		"duration":      entry.Duration,
		"damage_dealt":  entry.DamageDealt,
		"damage_taken":  entry.DamageTaken,
		"total_attacks": entry.TotalAttacks,
		"avg_distance":  entry.AvgDistance,
	})
}

// session resolves the authenticated fight session or writes the error.
func (h *SessionHandler) session(c *gin.Context) (*session.FightSession, bool) {
	id := mw.GetSessionID(c)
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no session"})
		return nil, false
	}
	sess, ok := h.d.Manager.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return sess, true
}
