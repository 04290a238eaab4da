package rest

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/darshang-108/ai-learning-opponent/cache"
	"github.com/darshang-108/ai-learning-opponent/config"
	"github.com/darshang-108/ai-learning-opponent/game/archetype"
	"github.com/darshang-108/ai-learning-opponent/game/arena"
	"github.com/darshang-108/ai-learning-opponent/game/session"
	"github.com/darshang-108/ai-learning-opponent/matchlog"
	"github.com/darshang-108/ai-learning-opponent/model"
	"github.com/darshang-108/ai-learning-opponent/scheduler"
)

const simulateMatchCap = 500

// simulateLockKey serializes admin-triggered batches: a second
// /simulate while one is running gets 409 instead of doubling the
// load. The TTL releases the lock if the server dies mid-batch.
const (
	simulateLockKey = "admin:simulate:lock"
	simulateLockTTL = 10 * time.Minute
)

// AdminDeps bundles what the admin endpoints need.
type AdminDeps struct {
	DB       *gorm.DB
	Cache    cache.Cache
	Manager  *session.Manager
	Sched    *scheduler.Scheduler
	Store    *archetype.StatsStore
	Selector *archetype.Selector
	Pool     *archetype.Pool
	Analyzer *archetype.Analyzer
	MatchLog *matchlog.Service
	Sim      config.SimConfig
	Logger   *zap.Logger
}

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	d AdminDeps
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(d AdminDeps) *AdminHandler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &AdminHandler{d: d}
}

// Metrics returns a service health snapshot.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	var matches int64
	if err := h.d.DB.Model(&model.MatchRecord{}).Count(&matches).Error; err != nil {
		h.d.Logger.Warn("match count failed", zap.Error(err))
	}
	var archetypes int64
	if err := h.d.DB.Model(&model.ArchetypeStats{}).Count(&archetypes).Error; err != nil {
		h.d.Logger.Warn("archetype count failed", zap.Error(err))
	}
	c.JSON(http.StatusOK, gin.H{
		"active_sessions": h.d.Manager.Count(),
		"scheduler_tasks": h.d.Sched.ListTickers(),
		"matches_logged":  matches,
		"archetype_rows":  archetypes,
	})
}

// ListSessions returns a snapshot of live fight sessions.
// GET /api/admin/sessions
func (h *AdminHandler) ListSessions(c *gin.Context) {
	sessions := h.d.Manager.All()
	type sessionInfo struct {
		SessionID string  `json:"session_id"`
		Archetype string  `json:"archetype"`
		Style     string  `json:"player_style"`
		Phase     string  `json:"phase"`
		State     string  `json:"state"`
		Elapsed   float64 `json:"elapsed"`
		IdleSec   float64 `json:"idle_sec"`
	}
	out := make([]sessionInfo, 0, len(sessions))
	for _, s := range sessions {
		phase, state, elapsed := s.State()
		out = append(out, sessionInfo{
			SessionID: s.ID,
			Archetype: s.Archetype,
			Style:     string(s.Style),
			Phase:     phase,
			State:     state,
			Elapsed:   elapsed,
			IdleSec:   s.IdleFor().Seconds(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"sessions": out, "count": len(out)})
}

// KickSession force-finalizes a fight session as a draw.
// POST /api/admin/sessions/:id/kick
func (h *AdminHandler) KickSession(c *gin.Context) {
	id := c.Param("id")
	s, ok := h.d.Manager.Get(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	if entry, fresh := s.Finalize("draw"); fresh && h.d.MatchLog != nil {
		h.d.MatchLog.Log(entry)
	}
	h.d.Manager.Remove(c.Request.Context(), id)
	h.d.Logger.Info("admin kicked session", zap.String("session_id", id))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ResetStats zeroes every archetype's lifetime record and drops the
// cached views built on them.
// POST /api/admin/stats/reset
func (h *AdminHandler) ResetStats(c *gin.Context) {
	res := h.d.DB.Where("1 = 1").Delete(&model.ArchetypeStats{})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	if h.d.Cache != nil {
		if err := h.d.Cache.Del(c.Request.Context(), statsCacheKey, archetype.LeaderboardKey); err != nil {
			h.d.Logger.Warn("stats cache invalidation failed", zap.Error(err))
		}
	}
	h.d.Logger.Info("archetype stats reset", zap.Int64("rows", res.RowsAffected))
	c.JSON(http.StatusOK, gin.H{"ok": true, "rows": res.RowsAffected})
}

// ListSchedulerTasks returns names of all registered ticker tasks.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.d.Sched.ListTickers()})
}

// RefreshLeaderboard rebuilds the cached leaderboard from the DB.
// POST /api/admin/leaderboard/refresh
func (h *AdminHandler) RefreshLeaderboard(c *gin.Context) {
	n, err := h.d.Store.RefreshLeaderboard(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": n})
}

type simulateRequest struct {
	Matches int   `json:"matches" binding:"required,min=1,max=500"`
	Seed    int64 `json:"seed"`
	Workers int   `json:"workers" binding:"omitempty,min=1,max=16"`
	Record  bool  `json:"record"`
}

// Simulate runs a synchronous self-play batch and returns the summary.
// POST /api/admin/simulate
func (h *AdminHandler) Simulate(c *gin.Context) {
	var req simulateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Matches > simulateMatchCap {
		req.Matches = simulateMatchCap
	}

	if h.d.Cache != nil {
		got, err := h.d.Cache.SetNX(c.Request.Context(), simulateLockKey, "running", simulateLockTTL)
		if err == nil && !got {
			c.JSON(http.StatusConflict, gin.H{"error": "a simulation batch is already running"})
			return
		}
		defer func() {
			if err := h.d.Cache.Del(c.Request.Context(), simulateLockKey); err != nil {
				h.d.Logger.Warn("simulate lock release failed", zap.Error(err))
			}
		}()
	}

	bc := arena.BatchConfig{
		Matches:     req.Matches,
		Seed:        req.Seed,
		Workers:     req.Workers,
		MaxDuration: h.d.Sim.MaxDuration.Seconds(),
		Selector:    h.d.Selector,
		Pool:        h.d.Pool,
		Analyzer:    h.d.Analyzer,
		Logger:      h.d.Logger,
	}
	if req.Record {
		bc.Store = h.d.Store
		if h.d.MatchLog != nil {
			bc.Recorder = h.d.MatchLog
		}
	}

	summary, err := arena.RunBatch(c.Request.Context(), bc)
	if err != nil {
		h.d.Logger.Error("admin simulate failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "simulation failed"})
		return
	}

	lines := make([]gin.H, len(summary.Archetypes))
	for i, a := range summary.Archetypes {
		lines[i] = gin.H{
			"name": a.Name, "played": a.Played, "won": a.Won, "win_rate": a.WinRate,
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"matches":        summary.Matches,
		"opponent_wins":  summary.OpponentWins,
		"player_wins":    summary.PlayerWins,
		"draws":          summary.Draws,
		"avg_duration":   summary.AvgDuration,
		"avg_aggression": summary.AvgAggression,
		"elapsed_ms":     summary.Elapsed.Milliseconds(),
		"archetypes":     lines,
	})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// WARNING: if adminKey is empty all admin endpoints are disabled (503) so the
// server cannot be accidentally deployed without protection. Set a non-empty
// server.admin_key in config to enable admin routes.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if key != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
