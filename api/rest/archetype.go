package rest

import (
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/darshang-108/ai-learning-opponent/cache"
	"github.com/darshang-108/ai-learning-opponent/game/archetype"
)

// statsCacheKey holds the rendered /api/archetypes/stats body. Stats
// only move at match end, so a short TTL keeps the endpoint off the DB
// without serving stale rows for long. Admin stats-reset deletes it.
const (
	statsCacheKey = "archetypes:stats"
	statsCacheTTL = 30 * time.Second
)

// ArchetypeHandler handles the archetype catalogue and stats endpoints.
type ArchetypeHandler struct {
	pool   *archetype.Pool
	store  *archetype.StatsStore
	cache  cache.Cache
	top    int
	logger *zap.Logger
}

// NewArchetypeHandler creates an ArchetypeHandler. top caps the
// leaderboard length.
func NewArchetypeHandler(pool *archetype.Pool, store *archetype.StatsStore, c cache.Cache, top int, logger *zap.Logger) *ArchetypeHandler {
	if top <= 0 {
		top = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ArchetypeHandler{pool: pool, store: store, cache: c, top: top, logger: logger}
}

// List returns the personality pool.
// GET /api/archetypes
func (h *ArchetypeHandler) List(c *gin.Context) {
	type personalityInfo struct {
		Name            string  `json:"name"`
		Aggression      float64 `json:"aggression"`
		AttackFrequency float64 `json:"attack_frequency"`
		RetreatTendency float64 `json:"retreat_tendency"`
		UsesProjectiles bool    `json:"uses_projectiles"`
		RiskTolerance   float64 `json:"risk_tolerance"`
	}
	all := h.pool.All()
	out := make([]personalityInfo, len(all))
	for i, p := range all {
		out[i] = personalityInfo{
			Name:            p.Name,
			Aggression:      p.Aggression,
			AttackFrequency: p.AttackFrequency,
			RetreatTendency: p.RetreatTendency,
			UsesProjectiles: p.UsesProjectiles,
			RiskTolerance:   p.RiskTolerance,
		}
	}
	c.JSON(http.StatusOK, gin.H{"archetypes": out, "count": len(out)})
}

// Stats returns every archetype's lifetime performance row,
// cache-first with a DB fallback.
// GET /api/archetypes/stats
func (h *ArchetypeHandler) Stats(c *gin.Context) {
	ctx := c.Request.Context()
	if h.cache != nil {
		if body, err := h.cache.Get(ctx, statsCacheKey); err == nil {
			c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(body))
			return
		}
	}

	rows, err := h.store.All(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	type statsRow struct {
		Name        string  `json:"name"`
		Wins        int     `json:"wins"`
		Losses      int     `json:"losses"`
		PlayCount   int     `json:"play_count"`
		WinRate     float64 `json:"win_rate"`
		AvgDamage   float64 `json:"avg_damage"`
		AvgSurvival float64 `json:"avg_survival"`
	}
	out := make([]statsRow, len(rows))
	for i := range rows {
		r := &rows[i]
		out[i] = statsRow{
			Name:        r.Name,
			Wins:        r.Wins,
			Losses:      r.Losses,
			PlayCount:   r.PlayCount,
			WinRate:     r.WinRate(),
			AvgDamage:   r.AvgDamage,
			AvgSurvival: r.AvgSurvival,
		}
	}

	body, err := json.Marshal(gin.H{"stats": out})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "encode error"})
		return
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, statsCacheKey, string(body), statsCacheTTL); err != nil {
			h.logger.Debug("stats cache write failed", zap.Error(err))
		}
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// LeaderboardEntry is one row in the win-rate leaderboard.
type LeaderboardEntry struct {
	Rank    int     `json:"rank"`
	Name    string  `json:"name"`
	WinRate float64 `json:"win_rate"`
	Plays   int     `json:"plays"`
}

// Leaderboard returns archetypes ranked by win rate.
// GET /api/archetypes/leaderboard?limit=10
func (h *ArchetypeHandler) Leaderboard(c *gin.Context) {
	limit := 10
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= h.top {
		limit = l
	}
	ctx := c.Request.Context()

	// Try the cached sorted set first.
	if h.cache != nil {
		members, err := h.cache.ZRevRange(ctx, archetype.LeaderboardKey, 0, int64(limit-1))
		if err == nil && len(members) > 0 {
			entries := make([]LeaderboardEntry, 0, len(members))
			for i, name := range members {
				score, _ := h.cache.ZScore(ctx, archetype.LeaderboardKey, name)
				entries = append(entries, LeaderboardEntry{
					Rank:    i + 1,
					Name:    name,
					WinRate: score,
				})
			}
			h.enrichPlays(c, entries)
			c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
			return
		}
	}

	// Fall back to the database.
	rows, err := h.store.All(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	sort.Slice(rows, func(i, j int) bool {
		wi, wj := rows[i].WinRate(), rows[j].WinRate()
		if wi != wj {
			return wi > wj
		}
		return rows[i].Name < rows[j].Name
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}
	entries := make([]LeaderboardEntry, len(rows))
	for i := range rows {
		r := &rows[i]
		entries[i] = LeaderboardEntry{
			Rank:    i + 1,
			Name:    r.Name,
			WinRate: r.WinRate(),
			Plays:   r.PlayCount,
		}
		if h.cache != nil {
			_ = h.cache.ZAdd(ctx, archetype.LeaderboardKey, r.WinRate(), r.Name)
		}
	}
	c.JSON(http.StatusOK, gin.H{"leaderboard": entries})
}

// enrichPlays fills play counts for cache-served entries.
func (h *ArchetypeHandler) enrichPlays(c *gin.Context, entries []LeaderboardEntry) {
	if len(entries) == 0 {
		return
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	snap, err := h.store.Snapshot(c.Request.Context(), names)
	if err != nil {
		h.logger.Warn("leaderboard enrich failed", zap.Error(err))
		return
	}
	for i := range entries {
		if st, ok := snap[entries[i].Name]; ok {
			entries[i].Plays = st.PlayCount
		}
	}
}
