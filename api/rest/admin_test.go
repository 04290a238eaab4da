package rest_test

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/darshang-108/ai-learning-opponent/api/rest"
	"github.com/darshang-108/ai-learning-opponent/config"
	"github.com/darshang-108/ai-learning-opponent/game/archetype"
	"github.com/darshang-108/ai-learning-opponent/game/brain"
	"github.com/darshang-108/ai-learning-opponent/game/session"
	"github.com/darshang-108/ai-learning-opponent/model"
	"github.com/darshang-108/ai-learning-opponent/scheduler"
	"github.com/darshang-108/ai-learning-opponent/testutil"
)

type adminEnv struct {
	r       *gin.Engine
	db      *gorm.DB
	manager *session.Manager
	store   *archetype.StatsStore
	pool    *archetype.Pool
}

func newAdminRouter(t *testing.T, adminKey string) *adminEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	pool, err := archetype.NewPool()
	require.NoError(t, err)
	store := archetype.NewStatsStore(db, c, nopLogger())
	analyzer := archetype.NewAnalyzer(db, nopLogger())
	selector, err := archetype.NewSelector(pool, store, archetype.DefaultSelectionConfig(),
		rand.New(rand.NewSource(2)), nopLogger())
	require.NoError(t, err)

	manager := session.NewManager(c, nopLogger())
	sched := scheduler.New(nopLogger())
	t.Cleanup(sched.Stop)
	sched.AddTicker("leaderboard_refresh", time.Hour, func() {})

	h := rest.NewAdminHandler(rest.AdminDeps{
		DB:       db,
		Manager:  manager,
		Sched:    sched,
		Store:    store,
		Selector: selector,
		Pool:     pool,
		Analyzer: analyzer,
		Sim:      config.SimConfig{MaxDuration: 60 * time.Second},
		Logger:   nopLogger(),
	})

	r := gin.New()
	g := r.Group("/api/admin", rest.AdminAuth(adminKey))
	g.GET("/metrics", h.Metrics)
	g.GET("/sessions", h.ListSessions)
	g.POST("/sessions/:id/kick", h.KickSession)
	g.POST("/stats/reset", h.ResetStats)
	g.GET("/scheduler", h.ListSchedulerTasks)
	g.POST("/leaderboard/refresh", h.RefreshLeaderboard)
	g.POST("/simulate", h.Simulate)

	return &adminEnv{r: r, db: db, manager: manager, store: store, pool: pool}
}

func adminGet(r *gin.Engine, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if key != "" {
		req.Header.Set("X-Admin-Key", key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func adminPost(r *gin.Engine, path, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-Admin-Key", key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func registerAdminSession(t *testing.T, env *adminEnv, id string) {
	t.Helper()
	p, err := env.pool.Get("Berserker")
	require.NoError(t, err)
	b, err := brain.New(brain.DefaultConfig(), p, brain.BuildBalanced,
		rand.New(rand.NewSource(5)), zap.NewNop())
	require.NoError(t, err)
	env.manager.Register(context.Background(),
		session.New(id, b, archetype.StyleBalanced, zap.NewNop()))
}

func TestAdmin_RequiresKey(t *testing.T) {
	env := newAdminRouter(t, "secret")

	w := adminGet(env.r, "/api/admin/metrics", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = adminGet(env.r, "/api/admin/metrics", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdmin_DisabledWithoutKey(t *testing.T) {
	env := newAdminRouter(t, "")
	w := adminGet(env.r, "/api/admin/metrics", "anything")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdmin_Metrics(t *testing.T) {
	env := newAdminRouter(t, "secret")
	registerAdminSession(t, env, "m1")

	w := adminGet(env.r, "/api/admin/metrics", "secret")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["active_sessions"])
	assert.Contains(t, resp, "matches_logged")
	assert.Contains(t, resp, "scheduler_tasks")
}

func TestAdmin_ListAndKickSession(t *testing.T) {
	env := newAdminRouter(t, "secret")
	registerAdminSession(t, env, "k1")

	w := adminGet(env.r, "/api/admin/sessions", "secret")
	require.Equal(t, http.StatusOK, w.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	sessions := resp["sessions"].([]interface{})
	require.Len(t, sessions, 1)
	assert.Equal(t, "k1", sessions[0].(map[string]interface{})["session_id"])

	w = adminPost(env.r, "/api/admin/sessions/k1/kick", "secret", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, env.manager.Count())

	w = adminPost(env.r, "/api/admin/sessions/k1/kick", "secret", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdmin_ResetStats(t *testing.T) {
	env := newAdminRouter(t, "secret")

	ctx := context.Background()
	require.NoError(t, env.store.RecordResult(ctx, "Berserker", true, 80, 30))

	w := adminPost(env.r, "/api/admin/stats/reset", "secret", "")
	require.Equal(t, http.StatusOK, w.Code)

	var rows int64
	require.NoError(t, env.db.Model(&model.ArchetypeStats{}).Count(&rows).Error)
	assert.Zero(t, rows)
}

func TestAdmin_SchedulerTasks(t *testing.T) {
	env := newAdminRouter(t, "secret")

	w := adminGet(env.r, "/api/admin/scheduler", "secret")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "leaderboard_refresh")
}

func TestAdmin_Simulate(t *testing.T) {
	env := newAdminRouter(t, "secret")

	w := adminPost(env.r, "/api/admin/simulate", "secret",
		`{"matches":3,"seed":42,"record":true}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(3), resp["matches"])

	wins := resp["opponent_wins"].(float64) + resp["player_wins"].(float64) + resp["draws"].(float64)
	assert.Equal(t, float64(3), wins)

	// record:true persists outcomes for non-draw matches.
	var rows int64
	require.NoError(t, env.db.Model(&model.ArchetypeStats{}).Count(&rows).Error)
	if resp["draws"].(float64) < 3 {
		assert.Greater(t, rows, int64(0))
	}
}

func TestAdmin_Simulate_Validation(t *testing.T) {
	env := newAdminRouter(t, "secret")

	w := adminPost(env.r, "/api/admin/simulate", "secret", `{"matches":0}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = adminPost(env.r, "/api/admin/simulate", "secret", `{"matches":9999}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
