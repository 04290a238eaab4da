package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	apirest "github.com/darshang-108/ai-learning-opponent/api/rest"
	"github.com/darshang-108/ai-learning-opponent/api/sse"
	apows "github.com/darshang-108/ai-learning-opponent/api/ws"
	"github.com/darshang-108/ai-learning-opponent/cache"
	"github.com/darshang-108/ai-learning-opponent/config"
	"github.com/darshang-108/ai-learning-opponent/game/archetype"
	"github.com/darshang-108/ai-learning-opponent/game/session"
	"github.com/darshang-108/ai-learning-opponent/matchlog"
	"github.com/darshang-108/ai-learning-opponent/metrics"
	mw "github.com/darshang-108/ai-learning-opponent/middleware"
	"github.com/darshang-108/ai-learning-opponent/scheduler"
	"github.com/darshang-108/ai-learning-opponent/testutil"
)

const testAdminKey = "integration-admin-key"

// TestServer wraps a real HTTP server with the full opponent service
// wired together.
type TestServer struct {
	DB       *gorm.DB
	Cache    cache.Cache
	PubSub   cache.PubSub
	Manager  *session.Manager
	Pool     *archetype.Pool
	Store    *archetype.StatsStore
	MatchLog *matchlog.Service
	Server   *httptest.Server
	URL      string // http://127.0.0.1:<port>
	WSURL    string // ws://127.0.0.1:<port>/ws
	Sec      config.SecurityConfig
	AdminKey string
}

// NewTestServer creates a fully wired opponent server for integration
// testing. It mirrors the dependency wiring in main.go.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	// ---- Infrastructure ----
	db := testutil.SetupTestDB(t)
	c, pubsub := testutil.SetupTestCache(t)
	logger := zap.NewNop()

	sec := config.SecurityConfig{
		JWTSecret:      "integration-test-secret",
		JWTTTLH:        time.Hour,
		RateLimitRPS:   1000,
		RateLimitBurst: 2000,
		AllowedOrigins: []string{}, // allow all origins
	}
	fight := config.FightConfig{
		TickRate:       60,
		SessionTTL:     5 * time.Minute,
		MaxSessions:    64,
		LeaderboardTop: 10,
	}
	sim := config.SimConfig{
		Matches:     4,
		Workers:     2,
		Seed:        1,
		MaxDuration: 30 * time.Second,
		Record:      true,
	}

	// ---- Archetypes ----
	pool, err := archetype.NewPool()
	require.NoError(t, err, "embedded personality pool")

	store := archetype.NewStatsStore(db, c, logger)
	analyzer := archetype.NewAnalyzer(db, logger)
	mlog := matchlog.New(db, logger)
	t.Cleanup(func() { mlog.Stop(context.Background()) })

	rng := rand.New(rand.NewSource(1))
	selector, err := archetype.NewSelector(pool, store, archetype.DefaultSelectionConfig(), rng, logger)
	require.NoError(t, err, "selector")

	mx, err := metrics.New()
	require.NoError(t, err, "metrics")

	manager := session.NewManager(c, logger)
	sched := scheduler.New(logger)
	t.Cleanup(sched.Stop)

	// ---- WS Router ----
	wsRouter := apows.NewRouter(logger)
	fh := apows.NewFightHandlers(mx, pubsub, logger)
	fh.RegisterHandlers(wsRouter)

	// ---- Gin HTTP Server ----
	r := gin.New()
	r.Use(mw.TraceID(), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(sec.RateLimitRPS), sec.RateLimitBurst))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(mx.Handler()))

	sessH := apirest.NewSessionHandler(apirest.SessionDeps{
		Manager:  manager,
		Selector: selector,
		Pool:     pool,
		Analyzer: analyzer,
		Store:    store,
		MatchLog: mlog,
		Metrics:  mx,
		Events:   pubsub,
		Security: sec,
		Fight:    fight,
		Logger:   logger,
	})
	archH := apirest.NewArchetypeHandler(pool, store, c, fight.LeaderboardTop, logger)
	adminH := apirest.NewAdminHandler(apirest.AdminDeps{
		DB:       db,
		Cache:    c,
		Manager:  manager,
		Sched:    sched,
		Store:    store,
		Selector: selector,
		Pool:     pool,
		Analyzer: analyzer,
		MatchLog: mlog,
		Sim:      sim,
		Logger:   logger,
	})

	api := r.Group("/api")
	{
		api.POST("/session", sessH.Create)

		sessG := api.Group("/session")
		sessG.Use(mw.SessionAuth(sec, c))
		sessG.POST("/tick", sessH.Tick)
		sessG.GET("/state", sessH.State)
		sessG.GET("/debug", sessH.Debug)
		sessG.DELETE("", sessH.Finish)

		archG := api.Group("/archetypes")
		archG.GET("", archH.List)
		archG.GET("/stats", archH.Stats)
		archG.GET("/leaderboard", archH.Leaderboard)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(testAdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/sessions", adminH.ListSessions)
		adminG.POST("/sessions/:id/kick", adminH.KickSession)
		adminG.POST("/stats/reset", adminH.ResetStats)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
		adminG.POST("/leaderboard/refresh", adminH.RefreshLeaderboard)
		adminG.POST("/simulate", adminH.Simulate)
	}

	wsH := apows.NewHandler(c, sec, manager, wsRouter, mx, pubsub, logger)
	r.GET("/ws", wsH.ServeWS)

	sseH := sse.NewHandler(pubsub, c, manager, sec, logger)
	r.GET("/sse/fight/:id", sseH.ServeSSE)

	// ---- Start server ----
	server := httptest.NewServer(r)
	url := server.URL
	wsURL := "ws" + url[len("http"):] + "/ws"

	ts := &TestServer{
		DB:       db,
		Cache:    c,
		PubSub:   pubsub,
		Manager:  manager,
		Pool:     pool,
		Store:    store,
		MatchLog: mlog,
		Server:   server,
		URL:      url,
		WSURL:    wsURL,
		Sec:      sec,
		AdminKey: testAdminKey,
	}
	t.Cleanup(ts.Close)
	return ts
}

// Close shuts down the test server and the sessions it still holds.
func (ts *TestServer) Close() {
	ts.Manager.CloseAll(context.Background())
	ts.Server.Close()
}

// --- HTTP helpers ---

// PostJSON sends a POST request with JSON body and optional Bearer token.
func (ts *TestServer) PostJSON(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bytes.NewReader(data))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Get sends a GET request with optional Bearer token.
func (ts *TestServer) Get(t *testing.T, path string, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// Delete sends a DELETE request with JSON body and optional Bearer token.
func (ts *TestServer) Delete(t *testing.T, path string, body interface{}, token string) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(http.MethodDelete, ts.URL+path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// AdminPost sends a POST with the admin key header.
func (ts *TestServer) AdminPost(t *testing.T, path string, body interface{}) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		bodyReader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, bodyReader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Admin-Key", ts.AdminKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// AdminGet sends a GET with the admin key header.
func (ts *TestServer) AdminGet(t *testing.T, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("X-Admin-Key", ts.AdminKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	return resp
}

// ReadJSON reads and decodes a JSON response body into the given target.
func ReadJSON(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, target), "body: %s", string(data))
}

// --- Fight helpers ---

// CreateSession starts a fight session. Empty archetype lets the
// selector pick; a name pins that personality.
func (ts *TestServer) CreateSession(t *testing.T, archetypeName, style string) (sessionID, token, picked string) {
	t.Helper()
	body := map[string]string{}
	if archetypeName != "" {
		body["archetype"] = archetypeName
	}
	if style != "" {
		body["player_style"] = style
	}
	resp := ts.PostJSON(t, "/api/session", body, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var result map[string]interface{}
	ReadJSON(t, resp, &result)
	sessionID = result["session_id"].(string)
	token = result["token"].(string)
	picked = result["archetype"].(string)
	return
}

// TickBody builds one plausible tick snapshot at the given opponent
// distance, with optional reported events.
func TickBody(dist float64, selfHP, oppHP float64, events ...map[string]interface{}) map[string]interface{} {
	body := map[string]interface{}{
		"dt": 1.0 / 60.0,
		"self": map[string]interface{}{
			"x": 0.0, "y": 0.0,
			"hp": selfHP, "max_hp": 100.0,
			"stamina": 80.0, "max_stamina": 100.0,
		},
		"opponent": map[string]interface{}{
			"x": dist, "y": 0.0,
			"hp": oppHP, "max_hp": 100.0,
			"stamina": 70.0, "max_stamina": 100.0,
		},
	}
	if len(events) > 0 {
		body["events"] = events
	}
	return body
}

// Tick posts one snapshot and returns the decoded decision.
func (ts *TestServer) Tick(t *testing.T, token string, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	resp := ts.PostJSON(t, "/api/session/tick", body, token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out map[string]interface{}
	ReadJSON(t, resp, &out)
	return out
}

// --- WebSocket client ---

// WSClient wraps a gorilla/websocket connection for integration
// testing. A background readLoop keeps reads off the test goroutine.
type WSClient struct {
	Conn   *websocket.Conn
	t      *testing.T
	seq    uint64
	readCh chan readResult
}

type readResult struct {
	data []byte
	err  error
}

// ConnectWS dials the test server's WS endpoint with the given JWT.
func (ts *TestServer) ConnectWS(t *testing.T, token string) *WSClient {
	t.Helper()
	url := ts.WSURL + "?token=" + token
	dialer := websocket.Dialer{}
	conn, resp, err := dialer.Dial(url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	require.NoError(t, err, "WS dial failed")
	wc := &WSClient{Conn: conn, t: t, readCh: make(chan readResult, 256)}
	t.Cleanup(wc.Close)
	go wc.readLoop()
	return wc
}

func (wc *WSClient) readLoop() {
	for {
		_, data, err := wc.Conn.ReadMessage()
		wc.readCh <- readResult{data, err}
		if err != nil {
			return
		}
	}
}

// Send writes one packet to the WebSocket.
func (wc *WSClient) Send(msgType string, payload interface{}) {
	wc.t.Helper()
	seq := atomic.AddUint64(&wc.seq, 1)
	payloadJSON, err := json.Marshal(payload)
	require.NoError(wc.t, err)
	pkt := map[string]interface{}{
		"seq":     seq,
		"type":    msgType,
		"payload": json.RawMessage(payloadJSON),
	}
	data, err := json.Marshal(pkt)
	require.NoError(wc.t, err)
	require.NoError(wc.t, wc.Conn.WriteMessage(websocket.TextMessage, data))
}

// RecvType reads packets until one with the given type arrives.
func (wc *WSClient) RecvType(msgType string, timeout time.Duration) map[string]interface{} {
	wc.t.Helper()
	deadline := time.Now().Add(timeout)
	for {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			wc.t.Fatalf("timed out waiting for message type %q", msgType)
		}
		select {
		case res := <-wc.readCh:
			require.NoError(wc.t, res.err, "WS recv failed while waiting for %q", msgType)
			var pkt map[string]interface{}
			require.NoError(wc.t, json.Unmarshal(res.data, &pkt))
			if pkt["type"] == msgType {
				return pkt
			}
		case <-time.After(remaining):
			wc.t.Fatalf("timed out waiting for message type %q", msgType)
		}
	}
}

// Close closes the WebSocket connection.
func (wc *WSClient) Close() {
	_ = wc.Conn.Close()
}

// PayloadMap extracts a received packet's payload as a map.
func PayloadMap(t *testing.T, pkt map[string]interface{}) map[string]interface{} {
	t.Helper()
	p := pkt["payload"]
	if p == nil {
		return map[string]interface{}{}
	}
	switch v := p.(type) {
	case map[string]interface{}:
		return v
	default:
		data, err := json.Marshal(v)
		require.NoError(t, err)
		var m map[string]interface{}
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}
}
