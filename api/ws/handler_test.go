package ws

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/darshang-108/ai-learning-opponent/cache"
	"github.com/darshang-108/ai-learning-opponent/config"
	"github.com/darshang-108/ai-learning-opponent/game/session"
	mw "github.com/darshang-108/ai-learning-opponent/middleware"
	"github.com/darshang-108/ai-learning-opponent/testutil"
)

func setupWSServer(t *testing.T) (*httptest.Server, *session.Manager, cache.Cache, config.SecurityConfig) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	c, _ := testutil.SetupTestCache(t)
	sec := config.SecurityConfig{JWTSecret: "ws-test-secret"}
	manager := session.NewManager(c, zap.NewNop())

	router := NewRouter(zap.NewNop())
	NewFightHandlers(nil, nil, zap.NewNop()).RegisterHandlers(router)

	h := NewHandler(c, sec, manager, router, nil, nil, zap.NewNop())
	engine := gin.New()
	engine.GET("/ws", h.ServeWS)

	srv := httptest.NewServer(engine)
	t.Cleanup(srv.Close)
	return srv, manager, c, sec
}

func wsURL(srv *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
}

func TestServeWS_MissingToken(t *testing.T) {
	srv, _, _, _ := setupWSServer(t)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, ""), nil)
	require.Error(t, err)
	if conn != nil {
		conn.Close()
	}
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestServeWS_InvalidToken(t *testing.T) {
	srv, _, _, _ := setupWSServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "garbage"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestServeWS_SessionNotFound(t *testing.T) {
	srv, _, c, sec := setupWSServer(t)

	// Live in the presence set but never registered with the manager.
	require.NoError(t, c.SAdd(context.Background(), "sessions:active", "ghost"))
	token, err := mw.GenerateToken("ghost", sec.JWTSecret, time.Hour)
	require.NoError(t, err)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestServeWS_ExpiredSession(t *testing.T) {
	srv, manager, _, sec := setupWSServer(t)

	s := fightSession(t, "stale")
	manager.Register(context.Background(), s)
	manager.Remove(context.Background(), "stale")

	token, err := mw.GenerateToken("stale", sec.JWTSecret, time.Hour)
	require.NoError(t, err)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 401, resp.StatusCode)
}

func TestServeWS_TickRoundtrip(t *testing.T) {
	srv, manager, _, sec := setupWSServer(t)

	s := fightSession(t, "fight-1")
	manager.Register(context.Background(), s)
	token, err := mw.GenerateToken("fight-1", sec.JWTSecret, time.Hour)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.NoError(t, err)
	defer conn.Close()

	in := session.TickInput{
		Dt:       1.0 / 60,
		Self:     session.FighterState{X: 300, Y: 420, HP: 120, MaxHP: 120, Stamina: 100, MaxStamina: 100},
		Opponent: session.FighterState{X: 480, Y: 420, HP: 120, MaxHP: 120, Stamina: 100, MaxStamina: 100},
	}
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, makePacket(t, 1, "tick", in)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var pkt session.Packet
	require.NoError(t, json.Unmarshal(raw, &pkt))
	assert.Equal(t, "action", pkt.Type)

	var out session.TickOutput
	require.NoError(t, json.Unmarshal(pkt.Payload, &out))
	assert.NotEmpty(t, out.State)
	assert.NotEmpty(t, out.Phase)
	assert.NotEmpty(t, out.Action.Kind)
}

func TestServeWS_StateRequest(t *testing.T) {
	srv, manager, _, sec := setupWSServer(t)

	s := fightSession(t, "fight-2")
	manager.Register(context.Background(), s)
	token, err := mw.GenerateToken("fight-2", sec.JWTSecret, time.Hour)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, makePacket(t, 1, "state", nil)))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, raw, err := conn.ReadMessage()
	require.NoError(t, err)

	var pkt session.Packet
	require.NoError(t, json.Unmarshal(raw, &pkt))
	assert.Equal(t, "state", pkt.Type)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(pkt.Payload, &body))
	assert.Equal(t, "fight-2", body["session_id"])
	assert.Equal(t, "Berserker", body["archetype"])
}

func TestServeWS_DisconnectKeepsSession(t *testing.T) {
	srv, manager, _, sec := setupWSServer(t)

	s := fightSession(t, "fight-3")
	manager.Register(context.Background(), s)
	token, err := mw.GenerateToken("fight-3", sec.JWTSecret, time.Hour)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(srv, token), nil)
	require.NoError(t, err)
	conn.Close()

	// Give the server side a moment to notice the close.
	time.Sleep(100 * time.Millisecond)

	// The session outlives the socket for reconnects and REST ticks.
	_, ok := manager.Get("fight-3")
	assert.True(t, ok)
}
