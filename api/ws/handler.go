package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/darshang-108/ai-learning-opponent/cache"
	"github.com/darshang-108/ai-learning-opponent/config"
	"github.com/darshang-108/ai-learning-opponent/game/session"
	"github.com/darshang-108/ai-learning-opponent/metrics"
	mw "github.com/darshang-108/ai-learning-opponent/middleware"
)

const readDeadline = 60 * time.Second

// Handler is the Gin handler for GET /ws.
type Handler struct {
	cache    cache.Cache
	sec      config.SecurityConfig
	manager  *session.Manager
	router   *Router
	metrics  *metrics.Metrics
	events   cache.PubSub
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a WebSocket Handler.
// sec.AllowedOrigins controls which WebSocket origins are accepted.
// An empty slice permits all origins (development only).
func NewHandler(
	c cache.Cache,
	sec config.SecurityConfig,
	manager *session.Manager,
	router *Router,
	mx *metrics.Metrics,
	events cache.PubSub,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		cache:   c,
		sec:     sec,
		manager: manager,
		router:  router,
		metrics: mx,
		events:  events,
		logger:  logger,
	}
	allowed := sec.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true // dev mode: allow all
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowed {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// ServeWS handles GET /ws?token=<jwt>. The token must belong to a live
// fight session created over REST.
func (h *Handler) ServeWS(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	claims, err := mw.ParseToken(tokenStr, h.sec.JWTSecret)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	if h.cache != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		live, err := h.cache.SIsMember(ctx, "sessions:active", claims.SessionID)
		cancel()
		if err != nil || !live {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
	}

	sess, ok := h.manager.Get(claims.SessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", zap.Error(err))
		return
	}

	sess.AttachConn(conn)
	h.logger.Info("ws attached", zap.String("session_id", sess.ID))
	h.readPump(sess, conn)
}

// readPump reads messages from the connection and dispatches them.
// It blocks until the connection closes.
func (h *Handler) readPump(s *session.FightSession, conn *websocket.Conn) {
	defer h.handleDisconnect(s, conn)

	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				h.logger.Warn("ws unexpected close",
					zap.String("session_id", s.ID),
					zap.Error(err))
			}
			return
		}
		// Reset read deadline on any message (heartbeat or otherwise).
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
		h.router.Dispatch(s, raw)
	}
}

// handleDisconnect detaches the connection. The fight session itself
// survives: the client may reconnect or continue over REST until the
// session is finished or swept idle.
func (h *Handler) handleDisconnect(s *session.FightSession, conn *websocket.Conn) {
	_ = conn.Close()
	h.logger.Info("ws detached", zap.String("session_id", s.ID))
}
