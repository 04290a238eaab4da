package sse

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/darshang-108/ai-learning-opponent/cache"
	"github.com/darshang-108/ai-learning-opponent/config"
	"github.com/darshang-108/ai-learning-opponent/game/session"
	mw "github.com/darshang-108/ai-learning-opponent/middleware"
)

const (
	announceChannel   = "announce"
	keepaliveInterval = 30 * time.Second
)

// Handler streams live fight frames to observers.
type Handler struct {
	pubsub  cache.PubSub
	c       cache.Cache
	manager *session.Manager
	sec     config.SecurityConfig
	logger  *zap.Logger
}

// NewHandler creates an SSE Handler.
func NewHandler(pubsub cache.PubSub, c cache.Cache, manager *session.Manager, sec config.SecurityConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pubsub: pubsub, c: c, manager: manager, sec: sec, logger: logger}
}

// ServeSSE handles GET /sse/fight/:id?token=<jwt>.
// Any holder of a live session token may observe any running fight.
// The stream carries per-tick "frame" events plus system "announce"
// messages; the terminal frame carries the winner.
func (h *Handler) ServeSSE(c *gin.Context) {
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

	if h.c != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		live, err := h.c.SIsMember(ctx, "sessions:active", claims.SessionID)
		cancel()
		if err != nil || !live {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
	}

	fightID := c.Param("id")
	if _, ok := h.manager.Get(fightID); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "fight not found"})
		return
	}

	// Set SSE headers.
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	fightCh := session.EventChannel(fightID)
	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, fightCh, announceChannel)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	// Send initial connected event.
	fmt.Fprintf(c.Writer, "event: connected\ndata: {\"fight_id\":%q}\n\n", fightID)
	c.Writer.Flush()

	ticker := time.NewTicker(keepaliveInterval)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			name := "frame"
			if msg.Channel == announceChannel {
				name = "announce"
			}
			fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", name, msg.Payload)
			c.Writer.Flush()

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

// Announce publishes a system message to every connected observer.
func (h *Handler) Announce(ctx context.Context, message string) error {
	return h.pubsub.Publish(ctx, announceChannel, message)
}
