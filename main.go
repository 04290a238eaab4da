package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	apirest "github.com/darshang-108/ai-learning-opponent/api/rest"
	"github.com/darshang-108/ai-learning-opponent/api/sse"
	apows "github.com/darshang-108/ai-learning-opponent/api/ws"
	"github.com/darshang-108/ai-learning-opponent/cache"
	"github.com/darshang-108/ai-learning-opponent/config"
	dbadapter "github.com/darshang-108/ai-learning-opponent/db"
	"github.com/darshang-108/ai-learning-opponent/game/archetype"
	"github.com/darshang-108/ai-learning-opponent/game/arena"
	"github.com/darshang-108/ai-learning-opponent/game/session"
	"github.com/darshang-108/ai-learning-opponent/matchlog"
	"github.com/darshang-108/ai-learning-opponent/metrics"
	mw "github.com/darshang-108/ai-learning-opponent/middleware"
	"github.com/darshang-108/ai-learning-opponent/model"
	"github.com/darshang-108/ai-learning-opponent/scheduler"
)

func main() {
	cfgPath := flag.String("config", "config/config.yaml", "path to the YAML config file")
	simulate := flag.Int("simulate", 0, "run N simulated matches and exit (0 = serve)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	// Warn loudly if admin endpoints will be disabled.
	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	logger.Info("DB initialized")

	// ---- Cache / PubSub ----
	cacheConfig := cache.CacheConfig{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.NewCache(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Archetype Pool ----
	var pool *archetype.Pool
	if cfg.Fight.PoolPath != "" {
		pool, err = archetype.LoadPool(cfg.Fight.PoolPath)
	} else {
		pool, err = archetype.NewPool()
	}
	if err != nil {
		log.Fatalf("archetype pool: %v", err)
	}
	logger.Info("Archetype pool loaded", zap.Int("archetypes", len(pool.Names())))

	// ---- Stores ----
	store := archetype.NewStatsStore(db, c, logger)
	analyzer := archetype.NewAnalyzer(db, logger)
	mlog := matchlog.New(db, logger)

	// ---- Batch simulation mode ----
	if *simulate > 0 {
		runSimulation(cfg, *simulate, pool, store, analyzer, mlog, logger)
		mlog.Stop(context.Background())
		return
	}

	selectorRNG := rand.New(rand.NewSource(time.Now().UnixNano()))
	selector, err := archetype.NewSelector(pool, store, archetype.DefaultSelectionConfig(), selectorRNG, logger)
	if err != nil {
		log.Fatalf("selector: %v", err)
	}

	// ---- Metrics ----
	mx, err := metrics.New()
	if err != nil {
		log.Fatalf("metrics: %v", err)
	}

	// ---- Session Manager ----
	manager := session.NewManager(c, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)

	sched.AddTicker("leaderboard_refresh", 5*time.Minute, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		n, err := store.RefreshLeaderboard(ctx)
		if err != nil {
			logger.Warn("leaderboard refresh failed", zap.Error(err))
			return
		}
		logger.Debug("leaderboard refreshed", zap.Int("entries", n))
	})
	sched.AddTicker("session_sweep", time.Minute, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, s := range manager.SweepIdle(ctx, cfg.Fight.SessionTTL) {
			if entry, fresh := s.Finalize(model.WinnerDraw); fresh {
				mlog.Log(entry)
			}
		}
		mx.SetActiveSessions(manager.Count())
	})
	// Warm the leaderboard shortly after boot so the first request
	// doesn't pay for the rebuild.
	sched.AddDelay("leaderboard_warmup", 5*time.Second, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if _, err := store.RefreshLeaderboard(ctx); err != nil {
			logger.Warn("leaderboard warmup failed", zap.Error(err))
		}
	})
	sched.AddTicker("stats_snapshot", 10*time.Minute, func() {
		var matches int64
		if err := db.Model(&model.MatchRecord{}).Count(&matches).Error; err != nil {
			logger.Warn("stats snapshot failed", zap.Error(err))
			return
		}
		logger.Info("stats snapshot",
			zap.Int64("matches_logged", matches),
			zap.Int("active_sessions", manager.Count()))
	})

	// ---- WS Router ----
	wsRouter := apows.NewRouter(logger)
	fh := apows.NewFightHandlers(mx, pubsub, logger)
	fh.RegisterHandlers(wsRouter)

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	// Health check
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus scrape endpoint
	r.GET("/metrics", gin.WrapH(mx.Handler()))

	// ---- REST API routes ----
	sessH := apirest.NewSessionHandler(apirest.SessionDeps{
		Manager:  manager,
		Selector: selector,
		Pool:     pool,
		Analyzer: analyzer,
		Store:    store,
		MatchLog: mlog,
		Metrics:  mx,
		Events:   pubsub,
		Security: cfg.Security,
		Fight:    cfg.Fight,
		Logger:   logger,
	})
	archH := apirest.NewArchetypeHandler(pool, store, c, cfg.Fight.LeaderboardTop, logger)
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
		Sim:      cfg.Sim,
		Logger:   logger,
	})

	api := r.Group("/api")
	{
		api.POST("/session", sessH.Create)

		sessG := api.Group("/session")
		sessG.Use(mw.SessionAuth(cfg.Security, c))
		sessG.POST("/tick", sessH.Tick)
		sessG.GET("/state", sessH.State)
		sessG.GET("/debug", sessH.Debug)
		sessG.DELETE("", sessH.Finish)

		archG := api.Group("/archetypes")
		archG.GET("", archH.List)
		archG.GET("/stats", archH.Stats)
		archG.GET("/leaderboard", archH.Leaderboard)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(cfg.Server.AdminKey))
		if len(cfg.Server.AdminIPs) > 0 {
			adminG.Use(mw.IPWhitelist(cfg.Server.AdminIPs))
		}
		adminG.GET("/metrics", adminH.Metrics)
		adminG.GET("/sessions", adminH.ListSessions)
		adminG.POST("/sessions/:id/kick", adminH.KickSession)
		adminG.POST("/stats/reset", adminH.ResetStats)
		adminG.GET("/scheduler", adminH.ListSchedulerTasks)
		adminG.POST("/leaderboard/refresh", adminH.RefreshLeaderboard)
		adminG.POST("/simulate", adminH.Simulate)
	}

	// ---- WebSocket ----
	wsH := apows.NewHandler(c, cfg.Security, manager, wsRouter, mx, pubsub, logger)
	r.GET("/ws", wsH.ServeWS)

	// ---- SSE observer stream ----
	sseH := sse.NewHandler(pubsub, c, manager, cfg.Security, logger)
	r.GET("/sse/fight/:id", sseH.ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()
	logger.Info("Server listening", zap.String("addr", addr))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")
	_ = sseH.Announce(context.Background(), `{"msg":"server shutting down"}`)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	sched.Stop()
	manager.CloseAll(shutdownCtx)
	mlog.Stop(shutdownCtx)
	logger.Info("bye")
}

// runSimulation runs a seeded offline batch and prints the summary
// tables instead of serving.
func runSimulation(
	cfg *config.Config,
	matches int,
	pool *archetype.Pool,
	store *archetype.StatsStore,
	analyzer *archetype.Analyzer,
	mlog *matchlog.Service,
	logger *zap.Logger,
) {
	rng := rand.New(rand.NewSource(cfg.Sim.Seed))
	selector, err := archetype.NewSelector(pool, store, archetype.DefaultSelectionConfig(), rng, logger)
	if err != nil {
		log.Fatalf("selector: %v", err)
	}

	bc := arena.BatchConfig{
		Matches:     matches,
		Seed:        cfg.Sim.Seed,
		Workers:     cfg.Sim.Workers,
		TickRate:    cfg.Fight.TickRate,
		MaxDuration: cfg.Sim.MaxDuration.Seconds(),
		Selector:    selector,
		Pool:        pool,
		Analyzer:    analyzer,
		Logger:      logger,
	}
	if cfg.Sim.Record {
		bc.Store = store
		bc.Recorder = mlog
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	summary, err := arena.RunBatch(ctx, bc)
	if err != nil {
		log.Fatalf("simulation: %v", err)
	}
	arena.PrintBatchSummary(summary)
}
