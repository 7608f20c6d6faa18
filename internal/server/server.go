package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/palemoky/call-break/internal/config"
	"github.com/palemoky/call-break/internal/game/match"
	"github.com/palemoky/call-break/internal/game/room"
	"github.com/palemoky/call-break/internal/protocol/codec"
	"github.com/palemoky/call-break/internal/server/handler"
	"github.com/palemoky/call-break/internal/server/session"
	"github.com/palemoky/call-break/internal/server/storage"
)

// Server WebSocket 服务器
type Server struct {
	config         *config.Config
	log            *zap.Logger
	redis          *redis.Client
	redisStore     *storage.RedisStore
	leaderboard    *storage.LeaderboardManager
	db             *gorm.DB
	history        *storage.HistoryStore
	roomManager    *room.RoomManager
	matcher        *match.Matcher
	sessionManager *session.SessionManager
	handler        *handler.Handler
	codec          codec.Codec
	upgrader       websocket.Upgrader
	router         *gin.Engine
	httpServer     *http.Server

	clients   map[string]*Client
	clientsMu sync.RWMutex

	// 安全组件
	rateLimiter    *RateLimiter
	originChecker  *OriginChecker
	messageLimiter *MessageRateLimiter
	chatLimiter    *ChatRateLimiter
	ipFilter       *IPFilter

	// 连接控制
	maxConnections int
	semaphore      chan struct{} // 信号量控制并发连接数

	// 维护模式
	maintenanceMode bool
	maintenanceMu   sync.RWMutex

	done         chan struct{}
	shutdownOnce sync.Once
}

// NewServer 创建服务器实例：连接 Redis 与历史库，组装房间、匹配、会话和消息处理
func NewServer(cfg *config.Config, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}

	wireCodec, err := codec.New(cfg.Codec.Format)
	if err != nil {
		return nil, err
	}

	// 初始化 Redis 客户端
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis 连接失败: %w", err)
	}

	// 初始化历史库
	db, err := storage.OpenDB(cfg.History.Driver, cfg.History.DSN)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}
	history, err := storage.NewHistoryStore(db)
	if err != nil {
		_ = rdb.Close()
		return nil, err
	}

	s := &Server{
		config:      cfg,
		log:         log,
		redis:       rdb,
		redisStore:  storage.NewRedisStore(rdb),
		leaderboard: storage.NewLeaderboardManager(rdb),
		db:          db,
		history:     history,
		codec:       wireCodec,
		clients:     make(map[string]*Client),
		rateLimiter: NewRateLimiter(
			cfg.Security.RateLimit.MaxPerSecond,
			cfg.Security.RateLimit.MaxPerMinute,
			cfg.Security.RateLimit.BanDurationTime(),
		),
		originChecker:  NewOriginChecker(cfg.Security.AllowedOrigins),
		messageLimiter: NewMessageRateLimiter(cfg.Security.MessageLimit.MaxPerSecond),
		chatLimiter: NewChatRateLimiter(
			cfg.Security.ChatLimit.MaxPerSecond,
			cfg.Security.ChatLimit.MaxPerMinute,
			cfg.Security.ChatLimit.CooldownDuration(),
		),
		ipFilter:       NewIPFilter(),
		maxConnections: cfg.Server.MaxConnections,
		semaphore:      make(chan struct{}, cfg.Server.MaxConnections),
		done:           make(chan struct{}),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.originChecker.Check,
	}

	s.sessionManager = session.NewSessionManager(session.Options{
		Secret:          cfg.Session.Secret,
		TokenTTL:        cfg.Session.TokenTTLDuration(),
		ReconnectWindow: cfg.Session.ReconnectWindowDuration(),
		Store:           s.redisStore,
		Logger:          log.Named("session"),
	})

	s.roomManager = room.NewRoomManager(room.Deps{
		Store:        s.redisStore,
		Recorder:     NewGameRecorder(history, s.leaderboard, log.Named("recorder")),
		Logger:       log.Named("room"),
		Options:      roomOptions(&cfg.Game),
		RoomTimeout:  cfg.Game.RoomTimeoutDuration(),
		AbandonAfter: cfg.Game.AbandonAfterDuration(),
	})

	s.matcher = match.NewMatcher(match.MatcherDeps{
		Rooms:       s.roomManager,
		Store:       s.redisStore,
		Logger:      log.Named("match"),
		WaitTimeout: cfg.Game.MatchWaitDuration(),
	})

	s.handler = handler.NewHandler(handler.HandlerDeps{
		Server:         s,
		RoomManager:    s.roomManager,
		Matcher:        s.matcher,
		ChatLimiter:    s.chatLimiter,
		Leaderboard:    s.leaderboard,
		SessionManager: s.sessionManager,
		Logger:         log.Named("handler"),
	})

	s.router = s.newRouter()

	log.Info("🔒 安全配置",
		zap.Int("conn_per_second", cfg.Security.RateLimit.MaxPerSecond),
		zap.Int("msg_per_second", cfg.Security.MessageLimit.MaxPerSecond),
		zap.Int("chat_per_second", cfg.Security.ChatLimit.MaxPerSecond),
		zap.Int("max_connections", cfg.Server.MaxConnections),
		zap.String("codec", string(wireCodec.Format())))

	return s, nil
}

// roomOptions 由配置生成房间节奏参数
func roomOptions(g *config.GameConfig) room.Options {
	opts := room.DefaultOptions()
	opts.TotalRounds = g.TotalRounds
	opts.MandatoryTrumping = g.MandatoryTrumpingEnabled()
	opts.AutoNextRound = g.AutoNextRoundEnabled()
	opts.BotDelay = g.BotThinkDuration()
	opts.TrickDelay = g.TrickCollectDuration()
	opts.RoundDelay = g.RoundEndDuration()
	opts.OfflineGrace = g.OfflineGraceDuration()
	return opts
}

// newRouter 注册 HTTP 路由
func (s *Server) newRouter() *gin.Engine {
	if s.config.Server.Mode == gin.ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/ws", func(c *gin.Context) { s.handleWebSocket(c.Writer, c.Request) })
	r.GET("/health", s.handleHealth)

	api := r.Group("/api")
	{
		api.GET("/leaderboard", s.handleLeaderboard)
		api.GET("/history/:player", s.handleHistory)
	}
	return r
}

// Handler 返回 HTTP 处理器
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 启动服务器，阻塞直到关闭
func (s *Server) Start() error {
	addr := s.config.Server.Addr()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second, // 防止 Slowloris 攻击
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// 启动监控 goroutine
	go s.monitorStats()

	s.log.Info("🚀 服务器启动", zap.String("addr", "ws://"+addr+"/ws"), zap.Int("cpus", runtime.NumCPU()))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
