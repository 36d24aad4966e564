package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"collaborative-editor/internal/collab"
	httpHandler "collaborative-editor/internal/handler/http"
	wsHandler "collaborative-editor/internal/handler/websocket"
	"collaborative-editor/internal/hub"
	gormpersistence "collaborative-editor/internal/infra/persistence/gorm"
	"collaborative-editor/internal/infra/setup"
	"collaborative-editor/internal/middleware"
	"collaborative-editor/internal/repository"
	"collaborative-editor/internal/service"
	"collaborative-editor/internal/worker"
)

// Config holds everything loaded from the environment.
type Config struct {
	AppEnv     string
	LogLevel   string
	ServerPort string
	JWTSecret  string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Archival is optional; the core runs fully in memory without it.
	ArchiveEnabled bool
	DBUser         string
	DBPassword     string
	DBHost         string
	DBPort         string
	DBName         string

	RateLimitMax    int
	RateLimitWindow time.Duration
	CORSOrigin      string

	Collab collab.Config
}

// LoadConfig reads the environment, layering overrides onto the core
// defaults. A .env file is honored when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:          os.Getenv("APP_ENV"),
		LogLevel:        os.Getenv("LOG_LEVEL"),
		ServerPort:      os.Getenv("SERVER_PORT"),
		JWTSecret:       os.Getenv("JWT_SECRET"),
		RedisAddr:       os.Getenv("REDIS_ADDR"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         envInt("REDIS_DB", 0),
		ArchiveEnabled:  envBool("ARCHIVE_ENABLED", false),
		DBUser:          os.Getenv("DB_USER"),
		DBPassword:      os.Getenv("DB_PASSWORD"),
		DBHost:          os.Getenv("DB_HOST"),
		DBPort:          os.Getenv("DB_PORT"),
		DBName:          os.Getenv("DB_NAME"),
		RateLimitMax:    envInt("RATE_LIMIT_MAX", 100),
		RateLimitWindow: time.Duration(envInt("RATE_LIMIT_WINDOW_SECS", 1)) * time.Second,
		CORSOrigin:      os.Getenv("CORS_ALLOWED_ORIGIN"),
		Collab:          collab.DefaultConfig(),
	}

	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.AppEnv == "" {
		cfg.AppEnv = "development"
	}
	if cfg.DBHost == "" {
		cfg.DBHost = "127.0.0.1"
	}
	if cfg.DBPort == "" {
		cfg.DBPort = "3306"
	}
	if cfg.DBName == "" {
		cfg.DBName = "collab_db"
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "http://localhost:3000"
	}
	if cfg.RedisAddr == "" {
		return nil, fmt.Errorf("environment variable REDIS_ADDR must be set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("environment variable JWT_SECRET must be set")
	}

	// Core tunables.
	cfg.Collab.MaxUsersPerRoom = envInt("MAX_USERS_PER_ROOM", cfg.Collab.MaxUsersPerRoom)
	cfg.Collab.MaxRooms = envInt("MAX_ROOMS", cfg.Collab.MaxRooms)
	cfg.Collab.MaxRoomsPerPartition = envInt("MAX_ROOMS_PER_PARTITION", cfg.Collab.MaxRoomsPerPartition)
	cfg.Collab.MaxOpsPerSecond = envInt("MAX_OPS_PER_SECOND", cfg.Collab.MaxOpsPerSecond)
	cfg.Collab.MaxPresencePerSecond = envInt("MAX_PRESENCE_PER_SECOND", cfg.Collab.MaxPresencePerSecond)
	if v := os.Getenv("PRESENCE_MODE"); v != "" {
		cfg.Collab.PresenceMode = collab.PresenceMode(v)
	}
	if v := os.Getenv("SYNC_STRATEGY"); v != "" {
		cfg.Collab.SyncStrategy = collab.SyncStrategy(v)
	}
	cfg.Collab.PresenceFlushInterval = time.Duration(envInt("PRESENCE_FLUSH_MS", int(cfg.Collab.PresenceFlushInterval/time.Millisecond))) * time.Millisecond
	cfg.Collab.HeartbeatInterval = time.Duration(envInt("HEARTBEAT_SECS", int(cfg.Collab.HeartbeatInterval/time.Second))) * time.Second
	cfg.Collab.UserTimeout = time.Duration(envInt("USER_TIMEOUT_SECS", int(cfg.Collab.UserTimeout/time.Second))) * time.Second
	cfg.Collab.RoomIdleTimeout = time.Duration(envInt("ROOM_IDLE_TIMEOUT_SECS", int(cfg.Collab.RoomIdleTimeout/time.Second))) * time.Second
	if v := os.Getenv("DEFAULT_LANGUAGE"); v != "" {
		cfg.Collab.DefaultLanguage = v
	}

	if _, err := logrus.ParseLevel(cfg.LogLevel); err != nil {
		logrus.Warnf("Invalid LOG_LEVEL '%s', using default 'info'", cfg.LogLevel)
		cfg.LogLevel = "info"
	}
	return cfg, nil
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		logrus.Warnf("Invalid %s '%s', using default %d", key, v, def)
		return def
	}
	return n
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		logrus.Warnf("Invalid %s '%s', using default %t", key, v, def)
		return def
	}
	return b
}

// App wires the whole application together.
type App struct {
	Config        *Config
	Log           *logrus.Logger
	DB            *gorm.DB
	RedisClient   *redis.Client
	AsynqClient   *asynq.Client
	WorkerServer  *worker.WorkerServer
	CollabService *service.CollaborationService
	Hub           *hub.Hub
	HttpServer    *http.Server
}

// NewApp creates and initializes every component without starting anything.
func NewApp() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		return nil, err
	}

	log := logrus.New()
	if cfg.AppEnv == "production" {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, ForceColors: true})
	}
	logLevel, _ := logrus.ParseLevel(cfg.LogLevel)
	log.SetLevel(logLevel)
	log.SetOutput(os.Stdout)
	logrus.SetLevel(logLevel)
	log.Info("Configuration loaded successfully")

	log.Info("Initializing infrastructure...")
	redisClient, err := setup.InitRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to init Redis: %w", err)
	}
	log.Info("Redis client initialized")

	var (
		db           *gorm.DB
		asynqClient  *asynq.Client
		workerServer *worker.WorkerServer
		archiver     service.OperationArchiver
		oplogRepo    repository.OperationLogRepository
	)
	if cfg.ArchiveEnabled {
		db, err = setup.InitDB(cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, fmt.Errorf("failed to init DB: %w", err)
		}
		if err := setup.MigrateDB(db); err != nil {
			return nil, fmt.Errorf("failed to migrate DB: %w", err)
		}
		log.Info("Database initialized and migrated")

		redisClientOpt := asynq.RedisClientOpt{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}
		asynqClient = asynq.NewClient(redisClientOpt)
		oplogRepo = gormpersistence.NewGormOperationLogRepository(db)
		workerServer = worker.NewWorkerServer(redisClientOpt, oplogRepo, log)
		archiver = worker.NewAsynqArchiver(asynqClient)
		log.Info("Operation archival enabled")
	} else {
		log.Info("Operation archival disabled, running fully in memory")
	}

	log.Info("Initializing collaboration service...")
	collabService := service.NewCollaborationService(cfg.Collab, archiver)
	hubInstance := hub.NewHub(collabService)

	log.Info("Initializing handlers...")
	collabHandler := httpHandler.NewCollabHandler(collabService)
	websocketHandler := wsHandler.NewWebSocketHandler(hubInstance, collabService)

	log.Info("Setting up router...")
	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(log))
	router.Use(corsMiddleware(cfg.CORSOrigin))
	router.Use(middleware.RateLimit(redisClient, cfg.RateLimitMax, cfg.RateLimitWindow))

	api := router.Group("/api").Use(middleware.Auth(cfg.JWTSecret))
	{
		api.POST("/rooms", collabHandler.CreateRoom)
		api.GET("/rooms/:roomId", collabHandler.GetRoom)
		api.DELETE("/rooms/:roomId", collabHandler.DeleteRoom)
		api.POST("/rooms/:roomId/join", collabHandler.JoinRoom)
		api.GET("/rooms/:roomId/users", collabHandler.GetRoomUsers)
		api.GET("/rooms/:roomId/document", collabHandler.GetDocument)
		api.GET("/rooms/:roomId/operations", collabHandler.GetOperationLog)
		api.DELETE("/sessions/:sessionId", collabHandler.LeaveRoom)
		api.POST("/sessions/:sessionId/operations", collabHandler.ApplyOperation)
		api.POST("/sessions/:sessionId/presence", collabHandler.UpdatePresence)
		api.GET("/stats", collabHandler.GetStats)
		if oplogRepo != nil {
			archiveHandler := httpHandler.NewArchiveHandler(oplogRepo)
			api.GET("/rooms/:roomId/archive", archiveHandler.GetArchive)
		}
	}
	wsRoutes := router.Group("/ws").Use(middleware.Auth(cfg.JWTSecret))
	{
		wsRoutes.GET("/room/:roomId", websocketHandler.HandleConnection)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ping", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"message": "pong"}) })
	log.Info("Router setup complete")

	httpServer := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	return &App{
		Config:        cfg,
		Log:           log,
		DB:            db,
		RedisClient:   redisClient,
		AsynqClient:   asynqClient,
		WorkerServer:  workerServer,
		CollabService: collabService,
		Hub:           hubInstance,
		HttpServer:    httpServer,
	}, nil
}

// Start launches the background routines and the HTTP server.
func (a *App) Start() {
	a.CollabService.Start()
	go a.Hub.Run()
	a.Log.Info("Hub routine started")

	if a.WorkerServer != nil {
		go a.WorkerServer.Start()
		a.Log.Info("Worker server routine started")
	}

	go func() {
		a.Log.Infof("HTTP server listening on %s", a.HttpServer.Addr)
		if err := a.HttpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Log.Fatalf("Failed to start HTTP server: %v", err)
		}
		a.Log.Info("HTTP server stopped listening.")
	}()
}

// Shutdown stops components in dependency order.
func (a *App) Shutdown() {
	a.Log.Info("Shutting down application...")

	a.Hub.StopAllSubscriptions()

	if a.WorkerServer != nil {
		a.WorkerServer.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.HttpServer.Shutdown(ctx); err != nil {
		a.Log.Errorf("Error shutting down HTTP server: %v", err)
	} else {
		a.Log.Info("HTTP server shut down gracefully.")
	}

	a.CollabService.Stop()

	if a.AsynqClient != nil {
		if err := a.AsynqClient.Close(); err != nil {
			a.Log.Errorf("Error closing Asynq client: %v", err)
		}
	}
	if a.RedisClient != nil {
		if err := a.RedisClient.Close(); err != nil {
			a.Log.Errorf("Error closing Redis connection: %v", err)
		}
	}
	a.Log.Info("Application shutdown complete.")
}

func corsMiddleware(allowedOrigin string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// LoggerMiddleware logs one line per request with latency and status.
func LoggerMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		startTime := time.Now()
		c.Next()
		latency := time.Since(startTime)
		statusCode := c.Writer.Status()
		path := c.Request.URL.Path
		if c.Request.URL.RawQuery != "" {
			path = path + "?" + c.Request.URL.RawQuery
		}
		errorMessage := c.Errors.ByType(gin.ErrorTypePrivate).String()

		entry := log.WithFields(logrus.Fields{
			"status_code": statusCode,
			"latency_ms":  latency.Milliseconds(),
			"client_ip":   c.ClientIP(),
			"method":      c.Request.Method,
			"path":        path,
		})

		switch {
		case errorMessage != "":
			entry.Error(errorMessage)
		case statusCode >= 500:
			entry.Error("Server error")
		case statusCode >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Request handled")
		}
	}
}
