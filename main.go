package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"meme-service/internal/auth"
	"meme-service/internal/chat"
	"meme-service/internal/config"
	"meme-service/internal/db"
	"meme-service/internal/handlers"
	"meme-service/internal/middleware"
	"meme-service/internal/observability"
	"meme-service/internal/presence"
	"meme-service/internal/rabbitmq"
	"meme-service/internal/repositories"
	"meme-service/internal/storage"
	"meme-service/internal/store"
	"meme-service/internal/telemetry"
	"meme-service/internal/ws"
)

const presenceTTL = 60 * time.Second

func main() {
	cfg := config.Load()

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	ctx := context.Background()

	database, err := db.Connect(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		logger.Fatal("failed to connect to db", zap.Error(err))
	}
	db.EnsureIndexes(ctx, database, logger)

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
	tracker := presence.NewTracker(rdb, presenceTTL)

	images, err := storage.NewImageStore(ctx, cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
	if err != nil {
		logger.Fatal("failed to connect to object storage", zap.Error(err))
	}

	publisher := rabbitmq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, logger)
	defer publisher.Close()
	observability.SetPublisher(publisher)
	audit := telemetry.NewAuditEmitter(publisher, "audit.meme-service", "meme-service", cfg.Environment, logger)

	shutdownTracing, err := telemetry.InitTracing(ctx, cfg.OTLPEndpoint, "meme-service", cfg.Environment)
	if err != nil {
		logger.Warn("tracing disabled", zap.Error(err))
	} else {
		defer shutdownTracing(context.Background())
	}

	notifier := store.NewNotifier()
	messageRepo := repositories.NewMessageRepo(database, notifier)
	userRepo := repositories.NewUserRepo(database)
	memeRepo := repositories.NewMemeRepo(database)

	dispatcher := chat.NewDispatcher(messageRepo, userRepo)
	verifier := auth.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)

	messageHandler := handlers.NewMessageHandler(dispatcher)
	conversationHandler := handlers.NewConversationHandler(messageRepo, userRepo, tracker, logger)
	userHandler := handlers.NewUserHandler(userRepo, tracker, audit, logger)
	memeHandler := handlers.NewMemeHandler(memeRepo, images, logger)

	hub := ws.NewHub()
	wsHandler := ws.NewHandler(hub, verifier, messageRepo, messageRepo, userRepo, memeRepo, tracker, logger)

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("meme-service"))
	router.Use(observability.HTTPMetricsMiddleware())

	router.GET("/healthz", func(c *gin.Context) { c.JSON(200, gin.H{"status": "ok"}) })
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	authMiddleware := middleware.AuthMiddleware(verifier)
	presenceMiddleware := middleware.PresenceMiddleware(tracker, logger)

	api := router.Group("/", authMiddleware, presenceMiddleware)

	api.GET("/me", userHandler.GetMe)
	api.PUT("/me", userHandler.UpdateMe)
	api.GET("/users", userHandler.ListUsers)
	api.PUT("/friends/:user_id", userHandler.AddFriend)
	api.DELETE("/friends/:user_id", userHandler.RemoveFriend)

	api.GET("/conversations", conversationHandler.ListConversations)
	api.GET("/conversations/:conversation_key/messages", conversationHandler.GetThread)
	api.POST("/messages", messageHandler.PostMessage)

	api.POST("/memes", memeHandler.CreateMeme)
	api.GET("/memes", memeHandler.ListMyMemes)
	api.GET("/users/:user_id/memes", memeHandler.ListUserMemes)
	api.PATCH("/memes/:meme_id", memeHandler.SetPublished)
	api.DELETE("/memes/:meme_id", memeHandler.DeleteMeme)
	api.GET("/memes/:meme_id/image", memeHandler.GetImage)

	router.GET("/ws", wsHandler.Handle)

	logger.Info("meme service listening", zap.String("port", cfg.Port), zap.String("environment", cfg.Environment))
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
