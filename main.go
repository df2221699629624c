package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"realtime-service/internal/auth"
	"realtime-service/internal/broker"
	"realtime-service/internal/chat"
	"realtime-service/internal/config"
	"realtime-service/internal/db"
	"realtime-service/internal/handlers"
	"realtime-service/internal/middleware"
	"realtime-service/internal/notify"
	"realtime-service/internal/observability"
	"realtime-service/internal/presence"
	"realtime-service/internal/rabbitmq"
	"realtime-service/internal/repositories"
	"realtime-service/internal/telemetry"
	"realtime-service/internal/ws"
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, "realtime-service", cfg.Environment, cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("failed to set up tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	database, err := db.Connect(cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("failed to connect to db: %v", err)
	}
	defer database.Close()

	roomRepo := repositories.NewRoomRepo(database)
	messageRepo := repositories.NewMessageRepo(database)
	notificationRepo := repositories.NewNotificationRepo(database)
	statsRepo := repositories.NewStatsRepo(database)

	registry := ws.NewRegistry()

	var relay broker.Relay
	if redisRelay, err := broker.NewRedisRelay(cfg.RedisURL); err != nil {
		log.Printf("redis unavailable, running single-process fan-out: %v", err)
	} else {
		relay = redisRelay
		defer redisRelay.Close()
	}
	bus := broker.New(registry, relay)
	go func() {
		if err := bus.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("broadcaster stopped: %v", err)
		}
	}()

	queue := rabbitmq.NewQueuePublisher(cfg.AMQPURL, cfg.AMQPExchange)
	defer queue.Close()

	if cfg.AMQPURL != "" {
		if auditPublisher, err := rabbitmq.NewAuditPublisher(cfg.AMQPURL, cfg.AMQPExchange); err != nil {
			log.Printf("audit publisher disabled: %v", err)
		} else {
			observability.SetAuditSink(auditPublisher)
			defer auditPublisher.Close()
		}
	}

	chatManager := chat.NewManager(roomRepo, messageRepo, bus, registry, cfg.TypingTimeout, cfg.RecentBuffer)
	dispatcher := notify.NewDispatcher(notificationRepo, registry, queue)
	tracker := presence.NewTracker(registry, bus, statsRepo, cfg.StatsInterval)
	go tracker.Run(ctx)
	defer tracker.Stop()

	verifier := auth.NewJWTVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	gateway := ws.NewGateway(registry, verifier, chatManager, dispatcher, tracker)

	roomHandler := handlers.NewRoomHandler(chatManager, roomRepo)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.Use(observability.HTTPMetricsMiddleware())

	handlers.RegisterHealthRoutes(router, database, registry, queue)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/ws/:namespace", gateway.Handle)

	authMiddleware := middleware.AuthMiddleware(verifier)
	router.POST("/rooms/direct", authMiddleware, roomHandler.StartDirectRoom)
	router.POST("/rooms/group", authMiddleware, roomHandler.CreateGroupRoom)
	router.GET("/rooms/:room_id/messages", authMiddleware, roomHandler.GetRecentMessages)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-ctx.Done()
	log.Printf("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
}
