package main

import (
	"context"
	"log"
	"time"

	"contrata-chat/config"
	"contrata-chat/internal/auth"
	"contrata-chat/internal/handler"
	"contrata-chat/internal/redis"
	"contrata-chat/internal/repository"
	"contrata-chat/internal/server"
	"contrata-chat/internal/services"
	"contrata-chat/pkg/database"
	"contrata-chat/pkg/logger"
)

func main() {
	cfg := config.LoadConfig()

	l := logger.New(cfg.AppMode)
	defer l.Sync()
	logger.SetGlobalLogger(l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	if err := repository.InitSchema(ctx, pool); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	var presence server.Presence
	if cfg.RedisEnabled {
		client := redis.NewClient(redis.Config{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
		})
		defer client.Close()
		presence = redis.NewPresenceStore(client, 0)
		l.Infof("Redis presence enabled at %s:%s", cfg.RedisHost, cfg.RedisPort)
	}

	var verifier auth.TokenVerifier
	if cfg.JWTSecret != "" {
		verifier = auth.NewJWTVerifier(cfg.JWTSecret)
	} else {
		l.Warnf("JWT_SECRET not set, running without token verification")
	}

	chatService := services.NewChatService(pool, l)
	registry := server.NewRegistry()
	router := server.NewRouter(registry, chatService, presence, server.NewWebSocketLogger())

	srv := server.New(cfg, l, registry)
	srv.SetupRoutes(
		handler.NewChatHandler(chatService),
		server.NewWebSocketHandler(router, verifier),
		verifier,
		pool,
	)

	if err := srv.Start(); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
