package main

import (
	"context"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"hogserver/internal/config"
	"hogserver/internal/httpapi"
	"hogserver/internal/hub"
)

func main() {
	// Missing .env is fine; env vars still apply.
	_ = godotenv.Load()
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	h := hub.New(context.Background(), log)
	handler := httpapi.SetupRoutes(h, cfg.ProtocolNumber, log)

	log.Infow("listening", "addr", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatal(err)
	}
}
