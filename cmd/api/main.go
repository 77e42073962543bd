package main

import (
	"context"
	"os/signal"
	"syscall"

	_ "purchaseledger/api/swagger" // swagger docs
	"purchaseledger/internal/app"
	"purchaseledger/internal/config"
	"purchaseledger/internal/database"

	"github.com/rs/zerolog/log"
)

// @title           Purchase Ledger API
// @version         1.0
// @description     Purchases, supplier catalog costs and shopping list optimization.
// @host            localhost:5005
// @BasePath        /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	app.SetupLogger(cfg)

	db, err := database.NewConnection(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	log.Info().Str("driver", cfg.DBDriver).Msg("database connected")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.New(cfg, db).Serve(ctx); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
