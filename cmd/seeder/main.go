package main

import (
	"github.com/guruqool/guruqool-backend/internal/config"
	"github.com/guruqool/guruqool-backend/internal/database"
	"github.com/guruqool/guruqool-backend/internal/seeds"
	"github.com/guruqool/guruqool-backend/pkg/logger"
)

func main() {
	config.LoadConfig()
	logger.Init(config.AppConfig.Env)
	database.Connect()

	if err := database.Migrate(database.DB); err != nil {
		logger.Fatal().Err(err).Msg("Failed to migrate")
	}
	if err := seeds.Run(database.DB); err != nil {
		logger.Fatal().Err(err).Msg("Seeding failed")
	}

	logger.Info().Str("password", seeds.DemoPassword).Msg("Seeding complete")
}
