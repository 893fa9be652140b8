package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/guruqool/guruqool-backend/internal/config"
	"github.com/guruqool/guruqool-backend/internal/database"
	"github.com/guruqool/guruqool-backend/internal/models"
	"github.com/guruqool/guruqool-backend/pkg/logger"
	"github.com/guruqool/guruqool-backend/pkg/utils"
)

func main() {
	email := flag.String("email", "", "email of the user to promote")
	flag.Parse()

	if *email == "" {
		fmt.Fprintln(os.Stderr, "usage: promote_admin -email user@example.com")
		os.Exit(2)
	}

	config.LoadConfig()
	logger.Init(config.AppConfig.Env)
	database.Connect()

	var user models.User
	if err := database.DB.Where("email = ?", utils.NormalizeEmail(*email)).First(&user).Error; err != nil {
		logger.Fatal().Err(err).Str("email", *email).Msg("User not found")
	}

	if err := database.DB.Model(&user).Update("role", models.RoleAdmin).Error; err != nil {
		logger.Fatal().Err(err).Msg("Failed to update user role")
	}

	fmt.Printf("Promoted %s (%s) to admin.\n", user.Username, user.Email)
}
