package main

import (
	"fmt"

	"github.com/guruqool/guruqool-backend/internal/config"
	"github.com/guruqool/guruqool-backend/internal/database"
	"github.com/guruqool/guruqool-backend/internal/models"
	"github.com/guruqool/guruqool-backend/pkg/logger"
)

// Prints row counts for a quick look at a deployed database.
func main() {
	config.LoadConfig()
	logger.Init(config.AppConfig.Env)
	database.Connect()
	db := database.DB

	type roleCount struct {
		Role  string
		Count int64
	}
	var roles []roleCount
	if err := db.Model(&models.User{}).Select("role, COUNT(*) AS count").Group("role").Order("role").Scan(&roles).Error; err != nil {
		logger.Fatal().Err(err).Msg("Failed to count users")
	}
	fmt.Println("Users by role:")
	for _, r := range roles {
		fmt.Printf("  %-8s %d\n", r.Role, r.Count)
	}

	var blocked, messages, rooms int64
	db.Model(&models.User{}).Where("is_blocked = ?", true).Count(&blocked)
	db.Model(&models.ChatMessage{}).Count(&messages)
	db.Model(&models.ChatMessage{}).Distinct("room_id").Count(&rooms)
	fmt.Printf("Blocked users: %d\n", blocked)
	fmt.Printf("Chat messages: %d across %d rooms\n", messages, rooms)

	type statusCount struct {
		Status string
		Count  int64
	}
	var sessions []statusCount
	db.Model(&models.TutoringSession{}).Select("status, COUNT(*) AS count").Group("status").Order("status").Scan(&sessions)
	fmt.Println("Tutoring sessions:")
	for _, s := range sessions {
		fmt.Printf("  %-10s %d\n", s.Status, s.Count)
	}
}
