package seeds

import (
	"fmt"
	"time"

	"github.com/guruqool/guruqool-backend/internal/handlers"
	"github.com/guruqool/guruqool-backend/internal/models"
	"github.com/guruqool/guruqool-backend/pkg/logger"
	"gorm.io/gorm"
)

var demoLines = []struct {
	sender models.Role
	body   string
}{
	{models.RoleStudent, "Hi! I'm stuck on integration by parts."},
	{models.RoleGuru, "Happy to help. Which problem are you on?"},
	{models.RoleStudent, "The one with x * e^x."},
	{models.RoleGuru, "Pick u = x and dv = e^x dx, then apply the formula."},
}

// SeedConversation writes a short history between guru and student. Each line
// carries a fixed clientId so a rerun adds nothing.
func SeedConversation(db *gorm.DB, guru, student models.User) error {
	roomID := handlers.RoomID(guru.ID, student.ID)
	start := time.Now().UTC().Add(-time.Hour)

	for i, line := range demoLines {
		clientID := fmt.Sprintf("%s-seed-%d", roomID, i)
		senderID := student.ID
		if line.sender == models.RoleGuru {
			senderID = guru.ID
		}
		msg := models.ChatMessage{
			RoomID:          roomID,
			GuruID:          guru.ID,
			StudentID:       student.ID,
			Sender:          line.sender,
			SenderID:        senderID,
			Content:         line.body,
			CreatedAt:       start.Add(time.Duration(i) * time.Minute),
			ClientMessageID: &clientID,
		}
		if err := db.Where("client_message_id = ?", clientID).FirstOrCreate(&msg).Error; err != nil {
			return fmt.Errorf("seed message %d: %w", i, err)
		}
	}

	logger.Info().Str("room", roomID).Int("messages", len(demoLines)).Msg("Seeded conversation")
	return nil
}

// Run seeds the demo accounts and one conversation between them.
func Run(db *gorm.DB) error {
	users, err := SeedUsers(db)
	if err != nil {
		return err
	}
	return SeedConversation(db, users["meera_math"], users["kabir"])
}
