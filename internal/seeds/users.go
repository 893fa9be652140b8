package seeds

import (
	"fmt"

	"github.com/guruqool/guruqool-backend/internal/models"
	"github.com/guruqool/guruqool-backend/pkg/logger"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is shared by every seeded account.
const DemoPassword = "Guruqool@123"

var demoUsers = []models.User{
	{Name: "Admin", Username: "admin", Email: "admin@guruqool.com", Role: models.RoleAdmin},
	{Name: "Meera Iyer", Username: "meera_math", Email: "meera@guruqool.com", Role: models.RoleGuru, HourlyRate: 120000, Bio: "Maths and physics for grades 9-12"},
	{Name: "Arjun Rao", Username: "arjun_code", Email: "arjun@guruqool.com", Role: models.RoleGuru, HourlyRate: 150000, Bio: "Programming fundamentals"},
	{Name: "Kabir Shah", Username: "kabir", Email: "kabir@guruqool.com", Role: models.RoleStudent},
	{Name: "Ananya Das", Username: "ananya", Email: "ananya@guruqool.com", Role: models.RoleStudent},
}

// SeedUsers creates the demo accounts keyed by email and returns them by username.
// Existing rows are left untouched.
func SeedUsers(db *gorm.DB) (map[string]models.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash seed password: %w", err)
	}

	out := make(map[string]models.User, len(demoUsers))
	for _, u := range demoUsers {
		u.Password = string(hash)
		if err := db.Where(models.User{Email: u.Email}).FirstOrCreate(&u).Error; err != nil {
			return nil, fmt.Errorf("seed %s: %w", u.Email, err)
		}
		out[u.Username] = u
		logger.Info().Str("username", u.Username).Str("role", string(u.Role)).Msg("Seeded user")
	}
	return out, nil
}
