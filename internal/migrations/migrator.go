package migrations

import (
	"fmt"
	"time"

	"github.com/guruqool/guruqool-backend/pkg/logger"
	"gorm.io/gorm"
)

// Migration is a hand-written schema change that AutoMigrate cannot express.
type Migration struct {
	ID        string
	Name      string
	Up        func(db *gorm.DB) error
	DependsOn []string
}

// MigrationRecord tracks which migrations have been applied
type MigrationRecord struct {
	ID        string    `gorm:"primaryKey;type:text"`
	Name      string    `gorm:"type:text"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (MigrationRecord) TableName() string {
	return "schema_migrations"
}

type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

func NewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{db: db, migrations: All()}
}

// Run applies every pending migration in order, each in its own transaction.
func (m *Migrator) Run() error {
	if err := m.db.AutoMigrate(&MigrationRecord{}); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var applied []MigrationRecord
	if err := m.db.Find(&applied).Error; err != nil {
		return fmt.Errorf("failed to fetch applied migrations: %w", err)
	}

	done := make(map[string]bool, len(applied))
	for _, r := range applied {
		done[r.ID] = true
	}

	for _, mig := range m.migrations {
		if done[mig.ID] {
			continue
		}
		for _, dep := range mig.DependsOn {
			if !done[dep] {
				return fmt.Errorf("migration %s depends on %s which is not applied", mig.ID, dep)
			}
		}

		err := m.db.Transaction(func(tx *gorm.DB) error {
			if err := mig.Up(tx); err != nil {
				return err
			}
			return tx.Create(&MigrationRecord{ID: mig.ID, Name: mig.Name}).Error
		})
		if err != nil {
			logger.Error().Err(err).Str("migration", mig.ID).Msg("Migration failed")
			return fmt.Errorf("migration %s failed: %w", mig.ID, err)
		}

		done[mig.ID] = true
		logger.Info().Str("migration", mig.ID).Msg("Migration applied")
	}

	return nil
}

// All returns the registered migrations in order.
func All() []Migration {
	return []Migration{
		chatRoomTimelineIndex(),
		sessionStatusIndex(),
	}
}
