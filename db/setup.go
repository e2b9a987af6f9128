package db

import (
	"fmt"

	"github.com/docutrack/docutrack/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ConnectDatabase opens the postgres pool. Driver errors are translated so
// the store can match gorm.ErrDuplicatedKey.
func ConnectDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	return db, nil
}

func MigrateDatabase(db *gorm.DB) error {
	entities := []interface{}{
		&models.User{},
		&models.Event{},
		&models.Document{},
		&models.NotificationRule{},
	}

	for _, model := range entities {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %T: %w", model, err)
		}
	}

	return nil
}
