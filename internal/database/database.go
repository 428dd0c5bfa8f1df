package database

import (
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/config"
	"github.com/ahmetcoskunkizilkaya/incident-reports/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// RLSRole is the NOLOGIN role request transactions switch to so that
	// row-level security applies. Must match policies.sql.
	RLSRole = "incident_reporter"
	// CallerSetting carries the caller identity to the RLS policies.
	CallerSetting = "app.current_user_id"
)

var (
	//go:embed types.sql
	typesSQL string
	//go:embed policies.sql
	policiesSQL string
)

var DB *gorm.DB

func Connect(cfg *config.Config) error {
	var err error
	DB, err = gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Warn),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(25)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	slog.Info("database connected")
	return nil
}

// Migrate creates the enum types, runs AutoMigrate and installs the
// constraints, triggers, has_role and row-level security policies. Every
// step is idempotent.
func Migrate(db *gorm.DB) error {
	if err := db.Exec(typesSQL).Error; err != nil {
		return fmt.Errorf("create enum types: %w", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.UserRole{},
		&models.RefreshToken{},
		&models.Report{},
		&models.SystemLog{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(policiesSQL).Error; err != nil {
		return fmt.Errorf("install policies: %w", err)
	}
	slog.Info("database migrated")
	return nil
}
