package database

import (
	"fmt"
	"time"

	"github.com/wnt/curvewatch/internal/config"
	"github.com/wnt/curvewatch/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func Connect(cfg config.Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
		cfg.DBSSLMode,
	)

	// Configure GORM with optimized settings
	gormConfig := &gorm.Config{
		Logger:      logger.Default.LogMode(logger.Silent),
		PrepareStmt: true, // Prepare statement for better performance
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Set connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database connection: %w", err)
	}

	// Set connection pool limits
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// Migrate database schema
	if err := Migrate(db); err != nil {
		return nil, err
	}

	return db, nil
}

// Migrate applies the pipeline schema. The pipeline only owns its own
// tables; users and subscriptions are migrated here too so local and
// test environments are self-contained.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.AlertSubscription{},
		&models.AlertHistory{},
		&models.WhaleEvent{},
		&models.TokenSnapshot{},
		&models.CronRunStatus{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	// Add composite indexes for common query patterns
	db.Exec("CREATE INDEX IF NOT EXISTS idx_whale_events_token_blocktime ON whale_events(token_address, block_time)")
	db.Exec("CREATE INDEX IF NOT EXISTS idx_alert_subscriptions_active_user ON alert_subscriptions(is_active, user_id)")

	return nil
}
