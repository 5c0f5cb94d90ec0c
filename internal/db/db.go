// Package db opens the database and implements the gorm backed stores.
package db

import (
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"studyarchive/internal/logging"
	"studyarchive/internal/models"
)

// SQLitePrefix selects the embedded SQLite driver, e.g. "sqlite::memory:" or
// "sqlite:./dev.db". Anything else is a PostgreSQL DSN.
const SQLitePrefix = "sqlite:"

// Open connects to the database. The client is owned by the caller; nothing in this
// package keeps a global handle.
func Open(dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		// 评论在作者被删除后仍需保留，级联删除由代码完成
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger:                                   logger.Default.LogMode(logger.Warn),
		NowFunc:                                  func() time.Time { return time.Now().UTC() },
	}

	var dialector gorm.Dialector
	if path, ok := strings.CutPrefix(dsn, SQLitePrefix); ok {
		dialector = sqlite.Open(path)
	} else {
		dialector = postgres.Open(dsn)
	}

	gdb, err := gorm.Open(dialector, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}

	if dialector.Name() == "sqlite" {
		// every connection to :memory: is a separate database
		sqlDB, err := gdb.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	logging.Info().Str("driver", dialector.Name()).Msg("database connection established")
	return gdb, nil
}

// Migrate creates or updates all tables.
func Migrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Document{},
		&models.Comment{},
		&models.Notification{},
	)
	if err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}
	logging.Info().Msg("database migration completed")
	return nil
}

// SeedRoles inserts the built-in roles that do not exist yet. Existing rows keep
// whatever flags the back office gave them.
func SeedRoles(gdb *gorm.DB) error {
	for _, role := range models.DefaultRoles() {
		var count int64
		if err := gdb.Model(&models.Role{}).Where("name = ?", role.Name).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		if err := gdb.Create(&role).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", role.Name, err)
		}
		logging.Info().Str("role", role.Name).Msg("role seeded")
	}
	return nil
}

// Setup opens, migrates and seeds in one go.
func Setup(dsn string) (*gorm.DB, error) {
	gdb, err := Open(dsn)
	if err != nil {
		return nil, err
	}
	if err := Migrate(gdb); err != nil {
		return nil, err
	}
	if err := SeedRoles(gdb); err != nil {
		return nil, err
	}
	return gdb, nil
}
