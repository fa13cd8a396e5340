package store

import (
	"fmt"
	"strings"

	"github.com/mapharvest/harvester/internal/config"
	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func InitDB(cfg *config.Config) (*gorm.DB, error) {
	log := zap.S().Named("gorm")

	newDB, err := gorm.Open(dialector(cfg), &gorm.Config{
		Logger:         newLogger(cfg),
		TranslateError: true,
	})
	if err != nil {
		log.Errorw("failed to connect database", "error", err)
		return nil, err
	}

	sqlDB, err := newDB.DB()
	if err != nil {
		log.Errorw("failed to configure connections", "error", err)
		return nil, err
	}
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)

	if !isPostgres(cfg) {
		// sqlite serializes writers; a single connection avoids "database is locked".
		sqlDB.SetMaxOpenConns(1)
		if err := newDB.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			return nil, err
		}
		return newDB, nil
	}

	var version string
	if result := newDB.Raw("SELECT version()").Scan(&version); result.Error != nil {
		log.Errorw("failed to read server version", "error", result.Error)
		return nil, result.Error
	}
	log.Infof("PostgreSQL information: '%s'", version)

	return newDB, nil
}

func isPostgres(cfg *config.Config) bool {
	return cfg.Database.Type == "pgsql"
}

func dialector(cfg *config.Config) gorm.Dialector {
	if !isPostgres(cfg) {
		return sqlite.New(sqlite.Config{DriverName: sqliteDriverName, DSN: cfg.Database.Name})
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s port=%s sslmode=%s",
		cfg.Database.Hostname,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Port,
		cfg.Database.SSLMode,
	)
	if cfg.Database.Name != "" {
		dsn = fmt.Sprintf("%s dbname=%s", dsn, cfg.Database.Name)
	}
	return postgres.New(postgres.Config{DriverName: postgresDriverName, DSN: dsn})
}

// registerSQLiteFunctions replaces the built-in lower, which folds ASCII only,
// so case-insensitive search matches accented text as it does on postgres.
func registerSQLiteFunctions(conn *sqlite3.SQLiteConn) error {
	return conn.RegisterFunc("lower", strings.ToLower, true)
}

// newLogger reports slow queries and errors. Debug service logging also
// surfaces every statement.
func newLogger(cfg *config.Config) logger.Interface {
	level := logger.Warn
	if cfg.Service.LogLevel == "debug" {
		level = logger.Info
	}

	out := logrus.New()
	out.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})

	return logger.New(
		out,
		logger.Config{
			SlowThreshold:             cfg.Database.SlowThreshold,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)
}
