package migrations

import (
	"embed"
	"fmt"
	"io/fs"
	"os"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed sql
var embedded embed.FS

// MigrateStore applies the goose migrations matching the database dialect.
// A non-empty migrationFolder overrides the embedded scripts.
func MigrateStore(db *gorm.DB, migrationFolder string) error {
	goose.SetLogger(&logger{})

	dialect := "postgres"
	if db.Dialector.Name() == "sqlite" {
		dialect = "sqlite3"
	}

	scripts, err := migrationFS(dialect, migrationFolder)
	if err != nil {
		return err
	}
	goose.SetBaseFS(scripts)

	if err := goose.SetDialect(dialect); err != nil {
		return err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return goose.Up(sqlDB, ".")
}

func migrationFS(dialect, folder string) (fs.FS, error) {
	if folder == "" {
		return fs.Sub(embedded, "sql/"+dialect)
	}

	fi, err := os.Stat(folder)
	if err != nil {
		return nil, err
	}
	if !fi.Mode().IsDir() {
		return nil, fmt.Errorf("failed to open migration folder: %s is not a folder", folder)
	}
	return os.DirFS(folder), nil
}

// logger routes goose output to zap.
type logger struct{}

func (m *logger) Printf(format string, v ...interface{}) {
	zap.S().Named("migrations").Infof(format, v...)
}

func (m *logger) Fatalf(format string, v ...interface{}) {
	zap.S().Named("migrations").Fatalf(format, v...)
}
