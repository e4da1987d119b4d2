package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"time"

	"shiptrack/internal/adapters/out/postgres/migrations"
	"shiptrack/internal/adapters/out/postgres/shipmentrepo"

	_ "github.com/lib/pq"
	gorm_postgres "gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Options configures the SQL connection.
type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects GORM to PostgreSQL or SQLite. Driver errors are translated
// into gorm sentinels such as gorm.ErrDuplicatedKey.
func Open(opts Options) (*gorm.DB, error) {
	if opts.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	var dialector gorm.Dialector
	switch opts.Driver {
	case DriverPostgres, "":
		dialector = gorm_postgres.New(gorm_postgres.Config{
			DSN:                  opts.DSN,
			PreferSimpleProtocol: true,
		})
	case DriverSQLite:
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.New(
			log.New(io.Discard, "", log.LstdFlags),
			gormlogger.Config{LogLevel: gormlogger.Silent},
		),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening db connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql db handle: %w", err)
	}
	if opts.Driver == DriverSQLite {
		// SQLite allows one writer; a single connection also keeps
		// in-memory databases alive and shared.
		sqlDB.SetMaxOpenConns(1)
	} else if opts.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	return db, nil
}

// Migrate brings the schema up to date. PostgreSQL runs the embedded goose
// migrations over a lib/pq connection; SQLite uses GORM auto-migration.
func Migrate(ctx context.Context, db *gorm.DB, opts Options) error {
	if opts.Driver == DriverSQLite {
		return AutoMigrate(db)
	}

	sqlDB, err := sql.Open("postgres", opts.DSN)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer sqlDB.Close()

	return migrations.Up(ctx, sqlDB)
}

// AutoMigrate creates the schema from the DTO definitions.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&shipmentrepo.ShipmentDTO{}, &shipmentrepo.HistoryEntryDTO{})
}
