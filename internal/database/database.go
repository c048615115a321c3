package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"go-regula/internal/config"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Database is the relational store shared by every feature repository.
type Database struct {
	DB      *sql.DB
	Dialect Dialect
}

// NewDatabase opens the configured store, applies the schema and closes the
// pool when the application stops.
func NewDatabase(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (*Database, error) {
	db, err := Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	log.Info("Connected to database", zap.String("driver", cfg.DBDriver), zap.String("dialect", string(db.Dialect)))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("Closing database...")
			return db.Close()
		},
	})
	return db, nil
}

// Open connects without touching the schema. driver is one of sqlite,
// postgres (lib/pq) or pgx (pgx stdlib).
func Open(driver, dsn string) (*Database, error) {
	var (
		driverName string
		dialect    Dialect
	)
	switch strings.ToLower(driver) {
	case "sqlite":
		driverName, dialect = "sqlite", DialectSQLite
		dsn = sqliteDSN(dsn)
	case "postgres":
		driverName, dialect = "postgres", DialectPostgres
	case "pgx":
		driverName, dialect = "pgx", DialectPostgres
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s db: %w", driver, err)
	}
	if dialect == DialectSQLite {
		// SQLite allows one writer; a single connection also keeps a
		// context-carried transaction from deadlocking against the pool.
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s db: %w", driver, err)
	}
	return &Database{DB: db, Dialect: dialect}, nil
}

func (d *Database) Close() error {
	if d == nil || d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

func sqliteDSN(dsn string) string {
	if strings.HasPrefix(dsn, "file:") {
		return dsn
	}
	return "file:" + dsn + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
}
