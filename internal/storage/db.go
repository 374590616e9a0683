package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

//go:embed migrations
var migrationsFS embed.FS

// timeLayout keeps created_at lexically sortable in both dialects.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// DB wraps a database/sql pool and provides repository methods.
type DB struct {
	sql    *sql.DB
	driver string
}

// New opens a connection pool for the given driver and pings it.
func New(ctx context.Context, driver, dsn string) (*DB, error) {
	name, err := sqlDriverName(driver)
	if err != nil {
		return nil, err
	}
	pool, err := sql.Open(name, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", driver, err)
	}

	if driver == DriverSQLite {
		// SQLite serializes writers; one connection avoids SQLITE_BUSY.
		pool.SetMaxOpenConns(1)
		pool.SetMaxIdleConns(1)
	} else {
		pool.SetConnMaxIdleTime(5 * time.Minute)
		pool.SetConnMaxLifetime(30 * time.Minute)
		pool.SetMaxOpenConns(20)
	}

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &DB{sql: pool, driver: driver}, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.sql.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.sql.PingContext(ctx)
}

// RunMigrations applies all pending embedded migrations for the driver.
// It uses its own connection because the migrator closes it when done.
func RunMigrations(driver, dsn string) error {
	name, err := sqlDriverName(driver)
	if err != nil {
		return err
	}
	conn, err := sql.Open(name, dsn)
	if err != nil {
		return fmt.Errorf("opening migration connection: %w", err)
	}

	var dbDriver database.Driver
	switch driver {
	case DriverSQLite:
		dbDriver, err = sqlitemigrate.WithInstance(conn, &sqlitemigrate.Config{})
	case DriverPostgres:
		dbDriver, err = pgxmigrate.WithInstance(conn, &pgxmigrate.Config{})
	}
	if err != nil {
		conn.Close()
		return fmt.Errorf("creating migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+driver)
	if err != nil {
		dbDriver.Close()
		return fmt.Errorf("loading migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, driver, dbDriver)
	if err != nil {
		dbDriver.Close()
		return fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func sqlDriverName(driver string) (string, error) {
	switch driver {
	case DriverSQLite:
		return "sqlite", nil
	case DriverPostgres:
		return "pgx", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

// q adapts a query written with ? placeholders to the active dialect.
func (db *DB) q(query string) string {
	if db.driver != DriverPostgres {
		return query
	}
	return rebind(query)
}

// rebind rewrites ? placeholders to $1, $2, ...
func rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// Rows written by hand or by older tooling.
		return time.Parse(time.RFC3339Nano, s)
	}
	return t, nil
}

// queryExecer is satisfied by both *sql.DB and *sql.Tx.
type queryExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// exists reports whether a row matching query exists.
func (db *DB) exists(ctx context.Context, query string, args ...any) (bool, error) {
	return db.rowExists(ctx, db.sql, query, args...)
}

func (db *DB) rowExists(ctx context.Context, qe queryExecer, query string, args ...any) (bool, error) {
	var one int
	err := qe.QueryRowContext(ctx, db.q(query), args...).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
