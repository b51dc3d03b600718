package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var ErrUnknownDriver = errors.New("unknown database driver")

// --- DBStore ---

type DBStore struct {
	db     *sql.DB
	driver string
	mu     sync.RWMutex
}

// NewDBStore opens the database for driver ("sqlite" or "postgres") and creates missing tables.
func NewDBStore(driver, dataSourceName string) (*DBStore, error) {
	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(dataSourceName); dir != "." && !strings.HasPrefix(dataSourceName, "file:") {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
	}

	db, err := sql.Open(driver, dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if driver == DriverPostgres {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(time.Hour)
	} else {
		db.SetMaxOpenConns(1)
	}

	store := &DBStore{db: db, driver: driver}
	if err = store.initTables(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return store, nil
}

func (s *DBStore) initTables() error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS guild_spawn (
			guild_id TEXT PRIMARY KEY,
			channel_id TEXT NOT NULL DEFAULT '',
			is_spawn BOOLEAN NOT NULL DEFAULT FALSE,
			message_id TEXT,
			last_spawn_at BIGINT,
			delay INTEGER,
			fixed_delay INTEGER,
			spawn_speed TEXT NOT NULL DEFAULT 'normal'
		);`,
		`CREATE TABLE IF NOT EXISTS reiatsu_players (
			user_id TEXT PRIMARY KEY,
			points BIGINT NOT NULL DEFAULT 0,
			class TEXT,
			bonus_counter INTEGER NOT NULL DEFAULT 0,
			active_skill BOOLEAN NOT NULL DEFAULT FALSE,
			skill_guild_id TEXT,
			decoy_message_id TEXT,
			decoy_channel_id TEXT,
			last_class_change BIGINT,
			last_skill_at BIGINT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_reiatsu_players_decoy ON reiatsu_players(decoy_message_id);`,
		`CREATE INDEX IF NOT EXISTS idx_reiatsu_players_points ON reiatsu_players(points);`,
	}
	for _, table := range tables {
		if _, err := s.db.Exec(table); err != nil {
			return err
		}
	}
	return nil
}

func (s *DBStore) Close() {
	s.db.Close()
}

func (s *DBStore) PingDB() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.db.Ping()
}

// Driver returns the driver name the store was opened with.
func (s *DBStore) Driver() string {
	return s.driver
}

// rebind rewrites ? placeholders to $n for postgres.
func (s *DBStore) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *DBStore) exec(query string, args ...any) (sql.Result, error) {
	return s.db.Exec(s.rebind(query), args...)
}

func (s *DBStore) queryRow(query string, args ...any) *sql.Row {
	return s.db.QueryRow(s.rebind(query), args...)
}

func (s *DBStore) query(query string, args ...any) (*sql.Rows, error) {
	return s.db.Query(s.rebind(query), args...)
}

// --- null helpers ---

func nullString(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func intPtr(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func nullUnix(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func unixPtr(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(n.Int64, 0)
	return &t
}
