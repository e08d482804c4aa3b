// Package store persists normalized grid snapshots to SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/grid-status-etl/internal/config"
	"github.com/couchcryptid/grid-status-etl/internal/observability"
)

//go:embed schema/*.sql
var schemaFS embed.FS

// Dialect is the SQL flavor behind a Store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Store writes snapshots as a sequence of single-row inserts.
type Store struct {
	db         *sql.DB
	dialect    Dialect
	policy     config.InsertPolicy
	schemaPath string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// Option configures a Store.
type Option func(*Store)

// WithPolicy sets how a failed row insert is handled. The default is fail.
func WithPolicy(p config.InsertPolicy) Option {
	return func(s *Store) { s.policy = p }
}

// WithSchemaPath replaces the embedded table script used by Bootstrap.
func WithSchemaPath(path string) Option {
	return func(s *Store) { s.schemaPath = path }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

func WithMetrics(m *observability.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// Open connects to the database named by databaseURL and verifies the
// connection. SQLite databases are created if missing.
func Open(ctx context.Context, databaseURL string, opts ...Option) (*Store, error) {
	dialect, dsn, err := ParseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	s := &Store{
		dialect: dialect,
		policy:  config.InsertPolicyFail,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	switch dialect {
	case DialectPostgres:
		s.db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	case DialectSQLite:
		s.db, err = openSQLite(ctx, dsn)
		if err != nil {
			return nil, err
		}
	}

	if err := s.db.PingContext(ctx); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("ping %s: %w", dialect, err)
	}
	return s, nil
}

func openSQLite(ctx context.Context, path string) (*sql.DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("ensure sqlite dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite %s: %w", pragma, err)
		}
	}
	return db, nil
}

// ParseURL maps a DATABASE_URL to a dialect and a driver DSN.
//
//	postgres://... | postgresql://...   PostgreSQL, passed through
//	sqlite://path | sqlite:path         SQLite file, query string dropped
//	file:path | path                    SQLite file, query string dropped
func ParseURL(raw string) (Dialect, string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", errors.New("empty database URL")
	}

	lower := strings.ToLower(raw)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DialectPostgres, raw, nil
	}

	path := raw
	for _, prefix := range []string{"sqlite://", "sqlite:", "file:"} {
		if strings.HasPrefix(lower, prefix) {
			path = raw[len(prefix):]
			break
		}
	}
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return "", "", fmt.Errorf("database URL %q has no sqlite path", raw)
	}
	return DialectSQLite, path, nil
}

// Dialect reports the SQL flavor in use.
func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Bootstrap creates the tables by running the table script one statement
// at a time. Statements are expected to be idempotent.
func (s *Store) Bootstrap(ctx context.Context) error {
	script, err := s.schemaScript()
	if err != nil {
		return err
	}

	stmts := splitStatements(script)
	for i, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("bootstrap statement %d: %w", i+1, err)
		}
	}
	s.logger.Info("schema bootstrapped", "dialect", s.dialect, "statements", len(stmts))
	return nil
}

func (s *Store) schemaScript() (string, error) {
	if s.schemaPath != "" {
		b, err := os.ReadFile(s.schemaPath)
		if err != nil {
			return "", fmt.Errorf("read schema %s: %w", s.schemaPath, err)
		}
		return string(b), nil
	}
	b, err := schemaFS.ReadFile("schema/" + string(s.dialect) + ".sql")
	if err != nil {
		return "", fmt.Errorf("read embedded schema: %w", err)
	}
	return string(b), nil
}

// splitStatements splits a script on ";" and drops blank chunks and
// "--" comment lines.
func splitStatements(script string) []string {
	var stmts []string
	for _, chunk := range strings.Split(script, ";") {
		var lines []string
		for _, line := range strings.Split(chunk, "\n") {
			if strings.HasPrefix(strings.TrimSpace(line), "--") {
				continue
			}
			lines = append(lines, line)
		}
		if stmt := strings.TrimSpace(strings.Join(lines, "\n")); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// rebind rewrites "?" placeholders to "$n" for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != DialectPostgres {
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

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
