// Package store is the relational side of ingestion: dynamically created
// tables receiving batched row inserts, plus the read surface (query, stats,
// listing) the front door exposes. Table existence and schema creation are
// this layer's responsibility.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"

	"github.com/joseph-ayodele/docingest/internal/common"
	"github.com/joseph-ayodele/docingest/internal/rows"
)

// TableStore is the contract the pipeline and front door consume.
type TableStore interface {
	EnsureTable(ctx context.Context, table string, columns []string) error
	// InsertRows writes rows in batches of batchSize and returns how many rows
	// were committed. On failure the count reflects rows already committed in
	// prior batches; no rollback is attempted.
	InsertRows(ctx context.Context, table string, columns []string, data []rows.Row, batchSize int) (int, error)
	QueryRows(ctx context.Context, table string, limit int) ([]rows.Row, error)
	TableStats(ctx context.Context, table string) (*TableStats, error)
	ListTables(ctx context.Context) ([]string, error)
}

// TableStats reports row/column counts for a named table.
type TableStats struct {
	Table    string `json:"table"`
	RowCount int64  `json:"rowCount"`
	Columns  int    `json:"columns"`
}

// Config mirrors the database section of the app config.
type Config struct {
	Driver          string // "pgx" or "sqlite"
	DSN             string
	MaxConns        int
	MaxConnLifetime time.Duration
	DialTimeout     time.Duration
}

type sqlStore struct {
	db      *sql.DB
	dialect goqu.DialectWrapper
	driver  string
	log     *slog.Logger
}

// Open connects via database/sql using the configured driver and pings with
// the dial timeout.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (TableStore, *sql.DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dialect, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, nil, err
	}
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, nil, common.TransportError("open database", err)
	}
	db.SetMaxOpenConns(cfg.MaxConns)
	db.SetConnMaxLifetime(cfg.MaxConnLifetime)

	pingCtx := ctx
	if cfg.DialTimeout > 0 {
		var cancel context.CancelFunc
		pingCtx, cancel = context.WithTimeout(ctx, cfg.DialTimeout)
		defer cancel()
	}
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, common.TransportError("database unreachable", err)
	}
	logger.Info("store.connected", "driver", cfg.Driver)
	return &sqlStore{db: db, dialect: goqu.Dialect(dialect), driver: cfg.Driver, log: logger}, db, nil
}

// NewFromDB wraps an existing database handle; used by tests.
func NewFromDB(db *sql.DB, driver string, logger *slog.Logger) (TableStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dialect, err := dialectFor(driver)
	if err != nil {
		return nil, err
	}
	return &sqlStore{db: db, dialect: goqu.Dialect(dialect), driver: driver, log: logger}, nil
}

func dialectFor(driver string) (string, error) {
	switch driver {
	case "pgx":
		return "postgres", nil
	case "sqlite":
		return "sqlite3", nil
	default:
		return "", common.ConfigError("unsupported DB_DRIVER " + driver)
	}
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, ``) + `"`
}

func (s *sqlStore) EnsureTable(ctx context.Context, table string, columns []string) error {
	defs := make([]string, 0, len(columns))
	for _, col := range columns {
		typ := "TEXT"
		if col == "index" || col == "page_number" {
			typ = "INTEGER"
		}
		defs = append(defs, quoteIdent(col)+" "+typ)
	}
	stmt := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		s.log.Error("store.ensure_table_failed", "table", table, "error", err)
		return common.TransportError("create table "+table, err)
	}
	return nil
}

func (s *sqlStore) InsertRows(ctx context.Context, table string, columns []string, data []rows.Row, batchSize int) (int, error) {
	if batchSize < 1 {
		batchSize = 100
	}
	inserted := 0
	for start := 0; start < len(data); start += batchSize {
		end := start + batchSize
		if end > len(data) {
			end = len(data)
		}
		records := make([]any, 0, end-start)
		for _, row := range data[start:end] {
			rec := goqu.Record{}
			for _, col := range columns {
				rec[col] = insertValue(col, row[col])
			}
			records = append(records, rec)
		}
		stmt, args, err := s.dialect.Insert(table).Rows(records...).Prepared(true).ToSQL()
		if err != nil {
			return inserted, common.WrapError(err, "build insert")
		}
		if _, err := s.db.ExecContext(ctx, stmt, args...); err != nil {
			s.log.Error("store.insert_failed", "table", table, "batch_start", start, "error", err)
			return inserted, common.TransportError(fmt.Sprintf("insert into %s (batch at row %d)", table, start), err)
		}
		inserted = end
	}
	s.log.Info("store.inserted", "table", table, "rows", inserted)
	return inserted, nil
}

// insertValue keeps index/page_number numeric and stringifies everything
// else; nil stays NULL.
func insertValue(col string, v any) any {
	if v == nil {
		return nil
	}
	if col == "index" || col == "page_number" {
		return v
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}

func (s *sqlStore) QueryRows(ctx context.Context, table string, limit int) ([]rows.Row, error) {
	if err := s.requireTable(ctx, table); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 100
	}
	stmt, args, err := s.dialect.From(table).Order(goqu.I("index").Asc()).Limit(uint(limit)).ToSQL()
	if err != nil {
		return nil, common.WrapError(err, "build select")
	}
	rs, err := s.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, common.TransportError("query "+table, err)
	}
	defer func() {
		if err := rs.Close(); err != nil {
			s.log.Warn("store.rows_close_error", "table", table, "error", err)
		}
	}()

	cols, err := rs.Columns()
	if err != nil {
		return nil, common.WrapError(err, "read columns")
	}
	var out []rows.Row
	for rs.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rs.Scan(ptrs...); err != nil {
			return nil, common.WrapError(err, "scan row")
		}
		row := rows.Row{}
		for i, col := range cols {
			switch v := vals[i].(type) {
			case []byte:
				row[col] = string(v)
			default:
				row[col] = v
			}
		}
		out = append(out, row)
	}
	if err := rs.Err(); err != nil {
		return nil, common.TransportError("iterate "+table, err)
	}
	return out, nil
}

func (s *sqlStore) TableStats(ctx context.Context, table string) (*TableStats, error) {
	if err := s.requireTable(ctx, table); err != nil {
		return nil, err
	}
	stmt, args, err := s.dialect.From(table).Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return nil, common.WrapError(err, "build count")
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, stmt, args...).Scan(&count); err != nil {
		return nil, common.TransportError("count "+table, err)
	}

	// LIMIT 0 probe for the column set
	probe, pargs, err := s.dialect.From(table).Limit(0).ToSQL()
	if err != nil {
		return nil, common.WrapError(err, "build probe")
	}
	rs, err := s.db.QueryContext(ctx, probe, pargs...)
	if err != nil {
		return nil, common.TransportError("probe "+table, err)
	}
	cols, err := rs.Columns()
	closeErr := rs.Close()
	if err != nil {
		return nil, common.WrapError(err, "read columns")
	}
	if closeErr != nil {
		s.log.Warn("store.rows_close_error", "table", table, "error", closeErr)
	}
	return &TableStats{Table: table, RowCount: count, Columns: len(cols)}, nil
}

func (s *sqlStore) ListTables(ctx context.Context) ([]string, error) {
	var stmt string
	switch s.driver {
	case "pgx":
		stmt = `SELECT table_name FROM information_schema.tables WHERE table_schema = 'public' ORDER BY table_name`
	default:
		stmt = `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
	}
	rs, err := s.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, common.TransportError("list tables", err)
	}
	defer func() {
		if err := rs.Close(); err != nil {
			s.log.Warn("store.rows_close_error", "error", err)
		}
	}()
	var tables []string
	for rs.Next() {
		var name string
		if err := rs.Scan(&name); err != nil {
			return nil, common.WrapError(err, "scan table name")
		}
		tables = append(tables, name)
	}
	if err := rs.Err(); err != nil {
		return nil, common.TransportError("list tables", err)
	}
	return tables, nil
}

func (s *sqlStore) requireTable(ctx context.Context, table string) error {
	tables, err := s.ListTables(ctx)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if t == table {
			return nil
		}
	}
	return common.NotFoundErrorf("table %s not found", table)
}
