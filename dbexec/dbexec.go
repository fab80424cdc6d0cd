// Package dbexec implements the DB Executor (component E): ad-hoc
// connections per entity.DatabaseConfig, a statement splitter/classifier,
// and the connection cache an assertion-batch call scopes to its own
// invocation.
//
// The original targets MySQL via PyMySQL; this engine targets Postgres via
// jackc/pgx/v5 — the driver the teacher repository (and its migrations)
// already depend on. See DESIGN.md for the Open Question resolution.
package dbexec

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/apitest-engine/apitestd/entity"
)

// ConnectTimeout is the per-connection timeout floor named in §4.E.
const ConnectTimeout = 10 * time.Second

// Connect opens an ad-hoc autocommit connection to cfg. The caller owns the
// returned connection and must Close it.
func Connect(ctx context.Context, cfg entity.DatabaseConfig) (*pgx.Conn, error) {
	dsn := fmt.Sprintf("postgres://%s:%s@%s:%d/%s?connect_timeout=%d",
		cfg.Username, cfg.Password, cfg.Host, cfg.Port, cfg.Database, int(ConnectTimeout.Seconds()))
	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()
	conn, err := pgx.Connect(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("dbexec: connect: %w", err)
	}
	return conn, nil
}

// TestConnection reports whether cfg is reachable, for the admin-facing
// health-check action supplemented from the original's test_connection.
func TestConnection(ctx context.Context, cfg entity.DatabaseConfig) (bool, string) {
	conn, err := Connect(ctx, cfg)
	if err != nil {
		return false, err.Error()
	}
	defer conn.Close(ctx)

	var version string
	if err := conn.QueryRow(ctx, "SHOW server_version").Scan(&version); err != nil {
		return false, fmt.Sprintf("query failed: %v", err)
	}
	return true, fmt.Sprintf("connected, server version: %s", version)
}

// StatementType classifies one SQL statement.
type StatementType string

const (
	StmtSelect StatementType = "SELECT"
	StmtDML    StatementType = "DML"
	StmtDDL    StatementType = "DDL"
)

// StatementResult is the typed, per-statement outcome §4.E returns.
type StatementResult struct {
	SQL      string            `json:"sql"`
	Type     StatementType     `json:"type"`
	Rows     []map[string]any  `json:"rows,omitempty"`
	Affected int64             `json:"affected"`
	Error    string            `json:"error,omitempty"`
}

// ExecResult is the overall outcome of ExecuteStatements.
type ExecResult struct {
	Success    bool              `json:"success"`
	Statements []StatementResult `json:"statements"`
	Error      string            `json:"error,omitempty"`
}

// ExecuteStatements splits text on ";", drops blanks, and runs each
// statement in turn over conn, classifying it SELECT/DML/DDL. SELECT rows
// have every column value stringified for JSON safety. A per-statement
// error is captured on that statement's Error field and execution
// continues with the next statement; the overall Success is the
// conjunction of per-statement successes.
func ExecuteStatements(ctx context.Context, conn *pgx.Conn, text string) ExecResult {
	stmts := splitStatements(text)
	results := make([]StatementResult, 0, len(stmts))

	for _, stmt := range stmts {
		item := StatementResult{SQL: stmt, Type: classify(stmt)}
		if item.Type == StmtSelect {
			rows, err := conn.Query(ctx, stmt)
			if err != nil {
				item.Error = err.Error()
				results = append(results, item)
				continue
			}
			fields := rows.FieldDescriptions()
			for rows.Next() {
				vals, err := rows.Values()
				if err != nil {
					item.Error = err.Error()
					break
				}
				row := make(map[string]any, len(fields))
				for i, f := range fields {
					row[string(f.Name)] = stringify(vals[i])
				}
				item.Rows = append(item.Rows, row)
			}
			rows.Close()
			if item.Error == "" {
				item.Error = errString(rows.Err())
			}
			item.Affected = int64(len(item.Rows))
		} else {
			tag, err := conn.Exec(ctx, stmt)
			if err != nil {
				item.Error = err.Error()
			} else {
				item.Affected = tag.RowsAffected()
			}
		}
		results = append(results, item)
	}

	allOK := true
	for _, r := range results {
		if r.Error != "" {
			allOK = false
			break
		}
	}
	return ExecResult{Success: allOK, Statements: results}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func stringify(v any) any {
	if v == nil {
		return nil
	}
	return fmt.Sprintf("%v", v)
}

func splitStatements(text string) []string {
	parts := strings.Split(text, ";")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func classify(stmt string) StatementType {
	trimmed := strings.TrimSpace(stmt)
	if trimmed == "" {
		return StmtDDL
	}
	fields := strings.Fields(strings.ToUpper(trimmed))
	kw := fields[0]
	switch kw {
	case "SELECT", "WITH":
		return StmtSelect
	case "INSERT", "UPDATE", "DELETE", "REPLACE":
		return StmtDML
	default:
		return StmtDDL
	}
}

// ConnCache caches one connection per db_id for the lifetime of a single
// assertion-batch call, closed in reverse order by Close.
type ConnCache struct {
	resolver func(ctx context.Context, dbID int64) (entity.DatabaseConfig, error)
	order    []int64
	conns    map[int64]*pgx.Conn
	errs     map[int64]error
}

// NewConnCache builds a cache that resolves db ids to configs via resolver.
func NewConnCache(resolver func(ctx context.Context, dbID int64) (entity.DatabaseConfig, error)) *ConnCache {
	return &ConnCache{resolver: resolver, conns: map[int64]*pgx.Conn{}, errs: map[int64]error{}}
}

// Get returns the cached connection for dbID, connecting on first use.
func (c *ConnCache) Get(ctx context.Context, dbID int64) (*pgx.Conn, error) {
	if err, ok := c.errs[dbID]; ok {
		return nil, err
	}
	if conn, ok := c.conns[dbID]; ok {
		return conn, nil
	}
	cfg, err := c.resolver(ctx, dbID)
	if err != nil {
		c.errs[dbID] = err
		return nil, err
	}
	conn, err := Connect(ctx, cfg)
	if err != nil {
		c.errs[dbID] = err
		return nil, err
	}
	c.conns[dbID] = conn
	c.order = append(c.order, dbID)
	return conn, nil
}

// Close closes every cached connection in reverse acquisition order.
func (c *ConnCache) Close(ctx context.Context) {
	for i := len(c.order) - 1; i >= 0; i-- {
		if conn, ok := c.conns[c.order[i]]; ok {
			conn.Close(ctx)
		}
	}
}
