// Package snowflake executes DDL and load statements against the Snowflake
// destination and stages files in its internal named stages.
package snowflake

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/snowflakedb/gosnowflake"

	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
)

// Options holds the destination connection parameters.
type Options struct {
	Account      string
	User         string
	Password     string
	Warehouse    string
	Database     string
	Schema       string
	Role         string
	LoginTimeout time.Duration
}

// Config converts the options to a driver configuration.
func (o Options) Config() *gosnowflake.Config {
	return &gosnowflake.Config{
		Account:      o.Account,
		User:         o.User,
		Password:     o.Password,
		Warehouse:    o.Warehouse,
		Database:     o.Database,
		Schema:       o.Schema,
		Role:         o.Role,
		LoginTimeout: o.LoginTimeout,
		Application:  "adw-elt",
	}
}

// Execer is satisfied by *sql.DB.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Client runs statements on a single destination session pool.
type Client struct {
	db     *sql.DB
	exec   Execer
	logger *slog.Logger
}

var _ domain.Warehouse = (*Client)(nil)

// Open connects to Snowflake and verifies the session. Failures are returned
// as *domain.ConnectionError.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Client, error) {
	if opts.Account == "" || opts.User == "" {
		return nil, domain.ErrConnection("destination", fmt.Errorf("account and user are required"))
	}
	dsn, err := gosnowflake.DSN(opts.Config())
	if err != nil {
		return nil, domain.ErrConnection("destination", fmt.Errorf("build dsn: %w", err))
	}
	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, domain.ErrConnection("destination", err)
	}
	// One session keeps USE/ALTER SESSION state and the PUT working
	// directory consistent across statements.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, domain.ErrConnection("destination", fmt.Errorf("ping %s: %w", opts.Account, err))
	}
	return newClient(db, logger), nil
}

func newClient(exec Execer, logger *slog.Logger) *Client {
	db, _ := exec.(*sql.DB)
	return &Client{db: db, exec: exec, logger: logger}
}

// DB returns the underlying pool, or nil when the client wraps a bare Execer.
func (c *Client) DB() *sql.DB { return c.db }

// Exec runs one statement and discards its result.
func (c *Client) Exec(ctx context.Context, stmt string) error {
	start := time.Now()
	if _, err := c.exec.ExecContext(ctx, stmt); err != nil {
		return err
	}
	c.logger.Debug("statement executed", "sql", stmt, "duration_ms", time.Since(start).Milliseconds())
	return nil
}

// Close closes the session pool.
func (c *Client) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
