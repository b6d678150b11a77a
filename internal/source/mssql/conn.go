// Package mssql connects to the SQL Server source and discovers its tables
// and columns from INFORMATION_SCHEMA.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	mssql "github.com/microsoft/go-mssqldb"

	"github.com/cuderbk/adw-elt-pipeline/internal/domain"
)

// DefaultPort is the SQL Server TCP port used when Options.Port is zero.
const DefaultPort = 1433

// Options describes how to reach the source database.
type Options struct {
	Server                 string
	Port                   int
	Database               string
	User                   string
	Password               string
	Encrypt                string // "true", "false", "disable" or "strict"
	TrustServerCertificate bool
	ConnectTimeout         time.Duration

	// Tunnel, when set, routes every connection through an SSH bastion.
	Tunnel *TunnelOptions
}

// DSN builds a sqlserver:// connection URL. The password is percent-encoded.
func (o Options) DSN() string {
	port := o.Port
	if port == 0 {
		port = DefaultPort
	}

	q := url.Values{}
	q.Set("database", o.Database)
	if o.Encrypt != "" {
		q.Set("encrypt", o.Encrypt)
	}
	if o.TrustServerCertificate {
		q.Set("TrustServerCertificate", "true")
	}
	if o.ConnectTimeout > 0 {
		q.Set("connection timeout", strconv.Itoa(int(o.ConnectTimeout.Seconds())))
	}
	q.Set("app name", "adw-elt")

	u := &url.URL{
		Scheme:   "sqlserver",
		Host:     net.JoinHostPort(o.Server, strconv.Itoa(port)),
		RawQuery: q.Encode(),
	}
	if o.User != "" {
		u.User = url.UserPassword(o.User, o.Password)
	}
	return u.String()
}

// Redacted returns the DSN with the password masked, for logging.
func (o Options) Redacted() string {
	if o.Password == "" {
		return o.DSN()
	}
	c := o
	c.Password = "xxxxx"
	return c.DSN()
}

// Source is an open connection pool to the SQL Server database.
type Source struct {
	db     *sql.DB
	tunnel *Tunnel
}

var _ domain.SourceCatalog = (*Source)(nil)

// Open connects to the source, through an SSH tunnel when configured, and
// verifies the connection. Failures are returned as *domain.ConnectionError.
func Open(ctx context.Context, opts Options) (*Source, error) {
	if opts.Server == "" || opts.Database == "" {
		return nil, domain.ErrConnection("source", fmt.Errorf("server and database are required"))
	}

	connector, err := mssql.NewConnector(opts.DSN())
	if err != nil {
		return nil, domain.ErrConnection("source", fmt.Errorf("parse connection string: %w", err))
	}

	var tunnel *Tunnel
	if opts.Tunnel != nil {
		tunnel, err = OpenTunnel(*opts.Tunnel)
		if err != nil {
			return nil, domain.ErrConnection("source", err)
		}
		connector.Dialer = tunnel
	}

	db := sql.OpenDB(connector)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		if tunnel != nil {
			_ = tunnel.Close()
		}
		return nil, domain.ErrConnection("source", fmt.Errorf("ping %s: %w", opts.Server, err))
	}

	return &Source{db: db, tunnel: tunnel}, nil
}

// DB exposes the pool for running projection queries.
func (s *Source) DB() *sql.DB { return s.db }

// Close closes the pool and any SSH tunnel.
func (s *Source) Close() error {
	err := s.db.Close()
	if s.tunnel != nil {
		if terr := s.tunnel.Close(); err == nil {
			err = terr
		}
	}
	return err
}
