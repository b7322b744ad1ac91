package database

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pkg/errors"
)

type (
	// Client represents a PostgreSQL database connection
	Client struct {
		db *sql.DB
	}

	// ClientOptions contains optional connection settings that are not part of
	// the connection string.
	ClientOptions struct {
		TLSSettings TLSSettings
	}

	// TLSSettings configures mutual TLS. When any file is set the connection
	// requires TLS regardless of the sslmode in the connection string.
	TLSSettings struct {
		CAFile   string `yaml:"ca_file"`
		CertFile string `yaml:"cert_file"`
		KeyFile  string `yaml:"key_file"`
	}
)

// Enabled returns true if any TLS file has been configured.
func (s TLSSettings) Enabled() bool {
	return s.CAFile != "" || s.CertFile != "" || s.KeyFile != ""
}

// Open connects to the database described by dsn and verifies the connection.
// The DSN may be a URL or a key/value connection string.
//
// Example:
//
//	client, err := database.Open(ctx, "host=localhost dbname=app sslmode=disable", database.ClientOptions{})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
func Open(ctx context.Context, dsn string, opts ClientOptions) (*Client, error) {
	cfg, err := pgx.ParseConfig(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "invalid connection string")
	}

	if opts.TLSSettings.Enabled() {
		tlsConfig, err := GetTLSConfig(opts)
		if err != nil {
			return nil, err
		}

		tlsConfig.ServerName = cfg.Host
		cfg.TLSConfig = tlsConfig
		cfg.Fallbacks = nil
	}

	db := stdlib.OpenDB(*cfg)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to connect to %s:%d/%s", cfg.Host, cfg.Port, cfg.Database)
	}

	slog.Debug("Connected to database", "host", cfg.Host, "port", cfg.Port, "database", cfg.Database)
	return &Client{db: db}, nil
}

// DB returns the underlying connection pool.
func (c *Client) DB() *sql.DB {
	return c.db
}

// Close closes the PostgreSQL connection
func (c *Client) Close() error {
	return c.db.Close()
}
