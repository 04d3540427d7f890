package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/InsiderScan/models"
)

// ErrNotConfigured is returned when no database host or name is set
var ErrNotConfigured = errors.New("database not configured")

// DB represents a database connection
type DB struct {
	*sqlx.DB
	timeout  time.Duration
	location *time.Location
	logger   zerolog.Logger
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN renders the lib/pq connection string
func (p ConnectionParams) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// Options tunes query behaviour
type Options struct {
	QueryTimeout time.Duration
	// Location is the market timezone used to derive trading dates
	Location *time.Location
}

// New opens and pings a connection. It issues no DDL; call EnsureSchema for that.
func New(ctx context.Context, params ConnectionParams, opts Options) (*DB, error) {
	if params.Host == "" || params.DBName == "" {
		return nil, ErrNotConfigured
	}

	conn, err := sqlx.Open("postgres", params.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(30 * time.Minute)

	return connect(ctx, conn, opts)
}

func connect(ctx context.Context, conn *sqlx.DB, opts Options) (*DB, error) {
	db := Wrap(conn, opts)

	// Check connection
	if err := db.Ping(ctx); err != nil {
		conn.Close()
		return nil, err
	}

	return db, nil
}

// Wrap adapts an open connection
func Wrap(conn *sqlx.DB, opts Options) *DB {
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 30 * time.Second
	}
	if opts.Location == nil {
		opts.Location = models.MarketLocation(models.DefaultMarketTimezone)
	}
	return &DB{
		DB:       conn,
		timeout:  opts.QueryTimeout,
		location: opts.Location,
		logger:   log.With().Str("component", "database").Logger(),
	}
}

// Ping checks connectivity within the query timeout
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// EnsureSchema creates the anomaly snapshot table if it doesn't exist.
// Source tables are owned by the loaders and only read here.
func (db *DB) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, db.timeout)
	defer cancel()

	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS daily_anomaly_snapshot (
			event_date DATE NOT NULL,
			symbol TEXT NOT NULL,
			total_score DOUBLE PRECISION NOT NULL,
			volume_score DOUBLE PRECISION NOT NULL,
			otm_score DOUBLE PRECISION NOT NULL,
			directional_score DOUBLE PRECISION NOT NULL,
			volume_oi_ratio_score DOUBLE PRECISION NOT NULL,
			time_score DOUBLE PRECISION NOT NULL,
			call_volume BIGINT NOT NULL,
			put_volume BIGINT NOT NULL,
			total_volume BIGINT NOT NULL,
			call_open_interest BIGINT NOT NULL,
			put_open_interest BIGINT NOT NULL,
			call_baseline_avg DOUBLE PRECISION NOT NULL,
			put_baseline_avg DOUBLE PRECISION NOT NULL,
			call_multiplier DOUBLE PRECISION NOT NULL,
			put_multiplier DOUBLE PRECISION NOT NULL,
			call_put_ratio DOUBLE PRECISION NOT NULL,
			z_score DOUBLE PRECISION NOT NULL,
			otm_percentage DOUBLE PRECISION NOT NULL,
			short_term_percentage DOUBLE PRECISION NOT NULL,
			call_volume_oi_ratio DOUBLE PRECISION NOT NULL,
			put_volume_oi_ratio DOUBLE PRECISION NOT NULL,
			call_volume_oi_z_score DOUBLE PRECISION NOT NULL,
			put_volume_oi_z_score DOUBLE PRECISION NOT NULL,
			call_magnitude DOUBLE PRECISION NOT NULL,
			put_magnitude DOUBLE PRECISION NOT NULL,
			total_magnitude DOUBLE PRECISION NOT NULL,
			direction TEXT NOT NULL,
			conviction TEXT NOT NULL,
			volume_tier TEXT NOT NULL,
			pattern_description TEXT NOT NULL,
			factors JSONB NOT NULL,
			as_of_timestamp TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (event_date, symbol)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create daily_anomaly_snapshot: %w", err)
	}

	// Add the new columns if they don't exist (for existing databases)
	_, _ = db.ExecContext(ctx, `
		ALTER TABLE daily_anomaly_snapshot
		ADD COLUMN IF NOT EXISTS conviction TEXT NOT NULL DEFAULT 'NORMAL',
		ADD COLUMN IF NOT EXISTS volume_tier TEXT NOT NULL DEFAULT 'low_volume',
		ALTER COLUMN total_score TYPE DOUBLE PRECISION,
		ALTER COLUMN volume_score TYPE DOUBLE PRECISION,
		ALTER COLUMN otm_score TYPE DOUBLE PRECISION,
		ALTER COLUMN directional_score TYPE DOUBLE PRECISION,
		ALTER COLUMN volume_oi_ratio_score TYPE DOUBLE PRECISION,
		ALTER COLUMN time_score TYPE DOUBLE PRECISION
	`)

	return nil
}
