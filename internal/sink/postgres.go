package sink

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	insertStartSQL = `
		INSERT INTO proxy_logs (session_id, client_address, destination_address, destination_port, start_time, status)
		VALUES ($1, $2, $3, $4, NOW(), 'active');`

	// Duration and throughput are derived columns computed here so the
	// analytics side can query them without re-deriving per row.
	updateEndSQL = `
		UPDATE proxy_logs
		SET end_time = NOW(),
		    bytes_sent = $1,
		    bytes_received = $2,
		    status = $3,
		    error_message = NULLIF($4, ''),
		    connection_duration_ms = EXTRACT(EPOCH FROM (NOW() - start_time)) * 1000,
		    throughput_kbps = CASE
		        WHEN EXTRACT(EPOCH FROM (NOW() - start_time)) > 0 THEN
		            (($1 + $2) / 1024.0) / EXTRACT(EPOCH FROM (NOW() - start_time))
		        ELSE 0
		    END
		WHERE session_id = $5;`
)

// Postgres writes session records to the proxy_logs table. One row per
// session: inserted at Start, completed in place at End.
type Postgres struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewPostgres connects a pooled Postgres sink. The pool is sized modestly;
// each record is a single short statement and sessions block on their own
// sockets, not on the sink.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 10
	cfg.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &Postgres{pool: pool, timeout: 5 * time.Second}, nil
}

func (p *Postgres) Start(ctx context.Context, rec StartRecord) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.pool.Exec(ctx, insertStartSQL,
		rec.SessionID, rec.ClientAddress, rec.DestinationAddress, int32(rec.DestinationPort))
	if err != nil {
		return fmt.Errorf("insert session start: %w", err)
	}
	return nil
}

func (p *Postgres) End(ctx context.Context, rec EndRecord) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.pool.Exec(ctx, updateEndSQL,
		rec.BytesSent, rec.BytesReceived, string(rec.Status), rec.ErrorMessage, rec.SessionID)
	if err != nil {
		return fmt.Errorf("update session end: %w", err)
	}
	return nil
}

func (p *Postgres) Close() {
	p.pool.Close()
}
