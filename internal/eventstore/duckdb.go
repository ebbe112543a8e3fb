// SentinelMap - Honeypot Security Event Dashboard and Live Attack Map
// Copyright 2026 J. Mercer (jmercer)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/jmercer/sentinelmap

package eventstore

import (
	"context"
	"database/sql"
	"fmt"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // registers the "duckdb" database/sql driver
	"github.com/goccy/go-json"

	"github.com/jmercer/sentinelmap/internal/config"
	"github.com/jmercer/sentinelmap/internal/logging"
	"github.com/jmercer/sentinelmap/internal/metrics"
	"github.com/jmercer/sentinelmap/internal/models"
)

// DuckDB implements Store over the DuckDB file the log ingesters write to.
// Sensor records land as one row per event: indexed columns for the fields
// every query touches (id, ts, sensor) and the original document as JSON.
type DuckDB struct {
	conn *sql.DB
	cfg  *config.StoreConfig
}

// schema is created on open if the ingesters have not run yet; opening an
// empty store must not fail, it just yields empty query results.
const schema = `
CREATE TABLE IF NOT EXISTS security_events (
    id      VARCHAR NOT NULL,
    ts      TIMESTAMP NOT NULL,
    sensor  VARCHAR NOT NULL,
    payload JSON NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_security_events_ts ON security_events (ts);
`

// OpenDuckDB opens the sensor log store read path.
func OpenDuckDB(cfg *config.StoreConfig) (*DuckDB, error) {
	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}
	connStr := fmt.Sprintf("%s?access_mode=read_write&threads=%d&max_memory=%s",
		cfg.Path, threads, cfg.MaxMemory)

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open event store: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping event store: %w", err)
	}

	conn.SetMaxOpenConns(threads)
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)

	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize event store schema: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Int("threads", threads).Msg("event store opened")
	return &DuckDB{conn: conn, cfg: cfg}, nil
}

// Search returns raw records in the window matching the predicate, oldest
// first, up to limit.
func (s *DuckDB) Search(ctx context.Context, window TimeWindow, pred *Predicate, limit int) (records []RawRecord, err error) {
	defer func(started time.Time) { metrics.RecordStoreQuery("search", time.Since(started), err) }(time.Now())

	where, args := pred.Build()
	query := fmt.Sprintf(`
		SELECT id, ts, sensor, CAST(payload AS VARCHAR)
		FROM security_events
		WHERE ts >= ? AND ts < ? AND %s
		ORDER BY ts ASC
		LIMIT ?`, where)

	queryArgs := append([]interface{}{window.Start, window.End}, args...)
	queryArgs = append(queryArgs, limit)

	rows, err := s.conn.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var (
			id, sensor, payload string
			ts                  time.Time
		)
		if err := rows.Scan(&id, &ts, &sensor, &payload); err != nil {
			return nil, fmt.Errorf("search scan failed: %w", err)
		}

		doc := make(map[string]interface{})
		if err := json.Unmarshal([]byte(payload), &doc); err != nil {
			// A corrupt payload is a degraded record, not a query failure.
			logging.Warn().Err(err).Str("id", id).Msg("skipping record with malformed payload")
			continue
		}

		records = append(records, RawRecord{
			"id":        id,
			"timestamp": ts.UTC(),
			"sensor":    sensor,
			"payload":   doc,
		})
	}
	return records, rows.Err()
}

// Count returns the number of records in the window matching the predicate.
func (s *DuckDB) Count(ctx context.Context, window TimeWindow, pred *Predicate) (count int, err error) {
	defer func(started time.Time) { metrics.RecordStoreQuery("count", time.Since(started), err) }(time.Now())

	where, args := pred.Build()
	query := fmt.Sprintf(`SELECT COUNT(*) FROM security_events WHERE ts >= ? AND ts < ? AND %s`, where)

	queryArgs := append([]interface{}{window.Start, window.End}, args...)
	if err := s.conn.QueryRowContext(ctx, query, queryArgs...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count query failed: %w", err)
	}
	return count, nil
}

// CountDistinct returns the number of distinct values of a payload field in
// the window. The field must pass ValidField since JSON paths cannot be bound
// as parameters.
func (s *DuckDB) CountDistinct(ctx context.Context, field string, window TimeWindow, pred *Predicate) (count int, err error) {
	defer func(started time.Time) { metrics.RecordStoreQuery("count_distinct", time.Since(started), err) }(time.Now())

	if !ValidField(field) {
		return 0, fmt.Errorf("invalid aggregation field %q", field)
	}
	where, args := pred.Build()
	query := fmt.Sprintf(`
		SELECT COUNT(DISTINCT %s)
		FROM security_events
		WHERE ts >= ? AND ts < ? AND %s`, fieldExpr(field), where)

	queryArgs := append([]interface{}{window.Start, window.End}, args...)
	if err := s.conn.QueryRowContext(ctx, query, queryArgs...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count distinct query failed: %w", err)
	}
	return count, nil
}

// Terms returns the most frequent values of a payload field in the window.
func (s *DuckDB) Terms(ctx context.Context, field string, window TimeWindow, limit int, pred *Predicate) (terms []models.TermCount, err error) {
	defer func(started time.Time) { metrics.RecordStoreQuery("terms", time.Since(started), err) }(time.Now())

	if !ValidField(field) {
		return nil, fmt.Errorf("invalid aggregation field %q", field)
	}
	where, args := pred.Build()
	expr := fieldExpr(field)
	query := fmt.Sprintf(`
		SELECT %s AS term, COUNT(*) AS cnt
		FROM security_events
		WHERE ts >= ? AND ts < ? AND %s AND %s IS NOT NULL
		GROUP BY term
		ORDER BY cnt DESC
		LIMIT ?`, expr, where, expr)

	queryArgs := append([]interface{}{window.Start, window.End}, args...)
	queryArgs = append(queryArgs, limit)

	rows, err := s.conn.QueryContext(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("terms query failed: %w", err)
	}
	defer closeRows(rows)

	for rows.Next() {
		var tc models.TermCount
		if err := rows.Scan(&tc.Value, &tc.Count); err != nil {
			return nil, fmt.Errorf("terms scan failed: %w", err)
		}
		terms = append(terms, tc)
	}
	return terms, rows.Err()
}

// Ping verifies the store is reachable.
func (s *DuckDB) Ping(ctx context.Context) error {
	return s.conn.PingContext(ctx)
}

// Close releases the underlying connection.
func (s *DuckDB) Close() error {
	return s.conn.Close()
}

// fieldExpr maps an allowlisted field name to its SQL expression. The sensor
// tag is an indexed column; everything else lives in the JSON payload.
func fieldExpr(field string) string {
	if field == "sensor" {
		return "sensor"
	}
	return fmt.Sprintf("json_extract_string(payload, '$.%s')", field)
}

func closeRows(rows *sql.Rows) {
	if err := rows.Close(); err != nil {
		logging.Error().Err(err).Msg("failed to close result rows")
	}
}
