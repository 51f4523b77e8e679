package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/XSAM/otelsql"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	_ "github.com/ClickHouse/clickhouse-go/v2"
)

var _ EventSink = (*ClickHouseSink)(nil)

// ClickHouseSink stores every event as a row of ad_session_events.
type ClickHouseSink struct {
	DB     *sql.DB
	logger *zap.Logger
}

const createEventsTable = `CREATE TABLE IF NOT EXISTS ad_session_events (
       timestamp    DateTime64(3),
       session_id   String,
       format       LowCardinality(String),
       placement_id String,
       event_type   LowCardinality(String),
       handle_id    String,
       detail       String
   ) ENGINE=MergeTree() ORDER BY (format, event_type, timestamp)`

// InitClickHouse connects to ClickHouse and ensures the events table exists.
func InitClickHouse(ctx context.Context, dsn string, logger *zap.Logger) (*ClickHouseSink, error) {
	driverName, err := otelsql.Register("clickhouse",
		otelsql.WithAttributes(attribute.String("db.system", "clickhouse")),
	)
	if err != nil {
		return nil, fmt.Errorf("register otelsql: %w", err)
	}
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("clickhouse open: %w", err)
	}
	db.SetMaxOpenConns(4)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse ping: %w", err)
	}
	if _, err := db.ExecContext(ctx, createEventsTable); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("clickhouse create table: %w", err)
	}

	logger.Info("Connected to ClickHouse")
	return &ClickHouseSink{DB: db, logger: logger}, nil
}

// Record inserts a single event row.
func (s *ClickHouseSink) Record(ctx context.Context, ev Event) error {
	if s == nil || s.DB == nil {
		return ErrUnavailable
	}
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	const stmt = `INSERT INTO ad_session_events (timestamp, session_id, format, placement_id, event_type, handle_id, detail) VALUES (?, ?, ?, ?, ?, ?, ?)`
	if _, err := s.DB.ExecContext(ctx, stmt, ts, ev.SessionID, ev.Format, ev.PlacementID, string(ev.Type), ev.HandleID, ev.Detail); err != nil {
		return fmt.Errorf("insert %s event: %w", ev.Type, err)
	}
	return nil
}

// CountByType returns how many events of each type were stored for a session.
func (s *ClickHouseSink) CountByType(ctx context.Context, sessionID string) (map[EventType]int64, error) {
	if s == nil || s.DB == nil {
		return nil, ErrUnavailable
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT event_type, count() FROM ad_session_events WHERE session_id = ? GROUP BY event_type`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("rows close", zap.Error(err))
		}
	}()

	counts := make(map[EventType]int64)
	for rows.Next() {
		var typ string
		var n uint64
		if err := rows.Scan(&typ, &n); err != nil {
			return nil, fmt.Errorf("scan event count: %w", err)
		}
		counts[EventType(typ)] = int64(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return counts, nil
}

// EventsBySession returns the stored events of a session, oldest first.
func (s *ClickHouseSink) EventsBySession(ctx context.Context, sessionID string, limit int) ([]Event, error) {
	if s == nil || s.DB == nil {
		return nil, ErrUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.DB.QueryContext(ctx,
		`SELECT timestamp, session_id, format, placement_id, event_type, handle_id, detail
		   FROM ad_session_events WHERE session_id = ? ORDER BY timestamp LIMIT ?`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			s.logger.Warn("rows close", zap.Error(err))
		}
	}()

	var events []Event
	for rows.Next() {
		var ev Event
		var typ string
		if err := rows.Scan(&ev.Timestamp, &ev.SessionID, &ev.Format, &ev.PlacementID, &typ, &ev.HandleID, &ev.Detail); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		ev.Type = EventType(typ)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return events, nil
}

// Close terminates the ClickHouse connection.
func (s *ClickHouseSink) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}
