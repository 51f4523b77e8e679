// Command query_events prints stored ad session events. With -session it
// lists one session's events from ClickHouse, or with -summary their count
// per event type; with -counts it prints the daily Redis counters of every
// format.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/patrickwarner/adunits/internal/analytics"
	"github.com/patrickwarner/adunits/internal/config"
	"github.com/patrickwarner/adunits/internal/models"
	"github.com/patrickwarner/adunits/internal/observability"
	"go.uber.org/zap"
)

func main() {
	var (
		session string
		limit   int
		counts  bool
		summary bool
		day     string
		dsn     string
		redis   string
	)
	flag.StringVar(&session, "session", "", "session ID to list events for")
	flag.IntVar(&limit, "limit", 100, "maximum number of events")
	flag.BoolVar(&counts, "counts", false, "print daily counters instead")
	flag.BoolVar(&summary, "summary", false, "with -session, print event counts by type")
	flag.StringVar(&day, "day", "", "counter day as YYYY-MM-DD (default today, UTC)")
	flag.StringVar(&dsn, "dsn", "", "ClickHouse DSN (default CLICKHOUSE_DSN)")
	flag.StringVar(&redis, "redis", "", "Redis address (default REDIS_ADDR)")
	flag.Parse()

	cfg := config.Load()
	logger, err := observability.InitStderrLogger(cfg.ServiceName + "-query")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch {
	case counts:
		if redis == "" {
			redis = cfg.RedisAddr
		}
		err = printCounts(ctx, os.Stdout, redis, day, logger)
	case session != "":
		if dsn == "" {
			dsn = cfg.ClickHouseDSN
		}
		if summary {
			err = printSummary(ctx, os.Stdout, dsn, session, logger)
		} else {
			err = printSession(ctx, os.Stdout, dsn, session, limit, logger)
		}
	default:
		err = fmt.Errorf("either -session or -counts is required")
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func printSession(ctx context.Context, w io.Writer, dsn, session string, limit int, logger *zap.Logger) error {
	if dsn == "" {
		return fmt.Errorf("no ClickHouse DSN configured")
	}
	ch, err := analytics.InitClickHouse(ctx, dsn, logger)
	if err != nil {
		return fmt.Errorf("connect clickhouse: %w", err)
	}
	defer func() { _ = ch.Close() }()

	events, err := ch.EventsBySession(ctx, session, limit)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(events)
}

func printSummary(ctx context.Context, w io.Writer, dsn, session string, logger *zap.Logger) error {
	if dsn == "" {
		return fmt.Errorf("no ClickHouse DSN configured")
	}
	ch, err := analytics.InitClickHouse(ctx, dsn, logger)
	if err != nil {
		return fmt.Errorf("connect clickhouse: %w", err)
	}
	defer func() { _ = ch.Close() }()

	counts, err := ch.CountByType(ctx, session)
	if err != nil {
		return err
	}
	return writeSummary(w, counts)
}

// writeSummary prints counts in lifecycle order, skipping absent types.
func writeSummary(w io.Writer, counts map[analytics.EventType]int64) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "EVENT\tCOUNT")
	for _, typ := range analytics.AllEventTypes() {
		if n := counts[typ]; n > 0 {
			_, _ = fmt.Fprintf(tw, "%s\t%d\n", typ, n)
		}
	}
	return tw.Flush()
}

func printCounts(ctx context.Context, w io.Writer, addr, day string, logger *zap.Logger) error {
	if addr == "" {
		return fmt.Errorf("no Redis address configured")
	}
	when := time.Now().UTC()
	if day != "" {
		t, err := time.Parse("2006-01-02", day)
		if err != nil {
			return fmt.Errorf("invalid -day: %w", err)
		}
		when = t
	}

	rs, err := analytics.InitRedis(ctx, addr, logger)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer func() { _ = rs.Close() }()

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "FORMAT\tEVENT\tCOUNT")
	for f := models.FormatInterstitial; f <= models.FormatNativeBanner; f++ {
		for _, typ := range analytics.AllEventTypes() {
			n, err := rs.Count(ctx, f.String(), typ, when)
			if err != nil {
				return err
			}
			if n > 0 {
				_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\n", f, typ, n)
			}
		}
	}
	return tw.Flush()
}
