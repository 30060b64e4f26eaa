package infra

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// SQLExecutor is the query surface repositories depend on. *SQLRunner
// implements it against a pool; tests substitute fakes.
type SQLExecutor interface {
	Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, query string, args ...any) pgx.Row
	Query(ctx context.Context, query string, args ...any) (pgx.Rows, error)
}

// PgxQuerier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var markerRegexp = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// ErrMissingMarker is returned for statements without a "--sql <uuid>" first line.
var ErrMissingMarker = errors.New("sql marker missing or invalid")

// SQLRunner executes marked statements and logs each one by its marker, so a
// log line can be traced back to the exact statement in internal/sqlinline.
type SQLRunner struct {
	DB     PgxQuerier
	Logger zerolog.Logger
}

func NewSQLRunner(db PgxQuerier, logger zerolog.Logger) *SQLRunner {
	return &SQLRunner{DB: db, Logger: logger}
}

func (r *SQLRunner) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := time.Now()
	tag, err := r.DB.Exec(ctx, trimmed, args...)
	if err != nil {
		r.Logger.Error().Err(err).Str("sql", marker).Msg("exec failed")
		return tag, err
	}
	r.Logger.Debug().Str("sql", marker).Int64("rows", tag.RowsAffected()).Dur("took", time.Since(start)).Msg("exec")
	return tag, nil
}

func (r *SQLRunner) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return errorRow{err: err}
	}
	return loggingRow{
		row:    r.DB.QueryRow(ctx, trimmed, args...),
		logger: r.Logger,
		marker: marker,
		start:  time.Now(),
	}
}

func (r *SQLRunner) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	marker, trimmed, err := extractMarker(query)
	if err != nil {
		return nil, err
	}
	rows, err := r.DB.Query(ctx, trimmed, args...)
	if err != nil {
		r.Logger.Error().Err(err).Str("sql", marker).Msg("query failed")
		return nil, err
	}
	return loggingRows{Rows: rows, logger: r.Logger, marker: marker, start: time.Now()}, nil
}

type loggingRow struct {
	row    pgx.Row
	logger zerolog.Logger
	marker string
	start  time.Time
}

func (l loggingRow) Scan(dest ...any) error {
	err := l.row.Scan(dest...)
	switch {
	case err == nil:
		l.logger.Debug().Str("sql", l.marker).Dur("took", time.Since(l.start)).Msg("query_row")
	case errors.Is(err, pgx.ErrNoRows):
		l.logger.Debug().Str("sql", l.marker).Msg("query_row no rows")
	default:
		l.logger.Error().Err(err).Str("sql", l.marker).Msg("query_row failed")
	}
	return err
}

type loggingRows struct {
	pgx.Rows
	logger zerolog.Logger
	marker string
	start  time.Time
}

func (l loggingRows) Close() {
	l.Rows.Close()
	l.logger.Debug().Str("sql", l.marker).Dur("took", time.Since(l.start)).Msg("query")
}

type errorRow struct {
	err error
}

func (e errorRow) Scan(...any) error {
	return e.err
}

func extractMarker(query string) (string, string, error) {
	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return "", "", errors.New("empty query")
	}
	first, rest, _ := strings.Cut(trimmed, "\n")
	first = strings.TrimSpace(first)
	if !markerRegexp.MatchString(first) {
		return "", "", ErrMissingMarker
	}
	return strings.TrimPrefix(first, "--sql "), rest, nil
}

var _ SQLExecutor = (*SQLRunner)(nil)
