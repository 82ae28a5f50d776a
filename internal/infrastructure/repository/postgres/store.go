package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/insight-assistant/internal/core/domain"
	"github.com/kirillkom/insight-assistant/internal/infrastructure/resilience"
)

const (
	defaultMaxRows      = 100
	defaultQueryTimeout = 5 * time.Second
)

// Store is the read path into the transactional retail database. Queries
// arrive fully assembled from the whitelisted template registry; the store
// only binds values, bounds rows and maps failures.
type Store struct {
	db           *sql.DB
	maxRows      int
	queryTimeout time.Duration
	executor     *resilience.Executor
}

type Options struct {
	MaxRows            int
	QueryTimeout       time.Duration
	ResilienceExecutor *resilience.Executor
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func NewStore(db *sql.DB, options Options) *Store {
	maxRows := options.MaxRows
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}
	queryTimeout := options.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	return &Store{
		db:           db,
		maxRows:      maxRows,
		queryTimeout: queryTimeout,
		executor:     options.ResilienceExecutor,
	}
}

func (s *Store) Select(ctx context.Context, query string, args ...any) ([]domain.Row, error) {
	var out []domain.Row
	run := func(ctx context.Context) error {
		qctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()

		rows, err := s.db.QueryContext(qctx, query, args...)
		if err != nil {
			return fmt.Errorf("execute query: %w", err)
		}
		defer rows.Close()

		columns, err := rows.Columns()
		if err != nil {
			return fmt.Errorf("read columns: %w", err)
		}

		collected := make([]domain.Row, 0, 16)
		for rows.Next() {
			if len(collected) >= s.maxRows {
				break
			}
			values := make([]any, len(columns))
			pointers := make([]any, len(columns))
			for i := range values {
				pointers[i] = &values[i]
			}
			if err := rows.Scan(pointers...); err != nil {
				return fmt.Errorf("scan row: %w", err)
			}

			row := make(domain.Row, 0, len(columns))
			for i, name := range columns {
				row = append(row, domain.Field{Name: name, Value: normalizeValue(values[i])})
			}
			collected = append(collected, row)
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("iterate rows: %w", err)
		}

		out = collected
		return nil
	}

	var err error
	if s.executor != nil {
		err = s.executor.Execute(ctx, "postgres_select", run, classifyPostgresError)
	} else {
		err = run(ctx)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrBackendUnavailable, "postgres select", err)
	}
	return out, nil
}

// normalizeValue maps driver types onto the small scalar set rows carry:
// string, int64, float64, bool, time.Time or nil.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.UTC()
	default:
		return v
	}
}

func classifyPostgresError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08: connection exceptions; 57P01..03: server shutdown states.
		if len(pgErr.Code) >= 2 && (pgErr.Code[:2] == "08" || pgErr.Code == "57P01" || pgErr.Code == "57P02" || pgErr.Code == "57P03") {
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		}
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}

	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
