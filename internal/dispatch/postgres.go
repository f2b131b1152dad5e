package dispatch

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/telhawk-systems/feishu-trigger/internal/messaging"
	"github.com/telhawk-systems/feishu-trigger/internal/metrics"
	"github.com/telhawk-systems/feishu-trigger/internal/trigger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const insertItemSQL = `
	INSERT INTO workflow_items (id, trigger_name, request_id, event_type, output, item, received_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)`

const pendingItemsSQL = `
	SELECT trigger_name, request_id, output, item, received_at
	FROM workflow_items
	WHERE trigger_name = $1 AND claimed_at IS NULL
	ORDER BY received_at, id
	LIMIT $2`

// Migrate applies the workflow item schema to the database at connString.
func Migrate(connString string) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", src, connString)
	if err != nil {
		return fmt.Errorf("failed to initialize migrations: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}

// PostgresDispatcher writes workflow items to the workflow_items outbox
// table, where the workflow engine picks them up.
type PostgresDispatcher struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewPostgresDispatcher connects to the database at connString.
func NewPostgresDispatcher(ctx context.Context, connString string) (*PostgresDispatcher, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresDispatcher{pool: pool, now: time.Now}, nil
}

// Dispatch stores every item of exec in one transaction.
func (d *PostgresDispatcher) Dispatch(ctx context.Context, exec Execution) error {
	start := time.Now()
	defer func() {
		metrics.DispatchDuration.Observe(time.Since(start).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	tx, err := d.pool.Begin(ctx)
	if err != nil {
		metrics.DispatchErrors.Inc()
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	receivedAt := d.now().UTC()
	n := 0
	for output, batch := range exec.Data {
		for _, item := range batch {
			data, err := json.Marshal(item)
			if err != nil {
				metrics.DispatchErrors.Inc()
				return fmt.Errorf("marshal workflow item: %w", err)
			}

			id, err := uuid.NewV7()
			if err != nil {
				metrics.DispatchErrors.Inc()
				return fmt.Errorf("generate item id: %w", err)
			}

			if _, err := tx.Exec(ctx, insertItemSQL,
				id.String(), exec.Trigger, exec.RequestID, exec.EventType, output, data, receivedAt,
			); err != nil {
				metrics.DispatchErrors.Inc()
				return fmt.Errorf("insert workflow item: %w", err)
			}
			n++
		}
	}

	if err := tx.Commit(ctx); err != nil {
		metrics.DispatchErrors.Inc()
		return fmt.Errorf("commit workflow items: %w", err)
	}

	metrics.ItemsDispatched.WithLabelValues(exec.Trigger).Add(float64(n))
	return nil
}

// Pending returns up to limit unclaimed items of a trigger, oldest first.
func (d *PostgresDispatcher) Pending(ctx context.Context, triggerName string, limit int) ([]Envelope, error) {
	rows, err := d.pool.Query(ctx, pendingItemsSQL, triggerName, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending items: %w", err)
	}
	defer rows.Close()

	var items []Envelope
	for rows.Next() {
		var (
			env  Envelope
			data []byte
		)
		if err := rows.Scan(&env.Trigger, &env.RequestID, &env.Output, &data, &env.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan pending item: %w", err)
		}
		var item trigger.Item
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, fmt.Errorf("decode pending item: %w", err)
		}
		env.Item = item
		items = append(items, env)
	}
	return items, rows.Err()
}

func (d *PostgresDispatcher) Healthy(ctx context.Context) messaging.HealthStatus {
	start := time.Now()
	if err := d.pool.Ping(ctx); err != nil {
		return messaging.HealthStatus{Error: err.Error()}
	}
	return messaging.HealthStatus{Connected: true, Latency: time.Since(start)}
}

func (d *PostgresDispatcher) Close() error {
	d.pool.Close()
	return nil
}
