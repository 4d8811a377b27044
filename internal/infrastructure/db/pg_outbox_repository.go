package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
)

type PgOutboxRepository struct {
	db *sql.DB
}

func NewPgOutboxRepository(db *sql.DB) *PgOutboxRepository {
	return &PgOutboxRepository{db: db}
}

const outboxColumns = `
    id, type, payload_json, occurred_at_utc, retry_count, processed_at_utc
`

func (r *PgOutboxRepository) Insert(
	ctx context.Context,
	msg domain.OutboxMessage,
) error {
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.OccurredAtUtc.IsZero() {
		msg.OccurredAtUtc = time.Now().UTC()
	}

	query := `
        insert into inventory_outbox
        (id, type, payload_json, occurred_at_utc, retry_count, processed_at_utc)
        values ($1,$2,$3,$4,$5,null)
    `
	_, err := r.db.ExecContext(
		ctx, query,
		msg.ID,
		msg.Type,
		msg.PayloadJSON,
		msg.OccurredAtUtc,
		msg.RetryCount,
	)
	return err
}

// GetPendingBatch returns undispatched rows in occurrence order. Rows whose
// retry counter reached maxRetry are excluded; they stay in the table for
// inspection and replay.
func (r *PgOutboxRepository) GetPendingBatch(
	ctx context.Context,
	maxRetry, batchSize int,
) ([]domain.OutboxMessage, error) {
	query := `
        select ` + outboxColumns + `
        from inventory_outbox
        where processed_at_utc is null
          and retry_count < $1
        order by occurred_at_utc asc, id asc
        limit $2
    `
	rows, err := r.db.QueryContext(ctx, query, maxRetry, batchSize)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.OutboxMessage
	for rows.Next() {
		var msg domain.OutboxMessage
		var processedAt sql.NullTime
		if err := rows.Scan(
			&msg.ID,
			&msg.Type,
			&msg.PayloadJSON,
			&msg.OccurredAtUtc,
			&msg.RetryCount,
			&processedAt,
		); err != nil {
			return nil, err
		}
		if processedAt.Valid {
			t := processedAt.Time
			msg.ProcessedAtUtc = &t
		}
		result = append(result, msg)
	}
	return result, rows.Err()
}

func (r *PgOutboxRepository) MarkProcessed(
	ctx context.Context,
	id uuid.UUID,
	at time.Time,
) error {
	query := `
        update inventory_outbox
        set processed_at_utc = $2
        where id = $1
    `
	_, err := r.db.ExecContext(ctx, query, id, at.UTC())
	return err
}

// MarkFailed bumps the retry counter in the statement itself, so concurrent
// dispatchers never lose an increment.
func (r *PgOutboxRepository) MarkFailed(
	ctx context.Context,
	id uuid.UUID,
) error {
	query := `
        update inventory_outbox
        set retry_count = retry_count + 1
        where id = $1
    `
	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
