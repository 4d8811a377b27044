package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
)

type PgReservationRepository struct {
	db *sql.DB
}

func NewPgReservationRepository(db *sql.DB) *PgReservationRepository {
	return &PgReservationRepository{db: db}
}

const reservationColumns = `
    id, title_id, warehouse_id, quantity, order_id, customer_id,
    priority, status, expires_at_utc, created_at_utc, released_at_utc
`

func scanReservation(row interface{ Scan(...any) error }) (*domain.Reservation, error) {
	var res domain.Reservation
	var priority, status string
	var releasedAt sql.NullTime
	if err := row.Scan(
		&res.ID,
		&res.TitleID,
		&res.WarehouseID,
		&res.Quantity,
		&res.OrderID,
		&res.CustomerID,
		&priority,
		&status,
		&res.ExpiresAtUtc,
		&res.CreatedAtUtc,
		&releasedAt,
	); err != nil {
		return nil, err
	}
	res.Priority = domain.ReservationPriority(priority)
	res.Status = domain.ReservationStatus(status)
	if releasedAt.Valid {
		t := releasedAt.Time
		res.ReleasedAtUtc = &t
	}
	return &res, nil
}

func (r *PgReservationRepository) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*domain.Reservation, error) {
	query := `
        select ` + reservationColumns + `
        from inventory_reservations
        where id = $1
    `
	res, err := scanReservation(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return res, err
}

func (r *PgReservationRepository) listWhere(
	ctx context.Context,
	where string,
	args ...any,
) ([]*domain.Reservation, error) {
	query := `
        select ` + reservationColumns + `
        from inventory_reservations
        where ` + where + `
        order by created_at_utc asc
    `
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*domain.Reservation{}
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, res)
	}
	return result, rows.Err()
}

func (r *PgReservationRepository) ListByTitle(
	ctx context.Context,
	titleID uuid.UUID,
) ([]*domain.Reservation, error) {
	return r.listWhere(ctx, `title_id = $1`, titleID)
}

func (r *PgReservationRepository) ListActiveByTitle(
	ctx context.Context,
	titleID uuid.UUID,
) ([]*domain.Reservation, error) {
	return r.listWhere(ctx, `title_id = $1 and status = $2`, titleID, string(domain.ReservationActive))
}

func (r *PgReservationRepository) ListActiveByOrderID(
	ctx context.Context,
	orderID uuid.UUID,
) ([]*domain.Reservation, error) {
	return r.listWhere(ctx, `order_id = $1 and status = $2`, orderID, string(domain.ReservationActive))
}

func (r *PgReservationRepository) ListActiveExpiredBefore(
	ctx context.Context,
	cutoff time.Time,
) ([]*domain.Reservation, error) {
	return r.listWhere(ctx, `status = $1 and expires_at_utc < $2`,
		string(domain.ReservationActive), cutoff.UTC())
}

func (r *PgReservationRepository) Insert(
	ctx context.Context,
	res *domain.Reservation,
) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	query := `
        insert into inventory_reservations
        (id, title_id, warehouse_id, quantity, order_id, customer_id,
         priority, status, expires_at_utc, created_at_utc, released_at_utc)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
    `
	_, err := r.db.ExecContext(
		ctx, query,
		res.ID,
		res.TitleID,
		res.WarehouseID,
		res.Quantity,
		res.OrderID,
		res.CustomerID,
		string(res.Priority),
		string(res.Status),
		res.ExpiresAtUtc,
		res.CreatedAtUtc,
		res.ReleasedAtUtc,
	)
	return err
}

// CloseIfActive races the terminal transition inside one UPDATE: only the
// caller that finds the row still ACTIVE gets it back, everyone else gets
// (nil, nil) and must leave the stock counters alone.
func (r *PgReservationRepository) CloseIfActive(
	ctx context.Context,
	id uuid.UUID,
	status domain.ReservationStatus,
	closedAt time.Time,
) (*domain.Reservation, error) {
	query := `
        update inventory_reservations
        set status = $2,
            released_at_utc = $3
        where id = $1 and status = $4
        returning ` + reservationColumns + `
    `
	res, err := scanReservation(r.db.QueryRowContext(
		ctx, query, id, string(status), closedAt.UTC(), string(domain.ReservationActive)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return res, err
}

func (r *PgReservationRepository) ExtendIfActive(
	ctx context.Context,
	id uuid.UUID,
	newExpiresAt time.Time,
) (*domain.Reservation, error) {
	query := `
        update inventory_reservations
        set expires_at_utc = $2
        where id = $1 and status = $3
        returning ` + reservationColumns + `
    `
	res, err := scanReservation(r.db.QueryRowContext(
		ctx, query, id, newExpiresAt.UTC(), string(domain.ReservationActive)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return res, err
}

func (r *PgReservationRepository) DeleteTerminalBefore(
	ctx context.Context,
	cutoff time.Time,
) (int, error) {
	query := `
        delete from inventory_reservations
        where status in ($1,$2,$3)
          and created_at_utc < $4
    `
	tag, err := r.db.ExecContext(
		ctx, query,
		string(domain.ReservationReleased),
		string(domain.ReservationExpired),
		string(domain.ReservationFulfilled),
		cutoff.UTC(),
	)
	if err != nil {
		return 0, err
	}
	n, err := tag.RowsAffected()
	return int(n), err
}

func (r *PgReservationRepository) DeleteAll(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `delete from inventory_reservations`)
	return err
}
