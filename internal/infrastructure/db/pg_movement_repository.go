package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
)

type PgStockMovementRepository struct {
	db *sql.DB
}

func NewPgStockMovementRepository(db *sql.DB) *PgStockMovementRepository {
	return &PgStockMovementRepository{db: db}
}

func (r *PgStockMovementRepository) Insert(
	ctx context.Context,
	m *domain.StockMovement,
) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.OccurredAtUtc.IsZero() {
		m.OccurredAtUtc = time.Now().UTC()
	}
	query := `
        insert into inventory_stock_movements
        (id, title_id, warehouse_id, movement_type, quantity, unit_cost, reference, occurred_at_utc)
        values ($1,$2,$3,$4,$5,$6,$7,$8)
    `
	_, err := r.db.ExecContext(
		ctx, query,
		m.ID,
		m.TitleID,
		m.WarehouseID,
		string(m.Type),
		m.Quantity,
		m.UnitCost,
		m.Reference,
		m.OccurredAtUtc,
	)
	return err
}

func (r *PgStockMovementRepository) ListByTitleAndWarehouse(
	ctx context.Context,
	titleID, warehouseID uuid.UUID,
) ([]*domain.StockMovement, error) {
	query := `
        select id, title_id, warehouse_id, movement_type, quantity, unit_cost, reference, occurred_at_utc
        from inventory_stock_movements
        where title_id = $1 and warehouse_id = $2
        order by occurred_at_utc asc, id asc
    `
	rows, err := r.db.QueryContext(ctx, query, titleID, warehouseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*domain.StockMovement{}
	for rows.Next() {
		var m domain.StockMovement
		var mtype string
		if err := rows.Scan(
			&m.ID,
			&m.TitleID,
			&m.WarehouseID,
			&mtype,
			&m.Quantity,
			&m.UnitCost,
			&m.Reference,
			&m.OccurredAtUtc,
		); err != nil {
			return nil, err
		}
		m.Type = domain.MovementType(mtype)
		result = append(result, &m)
	}
	return result, rows.Err()
}
