package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
)

type PgInventoryRecordRepository struct {
	db *sql.DB
}

func NewPgInventoryRecordRepository(db *sql.DB) *PgInventoryRecordRepository {
	return &PgInventoryRecordRepository{db: db}
}

const inventoryColumns = `
    id, title_id, warehouse_id, warehouse_name,
    current_stock, reserved_stock, min_stock_level, reorder_point,
    incoming_stock, average_cost, updated_at_utc
`

func scanInventoryRecord(row interface{ Scan(...any) error }) (*domain.InventoryRecord, error) {
	var rec domain.InventoryRecord
	if err := row.Scan(
		&rec.ID,
		&rec.TitleID,
		&rec.WarehouseID,
		&rec.WarehouseName,
		&rec.CurrentStock,
		&rec.ReservedStock,
		&rec.MinStockLevel,
		&rec.ReorderPoint,
		&rec.IncomingStock,
		&rec.AverageCost,
		&rec.UpdatedAtUtc,
	); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (r *PgInventoryRecordRepository) Get(
	ctx context.Context,
	titleID, warehouseID uuid.UUID,
) (*domain.InventoryRecord, error) {
	query := `
        select ` + inventoryColumns + `
        from inventory_records
        where title_id = $1 and warehouse_id = $2
    `
	rec, err := scanInventoryRecord(r.db.QueryRowContext(ctx, query, titleID, warehouseID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return rec, err
}

func (r *PgInventoryRecordRepository) ListByTitle(
	ctx context.Context,
	titleID uuid.UUID,
) ([]*domain.InventoryRecord, error) {
	query := `
        select ` + inventoryColumns + `
        from inventory_records
        where title_id = $1
        order by warehouse_name asc
    `
	rows, err := r.db.QueryContext(ctx, query, titleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.InventoryRecord
	for rows.Next() {
		rec, err := scanInventoryRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func (r *PgInventoryRecordRepository) Upsert(
	ctx context.Context,
	rec *domain.InventoryRecord,
) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.UpdatedAtUtc.IsZero() {
		rec.UpdatedAtUtc = time.Now().UTC()
	}

	query := `
        insert into inventory_records
        (id, title_id, warehouse_id, warehouse_name,
         current_stock, reserved_stock, min_stock_level, reorder_point,
         incoming_stock, average_cost, updated_at_utc)
        values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        on conflict (title_id, warehouse_id) do update
        set warehouse_name = excluded.warehouse_name,
            current_stock = excluded.current_stock,
            min_stock_level = excluded.min_stock_level,
            reorder_point = excluded.reorder_point,
            incoming_stock = excluded.incoming_stock,
            average_cost = excluded.average_cost,
            updated_at_utc = excluded.updated_at_utc
    `
	_, err := r.db.ExecContext(
		ctx, query,
		rec.ID,
		rec.TitleID,
		rec.WarehouseID,
		rec.WarehouseName,
		rec.CurrentStock,
		rec.ReservedStock,
		rec.MinStockLevel,
		rec.ReorderPoint,
		rec.IncomingStock,
		rec.AverageCost,
		rec.UpdatedAtUtc,
	)
	return err
}

// AdjustReserved is the single write path for reservedStock. The guards run
// inside the UPDATE itself, so the availability check and the increment are
// one atomic statement; a stale snapshot can never over-reserve.
func (r *PgInventoryRecordRepository) AdjustReserved(
	ctx context.Context,
	titleID, warehouseID uuid.UUID,
	delta int,
) (*domain.InventoryRecord, error) {
	query := `
        update inventory_records
        set reserved_stock = reserved_stock + $3,
            updated_at_utc = $4
        where title_id = $1 and warehouse_id = $2
          and reserved_stock + $3 >= 0
          and ($3 <= 0
               or current_stock - (reserved_stock + $3) - min_stock_level + incoming_stock >= 0)
        returning ` + inventoryColumns + `
    `
	rec, err := scanInventoryRecord(r.db.QueryRowContext(
		ctx, query, titleID, warehouseID, delta, time.Now().UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return r.classifyGuardFailure(ctx, titleID, warehouseID)
	}
	return rec, err
}

// AdjustOnFulfill removes shipped units from both counters atomically.
func (r *PgInventoryRecordRepository) AdjustOnFulfill(
	ctx context.Context,
	titleID, warehouseID uuid.UUID,
	qty int,
) (*domain.InventoryRecord, error) {
	query := `
        update inventory_records
        set current_stock = current_stock - $3,
            reserved_stock = reserved_stock - $3,
            updated_at_utc = $4
        where title_id = $1 and warehouse_id = $2
          and reserved_stock >= $3
          and current_stock >= $3
        returning ` + inventoryColumns + `
    `
	rec, err := scanInventoryRecord(r.db.QueryRowContext(
		ctx, query, titleID, warehouseID, qty, time.Now().UTC()))
	if errors.Is(err, sql.ErrNoRows) {
		return r.classifyGuardFailure(ctx, titleID, warehouseID)
	}
	return rec, err
}

// ApplyReceipt folds the received units into the row with an increment, not
// an absolute write: the moving weighted-average recompute and the stock
// bump happen in the conflict clause against the current row, so a
// fulfillment committing concurrently keeps its decrement.
func (r *PgInventoryRecordRepository) ApplyReceipt(
	ctx context.Context,
	titleID, warehouseID uuid.UUID,
	warehouseName string,
	qty int,
	unitCost decimal.Decimal,
) (*domain.InventoryRecord, error) {
	query := `
        insert into inventory_records
        (id, title_id, warehouse_id, warehouse_name,
         current_stock, reserved_stock, min_stock_level, reorder_point,
         incoming_stock, average_cost, updated_at_utc)
        values ($1,$2,$3,$4,$5,0,0,0,0,$6,$7)
        on conflict (title_id, warehouse_id) do update
        set warehouse_name = excluded.warehouse_name,
            current_stock = inventory_records.current_stock + excluded.current_stock,
            average_cost = case
                when inventory_records.current_stock + excluded.current_stock > 0
                then round(
                    (inventory_records.average_cost * inventory_records.current_stock
                     + excluded.average_cost * excluded.current_stock)
                    / (inventory_records.current_stock + excluded.current_stock), 4)
                else inventory_records.average_cost
            end,
            updated_at_utc = excluded.updated_at_utc
        returning ` + inventoryColumns + `
    `
	return scanInventoryRecord(r.db.QueryRowContext(
		ctx, query,
		uuid.New(),
		titleID,
		warehouseID,
		warehouseName,
		qty,
		unitCost,
		time.Now().UTC(),
	))
}

// classifyGuardFailure distinguishes "no such record" from "guard refused
// the update": the former is (nil, nil), the latter ErrInsufficientAtp.
func (r *PgInventoryRecordRepository) classifyGuardFailure(
	ctx context.Context,
	titleID, warehouseID uuid.UUID,
) (*domain.InventoryRecord, error) {
	var exists bool
	check := `
        select exists(
            select 1 from inventory_records
            where title_id = $1 and warehouse_id = $2
        )
    `
	if err := r.db.QueryRowContext(ctx, check, titleID, warehouseID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, nil
	}
	return nil, domain.ErrInsufficientAtp
}
