// Package memory provides mutex-guarded in-memory implementations of the
// domain repositories. They honor the same conditional-update contract as
// the Postgres versions and back the test suite; the reservation store can
// also serve as the swappable ledger backend for single-process deployments.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
)

type pairKey struct {
	titleID     uuid.UUID
	warehouseID uuid.UUID
}

type InventoryRecordRepository struct {
	mu      sync.Mutex
	records map[pairKey]*domain.InventoryRecord
}

func NewInventoryRecordRepository() *InventoryRecordRepository {
	return &InventoryRecordRepository{
		records: make(map[pairKey]*domain.InventoryRecord),
	}
}

func copyRecord(rec *domain.InventoryRecord) *domain.InventoryRecord {
	c := *rec
	return &c
}

func (r *InventoryRecordRepository) Get(
	_ context.Context,
	titleID, warehouseID uuid.UUID,
) (*domain.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[pairKey{titleID, warehouseID}]
	if !ok {
		return nil, nil
	}
	return copyRecord(rec), nil
}

func (r *InventoryRecordRepository) ListByTitle(
	_ context.Context,
	titleID uuid.UUID,
) ([]*domain.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*domain.InventoryRecord
	for key, rec := range r.records {
		if key.titleID == titleID {
			result = append(result, copyRecord(rec))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].WarehouseName != result[j].WarehouseName {
			return result[i].WarehouseName < result[j].WarehouseName
		}
		return result[i].WarehouseID.String() < result[j].WarehouseID.String()
	})
	return result, nil
}

func (r *InventoryRecordRepository) Upsert(
	_ context.Context,
	rec *domain.InventoryRecord,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	// Preservation happens on the stored copy; the caller's record is
	// never mutated, matching the SQL upsert.
	stored := copyRecord(rec)
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	key := pairKey{stored.TitleID, stored.WarehouseID}
	if existing, ok := r.records[key]; ok {
		stored.ReservedStock = existing.ReservedStock
		stored.ID = existing.ID
	}
	r.records[key] = stored
	return nil
}

// AdjustReserved mirrors the SQL guard: check and increment happen under
// one lock acquisition.
func (r *InventoryRecordRepository) AdjustReserved(
	_ context.Context,
	titleID, warehouseID uuid.UUID,
	delta int,
) (*domain.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[pairKey{titleID, warehouseID}]
	if !ok {
		return nil, nil
	}
	newReserved := rec.ReservedStock + delta
	if newReserved < 0 {
		return nil, domain.ErrInsufficientAtp
	}
	if delta > 0 {
		if rec.CurrentStock-newReserved-rec.MinStockLevel+rec.IncomingStock < 0 {
			return nil, domain.ErrInsufficientAtp
		}
	}
	rec.ReservedStock = newReserved
	rec.UpdatedAtUtc = time.Now().UTC()
	return copyRecord(rec), nil
}

func (r *InventoryRecordRepository) AdjustOnFulfill(
	_ context.Context,
	titleID, warehouseID uuid.UUID,
	qty int,
) (*domain.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[pairKey{titleID, warehouseID}]
	if !ok {
		return nil, nil
	}
	if rec.ReservedStock < qty || rec.CurrentStock < qty {
		return nil, domain.ErrInsufficientAtp
	}
	rec.ReservedStock -= qty
	rec.CurrentStock -= qty
	rec.UpdatedAtUtc = time.Now().UTC()
	return copyRecord(rec), nil
}

// ApplyReceipt increments under the same lock that serializes the other
// counter writes, so a fulfillment between read and write cannot be undone.
func (r *InventoryRecordRepository) ApplyReceipt(
	_ context.Context,
	titleID, warehouseID uuid.UUID,
	warehouseName string,
	qty int,
	unitCost decimal.Decimal,
) (*domain.InventoryRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := pairKey{titleID, warehouseID}
	rec, ok := r.records[key]
	if !ok {
		rec = domain.NewInventoryRecord(titleID, warehouseID, warehouseName)
		r.records[key] = rec
	}
	rec.WarehouseName = warehouseName
	rec.ApplyReceipt(qty, unitCost)
	return copyRecord(rec), nil
}

type ReservationRepository struct {
	mu           sync.Mutex
	reservations map[uuid.UUID]*domain.Reservation
}

func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{
		reservations: make(map[uuid.UUID]*domain.Reservation),
	}
}

func copyReservation(res *domain.Reservation) *domain.Reservation {
	c := *res
	if res.ReleasedAtUtc != nil {
		t := *res.ReleasedAtUtc
		c.ReleasedAtUtc = &t
	}
	return &c
}

func (r *ReservationRepository) GetByID(
	_ context.Context,
	id uuid.UUID,
) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok {
		return nil, nil
	}
	return copyReservation(res), nil
}

func (r *ReservationRepository) list(
	match func(*domain.Reservation) bool,
) []*domain.Reservation {
	result := []*domain.Reservation{}
	for _, res := range r.reservations {
		if match(res) {
			result = append(result, copyReservation(res))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAtUtc.Equal(result[j].CreatedAtUtc) {
			return result[i].CreatedAtUtc.Before(result[j].CreatedAtUtc)
		}
		return result[i].ID.String() < result[j].ID.String()
	})
	return result
}

func (r *ReservationRepository) ListByTitle(
	_ context.Context,
	titleID uuid.UUID,
) ([]*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(res *domain.Reservation) bool {
		return res.TitleID == titleID
	}), nil
}

func (r *ReservationRepository) ListActiveByTitle(
	_ context.Context,
	titleID uuid.UUID,
) ([]*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(res *domain.Reservation) bool {
		return res.TitleID == titleID && res.IsActive()
	}), nil
}

func (r *ReservationRepository) ListActiveByOrderID(
	_ context.Context,
	orderID uuid.UUID,
) ([]*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(res *domain.Reservation) bool {
		return res.OrderID == orderID && res.IsActive()
	}), nil
}

func (r *ReservationRepository) ListActiveExpiredBefore(
	_ context.Context,
	cutoff time.Time,
) ([]*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.list(func(res *domain.Reservation) bool {
		return res.IsActive() && res.ExpiresAtUtc.Before(cutoff)
	}), nil
}

func (r *ReservationRepository) Insert(
	_ context.Context,
	res *domain.Reservation,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	r.reservations[res.ID] = copyReservation(res)
	return nil
}

// CloseIfActive is the compare-and-set behind every terminal transition:
// the status check and the flip happen under one lock acquisition.
func (r *ReservationRepository) CloseIfActive(
	_ context.Context,
	id uuid.UUID,
	status domain.ReservationStatus,
	closedAt time.Time,
) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok || !res.IsActive() {
		return nil, nil
	}
	t := closedAt.UTC()
	res.Status = status
	res.ReleasedAtUtc = &t
	return copyReservation(res), nil
}

func (r *ReservationRepository) ExtendIfActive(
	_ context.Context,
	id uuid.UUID,
	newExpiresAt time.Time,
) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[id]
	if !ok || !res.IsActive() {
		return nil, nil
	}
	res.ExpiresAtUtc = newExpiresAt.UTC()
	return copyReservation(res), nil
}

func (r *ReservationRepository) DeleteTerminalBefore(
	_ context.Context,
	cutoff time.Time,
) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	purged := 0
	for id, res := range r.reservations {
		if !res.IsActive() && res.CreatedAtUtc.Before(cutoff) {
			delete(r.reservations, id)
			purged++
		}
	}
	return purged, nil
}

func (r *ReservationRepository) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reservations = make(map[uuid.UUID]*domain.Reservation)
	return nil
}

type StockMovementRepository struct {
	mu        sync.Mutex
	movements []*domain.StockMovement
}

func NewStockMovementRepository() *StockMovementRepository {
	return &StockMovementRepository{}
}

func (r *StockMovementRepository) Insert(
	_ context.Context,
	m *domain.StockMovement,
) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	c := *m
	r.movements = append(r.movements, &c)
	return nil
}

func (r *StockMovementRepository) ListByTitleAndWarehouse(
	_ context.Context,
	titleID, warehouseID uuid.UUID,
) ([]*domain.StockMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	result := []*domain.StockMovement{}
	for _, m := range r.movements {
		if m.TitleID == titleID && m.WarehouseID == warehouseID {
			c := *m
			result = append(result, &c)
		}
	}
	return result, nil
}

type OutboxRepository struct {
	mu       sync.Mutex
	messages []domain.OutboxMessage
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{}
}

func (r *OutboxRepository) Insert(_ context.Context, msg domain.OutboxMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	if msg.OccurredAtUtc.IsZero() {
		msg.OccurredAtUtc = time.Now().UTC()
	}
	r.messages = append(r.messages, msg)
	return nil
}

func (r *OutboxRepository) GetPendingBatch(
	_ context.Context,
	maxRetry, batchSize int,
) ([]domain.OutboxMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var batch []domain.OutboxMessage
	for _, msg := range r.messages {
		if msg.ProcessedAtUtc == nil && msg.RetryCount < maxRetry {
			batch = append(batch, msg)
			if len(batch) == batchSize {
				break
			}
		}
	}
	return batch, nil
}

func (r *OutboxRepository) MarkProcessed(_ context.Context, id uuid.UUID, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			t := at.UTC()
			r.messages[i].ProcessedAtUtc = &t
			return nil
		}
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.messages {
		if r.messages[i].ID == id {
			r.messages[i].RetryCount++
			return nil
		}
	}
	return nil
}

// Messages exposes a snapshot for assertions.
func (r *OutboxRepository) Messages() []domain.OutboxMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.OutboxMessage, len(r.messages))
	copy(out, r.messages)
	return out
}
