package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pressroom-labs/catalog-allocation-go/internal/domain"
)

// ReserveCommand carries one reserve attempt against a single warehouse.
type ReserveCommand struct {
	TitleID     uuid.UUID
	WarehouseID uuid.UUID
	Quantity    int
	OrderID     uuid.UUID
	CustomerID  uuid.UUID
	Priority    domain.ReservationPriority
	// ExpiresAt overrides the configured default TTL when set.
	ExpiresAt *time.Time
}

// ReservationService owns the reservation lifecycle. Stock counters are
// only ever touched through the repository's conditional updates, so two
// racing callers can never both be told the same unit is free.
type ReservationService struct {
	records      domain.InventoryRecordRepository
	reservations domain.ReservationRepository
	movements    domain.StockMovementRepository
	outbox       OutboxWriter
	log          *zap.Logger
	now          func() time.Time
	defaultTtl   time.Duration
}

func NewReservationService(
	records domain.InventoryRecordRepository,
	reservations domain.ReservationRepository,
	movements domain.StockMovementRepository,
	outbox OutboxWriter,
	log *zap.Logger,
	defaultTtl time.Duration,
) *ReservationService {
	return &ReservationService{
		records:      records,
		reservations: reservations,
		movements:    movements,
		outbox:       outbox,
		log:          log,
		now:          time.Now,
		defaultTtl:   defaultTtl,
	}
}

// WithClock swaps the time source. Expiry logic in tests needs this.
func (s *ReservationService) WithClock(now func() time.Time) *ReservationService {
	s.now = now
	return s
}

// Reserve places a hold on one (title, warehouse) pair. Insufficient ATP is
// a structured failure result, not an error: over-booking attempts are
// routine client behavior during flash sales and stale UI reads.
func (s *ReservationService) Reserve(
	ctx context.Context,
	cmd ReserveCommand,
) (*domain.ReservationResult, error) {
	if cmd.Quantity <= 0 {
		return &domain.ReservationResult{
			Success: false,
			Message: "quantity must be positive",
		}, nil
	}

	rec, err := s.records.AdjustReserved(ctx, cmd.TitleID, cmd.WarehouseID, cmd.Quantity)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientAtp) {
			return s.insufficientAtpResult(ctx, cmd)
		}
		return nil, err
	}
	if rec == nil {
		return nil, domain.NewInventoryRecordNotFound(cmd.TitleID, cmd.WarehouseID)
	}

	expiresAt := s.now().Add(s.defaultTtl)
	if cmd.ExpiresAt != nil {
		expiresAt = *cmd.ExpiresAt
	}

	res := domain.NewReservation(
		cmd.TitleID,
		cmd.WarehouseID,
		cmd.Quantity,
		cmd.OrderID,
		cmd.CustomerID,
		cmd.Priority,
		expiresAt,
	)

	if err := s.reservations.Insert(ctx, res); err != nil {
		// Compensate the counter we already bumped; best effort.
		if _, cerr := s.records.AdjustReserved(ctx, cmd.TitleID, cmd.WarehouseID, -cmd.Quantity); cerr != nil {
			s.log.Error("failed to compensate reserved stock after insert failure",
				zap.String("titleId", cmd.TitleID.String()),
				zap.String("warehouseId", cmd.WarehouseID.String()),
				zap.Error(cerr))
		}
		return nil, err
	}

	if err := s.outbox.Enqueue(ctx, domain.NewInventoryReservedEvent(res)); err != nil {
		return nil, err
	}
	if err := s.outbox.Enqueue(ctx, domain.NewCatalogStockAdjustedEvent(rec, "RESERVED")); err != nil {
		return nil, err
	}

	s.log.Info("reservation created",
		zap.String("reservationId", res.ID.String()),
		zap.String("titleId", cmd.TitleID.String()),
		zap.String("warehouseId", cmd.WarehouseID.String()),
		zap.Int("quantity", cmd.Quantity))

	return &domain.ReservationResult{
		Success:      true,
		Message:      "reserved",
		Reservation:  res,
		RemainingAtp: rec.Atp(),
	}, nil
}

func (s *ReservationService) insufficientAtpResult(
	ctx context.Context,
	cmd ReserveCommand,
) (*domain.ReservationResult, error) {
	rec, err := s.records.Get(ctx, cmd.TitleID, cmd.WarehouseID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.NewInventoryRecordNotFound(cmd.TitleID, cmd.WarehouseID)
	}
	atp := rec.Atp()
	return &domain.ReservationResult{
		Success:      false,
		Message:      fmt.Sprintf("Insufficient ATP: requested %d, available %d", cmd.Quantity, atp),
		RemainingAtp: atp,
	}, nil
}

// Release returns a hold to the pool. Double release is rejected, not
// silently accepted: it surfaces caller bugs.
func (s *ReservationService) Release(
	ctx context.Context,
	reservationID uuid.UUID,
	reason string,
) (*domain.ReleaseResult, error) {
	return s.closeReservation(ctx, reservationID, reason, domain.ReservationReleased)
}

// ReleaseExpired is the sweeper's variant of Release: same stock effect, the
// reservation lands in EXPIRED instead of RELEASED. The caller's snapshot is
// only a hint; the transition is re-checked against the stored row.
func (s *ReservationService) ReleaseExpired(
	ctx context.Context,
	res *domain.Reservation,
) (*domain.ReleaseResult, error) {
	if res == nil {
		return &domain.ReleaseResult{
			Success: false,
			Message: "reservation not found or not active",
		}, nil
	}
	return s.closeReservation(ctx, res.ID, "expired", domain.ReservationExpired)
}

// closeReservation first wins the ACTIVE -> terminal transition in the
// ledger, then returns the units to the pool. Losing the transition means a
// concurrent release, expiry or fulfillment already owns the counters: the
// caller gets a failure result and stock is untouched, so a hold can never
// be released twice.
func (s *ReservationService) closeReservation(
	ctx context.Context,
	reservationID uuid.UUID,
	reason string,
	status domain.ReservationStatus,
) (*domain.ReleaseResult, error) {
	res, err := s.reservations.CloseIfActive(ctx, reservationID, status, s.now())
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &domain.ReleaseResult{
			Success: false,
			Message: "reservation not found or not active",
		}, nil
	}

	rec, err := s.records.AdjustReserved(ctx, res.TitleID, res.WarehouseID, -res.Quantity)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.NewInventoryRecordNotFound(res.TitleID, res.WarehouseID)
	}

	if err := s.outbox.Enqueue(ctx, domain.NewReservationClosedEvent(res, reason)); err != nil {
		return nil, err
	}
	if err := s.outbox.Enqueue(ctx, domain.NewCatalogStockAdjustedEvent(rec, "RELEASED")); err != nil {
		return nil, err
	}

	s.log.Info("reservation closed",
		zap.String("reservationId", res.ID.String()),
		zap.String("status", string(res.Status)),
		zap.String("reason", reason))

	return &domain.ReleaseResult{
		Success:          true,
		Message:          "released",
		ReleasedQuantity: res.Quantity,
	}, nil
}

// Extend moves the expiration forward. Stock counters are untouched.
func (s *ReservationService) Extend(
	ctx context.Context,
	reservationID uuid.UUID,
	newExpiresAt time.Time,
) (*domain.ExtendResult, error) {
	res, err := s.reservations.ExtendIfActive(ctx, reservationID, newExpiresAt.UTC())
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &domain.ExtendResult{
			Success: false,
			Message: "reservation not found or not active",
		}, nil
	}
	return &domain.ExtendResult{
		Success:     true,
		Message:     "extended",
		Reservation: res,
	}, nil
}

// Fulfill consumes a hold when the order ships: both currentStock and
// reservedStock drop by the reserved quantity, and an ISSUE movement is
// appended for the valuation ledger.
func (s *ReservationService) Fulfill(
	ctx context.Context,
	reservationID uuid.UUID,
) (*domain.FulfillResult, error) {
	// Win the terminal transition before touching counters; a concurrent
	// release or sweep that got there first makes this a state rejection.
	res, err := s.reservations.CloseIfActive(ctx, reservationID, domain.ReservationFulfilled, s.now())
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &domain.FulfillResult{
			Success: false,
			Message: "reservation not found or not active",
		}, nil
	}

	rec, err := s.records.AdjustOnFulfill(ctx, res.TitleID, res.WarehouseID, res.Quantity)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, domain.NewInventoryRecordNotFound(res.TitleID, res.WarehouseID)
	}

	mv := domain.NewStockMovement(
		res.TitleID,
		res.WarehouseID,
		domain.MovementIssue,
		res.Quantity,
		rec.AverageCost,
		res.OrderID.String(),
	)
	if err := s.movements.Insert(ctx, mv); err != nil {
		return nil, err
	}

	if err := s.outbox.Enqueue(ctx, domain.NewReservationClosedEvent(res, "fulfilled")); err != nil {
		return nil, err
	}
	if err := s.outbox.Enqueue(ctx, domain.NewCatalogStockAdjustedEvent(rec, "FULFILLED")); err != nil {
		return nil, err
	}

	return &domain.FulfillResult{
		Success:           true,
		Message:           "fulfilled",
		FulfilledQuantity: res.Quantity,
	}, nil
}

// ReleaseByOrder releases every active hold placed for an order. Missing
// orders are a no-op: order cancellations arrive at least once.
func (s *ReservationService) ReleaseByOrder(
	ctx context.Context,
	orderID uuid.UUID,
	reason string,
) (int, error) {
	active, err := s.reservations.ListActiveByOrderID(ctx, orderID)
	if err != nil {
		return 0, err
	}
	released := 0
	for _, res := range active {
		if _, err := s.closeReservation(ctx, res.ID, reason, domain.ReservationReleased); err != nil {
			return released, err
		}
		released++
	}
	return released, nil
}

// FulfillByOrder consumes every active hold placed for an order.
func (s *ReservationService) FulfillByOrder(
	ctx context.Context,
	orderID uuid.UUID,
) (int, error) {
	active, err := s.reservations.ListActiveByOrderID(ctx, orderID)
	if err != nil {
		return 0, err
	}
	fulfilled := 0
	for _, res := range active {
		if _, err := s.Fulfill(ctx, res.ID); err != nil {
			return fulfilled, err
		}
		fulfilled++
	}
	return fulfilled, nil
}

func (s *ReservationService) GetActiveReservations(
	ctx context.Context,
	titleID uuid.UUID,
) ([]*domain.Reservation, error) {
	return s.reservations.ListActiveByTitle(ctx, titleID)
}

// ClearReservations wipes the ledger without touching persisted stock
// counters. Administrative and test use only; callers reconcile separately.
func (s *ReservationService) ClearReservations(ctx context.Context) error {
	s.log.Warn("clearing all reservations; stock counters are not reconciled")
	return s.reservations.DeleteAll(ctx)
}
