package domain

import (
	"time"

	"github.com/google/uuid"
)

type ReservationStatus string

const (
	ReservationActive    ReservationStatus = "ACTIVE"
	ReservationReleased  ReservationStatus = "RELEASED"
	ReservationExpired   ReservationStatus = "EXPIRED"
	ReservationFulfilled ReservationStatus = "FULFILLED"
)

type ReservationPriority string

const (
	PriorityLow    ReservationPriority = "LOW"
	PriorityNormal ReservationPriority = "NORMAL"
	PriorityHigh   ReservationPriority = "HIGH"
)

type CustomerTier string

const (
	TierBronze   CustomerTier = "BRONZE"
	TierSilver   CustomerTier = "SILVER"
	TierGold     CustomerTier = "GOLD"
	TierPlatinum CustomerTier = "PLATINUM"
)

// Priority maps a commercial tier onto a reservation priority.
func (t CustomerTier) Priority() ReservationPriority {
	switch t {
	case TierPlatinum, TierGold:
		return PriorityHigh
	case TierSilver:
		return PriorityNormal
	default:
		return PriorityLow
	}
}

// Reservation is a time-bounded hold of stock at one warehouse. Terminal
// statuses (RELEASED, EXPIRED, FULFILLED) are never reused.
type Reservation struct {
	ID            uuid.UUID
	TitleID       uuid.UUID
	WarehouseID   uuid.UUID
	Quantity      int
	OrderID       uuid.UUID
	CustomerID    uuid.UUID
	Priority      ReservationPriority
	Status        ReservationStatus
	ExpiresAtUtc  time.Time
	CreatedAtUtc  time.Time
	ReleasedAtUtc *time.Time
}

func NewReservation(
	titleID, warehouseID uuid.UUID,
	quantity int,
	orderID, customerID uuid.UUID,
	priority ReservationPriority,
	expiresAt time.Time,
) *Reservation {
	if priority == "" {
		priority = PriorityNormal
	}
	return &Reservation{
		ID:           uuid.New(),
		TitleID:      titleID,
		WarehouseID:  warehouseID,
		Quantity:     quantity,
		OrderID:      orderID,
		CustomerID:   customerID,
		Priority:     priority,
		Status:       ReservationActive,
		ExpiresAtUtc: expiresAt.UTC(),
		CreatedAtUtc: time.Now().UTC(),
	}
}

func (r *Reservation) IsActive() bool {
	return r.Status == ReservationActive
}

func (r *Reservation) IsExpired(now time.Time) bool {
	return r.Status == ReservationActive && now.After(r.ExpiresAtUtc)
}

func (r *Reservation) markTerminal(status ReservationStatus, now time.Time) {
	if r.Status != ReservationActive {
		return
	}
	t := now.UTC()
	r.Status = status
	r.ReleasedAtUtc = &t
}

func (r *Reservation) MarkReleased(now time.Time)  { r.markTerminal(ReservationReleased, now) }
func (r *Reservation) MarkExpired(now time.Time)   { r.markTerminal(ReservationExpired, now) }
func (r *Reservation) MarkFulfilled(now time.Time) { r.markTerminal(ReservationFulfilled, now) }
