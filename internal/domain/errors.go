package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInsufficientAtp is returned by the repository when the conditional
// reserved-stock update finds less availability than requested at commit
// time. The service layer translates it into a ReservationResult.
var ErrInsufficientAtp = errors.New("insufficient atp at commit time")

// NotFoundError signals that a required entity does not exist. Distinct
// from zero availability, which is a valid outcome.
type NotFoundError struct {
	Entity string
	Key    string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.Key)
}

func NewInventoryRecordNotFound(titleID, warehouseID uuid.UUID) error {
	return &NotFoundError{
		Entity: "inventory record",
		Key:    fmt.Sprintf("title=%s warehouse=%s", titleID, warehouseID),
	}
}

func NewReservationNotFound(id uuid.UUID) error {
	return &NotFoundError{Entity: "reservation", Key: id.String()}
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
