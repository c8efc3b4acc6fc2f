package order

import (
	"time"

	"github.com/google/uuid"
)

// Status is the order lifecycle state. The wire values are fixed; in
// particular "available for pickup" is spelled with spaces.
type Status string

const (
	StatusPending            Status = "pending"
	StatusAvailableForPickup Status = "available for pickup"
	StatusCompleted          Status = "completed"
	StatusCancelled          Status = "cancelled"
)

// Valid reports whether s is a known lifecycle state.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAvailableForPickup, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Terminal states accept no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// transitions is the explicit lifecycle graph. Writing the same status again
// is a no-op handled by the service, not a transition.
var transitions = map[Status][]Status{
	StatusPending:            {StatusAvailableForPickup, StatusCancelled},
	StatusAvailableForPickup: {StatusCompleted, StatusCancelled},
	StatusCompleted:          {},
	StatusCancelled:          {},
}

// CanTransition reports whether the lifecycle allows moving from one status
// to another.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// LineItem is one over-the-counter medication position on an order. Name and
// unit price are snapshotted at order time so later catalog edits do not
// change what the patient agreed to pay.
type LineItem struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrderID        uuid.UUID `db:"order_id" json:"order_id"`
	MedicationID   uuid.UUID `db:"medication_id" json:"medication_id"`
	MedicationName string    `db:"medication_name" json:"medication_name"`
	Quantity       int       `db:"quantity" json:"quantity"`
	UnitPrice      float64   `db:"unit_price" json:"unit_price"`
}

// Order is a pickup order. AccessToken is the QR payload presented at the
// vending machine; PickupCode is the short manual fallback shown in the
// pickup-ready email.
type Order struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	UserID      uuid.UUID  `db:"user_id" json:"user_id"`
	UserEmail   string     `db:"user_email" json:"user_email"`
	LocationID  *uuid.UUID `db:"location_id" json:"location_id,omitempty"`
	Status      Status     `db:"status" json:"status"`
	AccessToken string     `db:"access_token" json:"access_token"`
	PickupCode  string     `db:"pickup_code" json:"pickup_code"`
	TotalAmount float64    `db:"total_amount" json:"total_amount"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at" json:"updated_at"`

	Items []*LineItem `db:"-" json:"items"`
}
