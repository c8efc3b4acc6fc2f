package location

import (
	"time"

	"github.com/google/uuid"
)

// Location types.
const (
	TypePharmacy       = "pharmacy"
	TypeVendingMachine = "vending_machine"
)

// Location is a pickup site: a pharmacy counter or a vending machine.
// ValidationKey is the shared secret the machine presents in X-Machine-Token;
// it is never exposed through the JSON API.
type Location struct {
	ID            uuid.UUID `db:"id" json:"id"`
	Name          string    `db:"name" json:"name"`
	Address       string    `db:"address" json:"address"`
	City          string    `db:"city" json:"city"`
	PostalCode    string    `db:"postal_code" json:"postal_code"`
	Country       string    `db:"country" json:"country"`
	Latitude      *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude     *float64  `db:"longitude" json:"longitude,omitempty"`
	OpeningHours  *string   `db:"opening_hours" json:"opening_hours,omitempty"`
	LocationType  string    `db:"location_type" json:"location_type"`
	IsPharmacy    bool      `db:"is_pharmacy" json:"is_pharmacy"`
	ValidationKey *string   `db:"validation_key" json:"-"`
	IsActive      bool      `db:"is_active" json:"is_active"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`
}

// InventoryItem is the stock of one medication at one location.
type InventoryItem struct {
	ID           uuid.UUID `db:"id" json:"id"`
	LocationID   uuid.UUID `db:"location_id" json:"location_id"`
	MedicationID uuid.UUID `db:"medication_id" json:"medication_id"`
	Quantity     int       `db:"quantity" json:"quantity"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
