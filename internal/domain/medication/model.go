package medication

import (
	"time"

	"github.com/google/uuid"
)

// Medication maps to the medications table (drug catalog reference data).
type Medication struct {
	ID                   uuid.UUID `db:"id" json:"id"`
	Name                 string    `db:"name" json:"name"`
	PZN                  string    `db:"pzn" json:"pzn"`
	Description          *string   `db:"description" json:"description,omitempty"`
	Dosage               *string   `db:"dosage" json:"dosage,omitempty"`
	DosageForm           *string   `db:"dosage_form" json:"dosage_form,omitempty"`
	Manufacturer         *string   `db:"manufacturer" json:"manufacturer,omitempty"`
	PackageSize          *string   `db:"package_size" json:"package_size,omitempty"`
	Price                float64   `db:"price" json:"price"`
	Category             string    `db:"category" json:"category"`
	PrescriptionRequired bool      `db:"prescription_required" json:"prescription_required"`
	IsActive             bool      `db:"is_active" json:"is_active"`
	CreatedAt            time.Time `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}
