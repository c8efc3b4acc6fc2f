package prescription

import (
	"time"

	"github.com/google/uuid"
)

const (
	SourceEGK  = "egk"
	SourceScan = "scan"
)

// FHIRData is the stored e-prescription bundle. Helper methods operate on the
// MedicationRequest entry, which carries the prescription's lifecycle status.
type FHIRData map[string]interface{}

func (f FHIRData) medicationRequest() map[string]interface{} {
	entries, _ := f["entry"].([]interface{})
	for _, e := range entries {
		entry, _ := e.(map[string]interface{})
		res, _ := entry["resource"].(map[string]interface{})
		if res["resourceType"] == "MedicationRequest" {
			return res
		}
	}
	// Bundles built in-process carry typed entry slices.
	typed, _ := f["entry"].([]map[string]interface{})
	for _, entry := range typed {
		res, _ := entry["resource"].(map[string]interface{})
		if res["resourceType"] == "MedicationRequest" {
			return res
		}
	}
	return nil
}

// Status returns the MedicationRequest status, or "" when the bundle has none.
func (f FHIRData) Status() string {
	if req := f.medicationRequest(); req != nil {
		s, _ := req["status"].(string)
		return s
	}
	return ""
}

// Consumed reports whether this prescription has already been redeemed.
func (f FHIRData) Consumed() bool {
	return f.Status() == "completed"
}

// MarkConsumed sets the MedicationRequest status to completed. Consumption is
// permanent; a consumed prescription is never reset.
func (f FHIRData) MarkConsumed() {
	if req := f.medicationRequest(); req != nil {
		req["status"] = "completed"
	}
}

// MedicationName returns the prescribed medication's display name.
func (f FHIRData) MedicationName() string {
	if req := f.medicationRequest(); req != nil {
		s, _ := req["medication_name"].(string)
		return s
	}
	return ""
}

// PZN returns the prescribed medication's Pharmazentralnummer.
func (f FHIRData) PZN() string {
	if req := f.medicationRequest(); req != nil {
		s, _ := req["pzn"].(string)
		return s
	}
	return ""
}

// Prescription is an imported e-prescription owned by a patient. OrderID is
// set while the prescription is attached to an order; a consumed prescription
// keeps its completed status even if the order is later deleted.
// MedicationID, MedicationName and PZN are denormalized from the bundle's
// MedicationRequest at import time so listings never unpack fhir_data.
type Prescription struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	UserID         uuid.UUID  `db:"user_id" json:"user_id"`
	OrderID        *uuid.UUID `db:"order_id" json:"order_id,omitempty"`
	Source         string     `db:"source" json:"source"`
	MedicationID   *uuid.UUID `db:"medication_id" json:"medication_id,omitempty"`
	MedicationName string     `db:"medication_name" json:"medication_name"`
	PZN            string     `db:"pzn" json:"pzn"`
	FHIRData       FHIRData   `db:"fhir_data" json:"fhir_data"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}
