package order

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrNotFound            = errors.New("Order not found")
	ErrForbidden           = errors.New("Not enough permissions")
	ErrLocationNotFound    = errors.New("location not found or inactive")
	ErrEmptyOrder          = errors.New("order must contain at least one medication or prescription")
	ErrMachineUnauthorized = errors.New("Machine authorization failed")
)

// PrescriptionRequiredError rejects over-the-counter line items for
// medications that may only be dispensed against a prescription. It names the
// offending medications so the client can tell the patient which ones.
type PrescriptionRequiredError struct {
	Medications []string
}

func (e *PrescriptionRequiredError) Error() string {
	return fmt.Sprintf("prescription required for: %s", strings.Join(e.Medications, ", "))
}

// MedicationNotFoundError reports requested medications that do not exist or
// are no longer active.
type MedicationNotFoundError struct {
	IDs []uuid.UUID
}

func (e *MedicationNotFoundError) Error() string {
	ids := make([]string, len(e.IDs))
	for i, id := range e.IDs {
		ids[i] = id.String()
	}
	return fmt.Sprintf("medication not found: %s", strings.Join(ids, ", "))
}

// InvalidTransitionError reports a status change the lifecycle does not allow.
type InvalidTransitionError struct {
	From, To Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %q to %q", e.From, e.To)
}
