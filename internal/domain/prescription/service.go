package prescription

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/metimat/metimat/internal/domain/medication"
	"github.com/metimat/metimat/internal/platform/auth"
	"github.com/metimat/metimat/internal/platform/fhir"
)

// ErrForbidden marks access to a prescription the caller does not own.
var ErrForbidden = errors.New("Not enough permissions")

// egkSamples are the medications returned when reading prescriptions from a
// mocked health card. In production these would come from the Telematics
// Infrastructure.
var egkSamples = []struct{ name, pzn string }{
	{"Ibuprofen 600 mg Filmtabletten", "02013219"},
	{"Amoxicillin 1000 mg Tabletten", "00652112"},
}

const scanSampleName = "Sumatriptan 50 mg Tabletten"
const scanSamplePZN = "04562798"

type Service struct {
	prescriptions Repository
	medications   medication.Repository
}

func NewService(prescriptions Repository, medications medication.Repository) *Service {
	return &Service{prescriptions: prescriptions, medications: medications}
}

// extract denormalizes the bundle's MedicationRequest into the prescription
// row, matching the PZN against the catalog when it is known there.
func (s *Service) extract(ctx context.Context, p *Prescription) {
	p.MedicationName = p.FHIRData.MedicationName()
	p.PZN = p.FHIRData.PZN()
	if s.medications == nil || p.PZN == "" {
		return
	}
	if m, err := s.medications.GetByPZN(ctx, p.PZN); err == nil && m != nil {
		p.MedicationID = &m.ID
	}
}

// ImportFromEGK stores mock prescriptions as if read from the caller's health
// card and returns them.
func (s *Service) ImportFromEGK(ctx context.Context, user auth.Identity) ([]*Prescription, error) {
	patientName := user.Email
	var out []*Prescription
	for _, sample := range egkSamples {
		p := &Prescription{
			UserID:   user.UserID,
			Source:   SourceEGK,
			FHIRData: fhir.MockPrescriptionBundle(patientName, sample.name, sample.pzn),
		}
		s.extract(ctx, p)
		if err := s.prescriptions.Create(ctx, p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ImportFromScan validates scanned QR content and, when structurally valid,
// stores a mock prescription bundle for it.
func (s *Service) ImportFromScan(ctx context.Context, user auth.Identity, qrContent string) (*Prescription, fhir.ScanResult, error) {
	result := fhir.ValidateQRData(qrContent)
	if !result.Valid {
		return nil, result, nil
	}
	p := &Prescription{
		UserID:   user.UserID,
		Source:   SourceScan,
		FHIRData: fhir.MockPrescriptionBundle(user.Email, scanSampleName, scanSamplePZN),
	}
	s.extract(ctx, p)
	if err := s.prescriptions.Create(ctx, p); err != nil {
		return nil, result, err
	}
	return p, result, nil
}

func (s *Service) List(ctx context.Context, user auth.Identity, limit, offset int) ([]*Prescription, int, error) {
	return s.prescriptions.ListByUser(ctx, user.UserID, limit, offset)
}

// Get returns a prescription if the caller owns it or is a superuser.
// Existence is revealed before ownership, matching the orders API.
func (s *Service) Get(ctx context.Context, user auth.Identity, id uuid.UUID) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != user.UserID && !user.IsSuperuser {
		return nil, ErrForbidden
	}
	return p, nil
}

// Delete removes an unlinked prescription owned by the caller. A prescription
// attached to an order cannot be deleted out from under it.
func (s *Service) Delete(ctx context.Context, user auth.Identity, id uuid.UUID) error {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p.UserID != user.UserID && !user.IsSuperuser {
		return ErrForbidden
	}
	if p.OrderID != nil {
		return ErrAlreadyLinked
	}
	return s.prescriptions.Delete(ctx, id)
}
