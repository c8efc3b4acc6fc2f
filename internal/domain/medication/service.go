package medication

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	medications Repository
}

func NewService(medications Repository) *Service {
	return &Service{medications: medications}
}

func (s *Service) Create(ctx context.Context, m *Medication) error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if m.PZN == "" {
		return fmt.Errorf("pzn is required")
	}
	if m.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	if m.Category == "" {
		m.Category = "all"
	}
	return s.medications.Create(ctx, m)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return s.medications.GetByID(ctx, id)
}

func (s *Service) GetByPZN(ctx context.Context, pzn string) (*Medication, error) {
	return s.medications.GetByPZN(ctx, pzn)
}

func (s *Service) Update(ctx context.Context, m *Medication) error {
	if m.Price < 0 {
		return fmt.Errorf("price must not be negative")
	}
	return s.medications.Update(ctx, m)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.medications.Delete(ctx, id)
}

func (s *Service) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Medication, int, error) {
	return s.medications.Search(ctx, params, limit, offset)
}
