package medication

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Medication, error)
	GetByPZN(ctx context.Context, pzn string) (*Medication, error)
	Update(ctx context.Context, m *Medication) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Medication, int, error)
	ListPrescriptionRequired(ctx context.Context) ([]*Medication, error)
}
