package location

import (
	"context"
	"crypto/subtle"
	"fmt"

	"github.com/google/uuid"
)

type Service struct {
	locations Repository
}

func NewService(locations Repository) *Service {
	return &Service{locations: locations}
}

func (s *Service) Create(ctx context.Context, l *Location) error {
	if l.Name == "" {
		return fmt.Errorf("name is required")
	}
	if l.Address == "" {
		return fmt.Errorf("address is required")
	}
	if err := normalizeType(l); err != nil {
		return err
	}
	return s.locations.Create(ctx, l)
}

// normalizeType defaults the type to vending_machine and keeps the
// is_pharmacy flag in lockstep with it.
func normalizeType(l *Location) error {
	switch l.LocationType {
	case "":
		l.LocationType = TypeVendingMachine
	case TypePharmacy, TypeVendingMachine:
	default:
		return fmt.Errorf("unknown location type %q", l.LocationType)
	}
	l.IsPharmacy = l.LocationType == TypePharmacy
	return nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Location, error) {
	return s.locations.GetByID(ctx, id)
}

func (s *Service) Update(ctx context.Context, l *Location) error {
	if err := normalizeType(l); err != nil {
		return err
	}
	return s.locations.Update(ctx, l)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.locations.Delete(ctx, id)
}

func (s *Service) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Location, int, error) {
	return s.locations.List(ctx, activeOnly, limit, offset)
}

func (s *Service) ListInventory(ctx context.Context, locationID uuid.UUID) ([]*InventoryItem, error) {
	if _, err := s.locations.GetByID(ctx, locationID); err != nil {
		return nil, err
	}
	return s.locations.ListInventory(ctx, locationID)
}

func (s *Service) SetInventory(ctx context.Context, item *InventoryItem) error {
	if item.Quantity < 0 {
		return fmt.Errorf("quantity must not be negative")
	}
	return s.locations.UpsertInventory(ctx, item)
}

// VerifyMachineKey compares a presented machine token against the location's
// validation key in constant time. A location with no key configured accepts
// no machine.
func (s *Service) VerifyMachineKey(ctx context.Context, locationID uuid.UUID, token string) (bool, error) {
	l, err := s.locations.GetByID(ctx, locationID)
	if err != nil {
		return false, err
	}
	if l.ValidationKey == nil || *l.ValidationKey == "" || token == "" {
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(*l.ValidationKey), []byte(token)) == 1, nil
}
