package medication

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
)

type mockRepo struct {
	meds map[uuid.UUID]*Medication
}

func newMockRepo() *mockRepo {
	return &mockRepo{meds: make(map[uuid.UUID]*Medication)}
}

func (m *mockRepo) Create(_ context.Context, med *Medication) error {
	if med.ID == uuid.Nil {
		med.ID = uuid.New()
	}
	m.meds[med.ID] = med
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Medication, error) {
	med, ok := m.meds[id]
	if !ok {
		return nil, fmt.Errorf("no rows in result set")
	}
	return med, nil
}

func (m *mockRepo) GetByIDs(_ context.Context, ids []uuid.UUID) ([]*Medication, error) {
	var out []*Medication
	for _, id := range ids {
		if med, ok := m.meds[id]; ok {
			out = append(out, med)
		}
	}
	return out, nil
}

func (m *mockRepo) GetByPZN(_ context.Context, pzn string) (*Medication, error) {
	for _, med := range m.meds {
		if med.PZN == pzn {
			return med, nil
		}
	}
	return nil, fmt.Errorf("no rows in result set")
}

func (m *mockRepo) Update(_ context.Context, med *Medication) error {
	if _, ok := m.meds[med.ID]; !ok {
		return fmt.Errorf("no rows in result set")
	}
	m.meds[med.ID] = med
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.meds, id)
	return nil
}

func (m *mockRepo) Search(_ context.Context, params map[string]string, limit, offset int) ([]*Medication, int, error) {
	var out []*Medication
	for _, med := range m.meds {
		if name, ok := params["name"]; ok && !strings.Contains(strings.ToLower(med.Name), strings.ToLower(name)) {
			continue
		}
		if cat, ok := params["category"]; ok && cat != "all" && med.Category != cat {
			continue
		}
		if _, ok := params["include_inactive"]; !ok && !med.IsActive {
			continue
		}
		out = append(out, med)
	}
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *mockRepo) ListPrescriptionRequired(_ context.Context) ([]*Medication, error) {
	var out []*Medication
	for _, med := range m.meds {
		if med.PrescriptionRequired && med.IsActive {
			out = append(out, med)
		}
	}
	return out, nil
}

func TestServiceCreateValidation(t *testing.T) {
	svc := NewService(newMockRepo())
	ctx := context.Background()

	cases := []struct {
		name string
		med  Medication
	}{
		{"missing name", Medication{PZN: "12345678", Price: 4.99}},
		{"missing pzn", Medication{Name: "Ibuprofen 400", Price: 4.99}},
		{"negative price", Medication{Name: "Ibuprofen 400", PZN: "12345678", Price: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			med := tc.med
			if err := svc.Create(ctx, &med); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}

func TestServiceCreateDefaultsCategory(t *testing.T) {
	svc := NewService(newMockRepo())
	med := &Medication{Name: "Ibuprofen 400", PZN: "12345678", Price: 4.99, IsActive: true}
	if err := svc.Create(context.Background(), med); err != nil {
		t.Fatalf("create: %v", err)
	}
	if med.Category != "all" {
		t.Fatalf("category = %q, want %q", med.Category, "all")
	}
	if med.ID == uuid.Nil {
		t.Fatal("expected generated id")
	}
}

func TestServiceSearchFiltersInactive(t *testing.T) {
	repo := newMockRepo()
	svc := NewService(repo)
	ctx := context.Background()

	active := &Medication{Name: "Aspirin", PZN: "11111111", Price: 2.49, IsActive: true}
	inactive := &Medication{Name: "Aspirin forte", PZN: "22222222", Price: 3.49, IsActive: false}
	repo.Create(ctx, active)
	repo.Create(ctx, inactive)

	items, total, err := svc.Search(ctx, map[string]string{"name": "aspirin"}, 20, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || len(items) != 1 {
		t.Fatalf("got %d items (total %d), want 1", len(items), total)
	}
	if items[0].ID != active.ID {
		t.Fatal("expected only the active medication")
	}
}
