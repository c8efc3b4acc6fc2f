package medication

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/metimat/metimat/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const medCols = `id, name, pzn, description, dosage, dosage_form, manufacturer,
	package_size, price, category, prescription_required, is_active,
	created_at, updated_at`

func scanMed(row pgx.Row) (*Medication, error) {
	var m Medication
	err := row.Scan(&m.ID, &m.Name, &m.PZN, &m.Description, &m.Dosage, &m.DosageForm,
		&m.Manufacturer, &m.PackageSize, &m.Price, &m.Category,
		&m.PrescriptionRequired, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return &m, err
}

func (r *repoPG) Create(ctx context.Context, m *Medication) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO medications (id, name, pzn, description, dosage, dosage_form,
			manufacturer, package_size, price, category, prescription_required, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		m.ID, m.Name, m.PZN, m.Description, m.Dosage, m.DosageForm,
		m.Manufacturer, m.PackageSize, m.Price, m.Category,
		m.PrescriptionRequired, m.IsActive)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return scanMed(r.conn(ctx).QueryRow(ctx,
		`SELECT `+medCols+` FROM medications WHERE id = $1`, id))
}

func (r *repoPG) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]*Medication, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+medCols+` FROM medications WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Medication
	for rows.Next() {
		m, err := scanMed(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (r *repoPG) GetByPZN(ctx context.Context, pzn string) (*Medication, error) {
	return scanMed(r.conn(ctx).QueryRow(ctx,
		`SELECT `+medCols+` FROM medications WHERE pzn = $1`, pzn))
}

func (r *repoPG) Update(ctx context.Context, m *Medication) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE medications SET name=$2, pzn=$3, description=$4, dosage=$5,
			dosage_form=$6, manufacturer=$7, package_size=$8, price=$9,
			category=$10, prescription_required=$11, is_active=$12, updated_at=NOW()
		WHERE id = $1`,
		m.ID, m.Name, m.PZN, m.Description, m.Dosage, m.DosageForm,
		m.Manufacturer, m.PackageSize, m.Price, m.Category,
		m.PrescriptionRequired, m.IsActive)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM medications WHERE id = $1`, id)
	return err
}

func (r *repoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Medication, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	n := 0

	if v, ok := params["name"]; ok {
		n++
		where += fmt.Sprintf(" AND name ILIKE $%d", n)
		args = append(args, "%"+v+"%")
	}
	if v, ok := params["category"]; ok && v != "all" {
		n++
		where += fmt.Sprintf(" AND category = $%d", n)
		args = append(args, v)
	}
	if v, ok := params["pzn"]; ok {
		n++
		where += fmt.Sprintf(" AND pzn = $%d", n)
		args = append(args, v)
	}
	if _, ok := params["include_inactive"]; !ok {
		where += " AND is_active"
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM medications `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM medications %s ORDER BY name LIMIT $%d OFFSET $%d`,
		medCols, where, n+1, n+2)
	rows, err := r.conn(ctx).Query(ctx, query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Medication
	for rows.Next() {
		m, err := scanMed(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, m)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListPrescriptionRequired(ctx context.Context) ([]*Medication, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+medCols+` FROM medications WHERE prescription_required AND is_active`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Medication
	for rows.Next() {
		m, err := scanMed(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}
