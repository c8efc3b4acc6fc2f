package location

import (
	"context"

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

const locCols = `id, name, address, city, postal_code, country, latitude, longitude,
	opening_hours, location_type, is_pharmacy, validation_key, is_active,
	created_at, updated_at`

func scanLoc(row pgx.Row) (*Location, error) {
	var l Location
	err := row.Scan(&l.ID, &l.Name, &l.Address, &l.City, &l.PostalCode, &l.Country,
		&l.Latitude, &l.Longitude, &l.OpeningHours, &l.LocationType, &l.IsPharmacy,
		&l.ValidationKey, &l.IsActive, &l.CreatedAt, &l.UpdatedAt)
	return &l, err
}

func (r *repoPG) Create(ctx context.Context, l *Location) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO locations (id, name, address, city, postal_code, country,
			latitude, longitude, opening_hours, location_type, is_pharmacy,
			validation_key, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		l.ID, l.Name, l.Address, l.City, l.PostalCode, l.Country,
		l.Latitude, l.Longitude, l.OpeningHours, l.LocationType, l.IsPharmacy,
		l.ValidationKey, l.IsActive)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Location, error) {
	return scanLoc(r.conn(ctx).QueryRow(ctx,
		`SELECT `+locCols+` FROM locations WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, l *Location) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE locations SET name=$2, address=$3, city=$4, postal_code=$5, country=$6,
			latitude=$7, longitude=$8, opening_hours=$9, location_type=$10,
			is_pharmacy=$11, validation_key=$12, is_active=$13, updated_at=NOW()
		WHERE id = $1`,
		l.ID, l.Name, l.Address, l.City, l.PostalCode, l.Country,
		l.Latitude, l.Longitude, l.OpeningHours, l.LocationType, l.IsPharmacy,
		l.ValidationKey, l.IsActive)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM locations WHERE id = $1`, id)
	return err
}

func (r *repoPG) List(ctx context.Context, activeOnly bool, limit, offset int) ([]*Location, int, error) {
	where := ""
	if activeOnly {
		where = "WHERE is_active"
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM locations `+where).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+locCols+` FROM locations `+where+` ORDER BY name LIMIT $1 OFFSET $2`,
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Location
	for rows.Next() {
		l, err := scanLoc(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}

func (r *repoPG) ListInventory(ctx context.Context, locationID uuid.UUID) ([]*InventoryItem, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, location_id, medication_id, quantity, updated_at
		FROM inventory WHERE location_id = $1`, locationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*InventoryItem
	for rows.Next() {
		var it InventoryItem
		if err := rows.Scan(&it.ID, &it.LocationID, &it.MedicationID, &it.Quantity, &it.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

func (r *repoPG) UpsertInventory(ctx context.Context, item *InventoryItem) error {
	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO inventory (id, location_id, medication_id, quantity)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (location_id, medication_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = NOW()`,
		item.ID, item.LocationID, item.MedicationID, item.Quantity)
	return err
}
