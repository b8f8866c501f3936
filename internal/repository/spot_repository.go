package repository

import (
	"context"
	"database/sql"

	"github.com/parksmart/parksmart-api/internal/model"
)

// SpotRepo provides data access to the parking_spots table.
type SpotRepo struct{ DB *sql.DB }

// NewSpotRepo returns a new SpotRepo bound to the given database.
func NewSpotRepo(db *sql.DB) *SpotRepo { return &SpotRepo{DB: db} }

const spotColumns = `id, spot_number, location_name, address, price_per_hour, is_available, created_at, updated_at`

func scanSpot(scan func(dest ...interface{}) error) (model.ParkingSpot, error) {
	var s model.ParkingSpot
	err := scan(&s.ID, &s.SpotNumber, &s.LocationName, &s.Address,
		&s.PricePerHour, &s.IsAvailable, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// Create inserts a parking spot and populates its generated ID.
func (r *SpotRepo) Create(ctx context.Context, s *model.ParkingSpot) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO parking_spots (spot_number, location_name, address, price_per_hour, is_available)
         VALUES (?, ?, ?, ?, ?)`,
		s.SpotNumber, s.LocationName, s.Address, s.PricePerHour, s.IsAvailable)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// GetByID fetches a parking spot by id.
func (r *SpotRepo) GetByID(ctx context.Context, id uint64) (model.ParkingSpot, error) {
	row := r.DB.QueryRowContext(ctx,
		`SELECT `+spotColumns+` FROM parking_spots WHERE id = ? LIMIT 1`, id)
	return scanSpot(row.Scan)
}

// List returns all parking spots ordered by spot number.
func (r *SpotRepo) List(ctx context.Context) ([]model.ParkingSpot, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+spotColumns+` FROM parking_spots ORDER BY spot_number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.ParkingSpot, 0)
	for rows.Next() {
		s, err := scanSpot(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
