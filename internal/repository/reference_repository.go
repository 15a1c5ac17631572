package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/campus-dcv-api/internal/models"
)

// ReferenceRepository exposes read-only accessors over rooms, zones,
// buildings, room-zone distributions and the ventilation-rate lookup table.
// All of these are managed by the CRUD layer; the pipeline only reads.
type ReferenceRepository struct {
	db *sqlx.DB
}

// NewReferenceRepository constructs repository.
func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

// GetBuilding loads a building by its identifier.
func (r *ReferenceRepository) GetBuilding(ctx context.Context, id string) (*models.Building, error) {
	const query = `SELECT id, code, name, active FROM buildings WHERE id = $1`
	var building models.Building
	if err := r.db.GetContext(ctx, &building, query, id); err != nil {
		return nil, err
	}
	return &building, nil
}

// GetRoom loads a room by its facility composite key.
func (r *ReferenceRepository) GetRoom(ctx context.Context, facilityID string) (*models.Room, error) {
	const query = `SELECT id, facility_id, building_id, room_number, max_population, uncertainty_amount,
	ventilation_category_id, active
FROM rooms WHERE facility_id = $1`
	var room models.Room
	if err := r.db.GetContext(ctx, &room, query, facilityID); err != nil {
		return nil, err
	}
	return &room, nil
}

// ListRoomsForBuilding returns every room in the building, retired ones
// included. Occurrences can reference a room deactivated after expansion, so
// the sweep checks the active flag itself.
func (r *ReferenceRepository) ListRoomsForBuilding(ctx context.Context, buildingID string) ([]models.Room, error) {
	const query = `SELECT id, facility_id, building_id, room_number, max_population, uncertainty_amount,
	ventilation_category_id, active
FROM rooms WHERE building_id = $1 ORDER BY facility_id`
	var rooms []models.Room
	if err := r.db.SelectContext(ctx, &rooms, query, buildingID); err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	return rooms, nil
}

// ListActiveZonesForBuilding returns every active zone in the building.
func (r *ReferenceRepository) ListActiveZonesForBuilding(ctx context.Context, buildingID string) ([]models.Zone, error) {
	const query = `SELECT id, code, name, building_id, active, automatic_mode
FROM zones WHERE building_id = $1 AND active = TRUE ORDER BY code`
	var zones []models.Zone
	if err := r.db.SelectContext(ctx, &zones, query, buildingID); err != nil {
		return nil, fmt.Errorf("list active zones: %w", err)
	}
	return zones, nil
}

// ListActiveZoneSharesForBuilding returns the room-zone distributions whose
// room and zone are both active within the building.
func (r *ReferenceRepository) ListActiveZoneSharesForBuilding(ctx context.Context, buildingID string) ([]models.RoomZoneShare, error) {
	const query = `SELECT s.room_id, s.zone_id, s.share_percentage, s.max_population_share
FROM room_zone_shares s
JOIN rooms r ON r.id = s.room_id
JOIN zones z ON z.id = s.zone_id
WHERE r.building_id = $1 AND r.active = TRUE AND z.active = TRUE
ORDER BY s.zone_id, s.room_id`
	var shares []models.RoomZoneShare
	if err := r.db.SelectContext(ctx, &shares, query, buildingID); err != nil {
		return nil, fmt.Errorf("list zone shares: %w", err)
	}
	return shares, nil
}

// GetOutdoorAirRate resolves the people-based outdoor-air rate for a room's
// ventilation category.
func (r *ReferenceRepository) GetOutdoorAirRate(ctx context.Context, categoryID string) (float64, error) {
	const query = `SELECT people_outdoor_air_rate FROM ventilation_rates WHERE category_id = $1`
	var rate float64
	if err := r.db.GetContext(ctx, &rate, query, categoryID); err != nil {
		return 0, err
	}
	return rate, nil
}

// ListVentilationRates returns the full static rate table, preloaded once per
// run by the pipeline driver.
func (r *ReferenceRepository) ListVentilationRates(ctx context.Context) ([]models.VentilationRate, error) {
	const query = `SELECT category_id, description, people_outdoor_air_rate FROM ventilation_rates ORDER BY category_id`
	var rates []models.VentilationRate
	if err := r.db.SelectContext(ctx, &rates, query); err != nil {
		return nil, fmt.Errorf("list ventilation rates: %w", err)
	}
	return rates, nil
}
