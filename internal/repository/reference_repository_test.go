package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReferenceRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestReferenceRepositoryGetBuilding(t *testing.T) {
	db, mock, cleanup := newReferenceRepoMock(t)
	defer cleanup()
	repo := NewReferenceRepository(db)

	rows := sqlmock.NewRows([]string{"id", "code", "name", "active"}).
		AddRow("bldg-sci", "SCI", "Science Center", true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, code, name, active FROM buildings WHERE id = $1")).
		WithArgs("bldg-sci").
		WillReturnRows(rows)

	building, err := repo.GetBuilding(context.Background(), "bldg-sci")
	require.NoError(t, err)
	assert.Equal(t, "SCI", building.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepositoryGetBuildingMissSurfacesNoRows(t *testing.T) {
	db, mock, cleanup := newReferenceRepoMock(t)
	defer cleanup()
	repo := NewReferenceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM buildings WHERE id = $1")).
		WithArgs("bldg-missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetBuilding(context.Background(), "bldg-missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepositoryGetRoomByFacility(t *testing.T) {
	db, mock, cleanup := newReferenceRepoMock(t)
	defer cleanup()
	repo := NewReferenceRepository(db)

	rows := sqlmock.NewRows([]string{"id", "facility_id", "building_id", "room_number", "max_population", "uncertainty_amount", "ventilation_category_id", "active"}).
		AddRow("room-r101", "SCI-R101", "bldg-sci", "R101", 30, 2, "classroom", true)
	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE facility_id = $1")).
		WithArgs("SCI-R101").
		WillReturnRows(rows)

	room, err := repo.GetRoom(context.Background(), "SCI-R101")
	require.NoError(t, err)
	assert.Equal(t, 30, room.MaxPopulation)
	assert.Equal(t, 2, room.UncertaintyAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepositoryListRoomsIncludesInactive(t *testing.T) {
	db, mock, cleanup := newReferenceRepoMock(t)
	defer cleanup()
	repo := NewReferenceRepository(db)

	rows := sqlmock.NewRows([]string{"id", "facility_id", "building_id", "room_number", "max_population", "uncertainty_amount", "ventilation_category_id", "active"}).
		AddRow("room-r101", "SCI-R101", "bldg-sci", "R101", 30, 2, "classroom", true).
		AddRow("room-r102", "SCI-R102", "bldg-sci", "R102", 24, 1, "classroom", false)
	mock.ExpectQuery(regexp.QuoteMeta("FROM rooms WHERE building_id = $1 ORDER BY facility_id")).
		WithArgs("bldg-sci").
		WillReturnRows(rows)

	rooms, err := repo.ListRoomsForBuilding(context.Background(), "bldg-sci")
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.True(t, rooms[0].Active)
	assert.False(t, rooms[1].Active)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepositoryListActiveZoneShares(t *testing.T) {
	db, mock, cleanup := newReferenceRepoMock(t)
	defer cleanup()
	repo := NewReferenceRepository(db)

	rows := sqlmock.NewRows([]string{"room_id", "zone_id", "share_percentage", "max_population_share"}).
		AddRow("room-r101", "zone-a", 0.6, 15.0).
		AddRow("room-r101", "zone-b", 0.4, 12.0)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE r.building_id = $1 AND r.active = TRUE AND z.active = TRUE")).
		WithArgs("bldg-sci").
		WillReturnRows(rows)

	shares, err := repo.ListActiveZoneSharesForBuilding(context.Background(), "bldg-sci")
	require.NoError(t, err)
	require.Len(t, shares, 2)
	assert.InDelta(t, 0.6, shares[0].SharePercentage, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepositoryGetOutdoorAirRate(t *testing.T) {
	db, mock, cleanup := newReferenceRepoMock(t)
	defer cleanup()
	repo := NewReferenceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT people_outdoor_air_rate FROM ventilation_rates WHERE category_id = $1")).
		WithArgs("classroom").
		WillReturnRows(sqlmock.NewRows([]string{"people_outdoor_air_rate"}).AddRow(5.0))

	rate, err := repo.GetOutdoorAirRate(context.Background(), "classroom")
	require.NoError(t, err)
	assert.InDelta(t, 5, rate, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReferenceRepositoryListVentilationRates(t *testing.T) {
	db, mock, cleanup := newReferenceRepoMock(t)
	defer cleanup()
	repo := NewReferenceRepository(db)

	rows := sqlmock.NewRows([]string{"category_id", "description", "people_outdoor_air_rate"}).
		AddRow("classroom", "Classrooms (age 9 plus)", 5.0).
		AddRow("lecture", "Lecture halls, fixed seating", 3.8)
	mock.ExpectQuery(regexp.QuoteMeta("FROM ventilation_rates ORDER BY category_id")).
		WillReturnRows(rows)

	rates, err := repo.ListVentilationRates(context.Background())
	require.NoError(t, err)
	assert.Len(t, rates, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}
