package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-dcv-api/internal/models"
)

func classroomCache() (*RunCache, models.Room) {
	room := models.Room{
		ID:                    "room-r101",
		FacilityID:            "SCI-R101",
		BuildingID:            "bldg-sci",
		MaxPopulation:         30,
		UncertaintyAmount:     2,
		VentilationCategoryID: "classroom",
		Active:                true,
	}
	zones := []models.Zone{
		{ID: "zone-a", Code: "ZA", BuildingID: "bldg-sci", Active: true, AutomaticMode: true},
		{ID: "zone-b", Code: "ZB", BuildingID: "bldg-sci", Active: true, AutomaticMode: true},
	}
	shares := []models.RoomZoneShare{
		{RoomID: room.ID, ZoneID: "zone-a", SharePercentage: 0.6, MaxPopulationShare: 15},
		{RoomID: room.ID, ZoneID: "zone-b", SharePercentage: 0.4, MaxPopulationShare: 12},
	}
	rates := []models.VentilationRate{
		{CategoryID: "classroom", PeopleOutdoorAirRate: 5},
	}
	return NewRunCache([]models.Room{room}, zones, shares, rates), room
}

func TestComputeZoneDemandsVentilationRateProcedure(t *testing.T) {
	cache, room := classroomCache()
	svc := NewDemandService(nil)

	occ := models.Occurrence{FacilityID: room.FacilityID, EnrollmentTotal: 20}
	demands := svc.ComputeZoneDemands(occ, room, cache)
	require.Len(t, demands, 2)

	byZone := map[string]models.ZoneDemand{}
	for _, d := range demands {
		byZone[d.ZoneCode] = d
	}

	// Zone A: dynamic = (20+2)*0.6*5 = 66, max = 15*5 = 75 -> setpoint 66.
	assert.InDelta(t, 66, byZone["ZA"].Dynamic, 1e-9)
	assert.InDelta(t, 75, byZone["ZA"].Max, 1e-9)
	assert.InDelta(t, 66, byZone["ZA"].Setpoint, 1e-9)

	// Zone B: dynamic = (20+2)*0.4*5 = 44, max = 12*5 = 60 -> setpoint 44.
	assert.InDelta(t, 44, byZone["ZB"].Dynamic, 1e-9)
	assert.InDelta(t, 44, byZone["ZB"].Setpoint, 1e-9)
}

func TestComputeZoneDemandsCapsAtZoneMax(t *testing.T) {
	cache, room := classroomCache()
	svc := NewDemandService(nil)

	// Enrollment 40: dynamic = (40+2)*0.6*5 = 126 but capped at 75.
	occ := models.Occurrence{FacilityID: room.FacilityID, EnrollmentTotal: 40}
	demands := svc.ComputeZoneDemands(occ, room, cache)
	require.NotEmpty(t, demands)

	for _, d := range demands {
		assert.LessOrEqual(t, d.Setpoint, d.Max)
		if d.ZoneCode == "ZA" {
			assert.InDelta(t, 75, d.Setpoint, 1e-9)
		}
	}
}

func TestComputeZoneDemandsMonotonicInEnrollment(t *testing.T) {
	cache, room := classroomCache()
	svc := NewDemandService(nil)

	previous := -1.0
	for enrollment := 0; enrollment <= 60; enrollment += 5 {
		occ := models.Occurrence{FacilityID: room.FacilityID, EnrollmentTotal: enrollment}
		demands := svc.ComputeZoneDemands(occ, room, cache)
		require.NotEmpty(t, demands)
		for _, d := range demands {
			if d.ZoneCode != "ZA" {
				continue
			}
			assert.GreaterOrEqual(t, d.Dynamic, previous)
			assert.LessOrEqual(t, d.Setpoint, d.Max)
			previous = d.Dynamic
		}
	}
}

func TestComputeZoneDemandsSumsAcrossContributingRooms(t *testing.T) {
	roomA := models.Room{ID: "room-a", FacilityID: "SCI-101", UncertaintyAmount: 2, VentilationCategoryID: "classroom", Active: true}
	roomB := models.Room{ID: "room-b", FacilityID: "SCI-102", UncertaintyAmount: 1, VentilationCategoryID: "classroom", Active: true}
	zone := models.Zone{ID: "zone-shared", Code: "ZS", Active: true, AutomaticMode: true}
	shares := []models.RoomZoneShare{
		{RoomID: "room-a", ZoneID: "zone-shared", SharePercentage: 0.5, MaxPopulationShare: 10},
		{RoomID: "room-b", ZoneID: "zone-shared", SharePercentage: 0.5, MaxPopulationShare: 10},
	}
	rates := []models.VentilationRate{{CategoryID: "classroom", PeopleOutdoorAirRate: 4}}
	cache := NewRunCache([]models.Room{roomA, roomB}, []models.Zone{zone}, shares, rates)

	svc := NewDemandService(nil)
	occ := models.Occurrence{FacilityID: roomA.FacilityID, EnrollmentTotal: 10}
	demands := svc.ComputeZoneDemands(occ, roomA, cache)
	require.Len(t, demands, 1)

	// Both shares feed the zone: (10+2)*0.5*4 + (10+1)*0.5*4 = 24 + 22 = 46.
	assert.InDelta(t, 46, demands[0].Dynamic, 1e-9)
	// Max: 10*4 + 10*4 = 80.
	assert.InDelta(t, 80, demands[0].Max, 1e-9)
	assert.InDelta(t, 46, demands[0].Setpoint, 1e-9)
}

func TestComputeZoneDemandsSkipsInactiveAndManualZones(t *testing.T) {
	room := models.Room{ID: "room-1", FacilityID: "SCI-101", VentilationCategoryID: "classroom", Active: true}
	zones := []models.Zone{
		{ID: "zone-off", Code: "ZOFF", Active: false, AutomaticMode: true},
		{ID: "zone-manual", Code: "ZMAN", Active: true, AutomaticMode: false},
	}
	shares := []models.RoomZoneShare{
		{RoomID: "room-1", ZoneID: "zone-off", SharePercentage: 1, MaxPopulationShare: 10},
		{RoomID: "room-1", ZoneID: "zone-manual", SharePercentage: 1, MaxPopulationShare: 10},
	}
	rates := []models.VentilationRate{{CategoryID: "classroom", PeopleOutdoorAirRate: 5}}
	cache := NewRunCache([]models.Room{room}, zones, shares, rates)

	svc := NewDemandService(nil)
	demands := svc.ComputeZoneDemands(models.Occurrence{EnrollmentTotal: 20}, room, cache)
	assert.Empty(t, demands)
}

func TestComputeZoneDemandsEmptyShareSetYieldsNothing(t *testing.T) {
	room := models.Room{ID: "room-lonely", FacilityID: "SCI-199", VentilationCategoryID: "classroom", Active: true}
	cache := NewRunCache([]models.Room{room}, []models.Zone{{ID: "zone-x", Code: "ZX", Active: true, AutomaticMode: true}}, nil, nil)

	svc := NewDemandService(nil)
	demands := svc.ComputeZoneDemands(models.Occurrence{EnrollmentTotal: 50}, room, cache)
	assert.Empty(t, demands)
}

func TestComputeZoneDemandsMissingRateSkipsShare(t *testing.T) {
	room := models.Room{ID: "room-1", FacilityID: "SCI-101", VentilationCategoryID: "unknown-cat", Active: true}
	zone := models.Zone{ID: "zone-a", Code: "ZA", Active: true, AutomaticMode: true}
	shares := []models.RoomZoneShare{{RoomID: "room-1", ZoneID: "zone-a", SharePercentage: 0.5, MaxPopulationShare: 10}}
	cache := NewRunCache([]models.Room{room}, []models.Zone{zone}, shares, nil)

	svc := NewDemandService(nil)
	demands := svc.ComputeZoneDemands(models.Occurrence{EnrollmentTotal: 20}, room, cache)
	require.Len(t, demands, 1)
	assert.Zero(t, demands[0].Dynamic)
	assert.Zero(t, demands[0].Setpoint)
}
