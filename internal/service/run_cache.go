package service

import "github.com/noah-isme/campus-dcv-api/internal/models"

// RunCache is the reference snapshot for one pipeline invocation. The driver
// loads rooms, zones, shares and the ventilation-rate table once per run and
// passes the cache down; components never reach back into the store for
// reference data mid-run.
type RunCache struct {
	roomsByFacility map[string]models.Room
	roomsByID       map[string]models.Room
	zonesByID       map[string]models.Zone
	sharesByZone    map[string][]models.RoomZoneShare
	zoneIDsByRoom   map[string][]string
	ratesByCategory map[string]float64
}

// NewRunCache indexes the preloaded reference rows.
func NewRunCache(rooms []models.Room, zones []models.Zone, shares []models.RoomZoneShare, rates []models.VentilationRate) *RunCache {
	c := &RunCache{
		roomsByFacility: make(map[string]models.Room, len(rooms)),
		roomsByID:       make(map[string]models.Room, len(rooms)),
		zonesByID:       make(map[string]models.Zone, len(zones)),
		sharesByZone:    make(map[string][]models.RoomZoneShare),
		zoneIDsByRoom:   make(map[string][]string),
		ratesByCategory: make(map[string]float64, len(rates)),
	}
	for _, room := range rooms {
		c.roomsByFacility[room.FacilityID] = room
		c.roomsByID[room.ID] = room
	}
	for _, zone := range zones {
		c.zonesByID[zone.ID] = zone
	}
	for _, rate := range rates {
		c.ratesByCategory[rate.CategoryID] = rate.PeopleOutdoorAirRate
	}
	for _, share := range shares {
		c.sharesByZone[share.ZoneID] = append(c.sharesByZone[share.ZoneID], share)
		ids := c.zoneIDsByRoom[share.RoomID]
		seen := false
		for _, id := range ids {
			if id == share.ZoneID {
				seen = true
				break
			}
		}
		if !seen {
			c.zoneIDsByRoom[share.RoomID] = append(ids, share.ZoneID)
		}
	}
	return c
}

// RoomByFacility resolves a room by its building+room composite key.
func (c *RunCache) RoomByFacility(facilityID string) (models.Room, bool) {
	room, ok := c.roomsByFacility[facilityID]
	return room, ok
}

// RoomByID resolves a room by identifier.
func (c *RunCache) RoomByID(id string) (models.Room, bool) {
	room, ok := c.roomsByID[id]
	return room, ok
}

// ZoneByID resolves a zone by identifier.
func (c *RunCache) ZoneByID(id string) (models.Zone, bool) {
	zone, ok := c.zonesByID[id]
	return zone, ok
}

// SharesForZone returns every distribution feeding the zone, across all
// contributing rooms.
func (c *RunCache) SharesForZone(zoneID string) []models.RoomZoneShare {
	return c.sharesByZone[zoneID]
}

// ZoneIDsForRoom returns the zones a room distributes occupancy into.
func (c *RunCache) ZoneIDsForRoom(roomID string) []string {
	return c.zoneIDsByRoom[roomID]
}

// OutdoorAirRate resolves the people-based rate for a ventilation category.
func (c *RunCache) OutdoorAirRate(categoryID string) (float64, bool) {
	rate, ok := c.ratesByCategory[categoryID]
	return rate, ok
}
