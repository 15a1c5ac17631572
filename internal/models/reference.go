package models

// Building groups rooms and zones under one BAS controller network.
type Building struct {
	ID     string `db:"id" json:"id"`
	Code   string `db:"code" json:"code"`
	Name   string `db:"name" json:"name"`
	Active bool   `db:"active" json:"active"`
}

// Room is a schedulable space. Only active rooms participate in
// synchronization; uncertainty_amount is an additive occupancy buffer applied
// on top of scheduled enrollment.
type Room struct {
	ID                    string `db:"id" json:"id"`
	FacilityID            string `db:"facility_id" json:"facility_id"`
	BuildingID            string `db:"building_id" json:"building_id"`
	RoomNumber            string `db:"room_number" json:"room_number"`
	MaxPopulation         int    `db:"max_population" json:"max_population"`
	UncertaintyAmount     int    `db:"uncertainty_amount" json:"uncertainty_amount"`
	VentilationCategoryID string `db:"ventilation_category_id" json:"ventilation_category_id"`
	Active                bool   `db:"active" json:"active"`
}

// Zone is an air-handling zone receiving outdoor-air setpoints. Zones with
// automatic_mode disabled are not under DCV control and never receive
// commands.
type Zone struct {
	ID            string `db:"id" json:"id"`
	Code          string `db:"code" json:"code"`
	Name          string `db:"name" json:"name"`
	BuildingID    string `db:"building_id" json:"building_id"`
	Active        bool   `db:"active" json:"active"`
	AutomaticMode bool   `db:"automatic_mode" json:"automatic_mode"`
}

// RoomZoneShare distributes a fraction of a room's occupancy into a zone.
// share_percentage values for one room need not sum to 1 across zones; the
// distribution data may be partial and the aggregator must not assume
// completeness. max_population_share is the zone's allotted portion of the
// room's maximum capacity, in people-equivalents.
type RoomZoneShare struct {
	RoomID             string  `db:"room_id" json:"room_id"`
	ZoneID             string  `db:"zone_id" json:"zone_id"`
	SharePercentage    float64 `db:"share_percentage" json:"share_percentage"`
	MaxPopulationShare float64 `db:"max_population_share" json:"max_population_share"`
}

// VentilationRate is one row of the static ventilation-rate reference table:
// the people-based outdoor-air rate for a room category, in cfm per person.
type VentilationRate struct {
	CategoryID           string  `db:"category_id" json:"category_id"`
	Description          string  `db:"description" json:"description"`
	PeopleOutdoorAirRate float64 `db:"people_outdoor_air_rate" json:"people_outdoor_air_rate"`
}
