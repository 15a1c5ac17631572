package service

import (
	"go.uber.org/zap"

	"github.com/noah-isme/campus-dcv-api/internal/models"
)

// DemandService turns one occurrence into per-zone outdoor-air demand using
// the ventilation-rate procedure.
type DemandService struct {
	logger *zap.Logger
}

// NewDemandService constructs DemandService.
func NewDemandService(logger *zap.Logger) *DemandService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DemandService{logger: logger}
}

// ComputeZoneDemands produces a demand per active, automatic zone receiving a
// share from the occurrence's room. A zone's demand sums over every share
// feeding it, not just the occurrence's room: the zone serves all of those
// rooms at once. The setpoint is capped at the zone's fixed maximum; dynamic
// occupancy never requests more outdoor air than the architecture permits.
// Zones with an empty share set yield nothing.
func (s *DemandService) ComputeZoneDemands(occ models.Occurrence, room models.Room, cache *RunCache) []models.ZoneDemand {
	log := s.logger.Sugar()

	var demands []models.ZoneDemand
	for _, zoneID := range cache.ZoneIDsForRoom(room.ID) {
		zone, ok := cache.ZoneByID(zoneID)
		if !ok {
			log.Warnw("zone share references unknown zone",
				"zone_id", zoneID, "room_id", room.ID, "facility_id", occ.FacilityID)
			continue
		}
		if !zone.Active {
			continue
		}
		if !zone.AutomaticMode {
			log.Debugw("zone not in automatic mode, skipping", "zone", zone.Code)
			continue
		}

		shares := cache.SharesForZone(zoneID)
		if len(shares) == 0 {
			continue
		}

		var dynamic, max float64
		for _, share := range shares {
			shareRoom, ok := cache.RoomByID(share.RoomID)
			if !ok {
				log.Warnw("zone share references unknown room",
					"zone", zone.Code, "room_id", share.RoomID)
				continue
			}
			rate, ok := cache.OutdoorAirRate(shareRoom.VentilationCategoryID)
			if !ok {
				log.Warnw("no ventilation rate for category",
					"zone", zone.Code, "room_id", shareRoom.ID,
					"category_id", shareRoom.VentilationCategoryID)
				continue
			}
			dynamic += (float64(occ.EnrollmentTotal) + float64(shareRoom.UncertaintyAmount)) * share.SharePercentage * rate
			max += share.MaxPopulationShare * rate
		}

		if dynamic < 0 {
			dynamic = 0
		}
		if max < 0 {
			max = 0
		}
		setpoint := dynamic
		if max < setpoint {
			setpoint = max
		}

		demands = append(demands, models.ZoneDemand{
			ZoneID:   zone.ID,
			ZoneCode: zone.Code,
			Dynamic:  dynamic,
			Max:      max,
			Setpoint: setpoint,
		})
	}
	return demands
}
