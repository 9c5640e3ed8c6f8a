// internal/service/walk_service.go
package service

import (
	"math"

	appErrors "github.com/fieldops/campaigntext-backend/internal/errors"
	"github.com/fieldops/campaigntext-backend/internal/model"
	"github.com/fieldops/campaigntext-backend/internal/repository"
)

// maxGPSAccuracy discards location evidence worse than 200m.
const maxGPSAccuracy = 200.0

// verifyRadiusMeters is how close a walker must be to the address coords for
// the knock to count as GPS-verified.
const verifyRadiusMeters = 150.0

// validKnockResults is the closed disposition set for a door knock.
var validKnockResults = map[string]bool{
	"support": true, "lean_support": true, "undecided": true, "lean_oppose": true,
	"oppose": true, "not_home": true, "refused": true, "moved": true, "come_back": true,
}

// knockContactResults maps knock dispositions to the labels stored in voter
// contact history.
var knockContactResults = map[string]string{
	"support": "Strong Support", "lean_support": "Lean Support",
	"undecided": "Undecided", "lean_oppose": "Lean Oppose",
	"oppose": "Strong Oppose", "not_home": "Not Home",
	"refused": "Refused", "moved": "Moved", "come_back": "Come Back",
}

// knockSupportLevels maps the opinion dispositions to voter support levels.
// Non-opinion results (not_home, refused, ...) leave the level alone.
var knockSupportLevels = map[string]string{
	"support": "strong_support", "lean_support": "lean_support",
	"undecided": "undecided", "lean_oppose": "lean_oppose", "oppose": "strong_oppose",
}

type WalkService struct {
	WalkRepo  *repository.WalkRepository
	VoterRepo *repository.VoterRepository
}

type KnockLog struct {
	Result      string   `json:"result"`
	Notes       string   `json:"notes"`
	GPSLat      *float64 `json:"gps_lat"`
	GPSLng      *float64 `json:"gps_lng"`
	GPSAccuracy *float64 `json:"gps_accuracy"`
	WalkerName  string   `json:"walker_name"`
}

// LogKnock records a door-knock disposition with GPS verification. When the
// address links a voter, the knock also lands in the voter's contact history
// and opinion dispositions update the support level.
func (s *WalkService) LogKnock(walkID, addrID int, k KnockLog) (bool, error) {
	if k.Result == "" {
		return false, appErrors.NewValidation("result required")
	}
	if !validKnockResults[k.Result] {
		return false, appErrors.NewValidation("invalid result value")
	}

	addr, err := s.WalkRepo.GetAddress(walkID, addrID)
	if err != nil {
		return false, err
	}
	if addr == nil {
		return false, appErrors.NewValidation("address not found")
	}

	verified := verifyKnockGPS(addr, k.GPSLat, k.GPSLng, k.GPSAccuracy)
	if err := s.WalkRepo.LogKnock(walkID, addrID, k.Result, k.Notes, k.GPSLat, k.GPSLng, k.GPSAccuracy, verified); err != nil {
		return false, err
	}

	if addr.VoterID != nil {
		contactResult := knockContactResults[k.Result]
		if contactResult == "" {
			contactResult = k.Result
		}
		walker := k.WalkerName
		if walker == "" {
			walker = "Block Walker"
		}
		if err := s.VoterRepo.LogContact(&model.VoterContact{
			VoterID:     *addr.VoterID,
			ContactType: "Door-knock",
			Result:      contactResult,
			Notes:       k.Notes,
			ContactedBy: walker,
		}); err != nil {
			return false, err
		}
		if level, ok := knockSupportLevels[k.Result]; ok {
			if err := s.VoterRepo.UpdateSupportLevel(*addr.VoterID, level); err != nil {
				return false, err
			}
		}
	}

	return verified, nil
}

func verifyKnockGPS(addr *model.WalkAddress, lat, lng, accuracy *float64) bool {
	if lat == nil || lng == nil || !validCoord(*lat, *lng) {
		return false
	}
	if accuracy != nil && *accuracy > maxGPSAccuracy {
		return false
	}
	if addr.Lat != nil && addr.Lng != nil {
		return gpsDistance(*lat, *lng, *addr.Lat, *addr.Lng) <= verifyRadiusMeters
	}
	// No address coords to compare against; good-accuracy GPS is enough.
	return true
}

func validCoord(lat, lng float64) bool {
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180 &&
		!math.IsNaN(lat) && !math.IsNaN(lng) && !math.IsInf(lat, 0) && !math.IsInf(lng, 0)
}

// gpsDistance is the haversine distance between two coords in meters.
func gpsDistance(lat1, lng1, lat2, lng2 float64) float64 {
	const earthRadius = 6371000.0
	toRad := func(deg float64) float64 { return deg * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLng := toRad(lng2 - lng1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return earthRadius * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}
