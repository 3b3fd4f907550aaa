package handlers

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"crewtrack-backend/internal/geo"
	"crewtrack-backend/internal/services"
	"crewtrack-backend/pkg/utils"
)

// GeocodeRequest asks for coordinates of a free-form task site address
type GeocodeRequest struct {
	Address string `json:"address"`
}

// ReverseGeocodeRequest asks for the address at a coordinate pair
type ReverseGeocodeRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Geocode handles POST /api/geocoding/forward. The response includes the
// "lat, lon" string ready to store as a task target_location.
func Geocode(gs *services.GeocodingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gs == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "Geocoding service not configured")
			return
		}

		var req GeocodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Address == "" {
			utils.RespondError(w, http.StatusBadRequest, "address is required")
			return
		}

		result, err := gs.GeocodeAddress(req.Address)
		if err != nil {
			log.Printf("Geocoding failed for address '%s': %v", req.Address, err)
			utils.RespondError(w, http.StatusBadGateway, fmt.Sprintf("Failed to geocode: %v", err))
			return
		}

		targetLocation := geo.FormatLocation(geo.Position{Lat: result.Latitude, Lon: result.Longitude})

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"address":         result.Address,
				"latitude":        result.Latitude,
				"longitude":       result.Longitude,
				"score":           result.Score,
				"target_location": targetLocation,
			},
		})
	}
}

// ReverseGeocode handles POST /api/geocoding/reverse
func ReverseGeocode(gs *services.GeocodingService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if gs == nil {
			utils.RespondError(w, http.StatusServiceUnavailable, "Geocoding service not configured")
			return
		}

		var req ReverseGeocodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		address, err := gs.ReverseGeocode(req.Latitude, req.Longitude)
		if err != nil {
			log.Printf("Reverse geocoding failed: %v", err)
			utils.RespondError(w, http.StatusBadGateway, fmt.Sprintf("Failed to reverse geocode: %v", err))
			return
		}

		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"address":   address,
				"latitude":  req.Latitude,
				"longitude": req.Longitude,
			},
		})
	}
}
