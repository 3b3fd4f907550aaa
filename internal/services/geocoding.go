package services

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
)

// HEREGeocodeResponse represents the response from HERE Geocoding API
type HEREGeocodeResponse struct {
	Items []struct {
		Position struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"position"`
		Address struct {
			Label string `json:"label"`
		} `json:"address"`
		Scoring struct {
			QueryScore float64 `json:"queryScore"`
		} `json:"scoring"`
	} `json:"items"`
}

// HEREReverseGeocodeResponse represents the response from HERE reverse geocoding
type HEREReverseGeocodeResponse struct {
	Items []struct {
		Address struct {
			Label string `json:"label"`
		} `json:"address"`
	} `json:"items"`
}

// GeocodeResult is the resolved position for a task site address
type GeocodeResult struct {
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Score     float64 `json:"score"`
}

// GeocodingService resolves task site addresses using HERE Maps API
type GeocodingService struct {
	apiKey string
	client *http.Client
}

// NewGeocodingService creates a new HERE geocoding service
func NewGeocodingService(apiKey string) *GeocodingService {
	return &GeocodingService{
		apiKey: apiKey,
		client: &http.Client{},
	}
}

// GeocodeAddress resolves a free-form address to coordinates
func (gs *GeocodingService) GeocodeAddress(address string) (*GeocodeResult, error) {
	baseURL := "https://geocode.search.hereapi.com/v1/geocode"
	params := url.Values{}
	params.Add("q", address)
	params.Add("apiKey", gs.apiKey)

	fullURL := fmt.Sprintf("%s?%s", baseURL, params.Encode())

	log.Printf("🌍 Geocoding: %s", address)

	resp, err := gs.client.Get(fullURL)
	if err != nil {
		return nil, fmt.Errorf("failed to make geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("geocoding API returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var result HEREGeocodeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse geocoding response: %w", err)
	}

	if len(result.Items) == 0 {
		return nil, fmt.Errorf("no geocoding results found for address: %s", address)
	}

	item := result.Items[0]
	log.Printf("   ✅ Found: %.6f, %.6f (confidence: %.2f)", item.Position.Lat, item.Position.Lng, item.Scoring.QueryScore)

	return &GeocodeResult{
		Address:   item.Address.Label,
		Latitude:  item.Position.Lat,
		Longitude: item.Position.Lng,
		Score:     item.Scoring.QueryScore,
	}, nil
}

// ReverseGeocode converts coordinates back to a human-readable address
func (gs *GeocodingService) ReverseGeocode(lat, lng float64) (string, error) {
	baseURL := "https://revgeocode.search.hereapi.com/v1/revgeocode"
	params := url.Values{}
	params.Add("at", fmt.Sprintf("%f,%f", lat, lng))
	params.Add("apiKey", gs.apiKey)

	fullURL := fmt.Sprintf("%s?%s", baseURL, params.Encode())

	resp, err := gs.client.Get(fullURL)
	if err != nil {
		return "", fmt.Errorf("failed to make reverse geocoding request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("reverse geocoding API returned status %d: %s", resp.StatusCode, string(body))
	}

	var result HEREReverseGeocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse reverse geocoding response: %w", err)
	}

	if len(result.Items) == 0 {
		return "", fmt.Errorf("no address found for %.6f, %.6f", lat, lng)
	}

	return result.Items[0].Address.Label, nil
}
