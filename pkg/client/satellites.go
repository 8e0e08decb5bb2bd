package client

import "context"

// SatelliteService handles satellite-related API calls
type SatelliteService struct {
	client *Client
}

// List retrieves every known satellite
func (s *SatelliteService) List(ctx context.Context) ([]Satellite, error) {
	var satellites []Satellite
	if err := s.client.Fetch(ctx, "/satellites", &satellites); err != nil {
		return nil, err
	}

	if satellites == nil {
		satellites = []Satellite{}
	}
	return satellites, nil
}
