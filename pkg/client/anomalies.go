package client

import (
	"context"
	"net/url"
	"strconv"
)

// DefaultAnomalyLimit is the page size used when no limit is given
const DefaultAnomalyLimit = 50

// AnomalyService handles anomaly-related API calls
type AnomalyService struct {
	client *Client
}

// List retrieves the most recent anomalies, newest first as returned by the backend
func (s *AnomalyService) List(ctx context.Context, limit int) ([]AnomalyRecord, error) {
	if limit <= 0 {
		limit = DefaultAnomalyLimit
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(limit))

	var anomalies []AnomalyRecord
	if err := s.client.Fetch(ctx, "/anomalies?"+query.Encode(), &anomalies); err != nil {
		return nil, err
	}

	if anomalies == nil {
		anomalies = []AnomalyRecord{}
	}
	return anomalies, nil
}

// Stats retrieves the server-side aggregate statistics
func (s *AnomalyService) Stats(ctx context.Context) (*Stats, error) {
	var stats Stats
	if err := s.client.Fetch(ctx, "/anomalies/stats", &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}
