// Package recommender is the client for the remote siting recommendation service.
package recommender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/optimal-sites/planner/internal/config"
	"github.com/optimal-sites/planner/internal/models"
)

const maxResponseBytes = 10 << 20

// Client sends siting searches to the recommendation service. Each Search
// issues exactly one request and never retries.
type Client struct {
	url        string
	boundary   bool
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a recommendation service client.
func NewClient(cfg *config.Config, logger *zap.Logger) *Client {
	return &Client{
		url:      cfg.RecommenderURL,
		boundary: cfg.UsesBoundaryFormat(),
		httpClient: &http.Client{
			Timeout: cfg.RecommenderTimeout,
		},
		logger: logger,
	}
}

type criteriaRequest struct {
	Continent      string      `json:"continent"`
	PowerPlantType string      `json:"powerPlantType"`
	StartDate      models.Date `json:"startDate"`
	EndDate        models.Date `json:"endDate"`
}

type timeRange struct {
	Start models.Date `json:"start"`
	End   models.Date `json:"end"`
}

type boundaryRequest struct {
	Boundary  models.Bounds `json:"boundary"`
	Time      timeRange     `json:"time"`
	PlantType string        `json:"plant_type"`
}

// Search asks the service for candidate sites. The returned error is always
// a *NetworkError, *ServiceError or *MalformedResponse.
func (c *Client) Search(ctx context.Context, criteria models.SearchCriteria) ([]models.Location, error) {
	body, err := json.Marshal(c.requestBody(criteria))
	if err != nil {
		return nil, &MalformedResponse{Err: fmt.Errorf("failed to encode request: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("failed to create request: %w", err)}
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)

	logger := c.logger.With(zap.String("request_id", requestID))
	logger.Debug("Sending search request",
		zap.String("target", c.url),
		zap.String("continent", criteria.Continent),
		zap.String("plant_type", string(criteria.PowerPlantType)),
	)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		logger.Warn("Recommendation service unreachable", zap.Error(err))
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		logger.Warn("Failed to read response body", zap.Error(err))
		return nil, &NetworkError{Err: fmt.Errorf("failed to read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serviceErr := &ServiceError{StatusCode: resp.StatusCode, Message: errorMessage(resp.StatusCode, respBody)}
		logger.Warn("Recommendation service returned an error",
			zap.Int("status", resp.StatusCode),
			zap.String("message", serviceErr.Message),
		)
		return nil, serviceErr
	}

	locations, err := decodeLocations(respBody)
	if err != nil {
		logger.Warn("Malformed response from recommendation service", zap.Error(err))
		return nil, &MalformedResponse{Err: err}
	}

	logger.Info("Search completed",
		zap.Int("locations", len(locations)),
		zap.Duration("duration", time.Since(start)),
	)
	return locations, nil
}

func (c *Client) requestBody(criteria models.SearchCriteria) any {
	if !c.boundary {
		return criteriaRequest{
			Continent:      criteria.Continent,
			PowerPlantType: string(criteria.PowerPlantType),
			StartDate:      criteria.StartDate,
			EndDate:        criteria.EndDate,
		}
	}

	bounds, ok := models.ContinentBounds(criteria.Continent)
	if !ok {
		bounds = models.WorldBounds
	}
	return boundaryRequest{
		Boundary:  bounds,
		Time:      timeRange{Start: criteria.StartDate, End: criteria.EndDate},
		PlantType: string(criteria.PowerPlantType),
	}
}

// decodeLocations accepts {"locations": [...]} or a single
// {"optimal_point": {...}, ...} result, whose other keys become metadata.
func decodeLocations(body []byte) ([]models.Location, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if raw == nil {
		return nil, errors.New("response body is null")
	}

	var locations []models.Location
	if list, ok := raw["locations"]; ok {
		if err := json.Unmarshal(list, &locations); err != nil {
			return nil, fmt.Errorf("invalid locations: %w", err)
		}
		if locations == nil {
			return nil, errors.New("locations is null")
		}
	} else if point, ok := raw["optimal_point"]; ok {
		var loc models.Location
		if err := json.Unmarshal(point, &loc); err != nil {
			return nil, fmt.Errorf("invalid optimal_point: %w", err)
		}
		delete(raw, "optimal_point")
		if len(raw) > 0 && loc.Metadata == nil {
			loc.Metadata = make(map[string]json.RawMessage, len(raw))
		}
		for key, value := range raw {
			loc.Metadata[key] = value
		}
		locations = []models.Location{loc}
	} else {
		return nil, errors.New("response has no locations")
	}

	for i, loc := range locations {
		if err := loc.Validate(); err != nil {
			return nil, fmt.Errorf("location %d: %w", i, err)
		}
	}
	return locations, nil
}

// errorMessage prefers the service's own error text over the status text.
func errorMessage(status int, body []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		switch {
		case payload.Error != "":
			return payload.Error
		case payload.Message != "":
			return payload.Message
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 256 && !strings.HasPrefix(text, "<") {
		return text
	}
	return http.StatusText(status)
}
