package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/arunvm123/tourismbooking/payment-service/config"
	"github.com/arunvm123/tourismbooking/payment-service/model"
	"github.com/arunvm123/tourismbooking/payment-service/service"
)

// TokenSource issues the bearer token sent on internal calls
type TokenSource interface {
	GenerateServiceToken() (string, error)
}

type HTTPPlaceService struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

// NewHTTPPlaceService creates a place service client with connection pooling
func NewHTTPPlaceService(cfg *config.PlaceService, tokens TokenSource) *HTTPPlaceService {
	transport := &http.Transport{
		MaxIdleConns:        cfg.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
		MaxConnsPerHost:     cfg.MaxConnsPerHost,
		IdleConnTimeout:     time.Duration(cfg.IdleConnTimeout) * time.Second,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPPlaceService{
		baseURL: cfg.BaseURL,
		tokens:  tokens,
		httpClient: &http.Client{
			Timeout:   time.Duration(cfg.RequestTimeout) * time.Second,
			Transport: transport,
		},
	}
}

// GetPlace retrieves a place from the place service
func (s *HTTPPlaceService) GetPlace(ctx context.Context, placeID string) (*service.PlaceDetails, error) {
	endpoint := fmt.Sprintf("%s/api/places/%s", s.baseURL, url.PathEscape(placeID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	token, err := s.tokens.GenerateServiceToken()
	if err != nil {
		return nil, fmt.Errorf("failed to issue service token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, &model.NotFoundError{Resource: "place", ID: placeID}
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("place service error (status %d): %s", resp.StatusCode, string(body))
	}

	var place service.PlaceDetails
	if err := json.NewDecoder(resp.Body).Decode(&place); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	return &place, nil
}
