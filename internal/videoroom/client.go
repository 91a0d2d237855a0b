package videoroom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/dispatch-api/internal/config"
	"github.com/jwalitptl/dispatch-api/pkg/circuitbreaker"
)

// Client provisions video rooms for accepted online requests. Called
// only after a confirmed win; a failure here never rolls the
// acceptance back.
type Client interface {
	ProvisionRoom(ctx context.Context, requestID uuid.UUID) (string, error)
}

type client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
}

func NewClient(cfg config.VideoRoomConfig) Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "video-room",
			MaxFailures: 3,
			Timeout:     time.Minute,
		}),
	}
}

func (c *client) ProvisionRoom(ctx context.Context, requestID uuid.UUID) (string, error) {
	payload, err := json.Marshal(map[string]string{"request_id": requestID.String()})
	if err != nil {
		return "", fmt.Errorf("failed to marshal room request: %w", err)
	}

	var roomRef string
	err = c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/rooms", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to build room request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("video room call failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("video room service returned status %d", resp.StatusCode)
		}

		var body struct {
			RoomURL string `json:"room_url"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return fmt.Errorf("failed to decode room response: %w", err)
		}
		roomRef = body.RoomURL
		return nil
	})
	if err != nil {
		return "", err
	}
	return roomRef, nil
}
