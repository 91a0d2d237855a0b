package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/jwalitptl/dispatch-api/internal/config"
	"github.com/jwalitptl/dispatch-api/pkg/circuitbreaker"
)

// Client talks to the outbound WhatsApp gateway. Delivery is
// fire-and-forget from the dispatcher's point of view; the gateway
// reports accept replies back through the webhook handler.
type Client interface {
	SendTemplate(ctx context.Context, toPhone string, msg TemplateMessage) error
}

// TemplateMessage is an interactive message with an accept button whose
// payload carries the signed accept token.
type TemplateMessage struct {
	Body          string `json:"body"`
	ButtonLabel   string `json:"button_label"`
	ButtonPayload string `json:"button_payload"`
}

type client struct {
	baseURL    string
	apiKey     string
	fromPhone  string
	httpClient *http.Client
	cb         *circuitbreaker.CircuitBreaker
}

func NewClient(cfg config.WhatsAppConfig) Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		fromPhone:  cfg.FromPhone,
		httpClient: &http.Client{Timeout: timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "whatsapp-gateway",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
	}
}

func (c *client) SendTemplate(ctx context.Context, toPhone string, msg TemplateMessage) error {
	payload, err := json.Marshal(map[string]interface{}{
		"from":    c.fromPhone,
		"to":      toPhone,
		"message": msg,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal whatsapp message: %w", err)
	}

	return c.cb.Execute(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("failed to build whatsapp request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("whatsapp gateway call failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode >= http.StatusBadRequest {
			return fmt.Errorf("whatsapp gateway returned status %d", resp.StatusCode)
		}
		return nil
	})
}
