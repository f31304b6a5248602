// Package gateway wraps the messaging/voice provider HTTP API. The rest of
// the system only sees the Sender and Caller interfaces so tests and the
// disabled-gateway mode stay cheap.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"nurture_backend/platform/apperr"
	"nurture_backend/platform/config"
	"nurture_backend/platform/logger"
	"nurture_backend/platform/phone"
)

// Sender delivers an outbound text message and returns the provider's
// external message id.
type Sender interface {
	SendMessage(ctx context.Context, toNumber, body string) (string, error)
}

// Caller initiates an outbound call and returns the provider's external
// call id, if the provider assigns one synchronously.
type Caller interface {
	PlaceCall(ctx context.Context, toNumber string) (string, error)
}

// Client talks to the provider. A nil Client is a valid no-op sender used
// when the gateway is disabled in config.
type Client struct {
	baseURL     string
	apiKey      string
	fromNumber  string
	callbackURL string
	http        *http.Client
	log         *logger.Logger
}

// NewClient builds a provider client, or nil when the gateway is disabled.
func NewClient(cfg config.GatewayConfig, log *logger.Logger) *Client {
	if !cfg.IsGatewayEnabled() {
		return nil
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.GetGatewayURL(), "/"),
		apiKey:      cfg.GetGatewayAPIKey(),
		fromNumber:  cfg.GetGatewayFromNumber(),
		callbackURL: strings.TrimRight(cfg.GetCallbackBaseURL(), "/"),
		http:        &http.Client{Timeout: 10 * time.Second},
		log:         log,
	}
}

type sendMessageRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Body string `json:"body"`
}

type sendMessageResponse struct {
	MessageID string `json:"messageId"`
}

// SendMessage posts an outbound message to the provider. Delivery outcome
// arrives later via the delivery-status webhook.
func (c *Client) SendMessage(ctx context.Context, toNumber, body string) (string, error) {
	if c == nil {
		return "", apperr.Delivery("message gateway is disabled", nil)
	}

	payload := sendMessageRequest{
		From: c.fromNumber,
		To:   phone.NormalizeE164(toNumber),
		Body: body,
	}

	var result sendMessageResponse
	if err := c.post(ctx, "/v1/messages", payload, &result); err != nil {
		return "", apperr.Delivery("failed to send message", err)
	}

	c.log.Info("gateway message accepted", "to", payload.To, "externalId", result.MessageID)
	return result.MessageID, nil
}

type placeCallRequest struct {
	From        string `json:"from"`
	To          string `json:"to"`
	CallbackURL string `json:"callbackUrl"`
}

type placeCallResponse struct {
	CallID string `json:"callId"`
}

// PlaceCall asks the provider to dial the number. Progress arrives via the
// call-status webhook, keyed by the returned call id.
func (c *Client) PlaceCall(ctx context.Context, toNumber string) (string, error) {
	if c == nil {
		return "", apperr.Delivery("call gateway is disabled", nil)
	}

	payload := placeCallRequest{
		From:        c.fromNumber,
		To:          phone.NormalizeE164(toNumber),
		CallbackURL: c.callbackURL + "/webhooks/calls/status",
	}

	var result placeCallResponse
	if err := c.post(ctx, "/v1/calls", payload, &result); err != nil {
		return "", apperr.Delivery("failed to place call", err)
	}

	c.log.Info("gateway call accepted", "to", payload.To, "externalCallId", result.CallID)
	return result.CallID, nil
}

func (c *Client) post(ctx context.Context, path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal gateway payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode gateway response: %w", err)
		}
	}
	return nil
}
