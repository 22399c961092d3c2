// Package tool implements the calendar and CRM collaborator ports.
package tool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/autopitch/callflow/agent/contract"
)

const maxCalendarResponseBytes = 1 << 20

// CalendarConfig configures the REST calendar client.
type CalendarConfig struct {
	URL     string        `split_words:"true" required:"true"`
	Token   string        `split_words:"true" required:"true"`
	Timeout time.Duration `split_words:"true" default:"10s"`
}

// CalendarClientOption customizes CalendarClient.
type CalendarClientOption func(*CalendarClient)

func WithCalendarHTTPClient(client *http.Client) CalendarClientOption {
	return func(c *CalendarClient) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// CalendarClient books events through the calendar service's REST API. It
// performs exactly one attempt per call; retries, if any, are the service
// gateway's concern.
type CalendarClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewCalendarClient(cfg CalendarConfig, opts ...CalendarClientOption) (*CalendarClient, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("calendar url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid calendar url: %w", err)
	}
	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("calendar token is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	c := &CalendarClient{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

type calendarEventResponse struct {
	EventID string `json:"event_id"`
	Link    string `json:"link"`
	Error   string `json:"error"`
}

func (c *CalendarClient) CreateEvent(ctx context.Context, req contractx.CalendarRequest) (contractx.CalendarEvent, error) {
	if req.Start.IsZero() || !req.End.After(req.Start) {
		return contractx.CalendarEvent{}, fmt.Errorf("%w: invalid event window", contractx.ErrValidation)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return contractx.CalendarEvent{}, fmt.Errorf("%w: marshal event: %v", contractx.ErrCalendarFailure, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/events", bytes.NewReader(body))
	if err != nil {
		return contractx.CalendarEvent{}, fmt.Errorf("%w: build request: %v", contractx.ErrCalendarFailure, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return contractx.CalendarEvent{}, fmt.Errorf("%w: %v", contractx.ErrCalendarFailure, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxCalendarResponseBytes))
	if err != nil {
		return contractx.CalendarEvent{}, fmt.Errorf("%w: read response: %v", contractx.ErrCalendarFailure, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return contractx.CalendarEvent{}, fmt.Errorf("%w: http status=%d body=%s", contractx.ErrCalendarFailure, resp.StatusCode, string(raw))
	}

	var parsed calendarEventResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return contractx.CalendarEvent{}, fmt.Errorf("%w: decode response: %v", contractx.ErrCalendarFailure, err)
	}
	if parsed.Error != "" {
		return contractx.CalendarEvent{}, fmt.Errorf("%w: %s", contractx.ErrCalendarFailure, parsed.Error)
	}
	if parsed.EventID == "" {
		return contractx.CalendarEvent{}, fmt.Errorf("%w: response missing event id", contractx.ErrCalendarFailure)
	}

	return contractx.CalendarEvent{EventID: parsed.EventID, Link: parsed.Link}, nil
}
