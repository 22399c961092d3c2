package tool

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	contractx "github.com/autopitch/callflow/agent/contract"
)

func eventRequest() contractx.CalendarRequest {
	start := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	return contractx.CalendarRequest{
		Summary: "Demo Call - Jane Doe",
		Start:   start,
		End:     start.Add(time.Hour),
	}
}

func TestCalendarClientCreateEvent(t *testing.T) {
	t.Parallel()

	var gotAuth, gotPath, gotMethod string
	var gotBody contractx.CalendarRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		gotMethod = r.Method
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode request: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"event_id": "evt-1", "link": "https://cal/evt-1"})
	}))
	defer ts.Close()

	client, err := NewCalendarClient(CalendarConfig{URL: ts.URL, Token: "secret"})
	if err != nil {
		t.Fatalf("NewCalendarClient() error = %v", err)
	}

	event, err := client.CreateEvent(context.Background(), eventRequest())
	if err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if event.EventID != "evt-1" || event.Link != "https://cal/evt-1" {
		t.Fatalf("event = %+v", event)
	}
	if gotMethod != http.MethodPost || gotPath != "/events" {
		t.Fatalf("request = %s %s, want POST /events", gotMethod, gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("authorization = %q", gotAuth)
	}
	if gotBody.Summary != "Demo Call - Jane Doe" {
		t.Fatalf("request body summary = %q", gotBody.Summary)
	}
}

func TestCalendarClientErrors(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "http error status",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "conflict", http.StatusConflict)
			},
		},
		{
			name: "error field in body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"error": "slot taken"})
			},
		},
		{
			name: "missing event id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]string{"link": "x"})
			},
		},
		{
			name: "garbage body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			ts := httptest.NewServer(c.handler)
			defer ts.Close()

			client, err := NewCalendarClient(CalendarConfig{URL: ts.URL, Token: "secret"})
			if err != nil {
				t.Fatalf("NewCalendarClient() error = %v", err)
			}
			if _, err := client.CreateEvent(context.Background(), eventRequest()); !errors.Is(err, contractx.ErrCalendarFailure) {
				t.Fatalf("expected ErrCalendarFailure, got %v", err)
			}
		})
	}
}

func TestCalendarClientRejectsBadWindow(t *testing.T) {
	t.Parallel()

	client, err := NewCalendarClient(CalendarConfig{URL: "http://calendar.local", Token: "secret"})
	if err != nil {
		t.Fatalf("NewCalendarClient() error = %v", err)
	}

	req := eventRequest()
	req.End = req.Start
	if _, err := client.CreateEvent(context.Background(), req); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestNewCalendarClientValidatesConfig(t *testing.T) {
	t.Parallel()

	if _, err := NewCalendarClient(CalendarConfig{Token: "secret"}); err == nil {
		t.Fatal("expected error for missing url")
	}
	if _, err := NewCalendarClient(CalendarConfig{URL: "http://calendar.local"}); err == nil {
		t.Fatal("expected error for missing token")
	}
	if _, err := NewCalendarClient(CalendarConfig{URL: "::bad::", Token: "secret"}); err == nil {
		t.Fatal("expected error for invalid url")
	}
}
