package tool

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	contractx "github.com/autopitch/callflow/agent/contract"
	statex "github.com/autopitch/callflow/agent/state"
)

// MemoryCRM is the in-process CRM used for development and tests. The
// outcome log is append-only.
type MemoryCRM struct {
	mu       sync.Mutex
	leads    map[string]statex.Lead
	outcomes []contractx.OutcomeRecord
}

func NewMemoryCRM() *MemoryCRM {
	return &MemoryCRM{leads: make(map[string]statex.Lead, 16)}
}

func (c *MemoryCRM) LogOutcome(ctx context.Context, rec contractx.OutcomeRecord) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outcomes = append(c.outcomes, rec)
	return nil
}

func (c *MemoryCRM) ListLeads(ctx context.Context) ([]statex.Lead, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]statex.Lead, 0, len(c.leads))
	for _, l := range c.leads {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (c *MemoryCRM) UpsertLead(ctx context.Context, lead statex.Lead) (statex.Lead, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if lead.ID == "" {
		lead.ID = uuid.NewString()
	}
	c.leads[lead.ID] = lead
	return lead, nil
}

// Outcomes returns a copy of the outcome log.
func (c *MemoryCRM) Outcomes() []contractx.OutcomeRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]contractx.OutcomeRecord, len(c.outcomes))
	copy(out, c.outcomes)
	return out
}

// MemoryCalendar books events in memory, for development without a calendar
// service.
type MemoryCalendar struct {
	mu     sync.Mutex
	events []contractx.CalendarRequest
}

func NewMemoryCalendar() *MemoryCalendar {
	return &MemoryCalendar{}
}

func (c *MemoryCalendar) CreateEvent(ctx context.Context, req contractx.CalendarRequest) (contractx.CalendarEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, req)
	id := uuid.NewString()
	return contractx.CalendarEvent{EventID: id, Link: "memory://events/" + id}, nil
}

// Events returns a copy of the booked events.
func (c *MemoryCalendar) Events() []contractx.CalendarRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]contractx.CalendarRequest, len(c.events))
	copy(out, c.events)
	return out
}
