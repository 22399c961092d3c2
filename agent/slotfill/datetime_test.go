package slotfill

import (
	"testing"
	"time"

	statex "github.com/autopitch/callflow/agent/state"
)

// Monday.
var reference = time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

func extract(t *testing.T, utterance string) statex.SlotValue {
	t.Helper()
	slots := NewDateTimeExtractor().Extract(utterance, reference)
	v, ok := slots[statex.SlotMeetingTime]
	if !ok {
		t.Fatalf("extractor returned no %s slot", statex.SlotMeetingTime)
	}
	return v
}

func TestExtractValid(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name      string
		utterance string
		want      time.Time
	}{
		{
			name:      "tomorrow with clock",
			utterance: "sure, tomorrow at 2pm works",
			want:      time.Date(2024, 1, 2, 14, 0, 0, 0, time.UTC),
		},
		{
			name:      "weekday with minutes",
			utterance: "how about tuesday at 10:30am",
			want:      time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC),
		},
		{
			name:      "next week pushes a week out",
			utterance: "next week tuesday at 2pm",
			want:      time.Date(2024, 1, 9, 14, 0, 0, 0, time.UTC),
		},
		{
			name:      "same weekday means next occurrence",
			utterance: "monday at 9am",
			want:      time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC),
		},
		{
			name:      "noon is 12pm",
			utterance: "tomorrow at 12pm",
			want:      time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC),
		},
		{
			name:      "midnight is 12am",
			utterance: "tomorrow at 12am",
			want:      time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			v := extract(t, c.utterance)
			if v.Status != statex.SlotValid {
				t.Fatalf("status = %q, want valid (raw=%q suggested=%q)", v.Status, v.Raw, v.Suggested)
			}
			if !v.Time.Equal(c.want) {
				t.Fatalf("time = %v, want %v", v.Time, c.want)
			}
		})
	}
}

func TestExtractAmbiguous(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name          string
		utterance     string
		wantSuggested string
	}{
		{
			name:          "past clock today",
			utterance:     "today at 9am",
			wantSuggested: "tomorrow at 9am",
		},
		{
			name:          "day with vague period",
			utterance:     "friday morning would be good",
			wantSuggested: "friday at 9am",
		},
		{
			name:          "day without time",
			utterance:     "tomorrow works",
			wantSuggested: "tomorrow at 2pm",
		},
		{
			name:          "bare next week",
			utterance:     "sometime next week",
			wantSuggested: "next tuesday at 2pm",
		},
		{
			name:          "clock without day",
			utterance:     "2pm is fine",
			wantSuggested: "tomorrow at 2pm",
		},
	}

	for _, c := range cases {
		c := c
		t.Run(c.name, func(t *testing.T) {
			t.Parallel()
			v := extract(t, c.utterance)
			if v.Status != statex.SlotAmbiguous {
				t.Fatalf("status = %q, want ambiguous (time=%v)", v.Status, v.Time)
			}
			if v.Suggested != c.wantSuggested {
				t.Fatalf("suggested = %q, want %q", v.Suggested, c.wantSuggested)
			}
			if !v.Time.IsZero() {
				t.Fatalf("ambiguous slot must not carry a time, got %v", v.Time)
			}
		})
	}
}

func TestExtractAbsent(t *testing.T) {
	t.Parallel()

	for _, utterance := range []string{
		"tell me more about the product",
		"who is this?",
		"",
		"I paid 20 dollars", // a number is not a clock
	} {
		v := extract(t, utterance)
		if v.Status != statex.SlotAbsent {
			t.Fatalf("Extract(%q) status = %q, want absent", utterance, v.Status)
		}
	}
}

// Weekday hits inside larger words must not count.
func TestExtractWordBoundaries(t *testing.T) {
	t.Parallel()

	v := extract(t, "the fridays report is ready")
	if v.Status != statex.SlotAbsent {
		t.Fatalf("embedded weekday matched: status=%q raw=%q", v.Status, v.Raw)
	}
}
