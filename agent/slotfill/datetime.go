// Package slotfill parses structured values out of free text. The date-time
// extractor resolves relative expressions ("tomorrow at 2pm", "next tuesday")
// against an injected reference time so the result is deterministic.
package slotfill

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	statex "github.com/autopitch/callflow/agent/state"
)

var clockRe = regexp.MustCompile(`\b(\d{1,2})(?::(\d{2}))?\s*(am|pm)\b`)

var weekdays = map[string]time.Weekday{
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
	"sunday":    time.Sunday,
}

// Vague period words don't fill the time part on their own; they only shape
// the suggestion we make back to the prospect.
var periodHours = map[string]int{
	"morning":   9,
	"afternoon": 14,
	"evening":   18,
}

// DateTimeExtractor is the deterministic meeting-time parser.
type DateTimeExtractor struct{}

func NewDateTimeExtractor() *DateTimeExtractor {
	return &DateTimeExtractor{}
}

type dayPart struct {
	found    bool
	label    string
	date     time.Time // midnight of the target day, reference location
	concrete bool      // false for bare "next week"
}

type clockPart struct {
	found  bool
	hour   int
	minute int
	label  string
}

// Extract returns the meeting_time slot tagged valid, ambiguous, or absent.
// It never guesses an ambiguous expression into a valid one.
func (e *DateTimeExtractor) Extract(utterance string, reference time.Time) map[string]statex.SlotValue {
	text := strings.ToLower(utterance)
	slots := make(map[string]statex.SlotValue, 1)

	day := findDay(text, reference)
	clock := findClock(text)
	period, hasPeriod := findPeriod(text)

	switch {
	case day.found && day.concrete && clock.found:
		at := time.Date(day.date.Year(), day.date.Month(), day.date.Day(),
			clock.hour, clock.minute, 0, 0, reference.Location())
		if at.After(reference) {
			slots[statex.SlotMeetingTime] = statex.SlotValue{
				Status: statex.SlotValid,
				Time:   at,
				Raw:    fmt.Sprintf("%s %s", day.label, clock.label),
			}
		} else {
			// "today 9am" in the afternoon: in the past, ask again.
			slots[statex.SlotMeetingTime] = statex.SlotValue{
				Status:    statex.SlotAmbiguous,
				Raw:       fmt.Sprintf("%s %s", day.label, clock.label),
				Suggested: "tomorrow at " + clock.label,
			}
		}

	case day.found && day.concrete && hasPeriod:
		slots[statex.SlotMeetingTime] = statex.SlotValue{
			Status:    statex.SlotAmbiguous,
			Raw:       fmt.Sprintf("%s %s", day.label, period),
			Suggested: fmt.Sprintf("%s at %s", day.label, clockLabel(periodHours[period], 0)),
		}

	case day.found && day.concrete:
		slots[statex.SlotMeetingTime] = statex.SlotValue{
			Status:    statex.SlotAmbiguous,
			Raw:       day.label,
			Suggested: suggestForDay(day.label),
		}

	case day.found: // bare "next week" / "this week"
		slots[statex.SlotMeetingTime] = statex.SlotValue{
			Status:    statex.SlotAmbiguous,
			Raw:       day.label,
			Suggested: "next tuesday at 2pm",
		}

	case clock.found:
		slots[statex.SlotMeetingTime] = statex.SlotValue{
			Status:    statex.SlotAmbiguous,
			Raw:       clock.label,
			Suggested: "tomorrow at " + clock.label,
		}

	default:
		slots[statex.SlotMeetingTime] = statex.SlotValue{Status: statex.SlotAbsent}
	}

	return slots
}

func findClock(text string) clockPart {
	m := clockRe.FindStringSubmatch(text)
	if m == nil {
		return clockPart{}
	}
	hour, err := strconv.Atoi(m[1])
	if err != nil || hour < 1 || hour > 12 {
		return clockPart{}
	}
	minute := 0
	if m[2] != "" {
		minute, err = strconv.Atoi(m[2])
		if err != nil || minute > 59 {
			return clockPart{}
		}
	}
	if m[3] == "pm" && hour != 12 {
		hour += 12
	}
	if m[3] == "am" && hour == 12 {
		hour = 0
	}
	return clockPart{found: true, hour: hour, minute: minute, label: strings.TrimSpace(m[0])}
}

func findDay(text string, reference time.Time) dayPart {
	midnight := func(t time.Time) time.Time {
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	}

	if strings.Contains(text, "today") {
		return dayPart{found: true, label: "today", date: midnight(reference), concrete: true}
	}
	if strings.Contains(text, "tomorrow") {
		return dayPart{found: true, label: "tomorrow", date: midnight(reference.AddDate(0, 0, 1)), concrete: true}
	}

	for name, wd := range weekdays {
		if !containsWord(text, name) {
			continue
		}
		ahead := int(wd-reference.Weekday()+7) % 7
		if ahead == 0 {
			ahead = 7
		}
		// "next week tuesday" means the week after the upcoming one.
		if strings.Contains(text, "next week") {
			ahead += 7
		}
		return dayPart{
			found:    true,
			label:    name,
			date:     midnight(reference.AddDate(0, 0, ahead)),
			concrete: true,
		}
	}

	if strings.Contains(text, "next week") || strings.Contains(text, "this week") {
		return dayPart{found: true, label: strings.TrimSpace(firstOf(text, "next week", "this week"))}
	}
	return dayPart{}
}

func findPeriod(text string) (string, bool) {
	for name := range periodHours {
		if containsWord(text, name) {
			return name, true
		}
	}
	return "", false
}

func containsWord(text, word string) bool {
	idx := strings.Index(text, word)
	for idx >= 0 {
		before := idx == 0 || !isLetter(text[idx-1])
		afterIdx := idx + len(word)
		after := afterIdx >= len(text) || !isLetter(text[afterIdx])
		if before && after {
			return true
		}
		next := strings.Index(text[idx+1:], word)
		if next < 0 {
			return false
		}
		idx += 1 + next
	}
	return false
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func firstOf(text string, candidates ...string) string {
	for _, c := range candidates {
		if strings.Contains(text, c) {
			return c
		}
	}
	return ""
}

func clockLabel(hour, minute int) string {
	suffix := "am"
	display := hour
	switch {
	case hour == 0:
		display = 12
	case hour == 12:
		suffix = "pm"
	case hour > 12:
		display = hour - 12
		suffix = "pm"
	}
	if minute > 0 {
		return fmt.Sprintf("%d:%02d%s", display, minute, suffix)
	}
	return fmt.Sprintf("%d%s", display, suffix)
}

func suggestForDay(label string) string {
	switch label {
	case "today":
		return "later today at 4pm"
	case "tomorrow":
		return "tomorrow at 2pm"
	default:
		return label + " at 2pm"
	}
}
