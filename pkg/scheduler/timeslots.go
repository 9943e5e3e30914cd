package scheduler

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Clock is a time of day
type Clock struct {
	Hour   int
	Minute int
}

// Election day operating window and fixed role times
var (
	DayStart     = Clock{5, 30}
	DayEnd       = Clock{19, 0}
	OpenerTime   = Clock{5, 30}
	CloserTime   = Clock{19, 0}
	FirstGreeter = Clock{6, 0}
	LastGreeter  = Clock{18, 30}
)

const slotStep = 30 * time.Minute

// On places the clock on the calendar day of day
func (c Clock) On(day time.Time) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), c.Hour, c.Minute, 0, 0, day.Location())
}

// String renders "6:00 AM"
func (c Clock) String() string {
	return time.Date(2000, 1, 1, c.Hour, c.Minute, 0, 0, time.UTC).Format("3:04 PM")
}

// ClockOf extracts the time of day
func ClockOf(t time.Time) Clock {
	return Clock{t.Hour(), t.Minute()}
}

// FormatSlot renders a slot start the way grid rows label it
func FormatSlot(t time.Time) string {
	return ClockOf(t).String()
}

// GreeterSlots lists the half-hour greeter labels, 6:00 AM through 6:30 PM
func GreeterSlots() []string {
	day := time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	var out []string
	for t := FirstGreeter.On(day); !t.After(LastGreeter.On(day)); t = t.Add(slotStep) {
		out = append(out, FormatSlot(t))
	}
	return out
}

var (
	timeToken = regexp.MustCompile(`(\d{1,2}(:\d{2})?\s*(am|pm)?)`)
	clockForm = regexp.MustCompile(`^(\d{1,2})(?::(\d{2}))?(am|pm)$`)
)

// ParseItemRange reads a time range such as "11am-1pm" or "12pm to 3:00 pm"
// from free text. Both clock tokens must carry am/pm.
func ParseItemRange(item string) (start, end Clock, ok bool) {
	s := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(item)), "to", "-")
	tokens := timeToken.FindAllString(s, -1)
	if len(tokens) < 2 {
		return Clock{}, Clock{}, false
	}
	start, ok = parseClock(tokens[0])
	if !ok {
		return Clock{}, Clock{}, false
	}
	end, ok = parseClock(tokens[1])
	if !ok {
		return Clock{}, Clock{}, false
	}
	return start, end, true
}

func parseClock(tok string) (Clock, bool) {
	m := clockForm.FindStringSubmatch(strings.ReplaceAll(tok, " ", ""))
	if m == nil {
		return Clock{}, false
	}
	hour, _ := strconv.Atoi(m[1])
	minute := 0
	if m[2] != "" {
		minute, _ = strconv.Atoi(m[2])
	}
	if hour < 1 || hour > 12 || minute > 59 {
		return Clock{}, false
	}
	switch {
	case m[3] == "am" && hour == 12:
		hour = 0
	case m[3] == "pm" && hour < 12:
		hour += 12
	}
	return Clock{hour, minute}, true
}

// HalfHourSlots returns the 30-minute slot starts in [start, end) on day,
// clamped to the operating window.
func HalfHourSlots(day time.Time, start, end Clock) []time.Time {
	s, e := start.On(day), end.On(day)
	if lo := DayStart.On(day); s.Before(lo) {
		s = lo
	}
	if hi := DayEnd.On(day); e.After(hi) {
		e = hi
	}
	var slots []time.Time
	for cur := s; cur.Before(e); cur = cur.Add(slotStep) {
		slots = append(slots, cur)
	}
	return slots
}
