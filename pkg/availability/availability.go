// Package availability evaluates optional per-object availability windows:
// wall-clock bounds plus daily recurring time-of-day slots.
package availability

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	ErrBeforeWindow  = errors.New("interval starts before the availability window opens")
	ErrAfterWindow   = errors.New("interval ends after the availability window closes")
	ErrOutsideSlots  = errors.New("interval does not fit inside a single availability slot")
	ErrSpansMidnight = errors.New("interval spans more than one calendar day")
	ErrMalformedSlot = errors.New("malformed availability slot")
)

var slotPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):([0-5][0-9])-([01][0-9]|2[0-3]):([0-5][0-9])$`)

// Slot is a recurring daily time-of-day range in minutes since midnight,
// inclusive at both ends for point checks.
type Slot struct {
	StartMinute int `json:"start_minute" bson:"start_minute"`
	EndMinute   int `json:"end_minute" bson:"end_minute"`
}

// Window restricts when an object is usable. Zero From/To mean unbounded on
// that side. An empty slot list means bounds-only mode. A nil or disabled
// window never restricts anything.
type Window struct {
	Enabled bool      `json:"enabled" bson:"enabled"`
	From    time.Time `json:"from,omitempty" bson:"from,omitempty"`
	To      time.Time `json:"to,omitempty" bson:"to,omitempty"`
	Slots   []Slot    `json:"slots,omitempty" bson:"slots,omitempty"`
	// SlotsText is the free-form submission format for Slots. Normalize
	// parses and replaces it on save; it is never stored.
	SlotsText string `json:"slots_text,omitempty" bson:"-"`
}

// Normalize resolves a submitted window into its stored form. SlotsText, when
// present, is parsed and replaces any typed slots; typed slots are checked
// against the same fail-closed rules. One bad slot rejects the whole window.
func (w *Window) Normalize() error {
	if w == nil {
		return nil
	}
	if w.SlotsText != "" {
		slots, err := ParseSlots(w.SlotsText)
		if err != nil {
			return err
		}
		w.Slots = slots
		w.SlotsText = ""
		return nil
	}
	return ValidateSlots(w.Slots)
}

// ValidateSlots applies the ParseSlots rules to already typed slots: minutes
// within a single day and a strictly positive span.
func ValidateSlots(slots []Slot) error {
	for _, slot := range slots {
		if slot.StartMinute < 0 || slot.EndMinute > 23*60+59 {
			return fmt.Errorf("%w: %d-%d outside the day", ErrMalformedSlot, slot.StartMinute, slot.EndMinute)
		}
		if slot.EndMinute <= slot.StartMinute {
			return fmt.Errorf("%w: %d-%d ends before it starts", ErrMalformedSlot, slot.StartMinute, slot.EndMinute)
		}
	}
	return nil
}

// ParseSlots converts newline-delimited HH:MM-HH:MM lines into slots. Blank
// lines are skipped. Parsing is fail-closed: one malformed or backwards line
// rejects the whole configuration. An empty result is valid and means no slot
// restriction.
func ParseSlots(text string) ([]Slot, error) {
	var slots []Slot
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		m := slotPattern.FindStringSubmatch(line)
		if m == nil {
			return nil, fmt.Errorf("%w: %q", ErrMalformedSlot, line)
		}
		startH, _ := strconv.Atoi(m[1])
		startM, _ := strconv.Atoi(m[2])
		endH, _ := strconv.Atoi(m[3])
		endM, _ := strconv.Atoi(m[4])
		slot := Slot{
			StartMinute: startH*60 + startM,
			EndMinute:   endH*60 + endM,
		}
		if slot.EndMinute <= slot.StartMinute {
			return nil, fmt.Errorf("%w: %q ends before it starts", ErrMalformedSlot, line)
		}
		slots = append(slots, slot)
	}
	return slots, nil
}

// AvailableAt decides whether the object is usable at a single instant.
func (w *Window) AvailableAt(at time.Time) bool {
	if w == nil || !w.Enabled {
		return true
	}
	if !w.From.IsZero() && at.Before(w.From) {
		return false
	}
	if !w.To.IsZero() && at.After(w.To) {
		return false
	}
	if len(w.Slots) == 0 {
		return true
	}
	minute := minuteOfDay(at)
	for _, slot := range w.Slots {
		if minute >= slot.StartMinute && minute <= slot.EndMinute {
			return true
		}
	}
	return false
}

// EnforceRange checks a reservation interval against the window. This is
// stricter than a point check: both endpoints must lie inside the bounds, and
// when slots are configured the interval must fall on one calendar day with
// both endpoints inside the same slot.
func (w *Window) EnforceRange(start, end time.Time) error {
	if w == nil || !w.Enabled {
		return nil
	}
	if !w.From.IsZero() && start.Before(w.From) {
		return ErrBeforeWindow
	}
	if !w.To.IsZero() && end.After(w.To) {
		return ErrAfterWindow
	}
	if len(w.Slots) == 0 {
		return nil
	}
	if !sameDay(start, end) {
		return ErrSpansMidnight
	}
	startMinute := minuteOfDay(start)
	endMinute := minuteOfDay(end)
	for _, slot := range w.Slots {
		if startMinute >= slot.StartMinute && endMinute <= slot.EndMinute {
			return nil
		}
	}
	return ErrOutsideSlots
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
