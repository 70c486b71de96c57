package attendance

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrAlreadyRecorded = errors.New("attendance already recorded for this slot")
	ErrInvalidSlot     = errors.New("slot must be one of morning_in, morning_out, afternoon_in, afternoon_out")
)

// UnitsPerEvent is the number of slots taken per event; a student with no
// row for an event misses all of them.
const UnitsPerEvent = 4

// Slot is one of the four scans taken during an event day.
type Slot string

const (
	MorningIn    Slot = "morning_in"
	MorningOut   Slot = "morning_out"
	AfternoonIn  Slot = "afternoon_in"
	AfternoonOut Slot = "afternoon_out"
)

// Slots lists every slot in day order.
var Slots = []Slot{MorningIn, MorningOut, AfternoonIn, AfternoonOut}

// ParseSlot accepts snake_case ("morning_in") and camelCase ("morningIn").
func ParseSlot(s string) (Slot, error) {
	key := strings.ToLower(strings.ReplaceAll(s, "_", ""))
	for _, slot := range Slots {
		if key == strings.ReplaceAll(string(slot), "_", "") {
			return slot, nil
		}
	}
	return "", ErrInvalidSlot
}

// Record is the attendance of one student at one event. Nil slots were missed.
type Record struct {
	EventID      string     `json:"event_id"`
	IDNumber     string     `json:"id_number"`
	MorningIn    *time.Time `json:"morning_in"`
	MorningOut   *time.Time `json:"morning_out"`
	AfternoonIn  *time.Time `json:"afternoon_in"`
	AfternoonOut *time.Time `json:"afternoon_out"`
}

// At returns the timestamp recorded for slot, or nil.
func (r Record) At(slot Slot) *time.Time {
	switch slot {
	case MorningIn:
		return r.MorningIn
	case MorningOut:
		return r.MorningOut
	case AfternoonIn:
		return r.AfternoonIn
	case AfternoonOut:
		return r.AfternoonOut
	}
	return nil
}

// Set stores t for slot.
func (r *Record) Set(slot Slot, t time.Time) {
	switch slot {
	case MorningIn:
		r.MorningIn = &t
	case MorningOut:
		r.MorningOut = &t
	case AfternoonIn:
		r.AfternoonIn = &t
	case AfternoonOut:
		r.AfternoonOut = &t
	}
}

// MissingUnits counts the empty slots (0..4).
func (r Record) MissingUnits() int {
	n := 0
	for _, slot := range Slots {
		if r.At(slot) == nil {
			n++
		}
	}
	return n
}

// Absences returns the absence units of an optional record: a missing row
// counts as a full-day absence.
func Absences(r *Record) int {
	if r == nil {
		return UnitsPerEvent
	}
	return r.MissingUnits()
}

// SheetRow is a record joined with the student's identity for an event sheet.
type SheetRow struct {
	Record
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Gender    string `json:"gender"`
}

// StudentEvent is one event in a student's attendance history.
type StudentEvent struct {
	EventID   string    `json:"event_id"`
	EventName string    `json:"event_name"`
	EventDate time.Time `json:"-"`
	Record    *Record   `json:"record"`
	Absences  int       `json:"absences"`
}
