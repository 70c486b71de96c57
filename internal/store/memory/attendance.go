package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"membership/internal/attendance"
)

// AttendanceRepository keeps attendance rows in memory.
type AttendanceRepository struct {
	db *DB

	// FailEvent makes ForEvent fail for the given event id.
	FailEvent string
}

func (r *AttendanceRepository) RecordSlot(ctx context.Context, eventID, idNumber string, slot attendance.Slot, at time.Time) (attendance.Record, error) {
	slot, err := attendance.ParseSlot(string(slot))
	if err != nil {
		return attendance.Record{}, err
	}
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, ok := r.db.events[eventID]; !ok {
		return attendance.Record{}, fmt.Errorf("event %s does not exist", eventID)
	}
	if _, ok := r.db.students[idNumber]; !ok {
		return attendance.Record{}, fmt.Errorf("student %s does not exist", idNumber)
	}

	key := attendanceKey{eventID: eventID, idNumber: idNumber}
	rec, ok := r.db.records[key]
	if !ok {
		rec = &attendance.Record{EventID: eventID, IDNumber: idNumber}
		r.db.records[key] = rec
	}
	if rec.At(slot) != nil {
		return attendance.Record{}, attendance.ErrAlreadyRecorded
	}
	rec.Set(slot, at)
	return *rec, nil
}

// Put stores a complete row, replacing any existing one.
func (r *AttendanceRepository) Put(rec attendance.Record) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.records[attendanceKey{eventID: rec.EventID, idNumber: rec.IDNumber}] = &rec
}

func (r *AttendanceRepository) Get(ctx context.Context, eventID, idNumber string) (*attendance.Record, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	rec, ok := r.db.records[attendanceKey{eventID: eventID, idNumber: idNumber}]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (r *AttendanceRepository) ForEvent(ctx context.Context, eventID string) (map[string]attendance.Record, error) {
	if r.FailEvent != "" && r.FailEvent == eventID {
		return nil, fmt.Errorf("attendance for event %s unavailable", eventID)
	}
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make(map[string]attendance.Record)
	for k, rec := range r.db.records {
		if k.eventID == eventID {
			out[k.idNumber] = *rec
		}
	}
	return out, nil
}

func (r *AttendanceRepository) ForStudent(ctx context.Context, idNumber string) (map[string]attendance.Record, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	out := make(map[string]attendance.Record)
	for k, rec := range r.db.records {
		if k.idNumber == idNumber {
			out[k.eventID] = *rec
		}
	}
	return out, nil
}

func (r *AttendanceRepository) Sheet(ctx context.Context, eventID string) ([]attendance.SheetRow, error) {
	r.db.mu.RLock()
	defer r.db.mu.RUnlock()

	var sheet []attendance.SheetRow
	for k, rec := range r.db.records {
		if k.eventID != eventID {
			continue
		}
		s, ok := r.db.students[k.idNumber]
		if !ok {
			continue
		}
		sheet = append(sheet, attendance.SheetRow{Record: *rec, FirstName: s.FirstName, LastName: s.LastName, Gender: s.Gender})
	}
	sort.Slice(sheet, func(i, j int) bool {
		if sheet[i].LastName != sheet[j].LastName {
			return sheet[i].LastName < sheet[j].LastName
		}
		return sheet[i].FirstName < sheet[j].FirstName
	})
	return sheet, nil
}
