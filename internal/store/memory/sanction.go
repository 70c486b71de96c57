package memory

import (
	"context"
	"fmt"
	"sort"

	"membership/internal/sanction"
	"membership/internal/student"
)

// TierStore keeps offense tiers in memory.
type TierStore struct {
	db *DB
}

func cloneTier(t sanction.Tier) sanction.Tier {
	t.Donations = append([]sanction.Donation(nil), t.Donations...)
	return t
}

func (s *TierStore) List(ctx context.Context) ([]sanction.Tier, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make([]sanction.Tier, 0, len(s.db.tiers))
	for _, t := range s.db.tiers {
		out = append(out, cloneTier(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OffenseNumber < out[j].OffenseNumber })
	return out, nil
}

func (s *TierStore) Count(ctx context.Context) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return len(s.db.tiers), nil
}

func (s *TierStore) Create(ctx context.Context, t sanction.Tier) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.tiers[t.OffenseNumber]; ok {
		return sanction.ErrConflict
	}
	s.db.tiers[t.OffenseNumber] = cloneTier(t)
	return nil
}

func (s *TierStore) Update(ctx context.Context, t sanction.Tier) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.tiers[t.OffenseNumber]; !ok {
		return sanction.ErrNotFound
	}
	s.db.tiers[t.OffenseNumber] = cloneTier(t)
	return nil
}

func (s *TierStore) Delete(ctx context.Context, offenseNumber int) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.tiers[offenseNumber]; !ok {
		return sanction.ErrNotFound
	}
	delete(s.db.tiers, offenseNumber)
	return nil
}

// ListStore keeps the sanction list in memory.
type ListStore struct {
	db *DB

	// Writes counts successful Reconcile calls, whether or not they changed
	// any entry. A rejected call leaves it untouched.
	Writes int
}

// Reconcile validates every id before applying anything, so a failed call
// leaves the list untouched.
func (s *ListStore) Reconcile(ctx context.Context, totals map[string]int) (sanction.Reconciliation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	for id := range totals {
		if _, ok := s.db.students[id]; !ok {
			return sanction.Reconciliation{}, fmt.Errorf("student %s does not exist", id)
		}
	}

	var rec sanction.Reconciliation
	now := s.db.now()
	for id, total := range totals {
		if total > 0 {
			st := s.db.students[id]
			s.db.sanctions[id] = &sanction.Entry{
				IDNumber:      id,
				StudentID:     st.StudentID,
				FirstName:     st.FirstName,
				LastName:      st.LastName,
				TotalAbsences: total,
				UpdatedAt:     now,
			}
			rec.Sanctioned++
			continue
		}
		if _, ok := s.db.sanctions[id]; ok {
			delete(s.db.sanctions, id)
			rec.Cleared++
		}
	}
	s.Writes++
	return rec, nil
}

func (s *ListStore) List(ctx context.Context) ([]sanction.Entry, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []sanction.Entry
	for id, e := range s.db.sanctions {
		st, ok := s.db.students[id]
		if !ok || st.Role != student.RoleStudent {
			continue
		}
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalAbsences != out[j].TotalAbsences {
			return out[i].TotalAbsences > out[j].TotalAbsences
		}
		return out[i].IDNumber < out[j].IDNumber
	})
	return out, nil
}

func (s *ListStore) Get(ctx context.Context, idNumber string) (sanction.Entry, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	if e, ok := s.db.sanctions[idNumber]; ok {
		return *e, nil
	}
	return sanction.Entry{}, sanction.ErrNotListed
}

func (s *ListStore) Delete(ctx context.Context, idNumber string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, ok := s.db.sanctions[idNumber]; !ok {
		return sanction.ErrNotListed
	}
	delete(s.db.sanctions, idNumber)
	return nil
}
