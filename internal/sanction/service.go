package sanction

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"membership/internal/attendance"
)

// HistorySource returns a student's attendance at every event.
type HistorySource interface {
	ForStudent(ctx context.Context, idNumber string) ([]attendance.StudentEvent, error)
}

// TierInput holds the editable fields of a tier.
type TierInput struct {
	Donations   []Donation
	MinAbsences int
	MaxAbsences int
}

// Status is a student's current standing.
type Status struct {
	IDNumber      string                    `json:"id_number"`
	TotalAbsences int                       `json:"total_absences"`
	Listed        bool                      `json:"listed"`
	ListedTotal   int                       `json:"listed_total"`
	Offense       *Tier                     `json:"offense"`
	Events        []attendance.StudentEvent `json:"events"`
	Tiers         []Tier                    `json:"tiers"`
}

// Service manages offense tiers and answers sanction queries.
type Service struct {
	tiers   TierStore
	list    ListStore
	history HistorySource
	log     zerolog.Logger
}

// NewService creates a service.
func NewService(tiers TierStore, list ListStore, history HistorySource, log zerolog.Logger) *Service {
	return &Service{tiers: tiers, list: list, history: history, log: log}
}

// Tiers returns all tiers by ascending offense number.
func (s *Service) Tiers(ctx context.Context) ([]Tier, error) {
	return s.tiers.List(ctx)
}

// CreateTier appends a tier numbered one past the current tier count.
func (s *Service) CreateTier(ctx context.Context, in TierInput) (Tier, error) {
	n, err := s.tiers.Count(ctx)
	if err != nil {
		return Tier{}, err
	}
	t := Tier{OffenseNumber: n + 1, Donations: in.Donations, MinAbsences: in.MinAbsences, MaxAbsences: in.MaxAbsences}
	if err := t.Validate(); err != nil {
		return Tier{}, err
	}
	if err := s.tiers.Create(ctx, t); err != nil {
		if errors.Is(err, ErrConflict) {
			return Tier{}, s.conflict(ctx, t.OffenseNumber)
		}
		return Tier{}, err
	}
	s.log.Info().Int("offense_number", t.OffenseNumber).Msg("offense tier created")
	return t, nil
}

// conflict reports the taken offense number and the gaps left by deletes.
func (s *Service) conflict(ctx context.Context, n int) error {
	tiers, err := s.tiers.List(ctx)
	if err != nil {
		return fmt.Errorf("%w: offense %d", ErrConflict, n)
	}
	taken := make(map[int]bool, len(tiers))
	highest := 0
	for _, t := range tiers {
		taken[t.OffenseNumber] = true
		if t.OffenseNumber > highest {
			highest = t.OffenseNumber
		}
	}
	var gaps []string
	for i := 1; i < highest; i++ {
		if !taken[i] {
			gaps = append(gaps, strconv.Itoa(i))
		}
	}
	return fmt.Errorf("%w: next offense number %d is taken, missing numbers: %s", ErrConflict, n, strings.Join(gaps, ", "))
}

// UpdateTier replaces every field of a tier except its number.
func (s *Service) UpdateTier(ctx context.Context, offenseNumber int, in TierInput) (Tier, error) {
	t := Tier{OffenseNumber: offenseNumber, Donations: in.Donations, MinAbsences: in.MinAbsences, MaxAbsences: in.MaxAbsences}
	if err := t.Validate(); err != nil {
		return Tier{}, err
	}
	if err := s.tiers.Update(ctx, t); err != nil {
		return Tier{}, err
	}
	s.log.Info().Int("offense_number", offenseNumber).Msg("offense tier updated")
	return t, nil
}

// DeleteTier removes a tier without renumbering the others.
func (s *Service) DeleteTier(ctx context.Context, offenseNumber int) error {
	if err := s.tiers.Delete(ctx, offenseNumber); err != nil {
		return err
	}
	s.log.Info().Int("offense_number", offenseNumber).Msg("offense tier deleted")
	return nil
}

// TierFor returns the tier for total; ok is false for no offense.
func (s *Service) TierFor(ctx context.Context, total int) (Tier, bool, error) {
	tiers, err := s.tiers.List(ctx)
	if err != nil {
		return Tier{}, false, err
	}
	t, ok := Match(tiers, total)
	return t, ok, nil
}

// Warnings describes overlapping or gapped tier ranges.
func (s *Service) Warnings(ctx context.Context) ([]string, error) {
	tiers, err := s.tiers.List(ctx)
	if err != nil {
		return nil, err
	}
	return Overlaps(tiers), nil
}

// List returns the sanction list.
func (s *Service) List(ctx context.Context) ([]Entry, error) {
	return s.list.List(ctx)
}

// Entry returns one student's list entry.
func (s *Service) Entry(ctx context.Context, idNumber string) (Entry, error) {
	return s.list.Get(ctx, idNumber)
}

// RemoveEntry drops a student from the list until the next recompute.
func (s *Service) RemoveEntry(ctx context.Context, idNumber string) error {
	if err := s.list.Delete(ctx, idNumber); err != nil {
		return err
	}
	s.log.Info().Str("id_number", idNumber).Msg("sanction entry removed")
	return nil
}

// Status computes a student's live absence total from their attendance
// history and reports the offense it maps to.
func (s *Service) Status(ctx context.Context, idNumber string) (Status, error) {
	history, err := s.history.ForStudent(ctx, idNumber)
	if err != nil {
		return Status{}, err
	}
	tiers, err := s.tiers.List(ctx)
	if err != nil {
		return Status{}, err
	}

	st := Status{IDNumber: idNumber, Events: history, Tiers: tiers}
	for _, h := range history {
		st.TotalAbsences += h.Absences
	}
	if t, ok := Match(tiers, st.TotalAbsences); ok {
		st.Offense = &t
	}

	entry, err := s.list.Get(ctx, idNumber)
	switch {
	case err == nil:
		st.Listed = true
		st.ListedTotal = entry.TotalAbsences
	case !errors.Is(err, ErrNotListed):
		return Status{}, err
	}
	return st, nil
}
