package sanction

import (
	"fmt"
	"sort"
)

// Match returns the tier that applies to total absence units. ok is false
// when the student has no offense: a zero total, or no tiers at all.
//
// Tiers are scanned by ascending offense number and the first covering
// range wins. A total no range covers falls back to the tier with the
// largest max_absences, even when that tier's range does not contain it.
func Match(tiers []Tier, total int) (tier Tier, ok bool) {
	if total == 0 || len(tiers) == 0 {
		return Tier{}, false
	}
	ordered := sortedByOffense(tiers)
	for _, t := range ordered {
		if t.Covers(total) {
			return t, true
		}
	}
	widest := ordered[0]
	for _, t := range ordered[1:] {
		if t.MaxAbsences > widest.MaxAbsences {
			widest = t
		}
	}
	return widest, true
}

// Overlaps describes ranges that overlap or leave gaps. Matching keeps its
// first-match and fallback behavior either way; this only lets admins see
// the configuration problem.
func Overlaps(tiers []Tier) []string {
	if len(tiers) == 0 {
		return nil
	}
	byMin := make([]Tier, len(tiers))
	copy(byMin, tiers)
	sort.SliceStable(byMin, func(i, j int) bool {
		if byMin[i].MinAbsences == byMin[j].MinAbsences {
			return byMin[i].OffenseNumber < byMin[j].OffenseNumber
		}
		return byMin[i].MinAbsences < byMin[j].MinAbsences
	})

	var warnings []string
	if byMin[0].MinAbsences > 1 {
		warnings = append(warnings, fmt.Sprintf("absences 1-%d are not covered by any offense", byMin[0].MinAbsences-1))
	}
	reach := byMin[0]
	for _, t := range byMin[1:] {
		switch {
		case t.MinAbsences <= reach.MaxAbsences:
			warnings = append(warnings, fmt.Sprintf("offense %d overlaps offense %d", t.OffenseNumber, reach.OffenseNumber))
		case t.MinAbsences > reach.MaxAbsences+1:
			warnings = append(warnings, fmt.Sprintf("absences %d-%d are not covered by any offense", reach.MaxAbsences+1, t.MinAbsences-1))
		}
		if t.MaxAbsences > reach.MaxAbsences {
			reach = t
		}
	}
	return warnings
}

func sortedByOffense(tiers []Tier) []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	sort.SliceStable(out, func(i, j int) bool { return out[i].OffenseNumber < out[j].OffenseNumber })
	return out
}
