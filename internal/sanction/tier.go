package sanction

import (
	"fmt"
	"strings"
)

// Donation is one item of a donation-based sanction.
type Donation struct {
	Item  string `json:"item"`
	Count int    `json:"count"`
}

// Tier maps a band of absence units to the donations it requires.
type Tier struct {
	OffenseNumber int        `json:"offense_number"`
	Donations     []Donation `json:"donations"`
	MinAbsences   int        `json:"min_absences"`
	MaxAbsences   int        `json:"max_absences"`
}

// Covers reports whether total falls inside the tier's inclusive range.
func (t Tier) Covers(total int) bool {
	return t.MinAbsences <= total && total <= t.MaxAbsences
}

// Items returns the donation items in order.
func (t Tier) Items() []string {
	items := make([]string, len(t.Donations))
	for i, d := range t.Donations {
		items[i] = d.Item
	}
	return items
}

// Counts returns the donation counts in the same order as Items.
func (t Tier) Counts() []int {
	counts := make([]int, len(t.Donations))
	for i, d := range t.Donations {
		counts[i] = d.Count
	}
	return counts
}

// Validate checks the range and donations of a tier.
func (t Tier) Validate() error {
	if t.MinAbsences < 0 {
		return &ConfigurationError{Field: "min_absences", Message: "must not be negative"}
	}
	if t.MaxAbsences < t.MinAbsences {
		return &ConfigurationError{Field: "max_absences", Message: "must not be below min_absences"}
	}
	if len(t.Donations) == 0 {
		return &ConfigurationError{Field: "donations", Message: "at least one donation is required"}
	}
	for i, d := range t.Donations {
		if strings.TrimSpace(d.Item) == "" {
			return &ConfigurationError{Field: fmt.Sprintf("donations[%d].item", i), Message: "must not be empty"}
		}
		if d.Count <= 0 {
			return &ConfigurationError{Field: fmt.Sprintf("donations[%d].count", i), Message: "must be positive"}
		}
	}
	return nil
}

// PairDonations zips the legacy parallel item/count lists. Lists of
// different length are rejected.
func PairDonations(items []string, counts []int) ([]Donation, error) {
	if len(items) != len(counts) {
		return nil, &ConfigurationError{
			Field:   "donation_count",
			Message: fmt.Sprintf("%d counts given for %d donation items", len(counts), len(items)),
		}
	}
	donations := make([]Donation, len(items))
	for i := range items {
		donations[i] = Donation{Item: strings.TrimSpace(items[i]), Count: counts[i]}
	}
	return donations, nil
}
