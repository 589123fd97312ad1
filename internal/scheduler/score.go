package scheduler

import "fmt"

// Score is a lexicographic hard/soft score. Zero is perfect; penalties are negative.
type Score struct {
	Hard int64 `json:"hard"`
	Soft int64 `json:"soft"`
}

// Compare returns 1 when s is better than o, -1 when worse and 0 when equal.
// The hard component always dominates.
func (s Score) Compare(o Score) int {
	switch {
	case s.Hard > o.Hard:
		return 1
	case s.Hard < o.Hard:
		return -1
	case s.Soft > o.Soft:
		return 1
	case s.Soft < o.Soft:
		return -1
	default:
		return 0
	}
}

// Better reports whether s is strictly better than o.
func (s Score) Better(o Score) bool {
	return s.Compare(o) > 0
}

// Feasible is true when no hard rule is violated.
func (s Score) Feasible() bool {
	return s.Hard == 0
}

// Add sums two scores.
func (s Score) Add(o Score) Score {
	return Score{Hard: s.Hard + o.Hard, Soft: s.Soft + o.Soft}
}

func (s Score) String() string {
	return fmt.Sprintf("%dhard/%dsoft", s.Hard, s.Soft)
}
