package review

import "github.com/trezcool/capstone/core"

// MaxComponentScore is the upper bound of every scorable component.
const MaxComponentScore = 10

// sanitizeScore rejects out-of-range values by resetting them to 0 instead of
// clamping or failing the row. Unset stays unset.
func sanitizeScore(v *int) *int {
	if v == nil {
		return nil
	}
	score := *v
	if score < 0 || score > MaxComponentScore {
		score = 0
	}
	return &score
}

// NormalizeRecord applies the write-time rules to a submitted row and returns
// the record to persist:
//   - only components the milestone defines are kept; extras are dropped
//   - out-of-range scores reset to 0
//   - a marked absence zeroes every defined component and empties comments,
//     regardless of what was submitted alongside it
func NormalizeRecord(m Milestone, sr StudentReview) ReviewRecord {
	rec := ReviewRecord{
		Attendance: Attendance{Value: sr.Attendance},
		Comments:   core.CleanString(sr.Comments),
	}

	submitted := []*int{sr.Component1, sr.Component2, sr.Component3}
	components := make([]*int, len(submitted))
	for i := 0; i < m.ComponentCount(); i++ {
		components[i] = sanitizeScore(submitted[i])
	}

	if !sr.Attendance {
		// absence wins over any entered marks
		zero := 0
		for i := 0; i < m.ComponentCount(); i++ {
			z := zero
			components[i] = &z
		}
		rec.Comments = ""
	}

	rec.Component1, rec.Component2, rec.Component3 = components[0], components[1], components[2]
	return rec
}
