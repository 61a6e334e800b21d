package review

import "time"

// nowFunc is mockable in tests.
var nowFunc = time.Now

// EffectiveWindow resolves the deadline window governing m for the given
// members. A per-student override wins over the system default; when several
// members carry overrides, the window with the latest end applies to all of
// them, so one member's override never hides another's. The second return is
// false when neither an override nor a default exists.
func EffectiveWindow(m Milestone, defaults map[Milestone]DeadlineWindow, members ...Student) (DeadlineWindow, bool) {
	var (
		win   DeadlineWindow
		found bool
	)
	for _, s := range members {
		if ow, ok := s.Deadlines[m]; ok {
			if !found || ow.To.After(win.To) {
				win = ow
				found = true
			}
		}
	}
	if found {
		return win, true
	}
	win, ok := defaults[m]
	return win, ok
}

// IsLocked reports whether m is currently write-protected for s. The explicit
// record lock short-circuits; otherwise the effective window decides. Both
// "not yet open" and "past due" count as locked. Teammates participate in the
// override resolution for team-scoped checks. A milestone with no window
// configured anywhere fails open.
func IsLocked(s Student, m Milestone, defaults map[Milestone]DeadlineWindow, teammates ...Student) bool {
	if s.Review(m).Locked {
		return true
	}
	members := make([]Student, 0, len(teammates)+1)
	members = append(members, s)
	members = append(members, teammates...)
	win, ok := EffectiveWindow(m, defaults, members...)
	if !ok {
		return false
	}
	return !win.Contains(nowFunc())
}
