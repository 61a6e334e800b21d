package review

// TeamPptApproved reports whether the whole team's PPT is approved: at least
// one member, and every member approved. An empty team is never approved.
func TeamPptApproved(t Team) bool {
	if len(t.Students) == 0 {
		return false
	}
	for _, s := range t.Students {
		if !s.PPTApproved.Approved {
			return false
		}
	}
	return true
}

// TeamLocked reports whether any member is locked for m. Display only; write
// gating stays per-student at submission time.
func TeamLocked(t Team, m Milestone, defaults map[Milestone]DeadlineWindow) bool {
	for i, s := range t.Students {
		teammates := make([]Student, 0, len(t.Students)-1)
		teammates = append(teammates, t.Students[:i]...)
		teammates = append(teammates, t.Students[i+1:]...)
		if IsLocked(s, m, defaults, teammates...) {
			return true
		}
	}
	return false
}

// TeamRequestStatus derives the team's exception-request badge for m from the
// members' latest requests. Precedence:
//  1. any member pending  -> pending
//  2. milestone currently locked -> none (a stale approval must not read as
//     actionable once a new deadline boundary re-locks it)
//  3. any member approved -> approved
//  4. otherwise           -> none
func TeamRequestStatus(t Team, m Milestone, defaults map[Milestone]DeadlineWindow, requests []ExceptionRequest) RequestStatus {
	latest := make(map[string]ExceptionRequest, len(t.Students))
	for _, req := range requests {
		if req.Milestone != m {
			continue
		}
		if cur, ok := latest[req.StudentID]; !ok || req.CreatedAt.After(cur.CreatedAt) {
			latest[req.StudentID] = req
		}
	}

	var anyApproved bool
	for _, s := range t.Students {
		req, ok := latest[s.ID]
		if !ok {
			continue
		}
		switch req.Status {
		case StatusPending:
			return StatusPending
		case StatusApproved:
			anyApproved = true
		}
	}

	if TeamLocked(t, m, defaults) {
		return StatusNone
	}
	if anyApproved {
		return StatusApproved
	}
	return StatusNone
}
