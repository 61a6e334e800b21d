package review

// Milestone identifies a review stage in the capstone cycle.
type Milestone string

const (
	Review0     Milestone = "review0"
	DraftReview Milestone = "draftReview"
	Review1     Milestone = "review1" // final guide review
	Review2     Milestone = "review2"
	Review3     Milestone = "review3"
	Review4     Milestone = "review4" // final review
)

// Milestones lists all stages in sequence order.
var Milestones = []Milestone{Review0, DraftReview, Review1, Review2, Review3, Review4}

// componentCounts drives per-milestone component dispatch; everything that
// varies by milestone hangs off this table rather than branching on names.
var componentCounts = map[Milestone]int{
	Review0:     1,
	DraftReview: 3,
	Review1:     3,
	Review2:     3,
	Review3:     3,
	Review4:     3,
}

func (m Milestone) IsValid() bool {
	_, ok := componentCounts[m]
	return ok
}

// ComponentCount returns the number of scorable components for m (0 if unknown).
func (m Milestone) ComponentCount() int {
	return componentCounts[m]
}

// HasTeamPPTApproval reports whether m carries the team-wide PPT-approval flag.
func (m Milestone) HasTeamPPTApproval() bool {
	switch m {
	case Review1, Review2, Review3, Review4:
		return true
	}
	return false
}

// FacultyType distinguishes the two scoring roles on a team.
type FacultyType string

const (
	GuideFaculty FacultyType = "guide"
	PanelFaculty FacultyType = "panel"
)

var milestonesByFacultyType = map[FacultyType][]Milestone{
	GuideFaculty: {Review0, DraftReview, Review1},
	PanelFaculty: {Review2, Review3, Review4},
}

// ScoringFaculty returns the role that scores m.
func (m Milestone) ScoringFaculty() FacultyType {
	for ft, milestones := range milestonesByFacultyType {
		for _, ms := range milestones {
			if ms == m {
				return ft
			}
		}
	}
	return ""
}

func (ft FacultyType) IsValid() bool {
	_, ok := milestonesByFacultyType[ft]
	return ok
}

// CanScore reports whether ft is the scoring role for m.
func (ft FacultyType) CanScore(m Milestone) bool {
	for _, ms := range milestonesByFacultyType[ft] {
		if ms == m {
			return true
		}
	}
	return false
}
