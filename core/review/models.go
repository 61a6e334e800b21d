package review

import (
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/capstone/core"
)

// DeadlineWindow is the interval during which a milestone is editable.
// Containment is inclusive on both ends.
type DeadlineWindow struct {
	From time.Time `json:"from" validate:"required"`
	To   time.Time `json:"to" validate:"required"`
}

func (w DeadlineWindow) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

func (w DeadlineWindow) Validate() error {
	if !w.To.After(w.From) {
		return core.NewValidationError(
			errors.New("invalid deadline window"),
			core.FieldError{Field: "to", Error: "deadline end must be after its start"},
		)
	}
	return nil
}

type Attendance struct {
	Value  bool `json:"value"`
	Locked bool `json:"locked"`
}

type PPTApproval struct {
	Approved bool `json:"approved"`
	Locked   bool `json:"locked"`
}

// ReviewRecord is one student's scored entry for one milestone. Unset
// components stay nil; review0 only ever uses Component1 (see componentCounts).
type ReviewRecord struct {
	Component1 *int       `json:"component1"`
	Component2 *int       `json:"component2,omitempty"`
	Component3 *int       `json:"component3,omitempty"`
	Attendance Attendance `json:"attendance"`
	Comments   string     `json:"comments"`
	Locked     bool       `json:"locked"`
}

type Student struct {
	ID          string                         `json:"id"`
	RegNo       string                         `json:"reg_no"`
	Name        string                         `json:"name"`
	Email       string                         `json:"email"`
	Reviews     map[Milestone]ReviewRecord     `json:"reviews"`
	PPTApproved PPTApproval                    `json:"ppt_approved"`
	Deadlines   map[Milestone]DeadlineWindow   `json:"deadlines,omitempty"` // per-student overrides, written only by request approval
	CreatedAt   time.Time                      `json:"created_at"`          // UTC
	UpdatedAt   time.Time                      `json:"updated_at"`          // UTC
}

// Review returns the student's record for m; the zero record when absent.
func (s Student) Review(m Milestone) ReviewRecord {
	return s.Reviews[m]
}

// EmptyReviews returns a fresh record set covering every milestone.
func EmptyReviews() map[Milestone]ReviewRecord {
	recs := make(map[Milestone]ReviewRecord, len(Milestones))
	for _, m := range Milestones {
		recs[m] = ReviewRecord{}
	}
	return recs
}

type Team struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	GuideFacultyID string    `json:"guide_faculty_id"`
	PanelID        string    `json:"panel_id,omitempty"` // empty when unassigned
	Students       []Student `json:"students"`
	CreatedAt      time.Time `json:"created_at"` // UTC
	UpdatedAt      time.Time `json:"updated_at"` // UTC
}

// Member returns the team member with the given regNo.
func (t Team) Member(regNo string) (Student, bool) {
	for _, s := range t.Students {
		if s.RegNo == regNo {
			return s, true
		}
	}
	return Student{}, false
}

func (t Team) HasFaculty(facultyID string) bool {
	return t.GuideFacultyID == facultyID
}

// Panel is a pair of distinct faculty scoring review2..review4; a panel must
// not include a team's own guide.
type Panel struct {
	ID         string    `json:"id"`
	Faculty1ID string    `json:"faculty1_id"`
	Faculty2ID string    `json:"faculty2_id"`
	CreatedAt  time.Time `json:"created_at"` // UTC
}

func (p Panel) HasMember(facultyID string) bool {
	return p.Faculty1ID == facultyID || p.Faculty2ID == facultyID
}

// RequestStatus is the state of an exception request. StatusNone is never
// stored; it is the aggregate answer when no actionable request exists.
type RequestStatus string

const (
	StatusNone     RequestStatus = "none"
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// ExceptionRequest is a faculty appeal to reopen a locked milestone.
type ExceptionRequest struct {
	ID           string        `json:"id"`
	FacultyID    string        `json:"faculty_id"`
	FacultyType  FacultyType   `json:"faculty_type"`
	StudentID    string        `json:"student_id"`
	StudentRegNo string        `json:"student_reg_no"`
	Milestone    Milestone     `json:"milestone"`
	Reason       string        `json:"reason"`
	Status       RequestStatus `json:"status"`
	CreatedAt    time.Time     `json:"created_at"`            // UTC
	ResolvedAt   time.Time     `json:"resolved_at,omitempty"` // zero until resolved
}

func (r ExceptionRequest) Resolved() bool {
	return !r.ResolvedAt.IsZero()
}

// Input payloads

type NewStudent struct {
	RegNo string `json:"reg_no" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required,email"`
}

type NewTeam struct {
	Name           string       `json:"name" validate:"required"`
	GuideFacultyID string       `json:"guide_faculty_id" validate:"required"`
	Students       []NewStudent `json:"students" validate:"required,min=1,max=3,dive"`
}

func (nt *NewTeam) Validate() error {
	nt.Name = core.CleanString(nt.Name)
	for i := range nt.Students {
		nt.Students[i].RegNo = core.CleanString(nt.Students[i].RegNo, true /* lower */)
		nt.Students[i].Name = core.CleanString(nt.Students[i].Name)
		nt.Students[i].Email = core.CleanString(nt.Students[i].Email, true /* lower */)
	}
	return core.Validate.Struct(nt)
}

// StudentReview is one student's row in a review submission. Components that
// the milestone does not define are ignored on write.
type StudentReview struct {
	RegNo      string `json:"reg_no" validate:"required"`
	Component1 *int   `json:"component1"`
	Component2 *int   `json:"component2"`
	Component3 *int   `json:"component3"`
	Attendance bool   `json:"attendance"`
	Comments   string `json:"comments"`
}

// SubmissionOutcome reports the write result for a single student so callers
// can retry only the failed subset.
type SubmissionOutcome struct {
	RegNo   string `json:"reg_no"`
	Updated bool   `json:"updated"`
	Error   string `json:"error,omitempty"`
}

type NewRequest struct {
	StudentRegNo string    `json:"student_reg_no" validate:"required"`
	Milestone    Milestone `json:"milestone" validate:"required"`
	Reason       string    `json:"reason" validate:"required"`
}

func (nr *NewRequest) Validate() error {
	nr.StudentRegNo = core.CleanString(nr.StudentRegNo, true /* lower */)
	nr.Reason = core.CleanString(nr.Reason)
	return core.Validate.Struct(nr)
}
