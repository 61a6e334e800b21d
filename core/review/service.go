package review

import (
	"errors"
	"fmt"
	"net/mail"
	texttmpl "text/template"
	"time"

	"github.com/trezcool/capstone/core"
	"github.com/trezcool/capstone/core/faculty"
)

var (
	// errors
	ErrTeamNotFound    = errors.New("team not found")
	ErrStudentNotFound = errors.New("student not found")
	ErrPanelNotFound   = errors.New("panel not found")
	ErrRequestNotFound = errors.New("request not found")

	ErrTeamNameExists = errors.New("a team with this name already exists")

	ErrFacultyNotAssigned = errors.New("faculty is not assigned to this team")

	// state conflicts; the transport layer surfaces these as named conditions
	ErrMilestoneLocked         = errors.New("milestone is locked")
	ErrMilestoneNotLocked      = errors.New("milestone is not locked; no exception needed")
	ErrDuplicateRequest        = errors.New("a pending request already exists for this student and milestone")
	ErrInvalidMilestoneForRole = errors.New("this faculty role cannot request this milestone")
	ErrRequestResolved         = errors.New("request has already been resolved")
)

// IsStateConflict reports whether err names a clash with current record state
// rather than a malformed input.
func IsStateConflict(err error) bool {
	switch err {
	case ErrMilestoneLocked, ErrMilestoneNotLocked, ErrDuplicateRequest, ErrRequestResolved:
		return true
	}
	return false
}

type (
	Repository interface {
		// system default deadlines (singleton; empty map until first save)
		GetDefaultDeadlines() (map[Milestone]DeadlineWindow, error)
		SetDefaultDeadlines(windows map[Milestone]DeadlineWindow) error

		CreateTeam(team Team) (Team, error)
		DeleteTeam(id string) error
		GetTeamByID(id string) (Team, error)
		GetTeamByName(name string) (Team, error)
		GetTeamForStudent(studentID string) (Team, error)
		QueryAllTeams() ([]Team, error)
		QueryTeamsByGuide(facultyID string) ([]Team, error)
		QueryTeamsByPanelMember(facultyID string) ([]Team, error)
		// SetTeamPanel assigns panelID to the team; an empty panelID clears it.
		SetTeamPanel(teamID, panelID string) error

		CreateStudent(st Student) (Student, error)
		GetStudentByID(id string) (Student, error)
		GetStudentByRegNo(regNo string) (Student, error)
		UpdateStudent(st Student) (Student, error)

		CreatePanel(p Panel) (Panel, error)
		// DeletePanel removes the panel and clears it from referencing teams.
		DeletePanel(id string) error
		GetPanelByID(id string) (Panel, error)
		QueryAllPanels() ([]Panel, error)

		CreateRequest(req ExceptionRequest) (ExceptionRequest, error)
		GetRequestByID(id string) (ExceptionRequest, error)
		QueryRequestsByFacultyType(ft FacultyType) ([]ExceptionRequest, error)
		QueryRequestsForStudent(studentID string, ft FacultyType, m Milestone) ([]ExceptionRequest, error)
		QueryRequestsForTeam(t Team, ft FacultyType, m Milestone) ([]ExceptionRequest, error)
		UpdateRequest(req ExceptionRequest) (ExceptionRequest, error)
	}

	Service struct {
		repo    Repository
		facSvc  *faculty.Service
		mailSvc core.EmailService
		log     core.Logger
	}
)

func NewService(repo Repository, facSvc *faculty.Service, mailSvc core.EmailService, logger core.Logger) *Service {
	return &Service{
		repo:    repo,
		facSvc:  facSvc,
		mailSvc: mailSvc,
		log:     logger,
	}
}

// Deadlines

func (svc *Service) DefaultDeadlines() (map[Milestone]DeadlineWindow, error) {
	return svc.repo.GetDefaultDeadlines()
}

func (svc *Service) SetDefaultDeadlines(windows map[Milestone]DeadlineWindow) error {
	flds := make([]core.FieldError, 0, len(windows))
	for m, w := range windows {
		if !m.IsValid() {
			flds = append(flds, core.FieldError{Field: string(m), Error: "unknown milestone"})
			continue
		}
		if !w.To.After(w.From) {
			flds = append(flds, core.FieldError{Field: string(m), Error: "deadline end must be after its start"})
		}
	}
	if len(flds) > 0 {
		return core.NewValidationError(errors.New("invalid deadlines"), flds...)
	}
	return svc.repo.SetDefaultDeadlines(windows)
}

// defaultDeadlines fetches the system windows, downgrading an unset singleton
// to an empty map so lock checks fail open with a warning.
func (svc *Service) defaultDeadlines() (map[Milestone]DeadlineWindow, error) {
	defaults, err := svc.repo.GetDefaultDeadlines()
	if err != nil {
		return nil, err
	}
	if len(defaults) == 0 {
		svc.log.Warn("no system default deadlines configured; milestones resolve as unlocked")
	}
	return defaults, nil
}

// Teams

func (svc *Service) CreateTeam(nt NewTeam) (Team, error) {
	if err := nt.Validate(); err != nil {
		return Team{}, err
	}
	if _, err := svc.repo.GetTeamByName(nt.Name); err == nil {
		return Team{}, core.NewValidationError(ErrTeamNameExists, core.FieldError{Field: "name", Error: ErrTeamNameExists.Error()})
	} else if err != ErrTeamNotFound {
		return Team{}, err
	}
	if _, err := svc.facSvc.GetByID(nt.GuideFacultyID); err != nil {
		if err == faculty.ErrNotFound {
			return Team{}, core.NewValidationError(err, core.FieldError{Field: "guide_faculty_id", Error: err.Error()})
		}
		return Team{}, err
	}

	now := time.Now().UTC()
	students := make([]Student, 0, len(nt.Students))
	for _, ns := range nt.Students {
		// students are shared across cohorts by regNo: reuse when known
		st, err := svc.repo.GetStudentByRegNo(ns.RegNo)
		if err == ErrStudentNotFound {
			st, err = svc.repo.CreateStudent(Student{
				RegNo:     ns.RegNo,
				Name:      ns.Name,
				Email:     ns.Email,
				Reviews:   EmptyReviews(),
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		if err != nil {
			return Team{}, err
		}
		students = append(students, st)
	}

	return svc.repo.CreateTeam(Team{
		Name:           nt.Name,
		GuideFacultyID: nt.GuideFacultyID,
		Students:       students,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (svc *Service) DeleteTeam(id string) error {
	return svc.repo.DeleteTeam(id)
}

func (svc *Service) GetTeam(id string) (Team, error) {
	return svc.repo.GetTeamByID(id)
}

func (svc *Service) Teams() ([]Team, error) {
	return svc.repo.QueryAllTeams()
}

// FacultyTypeFor resolves the role the given faculty member plays for a team.
func (svc *Service) FacultyTypeFor(t Team, facultyID string) (FacultyType, error) {
	if t.HasFaculty(facultyID) {
		return GuideFaculty, nil
	}
	if t.PanelID != "" {
		panel, err := svc.repo.GetPanelByID(t.PanelID)
		if err != nil {
			return "", err
		}
		if panel.HasMember(facultyID) {
			return PanelFaculty, nil
		}
	}
	return "", ErrFacultyNotAssigned
}

func (svc *Service) TeamsForGuide(facultyID string) ([]Team, error) {
	return svc.repo.QueryTeamsByGuide(facultyID)
}

func (svc *Service) TeamsForPanelMember(facultyID string) ([]Team, error) {
	return svc.repo.QueryTeamsByPanelMember(facultyID)
}

// Panels

func (svc *Service) CreatePanel(faculty1ID, faculty2ID string) (Panel, error) {
	if faculty1ID == "" || faculty2ID == "" || faculty1ID == faculty2ID {
		return Panel{}, core.NewValidationError(errors.New("two distinct faculty ids are required"))
	}
	for _, id := range []string{faculty1ID, faculty2ID} {
		if _, err := svc.facSvc.GetByID(id); err != nil {
			return Panel{}, err
		}
	}
	return svc.repo.CreatePanel(Panel{
		Faculty1ID: faculty1ID,
		Faculty2ID: faculty2ID,
		CreatedAt:  time.Now().UTC(),
	})
}

func (svc *Service) DeletePanel(id string) error {
	return svc.repo.DeletePanel(id)
}

func (svc *Service) Panels() ([]Panel, error) {
	return svc.repo.QueryAllPanels()
}

// AssignPanel assigns panelID to the team; an empty panelID unassigns. A
// team's guide must not sit on its own panel.
func (svc *Service) AssignPanel(teamID, panelID string) error {
	team, err := svc.repo.GetTeamByID(teamID)
	if err != nil {
		return err
	}
	if panelID == "" {
		return svc.repo.SetTeamPanel(teamID, "")
	}
	panel, err := svc.repo.GetPanelByID(panelID)
	if err != nil {
		return err
	}
	if panel.HasMember(team.GuideFacultyID) {
		return core.NewValidationError(errors.New("guide faculty cannot be a panel member for their own team"))
	}
	return svc.repo.SetTeamPanel(teamID, panelID)
}

// AutoCreatePanels pairs up every non-admin faculty member into panels. When
// panels already exist, force must be set; existing panels are then removed
// (clearing team assignments) and recreated. Returns the number created.
func (svc *Service) AutoCreatePanels(force bool) (int, error) {
	existing, err := svc.repo.QueryAllPanels()
	if err != nil {
		return 0, err
	}
	if len(existing) > 0 {
		if !force {
			return 0, core.NewValidationError(errors.New("panels already exist; set force to recreate them"))
		}
		for _, p := range existing {
			if err := svc.repo.DeletePanel(p.ID); err != nil {
				return 0, err
			}
		}
	}

	all, err := svc.facSvc.QueryAll()
	if err != nil {
		return 0, err
	}
	members := make([]faculty.Faculty, 0, len(all))
	for _, f := range all {
		if f.Role == faculty.RoleFaculty {
			members = append(members, f)
		}
	}
	if len(members) < 2 {
		return 0, core.NewValidationError(errors.New("not enough faculty members to create panels"))
	}

	var created int
	for i := 0; i+1 < len(members); i += 2 {
		if _, err := svc.CreatePanel(members[i].ID, members[i+1].ID); err != nil {
			return created, err
		}
		created++
	}
	if len(members)%2 != 0 {
		// odd one out pairs with the first member
		if _, err := svc.CreatePanel(members[len(members)-1].ID, members[0].ID); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// AutoAssignPanels gives every unassigned team the least-loaded panel that
// does not include its guide. Teams with no eligible panel are skipped with a
// warning.
func (svc *Service) AutoAssignPanels() error {
	teams, err := svc.repo.QueryAllTeams()
	if err != nil {
		return err
	}
	panels, err := svc.repo.QueryAllPanels()
	if err != nil {
		return err
	}
	if len(panels) == 0 {
		return core.NewValidationError(errors.New("no panels available"))
	}

	loads := make(map[string]int, len(panels))
	for _, t := range teams {
		if t.PanelID != "" {
			loads[t.PanelID]++
		}
	}

	for _, t := range teams {
		if t.PanelID != "" {
			continue
		}
		var best *Panel
		for i, p := range panels {
			if p.HasMember(t.GuideFacultyID) {
				continue
			}
			if best == nil || loads[p.ID] < loads[best.ID] {
				best = &panels[i]
			}
		}
		if best == nil {
			svc.log.Warn(fmt.Sprintf("no eligible panel for team %q", t.Name))
			continue
		}
		if err := svc.repo.SetTeamPanel(t.ID, best.ID); err != nil {
			return err
		}
		loads[best.ID]++
	}
	return nil
}

// Review submission

// SubmitReview persists one review row per student for the given milestone.
// Each row is validated and written independently; the returned outcomes let
// the caller retry only the failed subset. The lock state is re-resolved here
// per student; a client-side "unlocked" claim is advisory only. When the
// milestone carries team PPT approval and teamPpt is supplied, the same value
// fans out to every member of the team.
func (svc *Service) SubmitReview(teamID string, m Milestone, reviews []StudentReview, teamPpt *bool) ([]SubmissionOutcome, error) {
	if !m.IsValid() {
		return nil, core.NewValidationError(errors.New("unknown milestone"), core.FieldError{Field: "milestone", Error: "unknown milestone"})
	}
	team, err := svc.repo.GetTeamByID(teamID)
	if err != nil {
		return nil, err
	}
	defaults, err := svc.defaultDeadlines()
	if err != nil {
		return nil, err
	}

	outcomes := make([]SubmissionOutcome, 0, len(reviews))
	updated := make(map[string]Student, len(reviews))
	for _, sr := range reviews {
		st, ok := team.Member(core.CleanString(sr.RegNo, true /* lower */))
		if !ok {
			outcomes = append(outcomes, SubmissionOutcome{RegNo: sr.RegNo, Error: "student is not a member of this team"})
			continue
		}
		if IsLocked(st, m, defaults, team.Students...) {
			outcomes = append(outcomes, SubmissionOutcome{RegNo: sr.RegNo, Error: ErrMilestoneLocked.Error()})
			continue
		}

		rec := NormalizeRecord(m, sr)
		// the explicit locks are admin state, never client state
		prev := st.Review(m)
		rec.Locked = prev.Locked
		rec.Attendance.Locked = prev.Attendance.Locked

		if st.Reviews == nil {
			st.Reviews = EmptyReviews()
		}
		st.Reviews[m] = rec
		st.UpdatedAt = time.Now().UTC()

		st, err = svc.repo.UpdateStudent(st)
		if err != nil {
			outcomes = append(outcomes, SubmissionOutcome{RegNo: sr.RegNo, Error: err.Error()})
			continue
		}
		updated[st.RegNo] = st
		outcomes = append(outcomes, SubmissionOutcome{RegNo: sr.RegNo, Updated: true})
	}

	if teamPpt != nil && m.HasTeamPPTApproval() {
		// team-wide, not per-student, approval
		for _, st := range team.Students {
			if fresh, ok := updated[st.RegNo]; ok {
				st = fresh
			}
			if st.PPTApproved.Locked || st.PPTApproved.Approved == *teamPpt {
				continue
			}
			st.PPTApproved.Approved = *teamPpt
			st.UpdatedAt = time.Now().UTC()
			if _, err := svc.repo.UpdateStudent(st); err != nil {
				svc.log.Error(fmt.Sprintf("updating team PPT approval for %s", st.RegNo), err)
			}
		}
	}

	return outcomes, nil
}

// Exception requests

// FileRequest opens a pending exception request for a locked milestone.
func (svc *Service) FileRequest(facultyID string, ft FacultyType, nr NewRequest) (ExceptionRequest, error) {
	if !ft.IsValid() {
		return ExceptionRequest{}, core.NewValidationError(errors.New("faculty type must be guide or panel"))
	}
	if err := nr.Validate(); err != nil {
		return ExceptionRequest{}, err
	}
	if !ft.CanScore(nr.Milestone) {
		return ExceptionRequest{}, ErrInvalidMilestoneForRole
	}

	st, err := svc.repo.GetStudentByRegNo(nr.StudentRegNo)
	if err != nil {
		return ExceptionRequest{}, err
	}

	defaults, err := svc.defaultDeadlines()
	if err != nil {
		return ExceptionRequest{}, err
	}
	var teammates []Student
	if team, err := svc.repo.GetTeamForStudent(st.ID); err == nil {
		teammates = team.Students
	} else if err != ErrTeamNotFound {
		return ExceptionRequest{}, err
	}
	if !IsLocked(st, nr.Milestone, defaults, teammates...) {
		return ExceptionRequest{}, ErrMilestoneNotLocked
	}

	prev, err := svc.repo.QueryRequestsForStudent(st.ID, ft, nr.Milestone)
	if err != nil {
		return ExceptionRequest{}, err
	}
	for _, req := range prev {
		if req.Status == StatusPending {
			return ExceptionRequest{}, ErrDuplicateRequest
		}
	}

	return svc.repo.CreateRequest(ExceptionRequest{
		FacultyID:    facultyID,
		FacultyType:  ft,
		StudentID:    st.ID,
		StudentRegNo: st.RegNo,
		Milestone:    nr.Milestone,
		Reason:       nr.Reason,
		Status:       StatusPending,
		CreatedAt:    time.Now().UTC(),
	})
}

// ApproveRequest resolves a pending request, extends the student's deadline
// for the requested milestone to newDeadlineTo and clears the explicit record
// lock. This is the only path that writes a per-student override window.
func (svc *Service) ApproveRequest(requestID string, newDeadlineTo time.Time) (ExceptionRequest, error) {
	if newDeadlineTo.IsZero() {
		return ExceptionRequest{}, core.NewValidationError(
			errors.New("invalid deadline"),
			core.FieldError{Field: "new_deadline_to", Error: "this field is required"},
		)
	}
	now := nowFunc().UTC()
	if !newDeadlineTo.After(now) {
		return ExceptionRequest{}, core.NewValidationError(
			errors.New("invalid deadline"),
			core.FieldError{Field: "new_deadline_to", Error: "new deadline must be in the future"},
		)
	}

	req, err := svc.repo.GetRequestByID(requestID)
	if err != nil {
		return ExceptionRequest{}, err
	}
	if req.Resolved() {
		return ExceptionRequest{}, ErrRequestResolved
	}

	st, err := svc.repo.GetStudentByID(req.StudentID)
	if err != nil {
		return ExceptionRequest{}, err
	}

	rec := st.Review(req.Milestone)
	rec.Locked = false
	if st.Reviews == nil {
		st.Reviews = EmptyReviews()
	}
	st.Reviews[req.Milestone] = rec

	win, hadOverride := st.Deadlines[req.Milestone]
	if !hadOverride {
		win.From = now
	}
	win.To = newDeadlineTo.UTC()
	if st.Deadlines == nil {
		st.Deadlines = make(map[Milestone]DeadlineWindow, 1)
	}
	st.Deadlines[req.Milestone] = win
	st.UpdatedAt = now
	if _, err = svc.repo.UpdateStudent(st); err != nil {
		return ExceptionRequest{}, err
	}

	req.Status = StatusApproved
	req.ResolvedAt = now
	req, err = svc.repo.UpdateRequest(req)
	if err != nil {
		return ExceptionRequest{}, err
	}

	svc.notifyResolution(req, st)
	return req, nil
}

// RejectRequest resolves a pending request without touching the student record.
func (svc *Service) RejectRequest(requestID string) (ExceptionRequest, error) {
	req, err := svc.repo.GetRequestByID(requestID)
	if err != nil {
		return ExceptionRequest{}, err
	}
	if req.Resolved() {
		return ExceptionRequest{}, ErrRequestResolved
	}

	req.Status = StatusRejected
	req.ResolvedAt = nowFunc().UTC()
	req, err = svc.repo.UpdateRequest(req)
	if err != nil {
		return ExceptionRequest{}, err
	}

	if st, err := svc.repo.GetStudentByID(req.StudentID); err == nil {
		svc.notifyResolution(req, st)
	}
	return req, nil
}

var requestResolvedTmpl = texttmpl.Must(texttmpl.New("requestResolved").Parse(
	`Hello {{.Data.FacultyName}},

Your deadline exception request for {{.Data.StudentName}} ({{.Data.Milestone}}) has been {{.Data.Status}}.

Manage review scores at {{.FrontendBaseURL}}.`))

type requestResolvedData struct {
	FacultyName string
	StudentName string
	Milestone   Milestone
	Status      RequestStatus
}

func (svc *Service) notifyResolution(req ExceptionRequest, st Student) {
	fac, err := svc.facSvc.GetByID(req.FacultyID)
	if err != nil {
		svc.log.Warn(fmt.Sprintf("request %s: requesting faculty not found for notification", req.ID))
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:       []mail.Address{{Name: fac.Name, Address: fac.Email}},
		Subject:  "Exception request " + string(req.Status),
		Template: requestResolvedTmpl,
		TemplateData: requestResolvedData{
			FacultyName: fac.Name,
			StudentName: st.Name,
			Milestone:   req.Milestone,
			Status:      req.Status,
		},
	})
}

// RequestGroup is the admin queue view: a faculty member and their requests.
type RequestGroup struct {
	Faculty  faculty.Faculty    `json:"faculty"`
	Requests []ExceptionRequest `json:"requests"`
}

// RequestsByFaculty returns the requests filed by the given faculty role,
// grouped per requesting faculty member for the admin review queue.
func (svc *Service) RequestsByFaculty(ft FacultyType) ([]RequestGroup, error) {
	if !ft.IsValid() {
		return nil, core.NewValidationError(errors.New("faculty type must be guide or panel"))
	}
	requests, err := svc.repo.QueryRequestsByFacultyType(ft)
	if err != nil {
		return nil, err
	}

	groups := make([]RequestGroup, 0)
	index := make(map[string]int)
	for _, req := range requests {
		i, ok := index[req.FacultyID]
		if !ok {
			fac, err := svc.facSvc.GetByID(req.FacultyID)
			if err != nil {
				svc.log.Warn(fmt.Sprintf("request %s: faculty %s not found; skipping", req.ID, req.FacultyID))
				continue
			}
			index[req.FacultyID] = len(groups)
			groups = append(groups, RequestGroup{Faculty: fac})
			i = index[req.FacultyID]
		}
		groups[i].Requests = append(groups[i].Requests, req)
	}
	return groups, nil
}

// TeamRequestStatus answers the team-level badge for a milestone as seen by
// the given faculty role.
func (svc *Service) TeamRequestStatus(teamID string, ft FacultyType, m Milestone) (RequestStatus, error) {
	team, err := svc.repo.GetTeamByID(teamID)
	if err != nil {
		return StatusNone, err
	}
	defaults, err := svc.defaultDeadlines()
	if err != nil {
		return StatusNone, err
	}
	requests, err := svc.repo.QueryRequestsForTeam(team, ft, m)
	if err != nil {
		return StatusNone, err
	}
	return TeamRequestStatus(team, m, defaults, requests), nil
}

// IsLocked resolves the current lock state for one student of a team.
func (svc *Service) IsLocked(teamID, regNo string, m Milestone) (bool, error) {
	team, err := svc.repo.GetTeamByID(teamID)
	if err != nil {
		return false, err
	}
	st, ok := team.Member(core.CleanString(regNo, true /* lower */))
	if !ok {
		return false, ErrStudentNotFound
	}
	defaults, err := svc.defaultDeadlines()
	if err != nil {
		return false, err
	}
	return IsLocked(st, m, defaults, team.Students...), nil
}
