package inmemdb

import (
	"sort"

	"github.com/google/uuid"

	"github.com/trezcool/capstone/core/review"
)

type reviewRepository struct {
	db *DB
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *DB) review.Repository {
	return &reviewRepository{db: db}
}

// deadlines

func (repo *reviewRepository) GetDefaultDeadlines() (map[review.Milestone]review.DeadlineWindow, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	windows := make(map[review.Milestone]review.DeadlineWindow, len(repo.db.deadlines))
	for m, w := range repo.db.deadlines {
		windows[m] = w
	}
	return windows, nil
}

func (repo *reviewRepository) SetDefaultDeadlines(windows map[review.Milestone]review.DeadlineWindow) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for m, w := range windows {
		repo.db.deadlines[m] = w
	}
	return nil
}

// teams

// refresh re-reads member students so team snapshots never go stale.
// Callers must hold at least a read lock.
func (repo *reviewRepository) refresh(t review.Team) review.Team {
	students := make([]review.Student, 0, len(t.Students))
	for _, s := range t.Students {
		if cur, ok := repo.db.students[s.ID]; ok {
			students = append(students, *cur)
		}
	}
	t.Students = students
	return t
}

func (repo *reviewRepository) CreateTeam(team review.Team) (review.Team, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	team.ID = uuid.New().String()
	repo.db.teams[team.ID] = &team
	return repo.refresh(team), nil
}

func (repo *reviewRepository) DeleteTeam(id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.teams[id]; !ok {
		return review.ErrTeamNotFound
	}
	delete(repo.db.teams, id)
	return nil
}

func (repo *reviewRepository) GetTeamByID(id string) (review.Team, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if t, ok := repo.db.teams[id]; ok {
		return repo.refresh(*t), nil
	}
	return review.Team{}, review.ErrTeamNotFound
}

func (repo *reviewRepository) GetTeamByName(name string) (review.Team, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, t := range repo.db.teams {
		if t.Name == name {
			return repo.refresh(*t), nil
		}
	}
	return review.Team{}, review.ErrTeamNotFound
}

func (repo *reviewRepository) GetTeamForStudent(studentID string) (review.Team, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, t := range repo.db.teams {
		for _, s := range t.Students {
			if s.ID == studentID {
				return repo.refresh(*t), nil
			}
		}
	}
	return review.Team{}, review.ErrTeamNotFound
}

func (repo *reviewRepository) queryTeams(match func(review.Team) bool) []review.Team {
	teams := make([]review.Team, 0, len(repo.db.teams))
	for _, t := range repo.db.teams {
		if match(*t) {
			teams = append(teams, repo.refresh(*t))
		}
	}
	sort.Slice(teams, func(i, j int) bool { return teams[i].Name < teams[j].Name })
	return teams
}

func (repo *reviewRepository) QueryAllTeams() ([]review.Team, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryTeams(func(review.Team) bool { return true }), nil
}

func (repo *reviewRepository) QueryTeamsByGuide(facultyID string) ([]review.Team, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryTeams(func(t review.Team) bool { return t.GuideFacultyID == facultyID }), nil
}

func (repo *reviewRepository) QueryTeamsByPanelMember(facultyID string) ([]review.Team, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryTeams(func(t review.Team) bool {
		if t.PanelID == "" {
			return false
		}
		p, ok := repo.db.panels[t.PanelID]
		return ok && p.HasMember(facultyID)
	}), nil
}

func (repo *reviewRepository) SetTeamPanel(teamID, panelID string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	t, ok := repo.db.teams[teamID]
	if !ok {
		return review.ErrTeamNotFound
	}
	if panelID != "" {
		if _, ok := repo.db.panels[panelID]; !ok {
			return review.ErrPanelNotFound
		}
	}
	t.PanelID = panelID
	return nil
}

// students

func (repo *reviewRepository) CreateStudent(st review.Student) (review.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	st.ID = uuid.New().String()
	repo.db.students[st.ID] = &st
	return st, nil
}

func (repo *reviewRepository) GetStudentByID(id string) (review.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if st, ok := repo.db.students[id]; ok {
		return *st, nil
	}
	return review.Student{}, review.ErrStudentNotFound
}

func (repo *reviewRepository) GetStudentByRegNo(regNo string) (review.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, st := range repo.db.students {
		if st.RegNo == regNo {
			return *st, nil
		}
	}
	return review.Student{}, review.ErrStudentNotFound
}

func (repo *reviewRepository) UpdateStudent(st review.Student) (review.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.students[st.ID]; !ok {
		return review.Student{}, review.ErrStudentNotFound
	}
	repo.db.students[st.ID] = &st
	return st, nil
}

// panels

func (repo *reviewRepository) CreatePanel(p review.Panel) (review.Panel, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	p.ID = uuid.New().String()
	repo.db.panels[p.ID] = &p
	return p, nil
}

func (repo *reviewRepository) DeletePanel(id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.panels[id]; !ok {
		return review.ErrPanelNotFound
	}
	delete(repo.db.panels, id)
	// never cascades to teams; they just lose the assignment
	for _, t := range repo.db.teams {
		if t.PanelID == id {
			t.PanelID = ""
		}
	}
	return nil
}

func (repo *reviewRepository) GetPanelByID(id string) (review.Panel, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.panels[id]; ok {
		return *p, nil
	}
	return review.Panel{}, review.ErrPanelNotFound
}

func (repo *reviewRepository) QueryAllPanels() ([]review.Panel, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	panels := make([]review.Panel, 0, len(repo.db.panels))
	for _, p := range repo.db.panels {
		panels = append(panels, *p)
	}
	sort.Slice(panels, func(i, j int) bool { return panels[i].CreatedAt.Before(panels[j].CreatedAt) })
	return panels, nil
}

// exception requests

func (repo *reviewRepository) CreateRequest(req review.ExceptionRequest) (review.ExceptionRequest, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	req.ID = uuid.New().String()
	repo.db.requests[req.ID] = &req
	return req, nil
}

func (repo *reviewRepository) GetRequestByID(id string) (review.ExceptionRequest, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if req, ok := repo.db.requests[id]; ok {
		return *req, nil
	}
	return review.ExceptionRequest{}, review.ErrRequestNotFound
}

func (repo *reviewRepository) queryRequests(match func(review.ExceptionRequest) bool) []review.ExceptionRequest {
	requests := make([]review.ExceptionRequest, 0)
	for _, req := range repo.db.requests {
		if match(*req) {
			requests = append(requests, *req)
		}
	}
	sort.Slice(requests, func(i, j int) bool { return requests[i].CreatedAt.Before(requests[j].CreatedAt) })
	return requests
}

func (repo *reviewRepository) QueryRequestsByFacultyType(ft review.FacultyType) ([]review.ExceptionRequest, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryRequests(func(r review.ExceptionRequest) bool { return r.FacultyType == ft }), nil
}

func (repo *reviewRepository) QueryRequestsForStudent(studentID string, ft review.FacultyType, m review.Milestone) ([]review.ExceptionRequest, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryRequests(func(r review.ExceptionRequest) bool {
		return r.StudentID == studentID && r.FacultyType == ft && r.Milestone == m
	}), nil
}

func (repo *reviewRepository) QueryRequestsForTeam(t review.Team, ft review.FacultyType, m review.Milestone) ([]review.ExceptionRequest, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	members := make(map[string]bool, len(t.Students))
	for _, s := range t.Students {
		members[s.ID] = true
	}
	return repo.queryRequests(func(r review.ExceptionRequest) bool {
		return members[r.StudentID] && r.FacultyType == ft && r.Milestone == m
	}), nil
}

func (repo *reviewRepository) UpdateRequest(req review.ExceptionRequest) (review.ExceptionRequest, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.requests[req.ID]; !ok {
		return review.ExceptionRequest{}, review.ErrRequestNotFound
	}
	repo.db.requests[req.ID] = &req
	return req, nil
}
