package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/capstone/core"
	"github.com/trezcool/capstone/core/review"
)

var (
	teamOrdering    = core.DBOrdering{Field: "name", Ascending: true}
	panelOrdering   = core.DBOrdering{Field: "created_at", Ascending: true}
	requestOrdering = core.DBOrdering{Field: "created_at", Ascending: true}
)

type (
	studentRow struct {
		ID          string    `db:"id"`
		RegNo       string    `db:"reg_no"`
		Name        string    `db:"name"`
		Email       string    `db:"email"`
		PPTApproved bool      `db:"ppt_approved"`
		PPTLocked   bool      `db:"ppt_locked"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}

	studentReviewRow struct {
		StudentID        string   `db:"student_id"`
		Milestone        string   `db:"milestone"`
		Component1       null.Int `db:"component1"`
		Component2       null.Int `db:"component2"`
		Component3       null.Int `db:"component3"`
		Attendance       bool     `db:"attendance"`
		AttendanceLocked bool     `db:"attendance_locked"`
		Comments         string   `db:"comments"`
		Locked           bool     `db:"locked"`
	}

	deadlineRow struct {
		Milestone string    `db:"milestone"`
		From      time.Time `db:"from_at"`
		To        time.Time `db:"to_at"`
	}

	overrideRow struct {
		StudentID string    `db:"student_id"`
		Milestone string    `db:"milestone"`
		From      time.Time `db:"from_at"`
		To        time.Time `db:"to_at"`
	}

	teamRow struct {
		ID             string      `db:"id"`
		Name           string      `db:"name"`
		GuideFacultyID string      `db:"guide_faculty_id"`
		PanelID        null.String `db:"panel_id"`
		CreatedAt      time.Time   `db:"created_at"`
		UpdatedAt      time.Time   `db:"updated_at"`
	}

	panelRow struct {
		ID         string    `db:"id"`
		Faculty1ID string    `db:"faculty1_id"`
		Faculty2ID string    `db:"faculty2_id"`
		CreatedAt  time.Time `db:"created_at"`
	}

	requestRow struct {
		ID           string    `db:"id"`
		FacultyID    string    `db:"faculty_id"`
		FacultyType  string    `db:"faculty_type"`
		StudentID    string    `db:"student_id"`
		StudentRegNo string    `db:"student_reg_no"`
		Milestone    string    `db:"milestone"`
		Reason       string    `db:"reason"`
		Status       string    `db:"status"`
		CreatedAt    time.Time `db:"created_at"`
		ResolvedAt   null.Time `db:"resolved_at"`
	}
)

func (r studentReviewRow) record() review.ReviewRecord {
	return review.ReviewRecord{
		Component1: r.Component1.Ptr(),
		Component2: r.Component2.Ptr(),
		Component3: r.Component3.Ptr(),
		Attendance: review.Attendance{Value: r.Attendance, Locked: r.AttendanceLocked},
		Comments:   r.Comments,
		Locked:     r.Locked,
	}
}

func newStudentReviewRow(studentID string, m review.Milestone, rec review.ReviewRecord) studentReviewRow {
	return studentReviewRow{
		StudentID:        studentID,
		Milestone:        string(m),
		Component1:       null.IntFromPtr(rec.Component1),
		Component2:       null.IntFromPtr(rec.Component2),
		Component3:       null.IntFromPtr(rec.Component3),
		Attendance:       rec.Attendance.Value,
		AttendanceLocked: rec.Attendance.Locked,
		Comments:         rec.Comments,
		Locked:           rec.Locked,
	}
}

func (r panelRow) model() review.Panel {
	return review.Panel{
		ID:         r.ID,
		Faculty1ID: r.Faculty1ID,
		Faculty2ID: r.Faculty2ID,
		CreatedAt:  r.CreatedAt,
	}
}

func (r requestRow) model() review.ExceptionRequest {
	return review.ExceptionRequest{
		ID:           r.ID,
		FacultyID:    r.FacultyID,
		FacultyType:  review.FacultyType(r.FacultyType),
		StudentID:    r.StudentID,
		StudentRegNo: r.StudentRegNo,
		Milestone:    review.Milestone(r.Milestone),
		Reason:       r.Reason,
		Status:       review.RequestStatus(r.Status),
		CreatedAt:    r.CreatedAt,
		ResolvedAt:   r.ResolvedAt.Time,
	}
}

func newRequestRow(req review.ExceptionRequest) requestRow {
	return requestRow{
		ID:           req.ID,
		FacultyID:    req.FacultyID,
		FacultyType:  string(req.FacultyType),
		StudentID:    req.StudentID,
		StudentRegNo: req.StudentRegNo,
		Milestone:    string(req.Milestone),
		Reason:       req.Reason,
		Status:       string(req.Status),
		CreatedAt:    req.CreatedAt.UTC(),
		ResolvedAt:   null.NewTime(req.ResolvedAt.UTC(), !req.ResolvedAt.IsZero()),
	}
}

type reviewRepository struct {
	db *sqlx.DB
}

var _ review.Repository = (*reviewRepository)(nil) // interface compliance check

func NewReviewRepository(db *sqlx.DB) *reviewRepository {
	return &reviewRepository{db: db}
}

func (repo reviewRepository) trapNoRowsErr(err, notFound error, msg string) error {
	if err == sql.ErrNoRows {
		return notFound
	}
	return trapFatalErr(errors.Wrap(err, msg))
}

// inTx runs fn in a transaction, rolling back on error.
func (repo reviewRepository) inTx(fn func(tx *sqlx.Tx) error) error {
	tx, err := repo.db.Beginx()
	if err != nil {
		return trapFatalErr(errors.Wrap(err, "beginning transaction"))
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return trapFatalErr(err)
	}
	return trapFatalErr(errors.Wrap(tx.Commit(), "committing transaction"))
}

// Deadlines

func (repo reviewRepository) GetDefaultDeadlines() (map[review.Milestone]review.DeadlineWindow, error) {
	var rows []deadlineRow
	if err := repo.db.Select(&rows, "SELECT * FROM deadline_default"); err != nil {
		return nil, errors.Wrap(err, "querying default deadlines")
	}
	windows := make(map[review.Milestone]review.DeadlineWindow, len(rows))
	for _, row := range rows {
		windows[review.Milestone(row.Milestone)] = review.DeadlineWindow{From: row.From, To: row.To}
	}
	return windows, nil
}

func (repo reviewRepository) SetDefaultDeadlines(windows map[review.Milestone]review.DeadlineWindow) error {
	return repo.inTx(func(tx *sqlx.Tx) error {
		for m, w := range windows {
			_, err := tx.Exec(`
				INSERT INTO deadline_default (milestone, from_at, to_at) VALUES ($1, $2, $3)
				ON CONFLICT (milestone) DO UPDATE SET from_at = EXCLUDED.from_at, to_at = EXCLUDED.to_at`,
				string(m), w.From.UTC(), w.To.UTC())
			if err != nil {
				return errors.Wrap(err, "upserting default deadline")
			}
		}
		return nil
	})
}

// Teams

func (repo reviewRepository) CreateTeam(team review.Team) (review.Team, error) {
	team.ID = uuid.New().String()
	err := repo.inTx(func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO team (id, name, guide_faculty_id, panel_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			team.ID, team.Name, team.GuideFacultyID, null.NewString(team.PanelID, team.PanelID != ""),
			team.CreatedAt.UTC(), team.UpdatedAt.UTC())
		if err != nil {
			return errors.Wrap(err, "inserting team")
		}
		for i, st := range team.Students {
			_, err = tx.Exec("INSERT INTO team_student (team_id, student_id, position) VALUES ($1, $2, $3)", team.ID, st.ID, i)
			if err != nil {
				return errors.Wrap(err, "inserting team member")
			}
		}
		return nil
	})
	if err != nil {
		return review.Team{}, err
	}
	return team, nil
}

func (repo reviewRepository) DeleteTeam(id string) error {
	_, err := repo.db.Exec("DELETE FROM team WHERE id = $1", id)
	return errors.Wrap(err, "deleting team")
}

func (repo reviewRepository) getTeamBy(column, value string) (review.Team, error) {
	var row teamRow
	if err := repo.db.Get(&row, "SELECT * FROM team WHERE "+column+" = $1", value); err != nil {
		return review.Team{}, repo.trapNoRowsErr(err, review.ErrTeamNotFound, "getting team")
	}
	return repo.loadTeam(row)
}

func (repo reviewRepository) GetTeamByID(id string) (review.Team, error) {
	return repo.getTeamBy("id", id)
}

func (repo reviewRepository) GetTeamByName(name string) (review.Team, error) {
	return repo.getTeamBy("name", name)
}

func (repo reviewRepository) GetTeamForStudent(studentID string) (review.Team, error) {
	var row teamRow
	err := repo.db.Get(&row, `
		SELECT t.* FROM team t
		JOIN team_student ts ON ts.team_id = t.id
		WHERE ts.student_id = $1`, studentID)
	if err != nil {
		return review.Team{}, repo.trapNoRowsErr(err, review.ErrTeamNotFound, "getting team for student")
	}
	return repo.loadTeam(row)
}

func (repo reviewRepository) queryTeams(query string, args ...interface{}) ([]review.Team, error) {
	var rows []teamRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying teams")
	}
	teams := make([]review.Team, 0, len(rows))
	for _, row := range rows {
		team, err := repo.loadTeam(row)
		if err != nil {
			return nil, err
		}
		teams = append(teams, team)
	}
	return teams, nil
}

func (repo reviewRepository) QueryAllTeams() ([]review.Team, error) {
	return repo.queryTeams("SELECT * FROM team ORDER BY " + teamOrdering.String())
}

func (repo reviewRepository) QueryTeamsByGuide(facultyID string) ([]review.Team, error) {
	return repo.queryTeams("SELECT * FROM team WHERE guide_faculty_id = $1 ORDER BY "+teamOrdering.String(), facultyID)
}

func (repo reviewRepository) QueryTeamsByPanelMember(facultyID string) ([]review.Team, error) {
	return repo.queryTeams(`
		SELECT t.* FROM team t
		JOIN panel p ON p.id = t.panel_id
		WHERE p.faculty1_id = $1 OR p.faculty2_id = $1
		ORDER BY t.`+teamOrdering.String(), facultyID)
}

func (repo reviewRepository) SetTeamPanel(teamID, panelID string) error {
	res, err := repo.db.Exec(`
		UPDATE team SET panel_id = $1, updated_at = $2 WHERE id = $3`,
		null.NewString(panelID, panelID != ""), time.Now().UTC(), teamID)
	if err != nil {
		return errors.Wrap(err, "setting team panel")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return review.ErrTeamNotFound
	}
	return nil
}

// loadTeam attaches the team's students (in roster order) to the row.
func (repo reviewRepository) loadTeam(row teamRow) (review.Team, error) {
	var stRows []studentRow
	err := repo.db.Select(&stRows, `
		SELECT s.* FROM student s
		JOIN team_student ts ON ts.student_id = s.id
		WHERE ts.team_id = $1
		ORDER BY ts.position`, row.ID)
	if err != nil {
		return review.Team{}, errors.Wrap(err, "querying team members")
	}
	students := make([]review.Student, 0, len(stRows))
	for _, sr := range stRows {
		st, err := repo.loadStudent(sr)
		if err != nil {
			return review.Team{}, err
		}
		students = append(students, st)
	}
	return review.Team{
		ID:             row.ID,
		Name:           row.Name,
		GuideFacultyID: row.GuideFacultyID,
		PanelID:        row.PanelID.String,
		Students:       students,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
	}, nil
}

// Students

func (repo reviewRepository) CreateStudent(st review.Student) (review.Student, error) {
	st.ID = uuid.New().String()
	err := repo.inTx(func(tx *sqlx.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO student (id, reg_no, name, email, ppt_approved, ppt_locked, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			st.ID, st.RegNo, st.Name, st.Email, st.PPTApproved.Approved, st.PPTApproved.Locked,
			st.CreatedAt.UTC(), st.UpdatedAt.UTC())
		if err != nil {
			return errors.Wrap(err, "inserting student")
		}
		return repo.saveDetails(tx, st)
	})
	if err != nil {
		return review.Student{}, err
	}
	return st, nil
}

func (repo reviewRepository) getStudentBy(column, value string) (review.Student, error) {
	var row studentRow
	if err := repo.db.Get(&row, "SELECT * FROM student WHERE "+column+" = $1", value); err != nil {
		return review.Student{}, repo.trapNoRowsErr(err, review.ErrStudentNotFound, "getting student")
	}
	return repo.loadStudent(row)
}

func (repo reviewRepository) GetStudentByID(id string) (review.Student, error) {
	return repo.getStudentBy("id", id)
}

func (repo reviewRepository) GetStudentByRegNo(regNo string) (review.Student, error) {
	return repo.getStudentBy("reg_no", regNo)
}

func (repo reviewRepository) UpdateStudent(st review.Student) (review.Student, error) {
	err := repo.inTx(func(tx *sqlx.Tx) error {
		res, err := tx.Exec(`
			UPDATE student SET name = $1, email = $2, ppt_approved = $3, ppt_locked = $4, updated_at = $5
			WHERE id = $6`,
			st.Name, st.Email, st.PPTApproved.Approved, st.PPTApproved.Locked, st.UpdatedAt.UTC(), st.ID)
		if err != nil {
			return errors.Wrap(err, "updating student")
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return review.ErrStudentNotFound
		}
		return repo.saveDetails(tx, st)
	})
	if err != nil {
		return review.Student{}, err
	}
	return st, nil
}

// saveDetails upserts the student's per-milestone review rows and deadline
// overrides.
func (repo reviewRepository) saveDetails(tx *sqlx.Tx, st review.Student) error {
	for m, rec := range st.Reviews {
		row := newStudentReviewRow(st.ID, m, rec)
		_, err := tx.NamedExec(`
			INSERT INTO student_review (student_id, milestone, component1, component2, component3, attendance, attendance_locked, comments, locked)
			VALUES (:student_id, :milestone, :component1, :component2, :component3, :attendance, :attendance_locked, :comments, :locked)
			ON CONFLICT (student_id, milestone) DO UPDATE SET
				component1 = EXCLUDED.component1,
				component2 = EXCLUDED.component2,
				component3 = EXCLUDED.component3,
				attendance = EXCLUDED.attendance,
				attendance_locked = EXCLUDED.attendance_locked,
				comments = EXCLUDED.comments,
				locked = EXCLUDED.locked`, row)
		if err != nil {
			return errors.Wrap(err, "upserting student review")
		}
	}
	for m, w := range st.Deadlines {
		_, err := tx.Exec(`
			INSERT INTO deadline_override (student_id, milestone, from_at, to_at) VALUES ($1, $2, $3, $4)
			ON CONFLICT (student_id, milestone) DO UPDATE SET from_at = EXCLUDED.from_at, to_at = EXCLUDED.to_at`,
			st.ID, string(m), w.From.UTC(), w.To.UTC())
		if err != nil {
			return errors.Wrap(err, "upserting deadline override")
		}
	}
	return nil
}

// loadStudent attaches the student's review records and deadline overrides.
func (repo reviewRepository) loadStudent(row studentRow) (review.Student, error) {
	var revRows []studentReviewRow
	if err := repo.db.Select(&revRows, "SELECT * FROM student_review WHERE student_id = $1", row.ID); err != nil {
		return review.Student{}, errors.Wrap(err, "querying student reviews")
	}
	reviews := review.EmptyReviews()
	for _, rr := range revRows {
		reviews[review.Milestone(rr.Milestone)] = rr.record()
	}

	var ovRows []overrideRow
	if err := repo.db.Select(&ovRows, "SELECT * FROM deadline_override WHERE student_id = $1", row.ID); err != nil {
		return review.Student{}, errors.Wrap(err, "querying deadline overrides")
	}
	var deadlines map[review.Milestone]review.DeadlineWindow
	if len(ovRows) > 0 {
		deadlines = make(map[review.Milestone]review.DeadlineWindow, len(ovRows))
		for _, ov := range ovRows {
			deadlines[review.Milestone(ov.Milestone)] = review.DeadlineWindow{From: ov.From, To: ov.To}
		}
	}

	return review.Student{
		ID:          row.ID,
		RegNo:       row.RegNo,
		Name:        row.Name,
		Email:       row.Email,
		Reviews:     reviews,
		PPTApproved: review.PPTApproval{Approved: row.PPTApproved, Locked: row.PPTLocked},
		Deadlines:   deadlines,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}

// Panels

func (repo reviewRepository) CreatePanel(p review.Panel) (review.Panel, error) {
	p.ID = uuid.New().String()
	_, err := repo.db.Exec(`
		INSERT INTO panel (id, faculty1_id, faculty2_id, created_at) VALUES ($1, $2, $3, $4)`,
		p.ID, p.Faculty1ID, p.Faculty2ID, p.CreatedAt.UTC())
	if err != nil {
		return review.Panel{}, errors.Wrap(err, "inserting panel")
	}
	return p, nil
}

func (repo reviewRepository) DeletePanel(id string) error {
	// team.panel_id is ON DELETE SET NULL; references clear themselves
	res, err := repo.db.Exec("DELETE FROM panel WHERE id = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting panel")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return review.ErrPanelNotFound
	}
	return nil
}

func (repo reviewRepository) GetPanelByID(id string) (review.Panel, error) {
	var row panelRow
	if err := repo.db.Get(&row, "SELECT * FROM panel WHERE id = $1", id); err != nil {
		return review.Panel{}, repo.trapNoRowsErr(err, review.ErrPanelNotFound, "getting panel")
	}
	return row.model(), nil
}

func (repo reviewRepository) QueryAllPanels() ([]review.Panel, error) {
	var rows []panelRow
	if err := repo.db.Select(&rows, "SELECT * FROM panel ORDER BY "+panelOrdering.String()); err != nil {
		return nil, errors.Wrap(err, "querying panels")
	}
	panels := make([]review.Panel, 0, len(rows))
	for _, row := range rows {
		panels = append(panels, row.model())
	}
	return panels, nil
}

// Exception requests

func (repo reviewRepository) CreateRequest(req review.ExceptionRequest) (review.ExceptionRequest, error) {
	req.ID = uuid.New().String()
	row := newRequestRow(req)
	_, err := repo.db.NamedExec(`
		INSERT INTO exception_request (id, faculty_id, faculty_type, student_id, student_reg_no, milestone, reason, status, created_at, resolved_at)
		VALUES (:id, :faculty_id, :faculty_type, :student_id, :student_reg_no, :milestone, :reason, :status, :created_at, :resolved_at)`, row)
	if err != nil {
		return review.ExceptionRequest{}, errors.Wrap(err, "inserting request")
	}
	return row.model(), nil
}

func (repo reviewRepository) GetRequestByID(id string) (review.ExceptionRequest, error) {
	var row requestRow
	if err := repo.db.Get(&row, "SELECT * FROM exception_request WHERE id = $1", id); err != nil {
		return review.ExceptionRequest{}, repo.trapNoRowsErr(err, review.ErrRequestNotFound, "getting request")
	}
	return row.model(), nil
}

func (repo reviewRepository) queryRequests(query string, args ...interface{}) ([]review.ExceptionRequest, error) {
	var rows []requestRow
	if err := repo.db.Select(&rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying requests")
	}
	reqs := make([]review.ExceptionRequest, 0, len(rows))
	for _, row := range rows {
		reqs = append(reqs, row.model())
	}
	return reqs, nil
}

func (repo reviewRepository) QueryRequestsByFacultyType(ft review.FacultyType) ([]review.ExceptionRequest, error) {
	return repo.queryRequests(
		"SELECT * FROM exception_request WHERE faculty_type = $1 ORDER BY "+requestOrdering.String(), string(ft))
}

func (repo reviewRepository) QueryRequestsForStudent(studentID string, ft review.FacultyType, m review.Milestone) ([]review.ExceptionRequest, error) {
	return repo.queryRequests(`
		SELECT * FROM exception_request
		WHERE student_id = $1 AND faculty_type = $2 AND milestone = $3
		ORDER BY `+requestOrdering.String(), studentID, string(ft), string(m))
}

func (repo reviewRepository) QueryRequestsForTeam(t review.Team, ft review.FacultyType, m review.Milestone) ([]review.ExceptionRequest, error) {
	if len(t.Students) == 0 {
		return []review.ExceptionRequest{}, nil
	}
	ids := make([]string, 0, len(t.Students))
	for _, st := range t.Students {
		ids = append(ids, st.ID)
	}
	query, args, err := sqlx.In(`
		SELECT * FROM exception_request
		WHERE student_id IN (?) AND faculty_type = ? AND milestone = ?
		ORDER BY `+requestOrdering.String(), ids, string(ft), string(m))
	if err != nil {
		return nil, errors.Wrap(err, "building team requests query")
	}
	return repo.queryRequests(repo.db.Rebind(query), args...)
}

func (repo reviewRepository) UpdateRequest(req review.ExceptionRequest) (review.ExceptionRequest, error) {
	row := newRequestRow(req)
	res, err := repo.db.NamedExec(`
		UPDATE exception_request SET status = :status, resolved_at = :resolved_at WHERE id = :id`, row)
	if err != nil {
		return review.ExceptionRequest{}, errors.Wrap(err, "updating request")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return review.ExceptionRequest{}, review.ErrRequestNotFound
	}
	return row.model(), nil
}
