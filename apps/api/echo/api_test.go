package echoapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/capstone/core"
	"github.com/trezcool/capstone/core/faculty"
	"github.com/trezcool/capstone/core/review"
	emailsvc "github.com/trezcool/capstone/services/email"
	inmemdb "github.com/trezcool/capstone/storage/database/inmem"
)

func TestMain(m *testing.M) {
	core.Conf = core.NewConfig(core.Getwd())
	core.Conf.TestMode = true
	core.Conf.Debug = false
	os.Exit(m.Run())
}

type testApp struct {
	server    Server
	facSvc    *faculty.Service
	reviewSvc *review.Service
}

func newTestApp(t *testing.T) *testApp {
	db, err := inmemdb.Open()
	require.NoError(t, err)

	logger := core.NewStdLogger(log.New(ioutil.Discard, "", 0))
	logger.Enable(false)

	facSvc := faculty.NewService(inmemdb.NewFacultyRepository(db))
	reviewSvc := review.NewService(inmemdb.NewReviewRepository(db), facSvc, emailsvc.NewConsoleServiceMock(), logger)

	server := NewServer(&Options{
		DisableReqLogs: true,
		FacultySvc:     facSvc,
		ReviewSvc:      reviewSvc,
		Logger:         logger,
	})
	return &testApp{server: server, facSvc: facSvc, reviewSvc: reviewSvc}
}

func (app *testApp) createFaculty(t *testing.T, empID, role string) faculty.Faculty {
	fac, err := app.facSvc.Create(faculty.NewFaculty{
		EmployeeID: empID,
		Name:       "Prof " + empID,
		Email:      empID + "@college.test",
		Password:   "Tr0ub4dor&3x",
		Role:       role,
	})
	require.NoError(t, err)
	return fac
}

func (app *testApp) createTeam(t *testing.T, name, guideID string, regNos ...string) review.Team {
	students := make([]review.NewStudent, 0, len(regNos))
	for _, rn := range regNos {
		students = append(students, review.NewStudent{RegNo: rn, Name: "Student " + rn, Email: rn + "@students.test"})
	}
	team, err := app.reviewSvc.CreateTeam(review.NewTeam{Name: name, GuideFacultyID: guideID, Students: students})
	require.NoError(t, err)
	return team
}

func (app *testApp) setDeadlines(t *testing.T, windows map[review.Milestone]review.DeadlineWindow) {
	require.NoError(t, app.reviewSvc.SetDefaultDeadlines(windows))
}

func (app *testApp) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, fac faculty.Faculty) string {
	token, err := GenerateToken(GetFacultyClaims(fac))
	require.NoError(t, err)
	return token
}

func openWindow() review.DeadlineWindow {
	now := time.Now().UTC()
	return review.DeadlineWindow{From: now.Add(-time.Hour), To: now.Add(24 * time.Hour)}
}

func pastWindow() review.DeadlineWindow {
	now := time.Now().UTC()
	return review.DeadlineWindow{From: now.Add(-10 * 24 * time.Hour), To: now.Add(-5 * 24 * time.Hour)}
}

func TestAPI_home(t *testing.T) {
	app := newTestApp(t)
	rec := app.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPI_login(t *testing.T) {
	app := newTestApp(t)
	app.createFaculty(t, "fac001", faculty.RoleFaculty)

	tests := []struct {
		name     string
		body     interface{}
		wantCode int
	}{
		{name: "empty payload", body: map[string]string{}, wantCode: http.StatusBadRequest},
		{name: "unknown login", body: map[string]string{"login": "nobody", "password": "Tr0ub4dor&3x"}, wantCode: http.StatusBadRequest},
		{name: "wrong password", body: map[string]string{"login": "fac001", "password": "nope nope"}, wantCode: http.StatusBadRequest},
		{name: "by employee id", body: map[string]string{"login": "fac001", "password": "Tr0ub4dor&3x"}, wantCode: http.StatusOK},
		{name: "by email", body: map[string]string{"login": "fac001@college.test", "password": "Tr0ub4dor&3x"}, wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(t, http.MethodPost, "/v1/faculty/login", "", tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.NotEmpty(t, resp.Token)
			}
		})
	}
}

func TestAPI_deadlines(t *testing.T) {
	app := newTestApp(t)
	admin := app.createFaculty(t, "adm001", faculty.RoleAdmin)
	member := app.createFaculty(t, "fac001", faculty.RoleFaculty)

	windows := map[review.Milestone]review.DeadlineWindow{
		review.Review0: openWindow(),
		review.Review1: openWindow(),
	}

	t.Run("auth required", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/deadlines", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("non-admin cannot set", func(t *testing.T) {
		rec := app.do(t, http.MethodPut, "/v1/deadlines", getToken(t, member), windows)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin sets, anyone authed reads", func(t *testing.T) {
		rec := app.do(t, http.MethodPut, "/v1/deadlines", getToken(t, admin), windows)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = app.do(t, http.MethodGet, "/v1/deadlines", getToken(t, member), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var got map[review.Milestone]review.DeadlineWindow
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Len(t, got, 2)
	})

	t.Run("inverted window rejected", func(t *testing.T) {
		bad := map[review.Milestone]review.DeadlineWindow{
			review.Review0: {From: time.Now().UTC(), To: time.Now().UTC().Add(-time.Hour)},
		}
		rec := app.do(t, http.MethodPut, "/v1/deadlines", getToken(t, admin), bad)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAPI_teams(t *testing.T) {
	app := newTestApp(t)
	admin := app.createFaculty(t, "adm001", faculty.RoleAdmin)
	guide := app.createFaculty(t, "fac001", faculty.RoleFaculty)
	other := app.createFaculty(t, "fac002", faculty.RoleFaculty)

	payload := map[string]interface{}{
		"name":             "Alpha",
		"guide_faculty_id": guide.ID,
		"students": []map[string]string{
			{"reg_no": "19bce001", "name": "A", "email": "a@students.test"},
			{"reg_no": "19bce002", "name": "B", "email": "b@students.test"},
		},
	}

	t.Run("non-admin cannot create", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/teams", getToken(t, guide), payload)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("admin creates", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/teams", getToken(t, admin), payload)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	})

	t.Run("guide sees own teams only", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/teams/guide", getToken(t, guide), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var teams []review.Team
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &teams))
		require.Len(t, teams, 1)
		assert.Equal(t, "Alpha", teams[0].Name)

		rec = app.do(t, http.MethodGet, "/v1/teams/guide", getToken(t, other), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &teams))
		assert.Empty(t, teams)
	})

	t.Run("unknown team is 404", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/teams/nope", getToken(t, admin), nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAPI_submitReview(t *testing.T) {
	app := newTestApp(t)
	guide := app.createFaculty(t, "fac001", faculty.RoleFaculty)
	outsider := app.createFaculty(t, "fac002", faculty.RoleFaculty)
	team := app.createTeam(t, "Alpha", guide.ID, "19bce001", "19bce002")
	app.setDeadlines(t, map[review.Milestone]review.DeadlineWindow{
		review.Review1: openWindow(),
		review.Review2: pastWindow(),
	})

	path := func(m review.Milestone) string {
		return fmt.Sprintf("/v1/teams/%s/reviews/%s", team.ID, m)
	}
	body := SubmitReviewRequest{
		Reviews: []review.StudentReview{
			{RegNo: "19bce001", Component1: intPtr(9), Component2: intPtr(8), Component3: intPtr(10), Attendance: true},
			{RegNo: "19bce002", Component1: intPtr(7), Component2: intPtr(7), Component3: intPtr(6), Attendance: true},
		},
	}

	t.Run("guide submits in open window", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, path(review.Review1), getToken(t, guide), body)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var outcomes []review.SubmissionOutcome
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcomes))
		require.Len(t, outcomes, 2)
		for _, o := range outcomes {
			assert.True(t, o.Updated, "outcome for %s: %s", o.RegNo, o.Error)
		}
	})

	t.Run("guide cannot submit a panel milestone", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, path(review.Review2), getToken(t, guide), body)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unassigned faculty refused", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, path(review.Review1), getToken(t, outsider), body)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("unknown milestone is 404", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, path("review9"), getToken(t, guide), body)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAPI_requestLifecycle(t *testing.T) {
	app := newTestApp(t)
	admin := app.createFaculty(t, "adm001", faculty.RoleAdmin)
	guide := app.createFaculty(t, "fac001", faculty.RoleFaculty)
	team := app.createTeam(t, "Alpha", guide.ID, "19bce001")
	app.setDeadlines(t, map[review.Milestone]review.DeadlineWindow{
		review.Review1: pastWindow(),
	})

	filePayload := NewRequestPayload{StudentRegNo: "19bce001", Milestone: "review1", Reason: "student was hospitalized"}

	t.Run("guide files for a locked milestone", func(t *testing.T) {
		rec := app.do(t, http.MethodPost, "/v1/requests/guide", getToken(t, guide), filePayload)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

		// duplicate pending request conflicts
		rec = app.do(t, http.MethodPost, "/v1/requests/guide", getToken(t, guide), filePayload)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("team badge shows pending", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, fmt.Sprintf("/v1/teams/%s/requests/review1", team.ID), getToken(t, guide), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var resp RequestStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, review.StatusPending, resp.Status)
	})

	t.Run("admin queue groups by faculty", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/requests/guide", getToken(t, admin), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var groups []review.RequestGroup
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
		require.Len(t, groups, 1)
		assert.Equal(t, guide.ID, groups[0].Faculty.ID)
		require.Len(t, groups[0].Requests, 1)

		// non-admin cannot read the queue
		rec = app.do(t, http.MethodGet, "/v1/requests/guide", getToken(t, guide), nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("approval unlocks and is terminal", func(t *testing.T) {
		rec := app.do(t, http.MethodGet, "/v1/requests/guide", getToken(t, admin), nil)
		require.Equal(t, http.StatusOK, rec.Code)
		var groups []review.RequestGroup
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
		reqID := groups[0].Requests[0].ID

		resolve := ResolveRequest{Decision: "approved", NewDeadlineTo: time.Now().UTC().Add(48 * time.Hour)}
		rec = app.do(t, http.MethodPut, "/v1/requests/"+reqID+"/resolve", getToken(t, admin), resolve)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		// the milestone is writable again
		body := SubmitReviewRequest{Reviews: []review.StudentReview{
			{RegNo: "19bce001", Component1: intPtr(8), Component2: intPtr(8), Component3: intPtr(8), Attendance: true},
		}}
		rec = app.do(t, http.MethodPost, fmt.Sprintf("/v1/teams/%s/reviews/review1", team.ID), getToken(t, guide), body)
		require.Equal(t, http.StatusOK, rec.Code)
		var outcomes []review.SubmissionOutcome
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &outcomes))
		require.Len(t, outcomes, 1)
		assert.True(t, outcomes[0].Updated, outcomes[0].Error)

		// a resolved request cannot be resolved again
		rec = app.do(t, http.MethodPut, "/v1/requests/"+reqID+"/resolve", getToken(t, admin), resolve)
		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}

func intPtr(v int) *int { return &v }
