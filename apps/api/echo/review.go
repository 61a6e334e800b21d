package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/capstone/core"
	"github.com/trezcool/capstone/core/faculty"
	"github.com/trezcool/capstone/core/review"
)

type reviewApi struct {
	svc    *review.Service
	facSvc *faculty.Service
}

func registerReviewAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *review.Service, facSvc *faculty.Service) {
	api := reviewApi{svc: svc, facSvc: facSvc}

	// deadlines
	dg := g.Group("/deadlines", jwt)
	dg.GET("", api.deadlines)
	dg.PUT("", api.setDeadlines, adminMiddleware())

	// teams
	tg := g.Group("/teams", jwt)
	tg.POST("", api.createTeam, adminMiddleware())
	tg.GET("", api.queryTeams, adminMiddleware())
	tg.GET("/guide", api.guideTeams)
	tg.GET("/panel", api.panelTeams)
	tg.GET("/:id", api.retrieveTeam)
	tg.DELETE("/:id", api.deleteTeam, adminMiddleware())
	tg.PUT("/:id/panel", api.assignPanel, adminMiddleware())
	tg.POST("/:id/reviews/:milestone", api.submitReview)
	tg.GET("/:id/requests/:milestone", api.teamRequestStatus)

	// panels
	pg := g.Group("/panels", jwt, adminMiddleware())
	pg.POST("", api.createPanel)
	pg.GET("", api.queryPanels)
	pg.DELETE("/:id", api.deletePanel)
	pg.POST("/auto", api.autoCreatePanels)
	pg.POST("/auto-assign", api.autoAssignPanels)

	// exception requests
	rg := g.Group("/requests", jwt)
	rg.POST("/:facultyType", api.fileRequest)
	rg.GET("/:facultyType", api.queryRequests, adminMiddleware())
	rg.PUT("/:id/resolve", api.resolveRequest, adminMiddleware())
}

// Deadlines

func (api *reviewApi) deadlines(ctx echo.Context) error {
	windows, err := api.svc.DefaultDeadlines()
	if err != nil {
		return errors.Wrap(err, "querying default deadlines")
	}
	return ctx.JSON(http.StatusOK, windows)
}

func (api *reviewApi) setDeadlines(ctx echo.Context) error {
	var data DeadlinesRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to DeadlinesRequest")
	}
	if err := api.svc.SetDefaultDeadlines(data); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Deadlines saved."})
}

// Teams

func (api *reviewApi) createTeam(ctx echo.Context) error {
	var data review.NewTeam
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTeam")
	}
	team, err := api.svc.CreateTeam(data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, team)
}

func (api *reviewApi) queryTeams(ctx echo.Context) error {
	teams, err := api.svc.Teams()
	if err != nil {
		return errors.Wrap(err, "querying teams")
	}
	if teams == nil {
		teams = []review.Team{}
	}
	return ctx.JSON(http.StatusOK, teams)
}

func (api *reviewApi) guideTeams(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	teams, err := api.svc.TeamsForGuide(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying guide teams")
	}
	if teams == nil {
		teams = []review.Team{}
	}
	return ctx.JSON(http.StatusOK, teams)
}

func (api *reviewApi) panelTeams(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	teams, err := api.svc.TeamsForPanelMember(claims.Subject)
	if err != nil {
		return errors.Wrap(err, "querying panel teams")
	}
	if teams == nil {
		teams = []review.Team{}
	}
	return ctx.JSON(http.StatusOK, teams)
}

func (api *reviewApi) retrieveTeam(ctx echo.Context) error {
	team, err := api.svc.GetTeam(ctx.Param("id"))
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, TeamResponse{
		Team:        team,
		PptApproved: review.TeamPptApproved(team),
	})
}

func (api *reviewApi) deleteTeam(ctx echo.Context) error {
	if err := api.svc.DeleteTeam(ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *reviewApi) assignPanel(ctx echo.Context) error {
	var data AssignPanelRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AssignPanelRequest")
	}
	if err := api.svc.AssignPanel(ctx.Param("id"), data.PanelID); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Panel assignment saved."})
}

// scoringRole resolves the faculty role the caller plays for the team and
// checks it against the milestone; admins act as the milestone's scoring role.
func (api *reviewApi) scoringRole(ctx echo.Context, team review.Team, m review.Milestone) (review.FacultyType, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}
	if claims.IsAdmin {
		return m.ScoringFaculty(), nil
	}
	ft, err := api.svc.FacultyTypeFor(team, claims.Subject)
	if err != nil {
		return "", err
	}
	if !ft.CanScore(m) {
		return "", review.ErrInvalidMilestoneForRole
	}
	return ft, nil
}

func (api *reviewApi) submitReview(ctx echo.Context) error {
	m := review.Milestone(ctx.Param("milestone"))
	if !m.IsValid() {
		return errHttpNotFound
	}
	team, err := api.svc.GetTeam(ctx.Param("id"))
	if err != nil {
		return err
	}
	if _, err = api.scoringRole(ctx, team, m); err != nil {
		return err
	}

	var data SubmitReviewRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SubmitReviewRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	outcomes, err := api.svc.SubmitReview(team.ID, m, data.Reviews, data.TeamPPTApproved)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, outcomes)
}

func (api *reviewApi) teamRequestStatus(ctx echo.Context) error {
	m := review.Milestone(ctx.Param("milestone"))
	if !m.IsValid() {
		return errHttpNotFound
	}
	team, err := api.svc.GetTeam(ctx.Param("id"))
	if err != nil {
		return err
	}
	ft, err := api.scoringRole(ctx, team, m)
	if err != nil {
		return err
	}

	status, err := api.svc.TeamRequestStatus(team.ID, ft, m)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, RequestStatusResponse{Status: status})
}

// Panels

func (api *reviewApi) createPanel(ctx echo.Context) error {
	var data NewPanelRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPanelRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	panel, err := api.svc.CreatePanel(data.Faculty1ID, data.Faculty2ID)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, panel)
}

func (api *reviewApi) queryPanels(ctx echo.Context) error {
	panels, err := api.svc.Panels()
	if err != nil {
		return errors.Wrap(err, "querying panels")
	}
	if panels == nil {
		panels = []review.Panel{}
	}
	return ctx.JSON(http.StatusOK, panels)
}

func (api *reviewApi) deletePanel(ctx echo.Context) error {
	if err := api.svc.DeletePanel(ctx.Param("id")); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *reviewApi) autoCreatePanels(ctx echo.Context) error {
	var data AutoPanelsRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to AutoPanelsRequest")
	}
	created, err := api.svc.AutoCreatePanels(data.Force)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, AutoPanelsResponse{Created: created})
}

func (api *reviewApi) autoAssignPanels(ctx echo.Context) error {
	if err := api.svc.AutoAssignPanels(); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, SuccessResponse{Success: "Panels assigned."})
}

// Exception requests

func (api *reviewApi) fileRequest(ctx echo.Context) error {
	ft := review.FacultyType(ctx.Param("facultyType"))
	if !ft.IsValid() {
		return errHttpNotFound
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data NewRequestPayload
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRequestPayload")
	}
	if err := data.Validate(); err != nil {
		return err
	}
	req, err := api.svc.FileRequest(claims.Subject, ft, review.NewRequest{
		StudentRegNo: data.StudentRegNo,
		Milestone:    review.Milestone(data.Milestone),
		Reason:       data.Reason,
	})
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, req)
}

func (api *reviewApi) queryRequests(ctx echo.Context) error {
	ft := review.FacultyType(ctx.Param("facultyType"))
	if !ft.IsValid() {
		return errHttpNotFound
	}
	groups, err := api.svc.RequestsByFaculty(ft)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, groups)
}

func (api *reviewApi) resolveRequest(ctx echo.Context) error {
	var data ResolveRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ResolveRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	var req review.ExceptionRequest
	var err error
	switch review.RequestStatus(data.Decision) {
	case review.StatusApproved:
		req, err = api.svc.ApproveRequest(ctx.Param("id"), data.NewDeadlineTo)
	case review.StatusRejected:
		req, err = api.svc.RejectRequest(ctx.Param("id"))
	default:
		return core.NewValidationError(errors.New("decision must be approved or rejected"))
	}
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, req)
}
