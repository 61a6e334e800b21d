package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/capstone/core"
	"github.com/trezcool/capstone/core/faculty"
)

type facultyApi struct {
	svc *faculty.Service
}

func registerFacultyAPI(g *echo.Group, jwt echo.MiddlewareFunc, svc *faculty.Service) {
	api := facultyApi{svc: svc}

	fg := g.Group("/faculty")

	// un-authed endpoints
	fg.POST("/login", api.login)

	// authed endpoints
	ag := fg.Group("", jwt)
	ag.POST("/token-refresh", api.refreshToken)
	ag.GET("/me", api.me)
	ag.POST("", api.create, adminMiddleware())
	ag.GET("", api.query, adminMiddleware())
}

// Handlers

func (api *facultyApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(); err != nil {
		return err
	}

	claims, err := authenticate(data.Login, data.Password, api.svc)
	if err != nil {
		if errors.Cause(err) == faculty.ErrNotFound {
			return core.NewValidationError(errors.New("invalid credentials"))
		}
		return errors.Wrap(err, "authenticating")
	}
	token, err := GenerateToken(claims)
	if err != nil {
		return errors.Wrap(err, "generating token")
	}

	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *facultyApi) refreshToken(ctx echo.Context) error {
	token, err := refreshToken(ctx, api.svc)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, LoginResponse{Token: token})
}

func (api *facultyApi) me(ctx echo.Context) error {
	fac, err := getContextFaculty(ctx, api.svc)
	if err != nil {
		return errors.Wrap(err, "getting context faculty")
	}
	return ctx.JSON(http.StatusOK, fac)
}

func (api *facultyApi) create(ctx echo.Context) error {
	var data faculty.NewFaculty
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewFaculty")
	}
	if err := data.Validate(api.svc); err != nil {
		return err
	}

	fac, err := api.svc.Create(data)
	if err != nil {
		return errors.Wrap(err, "creating faculty")
	}
	return ctx.JSON(http.StatusCreated, fac)
}

func (api *facultyApi) query(ctx echo.Context) error {
	facs, err := api.svc.QueryAll()
	if err != nil {
		return errors.Wrap(err, "querying faculty")
	}
	if facs == nil {
		facs = []faculty.Faculty{}
	}
	return ctx.JSON(http.StatusOK, facs)
}
