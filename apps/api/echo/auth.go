package echoapi

import (
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/trezcool/capstone/core"
	"github.com/trezcool/capstone/core/faculty"
)

const (
	tokenContextKey   = "facultyToken"
	facultyContextKey = "faculty"
)

// appJWTConfig is the JWT auth middleware config. Built on demand so that
// core.Conf is loaded by then.
func appJWTConfig() middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(core.Conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    tokenContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt int64  `json:"oriat,omitempty"`
	EmployeeID   string `json:"employee_id,omitempty"`
	Name         string `json:"name,omitempty"`
	Email        string `json:"email,omitempty"`
	IsAdmin      bool   `json:"is_admin,omitempty"` // -> ADMIN PORTAL
}

func GetFacultyClaims(fac faculty.Faculty, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	return &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    core.Conf.AppName,
			Subject:   fac.ID,
			Audience:  "Capstone",
			ExpiresAt: now.Add(core.Conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		EmployeeID:   fac.EmployeeID,
		Name:         fac.Name,
		Email:        fac.Email,
		IsAdmin:      fac.IsAdmin(),
	}
}

func authenticate(login, pwd string, svc *faculty.Service) (*Claims, error) {
	fac, err := svc.Authenticate(login, pwd)
	if err != nil {
		if errors.Cause(err) == faculty.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "authenticating faculty")
	}
	return GetFacultyClaims(fac), nil
}

// GenerateToken generates a signed JWT token string representing the faculty Claims.
func GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.GetSigningMethod(middleware.AlgorithmHS256), claims)
	ss, err := token.SignedString([]byte(core.Conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(tokenContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextFaculty(ctx echo.Context, svc *faculty.Service, clms ...Claims) (faculty.Faculty, error) {
	if fac, ok := ctx.Get(facultyContextKey).(faculty.Faculty); ok {
		return fac, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return faculty.Faculty{}, errors.Wrap(err, "getting context claims")
		}
	}

	fac, err := svc.GetByID(claims.Subject)
	if err != nil {
		return faculty.Faculty{}, errors.Wrap(err, "finding faculty by ID")
	}
	ctx.Set(facultyContextKey, fac)
	return fac, nil
}

func refreshToken(ctx echo.Context, svc *faculty.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	fac, err := getContextFaculty(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context faculty")
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(core.Conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	newClaims := GetFacultyClaims(fac, claims.OrigIssuedAt)
	token, err := GenerateToken(newClaims)
	return token, errors.Wrap(err, "generating token")
}
