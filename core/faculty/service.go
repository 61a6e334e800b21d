package faculty

import (
	"errors"
	"time"

	"github.com/trezcool/capstone/core"
)

var (
	// errors
	ErrNotFound         = errors.New("faculty not found")
	ErrEmailExists      = errors.New("a faculty with this email already exists")
	ErrEmployeeIDExists = errors.New("a faculty with this employee id already exists")
)

type (
	Repository interface {
		CheckFacultyUniqueness(employeeID, email string, excluded ...Faculty) error
		CreateFaculty(fac Faculty) (Faculty, error)
		QueryAllFaculty() ([]Faculty, error)
		GetFacultyByID(id string) (Faculty, error)
		GetFacultyByEmployeeID(employeeID string) (Faculty, error)
		GetFacultyByEmail(email string) (Faculty, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) checkUniqueness(employeeID, email string, excl ...Faculty) error {
	if err := svc.repo.CheckFacultyUniqueness(employeeID, email, excl...); err != nil {
		var field string
		switch err {
		case ErrEmployeeIDExists:
			field = "employee_id"
		case ErrEmailExists:
			field = "email"
		default:
			return err
		}
		return core.NewValidationError(err, core.FieldError{Field: field, Error: err.Error()})
	}
	return nil
}

func (svc *Service) Create(nf NewFaculty) (Faculty, error) {
	now := time.Now().UTC()
	fac := Faculty{
		EmployeeID: nf.EmployeeID,
		Name:       nf.Name,
		Email:      nf.Email,
		Role:       nf.Role,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := fac.SetPassword(nf.Password); err != nil {
		return Faculty{}, err
	}
	return svc.repo.CreateFaculty(fac)
}

func (svc *Service) QueryAll() ([]Faculty, error) {
	return svc.repo.QueryAllFaculty()
}

func (svc *Service) GetByID(id string) (Faculty, error) {
	return svc.repo.GetFacultyByID(id)
}

func (svc *Service) GetByEmployeeID(employeeID string) (Faculty, error) {
	return svc.repo.GetFacultyByEmployeeID(core.CleanString(employeeID, true /* lower */))
}

func (svc *Service) GetByEmail(email string) (Faculty, error) {
	return svc.repo.GetFacultyByEmail(core.CleanString(email, true /* lower */))
}

// Authenticate finds the account matching employeeID or email and checks pwd against it.
func (svc *Service) Authenticate(login, pwd string) (Faculty, error) {
	login = core.CleanString(login, true /* lower */)
	fac, err := svc.repo.GetFacultyByEmployeeID(login)
	if err == ErrNotFound {
		fac, err = svc.repo.GetFacultyByEmail(login)
	}
	if err != nil {
		return Faculty{}, err
	}
	if err := fac.CheckPassword(pwd); err != nil {
		return Faculty{}, ErrNotFound
	}
	return fac, nil
}
