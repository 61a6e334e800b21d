package faculty

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/capstone/core"
)

// Roles
const (
	RoleAdmin   = "admin"
	RoleFaculty = "faculty"
)

var AllRoles = []string{RoleAdmin, RoleFaculty}

type Faculty struct {
	ID           string    `json:"id"`
	EmployeeID   string    `json:"employee_id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"` // UTC
	UpdatedAt    time.Time `json:"updated_at"` // UTC
}

func (f *Faculty) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	f.PasswordHash = hash
	return nil
}

func (f *Faculty) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(f.PasswordHash, []byte(pwd))
}

func (f *Faculty) IsAdmin() bool {
	return f.Role == RoleAdmin
}

// NewFaculty contains information needed to create a new Faculty account.
type NewFaculty struct {
	EmployeeID string `json:"employee_id" validate:"required,alphanum"`
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"required,email,collegeemail"`
	Password   string `json:"password" validate:"required"`
	Role       string `json:"role" validate:"omitempty,facultyrole"`
}

func (nf *NewFaculty) Validate(svc *Service) error {
	nf.EmployeeID = core.CleanString(nf.EmployeeID, true /* lower */)
	nf.Name = core.CleanString(nf.Name)
	nf.Email = core.CleanString(nf.Email, true /* lower */)
	if nf.Role == "" {
		nf.Role = RoleFaculty
	}

	if err := core.Validate.Struct(nf); err != nil {
		return err
	}
	return svc.checkUniqueness(nf.EmployeeID, nf.Email)
}
