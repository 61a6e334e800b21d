package sqlxrepos

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/capstone/core"
	"github.com/trezcool/capstone/core/faculty"
)

var facultyOrdering = core.DBOrdering{Field: "name", Ascending: true}

type facultyRow struct {
	ID           string    `db:"id"`
	EmployeeID   string    `db:"employee_id"`
	Name         string    `db:"name"`
	Email        string    `db:"email"`
	Role         string    `db:"role"`
	PasswordHash []byte    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r facultyRow) model() faculty.Faculty {
	return faculty.Faculty{
		ID:           r.ID,
		EmployeeID:   r.EmployeeID,
		Name:         r.Name,
		Email:        r.Email,
		Role:         r.Role,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func newFacultyRow(fac faculty.Faculty) facultyRow {
	return facultyRow{
		ID:           fac.ID,
		EmployeeID:   fac.EmployeeID,
		Name:         fac.Name,
		Email:        fac.Email,
		Role:         fac.Role,
		PasswordHash: fac.PasswordHash,
		CreatedAt:    fac.CreatedAt.UTC(),
		UpdatedAt:    fac.UpdatedAt.UTC(),
	}
}

type facultyRepository struct {
	db *sqlx.DB
}

var _ faculty.Repository = (*facultyRepository)(nil) // interface compliance check

func NewFacultyRepository(db *sqlx.DB) *facultyRepository {
	return &facultyRepository{db: db}
}

// trapNoRowsErr maps psql "no rows" err to faculty.ErrNotFound
func (repo facultyRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return faculty.ErrNotFound
	}
	return trapFatalErr(errors.Wrap(err, msg))
}

func (repo facultyRepository) CheckFacultyUniqueness(employeeID, email string, excluded ...faculty.Faculty) error {
	exclIDs := make([]string, 0, len(excluded))
	for _, fac := range excluded {
		exclIDs = append(exclIDs, fac.ID)
	}

	check := func(column, value string) (bool, error) {
		query := "SELECT EXISTS (SELECT 1 FROM faculty WHERE " + column + " = ?"
		args := []interface{}{value}
		if len(exclIDs) > 0 {
			q, inArgs, err := sqlx.In(" AND id NOT IN (?)", exclIDs)
			if err != nil {
				return false, err
			}
			query += q
			args = append(args, inArgs...)
		}
		query += ")"

		var exists bool
		err := repo.db.Get(&exists, repo.db.Rebind(query), args...)
		return exists, err
	}

	exists, err := check("employee_id", employeeID)
	if err != nil {
		return errors.Wrap(err, "checking employee id uniqueness")
	}
	if exists {
		return faculty.ErrEmployeeIDExists
	}

	exists, err = check("email", email)
	if err != nil {
		return errors.Wrap(err, "checking email uniqueness")
	}
	if exists {
		return faculty.ErrEmailExists
	}
	return nil
}

func (repo facultyRepository) CreateFaculty(fac faculty.Faculty) (faculty.Faculty, error) {
	fac.ID = uuid.New().String()
	row := newFacultyRow(fac)
	_, err := repo.db.NamedExec(`
		INSERT INTO faculty (id, employee_id, name, email, role, password_hash, created_at, updated_at)
		VALUES (:id, :employee_id, :name, :email, :role, :password_hash, :created_at, :updated_at)`, row)
	if err != nil {
		return faculty.Faculty{}, errors.Wrap(err, "inserting faculty")
	}
	return row.model(), nil
}

func (repo facultyRepository) QueryAllFaculty() ([]faculty.Faculty, error) {
	var rows []facultyRow
	if err := repo.db.Select(&rows, "SELECT * FROM faculty ORDER BY "+facultyOrdering.String()); err != nil {
		return nil, errors.Wrap(err, "querying faculty")
	}
	facs := make([]faculty.Faculty, 0, len(rows))
	for _, row := range rows {
		facs = append(facs, row.model())
	}
	return facs, nil
}

func (repo facultyRepository) getBy(column, value, msg string) (faculty.Faculty, error) {
	var row facultyRow
	if err := repo.db.Get(&row, "SELECT * FROM faculty WHERE "+column+" = $1", value); err != nil {
		return faculty.Faculty{}, repo.trapNoRowsErr(err, msg)
	}
	return row.model(), nil
}

func (repo facultyRepository) GetFacultyByID(id string) (faculty.Faculty, error) {
	return repo.getBy("id", id, "getting faculty by id")
}

func (repo facultyRepository) GetFacultyByEmployeeID(employeeID string) (faculty.Faculty, error) {
	return repo.getBy("employee_id", employeeID, "getting faculty by employee id")
}

func (repo facultyRepository) GetFacultyByEmail(email string) (faculty.Faculty, error) {
	return repo.getBy("email", email, "getting faculty by email")
}
