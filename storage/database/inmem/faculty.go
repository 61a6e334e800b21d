package inmemdb

import (
	"github.com/google/uuid"

	"github.com/trezcool/capstone/core/faculty"
)

type facultyRepository struct {
	db *DB
}

var _ faculty.Repository = (*facultyRepository)(nil) // interface compliance check

func NewFacultyRepository(db *DB) faculty.Repository {
	return &facultyRepository{db: db}
}

func (repo *facultyRepository) CheckFacultyUniqueness(employeeID, email string, excluded ...faculty.Faculty) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	isExcluded := func(f faculty.Faculty) bool {
		for _, x := range excluded {
			if x.ID == f.ID {
				return true
			}
		}
		return false
	}
	for _, f := range repo.db.faculty {
		if isExcluded(*f) {
			continue
		}
		if f.EmployeeID == employeeID {
			return faculty.ErrEmployeeIDExists
		}
		if f.Email == email {
			return faculty.ErrEmailExists
		}
	}
	return nil
}

func (repo *facultyRepository) CreateFaculty(fac faculty.Faculty) (faculty.Faculty, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	fac.ID = uuid.New().String()
	repo.db.faculty[fac.ID] = &fac
	return fac, nil
}

func (repo *facultyRepository) QueryAllFaculty() ([]faculty.Faculty, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	all := make([]faculty.Faculty, 0, len(repo.db.faculty))
	for _, f := range repo.db.faculty {
		all = append(all, *f)
	}
	return all, nil
}

func (repo *facultyRepository) GetFacultyByID(id string) (faculty.Faculty, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if f, ok := repo.db.faculty[id]; ok {
		return *f, nil
	}
	return faculty.Faculty{}, faculty.ErrNotFound
}

func (repo *facultyRepository) GetFacultyByEmployeeID(employeeID string) (faculty.Faculty, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, f := range repo.db.faculty {
		if f.EmployeeID == employeeID {
			return *f, nil
		}
	}
	return faculty.Faculty{}, faculty.ErrNotFound
}

func (repo *facultyRepository) GetFacultyByEmail(email string) (faculty.Faculty, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, f := range repo.db.faculty {
		if f.Email == email {
			return *f, nil
		}
	}
	return faculty.Faculty{}, faculty.ErrNotFound
}
