// Package inmemdb provides in-memory repositories used by tests and local
// development; data does not survive a restart.
package inmemdb

import (
	"sync"

	"github.com/trezcool/capstone/core/faculty"
	"github.com/trezcool/capstone/core/review"
)

type DB struct {
	sync.RWMutex

	faculty   map[string]*faculty.Faculty
	students  map[string]*review.Student
	teams     map[string]*review.Team // member students are kept by ID and re-read on fetch
	panels    map[string]*review.Panel
	requests  map[string]*review.ExceptionRequest
	deadlines map[review.Milestone]review.DeadlineWindow
}

func Open() (*DB, error) {
	return &DB{
		faculty:   make(map[string]*faculty.Faculty),
		students:  make(map[string]*review.Student),
		teams:     make(map[string]*review.Team),
		panels:    make(map[string]*review.Panel),
		requests:  make(map[string]*review.ExceptionRequest),
		deadlines: make(map[review.Milestone]review.DeadlineWindow),
	}, nil
}
