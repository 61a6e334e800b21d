package sqlxrepos

import (
	"database/sql"
	"testing"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/capstone/core"
	"github.com/trezcool/capstone/core/faculty"
	"github.com/trezcool/capstone/core/review"
)

func TestTrapFatalErr(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		wantShutdown bool
	}{
		{name: "nil", err: nil},
		{name: "plain error passes through", err: errors.New("boom")},
		{name: "integrity violation is not fatal", err: &pq.Error{Code: "23505", Message: "duplicate key"}},
		{name: "admin shutdown is fatal", err: &pq.Error{Code: "57P01", Message: "terminating connection"}, wantShutdown: true},
		{name: "out of memory is fatal", err: &pq.Error{Code: "53200", Message: "out of memory"}, wantShutdown: true},
		{name: "internal error is fatal", err: &pq.Error{Code: "XX000", Message: "internal error"}, wantShutdown: true},
		{name: "wrapped fatal error", err: errors.Wrap(&pq.Error{Code: "58030", Message: "io error"}, "querying faculty"), wantShutdown: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := trapFatalErr(tt.err)
			assert.Equal(t, tt.wantShutdown, core.IsShutdown(got))
			if !tt.wantShutdown {
				assert.Equal(t, tt.err, got)
			}
		})
	}
}

func TestTrapNoRowsErr(t *testing.T) {
	t.Run("faculty no rows maps to sentinel", func(t *testing.T) {
		err := facultyRepository{}.trapNoRowsErr(sql.ErrNoRows, "getting faculty")
		require.Equal(t, faculty.ErrNotFound, err)
	})

	t.Run("review no rows maps to given sentinel", func(t *testing.T) {
		err := reviewRepository{}.trapNoRowsErr(sql.ErrNoRows, review.ErrTeamNotFound, "getting team")
		require.Equal(t, review.ErrTeamNotFound, err)
	})

	t.Run("fatal driver error becomes shutdown", func(t *testing.T) {
		err := reviewRepository{}.trapNoRowsErr(&pq.Error{Code: "57P02", Message: "crash shutdown"}, review.ErrTeamNotFound, "getting team")
		assert.True(t, core.IsShutdown(err))
	})
}
