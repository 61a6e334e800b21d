// Package sqlxrepos implements the core repository interfaces over postgres.
package sqlxrepos

import (
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/capstone/core"
)

// trapFatalErr converts unrecoverable driver failures into shutdown errors so
// the API server stops taking traffic instead of failing every request.
func trapFatalErr(err error) error {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok {
		switch pqErr.Code.Class() {
		case "53", // insufficient resources
			"57", // operator intervention
			"58", // system error
			"XX": // internal error
			return core.NewShutdownError(pqErr.Message)
		}
	}
	return err
}
