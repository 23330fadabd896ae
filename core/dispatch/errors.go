package dispatch

import "errors"

// ErrConvergence indicates the peak shaving threshold search failed to find a
// root within its bracket.
var ErrConvergence = errors.New("threshold search did not converge")
