// Package numeric contains the small scalar solvers shared by the dispatch
// and economics packages.
package numeric

import (
	"errors"
	"math"
)

var (
	// ErrNoBracket is returned when f(a) and f(b) have the same sign.
	ErrNoBracket = errors.New("root not bracketed")
	// ErrMaxIter is returned when the iteration bound is hit before the
	// tolerance is met.
	ErrMaxIter = errors.New("maximum iterations reached")
)

// DefaultMaxIter bounds Brent when callers pass a non-positive limit.
const DefaultMaxIter = 100

// Brent finds a root of f in [a,b] with Brent's method (inverse quadratic
// interpolation guarded by bisection). f(a) and f(b) must differ in sign; a
// zero at either end is returned directly.
//
//nolint:gocyclo
func Brent(f func(float64) float64, a, b, tol float64, maxIter int) (float64, error) {
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	fa, fb := f(a), f(b)
	if fa == 0 {
		return a, nil
	}
	if fb == 0 {
		return b, nil
	}
	if math.IsNaN(fa) || math.IsNaN(fb) || (fa > 0) == (fb > 0) {
		return math.NaN(), ErrNoBracket
	}

	c, fc := b, fb
	var d, e float64
	for iter := 0; iter < maxIter; iter++ {
		if (fb > 0) == (fc > 0) {
			c, fc = a, fa
			d = b - a
			e = d
		}
		if math.Abs(fc) < math.Abs(fb) {
			a, b, c = b, c, b
			fa, fb, fc = fb, fc, fb
		}
		tol1 := 2*epsilon*math.Abs(b) + 0.5*tol
		xm := 0.5 * (c - b)
		if math.Abs(xm) <= tol1 || fb == 0 {
			return b, nil
		}
		if math.Abs(e) >= tol1 && math.Abs(fa) > math.Abs(fb) {
			s := fb / fa
			var p, q float64
			if a == c {
				// secant step
				p = 2 * xm * s
				q = 1 - s
			} else {
				q = fa / fc
				r := fb / fc
				p = s * (2*xm*q*(q-r) - (b-a)*(r-1))
				q = (q - 1) * (r - 1) * (s - 1)
			}
			if p > 0 {
				q = -q
			}
			p = math.Abs(p)
			if 2*p < math.Min(3*xm*q-math.Abs(tol1*q), math.Abs(e*q)) {
				e = d
				d = p / q
			} else {
				d = xm
				e = d
			}
		} else {
			d = xm
			e = d
		}
		a, fa = b, fb
		if math.Abs(d) > tol1 {
			b += d
		} else {
			b += math.Copysign(tol1, xm)
		}
		fb = f(b)
	}
	return b, ErrMaxIter
}

const epsilon = 2.220446049250313e-16
