// src/curvefit/levmar.go
package curvefit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// MaxEvaluations caps the combined number of residual and Jacobian
// evaluations a single fit may spend, mirroring the solver budget the
// dashboard has always run with.
const MaxEvaluations = 2000

const (
	initialDamping = 1e-3
	maxDamping     = 1e12
	minDamping     = 1e-12

	gradTol = 1e-10
	stepTol = 1e-12
	sseTol  = 1e-12
)

// Point is one (k, d) observation handed to the fitter. Order is irrelevant
// to the least-squares objective.
type Point struct {
	K float64
	D float64
}

// FitError describes why a fit produced no usable curve. Callers skip the
// affected series rather than aborting the interaction.
type FitError struct {
	Reason      string
	Evaluations int
}

func (e *FitError) Error() string {
	if e.Evaluations > 0 {
		return fmt.Sprintf("curve fit failed after %d evaluations: %s", e.Evaluations, e.Reason)
	}
	return "curve fit failed: " + e.Reason
}

// Fit estimates the (b0, b1, b2) parameters of the selected model by
// minimizing the sum of squared residuals over points, starting from initial.
// It runs a Levenberg-Marquardt iteration with analytic Jacobians and returns
// a *FitError when the solver exhausts its evaluation budget, the damped
// normal equations stay singular, or the input is empty. No fallback
// parameters are synthesized on failure.
func Fit(points []Point, kind ModelKind, initial Params) (FittedCurve, error) {
	n := len(points)
	if n == 0 {
		return FittedCurve{}, &FitError{Reason: "no observations"}
	}

	evals := 0

	// Residual vector r_i = model(k_i) - d_i. One call costs one evaluation
	// from the shared budget.
	residuals := func(p Params) *mat.VecDense {
		evals++
		r := mat.NewVecDense(n, nil)
		for i, pt := range points {
			r.SetVec(i, kind.Eval(p, pt.K)-pt.D)
		}
		return r
	}

	jacobian := func(p Params) *mat.Dense {
		evals++
		j := mat.NewDense(n, 3, nil)
		for i, pt := range points {
			g0, g1, g2 := kind.gradient(p, pt.K)
			j.Set(i, 0, g0)
			j.Set(i, 1, g1)
			j.Set(i, 2, g2)
		}
		return j
	}

	p := initial
	r := residuals(p)
	sse := mat.Dot(r, r)
	if !isFinite(sse) {
		return FittedCurve{}, &FitError{Reason: "objective is not finite at the initial guess", Evaluations: evals}
	}

	lambda := initialDamping

	for evals < MaxEvaluations {
		j := jacobian(p)

		var jtj mat.Dense
		jtj.Mul(j.T(), j)
		var grad mat.VecDense
		grad.MulVec(j.T(), r)

		if mat.Norm(&grad, math.Inf(1)) <= gradTol {
			return FittedCurve{Kind: kind, Params: p}, nil
		}

		for evals < MaxEvaluations {
			a := dampedNormal(&jtj, lambda)

			var step mat.VecDense
			if err := step.SolveVec(a, &grad); err != nil {
				lambda *= 10
				if lambda > maxDamping {
					return FittedCurve{}, &FitError{Reason: "singular jacobian", Evaluations: evals}
				}
				continue
			}

			trial := Params{
				B0: p.B0 - step.AtVec(0),
				B1: p.B1 - step.AtVec(1),
				B2: p.B2 - step.AtVec(2),
			}
			rTrial := residuals(trial)
			sseTrial := mat.Dot(rTrial, rTrial)

			if isFinite(sseTrial) && sseTrial < sse {
				improvement := sse - sseTrial
				stepNorm := mat.Norm(&step, 2)
				paramNorm := math.Sqrt(p.B0*p.B0 + p.B1*p.B1 + p.B2*p.B2)

				p, r, sse = trial, rTrial, sseTrial
				lambda = math.Max(lambda/10, minDamping)

				if improvement <= sseTol*(sse+sseTol) || stepNorm <= stepTol*(1+paramNorm) {
					return FittedCurve{Kind: kind, Params: p}, nil
				}
				break
			}

			lambda *= 10
			if lambda > maxDamping {
				// The objective cannot be reduced in any damped direction;
				// the current point is as converged as this model gets.
				return FittedCurve{Kind: kind, Params: p}, nil
			}
		}
	}

	return FittedCurve{}, &FitError{Reason: "evaluation budget exhausted before convergence", Evaluations: evals}
}

// dampedNormal builds J^T J + lambda * diag(J^T J), with a unit floor on the
// damping diagonal so flat parameters still regularize.
func dampedNormal(jtj *mat.Dense, lambda float64) *mat.Dense {
	a := mat.DenseCopyOf(jtj)
	for i := 0; i < 3; i++ {
		d := jtj.At(i, i)
		if d <= 0 {
			d = 1
		}
		a.Set(i, i, jtj.At(i, i)+lambda*d)
	}
	return a
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
