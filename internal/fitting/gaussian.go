// Package fitting fits a single Gaussian peak to a beam profile.
package fitting

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/benshep/imageViewer2/internal/types"
)

// FWHMPerSigma converts a Gaussian sigma to its full width at half maximum.
const FWHMPerSigma = 2.3548

// DefaultMaxEvaluations caps model evaluations per fit. A profile that needs
// more than this almost never holds a real beam.
const DefaultMaxEvaluations = 30

const (
	ReasonNoConvergence = "no convergence"
	ReasonOutOfDomain   = "out of domain"
	ReasonBadInput      = "bad input"
)

const (
	stepTolerance = 1e-8
	costTolerance = 1e-10
	maxLambda     = 1e12
)

var sqrt2Pi = math.Sqrt(2 * math.Pi)

// Fitter runs a Levenberg-Marquardt least squares fit of
// A/(sigma*sqrt(2pi)) * exp(-(x-c)^2/(2 sigma^2)) [+ b].
type Fitter struct {
	MaxEvaluations int
	// Baseline adds a constant offset parameter to the model.
	Baseline bool
}

func New() *Fitter {
	return &Fitter{MaxEvaluations: DefaultMaxEvaluations}
}

// Fit returns a fitted result, or NotFitted with a reason. Failures are
// values here: a profile without a beam is the normal case.
func (f *Fitter) Fit(p types.Profile) types.FitResult {
	x, y := p.Coords, p.Values
	if len(x) != len(y) || len(y) < f.paramCount()+1 {
		return types.NotFitted(ReasonBadInput)
	}
	if !allFinite(x) || !allFinite(y) {
		return types.NotFitted(ReasonBadInput)
	}
	if floats.Max(y)-floats.Min(y) <= 0 {
		return types.NotFitted(ReasonBadInput)
	}

	params, converged := f.solve(x, y, f.guess(x, y))
	if !converged {
		return types.NotFitted(ReasonNoConvergence)
	}
	if !allFinite(params) {
		return types.NotFitted(ReasonNoConvergence)
	}
	return Accept(resultFrom(params), p)
}

// Accept applies the validity gate: the centre must lie within the
// coordinate domain and the FWHM must not exceed its span.
func Accept(res types.FitResult, p types.Profile) types.FitResult {
	if !res.Fitted {
		return res
	}
	lo, hi := p.Domain()
	if math.IsNaN(lo) || res.Center < lo || res.Center > hi || res.FWHM > hi-lo {
		return types.NotFitted(ReasonOutOfDomain)
	}
	return res
}

// Curve evaluates the fitted model at coords, for overlaying on a profile.
func Curve(res types.FitResult, coords []float64) []float64 {
	if !res.Fitted {
		return nil
	}
	out := make([]float64, len(coords))
	for i, xi := range coords {
		out[i] = gaussian(xi, res.Amplitude, res.Center, res.Sigma) + res.Baseline
	}
	return out
}

func (f *Fitter) paramCount() int {
	if f.Baseline {
		return 4
	}
	return 3
}

func (f *Fitter) maxEvaluations() int {
	if f.MaxEvaluations <= 0 {
		return DefaultMaxEvaluations
	}
	return f.MaxEvaluations
}

// guess seeds the fit from the profile itself: the peak position, the width
// of the region above half maximum and the peak height.
func (f *Fitter) guess(x, y []float64) []float64 {
	maxY, minY := floats.Max(y), floats.Min(y)
	floor := 0.0
	if f.Baseline {
		floor = minY
	}
	center := x[floats.MaxIdx(y)]

	half := (maxY + minY) / 2
	var above []float64
	for i, v := range y {
		if v > half {
			above = append(above, x[i])
		}
	}
	sigma := (floats.Max(x) - floats.Min(x)) / 6
	if len(above) > 2 {
		width := math.Abs(above[len(above)-1] - above[0])
		if width > 0 {
			sigma = width / FWHMPerSigma
		}
		center = stat.Mean(above, nil)
	}
	if sigma <= 0 {
		sigma = 1
	}

	params := []float64{(maxY - floor) * sigma * sqrt2Pi, center, sigma}
	if f.Baseline {
		params = append(params, floor)
	}
	return params
}

// solve runs Levenberg-Marquardt from p0. It reports false when the
// evaluation budget runs out before the step or cost change settles.
func (f *Fitter) solve(x, y, p0 []float64) ([]float64, bool) {
	n, k := len(x), len(p0)
	budget := f.maxEvaluations()

	params := append([]float64(nil), p0...)
	resid := make([]float64, n)
	f.residuals(x, y, params, resid)
	evals := 1
	cost := floats.Dot(resid, resid)
	scale := floats.Dot(y, y)

	jac := mat.NewDense(n, k, nil)
	trial := make([]float64, k)
	trialResid := make([]float64, n)
	lambda := 1e-3

	for evals < budget {
		if cost <= costTolerance*costTolerance*scale {
			return params, true
		}
		f.jacobian(x, params, jac)

		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var grad mat.VecDense
		grad.MulVec(jac.T(), mat.NewVecDense(n, resid))

		damped := mat.DenseCopyOf(&jtj)
		for i := 0; i < k; i++ {
			d := jtj.At(i, i)
			if d < 1e-12 {
				d = 1e-12
			}
			damped.Set(i, i, d*(1+lambda))
		}
		var step mat.VecDense
		if err := step.SolveVec(damped, &grad); err != nil {
			lambda *= 10
			if lambda > maxLambda {
				return params, false
			}
			continue
		}
		delta := step.RawVector().Data

		floats.AddTo(trial, params, delta)
		if trial[2] <= 0 {
			lambda *= 10
			if lambda > maxLambda {
				return params, false
			}
			continue
		}
		f.residuals(x, y, trial, trialResid)
		evals++
		trialCost := floats.Dot(trialResid, trialResid)

		small := floats.Norm(delta, 2) <= stepTolerance*(floats.Norm(params, 2)+stepTolerance)
		if trialCost < cost {
			reduction := (cost - trialCost) / cost
			copy(params, trial)
			copy(resid, trialResid)
			cost = trialCost
			lambda /= 10
			if small || reduction <= costTolerance {
				return params, true
			}
			continue
		}
		if small {
			return params, true
		}
		lambda *= 10
		if lambda > maxLambda {
			return params, false
		}
	}
	return params, false
}

func (f *Fitter) residuals(x, y, params, out []float64) {
	base := 0.0
	if f.Baseline {
		base = params[3]
	}
	for i, xi := range x {
		out[i] = y[i] - gaussian(xi, params[0], params[1], params[2]) - base
	}
}

func (f *Fitter) jacobian(x, params []float64, jac *mat.Dense) {
	amp, center, sigma := params[0], params[1], params[2]
	for i, xi := range x {
		dx := xi - center
		g := math.Exp(-dx*dx/(2*sigma*sigma)) / (sigma * sqrt2Pi)
		h := amp * g
		jac.Set(i, 0, g)
		jac.Set(i, 1, h*dx/(sigma*sigma))
		jac.Set(i, 2, h*(dx*dx/(sigma*sigma*sigma)-1/sigma))
		if f.Baseline {
			jac.Set(i, 3, 1)
		}
	}
}

func gaussian(x, amp, center, sigma float64) float64 {
	dx := x - center
	return amp / (sigma * sqrt2Pi) * math.Exp(-dx*dx/(2*sigma*sigma))
}

func resultFrom(params []float64) types.FitResult {
	res := types.FitResult{
		Fitted:    true,
		Amplitude: params[0],
		Center:    params[1],
		Sigma:     params[2],
		FWHM:      params[2] * FWHMPerSigma,
		Height:    params[0] / (params[2] * sqrt2Pi),
	}
	if len(params) > 3 {
		res.Baseline = params[3]
	}
	return res
}

func allFinite(values []float64) bool {
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
