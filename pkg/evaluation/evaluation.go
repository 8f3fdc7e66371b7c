// Package evaluation measures estimator accuracy against graded samples
// and fits a monotone calibration curve over verification results.
package evaluation

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Metrics are the standard regression agreement measures between graded
// values and estimates.
type Metrics struct {
	MSE         float64 `json:"mse" yaml:"mse"`
	RMSE        float64 `json:"rmse" yaml:"rmse"`
	MAE         float64 `json:"mae" yaml:"mae"`
	R2          float64 `json:"r2" yaml:"r2"`
	PearsonR    float64 `json:"pearson_r" yaml:"pearson_r"`
	SpearmanRho float64 `json:"spearman_rho" yaml:"spearman_rho"`
}

// Compute scores predictions against graded values. Correlations are 0
// below two points or when either side is constant; R2 is 0 when the
// truth is constant.
func Compute(yTrue, yPred []float64) (Metrics, error) {
	if len(yTrue) != len(yPred) {
		return Metrics{}, fmt.Errorf("length mismatch: %d true vs %d predicted", len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return Metrics{}, errors.New("no values to score")
	}

	var ssRes, absSum float64
	for i := range yTrue {
		d := yTrue[i] - yPred[i]
		ssRes += d * d
		absSum += math.Abs(d)
	}
	n := float64(len(yTrue))
	m := Metrics{
		MSE: ssRes / n,
		MAE: absSum / n,
	}
	m.RMSE = math.Sqrt(m.MSE)

	mt := mean(yTrue)
	var ssTot float64
	for _, v := range yTrue {
		d := v - mt
		ssTot += d * d
	}
	if ssTot > 0 {
		m.R2 = 1 - ssRes/ssTot
	}

	m.PearsonR = pearson(yTrue, yPred)
	m.SpearmanRho = pearson(ranks(yTrue), ranks(yPred))
	return m, nil
}

// ErrNotFitted is returned by Transform before Fit has seen data.
var ErrNotFitted = errors.New("calibrator not fitted")

// Calibrator maps raw estimates onto graded values by isotonic regression:
// a monotone fit, linearly interpolated between fitted points and clipped
// outside the fitted range.
type Calibrator struct {
	xs []float64
	ys []float64
}

// Fit learns the monotone mapping from predictions to graded values with
// pool-adjacent-violators. Duplicate predictions average their targets
// before pooling.
func (c *Calibrator) Fit(predictions, trueValues []float64) error {
	if len(predictions) != len(trueValues) {
		return fmt.Errorf("length mismatch: %d predictions vs %d targets", len(predictions), len(trueValues))
	}
	if len(predictions) == 0 {
		return errors.New("no fitting data")
	}

	type point struct {
		x, y, w float64
	}
	pts := make([]point, len(predictions))
	for i := range predictions {
		pts[i] = point{x: predictions[i], y: trueValues[i], w: 1}
	}
	sort.Slice(pts, func(i, j int) bool { return pts[i].x < pts[j].x })

	merged := make([]point, 0, len(pts))
	merged = append(merged, pts[0])
	for _, p := range pts[1:] {
		last := &merged[len(merged)-1]
		if p.x == last.x {
			last.y = (last.y*last.w + p.y*p.w) / (last.w + p.w)
			last.w += p.w
			continue
		}
		merged = append(merged, p)
	}

	type block struct {
		value  float64
		weight float64
		count  int
	}
	blocks := make([]block, 0, len(merged))
	for _, p := range merged {
		blocks = append(blocks, block{value: p.y, weight: p.w, count: 1})
		for len(blocks) > 1 && blocks[len(blocks)-2].value > blocks[len(blocks)-1].value {
			a, b := blocks[len(blocks)-2], blocks[len(blocks)-1]
			blocks = blocks[:len(blocks)-2]
			blocks = append(blocks, block{
				value:  (a.value*a.weight + b.value*b.weight) / (a.weight + b.weight),
				weight: a.weight + b.weight,
				count:  a.count + b.count,
			})
		}
	}

	c.xs = make([]float64, 0, len(merged))
	c.ys = make([]float64, 0, len(merged))
	i := 0
	for _, b := range blocks {
		for k := 0; k < b.count; k++ {
			c.xs = append(c.xs, merged[i].x)
			c.ys = append(c.ys, b.value)
			i++
		}
	}
	return nil
}

// Fitted reports whether Fit has succeeded.
func (c *Calibrator) Fitted() bool { return len(c.xs) > 0 }

// Transform maps predictions through the fitted curve.
func (c *Calibrator) Transform(predictions []float64) ([]float64, error) {
	if !c.Fitted() {
		return nil, ErrNotFitted
	}
	out := make([]float64, len(predictions))
	for i, x := range predictions {
		out[i] = c.value(x)
	}
	return out, nil
}

func (c *Calibrator) value(x float64) float64 {
	last := len(c.xs) - 1
	if x <= c.xs[0] {
		return c.ys[0]
	}
	if x >= c.xs[last] {
		return c.ys[last]
	}
	i := sort.SearchFloat64s(c.xs, x)
	if c.xs[i] == x {
		return c.ys[i]
	}
	x0, x1 := c.xs[i-1], c.xs[i]
	y0, y1 := c.ys[i-1], c.ys[i]
	return y0 + (y1-y0)*(x-x0)/(x1-x0)
}

// Interval carries symmetric prediction bands around each estimate.
type Interval struct {
	Lower95 []float64 `json:"lower_95" yaml:"lower_95"`
	Upper95 []float64 `json:"upper_95" yaml:"upper_95"`
	Lower90 []float64 `json:"lower_90" yaml:"lower_90"`
	Upper90 []float64 `json:"upper_90" yaml:"upper_90"`
	Sigma   float64   `json:"sigma" yaml:"sigma"`
}

// PredictionInterval puts 95% and 90% bands around predictions. The band
// width comes from the residual spread, or one full IQ standard deviation
// (15 points) when no residuals are given.
func PredictionInterval(predictions, residuals []float64) Interval {
	sigma := 15.0
	if len(residuals) > 0 {
		sigma = popStd(residuals)
	}
	iv := Interval{
		Lower95: make([]float64, len(predictions)),
		Upper95: make([]float64, len(predictions)),
		Lower90: make([]float64, len(predictions)),
		Upper90: make([]float64, len(predictions)),
		Sigma:   sigma,
	}
	for i, p := range predictions {
		iv.Lower95[i] = p - 1.96*sigma
		iv.Upper95[i] = p + 1.96*sigma
		iv.Lower90[i] = p - 1.645*sigma
		iv.Upper90[i] = p + 1.645*sigma
	}
	return iv
}

func mean(values []float64) float64 {
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func popStd(values []float64) float64 {
	m := mean(values)
	var sum float64
	for _, v := range values {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(values)))
}

func pearson(a, b []float64) float64 {
	if len(a) < 2 {
		return 0
	}
	ma, mb := mean(a), mean(b)
	var cov, va, vb float64
	for i := range a {
		da, db := a[i]-ma, b[i]-mb
		cov += da * db
		va += da * da
		vb += db * db
	}
	if va == 0 || vb == 0 {
		return 0
	}
	return cov / math.Sqrt(va*vb)
}

// ranks assigns 1-based ranks with ties sharing their average rank.
func ranks(values []float64) []float64 {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return values[idx[i]] < values[idx[j]] })

	out := make([]float64, len(values))
	for i := 0; i < len(idx); {
		j := i
		for j < len(idx) && values[idx[j]] == values[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2
		for k := i; k < j; k++ {
			out[idx[k]] = avg
		}
		i = j
	}
	return out
}
