package bnb

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/piwi3910/uldpack/internal/mip"
)

var (
	errLPInfeasible = errors.New("bnb: relaxation infeasible")
	errLPUnbounded  = errors.New("bnb: relaxation unbounded")
	errLPIterations = errors.New("bnb: iteration limit reached")
)

const (
	pivotTol    = 1e-9
	costTol     = 1e-9
	feasTol     = 1e-7
	blandAfter  = 50 // degenerate pivots before switching to Bland's rule
	iterPerSize = 50
)

// tableau is a dense bounded-variable simplex over the columns
// [structural | slack | artificial]. Row i reads
// slack_i = rhs_i - a_i.x, with the slack bounded by the row sense.
type tableau struct {
	m, n, cols   int
	tab          *mat.Dense // B^-1 A
	lower, upper []float64
	x            []float64
	basis        []int // column basic in each row
	rowOf        []int // row of a basic column, -1 otherwise
	d            []float64
}

// newTableau builds the starting basis for p with the structural bounds
// lo and up. Structural columns start at a finite bound; a row whose slack
// cannot absorb the residual starts with its artificial column basic.
func newTableau(p *mip.Problem, lo, up []float64) *tableau {
	m, n := len(p.Rows), len(p.Vars)
	cols := n + 2*m
	t := &tableau{
		m: m, n: n, cols: cols,
		tab:   mat.NewDense(max(m, 1), cols, nil),
		lower: make([]float64, cols),
		upper: make([]float64, cols),
		x:     make([]float64, cols),
		basis: make([]int, m),
		rowOf: make([]int, cols),
	}
	for j := 0; j < n; j++ {
		t.lower[j], t.upper[j] = lo[j], up[j]
		switch {
		case !math.IsInf(lo[j], -1):
			t.x[j] = lo[j]
		case !math.IsInf(up[j], 1):
			t.x[j] = up[j]
		}
	}
	for j := range t.rowOf {
		t.rowOf[j] = -1
	}

	for i, r := range p.Rows {
		row := t.tab.RawRowView(i)
		for _, term := range r.Terms {
			row[term.Var] += term.Coef
		}
		slack, art := n+i, n+m+i
		row[slack] = 1

		switch r.Sense {
		case mip.LessThanOrEqual:
			t.lower[slack], t.upper[slack] = 0, math.Inf(1)
		case mip.GreaterThanOrEqual:
			t.lower[slack], t.upper[slack] = math.Inf(-1), 0
		default:
			t.lower[slack], t.upper[slack] = 0, 0
		}
		t.lower[art], t.upper[art] = 0, math.Inf(1)

		resid := r.RHS - floats.Dot(row[:n], t.x[:n])
		if resid >= t.lower[slack]-feasTol && resid <= t.upper[slack]+feasTol {
			row[art] = 1
			t.basis[i] = slack
			t.x[slack] = resid
			continue
		}
		// Artificial absorbs the residual; scale the row so its column is +1.
		sign := 1.0
		if resid < 0 {
			sign = -1
		}
		row[art] = sign
		floats.Scale(sign, row)
		t.basis[i] = art
		t.x[art] = math.Abs(resid)
	}
	for i, b := range t.basis {
		t.rowOf[b] = i
	}
	return t
}

// solve minimizes cost over the current bounds. Phase one drives the
// artificial columns to zero first.
func (t *tableau) solve(cost []float64) error {
	needPhase1 := false
	for i := 0; i < t.m; i++ {
		if t.basis[i] >= t.n+t.m {
			needPhase1 = true
			break
		}
	}
	if needPhase1 {
		c1 := make([]float64, t.cols)
		for j := t.n + t.m; j < t.cols; j++ {
			c1[j] = 1
		}
		if err := t.iterate(c1); err != nil {
			return err
		}
		var infeas float64
		for j := t.n + t.m; j < t.cols; j++ {
			infeas += t.x[j]
		}
		if infeas > feasTol*float64(t.m+1) {
			return errLPInfeasible
		}
	}
	// Artificial columns stay at zero from here on.
	for j := t.n + t.m; j < t.cols; j++ {
		t.upper[j] = 0
		if t.rowOf[j] < 0 {
			t.x[j] = 0
		}
	}

	c2 := make([]float64, t.cols)
	copy(c2, cost)
	return t.iterate(c2)
}

// reducedCosts sets d = c - c_B B^-1 A.
func (t *tableau) reducedCosts(c []float64) {
	t.d = append(t.d[:0], c...)
	for i := 0; i < t.m; i++ {
		if cb := c[t.basis[i]]; cb != 0 {
			floats.AddScaled(t.d, -cb, t.tab.RawRowView(i))
		}
	}
}

// entering picks a nonbasic column whose move improves the objective.
// It returns the column and the direction of the move, or -1.
func (t *tableau) entering(bland bool) (int, float64) {
	best, dir, bestAbs := -1, 0.0, 0.0
	for j := 0; j < t.cols; j++ {
		if t.rowOf[j] >= 0 || t.upper[j]-t.lower[j] <= feasTol {
			continue
		}
		dj := t.d[j]
		var sgn float64
		switch {
		case dj < -costTol && t.x[j] < t.upper[j]-feasTol:
			sgn = 1
		case dj > costTol && t.x[j] > t.lower[j]+feasTol:
			sgn = -1
		default:
			continue
		}
		if bland {
			return j, sgn
		}
		if a := math.Abs(dj); a > bestAbs {
			best, dir, bestAbs = j, sgn, a
		}
	}
	return best, dir
}

func (t *tableau) iterate(c []float64) error {
	t.reducedCosts(c)
	limit := iterPerSize * (t.m + t.n + 1)
	degenerate := 0
	for iter := 0; iter < limit; iter++ {
		j, dir := t.entering(degenerate > blandAfter)
		if j < 0 {
			return nil
		}

		// Ratio test: the entering column moves by step in direction dir,
		// basic column of row i moves by -tab[i][j]*dir*step.
		step := t.upper[j] - t.lower[j]
		leave, leaveAtUpper := -1, false
		for i := 0; i < t.m; i++ {
			alpha := t.tab.At(i, j) * dir
			b := t.basis[i]
			var s float64
			var atUpper bool
			switch {
			case alpha > pivotTol && !math.IsInf(t.lower[b], -1):
				s = (t.x[b] - t.lower[b]) / alpha
			case alpha < -pivotTol && !math.IsInf(t.upper[b], 1):
				s, atUpper = (t.upper[b]-t.x[b])/-alpha, true
			default:
				continue
			}
			if s < 0 {
				s = 0
			}
			if s < step || (s == step && leave >= 0 && math.Abs(alpha) > math.Abs(t.tab.At(leave, j))) {
				step, leave, leaveAtUpper = s, i, atUpper
			}
		}
		if math.IsInf(step, 1) {
			return errLPUnbounded
		}
		if step <= pivotTol {
			degenerate++
		} else {
			degenerate = 0
		}

		t.x[j] += dir * step
		for i := 0; i < t.m; i++ {
			if a := t.tab.At(i, j); a != 0 {
				t.x[t.basis[i]] -= a * dir * step
			}
		}
		if leave < 0 {
			// Bound flip.
			if dir > 0 {
				t.x[j] = t.upper[j]
			} else {
				t.x[j] = t.lower[j]
			}
			continue
		}
		b := t.basis[leave]
		if leaveAtUpper {
			t.x[b] = t.upper[b]
		} else {
			t.x[b] = t.lower[b]
		}
		t.pivot(leave, j)
	}
	return errLPIterations
}

// pivot makes column j basic in row r.
func (t *tableau) pivot(r, j int) {
	pr := t.tab.RawRowView(r)
	floats.Scale(1/pr[j], pr)
	pr[j] = 1
	for i := 0; i < t.m; i++ {
		if i == r {
			continue
		}
		row := t.tab.RawRowView(i)
		if f := row[j]; f != 0 {
			floats.AddScaled(row, -f, pr)
			row[j] = 0
		}
	}
	if f := t.d[j]; f != 0 {
		floats.AddScaled(t.d, -f, pr)
		t.d[j] = 0
	}
	old := t.basis[r]
	t.rowOf[old] = -1
	t.basis[r] = j
	t.rowOf[j] = r
}

// objective returns cost.x over the structural columns.
func (t *tableau) objective(cost []float64) float64 {
	return floats.Dot(cost[:t.n], t.x[:t.n])
}

// values returns a copy of the structural columns.
func (t *tableau) values() []float64 {
	return append([]float64(nil), t.x[:t.n]...)
}
