// Package mip builds the exact loading model and drives a MIP engine over it.
package mip

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInfeasible is returned when an engine proves the model infeasible
	// or stops without an incumbent.
	ErrInfeasible = errors.New("mip: no feasible solution")

	// ErrNoVariables is returned when a model is built over an empty scope.
	ErrNoVariables = errors.New("mip: model has no variables")

	// ErrTooLarge is returned by an engine that cannot hold the model.
	// Callers shrink the scope and try again.
	ErrTooLarge = errors.New("mip: model too large for the engine")
)

// VarKind is the domain of a variable.
type VarKind int

const (
	Continuous VarKind = iota
	Binary
	Integer
)

// Var is a handle to a model variable.
type Var int

// Sense is the relation of a constraint row.
type Sense int

const (
	LessThanOrEqual Sense = iota
	GreaterThanOrEqual
	Equal
)

func (s Sense) String() string {
	switch s {
	case LessThanOrEqual:
		return "<="
	case GreaterThanOrEqual:
		return ">="
	default:
		return "=="
	}
}

// VarDef describes one variable.
type VarDef struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// Integral reports whether the variable must take an integer value.
func (d VarDef) Integral() bool {
	return d.Kind != Continuous
}

// Term is a coefficient applied to a variable.
type Term struct {
	Var  Var
	Coef float64
}

// Row is a linear constraint.
type Row struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// NewTerm appends coef*v to the row.
func (r *Row) NewTerm(coef float64, v Var) *Row {
	r.Terms = append(r.Terms, Term{Var: v, Coef: coef})
	return r
}

// Activity evaluates the left-hand side at values.
func (r *Row) Activity(values []float64) float64 {
	var s float64
	for _, t := range r.Terms {
		s += t.Coef * values[t.Var]
	}
	return s
}

// Objective is a linear objective with a constant offset.
type Objective struct {
	Terms    []Term
	Offset   float64
	Maximize bool
}

// NewTerm appends coef*v to the objective.
func (o *Objective) NewTerm(coef float64, v Var) {
	o.Terms = append(o.Terms, Term{Var: v, Coef: coef})
}

// Problem is an engine-independent mixed-integer linear program.
type Problem struct {
	Vars      []VarDef
	Rows      []*Row
	Objective Objective
	Hints     map[Var]float64
}

// NewProblem returns an empty problem.
func NewProblem() *Problem {
	return &Problem{Hints: map[Var]float64{}}
}

// NewVar adds a variable.
func (p *Problem) NewVar(name string, kind VarKind, lower, upper float64) Var {
	p.Vars = append(p.Vars, VarDef{Name: name, Kind: kind, Lower: lower, Upper: upper})
	return Var(len(p.Vars) - 1)
}

// NewBool adds a binary variable.
func (p *Problem) NewBool(name string) Var {
	return p.NewVar(name, Binary, 0, 1)
}

// NewFloat adds a continuous variable in [lower, upper].
func (p *Problem) NewFloat(name string, lower, upper float64) Var {
	return p.NewVar(name, Continuous, lower, upper)
}

// NewConstraint adds an empty row; terms are appended with NewTerm.
func (p *Problem) NewConstraint(name string, sense Sense, rhs float64) *Row {
	r := &Row{Name: name, Sense: sense, RHS: rhs}
	p.Rows = append(p.Rows, r)
	return r
}

// Hint records a warm start value.
func (p *Problem) Hint(v Var, value float64) {
	p.Hints[v] = value
}

// Evaluate returns the objective value at values.
func (p *Problem) Evaluate(values []float64) float64 {
	s := p.Objective.Offset
	for _, t := range p.Objective.Terms {
		s += t.Coef * values[t.Var]
	}
	return s
}

// Check verifies bounds, integrality and every row at values within tol.
func (p *Problem) Check(values []float64, tol float64) error {
	if len(values) != len(p.Vars) {
		return fmt.Errorf("expected %d values, got %d", len(p.Vars), len(values))
	}
	for j, d := range p.Vars {
		v := values[j]
		if v < d.Lower-tol || v > d.Upper+tol {
			return fmt.Errorf("variable %s = %g outside [%g, %g]", d.Name, v, d.Lower, d.Upper)
		}
		if d.Integral() && math.Abs(v-math.Round(v)) > tol {
			return fmt.Errorf("variable %s = %g is not integral", d.Name, v)
		}
	}
	for _, r := range p.Rows {
		a := r.Activity(values)
		scale := tol * math.Max(1, math.Abs(r.RHS))
		switch r.Sense {
		case LessThanOrEqual:
			if a > r.RHS+scale {
				return fmt.Errorf("row %s: %g > %g", r.Name, a, r.RHS)
			}
		case GreaterThanOrEqual:
			if a < r.RHS-scale {
				return fmt.Errorf("row %s: %g < %g", r.Name, a, r.RHS)
			}
		case Equal:
			if math.Abs(a-r.RHS) > scale {
				return fmt.Errorf("row %s: %g != %g", r.Name, a, r.RHS)
			}
		}
	}
	return nil
}

// Status is the outcome of an engine run.
type Status int

const (
	StatusOptimal    Status = iota // Search completed
	StatusFeasible                 // Stopped early with an incumbent
	StatusInfeasible               // Proven infeasible
	StatusNoSolution               // Stopped early without an incumbent
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	default:
		return "no-solution"
	}
}

// Result holds the values of a solved problem.
type Result struct {
	Status    Status
	Values    []float64
	Objective float64
	Nodes     int
	RunTime   time.Duration
}

// HasValues reports whether the result carries an incumbent.
func (r Result) HasValues() bool {
	return len(r.Values) > 0 && (r.Status == StatusOptimal || r.Status == StatusFeasible)
}

// Engine solves a Problem within a time limit. Engines return the best
// incumbent when the limit or the context expires, and ErrInfeasible when
// there is none.
type Engine interface {
	Name() string
	Solve(ctx context.Context, p *Problem, limit time.Duration) (Result, error)
}
