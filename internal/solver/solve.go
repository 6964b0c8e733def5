package solver

import (
	"context"
	"sort"

	"github.com/google/uuid"
)

// Status is the three-way verdict spec.md §4.4-4.6 need from every query.
type Status string

const (
	Sat     Status = "SAT"
	Unsat   Status = "UNSAT"
	Unknown Status = "UNKNOWN" // surfaced by callers as UNDECIDED
)

// CheckResult is the outcome of one CheckSat call.
type CheckResult struct {
	Status Status
	Model  Env // populated on Sat, restricted to the variables that were free
}

// DefaultNodeBudget bounds the backtracking search so that a pathological
// formula fails closed as Unknown rather than hanging — the in-process
// stand-in for "each query MUST accept a timeout" (spec.md §5) since this
// solver has no external process to kill.
const DefaultNodeBudget = 200_000

// frame is one push/pop level's asserted terms, tagged with a uuid in the
// style of a request-scoped id. Push returns the id to its caller; the
// solver itself has no logger and never reports it.
type frame struct {
	id    uuid.UUID
	terms []Term
}

// Solver is an incremental context over a fixed set of declared variable
// domains (B*'s contribution), onto which callers push/assert/pop
// additional constraints. Grounded on gokando's FDStore + push/pop usage
// pattern in fd_solver.go, adapted from relational unification to
// straightforward backtracking search with bounds propagation.
type Solver struct {
	domains map[string]Interval
	frames  []frame
	Budget  int
}

// New creates a Solver over the given fixed variable domains (typically
// B*, the conjunction of every item's ⟦D_i⟧ from spec.md §4.2).
func New(domains map[string]Interval) *Solver {
	return &Solver{domains: domains, Budget: DefaultNodeBudget}
}

// Push opens a new assertion frame and returns its id.
func (s *Solver) Push() uuid.UUID {
	id := uuid.New()
	s.frames = append(s.frames, frame{id: id})
	return id
}

// Pop discards the most recently pushed frame.
func (s *Solver) Pop() {
	if len(s.frames) == 0 {
		return
	}
	s.frames = s.frames[:len(s.frames)-1]
}

// Assert adds t to the current frame (the base frame if nothing has been
// pushed yet).
func (s *Solver) Assert(t Term) {
	if len(s.frames) == 0 {
		s.frames = append(s.frames, frame{id: uuid.New()})
	}
	top := len(s.frames) - 1
	s.frames[top].terms = append(s.frames[top].terms, t)
}

// CheckSat checks satisfiability of the conjunction of every asserted
// frame plus extra, against the declared domains. This is the single
// primitive that implements every query in spec.md §4.4 (R1/R2/T1/T2),
// §4.5 (the global formula), and §4.6 (the accumulated precondition).
func (s *Solver) CheckSat(ctx context.Context, extra ...Term) CheckResult {
	var all []Term
	for _, f := range s.frames {
		all = append(all, f.terms...)
	}
	all = append(all, extra...)
	formula := Conjoin(all...)

	domains := cloneDomains(s.domains)
	for _, v := range Vars(formula) {
		if _, ok := domains[v]; !ok {
			domains[v] = Interval{Lo: modelDefaultLo, Hi: modelDefaultHi}
		}
	}

	domains, ok := propagate(formula, domains)
	if !ok {
		return CheckResult{Status: Unsat}
	}

	nodes := 0
	env := Env{}
	status := search(ctx, formula, domains, env, &nodes, s.budget())
	switch status {
	case Sat:
		return CheckResult{Status: Sat, Model: env}
	case Unsat:
		return CheckResult{Status: Unsat}
	default:
		return CheckResult{Status: Unknown}
	}
}

func (s *Solver) budget() int {
	if s.Budget <= 0 {
		return DefaultNodeBudget
	}
	return s.Budget
}

// modelDefaultLo/Hi are the bounds spec.md §3 assigns an absent Integer
// domain; CheckSat gives them to any variable the formula references that
// has no declared domain, and propagate() may then tighten them.
const (
	modelDefaultLo = -(1 << 31)
	modelDefaultHi = (1 << 31) - 1
)

func cloneDomains(d map[string]Interval) map[string]Interval {
	out := make(map[string]Interval, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// propagate applies bounds-consistency passes for every literal comparison
// conjunct (Var op Const / Const op Var) until a fixpoint, in the manner
// of interval-arithmetic constraint propagation. When both comparisons are
// top-level conjuncts (income >= 50000 and income < 30000) this narrows
// income to an empty interval without any search. Comparisons nested in an
// Or or a Not, such as an implication P => Q, are not propagated and are
// left to search.
func propagate(formula Term, domains map[string]Interval) (map[string]Interval, bool) {
	conjuncts := flattenAnd(formula)
	changed := true
	for changed {
		changed = false
		for _, c := range conjuncts {
			cmp, ok := c.(Cmp)
			if !ok {
				continue
			}
			name, lit, flip, ok := literalComparison(cmp)
			if !ok {
				continue
			}
			dom, ok := domains[name]
			if !ok {
				continue
			}
			op := cmp.Op
			if flip {
				op = flipOp(op)
			}
			next, ok := narrowFor(dom, op, lit)
			if !ok {
				return domains, false
			}
			if next != dom {
				domains[name] = next
				changed = true
			}
			if next.Empty() {
				return domains, false
			}
		}
	}
	for _, dom := range domains {
		if dom.Empty() {
			return domains, false
		}
	}
	return domains, true
}

func flattenAnd(t Term) []Term {
	if a, ok := t.(And); ok {
		var out []Term
		for _, arg := range a.Args {
			out = append(out, flattenAnd(arg)...)
		}
		return out
	}
	return []Term{t}
}

// literalComparison recognizes `Var op Const` or `Const op Var`, returning
// the variable name, the literal, and whether the operands were flipped
// (so the caller knows to mirror the operator).
func literalComparison(c Cmp) (name string, lit int64, flipped bool, ok bool) {
	if v, isVar := c.L.(Var); isVar {
		if k, isConst := c.R.(IntConst); isConst {
			return v.Name, k.Value, false, true
		}
	}
	if v, isVar := c.R.(Var); isVar {
		if k, isConst := c.L.(IntConst); isConst {
			return v.Name, k.Value, true, true
		}
	}
	return "", 0, false, false
}

func flipOp(op string) string {
	switch op {
	case "<":
		return ">"
	case "<=":
		return ">="
	case ">":
		return "<"
	case ">=":
		return "<="
	default:
		return op // == and != are symmetric
	}
}

func narrowFor(dom Interval, op string, lit int64) (Interval, bool) {
	switch op {
	case "==":
		n := dom.Narrow(lit, lit)
		return n, true
	case "!=":
		return dom.Exclude(lit), true
	case "<":
		return dom.Narrow(dom.Lo, lit-1), true
	case "<=":
		return dom.Narrow(dom.Lo, lit), true
	case ">":
		return dom.Narrow(lit+1, dom.Hi), true
	case ">=":
		return dom.Narrow(lit, dom.Hi), true
	default:
		return dom, true
	}
}

// search performs first-fail backtracking over the variables still free in
// env, pruning a branch the instant a partial assignment forces a conjunct
// false (via evalBool's three-valued short circuit).
func search(ctx context.Context, formula Term, domains map[string]Interval, env Env, nodes *int, budget int) Status {
	if err := ctx.Err(); err != nil {
		return Unknown
	}
	*nodes++
	if *nodes > budget {
		return Unknown
	}

	switch evalBool(formula, env) {
	case triFalse:
		return Unsat
	case triTrue:
		return Sat
	}

	name, ok := nextVar(formula, domains, env)
	if !ok {
		// Every referenced variable is bound yet evalBool is still
		// Unknown: the formula references a variable outside `domains`
		// that was never declared. Treat conservatively as undecided.
		return Unknown
	}

	dom := domains[name]
	if dom.Size() > int64(budget) {
		// Enumerating this domain alone would blow the budget; report
		// undecided rather than spuriously declaring UNSAT.
		return Unknown
	}

	sawUnknown := false
	for _, v := range dom.Values() {
		env[name] = v
		switch search(ctx, formula, domains, env, nodes, budget) {
		case Sat:
			return Sat
		case Unknown:
			sawUnknown = true
		}
		delete(env, name)
		if *nodes > budget {
			return Unknown
		}
	}
	if sawUnknown {
		return Unknown
	}
	return Unsat
}

// nextVar applies first-fail selection (smallest remaining domain first),
// the same heuristic as gokando's FirstFailLabeling, restricted to
// variables that formula actually references and that aren't bound yet.
func nextVar(formula Term, domains map[string]Interval, env Env) (string, bool) {
	refs := Vars(formula)
	var candidates []string
	for _, name := range refs {
		if _, bound := env[name]; bound {
			continue
		}
		if _, declared := domains[name]; declared {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", false
	}
	sort.Slice(candidates, func(i, j int) bool {
		si, sj := domains[candidates[i]].Size(), domains[candidates[j]].Size()
		if si != sj {
			return si < sj
		}
		return candidates[i] < candidates[j]
	})
	return candidates[0], true
}
