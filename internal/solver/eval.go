package solver

import "fmt"

// Env is a complete or partial variable assignment. Booleans are stored as
// 0/1, matching BoolConst's lowering.
type Env map[string]int64

// tri is a three-valued result for evaluating a boolean Term against a
// possibly-partial Env, so Solve can prune a search branch the moment a
// conjunct is forced false without waiting for every variable to be bound.
type tri int

const (
	triFalse tri = iota
	triTrue
	triUnknown
)

// evalBool evaluates t against env, returning triUnknown if t depends on
// an unassigned variable.
func evalBool(t Term, env Env) tri {
	switch n := t.(type) {
	case BoolConst:
		if n.Value {
			return triTrue
		}
		return triFalse
	case Not:
		switch evalBool(n.X, env) {
		case triTrue:
			return triFalse
		case triFalse:
			return triTrue
		default:
			return triUnknown
		}
	case And:
		sawUnknown := false
		for _, a := range n.Args {
			switch evalBool(a, env) {
			case triFalse:
				return triFalse
			case triUnknown:
				sawUnknown = true
			}
		}
		if sawUnknown {
			return triUnknown
		}
		return triTrue
	case Or:
		sawUnknown := false
		for _, a := range n.Args {
			switch evalBool(a, env) {
			case triTrue:
				return triTrue
			case triUnknown:
				sawUnknown = true
			}
		}
		if sawUnknown {
			return triUnknown
		}
		return triFalse
	case Cmp:
		lv, lok := evalInt(n.L, env)
		rv, rok := evalInt(n.R, env)
		if !lok || !rok {
			return triUnknown
		}
		res := false
		switch n.Op {
		case "==":
			res = lv == rv
		case "!=":
			res = lv != rv
		case "<":
			res = lv < rv
		case "<=":
			res = lv <= rv
		case ">":
			res = lv > rv
		case ">=":
			res = lv >= rv
		default:
			panic(fmt.Sprintf("solver: unknown comparison operator %q", n.Op))
		}
		if res {
			return triTrue
		}
		return triFalse
	case Var:
		v, ok := env[n.Name]
		if !ok {
			return triUnknown
		}
		if v != 0 {
			return triTrue
		}
		return triFalse
	default:
		panic(fmt.Sprintf("solver: %T is not a boolean term", t))
	}
}

// evalInt evaluates an integer-valued term; ok is false if some referenced
// variable is unassigned.
func evalInt(t Term, env Env) (int64, bool) {
	switch n := t.(type) {
	case IntConst:
		return n.Value, true
	case Var:
		v, ok := env[n.Name]
		return v, ok
	case Arith:
		lv, lok := evalInt(n.L, env)
		rv, rok := evalInt(n.R, env)
		if !lok || !rok {
			return 0, false
		}
		switch n.Op {
		case "+":
			return lv + rv, true
		case "-":
			return lv - rv, true
		case "*":
			return lv * rv, true
		case "//":
			if rv == 0 {
				return 0, false
			}
			return floorDiv(lv, rv), true
		case "%":
			if rv == 0 {
				return 0, false
			}
			return floorMod(lv, rv), true
		default:
			panic(fmt.Sprintf("solver: unknown arithmetic operator %q", n.Op))
		}
	default:
		panic(fmt.Sprintf("solver: %T is not an integer term", t))
	}
}

// floorDiv and floorMod implement Python-style floor division/modulus,
// matching spec.md §4.1's `//`/`%` semantics (the predicate sublanguage
// reads like the boolean/arithmetic subset of a Python-like DSL).
func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func floorMod(a, b int64) int64 {
	m := a % b
	if m != 0 && ((a < 0) != (b < 0)) {
		m += b
	}
	return m
}
