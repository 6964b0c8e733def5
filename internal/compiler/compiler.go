// Package compiler lowers a parsed exprast.Expr into an SMT-ish
// solver.Term, per spec.md §4.1. It is deliberately stateless about
// cross-item SSA bookkeeping — that is internal/builder's job (spec.md
// §4.2) — and instead takes a Resolver the builder supplies, mirroring how
// the teacher's internal/elaborate separates "what does this expression
// mean" (elaborate.go) from "what does this identifier currently refer to"
// (the environment threaded in from internal/link).
package compiler

import (
	"fmt"

	"github.com/qscopehq/qscope/internal/exprast"
	"github.com/qscopehq/qscope/internal/model"
	"github.com/qscopehq/qscope/internal/qerrors"
	"github.com/qscopehq/qscope/internal/solver"
)

// Kind is the inferred value kind of a compiled sub-expression.
type Kind int

const (
	KindInt Kind = iota
	KindBool
)

// Resolver answers identifier-resolution questions on behalf of a single
// item's compilation, supplying the "version map" spec.md §4.1 describes.
type Resolver interface {
	// Self is the id of the item currently being compiled; referencing
	// Self from within its own precondition/postcondition is the illegal
	// self-edge of spec.md §3.
	Self() string

	// ResolveOutcome returns the solver variable standing for itemID's
	// current (SSA-live) outcome value, and that item's domain kind so
	// the compiler can type-check uses of it.
	ResolveOutcome(itemID string) (varName string, domain model.DomainKind, ok bool)

	// ResolveLocal returns the solver variable for the most recent write
	// to a code-fragment-local identifier visible at this use site, and
	// its inferred kind.
	ResolveLocal(name string) (varName string, kind Kind, ok bool)

	// Visited returns the auxiliary boolean variable name standing for
	// `itemID.outcome is not None` (spec.md §9).
	Visited(itemID string) (varName string, ok bool)
}

// Result is everything compiling one expression produces.
type Result struct {
	Term   solver.Term
	Kind   Kind
	Guards []solver.Term // divisor != 0 guards, to be conjoined with the enclosing predicate
}

// Compile lowers expr using resolver, returning a *qerrors.ReportError on
// any of the hard-error kinds named in spec.md §4.1 (ParseError belongs to
// internal/exprparse; everything else belongs here).
func Compile(itemID string, expr exprast.Expr, resolver Resolver) (Result, error) {
	c := &compileCtx{itemID: itemID, resolver: resolver}
	t, k, err := c.translate(expr)
	if err != nil {
		return Result{}, err
	}
	return Result{Term: t, Kind: k, Guards: c.guards}, nil
}

type compileCtx struct {
	itemID   string
	resolver Resolver
	guards   []solver.Term
}

func (c *compileCtx) fail(kind qerrors.Kind, offset int, format string, args ...any) error {
	return qerrors.New(kind, c.itemID, fmt.Sprintf(format, args...), offset)
}

func (c *compileCtx) translate(e exprast.Expr) (solver.Term, Kind, error) {
	switch n := e.(type) {
	case *exprast.IntLit:
		return solver.IntConst{Value: n.Value}, KindInt, nil

	case *exprast.BoolLit:
		return solver.BoolConst{Value: n.Value}, KindBool, nil

	case *exprast.NoneLit:
		return nil, 0, c.fail(qerrors.TypeMismatch, n.Offset(), "None is only comparable with is/is not")

	case *exprast.Local:
		name, kind, ok := c.resolver.ResolveLocal(n.Name)
		if !ok {
			// A code-fragment local referenced before any write in the
			// current item's own straight-line sequence is a per-item bug
			// in that one item's code, not a document-wide schema problem
			// (contrast with an unknown qid.outcome or self-reference
			// below, both UnresolvedIdentifier): it is isolated to this
			// item's record rather than aborting the whole analysis.
			return nil, 0, c.fail(qerrors.UnknownIdentifier, n.Offset(), "unknown identifier %q", n.Name)
		}
		return solver.Var{Name: name}, kind, nil

	case *exprast.Outcome:
		if n.ItemID == c.itemID {
			return nil, 0, c.fail(qerrors.UnresolvedIdentifier, n.Offset(), "self-reference to %q.outcome is illegal", n.ItemID)
		}
		name, dk, ok := c.resolver.ResolveOutcome(n.ItemID)
		if !ok {
			return nil, 0, c.fail(qerrors.UnresolvedIdentifier, n.Offset(), "unknown item id %q", n.ItemID)
		}
		kind := KindInt
		if dk == model.DomainBoolean {
			kind = KindBool
		}
		return solver.Var{Name: name}, kind, nil

	case *exprast.UnaryOp:
		return c.translateUnary(n)

	case *exprast.BinaryOp:
		return c.translateBinary(n)

	case *exprast.IsCheck:
		return c.translateIsCheck(n)

	case *exprast.Call:
		return nil, 0, c.fail(qerrors.UnknownFunction, n.Offset(), "unknown function %q", n.Name)

	default:
		return nil, 0, c.fail(qerrors.UnsupportedExpression, e.Offset(), "unsupported expression node %T", e)
	}
}

func (c *compileCtx) translateUnary(n *exprast.UnaryOp) (solver.Term, Kind, error) {
	x, xk, err := c.translate(n.X)
	if err != nil {
		return nil, 0, err
	}
	switch n.Op {
	case "not":
		if xk != KindBool {
			return nil, 0, c.fail(qerrors.TypeMismatch, n.Offset(), "'not' requires a boolean operand")
		}
		return solver.Not{X: x}, KindBool, nil
	case "-":
		if xk != KindInt {
			return nil, 0, c.fail(qerrors.TypeMismatch, n.Offset(), "unary '-' requires an integer operand")
		}
		return solver.Arith{Op: "-", L: solver.IntConst{Value: 0}, R: x}, KindInt, nil
	default:
		return nil, 0, c.fail(qerrors.UnsupportedExpression, n.Offset(), "unknown unary operator %q", n.Op)
	}
}

var boolOps = map[string]bool{"and": true, "or": true}
var cmpOps = map[string]bool{"==": true, "!=": true, "<": true, "<=": true, ">": true, ">=": true}
var arithOps = map[string]bool{"+": true, "-": true, "*": true, "//": true, "%": true}

func (c *compileCtx) translateBinary(n *exprast.BinaryOp) (solver.Term, Kind, error) {
	left, lk, err := c.translate(n.Left)
	if err != nil {
		return nil, 0, err
	}
	right, rk, err := c.translate(n.Right)
	if err != nil {
		return nil, 0, err
	}

	switch {
	case boolOps[n.Op]:
		if lk != KindBool || rk != KindBool {
			return nil, 0, c.fail(qerrors.TypeMismatch, n.Offset(), "%q requires boolean operands", n.Op)
		}
		// Short-circuit operators are translated to full boolean
		// connectives, per spec.md §4.1: "SMT has no ordering."
		if n.Op == "and" {
			return solver.And{Args: []solver.Term{left, right}}, KindBool, nil
		}
		return solver.Or{Args: []solver.Term{left, right}}, KindBool, nil

	case cmpOps[n.Op]:
		if lk != KindInt || rk != KindInt {
			return nil, 0, c.fail(qerrors.TypeMismatch, n.Offset(), "%q requires integer operands", n.Op)
		}
		return solver.Cmp{Op: n.Op, L: left, R: right}, KindBool, nil

	case arithOps[n.Op]:
		if lk != KindInt || rk != KindInt {
			return nil, 0, c.fail(qerrors.TypeMismatch, n.Offset(), "%q requires integer operands", n.Op)
		}
		if n.Op == "*" {
			if !isLiteral(n.Left) && !isLiteral(n.Right) {
				return nil, 0, c.fail(qerrors.UnsupportedExpression, n.Offset(),
					"multiplication requires at least one literal operand (non-linear arithmetic is unsupported)")
			}
		}
		if n.Op == "//" || n.Op == "%" {
			if err := c.checkDivisor(n.Right, n.Offset(), right); err != nil {
				return nil, 0, err
			}
		}
		return solver.Arith{Op: n.Op, L: left, R: right}, KindInt, nil

	default:
		return nil, 0, c.fail(qerrors.UnsupportedExpression, n.Offset(), "unknown binary operator %q", n.Op)
	}
}

func (c *compileCtx) checkDivisor(rhsExpr exprast.Expr, offset int, rhsTerm solver.Term) error {
	if lit, ok := rhsExpr.(*exprast.IntLit); ok {
		if lit.Value == 0 {
			return c.fail(qerrors.UnsupportedExpression, offset, "division/modulus by literal zero")
		}
		return nil
	}
	// Divisor is a variable: emit a guard `divisor != 0`, attached by the
	// caller (internal/builder) to the enclosing predicate, per spec.md
	// §4.1.
	c.guards = append(c.guards, solver.Not{X: solver.Cmp{Op: "==", L: rhsTerm, R: solver.IntConst{Value: 0}}})
	return nil
}

func (c *compileCtx) translateIsCheck(n *exprast.IsCheck) (solver.Term, Kind, error) {
	outcome, ok := n.X.(*exprast.Outcome)
	if !ok {
		return nil, 0, c.fail(qerrors.UnsupportedExpression, n.Offset(), "'is [not] None' is only supported on a qid.outcome reference")
	}
	varName, ok := c.resolver.Visited(outcome.ItemID)
	if !ok {
		return nil, 0, c.fail(qerrors.UnresolvedIdentifier, n.Offset(), "unknown item id %q", outcome.ItemID)
	}
	v := solver.Var{Name: varName}
	if n.Negate {
		// "is not None": the item has been visited.
		return v, KindBool, nil
	}
	return solver.Not{X: v}, KindBool, nil
}

func isLiteral(e exprast.Expr) bool {
	switch e.(type) {
	case *exprast.IntLit, *exprast.BoolLit:
		return true
	default:
		return false
	}
}
