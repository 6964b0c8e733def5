package solver

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckSat_SimpleRange(t *testing.T) {
	s := New(map[string]Interval{"age": {Lo: 0, Hi: 120}})
	res := s.CheckSat(context.Background(), Cmp{Op: ">=", L: Var{Name: "age"}, R: IntConst{Value: 16}})
	require.Equal(t, Sat, res.Status)
	require.GreaterOrEqual(t, res.Model["age"], int64(16))
}

func TestCheckSat_PropagationFindsUnsat(t *testing.T) {
	s := New(map[string]Interval{"income": {Lo: 0, Hi: 1_000_000}})
	// income >= 50000 and income < 30000 is the S3 dead-code contradiction.
	res := s.CheckSat(context.Background(),
		Cmp{Op: ">=", L: Var{Name: "income"}, R: IntConst{Value: 50000}},
		Cmp{Op: "<", L: Var{Name: "income"}, R: IntConst{Value: 30000}},
	)
	require.Equal(t, Unsat, res.Status)
}

func TestCheckSat_AlwaysReachability(t *testing.T) {
	// B* alone (no predicate) should make Not(true) unsat, i.e. R1-style
	// query for an item with an empty precondition reports ALWAYS.
	s := New(map[string]Interval{})
	res := s.CheckSat(context.Background(), Not{X: True})
	require.Equal(t, Unsat, res.Status)
}

func TestCheckSat_NeverReachability(t *testing.T) {
	s := New(map[string]Interval{"x": {Lo: 0, Hi: 10}})
	// x < 0 is never satisfiable given the declared domain.
	res := s.CheckSat(context.Background(), Cmp{Op: "<", L: Var{Name: "x"}, R: IntConst{Value: 0}})
	require.Equal(t, Unsat, res.Status)
}

func TestCheckSat_PushPopScoping(t *testing.T) {
	s := New(map[string]Interval{"x": {Lo: 0, Hi: 10}})
	s.Push()
	s.Assert(Cmp{Op: "==", L: Var{Name: "x"}, R: IntConst{Value: 5}})
	res := s.CheckSat(context.Background(), Cmp{Op: "==", L: Var{Name: "x"}, R: IntConst{Value: 6}})
	require.Equal(t, Unsat, res.Status, "x==5 and x==6 in the same frame must be unsat")
	s.Pop()
	res = s.CheckSat(context.Background(), Cmp{Op: "==", L: Var{Name: "x"}, R: IntConst{Value: 6}})
	require.Equal(t, Sat, res.Status, "popping the x==5 frame should free x again")
}

func TestCheckSat_EnumDomain(t *testing.T) {
	s := New(map[string]Interval{"color": {Lo: 0, Hi: 2, Allowed: []int64{0, 2}}})
	res := s.CheckSat(context.Background(), Cmp{Op: "==", L: Var{Name: "color"}, R: IntConst{Value: 1}})
	require.Equal(t, Unsat, res.Status, "1 is excluded from the enum's allowed set")
}

func TestCheckSat_DivisionByZeroGuardDoesNotPanic(t *testing.T) {
	s := New(map[string]Interval{"d": {Lo: -2, Hi: 2}})
	require.NotPanics(t, func() {
		s.CheckSat(context.Background(), Cmp{Op: "==", L: Arith{Op: "//", L: IntConst{Value: 10}, R: Var{Name: "d"}}, R: IntConst{Value: 5}})
	})
}

func TestCheckSat_NodeBudgetSurfacesUnknown(t *testing.T) {
	s := New(map[string]Interval{"x": {Lo: 0, Hi: 1_000_000}, "y": {Lo: 0, Hi: 1_000_000}})
	s.Budget = 4
	res := s.CheckSat(context.Background(), Cmp{Op: "==", L: Var{Name: "x"}, R: Var{Name: "y"}})
	require.Equal(t, Unknown, res.Status)
}

func TestCheckSat_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New(map[string]Interval{"x": {Lo: 0, Hi: 10}})
	res := s.CheckSat(ctx, Cmp{Op: ">", L: Var{Name: "x"}, R: IntConst{Value: 0}})
	require.Equal(t, Unknown, res.Status)
}

func TestConjoin_EmptyIsTrue(t *testing.T) {
	require.Equal(t, True, Conjoin())
}

func TestConjoin_FlattensNestedAnd(t *testing.T) {
	t1 := Cmp{Op: "==", L: Var{Name: "a"}, R: IntConst{Value: 1}}
	t2 := Cmp{Op: "==", L: Var{Name: "b"}, R: IntConst{Value: 2}}
	got := Conjoin(And{Args: []Term{t1}}, t2)
	and, ok := got.(And)
	require.True(t, ok)
	require.Len(t, and.Args, 2)
}

func TestVars_Dedup(t *testing.T) {
	f := And{Args: []Term{
		Cmp{Op: "==", L: Var{Name: "x"}, R: Var{Name: "x"}},
		Cmp{Op: "!=", L: Var{Name: "y"}, R: IntConst{Value: 0}},
	}}
	got := Vars(f)
	require.ElementsMatch(t, []string{"x", "y"}, got)
}
