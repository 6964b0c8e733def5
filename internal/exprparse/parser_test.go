package exprparse

import (
	"testing"

	"github.com/qscopehq/qscope/internal/exprast"
)

func TestParse_Precedence(t *testing.T) {
	e, err := Parse("age >= 16 and experience <= age - 16 or not done")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	// Top-level node must be "or" (lowest precedence), whose left side is
	// the "and" of the two comparisons.
	top, ok := e.(*exprast.BinaryOp)
	if !ok || top.Op != "or" {
		t.Fatalf("top-level op = %#v, want or", e)
	}
	and, ok := top.Left.(*exprast.BinaryOp)
	if !ok || and.Op != "and" {
		t.Fatalf("left of or = %#v, want and", top.Left)
	}
}

func TestParse_OutcomeReference(t *testing.T) {
	e, err := Parse("q1.outcome == 1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	cmp := e.(*exprast.BinaryOp)
	outcome, ok := cmp.Left.(*exprast.Outcome)
	if !ok || outcome.ItemID != "q1" {
		t.Fatalf("left operand = %#v, want Outcome{q1}", cmp.Left)
	}
}

func TestParse_IsNoneCheck(t *testing.T) {
	e, err := Parse("q1.outcome is not None")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ic, ok := e.(*exprast.IsCheck)
	if !ok || !ic.Negate {
		t.Fatalf("got %#v, want IsCheck{Negate: true}", e)
	}
}

func TestParse_UnexpectedTrailingToken(t *testing.T) {
	_, err := Parse("1 + 2 3")
	if err == nil {
		t.Fatal("expected a parse error on trailing token")
	}
}

func TestParseAssignment(t *testing.T) {
	a, err := ParseAssignment("bonus = base * 2")
	if err != nil {
		t.Fatalf("ParseAssignment: %v", err)
	}
	if a.Name != "bonus" {
		t.Errorf("Name = %q, want bonus", a.Name)
	}
	rhs, ok := a.RHS.(*exprast.BinaryOp)
	if !ok || rhs.Op != "*" {
		t.Fatalf("RHS = %#v, want BinaryOp{*}", a.RHS)
	}
}

func TestParseAssignment_RejectsBareExpression(t *testing.T) {
	if _, err := ParseAssignment("age >= 16"); err == nil {
		t.Fatal("expected an error: not an assignment target/= form")
	}
}

func TestParse_FloorDivAndModulus(t *testing.T) {
	e, err := Parse("x // 2 == 0 and x % 2 == 1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	top := e.(*exprast.BinaryOp)
	if top.Op != "and" {
		t.Fatalf("top op = %q, want and", top.Op)
	}
}
