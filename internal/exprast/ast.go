// Package exprast defines the typed expression tree produced by
// internal/exprparse, the target of SSA version resolution in
// internal/compiler. Grounded on the node-per-construct shape of the
// teacher's internal/ast.Expr hierarchy, cut down to the restricted
// arithmetic/boolean sublanguage of spec.md §4.1.
package exprast

// Expr is any node in a compiled predicate or code-fragment expression.
type Expr interface {
	exprNode()
	Offset() int
}

// IntLit is an integer literal.
type IntLit struct {
	Pos   int
	Value int64
}

func (IntLit) exprNode()     {}
func (e IntLit) Offset() int { return e.Pos }

// BoolLit is True/False.
type BoolLit struct {
	Pos   int
	Value bool
}

func (BoolLit) exprNode()     {}
func (e BoolLit) Offset() int { return e.Pos }

// NoneLit is the None literal, only legal as an operand of Is/IsNot.
type NoneLit struct {
	Pos int
}

func (NoneLit) exprNode()     {}
func (e NoneLit) Offset() int { return e.Pos }

// Local is a bare identifier naming a code-fragment-local variable.
type Local struct {
	Pos  int
	Name string
}

func (Local) exprNode()     {}
func (e Local) Offset() int { return e.Pos }

// Outcome is a `qid.outcome` reference to another item's answer.
type Outcome struct {
	Pos    int
	ItemID string
}

func (Outcome) exprNode()     {}
func (e Outcome) Offset() int { return e.Pos }

// UnaryOp is `not x` or unary `-x`.
type UnaryOp struct {
	Pos int
	Op  string // "not" | "-"
	X   Expr
}

func (UnaryOp) exprNode()     {}
func (e UnaryOp) Offset() int { return e.Pos }

// BinaryOp covers comparisons, arithmetic, and and/or.
type BinaryOp struct {
	Pos   int
	Op    string // "and" "or" "==" "!=" "<" "<=" ">" ">=" "+" "-" "*" "//" "%"
	Left  Expr
	Right Expr
}

func (BinaryOp) exprNode()     {}
func (e BinaryOp) Offset() int { return e.Pos }

// IsCheck is `expr is [not] None`, the visitedness proxy described in
// spec.md §9.
type IsCheck struct {
	Pos    int
	X      Expr
	Negate bool // "is not None" when true
}

func (IsCheck) exprNode()     {}
func (e IsCheck) Offset() int { return e.Pos }

// Call is a function call. Per spec.md §4.1 there are no user-defined
// functions, so every Call that survives parsing fails compilation with
// UnknownFunction; it is retained in the AST so the compiler can report
// the offending name rather than the parser rejecting it blind.
type Call struct {
	Pos  int
	Name string
	Args []Expr
}

func (Call) exprNode()     {}
func (e Call) Offset() int { return e.Pos }

// Assign is a code-fragment statement `name = expr`, the unit the SSA
// versioner walks to allocate new local versions.
type Assign struct {
	Pos  int
	Name string
	RHS  Expr
}

func (Assign) exprNode()     {}
func (e Assign) Offset() int { return e.Pos }
