// Package exprparse implements a recursive-descent/precedence-climbing
// parser for the expression sublanguage of spec.md §4.1, in the style of
// the teacher's internal/parser/parser_expr.go (a hand-rolled ladder of
// parse<Level> functions over a lexer) but scoped to the much smaller
// grammar: comparisons, and/or/not, +/-/*///%%, literals, `qid.outcome`,
// `is [not] None`, and (rejected at compile time) function calls.
package exprparse

import (
	"fmt"
	"strconv"

	"github.com/qscopehq/qscope/internal/exprast"
	"github.com/qscopehq/qscope/internal/exprlex"
)

// ParseError mirrors spec.md §4.1: every compiler error carries a character
// offset so the caller can attach the item id.
type ParseError struct {
	Offset  int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at offset %d: %s", e.Offset, e.Message)
}

type parser struct {
	toks []exprlex.Token
	pos  int
}

func newParser(src string) *parser {
	lx := exprlex.New(src)
	var toks []exprlex.Token
	for {
		t := lx.Next()
		toks = append(toks, t)
		if t.Type == exprlex.EOF {
			break
		}
	}
	return &parser{toks: toks}
}

func (p *parser) cur() exprlex.Token  { return p.toks[p.pos] }
func (p *parser) advance()            { if p.pos < len(p.toks)-1 { p.pos++ } }
func (p *parser) peekIs(t exprlex.TokenType) bool { return p.cur().Type == t }

// Parse compiles a boolean/arithmetic expression (a precondition or
// postcondition predicate) into an exprast.Expr.
func Parse(src string) (exprast.Expr, error) {
	p := newParser(src)
	e, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().Type != exprlex.EOF {
		return nil, &ParseError{Offset: p.cur().Offset, Message: fmt.Sprintf("unexpected token %q", p.cur().Lit)}
	}
	return e, nil
}

// ParseAssignment compiles a single code-fragment statement `name = expr`.
// Loops and other control flow are unsupported per spec.md §9 and are
// rejected by construction: this grammar has no statement form for them.
func ParseAssignment(src string) (*exprast.Assign, error) {
	p := newParser(src)
	if p.cur().Type != exprlex.IDENT {
		return nil, &ParseError{Offset: p.cur().Offset, Message: "expected assignment target identifier"}
	}
	name := p.cur().Lit
	off := p.cur().Offset
	p.advance()
	if p.cur().Type != exprlex.ASSIGN {
		return nil, &ParseError{Offset: p.cur().Offset, Message: "expected '=' in code fragment statement"}
	}
	p.advance()
	rhs, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.cur().Type != exprlex.EOF {
		return nil, &ParseError{Offset: p.cur().Offset, Message: fmt.Sprintf("unexpected token %q after assignment", p.cur().Lit)}
	}
	return &exprast.Assign{Pos: off, Name: name, RHS: rhs}, nil
}

func (p *parser) parseOr() (exprast.Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == exprlex.OR {
		off := p.cur().Offset
		p.advance()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = &exprast.BinaryOp{Pos: off, Op: "or", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (exprast.Expr, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == exprlex.AND {
		off := p.cur().Offset
		p.advance()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = &exprast.BinaryOp{Pos: off, Op: "and", Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseNot() (exprast.Expr, error) {
	if p.cur().Type == exprlex.NOT {
		off := p.cur().Offset
		p.advance()
		x, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return &exprast.UnaryOp{Pos: off, Op: "not", X: x}, nil
	}
	return p.parseComparison()
}

var cmpOps = map[exprlex.TokenType]string{
	exprlex.EQ:  "==",
	exprlex.NEQ: "!=",
	exprlex.LT:  "<",
	exprlex.LTE: "<=",
	exprlex.GT:  ">",
	exprlex.GTE: ">=",
}

func (p *parser) parseComparison() (exprast.Expr, error) {
	left, err := p.parseArith()
	if err != nil {
		return nil, err
	}

	if p.cur().Type == exprlex.IS {
		off := p.cur().Offset
		p.advance()
		negate := false
		if p.cur().Type == exprlex.NOT {
			negate = true
			p.advance()
		}
		if p.cur().Type != exprlex.NONE {
			return nil, &ParseError{Offset: p.cur().Offset, Message: "expected 'None' after 'is'/'is not'"}
		}
		p.advance()
		return &exprast.IsCheck{Pos: off, X: left, Negate: negate}, nil
	}

	if op, ok := cmpOps[p.cur().Type]; ok {
		off := p.cur().Offset
		p.advance()
		right, err := p.parseArith()
		if err != nil {
			return nil, err
		}
		return &exprast.BinaryOp{Pos: off, Op: op, Left: left, Right: right}, nil
	}

	return left, nil
}

func (p *parser) parseArith() (exprast.Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == exprlex.PLUS || p.cur().Type == exprlex.MINUS {
		op := "+"
		if p.cur().Type == exprlex.MINUS {
			op = "-"
		}
		off := p.cur().Offset
		p.advance()
		right, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		left = &exprast.BinaryOp{Pos: off, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseTerm() (exprast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.cur().Type == exprlex.STAR || p.cur().Type == exprlex.IDIV || p.cur().Type == exprlex.PERCENT {
		var op string
		switch p.cur().Type {
		case exprlex.STAR:
			op = "*"
		case exprlex.IDIV:
			op = "//"
		case exprlex.PERCENT:
			op = "%"
		}
		off := p.cur().Offset
		p.advance()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = &exprast.BinaryOp{Pos: off, Op: op, Left: left, Right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (exprast.Expr, error) {
	if p.cur().Type == exprlex.MINUS {
		off := p.cur().Offset
		p.advance()
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &exprast.UnaryOp{Pos: off, Op: "-", X: x}, nil
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() (exprast.Expr, error) {
	tok := p.cur()
	switch tok.Type {
	case exprlex.INT:
		p.advance()
		v, err := strconv.ParseInt(tok.Lit, 10, 64)
		if err != nil {
			return nil, &ParseError{Offset: tok.Offset, Message: "invalid integer literal"}
		}
		return &exprast.IntLit{Pos: tok.Offset, Value: v}, nil
	case exprlex.TRUE:
		p.advance()
		return &exprast.BoolLit{Pos: tok.Offset, Value: true}, nil
	case exprlex.FALSE:
		p.advance()
		return &exprast.BoolLit{Pos: tok.Offset, Value: false}, nil
	case exprlex.NONE:
		p.advance()
		return &exprast.NoneLit{Pos: tok.Offset}, nil
	case exprlex.LPAREN:
		p.advance()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.cur().Type != exprlex.RPAREN {
			return nil, &ParseError{Offset: p.cur().Offset, Message: "expected ')'"}
		}
		p.advance()
		return inner, nil
	case exprlex.IDENT:
		name := tok.Lit
		p.advance()
		if p.cur().Type == exprlex.LPAREN {
			return p.parseCall(name, tok.Offset)
		}
		if p.cur().Type == exprlex.DOT {
			p.advance()
			if p.cur().Type != exprlex.IDENT || p.cur().Lit != "outcome" {
				return nil, &ParseError{Offset: p.cur().Offset, Message: "expected '.outcome' after qid"}
			}
			p.advance()
			return &exprast.Outcome{Pos: tok.Offset, ItemID: name}, nil
		}
		return &exprast.Local{Pos: tok.Offset, Name: name}, nil
	default:
		return nil, &ParseError{Offset: tok.Offset, Message: fmt.Sprintf("unexpected token %q", tok.Lit)}
	}
}

func (p *parser) parseCall(name string, offset int) (exprast.Expr, error) {
	p.advance() // consume '('
	var args []exprast.Expr
	if p.cur().Type != exprlex.RPAREN {
		for {
			arg, err := p.parseOr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.cur().Type == exprlex.COMMA {
				p.advance()
				continue
			}
			break
		}
	}
	if p.cur().Type != exprlex.RPAREN {
		return nil, &ParseError{Offset: p.cur().Offset, Message: "expected ')' to close call"}
	}
	p.advance()
	return &exprast.Call{Pos: offset, Name: name, Args: args}, nil
}
