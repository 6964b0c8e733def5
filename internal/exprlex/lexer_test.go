package exprlex

import "testing"

func collect(src string) []Token {
	lx := New(src)
	var out []Token
	for {
		tok := lx.Next()
		out = append(out, tok)
		if tok.Type == EOF {
			return out
		}
	}
}

func TestNext_Operators(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want []TokenType
	}{
		{"comparisons", "== != < <= > >=", []TokenType{EQ, NEQ, LT, LTE, GT, GTE, EOF}},
		{"arithmetic", "+ - * // %", []TokenType{PLUS, MINUS, STAR, IDIV, PERCENT, EOF}},
		{"assign_vs_eq", "= ==", []TokenType{ASSIGN, EQ, EOF}},
		{"keywords", "and or not is True False None", []TokenType{AND, OR, NOT, IS, TRUE, FALSE, NONE, EOF}},
		{"dotted_outcome", "q1.outcome", []TokenType{IDENT, DOT, IDENT, EOF}},
		{"call", "f(1, 2)", []TokenType{IDENT, LPAREN, INT, COMMA, INT, RPAREN, EOF}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toks := collect(tt.src)
			if len(toks) != len(tt.want) {
				t.Fatalf("got %d tokens %v, want %d", len(toks), toks, len(tt.want))
			}
			for i, tok := range toks {
				if tok.Type != tt.want[i] {
					t.Errorf("token %d: got %v, want %v", i, tok.Type, tt.want[i])
				}
			}
		})
	}
}

func TestNext_Offsets(t *testing.T) {
	toks := collect("age >= 16")
	if toks[0].Offset != 0 {
		t.Errorf("age offset = %d, want 0", toks[0].Offset)
	}
	if toks[1].Offset != 4 {
		t.Errorf(">= offset = %d, want 4", toks[1].Offset)
	}
	if toks[2].Offset != 7 {
		t.Errorf("16 offset = %d, want 7", toks[2].Offset)
	}
}

func TestNext_IllegalSingleSlash(t *testing.T) {
	toks := collect("1 / 2")
	if toks[1].Type != ILLEGAL {
		t.Errorf("single '/' should lex as ILLEGAL, got %v", toks[1].Type)
	}
}

func TestNew_NFCNormalizes(t *testing.T) {
	// "e" + combining acute accent (NFD, U+0065 U+0301) should normalize to
	// the same identifier as the precomposed form (NFC, U+00E9).
	nfd := "q" + "\u0065\u0301" + ".outcome"
	nfc := "q" + "\u00e9" + ".outcome"
	a := collect(nfd)
	b := collect(nfc)
	if a[0].Lit != b[0].Lit {
		t.Errorf("NFD/NFC identifiers did not normalize to the same literal: %q vs %q", a[0].Lit, b[0].Lit)
	}
}
