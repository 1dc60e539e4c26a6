package compiler

import (
	"testing"
)

func TestLexerDelimiters(t *testing.T) {
	input := `( ) { } [ ] , _`
	expected := []struct {
		typ TokenType
		lit string
	}{
		{TokenLParen, "("},
		{TokenRParen, ")"},
		{TokenLBrace, "{"},
		{TokenRBrace, "}"},
		{TokenLBracket, "["},
		{TokenRBracket, "]"},
		{TokenComma, ","},
		{TokenUnderscore, "_"},
		{TokenEOF, ""},
	}

	l := NewLexer(input)
	for i, exp := range expected {
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("token[%d]: unexpected error: %v", i, err)
		}
		if tok.Type != exp.typ {
			t.Errorf("token[%d] type = %v, want %v", i, tok.Type, exp.typ)
		}
		if tok.Lexeme != exp.lit {
			t.Errorf("token[%d] lexeme = %q, want %q", i, tok.Lexeme, exp.lit)
		}
	}
}

func TestLexerOperatorsLongestFirst(t *testing.T) {
	tests := []struct {
		input string
		types []TokenType
	}{
		{"== =", []TokenType{TokenEqualEqual, TokenEqual}},
		{"=> =", []TokenType{TokenArrow, TokenEqual}},
		{"<= <", []TokenType{TokenLessEqual, TokenLess}},
		{">= >", []TokenType{TokenGreaterEqual, TokenGreater}},
		{"!= !", []TokenType{TokenBangEqual, TokenBang}},
		{"&& ||", []TokenType{TokenAnd, TokenOr}},
		{"+ - * / %", []TokenType{TokenPlus, TokenMinus, TokenStar, TokenSlash, TokenPercent}},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		for i, want := range tc.types {
			tok, err := l.NextToken()
			if err != nil {
				t.Fatalf("Lexer(%q) token[%d]: %v", tc.input, i, err)
			}
			if tok.Type != want {
				t.Errorf("Lexer(%q) token[%d] = %v, want %v", tc.input, i, tok.Type, want)
			}
		}
	}
}

func TestLexerKeywords(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
	}{
		{"laat", TokenLaat},
		{"stel", TokenStel},
		{"funksie", TokenFunksie},
		{"fn", TokenFn},
		{"gee", TokenGee},
		{"as", TokenAs},
		{"anders", TokenAnders},
		{"terwyl", TokenTerwyl},
		{"tipe", TokenTipe},
		{"pas", TokenPas},
		{"geval", TokenGeval},
		{"druk", TokenDruk},
		{"waar", TokenWaar},
		{"vals", TokenVals},
		{"nil", TokenNil},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("Lexer(%q): %v", tc.input, err)
		}
		if tok.Type != tc.typ {
			t.Errorf("Lexer(%q) type = %v, want %v", tc.input, tok.Type, tc.typ)
		}
	}
}

func TestLexerIdentifiers(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"foo", "foo"},
		{"_versteek", "_versteek"},
		{"naam2", "naam2"},
		{"geeX", "geeX"}, // keyword prefix stays one identifier
		{"wêreld", "wêreld"},
		{"Sommige", "Sommige"},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("Lexer(%q): %v", tc.input, err)
		}
		if tok.Type != TokenIdentifier {
			t.Errorf("Lexer(%q) type = %v, want IDENTIFIER", tc.input, tok.Type)
		}
		if tok.Lexeme != tc.want {
			t.Errorf("Lexer(%q) lexeme = %q, want %q", tc.input, tok.Lexeme, tc.want)
		}
	}
}

func TestLexerNumbers(t *testing.T) {
	tests := []struct {
		input string
		typ   TokenType
		want  string
	}{
		{"42", TokenInt, "42"},
		{"0", TokenInt, "0"},
		{"3.14", TokenFloat, "3.14"},
		{"10.5", TokenFloat, "10.5"},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("Lexer(%q): %v", tc.input, err)
		}
		if tok.Type != tc.typ {
			t.Errorf("Lexer(%q) type = %v, want %v", tc.input, tok.Type, tc.typ)
		}
		if tok.Lexeme != tc.want {
			t.Errorf("Lexer(%q) lexeme = %q, want %q", tc.input, tok.Lexeme, tc.want)
		}
	}
}

func TestLexerSingleDotOnly(t *testing.T) {
	// At most one dot per number; a second dot is not part of any token.
	l := NewLexer("1.2.3")
	tok, err := l.NextToken()
	if err != nil {
		t.Fatal(err)
	}
	if tok.Type != TokenFloat || tok.Lexeme != "1.2" {
		t.Fatalf("first token = %v %q, want FLOAT \"1.2\"", tok.Type, tok.Lexeme)
	}
	if _, err := l.NextToken(); err == nil {
		t.Error("stray '.' lexed without error")
	}
}

func TestLexerStrings(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"hallo"`, "hallo"},
		{`""`, ""},
		{`"a\nb"`, "a\nb"},
		{`"tab\there"`, "tab\there"},
		{`"sê \"dag\""`, `sê "dag"`},
		{`"back\\slash"`, `back\slash`},
	}

	for _, tc := range tests {
		l := NewLexer(tc.input)
		tok, err := l.NextToken()
		if err != nil {
			t.Fatalf("Lexer(%s): %v", tc.input, err)
		}
		if tok.Type != TokenString {
			t.Errorf("Lexer(%s) type = %v, want STRING", tc.input, tok.Type)
		}
		if tok.Lexeme != tc.want {
			t.Errorf("Lexer(%s) lexeme = %q, want %q", tc.input, tok.Lexeme, tc.want)
		}
	}
}

func TestLexerErrors(t *testing.T) {
	tests := []struct {
		input string
		desc  string
	}{
		{`"onbeëindig`, "unterminated string"},
		{`"sleg \q"`, "invalid escape"},
		{"@", "unknown character"},
		{"&", "single ampersand"},
		{"|", "single pipe"},
	}

	for _, tc := range tests {
		_, err := NewLexer(tc.input).ScanTokens()
		if err == nil {
			t.Errorf("%s: Lexer(%q) succeeded, want LexError", tc.desc, tc.input)
			continue
		}
		if _, ok := err.(*LexError); !ok {
			t.Errorf("%s: error type = %T, want *LexError", tc.desc, err)
		}
	}
}

func TestLexerComments(t *testing.T) {
	input := "1 // kommentaar tot einde\n2"
	tokens, err := NewLexer(input).ScanTokens()
	if err != nil {
		t.Fatal(err)
	}

	types := []TokenType{TokenInt, TokenNewline, TokenInt, TokenEOF}
	if len(tokens) != len(types) {
		t.Fatalf("got %d tokens, want %d: %v", len(tokens), len(types), tokens)
	}
	for i, want := range types {
		if tokens[i].Type != want {
			t.Errorf("token[%d] = %v, want %v", i, tokens[i].Type, want)
		}
	}
}

func TestLexerLineNumbers(t *testing.T) {
	input := "laat x = 1\nlaat y = 2\n\nlaat z = 3"
	tokens, err := NewLexer(input).ScanTokens()
	if err != nil {
		t.Fatal(err)
	}

	wantLines := map[string]int{"x": 1, "y": 2, "z": 4}
	for _, tok := range tokens {
		if tok.Type != TokenIdentifier {
			continue
		}
		if want := wantLines[tok.Lexeme]; tok.Pos.Line != want {
			t.Errorf("identifier %q at line %d, want %d", tok.Lexeme, tok.Pos.Line, want)
		}
	}
}

func TestLexerNewlinesAreTokens(t *testing.T) {
	tokens, err := NewLexer("1\n2").ScanTokens()
	if err != nil {
		t.Fatal(err)
	}
	if len(tokens) != 4 || tokens[1].Type != TokenNewline {
		t.Errorf("want INT NEWLINE INT EOF, got %v", tokens)
	}
}
