// Package lex tokenizes VHDL-93 source text: an ordered table of
// literal/regex match rules tried at each position, with
// longest-match-then-first-listed disambiguation, plus small hand-written
// state machines for the constructs a flat table can't express (identifiers,
// quoted/bit-string literals, comments).
package lex

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/dekarrin/vhdlfront/internal/diag"
	"github.com/dekarrin/vhdlfront/internal/vhdl/token"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// foldLower and foldUpper perform the case-folding VHDL's case-insensitive
// identifiers and reserved words need. Plain strings.ToLower would
// do for ASCII VHDL source, but using x/text's locale-aware folding keeps
// the lexer correct if it's ever fed source with non-ASCII identifier
// characters in a comment or string that leaks through case-normalization
// elsewhere in the toolchain.
var (
	foldLower = cases.Lower(language.Und)
	foldUpper = cases.Upper(language.Und)
)

// symbolRule is one entry of the fixed symbol table, checked longest-first.
type symbolRule struct {
	lexeme string
	class  token.Class
}

// Ordered longest-lexeme-first so startsWith matching picks ':=' before
// ':', '<=' before '<', etc.
var symbolRules = []symbolRule{
	{":=", token.ASSIGN},
	{"=>", token.CONNECT},
	{"**", token.EXPSIGN},
	{"<>", token.RANGESIGN},
	{">=", token.GE},
	{"<=", token.LE},
	{"/=", token.NE},
	{"=", token.EQ},
	{"<", token.LT},
	{">", token.GT},
	{"'", token.APOSTROPHE},
	{";", token.SEMI},
	{"(", token.LPAREN},
	{")", token.RPAREN},
	{",", token.COMMA},
	{":", token.COLON},
	{"+", token.PLUS},
	{"-", token.MINUS},
	{"&", token.AMP},
	{"*", token.STAR},
	{"/", token.SLASH},
	{"|", token.BAR},
	{".", token.DOT},
}

var (
	patBasedInteger = regexp.MustCompile(`^[0-9]+#[0-9A-Fa-f]+#`)
	patDecimal      = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?`)
	identStart      = func(r rune) bool { return r == '_' || unicode.IsLetter(r) }
	identCont       = func(r rune) bool { return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) }
)

// Lexer turns VHDL source text into a Token slice, reporting LexErrors into
// the supplied diagnostic bag and recovering by skipping one byte.
type Lexer struct {
	file string
	bag  *diag.Bag

	src  []rune
	pos  int
	line int
	col  int

	reserved map[string]token.Class
}

// New creates a Lexer for the named file (used only in diagnostics) that
// reports into bag.
func New(file string, src string, bag *diag.Bag) *Lexer {
	return &Lexer{file: file, bag: bag, src: []rune(src), line: 1, col: 1}
}

// NewWithReserved is New plus a project's reserved-word overrides (a
// vhdlfront.toml's [reserved_words] table, lexeme to the bare name of an
// existing keyword Class, e.g. "until" -> "UNTIL"): extra lexemes that
// should lex as that keyword ahead of the built-in table, the same
// extension point internal/config.Config.ReservedWords exists for. Unknown
// class names are silently ignored rather than failing the whole lex run.
func NewWithReserved(file string, src string, bag *diag.Bag, reserved map[string]string) *Lexer {
	l := New(file, src, bag)
	if len(reserved) == 0 {
		return l
	}
	l.reserved = make(map[string]token.Class, len(reserved))
	for lexeme, className := range reserved {
		if cls, ok := token.ClassByKeywordName(className); ok {
			l.reserved[foldLower.String(lexeme)] = cls
		}
	}
	return l
}

// Lex runs the scanner to completion and returns every token, terminated by
// an EOF token. Lexer errors do not stop the scan; they are recorded in the
// bag and the offending byte is skipped, so the returned stream is always
// usable by the parser (which can report further errors on top of it).
func (l *Lexer) Lex() []token.Token {
	var toks []token.Token
	for {
		t, ok := l.next()
		if ok {
			toks = append(toks, t)
		}
		if t.Class.Equal(token.EOF) {
			break
		}
	}
	return toks
}

func (l *Lexer) peekRune() (rune, bool) {
	if l.pos >= len(l.src) {
		return 0, false
	}
	return l.src[l.pos], true
}

func (l *Lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *Lexer) startsWith(s string) bool {
	rs := []rune(s)
	if l.pos+len(rs) > len(l.src) {
		return false
	}
	for i, r := range rs {
		if l.src[l.pos+i] != r {
			return false
		}
	}
	return true
}

func (l *Lexer) currentLineText() string {
	start := l.pos
	for start > 0 && l.src[start-1] != '\n' {
		start--
	}
	end := l.pos
	for end < len(l.src) && l.src[end] != '\n' {
		end++
	}
	return string(l.src[start:end])
}

// next scans one token, skipping whitespace and comments first. The bool
// result is false only when the position produced no token worth emitting
// (an illegal byte that was reported and skipped).
func (l *Lexer) next() (token.Token, bool) {
	for {
		r, ok := l.peekRune()
		if !ok {
			return token.Token{Class: token.EOF, Line: l.line, Col: l.col}, true
		}
		if r == ' ' || r == '\t' || r == '\r' || r == '\n' {
			l.advance()
			continue
		}
		if l.startsWith("--") {
			for {
				r, ok := l.peekRune()
				if !ok || r == '\n' {
					break
				}
				l.advance()
			}
			continue
		}
		break
	}

	startLine, startCol := l.line, l.col

	// literals: based integer before decimal (longer/more specific form
	// first), then the overlapping bit-string and quoted-string forms --
	// the base-prefixed quote form is preferred whenever a B/O/X prefix
	// (case-insensitive) immediately precedes the quote.
	if m := l.matchRegexp(patBasedInteger); m != "" {
		return l.emitLiteral(m, startLine, startCol), true
	}

	if r, ok := l.peekRune(); ok && r == '"' {
		return l.scanQuoted(r, startLine, startCol), true
	}
	// A tick starts a character literal only when it encloses exactly one
	// character ('0', 'a', ...); otherwise it's the APOSTROPHE attribute-name
	// mark (sig'range, sig'event), per VHDL-93's tick-mark overload.
	if l.pos+2 < len(l.src) && l.src[l.pos] == '\'' && l.src[l.pos+2] == '\'' && l.src[l.pos+1] != '\'' {
		return l.scanQuoted('\'', startLine, startCol), true
	}
	if r, ok := l.peekRune(); ok && isBaseSpecifier(r) && l.pos+1 < len(l.src) && (l.src[l.pos+1] == '"' || l.src[l.pos+1] == '\'') {
		base := l.advance()
		quote := l.advance()
		text := l.scanUntilQuote(quote)
		return token.Token{Class: token.LIT, Lexeme: string(base) + string(quote) + text + string(quote), Line: startLine, Col: startCol}, true
	}

	if m := l.matchRegexp(patDecimal); m != "" {
		return l.emitLiteral(m, startLine, startCol), true
	}

	if r, ok := l.peekRune(); ok && identStart(r) {
		return l.scanIdentOrKeyword(startLine, startCol), true
	}

	// symbol table, longest match first (table is pre-sorted).
	for _, rule := range symbolRules {
		if l.startsWith(rule.lexeme) {
			for range []rune(rule.lexeme) {
				l.advance()
			}
			return token.Token{Class: rule.class, Lexeme: rule.lexeme, Line: startLine, Col: startCol}, true
		}
	}

	// illegal byte: report and skip exactly one.
	bad := l.advance()
	if l.bag != nil {
		l.bag.Lex(l.file, startLine, "illegal character "+quoteRune(bad))
	}
	return token.Token{}, false
}

func isBaseSpecifier(r rune) bool {
	switch r {
	case 'B', 'b', 'O', 'o', 'X', 'x':
		return true
	}
	return false
}

func quoteRune(r rune) string {
	return "'" + string(r) + "'"
}

func (l *Lexer) matchRegexp(re *regexp.Regexp) string {
	rest := string(l.src[l.pos:])
	loc := re.FindStringIndex(rest)
	if loc == nil || loc[0] != 0 {
		return ""
	}
	match := rest[:loc[1]]
	for range []rune(match) {
		l.advance()
	}
	return match
}

func (l *Lexer) emitLiteral(lexeme string, line, col int) token.Token {
	return token.Token{Class: token.LIT, Lexeme: lexeme, Line: line, Col: col}
}

// scanQuoted handles the overlapping bit-string-literal and CLITERAL forms:
// a '...' or "..." run, honoring backslash escapes, classified as CLITERAL
// for the " form and LITERAL for the ' form (a plain character literal
// without a base prefix, e.g. '1').
func (l *Lexer) scanQuoted(quote rune, line, col int) token.Token {
	l.advance() // opening quote
	text := l.scanUntilQuote(quote)
	cls := token.LIT
	if quote == '"' {
		cls = token.CLIT
	}
	return token.Token{Class: cls, Lexeme: string(quote) + text + string(quote), Line: line, Col: col}
}

func (l *Lexer) scanUntilQuote(quote rune) string {
	var sb strings.Builder
	escaping := false
	for {
		r, ok := l.peekRune()
		if !ok {
			if l.bag != nil {
				l.bag.Lex(l.file, l.line, "unterminated quoted literal")
			}
			break
		}
		if !escaping && r == '\\' {
			escaping = true
			sb.WriteRune(l.advance())
			continue
		}
		if !escaping && r == quote {
			l.advance()
			break
		}
		escaping = false
		sb.WriteRune(l.advance())
	}
	return sb.String()
}

func (l *Lexer) scanIdentOrKeyword(line, col int) token.Token {
	var sb strings.Builder
	for {
		r, ok := l.peekRune()
		if !ok || !identCont(r) {
			break
		}
		sb.WriteRune(l.advance())
	}
	raw := sb.String()
	folded := foldLower.String(raw)
	if l.reserved != nil {
		if cls, ok := l.reserved[folded]; ok {
			return token.Token{Class: cls, Lexeme: folded, Line: line, Col: col}
		}
	}
	if cls, ok := token.LookupKeyword(raw); ok {
		return token.Token{Class: cls, Lexeme: folded, Line: line, Col: col}
	}
	return token.Token{Class: token.ID, Lexeme: folded, Line: line, Col: col}
}
