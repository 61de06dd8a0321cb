package lex

import (
	"testing"

	"github.com/dekarrin/vhdlfront/internal/diag"
	"github.com/dekarrin/vhdlfront/internal/vhdl/token"
	"github.com/stretchr/testify/assert"
)

func TestLex_IdentityWire(t *testing.T) {
	src := "entity e is port (a: in bit; b: out bit); end e;"
	bag := diag.NewBag()
	toks := New("t.vhd", src, bag).Lex()

	assert := assert.New(t)
	assert.False(bag.HasErrors())

	var classes []string
	for _, tok := range toks {
		classes = append(classes, tok.Class.ID())
	}
	assert.Contains(classes, token.ENTITY.ID())
	assert.Contains(classes, token.PORT.ID())
	assert.Contains(classes, token.ID.ID())
	assert.Equal("EOF", classes[len(classes)-1])
}

func TestLex_CaseInsensitiveKeywordsFoldIdentifiers(t *testing.T) {
	bag := diag.NewBag()
	toks := New("t.vhd", "ENTITY MyEnt IS", bag).Lex()

	assert.Equal(t, token.ENTITY.ID(), toks[0].Class.ID())
	assert.Equal(t, "myent", toks[1].Lexeme)
	assert.Equal(t, token.ID.ID(), toks[1].Class.ID())
	assert.Equal(t, token.IS.ID(), toks[2].Class.ID())
}

func TestLex_IllegalByteSkipsAndReportsThenContinues(t *testing.T) {
	bag := diag.NewBag()
	toks := New("t.vhd", "a \x01 b", bag).Lex()

	assert := assert.New(t)
	assert.True(bag.HasErrors())
	assert.Len(bag.Diagnostics, 1)
	assert.Equal(diag.KindLex, bag.Diagnostics[0].Kind)

	var ids []string
	for _, tok := range toks {
		if tok.Class.ID() == token.ID.ID() {
			ids = append(ids, tok.Lexeme)
		}
	}
	assert.Equal([]string{"a", "b"}, ids)
}

func TestLex_BasedIntegerPreferredOverDecimal(t *testing.T) {
	bag := diag.NewBag()
	toks := New("t.vhd", "16#FF#", bag).Lex()
	assert.Equal(t, "16#FF#", toks[0].Lexeme)
	assert.Equal(t, token.LIT.ID(), toks[0].Class.ID())
}

func TestLex_MultiCharSymbolsBeatSingleChar(t *testing.T) {
	bag := diag.NewBag()
	toks := New("t.vhd", ":= => <= >= /= **  <>", bag).Lex()
	var got []string
	for _, tok := range toks {
		if tok.Class.ID() != "EOF" {
			got = append(got, tok.Class.ID())
		}
	}
	want := []string{"ASSIGN", "CONNECT", "LE", "GE", "NE", "EXPSIGN", "RANGESIGN"}
	assert.Equal(t, want, got)
}

func TestLex_AttributeTickDistinctFromCharLiteral(t *testing.T) {
	bag := diag.NewBag()
	toks := New("t.vhd", "clk'event and sig <= '1';", bag).Lex()

	assert := assert.New(t)
	assert.False(bag.HasErrors())

	var classes []string
	for _, tok := range toks {
		classes = append(classes, tok.Class.ID())
	}
	assert.Contains(classes, token.APOSTROPHE.ID())
	assert.Contains(classes, token.LIT.ID())

	var litFound bool
	for _, tok := range toks {
		if tok.Class.ID() == token.LIT.ID() && tok.Lexeme == "'1'" {
			litFound = true
		}
	}
	assert.True(litFound)
}

func TestLex_ReservedWordOverrideTakesKeywordClass(t *testing.T) {
	bag := diag.NewBag()
	toks := NewWithReserved("t.vhd", "vendor_until x = 1", bag, map[string]string{
		"vendor_until": "UNTIL",
	}).Lex()

	assert.Equal(t, token.UNTIL.ID(), toks[0].Class.ID())
	assert.Equal(t, "vendor_until", toks[0].Lexeme)
}

func TestLex_ReservedWordOverrideUnknownClassIgnored(t *testing.T) {
	bag := diag.NewBag()
	toks := NewWithReserved("t.vhd", "foo", bag, map[string]string{
		"foo": "NOT_A_REAL_CLASS",
	}).Lex()

	assert.Equal(t, token.ID.ID(), toks[0].Class.ID())
}
