package syntax

import (
	"fmt"
	"strings"

	"github.com/dekarrin/vhdlfront/internal/diag"
	"github.com/dekarrin/vhdlfront/internal/vhdl/token"
)

// Parser consumes a flat token stream and produces a Tree. Statement and
// declaration grammar is straight recursive descent; expressions are parsed
// by a fixed precedence ladder (one method per tier, lowest binding first),
// each tier producing its own node tag so the dependency walker can
// recognize expression nodes without a case per operator.
type Parser struct {
	file string
	bag  *diag.Bag
	toks []token.Token
	pos  int
}

// New creates a Parser over toks, reporting into bag. file is used only for
// diagnostics.
func New(file string, toks []token.Token, bag *diag.Bag) *Parser {
	if len(toks) == 0 || !toks[len(toks)-1].Class.Equal(token.EOF) {
		toks = append(toks, token.Token{Class: token.EOF})
	}
	return &Parser{file: file, bag: bag, toks: toks}
}

func (p *Parser) cur() token.Token { return p.toks[p.pos] }
func (p *Parser) atEnd() bool      { return p.cur().Class.Equal(token.EOF) }

func (p *Parser) peek(n int) token.Token {
	if p.pos+n >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+n]
}

func (p *Parser) advance() token.Token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *Parser) check(c token.Class) bool { return p.cur().Class.Equal(c) }

func (p *Parser) checkAny(classes ...token.Class) bool {
	for _, c := range classes {
		if p.check(c) {
			return true
		}
	}
	return false
}

func (p *Parser) match(c token.Class) (token.Token, bool) {
	if p.check(c) {
		return p.advance(), true
	}
	return token.Token{}, false
}

// expect consumes a token of class c or reports a ParseError without
// consuming the unexpected token, so the caller's enclosing loop can resync
// at a statement boundary rather than aborting the whole parse.
func (p *Parser) expect(c token.Class) token.Token {
	if t, ok := p.match(c); ok {
		return t
	}
	p.errorHere()
	return token.Token{Class: c, Line: p.cur().Line}
}

// errorHere reports the single-line diagnostic for the current token:
// "invalid syntax '<token>'", or "unexpected EOF" when the stream ran out
// mid-rule.
func (p *Parser) errorHere() {
	if p.bag == nil {
		return
	}
	if p.atEnd() {
		p.bag.Parse(p.file, p.cur().Line, "unexpected EOF")
		return
	}
	p.bag.Parse(p.file, p.cur().Line, fmt.Sprintf("invalid syntax '%s'", p.cur().Lexeme))
}

// resyncTo advances past tokens until it finds one of the given classes or
// EOF: skip to a known boundary (usually SEMI) rather than abort on the
// first mistake, so later diagnostics in the same file still surface.
func (p *Parser) resyncTo(classes ...token.Class) {
	for !p.atEnd() {
		for _, c := range classes {
			if p.check(c) {
				return
			}
		}
		p.advance()
	}
}

// ParseDesignFile parses a whole file into the root "vhdl" node: a sequence
// of library units (use clauses, entities, architectures, packages, package
// bodies, configurations), each a direct child in source order.
func (p *Parser) ParseDesignFile() *Tree {
	root := NewTree("vhdl").Set("file", p.file)
	for !p.atEnd() {
		before := p.pos
		switch {
		case p.check(token.LIBRARY):
			root.Add(p.parseUseClause())
		case p.check(token.USE):
			// a bare use without its library clause is outside the grammar
			// proper but common in the wild; accepted as a library-less
			// useClause rather than rejected.
			uc := NewTree("useClause").SetLine(p.cur().Line)
			p.parseUseList(uc)
			root.Add(uc)
		case p.check(token.ENTITY):
			root.Add(p.parseEntity())
		case p.check(token.ARCHITECTURE):
			root.Add(p.parseArchitecture())
		case p.check(token.PACKAGE):
			if p.peek(1).Class.Equal(token.BODY) {
				root.Add(p.parsePackageBody())
			} else {
				root.Add(p.parsePackage())
			}
		case p.check(token.CONFIGURATION):
			root.Add(p.parseConfiguration())
		default:
			p.errorHere()
			p.resyncTo(token.LIBRARY, token.USE, token.ENTITY, token.ARCHITECTURE,
				token.PACKAGE, token.CONFIGURATION, token.SEMI)
			p.match(token.SEMI)
		}
		if p.pos == before && !p.atEnd() {
			p.advance()
		}
	}
	return root
}

// parseUseClause: library ID ; { use a.b[.c|.all] ; }
func (p *Parser) parseUseClause() *Tree {
	node := NewTree("useClause").SetLine(p.cur().Line)
	p.expect(token.LIBRARY)
	lib := p.expect(token.ID)
	node.Set("library", lib.Lexeme)
	p.expect(token.SEMI)
	p.parseUseList(node)
	return node
}

func (p *Parser) parseUseList(clause *Tree) {
	for p.check(token.USE) {
		use := NewTree("use").SetLine(p.cur().Line)
		p.advance()
		var parts []string
		parts = append(parts, p.expect(token.ID).Lexeme)
		for {
			if _, ok := p.match(token.DOT); !ok {
				break
			}
			if _, ok := p.match(token.ALL); ok {
				parts = append(parts, "all")
				break
			}
			parts = append(parts, p.expect(token.ID).Lexeme)
		}
		use.Set("id", strings.Join(parts, "."))
		p.expect(token.SEMI)
		clause.Add(use)
	}
}

// parseEntity: entity ID is [generic] [port] decls [begin parStmts] end [entity] [ID] ;
// Children in order: generic?, ports?, declarations (when non-empty),
// parallelStatements (when a begin body is present).
func (p *Parser) parseEntity() *Tree {
	line := p.cur().Line
	p.expect(token.ENTITY)
	name := p.expect(token.ID)
	p.expect(token.IS)

	node := NewTree("entity").SetLine(line).Set("id", name.Lexeme)
	if p.check(token.GENERIC) {
		node.Add(p.parseGenericClause())
	}
	if p.check(token.PORT) {
		node.Add(p.parsePortClause())
	}
	decls := p.parseDeclarations()
	if len(decls.Children) > 0 {
		node.Add(decls)
	}
	if _, ok := p.match(token.BEGIN); ok {
		node.Add(p.parseParallelStatements())
	}
	p.expect(token.END)
	p.match(token.ENTITY)
	p.match(token.ID)
	p.expect(token.SEMI)
	return node
}

// parseGenericClause: generic ( {ID : type [:= expr] ;} ) ;
// yields a "generic" node with one "parameter" child per generic.
func (p *Parser) parseGenericClause() *Tree {
	node := NewTree("generic")
	p.expect(token.GENERIC)
	p.expect(token.LPAREN)
	for {
		param := NewTree("parameter").SetLine(p.cur().Line)
		id := p.expect(token.ID)
		param.Set("id", id.Lexeme)
		p.expect(token.COLON)
		param.Add(p.parseTypeMark())
		if _, ok := p.match(token.ASSIGN); ok {
			param.Add(NewTree("value").Add(p.parseExpr()))
		}
		node.Add(param)
		if _, ok := p.match(token.SEMI); !ok {
			break
		}
	}
	p.expect(token.RPAREN)
	p.expect(token.SEMI)
	return node
}

// parsePortClause: port ( {idList : in|out|inout type [:= expr] ;} ) ;
// yields a "ports" node with one "port" child per declared identifier,
// carrying id and io attributes.
func (p *Parser) parsePortClause() *Tree {
	node := NewTree("ports")
	p.expect(token.PORT)
	p.expect(token.LPAREN)
	for {
		line := p.cur().Line
		var names []string
		names = append(names, p.expect(token.ID).Lexeme)
		for {
			if _, ok := p.match(token.COMMA); !ok {
				break
			}
			names = append(names, p.expect(token.ID).Lexeme)
		}
		p.expect(token.COLON)
		io := p.parsePortDirection()
		typ := p.parseTypeMark()
		var val *Tree
		if _, ok := p.match(token.ASSIGN); ok {
			val = NewTree("value").Add(p.parseExpr())
		}
		for _, n := range names {
			port := NewTree("port").SetLine(line).Set("id", n).Set("io", io)
			port.Add(typ.Copy())
			if val != nil {
				port.Add(val.Copy())
			}
			node.Add(port)
		}
		if _, ok := p.match(token.SEMI); !ok {
			break
		}
	}
	p.expect(token.RPAREN)
	p.expect(token.SEMI)
	return node
}

func (p *Parser) parsePortDirection() string {
	switch {
	case p.check(token.IN):
		p.advance()
		return "in"
	case p.check(token.OUT):
		p.advance()
		return "out"
	case p.check(token.INOUT):
		p.advance()
		return "inout"
	default:
		p.errorHere()
		return "in"
	}
}

// parseTypeMark parses a subtype indication as a name -- possibly indexed
// or range-constrained, e.g. std_logic_vector(7 downto 0) -- and retags the
// resulting name node "type". The constraint survives as the name's
// parameters/range children, which is where generic-parameter references
// live for the normalizer to inline.
func (p *Parser) parseTypeMark() *Tree {
	n := p.parseName()
	n.Tag = "type"
	return n
}

// parseArchitecture: architecture ID of ID is decls begin parStmts end ... ;
func (p *Parser) parseArchitecture() *Tree {
	line := p.cur().Line
	p.expect(token.ARCHITECTURE)
	name := p.expect(token.ID)
	p.expect(token.OF)
	entity := p.expect(token.ID)
	p.expect(token.IS)

	node := NewTree("architecture").SetLine(line)
	node.Set("id", name.Lexeme)
	node.Set("entity", entity.Lexeme)

	decls := p.parseDeclarations()
	if len(decls.Children) > 0 {
		node.Add(decls)
	}
	p.expect(token.BEGIN)
	if !p.check(token.END) {
		node.Add(p.parseParallelStatements())
	}
	p.expect(token.END)
	p.match(token.ARCHITECTURE)
	p.match(token.ID)
	p.expect(token.SEMI)
	return node
}

// parsePackage: package ID is decls end [package] [ID] ;
func (p *Parser) parsePackage() *Tree {
	line := p.cur().Line
	p.expect(token.PACKAGE)
	name := p.expect(token.ID)
	p.expect(token.IS)
	node := NewTree("package").SetLine(line).Set("id", name.Lexeme)
	decls := p.parseDeclarations()
	if len(decls.Children) > 0 {
		node.Add(decls)
	}
	p.expect(token.END)
	p.match(token.PACKAGE)
	p.match(token.ID)
	p.expect(token.SEMI)
	return node
}

// parsePackageBody: package body ID is decls end [package body] [ID] ;
func (p *Parser) parsePackageBody() *Tree {
	line := p.cur().Line
	p.expect(token.PACKAGE)
	p.expect(token.BODY)
	name := p.expect(token.ID)
	p.expect(token.IS)
	node := NewTree("packageBody").SetLine(line).Set("id", name.Lexeme)
	decls := p.parseDeclarations()
	if len(decls.Children) > 0 {
		node.Add(decls)
	}
	p.expect(token.END)
	if _, ok := p.match(token.PACKAGE); ok {
		p.match(token.BODY)
	}
	p.match(token.ID)
	p.expect(token.SEMI)
	return node
}

// parseConfiguration: configuration ID of ID is for ID {configItem} end for ;
// end [configuration] [ID] ;
func (p *Parser) parseConfiguration() *Tree {
	line := p.cur().Line
	p.expect(token.CONFIGURATION)
	name := p.expect(token.ID)
	p.expect(token.OF)
	entity := p.expect(token.ID)
	p.expect(token.IS)

	node := NewTree("configuration").SetLine(line)
	node.Set("id", name.Lexeme)
	node.Set("entity", entity.Lexeme)

	p.expect(token.FOR)
	forArch := NewTree("forArchitecture").SetLine(line)
	forArch.Set("id", p.expect(token.ID).Lexeme)
	for p.check(token.FOR) {
		forArch.Add(p.parseConfigItem())
	}
	p.expect(token.END)
	p.expect(token.FOR)
	p.expect(token.SEMI)
	node.Add(forArch)

	p.expect(token.END)
	p.match(token.CONFIGURATION)
	p.match(token.ID)
	p.expect(token.SEMI)
	return node
}

// parseConfigItem parses one block or component configuration inside a
// configuration's for-region.
func (p *Parser) parseConfigItem() *Tree {
	line := p.cur().Line
	p.expect(token.FOR)

	which := ""
	switch {
	case p.check(token.ALL):
		p.advance()
		which = "all"
	case p.check(token.OTHERS):
		p.advance()
		which = "others"
	default:
		which = p.expect(token.ID).Lexeme
	}

	if _, ok := p.match(token.COLON); !ok {
		// block configuration: for LABEL {configItem} end for ;
		node := NewTree("blockConfiguration").SetLine(line).Set("label", which)
		for p.check(token.FOR) {
			node.Add(p.parseConfigItem())
		}
		p.expect(token.END)
		p.expect(token.FOR)
		p.expect(token.SEMI)
		return node
	}

	node := NewTree("componentConfiguration").SetLine(line)
	node.Set("which", which)
	node.Set("id", p.expect(token.ID).Lexeme)
	node.Add(p.parseUseBinding())
	p.expect(token.END)
	p.expect(token.FOR)
	p.expect(token.SEMI)
	return node
}

// parseUseBinding: use entity lib.name[(arch)] [maps] ; [for ID ... end for ;]
// or use configuration lib.name [maps] ;
func (p *Parser) parseUseBinding() *Tree {
	line := p.cur().Line
	p.expect(token.USE)
	if _, ok := p.match(token.CONFIGURATION); ok {
		node := NewTree("useConfiguration").SetLine(line)
		node.Set("id", p.parseDottedName())
		g, pm := p.parseMapAspects()
		node.Add(g)
		node.Add(pm)
		p.expect(token.SEMI)
		return node
	}
	p.expect(token.ENTITY)
	node := NewTree("useEntity").SetLine(line)
	node.Set("id", p.parseDottedName())
	if _, ok := p.match(token.LPAREN); ok {
		node.Set("architecture", p.expect(token.ID).Lexeme)
		p.expect(token.RPAREN)
	}
	g, pm := p.parseMapAspects()
	node.Add(g)
	node.Add(pm)
	p.expect(token.SEMI)
	if p.check(token.FOR) {
		innerLine := p.cur().Line
		p.advance()
		inner := NewTree("forArchitecture").SetLine(innerLine)
		inner.Set("id", p.expect(token.ID).Lexeme)
		for p.check(token.FOR) {
			inner.Add(p.parseConfigItem())
		}
		p.expect(token.END)
		p.expect(token.FOR)
		p.expect(token.SEMI)
		node.Add(inner)
	}
	return node
}

func (p *Parser) parseDottedName() string {
	var parts []string
	parts = append(parts, p.expect(token.ID).Lexeme)
	for p.check(token.DOT) && p.peek(1).Class.Equal(token.ID) {
		p.advance()
		parts = append(parts, p.expect(token.ID).Lexeme)
	}
	return strings.Join(parts, ".")
}

///////////////////////////////////////////////////////////////////////////
// Declarations

var declStarts = []token.Class{
	token.TYPE, token.SUBTYPE, token.CONSTANT, token.SHARED, token.VARIABLE,
	token.SIGNAL, token.FILE, token.ALIAS, token.ATTRIBUTE, token.COMPONENT,
	token.PURE, token.IMPURE, token.FUNCTION, token.PROCEDURE, token.FOR,
}

// parseDeclarations accumulates a "declarations" node from the declarative
// region at the current position; it stops at the first token that cannot
// begin a declaration (usually BEGIN or END). The returned node may be
// empty; callers attach it only when it has children.
func (p *Parser) parseDeclarations() *Tree {
	node := NewTree("declarations")
	for p.checkAny(declStarts...) {
		before := p.pos
		d := p.parseDeclaration()
		if d != nil {
			node.Add(d)
		}
		p.expect(token.SEMI)
		if p.pos == before {
			p.advance()
		}
	}
	return node
}

func (p *Parser) parseDeclaration() *Tree {
	switch {
	case p.check(token.TYPE):
		return p.parseTypeDecl()
	case p.check(token.SUBTYPE):
		return p.parseSubtypeDecl()
	case p.check(token.CONSTANT):
		return p.parseConstantDecl()
	case p.check(token.SHARED), p.check(token.VARIABLE):
		return p.parseVariableDecl()
	case p.check(token.SIGNAL):
		return p.parseSignalDecl()
	case p.check(token.FILE):
		return p.parseFileDecl()
	case p.check(token.ALIAS):
		return p.parseAliasDecl()
	case p.check(token.ATTRIBUTE):
		return p.parseAttributeDecl()
	case p.check(token.COMPONENT):
		return p.parseComponentDecl()
	case p.check(token.PURE), p.check(token.IMPURE), p.check(token.FUNCTION):
		return p.parseFunctionDecl()
	case p.check(token.PROCEDURE):
		return p.parseProcedureDecl()
	case p.check(token.FOR):
		return p.parseForDecl()
	default:
		p.errorHere()
		p.resyncTo(token.SEMI, token.BEGIN, token.END)
		return nil
	}
}

// parseIDList: ID {, ID} -> an "ids" node with one "id" child per name.
// Multi-identifier declarations keep this list intact; the normalizer is
// what expands them into per-identifier declaration copies.
func (p *Parser) parseIDList() *Tree {
	node := NewTree("ids")
	for {
		id := p.expect(token.ID)
		node.Add(NewTree("id").SetLine(id.Line).Set("id", id.Lexeme))
		if _, ok := p.match(token.COMMA); !ok {
			break
		}
	}
	return node
}

// parseTypeDecl: type ID is (enum) | range .. | array .. | record .. |
// access .. | file of ..
func (p *Parser) parseTypeDecl() *Tree {
	line := p.cur().Line
	p.expect(token.TYPE)
	name := p.expect(token.ID)
	p.expect(token.IS)
	node := NewTree("typeDeclaration").SetLine(line).Set("id", name.Lexeme)

	switch {
	case p.check(token.LPAREN):
		p.advance()
		node.Add(p.parseIDList())
		p.expect(token.RPAREN)
	case p.check(token.RANGE):
		p.advance()
		node.Add(p.parseRange())
	case p.check(token.ARRAY):
		p.advance()
		arr := NewTree("array")
		p.expect(token.LPAREN)
		rt := NewTree("rangesTypes")
		for {
			rt.Add(p.parseDiscreteRange())
			if _, ok := p.match(token.COMMA); !ok {
				break
			}
		}
		p.expect(token.RPAREN)
		arr.Add(rt)
		p.expect(token.OF)
		arr.Add(p.parseExpr())
		node.Add(arr)
	case p.check(token.RECORD):
		p.advance()
		recs := NewTree("records")
		for !p.check(token.END) && !p.atEnd() {
			before := p.pos
			rec := NewTree("record").SetLine(p.cur().Line)
			rec.Add(p.parseIDList())
			p.expect(token.COLON)
			rec.Add(p.parseTypeMark())
			p.expect(token.SEMI)
			recs.Add(rec)
			if p.pos == before {
				p.advance()
			}
		}
		p.expect(token.END)
		p.expect(token.RECORD)
		node.Add(recs)
	case p.check(token.ACCESS):
		p.advance()
		node.Add(NewTree("access").Add(p.parseTypeMark()))
	case p.check(token.FILE):
		p.advance()
		p.expect(token.OF)
		node.Add(NewTree("fileOf").Add(p.parseTypeMark()))
	default:
		p.errorHere()
		p.resyncTo(token.SEMI)
	}
	return node
}

// parseSubtypeDecl: subtype ID is BASE [range ..] | BASE (ranges)
func (p *Parser) parseSubtypeDecl() *Tree {
	line := p.cur().Line
	p.expect(token.SUBTYPE)
	name := p.expect(token.ID)
	p.expect(token.IS)
	node := NewTree("subtypeDeclaration").SetLine(line).Set("id", name.Lexeme)

	base := p.expect(token.ID)
	node.Add(NewTree("id").SetLine(base.Line).Set("id", base.Lexeme))
	switch {
	case p.check(token.RANGE):
		p.advance()
		node.Add(p.parseRange())
	case p.check(token.LPAREN):
		p.advance()
		ranges := NewTree("ranges")
		for {
			ranges.Add(p.parseDiscreteRange())
			if _, ok := p.match(token.COMMA); !ok {
				break
			}
		}
		p.expect(token.RPAREN)
		node.Add(ranges)
	case p.check(token.ID):
		node.Add(p.parseTypeMark())
	}
	return node
}

func (p *Parser) parseConstantDecl() *Tree {
	line := p.cur().Line
	p.expect(token.CONSTANT)
	node := NewTree("constantDeclaration").SetLine(line)
	node.Add(p.parseIDList())
	p.expect(token.COLON)
	node.Add(p.parseTypeMark())
	p.expect(token.ASSIGN)
	node.Add(NewTree("value").Add(p.parseExpr()))
	return node
}

func (p *Parser) parseVariableDecl() *Tree {
	line := p.cur().Line
	shared := false
	if _, ok := p.match(token.SHARED); ok {
		shared = true
	}
	p.expect(token.VARIABLE)
	node := NewTree("variableDeclaration").SetLine(line)
	if shared {
		node.Set("shared", "true")
	} else {
		node.Set("shared", "false")
	}
	node.Add(p.parseIDList())
	p.expect(token.COLON)
	node.Add(p.parseTypeMark())
	if _, ok := p.match(token.ASSIGN); ok {
		node.Add(NewTree("value").Add(p.parseExpr()))
	}
	return node
}

func (p *Parser) parseSignalDecl() *Tree {
	line := p.cur().Line
	p.expect(token.SIGNAL)
	node := NewTree("signalDeclaration").SetLine(line)
	node.Add(p.parseIDList())
	p.expect(token.COLON)
	node.Add(p.parseTypeMark())
	if _, ok := p.match(token.ASSIGN); ok {
		node.Add(NewTree("value").Add(p.parseExpr()))
	}
	return node
}

// parseFileDecl handles the three file-declaration forms: plain, with
// direction ("is in/out NAME"), and with open mode ("is open MODE is NAME").
func (p *Parser) parseFileDecl() *Tree {
	line := p.cur().Line
	p.expect(token.FILE)
	node := NewTree("fileDeclaration").SetLine(line)
	node.Add(p.parseIDList())
	p.expect(token.COLON)
	node.Add(p.parseTypeMark())

	if _, ok := p.match(token.IS); !ok {
		return node
	}
	if _, ok := p.match(token.OPEN); ok {
		mode := p.cur().Lexeme
		if !p.checkAny(token.READMODE, token.WRITEMODE, token.APPENDMODE) {
			p.errorHere()
		} else {
			p.advance()
		}
		node.Set("mode", mode)
		p.expect(token.IS)
		node.Set("name", p.expect(token.CLIT).Lexeme)
		return node
	}
	switch {
	case p.check(token.IN):
		p.advance()
		node.Set("io", "in")
	case p.check(token.OUT):
		p.advance()
		node.Set("io", "out")
	default:
		p.errorHere()
	}
	node.Set("name", p.expect(token.CLIT).Lexeme)
	return node
}

func (p *Parser) parseAliasDecl() *Tree {
	line := p.cur().Line
	p.expect(token.ALIAS)
	name := p.expect(token.ID)
	node := NewTree("aliasDeclaration").SetLine(line).Set("id", name.Lexeme)
	p.expect(token.COLON)
	node.Add(p.parseTypeMark())
	p.expect(token.IS)
	node.Add(p.parseName())
	return node
}

// parseAttributeDecl handles both the declaration form (attribute X : type)
// and the specification form (attribute X of WHICH : CLASS is expr).
func (p *Parser) parseAttributeDecl() *Tree {
	line := p.cur().Line
	p.expect(token.ATTRIBUTE)
	name := p.expect(token.ID)
	node := NewTree("attributeDeclaration").SetLine(line).Set("id", name.Lexeme)

	if _, ok := p.match(token.OF); ok {
		which := p.cur().Lexeme
		if p.checkAny(token.ID, token.OTHERS, token.ALL) {
			p.advance()
		} else {
			p.errorHere()
		}
		node.Set("of", which)
		p.expect(token.COLON)
		node.Set("class", p.parseEntityClass())
		p.expect(token.IS)
		node.Add(p.parseExpr())
		return node
	}
	p.expect(token.COLON)
	node.Add(p.parseTypeMark())
	return node
}

var entityClasses = []token.Class{
	token.ENTITY, token.ARCHITECTURE, token.CONFIGURATION, token.PROCEDURE,
	token.FUNCTION, token.PACKAGE, token.TYPE, token.SUBTYPE, token.CONSTANT,
	token.SIGNAL, token.VARIABLE, token.COMPONENT, token.LABEL,
}

func (p *Parser) parseEntityClass() string {
	if p.checkAny(entityClasses...) {
		return p.advance().Lexeme
	}
	p.errorHere()
	return ""
}

// parseComponentDecl: component ID [is] [generic] [port] end component [ID]
func (p *Parser) parseComponentDecl() *Tree {
	line := p.cur().Line
	p.expect(token.COMPONENT)
	name := p.expect(token.ID)
	p.match(token.IS)
	node := NewTree("componentDeclaration").SetLine(line).Set("id", name.Lexeme)
	if p.check(token.GENERIC) {
		node.Add(p.parseGenericClause())
	}
	if p.check(token.PORT) {
		node.Add(p.parsePortClause())
	}
	p.expect(token.END)
	p.expect(token.COMPONENT)
	p.match(token.ID)
	return node
}

// parseFunctionDecl: [pure|impure] function ID [(params)] return type [is
// decls begin seqStmts end [function] [ID]]
func (p *Parser) parseFunctionDecl() *Tree {
	line := p.cur().Line
	pure := "true"
	if _, ok := p.match(token.IMPURE); ok {
		pure = "false"
	} else {
		p.match(token.PURE)
	}
	p.expect(token.FUNCTION)
	name := p.expect(token.ID)
	node := NewTree("functionDeclaration").SetLine(line)
	node.Set("id", name.Lexeme)
	node.Set("pure", pure)

	if _, ok := p.match(token.LPAREN); ok {
		node.Add(p.parseSubprogramParameters("functionParameters"))
		p.expect(token.RPAREN)
	}
	p.expect(token.RETURN)
	node.Add(p.parseTypeMark())

	if _, ok := p.match(token.IS); ok {
		decls := p.parseDeclarations()
		if len(decls.Children) > 0 {
			node.Add(decls)
		}
		p.expect(token.BEGIN)
		node.Add(p.parseSequentialStatements())
		p.expect(token.END)
		p.match(token.FUNCTION)
		p.match(token.ID)
	}
	return node
}

// parseProcedureDecl: procedure ID [(params)] [is decls begin seqStmts end
// [procedure] [ID]]
func (p *Parser) parseProcedureDecl() *Tree {
	line := p.cur().Line
	p.expect(token.PROCEDURE)
	name := p.expect(token.ID)
	node := NewTree("procedureDeclaration").SetLine(line).Set("id", name.Lexeme)

	if _, ok := p.match(token.LPAREN); ok {
		node.Add(p.parseSubprogramParameters("procedureParameters"))
		p.expect(token.RPAREN)
	}
	if _, ok := p.match(token.IS); ok {
		decls := p.parseDeclarations()
		if len(decls.Children) > 0 {
			node.Add(decls)
		}
		p.expect(token.BEGIN)
		node.Add(p.parseSequentialStatements())
		p.expect(token.END)
		p.match(token.PROCEDURE)
		p.match(token.ID)
	}
	return node
}

// parseSubprogramParameters parses {[constant|variable|signal] idList : io
// type [:= expr] ;}, producing one of the four parameter tags per element.
// Multi-identifier parameter lists keep their ids child for the normalizer,
// same as ordinary declarations.
func (p *Parser) parseSubprogramParameters(tag string) *Tree {
	node := NewTree(tag)
	for {
		ptag := "idParameter"
		line := p.cur().Line
		switch {
		case p.check(token.CONSTANT):
			p.advance()
			ptag = "constantParameter"
		case p.check(token.VARIABLE):
			p.advance()
			ptag = "variableParameter"
		case p.check(token.SIGNAL):
			p.advance()
			ptag = "signalParameter"
		}
		el := NewTree(ptag).SetLine(line)
		el.Add(p.parseIDList())
		p.expect(token.COLON)
		el.Set("io", p.parsePortDirection())
		el.Add(p.parseTypeMark())
		if _, ok := p.match(token.ASSIGN); ok {
			el.Add(NewTree("value").Add(p.parseExpr()))
		}
		node.Add(el)
		if _, ok := p.match(token.SEMI); !ok {
			break
		}
	}
	return node
}

// parseForDecl: for ID|others|all : ID use entity NAME[(arch)] |
// configuration NAME [maps] ;
func (p *Parser) parseForDecl() *Tree {
	line := p.cur().Line
	p.expect(token.FOR)
	node := NewTree("forDeclaration").SetLine(line)
	switch {
	case p.check(token.OTHERS):
		p.advance()
		node.Set("which", "others")
	case p.check(token.ALL):
		p.advance()
		node.Set("which", "all")
	default:
		node.Set("which", p.expect(token.ID).Lexeme)
	}
	p.expect(token.COLON)
	node.Set("id", p.expect(token.ID).Lexeme)
	p.expect(token.USE)
	if _, ok := p.match(token.CONFIGURATION); ok {
		node.Set("configuration", p.parseDottedName())
	} else {
		p.expect(token.ENTITY)
		node.Set("entity", p.parseDottedName())
		if _, ok := p.match(token.LPAREN); ok {
			node.Set("architecture", p.expect(token.ID).Lexeme)
			p.expect(token.RPAREN)
		}
	}
	g, pm := p.parseMapAspects()
	node.Add(g)
	node.Add(pm)
	return node
}

///////////////////////////////////////////////////////////////////////////
// Expressions
//
// The precedence ladder, lowest binding first, one method and one node tag
// per tier: logical -> relational -> shift -> adding -> multiplying ->
// exponential -> prefix -> primary. All binary tiers are left-associative.

func (p *Parser) parseExpr() *Tree {
	left := p.parseRelational()
	for p.checkAny(token.AND, token.NAND, token.OR, token.NOR, token.XOR, token.XNOR) {
		op := p.advance()
		node := NewTree("logicalExpression").Set("op", op.Lexeme)
		node.Add(left)
		node.Add(p.parseRelational())
		left = node
	}
	return left
}

func (p *Parser) parseRelational() *Tree {
	left := p.parseShift()
	for p.checkAny(token.EQ, token.NE, token.LT, token.LE, token.GT, token.GE) {
		op := p.advance()
		node := NewTree("relationalExpression").Set("op", op.Lexeme)
		node.Add(left)
		node.Add(p.parseShift())
		left = node
	}
	return left
}

func (p *Parser) parseShift() *Tree {
	left := p.parseAdding()
	for p.checkAny(token.SLL, token.SRL, token.SLA, token.SRA, token.ROL, token.ROR) {
		op := p.advance()
		node := NewTree("shiftExpression").Set("op", op.Lexeme)
		node.Add(left)
		node.Add(p.parseAdding())
		left = node
	}
	return left
}

func (p *Parser) parseAdding() *Tree {
	left := p.parseMultiplying()
	for p.checkAny(token.PLUS, token.MINUS, token.AMP) {
		op := p.advance()
		node := NewTree("addingExpression").Set("op", op.Lexeme)
		node.Add(left)
		node.Add(p.parseMultiplying())
		left = node
	}
	return left
}

func (p *Parser) parseMultiplying() *Tree {
	left := p.parseExponential()
	for p.checkAny(token.STAR, token.SLASH, token.MOD, token.REM) {
		op := p.advance()
		node := NewTree("multiplyingExpression").Set("op", op.Lexeme)
		node.Add(left)
		node.Add(p.parseExponential())
		left = node
	}
	return left
}

func (p *Parser) parseExponential() *Tree {
	left := p.parseFactor()
	for p.check(token.EXPSIGN) {
		op := p.advance()
		node := NewTree("exponentialExpression").Set("op", op.Lexeme)
		node.Add(left)
		node.Add(p.parseFactor())
		left = node
	}
	return left
}

func (p *Parser) parseFactor() *Tree {
	if p.checkAny(token.PLUS, token.MINUS, token.NOT, token.ABS) {
		op := p.advance()
		node := NewTree("prefixExpression").Set("op", op.Lexeme)
		node.Add(p.parsePrimary())
		return node
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() *Tree {
	t := p.cur()
	switch {
	case t.Class.Equal(token.CLIT):
		p.advance()
		return NewTree("constantExpression").SetLine(t.Line).Set("id", t.Lexeme)
	case t.Class.Equal(token.LIT):
		p.advance()
		// LITERAL ID is a physical (time) literal like "5 ns".
		if p.check(token.ID) {
			unit := p.advance()
			return NewTree("timeExpression").SetLine(t.Line).
				Set("value", t.Lexeme).Set("id", unit.Lexeme)
		}
		return NewTree("constantExpression").SetLine(t.Line).Set("id", t.Lexeme)
	case t.Class.Equal(token.LPAREN):
		return p.parseAggregateOrParen()
	case t.Class.Equal(token.NEW):
		p.advance()
		id := p.expect(token.ID)
		node := NewTree("newExpression").SetLine(t.Line).Set("id", id.Lexeme)
		if _, ok := p.match(token.APOSTROPHE); ok {
			p.expect(token.LPAREN)
			node.Add(NewTree("attribute").Add(p.parseExpr()))
			p.expect(token.RPAREN)
		}
		return node
	case t.Class.Equal(token.ID):
		return p.parseName()
	default:
		p.errorHere()
		p.advance()
		return NewTree("constantExpression").SetLine(t.Line).Set("id", t.Lexeme)
	}
}

// parseAggregateOrParen resolves the ( ... ) ambiguity: a single plain
// expression is just a parenthesized expression and yields its inner node
// directly; anything with a choices=>value association or more than one
// element is an aggregateExpression.
func (p *Parser) parseAggregateOrParen() *Tree {
	line := p.cur().Line
	p.expect(token.LPAREN)
	first := p.parseAggregateElement()
	if p.check(token.RPAREN) && first.Tag != "connect" {
		p.advance()
		return first
	}
	agg := NewTree("aggregateExpression").SetLine(line)
	agg.Add(first)
	for {
		if _, ok := p.match(token.COMMA); !ok {
			break
		}
		agg.Add(p.parseAggregateElement())
	}
	p.expect(token.RPAREN)
	return agg
}

// parseAggregateElement: expr | choices => expr. A choice list is detected
// after the fact: a parsed choice followed by '|' or '=>' turns the element
// into a connect node with a choices child.
func (p *Parser) parseAggregateElement() *Tree {
	first := p.parseChoice()
	if !p.checkAny(token.BAR, token.CONNECT) {
		return first
	}
	choices := NewTree("choices")
	choices.Add(first)
	for {
		if _, ok := p.match(token.BAR); !ok {
			break
		}
		choices.Add(p.parseChoice())
	}
	p.expect(token.CONNECT)
	node := NewTree("connect")
	node.Add(choices)
	node.Add(p.parseExpr())
	return node
}

// parseChoice: others | expr [to|downto expr]
func (p *Parser) parseChoice() *Tree {
	if p.check(token.OTHERS) {
		p.advance()
		return NewTree("others")
	}
	e := p.parseExpr()
	if dir, ok := p.matchRangeDirection(); ok {
		node := NewTree("range").Set("direction", dir)
		node.Add(e)
		node.Add(p.parseExpr())
		return node
	}
	return e
}

func (p *Parser) matchRangeDirection() (string, bool) {
	switch {
	case p.check(token.TO):
		p.advance()
		return "to", true
	case p.check(token.DOWNTO):
		p.advance()
		return "downto", true
	}
	return "", false
}

// parseRange: expr to|downto expr, or ID range <> (an open array-index
// constraint like "natural range <>").
func (p *Parser) parseRange() *Tree {
	if p.check(token.ID) && p.peek(1).Class.Equal(token.RANGE) {
		id := p.advance()
		p.expect(token.RANGE)
		p.expect(token.RANGESIGN)
		return NewTree("range").SetLine(id.Line).Set("id", id.Lexeme)
	}
	left := p.parseExpr()
	dir, ok := p.matchRangeDirection()
	if !ok {
		p.errorHere()
		return left
	}
	node := NewTree("range").Set("direction", dir)
	node.Add(left)
	node.Add(p.parseExpr())
	return node
}

// parseDiscreteRange: a range, or a bare subtype name used as one.
func (p *Parser) parseDiscreteRange() *Tree {
	if p.check(token.ID) && p.peek(1).Class.Equal(token.RANGE) {
		return p.parseRange()
	}
	left := p.parseExpr()
	if dir, ok := p.matchRangeDirection(); ok {
		node := NewTree("range").Set("direction", dir)
		node.Add(left)
		node.Add(p.parseExpr())
		return node
	}
	return left
}

// parseName parses a name: an identifier with optional indexed, sliced,
// selected, and attribute suffixes. ID(args) comes back as an
// objectExpression with a parameters (or range) child; whether that means a
// function call or an array index is deliberately left unresolved, per the
// grammar's own deferral of that context-sensitive distinction. A dotted
// selection wraps everything in a recordExpression; an attribute tick
// appends an attribute child.
func (p *Parser) parseName() *Tree {
	base := p.parseIDItem()
	for p.check(token.DOT) {
		p.advance()
		sfx := p.parseNameSuffix()
		if base.Tag == "recordExpression" {
			base.Add(sfx)
		} else {
			rec := NewTree("recordExpression")
			rec.Add(base)
			rec.Add(sfx)
			base = rec
		}
	}
	if p.check(token.APOSTROPHE) {
		line := p.cur().Line
		p.advance()
		attr := NewTree("attribute").SetLine(line)
		if _, ok := p.match(token.RANGE); ok {
			attr.Set("id", "range")
		} else {
			attr.Set("id", p.expect(token.ID).Lexeme)
		}
		if _, ok := p.match(token.LPAREN); ok {
			attr.Add(p.parseExpr())
			p.expect(token.RPAREN)
		}
		base.Add(attr)
	}
	return base
}

func (p *Parser) parseNameSuffix() *Tree {
	switch {
	case p.check(token.CLIT):
		t := p.advance()
		return NewTree("suffix").SetLine(t.Line).Set("id", t.Lexeme)
	case p.check(token.ALL):
		t := p.advance()
		return NewTree("suffix").SetLine(t.Line).Set("id", t.Lexeme)
	default:
		return p.parseIDItem()
	}
}

// parseIDItem: ID { ( parameters-or-range ) }
func (p *Parser) parseIDItem() *Tree {
	id := p.expect(token.ID)
	node := NewTree("objectExpression").SetLine(id.Line).Set("id", id.Lexeme)
	for p.check(token.LPAREN) {
		p.advance()
		node.Add(p.parseParametersOrRange())
		p.expect(token.RPAREN)
	}
	return node
}

// parseParametersOrRange parses the interior of a name's parenthesized
// suffix: either a single range (a slice, "7 downto 0") or a parameters
// list (indices/arguments, possibly with named => associations).
func (p *Parser) parseParametersOrRange() *Tree {
	if p.check(token.ID) && p.peek(1).Class.Equal(token.RANGE) {
		return p.parseRange()
	}
	first := p.parseParid()
	if first.Tag != "connect" {
		if dir, ok := p.matchRangeDirection(); ok {
			node := NewTree("range").Set("direction", dir)
			node.Add(first)
			node.Add(p.parseExpr())
			return node
		}
	}
	params := NewTree("parameters")
	params.Add(first)
	for {
		if _, ok := p.match(token.COMMA); !ok {
			break
		}
		params.Add(p.parseParid())
	}
	return params
}

// parseParid: [ID =>] expr -- a positional or named parameter.
func (p *Parser) parseParid() *Tree {
	if p.check(token.ID) && p.peek(1).Class.Equal(token.CONNECT) {
		id := p.advance()
		p.expect(token.CONNECT)
		node := NewTree("connect")
		node.Add(NewTree("id").SetLine(id.Line).Set("id", id.Lexeme))
		node.Add(p.parseExpr())
		return node
	}
	return p.parseExpr()
}

///////////////////////////////////////////////////////////////////////////
// Sequential statements

var seqStops = []token.Class{
	token.END, token.ELSIF, token.ELSE, token.WHEN, token.EOF,
}

// parseSequentialStatements accumulates a sequentialStatements node until a
// statement-list boundary (end/elsif/else/when) is reached. Always returns a
// node, possibly empty, matching the grammar's epsilon production for empty
// bodies.
func (p *Parser) parseSequentialStatements() *Tree {
	node := NewTree("sequentialStatements")
	for !p.checkAny(seqStops...) {
		before := p.pos
		s := p.parseSequentialStatement()
		if s != nil {
			node.Add(s)
			p.expect(token.SEMI)
		}
		if p.pos == before {
			p.errorHere()
			p.resyncTo(append([]token.Class{token.SEMI}, seqStops...)...)
			p.match(token.SEMI)
		}
	}
	return node
}

func (p *Parser) parseSequentialStatement() *Tree {
	label := ""
	if p.check(token.ID) && p.peek(1).Class.Equal(token.COLON) {
		label = p.advance().Lexeme
		p.expect(token.COLON)
	}

	switch {
	case p.check(token.WAIT):
		return p.parseWaitStmt()
	case p.check(token.ASSERT):
		return p.parseAssertStmt()
	case p.check(token.REPORT):
		return p.parseReportStmt()
	case p.check(token.IF):
		return p.parseIfStmt(label)
	case p.check(token.CASE):
		return p.parseCaseStmt(label)
	case p.check(token.WHILE), p.check(token.LOOP):
		return p.parseWhileStmt(label)
	case p.check(token.FOR):
		return p.parseForStmt(label)
	case p.check(token.NEXT):
		return p.parseNextExitStmt("nextSequentialStatement")
	case p.check(token.EXIT):
		return p.parseNextExitStmt("exitSequentialStatement")
	case p.check(token.RETURN):
		line := p.cur().Line
		p.advance()
		node := NewTree("returnSequentialStatement").SetLine(line)
		if !p.check(token.SEMI) {
			node.Add(p.parseExpr())
		}
		return node
	case p.check(token.NULLKW):
		line := p.cur().Line
		p.advance()
		return NewTree("nullSequentialStatement").SetLine(line)
	case p.check(token.ID), p.check(token.LPAREN):
		return p.parseAssignOrCallStmt(label)
	default:
		return nil
	}
}

// parseWaitStmt: wait [on idList] [until expr] [for expr]. Each present
// clause becomes a child node tagged with the clause keyword wrapping its
// operand.
func (p *Parser) parseWaitStmt() *Tree {
	line := p.cur().Line
	p.expect(token.WAIT)
	node := NewTree("waitSequentialStatement").SetLine(line)
	if _, ok := p.match(token.ON); ok {
		node.Add(NewTree("on").Add(p.parseIDList()))
	}
	if _, ok := p.match(token.UNTIL); ok {
		node.Add(NewTree("until").Add(p.parseExpr()))
	}
	if _, ok := p.match(token.FOR); ok {
		node.Add(NewTree("for").Add(p.parseExpr()))
	}
	return node
}

func (p *Parser) parseAssertStmt() *Tree {
	line := p.cur().Line
	p.expect(token.ASSERT)
	node := NewTree("assertSequentialStatement").SetLine(line)
	node.Add(p.parseExpr())
	if _, ok := p.match(token.REPORT); ok {
		node.Set("report", p.expect(token.CLIT).Lexeme)
	}
	if sev, ok := p.matchSeverity(); ok {
		node.Set("severity", sev)
	}
	return node
}

func (p *Parser) parseReportStmt() *Tree {
	line := p.cur().Line
	p.expect(token.REPORT)
	node := NewTree("reportSequentialStatement").SetLine(line)
	node.Set("report", p.expect(token.CLIT).Lexeme)
	if sev, ok := p.matchSeverity(); ok {
		node.Set("severity", sev)
	}
	return node
}

func (p *Parser) matchSeverity() (string, bool) {
	if _, ok := p.match(token.SEVERITY); !ok {
		return "", false
	}
	if p.checkAny(token.NOTE, token.WARNING, token.ERROR, token.FAILURE) {
		return p.advance().Lexeme, true
	}
	p.errorHere()
	return "", false
}

// parseIfStmt: if expr then .. {elsif expr then ..} [else ..] end if [ID]
// Children in order: the guard expression, a then node, one elseif node per
// elsif arm (each holding its own guard and then), and an optional else.
func (p *Parser) parseIfStmt(label string) *Tree {
	line := p.cur().Line
	p.expect(token.IF)
	node := NewTree("ifSequentialStatement").SetLine(line)
	if label != "" {
		node.Set("label", label)
	}
	node.Add(p.parseExpr())
	p.expect(token.THEN)
	node.Add(NewTree("then").Add(p.parseSequentialStatements()))

	for p.check(token.ELSIF) {
		p.advance()
		arm := NewTree("elseif")
		arm.Add(p.parseExpr())
		p.expect(token.THEN)
		arm.Add(NewTree("then").Add(p.parseSequentialStatements()))
		node.Add(arm)
	}
	if _, ok := p.match(token.ELSE); ok {
		node.Add(NewTree("else").Add(p.parseSequentialStatements()))
	}
	p.expect(token.END)
	p.expect(token.IF)
	p.match(token.ID)
	return node
}

// parseCaseStmt: case expr is {when choices => ..} end case [ID]
func (p *Parser) parseCaseStmt(label string) *Tree {
	line := p.cur().Line
	p.expect(token.CASE)
	node := NewTree("caseSequentialStatement").SetLine(line)
	if label != "" {
		node.Set("label", label)
	}
	node.Add(p.parseExpr())
	p.expect(token.IS)
	for p.check(token.WHEN) {
		p.advance()
		arm := NewTree("case")
		arm.Add(p.parseChoiceList())
		p.expect(token.CONNECT)
		arm.Add(p.parseSequentialStatements())
		node.Add(arm)
	}
	p.expect(token.END)
	p.expect(token.CASE)
	p.match(token.ID)
	return node
}

func (p *Parser) parseChoiceList() *Tree {
	node := NewTree("choices")
	node.Add(p.parseChoice())
	for {
		if _, ok := p.match(token.BAR); !ok {
			break
		}
		node.Add(p.parseChoice())
	}
	return node
}

// parseWhileStmt: [while expr] loop .. end loop [ID]
func (p *Parser) parseWhileStmt(label string) *Tree {
	line := p.cur().Line
	node := NewTree("whileSequentialStatement").SetLine(line)
	if label != "" {
		node.Set("label", label)
	}
	if _, ok := p.match(token.WHILE); ok {
		node.Add(p.parseExpr())
	}
	p.expect(token.LOOP)
	node.Add(p.parseSequentialStatements())
	p.expect(token.END)
	p.expect(token.LOOP)
	p.match(token.ID)
	return node
}

// parseForStmt: for ID in range loop .. end loop [ID]
func (p *Parser) parseForStmt(label string) *Tree {
	line := p.cur().Line
	p.expect(token.FOR)
	node := NewTree("forSequentialStatement").SetLine(line)
	if label != "" {
		node.Set("label", label)
	}
	node.Set("id", p.expect(token.ID).Lexeme)
	p.expect(token.IN)
	node.Add(p.parseRange())
	p.expect(token.LOOP)
	node.Add(p.parseSequentialStatements())
	p.expect(token.END)
	p.expect(token.LOOP)
	p.match(token.ID)
	return node
}

// parseNextExitStmt: next|exit [ID] [when expr]
func (p *Parser) parseNextExitStmt(tag string) *Tree {
	line := p.cur().Line
	p.advance()
	node := NewTree(tag).SetLine(line)
	if t, ok := p.match(token.ID); ok {
		node.Set("label", t.Lexeme)
	}
	if _, ok := p.match(token.WHEN); ok {
		node.Add(p.parseExpr())
	}
	return node
}

// parseAssignOrCallStmt resolves the target-first sequential forms: a
// signal assignment (<=), a variable assignment (:=), or a bare procedure
// call (the name node itself, retagged).
func (p *Parser) parseAssignOrCallStmt(label string) *Tree {
	target := p.parseTarget()

	switch {
	case p.check(token.LE):
		p.advance()
		node := NewTree("signalAssignSequentialStatement")
		node.SetLine(targetLine(target))
		if label != "" {
			node.Set("label", label)
		}
		node.Add(target)
		if delay, reject := p.parseDelayMechanism(); delay != "" {
			node.Set("delay", delay)
			if reject != nil {
				node.Add(reject)
			}
		}
		node.Add(NewTree("signalValue").Add(p.parseExprList()))
		return node
	case p.check(token.ASSIGN):
		p.advance()
		node := NewTree("variableAssignSequentialStatement")
		node.SetLine(targetLine(target))
		if label != "" {
			node.Set("label", label)
		}
		node.Add(target)
		node.Add(p.parseExpr())
		return node
	default:
		target.Tag = "procedureSequentialStatement"
		if label != "" {
			target.Set("label", label)
		}
		return target
	}
}

// parseTarget: a name, or an aggregate target "(a, b) <= ...".
func (p *Parser) parseTarget() *Tree {
	if p.check(token.LPAREN) {
		return p.parseAggregateOrParen()
	}
	return p.parseName()
}

// targetLine implements the getLineTarget rule: an objectExpression target
// contributes its own line; any other target form contributes its first
// descendant's line.
func targetLine(target *Tree) int {
	if target.Tag == "objectExpression" {
		return target.Line()
	}
	return target.FirstChildLine()
}

// parseDelayMechanism: transport | inertial | reject TIME inertial.
// Returns the delay keyword (empty when absent) and the optional reject
// node wrapping the time expression.
func (p *Parser) parseDelayMechanism() (string, *Tree) {
	switch {
	case p.check(token.TRANSPORT):
		return p.advance().Lexeme, nil
	case p.check(token.INERTIAL):
		return p.advance().Lexeme, nil
	case p.check(token.REJECT):
		p.advance()
		reject := NewTree("reject").Add(p.parseExpr())
		p.expect(token.INERTIAL)
		return "inertial", reject
	}
	return "", nil
}

// parseExprList: {expr [after time] ,} -- a waveform's element list,
// wrapped in an expressions node. "null" is a valid waveform element; an
// element with an after clause becomes an afterExpression wrapping value
// and time.
func (p *Parser) parseExprList() *Tree {
	node := NewTree("expressions")
	for {
		node.Add(p.parseExprListItem())
		if _, ok := p.match(token.COMMA); !ok {
			break
		}
	}
	return node
}

func (p *Parser) parseExprListItem() *Tree {
	line := p.cur().Line
	var value *Tree
	if _, ok := p.match(token.NULLKW); ok {
		value = NewTree("null").SetLine(line)
	} else {
		value = p.parseExpr()
	}
	if _, ok := p.match(token.AFTER); ok {
		after := NewTree("afterExpression").SetLine(line)
		after.Add(value)
		after.Add(p.parseExpr())
		return after
	}
	return value
}

///////////////////////////////////////////////////////////////////////////
// Parallel statements

// parseParallelStatements accumulates a parallelStatements node until END
// (or EOF). Always returns a node, possibly empty.
func (p *Parser) parseParallelStatements() *Tree {
	node := NewTree("parallelStatements")
	for !p.check(token.END) && !p.atEnd() {
		before := p.pos
		s := p.parseParallelStatement()
		if s != nil {
			node.Add(s)
			p.expect(token.SEMI)
		}
		if p.pos == before {
			p.errorHere()
			p.resyncTo(token.SEMI, token.END)
			p.match(token.SEMI)
		}
	}
	return node
}

func (p *Parser) parseParallelStatement() *Tree {
	startLine := p.cur().Line
	label := ""
	if p.check(token.ID) && p.peek(1).Class.Equal(token.COLON) {
		label = p.advance().Lexeme
		p.expect(token.COLON)
	}
	postponed := false
	if _, ok := p.match(token.POSTPONED); ok {
		postponed = true
	}

	switch {
	case p.check(token.BLOCK):
		return p.parseBlockStmt(label, startLine)
	case p.check(token.PROCESS):
		return p.parseProcessStmt(label, postponed, startLine)
	case p.check(token.ASSERT):
		return p.parseParAssertStmt(label, postponed, startLine)
	case p.check(token.WITH):
		return p.parseSelectStmt(label, postponed, startLine)
	case p.check(token.IF):
		return p.parseIfGenerateStmt(label, startLine)
	case p.check(token.FOR):
		return p.parseForGenerateStmt(label, startLine)
	case p.check(token.ENTITY):
		return p.parseEntityInstStmt(label, startLine)
	case p.check(token.CONFIGURATION):
		return p.parseConfigInstStmt(label, startLine)
	case p.check(token.ID), p.check(token.LPAREN):
		return p.parseParAssignOrInst(label, postponed, startLine)
	default:
		return nil
	}
}

func boolAttr(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

// parseBlockStmt: LABEL: block [is] [generic(..);[generic map(..)]]
// [port(..);[port map(..)]] decls begin parStmts end block [ID]
func (p *Parser) parseBlockStmt(label string, line int) *Tree {
	p.expect(token.BLOCK)
	node := NewTree("blockParallelStatement").SetLine(line)
	node.Set("label", label)
	p.match(token.IS)

	if p.check(token.GENERIC) {
		g := p.parseGenericClause()
		if p.check(token.GENERIC) {
			p.advance()
			p.expect(token.MAP)
			p.expect(token.LPAREN)
			g.Add(p.parseMapList("genericMap"))
			p.expect(token.RPAREN)
			p.expect(token.SEMI)
		}
		node.Add(g)
	}
	if p.check(token.PORT) {
		ports := p.parsePortClause()
		if p.check(token.PORT) {
			p.advance()
			p.expect(token.MAP)
			p.expect(token.LPAREN)
			ports.Add(p.parseMapList("portMap"))
			p.expect(token.RPAREN)
			p.expect(token.SEMI)
		}
		node.Add(ports)
	}
	decls := p.parseDeclarations()
	if len(decls.Children) > 0 {
		node.Add(decls)
	}
	p.expect(token.BEGIN)
	if !p.check(token.END) {
		node.Add(p.parseParallelStatements())
	}
	p.expect(token.END)
	p.expect(token.BLOCK)
	p.match(token.ID)
	return node
}

// parseProcessStmt: [LABEL:] [postponed] process [(sensitivity)] [is] decls
// begin seqStmts end [postponed] process [ID]. The sensitivity list parses
// as a parameters node (or a range), the same shape an indexed name's
// argument list has.
func (p *Parser) parseProcessStmt(label string, postponed bool, line int) *Tree {
	p.expect(token.PROCESS)
	node := NewTree("processParallelStatement").SetLine(line)
	if label != "" {
		node.Set("label", label)
	}
	node.Set("postponed", boolAttr(postponed))

	if _, ok := p.match(token.LPAREN); ok {
		node.Add(p.parseParametersOrRange())
		p.expect(token.RPAREN)
	}
	p.match(token.IS)
	decls := p.parseDeclarations()
	if len(decls.Children) > 0 {
		node.Add(decls)
	}
	p.expect(token.BEGIN)
	node.Add(p.parseSequentialStatements())
	p.expect(token.END)
	p.match(token.POSTPONED)
	p.expect(token.PROCESS)
	p.match(token.ID)
	return node
}

func (p *Parser) parseParAssertStmt(label string, postponed bool, line int) *Tree {
	p.expect(token.ASSERT)
	node := NewTree("assertParallelStatement").SetLine(line)
	if label != "" {
		node.Set("label", label)
	}
	node.Set("postponed", boolAttr(postponed))
	node.Add(p.parseExpr())
	if _, ok := p.match(token.REPORT); ok {
		node.Set("report", p.expect(token.CLIT).Lexeme)
	}
	if sev, ok := p.matchSeverity(); ok {
		node.Set("severity", sev)
	}
	return node
}

// parseSelectStmt: with expr select target <= [guarded] [delay] waveform
// when choices {, waveform when choices}. Children in order: the selector
// expression, the target, the optional reject node, then one signalValue
// per alternative, each carrying its own when(choices) child.
func (p *Parser) parseSelectStmt(label string, postponed bool, line int) *Tree {
	p.expect(token.WITH)
	node := NewTree("selectParallelStatement").SetLine(line)
	if label != "" {
		node.Set("label", label)
	}
	node.Set("postponed", boolAttr(postponed))
	node.Add(p.parseExpr())
	p.expect(token.SELECT)
	node.Add(p.parseTarget())
	p.expect(token.LE)

	guarded := false
	if _, ok := p.match(token.GUARDED); ok {
		guarded = true
	}
	node.Set("guarded", boolAttr(guarded))
	if delay, reject := p.parseDelayMechanism(); delay != "" {
		node.Set("delay", delay)
		if reject != nil {
			node.Add(reject)
		}
	}

	for {
		sv := p.parseWaveform()
		p.expect(token.WHEN)
		sv.Add(NewTree("when").Add(p.parseChoiceList()))
		node.Add(sv)
		if _, ok := p.match(token.COMMA); !ok {
			break
		}
	}
	return node
}

// parseWaveform: a signalValue wrapping the element list, or the reserved
// word unaffected.
func (p *Parser) parseWaveform() *Tree {
	node := NewTree("signalValue")
	if _, ok := p.match(token.UNAFFECTED); ok {
		node.Add(NewTree("unaffected"))
		return node
	}
	node.Add(p.parseExprList())
	return node
}

// parseIfGenerateStmt: LABEL: if expr generate parStmts end generate [ID]
func (p *Parser) parseIfGenerateStmt(label string, line int) *Tree {
	p.expect(token.IF)
	node := NewTree("ifParallelStatement").SetLine(line)
	node.Set("label", label)
	node.Add(p.parseExpr())
	p.expect(token.GENERATE)
	if !p.check(token.END) {
		node.Add(NewTree("generate").Add(p.parseParallelStatements()))
	}
	p.expect(token.END)
	p.expect(token.GENERATE)
	p.match(token.ID)
	return node
}

// parseForGenerateStmt: LABEL: for ID in range generate parStmts end
// generate [ID]
func (p *Parser) parseForGenerateStmt(label string, line int) *Tree {
	p.expect(token.FOR)
	node := NewTree("forParallelStatement").SetLine(line)
	node.Set("label", label)
	node.Set("id", p.expect(token.ID).Lexeme)
	p.expect(token.IN)
	node.Add(p.parseRange())
	p.expect(token.GENERATE)
	if !p.check(token.END) {
		node.Add(NewTree("generate").Add(p.parseParallelStatements()))
	}
	p.expect(token.END)
	p.expect(token.GENERATE)
	p.match(token.ID)
	return node
}

// parseEntityInstStmt: LABEL: entity lib.name[(arch)] [maps]
func (p *Parser) parseEntityInstStmt(label string, line int) *Tree {
	p.expect(token.ENTITY)
	node := NewTree("entityParallelStatement").SetLine(line)
	node.Set("label", label)
	node.Set("id", p.parseDottedName())
	if _, ok := p.match(token.LPAREN); ok {
		node.Set("architecture", p.expect(token.ID).Lexeme)
		p.expect(token.RPAREN)
	}
	g, pm := p.parseMapAspects()
	node.Add(g)
	node.Add(pm)
	return node
}

// parseConfigInstStmt: LABEL: configuration lib.name [maps]
func (p *Parser) parseConfigInstStmt(label string, line int) *Tree {
	p.expect(token.CONFIGURATION)
	node := NewTree("configurationParallelStatement").SetLine(line)
	node.Set("label", label)
	node.Set("id", p.parseDottedName())
	g, pm := p.parseMapAspects()
	node.Add(g)
	node.Add(pm)
	return node
}

// parseParAssignOrInst resolves the remaining label:ID ambiguity the
// grammar documents: "LABEL: ID port map (...)" or "LABEL: ID generic map
// (...)" is a component instantiation; "target <= ..." is a concurrent
// signal assignment; a bare name is a concurrent procedure call.
func (p *Parser) parseParAssignOrInst(label string, postponed bool, startLine int) *Tree {
	target := p.parseTarget()

	if p.check(token.LE) {
		return p.parseParAssign(label, postponed, target, startLine)
	}

	if target.Tag == "objectExpression" && len(target.Children) == 0 &&
		(p.check(token.GENERIC) || p.check(token.PORT)) {
		node := NewTree("componentParallelStatement").SetLine(startLine)
		node.Set("label", label)
		node.Set("id", target.Attrs["id"])
		g, pm := p.parseMapAspects()
		node.Add(g)
		node.Add(pm)
		return node
	}

	target.Tag = "procedureParallelStatement"
	if label != "" {
		target.Set("label", label)
	}
	target.Set("postponed", boolAttr(postponed))
	return target
}

// parseParAssign: target <= [guarded] [delay] waveform {when expr else
// waveform}. The conditional chain flattens into a single
// assignParallelStatement whose children are the target, the optional
// reject node, then each alternative's signalValue -- a conditional
// alternative carries its guard as a when child inside its own signalValue.
func (p *Parser) parseParAssign(label string, postponed bool, target *Tree, startLine int) *Tree {
	p.expect(token.LE)
	node := NewTree("assignParallelStatement")
	if label != "" {
		node.Set("label", label)
		node.SetLine(startLine)
	} else {
		node.SetLine(targetLine(target))
	}
	node.Set("postponed", boolAttr(postponed))
	node.Add(target)

	guarded := false
	if _, ok := p.match(token.GUARDED); ok {
		guarded = true
	}
	node.Set("guarded", boolAttr(guarded))
	if delay, reject := p.parseDelayMechanism(); delay != "" {
		node.Set("delay", delay)
		if reject != nil {
			node.Add(reject)
		}
	}

	for {
		sv := p.parseWaveform()
		if _, ok := p.match(token.WHEN); ok {
			sv.Add(NewTree("when").Add(p.parseExpr()))
			node.Add(sv)
			p.expect(token.ELSE)
			continue
		}
		node.Add(sv)
		break
	}
	return node
}

// parseMapAspects: [generic map ( .. )] [port map ( .. )]. Returns either
// aspect as nil when absent.
func (p *Parser) parseMapAspects() (*Tree, *Tree) {
	var g, pm *Tree
	if p.check(token.GENERIC) {
		p.advance()
		p.expect(token.MAP)
		p.expect(token.LPAREN)
		g = p.parseMapList("genericMap")
		p.expect(token.RPAREN)
	}
	if p.check(token.PORT) {
		p.advance()
		p.expect(token.MAP)
		p.expect(token.LPAREN)
		pm = p.parseMapList("portMap")
		p.expect(token.RPAREN)
	}
	return g, pm
}

// parseMapList: {[formal =>] actual|open ,} -- named associations become
// map nodes pairing the formal's name with the actual expression (or an
// open node); positional actuals sit directly in the list.
func (p *Parser) parseMapList(tag string) *Tree {
	node := NewTree(tag)
	for {
		node.Add(p.parseMapItem())
		if _, ok := p.match(token.COMMA); !ok {
			break
		}
	}
	return node
}

func (p *Parser) parseMapItem() *Tree {
	// A named association's formal is itself a name (it may be indexed:
	// "dout(3) => q3"), so a single-token lookahead can't spot the =>.
	// Parse a name speculatively and back out if no => follows.
	if p.check(token.ID) {
		savedPos := p.pos
		savedDiags := 0
		if p.bag != nil {
			savedDiags = len(p.bag.Diagnostics)
		}
		formal := p.parseName()
		if p.check(token.CONNECT) {
			p.advance()
			node := NewTree("map")
			node.Add(formal)
			if _, ok := p.match(token.OPEN); ok {
				node.Add(NewTree("open"))
			} else {
				node.Add(p.parseExpr())
			}
			return node
		}
		p.pos = savedPos
		if p.bag != nil {
			p.bag.Diagnostics = p.bag.Diagnostics[:savedDiags]
		}
	}
	if _, ok := p.match(token.OPEN); ok {
		return NewTree("open")
	}
	return p.parseExpr()
}
