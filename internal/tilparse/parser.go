// Package tilparse is the front end: a hand-written lexer and
// recursive-descent parser turning TIL source text into the untyped
// tilast.File parse tree internal/eval consumes. Grammar/front-end
// concerns are kept out of the core packages (internal/ir,
// internal/eval) by design — this package is the only place that
// knows the concrete surface syntax.
package tilparse

import (
	"fmt"
	"strconv"

	"github.com/robert-at-pretension-io/tilc/internal/ir"
	"github.com/robert-at-pretension-io/tilc/internal/tilast"
)

// Parser consumes a token stream and builds a tilast.File. Parse
// errors are collected rather than aborting the whole file on the
// first one, so a caller can report every LexicalForm diagnostic in
// one pass (§7 "Propagation").
type Parser struct {
	lex      *Lexer
	filename string

	cur, peek       Token
	curDoc, peekDoc string
	errs            []ir.Diagnostic
}

// Parse lexes and parses one TIL source file.
func Parse(filename, src string) (*tilast.File, []ir.Diagnostic) {
	p := &Parser{lex: New(src), filename: filename}
	p.next()
	p.next()

	f := &tilast.File{Path: filename}
	block := tilast.NamespaceBlock{Path: ""}
	for p.cur.Type != EOF {
		switch {
		case p.curIs("namespace"):
			if len(block.Decls) > 0 || len(block.Imports) > 0 {
				f.Namespaces = append(f.Namespaces, block)
			}
			block = p.parseNamespaceBlock()
		case p.curIs("import"):
			block.Imports = append(block.Imports, p.parseImport())
		default:
			if d, ok := p.parseDecl(); ok {
				block.Decls = append(block.Decls, d)
			} else {
				p.syncToNextDecl()
			}
		}
	}
	f.Namespaces = append(f.Namespaces, block)
	return f, p.errs
}

func (p *Parser) next() {
	p.cur, p.curDoc = p.peek, p.peekDoc
	p.peek, p.peekDoc = p.lex.NextToken()
}

func (p *Parser) curIs(lit string) bool  { return p.cur.Type == IDENT && p.cur.Literal == lit }
func (p *Parser) peekIs(lit string) bool { return p.peek.Type == IDENT && p.peek.Literal == lit }

func (p *Parser) span() ir.Span {
	return ir.Span{File: p.filename, Line: p.cur.Line, Col: p.cur.Col}
}

func (p *Parser) errorf(format string, args ...any) {
	p.errs = append(p.errs, ir.Diagnostic{Kind: ir.LexicalForm, Span: p.span(), Message: fmt.Sprintf(format, args...)})
}

// expect checks cur's type, advances, and reports a LexicalForm
// diagnostic (rather than panicking) on mismatch.
func (p *Parser) expect(t TokenType, what string) bool {
	if p.cur.Type != t {
		p.errorf("expected %s, got %q", what, p.cur.Literal)
		return false
	}
	p.next()
	return true
}

func (p *Parser) expectIdent(lit string) bool {
	if !p.curIs(lit) {
		p.errorf("expected %q, got %q", lit, p.cur.Literal)
		return false
	}
	p.next()
	return true
}

// syncToNextDecl skips tokens until the start of a plausible
// declaration, so one malformed declaration doesn't cascade into
// spurious errors for the rest of the file.
func (p *Parser) syncToNextDecl() {
	for p.cur.Type != EOF && !p.curIs("type") && !p.curIs("streamlet") &&
		!p.curIs("interface") && !p.curIs("impl") && !p.curIs("import") && !p.curIs("namespace") {
		p.next()
	}
}

func (p *Parser) parseNamespaceBlock() tilast.NamespaceBlock {
	start := p.span()
	p.next() // "namespace"
	path := p.parsePath()
	block := tilast.NamespaceBlock{Path: path, Span: start}
	braced := p.cur.Type == LBRACE
	if braced {
		p.next()
	} else {
		p.expect(SEMI, ";")
		return block
	}
	for p.cur.Type != RBRACE && p.cur.Type != EOF {
		switch {
		case p.curIs("import"):
			block.Imports = append(block.Imports, p.parseImport())
		default:
			if d, ok := p.parseDecl(); ok {
				block.Decls = append(block.Decls, d)
			} else {
				p.syncToNextDecl()
			}
		}
	}
	p.expect(RBRACE, "}")
	return block
}

// parsePath parses a possibly-namespaced identifier (a::b::c). It
// stops before a trailing `::*` or `::{...}` — those are the import
// selector, not part of the namespace path itself.
func (p *Parser) parsePath() string {
	name := p.cur.Literal
	p.expect(IDENT, "identifier")
	for p.cur.Type == DCOLON && p.peek.Type == IDENT {
		p.next()
		name += "::" + p.cur.Literal
		p.expect(IDENT, "identifier")
	}
	return name
}

func (p *Parser) parseImport() tilast.Import {
	start := p.span()
	p.next() // "import"
	from := p.parsePath()
	imp := tilast.Import{From: from, Span: start}
	if p.cur.Type == DCOLON {
		p.next()
		switch {
		case p.cur.Type == STAR:
			p.next()
			imp.Wildcard = true
		case p.cur.Type == LBRACE:
			p.next()
			for p.cur.Type != RBRACE && p.cur.Type != EOF {
				item := tilast.ImportItem{Span: p.span(), Name: p.cur.Literal}
				p.expect(IDENT, "identifier")
				if p.curIs("as") {
					p.next()
					item.Alias = p.cur.Literal
					p.expect(IDENT, "identifier")
				}
				imp.Items = append(imp.Items, item)
				if p.cur.Type == COMMA {
					p.next()
				}
			}
			p.expect(RBRACE, "}")
		default:
			p.errorf("expected '*' or '{' after '::' in import")
		}
	}
	if p.curIs("as") {
		p.next()
		imp.Prefix = p.cur.Literal
		p.expect(IDENT, "identifier")
	}
	p.expect(SEMI, ";")
	return imp
}

func (p *Parser) parseDecl() (tilast.Decl, bool) {
	start := p.span()
	doc := p.curDoc
	switch {
	case p.curIs("type"):
		p.next()
		name := p.cur.Literal
		p.expect(IDENT, "identifier")
		generics := p.parseGenericsOpt()
		if !p.expect(EQ, "=") {
			return tilast.Decl{}, false
		}
		te := p.parseTypeExpr()
		p.expect(SEMI, ";")
		return tilast.Decl{Kind: tilast.DeclType, Name: name, Doc: doc, Generics: generics, Type: &te, Span: start}, true

	case p.curIs("streamlet"), p.curIs("interface"):
		isInterface := p.curIs("interface")
		p.next()
		name := p.cur.Literal
		p.expect(IDENT, "identifier")
		generics := p.parseGenericsOpt()
		domains := p.parseDomainsOpt()
		kind := tilast.DeclStreamlet
		if isInterface {
			kind = tilast.DeclInterface
		}
		if p.cur.Type == EQ {
			p.next()
			adoptFrom := p.cur.Literal
			p.expect(IDENT, "identifier")
			p.expect(SEMI, ";")
			return tilast.Decl{Kind: kind, Name: name, Doc: doc, Generics: generics, Domains: domains,
				Streamlet: &tilast.StreamletBody{AdoptFrom: adoptFrom, Span: start}, Span: start}, true
		}
		body := p.parseStreamletBody(start)
		return tilast.Decl{Kind: kind, Name: name, Doc: doc, Generics: generics, Domains: domains, Streamlet: &body, Span: start}, true

	case p.curIs("impl"):
		p.next()
		name := p.cur.Literal
		p.expect(IDENT, "identifier")
		generics := p.parseGenericsOpt()
		if p.curIs("for") {
			p.next()
			p.expect(IDENT, "identifier") // streamlet name; standalone impls are looked up by their own name
		}
		if p.cur.Type == EQ {
			p.next()
			path := p.cur.Literal
			p.expect(STRING, "string")
			p.expect(SEMI, ";")
			return tilast.Decl{Kind: tilast.DeclImpl, Name: name, Doc: doc, Generics: generics,
				Impl: &tilast.ImplBody{Path: path, Span: start}, Span: start}, true
		}
		body := p.parseImplBody(start)
		return tilast.Decl{Kind: tilast.DeclImpl, Name: name, Doc: doc, Generics: generics, Impl: &body, Span: start}, true

	default:
		p.errorf("expected a declaration, got %q", p.cur.Literal)
		return tilast.Decl{}, false
	}
}

func (p *Parser) parseGenericsOpt() []tilast.ParamDecl {
	if p.cur.Type != LANGLE {
		return nil
	}
	p.next()
	var out []tilast.ParamDecl
	for p.cur.Type != RANGLE && p.cur.Type != EOF {
		start := p.span()
		name := p.cur.Literal
		p.expect(IDENT, "identifier")
		p.expect(COLON, ":")
		kind := p.cur.Literal
		p.expect(IDENT, "identifier")
		pd := tilast.ParamDecl{Name: name, Kind: kind, Span: start}
		if p.cur.Type == EQ {
			p.next()
			e := p.parseConstExpr()
			pd.Default = &e
		}
		if p.curIs("where") {
			p.next()
			pred := p.parsePredicate()
			pd.Constraint = &pred
		}
		out = append(out, pd)
		if p.cur.Type == COMMA {
			p.next()
		}
	}
	p.expect(RANGLE, ">")
	return out
}

func (p *Parser) parseDomainsOpt() []string {
	if p.cur.Type != LPAREN {
		return nil
	}
	// Only consume as a domain list if it looks like one: a sequence
	// of DOMAIN tokens. Anything else (a Linked impl's generics list
	// reusing parens, say) is left for the caller.
	if p.peek.Type != DOMAIN && p.peek.Type != RPAREN {
		return nil
	}
	p.next()
	var out []string
	for p.cur.Type != RPAREN && p.cur.Type != EOF {
		out = append(out, p.cur.Literal)
		p.expect(DOMAIN, "domain symbol")
		if p.cur.Type == COMMA {
			p.next()
		}
	}
	p.expect(RPAREN, ")")
	return out
}

func (p *Parser) parseStreamletBody(start ir.Span) tilast.StreamletBody {
	body := tilast.StreamletBody{Span: start}
	if !p.expect(LBRACE, "{") {
		return body
	}
	for p.cur.Type != RBRACE && p.cur.Type != EOF {
		switch {
		case p.curIs("in"), p.curIs("out"):
			body.Ports = append(body.Ports, p.parsePort())
		case p.curIs("impl"):
			implStart := p.span()
			p.next()
			if p.cur.Type == IDENT && !p.peekIsImplStart() {
				body.ImplRef = p.cur.Literal
				p.expect(IDENT, "identifier")
				p.expect(SEMI, ";")
			} else {
				b := p.parseImplBody(implStart)
				body.Impl = &b
			}
		default:
			p.errorf("expected a port or implementation, got %q", p.cur.Literal)
			p.next()
		}
	}
	p.expect(RBRACE, "}")
	return body
}

func (p *Parser) peekIsImplStart() bool { return p.peek.Type == LBRACE }

func (p *Parser) parsePort() tilast.PortDecl {
	start := p.span()
	doc := p.curDoc
	dir := p.cur.Literal
	p.next() // "in"/"out"
	name := p.cur.Literal
	p.expect(IDENT, "identifier")
	p.expect(COLON, ":")
	te := p.parseTypeExpr()
	pd := tilast.PortDecl{Name: name, Direction: dir, Stream: te, Doc: doc, Span: start}
	if p.cur.Type == DOMAIN {
		pd.Domain = p.cur.Literal
		p.next()
	}
	p.expect(SEMI, ";")
	return pd
}

func (p *Parser) parseImplBody(start ir.Span) tilast.ImplBody {
	body := tilast.ImplBody{Span: start}
	if !p.expect(LBRACE, "{") {
		return body
	}
	for p.cur.Type != RBRACE && p.cur.Type != EOF {
		if p.peek.Type == EQ {
			body.Instances = append(body.Instances, p.parseInstance())
			continue
		}
		if isEndpointStart(p.cur) {
			body.Connections = append(body.Connections, p.parseConnection())
			continue
		}
		p.errorf("expected an instance or connection, got %q", p.cur.Literal)
		p.next()
	}
	p.expect(RBRACE, "}")
	return body
}

func isEndpointStart(t Token) bool { return t.Type == IDENT }

func (p *Parser) parseInstance() tilast.InstanceDecl {
	start := p.span()
	name := p.cur.Literal
	p.expect(IDENT, "identifier")
	p.expect(EQ, "=")
	ref := p.parsePath()
	inst := tilast.InstanceDecl{Name: name, StreamletRef: ref, Span: start}
	if p.cur.Type == LANGLE {
		p.next()
		for p.cur.Type != RANGLE && p.cur.Type != EOF {
			inst.GenericArgs = append(inst.GenericArgs, p.parseArg())
			if p.cur.Type == COMMA {
				p.next()
			}
		}
		p.expect(RANGLE, ">")
	}
	if p.cur.Type == LPAREN {
		p.next()
		for p.cur.Type != RPAREN && p.cur.Type != EOF {
			inst.DomainArgs = append(inst.DomainArgs, p.parseDomainArg())
			if p.cur.Type == COMMA {
				p.next()
			}
		}
		p.expect(RPAREN, ")")
	}
	p.expect(SEMI, ";")
	return inst
}

func (p *Parser) parseDomainArg() tilast.DomainArg {
	start := p.span()
	if p.cur.Type == DOMAIN && p.peek.Type == EQ {
		name := p.cur.Literal
		p.next()
		p.next() // "="
		parent := p.cur.Literal
		p.expect(DOMAIN, "domain symbol")
		return tilast.DomainArg{Name: name, Parent: parent, Span: start}
	}
	parent := p.cur.Literal
	p.expect(DOMAIN, "domain symbol")
	return tilast.DomainArg{Parent: parent, Span: start}
}

func (p *Parser) parseArg() tilast.Arg {
	start := p.span()
	if p.cur.Type == IDENT && p.peek.Type == EQ {
		name := p.cur.Literal
		p.next()
		p.next()
		e := p.parseConstExpr()
		return tilast.Arg{Name: name, Value: e, Span: start}
	}
	e := p.parseConstExpr()
	return tilast.Arg{Value: e, Span: start}
}

func (p *Parser) parseConnection() tilast.ConnectionDecl {
	start := p.span()
	a := p.parseEndpoint()
	p.expect(DASHDASH, "--")
	b := p.parseEndpoint()
	p.expect(SEMI, ";")
	return tilast.ConnectionDecl{A: a, B: b, Span: start}
}

func (p *Parser) parseEndpoint() tilast.EndpointExpr {
	start := p.span()
	first := p.cur.Literal
	p.expect(IDENT, "identifier")
	if p.cur.Type == DOT {
		p.next()
		port := p.cur.Literal
		p.expect(IDENT, "identifier")
		return tilast.EndpointExpr{Instance: first, Port: port, Span: start}
	}
	return tilast.EndpointExpr{Port: first, Span: start}
}

// ---- type expressions ----

func (p *Parser) parseTypeExpr() tilast.TypeExpr {
	start := p.span()
	switch {
	case p.curIs("Null"):
		p.next()
		return tilast.TypeExpr{Null: true, Span: start}
	case p.curIs("Bits"):
		p.next()
		p.expect(LPAREN, "(")
		e := p.parseConstExpr()
		p.expect(RPAREN, ")")
		return tilast.TypeExpr{Bits: &e, Span: start}
	case p.curIs("Group"), p.curIs("Union"):
		isGroup := p.curIs("Group")
		p.next()
		p.expect(LBRACE, "{")
		var fields []tilast.FieldExpr
		for p.cur.Type != RBRACE && p.cur.Type != EOF {
			fstart := p.span()
			name := p.cur.Literal
			p.expect(IDENT, "identifier")
			p.expect(COLON, ":")
			te := p.parseTypeExpr()
			fields = append(fields, tilast.FieldExpr{Name: name, Type: te, Span: fstart})
			if p.cur.Type == COMMA {
				p.next()
			}
		}
		p.expect(RBRACE, "}")
		if isGroup {
			return tilast.TypeExpr{Fields: fields, Span: start}
		}
		return tilast.TypeExpr{Variants: fields, Span: start}
	case p.curIs("Stream"):
		p.next()
		se := p.parseStreamExpr()
		return tilast.TypeExpr{Stream: &se, Span: start}
	case p.cur.Type == IDENT:
		ref := p.parsePath()
		te := tilast.TypeExpr{Ref: ref, Span: start}
		if p.cur.Type == LANGLE {
			p.next()
			for p.cur.Type != RANGLE && p.cur.Type != EOF {
				te.Args = append(te.Args, p.parseArg())
				if p.cur.Type == COMMA {
					p.next()
				}
			}
			p.expect(RANGLE, ">")
		}
		return te
	default:
		p.errorf("expected a type, got %q", p.cur.Literal)
		p.next()
		return tilast.TypeExpr{Null: true, Span: start}
	}
}

func (p *Parser) parseStreamExpr() tilast.StreamExpr {
	p.expect(LPAREN, "(")
	se := tilast.StreamExpr{Data: p.parseTypeExpr()}
	for p.cur.Type == COMMA {
		p.next()
		key := p.cur.Literal
		p.expect(IDENT, "identifier")
		p.expect(COLON, ":")
		switch key {
		case "throughput":
			se.Throughput = p.parseRationalLit()
		case "dimensionality":
			e := p.parseConstExpr()
			se.Dimensionality = &e
		case "synchronicity":
			se.Synchronicity = p.cur.Literal
			p.expect(IDENT, "identifier")
		case "complexity":
			se.Complexity = p.parseComplexityLit()
		case "direction":
			se.Direction = p.cur.Literal
			p.expect(IDENT, "identifier")
		case "user":
			te := p.parseTypeExpr()
			se.User = &te
		case "keep":
			v := p.curIs("true")
			se.Keep = &v
			p.next()
		default:
			p.errorf("unknown stream parameter %q", key)
			p.next()
		}
	}
	p.expect(RPAREN, ")")
	return se
}

func (p *Parser) parseRationalLit() *tilast.RationalLit {
	start := p.span()
	if p.cur.Type == DECIMAL {
		num, den := parseRationalLiteral(p.cur.Literal)
		p.next()
		return &tilast.RationalLit{Num: num, Den: den, Span: start}
	}
	if p.cur.Type == INT {
		n, _ := strconv.ParseInt(p.cur.Literal, 10, 64)
		p.next()
		return &tilast.RationalLit{Num: n, Den: 1, Span: start}
	}
	p.errorf("expected a rational literal, got %q", p.cur.Literal)
	p.next()
	return &tilast.RationalLit{Num: 1, Den: 1, Span: start}
}

// parseRationalLiteral splits a lexed DECIMAL token (either "N/M" or
// "N.M") into a reduced-later (Num, Den) pair; NewRational does the
// actual reduction once this reaches internal/ir.
func parseRationalLiteral(lit string) (int64, int64) {
	for i, ch := range lit {
		if ch == '/' {
			num, _ := strconv.ParseInt(lit[:i], 10, 64)
			den, _ := strconv.ParseInt(lit[i+1:], 10, 64)
			return num, den
		}
		if ch == '.' {
			whole, _ := strconv.ParseInt(lit[:i], 10, 64)
			frac := lit[i+1:]
			den := int64(1)
			for range frac {
				den *= 10
			}
			fracVal, _ := strconv.ParseInt(frac, 10, 64)
			return whole*den + fracVal, den
		}
	}
	n, _ := strconv.ParseInt(lit, 10, 64)
	return n, 1
}

func (p *Parser) parseComplexityLit() []uint32 {
	p.expect(LBRACKET, "[")
	var out []uint32
	for p.cur.Type != RBRACKET && p.cur.Type != EOF {
		n, _ := strconv.ParseUint(p.cur.Literal, 10, 32)
		out = append(out, uint32(n))
		p.expect(INT, "integer")
		if p.cur.Type == COMMA {
			p.next()
		}
	}
	p.expect(RBRACKET, "]")
	return out
}

// ---- constant expressions (precedence climbing) ----

func (p *Parser) parseConstExpr() tilast.ConstExprNode {
	return p.parseAddSub()
}

func (p *Parser) parseAddSub() tilast.ConstExprNode {
	left := p.parseMulDiv()
	for p.cur.Type == PLUS || p.cur.Type == MINUS {
		op := "+"
		if p.cur.Type == MINUS {
			op = "-"
		}
		start := p.span()
		p.next()
		right := p.parseMulDiv()
		left = tilast.ConstExprNode{Op: op, LHS: &left, RHS: &right, Span: start}
	}
	return left
}

func (p *Parser) parseMulDiv() tilast.ConstExprNode {
	left := p.parseUnary()
	for p.cur.Type == STAR || p.cur.Type == SLASH || p.cur.Type == PERCENT {
		op := map[TokenType]string{STAR: "*", SLASH: "/", PERCENT: "%"}[p.cur.Type]
		start := p.span()
		p.next()
		right := p.parseUnary()
		left = tilast.ConstExprNode{Op: op, LHS: &left, RHS: &right, Span: start}
	}
	return left
}

func (p *Parser) parseUnary() tilast.ConstExprNode {
	if p.cur.Type == MINUS {
		start := p.span()
		p.next()
		operand := p.parseUnary()
		zero := int64(0)
		left := tilast.ConstExprNode{Lit: &zero, Span: start}
		return tilast.ConstExprNode{Op: "-", LHS: &left, RHS: &operand, Span: start}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() tilast.ConstExprNode {
	start := p.span()
	switch {
	case p.cur.Type == INT:
		n, _ := strconv.ParseInt(p.cur.Literal, 10, 64)
		p.next()
		return tilast.ConstExprNode{Lit: &n, Span: start}
	case p.cur.Type == IDENT:
		name := p.cur.Literal
		p.next()
		return tilast.ConstExprNode{Ref: name, Span: start}
	case p.cur.Type == LPAREN:
		p.next()
		e := p.parseConstExpr()
		p.expect(RPAREN, ")")
		return e
	default:
		p.errorf("expected a constant expression, got %q", p.cur.Literal)
		zero := int64(0)
		p.next()
		return tilast.ConstExprNode{Lit: &zero, Span: start}
	}
}

// ---- predicates ----

func (p *Parser) parsePredicate() tilast.PredicateNode {
	return p.parseOr()
}

func (p *Parser) parseOr() tilast.PredicateNode {
	left := p.parseAnd()
	for p.cur.Type == OR {
		start := p.span()
		p.next()
		right := p.parseAnd()
		left = tilast.PredicateNode{Or: [2]*tilast.PredicateNode{&left, &right}, Span: start}
	}
	return left
}

func (p *Parser) parseAnd() tilast.PredicateNode {
	left := p.parseNot()
	for p.cur.Type == AND {
		start := p.span()
		p.next()
		right := p.parseNot()
		left = tilast.PredicateNode{And: [2]*tilast.PredicateNode{&left, &right}, Span: start}
	}
	return left
}

func (p *Parser) parseNot() tilast.PredicateNode {
	if p.cur.Type == NOT {
		start := p.span()
		p.next()
		inner := p.parseNot()
		return tilast.PredicateNode{Not: &inner, Span: start}
	}
	return p.parseAtom()
}

func (p *Parser) parseAtom() tilast.PredicateNode {
	start := p.span()
	if p.cur.Type == LPAREN {
		p.next()
		inner := p.parsePredicate()
		p.expect(RPAREN, ")")
		return inner
	}
	if p.curIs("one_of") {
		p.next()
		p.expect(LPAREN, "(")
		var choices []tilast.ConstExprNode
		for p.cur.Type != RPAREN && p.cur.Type != EOF {
			choices = append(choices, p.parseConstExpr())
			if p.cur.Type == COMMA {
				p.next()
			}
		}
		p.expect(RPAREN, ")")
		return tilast.PredicateNode{OneOf: choices, Span: start}
	}
	// The subject may be named (`N > 0`) or left implicit (`> 0`); both
	// compare the constrained parameter's own value.
	if p.cur.Type == IDENT {
		switch p.peek.Type {
		case EQEQ, NE, LANGLE, RANGLE, LE, GE:
			p.next()
		}
	}
	rel := ""
	switch p.cur.Type {
	case EQEQ:
		rel = "="
	case NE:
		rel = "!="
	case LANGLE:
		rel = "<"
	case RANGLE:
		rel = ">"
	case LE:
		rel = "<="
	case GE:
		rel = ">="
	default:
		p.errorf("expected a relational operator, got %q", p.cur.Literal)
	}
	p.next()
	e := p.parseConstExpr()
	return tilast.PredicateNode{Rel: rel, Value: &e, Span: start}
}
