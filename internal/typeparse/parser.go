// Package typeparse reads the textual forms hosts use to declare things:
// type expressions ("const ns::array<int@>@ const &in"), function
// declarations ("int max(int a, int b) const") and property declarations
// ("float x"). It is not a script parser; statements and expressions are
// out of its reach apart from default-argument text, which is kept raw.
package typeparse

import (
	"fmt"
	"strings"

	"anvil/internal/diag"
	"anvil/internal/resolve"
	"anvil/internal/source"
	"anvil/internal/types"
)

// SyntaxError reports malformed declaration text.
type SyntaxError struct {
	Span  source.Span
	Input string
	Msg   string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("malformed declaration %q: %s", e.Input, e.Msg)
}

// Code is the diagnostic code for syntax errors.
func (e *SyntaxError) Code() diag.Code { return diag.ResMalformedTypeExpr }

// Param is one parameter of a FuncDecl. Default holds the raw text after
// '=' and is empty when there is none.
type Param struct {
	Type    *resolve.TypeExpr
	Name    string
	Default string
}

// HasDefault reports whether the parameter declares a default value.
func (p Param) HasDefault() bool { return p.Default != "" }

// FuncDecl is a parsed function declaration. Return is nil for
// constructors ("Foo(int)").
type FuncDecl struct {
	Span           source.Span
	Return         *resolve.TypeExpr
	Scope          []string
	Name           string
	TemplateParams []string
	Params         []Param
	Const          bool
	Explicit       bool
	Property       bool
	Variadic       bool
}

// IsConstructor reports a declaration without a return type.
func (d *FuncDecl) IsConstructor() bool { return d.Return == nil }

// PropDecl is a parsed property declaration.
type PropDecl struct {
	Span source.Span
	Type *resolve.TypeExpr
	Name string
}

// Location places parsed text inside a file so spans point at it.
type Location struct {
	File   source.FileID
	Offset uint32
}

// ParseType parses a single type expression.
func ParseType(text string) (*resolve.TypeExpr, error) {
	return ParseTypeAt(text, Location{})
}

// ParseTypeAt is ParseType with spans relative to loc.
func ParseTypeAt(text string, loc Location) (*resolve.TypeExpr, error) {
	p := newParser(text, loc)
	e, err := p.parseType()
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return e, nil
}

// ParseFunction parses a function, method or constructor declaration.
func ParseFunction(text string) (*FuncDecl, error) {
	return ParseFunctionAt(text, Location{})
}

// ParseFunctionAt is ParseFunction with spans relative to loc.
func ParseFunctionAt(text string, loc Location) (*FuncDecl, error) {
	p := newParser(text, loc)
	start := p.tok.span
	d := &FuncDecl{}

	if !(p.tok.kind == kIdent && p.peek().kind == kLParen) {
		ret, err := p.parseType()
		if err != nil {
			return nil, err
		}
		d.Return = ret
	}
	name, err := p.expect(kIdent)
	if err != nil {
		return nil, err
	}
	parts := []string{name.text}
	for p.tok.kind == kColonColon {
		p.advance()
		id, err := p.expect(kIdent)
		if err != nil {
			return nil, err
		}
		parts = append(parts, id.text)
	}
	d.Scope, d.Name = parts[:len(parts)-1], parts[len(parts)-1]

	if p.tok.kind == kLt {
		p.advance()
		for {
			id, err := p.expect(kIdent)
			if err != nil {
				return nil, err
			}
			d.TemplateParams = append(d.TemplateParams, id.text)
			if p.tok.kind != kComma {
				break
			}
			p.advance()
		}
		if _, err := p.expect(kGt); err != nil {
			return nil, err
		}
	}

	if err := p.parseParams(d); err != nil {
		return nil, err
	}
	for p.tok.kind == kIdent {
		switch p.tok.text {
		case "const":
			d.Const = true
		case "explicit":
			d.Explicit = true
		case "property":
			d.Property = true
		default:
			return nil, p.errorf(p.tok.span, "unexpected %q after parameter list", p.tok.text)
		}
		p.advance()
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	d.Span = start.Cover(p.prev.span)
	return d, nil
}

// ParseProperty parses "type name".
func ParseProperty(text string) (*PropDecl, error) {
	return ParsePropertyAt(text, Location{})
}

// ParsePropertyAt is ParseProperty with spans relative to loc.
func ParsePropertyAt(text string, loc Location) (*PropDecl, error) {
	p := newParser(text, loc)
	start := p.tok.span
	t, err := p.parseType()
	if err != nil {
		return nil, err
	}
	name, err := p.expect(kIdent)
	if err != nil {
		return nil, err
	}
	if err := p.expectEOF(); err != nil {
		return nil, err
	}
	return &PropDecl{Span: start.Cover(name.span), Type: t, Name: name.text}, nil
}

type parser struct {
	lx    lexer
	tok   token
	prev  token
	input string
}

func newParser(text string, loc Location) *parser {
	p := &parser{lx: lexer{src: text, file: loc.File, base: loc.Offset}, input: text}
	p.tok = p.lx.next()
	return p
}

func (p *parser) advance() {
	p.prev = p.tok
	p.tok = p.lx.next()
}

// peek returns the token after the current one without consuming it.
func (p *parser) peek() token {
	saved := p.lx
	t := p.lx.next()
	p.lx = saved
	return t
}

func (p *parser) errorf(sp source.Span, format string, args ...any) error {
	return &SyntaxError{Span: sp, Input: p.input, Msg: fmt.Sprintf(format, args...)}
}

func (p *parser) expect(k kind) (token, error) {
	if p.tok.kind != k {
		return token{}, p.errorf(p.tok.span, "expected %s, found %s", k, p.describe())
	}
	t := p.tok
	p.advance()
	return t, nil
}

func (p *parser) expectEOF() error {
	if p.tok.kind != kEOF {
		return p.errorf(p.tok.span, "unexpected %s", p.describe())
	}
	return nil
}

func (p *parser) describe() string {
	if p.tok.kind == kEOF {
		return p.tok.kind.String()
	}
	return fmt.Sprintf("%q", p.tok.text)
}

func (p *parser) keyword(word string) bool {
	return p.tok.kind == kIdent && p.tok.text == word
}

func (p *parser) parseType() (*resolve.TypeExpr, error) {
	start := p.tok.span
	e := &resolve.TypeExpr{}
	if p.keyword("const") {
		e.Const = true
		p.advance()
	}
	if p.tok.kind == kColonColon {
		e.Absolute = true
		p.advance()
	}

	if p.tok.kind == kQuestion {
		e.Name = "?"
		p.advance()
	} else {
		name, err := p.expect(kIdent)
		if err != nil {
			return nil, err
		}
		parts := []string{name.text}
		for p.tok.kind == kColonColon {
			p.advance()
			id, err := p.expect(kIdent)
			if err != nil {
				return nil, err
			}
			parts = append(parts, id.text)
		}
		e.Scope, e.Name = parts[:len(parts)-1], parts[len(parts)-1]

		if p.tok.kind == kLt {
			p.advance()
			for {
				arg, err := p.parseType()
				if err != nil {
					return nil, err
				}
				e.Args = append(e.Args, arg)
				if p.tok.kind != kComma {
					break
				}
				p.advance()
			}
			if _, err := p.expect(kGt); err != nil {
				return nil, err
			}
		}
	}

	for p.tok.kind == kAt || p.tok.kind == kLBracket {
		s := resolve.Suffix{Kind: resolve.SuffixHandle}
		if p.tok.kind == kLBracket {
			p.advance()
			if p.tok.kind != kRBracket {
				return nil, p.errorf(p.tok.span, "expected ']' after '['")
			}
			s.Kind = resolve.SuffixArray
		}
		p.advance()
		if p.keyword("const") {
			s.Const = true
			p.advance()
		}
		e.Suffixes = append(e.Suffixes, s)
	}

	if p.tok.kind == kAmp {
		p.advance()
		e.Ref = types.RefInOut
		if p.tok.kind == kIdent {
			switch p.tok.text {
			case "in":
				e.Ref = types.RefIn
				p.advance()
			case "out":
				e.Ref = types.RefOut
				p.advance()
			case "inout":
				p.advance()
			}
		}
	}
	e.Span = start.Cover(p.prev.span)
	return e, nil
}

func (p *parser) parseParams(d *FuncDecl) error {
	if _, err := p.expect(kLParen); err != nil {
		return err
	}
	if p.tok.kind == kRParen {
		p.advance()
		return nil
	}
	if p.keyword("void") && p.peek().kind == kRParen {
		p.advance()
		p.advance()
		return nil
	}
	for {
		if d.Variadic {
			return p.errorf(p.tok.span, "'...' must end the parameter list")
		}
		t, err := p.parseType()
		if err != nil {
			return err
		}
		param := Param{Type: t}
		if p.tok.kind == kEllipsis {
			d.Variadic = true
			p.advance()
		}
		if p.tok.kind == kIdent {
			param.Name = p.tok.text
			p.advance()
		}
		if p.tok.kind == kAssign {
			p.advance()
			text, err := p.defaultText()
			if err != nil {
				return err
			}
			param.Default = text
		}
		d.Params = append(d.Params, param)
		if p.tok.kind != kComma {
			break
		}
		p.advance()
	}
	_, err := p.expect(kRParen)
	return err
}

// defaultText consumes a default-argument expression up to the next ','
// or ')' at nesting depth zero and returns its source text.
func (p *parser) defaultText() (string, error) {
	var b strings.Builder
	depth := 0
	for {
		switch p.tok.kind {
		case kEOF:
			return "", p.errorf(p.tok.span, "unterminated default argument")
		case kIllegal:
			return "", p.errorf(p.tok.span, "unterminated string")
		case kLParen:
			depth++
		case kRParen:
			if depth == 0 {
				return p.finishDefault(&b)
			}
			depth--
		case kComma:
			if depth == 0 {
				return p.finishDefault(&b)
			}
		}
		if b.Len() > 0 && p.tok.span.Start > p.prev.span.End {
			b.WriteByte(' ')
		}
		b.WriteString(p.tok.text)
		p.advance()
	}
}

func (p *parser) finishDefault(b *strings.Builder) (string, error) {
	if b.Len() == 0 {
		return "", p.errorf(p.tok.span, "missing default value after '='")
	}
	return b.String(), nil
}
