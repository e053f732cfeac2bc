package typeparse

import (
	"fmt"

	"fortio.org/safecast"

	"anvil/internal/source"
)

type kind uint8

const (
	kEOF kind = iota
	kIdent
	kNumber
	kString
	kColonColon
	kLt
	kGt
	kComma
	kAt
	kAmp
	kLBracket
	kRBracket
	kLParen
	kRParen
	kQuestion
	kAssign
	kEllipsis
	kOther
	kIllegal
)

var kindText = [...]string{
	kEOF: "end of input", kIdent: "identifier", kNumber: "number", kString: "string",
	kColonColon: "'::'", kLt: "'<'", kGt: "'>'", kComma: "','", kAt: "'@'", kAmp: "'&'",
	kLBracket: "'['", kRBracket: "']'", kLParen: "'('", kRParen: "')'", kQuestion: "'?'",
	kAssign: "'='", kEllipsis: "'...'", kOther: "symbol", kIllegal: "illegal token",
}

func (k kind) String() string {
	if int(k) < len(kindText) {
		return kindText[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

type token struct {
	kind kind
	text string
	span source.Span
}

// lexer splits declaration text. Offsets are shifted by base so spans
// point into the enclosing file.
type lexer struct {
	src  string
	off  int
	file source.FileID
	base uint32
}

func (lx *lexer) span(start, end int) source.Span {
	s, err1 := safecast.Conv[uint32](start)
	e, err2 := safecast.Conv[uint32](end)
	if err1 != nil || err2 != nil {
		return source.Span{File: lx.file, Start: lx.base, End: lx.base}
	}
	return source.Span{File: lx.file, Start: lx.base + s, End: lx.base + e}
}

func (lx *lexer) peekByte(n int) byte {
	if lx.off+n >= len(lx.src) {
		return 0
	}
	return lx.src[lx.off+n]
}

func (lx *lexer) next() token {
	for lx.off < len(lx.src) && isSpace(lx.src[lx.off]) {
		lx.off++
	}
	start := lx.off
	if start >= len(lx.src) {
		return token{kind: kEOF, span: lx.span(start, start)}
	}
	ch := lx.src[start]
	k := kOther
	switch {
	case isIdentStart(ch):
		for lx.off < len(lx.src) && isIdentContinue(lx.src[lx.off]) {
			lx.off++
		}
		return lx.tok(kIdent, start)
	case isDigit(ch) || (ch == '.' && isDigit(lx.peekByte(1))):
		for lx.off < len(lx.src) && (isIdentContinue(lx.src[lx.off]) || lx.src[lx.off] == '.') {
			lx.off++
		}
		return lx.tok(kNumber, start)
	case ch == '"':
		return lx.scanString(start)
	case ch == ':' && lx.peekByte(1) == ':':
		lx.off += 2
		return lx.tok(kColonColon, start)
	case ch == '.' && lx.peekByte(1) == '.' && lx.peekByte(2) == '.':
		lx.off += 3
		return lx.tok(kEllipsis, start)
	case ch == '<':
		k = kLt
	case ch == '>':
		k = kGt
	case ch == ',':
		k = kComma
	case ch == '@':
		k = kAt
	case ch == '&':
		k = kAmp
	case ch == '[':
		k = kLBracket
	case ch == ']':
		k = kRBracket
	case ch == '(':
		k = kLParen
	case ch == ')':
		k = kRParen
	case ch == '?':
		k = kQuestion
	case ch == '=':
		k = kAssign
	}
	lx.off++
	return lx.tok(k, start)
}

func (lx *lexer) tok(k kind, start int) token {
	return token{kind: k, text: lx.src[start:lx.off], span: lx.span(start, lx.off)}
}

func (lx *lexer) scanString(start int) token {
	lx.off++
	for lx.off < len(lx.src) {
		switch lx.src[lx.off] {
		case '\\':
			lx.off += 2
			continue
		case '"':
			lx.off++
			return lx.tok(kString, start)
		}
		lx.off++
	}
	lx.off = len(lx.src)
	return lx.tok(kIllegal, start)
}

func isSpace(b byte) bool { return b == ' ' || b == '\t' || b == '\n' || b == '\r' }

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func isIdentStart(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || b >= 0x80
}

func isIdentContinue(b byte) bool { return isIdentStart(b) || isDigit(b) }
