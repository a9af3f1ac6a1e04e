package jsdecode

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokNumber
	tokString
	tokRegex
	tokPunct
)

type token struct {
	kind  tokenKind
	text  string // identifier, punctuator, number or regex source
	str   string // decoded string literal
	num   float64
	flags string // regex flags
	nl    bool   // a line break precedes the token
	pos   int
}

func (t token) is(kind tokenKind, text string) bool {
	return t.kind == kind && t.text == text
}

func (t token) punct(text string) bool { return t.is(tokPunct, text) }
func (t token) ident(text string) bool { return t.is(tokIdent, text) }

// punctuators, longest first
var punctuators = []string{
	">>>=", "===", "!==", "**=", "<<=", ">>=", ">>>", "...",
	"=>", "==", "!=", "<=", ">=", "&&", "||", "??", "?.", "++", "--",
	"+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "**", "<<", ">>",
	"{", "}", "(", ")", "[", "]", ";", ",", ".", "<", ">", "+", "-",
	"*", "/", "%", "&", "|", "^", "!", "~", "?", ":", "=", "@", "#",
}

// keywords after which a slash starts a regex literal
var regexAfterKeyword = map[string]bool{
	"return": true, "typeof": true, "case": true, "do": true, "else": true,
	"in": true, "instanceof": true, "new": true, "delete": true, "void": true,
	"throw": true,
}

type lexer struct {
	src    string
	pos    int
	nl     bool
	tokens []token
}

// tokenize splits src into tokens. Unterminated strings and comments are
// errors; anything else unrecognised becomes a one-byte punctuator so that
// the statement walker can skip it.
func tokenize(src string) ([]token, error) {
	l := &lexer{src: src}
	for {
		l.skipSpaceAndComments()
		if l.pos >= len(l.src) {
			l.tokens = append(l.tokens, token{kind: tokEOF, nl: l.nl, pos: l.pos})
			return l.tokens, nil
		}
		if err := l.scan(); err != nil {
			return nil, err
		}
	}
}

func (l *lexer) emit(t token) {
	t.nl = l.nl
	l.nl = false
	l.tokens = append(l.tokens, t)
}

func (l *lexer) skipSpaceAndComments() {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == '\n' || c == '\r':
			l.nl = true
			l.pos++
		case c == ' ' || c == '\t' || c == '\f' || c == '\v':
			l.pos++
		case strings.HasPrefix(l.src[l.pos:], "\u00a0"), strings.HasPrefix(l.src[l.pos:], "\ufeff"):
			_, size := utf8.DecodeRuneInString(l.src[l.pos:])
			l.pos += size
		case strings.HasPrefix(l.src[l.pos:], "\u2028"), strings.HasPrefix(l.src[l.pos:], "\u2029"):
			l.nl = true
			l.pos += 3
		case strings.HasPrefix(l.src[l.pos:], "//"), strings.HasPrefix(l.src[l.pos:], "<!--"):
			end := strings.IndexAny(l.src[l.pos:], "\r\n")
			if end < 0 {
				l.pos = len(l.src)
			} else {
				l.pos += end
			}
		case strings.HasPrefix(l.src[l.pos:], "/*"):
			end := strings.Index(l.src[l.pos+2:], "*/")
			if end < 0 {
				l.pos = len(l.src)
				return
			}
			if strings.ContainsAny(l.src[l.pos:l.pos+2+end], "\r\n") {
				l.nl = true
			}
			l.pos += end + 4
		default:
			return
		}
	}
}

func (l *lexer) scan() error {
	start := l.pos
	c := l.src[l.pos]

	switch {
	case isIdentStart(c):
		for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
			l.pos++
		}
		l.emit(token{kind: tokIdent, text: l.src[start:l.pos], pos: start})
		return nil

	case isDigit(c) || (c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])):
		return l.scanNumber()

	case c == '\'' || c == '"' || c == '`':
		s, err := l.scanString(c)
		if err != nil {
			return err
		}
		l.emit(token{kind: tokString, str: s, text: l.src[start:l.pos], pos: start})
		return nil

	case c == '/' && l.regexAllowed():
		if l.scanRegex() {
			return nil
		}
	}

	for _, p := range punctuators {
		if strings.HasPrefix(l.src[l.pos:], p) {
			l.pos += len(p)
			l.emit(token{kind: tokPunct, text: p, pos: start})
			return nil
		}
	}

	// stray byte: keep it so the walker can skip past it
	_, size := utf8.DecodeRuneInString(l.src[l.pos:])
	l.pos += size
	l.emit(token{kind: tokPunct, text: l.src[start:l.pos], pos: start})
	return nil
}

func (l *lexer) scanNumber() error {
	start := l.pos
	src := l.src

	if src[l.pos] == '0' && l.pos+1 < len(src) {
		base := 0
		switch src[l.pos+1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			l.pos += 2
			for l.pos < len(src) && (isHexDigit(src[l.pos]) || src[l.pos] == '_') {
				l.pos++
			}
			digits := strings.ReplaceAll(src[start+2:l.pos], "_", "")
			n, err := strconv.ParseUint(digits, base, 64)
			if err != nil {
				return fmt.Errorf("invalid number %q at %d", src[start:l.pos], start)
			}
			l.emit(token{kind: tokNumber, text: src[start:l.pos], num: float64(n), pos: start})
			return nil
		}
	}

	for l.pos < len(src) && (isDigit(src[l.pos]) || src[l.pos] == '_') {
		l.pos++
	}
	if l.pos < len(src) && src[l.pos] == '.' {
		l.pos++
		for l.pos < len(src) && isDigit(src[l.pos]) {
			l.pos++
		}
	}
	if l.pos < len(src) && (src[l.pos] == 'e' || src[l.pos] == 'E') {
		save := l.pos
		l.pos++
		if l.pos < len(src) && (src[l.pos] == '+' || src[l.pos] == '-') {
			l.pos++
		}
		if l.pos < len(src) && isDigit(src[l.pos]) {
			for l.pos < len(src) && isDigit(src[l.pos]) {
				l.pos++
			}
		} else {
			l.pos = save
		}
	}

	text := strings.ReplaceAll(src[start:l.pos], "_", "")
	n, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return fmt.Errorf("invalid number %q at %d", src[start:l.pos], start)
	}
	l.emit(token{kind: tokNumber, text: src[start:l.pos], num: n, pos: start})
	return nil
}

// scanString reads a quoted literal and decodes its escapes
func (l *lexer) scanString(quote byte) (string, error) {
	start := l.pos
	l.pos++
	var b strings.Builder

	for l.pos < len(l.src) {
		c := l.src[l.pos]
		switch {
		case c == quote:
			l.pos++
			return b.String(), nil
		case c == '\\':
			if err := l.scanEscape(&b); err != nil {
				return "", err
			}
		case (c == '\n' || c == '\r') && quote != '`':
			return "", fmt.Errorf("unterminated string at %d", start)
		default:
			b.WriteByte(c)
			l.pos++
		}
	}

	return "", fmt.Errorf("unterminated string at %d", start)
}

func (l *lexer) scanEscape(b *strings.Builder) error {
	l.pos++ // backslash
	if l.pos >= len(l.src) {
		return fmt.Errorf("dangling escape at %d", l.pos)
	}

	c := l.src[l.pos]
	l.pos++
	switch c {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '0':
		b.WriteByte(0)
	case '\r':
		if l.pos < len(l.src) && l.src[l.pos] == '\n' {
			l.pos++
		}
	case '\n':
		// line continuation
	case 'x':
		if l.pos+2 > len(l.src) {
			return fmt.Errorf("short \\x escape at %d", l.pos)
		}
		n, err := strconv.ParseUint(l.src[l.pos:l.pos+2], 16, 8)
		if err != nil {
			return fmt.Errorf("invalid \\x escape at %d", l.pos)
		}
		b.WriteRune(rune(n))
		l.pos += 2
	case 'u':
		r, err := l.scanUnicodeEscape()
		if err != nil {
			return err
		}
		if utf16.IsSurrogate(r) && strings.HasPrefix(l.src[l.pos:], "\\u") {
			save := l.pos
			l.pos += 2
			if r2, err := l.scanUnicodeEscape(); err == nil {
				if combined := utf16.DecodeRune(r, r2); combined != utf8.RuneError {
					b.WriteRune(combined)
					return nil
				}
			}
			l.pos = save
		}
		b.WriteRune(r)
	default:
		b.WriteByte(c)
	}
	return nil
}

func (l *lexer) scanUnicodeEscape() (rune, error) {
	if strings.HasPrefix(l.src[l.pos:], "{") {
		end := strings.IndexByte(l.src[l.pos:], '}')
		if end < 0 {
			return 0, fmt.Errorf("unterminated \\u{ escape at %d", l.pos)
		}
		n, err := strconv.ParseUint(l.src[l.pos+1:l.pos+end], 16, 32)
		if err != nil {
			return 0, fmt.Errorf("invalid \\u{ escape at %d", l.pos)
		}
		l.pos += end + 1
		return rune(n), nil
	}

	if l.pos+4 > len(l.src) {
		return 0, fmt.Errorf("short \\u escape at %d", l.pos)
	}
	n, err := strconv.ParseUint(l.src[l.pos:l.pos+4], 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid \\u escape at %d", l.pos)
	}
	l.pos += 4
	return rune(n), nil
}

// regexAllowed decides whether a slash opens a regex literal from the
// previous token
func (l *lexer) regexAllowed() bool {
	if len(l.tokens) == 0 {
		return true
	}
	prev := l.tokens[len(l.tokens)-1]
	switch prev.kind {
	case tokNumber, tokString, tokRegex:
		return false
	case tokIdent:
		return regexAfterKeyword[prev.text]
	case tokPunct:
		return prev.text != ")" && prev.text != "]" && prev.text != "}"
	}
	return true
}

// scanRegex reads /source/flags. It returns false, consuming nothing, when
// the literal is not closed on the same line.
func (l *lexer) scanRegex() bool {
	start := l.pos
	i := l.pos + 1
	inClass := false

	for i < len(l.src) {
		c := l.src[i]
		switch {
		case c == '\n' || c == '\r':
			return false
		case c == '\\':
			i += 2
			continue
		case c == '[':
			inClass = true
		case c == ']':
			inClass = false
		case c == '/' && !inClass:
			source := l.src[start+1 : i]
			i++
			flagStart := i
			for i < len(l.src) && isIdentPart(l.src[i]) {
				i++
			}
			l.pos = i
			l.emit(token{kind: tokRegex, text: source, flags: l.src[flagStart:i], pos: start})
			return true
		}
		i++
	}
	return false
}

func isDigit(c byte) bool    { return c >= '0' && c <= '9' }
func isHexDigit(c byte) bool { return isDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F') }

func isIdentStart(c byte) bool {
	return c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c >= 0x80
}

func isIdentPart(c byte) bool {
	return isIdentStart(c) || isDigit(c)
}
