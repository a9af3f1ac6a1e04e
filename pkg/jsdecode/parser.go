package jsdecode

import (
	"fmt"
)

type node interface{}

type (
	literalNode struct{ v Value }
	identNode   struct{ name string }
	arrayNode   struct{ elems []node }
	unaryNode   struct {
		op string
		x  node
	}
	binaryNode struct {
		op   string
		l, r node
	}
	condNode   struct{ test, yes, no node }
	memberNode struct {
		obj  node
		name string
	}
	indexNode struct{ obj, idx node }
	callNode  struct {
		callee node
		args   []node
	}
	regexNode struct{ source, flags string }
	funcNode  struct{ fn *function }
)

type parser struct {
	toks []token
	pos  int
}

func (p *parser) peek() token {
	return p.toks[p.pos]
}

func (p *parser) peekAt(offset int) token {
	if p.pos+offset >= len(p.toks) {
		return p.toks[len(p.toks)-1]
	}
	return p.toks[p.pos+offset]
}

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) atEOF() bool {
	return p.peek().kind == tokEOF
}

func (p *parser) accept(punct string) bool {
	if p.peek().punct(punct) {
		p.pos++
		return true
	}
	return false
}

func (p *parser) expect(punct string) error {
	if !p.accept(punct) {
		return p.errorf("expected %q", punct)
	}
	return nil
}

func (p *parser) errorf(format string, args ...interface{}) error {
	t := p.peek()
	where := "end of input"
	if t.kind != tokEOF {
		where = fmt.Sprintf("%q at offset %d", t.text, t.pos)
	}
	return fmt.Errorf("%s near %s", fmt.Sprintf(format, args...), where)
}

// parseExpression parses a single expression without the comma operator
func (p *parser) parseExpression() (node, error) {
	return p.parseConditional()
}

func (p *parser) parseConditional() (node, error) {
	test, err := p.parseBinary(0)
	if err != nil {
		return nil, err
	}
	if !p.accept("?") {
		return test, nil
	}

	yes, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	if err := p.expect(":"); err != nil {
		return nil, err
	}
	no, err := p.parseConditional()
	if err != nil {
		return nil, err
	}
	return &condNode{test: test, yes: yes, no: no}, nil
}

// binary operator precedence, loosest first
var binaryLevels = [][]string{
	{"||", "??"},
	{"&&"},
	{"==", "!=", "===", "!=="},
	{"<", ">", "<=", ">="},
	{"+", "-"},
	{"*", "/", "%"},
}

func (p *parser) parseBinary(level int) (node, error) {
	if level == len(binaryLevels) {
		return p.parseUnary()
	}

	left, err := p.parseBinary(level + 1)
	if err != nil {
		return nil, err
	}

	for {
		t := p.peek()
		op := ""
		if t.kind == tokPunct {
			for _, candidate := range binaryLevels[level] {
				if t.text == candidate {
					op = candidate
					break
				}
			}
		}
		if op == "" {
			return left, nil
		}
		p.pos++

		right, err := p.parseBinary(level + 1)
		if err != nil {
			return nil, err
		}
		left = &binaryNode{op: op, l: left, r: right}
	}
}

func (p *parser) parseUnary() (node, error) {
	t := p.peek()
	if t.punct("-") || t.punct("+") || t.punct("!") || t.ident("typeof") {
		p.pos++
		x, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &unaryNode{op: t.text, x: x}, nil
	}
	return p.parsePostfix()
}

func (p *parser) parsePostfix() (node, error) {
	x, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.accept("."):
			name := p.next()
			if name.kind != tokIdent {
				return nil, p.errorf("expected property name")
			}
			x = &memberNode{obj: x, name: name.text}
		case p.accept("["):
			idx, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expect("]"); err != nil {
				return nil, err
			}
			x = &indexNode{obj: x, idx: idx}
		case p.accept("("):
			args, err := p.parseList(")")
			if err != nil {
				return nil, err
			}
			x = &callNode{callee: x, args: args}
		default:
			return x, nil
		}
	}
}

// parseList parses comma separated expressions up to the closing punctuator
func (p *parser) parseList(closer string) ([]node, error) {
	var items []node
	for !p.accept(closer) {
		if len(items) > 0 {
			if err := p.expect(","); err != nil {
				return nil, err
			}
			if p.accept(closer) {
				break
			}
		}
		item, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func (p *parser) parsePrimary() (node, error) {
	t := p.peek()

	switch t.kind {
	case tokNumber:
		p.pos++
		return &literalNode{v: Number(t.num)}, nil
	case tokString:
		p.pos++
		return &literalNode{v: String(t.str)}, nil
	case tokRegex:
		p.pos++
		return &regexNode{source: t.text, flags: t.flags}, nil
	case tokIdent:
		switch t.text {
		case "true":
			p.pos++
			return &literalNode{v: Bool(true)}, nil
		case "false":
			p.pos++
			return &literalNode{v: Bool(false)}, nil
		case "null":
			p.pos++
			return &literalNode{v: null}, nil
		case "undefined":
			p.pos++
			return &literalNode{v: undefined}, nil
		case "function":
			fn, err := p.parseFunction(false)
			if err != nil {
				return nil, err
			}
			return &funcNode{fn: fn}, nil
		case "new", "this", "class", "delete", "void", "await", "yield":
			return nil, p.errorf("unsupported keyword %q", t.text)
		}
		p.pos++
		return &identNode{name: t.text}, nil
	case tokPunct:
		switch t.text {
		case "(":
			p.pos++
			x, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			if err := p.expect(")"); err != nil {
				return nil, err
			}
			return x, nil
		case "[":
			p.pos++
			elems, err := p.parseList("]")
			if err != nil {
				return nil, err
			}
			return &arrayNode{elems: elems}, nil
		}
	}

	return nil, p.errorf("unexpected token")
}

// parseFunction parses `function [name](params) { return expr; }`. Bodies
// holding anything but a single return are rejected.
func (p *parser) parseFunction(requireName bool) (*function, error) {
	if !p.peek().ident("function") {
		return nil, p.errorf("expected function")
	}
	p.pos++

	fn := &function{}
	if p.peek().kind == tokIdent {
		fn.name = p.next().text
	} else if requireName {
		return nil, p.errorf("expected function name")
	}

	if err := p.expect("("); err != nil {
		return nil, err
	}
	for !p.accept(")") {
		if len(fn.params) > 0 {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
		param := p.next()
		if param.kind != tokIdent {
			return nil, p.errorf("expected parameter name")
		}
		fn.params = append(fn.params, param.text)
	}

	if err := p.expect("{"); err != nil {
		return nil, err
	}
	if !p.peek().ident("return") {
		return nil, p.errorf("function body is not a single return")
	}
	p.pos++

	body, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	p.accept(";")
	if err := p.expect("}"); err != nil {
		return nil, err
	}

	fn.body = body
	return fn, nil
}

// skipBalanced advances past a bracketed group starting at the current
// opener
func (p *parser) skipBalanced() {
	depth := 0
	for !p.atEOF() {
		t := p.next()
		if t.kind != tokPunct {
			continue
		}
		switch t.text {
		case "(", "[", "{":
			depth++
		case ")", "]", "}":
			depth--
			if depth <= 0 {
				return
			}
		}
	}
}
