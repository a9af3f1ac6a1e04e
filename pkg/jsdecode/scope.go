package jsdecode

import (
	"fmt"
)

// statement keywords that begin a new statement after a line break
var statementKeywords = map[string]bool{
	"var": true, "let": true, "const": true, "function": true, "if": true,
	"for": true, "while": true, "do": true, "return": true, "switch": true,
	"try": true, "throw": true,
}

var blockContinuations = map[string]bool{
	"else": true, "catch": true, "finally": true, "while": true,
}

// Scope holds the variables and pure functions collected from the scripts
// of one resolution. It never executes loops, I/O or host calls: statements
// it cannot evaluate as plain data are skipped.
type Scope struct {
	globals *env
	skipped int
}

// NewScope returns an empty scope
func NewScope() *Scope {
	return &Scope{globals: newEnv(nil)}
}

// Set defines a variable
func (s *Scope) Set(name string, v Value) {
	s.globals.vars[name] = v
}

// Get returns a variable and whether it is defined
func (s *Scope) Get(name string) (Value, bool) {
	v, ok := s.globals.vars[name]
	return v, ok
}

// Skipped counts statements Run could not evaluate
func (s *Scope) Skipped() int {
	return s.skipped
}

// Run walks the top-level statements of script. Variable declarations,
// simple assignments and single-return function declarations are
// evaluated; everything else is skipped. Only a script that cannot be
// tokenized is an error.
func (s *Scope) Run(script string) (err error) {
	defer recoverInto(&err, "run script")

	toks, err := tokenize(script)
	if err != nil {
		return fmt.Errorf("tokenize script: %w", err)
	}

	p := &parser{toks: toks}
	for !p.atEOF() {
		start := p.pos
		if err := s.safeStatement(p); err != nil {
			s.skipped++
			p.pos = start
			skipStatement(p)
		}
		if p.pos == start {
			p.next()
		}
	}
	return nil
}

// Eval evaluates a single expression against the scope
func (s *Scope) Eval(expr string) (v Value, err error) {
	defer recoverInto(&err, "eval expression")

	toks, err := tokenize(expr)
	if err != nil {
		return undefined, fmt.Errorf("tokenize expression: %w", err)
	}

	p := &parser{toks: toks}
	n, err := p.parseExpression()
	if err != nil {
		return undefined, err
	}
	p.accept(";")
	if !p.atEOF() {
		return undefined, p.errorf("trailing input")
	}

	ev := &evaluator{}
	return ev.eval(n, s.globals)
}

// EvalString evaluates expr and requires a string result
func (s *Scope) EvalString(expr string) (string, error) {
	v, err := s.Eval(expr)
	if err != nil {
		return "", err
	}
	if v.kind != KindString {
		return "", fmt.Errorf("expression produced %s, want string", v.kind)
	}
	return v.s, nil
}

// EvalTemplate evaluates text as the body of a single-quoted literal, so
// fragments such as `'+base+'/v.mp4` splice scope variables in
func (s *Scope) EvalTemplate(text string) (string, error) {
	return s.EvalString("'" + text + "'")
}

// safeStatement evaluates one statement; a runtime fault only skips it
func (s *Scope) safeStatement(p *parser) (err error) {
	defer recoverInto(&err, "statement")
	return s.statement(p)
}

// recoverInto turns a panic inside the evaluator into an error
func recoverInto(err *error, op string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s: evaluator fault: %v", op, r)
	}
}

func (s *Scope) statement(p *parser) error {
	t := p.peek()

	switch {
	case t.punct(";"):
		p.next()
		return nil

	case t.ident("var") || t.ident("let") || t.ident("const"):
		p.next()
		return s.declarations(p)

	case t.ident("function") && p.peekAt(1).kind == tokIdent:
		start := p.pos
		fn, err := p.parseFunction(true)
		if err != nil {
			// not a pure function: step over the whole declaration
			p.pos = start
			p.next() // function
			p.next() // name
			p.skipBalanced()
			p.skipBalanced()
			s.skipped++
			return nil
		}
		s.globals.vars[fn.name] = Value{kind: KindFunc, fn: fn}
		return nil

	case t.kind == tokIdent && !statementKeywords[t.text] && isAssignOp(p.peekAt(1)):
		name := p.next().text
		op := p.next().text
		v, err := s.evalNext(p)
		if err != nil {
			return err
		}
		if op == "+=" {
			cur, ok := s.globals.lookup(name)
			if !ok {
				return fmt.Errorf("%w: %s", ErrUndefined, name)
			}
			v, err = (&evaluator{}).evalBinary(&binaryNode{op: "+", l: &literalNode{v: cur}, r: &literalNode{v: v}}, s.globals)
			if err != nil {
				return err
			}
		}
		s.globals.vars[name] = v
		return terminate(p)
	}

	return p.errorf("unsupported statement")
}

func (s *Scope) declarations(p *parser) error {
	for {
		name := p.next()
		if name.kind != tokIdent {
			return p.errorf("expected variable name")
		}

		v := undefined
		if p.accept("=") {
			var err error
			if v, err = s.evalNext(p); err != nil {
				return err
			}
		} else if existing, ok := s.globals.vars[name.text]; ok {
			v = existing
		}
		s.globals.vars[name.text] = v

		if !p.accept(",") {
			return terminate(p)
		}
	}
}

func (s *Scope) evalNext(p *parser) (Value, error) {
	n, err := p.parseExpression()
	if err != nil {
		return undefined, err
	}
	return (&evaluator{}).eval(n, s.globals)
}

func isAssignOp(t token) bool {
	return t.punct("=") || t.punct("+=")
}

// terminate accepts the end of a statement: a semicolon, a closing brace,
// end of input or a line break
func terminate(p *parser) error {
	t := p.peek()
	switch {
	case t.punct(";"):
		p.next()
		return nil
	case t.kind == tokEOF, t.punct("}"), t.nl:
		return nil
	}
	return p.errorf("expected end of statement")
}

// skipStatement advances past one statement the walker does not evaluate
func skipStatement(p *parser) {
	depth := 0
	for !p.atEOF() {
		t := p.next()

		if t.kind == tokPunct {
			switch t.text {
			case "(", "[", "{":
				depth++
			case ")", "]", "}":
				depth--
				if depth < 0 {
					return
				}
				if depth == 0 && t.text == "}" && (startsStatement(p) || startsLine(p)) {
					return
				}
			case ";":
				if depth == 0 {
					return
				}
			}
		}

		if depth == 0 && p.peek().nl && endsExpression(t) && startsStatement(p) {
			return
		}
	}
}

func startsStatement(p *parser) bool {
	t := p.peek()
	if t.kind != tokIdent {
		return false
	}
	if statementKeywords[t.text] {
		return true
	}
	return isAssignOp(p.peekAt(1))
}

// startsLine reports a new line that does not continue a block statement
func startsLine(p *parser) bool {
	t := p.peek()
	return t.nl && t.kind == tokIdent && !blockContinuations[t.text]
}

func endsExpression(t token) bool {
	switch t.kind {
	case tokIdent, tokNumber, tokString, tokRegex:
		return true
	case tokPunct:
		return t.text == ")" || t.text == "]" || t.text == "}"
	}
	return false
}
