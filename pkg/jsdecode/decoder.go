package jsdecode

import (
	"fmt"
	"regexp"
	"strings"

	errs "animedl/pkg/errors"
)

// Decoder recognises one known payload shape and turns it back into the
// script text it hides. New shapes get a new Decoder, never a general eval.
type Decoder interface {
	// Name identifies the shape and its revision, e.g. "packer/v1"
	Name() string
	// Detect reports whether script has this shape
	Detect(script string) bool
	// Decode returns the hidden text. scope supplies variables defined by
	// earlier scripts.
	Decode(script string, scope *Scope) (string, error)
}

var registry = []Decoder{
	PackerV1{},
	EvalStringV1{},
}

// Decoders returns the known decoders in the order they are tried
func Decoders() []Decoder {
	return append([]Decoder(nil), registry...)
}

// Decode runs the first decoder that recognises script. An unknown shape is
// a resolution error naming the start of the payload.
func Decode(script string, scope *Scope) (string, string, error) {
	script = strings.TrimSpace(script)
	if scope == nil {
		scope = NewScope()
	}

	for _, d := range registry {
		if !d.Detect(script) {
			continue
		}
		out, err := runDecoder(d, script, scope)
		if err != nil {
			return "", d.Name(), errs.NewResolutionError(fmt.Sprintf("%s payload could not be decoded", d.Name()), err)
		}
		return out, d.Name(), nil
	}

	return "", "", errs.NewResolutionError(fmt.Sprintf("unsupported payload shape %q", preview(script)), nil)
}

func runDecoder(d Decoder, script string, scope *Scope) (out string, err error) {
	defer recoverInto(&err, d.Name())
	return d.Decode(script, scope)
}

func preview(s string) string {
	const max = 40
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

var evalPrefix = regexp.MustCompile(`^eval\s*\(`)

// EvalStringV1 handles eval(<string expression>) where the expression is
// built from literals, concatenation and decoding helpers such as atob,
// unescape or String.fromCharCode
type EvalStringV1 struct{}

func (EvalStringV1) Name() string { return "evalstring/v1" }

func (EvalStringV1) Detect(script string) bool {
	return evalPrefix.MatchString(script) && !packerHeader.MatchString(script)
}

func (EvalStringV1) Decode(script string, scope *Scope) (string, error) {
	toks, err := tokenize(script)
	if err != nil {
		return "", err
	}

	p := &parser{toks: toks}
	p.next() // eval
	if err := p.expect("("); err != nil {
		return "", err
	}
	n, err := p.parseExpression()
	if err != nil {
		return "", err
	}
	if err := p.expect(")"); err != nil {
		return "", err
	}
	p.accept(";")
	if !p.atEOF() {
		return "", p.errorf("trailing input after eval")
	}

	v, err := (&evaluator{}).eval(n, scope.globals)
	if err != nil {
		return "", err
	}
	if v.kind != KindString {
		return "", fmt.Errorf("eval argument is %s, want string", v.kind)
	}
	return v.s, nil
}
