package jsdecode

import (
	"fmt"
	"regexp"
	"strings"
)

// packer alphabet: 0-9, a-z, then A-Z for digits 36..61
const packerAlphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

var (
	packerHeader = regexp.MustCompile(`^eval\s*\(\s*function\s*\(\s*p\s*,\s*a\s*,\s*c\s*,\s*k\s*,\s*e\s*,\s*[dr]\s*\)`)
	packerWord   = regexp.MustCompile(`\b\w+\b`)
)

// PackerV1 handles the classic "p,a,c,k,e,d" packer:
//
//	eval(function(p,a,c,k,e,d){...}('payload',radix,count,'w0|w1|...'.split('|'),0,{}))
//
// Every word of the payload is a base-radix index into the symbol table.
type PackerV1 struct{}

func (PackerV1) Name() string { return "packer/v1" }

func (PackerV1) Detect(script string) bool {
	return packerHeader.MatchString(script)
}

func (PackerV1) Decode(script string, _ *Scope) (string, error) {
	args, err := packerArgs(script)
	if err != nil {
		return "", err
	}
	return Unpack(args.payload, args.radix, args.count, args.symbols)
}

type packed struct {
	payload string
	radix   int
	count   int
	symbols []string
}

// packerArgs locates the unpacker's body and evaluates the first four
// arguments it is invoked with
func packerArgs(script string) (*packed, error) {
	toks, err := tokenize(script)
	if err != nil {
		return nil, err
	}

	p := &parser{toks: toks}
	p.next() // eval
	if err := p.expect("("); err != nil {
		return nil, err
	}
	if !p.peek().ident("function") {
		return nil, p.errorf("expected unpacker function")
	}
	p.next()
	p.skipBalanced() // parameters
	if !p.peek().punct("{") {
		return nil, p.errorf("expected unpacker body")
	}
	p.skipBalanced() // body
	if err := p.expect("("); err != nil {
		return nil, err
	}

	ev := &evaluator{}
	root := newEnv(nil)
	values := make([]Value, 0, 4)
	for i := 0; i < 4; i++ {
		if i > 0 {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
		n, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		v, err := ev.eval(n, root)
		if err != nil {
			return nil, fmt.Errorf("packer argument %d: %w", i+1, err)
		}
		values = append(values, v)
	}

	if values[0].kind != KindString {
		return nil, fmt.Errorf("packer payload is %s, want string", values[0].kind)
	}
	if values[3].kind != KindArray {
		return nil, fmt.Errorf("packer symbol table is %s, want array", values[3].kind)
	}

	symbols := make([]string, len(values[3].arr))
	for i, v := range values[3].arr {
		symbols[i] = v.String()
	}

	return &packed{
		payload: values[0].s,
		radix:   int(values[1].Number()),
		count:   int(values[2].Number()),
		symbols: symbols,
	}, nil
}

// Unpack substitutes every word of payload that encodes an index below
// count with the matching symbol. Empty symbols leave the word as is.
func Unpack(payload string, radix, count int, symbols []string) (string, error) {
	if radix < 2 || radix > len(packerAlphabet) {
		return "", fmt.Errorf("unsupported packer radix %d", radix)
	}
	if count > len(symbols) {
		count = len(symbols)
	}

	return packerWord.ReplaceAllStringFunc(payload, func(word string) string {
		idx, ok := decodeBase(word, radix)
		if !ok || idx >= count || symbols[idx] == "" {
			return word
		}
		return symbols[idx]
	}), nil
}

// decodeBase parses word as a canonical base-radix numeral in the packer
// alphabet
func decodeBase(word string, radix int) (int, bool) {
	if word == "" || len(word) > 6 {
		return 0, false
	}
	if len(word) > 1 && word[0] == '0' {
		return 0, false
	}

	n := 0
	for i := 0; i < len(word); i++ {
		d := strings.IndexByte(packerAlphabet, word[i])
		if d < 0 || d >= radix {
			return 0, false
		}
		n = n*radix + d
	}
	return n, true
}
