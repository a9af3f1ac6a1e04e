package jsdecode

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strings"
)

const (
	maxCallDepth  = 64
	maxStringSize = 16 << 20
)

// ErrUndefined is wrapped when an expression reads a name nothing defined
var ErrUndefined = errors.New("undefined identifier")

type env struct {
	vars   map[string]Value
	parent *env
}

func newEnv(parent *env) *env {
	return &env{vars: make(map[string]Value), parent: parent}
}

func (e *env) lookup(name string) (Value, bool) {
	for cur := e; cur != nil; cur = cur.parent {
		if v, ok := cur.vars[name]; ok {
			return v, true
		}
	}
	return undefined, false
}

type evaluator struct {
	depth int
}

func (ev *evaluator) eval(n node, e *env) (Value, error) {
	switch n := n.(type) {
	case *literalNode:
		return n.v, nil

	case *identNode:
		if v, ok := e.lookup(n.name); ok {
			return v, nil
		}
		if _, ok := globalFuncs[n.name]; ok {
			return Value{kind: KindFunc, fn: &function{name: n.name}}, nil
		}
		return undefined, fmt.Errorf("%w: %s", ErrUndefined, n.name)

	case *arrayNode:
		items := make([]Value, 0, len(n.elems))
		for _, elem := range n.elems {
			v, err := ev.eval(elem, e)
			if err != nil {
				return undefined, err
			}
			items = append(items, v)
		}
		return Array(items), nil

	case *regexNode:
		return compileRegex(n.source, n.flags)

	case *funcNode:
		return Value{kind: KindFunc, fn: n.fn}, nil

	case *unaryNode:
		x, err := ev.eval(n.x, e)
		if err != nil {
			return undefined, err
		}
		switch n.op {
		case "-":
			return Number(-x.Number()), nil
		case "+":
			return Number(x.Number()), nil
		case "!":
			return Bool(!x.Truthy()), nil
		case "typeof":
			return String(x.kind.String()), nil
		}
		return undefined, fmt.Errorf("unsupported unary operator %q", n.op)

	case *binaryNode:
		return ev.evalBinary(n, e)

	case *condNode:
		test, err := ev.eval(n.test, e)
		if err != nil {
			return undefined, err
		}
		if test.Truthy() {
			return ev.eval(n.yes, e)
		}
		return ev.eval(n.no, e)

	case *memberNode:
		obj, err := ev.eval(n.obj, e)
		if err != nil {
			return undefined, err
		}
		return property(obj, n.name)

	case *indexNode:
		obj, err := ev.eval(n.obj, e)
		if err != nil {
			return undefined, err
		}
		idx, err := ev.eval(n.idx, e)
		if err != nil {
			return undefined, err
		}
		return index(obj, idx)

	case *callNode:
		return ev.evalCall(n, e)
	}

	return undefined, fmt.Errorf("unsupported expression %T", n)
}

func (ev *evaluator) evalBinary(n *binaryNode, e *env) (Value, error) {
	l, err := ev.eval(n.l, e)
	if err != nil {
		return undefined, err
	}

	// short-circuit operators evaluate the right side lazily
	switch n.op {
	case "||":
		if l.Truthy() {
			return l, nil
		}
		return ev.eval(n.r, e)
	case "&&":
		if !l.Truthy() {
			return l, nil
		}
		return ev.eval(n.r, e)
	case "??":
		if l.kind != KindUndefined && l.kind != KindNull {
			return l, nil
		}
		return ev.eval(n.r, e)
	}

	r, err := ev.eval(n.r, e)
	if err != nil {
		return undefined, err
	}

	switch n.op {
	case "+":
		if isStringish(l) || isStringish(r) {
			ls, rs := l.String(), r.String()
			if len(ls)+len(rs) > maxStringSize {
				return undefined, errors.New("string too large")
			}
			return String(ls + rs), nil
		}
		return Number(l.Number() + r.Number()), nil
	case "-":
		return Number(l.Number() - r.Number()), nil
	case "*":
		return Number(l.Number() * r.Number()), nil
	case "/":
		return Number(l.Number() / r.Number()), nil
	case "%":
		return Number(math.Mod(l.Number(), r.Number())), nil
	case "==":
		return Bool(looseEqual(l, r)), nil
	case "!=":
		return Bool(!looseEqual(l, r)), nil
	case "===":
		return Bool(strictEqual(l, r)), nil
	case "!==":
		return Bool(!strictEqual(l, r)), nil
	case "<", ">", "<=", ">=":
		return Bool(compare(n.op, l, r)), nil
	}

	return undefined, fmt.Errorf("unsupported operator %q", n.op)
}

func isStringish(v Value) bool {
	switch v.kind {
	case KindString, KindArray, KindRegex, KindFunc:
		return true
	}
	return false
}

func compare(op string, l, r Value) bool {
	if l.kind == KindString && r.kind == KindString {
		switch op {
		case "<":
			return l.s < r.s
		case ">":
			return l.s > r.s
		case "<=":
			return l.s <= r.s
		default:
			return l.s >= r.s
		}
	}
	a, b := l.Number(), r.Number()
	switch op {
	case "<":
		return a < b
	case ">":
		return a > b
	case "<=":
		return a <= b
	default:
		return a >= b
	}
}

func (ev *evaluator) evalArgs(nodes []node, e *env) ([]Value, error) {
	args := make([]Value, 0, len(nodes))
	for _, a := range nodes {
		v, err := ev.eval(a, e)
		if err != nil {
			return nil, err
		}
		args = append(args, v)
	}
	return args, nil
}

func (ev *evaluator) evalCall(n *callNode, e *env) (Value, error) {
	// method call: receiver.name(args)
	if m, ok := n.callee.(*memberNode); ok {
		if ns, ok := m.obj.(*identNode); ok {
			if _, shadowed := e.lookup(ns.name); !shadowed {
				if fn, ok := namespaceFuncs[ns.name+"."+m.name]; ok {
					args, err := ev.evalArgs(n.args, e)
					if err != nil {
						return undefined, err
					}
					return fn(args)
				}
			}
		}

		recv, err := ev.eval(m.obj, e)
		if err != nil {
			return undefined, err
		}
		args, err := ev.evalArgs(n.args, e)
		if err != nil {
			return undefined, err
		}
		return callMethod(recv, m.name, args)
	}

	callee, err := ev.eval(n.callee, e)
	if err != nil {
		return undefined, err
	}
	if callee.kind != KindFunc {
		return undefined, fmt.Errorf("%s is not a function", callee.kind)
	}
	args, err := ev.evalArgs(n.args, e)
	if err != nil {
		return undefined, err
	}

	if callee.fn.body == nil {
		builtin, ok := globalFuncs[callee.fn.name]
		if !ok {
			return undefined, fmt.Errorf("unknown function %s", callee.fn.name)
		}
		return builtin(args)
	}
	return ev.callUser(callee.fn, args, e)
}

func (ev *evaluator) callUser(fn *function, args []Value, e *env) (Value, error) {
	if ev.depth >= maxCallDepth {
		return undefined, errors.New("call depth exceeded")
	}
	ev.depth++
	defer func() { ev.depth-- }()

	local := newEnv(rootEnv(e))
	for i, name := range fn.params {
		if i < len(args) {
			local.vars[name] = args[i]
		} else {
			local.vars[name] = undefined
		}
	}
	return ev.eval(fn.body, local)
}

// rootEnv returns the global environment: recorded functions close over
// script globals only
func rootEnv(e *env) *env {
	for e.parent != nil {
		e = e.parent
	}
	return e
}

func compileRegex(source, flags string) (Value, error) {
	pattern := source
	if strings.Contains(flags, "i") {
		pattern = "(?i)" + pattern
	}
	if strings.Contains(flags, "m") {
		pattern = "(?m)" + pattern
	}
	if strings.Contains(flags, "s") {
		pattern = "(?s)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return undefined, fmt.Errorf("unsupported regex /%s/: %w", source, err)
	}
	return Value{kind: KindRegex, re: &regexValue{re: re, global: strings.Contains(flags, "g"), source: source}}, nil
}
