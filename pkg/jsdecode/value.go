package jsdecode

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Kind is the dynamic type of a Value
type Kind int

const (
	KindUndefined Kind = iota
	KindNull
	KindBool
	KindNumber
	KindString
	KindArray
	KindRegex
	KindFunc
)

func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return "boolean"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindRegex:
		return "regexp"
	case KindFunc:
		return "function"
	default:
		return "unknown"
	}
}

// Value is the result of evaluating an expression. Only data types exist:
// there are no objects, host bindings or side effects.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	re   *regexValue
	fn   *function
}

type regexValue struct {
	re     *regexp.Regexp
	global bool
	source string
}

// function is a pure single-expression function recorded from a script
type function struct {
	name   string
	params []string
	body   node
}

var (
	undefined = Value{kind: KindUndefined}
	null      = Value{kind: KindNull}
)

// String returns a string value
func String(s string) Value { return Value{kind: KindString, s: s} }

// Number returns a number value
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }

// Bool returns a boolean value
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Array returns an array value
func Array(items []Value) Value { return Value{kind: KindArray, arr: items} }

// Kind returns the dynamic type
func (v Value) Kind() Kind { return v.kind }

// IsUndefined reports whether v is undefined
func (v Value) IsUndefined() bool { return v.kind == KindUndefined }

// String converts v the way string concatenation would
func (v Value) String() string {
	switch v.kind {
	case KindUndefined:
		return "undefined"
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return formatNumber(v.n)
	case KindString:
		return v.s
	case KindArray:
		parts := make([]string, len(v.arr))
		for i, item := range v.arr {
			if item.kind != KindUndefined && item.kind != KindNull {
				parts[i] = item.String()
			}
		}
		return strings.Join(parts, ",")
	case KindRegex:
		return "/" + v.re.source + "/"
	case KindFunc:
		return fmt.Sprintf("function %s() { [pure] }", v.fn.name)
	default:
		return ""
	}
}

// Number converts v to a number, NaN when not numeric
func (v Value) Number() float64 {
	switch v.kind {
	case KindNumber:
		return v.n
	case KindBool:
		if v.b {
			return 1
		}
		return 0
	case KindNull:
		return 0
	case KindString:
		s := strings.TrimSpace(v.s)
		if s == "" {
			return 0
		}
		if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
			if n, err := strconv.ParseInt(s[2:], 16, 64); err == nil {
				return float64(n)
			}
			return math.NaN()
		}
		if n, err := strconv.ParseFloat(s, 64); err == nil {
			return n
		}
		return math.NaN()
	case KindArray:
		if len(v.arr) == 0 {
			return 0
		}
		if len(v.arr) == 1 {
			return v.arr[0].Number()
		}
		return math.NaN()
	default:
		return math.NaN()
	}
}

// Truthy follows the usual falsy set: "", 0, NaN, null, undefined, false
func (v Value) Truthy() bool {
	switch v.kind {
	case KindUndefined, KindNull:
		return false
	case KindBool:
		return v.b
	case KindNumber:
		return v.n != 0 && !math.IsNaN(v.n)
	case KindString:
		return v.s != ""
	default:
		return true
	}
}

func formatNumber(n float64) string {
	switch {
	case math.IsNaN(n):
		return "NaN"
	case math.IsInf(n, 1):
		return "Infinity"
	case math.IsInf(n, -1):
		return "-Infinity"
	case n == math.Trunc(n) && math.Abs(n) < 1e21:
		return strconv.FormatFloat(n, 'f', -1, 64)
	default:
		return strconv.FormatFloat(n, 'g', -1, 64)
	}
}

func looseEqual(a, b Value) bool {
	if a.kind == b.kind {
		return strictEqual(a, b)
	}
	nullish := func(v Value) bool { return v.kind == KindNull || v.kind == KindUndefined }
	if nullish(a) || nullish(b) {
		return nullish(a) && nullish(b)
	}
	if a.kind == KindString && b.kind == KindString {
		return a.s == b.s
	}
	return a.Number() == b.Number()
}

func strictEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindUndefined, KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindNumber:
		return a.n == b.n
	case KindString:
		return a.s == b.s
	case KindRegex:
		return a.re == b.re
	case KindFunc:
		return a.fn == b.fn
	default:
		// arrays compare by identity; values here are copies so never equal
		return false
	}
}
