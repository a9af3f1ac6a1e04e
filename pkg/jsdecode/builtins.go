package jsdecode

import (
	"encoding/base64"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf16"
)

type builtin func(args []Value) (Value, error)

var globalFuncs map[string]builtin

var namespaceFuncs map[string]builtin

func init() {
	globalFuncs = map[string]builtin{
		"atob":               atob,
		"btoa":               btoa,
		"unescape":           unescapeFunc,
		"escape":             escapeFunc,
		"decodeURIComponent": decodeURIComponent,
		"decodeURI":          decodeURIComponent,
		"encodeURIComponent": encodeURIComponent,
		"parseInt":           parseIntFunc,
		"String": func(args []Value) (Value, error) {
			return String(arg(args, 0).String()), nil
		},
		"Number": func(args []Value) (Value, error) {
			return Number(arg(args, 0).Number()), nil
		},
	}

	namespaceFuncs = map[string]builtin{
		"String.fromCharCode": fromCharCode,
		"Math.floor":          mathFunc(math.Floor),
		"Math.ceil":           mathFunc(math.Ceil),
		"Math.round":          mathFunc(func(x float64) float64 { return math.Floor(x + 0.5) }),
		"Math.abs":            mathFunc(math.Abs),
	}
}

func arg(args []Value, i int) Value {
	if i < len(args) {
		return args[i]
	}
	return undefined
}

func mathFunc(f func(float64) float64) builtin {
	return func(args []Value) (Value, error) {
		return Number(f(arg(args, 0).Number())), nil
	}
}

func atob(args []Value) (Value, error) {
	s := strings.Map(func(r rune) rune {
		if r == ' ' || r == '\n' || r == '\r' || r == '\t' {
			return -1
		}
		return r
	}, arg(args, 0).String())
	s = strings.TrimRight(s, "=")

	raw, err := base64.RawStdEncoding.DecodeString(s)
	if err != nil {
		return undefined, fmt.Errorf("atob: %w", err)
	}
	// each byte becomes one code unit
	var b strings.Builder
	for _, c := range raw {
		b.WriteRune(rune(c))
	}
	return String(b.String()), nil
}

func btoa(args []Value) (Value, error) {
	s := arg(args, 0).String()
	raw := make([]byte, 0, len(s))
	for _, r := range s {
		if r > 0xff {
			return undefined, fmt.Errorf("btoa: character out of range")
		}
		raw = append(raw, byte(r))
	}
	return String(base64.StdEncoding.EncodeToString(raw)), nil
}

// unescapeFunc decodes %XX and %uXXXX sequences, leaving malformed ones
func unescapeFunc(args []Value) (Value, error) {
	s := arg(args, 0).String()
	var b strings.Builder
	var pending []uint16

	flush := func() {
		if len(pending) > 0 {
			b.WriteString(string(utf16.Decode(pending)))
			pending = pending[:0]
		}
	}

	for i := 0; i < len(s); i++ {
		if s[i] == '%' {
			if i+6 <= len(s) && s[i+1] == 'u' {
				if n, err := strconv.ParseUint(s[i+2:i+6], 16, 16); err == nil {
					pending = append(pending, uint16(n))
					i += 5
					continue
				}
			}
			if i+3 <= len(s) {
				if n, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
					pending = append(pending, uint16(n))
					i += 2
					continue
				}
			}
		}
		flush()
		b.WriteByte(s[i])
	}
	flush()
	return String(b.String()), nil
}

func escapeFunc(args []Value) (Value, error) {
	const safe = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789@*_+-./"
	var b strings.Builder
	for _, u := range utf16.Encode([]rune(arg(args, 0).String())) {
		switch {
		case u < 0x80 && strings.IndexByte(safe, byte(u)) >= 0:
			b.WriteByte(byte(u))
		case u < 0x100:
			fmt.Fprintf(&b, "%%%02X", u)
		default:
			fmt.Fprintf(&b, "%%u%04X", u)
		}
	}
	return String(b.String()), nil
}

func decodeURIComponent(args []Value) (Value, error) {
	s, err := url.PathUnescape(arg(args, 0).String())
	if err != nil {
		return undefined, fmt.Errorf("decodeURIComponent: %w", err)
	}
	return String(s), nil
}

func encodeURIComponent(args []Value) (Value, error) {
	return String(strings.ReplaceAll(url.QueryEscape(arg(args, 0).String()), "+", "%20")), nil
}

func parseIntFunc(args []Value) (Value, error) {
	s := strings.TrimSpace(arg(args, 0).String())
	radix := 10
	if r := arg(args, 1); r.kind != KindUndefined {
		radix = int(r.Number())
	}

	neg := false
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		neg = s[0] == '-'
		s = s[1:]
	}
	if (radix == 16 || radix == 0) && (strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X")) {
		s = s[2:]
		radix = 16
	}
	if radix == 0 {
		radix = 10
	}
	if radix < 2 || radix > 36 {
		return Number(math.NaN()), nil
	}

	end := 0
	for end < len(s) && digitValue(s[end]) < radix {
		end++
	}
	if end == 0 {
		return Number(math.NaN()), nil
	}

	n, err := strconv.ParseInt(s[:end], radix, 64)
	if err != nil {
		return Number(math.NaN()), nil
	}
	if neg {
		n = -n
	}
	return Number(float64(n)), nil
}

func digitValue(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'z':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'Z':
		return int(c-'A') + 10
	}
	return 99
}

func fromCharCode(args []Value) (Value, error) {
	units := make([]uint16, 0, len(args))
	for _, a := range args {
		units = append(units, uint16(int64(a.Number())))
	}
	return String(string(utf16.Decode(units))), nil
}

func property(obj Value, name string) (Value, error) {
	switch obj.kind {
	case KindString:
		if name == "length" {
			return Number(float64(len(utf16.Encode([]rune(obj.s))))), nil
		}
	case KindArray:
		if name == "length" {
			return Number(float64(len(obj.arr))), nil
		}
	case KindUndefined, KindNull:
		return undefined, fmt.Errorf("cannot read property %s of %s", name, obj.kind)
	}
	return undefined, nil
}

func index(obj Value, idx Value) (Value, error) {
	if idx.kind == KindString {
		if n, err := strconv.Atoi(idx.s); err == nil {
			idx = Number(float64(n))
		} else {
			return property(obj, idx.s)
		}
	}

	i := int(idx.Number())
	switch obj.kind {
	case KindArray:
		if i >= 0 && i < len(obj.arr) {
			return obj.arr[i], nil
		}
		return undefined, nil
	case KindString:
		runes := []rune(obj.s)
		if i >= 0 && i < len(runes) {
			return String(string(runes[i])), nil
		}
		return undefined, nil
	case KindUndefined, KindNull:
		return undefined, fmt.Errorf("cannot index %s", obj.kind)
	}
	return undefined, nil
}

func callMethod(recv Value, name string, args []Value) (Value, error) {
	switch recv.kind {
	case KindString:
		return stringMethod(recv.s, name, args)
	case KindArray:
		return arrayMethod(recv.arr, name, args)
	case KindNumber:
		if name == "toString" {
			radix := 10
			if r := arg(args, 0); r.kind != KindUndefined {
				radix = int(r.Number())
			}
			if radix == 10 || recv.n != math.Trunc(recv.n) {
				return String(formatNumber(recv.n)), nil
			}
			if radix < 2 || radix > 36 {
				return undefined, fmt.Errorf("toString radix %d out of range", radix)
			}
			return String(strconv.FormatInt(int64(recv.n), radix)), nil
		}
	}
	if name == "toString" {
		return String(recv.String()), nil
	}
	return undefined, fmt.Errorf("unsupported method %s on %s", name, recv.kind)
}

// relIndex clamps a slice bound, counting negative values from the end
func relIndex(v Value, length int, def int) int {
	if v.kind == KindUndefined {
		return def
	}
	n := v.Number()
	if math.IsNaN(n) {
		return 0
	}
	n = math.Trunc(n)
	if n < 0 {
		n += float64(length)
	}
	return clampInt(n, 0, length)
}

func clampIndex(v Value, length int, def int) int {
	if v.kind == KindUndefined {
		return def
	}
	n := v.Number()
	if math.IsNaN(n) {
		return 0
	}
	return clampInt(n, 0, length)
}

// clampInt converts f to an int within [lo, hi]. The comparison happens on
// the float so huge or infinite values never overflow.
func clampInt(f float64, lo, hi int) int {
	switch {
	case math.IsNaN(f), f <= float64(lo):
		return lo
	case f >= float64(hi):
		return hi
	}
	return int(f)
}

func stringMethod(s, name string, args []Value) (Value, error) {
	runes := []rune(s)
	n := len(runes)

	switch name {
	case "split":
		sep := arg(args, 0)
		var parts []string
		switch {
		case sep.kind == KindUndefined:
			parts = []string{s}
		case sep.kind == KindRegex:
			parts = sep.re.re.Split(s, -1)
		case sep.String() == "":
			parts = make([]string, n)
			for i, r := range runes {
				parts[i] = string(r)
			}
		default:
			parts = strings.Split(s, sep.String())
		}
		if limit := arg(args, 1); limit.kind != KindUndefined {
			if l := int(limit.Number()); l >= 0 && l < len(parts) {
				parts = parts[:l]
			}
		}
		items := make([]Value, len(parts))
		for i, p := range parts {
			items[i] = String(p)
		}
		return Array(items), nil

	case "replace":
		return replace(s, arg(args, 0), arg(args, 1).String(), false)
	case "replaceAll":
		return replace(s, arg(args, 0), arg(args, 1).String(), true)

	case "substring":
		start := clampIndex(arg(args, 0), n, 0)
		end := clampIndex(arg(args, 1), n, n)
		if start > end {
			start, end = end, start
		}
		return String(string(runes[start:end])), nil

	case "substr":
		start := relIndex(arg(args, 0), n, 0)
		length := n - start
		if l := arg(args, 1); l.kind != KindUndefined {
			length = clampInt(l.Number(), 0, n-start)
		}
		return String(string(runes[start : start+length])), nil

	case "slice":
		start := relIndex(arg(args, 0), n, 0)
		end := relIndex(arg(args, 1), n, n)
		if start >= end {
			return String(""), nil
		}
		return String(string(runes[start:end])), nil

	case "charAt":
		i := int(arg(args, 0).Number())
		if i >= 0 && i < n {
			return String(string(runes[i])), nil
		}
		return String(""), nil

	case "charCodeAt":
		i := int(arg(args, 0).Number())
		if i >= 0 && i < n {
			return Number(float64(runes[i])), nil
		}
		return Number(math.NaN()), nil

	case "indexOf":
		idx := strings.Index(s, arg(args, 0).String())
		if idx < 0 {
			return Number(-1), nil
		}
		return Number(float64(len([]rune(s[:idx])))), nil

	case "toLowerCase":
		return String(strings.ToLower(s)), nil
	case "toUpperCase":
		return String(strings.ToUpper(s)), nil
	case "trim":
		return String(strings.TrimSpace(s)), nil
	case "toString", "valueOf":
		return String(s), nil

	case "concat":
		var b strings.Builder
		b.WriteString(s)
		for _, a := range args {
			b.WriteString(a.String())
		}
		return String(b.String()), nil
	}

	return undefined, fmt.Errorf("unsupported string method %s", name)
}

func arrayMethod(items []Value, name string, args []Value) (Value, error) {
	switch name {
	case "reverse":
		out := make([]Value, len(items))
		for i, v := range items {
			out[len(items)-1-i] = v
		}
		return Array(out), nil

	case "join":
		sep := ","
		if s := arg(args, 0); s.kind != KindUndefined {
			sep = s.String()
		}
		parts := make([]string, len(items))
		for i, v := range items {
			if v.kind != KindUndefined && v.kind != KindNull {
				parts[i] = v.String()
			}
		}
		return String(strings.Join(parts, sep)), nil

	case "slice":
		start := relIndex(arg(args, 0), len(items), 0)
		end := relIndex(arg(args, 1), len(items), len(items))
		if start >= end {
			return Array(nil), nil
		}
		return Array(append([]Value(nil), items[start:end]...)), nil

	case "concat":
		out := append([]Value(nil), items...)
		for _, a := range args {
			if a.kind == KindArray {
				out = append(out, a.arr...)
			} else {
				out = append(out, a)
			}
		}
		return Array(out), nil

	case "indexOf":
		target := arg(args, 0)
		for i, v := range items {
			if strictEqual(v, target) {
				return Number(float64(i)), nil
			}
		}
		return Number(-1), nil

	case "toString":
		return String(Array(items).String()), nil
	}

	return undefined, fmt.Errorf("unsupported array method %s", name)
}

// replace handles string and regex patterns; "$1" style references in the
// replacement are honoured for regexes
func replace(s string, pattern Value, replacement string, all bool) (Value, error) {
	if pattern.kind != KindRegex {
		if all {
			return String(strings.ReplaceAll(s, pattern.String(), replacement)), nil
		}
		return String(strings.Replace(s, pattern.String(), replacement, 1)), nil
	}

	re := pattern.re.re
	template := convertReplacement(replacement)

	if pattern.re.global || all {
		return String(re.ReplaceAllString(s, template)), nil
	}

	loc := re.FindStringSubmatchIndex(s)
	if loc == nil {
		return String(s), nil
	}
	var out []byte
	out = append(out, s[:loc[0]]...)
	out = re.ExpandString(out, template, s, loc)
	out = append(out, s[loc[1]:]...)
	return String(string(out)), nil
}

// convertReplacement turns $1 / $& into the ${1} / ${0} form regexp expects
func convertReplacement(r string) string {
	var b strings.Builder
	for i := 0; i < len(r); i++ {
		if r[i] != '$' {
			b.WriteByte(r[i])
			continue
		}
		if i+1 >= len(r) {
			b.WriteString("$$")
			continue
		}
		next := r[i+1]
		switch {
		case next == '$':
			b.WriteString("$$")
			i++
		case next == '&':
			b.WriteString("${0}")
			i++
		case next >= '0' && next <= '9':
			j := i + 1
			for j < len(r) && j < i+3 && r[j] >= '0' && r[j] <= '9' {
				j++
			}
			b.WriteString("${" + r[i+1:j] + "}")
			i = j - 1
		default:
			b.WriteString("$$")
		}
	}
	return b.String()
}
