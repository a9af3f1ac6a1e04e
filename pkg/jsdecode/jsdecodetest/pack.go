// Package jsdecodetest builds obfuscated payloads for tests of code that
// consumes pkg/jsdecode.
package jsdecodetest

import (
	"fmt"
	"regexp"
	"strings"
)

const alphabet = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

const unpacker = `function(p,a,c,k,e,d){e=function(c){return(c<a?'':e(parseInt(c/a)))+((c=c%a)>35?String.fromCharCode(c+29):c.toString(36))};if(!''.replace(/^/,String)){while(c--){d[e(c)]=k[c]||e(c)}k=[function(e){return d[e]}];e=function(){return'\\w+'};c=1};while(c--){if(k[c]){p=p.replace(new RegExp('\\b'+e(c)+'\\b','g'),k[c])}}return p}`

var word = regexp.MustCompile(`\b\w+\b`)

// Pack wraps source the way the "p,a,c,k,e,d" packer does, using base 62
func Pack(source string) string {
	index := map[string]int{}
	var symbols []string

	payload := word.ReplaceAllStringFunc(source, func(w string) string {
		i, ok := index[w]
		if !ok {
			i = len(symbols)
			index[w] = i
			symbols = append(symbols, w)
		}
		return encode(i)
	})

	// the packer leaves symbols that encode to themselves empty
	for i, s := range symbols {
		if encode(i) == s {
			symbols[i] = ""
		}
	}

	return fmt.Sprintf("eval(%s('%s',62,%d,'%s'.split('|'),0,{}))",
		unpacker, Quote(payload), len(symbols), strings.Join(symbols, "|"))
}

// EvalString wraps ASCII source as eval('<first half>'+unescape('<rest>'))
// with the second half percent-encoded
func EvalString(source string) string {
	half := len(source) / 2
	return fmt.Sprintf("eval('%s'+unescape('%s'))", Quote(source[:half]), percentEncode(source[half:]))
}

// Quote escapes s for a single-quoted literal
func Quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)
	return r.Replace(s)
}

func percentEncode(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		fmt.Fprintf(&b, "%%%02X", s[i])
	}
	return b.String()
}

func encode(n int) string {
	if n < len(alphabet) {
		return string(alphabet[n])
	}
	return encode(n/len(alphabet)) + string(alphabet[n%len(alphabet)])
}
