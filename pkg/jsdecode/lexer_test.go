package jsdecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeStrings(t *testing.T) {
	toks, err := tokenize(`'it\'s' "a\"b" '\x41B\u{43}' 'line\
cont' '😀'`)
	require.NoError(t, err)

	var got []string
	for _, tok := range toks {
		if tok.kind == tokString {
			got = append(got, tok.str)
		}
	}
	assert.Equal(t, []string{"it's", `a"b`, "ABC", "linecont", "😀"}, got)
}

func TestTokenizeUnterminatedString(t *testing.T) {
	_, err := tokenize(`var a = 'oops`)
	assert.Error(t, err)
}

func TestTokenizeRegexVersusDivision(t *testing.T) {
	toks, err := tokenize("a = b / 2; c = s.replace(/x\\/y/g, '')")
	require.NoError(t, err)

	var kinds []tokenKind
	for _, tok := range toks {
		if tok.text == "/" || tok.kind == tokRegex {
			kinds = append(kinds, tok.kind)
		}
	}
	require.Len(t, kinds, 2)
	assert.Equal(t, tokPunct, kinds[0])
	assert.Equal(t, tokRegex, kinds[1])
}

func TestTokenizeNumbersAndComments(t *testing.T) {
	toks, err := tokenize("0x1F /* block\ncomment */ 1.5e2 // line\n 7")
	require.NoError(t, err)
	require.Len(t, toks, 4)

	assert.Equal(t, float64(31), toks[0].num)
	assert.Equal(t, float64(150), toks[1].num)
	assert.True(t, toks[1].nl, "block comment with a newline counts as a line break")
	assert.Equal(t, float64(7), toks[2].num)
	assert.True(t, toks[2].nl)
	assert.Equal(t, tokEOF, toks[3].kind)
}
