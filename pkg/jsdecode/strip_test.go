package jsdecode

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStripIIFE(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "wrapper before declarations",
			in:   "(function(w, d){ w.x = 1; }(window, document));\nvar vserver = 'http://s.example';",
			want: "var vserver = 'http://s.example';",
		},
		{
			name: "wrapper after declarations",
			in:   "var a = 1;\n( function () {\n tick() }());",
			want: "var a = 1;",
		},
		{
			name: "no wrapper",
			in:   "  var a = 1;  ",
			want: "var a = 1;",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripIIFE(tt.in))
		})
	}
}
