package grammar

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		opts     Options
		messages []string
	}{
		{
			name: "valid",
			text: "s = t indent ;\nt = 'x' ;",
			opts: Options{Externals: []string{"indent"}, Inline: []string{"t"}},
		},
		{
			name:     "undefined reference",
			text:     "s = t ;",
			messages: []string{"undefined rule `t` referenced in `s`"},
		},
		{
			name:     "undefined references in nested groups",
			text:     "s = { a } [ ( b | 'x' ) ] ;",
			messages: []string{"undefined rule `a`", "undefined rule `b`"},
		},
		{
			name:     "unknown start",
			text:     "s = 'x' ;",
			opts:     Options{Start: "zz"},
			messages: []string{"start rule `zz` is not defined"},
		},
		{
			name:     "external clashes with rule",
			text:     "s = t ;\nt = 'x' ;",
			opts:     Options{Externals: []string{"t"}},
			messages: []string{"same name as a rule"},
		},
		{
			name:     "invalid external name",
			text:     "s = 'x' ;",
			opts:     Options{Externals: []string{"bad-name"}},
			messages: []string{"not a valid identifier"},
		},
		{
			name:     "duplicate external",
			text:     "s = i ;",
			opts:     Options{Externals: []string{"i", "i"}},
			messages: []string{"listed more than once"},
		},
		{
			name:     "inline unknown",
			text:     "s = 'x' ;",
			opts:     Options{Inline: []string{"q"}},
			messages: []string{"cannot inline undefined rule `q`"},
		},
		{
			name:     "inline start",
			text:     "s = 'x' ;",
			opts:     Options{Inline: []string{"s"}},
			messages: []string{"cannot inline the start rule"},
		},
		{
			name:     "inline explicit start",
			text:     "a = 'x' ;\ns = a ;",
			opts:     Options{Start: "s", Inline: []string{"s"}},
			messages: []string{"cannot inline the start rule"},
		},
		{
			name:     "inline external",
			text:     "s = i ;",
			opts:     Options{Externals: []string{"i"}, Inline: []string{"i"}},
			messages: []string{"cannot inline external token"},
		},
		{
			name:     "inline listed twice",
			text:     "s = t ;\nt = 'x' ;",
			opts:     Options{Inline: []string{"t", "t"}},
			messages: []string{"listed to inline more than once"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(mustLoad(t, tt.text), tt.opts)
			if len(tt.messages) == 0 {
				assert.NoError(t, err)
				return
			}

			errs := multierr.Errors(err)
			require.Len(t, errs, len(tt.messages))

			got := make([]string, len(errs))
			for i, e := range errs {
				got[i] = e.Error()
			}

			joined := strings.Join(got, "\n")
			for _, msg := range tt.messages {
				assert.Contains(t, joined, msg)
			}
		})
	}
}

func TestValidateReferencePosition(t *testing.T) {
	err := Validate(mustLoad(t, "s = 'x'\n  missing ;"), Options{})

	var re *RuleError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "s", re.Rule)
	assert.Equal(t, 2, re.Line)
	assert.Equal(t, 2, re.Col)
	assert.Equal(t, "line 2, col 2: undefined rule `missing` referenced in `s`", re.Error())
}

func TestValidateEmptyRuleSet(t *testing.T) {
	assert.Error(t, Validate(&RuleSet{}, Options{}))
}

func TestCheckProductionsNullableStart(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		rules []string
	}{
		{"self reference", "s = [ 'a' s s 'b' ] ;", []string{"s"}},
		{"reference from another rule", "s = [ t ] ;\nt = 'x' s 'y' ;", []string{"t"}},
		{"unreferenced", "s = [ t ] ;\nt = 'x' ;", nil},
		{"referenced but never empty", "s = 'a' s 'b' | 'c' ;", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExpandGrammar(mustLoad(t, tt.text), Options{})
			if len(tt.rules) == 0 {
				assert.NoError(t, err)
				return
			}

			errs := multierr.Errors(err)
			require.Len(t, errs, len(tt.rules))
			for i, e := range errs {
				var re *RuleError
				require.ErrorAs(t, e, &re)
				assert.Equal(t, tt.rules[i], re.Rule)
				assert.Contains(t, re.Message, "refers to the start rule `s`, which can match the empty string")
			}
		})
	}
}
