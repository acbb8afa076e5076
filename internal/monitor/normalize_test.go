package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "empty", input: "", want: ""},
		{name: "plain lowercase", input: "iphone 15 pro", want: "iphone 15 pro"},
		{name: "hyphenated", input: "iPhone-15-Pro", want: "iphone 15 pro"},
		{name: "spaces and case", input: "iPhone 15 Pro", want: "iphone 15 pro"},
		{name: "mixed punctuation", input: "iphone, 15. pro!", want: "iphone 15 pro"},
		{name: "trailing bangs", input: "RTX 4090!!", want: "rtx 4090"},
		{name: "underscores and slashes", input: "dji_mini/5\\pro", want: "dji mini 5 pro"},
		{name: "whitespace runs", input: "  a \t\n b  ", want: "a b"},
		{name: "brackets and quotes", input: `[DJI] "Mini" (5) {Pro}`, want: "dji mini 5 pro"},
		{name: "only separators", input: "-- __ ..!", want: ""},
		{name: "digits preserved", input: "4,090.00", want: "4 090 00"},
		{name: "currency preserved", input: "$1,299", want: "$1 299"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, Normalize(tc.input))
		})
	}
}

func TestNormalizeIdempotent(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"",
		"iPhone-15-Pro",
		"RTX 4090!!",
		"  spaced   out\ttext  ",
		"under_score-and.dots!",
		"unicode café ₪99",
		`symbols @#$%^&*`,
	}
	for _, input := range inputs {
		once := Normalize(input)
		require.Equal(t, once, Normalize(once), "normalize must be idempotent for %q", input)
	}
}

func TestNormalizeEquivalentForms(t *testing.T) {
	t.Parallel()

	canonical := Normalize("iPhone 15 Pro")
	require.Equal(t, "iphone 15 pro", canonical)
	assert.Equal(t, canonical, Normalize("iPhone-15-Pro"))
	assert.Equal(t, canonical, Normalize("iphone, 15. pro!"))
	assert.Equal(t, canonical, Normalize("IPHONE___15___PRO"))
}
