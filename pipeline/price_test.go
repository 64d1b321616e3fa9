package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePrice(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"5'990.00 руб.", "5990"},
		{"12.34$", "12"},
		{"abc", ""},
		{"1.999", "1"},
		{"", ""},
		{"1 200 300", "1200300"},
		{".50", ""},
		{"7990", "7990"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizePrice(tc.in), "input %q", tc.in)
	}
}
