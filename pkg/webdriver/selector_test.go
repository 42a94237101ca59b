// File: pkg/webdriver/selector_test.go
package webdriver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSweetenCSS(t *testing.T) {
	cases := map[string]string{
		"div":                 "div",
		"li:visible":          "li" + visibleExpansion,
		".menu:hidden":        ".menu" + hiddenExpansion,
		"a:visible b:visible": "a" + visibleExpansion + " b" + visibleExpansion,
		"p:first-child":       "p:first-child",
	}
	for in, want := range cases {
		assert.Equal(t, want, SweetenCSS(in), in)
	}
}

func TestSweetenCSS_Idempotent(t *testing.T) {
	for _, in := range []string{"li:visible", "ul > li:hidden", "a:visible, b:hidden", "plain"} {
		once := SweetenCSS(in)
		assert.Equal(t, once, SweetenCSS(once), in)
	}
}
