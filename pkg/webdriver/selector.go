// File: pkg/webdriver/selector.go
package webdriver

import "strings"

// Common locator strategy names.
const (
	UsingCSS             = "css selector"
	UsingXPath           = "xpath"
	UsingID              = "id"
	UsingName            = "name"
	UsingClassName       = "class name"
	UsingTagName         = "tag name"
	UsingLinkText        = "link text"
	UsingPartialLinkText = "partial link text"
	UsingJQuery          = "jquery"
)

const (
	visibleExpansion = `:not([style*="display:none"]):not([style*="display: none"])`
	hiddenExpansion  = `[style*="display:none"],[style*="display: none"],[style*="opacity: 0"],[style*="opacity:0"]`
)

var cssSweetener = strings.NewReplacer(
	":visible", visibleExpansion,
	":hidden", hiddenExpansion,
)

// SweetenCSS expands the :visible and :hidden pseudo-classes, which plain CSS
// lacks, into inline-style attribute matches. The rewrite is textual and
// idempotent: neither expansion contains a pseudo-class it would rewrite.
func SweetenCSS(selector string) string {
	if !strings.Contains(selector, ":visible") && !strings.Contains(selector, ":hidden") {
		return selector
	}
	return cssSweetener.Replace(selector)
}
