// File: pkg/webdriver/keys.go
package webdriver

import (
	"regexp"
	"sort"
	"strings"
)

// KeyToken pairs an "@Name" token with the private-use code point the server
// interprets as that key.
type KeyToken struct {
	Name string
	Code rune
}

// keyTokens lists the key vocabulary in code point order.
var keyTokens = []KeyToken{
	{"NULL", '\uE000'},
	{"Cancel", '\uE001'},
	{"Help", '\uE002'},
	{"Backspace", '\uE003'},
	{"Tab", '\uE004'},
	{"Clear", '\uE005'},
	{"Return", '\uE006'},
	{"Enter", '\uE007'},
	{"Shift", '\uE008'},
	{"Control", '\uE009'},
	{"Alt", '\uE00A'},
	{"Pause", '\uE00B'},
	{"Escape", '\uE00C'},
	{"Space", '\uE00D'},
	{"PageUp", '\uE00E'},
	{"PageDown", '\uE00F'},
	{"End", '\uE010'},
	{"Home", '\uE011'},
	{"LeftArrow", '\uE012'},
	{"UpArrow", '\uE013'},
	{"RightArrow", '\uE014'},
	{"DownArrow", '\uE015'},
	{"Insert", '\uE016'},
	{"Delete", '\uE017'},
	{"Semicolon", '\uE018'},
	{"Equals", '\uE019'},
	{"Numpad0", '\uE01A'},
	{"Numpad1", '\uE01B'},
	{"Numpad2", '\uE01C'},
	{"Numpad3", '\uE01D'},
	{"Numpad4", '\uE01E'},
	{"Numpad5", '\uE01F'},
	{"Numpad6", '\uE020'},
	{"Numpad7", '\uE021'},
	{"Numpad8", '\uE022'},
	{"Numpad9", '\uE023'},
	{"Multiply", '\uE024'},
	{"Add", '\uE025'},
	{"Separator", '\uE026'},
	{"Subtract", '\uE027'},
	{"Decimal", '\uE028'},
	{"Divide", '\uE029'},
	{"F1", '\uE031'},
	{"F2", '\uE032'},
	{"F3", '\uE033'},
	{"F4", '\uE034'},
	{"F5", '\uE035'},
	{"F6", '\uE036'},
	{"F7", '\uE037'},
	{"F8", '\uE038'},
	{"F9", '\uE039'},
	{"F10", '\uE03A'},
	{"F11", '\uE03B'},
	{"F12", '\uE03C'},
	{"Command", '\uE03D'},
}

var keyCodes, keyTokenPattern = compileKeyTokens()

func compileKeyTokens() (map[string]rune, *regexp.Regexp) {
	codes := make(map[string]rune, len(keyTokens))
	names := make([]string, 0, len(keyTokens))
	for _, tok := range keyTokens {
		codes[tok.Name] = tok.Code
		names = append(names, regexp.QuoteMeta(tok.Name))
	}
	// Alternation is leftmost-first, so longer names go first: "@F10" must not
	// match as "@F1" followed by "0".
	sort.SliceStable(names, func(i, j int) bool { return len(names[i]) > len(names[j]) })
	return codes, regexp.MustCompile("@(" + strings.Join(names, "|") + ")")
}

// KeyTokens returns a copy of the key vocabulary.
func KeyTokens() []KeyToken {
	out := make([]KeyToken, len(keyTokens))
	copy(out, keyTokens)
	return out
}

// KeyCode returns the code point for a token name without the "@" prefix.
func KeyCode(name string) (rune, bool) {
	code, ok := keyCodes[name]
	return code, ok
}

// ReplaceKeyStrokes substitutes every "@Name" token in s with its key code.
// Text that is not a known token, including a bare "@", is left untouched.
func ReplaceKeyStrokes(s string) string {
	if !strings.Contains(s, "@") {
		return s
	}
	return keyTokenPattern.ReplaceAllStringFunc(s, func(tok string) string {
		return string(keyCodes[tok[1:]])
	})
}

// SplitKeys returns the code points of s as one-character strings, the shape
// the value array of a keys command expects.
func SplitKeys(s string) []string {
	out := make([]string, 0, len(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}
