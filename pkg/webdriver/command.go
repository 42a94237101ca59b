// File: pkg/webdriver/command.go
package webdriver

import (
	"net/http"
	"strconv"

	json "github.com/json-iterator/go"
)

// Command is a single wire protocol call. Path is appended to the session
// prefix ("/session/<id>", or "/session" for the handshake).
type Command struct {
	Path   string
	Method string
	// Body is serialised as JSON when non-nil.
	Body any
	// WantsRaw asks for the full Response instead of its value. The handshake
	// needs it to read the Location header.
	WantsRaw bool
}

// Response is a decoded envelope of a successful call.
type Response struct {
	Status     int
	Value      RawValue
	SessionID  string
	Header     http.Header
	HTTPStatus int
}

// RawValue is the undecoded "value" member of an envelope. It is nil when the
// server omitted the member.
type RawValue []byte

// IsNull reports whether the value was absent or JSON null.
func (v RawValue) IsNull() bool {
	return len(v) == 0 || string(v) == "null"
}

// Decode unmarshals the value into out. An absent value leaves out untouched.
func (v RawValue) Decode(out any) error {
	if v.IsNull() {
		return nil
	}
	return json.Unmarshal(v, out)
}

// String decodes a JSON string value, returning "" for null.
func (v RawValue) String() string {
	var s string
	if err := v.Decode(&s); err != nil {
		return string(v)
	}
	return s
}

// Bool decodes a JSON boolean value.
func (v RawValue) Bool() (bool, error) {
	var b bool
	err := v.Decode(&b)
	return b, err
}

// Interface decodes the value into a generic Go value.
func (v RawValue) Interface() (any, error) {
	var out any
	err := v.Decode(&out)
	return out, err
}

// legacyElementKey is the JSON wire protocol element reference key.
const legacyElementKey = "ELEMENT"

// w3cElementKey is the reference key used by newer drivers. Both are accepted
// when decoding.
const w3cElementKey = "element-6066-11e4-a52e-4f735466cecf"

// elementRef is the JSON shape of a web element reference.
type elementRef map[string]any

func (r elementRef) id() string {
	for _, key := range []string{legacyElementKey, w3cElementKey} {
		switch id := r[key].(type) {
		case string:
			return id
		case float64:
			return strconv.FormatFloat(id, 'f', -1, 64)
		}
	}
	return ""
}
