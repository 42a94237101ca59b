// File: pkg/webdriver/element.go
package webdriver

import (
	"context"
	"net/http"
	"net/url"

	json "github.com/json-iterator/go"
)

// Element is a handle on a server-side element. It holds no state besides
// its id; a removed element surfaces as a StaleElementReference error on the
// next command.
type Element struct {
	id      string
	session *Session
}

func newElement(s *Session, id string) *Element {
	return &Element{id: id, session: s}
}

// ID returns the server-issued element id.
func (e *Element) ID() string { return e.id }

// Session returns the session the element belongs to.
func (e *Element) Session() *Session { return e.session }

// MarshalJSON encodes the element as a reference usable as a script argument.
func (e *Element) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{
		legacyElementKey: e.id,
		w3cElementKey:    e.id,
	})
}

func (e *Element) String() string { return "webdriver.Element(" + e.id + ")" }

func (e *Element) command(ctx context.Context, method, suffix string, body any) (RawValue, error) {
	return e.session.command(ctx, Command{
		Path:   "/element/" + url.PathEscape(e.id) + suffix,
		Method: method,
		Body:   body,
	})
}

func (e *Element) trace(method string, err *error, args ...any) {
	if e.session.tracer == nil {
		return
	}
	e.session.tracer.TraceCall("Element", method, append([]any{e.id}, args...), *err)
}

// GetAttribute returns the named attribute, or "" when it is not set.
func (e *Element) GetAttribute(ctx context.Context, name string) (v string, err error) {
	defer e.trace("GetAttribute", &err, name)
	value, err := e.command(ctx, http.MethodGet, "/attribute/"+url.PathEscape(name), nil)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// GetCSSProperty returns the computed value of a css property.
func (e *Element) GetCSSProperty(ctx context.Context, property string) (v string, err error) {
	defer e.trace("GetCSSProperty", &err, property)
	value, err := e.command(ctx, http.MethodGet, "/css/"+url.PathEscape(property), nil)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// GetText returns the visible text of the element.
func (e *Element) GetText(ctx context.Context) (text string, err error) {
	defer e.trace("GetText", &err)
	value, err := e.command(ctx, http.MethodGet, "/text", nil)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// GetValue returns the value of a form field.
func (e *Element) GetValue(ctx context.Context) (v string, err error) {
	defer e.trace("GetValue", &err)
	value, err := e.command(ctx, http.MethodGet, "/value", nil)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// GetTagName returns the lower-cased tag name.
func (e *Element) GetTagName(ctx context.Context) (name string, err error) {
	defer e.trace("GetTagName", &err)
	value, err := e.command(ctx, http.MethodGet, "/name", nil)
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

// IsDisplayed reports whether the element is visible.
func (e *Element) IsDisplayed(ctx context.Context) (displayed bool, err error) {
	defer e.trace("IsDisplayed", &err)
	value, err := e.command(ctx, http.MethodGet, "/displayed", nil)
	if err != nil {
		return false, err
	}
	if value.IsNull() {
		return false, nil
	}
	return value.Bool()
}

// Click clicks the element.
func (e *Element) Click(ctx context.Context) (err error) {
	defer e.trace("Click", &err)
	_, err = e.command(ctx, http.MethodPost, "/click", nil)
	return err
}

// Clear empties a form field.
func (e *Element) Clear(ctx context.Context) (err error) {
	defer e.trace("Clear", &err)
	_, err = e.command(ctx, http.MethodPost, "/clear", nil)
	return err
}

// SendKeys types value into the element. "@Name" tokens become key codes. An
// empty value clears the field instead.
func (e *Element) SendKeys(ctx context.Context, value string) (err error) {
	defer e.trace("SendKeys", &err, value)
	if value == "" {
		_, err = e.command(ctx, http.MethodPost, "/clear", nil)
		return err
	}
	_, err = e.command(ctx, http.MethodPost, "/value", map[string][]string{
		"value": SplitKeys(ReplaceKeyStrokes(value)),
	})
	return err
}

// MoveTo moves the mouse to an offset from the element's top-left corner.
func (e *Element) MoveTo(ctx context.Context, x, y int) (err error) {
	defer e.trace("MoveTo", &err, x, y)
	return e.session.moveTo(ctx, moveToBody{Element: e.id, XOffset: &x, YOffset: &y})
}

// MouseDown moves to the element's center and presses button there.
func (e *Element) MouseDown(ctx context.Context, button MouseButton) (err error) {
	defer e.trace("MouseDown", &err, button.String())
	if err = e.session.moveTo(ctx, moveToBody{Element: e.id}); err != nil {
		return err
	}
	return e.session.mouse(ctx, "/buttondown", button)
}

// MouseUp moves to the element's center and releases button there.
func (e *Element) MouseUp(ctx context.Context, button MouseButton) (err error) {
	defer e.trace("MouseUp", &err, button.String())
	if err = e.session.moveTo(ctx, moveToBody{Element: e.id}); err != nil {
		return err
	}
	return e.session.mouse(ctx, "/buttonup", button)
}

// Get returns the first descendant matching selector.
func (e *Element) Get(ctx context.Context, selector string, opts ...LocateOption) (*Element, error) {
	return e.session.Get(ctx, selector, scoped(opts, e)...)
}

// GetList returns every descendant matching selector.
func (e *Element) GetList(ctx context.Context, selector string, opts ...LocateOption) ([]*Element, error) {
	return e.session.GetList(ctx, selector, scoped(opts, e)...)
}

// scoped appends Within(parent) without touching the caller's slice.
func scoped(opts []LocateOption, parent *Element) []LocateOption {
	out := make([]LocateOption, 0, len(opts)+1)
	out = append(out, opts...)
	return append(out, Within(parent))
}
