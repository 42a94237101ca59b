// File: pkg/webdriver/errors.go
package webdriver

import (
	"errors"
	"fmt"
	"regexp"
)

// ErrorKind enumerates the protocol failures a server can report through the
// status field of a response envelope.
type ErrorKind int

const (
	KindNoSuchElement ErrorKind = iota + 1
	KindNoSuchFrame
	KindUnknownCommand
	KindStaleElementReference
	KindElementNotVisible
	KindInvalidElementState
	KindUnknown
	KindElementNotSelectable
	KindJavaScriptError
	KindXPathLookupError
	KindTimeout
	KindNoSuchWindow
	KindInvalidCookieDomain
	KindUnableToSetCookie
	KindUnexpectedAlertOpen
	KindNoAlertOpen
	KindScriptTimeout
	KindInvalidElementCoordinates
	KindIMENotAvailable
	KindIMEEngineActivationFailed
	KindInvalidSelector
	KindSessionNotCreated
	KindMoveTargetOutOfBounds
)

type errorDef struct {
	status   int
	kind     ErrorKind
	name     string
	template string
}

// errorTable is the single source of truth for the status <-> kind mapping.
var errorTable = []errorDef{
	{7, KindNoSuchElement, "NoSuchElement",
		"An element ${element} could not be located on the page using ${using}"},
	{8, KindNoSuchFrame, "NoSuchFrame",
		"A request to switch to a frame could not be satisfied because the frame could not be found."},
	{9, KindUnknownCommand, "UnknownCommand",
		"The requested resource could not be found, or a request was received using an HTTP method that is not supported by the mapped resource."},
	{10, KindStaleElementReference, "StaleElementReference",
		"An element command failed because the referenced element is no longer attached to the DOM."},
	{11, KindElementNotVisible, "ElementNotVisible",
		"An element command could not be completed because the element is not visible on the page."},
	{12, KindInvalidElementState, "InvalidElementState",
		"An element command could not be completed because the element is in an invalid state (e.g. attempting to click a disabled element)."},
	{13, KindUnknown, "Unknown",
		"An unknown server-side error occurred while processing the command."},
	{15, KindElementNotSelectable, "ElementNotSelectable",
		"An attempt was made to select an element that cannot be selected."},
	{17, KindJavaScriptError, "JavaScriptError",
		"An error occurred while executing user supplied JavaScript."},
	{19, KindXPathLookupError, "XPathLookupError",
		"An error occurred while searching for an element by XPath."},
	{21, KindTimeout, "Timeout",
		"An operation did not complete before its timeout expired."},
	{23, KindNoSuchWindow, "NoSuchWindow",
		"A request to switch to a different window could not be satisfied because the window could not be found."},
	{24, KindInvalidCookieDomain, "InvalidCookieDomain",
		"An illegal attempt was made to set a cookie under a different domain than the current page."},
	{25, KindUnableToSetCookie, "UnableToSetCookie",
		"A request to set a cookie's value could not be satisfied."},
	{26, KindUnexpectedAlertOpen, "UnexpectedAlertOpen",
		"A modal dialog was open, blocking this operation"},
	{27, KindNoAlertOpen, "NoAlertOpen",
		"An attempt was made to operate on a modal dialog when one was not open."},
	{28, KindScriptTimeout, "ScriptTimeout",
		"A script did not complete before its timeout expired."},
	{29, KindInvalidElementCoordinates, "InvalidElementCoordinates",
		"The coordinates provided to an interactions operation are invalid."},
	{30, KindIMENotAvailable, "IMENotAvailable",
		"IME was not available."},
	{31, KindIMEEngineActivationFailed, "IMEEngineActivationFailed",
		"An IME engine could not be started."},
	{32, KindInvalidSelector, "InvalidSelector",
		"Argument was an invalid selector (e.g. XPath/CSS)."},
	{33, KindSessionNotCreated, "SessionNotCreated",
		"A new session could not be created."},
	{34, KindMoveTargetOutOfBounds, "MoveTargetOutOfBounds",
		"Target provided for a move action is out of bounds."},
}

var defByStatus, defByKind = indexErrorTable()

func indexErrorTable() (map[int]errorDef, map[ErrorKind]errorDef) {
	byStatus := make(map[int]errorDef, len(errorTable))
	byKind := make(map[ErrorKind]errorDef, len(errorTable))
	for _, def := range errorTable {
		if _, dup := byStatus[def.status]; dup {
			panic(fmt.Sprintf("webdriver: duplicate status %d in error table", def.status))
		}
		if _, dup := byKind[def.kind]; dup {
			panic(fmt.Sprintf("webdriver: duplicate kind %s in error table", def.name))
		}
		byStatus[def.status] = def
		byKind[def.kind] = def
	}
	return byStatus, byKind
}

// String returns the kind's name, e.g. "NoSuchElement".
func (k ErrorKind) String() string {
	if def, ok := defByKind[k]; ok {
		return def.name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Status returns the wire status code associated with the kind, or 0 for an
// unknown kind.
func (k ErrorKind) Status() int {
	return defByKind[k].status
}

// Kinds returns every defined kind in table order.
func Kinds() []ErrorKind {
	kinds := make([]ErrorKind, 0, len(errorTable))
	for _, def := range errorTable {
		kinds = append(kinds, def.kind)
	}
	return kinds
}

// -- Local errors --

var (
	// ErrUnknownStatus is matched by *UnknownStatusError.
	ErrUnknownStatus = errors.New("webdriver: unknown wire status")
	// ErrInvalidArgument reports a malformed call, e.g. a parent element that
	// belongs to another session.
	ErrInvalidArgument = errors.New("webdriver: invalid argument")
	// ErrNoSession is returned for commands issued before Init or after Delete.
	ErrNoSession = errors.New("webdriver: session is not initialized")
	// ErrSessionActive is returned when Init is called twice.
	ErrSessionActive = errors.New("webdriver: session already initialized or initializing")
	// ErrNoSessionID is returned when the handshake response carries no session id.
	ErrNoSessionID = errors.New("webdriver: can't determine session id")
	// ErrJQueryUnavailable is returned by the jquery strategy when neither a
	// jQuery source was configured nor the page ships its own copy.
	ErrJQueryUnavailable = errors.New("webdriver: jquery is not available in the page")
	// ErrDocumentNotReady is returned when the document ready script gives up.
	ErrDocumentNotReady = errors.New("webdriver: timeout exceeded while waiting for document ready")
)

// UnknownStatusError is returned when a server reports a status code missing
// from the taxonomy. It is a compatibility failure, not a protocol error.
type UnknownStatusError struct {
	Status int
}

func (e *UnknownStatusError) Error() string {
	return fmt.Sprintf("webdriver: no protocol error found for status: %d", e.Status)
}

func (e *UnknownStatusError) Is(target error) bool {
	return target == ErrUnknownStatus
}

// -- Taxonomy --

// Classify resolves a non-zero wire status to its kind.
func Classify(status int) (ErrorKind, error) {
	def, ok := defByStatus[status]
	if !ok {
		return 0, &UnknownStatusError{Status: status}
	}
	return def.kind, nil
}

// MustClassify is like Classify but panics on an unknown status.
func MustClassify(status int) ErrorKind {
	kind, err := Classify(status)
	if err != nil {
		panic(err)
	}
	return kind
}

// Instantiate builds the canonical error for kind, substituting every
// ${name} placeholder that has an entry in params. Unmatched placeholders are
// left as they are.
func Instantiate(kind ErrorKind, params map[string]string) *ProtocolError {
	def := defByKind[kind]
	e := &ProtocolError{
		Kind:     kind,
		Status:   def.status,
		template: def.template,
	}
	if len(params) > 0 {
		e.Params = make(map[string]string, len(params))
		for k, v := range params {
			e.Params[k] = v
		}
	}
	e.Message = render(def.template, e.Params)
	return e
}

var placeholderPattern = regexp.MustCompile(`\$\{(\w+)\}`)

// render substitutes the template's placeholders in a single pass, so text
// inside substituted values is never expanded again.
func render(template string, params map[string]string) string {
	if len(params) == 0 {
		return template
	}
	return placeholderPattern.ReplaceAllStringFunc(template, func(match string) string {
		value, ok := params[match[2:len(match)-1]]
		if !ok {
			return match
		}
		return `"` + value + `"`
	})
}

// ProtocolError is a failure reported by the remote end through a non-zero
// status.
type ProtocolError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Params  map[string]string
	// Detail holds the server's own message, if it sent one. It is
	// informational; Message is always the canonical text.
	Detail string

	template string
}

func (e *ProtocolError) Error() string {
	return e.Message
}

// Is matches another *ProtocolError of the same kind, so the Err* sentinels
// below work with errors.Is.
func (e *ProtocolError) Is(target error) bool {
	var other *ProtocolError
	if !errors.As(target, &other) {
		return false
	}
	return other.Kind == e.Kind
}

// WithParams returns a copy of e with params merged in and the message
// re-rendered from the canonical template.
func (e *ProtocolError) WithParams(params map[string]string) *ProtocolError {
	merged := make(map[string]string, len(e.Params)+len(params))
	for k, v := range e.Params {
		merged[k] = v
	}
	for k, v := range params {
		merged[k] = v
	}
	out := *e
	out.Params = merged
	out.Message = render(e.template, merged)
	return &out
}

// IsKind reports whether err wraps a protocol error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var pe *ProtocolError
	return errors.As(err, &pe) && pe.Kind == kind
}

// Sentinels for errors.Is checks against the most commonly handled kinds.
var (
	ErrNoSuchElement         error = Instantiate(KindNoSuchElement, nil)
	ErrStaleElementReference error = Instantiate(KindStaleElementReference, nil)
	ErrElementNotVisible     error = Instantiate(KindElementNotVisible, nil)
	ErrJavaScript            error = Instantiate(KindJavaScriptError, nil)
	ErrProtocolTimeout       error = Instantiate(KindTimeout, nil)
	ErrScriptTimeout         error = Instantiate(KindScriptTimeout, nil)
	ErrInvalidSelector       error = Instantiate(KindInvalidSelector, nil)
)

// -- Transport errors --

// TransportError wraps a failure to reach the server or read its answer.
type TransportError struct {
	Method string
	Path   string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("webdriver: %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// MalformedResponseError reports a response body that is not JSON even after
// control characters were stripped.
type MalformedResponseError struct {
	Path string
	Raw  string
	Err  error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("webdriver: can't parse json from response of %s: %v\n Raw response data: %s", e.Path, e.Err, e.Raw)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }
