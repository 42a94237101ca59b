// File: pkg/webdriver/waits.go
package webdriver

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
	"time"

	"github.com/xkilldash9x/scalpel-wd/pkg/wait"
)

// WaitFor polls probe with the session's poll interval. A zero opts.Timeout
// falls back to the waitFor timeout of the session.
func (s *Session) WaitFor(ctx context.Context, probe wait.Probe, opts wait.Options) error {
	if opts.Timeout <= 0 {
		opts.Timeout = s.waitBudget(TimeoutWaitFor)
	}
	if opts.Interval <= 0 {
		opts.Interval = s.pollInterval
	}
	return wait.For(ctx, probe, opts)
}

// WaitForElement polls until selector matches and returns the first match.
// With NoError an expired wait returns nil, nil.
func (s *Session) WaitForElement(ctx context.Context, selector string, opts ...LocateOption) (el *Element, err error) {
	defer s.trace("WaitForElement", &err, selector)

	cfg := newLocateConfig(selector, true, opts)
	timeout := cfg.timeout
	if timeout <= 0 {
		timeout = s.waitBudget(TimeoutWaitForElement)
	}

	req := cfg.req
	req.NoError = true
	// Written by the probe goroutine; a late attempt may still store into it,
	// so it is only read after a successful wait.
	var match atomic.Pointer[Element]
	err = s.WaitFor(ctx, func(ctx context.Context) (bool, error) {
		found, err := s.Locate(ctx, req)
		if err != nil {
			return false, err
		}
		if len(found) == 0 {
			return false, nil
		}
		match.Store(found[0])
		return true, nil
	}, wait.Options{
		Timeout: timeout,
		Message: "waiting for element " + selector,
	})
	if err != nil {
		if cfg.req.NoError && errors.Is(err, wait.ErrTimeout) {
			return nil, nil
		}
		return nil, err
	}
	return match.Load(), nil
}

// WaitForElementAbsent returns once selector no longer matches a displayed
// element.
func (s *Session) WaitForElementAbsent(ctx context.Context, selector string, opts ...LocateOption) (err error) {
	defer s.trace("WaitForElementAbsent", &err, selector)

	cfg := newLocateConfig(selector, true, opts)
	req := cfg.req
	req.NoError = true
	found, err := s.Locate(ctx, req)
	if err != nil {
		return err
	}
	if len(found) == 0 {
		return nil
	}
	var waitOpts []LocateOption
	if cfg.timeout > 0 {
		waitOpts = append(waitOpts, WithTimeout(cfg.timeout))
	}
	if cfg.req.NoError {
		waitOpts = append(waitOpts, NoError())
	}
	return found[0].WaitForDisappear(ctx, waitOpts...)
}

// WaitForDisappear polls until the element is hidden or detached from the
// page. Only WithTimeout and NoError are honoured.
func (e *Element) WaitForDisappear(ctx context.Context, opts ...LocateOption) (err error) {
	defer e.trace("WaitForDisappear", &err)

	cfg := newLocateConfig("", true, opts)
	timeout := cfg.timeout
	if timeout <= 0 {
		timeout = e.session.waitBudget(TimeoutWaitForElement)
	}
	return e.session.WaitFor(ctx, func(ctx context.Context) (bool, error) {
		displayed, err := e.IsDisplayed(ctx)
		if IsKind(err, KindStaleElementReference) || IsKind(err, KindNoSuchElement) {
			return true, nil
		}
		if err != nil {
			return false, err
		}
		return !displayed, nil
	}, wait.Options{
		Timeout: timeout,
		NoError: cfg.req.NoError,
		Message: "waiting for element " + e.id + " to disappear",
	})
}

// WaitForElement polls until selector matches a descendant of e.
func (e *Element) WaitForElement(ctx context.Context, selector string, opts ...LocateOption) (*Element, error) {
	return e.session.WaitForElement(ctx, selector, scoped(opts, e)...)
}

// URLMatcher decides whether a page URL matches an expectation.
type URLMatcher interface {
	MatchURL(u string) bool
	String() string
}

type exactURL string

func (m exactURL) MatchURL(u string) bool { return string(m) == u }
func (m exactURL) String() string         { return string(m) }

type patternURL struct{ re *regexp.Regexp }

func (m patternURL) MatchURL(u string) bool { return m.re.MatchString(u) }
func (m patternURL) String() string         { return m.re.String() }

// URL matches one exact URL.
func URL(u string) URLMatcher { return exactURL(u) }

// URLPattern matches every URL the expression finds a match in.
func URLPattern(re *regexp.Regexp) URLMatcher { return patternURL{re: re} }

// URLWaitOptions tune WaitForURLChange.
type URLWaitOptions struct {
	// OmitQueryString compares URLs without their query strings.
	OmitQueryString bool
	// Timeout overrides the waitForUrlChange timeout of the session.
	Timeout time.Duration
}

func stripQuery(u string) string {
	if i := strings.IndexByte(u, '?'); i >= 0 {
		return u[:i]
	}
	return u
}

// WaitForURLChange polls until the current URL no longer matches from and
// matches to. Either matcher may be nil, but not both.
func (s *Session) WaitForURLChange(ctx context.Context, from, to URLMatcher, opts URLWaitOptions) (err error) {
	defer s.trace("WaitForURLChange", &err, matcherString(from), matcherString(to))

	if from == nil && to == nil {
		return fmt.Errorf("%w: both old and new url are empty", ErrInvalidArgument)
	}
	if exact, ok := to.(exactURL); ok && opts.OmitQueryString {
		to = exactURL(stripQuery(string(exact)))
	}

	msg := "waiting for url change"
	if from != nil {
		msg += " from " + from.String()
	}
	if to != nil {
		msg += " to " + to.String()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = s.waitBudget(TimeoutWaitForURLChange)
	}

	return s.WaitFor(ctx, func(ctx context.Context) (bool, error) {
		current, err := s.GetURL(ctx)
		if err != nil {
			return false, err
		}
		if opts.OmitQueryString {
			current = stripQuery(current)
		}
		left := from == nil || !from.MatchURL(current)
		arrived := to == nil || to.MatchURL(current)
		return left && arrived, nil
	}, wait.Options{Timeout: timeout, Message: msg})
}

func matcherString(m URLMatcher) string {
	if m == nil {
		return ""
	}
	return m.String()
}

// WaitForRedirect polls until the current URL matches to.
func (s *Session) WaitForRedirect(ctx context.Context, to URLMatcher, opts URLWaitOptions) error {
	if to == nil {
		return fmt.Errorf("%w: redirect target is empty", ErrInvalidArgument)
	}
	return s.WaitForURLChange(ctx, nil, to, opts)
}

// WaitForDocumentReady waits for jQuery's document ready inside the page.
// The page-side timer uses the waitFor timeout of the session.
func (s *Session) WaitForDocumentReady(ctx context.Context) (err error) {
	defer s.trace("WaitForDocumentReady", &err)

	if err := s.ensureJQuery(ctx); err != nil {
		return err
	}
	raw, err := s.ExecuteAsync(ctx, documentReadyScript, s.waitBudget(TimeoutWaitFor).Milliseconds())
	if err != nil {
		return err
	}
	if raw.IsNull() {
		return errors.New("webdriver: unexpected result while waiting for document ready: null")
	}
	ready, decodeErr := raw.Bool()
	switch {
	case decodeErr == nil && ready:
		return nil
	case decodeErr == nil:
		return ErrDocumentNotReady
	default:
		return fmt.Errorf("webdriver: unexpected result while waiting for document ready: %s", string(raw))
	}
}

// IsTimeout reports whether err is a client-side wait timeout or one of the
// protocol timeout kinds.
func IsTimeout(err error) bool {
	return errors.Is(err, wait.ErrTimeout) || IsKind(err, KindTimeout) || IsKind(err, KindScriptTimeout)
}
