// File: pkg/webdriver/locator.go
package webdriver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"
)

// ChainStep is one traversal applied to a jquery result set, e.g.
// {Method: "closest", Args: ["form"]}.
type ChainStep struct {
	Method string `json:"method"`
	Args   []any  `json:"args"`
}

// Step builds a ChainStep.
func Step(method string, args ...any) ChainStep {
	if args == nil {
		args = []any{}
	}
	return ChainStep{Method: method, Args: args}
}

// LocatorRequest describes one element lookup.
type LocatorRequest struct {
	Selector string
	// Using names the strategy; empty means the session default.
	Using string
	// Parent scopes the lookup to the element's subtree.
	Parent *Element
	Single bool
	// Chain and CSSFilter are only understood by script strategies.
	Chain     []ChainStep
	CSSFilter map[string]string
	// NoError turns a missing single element into a nil result.
	NoError bool
}

// Strategy resolves a request to element handles. It returns an empty slice,
// not an error, when nothing matches.
type Strategy func(ctx context.Context, s *Session, req LocatorRequest) ([]*Element, error)

// StrategyRegistry maps strategy names to resolvers. Names without an entry
// are sent to the server as native strategies.
type StrategyRegistry struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewStrategyRegistry creates a registry holding the given strategies.
func NewStrategyRegistry(builtin map[string]Strategy) *StrategyRegistry {
	r := &StrategyRegistry{strategies: make(map[string]Strategy, len(builtin))}
	for name, fn := range builtin {
		r.strategies[name] = fn
	}
	return r
}

// Register adds or replaces a strategy.
func (r *StrategyRegistry) Register(name string, fn Strategy) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.strategies[name] = fn
}

// Unregister removes a strategy, making the name native again.
func (r *StrategyRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.strategies, name)
}

// Lookup returns the strategy registered under name.
func (r *StrategyRegistry) Lookup(name string) (Strategy, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.strategies[name]
	return fn, ok
}

// Names lists the registered strategies in sorted order.
func (r *StrategyRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.strategies))
	for name := range r.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Strategies is the process-wide strategy registry.
var Strategies = NewStrategyRegistry(map[string]Strategy{
	UsingJQuery: jqueryStrategy,
})

// -- Options --

type locateConfig struct {
	req     LocatorRequest
	timeout time.Duration
}

// LocateOption adjusts a lookup made through Get, GetList or a wait.
type LocateOption func(*locateConfig)

// Using selects the locator strategy.
func Using(strategy string) LocateOption {
	return func(c *locateConfig) { c.req.Using = strategy }
}

// NoError makes a missing element yield nil instead of NoSuchElement, and an
// expired wait yield nil instead of a timeout error.
func NoError() LocateOption {
	return func(c *locateConfig) { c.req.NoError = true }
}

// WithChain appends traversal steps for the jquery strategy.
func WithChain(steps ...ChainStep) LocateOption {
	return func(c *locateConfig) { c.req.Chain = append(c.req.Chain, steps...) }
}

// WithCSSFilter keeps only elements whose computed css matches every entry.
// Only the jquery strategy honours it.
func WithCSSFilter(filter map[string]string) LocateOption {
	return func(c *locateConfig) {
		if c.req.CSSFilter == nil {
			c.req.CSSFilter = make(map[string]string, len(filter))
		}
		for k, v := range filter {
			c.req.CSSFilter[k] = v
		}
	}
}

// Within scopes the lookup to parent's subtree.
func Within(parent *Element) LocateOption {
	return func(c *locateConfig) { c.req.Parent = parent }
}

// WithTimeout overrides the budget of a wait. Plain lookups ignore it.
func WithTimeout(d time.Duration) LocateOption {
	return func(c *locateConfig) { c.timeout = d }
}

func newLocateConfig(selector string, single bool, opts []LocateOption) locateConfig {
	c := locateConfig{req: LocatorRequest{Selector: selector, Single: single}}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// -- Lookups --

// Get returns the first element matching selector. Without NoError a miss is
// a NoSuchElement error; with it the result is nil.
func (s *Session) Get(ctx context.Context, selector string, opts ...LocateOption) (el *Element, err error) {
	defer s.trace("Get", &err, selector)
	cfg := newLocateConfig(selector, true, opts)
	elements, err := s.Locate(ctx, cfg.req)
	if err != nil || len(elements) == 0 {
		return nil, err
	}
	return elements[0], nil
}

// GetList returns every element matching selector. A miss is an empty slice.
func (s *Session) GetList(ctx context.Context, selector string, opts ...LocateOption) (els []*Element, err error) {
	defer s.trace("GetList", &err, selector)
	cfg := newLocateConfig(selector, false, opts)
	return s.Locate(ctx, cfg.req)
}

// Locate resolves req. Single lookups return at most one element; plural
// lookups return a non-nil, possibly empty slice.
func (s *Session) Locate(ctx context.Context, req LocatorRequest) ([]*Element, error) {
	if _, err := s.prefix(); err != nil {
		return nil, err
	}
	if req.Using == "" {
		req.Using = s.using
	}
	if req.Parent != nil {
		if req.Parent.session != s || req.Parent.id == "" {
			return nil, fmt.Errorf("%w: parent element belongs to another session or has no id", ErrInvalidArgument)
		}
	}

	var (
		elements []*Element
		err      error
	)
	if strategy, ok := Strategies.Lookup(req.Using); ok {
		elements, err = strategy(ctx, s, req)
	} else {
		elements, err = s.locateNative(ctx, req)
	}

	if err != nil {
		if IsKind(err, KindNoSuchElement) {
			if !req.Single {
				return []*Element{}, nil
			}
			if req.NoError {
				return nil, nil
			}
		}
		return nil, parametrize(err, req)
	}

	if len(elements) == 0 {
		if !req.Single {
			return []*Element{}, nil
		}
		if req.NoError {
			return nil, nil
		}
		return nil, Instantiate(KindNoSuchElement, locatorParams(req))
	}
	if req.Single {
		elements = elements[:1]
	}
	return elements, nil
}

func locatorParams(req LocatorRequest) map[string]string {
	return map[string]string{"element": req.Selector, "using": req.Using}
}

// parametrize renders a protocol error with the selector and strategy of the
// failed lookup. Other errors pass through.
func parametrize(err error, req LocatorRequest) error {
	var pe *ProtocolError
	if !errors.As(err, &pe) {
		return err
	}
	return pe.WithParams(locatorParams(req))
}

func (s *Session) locateNative(ctx context.Context, req LocatorRequest) ([]*Element, error) {
	path := "/element"
	if req.Parent != nil {
		path += "/" + url.PathEscape(req.Parent.id) + "/element"
	}
	if !req.Single {
		path += "s"
	}
	value := req.Selector
	if req.Using == UsingCSS {
		value = SweetenCSS(value)
	}

	raw, err := s.command(ctx, Command{
		Path:   path,
		Method: http.MethodPost,
		Body:   map[string]string{"using": req.Using, "value": value},
	})
	if err != nil {
		return nil, err
	}
	return s.decodeElements(path, raw, req.Single)
}

// decodeElements reads one element reference or an array of them.
func (s *Session) decodeElements(path string, raw RawValue, single bool) ([]*Element, error) {
	if raw.IsNull() {
		return nil, nil
	}
	var refs []elementRef
	if single {
		var ref elementRef
		if err := raw.Decode(&ref); err != nil {
			return nil, &MalformedResponseError{Path: path, Raw: string(raw), Err: err}
		}
		refs = append(refs, ref)
	} else if err := raw.Decode(&refs); err != nil {
		return nil, &MalformedResponseError{Path: path, Raw: string(raw), Err: err}
	}

	elements := make([]*Element, 0, len(refs))
	for _, ref := range refs {
		if id := ref.id(); id != "" {
			elements = append(elements, newElement(s, id))
		}
	}
	return elements, nil
}

// -- jquery strategy --

func jqueryStrategy(ctx context.Context, s *Session, req LocatorRequest) ([]*Element, error) {
	if err := s.ensureGetElements(ctx); err != nil {
		return nil, err
	}

	var parent any
	if req.Parent != nil {
		parent = req.Parent
	}
	var chain any
	if len(req.Chain) > 0 {
		chain = req.Chain
	}
	var filter any
	if len(req.CSSFilter) > 0 {
		filter = req.CSSFilter
	}

	raw, err := s.execute(ctx, "/execute", callGetElementsScript, []any{req.Selector, parent, chain, filter})
	if err != nil {
		return nil, err
	}
	return s.decodeElements("/execute", raw, false)
}

// ensureJQuery makes the helper jQuery global available in the page.
func (s *Session) ensureJQuery(ctx context.Context) error {
	if ok, err := s.executeBool(ctx, checkJQueryScript); err != nil || ok {
		return err
	}
	script := aliasJQueryScript
	if s.jquerySource != "" {
		script = loadJQueryScript(s.jquerySource)
	}
	ok, err := s.executeBool(ctx, script)
	if err != nil {
		return err
	}
	if !ok {
		return ErrJQueryUnavailable
	}
	s.logger.Debug("Injected jquery helper")
	return nil
}

// ensureGetElements injects the lookup helper on top of jQuery.
func (s *Session) ensureGetElements(ctx context.Context) error {
	if err := s.ensureJQuery(ctx); err != nil {
		return err
	}
	if ok, err := s.executeBool(ctx, checkGetElementsScript); err != nil || ok {
		return err
	}
	_, err := s.execute(ctx, "/execute", defineGetElementsScript, nil)
	return err
}

func (s *Session) executeBool(ctx context.Context, script string) (bool, error) {
	raw, err := s.execute(ctx, "/execute", script, nil)
	if err != nil {
		return false, err
	}
	if raw.IsNull() {
		return false, nil
	}
	return raw.Bool()
}
