// File: pkg/webdriver/session.go

// Package webdriver is a client for the JSON wire protocol spoken by
// Selenium-era browser automation servers.
//
// A Session owns one remote browser session. Element lookups go through the
// locator (native strategies or the script-injected jquery strategy), leaf
// commands go straight to the Transport, and the Wait* helpers wrap either in
// a bounded polling loop.
package webdriver

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Defaults applied by New for zero-valued Options fields.
const (
	DefaultHost         = "127.0.0.1"
	DefaultPort         = 4444
	DefaultBasePath     = "/wd/hub"
	DefaultUsing        = UsingCSS
	DefaultPollInterval = 20 * time.Millisecond
)

// DefaultDesiredCapabilities returns the capabilities sent when none are
// configured.
func DefaultDesiredCapabilities() map[string]any {
	return map[string]any{
		"browserName":       "firefox",
		"version":           "",
		"javascriptEnabled": true,
		"platform":          "ANY",
	}
}

// CallTracer receives one record per public Session or Element call when
// method call tracing is enabled.
type CallTracer interface {
	TraceCall(scope, method string, args []any, err error)
}

// Options configures a Session.
type Options struct {
	Host     string
	Port     int
	BasePath string

	// DesiredCapabilities are merged over DefaultDesiredCapabilities.
	DesiredCapabilities map[string]any
	// Timeouts are merged over DefaultTimeouts.
	Timeouts map[string]time.Duration

	// Using is the locator strategy applied when a lookup names none.
	Using        string
	PollInterval time.Duration

	// JQuerySource is injected by the jquery strategy when the page has no
	// helper copy yet. When empty the page's own window.jQuery is used.
	JQuerySource string

	Logger   *zap.Logger
	Client   HTTPDoer
	Limiter  *rate.Limiter
	Observer CommandObserver
	Tracer   CallTracer
}

type sessionState int

const (
	stateIdle sessionState = iota
	stateInitializing
	stateActive
	stateDeleted
)

// Session is a handle on one remote browser session.
//
// Init and Delete are serialised internally. Other commands may be issued
// from several goroutines, but their order at the server is then undefined.
type Session struct {
	transport    *Transport
	logger       *zap.Logger
	tracer       CallTracer
	capabilities map[string]any
	using        string
	pollInterval time.Duration
	jquerySource string

	mu       sync.RWMutex
	state    sessionState
	id       string
	timeouts map[string]time.Duration
}

// New creates an uninitialized session. No request is made until Init.
func New(opts Options) *Session {
	if opts.Host == "" {
		opts.Host = DefaultHost
	}
	if opts.Port == 0 {
		opts.Port = DefaultPort
	}
	if opts.BasePath == "" {
		opts.BasePath = DefaultBasePath
	}
	if opts.Using == "" {
		opts.Using = DefaultUsing
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	caps := DefaultDesiredCapabilities()
	for k, v := range opts.DesiredCapabilities {
		caps[k] = v
	}
	timeouts := DefaultTimeouts()
	for k, v := range opts.Timeouts {
		timeouts[k] = v
	}

	basePath := "/" + strings.Trim(opts.BasePath, "/")
	if basePath == "/" {
		basePath = ""
	}
	baseURL := (&url.URL{
		Scheme: "http",
		Host:   net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
		Path:   basePath,
	}).String()

	return &Session{
		transport: NewTransport(TransportConfig{
			BaseURL:  baseURL,
			Client:   opts.Client,
			Logger:   logger,
			Limiter:  opts.Limiter,
			Observer: opts.Observer,
		}),
		logger:       logger.Named("webdriver"),
		tracer:       opts.Tracer,
		capabilities: caps,
		using:        opts.Using,
		pollInterval: opts.PollInterval,
		jquerySource: opts.JQuerySource,
		timeouts:     timeouts,
	}
}

// ID returns the server-issued session id, or "" before Init.
func (s *Session) ID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.id
}

// Transport returns the transport the session issues commands through.
func (s *Session) Transport() *Transport { return s.transport }

// Init performs the handshake and pushes the configured timeouts to the
// server. It may be called once; a failed handshake can be retried.
func (s *Session) Init(ctx context.Context) (err error) {
	defer s.trace("Init", &err)

	s.mu.Lock()
	if s.state != stateIdle {
		s.mu.Unlock()
		return ErrSessionActive
	}
	s.state = stateInitializing
	s.mu.Unlock()

	id, err := s.handshake(ctx)

	s.mu.Lock()
	if err != nil {
		s.state = stateIdle
		s.mu.Unlock()
		return err
	}
	s.id = id
	s.state = stateActive
	timeouts := s.timeoutsLocked()
	s.mu.Unlock()

	s.logger.Info("Session initialized", zap.String("session_id", id))
	return s.SetTimeouts(ctx, timeouts)
}

func (s *Session) handshake(ctx context.Context) (string, error) {
	resp, err := s.transport.Execute(ctx, "/session", Command{
		Method:   http.MethodPost,
		Body:     map[string]any{"desiredCapabilities": s.capabilities},
		WantsRaw: true,
	})
	if err != nil {
		return "", err
	}
	if resp.SessionID != "" {
		return resp.SessionID, nil
	}
	if id := sessionIDFromLocation(resp.Header.Get("Location")); id != "" {
		return id, nil
	}
	return "", ErrNoSessionID
}

// sessionIDFromLocation returns the final path segment of a Location header.
func sessionIDFromLocation(location string) string {
	if location == "" {
		return ""
	}
	if u, err := url.Parse(location); err == nil {
		location = u.Path
	}
	location = strings.TrimRight(location, "/")
	if i := strings.LastIndex(location, "/"); i >= 0 {
		location = location[i+1:]
	}
	return location
}

// Delete ends the session. Every later command fails with ErrNoSession.
func (s *Session) Delete(ctx context.Context) (err error) {
	defer s.trace("Delete", &err)

	if _, err = s.command(ctx, Command{Method: http.MethodDelete}); err != nil {
		return err
	}
	s.mu.Lock()
	id := s.id
	s.id = ""
	s.state = stateDeleted
	s.mu.Unlock()

	s.logger.Info("Session deleted", zap.String("session_id", id))
	return nil
}

// Status queries the server status endpoint. It needs no session.
func (s *Session) Status(ctx context.Context) (status map[string]any, err error) {
	defer s.trace("Status", &err)

	resp, err := s.transport.Execute(ctx, "", Command{Path: "/status", Method: http.MethodGet})
	if err != nil {
		return nil, err
	}
	err = resp.Value.Decode(&status)
	return status, err
}

// Capabilities returns the capabilities the server granted the session.
func (s *Session) Capabilities(ctx context.Context) (caps map[string]any, err error) {
	defer s.trace("Capabilities", &err)

	value, err := s.command(ctx, Command{Method: http.MethodGet})
	if err != nil {
		return nil, err
	}
	err = value.Decode(&caps)
	return caps, err
}

// Execute runs a synchronous script in the current frame. Element arguments
// are passed as element references.
func (s *Session) Execute(ctx context.Context, script string, args ...any) (value RawValue, err error) {
	defer s.trace("Execute", &err, script, args)
	return s.execute(ctx, "/execute", script, args)
}

// ExecuteAsync runs an asynchronous script. The script signals completion by
// calling its last argument.
func (s *Session) ExecuteAsync(ctx context.Context, script string, args ...any) (value RawValue, err error) {
	defer s.trace("ExecuteAsync", &err, script, args)
	return s.execute(ctx, "/execute_async", script, args)
}

func (s *Session) execute(ctx context.Context, path, script string, args []any) (RawValue, error) {
	if args == nil {
		args = []any{}
	}
	return s.command(ctx, Command{
		Path:   path,
		Method: http.MethodPost,
		Body:   map[string]any{"script": script, "args": args},
	})
}

// Do issues an arbitrary command under the session prefix.
func (s *Session) Do(ctx context.Context, cmd Command) (*Response, error) {
	prefix, err := s.prefix()
	if err != nil {
		return nil, err
	}
	return s.transport.Execute(ctx, prefix, cmd)
}

func (s *Session) prefix() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.state != stateActive {
		return "", ErrNoSession
	}
	return "/session/" + s.id, nil
}

// command issues cmd and returns its value.
func (s *Session) command(ctx context.Context, cmd Command) (RawValue, error) {
	resp, err := s.Do(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return resp.Value, nil
}

func (s *Session) trace(method string, err *error, args ...any) {
	if s.tracer == nil {
		return
	}
	s.tracer.TraceCall("Session", method, args, *err)
}

func (s *Session) String() string {
	return fmt.Sprintf("webdriver.Session(%s)", s.ID())
}
