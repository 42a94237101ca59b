// File: pkg/webdriver/helpers_test.go
package webdriver

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testSessionID = "sess-1"

// recordedRequest is a request as seen by the fake server.
type recordedRequest struct {
	Method        string
	Path          string
	Body          map[string]any
	RawBody       string
	Header        http.Header
	ContentLength int64
}

// fakeReply is what a handler answers with.
type fakeReply struct {
	HTTPStatus int
	Header     map[string]string
	Body       string
}

type fakeHandler func(req recordedRequest) fakeReply

// fakeServer emulates a JSON wire protocol endpoint mounted under /wd/hub.
type fakeServer struct {
	t   *testing.T
	srv *httptest.Server

	mu       sync.Mutex
	requests []recordedRequest
	handlers map[string]fakeHandler
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{t: t, handlers: make(map[string]fakeHandler)}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)

	f.handleAbs(http.MethodPost, "/wd/hub/session", func(recordedRequest) fakeReply {
		return fakeReply{Body: `{"status":0,"sessionId":"` + testSessionID + `","value":{}}`}
	})
	f.handle(http.MethodPost, "/timeouts", reply(nil))
	f.handle(http.MethodDelete, "", reply(nil))
	return f
}

func (f *fakeServer) serve(w http.ResponseWriter, r *http.Request) {
	raw, _ := io.ReadAll(r.Body)
	rec := recordedRequest{
		Method:        r.Method,
		Path:          r.URL.Path,
		RawBody:       string(raw),
		Header:        r.Header.Clone(),
		ContentLength: r.ContentLength,
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &rec.Body)
	}

	f.mu.Lock()
	f.requests = append(f.requests, rec)
	h, ok := f.handlers[r.Method+" "+r.URL.Path]
	f.mu.Unlock()

	out := fakeReply{Body: `{"status":9,"value":{"message":"unhandled ` + r.Method + ` ` + r.URL.Path + `"}}`}
	if ok {
		out = h(rec)
	}
	for k, v := range out.Header {
		w.Header().Set(k, v)
	}
	w.Header().Set("Content-Type", "application/json;charset=UTF-8")
	if out.HTTPStatus != 0 {
		w.WriteHeader(out.HTTPStatus)
	}
	_, _ = io.WriteString(w, out.Body)
}

// handle registers h for a path below the session prefix.
func (f *fakeServer) handle(method, path string, h fakeHandler) {
	f.handleAbs(method, "/wd/hub/session/"+testSessionID+path, h)
}

func (f *fakeServer) handleAbs(method, path string, h fakeHandler) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[method+" "+path] = h
}

// all returns every request received so far.
func (f *fakeServer) all() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

// requestsTo returns the requests received for a path below the session
// prefix.
func (f *fakeServer) requestsTo(method, path string) []recordedRequest {
	full := "/wd/hub/session/" + testSessionID + path
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedRequest
	for _, r := range f.requests {
		if r.Method == method && r.Path == full {
			out = append(out, r)
		}
	}
	return out
}

func (f *fakeServer) options() Options {
	u, err := url.Parse(f.srv.URL)
	require.NoError(f.t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(f.t, err)
	return Options{
		Host:   u.Hostname(),
		Port:   port,
		// Late wait probes may log after the test returns, which zaptest rejects.
		Logger: zap.NewNop(),
	}
}

// session returns an initialized session against the fake server.
func (f *fakeServer) session(mutate ...func(*Options)) *Session {
	f.t.Helper()
	opts := f.options()
	for _, m := range mutate {
		m(&opts)
	}
	s := New(opts)
	require.NoError(f.t, s.Init(context.Background()))
	return s
}

// reply answers with a success envelope carrying value.
func reply(value any) fakeHandler {
	body := okBody(value)
	return func(recordedRequest) fakeReply { return fakeReply{Body: body} }
}

// replyStatus answers with a failure envelope.
func replyStatus(status int, message string) fakeHandler {
	body := `{"status":` + strconv.Itoa(status) + `,"value":{"message":` + strconv.Quote(message) + `}}`
	return func(recordedRequest) fakeReply { return fakeReply{Body: body} }
}

func okBody(value any) string {
	raw, err := json.Marshal(map[string]any{"status": 0, "value": value})
	if err != nil {
		panic(err)
	}
	return string(raw)
}

// scriptRouter dispatches execute calls on a substring of the script.
type scriptRouter struct {
	mu     sync.Mutex
	routes []scriptRoute
	calls  []string
}

type scriptRoute struct {
	contains string
	h        fakeHandler
}

func (r *scriptRouter) on(contains string, h fakeHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes = append(r.routes, scriptRoute{contains: contains, h: h})
}

func (r *scriptRouter) handler(req recordedRequest) fakeReply {
	script, _ := req.Body["script"].(string)
	r.mu.Lock()
	r.calls = append(r.calls, script)
	routes := append([]scriptRoute(nil), r.routes...)
	r.mu.Unlock()
	for _, route := range routes {
		if strings.Contains(script, route.contains) {
			return route.h(req)
		}
	}
	return fakeReply{Body: `{"status":17,"value":{"message":"no route for script"}}`}
}

func (r *scriptRouter) scripts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

func elementRefs(ids ...string) []map[string]string {
	out := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, map[string]string{legacyElementKey: id})
	}
	return out
}
