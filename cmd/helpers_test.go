// File: cmd/helpers_test.go
package cmd

import (
	"bytes"
	"context"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	json "github.com/json-iterator/go"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/scalpel-wd/internal/observability"
)

const (
	testSessionID = "s1"
	sessionPrefix = "/wd/hub/session/" + testSessionID
)

// wireServer is a minimal JSON wire protocol endpoint serving one session.
type wireServer struct {
	srv *httptest.Server

	mu       sync.Mutex
	requests []string
	bodies   map[string]map[string]any
}

func newWireServer(t *testing.T) *wireServer {
	t.Helper()
	w := &wireServer{bodies: make(map[string]map[string]any)}
	w.srv = httptest.NewServer(http.HandlerFunc(w.serve))
	t.Cleanup(w.srv.Close)
	return w
}

func (w *wireServer) serve(rw http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path
	raw, _ := io.ReadAll(r.Body)
	w.mu.Lock()
	w.requests = append(w.requests, key)
	if len(raw) > 0 {
		var body map[string]any
		if json.Unmarshal(raw, &body) == nil {
			w.bodies[key] = body
		}
	}
	w.mu.Unlock()

	rw.Header().Set("Content-Type", "application/json;charset=UTF-8")
	switch key {
	case "GET /wd/hub/status":
		writeValue(rw, map[string]any{"build": map[string]any{"version": "2.53.1"}})
	case "POST /wd/hub/session":
		_, _ = io.WriteString(rw, `{"status":0,"sessionId":"`+testSessionID+`","value":{}}`)
	case "GET " + sessionPrefix + "/url":
		writeValue(rw, "http://example.test/")
	case "GET " + sessionPrefix + "/title":
		writeValue(rw, "Example Domain")
	case "POST " + sessionPrefix + "/element":
		writeValue(rw, map[string]string{"ELEMENT": "e1"})
	case "POST " + sessionPrefix + "/elements":
		writeValue(rw, []map[string]string{{"ELEMENT": "e1"}, {"ELEMENT": "e2"}})
	case "GET " + sessionPrefix + "/element/e1/text":
		writeValue(rw, "first")
	case "GET " + sessionPrefix + "/element/e2/text":
		writeValue(rw, "second")
	case "POST " + sessionPrefix + "/execute":
		writeValue(rw, 42)
	case "GET " + sessionPrefix + "/screenshot":
		writeValue(rw, "iVBORw0KGgo=")
	default:
		if strings.HasPrefix(r.URL.Path, sessionPrefix) {
			writeValue(rw, nil)
			return
		}
		_, _ = io.WriteString(rw, `{"status":9,"value":{"message":"unknown command"}}`)
	}
}

func writeValue(rw http.ResponseWriter, value any) {
	raw, _ := json.Marshal(map[string]any{"status": 0, "value": value})
	_, _ = rw.Write(raw)
}

func (w *wireServer) hostPort(t *testing.T) (string, string) {
	t.Helper()
	host, port, err := net.SplitHostPort(strings.TrimPrefix(w.srv.URL, "http://"))
	require.NoError(t, err)
	return host, port
}

func (w *wireServer) args(t *testing.T, args ...string) []string {
	host, port := w.hostPort(t)
	return append([]string{"--host", host, "--port", port, "--log-level", "error"}, args...)
}

func (w *wireServer) saw(key string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, r := range w.requests {
		if r == key {
			return true
		}
	}
	return false
}

func (w *wireServer) body(key string) map[string]any {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bodies[key]
}

// executeCommand runs a pristine command tree with args and returns stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)

	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}


func itoa(n int) string { return strconv.Itoa(n) }
