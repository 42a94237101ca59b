// File: pkg/webdriver/transport.go
package webdriver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	json "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Command outcomes reported to a CommandObserver.
const (
	OutcomeOK            = "ok"
	OutcomeProtocolError = "protocol_error"
	OutcomeTransport     = "transport_error"
	OutcomeMalformed     = "malformed_response"
)

// HTTPDoer is the subset of *http.Client the transport needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// CommandObserver receives one notification per executed command.
type CommandObserver interface {
	ObserveCommand(method, outcome string, elapsed time.Duration)
}

// TransportConfig configures a Transport.
type TransportConfig struct {
	// BaseURL is the server root including any base path, e.g.
	// "http://127.0.0.1:4444/wd/hub".
	BaseURL string
	// Client performs the HTTP exchange. It must not follow redirects, or the
	// handshake cannot see the Location header.
	Client HTTPDoer
	Logger *zap.Logger
	// Limiter throttles outgoing commands when set.
	Limiter  *rate.Limiter
	Observer CommandObserver
}

// Transport executes wire protocol commands and normalises their envelopes.
//
// Commands are not serialised: callers that issue overlapping commands
// against one session get whatever order the server picks.
type Transport struct {
	baseURL  string
	client   HTTPDoer
	logger   *zap.Logger
	limiter  *rate.Limiter
	observer CommandObserver
}

// NewTransport creates a transport. A nil client gets a plain http.Client that
// does not follow redirects.
func NewTransport(cfg TransportConfig) *Transport {
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transport{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		client:   client,
		logger:   logger.Named("transport"),
		limiter:  cfg.Limiter,
		observer: cfg.Observer,
	}
}

// BaseURL returns the server root the transport talks to.
func (t *Transport) BaseURL() string { return t.baseURL }

// Execute sends cmd under prefix and decodes the response envelope.
func (t *Transport) Execute(ctx context.Context, prefix string, cmd Command) (*Response, error) {
	method := cmd.Method
	if method == "" {
		method = http.MethodPost
	}
	path := prefix + cmd.Path
	requestID := uuid.NewString()
	log := t.logger.With(
		zap.String("request_id", requestID),
		zap.String("method", method),
		zap.String("path", path),
	)

	start := time.Now()
	resp, outcome, err := t.roundTrip(ctx, method, path, requestID, cmd.Body)
	elapsed := time.Since(start)
	if t.observer != nil {
		t.observer.ObserveCommand(method, outcome, elapsed)
	}

	switch outcome {
	case OutcomeOK:
		log.Debug("Command completed", zap.Duration("duration", elapsed))
	case OutcomeProtocolError:
		log.Debug("Command failed with protocol error", zap.Duration("duration", elapsed), zap.Error(err))
	default:
		log.Warn("Command failed", zap.Duration("duration", elapsed), zap.String("outcome", outcome), zap.Error(err))
	}
	return resp, err
}

func (t *Transport) roundTrip(ctx context.Context, method, path, requestID string, body any) (*Response, string, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			return nil, OutcomeTransport, &TransportError{Method: method, Path: path, Err: err}
		}
	}

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, OutcomeTransport, &TransportError{Method: method, Path: path, Err: fmt.Errorf("marshal body: %w", err)}
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, t.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, OutcomeTransport, &TransportError{Method: method, Path: path, Err: err}
	}
	// An empty payload still goes out with an explicit zero length. net/http
	// only writes "Content-Length: 0" for a DELETE marked identity; GET never
	// carries one.
	req.ContentLength = int64(len(payload))
	if len(payload) == 0 {
		req.Body = http.NoBody
		if method == http.MethodDelete {
			req.TransferEncoding = []string{"identity"}
		}
	}
	req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", requestID)

	httpResp, err := t.client.Do(req)
	if err != nil {
		return nil, OutcomeTransport, &TransportError{Method: method, Path: path, Err: err}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, OutcomeTransport, &TransportError{Method: method, Path: path, Err: fmt.Errorf("read body: %w", err)}
	}

	resp, err := decodeEnvelope(path, raw)
	if err != nil {
		var pe *ProtocolError
		if errors.As(err, &pe) {
			return nil, OutcomeProtocolError, err
		}
		return nil, OutcomeMalformed, err
	}
	resp.Header = httpResp.Header
	resp.HTTPStatus = httpResp.StatusCode
	return resp, OutcomeOK, nil
}

// decodeEnvelope turns a raw body into a Response, or into the protocol error
// its status names.
func decodeEnvelope(path string, raw []byte) (*Response, error) {
	body := stripControl(raw)
	if len(bytes.TrimSpace(body)) == 0 {
		body = []byte("{}")
	}

	if !gjson.ValidBytes(body) {
		var probe any
		parseErr := json.Unmarshal(body, &probe)
		if parseErr == nil {
			parseErr = errors.New("invalid json")
		}
		return nil, &MalformedResponseError{Path: path, Raw: string(body), Err: parseErr}
	}

	resp := &Response{}
	if status := gjson.GetBytes(body, "status"); status.Exists() {
		resp.Status = int(status.Int())
	}
	if resp.Status != 0 {
		kind, err := Classify(resp.Status)
		if err != nil {
			return nil, err
		}
		pe := Instantiate(kind, nil)
		if msg := gjson.GetBytes(body, "value.message"); msg.Type == gjson.String {
			pe.Detail = msg.String()
		}
		return nil, pe
	}

	if value := gjson.GetBytes(body, "value"); value.Exists() {
		resp.Value = RawValue(value.Raw)
	}
	if id := gjson.GetBytes(body, "sessionId"); id.Type == gjson.String {
		resp.SessionID = id.String()
	}
	return resp, nil
}

// stripControl drops NUL and other C0 control bytes that some servers leak
// into their bodies. Tab, LF and CR are kept since JSON allows them as
// whitespace.
func stripControl(raw []byte) []byte {
	out := make([]byte, 0, len(raw))
	for _, b := range raw {
		if b < 0x20 && b != '\t' && b != '\n' && b != '\r' {
			continue
		}
		out = append(out, b)
	}
	return out
}
