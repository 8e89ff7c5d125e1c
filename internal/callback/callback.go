// Package callback posts connect/disconnect notifications to the
// controller and parses its optional response body.
//
// The outbound client follows the shape of Infisical-kubernetes-operator's
// internal/api package: a shared *resty.Client and one function per call
// kind. Unlike that package this one returns no errors: it classifies
// failures (timeout vs network vs non-2xx) into Result because the
// connect handler maps each to a distinct HTTP status for the client.
package callback

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"time"

	"github.com/go-resty/resty/v2"
)

// Reason enumerates the disconnect reasons a disconnect payload may
// carry.
type Reason string

// Disconnect reasons recognized by the controller.
const (
	ReasonClientClosed Reason = "client_closed"
	ReasonServerClosed Reason = "server_closed"
	ReasonError        Reason = "error"
)

// ErrorType classifies a failed callback.
type ErrorType string

// Failure classifications. Exactly one is set when Result.Success is
// false.
const (
	ErrorTimeout   ErrorType = "timeout"
	ErrorNetwork   ErrorType = "network"
	ErrorHTTPError ErrorType = "http_error"
)

// RequestInfo is the request snapshot embedded in every callback payload.
type RequestInfo struct {
	URL     string              `json:"url"`
	Headers map[string][]string `json:"headers"`
}

// ConnectPayload is the body of a connect callback.
type ConnectPayload struct {
	Action  string      `json:"action"`
	Token   string      `json:"token"`
	Request RequestInfo `json:"request"`
}

// DisconnectPayload is the body of a disconnect callback.
type DisconnectPayload struct {
	Action  string      `json:"action"`
	Reason  Reason      `json:"reason"`
	Token   string      `json:"token"`
	Request RequestInfo `json:"request"`
}

// Event is the optional first event a connect callback response may
// piggy-back.
type Event struct {
	Name string `json:"name,omitempty"`
	Data string `json:"data"`
}

// ResponseBody is the lenient, optional body a connect callback response
// may carry. A zero value (both fields unset) is a valid, empty body —
// distinct from a body that failed to parse at all, which callers see as
// a nil *ResponseBody on Result.
type ResponseBody struct {
	Event *Event `json:"event,omitempty"`
	Close bool   `json:"close,omitempty"`
}

// Result is the outcome of a single callback POST.
type Result struct {
	Success      bool
	StatusCode   int // set whenever a response was received, success or not
	ErrorType    ErrorType
	ResponseBody *ResponseBody // non-nil only on success with a body that parsed
}

// Client posts connect/disconnect payloads to a single configured
// controller URL.
type Client struct {
	http *resty.Client
	url  string
	log  *slog.Logger
}

// New creates a Client posting to url with the given per-request
// timeout. The timeout covers the whole request including body read, per
// spec §4.C.
func New(url string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		http: resty.New().SetTimeout(timeout),
		url:  url,
		log:  log,
	}
}

// Connect posts a connect payload and returns the classified result.
func (c *Client) Connect(ctx context.Context, token string, req RequestInfo) Result {
	payload := ConnectPayload{Action: "connect", Token: token, Request: req}
	return c.post(ctx, payload, token, "connect")
}

// Disconnect posts a disconnect payload and returns the classified
// result. The caller awaits this (per spec §9's Open Question
// resolution) and only logs failures; it never retries.
func (c *Client) Disconnect(ctx context.Context, token string, reason Reason, req RequestInfo) Result {
	payload := DisconnectPayload{Action: "disconnect", Reason: reason, Token: token, Request: req}
	result := c.post(ctx, payload, token, "disconnect")

	// Disconnect-callback response bodies are accepted but ignored; any
	// event/close in them is logged at warn level as informational.
	if result.Success && result.ResponseBody != nil &&
		(result.ResponseBody.Event != nil || result.ResponseBody.Close) {
		c.log.Warn("disconnect callback response body ignored",
			"token", token, "action", "disconnect")
	}

	return result
}

func (c *Client) post(ctx context.Context, payload any, token, action string) Result {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.url)

	if err != nil {
		return Result{ErrorType: classifyTransportError(ctx, err)}
	}

	status := resp.StatusCode()

	if resp.IsError() {
		return Result{StatusCode: status, ErrorType: ErrorHTTPError}
	}

	body, parseErr := parseResponseBody(resp.Body())
	if parseErr != nil {
		c.log.Error("callback response body did not parse", "token", token, "action", action, "error", parseErr)
		return Result{Success: true, StatusCode: status}
	}

	return Result{Success: true, StatusCode: status, ResponseBody: body}
}

// classifyTransportError distinguishes a deadline expiry from any other
// transport-level failure (connection refused, DNS failure, TLS error,
// reset before headers).
func classifyTransportError(ctx context.Context, err error) ErrorType {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrorTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTimeout
	}
	if ctx.Err() == context.DeadlineExceeded {
		return ErrorTimeout
	}
	return ErrorNetwork
}

// parseResponseBody applies the lenient parsing rules of spec §4.C:
//   - not a JSON object, or parse fails entirely -> error (caller treats
//     the body as absent and logs).
//   - wrong-typed fields are dropped individually rather than failing
//     the whole body.
//   - a valid, empty object returns a non-nil, zero-valued *ResponseBody
//     so callers can tell "parsed, no action" from "unparseable".
func parseResponseBody(raw []byte) (*ResponseBody, error) {
	raw = trimSpace(raw)
	if len(raw) == 0 {
		// No body at all is not a parse failure; there is simply
		// nothing to apply.
		return &ResponseBody{}, nil
	}

	var generic map[string]json.RawMessage
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	body := &ResponseBody{}

	if rawEvent, ok := generic["event"]; ok {
		var ev Event
		if err := json.Unmarshal(rawEvent, &ev); err == nil {
			body.Event = &ev
		}
		// Wrong-typed event: drop it, keep the rest of the body.
	}

	if rawClose, ok := generic["close"]; ok {
		var close bool
		if err := json.Unmarshal(rawClose, &close); err == nil {
			body.Close = close
		}
		// Wrong-typed close: drop it, keep the rest of the body.
	}

	return body, nil
}

func trimSpace(b []byte) []byte {
	start, end := 0, len(b)
	for start < end && isSpace(b[start]) {
		start++
	}
	for end > start && isSpace(b[end-1]) {
		end--
	}
	return b[start:end]
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}
