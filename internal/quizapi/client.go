// Package quizapi is the HTTP client for the quiz attempt endpoints.
package quizapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"

	"github.com/quizmaster/quizmaster/internal/attempt"
)

const DefaultAttemptPath = "/api/user/attempt_quiz/{quizID}/attempt"

type Config struct {
	BaseURL     string
	AttemptPath string // must contain {quizID}
	Timeout     time.Duration
	// Transport is the base round tripper; nil means http.DefaultTransport.
	Transport http.RoundTripper
}

// Client talks to the backend on behalf of one credential.
type Client struct {
	http        *http.Client
	baseURL     string
	attemptPath string
}

var _ attempt.API = (*Client)(nil)

// New builds a client that sends the token from creds as a bearer token on
// every request. A nil creds sends no Authorization header.
func New(cfg Config, creds oauth2.TokenSource) *Client {
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	h := &http.Client{Transport: base}
	if creds != nil {
		h = &http.Client{Transport: &oauth2.Transport{Source: creds, Base: base}}
	}
	if cfg.Timeout > 0 {
		h.Timeout = cfg.Timeout
	}
	p := cfg.AttemptPath
	if p == "" {
		p = DefaultAttemptPath
	}
	return &Client{
		http:        h,
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		attemptPath: p,
	}
}

// StaticToken wraps a fixed bearer token as a credential.
func StaticToken(token string) oauth2.TokenSource {
	if token == "" {
		return nil
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

func (c *Client) attemptURL(quizID string) string {
	return c.baseURL + strings.ReplaceAll(c.attemptPath, "{quizID}", url.PathEscape(quizID))
}

type loadResponse struct {
	Quiz          attempt.Quiz       `json:"quiz"`
	Questions     []attempt.Question `json:"questions"`
	StartDateTime *attempt.Timestamp `json:"quiz_start_datetime,omitempty"`
	EndDateTime   *attempt.Timestamp `json:"quiz_end_datetime,omitempty"`
}

// LoadAttempt fetches the quiz metadata and its questions.
func (c *Client) LoadAttempt(ctx context.Context, quizID string) (attempt.Attempt, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.attemptURL(quizID), nil)
	if err != nil {
		return attempt.Attempt{}, errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	var out loadResponse
	if err := c.do(req, &out); err != nil {
		return attempt.Attempt{}, err
	}
	// Some backends report the window beside the quiz rather than in it.
	if out.Quiz.StartDateTime == nil {
		out.Quiz.StartDateTime = out.StartDateTime
	}
	if out.Quiz.EndDateTime == nil {
		out.Quiz.EndDateTime = out.EndDateTime
	}
	if out.Questions == nil {
		out.Questions = []attempt.Question{}
	}
	return attempt.Attempt{Quiz: out.Quiz, Questions: out.Questions}, nil
}

// SubmitAttempt posts the answers and returns the grading result.
func (c *Client) SubmitAttempt(ctx context.Context, quizID string, payload attempt.Payload) (attempt.Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return attempt.Result{}, errors.Wrap(err, "encode answers")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.attemptURL(quizID), bytes.NewReader(body))
	if err != nil {
		return attempt.Result{}, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	var out attempt.Result
	if err := c.do(req, &out); err != nil {
		return attempt.Result{}, err
	}
	return out, nil
}

func (c *Client) do(req *http.Request, out interface{}) error {
	res, err := c.http.Do(req)
	if err != nil {
		return &Error{Op: req.Method + " " + req.URL.Path, Err: err}
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 4<<20))
	if err != nil {
		return &Error{Op: req.Method + " " + req.URL.Path, Err: err}
	}
	if res.StatusCode/100 != 2 {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &msg)
		return &Error{Op: req.Method + " " + req.URL.Path, Status: res.StatusCode, Message: msg.Message}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decode %s response", req.URL.Path)
	}
	return nil
}

// Error is a failed backend call. Status is zero for transport failures.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

var _ attempt.APIError = (*Error)(nil)

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	if e.Message != "" {
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

func (e *Error) Unwrap() error         { return e.Err }
func (e *Error) ServerMessage() string { return e.Message }
func (e *Error) Network() bool         { return e.Err != nil }
