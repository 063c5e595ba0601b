// Package api is the typed gateway to the TrustAudit server. It exposes
// one operation per server capability, injects the bearer credential, and
// maps HTTP statuses to the typed failures in errors.go.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/Ramjan-Shaikh/trustaudit/internal/auth"
	"github.com/Ramjan-Shaikh/trustaudit/internal/logger"
)

// Client talks to one TrustAudit server with one credential.
type Client struct {
	baseURL string
	cred    *auth.Credential
	http    *http.Client
}

// New creates a client. httpClient may be nil, in which case
// http.DefaultClient semantics apply.
func New(baseURL string, cred *auth.Credential, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		cred:    cred,
		http:    httpClient,
	}
}

type executeRequest struct {
	Prompt    string `json:"prompt"`
	SessionID string `json:"session_id,omitempty"`
}

// Execute submits one user turn. sessionID may be empty; the server then
// assigns a fresh session and returns its id.
func (c *Client) Execute(ctx context.Context, prompt, sessionID string) (*ExecuteResponse, error) {
	var out ExecuteResponse
	err := c.do(ctx, http.MethodPost, "/execute_task", nil, executeRequest{Prompt: prompt, SessionID: sessionID}, &out, true)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// History fetches the persisted transcript, oldest first. sessionID may
// be empty to fetch across sessions.
func (c *Client) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	q := url.Values{}
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/chat/history", q, nil, &out, true); err != nil {
		return nil, err
	}
	return out.Messages, nil
}

// Sessions lists recent chat sessions, most recent first.
func (c *Client) Sessions(ctx context.Context, limit int) ([]SessionSummary, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out SessionsResponse
	if err := c.do(ctx, http.MethodGet, "/chat/sessions", q, nil, &out, true); err != nil {
		return nil, err
	}
	return out.Sessions, nil
}

// ClearHistory deletes the transcript, scoped to sessionID when non-empty.
func (c *Client) ClearHistory(ctx context.Context, sessionID string) (*ClearHistoryResponse, error) {
	q := url.Values{}
	if sessionID != "" {
		q.Set("session_id", sessionID)
	}
	var out ClearHistoryResponse
	if err := c.do(ctx, http.MethodDelete, "/chat/history", q, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Reaudit asks the auditor to re-review an existing result node.
func (c *Client) Reaudit(ctx context.Context, resultID string) (*AuditResult, error) {
	q := url.Values{}
	q.Set("result_id", resultID)
	var out struct {
		Audit AuditResult `json:"audit"`
	}
	if err := c.do(ctx, http.MethodPost, "/audit_task", q, nil, &out, true); err != nil {
		return nil, err
	}
	return &out.Audit, nil
}

// FetchGraph returns the full knowledge-graph snapshot.
func (c *Client) FetchGraph(ctx context.Context) (*GraphSnapshot, error) {
	var out GraphSnapshot
	if err := c.do(ctx, http.MethodGet, "/memory", nil, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

type editNodeRequest struct {
	ID      string `json:"id"`
	Content string `json:"content"`
}

// EditNode overwrites one node's content and returns the updated node.
func (c *Client) EditNode(ctx context.Context, id, content string) (*GraphNode, error) {
	var out GraphNode
	if err := c.do(ctx, http.MethodPost, "/memory/edit", nil, editNodeRequest{ID: id, Content: content}, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// ClearGraph deletes every node and edge. Destructive; confirm upstream.
func (c *Client) ClearGraph(ctx context.Context) (*ClearGraphResponse, error) {
	var out ClearGraphResponse
	if err := c.do(ctx, http.MethodDelete, "/memory/clear", nil, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a bearer token. Form-encoded per the
// server's OAuth2 password flow; no bearer attached.
func (c *Client) Login(ctx context.Context, username, password string) (*Token, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/auth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out Token
	if err := c.send(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup creates an account. No bearer attached.
func (c *Client) Signup(ctx context.Context, username, password string) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodPost, "/auth/signup", nil, signupRequest{Username: username, Password: password}, &out, false); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the authenticated account.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out, true); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health pings the server.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	return c.do(ctx, http.MethodGet, "/health", nil, nil, &out, false)
}

// do builds and sends one request. out may be nil to discard the body.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, authed bool) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if authed {
		if err := c.cred.Authorize(req); err != nil {
			return err
		}
	}

	return c.send(req, out)
}

// send executes the request and maps the response status to the error
// taxonomy. A 401 invalidates the credential before it is reported.
func (c *Client) send(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return &TransientError{Op: req.Method + " " + req.URL.Path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return &TransientError{Op: "decode " + req.URL.Path, Err: err}
		}
		return nil
	}

	detail := readDetail(resp.Body)
	logger.L.Debug("request failed", "method", req.Method, "path", req.URL.Path, "status", resp.StatusCode, "detail", detail)

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if c.cred != nil {
			c.cred.Invalidate()
		}
		return ErrUnauthorized
	case http.StatusTooManyRequests:
		return &RateLimitError{Detail: detail}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return &InvalidRequestError{Detail: detail}
	case http.StatusNotFound:
		if detail != "" {
			return fmt.Errorf("%w: %s", ErrNotFound, detail)
		}
		return ErrNotFound
	default:
		return &ServerError{StatusCode: resp.StatusCode, Detail: detail}
	}
}

// readDetail extracts the server's {"detail": ...} message, if any.
func readDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64<<10))
	if err != nil {
		return ""
	}
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Detail != "" {
		return payload.Detail
	}
	return ""
}
