package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/theervu-kaanal/grievance-api/internal/token"
)

// RequestOptions shapes a single API request made through Fetch.
type RequestOptions struct {
	// Method defaults to GET, or POST when a body is present.
	Method string

	// JSON, when set, is marshaled as the request body with
	// Content-Type application/json.
	JSON any

	// Body is a raw request body (multipart uploads, binary payloads).
	// Content-Type is taken from ContentType and omitted when empty, so
	// multipart writers can set their own boundary header instead.
	Body        io.Reader
	ContentType string

	Header http.Header
}

// Fetch performs an authenticated API request. An unusable session is
// rejected before any request goes out: no session means
// ErrUnauthenticated, an undecodable or already-expired token clears
// the session and means ErrSessionExpired. The held token rides the
// Authorization header; a 401 triggers at most one refresh-and-retry
// cycle. A refresh that cannot recover the session clears it and
// surfaces ErrSessionExpired. Any other non-2xx response is returned as
// a RequestError. On success the caller owns the response body.
func (m *SessionManager) Fetch(ctx context.Context, path string, opts RequestOptions) (*http.Response, error) {
	snap, ok := m.Snapshot()
	if !ok {
		m.dropSession(ctx)
		return nil, ErrUnauthenticated
	}
	claims, decErr := token.Decode(snap.Token)
	if decErr != nil || claims.Expired(time.Now()) {
		m.dropSession(ctx)
		return nil, ErrSessionExpired
	}

	body, err := readBody(opts)
	if err != nil {
		return nil, err
	}

	resp, err := m.do(ctx, path, opts, body)
	if err != nil {
		return nil, err
	}

	_, authed := m.Snapshot()
	if resp.StatusCode == http.StatusUnauthorized && authed {
		resp.Body.Close()

		if refreshErr := m.Refresh(ctx); refreshErr != nil {
			// The session could not be recovered; drop it so the next
			// request starts from a clean Anonymous state.
			m.dropSession(ctx)
			return nil, ErrSessionExpired
		}

		resp, err = m.do(ctx, path, opts, body)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusUnauthorized {
			resp.Body.Close()
			m.dropSession(ctx)
			return nil, ErrSessionExpired
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		msg, code := errorBody(resp)
		// A fatal auth code can ride any status, not just 401: a 403
		// carrying INVALID_TOKEN still means the session is done.
		if fatalAuthCode(code) {
			m.dropSession(ctx)
			return nil, ErrSessionExpired
		}
		return nil, &RequestError{
			StatusCode: resp.StatusCode,
			Message:    msg,
		}
	}
	return resp, nil
}

// FetchJSON performs Fetch and decodes a 2xx JSON response into out.
func (m *SessionManager) FetchJSON(ctx context.Context, path string, opts RequestOptions, out any) error {
	resp, err := m.Fetch(ctx, path, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readBody materializes the request body so a retry can replay it.
func readBody(opts RequestOptions) ([]byte, error) {
	if opts.JSON != nil {
		payload, err := json.Marshal(opts.JSON)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return payload, nil
	}
	if opts.Body != nil {
		payload, err := io.ReadAll(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		return payload, nil
	}
	return nil, nil
}

// do builds and executes one attempt of the request.
func (m *SessionManager) do(ctx context.Context, path string, opts RequestOptions, body []byte) (*http.Response, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
		if body != nil {
			method = http.MethodPost
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, m.resolve(path), reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	for k, vs := range opts.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	switch {
	case opts.JSON != nil:
		req.Header.Set("Content-Type", "application/json")
	case opts.ContentType != "":
		req.Header.Set("Content-Type", opts.ContentType)
	}

	if snap, ok := m.Snapshot(); ok {
		req.Header.Set("Authorization", "Bearer "+snap.Token)
	}

	return m.httpClient.Do(req)
}

// errorBody extracts a human-readable message and the machine-readable
// auth code from an error response body. The message falls back from
// the message field to the error field to the status text.
func errorBody(resp *http.Response) (msg, code string) {
	var body struct {
		Message  string `json:"message"`
		ErrorMsg string `json:"error"`
		Code     string `json:"code"`
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil && len(raw) > 0 {
		if json.Unmarshal(raw, &body) == nil {
			code = body.Code
			if body.Message != "" {
				return body.Message, code
			}
			if body.ErrorMsg != "" {
				return body.ErrorMsg, code
			}
		}
	}
	return http.StatusText(resp.StatusCode), code
}
