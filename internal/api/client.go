// Package api is the data access layer: a thin client for the address book
// REST collection at /api/addresses.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"go.uber.org/zap"

	"github.com/smileynet/addrbook/internal/contact"
)

// CollectionPath is the REST resource collection for contacts.
const CollectionPath = "/api/addresses"

const (
	defaultTimeout      = 10 * time.Second
	defaultListAttempts = 3
	defaultRetryDelay   = 200 * time.Millisecond
	maxErrorBody        = 4 << 10
)

// ErrMissingID is returned when an operation needs a contact ID and got none.
var ErrMissingID = errors.New("api: contact id is required")

// StatusError reports a non-2xx response from the backend.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("api: %s %s returned status %d", e.Method, e.URL, e.StatusCode)
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Temporary reports whether retrying the request could succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client talks to the contact collection of one backend.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	timeout      time.Duration // 0 keeps the HTTP client's own timeout
	log          *zap.Logger
	listAttempts uint
	retryDelay   time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the HTTP client to copy. The caller's client is never
// modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithTimeout sets the per-request timeout, whatever HTTP client is used.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithLogger sets the logger for request tracing and failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithListAttempts sets how many times List is tried before giving up.
// Values below 1 are treated as 1.
func WithListAttempts(n int) Option {
	return func(c *Client) {
		if n < 1 {
			n = 1
		}
		c.listAttempts = uint(n)
	}
}

// WithRetryDelay sets the base delay between List attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// NewClient creates a client for the backend at baseURL (scheme and host,
// optionally with a path prefix).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("api: parsing base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: base URL %q must use http or https", baseURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("api: base URL %q has no host", baseURL)
	}

	c := &Client{
		baseURL:      strings.TrimSuffix(u.String(), "/"),
		httpClient:   &http.Client{Timeout: defaultTimeout},
		log:          zap.NewNop(),
		listAttempts: defaultListAttempts,
		retryDelay:   defaultRetryDelay,
	}
	for _, opt := range opts {
		opt(c)
	}

	hc := *c.httpClient
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	c.httpClient = &hc
	return c, nil
}

// BaseURL returns the normalized backend URL.
func (c *Client) BaseURL() string { return c.baseURL }

// List returns every contact in backend order. Transport failures and
// temporary status codes are retried.
func (c *Client) List(ctx context.Context) ([]contact.Contact, error) {
	endpoint := c.baseURL + CollectionPath

	contacts, err := retry.DoWithData(
		func() ([]contact.Contact, error) {
			return c.list(ctx, endpoint)
		},
		retry.Context(ctx),
		retry.Attempts(c.listAttempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTemporary),
		retry.OnRetry(func(n uint, err error) {
			c.log.Warn("list contacts failed, retrying",
				zap.Uint("attempt", n+1), zap.Error(err))
		}),
	)
	if err != nil {
		c.log.Error("list contacts failed", zap.String("url", endpoint), zap.Error(err))
		return nil, err
	}
	return contacts, nil
}

func (c *Client) list(ctx context.Context, endpoint string) ([]contact.Contact, error) {
	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var contacts []contact.Contact
	if err := json.Unmarshal(body, &contacts); err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("api: decoding contact list: %w", err))
	}
	if contacts == nil {
		contacts = []contact.Contact{}
	}
	return contacts, nil
}

// Save sends the full contact. An empty ID creates a record; a set ID updates
// it. The backend's echo of the saved record is returned when it is a JSON
// object carrying an ID; otherwise ct is returned unchanged.
func (c *Client) Save(ctx context.Context, ct contact.Contact) (contact.Contact, error) {
	endpoint := c.baseURL + CollectionPath

	payload, err := json.Marshal(ct)
	if err != nil {
		return contact.Contact{}, fmt.Errorf("api: encoding contact: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		c.log.Error("save contact failed", zap.String("id", ct.ID.String()), zap.Error(err))
		return contact.Contact{}, err
	}

	saved := ct
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var echoed contact.Contact
		switch err := json.Unmarshal(trimmed, &echoed); {
		case err != nil:
			c.log.Debug("ignoring undecodable save response", zap.Error(err))
		case echoed.ID.IsZero():
			c.log.Debug("ignoring save response without id")
		default:
			saved = echoed
		}
	}
	c.log.Info("contact saved", zap.String("id", saved.ID.String()), zap.Bool("create", ct.ID.IsZero()))
	return saved, nil
}

// Remove deletes the contact with the given ID.
func (c *Client) Remove(ctx context.Context, id contact.ID) error {
	if id.IsZero() {
		return ErrMissingID
	}
	endpoint := c.baseURL + CollectionPath + "/" + url.PathEscape(id.String())

	if _, err := c.do(ctx, http.MethodDelete, endpoint, nil); err != nil {
		c.log.Error("delete contact failed", zap.String("id", id.String()), zap.Error(err))
		return err
	}
	c.log.Info("contact deleted", zap.String("id", id.String()))
	return nil
}

// do executes one request and returns the response body of a 2xx response.
func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, retry.Unrecoverable(fmt.Errorf("api: creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	c.log.Debug("request done",
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Method:     method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("api: reading %s response: %w", method, err)
	}
	return body, nil
}

// isTemporary decides whether a List attempt is worth repeating.
func isTemporary(err error) bool {
	if !retry.IsRecoverable(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Temporary()
	}
	return true
}
