package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MarcoPoloResearchLab/momentos/internal/session"
	"go.uber.org/zap"
)

const (
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 32 << 20
	requestIDHeader  = "X-Request-ID"
)

var (
	// ErrTransport covers network failures and undecodable responses.
	ErrTransport = errors.New("apiclient: transport failure")
	// ErrInvalidConfig indicates that the client cannot be constructed.
	ErrInvalidConfig = errors.New("apiclient: invalid config")
	// ErrNothingToSubmit is returned when an update payload carries no fields.
	ErrNothingToSubmit = errors.New("apiclient: nothing to submit")
)

// StatusError reports a non-success HTTP status from the API.
type StatusError struct {
	Operation  string
	StatusCode int
	StatusText string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Operation, e.StatusCode, e.StatusText)
}

// Message returns the text shown to the user for err: the status text of a
// StatusError, otherwise fallback.
func Message(err error, fallback string) string {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusText != "" {
		return statusErr.StatusText
	}
	return fallback
}

// Endpoints lists the API paths. Update must contain the {id} placeholder.
type Endpoints struct {
	Collection    string
	Total         string
	Moment        string
	Create        string
	Update        string
	Login         string
	CreateAccount string
	Profile       string
	UpdateProfile string
}

// DefaultEndpoints returns the paths served by the Momentos API.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Collection:    "/api/getmomentlist",
		Total:         "/api/gettotalmoments",
		Moment:        "/getmoment",
		Create:        "/api/addmoment",
		Update:        "/api/update/{id}",
		Login:         "/login",
		CreateAccount: "/create-account",
		Profile:       "/getuserdetails",
		UpdateProfile: "/updateuserdetails",
	}
}

func (e Endpoints) withDefaults() Endpoints {
	defaults := DefaultEndpoints()
	pick := func(value, fallback string) string {
		if strings.TrimSpace(value) == "" {
			return fallback
		}
		return value
	}
	return Endpoints{
		Collection:    pick(e.Collection, defaults.Collection),
		Total:         pick(e.Total, defaults.Total),
		Moment:        pick(e.Moment, defaults.Moment),
		Create:        pick(e.Create, defaults.Create),
		Update:        pick(e.Update, defaults.Update),
		Login:         pick(e.Login, defaults.Login),
		CreateAccount: pick(e.CreateAccount, defaults.CreateAccount),
		Profile:       pick(e.Profile, defaults.Profile),
		UpdateProfile: pick(e.UpdateProfile, defaults.UpdateProfile),
	}
}

// Config describes how to reach the API.
type Config struct {
	BaseURL    string
	Endpoints  Endpoints
	HTTPClient *http.Client
	Timeout    time.Duration
	Sessions   session.Provider
	Logger     *zap.Logger
}

// Client calls the Momentos REST API.
type Client struct {
	baseURL    *url.URL
	endpoints  Endpoints
	httpClient *http.Client
	sessions   session.Provider
	logger     *zap.Logger
}

// NewClient validates the configuration and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	rawBaseURL := strings.TrimSpace(cfg.BaseURL)
	if rawBaseURL == "" {
		return nil, fmt.Errorf("%w: base url required", ErrInvalidConfig)
	}
	baseURL, err := url.Parse(rawBaseURL)
	if err != nil || baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, fmt.Errorf("%w: base url %q is not absolute", ErrInvalidConfig, rawBaseURL)
	}

	endpoints := cfg.Endpoints.withDefaults()
	if !strings.Contains(endpoints.Update, "{id}") {
		return nil, fmt.Errorf("%w: update endpoint %q lacks {id}", ErrInvalidConfig, endpoints.Update)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL:    baseURL,
		endpoints:  endpoints,
		httpClient: httpClient,
		sessions:   cfg.Sessions,
		logger:     logger,
	}, nil
}

type requestIDKey struct{}

// WithRequestID attaches a correlation id forwarded on every API call.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFromContext returns the correlation id attached to ctx, if any.
func RequestIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}

func (c *Client) resolve(path string, query url.Values) string {
	resolved := c.baseURL.JoinPath(path)
	resolved.RawQuery = ""
	if len(query) > 0 {
		resolved.RawQuery = query.Encode()
	}
	return resolved.String()
}

func (c *Client) newRequest(ctx context.Context, method, target string, body io.Reader, contentType string) (*http.Request, error) {
	request, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	if contentType != "" {
		request.Header.Set("Content-Type", contentType)
	}
	request.Header.Set("Accept", "application/json")
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		request.Header.Set(requestIDHeader, requestID)
	}
	if c.sessions != nil {
		current, err := c.sessions.Current(ctx)
		switch {
		case err == nil:
			request.Header.Set("Authorization", current.AuthorizationHeader())
		case errors.Is(err, session.ErrNoSession):
		default:
			c.logger.Warn("session lookup failed", zap.Error(err))
		}
	}
	return request, nil
}

// do sends the request and decodes a JSON response into target when target is
// not nil.
func (c *Client) do(operation string, request *http.Request, target any) error {
	started := time.Now()
	response, err := c.httpClient.Do(request)
	if err != nil {
		c.logger.Warn("api request failed",
			zap.String("operation", operation),
			zap.String("method", request.Method),
			zap.String("url", request.URL.Redacted()),
			zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrTransport, operation, err)
	}
	defer response.Body.Close()

	c.logger.Debug("api request completed",
		zap.String("operation", operation),
		zap.String("method", request.Method),
		zap.String("url", request.URL.Redacted()),
		zap.Int("status", response.StatusCode),
		zap.Duration("elapsed", time.Since(started)))

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxResponseBytes))
		return &StatusError{
			Operation:  operation,
			StatusCode: response.StatusCode,
			StatusText: statusText(response),
		}
	}

	if target == nil {
		_, _ = io.Copy(io.Discard, io.LimitReader(response.Body, maxResponseBytes))
		return nil
	}
	if err := json.NewDecoder(io.LimitReader(response.Body, maxResponseBytes)).Decode(target); err != nil {
		return fmt.Errorf("%w: %s: decode response: %v", ErrTransport, operation, err)
	}
	return nil
}

// statusText prefers the reason phrase sent by the server.
func statusText(response *http.Response) string {
	reason := strings.TrimSpace(strings.TrimPrefix(response.Status, strconv.Itoa(response.StatusCode)))
	if reason != "" {
		return reason
	}
	return http.StatusText(response.StatusCode)
}
