package restreamer

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"polyemesis/internal/config"
	"polyemesis/internal/logging"
	"polyemesis/internal/services"
)

const (
	component      = "restreamer"
	defaultPort    = 8080
	defaultTimeout = 10 * time.Second
)

// Connection describes the media server endpoint and credentials. It is
// immutable for the life of a Client; settings changes build a new Client.
type Connection struct {
	Host     string
	Port     int
	UseHTTPS bool
	Username string
	Password string
}

// HTTPDoer abstracts http.Client.Do for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Option customises Client construction.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for API calls.
func WithHTTPClient(doer HTTPDoer) Option {
	return func(c *Client) {
		c.httpClient = doer
	}
}

// WithTimeout overrides the per-request timeout of the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger attaches a structured logger. Requests are logged at debug level
// without credentials or stream keys.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client is a typed, authenticated client for the media server's REST API.
// Token state is held only in memory and renewed transparently before
// authenticated calls. All methods are safe for concurrent use.
type Client struct {
	conn       Connection
	httpClient HTTPDoer
	timeout    time.Duration
	logger     *slog.Logger

	tokenMu      sync.Mutex
	accessToken  string
	refreshToken string
	tokenExpires time.Time
}

// NewClient builds a Client for the given connection.
func NewClient(conn Connection, opts ...Option) (*Client, error) {
	conn.Host = strings.TrimSpace(conn.Host)
	if conn.Host == "" {
		return nil, services.Wrap(services.ErrValidation, component, "new client", "host is required", nil)
	}
	if conn.Port == 0 {
		conn.Port = defaultPort
	}

	client := &Client{
		conn:    conn,
		timeout: defaultTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: client.timeout}
	}
	return client, nil
}

// FromConfig builds a Client from application configuration.
func FromConfig(cfg *config.Config, opts ...Option) (*Client, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrValidation, component, "new client", "config is nil", nil)
	}
	conn := Connection{
		Host:     cfg.Server.Host,
		Port:     cfg.Server.Port,
		UseHTTPS: cfg.Server.UseHTTPS,
		Username: cfg.Server.Username,
		Password: cfg.Server.Password,
	}
	if cfg.Server.TimeoutSeconds > 0 {
		opts = append([]Option{WithTimeout(time.Duration(cfg.Server.TimeoutSeconds) * time.Second)}, opts...)
	}
	return NewClient(conn, opts...)
}

// Connection returns the connection settings the client was built with.
func (c *Client) Connection() Connection {
	return c.conn
}

func (c *Client) baseURL() string {
	scheme := "http"
	if c.conn.UseHTTPS {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, c.conn.Host, c.conn.Port)
}
