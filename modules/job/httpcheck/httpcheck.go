// Package httpcheck implements the http.check job kind: a GET request
// against a URL that fails when the response status is not the expected one.
package httpcheck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/flemzord/hostjob/internal/core"
	"github.com/flemzord/hostjob/internal/job"
	"gopkg.in/yaml.v3"
)

// Kind is the identifier used in configuration.
const Kind = "http.check"

const (
	defaultTimeout = 10 * time.Second
	maxBodyDrain   = 64 << 10
)

// ErrUnexpectedStatus is returned when the response status does not match.
var ErrUnexpectedStatus = errors.New("httpcheck: unexpected status")

func init() {
	core.RegisterKind(core.KindInfo{
		Kind: Kind,
		New:  func() job.Executor { return &Checker{} },
	})
}

// Compile-time interface guards.
var (
	_ job.Executor      = (*Checker)(nil)
	_ core.Configurable = (*Checker)(nil)
	_ core.Provisioner  = (*Checker)(nil)
	_ core.Validator    = (*Checker)(nil)
)

// Config holds the http.check job configuration.
type Config struct {
	// URL is the address to request. Required, http or https.
	URL string `yaml:"url"`

	// ExpectStatus is the status code that counts as healthy. Defaults to 200.
	ExpectStatus int `yaml:"expect_status"`

	// Timeout bounds each request. Defaults to 10s.
	Timeout time.Duration `yaml:"timeout"`

	// Headers are added to the request.
	Headers map[string]string `yaml:"headers,omitempty"`
}

// Checker performs one HTTP check per run.
type Checker struct {
	config Config
	client *http.Client
	logger *slog.Logger
}

// Configure implements core.Configurable.
func (c *Checker) Configure(node *yaml.Node) error {
	if err := node.Decode(&c.config); err != nil {
		return fmt.Errorf("httpcheck: decode config: %w", err)
	}
	return nil
}

// Provision implements core.Provisioner.
func (c *Checker) Provision(ctx *core.AppContext) error {
	if c.config.ExpectStatus == 0 {
		c.config.ExpectStatus = http.StatusOK
	}
	if c.config.Timeout == 0 {
		c.config.Timeout = defaultTimeout
	}
	if c.client == nil {
		c.client = &http.Client{Timeout: c.config.Timeout}
	}
	c.logger = ctx.Logger
	return nil
}

// Validate implements core.Validator.
func (c *Checker) Validate() error {
	if c.config.URL == "" {
		return errors.New("httpcheck: url is required")
	}
	u, err := url.Parse(c.config.URL)
	if err != nil {
		return fmt.Errorf("httpcheck: invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("httpcheck: unsupported scheme %q", u.Scheme)
	}
	if c.config.ExpectStatus < 100 || c.config.ExpectStatus > 599 {
		return fmt.Errorf("httpcheck: expect_status out of range: %d", c.config.ExpectStatus)
	}
	if c.config.Timeout < 0 {
		return fmt.Errorf("httpcheck: timeout must be non-negative, got %s", c.config.Timeout)
	}
	return nil
}

// Execute implements job.Executor.
func (c *Checker) Execute(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.URL, nil)
	if err != nil {
		return fmt.Errorf("httpcheck: building request: %w", err)
	}
	for k, v := range c.config.Headers {
		req.Header.Set(k, v)
	}

	begin := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("httpcheck: GET %s: %w", c.config.URL, err)
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyDrain))

	if resp.StatusCode != c.config.ExpectStatus {
		return fmt.Errorf("%w: GET %s returned %d, want %d",
			ErrUnexpectedStatus, c.config.URL, resp.StatusCode, c.config.ExpectStatus)
	}

	if c.logger != nil {
		c.logger.Debug("httpcheck: ok", "url", c.config.URL, "status", resp.StatusCode, "elapsed", time.Since(begin))
	}
	return nil
}
