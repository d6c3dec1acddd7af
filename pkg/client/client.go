package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-go-golems/remoni/pkg/api"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrStatus wraps every non-2xx answer from the backend.
var ErrStatus = errors.New("unexpected status")

const maxBodyBytes = 4 << 20

// Client talks to the nurse backend over plain HTTP.
type Client struct {
	base     *url.URL
	chatPath string
	http     *http.Client
	logger   zerolog.Logger
}

type Option func(*Client) error

func WithChatPath(p string) Option {
	return func(c *Client) error {
		p = strings.TrimSpace(p)
		if p == "" {
			return errors.New("chat path is empty")
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		c.chatPath = p
		return nil
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) error {
		if hc == nil {
			return errors.New("http client is nil")
		}
		c.http = hc
		return nil
	}
}

// WithTimeout bounds every request. Zero keeps requests unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) error {
		if d < 0 {
			return errors.Errorf("negative timeout %s", d)
		}
		c.http.Timeout = d
		return nil
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) error {
		c.logger = l
		return nil
	}
}

func New(serverURL string, options ...Option) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(serverURL))
	if err != nil {
		return nil, errors.Wrap(err, "parse server url")
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, errors.Errorf("server url %q must be http or https", serverURL)
	}
	base.Path = strings.TrimSuffix(base.Path, "/")

	c := &Client{
		base:     base,
		chatPath: "/chat",
		http:     &http.Client{},
		logger:   log.With().Str("component", "client").Logger(),
	}
	for _, opt := range options {
		if err := opt(c); err != nil {
			return nil, errors.Wrap(err, "apply client option")
		}
	}
	return c, nil
}

func (c *Client) BaseURL() string { return c.base.String() }

func (c *Client) endpoint(p string) string {
	u := *c.base
	u.Path = c.base.Path + p
	return u.String()
}

// ResolveImage turns server-relative image references (e.g. /static/plot.png) into
// absolute URLs. Absolute references are returned unchanged.
func (c *Client) ResolveImage(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || u.IsAbs() {
		return ref
	}
	return c.base.ResolveReference(u).String()
}

// Chat performs one request/response exchange with the chat endpoint.
func (c *Client) Chat(ctx context.Context, message string) (*Reply, error) {
	body, err := json.Marshal(api.ChatRequest{Message: message})
	if err != nil {
		return nil, errors.Wrap(err, "encode chat request")
	}

	reqID := uuid.NewString()
	logger := c.logger.With().Str("request_id", reqID).Logger()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.chatPath), bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, "build chat request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Origin", c.base.Scheme+"://"+c.base.Host)

	start := time.Now()
	logger.Debug().Str("url", req.URL.String()).Int("message_len", len(message)).Msg("sending chat request")
	data, err := c.do(req)
	if err != nil {
		logger.Warn().Err(err).Dur("elapsed", time.Since(start)).Msg("chat request failed")
		return nil, err
	}

	reply, err := ParseReply(data)
	if err != nil {
		logger.Warn().Err(err).Msg("chat reply could not be decoded")
		return nil, err
	}
	logger.Debug().
		Dur("elapsed", time.Since(start)).
		Int("images", len(reply.Images)).
		Msg("chat reply received")
	return reply, nil
}

func (c *Client) PiStatus(ctx context.Context) (api.PiStatus, error) {
	var out api.PiStatus
	err := c.getJSON(ctx, "/api/pi_status", &out)
	return out, err
}

func (c *Client) LatestVitals(ctx context.Context) (api.Vitals, error) {
	var out api.Vitals
	err := c.getJSON(ctx, "/api/latest_vitals_from_pi", &out)
	return out, err
}

func (c *Client) RecentAlerts(ctx context.Context) (api.AlertList, error) {
	var out api.AlertList
	err := c.getJSON(ctx, "/api/fall_alerts", &out)
	return out, err
}

func (c *Client) getJSON(ctx context.Context, p string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(p), nil)
	if err != nil {
		return errors.Wrapf(err, "build request for %s", p)
	}
	req.Header.Set("Accept", "application/json")
	data, err := c.do(req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return errors.Wrapf(err, "decode %s", p)
	}
	return nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", req.Method, req.URL.Path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, errors.Wrapf(err, "read %s response", req.URL.Path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Wrapf(ErrStatus, "%s %s: %s", req.Method, req.URL.Path, resp.Status)
	}
	return data, nil
}
