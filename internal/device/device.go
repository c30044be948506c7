// Package device talks to the FS-HDR parameter API.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"artnet2fshdr/internal/bridge"
	"artnet2fshdr/internal/logger"
	"artnet2fshdr/internal/scaling"
)

// ErrStatus is returned when the device answers with a non-2xx status.
var ErrStatus = errors.New("unexpected device status")

// Conf holds the device endpoint settings.
type Conf struct {
	Host    string
	Port    string
	Timeout time.Duration
}

// Client sends parameter-set requests to one device.
type Client struct {
	log     logger.Logger
	baseURL string
	http    *http.Client
}

// NewClient конструктор.
func NewClient(log logger.Logger, cfg Conf) *Client {
	return &Client{
		log:     log,
		baseURL: "http://" + net.JoinHostPort(cfg.Host, cfg.Port),
		http: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name implements bridge.Sink.
func (c *Client) Name() string {
	return "device"
}

// SetURL builds GET /config?action=set&paramid=<id>&value=<v>.
func (c *Client) SetURL(paramID string, value float64) string {
	q := url.Values{}
	q.Set("action", "set")
	q.Set("paramid", paramID)
	q.Set("value", scaling.FormatValue(value))
	return c.baseURL + "/config?" + q.Encode()
}

// Send applies one parameter value. The response body is discarded.
func (c *Client) Send(ctx context.Context, req bridge.Request) error {
	target := c.SetURL(req.ParameterID, req.Value)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("set %s: %w", req.ParameterID, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: set %s returned %s", ErrStatus, req.ParameterID, resp.Status)
	}

	c.log.With(logger.Fields{"module": "device"}).Debugf("set %s=%s", req.ParameterID, scaling.FormatValue(req.Value))
	return nil
}

var _ bridge.Sink = (*Client)(nil)
