// Package client is the outbound side of the wire: JSON over HTTP to other platoon processes.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apierrors "github.com/TorbenSp09/TruckPlatoonPub/internal/errors"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/metrics"
	"github.com/TorbenSp09/TruckPlatoonPub/internal/middleware"
	"go.uber.org/zap"
)

const maxErrorBody = 64 << 10

// Client calls other platoon processes addressed by "host:port"
type Client struct {
	httpClient *http.Client
	timeout    time.Duration
	metrics    *metrics.Metrics
	logger     *zap.Logger
}

// New creates a client whose calls are bounded by timeout
func New(timeout time.Duration, m *metrics.Metrics, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 8,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}
}

// Status fetches the inspection view of any node into out.
func (c *Client) Status(ctx context.Context, address, path string, out interface{}) error {
	return c.do(ctx, http.MethodGet, address, path, "status", nil, out)
}

// do sends in as the JSON body and decodes the answer into out. Transport failures and
// 5xx answers become PeerUnreachable; other error answers keep the peer's error code.
func (c *Client) do(ctx context.Context, method, address, path, operation string, in, out interface{}) (err error) {
	start := time.Now()
	defer func() {
		if c.metrics == nil {
			return
		}
		status := "ok"
		if err != nil {
			status = string(apierrors.GetCode(err))
		}
		c.metrics.RecordPeerRequest(operation, status, time.Since(start))
	}()

	if address == "" {
		return apierrors.PeerUnreachable(address, operation, fmt.Errorf("no address"))
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return apierrors.InternalError("failed to encode request", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, "http://"+address+path, body)
	if err != nil {
		return apierrors.InvalidRequest("invalid peer request", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if id := middleware.RequestIDFromContext(ctx); id != "" {
		req.Header.Set(middleware.HeaderRequestID, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apierrors.PeerUnreachable(address, operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		peerErr := apierrors.FromResponse(resp.StatusCode, raw)
		c.logger.Debug("Peer returned error",
			zap.String("operation", operation),
			zap.String("peer", address),
			zap.Int("status_code", resp.StatusCode),
			zap.Error(peerErr))
		if resp.StatusCode >= http.StatusInternalServerError {
			return apierrors.PeerUnreachable(address, operation, peerErr)
		}
		return peerErr
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return apierrors.PeerUnreachable(address, operation, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
