package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"videomod/internal/pkg/hash"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/sethvargo/go-retry"
)

// ClientConfig holds configuration for a model-server client.
type ClientConfig struct {
	Backends   []string // model server base URLs, e.g. "http://10.0.0.1:8080"
	Timeout    time.Duration
	MaxRetries uint64
}

// DefaultClientConfig returns default configuration for the given backends.
func DefaultClientConfig(backends ...string) ClientConfig {
	return ClientConfig{
		Backends:   backends,
		Timeout:    30 * time.Second,
		MaxRetries: 2,
	}
}

// modelClient is the shared HTTP plumbing for model-server detectors.
// Requests for the same video are routed to the same backend so server-side
// decode caches stay warm.
type modelClient struct {
	config     ClientConfig
	httpClient *http.Client
	ring       *hash.ConsistentHash
	log        *log.Helper
}

func newModelClient(config ClientConfig, logger log.Logger) *modelClient {
	ring := hash.NewConsistentHash()
	for _, b := range config.Backends {
		ring.Add(b)
	}
	return &modelClient{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		ring:       ring,
		log:        log.NewHelper(logger),
	}
}

func (c *modelClient) pickBackend(key string) (string, error) {
	backend, ok := c.ring.Get(key)
	if !ok {
		return "", Errorf(ErrModelLoad, "no model servers configured")
	}
	return backend, nil
}

// postJSON sends a JSON request to endpoint on the backend owning key and
// decodes the JSON response into out. Transient backend errors are retried
// with exponential backoff; the error returned is always a typed *Error.
func (c *modelClient) postJSON(ctx context.Context, key, endpoint string, reqBody, out any) error {
	backend, err := c.pickBackend(key)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return Errorf(ErrDecode, "failed to marshal request: %v", err)
	}
	url := backend + endpoint

	backoff := retry.WithMaxRetries(c.config.MaxRetries, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			return Errorf(ErrModelLoad, "failed to create request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return Errorf(ErrTimeout, "model server %s timed out", backend)
			}
			return retry.RetryableError(Errorf(ErrModelLoad, "model server %s unreachable: %v", backend, err))
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(Errorf(ErrModelLoad, "failed to read response: %v", err))
		}

		if kindErr := errorFromStatus(resp.StatusCode, body); kindErr != nil {
			if resp.StatusCode >= http.StatusInternalServerError {
				return retry.RetryableError(kindErr)
			}
			return kindErr
		}

		if err := json.Unmarshal(body, out); err != nil {
			return Errorf(ErrDecode, "failed to parse response: %v", err)
		}
		return nil
	})
}

// errorFromStatus maps a non-2xx model-server status to the error taxonomy.
func errorFromStatus(status int, body []byte) *Error {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := fmt.Sprintf("model server status %d: %s", status, truncate(body, 256))
	switch {
	case status == http.StatusBadRequest || status == http.StatusNotFound:
		return &Error{Kind: ErrInput, Message: msg}
	case status == http.StatusUnsupportedMediaType || status == http.StatusUnprocessableEntity:
		return &Error{Kind: ErrDecode, Message: msg}
	case status == http.StatusServiceUnavailable:
		return &Error{Kind: ErrModelLoad, Message: msg}
	case status >= http.StatusInternalServerError:
		return &Error{Kind: ErrModelLoad, Message: msg}
	default:
		return &Error{Kind: ErrDecode, Message: msg}
	}
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
