package restreamer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"polyemesis/internal/logging"
	"polyemesis/internal/services"
)

const errorBodyLimit = 2048

// send performs exactly one HTTP request and returns the full response body.
// It builds the absolute URL from the connection settings, attaches the given
// bearer token when non-empty, and classifies failures as transport or status
// errors. No streaming, no retries.
func (c *Client) send(ctx context.Context, method, path, contentType, bearer string, body io.Reader) ([]byte, error) {
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logging.WithContext(ctx, c.logger).Debug("media server request",
		logging.String("method", method),
		logging.String("path", path))

	url := c.baseURL() + path
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, component, "build request", "", err)
	}

	req.Header.Set("Accept", "application/json")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, component, "request", fmt.Sprintf("%s %s", method, path), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, services.Wrap(services.ErrTransport, component, "read response", fmt.Sprintf("%s %s", method, path), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt := strings.TrimSpace(string(truncate(data, errorBodyLimit)))
		msg := fmt.Sprintf("%s %s returned %d", method, path, resp.StatusCode)
		if excerpt != "" {
			msg += ": " + excerpt
		}
		return nil, services.Wrap(services.ErrHTTPStatus, component, "request", msg, nil)
	}

	return data, nil
}

// doJSON performs one authenticated request with an optional JSON body,
// decoding the JSON response into out when non-nil. The access token is
// renewed transparently before the call.
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	contentType := ""
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return services.Wrap(services.ErrParse, component, "encode request", path, err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	data, err := c.send(ctx, method, path, contentType, token, reader)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return services.Wrap(services.ErrParse, component, "decode response", fmt.Sprintf("%s %s", method, path), err)
	}
	return nil
}

// doRaw performs one authenticated request carrying or returning raw bytes,
// used by the filesystem operations.
func (c *Client) doRaw(ctx context.Context, method, path, contentType string, body []byte) ([]byte, error) {
	token, err := c.ensureToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	return c.send(ctx, method, path, contentType, token, reader)
}

func truncate(data []byte, limit int) []byte {
	if len(data) <= limit {
		return data
	}
	return data[:limit]
}
