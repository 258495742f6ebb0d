package restreamer

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"polyemesis/internal/services"
)

// Ping checks that the server is reachable. It needs no authentication.
func (c *Client) Ping(ctx context.Context) error {
	body, err := c.send(ctx, http.MethodGet, "/ping", "", "", nil)
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(body)) != "pong" {
		return services.Wrap(services.ErrParse, component, "ping", "unexpected ping response", nil)
	}
	return nil
}

// Info returns the server build identity. It needs no authentication.
func (c *Client) Info(ctx context.Context) (Info, error) {
	body, err := c.send(ctx, http.MethodGet, "/api", "", "", nil)
	if err != nil {
		return Info{}, err
	}

	f, ok := objectFields(body)
	if !ok {
		return Info{}, services.Wrap(services.ErrParse, component, "server info", "info payload is not an object", nil)
	}
	return Info{
		Name:      f.str("name"),
		Version:   f.str("version"),
		BuildDate: f.str("build_date"),
		Commit:    f.str("commit"),
	}, nil
}

// Skills returns the capability report of the server's media engine.
func (c *Client) Skills(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/api/v3/skills", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ReloadSkills asks the server to re-detect its media engine capabilities.
func (c *Client) ReloadSkills(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/api/v3/skills/reload", nil, nil)
}

// ServerConfig returns the active server configuration.
func (c *Client) ServerConfig(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/api/v3/config", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// SetServerConfig replaces the server configuration. The change takes effect
// after ReloadServerConfig.
func (c *Client) SetServerConfig(ctx context.Context, cfg json.RawMessage) error {
	if len(cfg) == 0 {
		return services.Wrap(services.ErrValidation, component, "set config", "configuration payload is required", nil)
	}
	return c.doJSON(ctx, http.MethodPut, "/api/v3/config", cfg, nil)
}

// ReloadServerConfig applies a previously stored configuration.
func (c *Client) ReloadServerConfig(ctx context.Context) error {
	return c.doJSON(ctx, http.MethodGet, "/api/v3/config/reload", nil, nil)
}

// Metadata returns the server-wide metadata stored under key.
func (c *Client) Metadata(ctx context.Context, key string) (json.RawMessage, error) {
	if strings.TrimSpace(key) == "" {
		return nil, services.Wrap(services.ErrValidation, component, "metadata", "metadata key is required", nil)
	}
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/api/v3/metadata/"+key, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// SetMetadata stores server-wide metadata under key.
func (c *Client) SetMetadata(ctx context.Context, key string, value json.RawMessage) error {
	if strings.TrimSpace(key) == "" {
		return services.Wrap(services.ErrValidation, component, "set metadata", "metadata key is required", nil)
	}
	return c.doJSON(ctx, http.MethodPut, "/api/v3/metadata/"+key, value, nil)
}

// ProcessMetadata returns the metadata stored under key for one process.
func (c *Client) ProcessMetadata(ctx context.Context, processID, key string) (json.RawMessage, error) {
	if strings.TrimSpace(processID) == "" || strings.TrimSpace(key) == "" {
		return nil, services.Wrap(services.ErrValidation, component, "process metadata", "process id and metadata key are required", nil)
	}
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, processPath+"/"+processID+"/metadata/"+key, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// SetProcessMetadata stores metadata under key for one process.
func (c *Client) SetProcessMetadata(ctx context.Context, processID, key string, value json.RawMessage) error {
	if strings.TrimSpace(processID) == "" || strings.TrimSpace(key) == "" {
		return services.Wrap(services.ErrValidation, component, "set process metadata", "process id and metadata key are required", nil)
	}
	return c.doJSON(ctx, http.MethodPut, processPath+"/"+processID+"/metadata/"+key, value, nil)
}

// RTMPStreams lists the streams currently published on the RTMP ingest.
func (c *Client) RTMPStreams(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/api/v3/rtmp", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// SRTStreams lists the streams currently published on the SRT ingest.
func (c *Client) SRTStreams(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/api/v3/srt", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// ServerLogs returns the server's own log feed.
func (c *Client) ServerLogs(ctx context.Context) ([]LogEntry, error) {
	var raw []json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, "/api/v3/log", nil, &raw); err != nil {
		return nil, err
	}

	entries := make([]LogEntry, 0, len(raw))
	for _, item := range raw {
		entries = append(entries, parseLogEntry(item))
	}
	return entries, nil
}
