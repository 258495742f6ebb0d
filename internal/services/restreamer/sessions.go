package restreamer

import (
	"context"
	"encoding/json"
	"net/http"
)

// Sessions returns the sessions the server currently tracks.
func (c *Client) Sessions(ctx context.Context) ([]Session, error) {
	var envelope struct {
		Sessions []json.RawMessage `json:"sessions"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v3/sessions", nil, &envelope); err != nil {
		return nil, err
	}

	sessions := make([]Session, 0, len(envelope.Sessions))
	for _, item := range envelope.Sessions {
		sessions = append(sessions, parseSession(item))
	}
	return sessions, nil
}

// ActiveSessions aggregates the currently active sessions into a summary of
// viewer count and transfer totals.
func (c *Client) ActiveSessions(ctx context.Context) (SessionSummary, error) {
	var envelope struct {
		Sessions []json.RawMessage `json:"sessions"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/api/v3/session/active", nil, &envelope); err != nil {
		return SessionSummary{}, err
	}

	var summary SessionSummary
	for _, item := range envelope.Sessions {
		session := parseSession(item)
		summary.SessionCount++
		summary.TotalRxBytes += session.BytesReceived
		summary.TotalTxBytes += session.BytesSent
	}
	return summary, nil
}
