package restreamer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"polyemesis/internal/services"
)

const processPath = "/api/v3/process"

// ListProcesses returns every process the server reports.
func (c *Client) ListProcesses(ctx context.Context) ([]Process, error) {
	var raw []json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, processPath, nil, &raw); err != nil {
		return nil, err
	}

	processes := make([]Process, 0, len(raw))
	for _, item := range raw {
		proc, err := parseProcess(item)
		if err != nil {
			return nil, err
		}
		processes = append(processes, proc)
	}
	return processes, nil
}

// GetProcess returns the details of one process.
func (c *Client) GetProcess(ctx context.Context, id string) (Process, error) {
	if strings.TrimSpace(id) == "" {
		return Process{}, services.Wrap(services.ErrValidation, component, "get process", "process id is required", nil)
	}
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, processPath+"/"+id, nil, &raw); err != nil {
		return Process{}, err
	}
	return parseProcess(raw)
}

// CreateProcess registers a distribution job: the input is copied unmodified,
// at most one shared video filter is applied, and the result is teed to every
// output URL wrapped for FLV-compatible transport. The process autostarts.
//
// The synthesized command contains stream keys; callers must not log it.
func (c *Client) CreateProcess(ctx context.Context, reference, inputURL string, outputURLs []string, videoFilter string) error {
	if strings.TrimSpace(reference) == "" || strings.TrimSpace(inputURL) == "" || len(outputURLs) == 0 {
		return services.Wrap(services.ErrValidation, component, "create process", "reference, input url, and outputs are required", nil)
	}

	body := map[string]any{
		"reference": reference,
		"command":   buildTeeCommand(inputURL, outputURLs, videoFilter),
		"autostart": true,
	}
	return c.doJSON(ctx, http.MethodPost, processPath, body, nil)
}

// buildTeeCommand assembles the server-side command that copies the input and
// duplicates it to every output.
func buildTeeCommand(inputURL string, outputURLs []string, videoFilter string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "-re -i %s -c:v copy -c:a copy -f tee -map 0:v -map 0:a ", inputURL)
	if videoFilter != "" {
		b.WriteString("-vf ")
		b.WriteString(videoFilter)
		b.WriteString(" ")
	}
	b.WriteString(`"`)
	for i, url := range outputURLs {
		if i > 0 {
			b.WriteString("|")
		}
		b.WriteString("[f=flv]")
		b.WriteString(url)
	}
	b.WriteString(`"`)
	return b.String()
}

// DeleteProcess removes a process from the server.
func (c *Client) DeleteProcess(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return services.Wrap(services.ErrValidation, component, "delete process", "process id is required", nil)
	}
	return c.doJSON(ctx, http.MethodDelete, processPath+"/"+id, nil, nil)
}

// StartProcess issues the start command to a process.
func (c *Client) StartProcess(ctx context.Context, id string) error {
	return c.processCommand(ctx, id, "start")
}

// StopProcess issues the stop command to a process.
func (c *Client) StopProcess(ctx context.Context, id string) error {
	return c.processCommand(ctx, id, "stop")
}

// RestartProcess issues the restart command to a process.
func (c *Client) RestartProcess(ctx context.Context, id string) error {
	return c.processCommand(ctx, id, "restart")
}

func (c *Client) processCommand(ctx context.Context, id, command string) error {
	if strings.TrimSpace(id) == "" {
		return services.Wrap(services.ErrValidation, component, command+" process", "process id is required", nil)
	}
	body := map[string]string{"command": command}
	return c.doJSON(ctx, http.MethodPost, processPath+"/"+id+"/command", body, nil)
}

// ProcessLogs returns the log entries of one process.
func (c *Client) ProcessLogs(ctx context.Context, id string) ([]LogEntry, error) {
	if strings.TrimSpace(id) == "" {
		return nil, services.Wrap(services.ErrValidation, component, "process logs", "process id is required", nil)
	}
	var raw []json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, processPath+"/"+id+"/log", nil, &raw); err != nil {
		return nil, err
	}

	entries := make([]LogEntry, 0, len(raw))
	for _, item := range raw {
		entries = append(entries, parseLogEntry(item))
	}
	return entries, nil
}

// GetProcessState returns the live progress metrics of one process.
func (c *Client) GetProcessState(ctx context.Context, id string) (ProcessState, error) {
	if strings.TrimSpace(id) == "" {
		return ProcessState{}, services.Wrap(services.ErrValidation, component, "process state", "process id is required", nil)
	}
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, processPath+"/"+id+"/state", nil, &raw); err != nil {
		return ProcessState{}, err
	}
	return parseProcessState(raw), nil
}

// ProcessConfig returns the raw configuration of one process.
func (c *Client) ProcessConfig(ctx context.Context, id string) (json.RawMessage, error) {
	if strings.TrimSpace(id) == "" {
		return nil, services.Wrap(services.ErrValidation, component, "process config", "process id is required", nil)
	}
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, processPath+"/"+id+"/config", nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}
