package restreamer

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"polyemesis/internal/services"
)

// Output describes one destination attached to a running process.
type Output struct {
	ID          string
	URL         string
	VideoFilter string
}

// AddProcessOutput attaches a new output to a running process without
// interrupting the other outputs.
func (c *Client) AddProcessOutput(ctx context.Context, processID string, output Output) error {
	if strings.TrimSpace(processID) == "" || strings.TrimSpace(output.ID) == "" {
		return services.Wrap(services.ErrValidation, component, "add output", "process id and output id are required", nil)
	}
	body := map[string]string{
		"id":           output.ID,
		"url":          output.URL,
		"video_filter": output.VideoFilter,
	}
	return c.doJSON(ctx, http.MethodPost, processPath+"/"+processID+"/outputs", body, nil)
}

// UpdateProcessOutput replaces the URL and filter of an existing output.
func (c *Client) UpdateProcessOutput(ctx context.Context, processID string, output Output) error {
	if strings.TrimSpace(processID) == "" || strings.TrimSpace(output.ID) == "" {
		return services.Wrap(services.ErrValidation, component, "update output", "process id and output id are required", nil)
	}
	body := map[string]string{
		"url":          output.URL,
		"video_filter": output.VideoFilter,
	}
	return c.doJSON(ctx, http.MethodPut, processPath+"/"+processID+"/outputs/"+output.ID, body, nil)
}

// RemoveProcessOutput detaches an output from a running process.
func (c *Client) RemoveProcessOutput(ctx context.Context, processID, outputID string) error {
	if strings.TrimSpace(processID) == "" || strings.TrimSpace(outputID) == "" {
		return services.Wrap(services.ErrValidation, component, "remove output", "process id and output id are required", nil)
	}
	return c.doJSON(ctx, http.MethodDelete, processPath+"/"+processID+"/outputs/"+outputID, nil, nil)
}

// ProcessOutputs lists the outputs currently attached to a process.
func (c *Client) ProcessOutputs(ctx context.Context, processID string) ([]Output, error) {
	if strings.TrimSpace(processID) == "" {
		return nil, services.Wrap(services.ErrValidation, component, "list outputs", "process id is required", nil)
	}
	var raw []json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, processPath+"/"+processID+"/outputs", nil, &raw); err != nil {
		return nil, err
	}

	outputs := make([]Output, 0, len(raw))
	for _, item := range raw {
		f, ok := objectFields(item)
		if !ok {
			continue
		}
		outputs = append(outputs, Output{
			ID:          f.str("id"),
			URL:         f.str("url"),
			VideoFilter: f.str("video_filter"),
		})
	}
	return outputs, nil
}

// encodingWire is the transport shape of encoding parameters. Bitrates travel
// in bits per second while EncodingParams holds kilobits.
type encodingWire struct {
	VideoBitrate int    `json:"video_bitrate"`
	AudioBitrate int    `json:"audio_bitrate"`
	Resolution   *struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"resolution,omitempty"`
	FPS *struct {
		Num int `json:"num"`
		Den int `json:"den"`
	} `json:"fps,omitempty"`
	Preset  string `json:"preset,omitempty"`
	Profile string `json:"profile,omitempty"`
}

// OutputEncoding returns the encoding parameters of one output.
func (c *Client) OutputEncoding(ctx context.Context, processID, outputID string) (EncodingParams, error) {
	if strings.TrimSpace(processID) == "" || strings.TrimSpace(outputID) == "" {
		return EncodingParams{}, services.Wrap(services.ErrValidation, component, "output encoding", "process id and output id are required", nil)
	}
	var wire encodingWire
	if err := c.doJSON(ctx, http.MethodGet, processPath+"/"+processID+"/outputs/"+outputID+"/encoding", nil, &wire); err != nil {
		return EncodingParams{}, err
	}

	params := EncodingParams{
		VideoBitrateKbps: wire.VideoBitrate / 1000,
		AudioBitrateKbps: wire.AudioBitrate / 1000,
		Preset:           wire.Preset,
		Profile:          wire.Profile,
	}
	if wire.Resolution != nil {
		params.Width = wire.Resolution.Width
		params.Height = wire.Resolution.Height
	}
	if wire.FPS != nil {
		params.FPSNum = wire.FPS.Num
		params.FPSDen = wire.FPS.Den
	}
	return params, nil
}

// SetOutputEncoding replaces the encoding parameters of one output.
func (c *Client) SetOutputEncoding(ctx context.Context, processID, outputID string, params EncodingParams) error {
	if strings.TrimSpace(processID) == "" || strings.TrimSpace(outputID) == "" {
		return services.Wrap(services.ErrValidation, component, "set output encoding", "process id and output id are required", nil)
	}

	wire := encodingWire{
		VideoBitrate: params.VideoBitrateKbps * 1000,
		AudioBitrate: params.AudioBitrateKbps * 1000,
		Preset:       params.Preset,
		Profile:      params.Profile,
	}
	if params.Width > 0 || params.Height > 0 {
		wire.Resolution = &struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		}{Width: params.Width, Height: params.Height}
	}
	if params.FPSNum > 0 {
		den := params.FPSDen
		if den == 0 {
			den = 1
		}
		wire.FPS = &struct {
			Num int `json:"num"`
			Den int `json:"den"`
		}{Num: params.FPSNum, Den: den}
	}
	return c.doJSON(ctx, http.MethodPut, processPath+"/"+processID+"/outputs/"+outputID+"/encoding", wire, nil)
}
