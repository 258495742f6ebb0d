package restreamer

import (
	"encoding/json"
	"strings"

	"polyemesis/internal/services"
)

// Decoding is deliberately tolerant: a missing or mistyped optional field
// keeps its zero value rather than failing the whole response. Required
// identifying fields missing from a response are a parse error.

type fields map[string]json.RawMessage

func objectFields(raw json.RawMessage) (fields, bool) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, false
	}
	return f, true
}

func (f fields) str(key string) string {
	var v string
	if raw, ok := f[key]; ok {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (f fields) int64(key string) int64 {
	var v int64
	if raw, ok := f[key]; ok {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (f fields) uint64(key string) uint64 {
	var v uint64
	if raw, ok := f[key]; ok {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (f fields) float64(key string) float64 {
	var v float64
	if raw, ok := f[key]; ok {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (f fields) boolean(key string) bool {
	var v bool
	if raw, ok := f[key]; ok {
		_ = json.Unmarshal(raw, &v)
	}
	return v
}

func (f fields) object(key string) fields {
	if raw, ok := f[key]; ok {
		if nested, ok := objectFields(raw); ok {
			return nested
		}
	}
	return nil
}

func (f fields) array(key string) []json.RawMessage {
	var items []json.RawMessage
	if raw, ok := f[key]; ok {
		_ = json.Unmarshal(raw, &items)
	}
	return items
}

func parseProcess(raw json.RawMessage) (Process, error) {
	f, ok := objectFields(raw)
	if !ok {
		return Process{}, services.Wrap(services.ErrParse, component, "decode process", "expected object", nil)
	}
	proc := Process{
		ID:            f.str("id"),
		Reference:     f.str("reference"),
		State:         f.str("state"),
		UptimeSeconds: f.uint64("uptime"),
		CPUUsage:      f.float64("cpu_usage"),
		MemoryBytes:   f.uint64("memory"),
		Command:       f.str("command"),
	}
	if strings.TrimSpace(proc.ID) == "" {
		return Process{}, services.Wrap(services.ErrParse, component, "decode process", "missing id", nil)
	}
	return proc, nil
}

func parseSession(raw json.RawMessage) Session {
	f, ok := objectFields(raw)
	if !ok {
		return Session{}
	}
	return Session{
		ID:            f.str("id"),
		Reference:     f.str("reference"),
		BytesSent:     f.uint64("bytes_sent"),
		BytesReceived: f.uint64("bytes_received"),
		RemoteAddr:    f.str("remote_addr"),
	}
}

func parseLogEntry(raw json.RawMessage) LogEntry {
	f, ok := objectFields(raw)
	if !ok {
		return LogEntry{}
	}
	return LogEntry{
		Timestamp: f.str("timestamp"),
		Message:   f.str("message"),
		Level:     f.str("level"),
	}
}

func parseFileEntry(raw json.RawMessage) FileEntry {
	f, ok := objectFields(raw)
	if !ok {
		return FileEntry{}
	}
	return FileEntry{
		Name:        f.str("name"),
		Path:        f.str("path"),
		Size:        f.uint64("size"),
		Modified:    f.int64("modified"),
		IsDirectory: f.boolean("is_directory"),
	}
}

func parseProcessState(raw json.RawMessage) ProcessState {
	f, ok := objectFields(raw)
	if !ok {
		return ProcessState{}
	}
	state := ProcessState{
		Order:   f.str("order"),
		Running: f.boolean("running"),
	}
	if progress := f.object("progress"); progress != nil {
		state.Frames = progress.uint64("frames")
		state.DroppedFrames = progress.uint64("dropped_frames")
		state.BitrateKbps = progress.uint64("bitrate")
		state.FPS = progress.float64("fps")
		state.BytesWritten = progress.uint64("size_kb") * 1024
		state.PacketsSent = progress.uint64("packets")
		state.Percent = progress.float64("percent")
	}
	return state
}

func parseStreamInfo(raw json.RawMessage) StreamInfo {
	f, ok := objectFields(raw)
	if !ok {
		return StreamInfo{}
	}
	return StreamInfo{
		CodecName:     f.str("codec_name"),
		CodecLongName: f.str("codec_long_name"),
		CodecType:     f.str("codec_type"),
		Width:         int(f.int64("width")),
		Height:        int(f.int64("height")),
		FPSNum:        int(f.int64("fps_num")),
		FPSDen:        int(f.int64("fps_den")),
		Bitrate:       int(f.int64("bitrate")),
		SampleRate:    int(f.int64("sample_rate")),
		Channels:      int(f.int64("channels")),
		PixFmt:        f.str("pix_fmt"),
		Profile:       f.str("profile"),
		Duration:      f.int64("duration"),
	}
}
