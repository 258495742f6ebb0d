package restreamer

// Process describes one remote job.
type Process struct {
	ID            string
	Reference     string
	State         string
	UptimeSeconds uint64
	CPUUsage      float64
	MemoryBytes   uint64
	Command       string
}

// Session describes one active viewer or publisher session.
type Session struct {
	ID            string
	Reference     string
	BytesSent     uint64
	BytesReceived uint64
	RemoteAddr    string
}

// SessionSummary aggregates the active session totals.
type SessionSummary struct {
	SessionCount int
	TotalRxBytes uint64
	TotalTxBytes uint64
}

// LogEntry is one line of a process log.
type LogEntry struct {
	Timestamp string
	Message   string
	Level     string
}

// ProcessState carries the live progress metrics of a running process.
type ProcessState struct {
	Order         string
	Frames        uint64
	DroppedFrames uint64
	BitrateKbps   uint64
	FPS           float64
	BytesWritten  uint64
	PacketsSent   uint64
	Percent       float64
	Running       bool
}

// EncodingParams describes the adjustable encoding settings of one output.
// Zero values mean "no change" on update and "not reported" on read.
type EncodingParams struct {
	VideoBitrateKbps int
	AudioBitrateKbps int
	Width            int
	Height           int
	FPSNum           int
	FPSDen           int
	Preset           string
	Profile          string
}

// StreamInfo describes one elementary stream from an input probe.
type StreamInfo struct {
	CodecName     string
	CodecLongName string
	CodecType     string
	Width         int
	Height        int
	FPSNum        int
	FPSDen        int
	Bitrate       int
	SampleRate    int
	Channels      int
	PixFmt        string
	Profile       string
	Duration      int64
}

// ProbeInfo is the result of probing a process input.
type ProbeInfo struct {
	FormatName     string
	FormatLongName string
	Duration       int64
	Size           uint64
	Bitrate        int
	Streams        []StreamInfo
}

// FileEntry describes one file on a remote filesystem.
type FileEntry struct {
	Name        string
	Path        string
	Size        uint64
	Modified    int64
	IsDirectory bool
}

// FilesystemInfo describes one remote filesystem.
type FilesystemInfo struct {
	Name  string
	Type  string
	Mount string
}

// Info is the server version information.
type Info struct {
	Name      string
	Version   string
	BuildDate string
	Commit    string
}
