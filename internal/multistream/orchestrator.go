package multistream

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"polyemesis/internal/logging"
	"polyemesis/internal/services"
	"polyemesis/internal/services/restreamer"
)

const referencePrefix = "obs_multistream_"

// ProcessAPI is the slice of the media server client the orchestrator
// drives.
type ProcessAPI interface {
	CreateProcess(ctx context.Context, reference, inputURL string, outputURLs []string, videoFilter string) error
	ListProcesses(ctx context.Context) ([]restreamer.Process, error)
	StopProcess(ctx context.Context, id string) error
	AddProcessOutput(ctx context.Context, processID string, output restreamer.Output) error
	UpdateProcessOutput(ctx context.Context, processID string, output restreamer.Output) error
	RemoveProcessOutput(ctx context.Context, processID, outputID string) error
}

// Recorder receives start and stop events for the streaming history ledger.
type Recorder interface {
	RecordStart(reference, inputURL string, destinationCount int) error
	RecordStop(reference string) error
}

// Orchestrator drives one distribution job at a time on the media server.
// Start and stop transitions on the same Config are serialized internally;
// all operations are safe for concurrent use.
type Orchestrator struct {
	client  ProcessAPI
	history Recorder
	logger  *slog.Logger
}

// OrchestratorOption customises Orchestrator construction.
type OrchestratorOption func(*Orchestrator)

// WithRecorder attaches a history ledger. Recording failures are logged,
// never propagated: the stream outcome is already decided when they happen.
func WithRecorder(recorder Recorder) OrchestratorOption {
	return func(o *Orchestrator) {
		o.history = recorder
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewOrchestrator builds an orchestrator on top of a media server client.
func NewOrchestrator(client ProcessAPI, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		client: client,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start creates and autostarts the distribution process for every enabled
// destination in cfg. It fails without any network call when no destination
// is enabled or a stream is already bound to cfg. On success the
// configuration is bound to the process reference until Stop. Returns the
// reference.
func (o *Orchestrator) Start(ctx context.Context, cfg *Config, inputURL string) (string, error) {
	if inputURL == "" {
		return "", services.Wrap(services.ErrValidation, "multistream", "start", "input url is required", nil)
	}

	cfg.transition.Lock()
	defer cfg.transition.Unlock()

	if cfg.Reference() != "" {
		return "", services.Wrap(services.ErrValidation, "multistream", "start", "a stream is already active", nil)
	}

	enabled := enabledDestinations(cfg)
	if len(enabled) == 0 {
		return "", services.Wrap(services.ErrValidation, "multistream", "start", "no enabled destinations", nil)
	}

	urls := make([]string, 0, len(enabled))
	for _, d := range enabled {
		urls = append(urls, d.URL())
	}

	// All destinations share one filter, derived from the first enabled
	// destination's orientation. Per-destination transforms apply only to
	// outputs added while the job is already running.
	source := cfg.SourceOrientation()
	filter := BuildFilter(source, enabled[0].Orientation)

	reference := newReference()
	ctx = services.WithOperation(ctx, "multistream start")
	ctx = services.WithReference(ctx, reference)

	if err := o.client.CreateProcess(ctx, reference, inputURL, urls, filter); err != nil {
		return "", err
	}
	cfg.setReference(reference)

	logging.WithContext(ctx, o.logger).Info("multistream started",
		logging.Int("destinations", len(enabled)))
	if o.history != nil {
		if err := o.history.RecordStart(reference, inputURL, len(enabled)); err != nil {
			o.logger.Warn("record stream start", logging.Error(err))
		}
	}
	return reference, nil
}

// Stop looks up the process bound to cfg by reference and stops it. The
// remote API has no stop-by-reference call, so the lookup lists all
// processes first. The binding is cleared on success; a later Start gets a
// fresh reference.
func (o *Orchestrator) Stop(ctx context.Context, cfg *Config) error {
	cfg.transition.Lock()
	defer cfg.transition.Unlock()

	reference := cfg.Reference()
	if reference == "" {
		return services.Wrap(services.ErrValidation, "multistream", "stop", "no stream is active", nil)
	}

	ctx = services.WithOperation(ctx, "multistream stop")
	ctx = services.WithReference(ctx, reference)

	id, err := o.resolveProcessID(ctx, reference)
	if err != nil {
		return err
	}
	if err := o.client.StopProcess(ctx, id); err != nil {
		return err
	}
	cfg.setReference("")

	logging.WithContext(ctx, o.logger).Info("multistream stopped")
	if o.history != nil {
		if err := o.history.RecordStop(reference); err != nil {
			o.logger.Warn("record stream stop", logging.Error(err))
		}
	}
	return nil
}

// Status returns the remote process bound to cfg, or ok=false when the
// configuration is idle or the process is gone.
func (o *Orchestrator) Status(ctx context.Context, cfg *Config) (restreamer.Process, bool, error) {
	reference := cfg.Reference()
	if reference == "" {
		return restreamer.Process{}, false, nil
	}
	processes, err := o.client.ListProcesses(ctx)
	if err != nil {
		return restreamer.Process{}, false, err
	}
	for _, p := range processes {
		if p.Reference == reference {
			return p, true, nil
		}
	}
	return restreamer.Process{}, false, nil
}

// AddDestination appends a destination to cfg and, when a stream is active,
// attaches a matching output to the running process with a per-destination
// transform. Returns the new destination's index.
func (o *Orchestrator) AddDestination(ctx context.Context, cfg *Config, service Service, streamKey string, orientation Orientation) (int, error) {
	index, err := cfg.AddDestination(service, streamKey, orientation)
	if err != nil {
		return 0, err
	}

	reference := cfg.Reference()
	if reference == "" {
		return index, nil
	}

	dest, err := cfg.Destination(index)
	if err != nil {
		return 0, err
	}
	id, err := o.resolveProcessID(ctx, reference)
	if err != nil {
		return 0, err
	}
	output := restreamer.Output{
		ID:          outputID(dest.Service, index),
		URL:         dest.URL(),
		VideoFilter: BuildFilter(cfg.SourceOrientation(), dest.Orientation),
	}
	if err := o.client.AddProcessOutput(ctx, id, output); err != nil {
		return 0, err
	}
	return index, nil
}

// RemoveDestination deletes the destination at index and, when a stream is
// active, detaches its output from the running process. Later destinations
// shift down, invalidating cached indices.
func (o *Orchestrator) RemoveDestination(ctx context.Context, cfg *Config, index int) error {
	dest, err := cfg.Destination(index)
	if err != nil {
		return err
	}

	if reference := cfg.Reference(); reference != "" {
		id, err := o.resolveProcessID(ctx, reference)
		if err != nil {
			return err
		}
		if err := o.client.RemoveProcessOutput(ctx, id, outputID(dest.Service, index)); err != nil {
			return err
		}
	}
	return cfg.RemoveDestination(index)
}

// UpdateDestination replaces the key and orientation of the destination at
// index and, when a stream is active, pushes the new URL and transform to
// the running process.
func (o *Orchestrator) UpdateDestination(ctx context.Context, cfg *Config, index int, streamKey string, orientation Orientation) error {
	if err := cfg.UpdateDestination(index, streamKey, orientation); err != nil {
		return err
	}

	reference := cfg.Reference()
	if reference == "" {
		return nil
	}

	dest, err := cfg.Destination(index)
	if err != nil {
		return err
	}
	id, err := o.resolveProcessID(ctx, reference)
	if err != nil {
		return err
	}
	return o.client.UpdateProcessOutput(ctx, id, restreamer.Output{
		ID:          outputID(dest.Service, index),
		URL:         dest.URL(),
		VideoFilter: BuildFilter(cfg.SourceOrientation(), dest.Orientation),
	})
}

// SetDestinationEnabled toggles a destination and, when a stream is active,
// attaches or detaches the corresponding output.
func (o *Orchestrator) SetDestinationEnabled(ctx context.Context, cfg *Config, index int, enabled bool) error {
	dest, err := cfg.Destination(index)
	if err != nil {
		return err
	}
	if dest.Enabled == enabled {
		return nil
	}
	if err := cfg.SetEnabled(index, enabled); err != nil {
		return err
	}

	reference := cfg.Reference()
	if reference == "" {
		return nil
	}
	id, err := o.resolveProcessID(ctx, reference)
	if err != nil {
		return err
	}
	if enabled {
		return o.client.AddProcessOutput(ctx, id, restreamer.Output{
			ID:          outputID(dest.Service, index),
			URL:         dest.URL(),
			VideoFilter: BuildFilter(cfg.SourceOrientation(), dest.Orientation),
		})
	}
	return o.client.RemoveProcessOutput(ctx, id, outputID(dest.Service, index))
}

func (o *Orchestrator) resolveProcessID(ctx context.Context, reference string) (string, error) {
	processes, err := o.client.ListProcesses(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range processes {
		if p.Reference == reference {
			return p.ID, nil
		}
	}
	return "", services.Wrap(services.ErrNotFound, "multistream", "resolve process",
		fmt.Sprintf("no process with reference %s", reference), nil)
}

func enabledDestinations(cfg *Config) []Destination {
	var enabled []Destination
	for _, d := range cfg.Destinations() {
		if d.Enabled {
			enabled = append(enabled, d)
		}
	}
	return enabled
}

func newReference() string {
	return fmt.Sprintf("%s%d", referencePrefix, time.Now().UnixNano())
}

func outputID(service Service, index int) string {
	return fmt.Sprintf("%s_%d", service, index)
}
