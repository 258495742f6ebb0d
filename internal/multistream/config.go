package multistream

import (
	"fmt"
	"sync"

	"polyemesis/internal/services"
)

// Destination is one configured output target.
type Destination struct {
	Service     Service
	StreamKey   string
	Orientation Orientation
	Enabled     bool
}

// URL builds the full delivery URL for the destination. Custom destinations
// carry the full URL in the stream key; everything else appends the key to
// the service's ingest base.
func (d Destination) URL() string {
	if d.Service == ServiceCustom {
		return d.StreamKey
	}
	return d.Service.IngestURL(d.Orientation) + "/" + d.StreamKey
}

// Config holds one multistream setup: the connection-independent destination
// list, the source orientation, and the reference of the process it is bound
// to while streaming. All methods are safe for concurrent use. The transition
// mutex is held by the orchestrator across a whole start or stop, so only one
// transition runs per Config at a time; mu stays free for the accessors those
// transitions call.
type Config struct {
	mu                sync.Mutex
	transition        sync.Mutex
	autoDetect        bool
	sourceOrientation Orientation
	destinations      []Destination
	reference         string
}

// NewConfig returns an empty configuration with orientation auto-detection
// enabled.
func NewConfig() *Config {
	return &Config{autoDetect: true}
}

// AddDestination appends a destination and returns its index. Indices of
// existing destinations are stable until a removal.
func (c *Config) AddDestination(service Service, streamKey string, orientation Orientation) (int, error) {
	if !service.valid() {
		return 0, services.Wrap(services.ErrValidation, "multistream", "add destination", "unknown service", nil)
	}
	if !orientation.valid() {
		orientation = OrientationAuto
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.destinations = append(c.destinations, Destination{
		Service:     service,
		StreamKey:   streamKey,
		Orientation: orientation,
		Enabled:     true,
	})
	return len(c.destinations) - 1, nil
}

// RemoveDestination deletes the destination at index. Later destinations
// shift down by one, so any index cached before the removal is stale.
func (c *Config) RemoveDestination(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.destinations) {
		return services.Wrap(services.ErrValidation, "multistream", "remove destination",
			fmt.Sprintf("index %d out of range", index), nil)
	}
	c.destinations = append(c.destinations[:index], c.destinations[index+1:]...)
	return nil
}

// SetEnabled toggles whether the destination at index participates in the
// next start.
func (c *Config) SetEnabled(index int, enabled bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.destinations) {
		return services.Wrap(services.ErrValidation, "multistream", "set enabled",
			fmt.Sprintf("index %d out of range", index), nil)
	}
	c.destinations[index].Enabled = enabled
	return nil
}

// UpdateDestination replaces the stream key and orientation of the
// destination at index.
func (c *Config) UpdateDestination(index int, streamKey string, orientation Orientation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.destinations) {
		return services.Wrap(services.ErrValidation, "multistream", "update destination",
			fmt.Sprintf("index %d out of range", index), nil)
	}
	if !orientation.valid() {
		orientation = OrientationAuto
	}
	c.destinations[index].StreamKey = streamKey
	c.destinations[index].Orientation = orientation
	return nil
}

// Destination returns a copy of the destination at index.
func (c *Config) Destination(index int) (Destination, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if index < 0 || index >= len(c.destinations) {
		return Destination{}, services.Wrap(services.ErrValidation, "multistream", "get destination",
			fmt.Sprintf("index %d out of range", index), nil)
	}
	return c.destinations[index], nil
}

// Destinations returns a copy of the ordered destination list.
func (c *Config) Destinations() []Destination {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Destination, len(c.destinations))
	copy(out, c.destinations)
	return out
}

// Len returns the number of destinations.
func (c *Config) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.destinations)
}

// SourceOrientation returns the configured orientation of the input.
func (c *Config) SourceOrientation() Orientation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sourceOrientation
}

// SetSourceOrientation records the orientation of the input.
func (c *Config) SetSourceOrientation(o Orientation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !o.valid() {
		o = OrientationAuto
	}
	c.sourceOrientation = o
}

// AutoDetect reports whether source orientation should be derived from the
// input's probed dimensions.
func (c *Config) AutoDetect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autoDetect
}

// SetAutoDetect toggles source orientation auto-detection.
func (c *Config) SetAutoDetect(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoDetect = enabled
}

// Reference returns the process reference this configuration is bound to, or
// the empty string while idle.
func (c *Config) Reference() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reference
}

func (c *Config) setReference(ref string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reference = ref
}
