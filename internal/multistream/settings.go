package multistream

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"polyemesis/internal/services"
)

// Settings is the persisted multistream record: the media server connection
// and the ordered destination list. It round-trips through JSON on disk.
type Settings struct {
	Host                  string                `json:"host"`
	Port                  int                   `json:"port"`
	UseHTTPS              bool                  `json:"use_https"`
	Username              string                `json:"username"`
	Password              string                `json:"password"`
	AutoDetectOrientation bool                  `json:"auto_detect_orientation"`
	SourceOrientation     int                   `json:"source_orientation"`
	ActiveReference       string                `json:"active_reference,omitempty"`
	Destinations          []SettingsDestination `json:"destinations"`
}

// SettingsDestination is the on-disk shape of one destination.
type SettingsDestination struct {
	Service     int    `json:"service"`
	StreamKey   string `json:"stream_key"`
	Orientation int    `json:"orientation"`
	Enabled     bool   `json:"enabled"`
}

// LoadSettings reads the settings record at path. A missing file yields an
// empty record with auto-detection enabled. Out-of-range enum values in the
// file are clamped to their automatic defaults rather than rejected.
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Settings{AutoDetectOrientation: true}, nil
	}
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "multistream", "load settings", path, err)
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, services.Wrap(services.ErrParse, "multistream", "load settings", path, err)
	}

	if !Orientation(settings.SourceOrientation).valid() {
		settings.SourceOrientation = int(OrientationAuto)
	}
	for i := range settings.Destinations {
		if !Orientation(settings.Destinations[i].Orientation).valid() {
			settings.Destinations[i].Orientation = int(OrientationAuto)
		}
	}
	return &settings, nil
}

// Save writes the record to path atomically, guarded by a sibling lock file
// so concurrent invocations never interleave writes.
func (s *Settings) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return services.Wrap(services.ErrValidation, "multistream", "save settings", "create settings directory", err)
	}

	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return services.Wrap(services.ErrValidation, "multistream", "save settings", "acquire settings lock", err)
	}
	defer lock.Unlock()

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return services.Wrap(services.ErrParse, "multistream", "save settings", "encode settings", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return services.Wrap(services.ErrValidation, "multistream", "save settings", "write settings", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return services.Wrap(services.ErrValidation, "multistream", "save settings", "replace settings", err)
	}
	return nil
}

// Config materialises the record's destination list into a runtime
// configuration. Destinations whose service value is out of range are
// dropped; a custom destination with an empty key would produce an empty
// delivery URL and is dropped as well.
func (s *Settings) Config() *Config {
	cfg := NewConfig()
	cfg.SetAutoDetect(s.AutoDetectOrientation)
	cfg.SetSourceOrientation(Orientation(s.SourceOrientation))
	cfg.setReference(s.ActiveReference)
	for _, d := range s.Destinations {
		service := Service(d.Service)
		if !service.valid() {
			continue
		}
		if service == ServiceCustom && d.StreamKey == "" {
			continue
		}
		index, err := cfg.AddDestination(service, d.StreamKey, Orientation(d.Orientation))
		if err != nil {
			continue
		}
		if !d.Enabled {
			_ = cfg.SetEnabled(index, false)
		}
	}
	return cfg
}

// CaptureConfig writes the runtime configuration's destination list and
// active process reference back into the record, preserving the connection
// fields. Carrying the reference lets a later invocation stop or inspect a
// stream it did not start itself.
func (s *Settings) CaptureConfig(cfg *Config) {
	s.AutoDetectOrientation = cfg.AutoDetect()
	s.SourceOrientation = int(cfg.SourceOrientation())
	s.ActiveReference = cfg.Reference()
	destinations := cfg.Destinations()
	s.Destinations = make([]SettingsDestination, 0, len(destinations))
	for _, d := range destinations {
		s.Destinations = append(s.Destinations, SettingsDestination{
			Service:     int(d.Service),
			StreamKey:   d.StreamKey,
			Orientation: int(d.Orientation),
			Enabled:     d.Enabled,
		})
	}
}

// Describe summarises the record for display without exposing credentials.
func (s *Settings) Describe() string {
	return fmt.Sprintf("%d destination(s), server %s:%d", len(s.Destinations), s.Host, s.Port)
}
