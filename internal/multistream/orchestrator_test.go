package multistream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"polyemesis/internal/services"
	"polyemesis/internal/services/restreamer"
)

type fakeProcessAPI struct {
	mu        sync.Mutex
	processes []restreamer.Process

	created struct {
		reference string
		inputURL  string
		urls      []string
		filter    string
	}
	createCalls  int
	listCalls    int
	stoppedIDs   []string
	addedOutputs []restreamer.Output
	updated      []restreamer.Output
	removedIDs   []string
	createErr    error
}

func (f *fakeProcessAPI) CreateProcess(_ context.Context, reference, inputURL string, outputURLs []string, videoFilter string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return f.createErr
	}
	f.created.reference = reference
	f.created.inputURL = inputURL
	f.created.urls = outputURLs
	f.created.filter = videoFilter
	f.processes = append(f.processes, restreamer.Process{ID: "proc-1", Reference: reference, State: "running"})
	return nil
}

func (f *fakeProcessAPI) ListProcesses(context.Context) ([]restreamer.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	return f.processes, nil
}

func (f *fakeProcessAPI) StopProcess(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stoppedIDs = append(f.stoppedIDs, id)
	return nil
}

func (f *fakeProcessAPI) AddProcessOutput(_ context.Context, _ string, output restreamer.Output) error {
	f.addedOutputs = append(f.addedOutputs, output)
	return nil
}

func (f *fakeProcessAPI) UpdateProcessOutput(_ context.Context, _ string, output restreamer.Output) error {
	f.updated = append(f.updated, output)
	return nil
}

func (f *fakeProcessAPI) RemoveProcessOutput(_ context.Context, _, outputID string) error {
	f.removedIDs = append(f.removedIDs, outputID)
	return nil
}

type fakeRecorder struct {
	starts []string
	stops  []string
}

func (r *fakeRecorder) RecordStart(reference, _ string, _ int) error {
	r.starts = append(r.starts, reference)
	return nil
}

func (r *fakeRecorder) RecordStop(reference string) error {
	r.stops = append(r.stops, reference)
	return nil
}

func TestStartWithNoEnabledDestinations(t *testing.T) {
	api := &fakeProcessAPI{}
	orch := NewOrchestrator(api)

	cfg := NewConfig()
	_, err := orch.Start(context.Background(), cfg, "rtmp://in/live")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	index, err := cfg.AddDestination(ServiceTwitch, "key", OrientationAuto)
	if err != nil {
		t.Fatalf("AddDestination: %v", err)
	}
	if err := cfg.SetEnabled(index, false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if _, err := orch.Start(context.Background(), cfg, "rtmp://in/live"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if api.createCalls != 0 || api.listCalls != 0 {
		t.Errorf("start must fail without network calls: create=%d list=%d", api.createCalls, api.listCalls)
	}
}

func TestStartBuildsDeliveryURLs(t *testing.T) {
	api := &fakeProcessAPI{}
	recorder := &fakeRecorder{}
	orch := NewOrchestrator(api, WithRecorder(recorder))

	cfg := NewConfig()
	cfg.SetSourceOrientation(OrientationHorizontal)
	if _, err := cfg.AddDestination(ServiceTwitch, "tw-key", OrientationVertical); err != nil {
		t.Fatalf("AddDestination: %v", err)
	}
	if _, err := cfg.AddDestination(ServiceCustom, "rtmp://my.host/live/k", OrientationAuto); err != nil {
		t.Fatalf("AddDestination: %v", err)
	}
	disabled, err := cfg.AddDestination(ServiceYouTube, "yt-key", OrientationHorizontal)
	if err != nil {
		t.Fatalf("AddDestination: %v", err)
	}
	if err := cfg.SetEnabled(disabled, false); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}

	reference, err := orch.Start(context.Background(), cfg, "rtmp://in/live")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !strings.HasPrefix(reference, referencePrefix) {
		t.Errorf("reference %q missing prefix", reference)
	}
	if cfg.Reference() != reference {
		t.Errorf("config not bound to reference: %q", cfg.Reference())
	}

	wantURLs := []string{
		"rtmp://live.twitch.tv/app/tw-key",
		"rtmp://my.host/live/k",
	}
	if len(api.created.urls) != len(wantURLs) {
		t.Fatalf("expected %d urls, got %v", len(wantURLs), api.created.urls)
	}
	for i, want := range wantURLs {
		if api.created.urls[i] != want {
			t.Errorf("url %d: got %q, want %q", i, api.created.urls[i], want)
		}
	}

	// Shared filter comes from the first enabled destination.
	if api.created.filter != "crop=ih*9/16:ih,scale=1080:1920" {
		t.Errorf("unexpected shared filter %q", api.created.filter)
	}
	if len(recorder.starts) != 1 || recorder.starts[0] != reference {
		t.Errorf("start not recorded: %v", recorder.starts)
	}
}

func TestStopUnknownReference(t *testing.T) {
	api := &fakeProcessAPI{}
	orch := NewOrchestrator(api)

	cfg := NewConfig()
	cfg.setReference("obs_multistream_12345")

	err := orch.Stop(context.Background(), cfg)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if len(api.stoppedIDs) != 0 {
		t.Errorf("no stop command should be issued, got %v", api.stoppedIDs)
	}
	if cfg.Reference() == "" {
		t.Error("reference must survive a failed stop")
	}
}

func TestStopClearsReference(t *testing.T) {
	api := &fakeProcessAPI{}
	recorder := &fakeRecorder{}
	orch := NewOrchestrator(api, WithRecorder(recorder))

	cfg := NewConfig()
	cfg.SetSourceOrientation(OrientationHorizontal)
	if _, err := cfg.AddDestination(ServiceTwitch, "key", OrientationHorizontal); err != nil {
		t.Fatalf("AddDestination: %v", err)
	}

	reference, err := orch.Start(context.Background(), cfg, "rtmp://in/live")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := orch.Stop(context.Background(), cfg); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	if len(api.stoppedIDs) != 1 || api.stoppedIDs[0] != "proc-1" {
		t.Errorf("stop should resolve the reference to an id: %v", api.stoppedIDs)
	}
	if cfg.Reference() != "" {
		t.Errorf("reference should clear after stop, got %q", cfg.Reference())
	}
	if len(recorder.stops) != 1 || recorder.stops[0] != reference {
		t.Errorf("stop not recorded: %v", recorder.stops)
	}

	// A fresh start gets a fresh reference.
	next, err := orch.Start(context.Background(), cfg, "rtmp://in/live")
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if next == reference {
		t.Error("restart should not reuse the old reference")
	}
}

func TestStartWhileActiveFails(t *testing.T) {
	api := &fakeProcessAPI{}
	orch := NewOrchestrator(api)

	cfg := NewConfig()
	if _, err := cfg.AddDestination(ServiceTwitch, "key", OrientationHorizontal); err != nil {
		t.Fatalf("AddDestination: %v", err)
	}
	if _, err := orch.Start(context.Background(), cfg, "rtmp://in/live"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	_, err := orch.Start(context.Background(), cfg, "rtmp://in/live")
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for second start, got %v", err)
	}
	if api.createCalls != 1 {
		t.Errorf("second start must not create a process, got %d calls", api.createCalls)
	}
}

func TestConcurrentStartsCreateOneProcess(t *testing.T) {
	api := &fakeProcessAPI{}
	orch := NewOrchestrator(api)

	cfg := NewConfig()
	if _, err := cfg.AddDestination(ServiceTwitch, "key", OrientationHorizontal); err != nil {
		t.Fatalf("AddDestination: %v", err)
	}

	const starters = 4
	errs := make([]error, starters)
	var wg sync.WaitGroup
	for i := range starters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = orch.Start(context.Background(), cfg, "rtmp://in/live")
		}()
	}
	wg.Wait()

	if api.createCalls != 1 {
		t.Errorf("overlapping starts must create exactly one process, got %d", api.createCalls)
	}
	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if !errors.Is(err, services.ErrValidation) {
			t.Errorf("losing start should fail validation, got %v", err)
		}
	}
	if succeeded != 1 {
		t.Errorf("exactly one start should win, got %d", succeeded)
	}
	if cfg.Reference() == "" {
		t.Error("config should stay bound to the winning start")
	}
}

func TestStopWhileIdle(t *testing.T) {
	orch := NewOrchestrator(&fakeProcessAPI{})
	err := orch.Stop(context.Background(), NewConfig())
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAddDestinationWhileActive(t *testing.T) {
	api := &fakeProcessAPI{}
	orch := NewOrchestrator(api)

	cfg := NewConfig()
	cfg.SetSourceOrientation(OrientationHorizontal)
	if _, err := cfg.AddDestination(ServiceTwitch, "key", OrientationHorizontal); err != nil {
		t.Fatalf("AddDestination: %v", err)
	}
	if _, err := orch.Start(context.Background(), cfg, "rtmp://in/live"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	index, err := orch.AddDestination(context.Background(), cfg, ServiceTikTok, "tt-key", OrientationVertical)
	if err != nil {
		t.Fatalf("AddDestination: %v", err)
	}
	if index != 1 {
		t.Errorf("expected index 1, got %d", index)
	}
	if len(api.addedOutputs) != 1 {
		t.Fatalf("expected one live output, got %d", len(api.addedOutputs))
	}
	output := api.addedOutputs[0]
	if output.ID != "tiktok_1" {
		t.Errorf("output id mismatch: %q", output.ID)
	}
	if output.URL != "rtmp://live.tiktok.com/live/tt-key" {
		t.Errorf("output url mismatch: %q", output.URL)
	}
	if output.VideoFilter != "crop=ih*9/16:ih,scale=1080:1920" {
		t.Errorf("per-destination filter mismatch: %q", output.VideoFilter)
	}
}

func TestAddDestinationWhileIdleSkipsNetwork(t *testing.T) {
	api := &fakeProcessAPI{}
	orch := NewOrchestrator(api)

	cfg := NewConfig()
	if _, err := orch.AddDestination(context.Background(), cfg, ServiceKick, "key", OrientationAuto); err != nil {
		t.Fatalf("AddDestination: %v", err)
	}
	if api.listCalls != 0 || len(api.addedOutputs) != 0 {
		t.Error("idle destination changes must not touch the network")
	}
}

func TestSetDestinationEnabledWhileActive(t *testing.T) {
	api := &fakeProcessAPI{}
	orch := NewOrchestrator(api)

	cfg := NewConfig()
	cfg.SetSourceOrientation(OrientationHorizontal)
	if _, err := cfg.AddDestination(ServiceTwitch, "key", OrientationHorizontal); err != nil {
		t.Fatalf("AddDestination: %v", err)
	}
	if _, err := orch.Start(context.Background(), cfg, "rtmp://in/live"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := orch.SetDestinationEnabled(context.Background(), cfg, 0, false); err != nil {
		t.Fatalf("SetDestinationEnabled: %v", err)
	}
	if len(api.removedIDs) != 1 || api.removedIDs[0] != "twitch_0" {
		t.Errorf("disable should detach the output: %v", api.removedIDs)
	}

	if err := orch.SetDestinationEnabled(context.Background(), cfg, 0, true); err != nil {
		t.Fatalf("SetDestinationEnabled: %v", err)
	}
	if len(api.addedOutputs) != 1 || api.addedOutputs[0].ID != "twitch_0" {
		t.Errorf("enable should reattach the output: %v", api.addedOutputs)
	}
}
