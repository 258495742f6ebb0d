package restreamer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"polyemesis/internal/logging"
	"polyemesis/internal/services"
	"polyemesis/internal/testsupport"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	parsed, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse test server url: %v", err)
	}
	port, err := strconv.Atoi(parsed.Port())
	if err != nil {
		t.Fatalf("parse test server port: %v", err)
	}

	client, err := NewClient(Connection{
		Host:     parsed.Hostname(),
		Port:     port,
		Username: "admin",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return client, server
}

func writeTokens(w http.ResponseWriter, expiresAt int64) {
	json.NewEncoder(w).Encode(map[string]any{
		"access_token":  "access-1",
		"refresh_token": "refresh-1",
		"expires_at":    expiresAt,
	})
}

func TestLoginStoresTokens(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/login" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var creds map[string]string
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			t.Fatalf("decode credentials: %v", err)
		}
		if creds["username"] != "admin" || creds["password"] != "secret" {
			t.Errorf("unexpected credentials %v", creds)
		}
		writeTokens(w, time.Now().Add(time.Hour).Unix())
	}))

	if err := client.Login(context.Background()); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !client.IsConnected() {
		t.Error("expected IsConnected after login")
	}
}

func TestLoginRequiresCredentials(t *testing.T) {
	client, err := NewClient(Connection{Host: "localhost"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	err = client.Login(context.Background())
	if !errors.Is(err, services.ErrAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestTokenReusedUntilExpiry(t *testing.T) {
	logins := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			logins++
			writeTokens(w, time.Now().Add(time.Hour).Unix())
		case "/api/v3/process":
			if got := r.Header.Get("Authorization"); got != "Bearer access-1" {
				t.Errorf("unexpected authorization header %q", got)
			}
			fmt.Fprint(w, "[]")
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))

	ctx := context.Background()
	for range 3 {
		if _, err := client.ListProcesses(ctx); err != nil {
			t.Fatalf("ListProcesses: %v", err)
		}
	}
	if logins != 1 {
		t.Errorf("expected a single login, got %d", logins)
	}
}

func TestExpiredTokenTriggersRelogin(t *testing.T) {
	logins := 0
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			logins++
			writeTokens(w, time.Now().Add(-time.Minute).Unix())
		case "/api/v3/process":
			fmt.Fprint(w, "[]")
		}
	}))

	ctx := context.Background()
	for range 2 {
		if _, err := client.ListProcesses(ctx); err != nil {
			t.Fatalf("ListProcesses: %v", err)
		}
	}
	if logins != 2 {
		t.Errorf("expected re-login after expiry, got %d logins", logins)
	}
}

func TestStatusErrorClassification(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/login" {
			writeTokens(w, time.Now().Add(time.Hour).Unix())
			return
		}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := client.ListProcesses(context.Background())
	if !errors.Is(err, services.ErrHTTPStatus) {
		t.Fatalf("expected http status error, got %v", err)
	}
	if !strings.Contains(err.Error(), "500") {
		t.Errorf("error should carry the status code: %v", err)
	}
}

func TestCreateProcessCommandSynthesis(t *testing.T) {
	var body map[string]any
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/login":
			writeTokens(w, time.Now().Add(time.Hour).Unix())
		case "/api/v3/process":
			if r.Method != http.MethodPost {
				t.Errorf("unexpected method %s", r.Method)
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			fmt.Fprint(w, "{}")
		}
	}))

	err := client.CreateProcess(context.Background(), "job-1",
		"rtmp://local/live/stream",
		[]string{"rtmp://live.twitch.tv/app/key1", "rtmp://a.rtmp.youtube.com/live2/key2"},
		"crop=ih*9/16:ih,scale=1080:1920")
	if err != nil {
		t.Fatalf("CreateProcess: %v", err)
	}

	want := `-re -i rtmp://local/live/stream -c:v copy -c:a copy -f tee -map 0:v -map 0:a ` +
		`-vf crop=ih*9/16:ih,scale=1080:1920 ` +
		`"[f=flv]rtmp://live.twitch.tv/app/key1|[f=flv]rtmp://a.rtmp.youtube.com/live2/key2"`
	if got := body["command"]; got != want {
		t.Errorf("command mismatch:\n got %v\nwant %v", got, want)
	}
	if body["reference"] != "job-1" {
		t.Errorf("reference mismatch: %v", body["reference"])
	}
	if body["autostart"] != true {
		t.Errorf("autostart not set: %v", body["autostart"])
	}
}

func TestCreateProcessWithoutFilter(t *testing.T) {
	got := buildTeeCommand("srt://in", []string{"rtmp://out/key"}, "")
	want := `-re -i srt://in -c:v copy -c:a copy -f tee -map 0:v -map 0:a "[f=flv]rtmp://out/key"`
	if got != want {
		t.Errorf("command mismatch:\n got %s\nwant %s", got, want)
	}
}

func TestListProcessesTolerantDecode(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/login" {
			writeTokens(w, time.Now().Add(time.Hour).Unix())
			return
		}
		// uptime is mistyped and cpu_usage missing; both keep defaults.
		fmt.Fprint(w, `[{"id":"p1","reference":"ref","state":"running","uptime":"soon","memory":1024}]`)
	}))

	processes, err := client.ListProcesses(context.Background())
	if err != nil {
		t.Fatalf("ListProcesses: %v", err)
	}
	if len(processes) != 1 {
		t.Fatalf("expected one process, got %d", len(processes))
	}
	p := processes[0]
	if p.ID != "p1" || p.Reference != "ref" || p.State != "running" {
		t.Errorf("unexpected process %+v", p)
	}
	if p.UptimeSeconds != 0 {
		t.Errorf("mistyped uptime should stay zero, got %d", p.UptimeSeconds)
	}
	if p.MemoryBytes != 1024 {
		t.Errorf("memory mismatch: %d", p.MemoryBytes)
	}
}

func TestListProcessesMissingID(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/login" {
			writeTokens(w, time.Now().Add(time.Hour).Unix())
			return
		}
		fmt.Fprint(w, `[{"reference":"ref"}]`)
	}))

	_, err := client.ListProcesses(context.Background())
	if !errors.Is(err, services.ErrParse) {
		t.Fatalf("expected parse error for missing id, got %v", err)
	}
}

func TestActiveSessionsAggregates(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/login" {
			writeTokens(w, time.Now().Add(time.Hour).Unix())
			return
		}
		fmt.Fprint(w, `{"sessions":[
			{"id":"s1","bytes_sent":100,"bytes_received":10},
			{"id":"s2","bytes_sent":200,"bytes_received":20}
		]}`)
	}))

	summary, err := client.ActiveSessions(context.Background())
	if err != nil {
		t.Fatalf("ActiveSessions: %v", err)
	}
	if summary.SessionCount != 2 {
		t.Errorf("session count mismatch: %d", summary.SessionCount)
	}
	if summary.TotalTxBytes != 300 || summary.TotalRxBytes != 30 {
		t.Errorf("transfer totals mismatch: %+v", summary)
	}
}

func TestProcessStateProgress(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/login" {
			writeTokens(w, time.Now().Add(time.Hour).Unix())
			return
		}
		fmt.Fprint(w, `{"order":"start","running":true,"progress":{"frames":120,"dropped_frames":2,"bitrate":4500,"fps":30.0,"size_kb":2048,"packets":400}}`)
	}))

	state, err := client.GetProcessState(context.Background(), "p1")
	if err != nil {
		t.Fatalf("GetProcessState: %v", err)
	}
	if state.Frames != 120 || state.DroppedFrames != 2 {
		t.Errorf("frame counters mismatch: %+v", state)
	}
	if state.BytesWritten != 2048*1024 {
		t.Errorf("size_kb should convert to bytes, got %d", state.BytesWritten)
	}
	if !state.Running {
		t.Error("expected running state")
	}
}

func TestEncodingBitrateWireScale(t *testing.T) {
	var put encodingWire
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/login":
			writeTokens(w, time.Now().Add(time.Hour).Unix())
		case r.Method == http.MethodGet:
			fmt.Fprint(w, `{"video_bitrate":6000000,"audio_bitrate":160000,"resolution":{"width":1920,"height":1080},"fps":{"num":60,"den":1}}`)
		case r.Method == http.MethodPut:
			if err := json.NewDecoder(r.Body).Decode(&put); err != nil {
				t.Fatalf("decode encoding body: %v", err)
			}
			fmt.Fprint(w, "{}")
		}
	}))

	ctx := context.Background()
	params, err := client.OutputEncoding(ctx, "p1", "twitch_0")
	if err != nil {
		t.Fatalf("OutputEncoding: %v", err)
	}
	if params.VideoBitrateKbps != 6000 || params.AudioBitrateKbps != 160 {
		t.Errorf("bitrates should scale down from wire units: %+v", params)
	}
	if params.Width != 1920 || params.FPSNum != 60 {
		t.Errorf("resolution or fps mismatch: %+v", params)
	}

	if err := client.SetOutputEncoding(ctx, "p1", "twitch_0", params); err != nil {
		t.Fatalf("SetOutputEncoding: %v", err)
	}
	if put.VideoBitrate != 6000000 || put.AudioBitrate != 160000 {
		t.Errorf("bitrates should scale up on the wire: %+v", put)
	}
}

func TestListFilesEscapesGlob(t *testing.T) {
	var gotQuery string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/login" {
			writeTokens(w, time.Now().Add(time.Hour).Unix())
			return
		}
		gotQuery = r.URL.RawQuery
		fmt.Fprint(w, `[{"name":"a.ts","size":10,"modified":1700000000}]`)
	}))

	entries, err := client.ListFiles(context.Background(), "disk", "/recordings/*.ts")
	if err != nil {
		t.Fatalf("ListFiles: %v", err)
	}
	if gotQuery != "glob="+url.QueryEscape("/recordings/*.ts") {
		t.Errorf("glob not escaped: %s", gotQuery)
	}
	if len(entries) != 1 || entries[0].Name != "a.ts" {
		t.Errorf("unexpected entries %+v", entries)
	}
}

func TestListFilesystemsSkipsMalformedEntries(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/login" {
			writeTokens(w, time.Now().Add(time.Hour).Unix())
			return
		}
		// The second element is not an object and must be dropped, not
		// abort the whole listing.
		fmt.Fprint(w, `[{"name":"disk","type":"disk","mount":"/data"},42,{"name":"mem","type":"mem","mount":"/memfs"}]`)
	}))

	filesystems, err := client.ListFilesystems(context.Background())
	if err != nil {
		t.Fatalf("ListFilesystems: %v", err)
	}
	if len(filesystems) != 2 {
		t.Fatalf("expected two filesystems, got %d", len(filesystems))
	}
	if filesystems[0].Name != "disk" || filesystems[0].Mount != "/data" {
		t.Errorf("unexpected first filesystem %+v", filesystems[0])
	}
	if filesystems[1].Name != "mem" || filesystems[1].Type != "mem" {
		t.Errorf("unexpected second filesystem %+v", filesystems[1])
	}
}

func TestFromConfigConnection(t *testing.T) {
	cfg := testsupport.NewConfig(t,
		testsupport.WithServer("media.internal", 9090),
		testsupport.WithHistoryDisabled())

	client, err := FromConfig(cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	conn := client.Connection()
	if conn.Host != "media.internal" || conn.Port != 9090 {
		t.Errorf("connection mismatch: %+v", conn)
	}
	if conn.Username != "test" {
		t.Errorf("credentials not carried over: %+v", conn)
	}
}

func TestRequestLogCarriesContextFields(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/login" {
			writeTokens(w, time.Now().Add(time.Hour).Unix())
			return
		}
		fmt.Fprint(w, "[]")
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	parsed, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("parse test server url: %v", err)
	}
	port, err := strconv.Atoi(parsed.Port())
	if err != nil {
		t.Fatalf("parse test server port: %v", err)
	}

	var buf bytes.Buffer
	logger, err := logging.New(logging.Options{Level: "debug", Format: "json", Output: &buf})
	if err != nil {
		t.Fatalf("logging.New: %v", err)
	}

	client, err := NewClient(Connection{
		Host:     parsed.Hostname(),
		Port:     port,
		Username: "admin",
		Password: "secret",
	}, WithLogger(logger))
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}

	ctx := services.WithOperation(context.Background(), "list processes")
	if _, err := client.ListProcesses(ctx); err != nil {
		t.Fatalf("ListProcesses: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, `"operation":"list processes"`) {
		t.Errorf("request log should carry the operation annotation: %s", out)
	}
	if !strings.Contains(out, `"correlation_id"`) {
		t.Errorf("request log should carry a correlation id: %s", out)
	}
	if !strings.Contains(out, `"path":"/api/v3/process"`) {
		t.Errorf("request log should name the path: %s", out)
	}
}

func TestPing(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ping" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "" {
			t.Error("ping must not carry a token")
		}
		fmt.Fprint(w, "pong")
	}))

	if err := client.Ping(context.Background()); err != nil {
		t.Fatalf("Ping: %v", err)
	}
}
