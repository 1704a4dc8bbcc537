package web

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-drowsy/pkg/actuator"
	"github.com/teslashibe/go-drowsy/pkg/camera"
	"github.com/teslashibe/go-drowsy/pkg/drowsiness"
	"github.com/teslashibe/go-drowsy/pkg/pipeline"
	"github.com/teslashibe/go-drowsy/pkg/store"
)

type fixture struct {
	server *Server
	mock   *actuator.Mock
	cam    *camera.Manager
	store  *store.Store
	sessID string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	mock := actuator.NewMock()
	disp := actuator.NewDispatcher(mock, 4, time.Second)
	go disp.Run(ctx)

	st, err := store.Open(ctx, filepath.Join(t.TempDir(), "web.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	sess, err := st.StartSession(ctx, "test", drowsiness.DefaultConfig())
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}

	m, err := drowsiness.NewMonitor(drowsiness.DefaultConfig())
	if err != nil {
		t.Fatalf("NewMonitor: %v", err)
	}
	cam := camera.NewManager(camera.DefaultConfig())

	s := NewServer(0, Backend{
		Thresholds: drowsiness.DefaultConfig(),
		Camera:     cam,
		Dispatcher: disp,
		Runner:     pipeline.NewRunner(m, pipeline.NewChanSource(1), nil),
		Store:      st,
	})
	return &fixture{server: s, mock: mock, cam: cam, store: st, sessID: sess.ID}
}

func do(t *testing.T, s *Server, method, path, body string) (int, string) {
	t.Helper()

	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.App().Test(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(b)
}

func TestIndex(t *testing.T) {
	f := newFixture(t)
	status, body := do(t, f.server, "GET", "/", "")
	if status != http.StatusOK || !strings.Contains(body, "/ws/status") {
		t.Errorf("GET /: status %d", status)
	}
}

func TestStatusReflectsPublish(t *testing.T) {
	f := newFixture(t)

	f.server.SetSource("camera:0", f.sessID)
	f.server.Publish(drowsiness.Result{Seq: 41, FaceDetected: true, Drowsy: true, EyeRequired: 20}, nil)

	status, body := do(t, f.server, "GET", "/api/status", "")
	if status != http.StatusOK {
		t.Fatalf("status: %d", status)
	}

	var st DashboardState
	if err := json.Unmarshal([]byte(body), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Result.Seq != 41 || st.Message != "DROWSINESS ALERT!" || st.Source != "camera:0" {
		t.Errorf("state: got %+v", st)
	}
}

func TestAlertsAreLogged(t *testing.T) {
	f := newFixture(t)

	f.server.OnAlertTriggered(drowsiness.Event{Kind: drowsiness.KindYawn, Seq: 9, Value: 30})

	if st := f.server.State(); st.LastAlert == nil || st.LastAlert.Kind != drowsiness.KindYawn {
		t.Errorf("LastAlert: got %+v", st.LastAlert)
	}

	_, body := do(t, f.server, "GET", "/api/logs", "")
	if !strings.Contains(body, "YAWN DETECTED!") {
		t.Errorf("logs should contain the alert, got %s", body)
	}
}

func TestLogBufferIsBounded(t *testing.T) {
	f := newFixture(t)
	for i := 0; i < maxLogs+20; i++ {
		f.server.AddLog("info", "line")
	}
	if got := len(f.server.Logs()); got != maxLogs {
		t.Errorf("Logs: got %d entries, want %d", got, maxLogs)
	}
}

func TestTestAlert(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		path   string
		status int
	}{
		{"/api/alerts/yawn/test", http.StatusAccepted},
		{"/api/alerts/sneeze/test", http.StatusBadRequest},
	}
	for _, tt := range tests {
		if status, body := do(t, f.server, "POST", tt.path, ""); status != tt.status {
			t.Errorf("POST %s: got %d (%s), want %d", tt.path, status, body, tt.status)
		}
	}

	select {
	case kind := <-f.mock.Done():
		if kind != drowsiness.KindYawn {
			t.Errorf("pulsed %v, want yawn", kind)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("test alert never reached the actuator")
	}
}

func TestRoutesWithoutBackend(t *testing.T) {
	s := NewServer(0, Backend{Thresholds: drowsiness.DefaultConfig()})

	tests := []struct {
		method, path string
		status       int
	}{
		{"POST", "/api/alerts/yawn/test", http.StatusServiceUnavailable},
		{"POST", "/api/reset", http.StatusServiceUnavailable},
		{"GET", "/api/camera", http.StatusNotFound},
		{"GET", "/api/events", http.StatusServiceUnavailable},
		{"GET", "/api/sessions", http.StatusServiceUnavailable},
		{"GET", "/api/metrics", http.StatusOK},
		{"GET", "/api/config", http.StatusOK},
		{"GET", "/ws/status", http.StatusUpgradeRequired},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			if status, _ := do(t, s, tt.method, tt.path, ""); status != tt.status {
				t.Errorf("got %d, want %d", status, tt.status)
			}
		})
	}
}

func TestReset(t *testing.T) {
	f := newFixture(t)
	if status, _ := do(t, f.server, "POST", "/api/reset", ""); status != http.StatusAccepted {
		t.Errorf("POST /api/reset: got %d", status)
	}
}

func TestCameraUpdate(t *testing.T) {
	f := newFixture(t)

	status, body := do(t, f.server, "POST", "/api/camera", `{"width": 640, "mirror": true}`)
	if status != http.StatusOK {
		t.Fatalf("POST /api/camera: %d %s", status, body)
	}
	if cfg := f.cam.GetConfig(); cfg.Width != 640 || !cfg.Mirror {
		t.Errorf("camera config: got %+v", cfg)
	}

	if status, _ := do(t, f.server, "POST", "/api/camera", `{"width": 10}`); status != http.StatusBadRequest {
		t.Errorf("invalid width: got %d, want 400", status)
	}

	_, body = do(t, f.server, "GET", "/api/camera/presets", "")
	if !strings.Contains(body, "lowpower") {
		t.Errorf("presets: got %s", body)
	}

	_, body = do(t, f.server, "GET", "/api/config", "")
	if !strings.Contains(body, `"ear_threshold":0.25`) {
		t.Errorf("config: got %s", body)
	}
}

func TestEventsAndSessions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.InsertEvent(ctx, f.sessID, drowsiness.Event{Kind: drowsiness.KindDrowsiness, Seq: 19, Time: time.Now()})
	f.store.InsertEvent(ctx, f.sessID, drowsiness.Event{Kind: drowsiness.KindYawn, Seq: 30, Time: time.Now()})

	tests := []struct {
		path   string
		status int
		count  int
	}{
		{"/api/events", http.StatusOK, 2},
		{"/api/events?kind=yawn", http.StatusOK, 1},
		{"/api/events?session=" + f.sessID + "&limit=1", http.StatusOK, 1},
		{"/api/events?kind=bogus", http.StatusBadRequest, 0},
		{"/api/events?since=yesterday", http.StatusBadRequest, 0},
		{"/api/sessions", http.StatusOK, 1},
		{"/api/sessions?limit=x", http.StatusBadRequest, 0},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			status, body := do(t, f.server, "GET", tt.path, "")
			if status != tt.status {
				t.Fatalf("got %d (%s), want %d", status, body, tt.status)
			}
			if status != http.StatusOK {
				return
			}
			var resp struct {
				Count int `json:"count"`
			}
			if err := json.Unmarshal([]byte(body), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Count != tt.count {
				t.Errorf("count: got %d, want %d", resp.Count, tt.count)
			}
		})
	}
}

func TestMetrics(t *testing.T) {
	f := newFixture(t)
	status, body := do(t, f.server, "GET", "/api/metrics", "")
	if status != http.StatusOK {
		t.Fatalf("status %d", status)
	}
	for _, want := range []string{`"pipeline"`, `"actuator"`, `"hubs"`, `"camera"`} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %s: %s", want, body)
		}
	}
}
