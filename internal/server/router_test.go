package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	mng "github.com/loykin/minesim/internal/manager"
	"github.com/loykin/minesim/internal/mining"
)

func newTestManager(t *testing.T) *mng.Manager {
	t.Helper()
	cfg := mining.DefaultConfig()
	cfg.BatchSize = 500
	cfg.ReportInterval = 20 * time.Millisecond
	cfg.YieldDuration = time.Millisecond
	mgr, err := mng.New(cfg)
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	t.Cleanup(func() { _ = mgr.Shutdown(context.Background()) })
	return mgr
}

func setupRouter(t *testing.T, base string, opts Options) (http.Handler, *mng.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mgr := newTestManager(t)
	r := NewRouter(mgr, base, opts)
	return r.Handler(), mgr
}

func doReq(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestStartStopStatus(t *testing.T) {
	h, _ := setupRouter(t, "/api", Options{})

	rec := doReq(t, h, http.MethodGet, "/api/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if st := decode[mng.Status](t, rec); st.State != "stopped" || st.Running {
		t.Fatalf("unexpected initial status: %+v", st)
	}

	for i := 0; i < 2; i++ {
		rec = doReq(t, h, http.MethodPost, "/api/start", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("start #%d: expected 200, got %d: %s", i, rec.Code, rec.Body.String())
		}
	}
	st := decode[mng.Status](t, doReq(t, h, http.MethodGet, "/api/status", nil))
	if !st.Running || st.RunID == "" || st.Runs != 1 {
		t.Fatalf("unexpected running status: %+v", st)
	}

	for i := 0; i < 2; i++ {
		rec = doReq(t, h, http.MethodPost, "/api/stop?wait=2s", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("stop #%d: expected 200, got %d: %s", i, rec.Code, rec.Body.String())
		}
	}
	st = decode[mng.Status](t, doReq(t, h, http.MethodGet, "/api/status", nil))
	if st.Running || st.State != "stopped" {
		t.Fatalf("expected stopped, got %+v", st)
	}
}

func TestStopInvalidWait(t *testing.T) {
	h, _ := setupRouter(t, "", Options{})
	for _, q := range []string{"abc", "-1s", "0s"} {
		rec := doReq(t, h, http.MethodPost, "/stop?wait="+q, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("wait=%s: expected 400, got %d", q, rec.Code)
		}
	}
}

func TestLogs(t *testing.T) {
	h, mgr := setupRouter(t, "/api", Options{})
	logs := decode[logsResp](t, doReq(t, h, http.MethodGet, "/api/logs", nil))
	if logs.Lines == nil || len(logs.Lines) != 0 {
		t.Fatalf("expected empty non-nil lines, got %#v", logs.Lines)
	}

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := mgr.Stop(context.Background()); err != nil {
		t.Fatal(err)
	}
	logs = decode[logsResp](t, doReq(t, h, http.MethodGet, "/api/logs", nil))
	if len(logs.Lines) == 0 || !strings.Contains(logs.Lines[0], "Process Started...") {
		t.Fatalf("unexpected lines: %v", logs.Lines)
	}
}

func TestDifficulty(t *testing.T) {
	h, mgr := setupRouter(t, "/api", Options{})

	got := decode[difficultyResp](t, doReq(t, h, http.MethodGet, "/api/difficulty", nil))
	if got.Difficulty != mng.DefaultDifficulty || got.Min != 1 || got.Max != 5 {
		t.Fatalf("unexpected difficulty: %+v", got)
	}

	rec := doReq(t, h, http.MethodPost, "/api/difficulty?value=4", nil)
	if rec.Code != http.StatusOK || mgr.Difficulty() != 4 {
		t.Fatalf("query set failed: %d %s", rec.Code, rec.Body.String())
	}
	rec = doReq(t, h, http.MethodPost, "/api/difficulty", difficultyReq{Difficulty: 1})
	if rec.Code != http.StatusOK || mgr.Difficulty() != 1 {
		t.Fatalf("json set failed: %d %s", rec.Code, rec.Body.String())
	}

	for _, path := range []string{"/api/difficulty?value=9", "/api/difficulty?value=x"} {
		rec = doReq(t, h, http.MethodPost, path, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", path, rec.Code)
		}
	}
	rec = doReq(t, h, http.MethodPost, "/api/difficulty", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("empty body: expected 400, got %d", rec.Code)
	}
	if mgr.Difficulty() != 1 {
		t.Fatalf("difficulty changed by rejected requests: %d", mgr.Difficulty())
	}
}

func TestDashboardAndMetrics(t *testing.T) {
	metricsHandler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("minesim_miner_hashes_total 0\n"))
	})
	h, _ := setupRouter(t, "/miner", Options{Dashboard: true, Metrics: metricsHandler})

	rec := doReq(t, h, http.MethodGet, "/", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "const base = '/miner';") || strings.Contains(body, "__BASE__") {
		t.Fatalf("base path not injected into dashboard")
	}

	rec = doReq(t, h, http.MethodGet, "/metrics", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "minesim_miner_hashes_total") {
		t.Fatalf("metrics: %d %s", rec.Code, rec.Body.String())
	}

	h, _ = setupRouter(t, "/miner", Options{})
	if rec := doReq(t, h, http.MethodGet, "/", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("dashboard disabled: expected 404, got %d", rec.Code)
	}
	if rec := doReq(t, h, http.MethodGet, "/metrics", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("metrics disabled: expected 404, got %d", rec.Code)
	}
}

func TestEventsStream(t *testing.T) {
	h, mgr := setupRouter(t, "/api", Options{})
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("events request: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("unexpected content type %q", ct)
	}

	if err := mgr.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	sc := bufio.NewScanner(resp.Body)
	seen := map[string]bool{}
	for sc.Scan() {
		line := sc.Text()
		if name, ok := strings.CutPrefix(line, "event:"); ok {
			seen[name] = true
		}
		if data, ok := strings.CutPrefix(line, "data:"); ok && seen["alive"] {
			var e mining.Event
			if err := json.Unmarshal([]byte(data), &e); err != nil {
				t.Fatalf("decode event: %v", err)
			}
			if e.Kind == mining.EventAlive && e.Snapshot.TotalCount > 0 && e.Line != "" {
				break
			}
		}
	}
	if !seen["started"] || !seen["alive"] {
		t.Fatalf("expected started and alive events, saw %v (scan err %v)", seen, sc.Err())
	}
}

func TestSanitizeBase(t *testing.T) {
	cases := map[string]string{
		"":        "",
		"/":       "",
		"api":     "/api",
		"/api/":   "/api",
		" /x/y/ ": "/x/y",
	}
	for in, want := range cases {
		if got := sanitizeBase(in); got != want {
			t.Fatalf("sanitizeBase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewServer(t *testing.T) {
	mgr := newTestManager(t)
	srv, err := NewServer("127.0.0.1:0", "/api", mgr, Options{})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	defer func() { _ = srv.Close() }()
	if srv.WriteTimeout != 0 {
		t.Fatalf("unexpected write timeout %v", srv.WriteTimeout)
	}

	resp, err := http.Get("http://" + srv.Addr + "/api/status")
	if err != nil {
		t.Fatalf("status over network: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status: expected 200, got %d", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}

func TestNewServerAddressInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = ln.Close() }()

	srv, err := NewServer(ln.Addr().String(), "", newTestManager(t), Options{})
	if err == nil {
		_ = srv.Close()
		t.Fatalf("expected bind error for %s", ln.Addr())
	}
	if srv != nil {
		t.Fatalf("expected nil server on bind failure")
	}
}
