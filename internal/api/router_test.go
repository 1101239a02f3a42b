package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/location-replay-go/internal/config"
	"github.com/jengzang/location-replay-go/internal/database"
	"github.com/jengzang/location-replay-go/internal/handler"
	"github.com/jengzang/location-replay-go/internal/middleware"
	"github.com/jengzang/location-replay-go/internal/repository"
	"github.com/jengzang/location-replay-go/internal/service"
	"github.com/jengzang/location-replay-go/internal/simulation"
)

const restingLog = `#latitude;longitude;LYING_DOWN
32.88258800;-117.23458300;False
32.88268800;-117.23458300;True
`

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestRouter(t *testing.T, limiter *middleware.RateLimiter) (*gin.Engine, *config.Config) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	dir := t.TempDir()

	logPath := filepath.Join(dir, "resting.txt")
	if err := os.WriteFile(logPath, []byte(restingLog), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}
	cfg := config.Default()
	cfg.JWTSecret = "test-secret"
	cfg.Providers = []config.ProviderConfig{
		{Name: "resting", Kind: config.KindReplay, LogFile: logPath, Schema: "minimal"},
		{Name: "courier", Kind: config.KindRoute, SpeedMps: 2, Waypoints: [][2]float64{{32.8801, -117.2340}, {32.8810, -117.2355}}},
	}
	cfg.Agents = []string{"alice"}

	conn, err := database.Open(filepath.Join(dir, "replay.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := database.NewMigrationManager(conn).RunMigrations(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := service.NewReplayService(repository.NewSampleRepository(conn))
	sim, err := simulation.Setup(cfg, simulation.WithRecorder(svc))
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	t.Cleanup(func() { sim.Close() })
	if err := svc.StartRun(sim.RunID(), sim.ProviderCount()); err != nil {
		t.Fatalf("start run: %v", err)
	}

	r := SetupRouter(cfg, handler.NewReplayHandler(sim, svc), limiter)
	return r, cfg
}

func do(t *testing.T, r *gin.Engine, method, path, token string) (int, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body envelope
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %s %s: %v (%s)", method, path, err, w.Body.String())
	}
	return w.Code, body
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t, middleware.NewRateLimiter(1000, time.Minute))
	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestProviderEndpoints(t *testing.T) {
	r, _ := newTestRouter(t, middleware.NewRateLimiter(1000, time.Minute))

	code, body := do(t, r, http.MethodGet, "/api/v1/providers", "")
	if code != http.StatusOK || body.Code != 0 {
		t.Fatalf("unexpected providers response %d %+v", code, body)
	}
	var list struct {
		Count int `json:"count"`
	}
	json.Unmarshal(body.Data, &list)
	if list.Count != 2 {
		t.Fatalf("expected 2 providers, got %d", list.Count)
	}

	if code, _ := do(t, r, http.MethodGet, "/api/v1/providers/1", ""); code != http.StatusOK {
		t.Fatalf("expected provider 1, got %d", code)
	}
	if code, _ := do(t, r, http.MethodGet, "/api/v1/providers/2", ""); code != http.StatusNotFound {
		t.Fatalf("expected 404 for provider 2, got %d", code)
	}
	if code, _ := do(t, r, http.MethodGet, "/api/v1/providers/x", ""); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for provider x, got %d", code)
	}
}

func TestTickRequiresToken(t *testing.T) {
	r, _ := newTestRouter(t, middleware.NewRateLimiter(1000, time.Minute))

	if code, _ := do(t, r, http.MethodPost, "/api/v1/simulation/tick", ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}
}

func TestTickPersistsSamples(t *testing.T) {
	r, cfg := newTestRouter(t, middleware.NewRateLimiter(1000, time.Minute))
	token, err := middleware.IssueToken(cfg.JWTSecret, "ops", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	for i := 1; i <= 3; i++ {
		code, body := do(t, r, http.MethodPost, "/api/v1/simulation/tick", token)
		if code != http.StatusOK {
			t.Fatalf("tick %d: %d %s", i, code, body.Message)
		}
		var tick struct {
			Tick     int64  `json:"tick"`
			Operator string `json:"operator"`
		}
		json.Unmarshal(body.Data, &tick)
		if tick.Tick != int64(i) || tick.Operator != "ops" {
			t.Fatalf("unexpected tick response %+v", tick)
		}
	}

	code, body := do(t, r, http.MethodGet, "/api/v1/samples?providerIndex=0&pageSize=2", "")
	if code != http.StatusOK {
		t.Fatalf("samples: %d %s", code, body.Message)
	}
	var page struct {
		Total      int64 `json:"total"`
		TotalPages int   `json:"totalPages"`
		Data       []struct {
			Tick  int64  `json:"tick"`
			Agent string `json:"agent"`
		} `json:"data"`
	}
	json.Unmarshal(body.Data, &page)
	if page.Total != 3 || page.TotalPages != 2 || len(page.Data) != 2 || page.Data[0].Agent != "alice" {
		t.Fatalf("unexpected samples page %+v", page)
	}

	if code, _ := do(t, r, http.MethodGet, "/api/v1/samples?geohash=9mua", ""); code != http.StatusBadRequest {
		t.Fatalf("expected 400 for an invalid geohash, got %d", code)
	}
	code, body = do(t, r, http.MethodGet, "/api/v1/samples?providerIndex=0&geohash=9mueh60", "")
	if code != http.StatusOK {
		t.Fatalf("samples by geohash: %d %s", code, body.Message)
	}
	json.Unmarshal(body.Data, &page)
	if page.Total != 3 {
		t.Fatalf("expected all three fixes inside 9mueh60, got %d", page.Total)
	}

	code, body = do(t, r, http.MethodGet, "/api/v1/providers/0/summary", "")
	if code != http.StatusOK {
		t.Fatalf("summary: %d %s", code, body.Message)
	}
	var summary struct {
		Samples int     `json:"samples"`
		WithFix int     `json:"withFix"`
		Dist    float64 `json:"distanceMeters"`
	}
	json.Unmarshal(body.Data, &summary)
	if summary.Samples != 3 || summary.WithFix != 3 || summary.Dist < 22 {
		t.Fatalf("unexpected summary %+v", summary)
	}

	code, body = do(t, r, http.MethodGet, "/api/v1/agents", "")
	if code != http.StatusOK {
		t.Fatalf("agents: %d", code)
	}
	var agents struct {
		Data []struct {
			Name   string `json:"name"`
			Status string `json:"status"`
		} `json:"data"`
	}
	json.Unmarshal(body.Data, &agents)
	if len(agents.Data) != 1 || agents.Data[0].Status != "32.88258800, -117.23458300 - LYING_DOWN = false" {
		t.Fatalf("unexpected agents %+v", agents)
	}

	if code, _ := do(t, r, http.MethodGet, "/api/v1/providers/9/summary", ""); code != http.StatusNotFound {
		t.Fatalf("expected 404 summary, got %d", code)
	}
}

func TestRateLimited(t *testing.T) {
	r, _ := newTestRouter(t, middleware.NewRateLimiter(1, time.Minute))

	first := httptest.NewRecorder()
	r.ServeHTTP(first, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	second := httptest.NewRecorder()
	r.ServeHTTP(second, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if first.Code != http.StatusOK || second.Code != http.StatusTooManyRequests {
		t.Fatalf("unexpected codes %d/%d", first.Code, second.Code)
	}
}
