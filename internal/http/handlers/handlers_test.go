package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"mediaforge/internal/domain"
	"mediaforge/internal/http/handlers"
	"mediaforge/internal/http/httpapi"
	"mediaforge/internal/infra"
	"mediaforge/internal/middleware"
	"mediaforge/internal/orchestrator"
	"mediaforge/internal/storage"
)

type stubJobs struct {
	jobs map[string]*domain.ProviderJob
}

func (s *stubJobs) Create(ctx context.Context, job *domain.ProviderJob) error { return nil }

func (s *stubJobs) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, outputURL *string) error {
	job, ok := s.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = status
	if outputURL != nil {
		job.OutputURL = outputURL
	}
	return nil
}

func (s *stubJobs) MarkSucceeded(ctx context.Context, jobID, outputURL string) (bool, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if job.Status == domain.JobStatusSucceeded {
		return false, nil
	}
	job.Status = domain.JobStatusSucceeded
	job.OutputURL = &outputURL
	return true, nil
}

func (s *stubJobs) GetByID(ctx context.Context, jobID string) (*domain.ProviderJob, error) {
	job, ok := s.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return job, nil
}

func (s *stubJobs) GetByUserAndKey(ctx context.Context, userID, key string) (*domain.ProviderJob, error) {
	return nil, domain.ErrNotFound
}

func testConfig() *infra.Config {
	return &infra.Config{
		AppEnv:          "test",
		JWTSecret:       "test-secret",
		UploadBucket:    "user-uploads",
		OutputBucket:    "generated-media",
		RateLimitMax:    100,
		RateLimitWindow: 10 * time.Second,
	}
}

func testApp(t *testing.T, jobs *stubJobs, store *storage.Client) (*handlers.App, *infra.Config) {
	t.Helper()
	cfg := testConfig()
	nop := zerolog.Nop()
	orch := orchestrator.NewService(orchestrator.Config{
		Logger:          nop,
		Jobs:            jobs,
		RateLimitMax:    cfg.RateLimitMax,
		RateLimitWindow: cfg.RateLimitWindow,
	})
	return handlers.NewApp(nop, cfg, orch, jobs, store, nil), cfg
}

func bearerToken(t *testing.T, sub string) string {
	t.Helper()
	token, err := middleware.SignJWT("test-secret", middleware.TokenClaims{
		Sub: sub,
		Exp: time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}
	return "Bearer " + token
}

func TestHealthReportsCapabilities(t *testing.T) {
	app, cfg := testApp(t, &stubJobs{jobs: map[string]*domain.ProviderJob{}}, nil)
	router := httpapi.NewRouter(app, cfg)

	req := httptest.NewRequest(http.MethodGet, "/v1/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Status       string          `json:"status"`
		Capabilities map[string]bool `json:"capabilities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "ok" || body.Capabilities["database"] {
		t.Fatalf("body = %+v", body)
	}
}

func TestGenerateRequiresAuth(t *testing.T) {
	app, cfg := testApp(t, &stubJobs{jobs: map[string]*domain.ProviderJob{}}, nil)
	router := httpapi.NewRouter(app, cfg)

	req := httptest.NewRequest(http.MethodPost, "/v1/generations", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestGenerateRejectsInvalidMode(t *testing.T) {
	app, cfg := testApp(t, &stubJobs{jobs: map[string]*domain.ProviderJob{}}, nil)
	router := httpapi.NewRouter(app, cfg)

	req := httptest.NewRequest(http.MethodPost, "/v1/generations", strings.NewReader(`{"mode":"teleport","prompt":"x"}`))
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "invalid_mode") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestJobStatusOwnership(t *testing.T) {
	url := "https://store.example/out.png"
	jobs := &stubJobs{jobs: map[string]*domain.ProviderJob{
		"job-1": {ID: "job-1", UserID: "user-1", Status: domain.JobStatusSucceeded, OutputURL: &url},
	}}
	app, cfg := testApp(t, jobs, nil)
	router := httpapi.NewRouter(app, cfg)

	req := httptest.NewRequest(http.MethodGet, "/v1/generations/job-1", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-2"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("foreign job: status = %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/generations/job-1", nil)
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("own job: status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "out.png") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestCallbackUnknownJobIs404(t *testing.T) {
	app, cfg := testApp(t, &stubJobs{jobs: map[string]*domain.ProviderJob{}}, nil)
	router := httpapi.NewRouter(app, cfg)

	req := httptest.NewRequest(http.MethodPost, "/v1/generations/callback/nope", strings.NewReader(`{"status":"succeeded"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestSignUpload(t *testing.T) {
	storageSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/storage/v1/object/upload/sign/user-uploads/user-1/") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"url": "/object/upload/sign/tok"})
	}))
	defer storageSrv.Close()

	store, err := storage.NewClient(storage.Options{BaseURL: storageSrv.URL, ServiceKey: "svc"})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	app, cfg := testApp(t, &stubJobs{jobs: map[string]*domain.ProviderJob{}}, store)
	router := httpapi.NewRouter(app, cfg)

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads/sign", strings.NewReader(`{"filename":"my photo.png"}`))
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		UploadURL string `json:"upload_url"`
		Path      string `json:"path"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Path != "user-1/my-photo.png" {
		t.Fatalf("path = %q", body.Path)
	}
	if body.UploadURL == "" {
		t.Fatalf("missing upload_url")
	}
}

func TestSignUploadRejectsTraversal(t *testing.T) {
	app, cfg := testApp(t, &stubJobs{jobs: map[string]*domain.ProviderJob{}}, nil)
	router := httpapi.NewRouter(app, cfg)

	req := httptest.NewRequest(http.MethodPost, "/v1/uploads/sign", strings.NewReader(`{"filename":"../../other/secret.png"}`))
	req.Header.Set("Authorization", bearerToken(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}
