// Package orchestrator runs the generation pipeline: normalize the request,
// guard it with idempotency and rate-limit checks, reserve credits, resolve
// references, route to a provider variant and drive the job to a response.
// Every failure after a successful reservation triggers exactly one
// compensating refund.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"mediaforge/internal/credits"
	"mediaforge/internal/domain"
	"mediaforge/internal/normalize"
	"mediaforge/internal/providers"
	"mediaforge/internal/refs"
)

// JobStore is the slice of the job repository the orchestrator needs.
type JobStore interface {
	Create(ctx context.Context, job *domain.ProviderJob) error
	UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, outputURL *string) error
	MarkSucceeded(ctx context.Context, jobID, outputURL string) (bool, error)
	GetByID(ctx context.Context, jobID string) (*domain.ProviderJob, error)
	GetByUserAndKey(ctx context.Context, userID, key string) (*domain.ProviderJob, error)
}

// LogStore records best-effort analytics rows.
type LogStore interface {
	Insert(ctx context.Context, entry *domain.GenerationLog) error
}

// ObjectStore is the slice of the storage client used for output persistence.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) (string, error)
	PublicURL(bucket, path string) string
	CreateSignedURL(ctx context.Context, bucket, path string, ttl time.Duration) (string, error)
	Download(ctx context.Context, rawURL string) ([]byte, string, error)
}

// Response is the computed HTTP result of one orchestrated request. Bodies
// are pre-serialized so idempotent replays return byte-identical payloads.
type Response struct {
	Status    int
	Body      []byte
	ErrorCode string
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Logger          zerolog.Logger
	Credits         *credits.Ledger
	Refs            *refs.Resolver
	Sync            *providers.SyncDriver
	Async           providers.AsyncClient
	Jobs            JobStore
	Logs            LogStore
	Store           ObjectStore
	OutputBucket    string
	OutputPublic    bool
	SignedTTL       time.Duration
	PublicBaseURL   string
	IdempotencyTTL  time.Duration
	RateLimitMax    int
	RateLimitWindow time.Duration
}

// Service is the generation orchestrator.
type Service struct {
	log           zerolog.Logger
	credits       *credits.Ledger
	refs          *refs.Resolver
	sync          *providers.SyncDriver
	async         providers.AsyncClient
	jobs          JobStore
	logs          LogStore
	store         ObjectStore
	outputBucket  string
	outputPublic  bool
	signedTTL     time.Duration
	publicBaseURL string
	cache         *ResponseCache
	limiter       *RateLimiter
	now           func() time.Time
}

// NewService builds the orchestrator with fresh process-local caches.
func NewService(cfg Config) *Service {
	idemTTL := cfg.IdempotencyTTL
	if idemTTL <= 0 {
		idemTTL = 10 * time.Minute
	}
	return &Service{
		log:           cfg.Logger,
		credits:       cfg.Credits,
		refs:          cfg.Refs,
		sync:          cfg.Sync,
		async:         cfg.Async,
		jobs:          cfg.Jobs,
		logs:          cfg.Logs,
		store:         cfg.Store,
		outputBucket:  cfg.OutputBucket,
		outputPublic:  cfg.OutputPublic,
		signedTTL:     cfg.SignedTTL,
		publicBaseURL: cfg.PublicBaseURL,
		cache:         NewResponseCache(idemTTL),
		limiter:       NewRateLimiter(cfg.RateLimitMax, cfg.RateLimitWindow),
		now:           time.Now,
	}
}

// Generate runs the full pipeline for one request. clientKey identifies the
// caller for rate limiting (normally the forwarded client IP); idemKey is the
// optional caller-supplied idempotency key.
func (s *Service) Generate(ctx context.Context, userID, clientKey, idemKey string, raw normalize.RawRequest) Response {
	start := s.now()

	req, err := normalize.Normalize(raw)
	if err != nil {
		return s.fail(ctx, userID, raw.Model, start, err)
	}
	req.UserID = userID

	cacheKey := ""
	if idemKey != "" {
		cacheKey = userID + ":" + idemKey
		if cached, ok := s.cache.Get(cacheKey); ok {
			s.log.Debug().Str("user_id", userID).Msg("idempotency cache hit")
			return cached
		}
	}

	if !s.limiter.Allow(clientKey) {
		return s.fail(ctx, userID, req.Model, start,
			domain.NewRequestError(http.StatusTooManyRequests, "rate_limited", "too many requests, slow down"))
	}

	cost := providers.Cost(req.Model, len(req.References) > 0)
	reservation, err := s.credits.Reserve(ctx, userID, cost)
	if err != nil {
		return s.fail(ctx, userID, req.Model, start,
			domain.NewRequestError(http.StatusPaymentRequired, "insufficient_credits", "not enough credits for this generation"))
	}
	// Release refunds unless the success path settled first; it fires on
	// every exit below, so no error branch can leak the reservation.
	defer reservation.Release(ctx)

	refURLs := s.refs.Resolve(ctx, userID, req.References)

	target, err := providers.Route(req, refURLs)
	if err != nil {
		return s.fail(ctx, userID, req.Model, start, err)
	}

	var resp Response
	if target.Variant.Async() {
		resp = s.submitAsync(ctx, req, target, idemKey, reservation)
	} else {
		resp = s.runSync(ctx, req, target, reservation)
	}

	if cacheKey != "" && resp.Status < http.StatusMultipleChoices {
		s.cache.Put(cacheKey, resp)
	}
	s.record(ctx, userID, req.Model, target.Variant.Provider(), resp, start)
	return resp
}

// runSync drives a poll-to-completion provider inside the request lifetime.
func (s *Service) runSync(ctx context.Context, req *domain.GenerationRequest, target *providers.Target, reservation *credits.Reservation) Response {
	st, err := s.sync.Run(ctx, target.Path, target.Input)
	if err != nil {
		s.log.Error().Err(err).Str("path", target.Path).Msg("provider submission failed")
		return s.errorResponse(domain.NewRequestError(http.StatusBadGateway, "provider_unreachable", "generation provider could not be reached"))
	}
	switch st.State {
	case providers.TaskSucceeded:
		// fall through to output handling
	case providers.TaskQueued, providers.TaskProcessing:
		// Budget exhausted with the job still running; for response purposes
		// this is a failure even though the provider may yet finish.
		return s.errorResponse(domain.NewRequestError(http.StatusBadGateway, "generation_timeout", "generation did not finish in time"))
	default:
		return s.errorResponse(domain.NewRequestError(http.StatusBadGateway, "generation_failed", "provider reported "+string(st.State)))
	}
	if st.OutputURL == "" {
		return s.errorResponse(domain.NewRequestError(http.StatusBadGateway, "no_output_from_model", "provider succeeded without an output"))
	}

	asset, err := s.persistOutput(ctx, req.UserID, st.OutputURL)
	if err != nil {
		s.log.Error().Err(err).Msg("output persistence failed")
		return s.errorResponse(domain.NewRequestError(http.StatusBadGateway, "storage_error", "generated media could not be stored"))
	}

	jobID := uuid.NewString()
	job := &domain.ProviderJob{
		ID:        jobID,
		UserID:    req.UserID,
		Provider:  target.Variant.Provider(),
		Model:     target.Variant.String(),
		Status:    domain.JobStatusSucceeded,
		OutputURL: &asset.URL,
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		// Job rows on the sync path are bookkeeping; the asset exists.
		s.log.Warn().Err(err).Str("job_id", jobID).Msg("sync job row insert failed")
	}

	reservation.Settle()
	return s.jsonResponse(http.StatusOK, successBody(jobID, target.Variant.String(), asset))
}

// submitAsync hands the job to a callback-driven provider and returns 202.
// Duplicate submissions with the same idempotency key resolve against the
// prior job row without contacting the provider again.
func (s *Service) submitAsync(ctx context.Context, req *domain.GenerationRequest, target *providers.Target, idemKey string, reservation *credits.Reservation) Response {
	if idemKey != "" {
		prior, err := s.jobs.GetByUserAndKey(ctx, req.UserID, idemKey)
		switch {
		case err == nil:
			// Existing submission: answer from its current state. The fresh
			// reservation is refunded by the deferred release.
			return s.jobStateResponse(prior)
		case !errors.Is(err, domain.ErrNotFound):
			s.log.Warn().Err(err).Msg("idempotency lookup failed")
		}
	}

	jobID := uuid.NewString()
	callback := fmt.Sprintf("%s/v1/generations/callback/%s?uid=%s&ts=%d",
		s.publicBaseURL, jobID, url.QueryEscape(req.UserID), s.now().Unix())

	taskID, err := s.async.Submit(ctx, target.Path, target.Input, callback)
	if err != nil {
		s.log.Error().Err(err).Str("path", target.Path).Msg("async provider submission failed")
		return s.errorResponse(domain.NewRequestError(http.StatusBadGateway, "provider_unreachable", "generation provider could not be reached"))
	}

	job := &domain.ProviderJob{
		ID:             jobID,
		UserID:         req.UserID,
		Provider:       target.Variant.Provider(),
		Model:          target.Variant.String(),
		ProviderTaskID: taskID,
		Status:         domain.JobStatusProcessing,
	}
	if idemKey != "" {
		job.IdempotencyKey = &idemKey
	}
	if err := s.jobs.Create(ctx, job); err != nil {
		// Without a durable row the callback has nothing to correlate
		// against, so the submission is unusable. Refund via the deferred
		// release and report the failure.
		s.log.Error().Err(err).Str("job_id", jobID).Msg("async job row insert failed")
		return s.errorResponse(domain.NewRequestError(http.StatusBadGateway, "storage_error", "job could not be recorded"))
	}

	reservation.Settle()
	return s.jsonResponse(http.StatusAccepted, map[string]any{
		"ok":     true,
		"job_id": jobID,
		"status": string(domain.JobStatusProcessing),
	})
}

// jobStateResponse renders an existing job row: completed jobs replay their
// output, anything else reports current progress.
func (s *Service) jobStateResponse(job *domain.ProviderJob) Response {
	if job.Status == domain.JobStatusSucceeded && job.OutputURL != nil {
		body := map[string]any{
			"ok":     true,
			"job_id": job.ID,
			"status": string(job.Status),
			"model":  job.Model,
		}
		body[outputField(*job.OutputURL)] = *job.OutputURL
		return s.jsonResponse(http.StatusOK, body)
	}
	return s.jsonResponse(http.StatusAccepted, map[string]any{
		"ok":     true,
		"job_id": job.ID,
		"status": string(job.Status),
	})
}

func successBody(jobID, model string, asset *domain.OutputAsset) map[string]any {
	body := map[string]any{
		"ok":     true,
		"job_id": jobID,
		"status": string(domain.JobStatusSucceeded),
		"model":  model,
	}
	if isVideo(asset.ContentType) {
		body["video_url"] = asset.URL
	} else {
		body["image_url"] = asset.URL
	}
	return body
}

func isVideo(contentType string) bool {
	return len(contentType) >= 6 && contentType[:6] == "video/"
}

// outputField guesses the response field for a stored URL by extension; used
// only when replaying a job row, where the content type is not at hand.
func outputField(url string) string {
	for _, ext := range []string{".mp4", ".webm"} {
		if len(url) >= len(ext) && url[len(url)-len(ext):] == ext {
			return "video_url"
		}
	}
	return "image_url"
}

func (s *Service) jsonResponse(status int, v any) Response {
	body, err := json.Marshal(v)
	if err != nil {
		s.log.Error().Err(err).Msg("response marshal failed")
		return Response{Status: http.StatusInternalServerError, Body: []byte(`{"ok":false,"error":"internal"}`), ErrorCode: "internal"}
	}
	return Response{Status: status, Body: body}
}

func (s *Service) errorResponse(err error) Response {
	re, ok := domain.AsRequestError(err)
	if !ok {
		re = domain.NewRequestError(http.StatusBadGateway, "provider_error", "generation failed")
	}
	body, _ := json.Marshal(map[string]any{
		"ok":      false,
		"error":   re.Code,
		"message": re.Message,
	})
	return Response{Status: re.Status, Body: body, ErrorCode: re.Code}
}

// fail renders an error response and records the analytics row for paths that
// never reached a provider target.
func (s *Service) fail(ctx context.Context, userID, model string, start time.Time, err error) Response {
	resp := s.errorResponse(err)
	s.record(ctx, userID, model, "", resp, start)
	return resp
}

// record inserts the best-effort generation log row. Its failure is logged
// and never affects the response.
func (s *Service) record(ctx context.Context, userID, model, provider string, resp Response, start time.Time) {
	if s.logs == nil {
		return
	}
	status := "failed"
	switch {
	case resp.Status == http.StatusOK:
		status = "succeeded"
	case resp.Status == http.StatusAccepted:
		status = "accepted"
	}
	entry := &domain.GenerationLog{
		ID:         uuid.NewString(),
		UserID:     userID,
		Model:      model,
		Provider:   provider,
		Status:     status,
		ErrorCode:  resp.ErrorCode,
		DurationMS: s.now().Sub(start).Milliseconds(),
	}
	if err := s.logs.Insert(ctx, entry); err != nil {
		s.log.Warn().Err(err).Msg("generation log insert failed")
	}
}
