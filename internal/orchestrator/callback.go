package orchestrator

import (
	"context"
	"strings"

	"mediaforge/internal/domain"
)

// CallbackPayload is the provider's out-of-band completion report, correlated
// via the job id embedded in the callback URL.
type CallbackPayload struct {
	ID        string   `json:"id"`
	TaskID    string   `json:"task_id"`
	Status    string   `json:"status"`
	Output    []string `json:"output"`
	OutputURL string   `json:"output_url"`
}

func (p CallbackPayload) outputURL() string {
	if len(p.Output) > 0 && p.Output[0] != "" {
		return p.Output[0]
	}
	return p.OutputURL
}

func (p CallbackPayload) succeeded() bool {
	switch strings.ToLower(p.Status) {
	case "succeeded", "success", "completed":
		return true
	}
	return false
}

func (p CallbackPayload) status() domain.JobStatus {
	switch strings.ToLower(p.Status) {
	case "succeeded", "success", "completed":
		return domain.JobStatusSucceeded
	case "failed", "fail", "error":
		return domain.JobStatusFailed
	case "canceled", "cancelled":
		return domain.JobStatusCanceled
	case "queued", "pending", "throttled":
		return domain.JobStatusQueued
	default:
		return domain.JobStatusProcessing
	}
}

// HandleCallback completes an asynchronous job. It is the only place the
// async path persists output. The callback may arrive any number of times;
// once the job reached terminal success, later deliveries are no-ops.
func (s *Service) HandleCallback(ctx context.Context, jobID string, payload CallbackPayload) error {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status == domain.JobStatusSucceeded {
		s.log.Debug().Str("job_id", jobID).Msg("duplicate callback for completed job ignored")
		return nil
	}

	if !payload.succeeded() {
		if err := s.jobs.UpdateStatus(ctx, jobID, payload.status(), nil); err != nil {
			return err
		}
		s.log.Info().Str("job_id", jobID).Str("status", payload.Status).Msg("async job did not succeed")
		return nil
	}

	outputURL := payload.outputURL()
	if outputURL == "" {
		s.log.Warn().Str("job_id", jobID).Msg("callback succeeded without output")
		return s.jobs.UpdateStatus(ctx, jobID, domain.JobStatusFailed, nil)
	}

	asset, err := s.persistOutput(ctx, job.UserID, outputURL)
	if err != nil {
		s.log.Error().Err(err).Str("job_id", jobID).Msg("callback output persistence failed")
		return s.jobs.UpdateStatus(ctx, jobID, domain.JobStatusFailed, nil)
	}
	// Conditional transition: a concurrent delivery may have completed the job
	// while the output was being persisted. The first writer wins; the row
	// keeps exactly one asset URL.
	updated, err := s.jobs.MarkSucceeded(ctx, jobID, asset.URL)
	if err != nil {
		return err
	}
	if !updated {
		s.log.Debug().Str("job_id", jobID).Msg("job completed concurrently, delivery ignored")
	}
	return nil
}
