// Package providers routes normalized generation requests onto a concrete
// provider variant and drives provider jobs to completion.
package providers

import (
	"context"
	"time"
)

// Variant is the closed set of provider targets. Each variant owns its input
// shaping and its allowed field set; selection happens once, in Route.
type Variant int

const (
	VariantFluxText Variant = iota
	VariantFluxImage
	VariantGen4
	VariantGen4Turbo
)

// String returns the stable variant name used in logs and job rows.
func (v Variant) String() string {
	switch v {
	case VariantFluxText:
		return "flux-text"
	case VariantFluxImage:
		return "flux-image"
	case VariantGen4:
		return "gen4"
	case VariantGen4Turbo:
		return "gen4-turbo"
	}
	return "unknown"
}

// Provider names the remote service a variant runs on.
func (v Variant) Provider() string {
	switch v {
	case VariantGen4, VariantGen4Turbo:
		return "runway"
	default:
		return "fal"
	}
}

// Async reports whether the variant completes via callback rather than polling.
func (v Variant) Async() bool {
	return v == VariantGen4 || v == VariantGen4Turbo
}

// Target is the routing decision: which variant, which provider model path,
// what it costs and the provider-specific input payload.
type Target struct {
	Variant Variant
	Path    string
	Cost    int
	Input   map[string]any
}

// TaskState is the provider-side lifecycle of a submitted task.
type TaskState string

const (
	TaskQueued     TaskState = "queued"
	TaskProcessing TaskState = "processing"
	TaskSucceeded  TaskState = "succeeded"
	TaskFailed     TaskState = "failed"
	TaskCanceled   TaskState = "canceled"
)

// TaskStatus is one observation of a provider task.
type TaskStatus struct {
	State     TaskState
	OutputURL string
	Err       string
}

// Terminal reports whether the provider will make no further transitions.
func (s *TaskStatus) Terminal() bool {
	switch s.State {
	case TaskSucceeded, TaskFailed, TaskCanceled:
		return true
	}
	return false
}

// SyncClient is a provider that hands back a task handle and is polled to
// completion within the request lifetime.
type SyncClient interface {
	Submit(ctx context.Context, path string, input map[string]any) (string, error)
	Status(ctx context.Context, path, taskID string) (*TaskStatus, error)
}

// AsyncClient is a provider that replies out-of-band to the callback URL.
type AsyncClient interface {
	Submit(ctx context.Context, path string, input map[string]any, callbackURL string) (string, error)
}

// Clock abstracts time for the polling driver so tests run without real delay.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock implements Clock over the runtime clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
