package providers

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// SyncDriver submits a job to a polling provider and waits for a terminal
// state within a wall-clock budget. Exhausting the budget is not itself a
// failure: the driver issues one last status check and returns whatever state
// is current, leaving the failure decision to the caller.
type SyncDriver struct {
	Client   SyncClient
	Clock    Clock
	Interval time.Duration
	Budget   time.Duration
	Log      zerolog.Logger
}

// NewSyncDriver builds a driver with the given polling cadence.
func NewSyncDriver(client SyncClient, interval, budget time.Duration, log zerolog.Logger) *SyncDriver {
	return &SyncDriver{
		Client:   client,
		Clock:    RealClock{},
		Interval: interval,
		Budget:   budget,
		Log:      log,
	}
}

// Run submits input on path and polls until a terminal state or the deadline.
// A transport error during submission is a hard failure before polling
// begins; transient status errors during polling are tolerated.
func (d *SyncDriver) Run(ctx context.Context, path string, input map[string]any) (*TaskStatus, error) {
	taskID, err := d.Client.Submit(ctx, path, input)
	if err != nil {
		return nil, fmt.Errorf("submit: %w", err)
	}
	deadline := d.Clock.Now().Add(d.Budget)

	for d.Clock.Now().Before(deadline) {
		st, err := d.Client.Status(ctx, path, taskID)
		if err != nil {
			d.Log.Warn().Err(err).Str("task_id", taskID).Msg("status poll failed")
		} else if st.Terminal() {
			return st, nil
		}
		if err := d.Clock.Sleep(ctx, d.Interval); err != nil {
			return nil, err
		}
	}

	// Deadline hit: one final look, then report the current state as-is.
	st, err := d.Client.Status(ctx, path, taskID)
	if err != nil {
		return nil, fmt.Errorf("final status: %w", err)
	}
	return st, nil
}
