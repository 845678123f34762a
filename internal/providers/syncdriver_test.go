package providers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// fakeClock advances only when Sleep is called; no real waiting happens.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.now = c.now.Add(d)
	return nil
}

type scriptedClient struct {
	submitErr error
	states    []*TaskStatus
	statusErr []error
	calls     int
}

func (c *scriptedClient) Submit(context.Context, string, map[string]any) (string, error) {
	if c.submitErr != nil {
		return "", c.submitErr
	}
	return "task-1", nil
}

func (c *scriptedClient) Status(context.Context, string, string) (*TaskStatus, error) {
	i := c.calls
	c.calls++
	if i >= len(c.states) {
		i = len(c.states) - 1
	}
	if i < len(c.statusErr) && c.statusErr[i] != nil {
		return nil, c.statusErr[i]
	}
	return c.states[i], nil
}

func newTestDriver(client SyncClient) (*SyncDriver, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	return &SyncDriver{
		Client:   client,
		Clock:    clock,
		Interval: 1200 * time.Millisecond,
		Budget:   25 * time.Second,
		Log:      zerolog.Nop(),
	}, clock
}

func TestSyncDriverSucceedsAfterPolling(t *testing.T) {
	client := &scriptedClient{states: []*TaskStatus{
		{State: TaskQueued},
		{State: TaskProcessing},
		{State: TaskSucceeded, OutputURL: "https://provider.example.com/out.png"},
	}}
	driver, _ := newTestDriver(client)

	st, err := driver.Run(context.Background(), "fal-ai/flux/dev", map[string]any{"prompt": "x"})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if st.State != TaskSucceeded || st.OutputURL == "" {
		t.Fatalf("Run = %+v", st)
	}
	if client.calls != 3 {
		t.Fatalf("status calls = %d, want 3", client.calls)
	}
}

func TestSyncDriverDeadlineReturnsCurrentState(t *testing.T) {
	client := &scriptedClient{states: []*TaskStatus{{State: TaskProcessing}}}
	driver, clock := newTestDriver(client)
	start := clock.Now()

	st, err := driver.Run(context.Background(), "fal-ai/flux/dev", nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if st.State != TaskProcessing {
		t.Fatalf("state = %q, want processing after deadline", st.State)
	}
	if elapsed := clock.Now().Sub(start); elapsed < driver.Budget {
		t.Fatalf("driver gave up before the budget: %v", elapsed)
	}
}

func TestSyncDriverSubmitFailureIsHard(t *testing.T) {
	client := &scriptedClient{submitErr: errors.New("connection refused")}
	driver, _ := newTestDriver(client)

	if _, err := driver.Run(context.Background(), "fal-ai/flux/dev", nil); err == nil {
		t.Fatalf("Run expected submit error")
	}
	if client.calls != 0 {
		t.Fatalf("polling started after failed submit")
	}
}

func TestSyncDriverToleratesTransientStatusErrors(t *testing.T) {
	client := &scriptedClient{
		states:    []*TaskStatus{nil, {State: TaskSucceeded, OutputURL: "https://provider.example.com/out.png"}},
		statusErr: []error{errors.New("gateway timeout"), nil},
	}
	driver, _ := newTestDriver(client)

	st, err := driver.Run(context.Background(), "fal-ai/flux/dev", nil)
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if st.State != TaskSucceeded {
		t.Fatalf("state = %q, want succeeded", st.State)
	}
}
