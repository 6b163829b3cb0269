package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"image-batch/internal/broker"
	"image-batch/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"
)

type fakeConsumer struct {
	in        []*broker.Message
	mu        sync.Mutex
	committed []int64
	done      chan struct{}
	want      int
}

func (f *fakeConsumer) Start(ctx context.Context, out chan<- *broker.Message, _ retry.Strategy) {
	go func() {
		for _, m := range f.in {
			select {
			case out <- m:
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (f *fakeConsumer) Commit(_ context.Context, msg *broker.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msg.Offset)
	if len(f.committed) == f.want {
		close(f.done)
	}
	return nil
}

func (f *fakeConsumer) Close() error { return nil }

type fakeRunner struct {
	mu     sync.Mutex
	runs   []string
	failed map[string]string
	// failErrs is the number of FailJob calls that fail before one succeeds.
	failErrs  int
	failCalls int
	// flaky jobs fail on their first run only.
	flaky map[string]bool
}

func (r *fakeRunner) RunJob(_ context.Context, msg *domain.JobMessage) error {
	r.mu.Lock()
	r.runs = append(r.runs, msg.JobID)
	first := r.flaky[msg.JobID]
	delete(r.flaky, msg.JobID)
	r.mu.Unlock()

	switch msg.JobID {
	case "boom":
		panic("unexpected")
	case "db-down":
		return errors.New("connection refused")
	case "gone":
		return domain.ErrJobNotFound
	}
	if first {
		return errors.New("temporary failure")
	}
	return nil
}

func (r *fakeRunner) FailJob(_ context.Context, id, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failCalls++
	if r.failCalls <= r.failErrs {
		return errors.New("connection refused")
	}
	if r.failed == nil {
		r.failed = map[string]string{}
	}
	r.failed[id] = reason
	return nil
}

func runPool(t *testing.T, consumer *fakeConsumer, runner *fakeRunner, retries retry.Strategy) {
	t.Helper()
	zlog.Init()
	pool := NewPool(consumer, runner, 1, retries, &zlog.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		pool.Run(ctx)
		close(stopped)
	}()

	select {
	case <-consumer.done:
	case <-time.After(5 * time.Second):
		t.Fatal("messages were not committed")
	}
	cancel()
	<-stopped
}

func TestPoolCommitsOnlyTerminalJobs(t *testing.T) {
	consumer := &fakeConsumer{
		in: []*broker.Message{
			{Offset: 1, Value: []byte(`{"jobId":"j1"}`)},
			{Offset: 2, Value: []byte(`not json`)},
			{Offset: 3, Value: []byte(`{"jobId":"boom"}`)},
			{Offset: 4, Value: []byte(`{"jobId":"db-down"}`)},
			{Offset: 5, Value: []byte(`{"jobId":"gone"}`)},
			{Offset: 6, Value: []byte(`{"jobId":"j2"}`)},
		},
		done: make(chan struct{}),
		want: 6,
	}
	runner := &fakeRunner{}
	runPool(t, consumer, runner, retry.Strategy{Attempts: 1})

	assert.Equal(t, []int64{1, 2, 3, 4, 5, 6}, consumer.committed)
	assert.Equal(t, []string{"j1", "boom", "db-down", "gone", "j2"}, runner.runs)

	// Jobs that could not run are failed before their offset is committed.
	require.Len(t, runner.failed, 2)
	assert.Contains(t, runner.failed["boom"], "panic")
	assert.Contains(t, runner.failed["db-down"], "connection refused")
}

func TestPoolRetriesTransientFailures(t *testing.T) {
	consumer := &fakeConsumer{
		in: []*broker.Message{
			{Offset: 1, Value: []byte(`{"jobId":"j1"}`)},
		},
		done: make(chan struct{}),
		want: 1,
	}
	runner := &fakeRunner{flaky: map[string]bool{"j1": true}}
	runPool(t, consumer, runner, retry.Strategy{Attempts: 3, Delay: time.Millisecond, Backoff: 2})

	assert.Equal(t, []int64{1}, consumer.committed)
	assert.Equal(t, []string{"j1", "j1"}, runner.runs)
	assert.Empty(t, runner.failed)
}

func TestPoolWaitsUntilFailedJobIsRecorded(t *testing.T) {
	consumer := &fakeConsumer{
		in: []*broker.Message{
			{Offset: 1, Value: []byte(`{"jobId":"db-down"}`)},
			{Offset: 2, Value: []byte(`{"jobId":"j1"}`)},
		},
		done: make(chan struct{}),
		want: 2,
	}
	runner := &fakeRunner{failErrs: 2}
	runPool(t, consumer, runner, retry.Strategy{Attempts: 1, Delay: time.Millisecond})

	// Offset 2 is never committed ahead of the unsettled offset 1.
	assert.Equal(t, []int64{1, 2}, consumer.committed)
	assert.Equal(t, 3, runner.failCalls)
	assert.Contains(t, runner.failed, "db-down")
}
