package inmemory

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-ingest/internal/jobs"
)

func noBackoff(int) time.Duration { return time.Millisecond }

func waitForStatus(t *testing.T, store *Store, jobID string, want jobs.JobStatus) *jobs.ProcessDocumentJob {
	t.Helper()
	var got *jobs.ProcessDocumentJob
	require.Eventually(t, func() bool {
		j, err := store.GetJob(context.Background(), jobID)
		if err != nil {
			return false
		}
		got = j
		return j.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func TestQueue_CompletesJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewStore()
	q := NewQueue(10, store, WithBackoff(noBackoff))

	var handled atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.ProcessDocumentJob) error {
		handled.Add(1)
		job.Outcome = "success"
		return nil
	}))
	defer q.Close()

	job := &jobs.ProcessDocumentJob{DocumentID: "doc-1"}
	require.NoError(t, q.PublishProcessDocument(ctx, job))
	require.NotEmpty(t, job.JobID)

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, "success", got.Outcome)
	assert.Equal(t, int32(1), handled.Load())
	assert.Zero(t, got.RetryCount)
}

func TestQueue_RetriesUntilExhausted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewStore()
	q := NewQueue(10, store, WithBackoff(noBackoff), WithMaxRetries(2))

	var attempts atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.ProcessDocumentJob) error {
		attempts.Add(1)
		return errors.New("extractor unavailable")
	}))
	defer q.Close()

	job := &jobs.ProcessDocumentJob{DocumentID: "doc-1"}
	require.NoError(t, q.PublishProcessDocument(ctx, job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusFailed)
	assert.Equal(t, 2, got.RetryCount)
	assert.Equal(t, "extractor unavailable", got.Error)
	assert.Equal(t, int32(3), attempts.Load())

	// The document can be queued again once its job is final.
	require.Eventually(t, func() bool {
		return q.PublishProcessDocument(ctx, &jobs.ProcessDocumentJob{DocumentID: "doc-1"}) == nil
	}, time.Second, 5*time.Millisecond)
}

func TestQueue_RetrySucceeds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewStore()
	q := NewQueue(10, store, WithBackoff(noBackoff))

	var attempts atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.ProcessDocumentJob) error {
		if attempts.Add(1) == 1 {
			return errors.New("database is locked")
		}
		return nil
	}))
	defer q.Close()

	job := &jobs.ProcessDocumentJob{DocumentID: "doc-1"}
	require.NoError(t, q.PublishProcessDocument(ctx, job))

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 1, got.RetryCount)
	assert.Empty(t, got.Error)
}

func TestQueue_RetryStateSavedBeforeBackoff(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store := NewStore()
	release := make(chan struct{})
	q := NewQueue(10, store, WithBackoff(func(int) time.Duration { return 50 * time.Millisecond }))

	var attempts atomic.Int32
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.ProcessDocumentJob) error {
		if attempts.Add(1) == 1 {
			return errors.New("database is locked")
		}
		<-release
		return nil
	}))
	defer q.Close()

	job := &jobs.ProcessDocumentJob{DocumentID: "doc-1"}
	require.NoError(t, q.PublishProcessDocument(ctx, job))

	retrying := waitForStatus(t, store, job.JobID, jobs.JobStatusRetrying)
	assert.Equal(t, 1, retrying.RetryCount)
	assert.Equal(t, "database is locked", retrying.Error)

	running := waitForStatus(t, store, job.JobID, jobs.JobStatusRunning)
	assert.Equal(t, 1, running.RetryCount)
	assert.Nil(t, running.CompletedAt)
	close(release)

	got := waitForStatus(t, store, job.JobID, jobs.JobStatusCompleted)
	assert.Equal(t, 1, got.RetryCount)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestQueue_RejectsDuplicateDocument(t *testing.T) {
	ctx := context.Background()
	q := NewQueue(10, NewStore())
	defer q.Close()

	require.NoError(t, q.PublishProcessDocument(ctx, &jobs.ProcessDocumentJob{DocumentID: "doc-1"}))
	err := q.PublishProcessDocument(ctx, &jobs.ProcessDocumentJob{DocumentID: "doc-1"})
	assert.ErrorIs(t, err, jobs.ErrAlreadyQueued)
	assert.NoError(t, q.PublishProcessDocument(ctx, &jobs.ProcessDocumentJob{DocumentID: "doc-2"}))
}

func TestQueue_PublishAfterClose(t *testing.T) {
	q := NewQueue(1, nil)
	require.NoError(t, q.Close())

	err := q.PublishProcessDocument(context.Background(), &jobs.ProcessDocumentJob{DocumentID: "doc-1"})
	assert.Error(t, err)

	// A failed publish does not leave the document marked as queued.
	err = q.PublishProcessDocument(context.Background(), &jobs.ProcessDocumentJob{DocumentID: "doc-1"})
	assert.NotErrorIs(t, err, jobs.ErrAlreadyQueued)
}

func TestStore_ListJobs(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, st := range []jobs.JobStatus{jobs.JobStatusCompleted, jobs.JobStatusFailed, jobs.JobStatusCompleted} {
		require.NoError(t, s.SaveJob(ctx, &jobs.ProcessDocumentJob{
			JobID:      string(rune('a' + i)),
			DocumentID: "doc",
			Status:     st,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := s.ListJobs(ctx, jobs.JobFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0].JobID)
	assert.Equal(t, "c", all[2].JobID)

	completed, err := s.ListJobs(ctx, jobs.JobFilter{Status: jobs.JobStatusCompleted, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "c", completed[0].JobID)

	_, err = s.GetJob(ctx, "missing")
	assert.Error(t, err)
	assert.Error(t, s.SaveJob(ctx, &jobs.ProcessDocumentJob{}))
}
