package main

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/finance-ingest/internal/jobs"
	"github.com/dvloznov/finance-ingest/internal/jobs/inmemory"
)

func TestDrain_InFlightJobFinishesBeforeCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pollCtx, stopPolling := context.WithCancel(ctx)

	store := inmemory.NewStore()
	q := inmemory.NewQueue(10, store)

	started := make(chan struct{})
	var jobCtxErr atomic.Value
	require.NoError(t, q.Start(ctx, func(ctx context.Context, job *jobs.ProcessDocumentJob) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		jobCtxErr.Store(ctx.Err() == nil)
		return nil
	}))

	pollDone := make(chan struct{})
	go func() {
		defer close(pollDone)
		<-pollCtx.Done()
	}()

	job := &jobs.ProcessDocumentJob{DocumentID: "doc-1"}
	require.NoError(t, q.PublishProcessDocument(ctx, job))
	<-started

	require.NoError(t, drain(stopPolling, pollDone, q, cancel, 2*time.Second))

	assert.Equal(t, true, jobCtxErr.Load(), "job context was cancelled while the job ran")
	got, err := store.GetJob(context.Background(), job.JobID)
	require.NoError(t, err)
	assert.Equal(t, jobs.JobStatusCompleted, got.Status)
	assert.Error(t, ctx.Err())
}
