package jobs

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dvloznov/finance-ingest/internal/pipeline"
)

// MockDocumentProcessor is a mock implementation of DocumentProcessor.
type MockDocumentProcessor struct {
	ProcessDocumentFunc func(ctx context.Context, documentID string) pipeline.Result
}

func (m *MockDocumentProcessor) ProcessDocument(ctx context.Context, documentID string) pipeline.Result {
	return m.ProcessDocumentFunc(ctx, documentID)
}

func TestProcessDocumentHandler(t *testing.T) {
	tests := []struct {
		name    string
		outcome pipeline.Outcome
		message string
		wantErr bool
	}{
		{"success", pipeline.Success, pipeline.MsgProcessed, false},
		{"soft failure is final", pipeline.SoftFailure, pipeline.MsgNoAmount, false},
		{"already processed is final", pipeline.AlreadyProcessed, pipeline.MsgAlreadyProcessed, false},
		{"not found is final", pipeline.NotFound, pipeline.MsgDocumentNotFound, false},
		{"hard failure retries", pipeline.HardFailure, "unsupported file type: exe", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			handler := ProcessDocumentHandler(&MockDocumentProcessor{
				ProcessDocumentFunc: func(ctx context.Context, documentID string) pipeline.Result {
					gotID = documentID
					return pipeline.Result{DocumentID: documentID, Outcome: tt.outcome, Message: tt.message}
				},
			})

			job := &ProcessDocumentJob{JobID: "job-1", DocumentID: "doc-1"}
			err := handler(context.Background(), job)

			assert.Equal(t, "doc-1", gotID)
			assert.Equal(t, tt.outcome.String(), job.Outcome)
			if tt.wantErr {
				assert.ErrorContains(t, err, tt.message)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
