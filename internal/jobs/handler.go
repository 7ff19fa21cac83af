package jobs

import (
	"context"
	"fmt"

	"github.com/dvloznov/finance-ingest/internal/logger"
	"github.com/dvloznov/finance-ingest/internal/pipeline"
)

// DocumentProcessor runs one document through the ingestion pipeline.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, documentID string) pipeline.Result
}

// ProcessDocumentHandler adapts a DocumentProcessor to a JobHandler. Only
// hard failures are returned as errors: soft failures and already processed
// documents are final and must not be retried.
func ProcessDocumentHandler(p DocumentProcessor) JobHandler {
	return func(ctx context.Context, job *ProcessDocumentJob) error {
		res := p.ProcessDocument(ctx, job.DocumentID)
		job.Outcome = res.Outcome.String()

		log := logger.FromContext(ctx)
		log.Info().
			Str("job_id", job.JobID).
			Str("document_id", job.DocumentID).
			Str("outcome", job.Outcome).
			Str("message", res.Message).
			Msg("Document job finished")

		if res.Outcome == pipeline.HardFailure {
			return fmt.Errorf("processing document %s: %s", job.DocumentID, res.Message)
		}
		return nil
	}
}
