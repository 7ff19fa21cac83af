package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/finance-ingest/internal/domain"
	"github.com/dvloznov/finance-ingest/internal/store"
)

const documentColumns = `id, storage_path, original_filename, file_type, raw_text, processed, uploaded_at, processed_at`

type documentRepository struct {
	q querier
}

func scanDocument(s rowScanner) (*domain.Document, error) {
	var (
		doc         domain.Document
		rawText     sql.NullString
		processed   int
		uploadedAt  string
		processedAt sql.NullString
	)
	if err := s.Scan(&doc.ID, &doc.StoragePath, &doc.OriginalFilename, &doc.FileType,
		&rawText, &processed, &uploadedAt, &processedAt); err != nil {
		return nil, err
	}

	var err error
	doc.RawText = stringPtr(rawText)
	doc.Processed = processed != 0
	if doc.UploadedAt, err = parseTime(uploadedAt); err != nil {
		return nil, err
	}
	if doc.ProcessedAt, err = parseNullTime(processedAt); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Get returns the document with the given id, or nil if there is none.
func (r *documentRepository) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := r.q.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("Documents.Get: %w", err)
	}
	return doc, nil
}

func (r *documentRepository) Add(ctx context.Context, doc *domain.Document) error {
	_, err := r.q.ExecContext(ctx, `INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.StoragePath, doc.OriginalFilename, doc.FileType,
		nullString(doc.RawText), boolInt(doc.Processed), formatTime(doc.UploadedAt), nullTime(doc.ProcessedAt),
	)
	if err != nil {
		return fmt.Errorf("Documents.Add: %w", err)
	}
	return nil
}

func (r *documentRepository) Update(ctx context.Context, doc *domain.Document) error {
	res, err := r.q.ExecContext(ctx, `UPDATE documents
		SET storage_path = ?, original_filename = ?, file_type = ?, raw_text = ?, processed = ?, processed_at = ?
		WHERE id = ?`,
		doc.StoragePath, doc.OriginalFilename, doc.FileType,
		nullString(doc.RawText), boolInt(doc.Processed), nullTime(doc.ProcessedAt), doc.ID,
	)
	if err != nil {
		return fmt.Errorf("Documents.Update: %w", err)
	}
	if err := checkAffected(res, store.ErrNotFound); err != nil {
		return fmt.Errorf("Documents.Update: %s: %w", doc.ID, err)
	}
	return nil
}

func (r *documentRepository) List(ctx context.Context) ([]*domain.Document, error) {
	return r.list(ctx, `SELECT `+documentColumns+` FROM documents ORDER BY uploaded_at, id`)
}

// ListUnprocessed returns documents still awaiting processing, oldest first.
func (r *documentRepository) ListUnprocessed(ctx context.Context) ([]*domain.Document, error) {
	return r.list(ctx, `SELECT `+documentColumns+` FROM documents WHERE processed = 0 ORDER BY uploaded_at, id`)
}

func (r *documentRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Document, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("Documents.list: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []*domain.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("Documents.list: scan: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
