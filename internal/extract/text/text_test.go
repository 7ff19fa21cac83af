package text

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockReader implements Reader for tests.
type mockReader struct {
	ReadFunc func(ctx context.Context, path string) ([]byte, error)
}

func (m *mockReader) Read(ctx context.Context, path string) ([]byte, error) {
	if m.ReadFunc != nil {
		return m.ReadFunc(ctx, path)
	}
	return nil, os.ErrNotExist
}

func staticReader(content string) *mockReader {
	return &mockReader{ReadFunc: func(ctx context.Context, path string) ([]byte, error) {
		return []byte(content), nil
	}}
}

func TestExtract_PlainText(t *testing.T) {
	tests := []struct {
		name     string
		fileType string
		content  string
		want     string
	}{
		{"txt", "txt", "ACME STORE\nTotal: 1200\n", "ACME STORE\nTotal: 1200"},
		{"csv upper case", "CSV", "date,amount\n2024-01-01,10", "date,amount\n2024-01-01,10"},
		{"leading dot", ".txt", "hello", "hello"},
		{"whitespace only", "txt", "  \n\t", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(staticReader(tt.content)).Extract(context.Background(), "p", tt.fileType)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtract_UnsupportedType(t *testing.T) {
	reads := 0
	r := &mockReader{ReadFunc: func(ctx context.Context, path string) ([]byte, error) {
		reads++
		return nil, nil
	}}

	_, err := New(r).Extract(context.Background(), "file.docx", "docx")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedType)
	assert.Equal(t, "unsupported file type: docx", err.Error())
	assert.Zero(t, reads)
}

func TestExtract_ReadError(t *testing.T) {
	r := &mockReader{ReadFunc: func(ctx context.Context, path string) ([]byte, error) {
		return nil, errors.New("disk gone")
	}}

	_, err := New(r).Extract(context.Background(), "a.txt", "txt")
	assert.ErrorContains(t, err, "disk gone")
}

func TestExtract_InvalidPDF(t *testing.T) {
	_, err := New(staticReader("not a pdf")).Extract(context.Background(), "a.pdf", "pdf")
	assert.Error(t, err)
}

func TestExtract_ImageWithoutTesseract(t *testing.T) {
	e := New(staticReader("\x89PNG"), WithTesseract("tesseract-binary-that-does-not-exist"))

	_, err := e.Extract(context.Background(), "scan.png", "png")
	assert.ErrorContains(t, err, "tesseract not available")
}
