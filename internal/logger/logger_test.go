package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{"default", "", zerolog.InfoLevel},
		{"debug", "debug", zerolog.DebugLevel},
		{"upper case", "WARN", zerolog.WarnLevel},
		{"unknown", "chatty", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			log := New(Options{Level: tt.level, Writer: &bytes.Buffer{}})
			assert.Equal(t, tt.want, log.GetLevel())
		})
	}
}

func TestNew_JSONFormat(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Format: FormatJSON, Writer: buf})

	log.Info().Str("document_id", "doc-1").Msg("processed")

	assert.Contains(t, buf.String(), `"document_id":"doc-1"`)
	assert.Contains(t, buf.String(), `"message":"processed"`)
}

func TestNew_LevelFilters(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Level: "warn", Format: FormatJSON, Writer: buf})

	log.Info().Msg("hidden")
	assert.Zero(t, buf.Len())

	log.Warn().Msg("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestFromContext(t *testing.T) {
	buf := &bytes.Buffer{}
	ctx := WithContext(context.Background(), NewWithWriter(buf))

	log := FromContext(ctx)
	log.Info().Msg("test")

	assert.NotZero(t, buf.Len())
}

func TestFromContext_DefaultLogger(t *testing.T) {
	log := FromContext(context.Background())
	assert.NotEqual(t, zerolog.Disabled, log.GetLevel())
}

func TestWithFields(t *testing.T) {
	buf := &bytes.Buffer{}
	log := WithFields(NewWithWriter(buf), map[string]any{
		"category":   "Groceries",
		"confidence": 87.5,
	})

	log.Info().Msg("categorized")

	out := buf.String()
	assert.Contains(t, out, `"category":"Groceries"`)
	assert.Contains(t, out, `"confidence":87.5`)
}
