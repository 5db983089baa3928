package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Info(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, time.UTC).With("intake")

	log.Info("submission_created", map[string]any{"submission_id": "abc"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "intake", entry["component"])
	assert.Equal(t, "submission_created", entry["event"])
	assert.Equal(t, "success", entry["status"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "abc", entry["submission_id"])
	assert.NotEmpty(t, entry["ts"])
}

func TestLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, time.UTC)

	log.Error("submission_failed", errors.New("db down"), nil)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "error", entry["level"])
	assert.Equal(t, "db down", entry["error_message"])
	_, hasComponent := entry["component"]
	assert.False(t, hasComponent)
}

func TestLogger_NilIsSafe(t *testing.T) {
	var log *Logger
	assert.NotPanics(t, func() {
		log.Info("x", nil)
		log.With("y").Error("z", errors.New("boom"), nil)
	})
}

func TestGelfMessage(t *testing.T) {
	now := time.Unix(1700000000, 0)
	line := []byte(`{"ts":"2024-01-01T00:00:00Z","level":"error","event":"upload_failed","key":"files/DNI_a.pdf"}` + "\n")

	msg := gelfMessage(line, "host-1", "habilitaciones", now)

	assert.Equal(t, "1.1", msg["version"])
	assert.Equal(t, "upload_failed", msg["short_message"])
	assert.Equal(t, 3, msg["level"])
	assert.Equal(t, "files/DNI_a.pdf", msg["_key"])
	assert.Equal(t, "habilitaciones", msg["_service"])
	_, hasTS := msg["_ts"]
	assert.False(t, hasTS)
}

func TestGelfMessage_PlainLine(t *testing.T) {
	msg := gelfMessage([]byte("not json\n"), "h", "svc", time.Now())
	assert.Equal(t, "not json", msg["short_message"])
	assert.Equal(t, 6, msg["level"])
}
