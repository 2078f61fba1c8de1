package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/projecthub/pkg/contextkeys"
)

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  logrus.Level
	}{
		{"debug", "debug", logrus.DebugLevel},
		{"upper case", "WARN", logrus.WarnLevel},
		{"unknown falls back to info", "chatty", logrus.InfoLevel},
		{"empty falls back to info", "", logrus.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.level, &bytes.Buffer{})
			assert.Equal(t, tt.want, logger.GetLevel())
		})
	}
}

func TestNewLogger_WritesJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", &buf)

	logger.Debug("hidden")
	assert.Zero(t, buf.Len())

	logger.WithField("project_id", 7).Info("created")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "created", entry["msg"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, float64(7), entry["project_id"])
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", &buf)

	ctx := contextkeys.WithRequestID(context.Background(), "req-9")
	ctx = contextkeys.WithActor(ctx, 3)

	FromContext(ctx, logger).Info("hello")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-9", entry["request_id"])
	assert.Equal(t, float64(3), entry["user_id"])
	assert.NotContains(t, entry, "trace_id")
}

func TestGetLogger(t *testing.T) {
	fallback := NewLogger("info", &bytes.Buffer{})
	assert.Equal(t, logrus.FieldLogger(fallback), GetLogger(context.Background(), fallback))

	scoped := fallback.WithField("scope", "request")
	ctx := contextkeys.WithLogger(context.Background(), logrus.FieldLogger(scoped))
	assert.Equal(t, logrus.FieldLogger(scoped), GetLogger(ctx, fallback))
}
