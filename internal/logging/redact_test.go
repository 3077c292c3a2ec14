package logging

import (
	"context"
	"testing"
	"time"

	"github.com/fyrsmithlabs/answerd/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func encode(t *testing.T, enc zapcore.Encoder, fields ...zapcore.Field) string {
	t.Helper()
	buf, err := enc.EncodeEntry(zapcore.Entry{Message: "m", Time: time.Unix(0, 0)}, fields)
	require.NoError(t, err)
	return buf.String()
}

func TestRedactingEncoder_FieldNames(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	out := encode(t, enc, zap.String("api_key", "sk-live"), zap.String("Authorization", "xyz"))
	assert.NotContains(t, out, "sk-live")
	assert.NotContains(t, out, "xyz")
	assert.Contains(t, out, `"api_key":"[REDACTED]"`)
}

func TestRedactingEncoder_Patterns(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), NewDefaultConfig().Redaction)
	require.NoError(t, err)

	out := encode(t, enc, zap.String("header", "Bearer abc.def"))
	assert.Contains(t, out, "[REDACTED:pattern]")
	assert.NotContains(t, out, "abc.def")

	out = encode(t, enc, zap.String("answer", "a cloud is water vapor"))
	assert.Contains(t, out, "a cloud is water vapor")
}

func TestRedactingEncoder_Disabled(t *testing.T) {
	enc, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{Enabled: false})
	require.NoError(t, err)

	out := encode(t, enc, zap.String("api_key", "visible"))
	assert.Contains(t, out, "visible")
}

func TestRedactingEncoder_BadPattern(t *testing.T) {
	_, err := NewRedactingEncoder(newEncoder("json"), RedactionConfig{Enabled: true, Patterns: []string{"("}})
	assert.Error(t, err)
}

func TestSecretField(t *testing.T) {
	core, observed := observer.New(zapcore.InfoLevel)
	logger := &Logger{zap: zap.New(core), config: NewDefaultConfig()}

	logger.Info(context.Background(), "provider configured",
		Secret("api_key", config.Secret("sk-1234567890abcdef")),
		Secret("unset_key", config.Secret("")))

	logs := observed.All()
	require.Len(t, logs, 1)
	ctx := logs[0].ContextMap()
	assert.Equal(t, "[REDACTED:19]", ctx["api_key"])
	assert.Equal(t, "", ctx["unset_key"])
}

func TestTestLogger_AssertNoSecrets(t *testing.T) {
	tl := NewTestLogger()
	tl.Info(context.Background(), "configured", RedactedString("token", "abcdef"))
	tl.AssertNoSecrets(t)

	leaky := NewTestLogger()
	leaky.Info(context.Background(), "configured", zap.String("token", "abcdef"))

	rec := &recordingTB{TB: t}
	leaky.AssertNoSecrets(rec)
	assert.True(t, rec.failed)
}

type recordingTB struct {
	testing.TB
	failed bool
}

func (r *recordingTB) Helper() {}

func (r *recordingTB) Errorf(string, ...any) { r.failed = true }
