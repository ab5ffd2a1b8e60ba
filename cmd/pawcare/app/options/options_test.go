package options

import (
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/pawcare/pkg/errors"
)

func TestServerOptions_Defaults(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	o := NewServerOptions()
	require.NoError(t, o.Complete())
	require.NoError(t, o.Validate())

	cfg, err := o.Config()
	require.NoError(t, err)
	assert.Equal(t, "pet_health_rag", cfg.PipelineOptions.Collection)
	assert.Equal(t, 0.6, cfg.PipelineOptions.AnswerTemperature)
	assert.Equal(t, "gpt-4.1", cfg.ChatOptions.Model)
	assert.Equal(t, 0, cfg.ChatOptions.MaxRetries)
	assert.False(t, cfg.VisionOptions.Enabled())
}

func TestServerOptions_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")

	o := NewServerOptions()
	require.NoError(t, o.Complete())
	err := o.Validate()
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrConfiguration))
	assert.Equal(t, errors.ErrConfiguration.Code, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "api-key")
}

func TestServerOptions_AggregatesErrors(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-test")

	o := NewServerOptions()
	o.PipelineOptions.ChunkOverlap = o.PipelineOptions.ChunkSize
	o.PipelineOptions.TopK = 0
	o.ShutdownTimeout = 0
	require.NoError(t, o.Complete())

	err := o.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk-overlap")
	assert.Contains(t, err.Error(), "top-k")
	assert.Contains(t, err.Error(), "shutdown-timeout")
}

func TestServerOptions_Flags(t *testing.T) {
	fss := NewServerOptions().Flags()
	for section, flag := range map[string]string{
		"http":      "http.addr",
		"milvus":    "milvus.address",
		"embedding": "embedding.model",
		"chat":      "chat.model",
		"vision":    "vision.endpoint",
		"pipeline":  "pipeline.top-k",
		"cache":     "cache.enabled",
		"tracing":   "tracing.exporter-type",
		"misc":      "shutdown-timeout",
	} {
		fs := fss.FlagSet(section)
		assert.NotNil(t, fs.Lookup(flag), "missing flag %s in section %s", flag, section)
	}
}
