package biz

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/pawcare/internal/pawcare/metrics"
	visionopts "github.com/kart-io/pawcare/pkg/options/vision"
	"github.com/kart-io/pawcare/pkg/utils/json"
	"github.com/kart-io/pawcare/pkg/vision"
)

var testLabels = visionopts.DefaultLabels

func TestImageAnalyzer_Unavailable(t *testing.T) {
	a := NewImageAnalyzer(nil, testLabels, 0, metrics.New())
	res := a.Analyze(context.Background(), []byte("jpeg"))

	assert.Equal(t, ImageUnavailable, res.Status)
	assert.Equal(t, SummaryImageUnavailable, res.Summary)
	assert.NotNil(t, res.RawScores)
	assert.Empty(t, res.RawScores)
	assert.False(t, res.Meaningful())
}

func TestImageAnalysisResult_ZeroConfidenceSerialized(t *testing.T) {
	data, err := json.Marshal(&ImageAnalysisResult{Status: ImageOK, PredictedLabel: "ringworm", Confidence: 0})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	require.Contains(t, out, "confidence")
	assert.Equal(t, float64(0), out["confidence"])
}

func TestImageAnalyzer_Success(t *testing.T) {
	v := &stubVision{scores: []float64{0.05, 0.1, 0.7, 0.05, 0.05, 0.05}}
	m := metrics.New()
	a := NewImageAnalyzer(v, testLabels, 0, m)

	res := a.Analyze(context.Background(), []byte("jpeg"))
	require.Equal(t, ImageOK, res.Status)
	assert.Equal(t, "fungal_infections", res.PredictedLabel)
	assert.InDelta(t, 0.7, res.Confidence, 1e-9)
	assert.Equal(t, "Preliminary image signal: fungal infections (confidence 70%). This is not a diagnosis; please have a veterinarian confirm.", res.Summary)
	assert.True(t, res.Meaningful())
	assert.Equal(t, uint64(1), m.Stats()["image_analyses"].(map[string]uint64)["ok"])
}

func TestImageAnalyzer_TransportFailure(t *testing.T) {
	a := NewImageAnalyzer(&stubVision{err: stderrors.New("dial tcp: refused")}, testLabels, 0, nil)
	res := a.Analyze(context.Background(), []byte("jpeg"))

	assert.Equal(t, ImageFailed, res.Status)
	assert.Equal(t, SummaryImageFailed, res.Summary)
}

func TestImageAnalyzer_MalformedFromEndpoint(t *testing.T) {
	err := fmt.Errorf("decode: %w", vision.ErrMalformedOutput)
	a := NewImageAnalyzer(&stubVision{err: err}, testLabels, 0, nil)
	res := a.Analyze(context.Background(), []byte("jpeg"))

	assert.Equal(t, ImageMalformed, res.Status)
	assert.Contains(t, res.Summary, "unexpected format")
}

func TestReduce(t *testing.T) {
	tests := []struct {
		name      string
		scores    []float64
		status    ImageStatus
		wantLabel string
	}{
		{name: "undersized", scores: []float64{0.9, 0.1}, status: ImageMalformed},
		{name: "oversized", scores: make([]float64, 7), status: ImageMalformed},
		{name: "nil", scores: nil, status: ImageMalformed},
		{name: "nan", scores: []float64{math.NaN(), 0, 0, 0, 0, 0}, status: ImageMalformed},
		{name: "inf", scores: []float64{math.Inf(1), 0, 0, 0, 0, 0}, status: ImageMalformed},
		{name: "probabilities", scores: []float64{0.1, 0.1, 0.1, 0.6, 0.05, 0.05}, status: ImageOK, wantLabel: "healthy"},
		{name: "logits", scores: []float64{-2, 5, 1, 0, 0, 3}, status: ImageOK, wantLabel: "dermatitis"},
		{name: "tie keeps first", scores: []float64{0.5, 0.5, 0, 0, 0, 0}, status: ImageOK, wantLabel: "demodicosis"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Reduce(tt.scores, testLabels)
			assert.Equal(t, tt.status, res.Status)
			if tt.status == ImageMalformed {
				assert.Equal(t, SummaryImageMalformed, res.Summary)
				assert.Empty(t, res.PredictedLabel)
				assert.NotNil(t, res.RawScores)
				return
			}
			assert.Equal(t, tt.wantLabel, res.PredictedLabel)
			assert.GreaterOrEqual(t, res.Confidence, 0.0)
			assert.LessOrEqual(t, res.Confidence, 1.0)
			assert.Contains(t, res.Summary, "not a diagnosis")
			assert.Equal(t, tt.scores, res.RawScores)
		})
	}
}

func TestSoftmax(t *testing.T) {
	out := softmax([]float64{1000, 1000})
	assert.InDelta(t, 0.5, out[0], 1e-9)
	assert.InDelta(t, 0.5, out[1], 1e-9)

	var sum float64
	for _, p := range softmax([]float64{-3, 0, 2, 7}) {
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
