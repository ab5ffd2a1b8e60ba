package biz

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kart-io/logger"

	"github.com/kart-io/pawcare/internal/pawcare/metrics"
	"github.com/kart-io/pawcare/pkg/errors"
	"github.com/kart-io/pawcare/pkg/vision"
)

// 图像分析摘要文案。
const (
	SummaryImageUnavailable = "Image analysis is currently unavailable, so the photo was not assessed."
	SummaryImageMalformed   = "Image analysis returned an unexpected format, so no image finding could be determined."
	SummaryImageFailed      = "We could not analyze the image at this time."
	summaryImageOK          = "Preliminary image signal: %s (confidence %.0f%%). This is not a diagnosis; please have a veterinarian confirm."
)

// ImageAnalyzer 调用外部皮肤分类端点并归约为单一标签。
type ImageAnalyzer struct {
	endpoint vision.Endpoint
	labels   []string
	timeout  time.Duration
	metrics  *metrics.PipelineMetrics
}

// NewImageAnalyzer 创建图像分析器。endpoint 为 nil 表示未配置。
func NewImageAnalyzer(endpoint vision.Endpoint, labels []string, timeout time.Duration, m *metrics.PipelineMetrics) *ImageAnalyzer {
	return &ImageAnalyzer{
		endpoint: endpoint,
		labels:   labels,
		timeout:  timeout,
		metrics:  m,
	}
}

// Analyze 分析图像。从不返回错误，失败转为说明性摘要。
func (a *ImageAnalyzer) Analyze(ctx context.Context, image []byte) *ImageAnalysisResult {
	start := time.Now()
	result := a.analyze(ctx, image)
	if a.metrics != nil {
		a.metrics.RecordImage(string(result.Status), time.Since(start))
	}
	return result
}

func (a *ImageAnalyzer) analyze(ctx context.Context, image []byte) *ImageAnalysisResult {
	if a.endpoint == nil {
		return &ImageAnalysisResult{Status: ImageUnavailable, Summary: SummaryImageUnavailable, RawScores: []float64{}}
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	scores, err := a.endpoint.Invoke(ctx, image)
	if err != nil {
		if stderrors.Is(err, vision.ErrMalformedOutput) {
			logger.Warnw("Image classifier output malformed", "error", err.Error())
			return &ImageAnalysisResult{Status: ImageMalformed, Summary: SummaryImageMalformed, RawScores: []float64{}}
		}
		logger.Warnw("Image analysis failed",
			"error", errors.ErrImageAnalysisFailed.WithCause(err).Error(),
		)
		return &ImageAnalysisResult{Status: ImageFailed, Summary: SummaryImageFailed, RawScores: []float64{}}
	}

	return Reduce(scores, a.labels)
}

// Reduce 校验分数向量并取最大值对应的标签。
// 长度与标签数不一致或含 NaN/Inf 视为格式异常；超出 [0,1] 的分数先做 softmax。
func Reduce(scores []float64, labels []string) *ImageAnalysisResult {
	if scores == nil {
		scores = []float64{}
	}
	if len(labels) == 0 || len(scores) != len(labels) {
		return &ImageAnalysisResult{Status: ImageMalformed, Summary: SummaryImageMalformed, RawScores: scores}
	}

	probabilistic := true
	for _, s := range scores {
		if math.IsNaN(s) || math.IsInf(s, 0) {
			return &ImageAnalysisResult{Status: ImageMalformed, Summary: SummaryImageMalformed, RawScores: scores}
		}
		if s < 0 || s > 1 {
			probabilistic = false
		}
	}

	probs := scores
	if !probabilistic {
		probs = softmax(scores)
	}

	best := 0
	for i := range probs {
		if probs[i] > probs[best] {
			best = i
		}
	}

	label := labels[best]
	return &ImageAnalysisResult{
		Status:         ImageOK,
		PredictedLabel: label,
		Confidence:     probs[best],
		Summary:        fmt.Sprintf(summaryImageOK, strings.ReplaceAll(label, "_", " "), probs[best]*100),
		RawScores:      scores,
	}
}

func softmax(scores []float64) []float64 {
	maxScore := math.Inf(-1)
	for _, s := range scores {
		maxScore = math.Max(maxScore, s)
	}

	out := make([]float64, len(scores))
	var sum float64
	for i, s := range scores {
		out[i] = math.Exp(s - maxScore)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
