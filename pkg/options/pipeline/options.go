// Package pipeline provides triage pipeline configuration options.
package pipeline

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/pawcare/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options contains pipeline configuration.
type Options struct {
	// ChunkSize is the maximum chunk length in characters.
	ChunkSize int `json:"chunk-size" mapstructure:"chunk-size"`

	// ChunkOverlap is the number of characters shared by consecutive chunks.
	ChunkOverlap int `json:"chunk-overlap" mapstructure:"chunk-overlap"`

	// TopK is the number of passages retrieved per question.
	TopK int `json:"top-k" mapstructure:"top-k"`

	// Collection is the Milvus collection name.
	Collection string `json:"collection" mapstructure:"collection"`

	// EmbeddingDim is the fixed dimension of stored vectors.
	EmbeddingDim int `json:"embedding-dim" mapstructure:"embedding-dim"`

	// BatchSize is the number of vectors written per upsert call.
	BatchSize int `json:"batch-size" mapstructure:"batch-size"`

	// HistoryWindow is the number of recent user messages the classifier sees.
	HistoryWindow int `json:"history-window" mapstructure:"history-window"`

	// DataDir is the default document directory.
	DataDir string `json:"data-dir" mapstructure:"data-dir"`

	// Extensions lists the file extensions picked up by indexing.
	Extensions []string `json:"extensions" mapstructure:"extensions"`

	ClassifierTimeout time.Duration `json:"classifier-timeout" mapstructure:"classifier-timeout"`
	ImageTimeout      time.Duration `json:"image-timeout" mapstructure:"image-timeout"`
	AnswerTimeout     time.Duration `json:"answer-timeout" mapstructure:"answer-timeout"`
	EmbedTimeout      time.Duration `json:"embed-timeout" mapstructure:"embed-timeout"`

	// AnswerTemperature is the sampling temperature of the answer call.
	AnswerTemperature float64 `json:"answer-temperature" mapstructure:"answer-temperature"`

	// ClassifierMaxTokens caps the classifier reply.
	ClassifierMaxTokens int `json:"classifier-max-tokens" mapstructure:"classifier-max-tokens"`

	// Watch re-indexes DataDir when files change.
	Watch bool `json:"watch" mapstructure:"watch"`

	// WatchDebounce coalesces bursts of file events.
	WatchDebounce time.Duration `json:"watch-debounce" mapstructure:"watch-debounce"`

	// IndexWorkers is the size of the indexing worker pool.
	IndexWorkers int `json:"index-workers" mapstructure:"index-workers"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ChunkSize:           1000,
		ChunkOverlap:        200,
		TopK:                5,
		Collection:          "pet_health_rag",
		EmbeddingDim:        3072,
		BatchSize:           100,
		HistoryWindow:       5,
		DataDir:             "./pdfs",
		Extensions:          []string{".pdf", ".txt", ".md"},
		ClassifierTimeout:   15 * time.Second,
		ImageTimeout:        20 * time.Second,
		AnswerTimeout:       60 * time.Second,
		EmbedTimeout:        30 * time.Second,
		AnswerTemperature:   0.6,
		ClassifierMaxTokens: 10,
		WatchDebounce:       2 * time.Second,
		IndexWorkers:        4,
	}
}

// AddFlags adds flags for pipeline options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "pipeline."
	fs.IntVar(&o.ChunkSize, p+"chunk-size", o.ChunkSize, "Maximum chunk length in characters.")
	fs.IntVar(&o.ChunkOverlap, p+"chunk-overlap", o.ChunkOverlap, "Characters shared by consecutive chunks.")
	fs.IntVar(&o.TopK, p+"top-k", o.TopK, "Number of passages retrieved per question.")
	fs.StringVar(&o.Collection, p+"collection", o.Collection, "Milvus collection name.")
	fs.IntVar(&o.EmbeddingDim, p+"embedding-dim", o.EmbeddingDim, "Dimension of stored vectors.")
	fs.IntVar(&o.BatchSize, p+"batch-size", o.BatchSize, "Vectors written per upsert call.")
	fs.IntVar(&o.HistoryWindow, p+"history-window", o.HistoryWindow, "Recent user messages given to the classifier.")
	fs.StringVar(&o.DataDir, p+"data-dir", o.DataDir, "Default document directory.")
	fs.StringSliceVar(&o.Extensions, p+"extensions", o.Extensions, "File extensions picked up by indexing.")
	fs.DurationVar(&o.ClassifierTimeout, p+"classifier-timeout", o.ClassifierTimeout, "Urgency classifier deadline.")
	fs.DurationVar(&o.ImageTimeout, p+"image-timeout", o.ImageTimeout, "Image analyzer deadline.")
	fs.DurationVar(&o.AnswerTimeout, p+"answer-timeout", o.AnswerTimeout, "Answer generation deadline.")
	fs.DurationVar(&o.EmbedTimeout, p+"embed-timeout", o.EmbedTimeout, "Per-batch embedding deadline.")
	fs.Float64Var(&o.AnswerTemperature, p+"answer-temperature", o.AnswerTemperature, "Answer sampling temperature.")
	fs.IntVar(&o.ClassifierMaxTokens, p+"classifier-max-tokens", o.ClassifierMaxTokens, "Maximum tokens of the classifier reply.")
	fs.BoolVar(&o.Watch, p+"watch", o.Watch, "Re-index the data directory when files change.")
	fs.DurationVar(&o.WatchDebounce, p+"watch-debounce", o.WatchDebounce, "Quiet period before a watched change is re-indexed.")
	fs.IntVar(&o.IndexWorkers, p+"index-workers", o.IndexWorkers, "Size of the indexing worker pool.")
}

// Validate validates the pipeline options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.chunk-size must be positive"))
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		errs = append(errs, fmt.Errorf("pipeline.chunk-overlap must be in [0, chunk-size)"))
	}
	if o.TopK <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.top-k must be positive"))
	}
	if o.EmbeddingDim <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.embedding-dim must be positive"))
	}
	if o.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("pipeline.batch-size must be positive"))
	}
	if o.Collection == "" {
		errs = append(errs, fmt.Errorf("pipeline.collection is required"))
	}
	if o.HistoryWindow < 0 {
		errs = append(errs, fmt.Errorf("pipeline.history-window must not be negative"))
	}
	for name, d := range map[string]time.Duration{
		"classifier-timeout": o.ClassifierTimeout,
		"image-timeout":      o.ImageTimeout,
		"answer-timeout":     o.AnswerTimeout,
		"embed-timeout":      o.EmbedTimeout,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("pipeline.%s must be positive", name))
		}
	}
	return errs
}

// Complete completes the pipeline options with defaults.
func (o *Options) Complete() error {
	if len(o.Extensions) == 0 {
		o.Extensions = []string{".pdf"}
	}
	if o.IndexWorkers <= 0 {
		o.IndexWorkers = 1
	}
	if o.WatchDebounce <= 0 {
		o.WatchDebounce = 2 * time.Second
	}
	return nil
}
