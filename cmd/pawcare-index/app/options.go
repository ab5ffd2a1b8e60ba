package app

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	"github.com/kart-io/pawcare/internal/pawcare"
	cliflag "github.com/kart-io/pawcare/pkg/app/cliflag"
	"github.com/kart-io/pawcare/pkg/errors"
	genericoptions "github.com/kart-io/pawcare/pkg/options"
	cacheopts "github.com/kart-io/pawcare/pkg/options/cache"
	llmopts "github.com/kart-io/pawcare/pkg/options/llm"
	logopts "github.com/kart-io/pawcare/pkg/options/logger"
	milvusopts "github.com/kart-io/pawcare/pkg/options/milvus"
	pipelineopts "github.com/kart-io/pawcare/pkg/options/pipeline"
	tracingopts "github.com/kart-io/pawcare/pkg/options/tracing"
	visionopts "github.com/kart-io/pawcare/pkg/options/vision"
)

// IndexOptions configures a one-shot indexing run.
type IndexOptions struct {
	// Directory is the folder to index; defaults to pipeline.data-dir.
	Directory string `json:"directory" mapstructure:"directory"`
	// Purge clears the collection before indexing.
	Purge bool `json:"purge" mapstructure:"purge"`
	// PurgeOnly clears the collection and exits.
	PurgeOnly bool `json:"purge-only" mapstructure:"purge-only"`
	// Timeout bounds the whole run.
	Timeout time.Duration `json:"timeout" mapstructure:"timeout"`

	LogOptions       *logopts.Options         `json:"log" mapstructure:"log"`
	MilvusOptions    *milvusopts.Options      `json:"milvus" mapstructure:"milvus"`
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`
	ChatOptions      *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`
	PipelineOptions  *pipelineopts.Options    `json:"pipeline" mapstructure:"pipeline"`
	TracingOptions   *tracingopts.Options     `json:"tracing" mapstructure:"tracing"`
}

// NewIndexOptions creates IndexOptions with defaults.
func NewIndexOptions() *IndexOptions {
	return &IndexOptions{
		Timeout:          time.Hour,
		LogOptions:       logopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		PipelineOptions:  pipelineopts.NewOptions(),
		TracingOptions:   tracingopts.NewOptions(),
	}
}

// Flags returns the flag sections of the indexer.
func (o *IndexOptions) Flags() (fss cliflag.NamedFlagSets) {
	fs := fss.FlagSet("index")
	fs.StringVarP(&o.Directory, "directory", "d", o.Directory, "Directory of documents to index (defaults to --pipeline.data-dir).")
	fs.BoolVar(&o.Purge, "purge", o.Purge, "Remove every stored vector before indexing.")
	fs.BoolVar(&o.PurgeOnly, "purge-only", o.PurgeOnly, "Remove every stored vector and exit.")
	fs.DurationVar(&o.Timeout, "timeout", o.Timeout, "Deadline for the whole run.")

	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"))
	o.ChatOptions.AddFlags(fss.FlagSet("chat"))
	o.PipelineOptions.AddFlags(fss.FlagSet("pipeline"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))
	return fss
}

func (o *IndexOptions) sections() []genericoptions.Section {
	return []genericoptions.Section{
		{Name: "log", Options: o.LogOptions},
		{Name: "milvus", Options: o.MilvusOptions},
		{Name: "embedding", Options: o.EmbeddingOptions},
		{Name: "chat", Options: o.ChatOptions},
		{Name: "pipeline", Options: o.PipelineOptions},
		{Name: "tracing", Options: o.TracingOptions},
	}
}

// Complete fills derived defaults.
func (o *IndexOptions) Complete() error {
	if err := genericoptions.CompleteAll(o.sections()...); err != nil {
		return err
	}
	if o.Directory == "" {
		o.Directory = o.PipelineOptions.DataDir
	}
	if o.PurgeOnly {
		o.Purge = true
	}
	return nil
}

// Validate checks the options.
func (o *IndexOptions) Validate() error {
	errs := genericoptions.ValidateAll(o.sections()...)
	if o.Directory == "" && !o.PurgeOnly {
		errs = append(errs, fmt.Errorf("directory is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("timeout must be positive"))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.ErrConfiguration.WithCause(utilerrors.NewAggregate(errs))
}

// Config builds the component configuration. The chat provider is built
// because the pipeline owns one, but indexing never calls it.
func (o *IndexOptions) Config() *pawcare.Config {
	cache := cacheopts.NewOptions()
	cache.Enabled = false
	return &pawcare.Config{
		LogOptions:       o.LogOptions,
		MilvusOptions:    o.MilvusOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		ChatOptions:      o.ChatOptions,
		VisionOptions:    visionopts.NewOptions(),
		PipelineOptions:  o.PipelineOptions,
		CacheOptions:     cache,
		TracingOptions:   o.TracingOptions,
		ShutdownTimeout:  30 * time.Second,
	}
}
