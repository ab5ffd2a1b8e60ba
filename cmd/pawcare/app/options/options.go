// Package options contains flags and options for initializing the pawcare server.
package options

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
	httpopts "github.com/kart-io/pawcare/pkg/options/server/http"
	tracingopts "github.com/kart-io/pawcare/pkg/options/tracing"
	visionopts "github.com/kart-io/pawcare/pkg/options/vision"
)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// MilvusOptions contains Milvus database configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// VisionOptions contains the image classifier endpoint configuration.
	VisionOptions *visionopts.Options `json:"vision" mapstructure:"vision"`

	// PipelineOptions contains chunking, retrieval and stage timeouts.
	PipelineOptions *pipelineopts.Options `json:"pipeline" mapstructure:"pipeline"`

	// CacheOptions contains query embedding cache configuration.
	CacheOptions *cacheopts.Options `json:"cache" mapstructure:"cache"`

	// TracingOptions contains OpenTelemetry export configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		VisionOptions:    visionopts.NewOptions(),
		PipelineOptions:  pipelineopts.NewOptions(),
		CacheOptions:     cacheopts.NewOptions(),
		TracingOptions:   tracingopts.NewOptions(),
		ShutdownTimeout:  30 * time.Second,
	}
}

// Flags returns flags for a specific server by section name.
func (o *ServerOptions) Flags() (fss cliflag.NamedFlagSets) {
	o.HTTPOptions.AddFlags(fss.FlagSet("http"))
	o.LogOptions.AddFlags(fss.FlagSet("log"))
	o.MilvusOptions.AddFlags(fss.FlagSet("milvus"))
	o.EmbeddingOptions.AddFlags(fss.FlagSet("embedding"))
	o.ChatOptions.AddFlags(fss.FlagSet("chat"))
	o.VisionOptions.AddFlags(fss.FlagSet("vision"))
	o.PipelineOptions.AddFlags(fss.FlagSet("pipeline"))
	o.CacheOptions.AddFlags(fss.FlagSet("cache"))
	o.TracingOptions.AddFlags(fss.FlagSet("tracing"))

	// misc flags
	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

func (o *ServerOptions) sections() []genericoptions.Section {
	return []genericoptions.Section{
		{Name: "http", Options: o.HTTPOptions},
		{Name: "log", Options: o.LogOptions},
		{Name: "milvus", Options: o.MilvusOptions},
		{Name: "embedding", Options: o.EmbeddingOptions},
		{Name: "chat", Options: o.ChatOptions},
		{Name: "vision", Options: o.VisionOptions},
		{Name: "pipeline", Options: o.PipelineOptions},
		{Name: "cache", Options: o.CacheOptions},
		{Name: "tracing", Options: o.TracingOptions},
	}
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	return genericoptions.CompleteAll(o.sections()...)
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := genericoptions.ValidateAll(o.sections()...)
	if o.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown-timeout must be positive"))
	}
	if len(errs) == 0 {
		return nil
	}
	return errors.ErrConfiguration.WithCause(utilerrors.NewAggregate(errs))
}

// Config builds a pawcare.Config based on ServerOptions.
func (o *ServerOptions) Config() (*pawcare.Config, error) {
	return &pawcare.Config{
		HTTPOptions:      o.HTTPOptions,
		LogOptions:       o.LogOptions,
		MilvusOptions:    o.MilvusOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		ChatOptions:      o.ChatOptions,
		VisionOptions:    o.VisionOptions,
		PipelineOptions:  o.PipelineOptions,
		CacheOptions:     o.CacheOptions,
		TracingOptions:   o.TracingOptions,
		ShutdownTimeout:  o.ShutdownTimeout,
	}, nil
}
