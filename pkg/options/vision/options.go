// Package vision provides skin-condition classifier endpoint options.
package vision

import (
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/pawcare/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// DefaultLabels is the label order of the bundled skin classifier.
var DefaultLabels = []string{
	"demodicosis",
	"dermatitis",
	"fungal_infections",
	"healthy",
	"hypersensitivity",
	"ringworm",
}

// Options contains image classifier endpoint configuration.
// An empty Endpoint disables image analysis.
type Options struct {
	Endpoint    string        `json:"endpoint" mapstructure:"endpoint"`
	APIKey      string        `json:"-" mapstructure:"api-key"`
	ContentType string        `json:"content-type" mapstructure:"content-type"`
	Timeout     time.Duration `json:"timeout" mapstructure:"timeout"`
	MaxRetries  int           `json:"max-retries" mapstructure:"max-retries"`
	Labels      []string      `json:"labels" mapstructure:"labels"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		ContentType: "application/x-image",
		Timeout:     20 * time.Second,
		Labels:      append([]string(nil), DefaultLabels...),
	}
}

// Enabled reports whether an endpoint is configured.
func (o *Options) Enabled() bool {
	return o != nil && o.Endpoint != ""
}

// AddFlags adds flags for vision options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "vision."
	fs.StringVar(&o.Endpoint, p+"endpoint", o.Endpoint, "Skin classifier inference URL (empty disables image analysis).")
	fs.StringVar(&o.APIKey, p+"api-key", o.APIKey, "Bearer token for the classifier endpoint (defaults to $VISION_API_KEY).")
	fs.StringVar(&o.ContentType, p+"content-type", o.ContentType, "Content type used to upload images.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "HTTP timeout for the classifier endpoint.")
	fs.IntVar(&o.MaxRetries, p+"max-retries", o.MaxRetries, "Retries on transport errors.")
	fs.StringSliceVar(&o.Labels, p+"labels", o.Labels, "Label names in classifier output order.")
}

// Validate validates the vision options.
func (o *Options) Validate() []error {
	if !o.Enabled() {
		return nil
	}

	var errs []error
	if _, err := url.ParseRequestURI(o.Endpoint); err != nil {
		errs = append(errs, fmt.Errorf("vision.endpoint is not a valid URL: %w", err))
	}
	if len(o.Labels) == 0 {
		errs = append(errs, fmt.Errorf("vision.labels must not be empty"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("vision.timeout must be positive"))
	}
	return errs
}

// Complete completes the vision options with defaults.
func (o *Options) Complete() error {
	if o.APIKey == "" {
		o.APIKey = os.Getenv("VISION_API_KEY")
	}
	if len(o.Labels) == 0 {
		o.Labels = append([]string(nil), DefaultLabels...)
	}
	return nil
}
