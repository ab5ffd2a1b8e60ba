// Package milvusopts provides options for Milvus client configuration.
package milvusopts

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/pawcare/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options locates the vector store that holds the knowledge-base chunks.
// The collection itself is named by the pipeline options.
type Options struct {
	Address  string        `json:"address" mapstructure:"address"`
	Database string        `json:"database" mapstructure:"database"`
	Username string        `json:"username" mapstructure:"username"`
	Password string        `json:"-" mapstructure:"password"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// NewOptions creates new Options with defaults.
func NewOptions() *Options {
	return &Options{
		Address:  "localhost:19530",
		Database: "default",
		Timeout:  30 * time.Second,
	}
}

// AddFlags registers the milvus.* flags.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "milvus."
	fs.StringVar(&o.Address, p+"address", o.Address, "Vector store address (host:port). Falls back to MILVUS_ADDRESS.")
	fs.StringVar(&o.Database, p+"database", o.Database, "Vector store database holding the knowledge collection.")
	fs.StringVar(&o.Username, p+"username", o.Username, "Vector store username.")
	fs.StringVar(&o.Password, p+"password", o.Password, "Vector store password. Prefer MILVUS_PASSWORD.")
	fs.DurationVar(&o.Timeout, p+"timeout", o.Timeout, "Timeout for connecting and for each store call.")
}

// Complete fills the address and credentials from the environment when no
// flag or config value was given.
func (o *Options) Complete() error {
	if addr := os.Getenv("MILVUS_ADDRESS"); addr != "" && o.Address == NewOptions().Address {
		o.Address = addr
	}
	if o.Password == "" {
		o.Password = os.Getenv("MILVUS_PASSWORD")
	}
	if o.Database == "" {
		o.Database = "default"
	}
	return nil
}

// Validate validates the options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}

	var errs []error
	if o.Address == "" {
		errs = append(errs, fmt.Errorf("milvus address is required"))
	}
	if o.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("milvus timeout must be positive"))
	}
	return errs
}
