// Package options holds the pieces shared by every *opts package: the
// IOptions contract, flag prefixing, and batch Complete/Validate over the
// named sections of a command.
package options

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
)

// IOptions is implemented by every configuration section.
type IOptions interface {
	// Validate reports every problem at once so the command can print an aggregate.
	Validate() []error
	// AddFlags registers the section's flags, optionally under prefixes.
	AddFlags(fs *pflag.FlagSet, prefixes ...string)
}

// Completer is implemented by sections that derive defaults after flags
// and config files are applied.
type Completer interface {
	Complete() error
}

// Section pairs a section with the name used in error messages.
type Section struct {
	Name    string
	Options IOptions
}

// Join builds a flag prefix: Join("a", "b") is "a.b.", Join() is "".
func Join(prefixes ...string) string {
	joined := strings.Join(prefixes, ".")
	if joined != "" {
		joined += "."
	}
	return joined
}

// CompleteAll completes sections in order and stops at the first error.
func CompleteAll(sections ...Section) error {
	for _, s := range sections {
		c, ok := s.Options.(Completer)
		if !ok {
			continue
		}
		if err := c.Complete(); err != nil {
			return fmt.Errorf("%s: %w", s.Name, err)
		}
	}
	return nil
}

// ValidateAll collects the errors of every section.
func ValidateAll(sections ...Section) []error {
	var errs []error
	for _, s := range sections {
		errs = append(errs, s.Options.Validate()...)
	}
	return errs
}
