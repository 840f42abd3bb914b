package tenduke

import (
	"fmt"

	"github.com/hashicorp/go-uuid"
)

// NewID generates an ID with an optional prefix.  The ID generated is suitable
// for a correlation id.
func NewID(opt ...Option) (string, error) {
	const op = "tenduke.NewID"
	opts := getIDOpts(opt...)
	id, err := uuid.GenerateUUID()
	if err != nil {
		return "", fmt.Errorf("%s: unable to generate id: %w", op, ErrIDGeneratorFailed)
	}
	switch {
	case opts.withPrefix != "":
		return fmt.Sprintf("%s_%s", opts.withPrefix, id), nil
	default:
		return id, nil
	}
}

// idOptions is the set of available options for NewID
type idOptions struct {
	withPrefix string
}

// idDefaults is a handy way to get the defaults at runtime and during unit
// tests.
func idDefaults() idOptions {
	return idOptions{}
}

// getIDOpts gets the id defaults and applies the opt overrides passed in
func getIDOpts(opt ...Option) idOptions {
	opts := idDefaults()
	ApplyOpts(&opts, opt...)
	return opts
}

// WithPrefix provides an optional prefix for a new ID
func WithPrefix(prefix string) Option {
	return func(o interface{}) {
		if o, ok := o.(*idOptions); ok {
			o.withPrefix = prefix
		}
	}
}
