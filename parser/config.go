package parser

import (
	"fmt"

	"github.com/rgonek/prosemirror-markdown/model"
)

// Config holds parser options.
type Config struct {
	// UnknownTokens controls what happens with token types that have no
	// handler: "error" (default) aborts the build, "skip" drops the token and
	// records a warning.
	UnknownTokens model.UnknownPolicy `json:"unknownTokens,omitempty" yaml:"unknownTokens,omitempty"`
}

func (c Config) applyDefaults() Config {
	if c.UnknownTokens == "" {
		c.UnknownTokens = model.UnknownError
	}
	return c
}

func (c Config) clone() Config {
	return c
}

// Validate checks if the config values are valid.
func (c Config) Validate() error {
	switch c.UnknownTokens {
	case "", model.UnknownError, model.UnknownSkip:
	default:
		return fmt.Errorf("invalid unknownTokens policy %q", c.UnknownTokens)
	}
	return nil
}
