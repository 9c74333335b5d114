package serializer

import (
	"fmt"

	"github.com/rgonek/prosemirror-markdown/model"
)

// HardBreakStyle controls how hard line breaks are rendered.
type HardBreakStyle string

const (
	HardBreakBackslash HardBreakStyle = "backslash"
	HardBreakSpaces    HardBreakStyle = "spaces"
)

// OrderedListStyle controls ordered list numbering.
type OrderedListStyle string

const (
	OrderedIncremental OrderedListStyle = "incremental"
	OrderedLazy        OrderedListStyle = "lazy"
)

// Config holds serializer options.
type Config struct {
	// TightLists renders lists without blank lines between items unless the
	// list node carries its own tight attribute.
	TightLists bool `json:"tightLists,omitempty" yaml:"tightLists,omitempty"`
	// BulletMarker is used for bullet lists without a bullet attribute.
	BulletMarker     string           `json:"bulletMarker,omitempty" yaml:"bulletMarker,omitempty"`
	HardBreakStyle   HardBreakStyle   `json:"hardBreakStyle,omitempty" yaml:"hardBreakStyle,omitempty"`
	OrderedListStyle OrderedListStyle `json:"orderedListStyle,omitempty" yaml:"orderedListStyle,omitempty"`
	// UnknownNodes and UnknownMarks control node and mark types without a
	// registered serializer.
	UnknownNodes   model.UnknownPolicy `json:"unknownNodes,omitempty" yaml:"unknownNodes,omitempty"`
	UnknownMarks   model.UnknownPolicy `json:"unknownMarks,omitempty" yaml:"unknownMarks,omitempty"`
	ResolutionMode ResolutionMode      `json:"resolutionMode,omitempty" yaml:"resolutionMode,omitempty"`
	LinkHook       LinkRenderHook      `json:"-" yaml:"-"`
}

func (c Config) applyDefaults() Config {
	if c.BulletMarker == "" {
		c.BulletMarker = "*"
	}
	if c.HardBreakStyle == "" {
		c.HardBreakStyle = HardBreakBackslash
	}
	if c.OrderedListStyle == "" {
		c.OrderedListStyle = OrderedIncremental
	}
	if c.UnknownNodes == "" {
		c.UnknownNodes = model.UnknownError
	}
	if c.UnknownMarks == "" {
		c.UnknownMarks = model.UnknownError
	}
	if c.ResolutionMode == "" {
		c.ResolutionMode = ResolutionBestEffort
	}
	return c
}

func (c Config) clone() Config {
	cloned := c
	cloned.LinkHook = c.LinkHook
	return cloned
}

// Validate checks that config values are valid.
func (c Config) Validate() error {
	switch c.BulletMarker {
	case "*", "-", "+":
	default:
		return fmt.Errorf("invalid bulletMarker %q", c.BulletMarker)
	}
	if c.HardBreakStyle != HardBreakBackslash && c.HardBreakStyle != HardBreakSpaces {
		return fmt.Errorf("invalid hardBreakStyle %q", c.HardBreakStyle)
	}
	if c.OrderedListStyle != OrderedIncremental && c.OrderedListStyle != OrderedLazy {
		return fmt.Errorf("invalid orderedListStyle %q", c.OrderedListStyle)
	}
	if !validPolicy(c.UnknownNodes) {
		return fmt.Errorf("invalid unknownNodes policy %q", c.UnknownNodes)
	}
	if !validPolicy(c.UnknownMarks) {
		return fmt.Errorf("invalid unknownMarks policy %q", c.UnknownMarks)
	}
	if c.ResolutionMode != ResolutionBestEffort && c.ResolutionMode != ResolutionStrict {
		return fmt.Errorf("invalid resolutionMode %q", c.ResolutionMode)
	}
	return nil
}

func validPolicy(policy model.UnknownPolicy) bool {
	return policy == model.UnknownError || policy == model.UnknownSkip || policy == model.UnknownPlaceholder
}
