// Package serializer renders document trees as markdown text.
//
// A Serializer holds a table of node serializers keyed by node type name and
// a table of mark specs keyed by mark type name. Each call renders through a
// fresh State, so a Serializer is safe for concurrent use.
package serializer

import (
	"context"
	"fmt"

	"github.com/rgonek/prosemirror-markdown/model"
)

// NodeSerializerFunc renders node, the index-th child of parent.
type NodeSerializerFunc func(s *State, node, parent *model.Node, index int) error

// MarkSpec describes how a mark is written.
type MarkSpec struct {
	Open  string
	Close string
	// OpenFunc and CloseFunc take precedence over Open and Close.
	OpenFunc  func(s *State, mark *model.Mark) (string, error)
	CloseFunc func(s *State, mark *model.Mark) (string, error)
	// Mixable marks may be opened and closed in any order relative to other
	// mixable marks.
	Mixable bool
	// ExpelEnclosingWhitespace moves leading and trailing whitespace of the
	// marked text outside the mark.
	ExpelEnclosingWhitespace bool
}

// UnsupportedNodeError is returned when a node type has no serializer.
type UnsupportedNodeError struct {
	Type string
}

func (e *UnsupportedNodeError) Error() string {
	return fmt.Sprintf("node type %q not supported by markdown serializer", e.Type)
}

// UnsupportedMarkError is returned when a mark type has no spec.
type UnsupportedMarkError struct {
	Type string
}

func (e *UnsupportedMarkError) Error() string {
	return fmt.Sprintf("mark type %q not supported by markdown serializer", e.Type)
}

// Result contains the rendered markdown and any non-fatal warnings.
type Result struct {
	Markdown string
	Warnings []model.Warning
}

// Serializer renders documents as markdown.
type Serializer struct {
	nodes  map[string]NodeSerializerFunc
	marks  map[string]MarkSpec
	config Config
}

// New creates a Serializer from node serializers, mark specs and config.
func New(nodes map[string]NodeSerializerFunc, marks map[string]MarkSpec, config Config) (*Serializer, error) {
	cfg := config.applyDefaults().clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Serializer{
		nodes:  make(map[string]NodeSerializerFunc, len(nodes)),
		marks:  make(map[string]MarkSpec, len(marks)),
		config: cfg,
	}
	for name, fn := range nodes {
		if fn == nil {
			return nil, fmt.Errorf("nil serializer for node type %q", name)
		}
		s.nodes[name] = fn
	}
	for name, spec := range marks {
		s.marks[name] = spec
	}
	return s, nil
}

// Default creates a Serializer for the basic schema.
func Default(config Config) (*Serializer, error) {
	return New(MarkdownNodes(), MarkdownMarks(), config)
}

// Serialize renders doc as markdown.
func (s *Serializer) Serialize(doc *model.Node) (Result, error) {
	return s.SerializeWithContext(context.Background(), doc)
}

// SerializeWithContext renders doc as markdown, checking ctx between nodes.
func (s *Serializer) SerializeWithContext(ctx context.Context, doc *model.Node) (Result, error) {
	if doc == nil {
		return Result{}, fmt.Errorf("document is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	state := newState(ctx, s)
	if err := state.RenderContent(doc); err != nil {
		return Result{}, err
	}

	return Result{
		Markdown: state.Out(),
		Warnings: state.warnings,
	}, nil
}
