// Package basic defines the CommonMark document schema used by the default
// markdown parser and serializer.
package basic

import (
	"sync"

	"github.com/rgonek/prosemirror-markdown/model"
)

// Nodes are the node specs of the schema, in declaration order.
var Nodes = []model.NodeSpec{
	// The top level document node.
	{Name: "doc", Content: "block+"},

	{Name: "paragraph", Content: "inline*", Group: "block"},

	{Name: "blockquote", Content: "block+", Group: "block"},

	{Name: "horizontal_rule", Group: "block", Attrs: map[string]model.AttributeSpec{
		"markup": {Default: nil},
	}},

	// level holds 1 to 6.
	{Name: "heading", Content: "inline*", Group: "block", Attrs: map[string]model.AttributeSpec{
		"level": {Default: 1},
	}},

	// params is the fence info string; empty means an indented code block.
	{Name: "code_block", Content: "text*", Group: "block", Code: true, Attrs: map[string]model.AttributeSpec{
		"params": {Default: ""},
	}},

	// tight is nil when unknown, letting the serializer option decide.
	{Name: "ordered_list", Content: "list_item+", Group: "block", Attrs: map[string]model.AttributeSpec{
		"order": {Default: 1},
		"tight": {Default: nil},
	}},

	{Name: "bullet_list", Content: "list_item+", Group: "block", Attrs: map[string]model.AttributeSpec{
		"tight":  {Default: nil},
		"bullet": {Default: nil},
	}},

	{Name: "list_item", Content: "paragraph block*"},

	{Name: "text", Group: "inline"},

	{Name: "image", Inline: true, Group: "inline", Attrs: map[string]model.AttributeSpec{
		"src":   {Required: true},
		"alt":   {Default: nil},
		"title": {Default: nil},
	}},

	{Name: "hard_break", Inline: true, Group: "inline"},
}

// Marks are the mark specs of the schema, in rank order.
var Marks = []model.MarkSpec{
	{Name: "em"},
	{Name: "strong"},
	{Name: "link", Attrs: map[string]model.AttributeSpec{
		"href":  {Required: true},
		"title": {Default: nil},
	}},
	{Name: "code", Code: true},
}

var (
	schemaOnce sync.Once
	schema     *model.Schema
)

// Schema returns the shared CommonMark schema.
func Schema() *model.Schema {
	schemaOnce.Do(func() {
		var err error
		schema, err = model.NewSchema(model.SchemaSpec{
			Nodes:   Nodes,
			Marks:   Marks,
			TopNode: "doc",
		})
		if err != nil {
			panic(err)
		}
	})
	return schema
}
