package parser

import "github.com/rgonek/prosemirror-markdown/model"

// Result contains the built document and any non-fatal warnings.
type Result struct {
	Doc      *model.Node
	Warnings []model.Warning
}
