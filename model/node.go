package model

import (
	"fmt"
	"strings"
)

// Node is an immutable element of a document tree. Container nodes hold
// children, text nodes hold literal text, inline nodes carry marks.
type Node struct {
	typ     *NodeType
	attrs   map[string]any
	content []*Node
	text    string
	marks   []*Mark
}

// Type returns the node type.
func (n *Node) Type() *NodeType { return n.typ }

// Attrs returns a copy of the node attributes.
func (n *Node) Attrs() map[string]any { return cloneAttrs(n.attrs) }

// Attr returns a single attribute value.
func (n *Node) Attr(name string) (any, bool) {
	value, ok := n.attrs[name]
	return value, ok
}

// StringAttr returns a string attribute or fallback when missing or not a string.
func (n *Node) StringAttr(name, fallback string) string {
	if value, ok := n.attrs[name].(string); ok {
		return value
	}
	return fallback
}

// IntAttr returns an integer attribute or fallback. JSON numbers are accepted.
func (n *Node) IntAttr(name string, fallback int) int {
	switch value := n.attrs[name].(type) {
	case int:
		return value
	case int64:
		return int(value)
	case float64:
		return int(value)
	default:
		return fallback
	}
}

// Text returns the literal text of a text node.
func (n *Node) Text() string { return n.text }

// Marks returns a copy of the node's mark set.
func (n *Node) Marks() []*Mark { return cloneMarkSet(n.marks) }

// IsText reports whether the node is a text node.
func (n *Node) IsText() bool { return n.typ.IsText() }

// IsInline reports whether the node is inline.
func (n *Node) IsInline() bool { return n.typ.IsInline() }

// IsBlock reports whether the node is a block.
func (n *Node) IsBlock() bool { return n.typ.IsBlock() }

// ChildCount returns the number of children.
func (n *Node) ChildCount() int { return len(n.content) }

// Child returns the child at index.
func (n *Node) Child(index int) *Node { return n.content[index] }

// Children returns a copy of the child list.
func (n *Node) Children() []*Node { return append([]*Node(nil), n.content...) }

// ForEach calls fn for every child in order.
func (n *Node) ForEach(fn func(child *Node, index int)) {
	for i, child := range n.content {
		fn(child, i)
	}
}

// TextContent concatenates the text of all descendant text nodes.
func (n *Node) TextContent() string {
	if n.IsText() {
		return n.text
	}
	var sb strings.Builder
	for _, child := range n.content {
		sb.WriteString(child.TextContent())
	}
	return sb.String()
}

// Depth returns the nesting depth of the subtree, counting this node as 1.
func (n *Node) Depth() int {
	deepest := 0
	for _, child := range n.content {
		if d := child.Depth(); d > deepest {
			deepest = d
		}
	}
	return deepest + 1
}

// Mark returns a copy of the node with the given mark set.
func (n *Node) Mark(marks []*Mark) *Node {
	cloned := *n
	cloned.marks = cloneMarkSet(marks)
	return &cloned
}

// WithText returns a copy of a text node with different text.
func (n *Node) WithText(text string) *Node {
	cloned := *n
	cloned.text = text
	return &cloned
}

// SameMarkup reports whether other has the same type, attributes and marks.
func (n *Node) SameMarkup(other *Node) bool {
	return n.typ == other.typ && attrsEqual(n.attrs, other.attrs) && SameMarkSet(n.marks, other.marks)
}

// Eq reports whether two nodes are structurally equal.
func (n *Node) Eq(other *Node) bool {
	if n == other {
		return true
	}
	if other == nil || !n.SameMarkup(other) || n.text != other.text || len(n.content) != len(other.content) {
		return false
	}
	for i := range n.content {
		if !n.content[i].Eq(other.content[i]) {
			return false
		}
	}
	return true
}

// Check validates the subtree against the schema content expressions.
func (n *Node) Check() error {
	if n.IsText() {
		if n.text == "" {
			return fmt.Errorf("empty text node")
		}
		return nil
	}
	if !n.typ.ValidContent(n.content) {
		return fmt.Errorf("invalid content for node %s", n.typ.name)
	}
	for _, child := range n.content {
		if err := child.Check(); err != nil {
			return err
		}
	}
	return nil
}

// String renders a compact debug representation such as doc(paragraph("hi")).
func (n *Node) String() string {
	if n.IsText() {
		text := fmt.Sprintf("%q", n.text)
		for i := len(n.marks) - 1; i >= 0; i-- {
			text = n.marks[i].typ.name + "(" + text + ")"
		}
		return text
	}

	name := n.typ.name
	if len(n.content) > 0 {
		parts := make([]string, 0, len(n.content))
		for _, child := range n.content {
			parts = append(parts, child.String())
		}
		name += "(" + strings.Join(parts, ", ") + ")"
	}
	for i := len(n.marks) - 1; i >= 0; i-- {
		name = n.marks[i].typ.name + "(" + name + ")"
	}
	return name
}

func cloneAttrs(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for key, value := range src {
		dst[key] = value
	}
	return dst
}
