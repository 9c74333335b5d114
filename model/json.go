package model

import (
	"encoding/json"
	"fmt"
)

// jsonNode is the ProseMirror JSON representation of a node.
type jsonNode struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []jsonNode     `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []jsonMark     `json:"marks,omitempty"`
}

// jsonMark is the ProseMirror JSON representation of a mark.
type jsonMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// MarshalJSON encodes the node in ProseMirror JSON format.
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(n.toJSON())
}

// MarshalJSON encodes the mark in ProseMirror JSON format.
func (m *Mark) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.toJSON())
}

func (n *Node) toJSON() jsonNode {
	out := jsonNode{
		Type:  n.typ.name,
		Attrs: n.attrs,
		Text:  n.text,
	}
	for _, child := range n.content {
		out.Content = append(out.Content, child.toJSON())
	}
	for _, mark := range n.marks {
		out.Marks = append(out.Marks, mark.toJSON())
	}
	return out
}

func (m *Mark) toJSON() jsonMark {
	return jsonMark{Type: m.typ.name, Attrs: m.attrs}
}

// NodeFromJSON decodes a ProseMirror JSON document and validates it against
// the schema.
func (s *Schema) NodeFromJSON(data []byte) (*Node, error) {
	var raw jsonNode
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse document JSON: %w", err)
	}

	node, err := s.nodeFromJSON(raw)
	if err != nil {
		return nil, err
	}
	if err := node.Check(); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return node, nil
}

func (s *Schema) nodeFromJSON(raw jsonNode) (*Node, error) {
	marks := make([]*Mark, 0, len(raw.Marks))
	for _, rawMark := range raw.Marks {
		mark, err := s.Mark(rawMark.Type, rawMark.Attrs)
		if err != nil {
			return nil, err
		}
		marks = mark.AddToSet(marks)
	}

	if raw.Type == "text" {
		return s.Text(raw.Text, marks)
	}

	nt, err := s.NodeType(raw.Type)
	if err != nil {
		return nil, err
	}

	children := make([]*Node, 0, len(raw.Content))
	for _, rawChild := range raw.Content {
		child, err := s.nodeFromJSON(rawChild)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	return nt.Create(raw.Attrs, children, marks)
}
