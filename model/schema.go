// Package model implements the document model shared by the markdown parser
// and serializer: schemas, node types, mark types, immutable nodes and marks.
package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownType is returned when a node or mark type is not part of a schema.
var ErrUnknownType = errors.New("unknown schema type")

// AttributeSpec describes a node or mark attribute.
type AttributeSpec struct {
	Default  any
	Required bool
}

// NodeSpec describes a node type.
type NodeSpec struct {
	Name    string
	Content string
	Group   string
	Inline  bool
	Code    bool
	Attrs   map[string]AttributeSpec
}

// MarkSpec describes a mark type. Code marks wrap literal, unescaped text.
type MarkSpec struct {
	Name  string
	Code  bool
	Attrs map[string]AttributeSpec
}

// SchemaSpec declares the node and mark types of a schema. The order of
// Marks defines mark rank inside mark sets.
type SchemaSpec struct {
	Nodes   []NodeSpec
	Marks   []MarkSpec
	TopNode string
}

// Schema binds node and mark types together.
type Schema struct {
	nodes     map[string]*NodeType
	nodeOrder []*NodeType
	marks     map[string]*MarkType
	markOrder []*MarkType
	topNode   *NodeType
}

// NodeType tags Node instances. It is allocated once per Schema.
type NodeType struct {
	name    string
	schema  *Schema
	spec    NodeSpec
	groups  []string
	content *contentExpr
}

// MarkType tags Mark instances. It is allocated once per Schema.
type MarkType struct {
	name   string
	schema *Schema
	spec   MarkSpec
	rank   int
}

// NewSchema compiles a SchemaSpec.
func NewSchema(spec SchemaSpec) (*Schema, error) {
	topName := spec.TopNode
	if topName == "" {
		topName = "doc"
	}

	s := &Schema{
		nodes: make(map[string]*NodeType, len(spec.Nodes)),
		marks: make(map[string]*MarkType, len(spec.Marks)),
	}

	for _, nodeSpec := range spec.Nodes {
		if strings.TrimSpace(nodeSpec.Name) == "" {
			return nil, errors.New("node spec with empty name")
		}
		if _, exists := s.nodes[nodeSpec.Name]; exists {
			return nil, fmt.Errorf("duplicate node type %q", nodeSpec.Name)
		}
		nt := &NodeType{
			name:   nodeSpec.Name,
			schema: s,
			spec:   nodeSpec,
			groups: strings.Fields(nodeSpec.Group),
		}
		s.nodes[nt.name] = nt
		s.nodeOrder = append(s.nodeOrder, nt)
	}

	for rank, markSpec := range spec.Marks {
		if strings.TrimSpace(markSpec.Name) == "" {
			return nil, errors.New("mark spec with empty name")
		}
		if _, exists := s.marks[markSpec.Name]; exists {
			return nil, fmt.Errorf("duplicate mark type %q", markSpec.Name)
		}
		mt := &MarkType{
			name:   markSpec.Name,
			schema: s,
			spec:   markSpec,
			rank:   rank,
		}
		s.marks[mt.name] = mt
		s.markOrder = append(s.markOrder, mt)
	}

	top, ok := s.nodes[topName]
	if !ok {
		return nil, fmt.Errorf("schema is missing its top node type %q", topName)
	}
	s.topNode = top

	text, ok := s.nodes["text"]
	if !ok {
		return nil, errors.New("every schema needs a \"text\" type")
	}
	if len(text.spec.Attrs) > 0 {
		return nil, errors.New("the text node type should not have attributes")
	}

	for _, nt := range s.nodeOrder {
		expr, err := parseContentExpr(s, nt.spec.Content)
		if err != nil {
			return nil, fmt.Errorf("node type %q: %w", nt.name, err)
		}
		nt.content = expr
	}

	return s, nil
}

// TopNodeType returns the type of the document root.
func (s *Schema) TopNodeType() *NodeType {
	return s.topNode
}

// NodeType returns the node type with the given name.
func (s *Schema) NodeType(name string) (*NodeType, error) {
	nt, ok := s.nodes[name]
	if !ok {
		return nil, fmt.Errorf("node type %q: %w", name, ErrUnknownType)
	}
	return nt, nil
}

// MarkType returns the mark type with the given name.
func (s *Schema) MarkType(name string) (*MarkType, error) {
	mt, ok := s.marks[name]
	if !ok {
		return nil, fmt.Errorf("mark type %q: %w", name, ErrUnknownType)
	}
	return mt, nil
}

// NodeTypes returns the node types in declaration order.
func (s *Schema) NodeTypes() []*NodeType {
	return append([]*NodeType(nil), s.nodeOrder...)
}

// MarkTypes returns the mark types in rank order.
func (s *Schema) MarkTypes() []*MarkType {
	return append([]*MarkType(nil), s.markOrder...)
}

// Text creates a text node. Empty text is not allowed.
func (s *Schema) Text(text string, marks []*Mark) (*Node, error) {
	if text == "" {
		return nil, errors.New("empty text nodes are not allowed")
	}
	return &Node{
		typ:   s.nodes["text"],
		text:  text,
		marks: cloneMarkSet(marks),
	}, nil
}

// Node creates a node of the named type with checked content.
func (s *Schema) Node(typeName string, attrs map[string]any, content []*Node, marks []*Mark) (*Node, error) {
	nt, err := s.NodeType(typeName)
	if err != nil {
		return nil, err
	}
	return nt.CreateChecked(attrs, content, marks)
}

// Mark creates a mark of the named type.
func (s *Schema) Mark(typeName string, attrs map[string]any) (*Mark, error) {
	mt, err := s.MarkType(typeName)
	if err != nil {
		return nil, err
	}
	return mt.Create(attrs)
}

func (s *Schema) typesNamed(name string) []*NodeType {
	if nt, ok := s.nodes[name]; ok {
		return []*NodeType{nt}
	}

	var result []*NodeType
	for _, nt := range s.nodeOrder {
		if nt.InGroup(name) {
			result = append(result, nt)
		}
	}
	return result
}

// Name returns the node type name.
func (nt *NodeType) Name() string { return nt.name }

// Schema returns the schema the type belongs to.
func (nt *NodeType) Schema() *Schema { return nt.schema }

// Spec returns the spec the type was built from.
func (nt *NodeType) Spec() NodeSpec { return nt.spec }

// IsText reports whether this is the text node type.
func (nt *NodeType) IsText() bool { return nt.name == "text" }

// IsInline reports whether nodes of this type are inline.
func (nt *NodeType) IsInline() bool { return nt.spec.Inline || nt.IsText() }

// IsBlock reports whether nodes of this type are blocks.
func (nt *NodeType) IsBlock() bool { return !nt.IsInline() }

// IsLeaf reports whether the type allows no content.
func (nt *NodeType) IsLeaf() bool { return nt.content.empty() }

// IsTextblock reports whether the type is a block with inline content.
func (nt *NodeType) IsTextblock() bool {
	return nt.IsBlock() && nt.content.inlineContent()
}

// IsCode reports whether the type holds literal code text.
func (nt *NodeType) IsCode() bool { return nt.spec.Code }

// InGroup reports whether the type belongs to the named group.
func (nt *NodeType) InGroup(group string) bool {
	for _, g := range nt.groups {
		if g == group {
			return true
		}
	}
	return false
}

// HasRequiredAttrs reports whether the type declares required attributes.
func (nt *NodeType) HasRequiredAttrs() bool {
	for _, attr := range nt.spec.Attrs {
		if attr.Required {
			return true
		}
	}
	return false
}

// Create builds a node without validating its content.
func (nt *NodeType) Create(attrs map[string]any, content []*Node, marks []*Mark) (*Node, error) {
	if nt.IsText() {
		return nil, errors.New("NodeType.Create can't construct text nodes")
	}
	computed, err := computeAttrs(nt.name, nt.spec.Attrs, attrs)
	if err != nil {
		return nil, err
	}
	return &Node{
		typ:     nt,
		attrs:   computed,
		content: append([]*Node(nil), content...),
		marks:   cloneMarkSet(marks),
	}, nil
}

// CreateChecked is like Create but fails when the content does not match
// the type's content expression.
func (nt *NodeType) CreateChecked(attrs map[string]any, content []*Node, marks []*Mark) (*Node, error) {
	if !nt.ValidContent(content) {
		return nil, fmt.Errorf("invalid content for node %s", nt.name)
	}
	return nt.Create(attrs, content, marks)
}

// CreateAndFill is like Create but inserts default nodes where the content
// expression requires them. It returns nil and no error when the content
// cannot be completed.
func (nt *NodeType) CreateAndFill(attrs map[string]any, content []*Node, marks []*Mark) (*Node, error) {
	if nt.IsText() {
		return nil, errors.New("NodeType.CreateAndFill can't construct text nodes")
	}
	computed, err := computeAttrs(nt.name, nt.spec.Attrs, attrs)
	if err != nil {
		return nil, err
	}
	filled, ok := nt.content.fill(content, 0)
	if !ok {
		return nil, nil
	}
	return &Node{
		typ:     nt,
		attrs:   computed,
		content: filled,
		marks:   cloneMarkSet(marks),
	}, nil
}

// ValidContent reports whether content matches the type's content expression.
func (nt *NodeType) ValidContent(content []*Node) bool {
	return nt.content.matches(content)
}

// Name returns the mark type name.
func (mt *MarkType) Name() string { return mt.name }

// Spec returns the spec the type was built from.
func (mt *MarkType) Spec() MarkSpec { return mt.spec }

// IsCode reports whether the mark wraps literal code text.
func (mt *MarkType) IsCode() bool { return mt.spec.Code }

// Create builds a mark of this type.
func (mt *MarkType) Create(attrs map[string]any) (*Mark, error) {
	computed, err := computeAttrs(mt.name, mt.spec.Attrs, attrs)
	if err != nil {
		return nil, err
	}
	return &Mark{typ: mt, attrs: computed}, nil
}

// RemoveFromSet removes every mark of this type from set.
func (mt *MarkType) RemoveFromSet(set []*Mark) []*Mark {
	var result []*Mark
	for _, mark := range set {
		if mark.typ != mt {
			result = append(result, mark)
		}
	}
	return result
}

// IsInSet returns the first mark of this type in set, if any.
func (mt *MarkType) IsInSet(set []*Mark) *Mark {
	for _, mark := range set {
		if mark.typ == mt {
			return mark
		}
	}
	return nil
}

func computeAttrs(owner string, specs map[string]AttributeSpec, given map[string]any) (map[string]any, error) {
	if len(specs) == 0 {
		return nil, nil
	}

	built := make(map[string]any, len(specs))
	for name, spec := range specs {
		value, ok := given[name]
		if !ok {
			if spec.Required {
				return nil, fmt.Errorf("no value supplied for attribute %s of %s", name, owner)
			}
			value = spec.Default
		}
		built[name] = value
	}
	return built, nil
}
