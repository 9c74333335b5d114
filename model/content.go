package model

import (
	"fmt"
	"strings"
)

const maxFillDepth = 16

type contentTerm struct {
	name  string
	types []*NodeType
	min   int
	max   int // -1 means unbounded
}

// contentExpr is a compiled content expression: a sequence of terms, each
// matching a run of children. Matching is greedy per term.
type contentExpr struct {
	source string
	terms  []contentTerm
}

func parseContentExpr(s *Schema, expr string) (*contentExpr, error) {
	compiled := &contentExpr{source: expr}

	for _, field := range strings.Fields(expr) {
		term := contentTerm{min: 1, max: 1}
		switch {
		case strings.HasSuffix(field, "+"):
			term.min, term.max = 1, -1
		case strings.HasSuffix(field, "*"):
			term.min, term.max = 0, -1
		case strings.HasSuffix(field, "?"):
			term.min, term.max = 0, 1
		}
		term.name = strings.TrimRight(field, "+*?")
		if term.name == "" {
			return nil, fmt.Errorf("invalid content expression %q", expr)
		}

		term.types = s.typesNamed(term.name)
		if len(term.types) == 0 {
			return nil, fmt.Errorf("no node type or group %q found in content expression %q", term.name, expr)
		}
		compiled.terms = append(compiled.terms, term)
	}

	return compiled, nil
}

func (e *contentExpr) empty() bool {
	return len(e.terms) == 0
}

func (e *contentExpr) inlineContent() bool {
	if len(e.terms) == 0 {
		return false
	}
	return e.terms[0].types[0].IsInline()
}

func (t contentTerm) accepts(nt *NodeType) bool {
	for _, candidate := range t.types {
		if candidate == nt {
			return true
		}
	}
	return false
}

func (t contentTerm) full(count int) bool {
	return t.max >= 0 && count >= t.max
}

func (e *contentExpr) matches(content []*Node) bool {
	idx := 0
	for _, term := range e.terms {
		count := 0
		for idx < len(content) && !term.full(count) && term.accepts(content[idx].typ) {
			idx++
			count++
		}
		if count < term.min {
			return false
		}
	}
	return idx == len(content)
}

// fill returns content completed with default nodes for every required term
// that has no matching child. It fails when children remain unmatched.
func (e *contentExpr) fill(content []*Node, depth int) ([]*Node, bool) {
	if depth > maxFillDepth {
		return nil, false
	}

	result := make([]*Node, 0, len(content)+1)
	idx := 0
	for _, term := range e.terms {
		count := 0
		for idx < len(content) && !term.full(count) && term.accepts(content[idx].typ) {
			result = append(result, content[idx])
			idx++
			count++
		}
		for count < term.min {
			filler := term.defaultNode(depth)
			if filler == nil {
				return nil, false
			}
			result = append(result, filler)
			count++
		}
	}

	if idx != len(content) {
		return nil, false
	}
	return result, true
}

func (t contentTerm) defaultNode(depth int) *Node {
	for _, nt := range t.types {
		if nt.IsText() || nt.HasRequiredAttrs() {
			continue
		}
		filled, ok := nt.content.fill(nil, depth+1)
		if !ok {
			continue
		}
		attrs, err := computeAttrs(nt.name, nt.spec.Attrs, nil)
		if err != nil {
			continue
		}
		return &Node{typ: nt, attrs: attrs, content: filled}
	}
	return nil
}
