package model

// Mark is an attribute-bearing annotation on inline content. Marks are
// compared by type and attributes.
type Mark struct {
	typ   *MarkType
	attrs map[string]any
}

// Type returns the mark type.
func (m *Mark) Type() *MarkType { return m.typ }

// Attrs returns a copy of the mark attributes.
func (m *Mark) Attrs() map[string]any { return cloneAttrs(m.attrs) }

// StringAttr returns a string attribute or fallback when missing or not a string.
func (m *Mark) StringAttr(name, fallback string) string {
	if value, ok := m.attrs[name].(string); ok {
		return value
	}
	return fallback
}

// Eq reports whether two marks have the same type and attributes.
func (m *Mark) Eq(other *Mark) bool {
	if m == other {
		return true
	}
	if other == nil {
		return false
	}
	return m.typ == other.typ && attrsEqual(m.attrs, other.attrs)
}

// AddToSet returns set with this mark added at its rank position. A mark of
// the same type already in the set is replaced.
func (m *Mark) AddToSet(set []*Mark) []*Mark {
	result := make([]*Mark, 0, len(set)+1)
	placed := false
	for _, other := range set {
		if m.Eq(other) {
			return set
		}
		if other.typ == m.typ {
			continue
		}
		if !placed && other.typ.rank > m.typ.rank {
			result = append(result, m)
			placed = true
		}
		result = append(result, other)
	}
	if !placed {
		result = append(result, m)
	}
	return result
}

// RemoveFromSet returns set without this mark.
func (m *Mark) RemoveFromSet(set []*Mark) []*Mark {
	for i, other := range set {
		if m.Eq(other) {
			result := make([]*Mark, 0, len(set)-1)
			result = append(result, set[:i]...)
			return append(result, set[i+1:]...)
		}
	}
	return set
}

// IsInSet reports whether the mark is in set.
func (m *Mark) IsInSet(set []*Mark) bool {
	for _, other := range set {
		if m.Eq(other) {
			return true
		}
	}
	return false
}

// SameMarkSet reports whether two mark sets are equal.
func SameMarkSet(a, b []*Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Eq(b[i]) {
			return false
		}
	}
	return true
}

func cloneMarkSet(marks []*Mark) []*Mark {
	if len(marks) == 0 {
		return nil
	}
	return append([]*Mark(nil), marks...)
}

func attrsEqual(left, right map[string]any) bool {
	if len(left) != len(right) {
		return false
	}
	for key, leftValue := range left {
		rightValue, ok := right[key]
		if !ok || !valuesEqual(leftValue, rightValue) {
			return false
		}
	}
	return true
}

func valuesEqual(left, right any) bool {
	if leftNum, ok := numberValue(left); ok {
		rightNum, ok := numberValue(right)
		return ok && leftNum == rightNum
	}
	switch leftTyped := left.(type) {
	case map[string]any:
		rightTyped, ok := right.(map[string]any)
		return ok && attrsEqual(leftTyped, rightTyped)
	case []any:
		rightTyped, ok := right.([]any)
		if !ok || len(leftTyped) != len(rightTyped) {
			return false
		}
		for i := range leftTyped {
			if !valuesEqual(leftTyped[i], rightTyped[i]) {
				return false
			}
		}
		return true
	default:
		return left == right
	}
}

func numberValue(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case float64:
		return typed, true
	default:
		return 0, false
	}
}
