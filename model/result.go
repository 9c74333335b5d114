package model

// WarningType categorizes conversion warnings.
type WarningType string

const (
	WarningUnknownToken        WarningType = "unknown_token"
	WarningUnknownNode         WarningType = "unknown_node"
	WarningUnknownMark         WarningType = "unknown_mark"
	WarningDroppedNode         WarningType = "dropped_node"
	WarningUnresolvedReference WarningType = "unresolved_reference"
)

// Warning represents a non-fatal issue encountered during conversion.
type Warning struct {
	Type     WarningType `json:"type"`
	NodeType string      `json:"nodeType,omitempty"`
	Message  string      `json:"message"`
}

// UnknownPolicy controls behavior for tokens, nodes or marks that have no
// registered handler.
type UnknownPolicy string

const (
	UnknownError       UnknownPolicy = "error"
	UnknownSkip        UnknownPolicy = "skip"
	UnknownPlaceholder UnknownPolicy = "placeholder"
)
