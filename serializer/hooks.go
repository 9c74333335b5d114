package serializer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rgonek/prosemirror-markdown/model"
)

// ErrUnresolved indicates that a link or image reference could not be
// resolved by a hook.
var ErrUnresolved = errors.New("unresolved link or image reference")

// ResolutionMode controls how unresolved hook results are handled.
type ResolutionMode string

const (
	// ResolutionBestEffort keeps the original destination and records a warning.
	ResolutionBestEffort ResolutionMode = "best_effort"
	// ResolutionStrict fails serialization when a hook returns ErrUnresolved.
	ResolutionStrict ResolutionMode = "strict"
)

// LinkRenderHook can rewrite link and image destinations during
// serialization.
type LinkRenderHook func(ctx context.Context, in LinkRenderInput) (LinkRenderOutput, error)

// LinkRenderInput describes a link or image being rendered.
type LinkRenderInput struct {
	// Source is "link" or "image".
	Source string
	Href   string
	Title  string
	Attrs  map[string]any
}

// LinkRenderOutput contains hook-provided link rendering data.
type LinkRenderOutput struct {
	Href  string
	Title string
	// TextOnly drops the link syntax and keeps the link text (or the image
	// alt text).
	TextOnly bool
	Handled  bool
}

func (s *State) applyLinkRenderHook(nodeType string, input LinkRenderInput) (LinkRenderOutput, bool, error) {
	if s.options.LinkHook == nil {
		return LinkRenderOutput{}, false, nil
	}

	if err := s.checkContext(); err != nil {
		return LinkRenderOutput{}, false, err
	}

	output, err := s.options.LinkHook(s.ctx, input)
	if err != nil {
		if errors.Is(err, ErrUnresolved) {
			if s.options.ResolutionMode == ResolutionStrict {
				return LinkRenderOutput{}, false, fmt.Errorf("unresolved %s reference %q: %w", input.Source, input.Href, err)
			}
			s.addWarning(
				model.WarningUnresolvedReference,
				nodeType,
				fmt.Sprintf("unresolved %s reference %q; using original destination", input.Source, input.Href),
			)
			return LinkRenderOutput{}, false, nil
		}
		return LinkRenderOutput{}, false, fmt.Errorf("link hook failed: %w", err)
	}

	if !output.Handled {
		return LinkRenderOutput{}, false, nil
	}

	if err := validateLinkRenderOutput(output); err != nil {
		return LinkRenderOutput{}, false, fmt.Errorf("invalid link hook output: %w", err)
	}

	output.Href = strings.TrimSpace(output.Href)
	output.Title = strings.TrimSpace(output.Title)

	return output, true, nil
}

func validateLinkRenderOutput(output LinkRenderOutput) error {
	if output.TextOnly {
		return nil
	}
	if strings.TrimSpace(output.Href) == "" {
		return errors.New("handled link render output requires non-empty href unless textOnly is true")
	}
	return nil
}

// resolveTarget returns the destination for a link or image, running the
// link hook when one is configured.
func (s *State) resolveTarget(source, nodeType, href, title string, attrs map[string]any) (LinkRenderOutput, error) {
	fallback := LinkRenderOutput{Href: href, Title: title}
	output, handled, err := s.applyLinkRenderHook(nodeType, LinkRenderInput{
		Source: source,
		Href:   href,
		Title:  title,
		Attrs:  attrs,
	})
	if err != nil {
		return LinkRenderOutput{}, err
	}
	if !handled {
		return fallback, nil
	}
	return output, nil
}

// linkTarget resolves a link mark once per mark instance so the opening and
// closing strings agree.
func (s *State) linkTarget(mark *model.Mark) (LinkRenderOutput, error) {
	if target, ok := s.links[mark]; ok {
		return target, nil
	}
	target, err := s.resolveTarget("link", mark.Type().Name(), mark.StringAttr("href", ""), mark.StringAttr("title", ""), mark.Attrs())
	if err != nil {
		return LinkRenderOutput{}, err
	}
	if s.links == nil {
		s.links = make(map[*model.Mark]LinkRenderOutput)
	}
	s.links[mark] = target
	return target, nil
}
