package model

import "strings"

// DefaultMaxListDepth bounds list nesting when no explicit limit is configured.
const DefaultMaxListDepth = 8

type ValidationOptions struct {
	// MaxListDepth is the deepest nesting level a list item may sit at.
	// Top-level elements are at depth 0. Zero means DefaultMaxListDepth.
	MaxListDepth int
}

func (o ValidationOptions) maxDepth() int {
	if o.MaxListDepth <= 0 {
		return DefaultMaxListDepth
	}
	return o.MaxListDepth
}

// Validate checks that an element's type and content agree, recursing into
// list items. Ids inside the element's subtree must be unique.
func Validate(el Element) error {
	return ValidateWith(el, ValidationOptions{})
}

func ValidateWith(el Element, opts ValidationOptions) error {
	return newValidator(opts).element(el, 0)
}

// ValidateElements validates a complete snapshot: every element, and id
// uniqueness across the whole tree, list items included.
func ValidateElements(elements []Element, opts ValidationOptions) error {
	v := newValidator(opts)
	for _, el := range elements {
		if err := v.element(el, 0); err != nil {
			return err
		}
	}
	return nil
}

// validator carries the ids seen so far in one snapshot.
type validator struct {
	maxDepth int
	seen     map[string]struct{}
}

func newValidator(opts ValidationOptions) *validator {
	return &validator{maxDepth: opts.maxDepth(), seen: make(map[string]struct{})}
}

func (v *validator) element(el Element, depth int) error {
	if strings.TrimSpace(el.ID) == "" {
		return &MalformedElementError{ElementID: el.ID, Field: "id", Reason: "must not be empty"}
	}
	if _, dup := v.seen[el.ID]; dup {
		return &MalformedElementError{ElementID: el.ID, Field: "id", Reason: "duplicate id"}
	}
	v.seen[el.ID] = struct{}{}

	if !el.Type.Valid() {
		return &MalformedElementError{ElementID: el.ID, Field: "type", Reason: "unknown type " + string(el.Type)}
	}
	if el.Content == nil {
		return &MalformedElementError{ElementID: el.ID, Field: "content", Reason: "missing"}
	}
	if el.Content.ElementType() != el.Type {
		return &MalformedElementError{
			ElementID: el.ID,
			Field:     "content",
			Reason:    string(el.Content.ElementType()) + " content on " + string(el.Type) + " element",
		}
	}

	switch c := el.Content.(type) {
	case ImageContent:
		if strings.TrimSpace(c.URL) == "" {
			return &MalformedElementError{ElementID: el.ID, Field: "content.url", Reason: "must not be empty"}
		}
	case VideoContent:
		if strings.TrimSpace(c.URL) == "" {
			return &MalformedElementError{ElementID: el.ID, Field: "content.url", Reason: "must not be empty"}
		}
	case ListContent:
		if len(c) > 0 && depth+1 > v.maxDepth {
			return &MalformedElementError{ElementID: el.ID, Field: "content", Reason: "list nesting too deep"}
		}
		for _, item := range c {
			if err := v.element(item, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}
