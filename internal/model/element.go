// Package model defines the editable page content types shared by the store,
// the resolver and the publishing workflow.
package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

type ElementType string

const (
	TypeText  ElementType = "text"
	TypeImage ElementType = "image"
	TypeVideo ElementType = "video"
	TypeList  ElementType = "list"
)

func (t ElementType) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeVideo, TypeList:
		return true
	}
	return false
}

// Content is the payload of an Element. The concrete type always matches the
// element's Type.
type Content interface {
	ElementType() ElementType
}

type TextContent string

type ImageContent struct {
	URL string `json:"url" yaml:"url"`
	Alt string `json:"alt" yaml:"alt"`
}

type VideoContent struct {
	URL      string `json:"url" yaml:"url"`
	Autoplay bool   `json:"autoplay" yaml:"autoplay"`
	Loop     bool   `json:"loop" yaml:"loop"`
	Muted    bool   `json:"muted" yaml:"muted"`
}

// ListContent holds an ordered, repeated set of nested elements (a gallery,
// a lookbook row, ...).
type ListContent []Element

func (TextContent) ElementType() ElementType  { return TypeText }
func (ImageContent) ElementType() ElementType { return TypeImage }
func (VideoContent) ElementType() ElementType { return TypeVideo }
func (ListContent) ElementType() ElementType  { return TypeList }

type Metadata struct {
	Label     string `json:"label,omitempty" yaml:"label,omitempty"`
	SectionID string `json:"sectionId,omitempty" yaml:"sectionId,omitempty"`
}

// Element is one editable region of a page.
type Element struct {
	ID       string
	Type     ElementType
	Content  Content
	Styles   map[string]string
	Metadata Metadata
}

// IsSameSlot reports whether a and b address the same editable region.
func IsSameSlot(a, b Element) bool {
	return a.ID == b.ID && a.Type == b.Type
}

func (e Element) Clone() Element {
	c := e
	if e.Styles != nil {
		c.Styles = make(map[string]string, len(e.Styles))
		for k, v := range e.Styles {
			c.Styles[k] = v
		}
	}
	if list, ok := e.Content.(ListContent); ok {
		c.Content = ListContent(CloneElements(list))
	}
	return c
}

func CloneElements(elements []Element) []Element {
	if elements == nil {
		return nil
	}
	out := make([]Element, len(elements))
	for i, el := range elements {
		out[i] = el.Clone()
	}
	return out
}

type elementWire struct {
	ID       string            `json:"id"`
	Type     ElementType       `json:"type"`
	Content  json.RawMessage   `json:"content"`
	Styles   map[string]string `json:"styles,omitempty"`
	Metadata Metadata          `json:"metadata"`
}

func (e Element) MarshalJSON() ([]byte, error) {
	content := json.RawMessage("null")
	if e.Content != nil {
		raw, err := json.Marshal(e.Content)
		if err != nil {
			return nil, err
		}
		content = raw
	}

	return json.Marshal(elementWire{
		ID:       e.ID,
		Type:     e.Type,
		Content:  content,
		Styles:   e.Styles,
		Metadata: e.Metadata,
	})
}

func (e *Element) UnmarshalJSON(data []byte) error {
	var w elementWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	e.ID = w.ID
	e.Type = w.Type
	e.Styles = w.Styles
	e.Metadata = w.Metadata
	e.Content = nil

	if len(w.Content) == 0 || string(w.Content) == "null" {
		return nil
	}

	var err error
	switch w.Type {
	case TypeText:
		var c TextContent
		err = json.Unmarshal(w.Content, &c)
		e.Content = c
	case TypeImage:
		var c ImageContent
		err = json.Unmarshal(w.Content, &c)
		e.Content = c
	case TypeVideo:
		var c VideoContent
		err = json.Unmarshal(w.Content, &c)
		e.Content = c
	case TypeList:
		var c ListContent
		err = json.Unmarshal(w.Content, &c)
		e.Content = c
	default:
		// Unknown types are rejected by Validate with the offending id.
		return nil
	}
	if err != nil {
		e.Content = nil
		var malformed *MalformedElementError
		if errors.As(err, &malformed) {
			return err
		}
		return &MalformedElementError{ElementID: w.ID, Field: "content", Reason: err.Error()}
	}
	return nil
}

func (e *Element) UnmarshalYAML(value *yaml.Node) error {
	var w struct {
		ID       string            `yaml:"id"`
		Type     ElementType       `yaml:"type"`
		Content  yaml.Node         `yaml:"content"`
		Styles   map[string]string `yaml:"styles"`
		Metadata Metadata          `yaml:"metadata"`
	}
	if err := value.Decode(&w); err != nil {
		return err
	}

	e.ID = w.ID
	e.Type = w.Type
	e.Styles = w.Styles
	e.Metadata = w.Metadata
	e.Content = nil

	if w.Content.Kind == 0 {
		return nil
	}

	var err error
	switch w.Type {
	case TypeText:
		var c string
		err = w.Content.Decode(&c)
		e.Content = TextContent(c)
	case TypeImage:
		var c ImageContent
		err = w.Content.Decode(&c)
		e.Content = c
	case TypeVideo:
		var c VideoContent
		err = w.Content.Decode(&c)
		e.Content = c
	case TypeList:
		var c []Element
		err = w.Content.Decode(&c)
		e.Content = ListContent(c)
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("element %q: %w", w.ID, err)
	}
	return nil
}
