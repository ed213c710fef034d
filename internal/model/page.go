package model

type Section struct {
	ID    string `json:"id" yaml:"id"`
	Label string `json:"label" yaml:"label"`
}

// PageDefaultConfig is the compiled-in bootstrap content of a page that has
// never been saved.
type PageDefaultConfig struct {
	PageID           PageID    `json:"pageId" yaml:"pageId"`
	PageName         string    `json:"pageName" yaml:"pageName"`
	PreviewURL       string    `json:"previewUrl" yaml:"previewUrl"`
	Sections         []Section `json:"sections" yaml:"sections"`
	EditableElements []Element `json:"editableElements" yaml:"editableElements"`
}

func (c PageDefaultConfig) Clone() PageDefaultConfig {
	out := c
	if c.Sections != nil {
		out.Sections = append([]Section(nil), c.Sections...)
	}
	out.EditableElements = CloneElements(c.EditableElements)
	return out
}
