// Package pages holds the compiled-in default content of every editable page.
package pages

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/debemdeboas/redux-content/internal/model"
)

//go:embed defaults/*.yaml
var defaultsFS embed.FS

// Registry is a read-only table of page defaults. It is safe for concurrent
// use because it is never mutated after construction.
type Registry struct {
	pages map[model.PageID]model.PageDefaultConfig
	ids   []string
}

// NewRegistry builds a registry from configs, validating every default.
func NewRegistry(configs ...model.PageDefaultConfig) (*Registry, error) {
	r := &Registry{pages: make(map[model.PageID]model.PageDefaultConfig, len(configs))}

	for _, c := range configs {
		if c.PageID == "" {
			return nil, fmt.Errorf("page default without pageId: %w", model.ErrInvalidArgument)
		}
		if _, dup := r.pages[c.PageID]; dup {
			return nil, fmt.Errorf("duplicate page default %q: %w", c.PageID, model.ErrInvalidArgument)
		}
		if err := model.ValidateElements(c.EditableElements, model.ValidationOptions{}); err != nil {
			return nil, fmt.Errorf("page default %q: %w", c.PageID, err)
		}

		r.pages[c.PageID] = c.Clone()
		r.ids = append(r.ids, string(c.PageID))
	}

	sort.Strings(r.ids)
	return r, nil
}

// Load parses every *.yaml document under dir in fsys, one page per file.
func Load(fsys fs.FS, dir string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("reading page defaults: %w", err)
	}

	var configs []model.PageDefaultConfig
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".yaml" {
			continue
		}

		data, err := fs.ReadFile(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}

		var c model.PageDefaultConfig
		if err := yaml.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", entry.Name(), err)
		}
		configs = append(configs, c)
	}

	return NewRegistry(configs...)
}

// Default returns the registry compiled into the binary.
func Default() (*Registry, error) {
	return Load(defaultsFS, "defaults")
}

// Get returns a copy of the page's default config. Unknown ids are not an
// error; callers decide whether that is fatal.
func (r *Registry) Get(pageID model.PageID) (*model.PageDefaultConfig, bool) {
	c, ok := r.pages[pageID]
	if !ok {
		return nil, false
	}
	clone := c.Clone()
	return &clone, true
}

func (r *Registry) ListPageIDs() []string {
	return append([]string(nil), r.ids...)
}
