package content

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/debemdeboas/redux-content/internal/model"
	"github.com/debemdeboas/redux-content/internal/pages"
	"github.com/debemdeboas/redux-content/internal/repository"
)

type ResolveOptions struct {
	// IncludeDrafts resolves the newest version of any kind instead of the
	// newest published one. Used by editor previews.
	IncludeDrafts bool
}

type VersionInfo struct {
	Version   int            `json:"version"`
	AuthorID  model.AuthorID `json:"authorId"`
	Note      string         `json:"note,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	Published bool           `json:"published"`
}

type PageInfo struct {
	PageName   string          `json:"pageName"`
	PreviewURL string          `json:"previewUrl"`
	Sections   []model.Section `json:"sections"`
}

// ResolvedPage is the effective element sequence for one page.
type ResolvedPage struct {
	PageID   model.PageID    `json:"pageId"`
	Elements []model.Element `json:"elements"`

	// IsDefault is set when nothing has been saved for the page and the
	// elements come from the registered default configuration.
	IsDefault bool `json:"isDefault"`

	// Version is nil for defaults.
	Version *VersionInfo `json:"version,omitempty"`

	// Page is nil for pages without a registered default.
	Page *PageInfo `json:"page,omitempty"`
}

type Resolver struct {
	repo     repository.Repository
	registry *pages.Registry
	timeout  time.Duration
}

func NewResolver(repo repository.Repository, registry *pages.Registry, timeout time.Duration) *Resolver {
	return &Resolver{repo: repo, registry: registry, timeout: timeout}
}

// Resolve returns the latest saved snapshot as-is, or the registered default
// when the page has never been saved. Once any version exists defaults are
// never merged back in.
func (r *Resolver) Resolve(ctx context.Context, pageID model.PageID, opts ResolveOptions) (*ResolvedPage, error) {
	if err := checkPageID(pageID); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	latest, err := r.repo.Latest(ctx, pageID, repository.LatestOptions{PublishedOnly: !opts.IncludeDrafts})
	if err != nil {
		return nil, err
	}

	resolved := &ResolvedPage{PageID: pageID}

	defaults, registered := r.registry.Get(pageID)
	if registered {
		resolved.Page = &PageInfo{
			PageName:   defaults.PageName,
			PreviewURL: defaults.PreviewURL,
			Sections:   defaults.Sections,
		}
	}

	switch {
	case latest != nil:
		resolved.Elements = model.CloneElements(latest.Elements)
		resolved.Version = &VersionInfo{
			Version:   latest.Version,
			AuthorID:  latest.AuthorID,
			Note:      latest.Note,
			CreatedAt: latest.CreatedAt,
			Published: latest.Published,
		}
	case registered:
		resolved.Elements = defaults.EditableElements
		resolved.IsDefault = true
	default:
		return nil, fmt.Errorf("page %q: %w", pageID, model.ErrPageConfigNotFound)
	}

	if resolved.Elements == nil {
		resolved.Elements = []model.Element{}
	}

	contentLogger.Debug().
		Str("page_id", string(pageID)).
		Bool("include_drafts", opts.IncludeDrafts).
		Bool("is_default", resolved.IsDefault).
		Msg("Page resolved")

	return resolved, nil
}

// PageIDs lists registered pages and pages with saved history.
func (r *Resolver) PageIDs(ctx context.Context) ([]string, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	stored, err := r.repo.PageIDs(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	ids := make([]string, 0, len(stored))
	for _, id := range append(r.registry.ListPageIDs(), stored...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (p *ResolvedPage) ElementByID(id string) (model.Element, bool) {
	for _, el := range p.Elements {
		if el.ID == id {
			return el.Clone(), true
		}
	}
	return model.Element{}, false
}

func (p *ResolvedPage) ElementsBySection(sectionID string) []model.Element {
	var out []model.Element
	for _, el := range p.Elements {
		if el.Metadata.SectionID == sectionID {
			out = append(out, el.Clone())
		}
	}
	return out
}

func (p *ResolvedPage) ElementsByType(t model.ElementType) []model.Element {
	var out []model.Element
	for _, el := range p.Elements {
		if el.Type == t {
			out = append(out, el.Clone())
		}
	}
	return out
}

// Text returns the text content of id, or fallback when id is missing or is
// not a text element.
func (p *ResolvedPage) Text(id, fallback string) string {
	el, ok := p.ElementByID(id)
	if !ok {
		return fallback
	}
	if text, ok := el.Content.(model.TextContent); ok {
		return string(text)
	}
	return fallback
}

func (p *ResolvedPage) Image(id string) (model.ImageContent, bool) {
	el, ok := p.ElementByID(id)
	if !ok {
		return model.ImageContent{}, false
	}
	img, ok := el.Content.(model.ImageContent)
	return img, ok
}

func (p *ResolvedPage) Video(id string) (model.VideoContent, bool) {
	el, ok := p.ElementByID(id)
	if !ok {
		return model.VideoContent{}, false
	}
	video, ok := el.Content.(model.VideoContent)
	return video, ok
}

func (p *ResolvedPage) List(id string) ([]model.Element, bool) {
	el, ok := p.ElementByID(id)
	if !ok {
		return nil, false
	}
	list, ok := el.Content.(model.ListContent)
	return []model.Element(list), ok
}
