package content

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/debemdeboas/redux-content/internal/model"
	"github.com/debemdeboas/redux-content/internal/repository"
)

// AuditEntry answers who changed what, when and why for one version.
type AuditEntry struct {
	Version     int            `json:"version"`
	VersionID   string         `json:"versionId"`
	AuthorID    model.AuthorID `json:"authorId"`
	Note        string         `json:"note,omitempty"`
	CreatedAt   time.Time      `json:"createdAt"`
	Published   bool           `json:"published"`
	ContentHash string         `json:"contentHash"`

	Added    []string `json:"added"`
	Removed  []string `json:"removed"`
	Modified []string `json:"modified"`
}

type Auditor struct {
	repo    repository.Repository
	timeout time.Duration
}

func NewAuditor(repo repository.Repository, timeout time.Duration) *Auditor {
	return &Auditor{repo: repo, timeout: timeout}
}

// Trail returns one entry per version, oldest first, each diffed against the
// version before it.
func (a *Auditor) Trail(ctx context.Context, pageID model.PageID) ([]AuditEntry, error) {
	if err := checkPageID(pageID); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()

	history, err := a.repo.History(ctx, pageID)
	if err != nil {
		return nil, err
	}

	trail := make([]AuditEntry, 0, len(history))
	var previous *model.ContentVersion
	for i := range history {
		v := &history[i]
		entry := AuditEntry{
			Version:     v.Version,
			VersionID:   v.ID,
			AuthorID:    v.AuthorID,
			Note:        v.Note,
			CreatedAt:   v.CreatedAt,
			Published:   v.Published,
			ContentHash: v.ContentHash,
		}

		var prevElements []model.Element
		if previous != nil {
			prevElements = previous.Elements
		}
		if previous != nil && previous.ContentHash != "" && previous.ContentHash == v.ContentHash {
			entry.Added, entry.Removed, entry.Modified = []string{}, []string{}, []string{}
		} else {
			entry.Added, entry.Removed, entry.Modified = Diff(prevElements, v.Elements)
		}

		trail = append(trail, entry)
		previous = v
	}
	return trail, nil
}

// Diff compares two snapshots slot by slot. An id whose type changed counts
// as removed and added.
func Diff(previous, next []model.Element) (added, removed, modified []string) {
	added, removed, modified = []string{}, []string{}, []string{}

	prevByID := make(map[string]model.Element, len(previous))
	for _, el := range previous {
		prevByID[el.ID] = el
	}
	nextByID := make(map[string]model.Element, len(next))
	for _, el := range next {
		nextByID[el.ID] = el
	}

	for _, el := range previous {
		if cur, ok := nextByID[el.ID]; !ok || !model.IsSameSlot(el, cur) {
			removed = append(removed, el.ID)
		}
	}

	for _, el := range next {
		old, ok := prevByID[el.ID]
		switch {
		case !ok || !model.IsSameSlot(old, el):
			added = append(added, el.ID)
		case !sameElement(old, el):
			modified = append(modified, el.ID)
		}
	}
	return added, removed, modified
}

func sameElement(a, b model.Element) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return bytes.Equal(ja, jb)
}

// History returns every stored version of the page, oldest first.
func (a *Auditor) History(ctx context.Context, pageID model.PageID) ([]model.ContentVersion, error) {
	if err := checkPageID(pageID); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()

	return a.repo.History(ctx, pageID)
}

func (a *Auditor) Version(ctx context.Context, pageID model.PageID, version int) (*model.ContentVersion, error) {
	if err := checkPageID(pageID); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, a.timeout)
	defer cancel()

	return a.repo.Get(ctx, pageID, version)
}
