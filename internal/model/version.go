package model

import (
	"encoding/json"
	"time"

	"github.com/debemdeboas/redux-content/internal/util"
)

type PageID string

type AuthorID string

// ContentVersion is one immutable, complete snapshot of a page. Only the
// store may clear Published when a later version is published.
type ContentVersion struct {
	ID        string    `json:"id"`
	PageID    PageID    `json:"pageId"`
	Version   int       `json:"version"`
	Elements  []Element `json:"elements"`
	AuthorID  AuthorID  `json:"authorId"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Published bool      `json:"published"`

	// SHA-256 of the canonical element encoding.
	ContentHash string `json:"contentHash"`
}

func (v ContentVersion) Clone() ContentVersion {
	c := v
	c.Elements = CloneElements(v.Elements)
	return c
}

// EncodeElements returns the canonical JSON encoding of a snapshot. The
// encoding is deterministic, so equal snapshots hash equally.
func EncodeElements(elements []Element) ([]byte, error) {
	if elements == nil {
		elements = []Element{}
	}
	return json.Marshal(elements)
}

func DecodeElements(data []byte) ([]Element, error) {
	var elements []Element
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, err
	}
	if elements == nil {
		elements = []Element{}
	}
	return elements, nil
}

func HashElements(elements []Element) (string, error) {
	data, err := EncodeElements(elements)
	if err != nil {
		return "", err
	}
	return util.ContentHash(data), nil
}

// PageState is derived from a page's history, never stored.
type PageState string

const (
	StateEmpty              PageState = "empty"
	StateDraftOnly          PageState = "draft_only"
	StatePublished          PageState = "published"
	StatePublishedWithDraft PageState = "published_with_draft"
)

// DeriveState computes the state from the newest version of any kind and the
// newest published version. Either may be nil.
func DeriveState(latest, latestPublished *ContentVersion) PageState {
	switch {
	case latest == nil:
		return StateEmpty
	case latestPublished == nil:
		return StateDraftOnly
	case latest.Version > latestPublished.Version:
		return StatePublishedWithDraft
	default:
		return StatePublished
	}
}

type ChangeKind string

const (
	ChangeDraftSaved ChangeKind = "draft_saved"
	ChangePublished  ChangeKind = "published"
	ChangeReverted   ChangeKind = "reverted"
)

// PageChange is emitted after a successful write.
type PageChange struct {
	PageID    PageID     `json:"pageId"`
	Version   int        `json:"version"`
	Kind      ChangeKind `json:"kind"`
	AuthorID  AuthorID   `json:"authorId"`
	Published bool       `json:"published"`
	At        time.Time  `json:"at"`
}
