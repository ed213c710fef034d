package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/hlog"

	"github.com/debemdeboas/redux-content/internal/content"
	"github.com/debemdeboas/redux-content/internal/model"
	"github.com/debemdeboas/redux-content/internal/routes"
)

type saveRequest struct {
	Elements []model.Element `json:"elements"`
	Note     string          `json:"note"`
}

type revertRequest struct {
	Version int `json:"version"`
}

func pageIDFrom(r *http.Request) model.PageID {
	return model.PageID(mux.Vars(r)[routes.VarPageID])
}

func (h *Handler) listPages(w http.ResponseWriter, r *http.Request) {
	ids, err := h.resolver.PageIDs(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string][]string{"pages": ids})
}

func (h *Handler) resolvePage(w http.ResponseWriter, r *http.Request) {
	opts := content.ResolveOptions{}
	if raw := r.URL.Query().Get("drafts"); raw != "" {
		drafts, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, r, fmt.Errorf("drafts must be a boolean: %w", model.ErrInvalidArgument))
			return
		}
		opts.IncludeDrafts = drafts
	}

	page, err := h.resolver.Resolve(r.Context(), pageIDFrom(r), opts)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, page)
}

func (h *Handler) pageState(w http.ResponseWriter, r *http.Request) {
	pageID := pageIDFrom(r)
	state, err := h.workflow.State(r.Context(), pageID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"pageId": pageID, "state": state})
}

func (h *Handler) listVersions(w http.ResponseWriter, r *http.Request) {
	history, err := h.auditor.History(r.Context(), pageIDFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"versions": history})
}

func (h *Handler) getVersion(w http.ResponseWriter, r *http.Request) {
	version, err := strconv.Atoi(mux.Vars(r)[routes.VarVersion])
	if err != nil {
		writeError(w, r, fmt.Errorf("version must be a number: %w", model.ErrInvalidArgument))
		return
	}

	v, err := h.auditor.Version(r.Context(), pageIDFrom(r), version)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	trail, err := h.auditor.Trail(r.Context(), pageIDFrom(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]any{"entries": trail})
}

func (h *Handler) saveDraft(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, false)
}

func (h *Handler) publish(w http.ResponseWriter, r *http.Request) {
	h.save(w, r, true)
}

func (h *Handler) save(w http.ResponseWriter, r *http.Request, publish bool) {
	author, err := h.authors.EnforceAuthor(w, r)
	if err != nil {
		return
	}

	var req saveRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	pageID := pageIDFrom(r)
	var v *model.ContentVersion
	if publish {
		v, err = h.workflow.SaveAndPublish(r.Context(), pageID, req.Elements, author, req.Note)
	} else {
		v, err = h.workflow.SaveDraft(r.Context(), pageID, req.Elements, author, req.Note)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	hlog.FromRequest(r).Info().
		Str("page_id", string(pageID)).
		Int("version", v.Version).
		Str("author_id", string(author)).
		Bool("published", v.Published).
		Msg("Saved page version")

	writeJSON(w, r, http.StatusCreated, v)
}

func (h *Handler) revert(w http.ResponseWriter, r *http.Request) {
	author, err := h.authors.EnforceAuthor(w, r)
	if err != nil {
		return
	}

	var req revertRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	v, err := h.workflow.Revert(r.Context(), pageIDFrom(r), req.Version, author)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, v)
}

// decodeBody reads a JSON body. Element content of the wrong shape comes back
// as a malformed element error; anything else unreadable is an invalid
// argument.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var malformed *model.MalformedElementError
		if errors.As(err, &malformed) {
			return malformed
		}
		return fmt.Errorf("invalid request body: %v: %w", err, model.ErrInvalidArgument)
	}
	return nil
}
