package api

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/debemdeboas/redux-content/internal/config"
	"github.com/debemdeboas/redux-content/internal/sse"
)

// events streams the page's changes to an editor preview.
func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	pageID := pageIDFrom(r)
	l := hlog.FromRequest(r)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set(config.HCType, config.CTypeEventStream)
	w.Header().Set(config.HCacheControl, "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	client := sse.NewClient(pageID)
	h.clients.Add(client)
	l.Debug().Str("page_id", string(pageID)).Msg("SSE client connected")

	defer func() {
		h.clients.Delete(client)
		l.Debug().Str("page_id", string(pageID)).Msg("SSE client disconnected")
	}()

	fmt.Fprintf(w, "event: connected\ndata: %s\n\n", pageID)
	flusher.Flush()

	notify := r.Context().Done()
	for {
		select {
		case msg, ok := <-client.Msg:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", msg)
			flusher.Flush()
		case <-notify:
			return
		}
	}
}
