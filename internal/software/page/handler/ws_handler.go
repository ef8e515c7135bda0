package handler

import (
	"net/http"
)

// ----- Handler: GET /ws?page=<id> -----

// handleWS opens the live channel of one page. The browser must already carry its cookie
// and the page ID it got from GET /.
func (handler *PageHTTPHandler) handleWS(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	s, ctx, ok := handler.page(ctx, w, r)
	if !ok {
		return
	}
	s.Touch()

	handler.hub.Serve(w, r.WithContext(ctx), s.ID, s.HandleFrame)

	// the page is gone unless it reconnects
	handler.registry.Release(ctx, s.ID)
}
