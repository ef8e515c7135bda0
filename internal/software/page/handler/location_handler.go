package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/contracts"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/geolocate"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/software/page/session"
)

// refreshMargin is added on top of the position timeout so the positioner reports its own timeout first.
const refreshMargin = 2 * time.Second

// ----- Handler: POST /api/location/refresh -----

// handleRefreshLocation runs one location query and returns the resulting state.
// A failure is part of the state, never an HTTP error.
func (handler *PageHTTPHandler) handleRefreshLocation(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	s, ctx, ok := handler.page(ctx, w, r)
	if !ok {
		return
	}
	s.Touch()

	reqCtx, cancel := context.WithTimeout(ctx, handler.locationTimeout+refreshMargin)
	defer cancel()

	handler.jsonResponse(ctx, w, http.StatusOK, s.Tracker.Acquire(reqCtx))
}

// ----- Handler: POST /api/location/result -----

// handleLocationResult accepts a browser geolocation answer posted over HTTP instead of the socket.
func (handler *PageHTTPHandler) handleLocationResult(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var res contracts.WSGeolocationResult
	if !handler.decodeJSON(ctx, w, r, &res) {
		return
	}
	if res.RequestID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "request_id is required", nil)
		return
	}

	s, ctx, ok := handler.page(ctx, w, r)
	if !ok {
		return
	}

	if err := s.ResolveGeolocation(res); err != nil {
		switch {
		case errors.Is(err, session.ErrNoBridge):
			handler.httpError(ctx, w, http.StatusConflict, err.Error(), err)
		case errors.Is(err, geolocate.ErrUnknownRequest):
			handler.httpError(ctx, w, http.StatusNotFound, err.Error(), err)
		default:
			handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
