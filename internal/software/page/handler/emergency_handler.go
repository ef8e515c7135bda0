package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/emergency"
	emergencysvc "github.com/23NM1A0530/civic-aid-response-now-26/internal/software/emergency/service"
)

// --- Request/Response DTOs (HTTP boundary) ---

type callRequest struct {
	Service string `json:"service"`
}

type servicesResponse struct {
	Services   []emergency.ServiceEntry `json:"services"`
	Facilities []emergency.Facility     `json:"facilities"`
	Lines      []emergency.Line         `json:"lines"`
	Status     emergency.SystemStatus   `json:"status"`
}

// ----- Handler: GET /api/emergency/services -----

func (handler *PageHTTPHandler) handleServices(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	handler.jsonResponse(ctx, w, http.StatusOK, servicesResponse{
		Services:   emergency.Services(),
		Facilities: emergency.NearbyFacilities(),
		Lines:      emergency.QuickReference(),
		Status:     emergency.CurrentStatus(),
	})
}

// ----- Handler: POST /api/emergency/calls -----

// handleCall places a direct call. The tel: intent is returned and also pushed to the live page.
func (handler *PageHTTPHandler) handleCall(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req callRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}

	s, ctx, ok := handler.page(ctx, w, r)
	if !ok {
		return
	}
	s.Touch()

	callCtx, cancel := context.WithTimeout(ctx, serviceTimeout)
	defer cancel()

	intent, err := s.Call(callCtx, req.Service)
	if err != nil {
		switch {
		case errors.Is(err, emergency.ErrUnknownService), errors.Is(err, emergency.ErrInvalidNumber):
			handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
		case errors.Is(err, emergencysvc.ErrCallInProgress),
			errors.Is(err, emergencysvc.ErrSOSActive),
			errors.Is(err, emergencysvc.ErrClosed):
			handler.httpError(ctx, w, http.StatusConflict, err.Error(), err)
		default:
			handler.httpError(ctx, w, http.StatusInternalServerError, "call failed", err)
		}
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, intent)
}

// ----- Handler: POST /api/emergency/sos -----

func (handler *PageHTTPHandler) handleStartSOS(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	s, ctx, ok := handler.page(ctx, w, r)
	if !ok {
		return
	}
	s.Touch()

	st, err := s.SOS.Start(ctx)
	if err != nil {
		handler.sosError(ctx, w, err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusAccepted, st)
}

// ----- Handler: DELETE /api/emergency/sos -----

func (handler *PageHTTPHandler) handleCancelSOS(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	s, ctx, ok := handler.page(ctx, w, r)
	if !ok {
		return
	}
	s.Touch()

	st, err := s.SOS.Cancel(ctx)
	if err != nil {
		handler.sosError(ctx, w, err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, st)
}

func (handler *PageHTTPHandler) sosError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, emergencysvc.ErrSOSActive),
		errors.Is(err, emergencysvc.ErrCallInProgress),
		errors.Is(err, emergencysvc.ErrNoCountdown),
		errors.Is(err, emergencysvc.ErrClosed):
		handler.httpError(ctx, w, http.StatusConflict, err.Error(), err)
	default:
		handler.httpError(ctx, w, http.StatusInternalServerError, "sos failed", err)
	}
}
