package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/jwt"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/logger"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/general/websocket"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/software/page/session"

	"github.com/google/uuid"
)

const (
	maxJSONBody    = 1 << 20 // 1 MiB
	serviceTimeout = 5 * time.Second
)

// PageHTTPHandler serves the accident report page, its JSON API and its live channel.
type PageHTTPHandler struct {
	registry        *session.Registry
	logger          *logger.Logger
	auth            *jwt.Manager
	hub             *websocket.Hub
	maxUpload       int64
	locationTimeout time.Duration
}

// NewPageHTTPHandler wires the page handler. maxUpload bounds a multipart image upload in bytes.
func NewPageHTTPHandler(
	registry *session.Registry,
	logger *logger.Logger,
	auth *jwt.Manager,
	hub *websocket.Hub,
	maxUpload int64,
	locationTimeout time.Duration,
) *PageHTTPHandler {
	return &PageHTTPHandler{
		registry:        registry,
		logger:          logger,
		auth:            auth,
		hub:             hub,
		maxUpload:       maxUpload,
		locationTimeout: locationTimeout,
	}
}

// RegisterRoutes mounts the page endpoints on the provided mux.
func (handler *PageHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	withSession := jwt.CookieMiddlewareFunc(handler.auth)

	mux.HandleFunc("GET /{$}", withSession(handler.handlePage))
	mux.HandleFunc("GET /ws", withSession(handler.handleWS))
	mux.HandleFunc("GET /api/state", withSession(handler.handleState))

	mux.HandleFunc("PATCH /api/report/draft", withSession(handler.handleSetField))
	mux.HandleFunc("POST /api/report/images", withSession(handler.handleAttachImages))
	mux.HandleFunc("POST /api/report/submit", withSession(handler.handleSubmit))

	mux.HandleFunc("POST /api/location/refresh", withSession(handler.handleRefreshLocation))
	mux.HandleFunc("POST /api/location/result", withSession(handler.handleLocationResult))

	mux.HandleFunc("GET /api/emergency/services", handler.handleServices)
	mux.HandleFunc("POST /api/emergency/calls", withSession(handler.handleCall))
	mux.HandleFunc("POST /api/emergency/sos", withSession(handler.handleStartSOS))
	mux.HandleFunc("DELETE /api/emergency/sos", withSession(handler.handleCancelSOS))

	mux.HandleFunc("GET /healthz", handler.handleHealth)
}

// PageIDHeader carries the page session ID on API calls. The socket passes it as ?page=.
const PageIDHeader = "X-Page-ID"

// browser returns the browser ID from the cookie, issuing a new cookie when it is missing or invalid.
func (handler *PageHTTPHandler) browser(w http.ResponseWriter, r *http.Request) (string, error) {
	if claims := jwt.RequireClaims(r); claims != nil {
		return claims.Subject, nil
	}

	id := uuid.NewString()
	token, claims, err := handler.auth.IssueSessionToken(id)
	if err != nil {
		return "", err
	}
	handler.auth.SetCookie(w, token, claims, r.TLS != nil)
	return id, nil
}

// openPage starts a fresh page session for this load of the page. Every load gets its own
// draft, location and countdown, even from the same browser.
func (handler *PageHTTPHandler) openPage(ctx context.Context, w http.ResponseWriter, r *http.Request) (*session.Session, context.Context, error) {
	owner, err := handler.browser(w, r)
	if err != nil {
		return nil, ctx, err
	}

	s := handler.registry.Create(ctx, owner)
	w.Header().Set(PageIDHeader, s.ID)
	return s, handler.logger.WithSessionID(ctx, s.ID), nil
}

// page resolves the page session a request talks to and writes the error response itself.
// 401 without a browser cookie, 400 without a page ID, 410 when the page is gone or belongs
// to another browser; the page reloads on 410.
func (handler *PageHTTPHandler) page(ctx context.Context, w http.ResponseWriter, r *http.Request) (*session.Session, context.Context, bool) {
	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing or invalid session cookie", nil)
		return nil, ctx, false
	}

	id := strings.TrimSpace(r.Header.Get(PageIDHeader))
	if id == "" {
		id = strings.TrimSpace(r.URL.Query().Get("page"))
	}
	if id == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "page id is required", nil)
		return nil, ctx, false
	}

	s, ok := handler.registry.Get(id)
	if !ok || s.Owner != claims.Subject {
		handler.httpError(ctx, w, http.StatusGone, "page session expired, reload the page", nil)
		return nil, ctx, false
	}
	return s, handler.logger.WithSessionID(ctx, s.ID), true
}

// decodeJSON checks the content type and strictly decodes a bounded body into dst.
// It writes the error response itself and reports whether decoding succeeded.
func (handler *PageHTTPHandler) decodeJSON(ctx context.Context, w http.ResponseWriter, r *http.Request, dst any) bool {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return false
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return false
	}
	return true
}

// jsonResponse takes any type of data and encodes it to the HTTP response.
func (handler *PageHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *PageHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	} else if status == http.StatusUnsupportedMediaType {
		action = "unsupported_media_type"
	} else if status == http.StatusConflict {
		action = "request_conflict"
	} else if status == http.StatusUnauthorized {
		action = "unauthorized"
	} else if status == http.StatusGone {
		action = "page_gone"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *PageHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
