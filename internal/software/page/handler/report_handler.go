package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/report"
	reportsvc "github.com/23NM1A0530/civic-aid-response-now-26/internal/software/report/service"
)

// --- Request DTO (HTTP boundary) ---

type setFieldRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

// ----- Handler: PATCH /api/report/draft -----

func (handler *PageHTTPHandler) handleSetField(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req setFieldRequest
	if !handler.decodeJSON(ctx, w, r, &req) {
		return
	}

	field, err := report.ParseField(req.Field)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
		return
	}

	s, ctx, ok := handler.page(ctx, w, r)
	if !ok {
		return
	}

	st, err := s.Form.Set(ctx, field, req.Value)
	if err != nil {
		if errors.Is(err, reportsvc.ErrClosed) {
			handler.httpError(ctx, w, http.StatusConflict, err.Error(), err)
			return
		}
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, st)
}

// ----- Handler: POST /api/report/images -----

// handleAttachImages reads a multipart "images" upload. Only file metadata is kept.
func (handler *PageHTTPHandler) handleAttachImages(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	r.Body = http.MaxBytesReader(w, r.Body, handler.maxUpload)
	defer r.Body.Close()

	mr, err := r.MultipartReader()
	if err != nil {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be multipart/form-data", err)
		return
	}

	images, err := readImages(mr)
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "upload too large", err)
			return
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid multipart body", err)
		return
	}

	s, ctx, ok := handler.page(ctx, w, r)
	if !ok {
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, s.Form.AttachImages(ctx, images...))
}

// readImages streams every "images" part and counts its bytes without keeping them.
func readImages(mr *multipart.Reader) ([]report.Image, error) {
	var images []report.Image
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			return images, nil
		}
		if err != nil {
			return nil, err
		}

		if part.FormName() != "images" || part.FileName() == "" {
			_ = part.Close()
			continue
		}

		n, err := io.Copy(io.Discard, part)
		_ = part.Close()
		if err != nil {
			return nil, err
		}

		images = append(images, report.Image{
			Name:        part.FileName(),
			ContentType: part.Header.Get("Content-Type"),
			Size:        n,
		})
	}
}

// ----- Handler: POST /api/report/submit -----

func (handler *PageHTTPHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	s, ctx, ok := handler.page(ctx, w, r)
	if !ok {
		return
	}

	// the wait is bounded by the page lifetime, not by this request
	receipt, err := s.Form.Submit(ctx)
	if err != nil {
		switch {
		case errors.Is(err, reportsvc.ErrSubmitting), errors.Is(err, reportsvc.ErrClosed):
			handler.httpError(ctx, w, http.StatusConflict, err.Error(), err)
		default:
			handler.httpError(ctx, w, http.StatusInternalServerError, "submission failed", err)
		}
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, receipt)
}
