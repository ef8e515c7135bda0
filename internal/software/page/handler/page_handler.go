package handler

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/emergency"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/domain/report"
	"github.com/23NM1A0530/civic-aid-response-now-26/internal/software/page/session"
)

//go:embed templates/page.html
var templatesFS embed.FS

var pageTemplate = template.Must(template.New("page.html").Funcs(template.FuncMap{
	"selected": func(current any, value string) bool { return fmt.Sprint(current) == value },
}).ParseFS(templatesFS, "templates/page.html"))

// pageView is everything the page template renders.
type pageView struct {
	State          session.State
	PatientVisible bool
	CallsDisabled  bool // a call is in progress or the countdown owns the line
	SOSDisabled    bool

	ReporterTypes []report.Option
	AccidentTypes []report.Option
	VehicleCounts []report.Option
	Severities    []report.Option
	Injuries      []report.Option
	Genders       []report.Option

	Services   []emergency.ServiceEntry
	Facilities []emergency.Facility
	Lines      []emergency.Line
	Status     emergency.SystemStatus
}

func newPageView(st session.State) pageView {
	sosActive := st.SOS.Status.Active()
	return pageView{
		State:          st,
		PatientVisible: st.Form.VisibleFields.Has(report.FieldPatientName),
		CallsDisabled:  st.CallBusy || sosActive,
		SOSDisabled:    st.CallBusy || sosActive,
		ReporterTypes:  report.ReporterTypeOptions,
		AccidentTypes:  report.AccidentTypeOptions,
		VehicleCounts:  report.VehicleCountOptions,
		Severities:     report.SeverityOptions,
		Injuries:       report.InjuryStatusOptions,
		Genders:        report.GenderOptions,
		Services:       emergency.Services(),
		Facilities:     emergency.NearbyFacilities(),
		Lines:          emergency.QuickReference(),
		Status:         emergency.CurrentStatus(),
	}
}

// ----- Handler: GET / -----

// handlePage renders a fresh page. Each load opens its own page session; the ID is in
// the X-Page-ID header and on the body element.
func (handler *PageHTTPHandler) handlePage(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	s, ctx, err := handler.openPage(ctx, w, r)
	if err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "failed to open page session", err)
		return
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, newPageView(s.Snapshot(false))); err != nil {
		handler.httpError(ctx, w, http.StatusInternalServerError, "failed to render page", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// ----- Handler: GET /api/state -----

// handleState returns the full page snapshot and drains the toast queue.
func (handler *PageHTTPHandler) handleState(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	s, ctx, ok := handler.page(ctx, w, r)
	if !ok {
		return
	}

	handler.jsonResponse(ctx, w, http.StatusOK, s.Snapshot(true))
}
