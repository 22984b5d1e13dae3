package alertapi

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/go-chi/chi/v5"

	"github.com/linnemanlabs/pulsewatch/internal/alert"
)

// assessmentRequest is the inbound shape for one completed risk assessment.
type assessmentRequest struct {
	SubjectID  string               `json:"subject_id"`
	Reading    alert.VitalReading   `json:"reading"`
	Assessment alert.RiskAssessment `json:"assessment"`
	Contact    alert.SubjectContact `json:"contact"`
}

func (a *API) handleProcessAssessment(w http.ResponseWriter, r *http.Request) {
	var req assessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if req.SubjectID == "" {
		http.Error(w, `{"error":"subject_id is required"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("pulsewatch.subject.id", req.SubjectID))

	al, err := a.svc.ProcessAssessment(r.Context(), req.SubjectID, req.Reading, req.Assessment, req.Contact)
	if err != nil {
		a.logger.Error(r.Context(), err, "assessment processing failed", "subject_id", req.SubjectID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if al == nil {
		// Below the alerting threshold; nothing was recorded.
		a.writeJSON(w, r, http.StatusOK, map[string]any{"alert": nil})
		return
	}

	span.SetAttributes(attribute.String("pulsewatch.alert.tier", string(al.Tier)))

	a.writeJSON(w, r, http.StatusCreated, map[string]any{"alert": al})
}

type acknowledgeRequest struct {
	SubjectID string `json:"subject_id"`
}

func (a *API) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req acknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if req.SubjectID == "" {
		http.Error(w, `{"error":"subject_id is required"}`, http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("pulsewatch.alert.id", id))

	ok, err := a.svc.Acknowledge(r.Context(), id, req.SubjectID)
	if err != nil {
		a.logger.Error(r.Context(), err, "acknowledge failed", "alert_id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	a.writeJSON(w, r, http.StatusOK, map[string]any{"acknowledged": true})
}

func (a *API) handleGetAlert(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("pulsewatch.alert.id", id))

	al, ok, err := a.svc.Alert(r.Context(), id)
	if err != nil {
		a.logger.Error(r.Context(), err, "alert lookup failed", "alert_id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if !ok {
		http.Error(w, `{"error":"not found"}`, http.StatusNotFound)
		return
	}

	a.writeJSON(w, r, http.StatusOK, al)
}

func (a *API) handleSubjectAlerts(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	alerts, err := a.svc.SubjectAlerts(r.Context(), subjectID)
	if err != nil {
		a.logger.Error(r.Context(), err, "alert listing failed", "subject_id", subjectID)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []*alert.Alert{}
	}

	a.writeJSON(w, r, http.StatusOK, map[string]any{"alerts": alerts})
}
