package alertapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/linnemanlabs/pulsewatch/internal/alert"
	"github.com/linnemanlabs/pulsewatch/internal/directory"
)

// AlertService defines the engine operations alertapi needs.
type AlertService interface {
	ProcessAssessment(
		ctx context.Context,
		subjectID string,
		reading alert.VitalReading,
		assessment alert.RiskAssessment,
		contact alert.SubjectContact,
	) (*alert.Alert, error)
	Acknowledge(ctx context.Context, alertID, subjectID string) (bool, error)
	Alert(ctx context.Context, id string) (*alert.Alert, bool, error)
	SubjectAlerts(ctx context.Context, subjectID string) ([]*alert.Alert, error)
}

// EventStream upgrades a request into a live subscription for one subject.
type EventStream interface {
	HandleWS(w http.ResponseWriter, r *http.Request, subjectID string)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger    log.Logger
	svc       AlertService
	directory directory.Store
	stream    EventStream
}

// New creates a new API handler. stream may be nil, in which case the events
// endpoint is not registered.
func New(logger log.Logger, svc AlertService, dir directory.Store, stream EventStream) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("alert service is required"))
	}
	if dir == nil {
		panic(xerrors.New("directory store is required"))
	}
	return &API{
		logger:    logger,
		svc:       svc,
		directory: dir,
		stream:    stream,
	}
}

// RegisterRoutes attaches API endpoints to the router.
func (a *API) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/assessments", a.handleProcessAssessment)

		r.Get("/alerts/{id}", a.handleGetAlert)
		r.Post("/alerts/{id}/acknowledge", a.handleAcknowledge)

		r.Route("/subjects/{subjectID}", func(r chi.Router) {
			r.Get("/alerts", a.handleSubjectAlerts)

			r.Get("/contacts", a.handleListContacts)
			r.Post("/contacts", a.handleAddContact)
			r.Delete("/contacts/{contactID}", a.handleRemoveContact)

			r.Get("/settings", a.handleGetSettings)
			r.Put("/settings", a.handlePutSettings)
		})

		if a.stream != nil {
			r.Get("/events/{subjectID}", a.handleEvents)
		}
	})
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	a.stream.HandleWS(w, r, chi.URLParam(r, "subjectID"))
}

func (a *API) writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error(r.Context(), err, "response encode failed")
	}
}
