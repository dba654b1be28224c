package handler

import (
	"net/http"

	"roster/internal/publish/service"
	"roster/internal/schedule/validator"
	apperrors "roster/pkg/errors"
	httputil "roster/pkg/http"
	"roster/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type PublishHandler struct {
	orchestrator service.Orchestrator
	validator    *validator.ScheduleValidator
	log          *logger.Logger
}

func NewPublishHandler(orchestrator service.Orchestrator, v *validator.ScheduleValidator, log *logger.Logger) *PublishHandler {
	return &PublishHandler{
		orchestrator: orchestrator,
		validator:    v,
		log:          log,
	}
}

// Publish admits a run and returns it before any booking work happens.
func (h *PublishHandler) Publish(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	q := &validator.ContainerQuery{ContainerID: ps.ByName("id")}
	if err := h.validator.ValidateContainerQuery(q); err != nil {
		h.writeError(w, "Publish", validator.ToAppError(err))
		return
	}

	run, err := h.orchestrator.PublishContainer(r.Context(), q.ContainerID)
	if err != nil {
		h.writeError(w, "Publish", err)
		return
	}

	w.Header().Set("Location", "/api/v1/publish-runs/"+run.ID)
	if err := httputil.WriteAccepted(w, run); err != nil {
		h.log.Error("failed to write accepted response", "handler", "Publish", "error", err)
	}
}

func (h *PublishHandler) GetRun(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		h.writeError(w, "GetRun", apperrors.InvalidInput("Run ID cannot be empty"))
		return
	}

	run, err := h.orchestrator.GetStatus(r.Context(), id)
	if err != nil {
		h.writeError(w, "GetRun", err)
		return
	}

	if err := httputil.WriteSuccess(w, run); err != nil {
		h.log.Error("failed to write success response", "handler", "GetRun", "error", err)
	}
}

func (h *PublishHandler) ListLogs(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	logs, err := h.orchestrator.ListLogs(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "ListLogs", err)
		return
	}

	if err := httputil.WriteList(w, logs, len(logs)); err != nil {
		h.log.Error("failed to write list response", "handler", "ListLogs", "error", err)
	}
}

func (h *PublishHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *PublishHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/containers/:id/publish", h.Publish)
	router.GET("/api/v1/publish-runs/:id", h.GetRun)
	router.GET("/api/v1/publish-runs/:id/logs", h.ListLogs)
}
