package handler

import (
	"net/http"
	"strconv"

	"roster/internal/issues/service"
	"roster/internal/schedule/validator"
	apperrors "roster/pkg/errors"
	httputil "roster/pkg/http"
	"roster/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type ConflictHandler struct {
	service   service.ConflictService
	validator *validator.ScheduleValidator
	log       *logger.Logger
}

func NewConflictHandler(service service.ConflictService, v *validator.ScheduleValidator, log *logger.Logger) *ConflictHandler {
	return &ConflictHandler{
		service:   service,
		validator: v,
		log:       log,
	}
}

func (h *ConflictHandler) CheckWeek(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	week, err := strconv.Atoi(ps.ByName("week"))
	if err != nil {
		h.writeError(w, apperrors.InvalidInput("invalid week parameter: "+ps.ByName("week")))
		return
	}

	q := &validator.WeekQuery{ContainerID: ps.ByName("id"), WeekOfMonth: week}
	if err := h.validator.ValidateWeekQuery(q); err != nil {
		h.writeError(w, validator.ToAppError(err))
		return
	}

	issues, err := h.service.CheckWeek(r.Context(), q.ContainerID, q.WeekOfMonth)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteList(w, issues, len(issues)); err != nil {
		h.log.Error("failed to write list response", "handler", "CheckWeek", "error", err)
	}
}

func (h *ConflictHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", "CheckWeek", "error", writeErr)
	}
}

func (h *ConflictHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/containers/:id/weeks/:week/check", h.CheckWeek)
}
