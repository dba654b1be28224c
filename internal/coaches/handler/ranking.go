package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"roster/internal/coaches/service"
	"roster/internal/schedule/validator"
	apperrors "roster/pkg/errors"
	httputil "roster/pkg/http"
	"roster/pkg/logger"
	"roster/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type RankingHandler struct {
	service   service.RankingService
	validator *validator.ScheduleValidator
	log       *logger.Logger
}

func NewRankingHandler(service service.RankingService, v *validator.ScheduleValidator, log *logger.Logger) *RankingHandler {
	return &RankingHandler{
		service:   service,
		validator: v,
		log:       log,
	}
}

// Rank answers POST /api/v1/coaches/rank. With ?all=true ineligible coaches are listed too.
func (h *RankingHandler) Rank(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	all := false
	if s := r.URL.Query().Get("all"); s != "" {
		v, err := strconv.ParseBool(s)
		if err != nil {
			h.writeError(w, apperrors.InvalidInput("invalid all parameter: "+s))
			return
		}
		all = v
	}

	var req model.RankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("Invalid request body"))
		return
	}
	if err := h.validator.ValidateRankRequest(&req); err != nil {
		h.writeError(w, validator.ToAppError(err))
		return
	}

	rank := h.service.Rank
	if all {
		rank = h.service.RankAll
	}
	ranked, err := rank(r.Context(), &req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if err := httputil.WriteList(w, ranked, len(ranked)); err != nil {
		h.log.Error("failed to write list response", "handler", "Rank", "error", err)
	}
}

func (h *RankingHandler) writeError(w http.ResponseWriter, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", "Rank", "error", writeErr)
	}
}

func (h *RankingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/coaches/rank", h.Rank)
}
