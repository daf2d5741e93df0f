package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"inventario/internal/reservations/repository"
	"inventario/internal/reservations/service"
	apperrors "inventario/pkg/errors"
	httputil "inventario/pkg/http"
	"inventario/pkg/logger"
	"inventario/pkg/model"
)

type ReservationHandler struct {
	scheduler service.SchedulerService
	lifecycle service.LifecycleService
	log       *logger.Logger
}

func NewReservationHandler(scheduler service.SchedulerService, lifecycle service.LifecycleService, log *logger.Logger) *ReservationHandler {
	return &ReservationHandler{
		scheduler: scheduler,
		lifecycle: lifecycle,
		log:       log,
	}
}

type saveResponse struct {
	Reservation *model.Reservation `json:"reservation"`
	Occurrences int                `json:"occurrences"`
}

func (h *ReservationHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *ReservationHandler) writeBadBody(w http.ResponseWriter, handler string) {
	if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
		Error: "Invalid request body",
	}); writeErr != nil {
		h.log.Error("failed to write JSON response", "handler", handler, "error", writeErr)
	}
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var req model.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadBody(w, "Create")
		return
	}
	req.ID = ""

	reservation, occurrences, err := h.scheduler.Save(r.Context(), actor, &req)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, saveResponse{Reservation: reservation, Occurrences: occurrences}); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "error", err)
	}
}

func (h *ReservationHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var req model.ReservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeBadBody(w, "Update")
		return
	}
	req.ID = ps.ByName("id")

	reservation, _, err := h.scheduler.Save(r.Context(), actor, &req)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	if err := httputil.WriteSuccess(w, reservation); err != nil {
		h.log.Error("failed to write success response", "handler", "Update", "error", err)
	}
}

func (h *ReservationHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	reservation, err := h.scheduler.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, reservation); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "error", err)
	}
}

func (h *ReservationHandler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	filter, err := extractFilter(r)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	reservations, total, err := h.scheduler.List(r.Context(), filter, limit, offset)
	if err != nil {
		h.writeError(w, "List", err)
		return
	}

	if err := httputil.WritePaginated(w, reservations, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "List", "error", err)
	}
}

func (h *ReservationHandler) Return(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Return", err)
		return
	}

	if err := h.lifecycle.Return(r.Context(), actor, ps.ByName("id")); err != nil {
		h.writeError(w, "Return", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	if err := h.lifecycle.Delete(r.Context(), actor, ps.ByName("id")); err != nil {
		h.writeError(w, "Delete", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *ReservationHandler) ActiveNow(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	active, err := h.lifecycle.IsActiveNow(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "ActiveNow", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]bool{"active": active}); err != nil {
		h.log.Error("failed to write success response", "handler", "ActiveNow", "error", err)
	}
}

func (h *ReservationHandler) OpenReturns(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	count, err := h.lifecycle.CountOpenReturns(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "OpenReturns", err)
		return
	}

	if err := httputil.WriteSuccess(w, map[string]int64{"open_returns": count}); err != nil {
		h.log.Error("failed to write success response", "handler", "OpenReturns", "error", err)
	}
}

func extractFilter(r *http.Request) (repository.Filter, error) {
	query := r.URL.Query()
	filter := repository.Filter{
		ObjectID: query.Get("object_id"),
		UserID:   query.Get("user_id"),
		SiteID:   query.Get("site_id"),
		Status:   query.Get("status"),
	}

	if s := query.Get("from"); s != "" {
		from, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return repository.Filter{}, apperrors.InvalidInput("invalid from parameter: " + s)
		}
		filter.From = &from
	}
	if s := query.Get("to"); s != "" {
		to, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return repository.Filter{}, apperrors.InvalidInput("invalid to parameter: " + s)
		}
		filter.To = &to
	}

	return filter, nil
}

func (h *ReservationHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/v1/reservations", h.Create)
	router.GET("/v1/reservations", h.List)
	router.GET("/v1/reservations/:id", h.GetByID)
	router.PUT("/v1/reservations/:id", h.Update)
	router.POST("/v1/reservations/:id/return", h.Return)
	router.DELETE("/v1/reservations/:id", h.Delete)

	router.GET("/v1/objects/:id/active", h.ActiveNow)
	router.GET("/v1/objects/:id/open-returns", h.OpenReturns)
}
