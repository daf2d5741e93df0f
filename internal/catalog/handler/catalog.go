package handler

import (
	"encoding/json"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"inventario/internal/catalog/service"
	httputil "inventario/pkg/http"
	"inventario/pkg/logger"
	"inventario/pkg/model"
)

type CatalogHandler struct {
	service service.CatalogService
	log     *logger.Logger
}

func NewCatalogHandler(service service.CatalogService, log *logger.Logger) *CatalogHandler {
	return &CatalogHandler{
		service: service,
		log:     log,
	}
}

func (h *CatalogHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "error", writeErr)
	}
}

func (h *CatalogHandler) writeBadBody(w http.ResponseWriter, handler string) {
	if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
		Error: "Invalid request body",
	}); writeErr != nil {
		h.log.Error("failed to write JSON response", "handler", handler, "error", writeErr)
	}
}

func (h *CatalogHandler) CreateSite(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "CreateSite", err)
		return
	}

	var site model.Site
	if err := json.NewDecoder(r.Body).Decode(&site); err != nil {
		h.writeBadBody(w, "CreateSite")
		return
	}

	if err := h.service.CreateSite(r.Context(), actor, &site); err != nil {
		h.writeError(w, "CreateSite", err)
		return
	}

	if err := httputil.WriteCreated(w, site); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateSite", "error", err)
	}
}

func (h *CatalogHandler) GetSite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	site, err := h.service.GetSite(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetSite", err)
		return
	}

	if err := httputil.WriteSuccess(w, site); err != nil {
		h.log.Error("failed to write success response", "handler", "GetSite", "error", err)
	}
}

func (h *CatalogHandler) ListSites(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListSites", err)
		return
	}

	sites, total, err := h.service.ListSites(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "ListSites", err)
		return
	}

	if err := httputil.WritePaginated(w, sites, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListSites", "error", err)
	}
}

func (h *CatalogHandler) UpdateSite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "UpdateSite", err)
		return
	}

	var site model.Site
	if err := json.NewDecoder(r.Body).Decode(&site); err != nil {
		h.writeBadBody(w, "UpdateSite")
		return
	}

	if err := h.service.UpdateSite(r.Context(), actor, ps.ByName("id"), &site); err != nil {
		h.writeError(w, "UpdateSite", err)
		return
	}

	if err := httputil.WriteSuccess(w, site); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateSite", "error", err)
	}
}

func (h *CatalogHandler) DeleteSite(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "DeleteSite", err)
		return
	}

	if err := h.service.DeleteSite(r.Context(), actor, ps.ByName("id")); err != nil {
		h.writeError(w, "DeleteSite", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *CatalogHandler) CreateType(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "CreateType", err)
		return
	}

	var objectType model.ObjectType
	if err := json.NewDecoder(r.Body).Decode(&objectType); err != nil {
		h.writeBadBody(w, "CreateType")
		return
	}

	if err := h.service.CreateType(r.Context(), actor, &objectType); err != nil {
		h.writeError(w, "CreateType", err)
		return
	}

	if err := httputil.WriteCreated(w, objectType); err != nil {
		h.log.Error("failed to write created response", "handler", "CreateType", "error", err)
	}
}

func (h *CatalogHandler) GetType(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	objectType, err := h.service.GetType(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetType", err)
		return
	}

	if err := httputil.WriteSuccess(w, objectType); err != nil {
		h.log.Error("failed to write success response", "handler", "GetType", "error", err)
	}
}

func (h *CatalogHandler) ListTypes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "ListTypes", err)
		return
	}

	types, total, err := h.service.ListTypes(r.Context(), limit, offset)
	if err != nil {
		h.writeError(w, "ListTypes", err)
		return
	}

	if err := httputil.WritePaginated(w, types, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListTypes", "error", err)
	}
}

func (h *CatalogHandler) UpdateType(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "UpdateType", err)
		return
	}

	var objectType model.ObjectType
	if err := json.NewDecoder(r.Body).Decode(&objectType); err != nil {
		h.writeBadBody(w, "UpdateType")
		return
	}

	if err := h.service.UpdateType(r.Context(), actor, ps.ByName("id"), &objectType); err != nil {
		h.writeError(w, "UpdateType", err)
		return
	}

	if err := httputil.WriteSuccess(w, objectType); err != nil {
		h.log.Error("failed to write success response", "handler", "UpdateType", "error", err)
	}
}

func (h *CatalogHandler) DeleteType(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "DeleteType", err)
		return
	}

	if err := h.service.DeleteType(r.Context(), actor, ps.ByName("id")); err != nil {
		h.writeError(w, "DeleteType", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *CatalogHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/v1/sites", h.CreateSite)
	router.GET("/v1/sites", h.ListSites)
	router.GET("/v1/sites/:id", h.GetSite)
	router.PUT("/v1/sites/:id", h.UpdateSite)
	router.DELETE("/v1/sites/:id", h.DeleteSite)

	router.POST("/v1/types", h.CreateType)
	router.GET("/v1/types", h.ListTypes)
	router.GET("/v1/types/:id", h.GetType)
	router.PUT("/v1/types/:id", h.UpdateType)
	router.DELETE("/v1/types/:id", h.DeleteType)
}
