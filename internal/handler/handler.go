// Package handler provides the HTTP surface for editing criteria, submitting
// searches and reading the map.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/optimal-sites/planner/internal/controller"
	"github.com/optimal-sites/planner/internal/criteria"
	"github.com/optimal-sites/planner/internal/mapview"
	"github.com/optimal-sites/planner/internal/models"
	"github.com/optimal-sites/planner/internal/recommender"
	"github.com/optimal-sites/planner/internal/search"
)

// MapResponse wraps the map scene in the API response.
type MapResponse struct {
	Phase string        `json:"phase"`
	Data  mapview.Scene `json:"data"`
}

// Handler provides HTTP handlers for the search session.
type Handler struct {
	ctl      *controller.Controller
	viewport mapview.Viewport
	logger   *zap.Logger
}

// NewHandler creates a new search handler.
func NewHandler(ctl *controller.Controller, viewport mapview.Viewport, logger *zap.Logger) *Handler {
	return &Handler{
		ctl:      ctl,
		viewport: viewport,
		logger:   logger,
	}
}

// RegisterRoutes registers the handler routes on the given router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/criteria", h.GetCriteria)
	rg.PATCH("/criteria", h.UpdateCriteria)
	rg.PUT("/criteria", h.UpdateCriteria)
	rg.POST("/search", h.Submit)
	rg.GET("/search", h.GetState)
	rg.GET("/map", h.GetMap)
	rg.GET("/map/geojson", h.GetGeoJSON)
	rg.GET("/map/stream", h.StreamMap)
}

// GetCriteria handles reading the current draft.
// @Summary Get search draft
// @Tags criteria
// @Produce json
// @Success 200 {object} models.CriteriaResponse
// @Router /api/v1/criteria [get]
func (h *Handler) GetCriteria(c *gin.Context) {
	draft, err := h.ctl.Draft(c.Request.Context())
	if err != nil {
		h.unavailable(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CriteriaResponse{Data: draft})
}

// UpdateCriteria handles edits to the draft. Edits are stored as typed and
// only checked on submit.
// @Summary Edit search draft
// @Tags criteria
// @Accept json
// @Produce json
// @Param criteria body models.DraftPatch true "Fields to change"
// @Success 200 {object} models.CriteriaResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /api/v1/criteria [patch]
func (h *Handler) UpdateCriteria(c *gin.Context) {
	var patch models.DraftPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		h.logger.Warn("Invalid criteria update", zap.Error(err))
		c.JSON(http.StatusBadRequest, models.ErrorResponse{
			Error:   "invalid_request",
			Message: err.Error(),
		})
		return
	}

	draft, err := h.ctl.Edit(c.Request.Context(), patch)
	if err != nil {
		h.unavailable(c, err)
		return
	}

	c.JSON(http.StatusOK, models.CriteriaResponse{Data: draft})
}

// Submit handles submitting the draft as a new search.
// @Summary Submit search
// @Tags search
// @Produce json
// @Success 202 {object} models.SubmitResponse
// @Failure 422 {object} models.ErrorResponse
// @Router /api/v1/search [post]
func (h *Handler) Submit(c *gin.Context) {
	tag, err := h.ctl.Submit(c.Request.Context())
	if verr, ok := criteria.AsValidationError(err); ok {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:   verr.Code,
			Message: verr.Error(),
			Field:   verr.Field,
		})
		return
	}
	if err != nil {
		h.unavailable(c, err)
		return
	}

	c.JSON(http.StatusAccepted, models.SubmitResponse{
		Tag:   uint64(tag),
		Phase: string(search.PhasePending),
	})
}

// GetState handles reading the search state.
// @Summary Get search state
// @Tags search
// @Produce json
// @Success 200 {object} models.SearchStateResponse
// @Router /api/v1/search [get]
func (h *Handler) GetState(c *gin.Context) {
	snap, err := h.ctl.Snapshot(c.Request.Context())
	if err != nil {
		h.unavailable(c, err)
		return
	}

	c.JSON(http.StatusOK, stateResponse(snap))
}

// GetMap handles reading the viewport and markers for the current result.
// @Summary Get map scene
// @Tags map
// @Produce json
// @Success 200 {object} MapResponse
// @Router /api/v1/map [get]
func (h *Handler) GetMap(c *gin.Context) {
	snap, err := h.ctl.Snapshot(c.Request.Context())
	if err != nil {
		h.unavailable(c, err)
		return
	}

	c.JSON(http.StatusOK, MapResponse{
		Phase: string(snap.State.Phase()),
		Data:  mapview.SceneFor(h.viewport, search.Locations(snap.State)),
	})
}

// GetGeoJSON handles reading the markers as a GeoJSON FeatureCollection.
// @Summary Get map markers as GeoJSON
// @Tags map
// @Produce json
// @Router /api/v1/map/geojson [get]
func (h *Handler) GetGeoJSON(c *gin.Context) {
	snap, err := h.ctl.Snapshot(c.Request.Context())
	if err != nil {
		h.unavailable(c, err)
		return
	}

	data, err := mapview.FeatureCollection(mapview.Markers(search.Locations(snap.State))).MarshalJSON()
	if err != nil {
		h.logger.Error("Failed to encode markers", zap.Error(err))
		c.JSON(http.StatusInternalServerError, models.ErrorResponse{
			Error:   "internal_error",
			Message: "failed to encode markers",
		})
		return
	}

	c.Data(http.StatusOK, "application/geo+json", data)
}

func (h *Handler) unavailable(c *gin.Context, err error) {
	if errors.Is(err, controller.ErrStopped) {
		h.logger.Warn("Search session stopped", zap.Error(err))
	}
	c.JSON(http.StatusServiceUnavailable, models.ErrorResponse{
		Error:   "unavailable",
		Message: "search session is not available",
	})
}

func stateResponse(snap controller.Snapshot) models.SearchStateResponse {
	resp := models.SearchStateResponse{
		Phase:     string(snap.State.Phase()),
		Tag:       uint64(search.TagOf(snap.State)),
		Draft:     snap.Draft,
		Locations: search.Locations(snap.State),
	}
	if resp.Locations == nil {
		resp.Locations = []models.Location{}
	}
	if c, ok := search.CriteriaOf(snap.State); ok {
		resp.Criteria = &c
	}
	if failed, ok := snap.State.(search.Failed); ok {
		resp.Error = &models.SearchError{
			Kind:       recommender.Kind(failed.Err),
			StatusCode: recommender.StatusCode(failed.Err),
			Message:    failed.Err.Error(),
		}
	}
	return resp
}
